// Command docoutline writes a <name>.json outline for every supported
// document in an input directory.
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"sort"
	"sync"
	"syscall"

	"github.com/dgallion1/docoutline/internal/config"
	"github.com/dgallion1/docoutline/internal/outline"
	"github.com/dgallion1/docoutline/internal/output"
	"github.com/dgallion1/docoutline/internal/parser"
	"github.com/dgallion1/docoutline/internal/pipeline"
)

type options struct {
	inDir   string
	outDir  string
	workers int
	extract *pipeline.Extractor
}

// summary counts the outcome of one batch run.
type summary struct {
	written int
	skipped int // unreadable documents or output name collisions
	failed  int // any other error
}

func main() {
	inDir := flag.String("in", defaultDir("/app/input", "./input"), "directory of documents to read")
	outDir := flag.String("out", defaultDir("/app/output", "./output"), "directory to write outlines to")
	configPath := flag.String("config", "", "optional YAML config file")
	workers := flag.Int("workers", 0, "documents processed in parallel (default WORKER_COUNT)")
	flag.Parse()

	cfg := config.Load()
	if *configPath != "" {
		var err error
		if cfg, err = config.LoadFile(*configPath); err != nil {
			slog.Error("load config", "error", err)
			os.Exit(1)
		}
	}
	log := slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: cfg.SlogLevel()}))

	if *workers <= 0 {
		*workers = cfg.WorkerCount
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	opts := options{
		inDir:   *inDir,
		outDir:  *outDir,
		workers: *workers,
		extract: &pipeline.Extractor{
			Options:  outline.Options{DepthAwarePatterns: cfg.DepthAwarePatterns},
			Validate: cfg.ValidateOutput,
		},
	}
	sum, err := run(ctx, opts, log)
	if err != nil {
		log.Error("batch failed", "error", err)
		os.Exit(1)
	}
	log.Info("batch complete", "written", sum.written, "skipped", sum.skipped, "failed", sum.failed)
	if sum.skipped > 0 || sum.failed > 0 {
		os.Exit(2)
	}
}

// run processes every supported file in opts.inDir. Unreadable documents
// are logged and skipped; the returned error covers only setup failures.
func run(ctx context.Context, opts options, log *slog.Logger) (summary, error) {
	var sum summary
	for _, dir := range []string{opts.inDir, opts.outDir} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return sum, fmt.Errorf("create %s: %w", dir, err)
		}
	}

	files, err := listInputs(opts.inDir)
	if err != nil {
		return sum, err
	}
	files, collided := dropCollisions(files, log)
	sum.skipped += collided
	log.Info("starting batch", "in", opts.inDir, "out", opts.outDir, "documents", len(files))

	workers := max(opts.workers, 1)
	var (
		mu  sync.Mutex
		wg  sync.WaitGroup
		sem = make(chan struct{}, workers)
	)
	for _, name := range files {
		if ctx.Err() != nil {
			break
		}
		sem <- struct{}{}
		wg.Add(1)
		go func(name string) {
			defer wg.Done()
			defer func() { <-sem }()

			outcome := processFile(opts, name, log)
			mu.Lock()
			defer mu.Unlock()
			switch outcome {
			case outcomeWritten:
				sum.written++
			case outcomeSkipped:
				sum.skipped++
			default:
				sum.failed++
			}
		}(name)
	}
	wg.Wait()
	return sum, ctx.Err()
}

type outcome int

const (
	outcomeWritten outcome = iota
	outcomeSkipped
	outcomeFailed
)

func processFile(opts options, name string, log *slog.Logger) outcome {
	log = log.With("file", name)
	data, err := os.ReadFile(filepath.Join(opts.inDir, name))
	if err != nil {
		log.Error("read failed", "error", err)
		return outcomeFailed
	}

	rec, method, err := opts.extract.Extract(data, name)
	if err != nil {
		if outline.IsDocumentOpenError(err) {
			log.Warn("skipping unreadable document", "error", err)
			return outcomeSkipped
		}
		log.Error("extraction failed", "error", err)
		return outcomeFailed
	}

	path, err := output.WriteFile(opts.outDir, name, rec, opts.extract.Validate)
	if err != nil {
		log.Error("write failed", "error", err)
		return outcomeFailed
	}
	log.Info("wrote outline", "path", path, "method", method, "title", rec.Title, "entries", len(rec.Outline))
	return outcomeWritten
}

// listInputs returns the supported regular files in dir, sorted by name.
func listInputs(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", dir, err)
	}
	var files []string
	for _, e := range entries {
		if e.Type().IsRegular() && parser.IsSupportedExtension(e.Name()) {
			files = append(files, e.Name())
		}
	}
	sort.Strings(files)
	return files, nil
}

// dropCollisions keeps the first file, in sorted order, for each output
// name. report.md and report.txt both map to report.json, so the later one
// is logged and dropped.
func dropCollisions(files []string, log *slog.Logger) ([]string, int) {
	owner := make(map[string]string, len(files))
	kept := files[:0:0]
	dropped := 0
	for _, name := range files {
		out := output.FileName(name)
		if first, ok := owner[out]; ok {
			log.Warn("skipping document with colliding output name",
				"file", name, "output", out, "kept", first)
			dropped++
			continue
		}
		owner[out] = name
		kept = append(kept, name)
	}
	return kept, dropped
}

func defaultDir(container, local string) string {
	if _, err := os.Stat(container); err == nil {
		return container
	}
	return local
}

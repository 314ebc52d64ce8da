package pipeline

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/dgallion1/docoutline/internal/outline"
	"github.com/dgallion1/docoutline/internal/output"
	"github.com/dgallion1/docoutline/internal/parser"
	"github.com/dgallion1/docoutline/internal/pathstore"
	"github.com/dgallion1/docoutline/internal/store"
)

// RecordStore persists finished outlines.
type RecordStore interface {
	Put(ctx context.Context, d *store.Document) error
	FindByHash(ctx context.Context, hash string) (*store.Document, error)
}

// Publisher mirrors outlines to an external key-value store.
type Publisher interface {
	PutNode(ctx context.Context, key string, req pathstore.NodeRequest) error
	GetNode(ctx context.Context, key string) (*pathstore.NodeResponse, error)
	DeleteNode(ctx context.Context, key string) error
}

// Extractor opens uploaded bytes and runs outline extraction, recording
// latency for every successful run.
type Extractor struct {
	Options  outline.Options
	Validate bool
	Stats    *LatencyStats
}

// Extract parses data as filename and returns its outline record. Parse and
// read failures come back as *outline.DocumentOpenError.
func (e *Extractor) Extract(data []byte, filename string) (outline.Record, outline.Method, error) {
	start := time.Now()
	doc, err := parser.Open(bytes.NewReader(data), filename)
	if err != nil {
		return outline.Record{}, "", err
	}
	rec, method, err := outline.Extract(doc, e.Options)
	if err != nil {
		var openErr *outline.DocumentOpenError
		if errors.As(err, &openErr) && openErr.Name == "" {
			openErr.Name = filename
		}
		return outline.Record{}, "", err
	}
	if e.Stats != nil {
		e.Stats.Record(time.Since(start), method == outline.MethodBookmarks)
	}
	if e.Validate {
		encoded, err := output.Marshal(rec)
		if err != nil {
			return outline.Record{}, "", fmt.Errorf("encode record: %w", err)
		}
		if err := output.Validate(encoded); err != nil {
			return outline.Record{}, "", err
		}
	}
	return rec, method, nil
}

// Worker processes a single document job.
type Worker struct {
	extractor *Extractor
	store     RecordStore
	publisher Publisher
	log       *slog.Logger

	// backoff is swapped out in tests.
	backoff func(attempt int) time.Duration
}

// NewWorker builds a worker. publisher may be nil, in which case outlines
// are only stored locally.
func NewWorker(ex *Extractor, st RecordStore, pub Publisher, log *slog.Logger) *Worker {
	return &Worker{
		extractor: ex,
		store:     st,
		publisher: pub,
		log:       log,
		backoff:   Backoff,
	}
}

// Process runs the full pipeline for a job.
func (w *Worker) Process(ctx context.Context, job *Job) {
	log := w.log.With("job_id", job.ID, "doc_id", job.DocID, "filename", job.Filename)
	data := job.FileData()
	// Release the upload once the job ends, whatever the outcome.
	defer job.SetFileData(nil)

	// Phase 1: Dedup on the raw bytes.
	job.SetStatus(StatusParsing, "parsing")
	hash := ContentHashHex(data)
	job.SetContentHash(hash)
	if !job.Force {
		existing, err := w.store.FindByHash(ctx, hash)
		switch {
		case err == nil:
			log.Info("duplicate document, skipping", "existing_doc_id", existing.DocID)
			job.MarkDuplicate(existing.DocID, existing.Title)
			return
		case !errors.Is(err, store.ErrNotFound):
			log.Warn("dedup check failed, proceeding", "error", err)
		}
	}

	// Phase 2: Parse and extract.
	job.SetStatus(StatusExtracting, "extracting")
	rec, method, err := w.extractor.Extract(data, job.Filename)
	if err != nil {
		phase := "extracting"
		if outline.IsDocumentOpenError(err) {
			phase = "parsing"
		}
		log.Error("extraction failed", "error", err)
		job.AddError(err.Error())
		job.SetStatus(StatusFailed, phase)
		return
	}
	job.SetResult(method, rec)
	log.Info("outline extracted", "method", method, "title", rec.Title, "entries", len(rec.Outline))

	// Phase 3: Store locally.
	job.SetStatus(StatusStoring, "storing")
	doc := &store.Document{
		DocID:       job.DocID,
		Filename:    job.Filename,
		Method:      string(method),
		ContentHash: hash,
		Source:      job.Source,
		Record:      rec,
		CreatedAt:   job.CreatedAt,
	}
	if err := w.store.Put(ctx, doc); err != nil {
		log.Error("store failed", "error", err)
		job.AddError(fmt.Sprintf("store: %s", err))
		job.SetStatus(StatusFailed, "storing")
		return
	}

	// Phase 4: Publish.
	if w.publisher != nil {
		if err := w.publish(ctx, log, doc); err != nil {
			log.Error("publish failed", "error", err)
			job.AddError(fmt.Sprintf("publish: %s", err))
			job.SetStatus(StatusPartial, "publishing")
			return
		}
	}

	job.SetStatus(StatusCompleted, "done")
}

// publish writes the record to pathstore, retrying transient failures.
func (w *Worker) publish(ctx context.Context, log *slog.Logger, doc *store.Document) error {
	key := pathstore.OutlineKey(doc.DocID)
	req := pathstore.NodeRequest{
		Value: map[string]any{
			"title":        doc.Record.Title,
			"outline":      doc.Record.Outline,
			"filename":     doc.Filename,
			"method":       doc.Method,
			"content_hash": doc.ContentHash,
			"created_at":   doc.CreatedAt.Format(time.RFC3339),
		},
		Source: "docoutline:" + doc.DocID,
	}

	var lastErr error
	for attempt := range MaxRetries {
		lastErr = w.publisher.PutNode(ctx, key, req)
		if lastErr == nil || !IsRetryable(lastErr) {
			return lastErr
		}
		log.Warn("retryable publish error", "attempt", attempt, "error", lastErr)
		select {
		case <-time.After(w.backoff(attempt)):
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	return lastErr
}

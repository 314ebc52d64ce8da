package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/dgallion1/docoutline/internal/config"
	"github.com/dgallion1/docoutline/internal/outline"
	"github.com/dgallion1/docoutline/internal/pathstore"
)

// ErrQueueFull is returned by Submit when no queue slot is free.
var ErrQueueFull = errors.New("job queue is full")

// Orchestrator manages the outline pipeline.
type Orchestrator struct {
	jobs      *JobStore
	queue     chan *Job
	extractor *Extractor
	store     RecordStore
	publisher Publisher
	log       *slog.Logger
	cfg       config.Config

	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewOrchestrator creates the pipeline. pub may be nil.
func NewOrchestrator(cfg config.Config, st RecordStore, pub Publisher, log *slog.Logger) *Orchestrator {
	return &Orchestrator{
		jobs:  NewJobStore(cfg.JobTTL),
		queue: make(chan *Job, cfg.MaxQueueSize),
		extractor: &Extractor{
			Options:  outline.Options{DepthAwarePatterns: cfg.DepthAwarePatterns},
			Validate: cfg.ValidateOutput,
			Stats:    NewLatencyStats(time.Hour),
		},
		store:     st,
		publisher: pub,
		log:       log,
		cfg:       cfg,
	}
}

// Start launches worker goroutines.
func (o *Orchestrator) Start(ctx context.Context) {
	workerCtx, cancel := context.WithCancel(ctx)
	o.cancel = cancel

	for range o.cfg.WorkerCount {
		o.wg.Add(1)
		go func() {
			defer o.wg.Done()
			w := NewWorker(o.extractor, o.store, o.publisher, o.log)
			for {
				select {
				case <-workerCtx.Done():
					return
				case job, ok := <-o.queue:
					if !ok {
						return
					}
					w.Process(workerCtx, job)
				}
			}
		}()
	}

	// Start job store cleanup.
	o.wg.Add(1)
	go func() {
		defer o.wg.Done()
		ticker := time.NewTicker(5 * time.Minute)
		defer ticker.Stop()
		for {
			select {
			case <-workerCtx.Done():
				return
			case <-ticker.C:
				o.jobs.Cleanup()
			}
		}
	}()
}

// Stop gracefully shuts down the pipeline.
func (o *Orchestrator) Stop() {
	if o.cancel != nil {
		o.cancel()
	}
	close(o.queue)
	o.wg.Wait()
}

// Submit queues a new job for processing.
func (o *Orchestrator) Submit(job *Job) error {
	o.jobs.Put(job)
	select {
	case o.queue <- job:
		return nil
	default:
		job.AddError(ErrQueueFull.Error())
		job.SetStatus(StatusFailed, "queue_full")
		return fmt.Errorf("%w (%d)", ErrQueueFull, o.cfg.MaxQueueSize)
	}
}

// GetJob returns a job by ID.
func (o *Orchestrator) GetJob(id string) *Job {
	return o.jobs.Get(id)
}

// QueueDepth returns current queue depth.
func (o *Orchestrator) QueueDepth() int {
	return len(o.queue)
}

// JobCount returns the number of jobs still tracked in memory.
func (o *Orchestrator) JobCount() int {
	return o.jobs.Len()
}

// Extractor returns the shared extractor for synchronous requests.
func (o *Orchestrator) Extractor() *Extractor {
	return o.extractor
}

// Stats returns the extraction latency tracker.
func (o *Orchestrator) Stats() *LatencyStats {
	return o.extractor.Stats
}

// Unpublish removes a document's outline from the publisher, if one is
// configured.
func (o *Orchestrator) Unpublish(ctx context.Context, docID string) error {
	if o.publisher == nil {
		return nil
	}
	return o.publisher.DeleteNode(ctx, pathstore.OutlineKey(docID))
}

// Published reports whether a document's outline is present in the
// publisher. The first result is false when publishing is disabled.
func (o *Orchestrator) Published(ctx context.Context, docID string) (enabled, found bool, err error) {
	if o.publisher == nil {
		return false, false, nil
	}
	node, err := o.publisher.GetNode(ctx, pathstore.OutlineKey(docID))
	if err != nil {
		return true, false, err
	}
	return true, node != nil, nil
}

package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/dgallion1/resumex/internal/config"
	"github.com/dgallion1/resumex/internal/extract"
	"github.com/dgallion1/resumex/internal/schema"
)

// Orchestrator manages the résumé parsing pipeline.
type Orchestrator struct {
	jobs   *JobStore
	queue  chan *Job
	worker *Worker
	store  RecordStore
	stats  *extract.ParseStats
	log    *slog.Logger
	cfg    config.Config

	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewOrchestrator creates the pipeline. store may be nil when records are
// not forwarded anywhere.
func NewOrchestrator(cfg config.Config, sc *schema.Config, store RecordStore, log *slog.Logger) *Orchestrator {
	stats := extract.NewParseStats(time.Hour)
	return &Orchestrator{
		jobs:   NewJobStore(cfg.JobTTL),
		queue:  make(chan *Job, cfg.MaxQueueSize),
		worker: NewWorker(sc, store, stats, log, cfg.StrictValidation),
		store:  store,
		stats:  stats,
		log:    log,
		cfg:    cfg,
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
			for {
				select {
				case <-workerCtx.Done():
					return
				case job, ok := <-o.queue:
					if !ok {
						return
					}
					o.worker.Process(workerCtx, job)
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
		job.SetStatus(StatusFailed, "queue_full")
		return fmt.Errorf("job queue is full (%d)", o.cfg.MaxQueueSize)
	}
}

// Outcome is the result of a synchronous parse.
type Outcome struct {
	DocID      string
	Result     *extract.Result
	Validation error // nil when the record passed validation
}

// ParseSync parses a file on the caller's goroutine. The error reports files
// that could not be read as documents; validation problems are in the
// outcome.
func (o *Orchestrator) ParseSync(filename string, data []byte) (*Outcome, error) {
	doc, err := parseDocument(filename, "", data)
	if err != nil {
		return nil, err
	}
	docID := ContentHashHex([]byte(doc.Text()))[:16]
	res, verr := o.worker.extractRecord(doc, o.log.With("doc_id", docID, "filename", filename))
	return &Outcome{DocID: docID, Result: res, Validation: verr}, nil
}

// GetJob returns a job by ID.
func (o *Orchestrator) GetJob(id string) *Job {
	return o.jobs.Get(id)
}

// QueueDepth returns current queue depth.
func (o *Orchestrator) QueueDepth() int {
	return len(o.queue)
}

// Stats returns the rolling parse statistics.
func (o *Orchestrator) Stats() *extract.ParseStats {
	return o.stats
}

// Strict reports whether validation failures reject records.
func (o *Orchestrator) Strict() bool {
	return o.cfg.StrictValidation
}

// RecordStore returns the record store for direct use by API handlers, or nil.
func (o *Orchestrator) RecordStore() RecordStore {
	return o.store
}

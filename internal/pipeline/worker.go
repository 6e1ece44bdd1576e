package pipeline

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/dgallion1/resumex/internal/doctree"
	"github.com/dgallion1/resumex/internal/extract"
	"github.com/dgallion1/resumex/internal/parser"
	"github.com/dgallion1/resumex/internal/recordstore"
	"github.com/dgallion1/resumex/internal/schema"
)

// RecordStore receives finished records. *recordstore.Client satisfies it.
type RecordStore interface {
	PutRecord(ctx context.Context, rec recordstore.StoredRecord) error
	GetRecord(ctx context.Context, docID string) (*recordstore.StoredRecord, error)
	DeleteRecord(ctx context.Context, docID string) error
	ListRecords(ctx context.Context, limit int) ([]recordstore.StoredRecord, error)
}

// Worker processes a single résumé job.
type Worker struct {
	schema *schema.Config
	store  RecordStore
	stats  *extract.ParseStats
	log    *slog.Logger
	strict bool

	backoff func(attempt int) time.Duration
}

func NewWorker(sc *schema.Config, store RecordStore, stats *extract.ParseStats, log *slog.Logger, strict bool) *Worker {
	return &Worker{
		schema:  sc,
		store:   store,
		stats:   stats,
		log:     log,
		strict:  strict,
		backoff: Backoff,
	}
}

// Process runs parse, extraction, validation and storage for a job.
func (w *Worker) Process(ctx context.Context, job *Job) {
	log := w.log.With("job_id", job.ID, "filename", job.Filename)

	// Phase 1: Parse
	job.SetStatus(StatusParsing, "parsing")
	doc, err := parseDocument(job.Filename, job.Title, job.FileData())
	job.releaseFileData()
	if err != nil {
		log.Error("parse failed", "error", err)
		job.AddError(err.Error())
		job.SetStatus(StatusFailed, "parsing")
		return
	}
	hash := ContentHashHex([]byte(doc.Text()))
	job.SetContentHash(hash)
	docID := hash[:16]
	log = log.With("doc_id", docID)

	// Phase 2: Extract
	job.SetStatus(StatusExtracting, "extracting")
	res, verr := w.extractRecord(doc, log)
	job.SetResult(res)

	// Phase 3: Validate
	job.SetStatus(StatusValidating, "validating")
	job.SetValidation(verr)
	if verr != nil && w.strict {
		log.Warn("record failed validation", "error", verr)
		job.SetStatus(StatusInvalid, "validating")
		return
	}

	// Phase 4: Store
	if w.store != nil {
		job.SetStatus(StatusStoring, "storing")
		err := w.storeRecord(ctx, recordstore.StoredRecord{
			DocID:    docID,
			Source:   job.Filename,
			Record:   res.Record,
			Warnings: WarningStrings(res.Warnings),
			Missing:  res.Missing,
			Valid:    verr == nil,
			ParsedAt: time.Now().UTC(),
		}, log)
		if err != nil {
			log.Error("store failed", "error", err)
			job.AddError(fmt.Sprintf("store: %s", err))
			job.SetStatus(StatusFailed, "storing")
			return
		}
	}

	job.SetStatus(StatusCompleted, "done")
}

// parseDocument converts an uploaded file into a document tree.
func parseDocument(filename, title string, data []byte) (*doctree.Document, error) {
	p, err := parser.ForFile(filename)
	if err != nil {
		return nil, err
	}
	doc, err := p.Parse(bytes.NewReader(data), filename)
	if err != nil {
		return nil, fmt.Errorf("parse %s: %w", filename, err)
	}
	if title != "" {
		doc.Title = title
	}
	return doc, nil
}

// extractRecord runs the extraction engine and validates the record. The
// returned error is the validation outcome; the result is always usable.
func (w *Worker) extractRecord(doc *doctree.Document, log *slog.Logger) (*extract.Result, error) {
	start := time.Now()
	res := extract.Parse(doc, w.schema, extract.WithLogger(log))
	verr := extract.Validate(res.Record, w.schema)
	w.stats.Record(time.Since(start), len(res.Warnings), verr != nil)

	log.Info("extraction complete",
		"found", len(res.Found),
		"missing", len(res.Missing),
		"warnings", len(res.Warnings),
		"valid", verr == nil,
		"elapsed_ms", time.Since(start).Milliseconds(),
	)
	return res, verr
}

// storeRecord writes rec, retrying transient store failures.
func (w *Worker) storeRecord(ctx context.Context, rec recordstore.StoredRecord, log *slog.Logger) error {
	var err error
	for attempt := range MaxRetries {
		err = w.store.PutRecord(ctx, rec)
		if err == nil || !IsRetryable(err) {
			return err
		}
		log.Warn("retryable store error", "attempt", attempt, "error", err)
		if attempt == MaxRetries-1 {
			break
		}
		select {
		case <-time.After(w.backoff(attempt)):
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	return err
}

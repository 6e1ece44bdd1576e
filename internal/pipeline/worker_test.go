package pipeline

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"sync"
	"testing"
	"time"

	"github.com/dgallion1/resumex/internal/extract"
	"github.com/dgallion1/resumex/internal/recordstore"
	"github.com/dgallion1/resumex/internal/schema"
)

const completeResume = `# 姓名

张三

# 求职意向

后端开发

# 个人信息

- 性别：男

# 教育背景

- 学校：示例大学

# 技能

- 编程语言：Go
`

// memStore is an in-memory RecordStore.
type memStore struct {
	mu      sync.Mutex
	records map[string]recordstore.StoredRecord
	fail    []error // returned by successive PutRecord calls
	puts    int
}

func newMemStore() *memStore {
	return &memStore{records: map[string]recordstore.StoredRecord{}}
}

func (m *memStore) PutRecord(_ context.Context, rec recordstore.StoredRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.puts++
	if len(m.fail) > 0 {
		err := m.fail[0]
		m.fail = m.fail[1:]
		if err != nil {
			return err
		}
	}
	m.records[rec.DocID] = rec
	return nil
}

func (m *memStore) GetRecord(_ context.Context, docID string) (*recordstore.StoredRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	rec, ok := m.records[docID]
	if !ok {
		return nil, nil
	}
	return &rec, nil
}

func (m *memStore) DeleteRecord(_ context.Context, docID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.records, docID)
	return nil
}

func (m *memStore) ListRecords(_ context.Context, _ int) ([]recordstore.StoredRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []recordstore.StoredRecord
	for _, r := range m.records {
		out = append(out, r)
	}
	return out, nil
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTestWorker(store RecordStore, strict bool) *Worker {
	w := NewWorker(schema.Default(), store, extract.NewParseStats(time.Hour), testLogger(), strict)
	w.backoff = func(int) time.Duration { return time.Millisecond }
	return w
}

func TestWorker_CompletesAndStores(t *testing.T) {
	store := newMemStore()
	w := newTestWorker(store, true)
	job := NewJob("cv.md", "", []byte(completeResume))

	w.Process(context.Background(), job)

	snap := job.Snapshot()
	if snap.Status != StatusCompleted {
		t.Fatalf("expected completed, got %q (errors %v)", snap.Status, snap.Errors)
	}
	if snap.Record["name"] != "张三" {
		t.Errorf("expected name in record, got %v", snap.Record["name"])
	}
	if job.FileData() != nil {
		t.Error("expected upload to be released after parsing")
	}
	rec, _ := store.GetRecord(context.Background(), snap.DocID)
	if rec == nil || !rec.Valid || rec.Source != "cv.md" {
		t.Fatalf("expected valid stored record, got %+v", rec)
	}
	if w.stats.Snapshot().Count != 1 {
		t.Error("expected one stats sample")
	}
}

func TestWorker_InvalidWhenStrict(t *testing.T) {
	store := newMemStore()
	w := newTestWorker(store, true)
	job := NewJob("cv.md", "", []byte("# 姓名\n\n张三\n"))

	w.Process(context.Background(), job)

	snap := job.Snapshot()
	if snap.Status != StatusInvalid {
		t.Fatalf("expected invalid, got %q", snap.Status)
	}
	if len(snap.MissingFields) == 0 {
		t.Error("expected missing fields to be reported")
	}
	if snap.Record == nil {
		t.Error("expected partial record to be available on an invalid job")
	}
	if store.puts != 0 {
		t.Errorf("invalid records must not be stored, got %d puts", store.puts)
	}
}

func TestWorker_LenientStoresIncompleteRecord(t *testing.T) {
	store := newMemStore()
	w := newTestWorker(store, false)
	job := NewJob("cv.md", "", []byte("# 姓名\n\n张三\n"))

	w.Process(context.Background(), job)

	snap := job.Snapshot()
	if snap.Status != StatusCompleted {
		t.Fatalf("expected completed, got %q", snap.Status)
	}
	rec, _ := store.GetRecord(context.Background(), snap.DocID)
	if rec == nil || rec.Valid {
		t.Fatalf("expected stored record flagged invalid, got %+v", rec)
	}
}

func TestWorker_UnsupportedFile(t *testing.T) {
	w := newTestWorker(nil, true)
	job := NewJob("cv.pdf", "", []byte("%PDF"))
	w.Process(context.Background(), job)

	snap := job.Snapshot()
	if snap.Status != StatusFailed || snap.Phase != "parsing" {
		t.Fatalf("expected failed in parsing, got %q/%q", snap.Status, snap.Phase)
	}
	if len(snap.Errors) != 1 {
		t.Errorf("expected one error, got %v", snap.Errors)
	}
}

func TestWorker_RetriesTransientStoreErrors(t *testing.T) {
	store := newMemStore()
	store.fail = []error{
		&recordstore.StatusError{Op: "put record", Code: http.StatusServiceUnavailable},
		&recordstore.StatusError{Op: "put record", Code: http.StatusBadGateway},
	}
	w := newTestWorker(store, true)
	job := NewJob("cv.md", "", []byte(completeResume))
	w.Process(context.Background(), job)

	if s := job.Snapshot().Status; s != StatusCompleted {
		t.Fatalf("expected completed after retries, got %q", s)
	}
	if store.puts != 3 {
		t.Errorf("expected 3 attempts, got %d", store.puts)
	}
}

func TestWorker_PermanentStoreErrorFails(t *testing.T) {
	store := newMemStore()
	store.fail = []error{&recordstore.StatusError{Op: "put record", Code: http.StatusUnauthorized}}
	w := newTestWorker(store, true)
	job := NewJob("cv.md", "", []byte(completeResume))
	w.Process(context.Background(), job)

	snap := job.Snapshot()
	if snap.Status != StatusFailed || snap.Phase != "storing" {
		t.Fatalf("expected failed in storing, got %q/%q", snap.Status, snap.Phase)
	}
	if store.puts != 1 {
		t.Errorf("expected no retry for 401, got %d attempts", store.puts)
	}
}

func TestIsRetryable(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"nil", nil, false},
		{"cancelled", context.Canceled, false},
		{"5xx", &recordstore.StatusError{Code: 500}, true},
		{"429", &recordstore.StatusError{Code: 429}, true},
		{"4xx", &recordstore.StatusError{Code: 404}, false},
		{"plain", errors.New("boom"), false},
	}
	for _, tt := range tests {
		if got := IsRetryable(tt.err); got != tt.want {
			t.Errorf("%s: expected %v, got %v", tt.name, tt.want, got)
		}
	}
}

func TestBackoff_Bounds(t *testing.T) {
	for attempt := range 6 {
		d := Backoff(attempt)
		if d < 250*time.Millisecond || d > 7500*time.Millisecond {
			t.Errorf("attempt %d: backoff %s out of bounds", attempt, d)
		}
	}
}

package pipeline

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/dgallion1/resumex/internal/config"
	"github.com/dgallion1/resumex/internal/extract"
	"github.com/dgallion1/resumex/internal/schema"
)

func waitDone(t *testing.T, o *Orchestrator, id string) JobSnapshot {
	t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		if job := o.GetJob(id); job != nil {
			if snap := job.Snapshot(); snap.Status.Done() {
				return snap
			}
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("job %s did not finish", id)
	return JobSnapshot{}
}

func TestOrchestrator_ProcessesJobs(t *testing.T) {
	cfg := config.Config{WorkerCount: 2, MaxQueueSize: 10, JobTTL: time.Hour, StrictValidation: true}
	o := NewOrchestrator(cfg, schema.Default(), nil, testLogger())
	o.Start(context.Background())
	defer o.Stop()

	good := NewJob("a.md", "", []byte(completeResume))
	bad := NewJob("b.md", "", []byte("# 姓名\n\n李四\n"))
	if err := o.Submit(good); err != nil {
		t.Fatal(err)
	}
	if err := o.Submit(bad); err != nil {
		t.Fatal(err)
	}

	if s := waitDone(t, o, good.ID); s.Status != StatusCompleted {
		t.Errorf("expected completed, got %q", s.Status)
	}
	if s := waitDone(t, o, bad.ID); s.Status != StatusInvalid {
		t.Errorf("expected invalid, got %q", s.Status)
	}
	if n := o.Stats().Snapshot().Count; n != 2 {
		t.Errorf("expected 2 stats samples, got %d", n)
	}
}

func TestOrchestrator_QueueFull(t *testing.T) {
	cfg := config.Config{WorkerCount: 1, MaxQueueSize: 1, JobTTL: time.Hour}
	o := NewOrchestrator(cfg, schema.Default(), nil, testLogger())
	// Not started: nothing drains the queue.

	if err := o.Submit(NewJob("a.md", "", nil)); err != nil {
		t.Fatalf("first submit: %v", err)
	}
	second := NewJob("b.md", "", nil)
	if err := o.Submit(second); err == nil {
		t.Fatal("expected queue full error")
	}
	if s := second.Snapshot(); s.Status != StatusFailed || s.Phase != "queue_full" {
		t.Errorf("expected failed/queue_full, got %q/%q", s.Status, s.Phase)
	}
	if o.QueueDepth() != 1 {
		t.Errorf("expected depth 1, got %d", o.QueueDepth())
	}
}

func TestOrchestrator_ParseSync(t *testing.T) {
	cfg := config.Config{WorkerCount: 1, MaxQueueSize: 1, JobTTL: time.Hour}
	o := NewOrchestrator(cfg, schema.Default(), nil, testLogger())

	out, err := o.ParseSync("cv.md", []byte(completeResume))
	if err != nil {
		t.Fatal(err)
	}
	if out.Validation != nil {
		t.Errorf("expected valid record, got %v", out.Validation)
	}
	if out.Result.Record["name"] != "张三" || len(out.DocID) != 16 {
		t.Errorf("unexpected outcome %+v", out)
	}

	out, err = o.ParseSync("cv.md", []byte("# 技能\n\n- 编程语言：Go\n"))
	if err != nil {
		t.Fatal(err)
	}
	if !errors.Is(out.Validation, extract.ErrRequiredFieldMissing) {
		t.Errorf("expected missing fields, got %v", out.Validation)
	}

	if _, err := o.ParseSync("cv.txt", []byte("x")); err == nil {
		t.Error("expected unsupported extension error")
	}
	if o.RecordStore() != nil {
		t.Error("expected no record store")
	}
}

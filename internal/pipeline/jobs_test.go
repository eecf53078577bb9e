package pipeline

import (
	"errors"
	"testing"
	"time"

	"github.com/rbshaffer/constitute-tools/internal/tabulate"
	"github.com/rbshaffer/constitute-tools/internal/tagging"
)

func TestContentHashHex_Consistency(t *testing.T) {
	data := []byte("hello world")
	h1 := ContentHashHex(data)
	h2 := ContentHashHex(data)
	if h1 != h2 {
		t.Errorf("expected identical hashes, got %q and %q", h1, h2)
	}
	// SHA-256 of "hello world" is well-known.
	want := "b94d27b9934d3e08a52e52d7da7dabfac484efe37a5380ee9088f7ace2efcde9"
	if h1 != want {
		t.Errorf("expected hash %q, got %q", want, h1)
	}
}

func TestContentHashHex_EmptyInput(t *testing.T) {
	h := ContentHashHex([]byte{})
	want := "e3b0c44298fc1c149afbf4c8996fb92427ae41e4649b934ca495991b7852b855"
	if h != want {
		t.Errorf("expected hash %q, got %q", want, h)
	}
}

func TestNewJob(t *testing.T) {
	data := []byte("Article 1\nText.")
	job := NewJob("a.txt", "default", data, tabulate.Options{}, nil)

	if len(job.ID) != 26 {
		t.Errorf("expected 26-character id, got %q", job.ID)
	}
	if job.Status != StatusQueued {
		t.Errorf("expected status %q, got %q", StatusQueued, job.Status)
	}
	if job.ContentHash != ContentHashHex(data) {
		t.Errorf("expected content hash of the file data, got %q", job.ContentHash)
	}
	if string(job.FileData()) != string(data) {
		t.Errorf("expected file data %q, got %q", data, job.FileData())
	}
	select {
	case <-job.Done():
		t.Error("expected new job not to be done")
	default:
	}
}

func TestJob_StateTransitions(t *testing.T) {
	job := NewJob("a.txt", "default", nil, tabulate.Options{}, nil)

	transitions := []struct {
		status JobStatus
		phase  string
	}{
		{StatusLoading, "loading"},
		{StatusSegmenting, "segmenting"},
		{StatusTagging, "tagging"},
	}

	for _, tr := range transitions {
		before := job.UpdatedAt
		time.Sleep(time.Millisecond)
		job.SetStatus(tr.status, tr.phase)

		if job.Status != tr.status {
			t.Errorf("expected status %q, got %q", tr.status, job.Status)
		}
		if job.Phase != tr.phase {
			t.Errorf("expected phase %q, got %q", tr.phase, job.Phase)
		}
		if !job.UpdatedAt.After(before) {
			t.Errorf("expected UpdatedAt to advance after SetStatus(%q)", tr.status)
		}
	}
}

func TestJob_Complete(t *testing.T) {
	job := NewJob("a.txt", "default", []byte("x"), tabulate.Options{}, nil)
	res := &tabulate.Result{
		Rows:          [][]string{{"1", "0", "", "body", "x"}},
		Outline:       []string{"Article 1"},
		DanglingLists: []int{2},
	}
	job.complete(res)

	select {
	case <-job.Done():
	default:
		t.Fatal("expected job to be done")
	}
	if job.Result() != res {
		t.Error("expected stored result")
	}
	if job.FileData() != nil {
		t.Error("expected file data released after completion")
	}

	snap := job.Snapshot()
	if snap.Status != StatusCompleted {
		t.Errorf("expected status %q, got %q", StatusCompleted, snap.Status)
	}
	if snap.Progress.Rows != 1 || snap.Progress.Sections != 1 {
		t.Errorf("expected 1 row and 1 section, got %+v", snap.Progress)
	}
	if len(snap.Progress.DanglingLists) != 1 || snap.Progress.DanglingLists[0] != 2 {
		t.Errorf("expected dangling list [2], got %v", snap.Progress.DanglingLists)
	}
}

func TestJob_FailIsIdempotent(t *testing.T) {
	job := NewJob("a.txt", "default", nil, tabulate.Options{}, nil)
	job.fail("loading", errors.New("boom"))
	job.fail("loading", errors.New("again"))

	snap := job.Snapshot()
	if snap.Status != StatusFailed {
		t.Errorf("expected status %q, got %q", StatusFailed, snap.Status)
	}
	if len(snap.Progress.Errors) != 2 || snap.Progress.Errors[0] != "boom" {
		t.Errorf("expected both errors recorded, got %v", snap.Progress.Errors)
	}
}

func TestJob_SnapshotSlicesNotNil(t *testing.T) {
	job := &Job{ID: "snap-test", UpdatedAt: time.Now()}
	snap := job.Snapshot()
	if snap.Progress.Errors == nil {
		t.Error("expected non-nil errors slice in snapshot")
	}
	if snap.Progress.DanglingLists == nil {
		t.Error("expected non-nil dangling lists slice in snapshot")
	}
}

func TestJob_SnapshotCountsTags(t *testing.T) {
	records := []tagging.Record{{Label: "a", Reference: "1"}, {Label: "b", Reference: "2"}}
	job := NewJob("a.txt", "default", nil, tabulate.Options{}, records)
	job.complete(&tabulate.Result{Report: tagging.Report{records[1]}})

	snap := job.Snapshot()
	if snap.Progress.TotalTags != 2 || snap.Progress.UnmatchedTags != 1 {
		t.Errorf("expected 1 of 2 tags unmatched, got %+v", snap.Progress)
	}
}

func TestJobStore_PutGet(t *testing.T) {
	store := NewJobStore(time.Hour)
	job := &Job{ID: "store-1", UpdatedAt: time.Now()}
	store.Put(job)

	got := store.Get("store-1")
	if got == nil {
		t.Fatal("expected to get job back")
	}
	if got.ID != "store-1" {
		t.Errorf("expected ID %q, got %q", "store-1", got.ID)
	}
	if store.Get("nonexistent") != nil {
		t.Error("expected nil for missing job")
	}
}

func TestJobStore_TTLCleanup(t *testing.T) {
	store := NewJobStore(50 * time.Millisecond)

	expired := NewJob("old.txt", "default", nil, tabulate.Options{}, nil)
	expired.complete(&tabulate.Result{})
	running := NewJob("running.txt", "default", nil, tabulate.Options{}, nil)
	store.Put(expired)
	store.Put(running)

	time.Sleep(100 * time.Millisecond)

	fresh := NewJob("new.txt", "default", nil, tabulate.Options{}, nil)
	fresh.complete(&tabulate.Result{})
	store.Put(fresh)

	store.Cleanup()

	if store.Get(expired.ID) != nil {
		t.Error("expected expired job to be cleaned up")
	}
	if store.Get(running.ID) == nil {
		t.Error("expected unfinished job to survive cleanup")
	}
	if store.Get(fresh.ID) == nil {
		t.Error("expected fresh job to survive cleanup")
	}
	if store.Len() != 2 {
		t.Errorf("expected 2 jobs left, got %d", store.Len())
	}
}

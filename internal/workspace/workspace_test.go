package workspace

import (
	"bytes"
	"context"
	"errors"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/rbshaffer/constitute-tools/internal/tabulate"
	"github.com/rbshaffer/constitute-tools/internal/tagging"
)

func TestInit(t *testing.T) {
	dir := t.TempDir()
	ws, err := Init(dir)
	if err != nil {
		t.Fatalf("Init: %v", err)
	}
	for _, sub := range subdirs {
		info, err := os.Stat(filepath.Join(dir, Root, sub))
		if err != nil || !info.IsDir() {
			t.Errorf("expected directory %s", sub)
		}
	}

	// A second Init is harmless.
	if _, err := Init(dir); err != nil {
		t.Errorf("second Init: %v", err)
	}
	if _, err := Open(dir); err != nil {
		t.Errorf("Open after Init: %v", err)
	}
	if ws.Dir != dir {
		t.Errorf("expected Dir %q, got %q", dir, ws.Dir)
	}
}

func TestInit_MissingParent(t *testing.T) {
	if _, err := Init(filepath.Join(t.TempDir(), "absent")); err == nil {
		t.Error("expected error for missing parent directory")
	}
}

func TestOpen_NotInitialized(t *testing.T) {
	_, err := Open(t.TempDir())
	if !errors.Is(err, ErrNotInitialized) {
		t.Errorf("expected ErrNotInitialized, got %v", err)
	}
}

func TestDocName(t *testing.T) {
	tests := map[string]string{
		"Raw_Texts/Kenya.txt":  "Kenya",
		"/a/b/Chile_2010.html": "Chile_2010",
		"draft.v2.md":          "draft",
		"noext":                "noext",
	}
	for in, want := range tests {
		if got := DocName(in); got != want {
			t.Errorf("DocName(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestPaths(t *testing.T) {
	ws := &Workspace{Dir: "/w"}
	tests := []struct {
		got, want string
	}{
		{ws.TabulatedPath("k"), filepath.Join("/w", Root, TabulatedTexts, "k.csv")},
		{ws.FailedTagsPath("k"), filepath.Join("/w", Root, Reports, "k_failed_tags.csv")},
		{ws.SkeletonPath("k"), filepath.Join("/w", Root, Reports, "k_skeleton.txt")},
		{ws.TagsPath("k"), filepath.Join("/w", Root, ArticleNumbers, "k.csv")},
		{ws.CleanedPath("k"), filepath.Join("/w", Root, CleanedTexts, "k.txt")},
	}
	for _, tt := range tests {
		if tt.got != tt.want {
			t.Errorf("expected %q, got %q", tt.want, tt.got)
		}
	}
}

func TestLoadTags(t *testing.T) {
	ws, err := Init(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}

	records, path, err := ws.LoadTags("k", "")
	if err != nil || records != nil || path != "" {
		t.Fatalf("expected no tags without a default file, got %v %q %v", records, path, err)
	}

	if err := os.WriteFile(ws.TagsPath("k"), []byte("tag,article\nname,1\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	records, path, err = ws.LoadTags("k", "")
	if err != nil {
		t.Fatalf("LoadTags: %v", err)
	}
	if path != ws.TagsPath("k") || len(records) != 1 || records[0].Reference != "1" {
		t.Errorf("unexpected records %+v from %q", records, path)
	}

	if _, _, err := ws.LoadTags("k", filepath.Join(t.TempDir(), "absent.csv")); err == nil {
		t.Error("expected error for missing explicit tag file")
	}
}

func TestWriteSkeleton(t *testing.T) {
	var buf bytes.Buffer
	err := WriteSkeleton(&buf, []string{`Chapter \d+`, `Article \d+`}, []string{"Chapter 1", "\tArticle 1"})
	if err != nil {
		t.Fatal(err)
	}
	want := "[\"Chapter \\\\d+\" \"Article \\\\d+\"]\nChapter 1\n\tArticle 1\n"
	if buf.String() != want {
		t.Errorf("expected %q, got %q", want, buf.String())
	}
}

func TestWriteResult(t *testing.T) {
	ws, err := Init(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	res := &tabulate.Result{
		Rows:    [][]string{{"1", "0", "Article 1", "title", ""}},
		Outline: []string{"Article 1"},
	}

	out, err := ws.WriteResult("k", []string{`Article \d+`}, res)
	if err != nil {
		t.Fatalf("WriteResult: %v", err)
	}
	rows, err := os.ReadFile(out.Rows)
	if err != nil {
		t.Fatal(err)
	}
	if string(rows) != "1,0,Article 1,title,\n" {
		t.Errorf("unexpected rows %q", rows)
	}
	skeleton, err := os.ReadFile(out.Skeleton)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.HasSuffix(string(skeleton), "\nArticle 1\n") {
		t.Errorf("unexpected skeleton %q", skeleton)
	}
	if out.FailedTags != "" {
		t.Errorf("expected no failed tag report, got %q", out.FailedTags)
	}

	res.Report = tagging.Report{{Label: "gone", Reference: "9"}}
	out, err = ws.WriteResult("k", []string{`Article \d+`}, res)
	if err != nil {
		t.Fatalf("WriteResult: %v", err)
	}
	report, err := os.ReadFile(out.FailedTags)
	if err != nil {
		t.Fatal(err)
	}
	if string(report) != "article,tag\n9,gone\n" {
		t.Errorf("unexpected report %q", report)
	}

	res.Report = nil
	out, err = ws.WriteResult("k", []string{`Article \d+`}, res)
	if err != nil {
		t.Fatalf("WriteResult: %v", err)
	}
	if out.FailedTags != "" {
		t.Errorf("expected no failed tag report, got %q", out.FailedTags)
	}
	if _, err := os.Stat(ws.FailedTagsPath("k")); !errors.Is(err, os.ErrNotExist) {
		t.Errorf("expected stale failed tag report removed, got %v", err)
	}
}

func TestWriteCleaned(t *testing.T) {
	ws, err := Init(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	path, err := ws.WriteCleaned("k", "Article 1.\nText")
	if err != nil {
		t.Fatal(err)
	}
	got, _ := os.ReadFile(path)
	if string(got) != "Article 1.\nText" {
		t.Errorf("unexpected cleaned text %q", got)
	}
}

func TestWatchFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "doc.txt")
	if err := os.WriteFile(path, []byte("v1"), 0o644); err != nil {
		t.Fatal(err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	changed := make(chan struct{}, 4)
	done := make(chan error, 1)
	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	go func() {
		done <- WatchFile(ctx, path, log, func() { changed <- struct{}{} })
	}()

	// Give the watcher time to register.
	time.Sleep(100 * time.Millisecond)
	if err := os.WriteFile(filepath.Join(filepath.Dir(path), "other.txt"), []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, []byte("v2"), 0o644); err != nil {
		t.Fatal(err)
	}

	select {
	case <-changed:
	case <-time.After(5 * time.Second):
		t.Fatal("expected change notification")
	}

	cancel()
	select {
	case err := <-done:
		if err != nil {
			t.Errorf("WatchFile: %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("watcher did not stop")
	}
}

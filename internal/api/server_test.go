package api

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/rbshaffer/constitute-tools/internal/config"
	"github.com/rbshaffer/constitute-tools/internal/pipeline"
)

const testKey = "secret"

const sampleText = "We the people.\nArticle 1\nName\nText.\nArticle 2\nMore text.\n"

func newTestServer(t *testing.T) (*Server, *pipeline.Orchestrator) {
	t.Helper()
	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	cfg := config.Config{
		APIKey:         testKey,
		WorkerCount:    1,
		MaxQueueSize:   10,
		MaxUploadBytes: 1 << 20,
		JobTTL:         time.Hour,
	}
	orch := pipeline.NewOrchestrator(cfg, log)
	orch.Start(context.Background())
	t.Cleanup(orch.Stop)
	return NewServer(orch, config.NewProfileRegistry(log), log, cfg), orch
}

type upload struct {
	filename string
	content  string
	fields   map[string][]string
	tags     string
}

func (u upload) request(t *testing.T) *http.Request {
	t.Helper()
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	fw, err := mw.CreateFormFile("file", u.filename)
	if err != nil {
		t.Fatal(err)
	}
	io.WriteString(fw, u.content)
	if u.tags != "" {
		tw, err := mw.CreateFormFile("tags", "tags.csv")
		if err != nil {
			t.Fatal(err)
		}
		io.WriteString(tw, u.tags)
	}
	for name, values := range u.fields {
		for _, v := range values {
			mw.WriteField(name, v)
		}
	}
	mw.Close()

	req := httptest.NewRequest(http.MethodPost, "/api/tabulate", &body)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	req.Header.Set("Authorization", "Bearer "+testKey)
	return req
}

func authed(method, path string, body io.Reader) *http.Request {
	req := httptest.NewRequest(method, path, body)
	req.Header.Set("Authorization", "Bearer "+testKey)
	return req
}

// submit posts u and waits for the resulting job to finish.
func submit(t *testing.T, srv *Server, orch *pipeline.Orchestrator, u upload) string {
	t.Helper()
	w := httptest.NewRecorder()
	srv.ServeHTTP(w, u.request(t))
	if w.Code != http.StatusAccepted {
		t.Fatalf("expected 202, got %d: %s", w.Code, w.Body.String())
	}
	var resp struct {
		JobID   string `json:"job_id"`
		PollURL string `json:"poll_url"`
	}
	if err := json.NewDecoder(w.Body).Decode(&resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp.PollURL != "/api/jobs/"+resp.JobID+"/status" {
		t.Errorf("unexpected poll url %q", resp.PollURL)
	}

	job := orch.GetJob(resp.JobID)
	if job == nil {
		t.Fatalf("job %s not registered", resp.JobID)
	}
	select {
	case <-job.Done():
	case <-time.After(5 * time.Second):
		t.Fatal("timed out waiting for job")
	}
	return resp.JobID
}

func TestHealth(t *testing.T) {
	srv, _ := newTestServer(t)
	w := httptest.NewRecorder()
	srv.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/health", nil))
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	if !strings.Contains(w.Body.String(), `"ok"`) {
		t.Errorf("unexpected body %q", w.Body.String())
	}
}

func TestAuth(t *testing.T) {
	srv, _ := newTestServer(t)
	tests := []struct {
		name   string
		header string
		want   int
	}{
		{"missing", "", http.StatusUnauthorized},
		{"wrong scheme", "Basic " + testKey, http.StatusUnauthorized},
		{"wrong key", "Bearer nope", http.StatusUnauthorized},
		{"valid", "Bearer " + testKey, http.StatusOK},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/api/profiles", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			w := httptest.NewRecorder()
			srv.ServeHTTP(w, req)
			if w.Code != tt.want {
				t.Errorf("expected %d, got %d", tt.want, w.Code)
			}
		})
	}
}

func TestTabulate_EndToEnd(t *testing.T) {
	srv, orch := newTestServer(t)
	id := submit(t, srv, orch, upload{
		filename: "const.txt",
		content:  sampleText,
		fields: map[string][]string{
			"header_regex":   {`Article \d+`},
			"preamble_level": {"0"},
		},
		tags: "tag,article\nname,1\ngone,9\n",
	})

	w := httptest.NewRecorder()
	srv.ServeHTTP(w, authed(http.MethodGet, "/api/jobs/"+id+"/status", nil))
	var snap pipeline.JobSnapshot
	if err := json.NewDecoder(w.Body).Decode(&snap); err != nil {
		t.Fatalf("decode status: %v", err)
	}
	if snap.Status != pipeline.StatusCompleted {
		t.Fatalf("expected completed, got %q (%v)", snap.Status, snap.Progress.Errors)
	}
	if snap.Progress.TotalTags != 2 || snap.Progress.UnmatchedTags != 1 {
		t.Errorf("expected 1 of 2 tags unmatched, got %+v", snap.Progress)
	}

	w = httptest.NewRecorder()
	srv.ServeHTTP(w, authed(http.MethodGet, "/api/jobs/"+id+"/rows", nil))
	if w.Code != http.StatusOK {
		t.Fatalf("rows: expected 200, got %d", w.Code)
	}
	if ct := w.Header().Get("Content-Type"); !strings.HasPrefix(ct, "text/csv") {
		t.Errorf("expected csv content type, got %q", ct)
	}
	if !strings.Contains(w.Body.String(), ",Article 1,title,") {
		t.Errorf("expected article row in %q", w.Body.String())
	}

	w = httptest.NewRecorder()
	srv.ServeHTTP(w, authed(http.MethodGet, "/api/jobs/"+id+"/outline", nil))
	if got, want := w.Body.String(), "preamble\nArticle 1\nArticle 2\n"; got != want {
		t.Errorf("outline: expected %q, got %q", want, got)
	}

	w = httptest.NewRecorder()
	srv.ServeHTTP(w, authed(http.MethodGet, "/api/jobs/"+id+"/tag-report", nil))
	if got, want := w.Body.String(), "article,tag\n9,gone\n"; got != want {
		t.Errorf("tag report: expected %q, got %q", want, got)
	}
}

func TestTabulate_NoTags(t *testing.T) {
	srv, orch := newTestServer(t)
	id := submit(t, srv, orch, upload{filename: "const.txt", content: sampleText})

	w := httptest.NewRecorder()
	srv.ServeHTTP(w, authed(http.MethodGet, "/api/jobs/"+id+"/tag-report", nil))
	if w.Code != http.StatusNotFound {
		t.Errorf("expected 404 without tags, got %d", w.Code)
	}
}

func TestTabulate_MalformedMarkup(t *testing.T) {
	srv, orch := newTestServer(t)
	id := submit(t, srv, orch, upload{filename: "bad.txt", content: "<list>\nArticle 1\n"})

	w := httptest.NewRecorder()
	srv.ServeHTTP(w, authed(http.MethodGet, "/api/jobs/"+id+"/rows", nil))
	if w.Code != http.StatusUnprocessableEntity {
		t.Fatalf("expected 422, got %d", w.Code)
	}
	if !strings.Contains(w.Body.String(), "malformed") {
		t.Errorf("expected malformed markup error, got %q", w.Body.String())
	}
}

func TestTabulate_BadRequests(t *testing.T) {
	srv, _ := newTestServer(t)
	tests := []struct {
		name   string
		upload upload
	}{
		{"unsupported extension", upload{filename: "a.exe", content: sampleText}},
		{"unknown profile", upload{filename: "a.txt", content: sampleText,
			fields: map[string][]string{"profile": {"nope"}}}},
		{"invalid pattern", upload{filename: "a.txt", content: sampleText,
			fields: map[string][]string{"header_regex": {`Article (`}}}},
		{"preamble level out of range", upload{filename: "a.txt", content: sampleText,
			fields: map[string][]string{"header_regex": {`Article \d+`}, "preamble_level": {"3"}}}},
		{"unknown format", upload{filename: "a.txt", content: sampleText,
			fields: map[string][]string{"format": {"xml"}}}},
		{"bad tags file", upload{filename: "a.txt", content: sampleText, tags: "label\nx\n"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			srv.ServeHTTP(w, tt.upload.request(t))
			if w.Code != http.StatusBadRequest {
				t.Errorf("expected 400, got %d: %s", w.Code, w.Body.String())
			}
		})
	}
}

func TestJobNotFound(t *testing.T) {
	srv, _ := newTestServer(t)
	for _, path := range []string{"status", "rows", "outline", "tag-report"} {
		w := httptest.NewRecorder()
		srv.ServeHTTP(w, authed(http.MethodGet, "/api/jobs/missing/"+path, nil))
		if w.Code != http.StatusNotFound {
			t.Errorf("%s: expected 404, got %d", path, w.Code)
		}
	}
}

func TestProfiles(t *testing.T) {
	srv, _ := newTestServer(t)
	w := httptest.NewRecorder()
	srv.ServeHTTP(w, authed(http.MethodGet, "/api/profiles", nil))

	var resp struct {
		Profiles []config.Profile `json:"profiles"`
	}
	if err := json.NewDecoder(w.Body).Decode(&resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(resp.Profiles) != 1 || resp.Profiles[0].Name != config.DefaultProfileName {
		t.Errorf("expected only the default profile, got %+v", resp.Profiles)
	}
}

func TestClean(t *testing.T) {
	srv, _ := newTestServer(t)
	w := httptest.NewRecorder()
	srv.ServeHTTP(w, authed(http.MethodPost, "/api/clean", strings.NewReader("Article 1.\n\n\nText")))
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	if got, want := w.Body.String(), "Article 1.\nText"; got != want {
		t.Errorf("expected %q, got %q", want, got)
	}
}

func TestStats(t *testing.T) {
	srv, orch := newTestServer(t)
	submit(t, srv, orch, upload{filename: "const.txt", content: sampleText})

	w := httptest.NewRecorder()
	srv.ServeHTTP(w, authed(http.MethodGet, "/api/stats", nil))
	var resp struct {
		QueueDepth int                    `json:"queue_depth"`
		Jobs       int                    `json:"jobs"`
		Tabulate   pipeline.StatsSnapshot `json:"tabulate"`
	}
	if err := json.NewDecoder(w.Body).Decode(&resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp.Tabulate.Count != 1 {
		t.Errorf("expected one sample, got %d", resp.Tabulate.Count)
	}
	if resp.Jobs != 1 {
		t.Errorf("expected one held job, got %d", resp.Jobs)
	}
}

func TestSanitizeFilename(t *testing.T) {
	tests := map[string]string{
		"const.txt":         "const.txt",
		"../../etc/passwd":  "passwd",
		`C:\docs\const.pdf`: "const.pdf",
		"":                  "unnamed",
		"a..b.txt":          "a_b.txt",
	}
	for in, want := range tests {
		if got := sanitizeFilename(in); got != want {
			t.Errorf("sanitizeFilename(%q) = %q, want %q", in, got, want)
		}
	}
}

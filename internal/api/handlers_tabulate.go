package api

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/rbshaffer/constitute-tools/internal/config"
	"github.com/rbshaffer/constitute-tools/internal/header"
	"github.com/rbshaffer/constitute-tools/internal/parser"
	"github.com/rbshaffer/constitute-tools/internal/pipeline"
	"github.com/rbshaffer/constitute-tools/internal/tabulate"
	"github.com/rbshaffer/constitute-tools/internal/tagging"
)

func (s *Server) handleTabulate(w http.ResponseWriter, r *http.Request) {
	// Extra 1MB covers the tag file and form overhead.
	r.Body = http.MaxBytesReader(w, r.Body, s.cfg.MaxUploadBytes+1024*1024)

	if err := r.ParseMultipartForm(32 << 20); err != nil {
		jsonError(w, "invalid multipart form: "+err.Error(), http.StatusBadRequest)
		return
	}
	defer r.MultipartForm.RemoveAll()

	file, fh, err := r.FormFile("file")
	if err != nil {
		jsonError(w, "file is required: "+err.Error(), http.StatusBadRequest)
		return
	}
	defer file.Close()

	filename := sanitizeFilename(fh.Filename)
	if !parser.IsSupportedExtension(filename) {
		jsonError(w, fmt.Sprintf("unsupported file type: %s", filepath.Ext(filename)), http.StatusBadRequest)
		return
	}

	data, err := io.ReadAll(io.LimitReader(file, s.cfg.MaxUploadBytes+1))
	if err != nil {
		jsonError(w, "failed to read file", http.StatusInternalServerError)
		return
	}
	if int64(len(data)) > s.cfg.MaxUploadBytes {
		jsonError(w, fmt.Sprintf("file exceeds max size (%d bytes)", s.cfg.MaxUploadBytes), http.StatusRequestEntityTooLarge)
		return
	}

	profile, err := s.profiles.Get(r.FormValue("profile"))
	if err != nil {
		jsonError(w, err.Error(), http.StatusBadRequest)
		return
	}
	opts, err := s.formOptions(r, profile)
	if err != nil {
		jsonError(w, err.Error(), http.StatusBadRequest)
		return
	}

	records, err := formRecords(r)
	if err != nil {
		jsonError(w, err.Error(), http.StatusBadRequest)
		return
	}

	job := pipeline.NewJob(filename, profile.Name, data, opts, records)
	if title := strings.TrimSpace(r.FormValue("title")); title != "" {
		job.SetTitle(title)
	}
	if err := s.orchestrator.Submit(job); err != nil {
		code := http.StatusInternalServerError
		if errors.Is(err, pipeline.ErrQueueFull) {
			code = http.StatusServiceUnavailable
		}
		jsonError(w, err.Error(), code)
		return
	}

	writeJSON(w, http.StatusAccepted, map[string]any{
		"job_id":   job.ID,
		"profile":  profile.Name,
		"status":   pipeline.StatusQueued,
		"poll_url": fmt.Sprintf("/api/jobs/%s/status", job.ID),
	})
}

// formOptions starts from the profile and applies any per-request
// overrides, then checks the result before a job is created.
func (s *Server) formOptions(r *http.Request, profile *config.Profile) (tabulate.Options, error) {
	opts := profile.Options()
	opts.MatchTimeout = s.cfg.MatchTimeout

	var patterns []string
	for _, p := range r.MultipartForm.Value["header_regex"] {
		if strings.TrimSpace(p) != "" {
			patterns = append(patterns, p)
		}
	}
	if len(patterns) > 0 {
		opts.HeaderPatterns = patterns
		// A profile's preamble level refers to its own patterns.
		if opts.PreambleLevel >= len(patterns) {
			opts.PreambleLevel = 0
		}
	}
	if v := r.FormValue("preamble_level"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return opts, fmt.Errorf("invalid preamble_level %q", v)
		}
		opts.PreambleLevel = n
	}
	if v := r.FormValue("case_sensitive"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return opts, fmt.Errorf("invalid case_sensitive %q", v)
		}
		opts.CaseSensitive = b
	}
	if v := r.FormValue("format"); v != "" {
		f, err := tabulate.ParseFormat(v)
		if err != nil {
			return opts, err
		}
		opts.Format = f
	}

	if err := opts.Validate(); err != nil {
		return opts, err
	}
	if _, err := header.CompileAll(opts.HeaderPatterns, header.Options{CaseSensitive: opts.CaseSensitive}); err != nil {
		return opts, err
	}
	return opts, nil
}

// formRecords reads the optional tags CSV. No file means no tagging.
func formRecords(r *http.Request) ([]tagging.Record, error) {
	f, _, err := r.FormFile("tags")
	if errors.Is(err, http.ErrMissingFile) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("tags: %w", err)
	}
	defer f.Close()
	records, err := tagging.ReadRecords(f)
	if err != nil {
		return nil, fmt.Errorf("tags: %w", err)
	}
	if records == nil {
		// An empty file still asks for tagging.
		records = []tagging.Record{}
	}
	return records, nil
}

func sanitizeFilename(name string) string {
	// Strip path components, keep only the base name.
	name = filepath.Base(strings.ReplaceAll(name, "\\", "/"))
	name = strings.ReplaceAll(name, "..", "_")
	if name == "" || name == "." || name == "/" {
		name = "unnamed"
	}
	return name
}

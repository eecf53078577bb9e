package api

import (
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/rbshaffer/constitute-tools/internal/pipeline"
	"github.com/rbshaffer/constitute-tools/internal/tabulate"
	"github.com/rbshaffer/constitute-tools/internal/tagging"
)

func (s *Server) handleJobStatus(w http.ResponseWriter, r *http.Request) {
	job := s.orchestrator.GetJob(chi.URLParam(r, "jobID"))
	if job == nil {
		jsonError(w, "job not found", http.StatusNotFound)
		return
	}
	writeJSON(w, http.StatusOK, job.Snapshot())
}

// finishedResult looks up the job's result and writes the error response
// itself when there is none to serve.
func (s *Server) finishedResult(w http.ResponseWriter, r *http.Request) (*tabulate.Result, bool) {
	job := s.orchestrator.GetJob(chi.URLParam(r, "jobID"))
	if job == nil {
		jsonError(w, "job not found", http.StatusNotFound)
		return nil, false
	}
	snap := job.Snapshot()
	switch snap.Status {
	case pipeline.StatusCompleted:
		return job.Result(), true
	case pipeline.StatusFailed:
		msg := "job failed"
		if len(snap.Progress.Errors) > 0 {
			msg = snap.Progress.Errors[len(snap.Progress.Errors)-1]
		}
		jsonError(w, msg, http.StatusUnprocessableEntity)
	default:
		jsonError(w, "job is still "+string(snap.Status), http.StatusConflict)
	}
	return nil, false
}

func (s *Server) handleJobRows(w http.ResponseWriter, r *http.Request) {
	res, ok := s.finishedResult(w, r)
	if !ok {
		return
	}
	w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	if err := tabulate.WriteRows(w, res.Rows); err != nil {
		s.log.Error("write rows", "error", err)
	}
}

func (s *Server) handleJobOutline(w http.ResponseWriter, r *http.Request) {
	res, ok := s.finishedResult(w, r)
	if !ok {
		return
	}
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.Write([]byte(strings.Join(res.Outline, "\n") + "\n"))
}

func (s *Server) handleJobTagReport(w http.ResponseWriter, r *http.Request) {
	res, ok := s.finishedResult(w, r)
	if !ok {
		return
	}
	if res.Report == nil {
		jsonError(w, "no tags were supplied for this job", http.StatusNotFound)
		return
	}
	w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	if err := tagging.WriteReport(w, res.Report); err != nil {
		s.log.Error("write tag report", "error", err)
	}
}

package pipeline

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/rbshaffer/constitute-tools/internal/parser"
	"github.com/rbshaffer/constitute-tools/internal/tabulate"
)

// Worker processes a single document job.
type Worker struct {
	log     *slog.Logger
	parsers parser.Options
	stats   *Stats
}

func NewWorker(log *slog.Logger, parsers parser.Options, stats *Stats) *Worker {
	if log == nil {
		log = slog.Default()
	}
	return &Worker{log: log, parsers: parsers, stats: stats}
}

// Process loads, segments and tags one job. The job is always finished on
// return, successfully or not.
func (w *Worker) Process(ctx context.Context, job *Job) {
	start := time.Now()
	log := w.log.With("job_id", job.ID, "filename", job.Filename, "profile", job.Profile)

	res, phase, err := w.run(ctx, job, log)
	if w.stats != nil {
		w.stats.Record(time.Since(start), err == nil)
	}
	if err != nil {
		log.Error("tabulation failed", "phase", phase, "error", err)
		job.fail(phase, err)
		return
	}
	log.Info("tabulation complete",
		"rows", len(res.Rows),
		"unmatched_tags", len(res.Report),
		"duration_ms", time.Since(start).Milliseconds(),
	)
	job.complete(res)
}

func (w *Worker) run(ctx context.Context, job *Job, log *slog.Logger) (*tabulate.Result, string, error) {
	// Phase 1: Load
	job.SetStatus(StatusLoading, "loading")
	p, err := parser.ForFile(job.Filename, w.parsers)
	if err != nil {
		return nil, "loading", err
	}
	src, err := p.Parse(bytes.NewReader(job.FileData()), job.Filename)
	if err != nil {
		return nil, "loading", fmt.Errorf("parse: %w", err)
	}
	job.SetTitle(src.Title)
	log.Debug("document loaded", "title", src.Title, "encoding", src.Encoding, "bytes", len(src.Text))

	if err := ctx.Err(); err != nil {
		return nil, "loading", err
	}

	// Phase 2: Segment
	opts := job.Options
	opts.Logger = log
	job.SetStatus(StatusSegmenting, "segmenting")
	res, err := tabulate.Segment(src.Text, opts)
	if err != nil {
		return nil, "segmenting", err
	}

	if err := ctx.Err(); err != nil {
		return nil, "segmenting", err
	}

	// Phase 3: Tag and flatten
	job.SetStatus(StatusTagging, "tagging")
	res.Tag(job.Records, opts)
	res.Flatten(opts)
	return res, "tagging", nil
}

// Package tabulate runs the full segmentation of one document: markup
// preprocessing, header passes, list reassembly, the integrity check, tag
// resolution and row flattening.
package tabulate

import (
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/rbshaffer/constitute-tools/internal/doctree"
	"github.com/rbshaffer/constitute-tools/internal/header"
	"github.com/rbshaffer/constitute-tools/internal/markup"
	"github.com/rbshaffer/constitute-tools/internal/segment"
	"github.com/rbshaffer/constitute-tools/internal/tagging"
)

// ErrInvalidOptions is returned for option values Run cannot work with.
var ErrInvalidOptions = errors.New("invalid options")

// Options configures a Run.
type Options struct {
	// HeaderPatterns are tried in order; earlier patterns nest later ones.
	HeaderPatterns []string
	// PreambleLevel is the index of the pattern whose first match ends an
	// unmarked preamble, or markup.NoPreamble.
	PreambleLevel int
	CaseSensitive bool
	Format        Format
	// MatchTimeout bounds each header match attempt; zero means no limit.
	MatchTimeout time.Duration
	Logger       *slog.Logger
}

// Result is everything Run produces for one document.
type Result struct {
	Tree    *doctree.Tree
	Rows    [][]string
	Outline []string
	// Report lists unresolved tag records. It is nil when no records were
	// supplied.
	Report        tagging.Report
	Desync        *segment.Desync
	DanglingLists []int
}

// Validate reports option values Run cannot work with.
func (o Options) Validate() error {
	if len(o.HeaderPatterns) == 0 {
		return fmt.Errorf("%w: at least one header pattern is required", ErrInvalidOptions)
	}
	if o.PreambleLevel < markup.NoPreamble || o.PreambleLevel >= len(o.HeaderPatterns) {
		return fmt.Errorf("%w: preamble level %d outside [-1,%d)", ErrInvalidOptions,
			o.PreambleLevel, len(o.HeaderPatterns))
	}
	if _, err := ParseFormat(string(o.Format)); err != nil {
		return err
	}
	return nil
}

// Run segments text and resolves records against it. A nil records slice
// skips tagging. Markup errors are returned before any tree is built; an
// integrity mismatch is logged and reported on the Result without failing.
func Run(text string, records []tagging.Record, opts Options) (*Result, error) {
	res, err := Segment(text, opts)
	if err != nil {
		return nil, err
	}
	res.Tag(records, opts)
	res.Flatten(opts)
	return res, nil
}

// Segment builds the document tree for text: preprocessing, header passes,
// list reassembly and the integrity check. Rows and Report are left empty
// until Tag and Flatten run.
func Segment(text string, opts Options) (*Result, error) {
	if err := opts.Validate(); err != nil {
		return nil, err
	}
	log := opts.logger()

	patterns, err := header.CompileAll(opts.HeaderPatterns, header.Options{
		CaseSensitive: opts.CaseSensitive,
		Timeout:       opts.MatchTimeout,
	})
	if err != nil {
		return nil, err
	}

	var boundary *header.Pattern
	if opts.PreambleLevel != markup.NoPreamble {
		boundary = patterns[opts.PreambleLevel]
	}

	tree, lists, err := markup.Preprocess(text, boundary, log)
	if err != nil {
		return nil, fmt.Errorf("preprocess: %w", err)
	}
	if err := segment.Segment(tree, lists, patterns, log); err != nil {
		return nil, err
	}
	children, dangling, err := segment.Reassemble(tree.Children, lists, log)
	if err != nil {
		return nil, fmt.Errorf("reassemble lists: %w", err)
	}
	tree.Children = children

	desync, err := segment.CheckIntegrity(text, tree, patterns)
	if err != nil {
		return nil, fmt.Errorf("check integrity: %w", err)
	}
	if desync != nil {
		log.Warn("desync between original and tabulated text",
			"offset", desync.Offset, "original", desync.Original, "processed", desync.Processed)
	}

	return &Result{
		Tree:          tree,
		Outline:       tree.Outline(),
		Desync:        desync,
		DanglingLists: dangling,
	}, nil
}

// Tag resolves records against the tree and stores the unmatched ones on
// Report. Nil records leave Report nil.
func (r *Result) Tag(records []tagging.Record, opts Options) {
	log := opts.logger()
	if records == nil {
		log.Warn("no tag records supplied, skipping tagging")
		return
	}
	r.Report = tagging.Resolve(r.Tree, records, tagging.Options{CaseSensitive: opts.CaseSensitive})
	if len(r.Report) > 0 {
		log.Warn(tagging.Summary(r.Report, len(records)), "unmatched", len(r.Report), "total", len(records))
	} else {
		log.Info(tagging.Summary(r.Report, len(records)), "total", len(records))
	}
}

// Flatten fills Rows from the tree in the configured format.
func (r *Result) Flatten(opts Options) {
	r.Rows = Rows(r.Tree, opts.Format)
	opts.logger().Info("document tabulated", "rows", len(r.Rows), "sections", len(r.Outline))
}

func (o Options) logger() *slog.Logger {
	if o.Logger == nil {
		return slog.Default()
	}
	return o.Logger
}

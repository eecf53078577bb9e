// Package markup prepares loosely marked-up source text for segmentation.
//
// Source documents carry a small tag vocabulary: <preamble>…</preamble> marks
// the introductory block, <list>…</list> (optionally suffixed, as in
// <list_2> or <list3>, so lists of the same base name can be open at once)
// marks list blocks, and <title>…</title> marks section head text. This
// package normalizes spacing around the tags, pulls list blocks out into a
// ListTable behind {@id} placeholders, and splits off the preamble.
package markup

import (
	"errors"
	"log/slog"
	"regexp"
	"strings"

	"github.com/rbshaffer/constitute-tools/internal/doctree"
	"github.com/rbshaffer/constitute-tools/internal/header"
)

var (
	// ErrMalformedMarkup reports unclosed or improperly nested list tags.
	ErrMalformedMarkup = errors.New("malformed markup")
	// ErrIllegalMarkup reports source text that already contains
	// placeholder-shaped tokens.
	ErrIllegalMarkup = errors.New("illegal markup")
)

// NoPreamble is the preamble level that disables boundary detection.
const NoPreamble = -1

var (
	listTagSpace     = regexp.MustCompile(`\s+(</?list_?[0-9]*>)\s*`)
	preambleTagSpace = regexp.MustCompile(`\s*(</?preamble>)\s*`)
	newlineRuns      = regexp.MustCompile(`[\r\n]+`)
)

// Normalize puts a line break after every list and preamble tag, drops the
// whitespace around them, and collapses runs of line breaks.
func Normalize(text string) string {
	text = strings.ReplaceAll(text, "\n\" .", "\" .")
	text = strings.ReplaceAll(text, " >", ">")
	text = listTagSpace.ReplaceAllString(text, "${1}\n")
	text = preambleTagSpace.ReplaceAllString(text, "${1}\n")
	return newlineRuns.ReplaceAllString(text, "\n")
}

// Preprocess normalizes text, extracts its lists, and splits off the
// preamble. boundary is the header pattern that ends an unmarked preamble;
// nil means the document has none. Markup errors are returned before any node
// is built.
func Preprocess(text string, boundary *header.Pattern, log *slog.Logger) (*doctree.Tree, ListTable, error) {
	if log == nil {
		log = slog.Default()
	}

	text = Normalize(text)
	text, lists, err := ExtractLists(text)
	if err != nil {
		return nil, nil, err
	}

	nodes, err := ShatterPreamble(text, boundary, log)
	if err != nil {
		return nil, nil, err
	}
	log.Debug("preprocessed document", "lists", len(lists), "root_nodes", len(nodes))
	return &doctree.Tree{Children: nodes}, lists, nil
}

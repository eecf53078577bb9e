// Package tagging attaches externally supplied citation tags to the sections
// of a segmented document.
//
// A tag record names a section by a dotted reference such as "75.4", meaning
// section 4 of section 75. References are matched against stub keys built
// from each section's header ancestry, so "75.4" also finds "3.75.4". Records
// that match no section, or more than one, are collected in a Report.
package tagging

import (
	"fmt"
	"regexp"
	"sort"
	"strings"
	"unicode"

	"github.com/rbshaffer/constitute-tools/internal/doctree"
	"github.com/rbshaffer/constitute-tools/internal/markup"
)

// Record is one citation to resolve.
type Record struct {
	Label     string            // Tag applied to the matched node
	Reference string            // Dotted header reference, e.g. "3.5"
	Fields    map[string]string // Source row, reproduced in reports
}

// Report holds the records that did not resolve to exactly one node, in input
// order.
type Report []Record

// Options controls reference matching.
type Options struct {
	CaseSensitive bool
}

// StubTable maps dotted, normalized header paths to the nodes carrying them.
// Distinct nodes can share a key; each is kept.
type StubTable map[string][]doctree.IndexPath

var wordRuns = regexp.MustCompile(`\p{L}{3,}|\s+`)

// NormalizeHeader reduces a header label to its matching form. Words of three
// or more letters are dropped so that "Article 5" and "5" agree; the preamble
// keeps its name.
func NormalizeHeader(h string) string {
	h = strings.Map(func(r rune) rune {
		if unicode.IsPunct(r) || unicode.In(r, unicode.C) {
			return -1
		}
		return r
	}, strings.ToLower(h))

	if h == markup.PreambleHeader {
		return h
	}
	return wordRuns.ReplaceAllString(h, "")
}

// BuildStubTable indexes every titled node in tree under the dotted path of
// its normalized header and those of its titled ancestors.
func BuildStubTable(tree *doctree.Tree) StubTable {
	table := make(StubTable)
	var visit func(seq []*doctree.Node, prefix doctree.IndexPath, parts []string)
	visit = func(seq []*doctree.Node, prefix doctree.IndexPath, parts []string) {
		for i, n := range seq {
			path := append(prefix[:len(prefix):len(prefix)], i)
			next := parts
			if n.Header != "" {
				if norm := NormalizeHeader(n.Header); norm != "" {
					next = append(parts[:len(parts):len(parts)], norm)
					if n.Type != doctree.Body {
						key := strings.Join(next, ".")
						table[key] = append(table[key], path)
					}
				}
			}
			visit(n.Children, path, next)
		}
	}
	visit(tree.Children, nil, nil)
	return table
}

// Lookup returns the paths of every node whose key equals ref or ends in
// "."+ref. The reference is taken literally. Paths come back in key order.
func (s StubTable) Lookup(ref string, opts Options) []doctree.IndexPath {
	ref = strings.TrimSpace(ref)
	if ref == "" {
		return nil
	}
	if !opts.CaseSensitive {
		ref = strings.ToLower(ref)
	}

	keys := make([]string, 0, len(s))
	for key := range s {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	var out []doctree.IndexPath
	for _, key := range keys {
		candidate := key
		if !opts.CaseSensitive {
			candidate = strings.ToLower(key)
		}
		if candidate == ref || strings.HasSuffix(candidate, "."+ref) {
			out = append(out, s[key]...)
		}
	}
	return out
}

// Resolve applies each record's label to the single node its reference
// identifies. Records matching no node or several are returned in the Report.
func Resolve(tree *doctree.Tree, records []Record, opts Options) Report {
	stubs := BuildStubTable(tree)
	report := Report{}
	for _, rec := range records {
		paths := stubs.Lookup(rec.Reference, opts)
		if len(paths) != 1 {
			report = append(report, rec)
			continue
		}
		n := tree.At(paths[0])
		n.Tags = append(n.Tags, rec.Label)
	}
	return report
}

// Summary describes how many of total records went unmatched.
func Summary(report Report, total int) string {
	if len(report) == 0 {
		return "All tags successfully matched."
	}
	return fmt.Sprintf("%d out of %d tags not matched. See reports for details.", len(report), total)
}

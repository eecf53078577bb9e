// Package segment restructures a preprocessed document into titled sections,
// reinserts extracted lists, and checks that no text went missing on the way.
package segment

import (
	"fmt"
	"log/slog"
	"regexp"
	"strings"

	"github.com/rbshaffer/constitute-tools/internal/doctree"
	"github.com/rbshaffer/constitute-tools/internal/header"
	"github.com/rbshaffer/constitute-tools/internal/markup"
)

var (
	titleClosed = regexp.MustCompile(`<title>.*?</title>`)
	titleOpen   = regexp.MustCompile(`.*<title>.*`)
	titleTags   = regexp.MustCompile(`</?title>`)
)

// Segment splits the tree and every list table entry on each pattern in turn.
// A pattern is resolved everywhere before the next one starts, so earlier
// patterns take precedence.
func Segment(tree *doctree.Tree, lists markup.ListTable, patterns []*header.Pattern, log *slog.Logger) error {
	if log == nil {
		log = slog.Default()
	}

	for _, p := range patterns {
		s := &shatterer{pattern: p}

		children, err := s.shatter(tree.Children)
		if err != nil {
			return fmt.Errorf("segment document on %s: %w", p, err)
		}
		tree.Children = children

		for _, id := range lists.IDs() {
			entry, err := s.shatter(lists[id])
			if err != nil {
				return fmt.Errorf("segment list %d on %s: %w", id, p, err)
			}
			lists[id] = entry
		}

		log.Debug("header pass complete", "pattern", p.String(), "sections", s.sections)
	}
	return nil
}

// shatterer runs a single pattern's pass.
type shatterer struct {
	pattern  *header.Pattern
	sections int
}

// shatter rebuilds seq, splicing each node's split into its position.
// The input slice is not modified.
func (s *shatterer) shatter(seq []*doctree.Node) ([]*doctree.Node, error) {
	out, at := seq, 0
	for _, n := range seq {
		nodes, err := s.split(n)
		if err != nil {
			return nil, err
		}
		out = doctree.Splice(out, at, nodes...)
		at += len(nodes)
	}
	return out, nil
}

// split returns the nodes that take n's place in its parent's sequence.
func (s *shatterer) split(n *doctree.Node) ([]*doctree.Node, error) {
	var matches []header.Match
	if n.Type == doctree.Body {
		var err error
		if matches, err = s.pattern.FindAll(n.Text); err != nil {
			return nil, err
		}
	}

	existing, err := s.shatter(n.Children)
	if err != nil {
		return nil, err
	}
	if len(matches) == 0 {
		n.Children = existing
		return []*doctree.Node{n}, nil
	}

	sections := make([]*doctree.Node, 0, len(matches))
	for i, m := range matches {
		end := len(n.Text)
		if i+1 < len(matches) {
			end = matches[i+1].Start
		}
		label, err := header.Label(m.Text)
		if err != nil {
			return nil, err
		}
		head, body := splitTitle(n.Text[m.End:end])
		section := doctree.NewTitle(label, head, body)

		if section.Children, err = s.shatter(section.Children); err != nil {
			return nil, err
		}
		sections = append(sections, section)
	}
	s.sections += len(sections)

	lead := strings.Trim(n.Text[:matches[0].Start], "\t\n\r ")
	if lead == "" {
		return append(sections, existing...), nil
	}

	wrapper := doctree.NewBody(lead)
	wrapper.Children = sections
	n.Text = ""
	n.Children = doctree.Insert(existing, 0, wrapper)
	return []*doctree.Node{n}, nil
}

// splitTitle separates an optional <title> marked head from a section's
// content. Without a marker the head is empty.
func splitTitle(content string) (head, body string) {
	content = strings.Trim(content, "\t\n\r ")

	var loc []int
	switch {
	case strings.Contains(content, "<title>") && strings.Contains(content, "</title>"):
		loc = titleClosed.FindStringIndex(content)
	case strings.Contains(content, "<title>"):
		loc = titleOpen.FindStringIndex(content)
	}
	if loc == nil {
		return "", content
	}

	head = strings.Trim(titleTags.ReplaceAllString(content[loc[0]:loc[1]], ""), "\t\n\r ")
	body = strings.Trim(content[:loc[0]]+content[loc[1]:], "\t\n\r ")
	return head, body
}

package markup

import (
	"log/slog"
	"regexp"
	"strings"

	"github.com/rbshaffer/constitute-tools/internal/doctree"
	"github.com/rbshaffer/constitute-tools/internal/header"
)

var (
	preambleOpen  = regexp.MustCompile(`\s*<preamble>\s*`)
	preambleClose = regexp.MustCompile(`\s*</preamble>\s*`)
	preambleTags  = regexp.MustCompile(`</?preamble>`)
)

// PreambleHeader is the label given to the preamble node.
const PreambleHeader = "preamble"

// ShatterPreamble splits text into the document's top-level nodes: an optional
// preamble followed by a body node holding everything else.
//
// Explicit <preamble> tags win. Without a closing tag the preamble ends at the
// first match of boundary; a nil boundary means there is no preamble.
func ShatterPreamble(text string, boundary *header.Pattern, log *slog.Logger) ([]*doctree.Node, error) {
	start := 0
	if loc := preambleOpen.FindStringIndex(text); loc != nil {
		start = loc[0]
	}

	end := 0
	if loc := preambleClose.FindStringIndex(text); loc != nil {
		end = loc[1]
	} else if boundary != nil {
		m, ok, err := boundary.FindFirst(text)
		if err != nil {
			return nil, err
		}
		if ok {
			end = m.Start
		} else {
			log.Warn("preamble boundary pattern never matched, treating document as having no preamble",
				"pattern", boundary.String())
		}
	}
	if end < start {
		start, end = 0, 0
	}

	var nodes []*doctree.Node
	if lead := strings.TrimSpace(text[:start]); lead != "" {
		nodes = append(nodes, doctree.NewBody(lead))
	}

	preamble := strings.Trim(text[start:end], "\n\r\t ")
	preamble = strings.TrimSpace(preambleTags.ReplaceAllString(preamble, ""))
	if preamble != "" {
		nodes = append(nodes, &doctree.Node{
			Type:     doctree.Preamble,
			Header:   PreambleHeader,
			Children: []*doctree.Node{doctree.NewBody(preamble)},
		})
	}

	return append(nodes, doctree.NewBody(text[end:])), nil
}

package tabulate

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/rbshaffer/constitute-tools/internal/doctree"
)

// Format selects the row layout.
type Format string

const (
	// FormatCCP is one row per node line: id, parent id, header, type, text
	// and any tags.
	FormatCCP Format = "ccp"
	// FormatCCPMultilingual repeats the header and text columns three times,
	// leaving room for translations.
	FormatCCPMultilingual Format = "ccp-multilingual"
)

// ParseFormat accepts a format name; the empty string means FormatCCP.
func ParseFormat(s string) (Format, error) {
	switch Format(strings.ToLower(strings.TrimSpace(s))) {
	case "", FormatCCP:
		return FormatCCP, nil
	case FormatCCPMultilingual:
		return FormatCCPMultilingual, nil
	}
	return "", fmt.Errorf("%w: unknown output format %q", ErrInvalidOptions, s)
}

var lineBreaks = regexp.MustCompile(`[\r\n]+`)

// Rows flattens tree depth-first. Titled nodes take one row each; body nodes
// take one row per non-blank line. A row's parent is the last row written for
// its nearest ancestor that wrote any, or 0. Rows are padded to equal width.
func Rows(tree *doctree.Tree, format Format) [][]string {
	var rows [][]string
	var emit func(seq []*doctree.Node, parent int)
	emit = func(seq []*doctree.Node, parent int) {
		for _, n := range seq {
			last := parent
			for _, line := range nodeLines(n) {
				id := len(rows) + 1
				row := []string{strconv.Itoa(id), strconv.Itoa(parent), n.Header, n.Type.String(), line}
				rows = append(rows, append(row, n.Tags...))
				last = id
			}
			emit(n.Children, last)
		}
	}
	emit(tree.Children, 0)

	width := 0
	for _, row := range rows {
		width = max(width, len(row))
	}
	for i, row := range rows {
		for len(row) < width {
			row = append(row, "")
		}
		if format == FormatCCPMultilingual {
			row = multilingual(row)
		}
		rows[i] = row
	}
	return rows
}

func nodeLines(n *doctree.Node) []string {
	if n.Type != doctree.Body {
		return []string{strings.TrimSpace(lineBreaks.ReplaceAllString(n.Text, " "))}
	}
	var out []string
	for _, line := range lineBreaks.Split(n.Text, -1) {
		if line = strings.TrimSpace(line); line != "" {
			out = append(out, line)
		}
	}
	return out
}

// multilingual widens a padded row: id, parent, header x3, type, text x3, tags.
func multilingual(row []string) []string {
	out := make([]string, 0, len(row)+4)
	out = append(out, row[0], row[1], row[2], row[2], row[2], row[3], row[4], row[4], row[4])
	return append(out, row[5:]...)
}

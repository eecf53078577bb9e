// Package header compiles the prioritized header patterns that drive
// segmentation.
//
// Patterns are written in the Python/.NET regex dialect used by existing
// constitution profiles, lookarounds included, so they are compiled with
// regexp2 rather than the standard library's RE2 engine. Every alternative is
// anchored to the start of a line.
package header

import (
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/dlclark/regexp2"
)

// Options controls how header patterns are compiled.
type Options struct {
	CaseSensitive bool
	// Timeout bounds a single match attempt; zero means no limit.
	Timeout time.Duration
}

// Pattern is one compiled header pattern.
type Pattern struct {
	expr string
	re   *regexp2.Regexp
}

// Match is a header occurrence. Start and End are byte offsets.
type Match struct {
	Start int
	End   int
	Text  string
}

// Compile anchors expr at line starts and compiles it in multiline mode.
func Compile(expr string, opts Options) (*Pattern, error) {
	if strings.TrimSpace(expr) == "" {
		return nil, fmt.Errorf("compile header pattern: empty expression")
	}
	anchored := "^" + strings.ReplaceAll(expr, "|", "|^")

	flags := regexp2.RegexOptions(regexp2.Multiline)
	if !opts.CaseSensitive {
		flags |= regexp2.IgnoreCase
	}
	re, err := regexp2.Compile(anchored, flags)
	if err != nil {
		return nil, fmt.Errorf("compile header pattern %q: %w", expr, err)
	}
	if opts.Timeout > 0 {
		re.MatchTimeout = opts.Timeout
	}
	return &Pattern{expr: expr, re: re}, nil
}

// CompileAll compiles exprs in precedence order.
func CompileAll(exprs []string, opts Options) ([]*Pattern, error) {
	patterns := make([]*Pattern, 0, len(exprs))
	for _, expr := range exprs {
		p, err := Compile(expr, opts)
		if err != nil {
			return nil, err
		}
		patterns = append(patterns, p)
	}
	return patterns, nil
}

// String returns the expression as supplied, before anchoring.
func (p *Pattern) String() string {
	return p.expr
}

// FindAll returns every non-empty match in text, in order.
func (p *Pattern) FindAll(text string) ([]Match, error) {
	offsets := byteOffsets(text)

	var out []Match
	m, err := p.re.FindStringMatch(text)
	for ; m != nil && err == nil; m, err = p.re.FindNextMatch(m) {
		if m.Length == 0 {
			continue
		}
		start, end := offsets[m.Index], offsets[m.Index+m.Length]
		out = append(out, Match{Start: start, End: end, Text: text[start:end]})
	}
	if err != nil {
		return nil, fmt.Errorf("match header pattern %q: %w", p.expr, err)
	}
	return out, nil
}

// FindFirst returns the first non-empty match in text.
func (p *Pattern) FindFirst(text string) (Match, bool, error) {
	matches, err := p.FindAll(text)
	if err != nil || len(matches) == 0 {
		return Match{}, false, err
	}
	return matches[0], true, nil
}

// ReplaceAll replaces every occurrence of the pattern with repl.
func (p *Pattern) ReplaceAll(text, repl string) (string, error) {
	out, err := p.re.Replace(text, repl, -1, -1)
	if err != nil {
		return "", fmt.Errorf("replace header pattern %q: %w", p.expr, err)
	}
	return out, nil
}

// byteOffsets maps rune indexes, as reported by regexp2, to byte offsets.
// The final entry is len(s).
func byteOffsets(s string) []int {
	offsets := make([]int, 0, len(s)+1)
	for i := range s {
		offsets = append(offsets, i)
	}
	return append(offsets, len(s))
}

var (
	labelNoise = regexp.MustCompile(`[,|;^#*]`)
	// Separators only count as punctuation when nothing alphanumeric follows,
	// so "1.2" keeps its dot while "Article 1." loses it.
	labelTrailing = regexp2.MustCompile(`[-.:](?![A-Za-z0-9])`, regexp2.None)
)

// Label turns matched header text into a node label.
func Label(matched string) (string, error) {
	s := strings.Trim(matched, "\t\n\r ")
	s = labelNoise.ReplaceAllString(s, "")
	s, err := labelTrailing.Replace(s, "", -1, -1)
	if err != nil {
		return "", fmt.Errorf("label header %q: %w", matched, err)
	}
	return strings.TrimSpace(s), nil
}

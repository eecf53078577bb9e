package segment

import (
	"fmt"
	"regexp"
	"strings"
	"unicode"

	"golang.org/x/text/unicode/norm"

	"github.com/rbshaffer/constitute-tools/internal/doctree"
	"github.com/rbshaffer/constitute-tools/internal/header"
)

const (
	desyncBefore = 50
	desyncAfter  = 100
)

var markupTag = regexp.MustCompile(`<.*?>`)

// Desync describes the first point where segmented text stops matching the
// source. Offset counts runes in the normalized text.
type Desync struct {
	Offset    int
	Original  string
	Processed string
}

func (d *Desync) String() string {
	return fmt.Sprintf("desync at %d: original %q, processed %q", d.Offset, d.Original, d.Processed)
}

// CheckIntegrity compares raw, with every header match blanked out, against
// the text held by tree. Both sides are reduced to lowercase words without
// markup or punctuation first. A nil Desync means they agree.
func CheckIntegrity(raw string, tree *doctree.Tree, patterns []*header.Pattern) (*Desync, error) {
	original := raw
	for _, p := range patterns {
		var err error
		if original, err = p.ReplaceAll(original, " "); err != nil {
			return nil, fmt.Errorf("strip headers: %w", err)
		}
	}

	want := []rune(reduce(original))
	got := []rune(reduce(tree.JoinText()))

	i := 0
	for i < len(want) && i < len(got) && want[i] == got[i] {
		i++
	}
	if i == len(want) && i == len(got) {
		return nil, nil
	}
	return &Desync{
		Offset:    i,
		Original:  window(want, i),
		Processed: window(got, i),
	}, nil
}

// reduce maps text to the form both sides of the check are compared in.
func reduce(text string) string {
	text = markupTag.ReplaceAllString(text, " ")
	text = norm.NFC.String(text)
	text = strings.Map(func(r rune) rune {
		if unicode.IsSpace(r) {
			return ' '
		}
		if unicode.IsPunct(r) || unicode.In(r, unicode.C) {
			return -1
		}
		return r
	}, text)
	return strings.Join(strings.Fields(strings.ToLower(text)), " ")
}

func window(text []rune, at int) string {
	from := max(at-desyncBefore, 0)
	to := min(at+desyncAfter, len(text))
	return string(text[from:to])
}

package markup

import (
	"fmt"
	"regexp"
	"slices"
	"sort"
	"strconv"
	"strings"

	"github.com/rbshaffer/constitute-tools/internal/doctree"
)

// ListTable holds extracted list blocks by placeholder id. Each entry is an
// owned subtree; reassembly consumes every entry at most once.
type ListTable map[int][]*doctree.Node

// IDs returns the table's ids in ascending order.
func (t ListTable) IDs() []int {
	ids := make([]int, 0, len(t))
	for id := range t {
		ids = append(ids, id)
	}
	sort.Ints(ids)
	return ids
}

var (
	placeholderToken = regexp.MustCompile(`\{@([0-9]+)\}`)
	listTag          = regexp.MustCompile(`<(/?)(list_?[0-9]*)>`)
	listOpen         = regexp.MustCompile(`<(list_?[0-9]*)>[\r\n]*`)
)

// Placeholder returns the token that stands in for list id.
func Placeholder(id int) string {
	return "{@" + strconv.Itoa(id) + "}"
}

// FindPlaceholder locates the first placeholder token in text and returns its
// byte span and list id.
func FindPlaceholder(text string) (start, end, id int, ok bool) {
	loc := placeholderToken.FindStringSubmatchIndex(text)
	if loc == nil {
		return 0, 0, 0, false
	}
	id, err := strconv.Atoi(text[loc[2]:loc[3]])
	if err != nil {
		return 0, 0, 0, false
	}
	return loc[0], loc[1], id, true
}

// ExtractLists replaces every list block in text with a placeholder and
// returns the rewritten text with the table of extracted blocks. Blocks are
// taken leftmost-outermost first; nested blocks are then pulled out of each
// table entry in id order, receiving fresh ids.
func ExtractLists(text string) (string, ListTable, error) {
	if err := CheckListSyntax(text); err != nil {
		return "", nil, err
	}

	table := make(ListTable)
	for {
		out, body, ok, err := extractFirst(text, len(table))
		if err != nil {
			return "", nil, err
		}
		if !ok {
			break
		}
		text = out
		table[len(table)] = []*doctree.Node{doctree.NewBody(body)}
	}

	for id := 0; id < len(table); {
		entry := table[id][0]
		out, body, ok, err := extractFirst(entry.Text, len(table))
		if err != nil {
			return "", nil, err
		}
		if !ok {
			id++
			continue
		}
		entry.Text = out
		table[len(table)] = []*doctree.Node{doctree.NewBody(body)}
	}
	return text, table, nil
}

// extractFirst pulls the leftmost list block out of text, replacing it with
// the placeholder for id.
func extractFirst(text string, id int) (string, string, bool, error) {
	open := listOpen.FindStringSubmatchIndex(text)
	if open == nil {
		return text, "", false, nil
	}
	kind := text[open[2]:open[3]]

	closing := regexp.MustCompile(`[\r\n]*</` + regexp.QuoteMeta(kind) + `>`)
	rest := text[open[1]:]
	loc := closing.FindStringIndex(rest)
	if loc == nil {
		return "", "", false, fmt.Errorf("%w: list tag <%s> was not closed", ErrMalformedMarkup, kind)
	}

	body := rest[:loc[0]]
	out := text[:open[0]] + Placeholder(id) + rest[loc[1]:]
	return out, body, true, nil
}

// CheckListSyntax validates list markup without modifying anything. Text that
// already contains placeholder tokens is illegal; every opened list kind must
// be closed, lists must nest properly, and a kind may not be reopened while
// it is still open.
func CheckListSyntax(text string) error {
	if tokens := placeholderToken.FindAllString(text, -1); len(tokens) > 0 {
		return fmt.Errorf("%w: delete the following placeholder-shaped strings to continue: %s",
			ErrIllegalMarkup, strings.Join(tokens, ", "))
	}

	var open []string
	for _, m := range listTag.FindAllStringSubmatchIndex(text, -1) {
		isClose := m[3] > m[2]
		kind := text[m[4]:m[5]]

		if !isClose {
			if slices.Contains(open, kind) {
				return fmt.Errorf("%w: list tag pair of type %q is improperly nested (offset %d)",
					ErrMalformedMarkup, kind, m[0])
			}
			open = append(open, kind)
			continue
		}

		if len(open) == 0 || open[len(open)-1] != kind {
			return fmt.Errorf("%w: closing tag </%s> at offset %d has no matching open tag",
				ErrMalformedMarkup, kind, m[0])
		}
		open = open[:len(open)-1]
	}

	if len(open) > 0 {
		return fmt.Errorf("%w: a list tag of type %q was not closed", ErrMalformedMarkup, open[len(open)-1])
	}
	return nil
}

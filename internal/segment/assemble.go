package segment

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/rbshaffer/constitute-tools/internal/doctree"
	"github.com/rbshaffer/constitute-tools/internal/markup"
)

// ErrMissingList is returned when a placeholder names a list that was never
// extracted or has already been reinserted.
var ErrMissingList = errors.New("missing list")

// Reassemble puts every extracted list back where its placeholder sits. The
// node holding a placeholder keeps the text before it, followed by a list
// node and a body node carrying the text after it along with the original
// node's children. Consumed entries are deleted from lists; the ids that no
// placeholder referenced are returned in ascending order.
func Reassemble(nodes []*doctree.Node, lists markup.ListTable, log *slog.Logger) ([]*doctree.Node, []int, error) {
	if log == nil {
		log = slog.Default()
	}

	a := &assembler{lists: lists}
	out, err := a.assemble(nodes)
	if err != nil {
		return nil, nil, err
	}

	dangling := lists.IDs()
	if len(dangling) > 0 {
		log.Debug("lists left unreferenced", "ids", dangling)
	}
	return out, dangling, nil
}

type assembler struct {
	lists markup.ListTable
}

func (a *assembler) assemble(seq []*doctree.Node) ([]*doctree.Node, error) {
	out, at := seq, 0
	for _, n := range seq {
		nodes, err := a.expand(n)
		if err != nil {
			return nil, err
		}
		out = doctree.Splice(out, at, nodes...)
		at += len(nodes)
	}
	return out, nil
}

// expand resolves the first placeholder in n and then, through the trailing
// node, any that follow it.
func (a *assembler) expand(n *doctree.Node) ([]*doctree.Node, error) {
	start, end, id, ok := markup.FindPlaceholder(n.Text)
	if !ok {
		children, err := a.assemble(n.Children)
		if err != nil {
			return nil, err
		}
		n.Children = children
		return []*doctree.Node{n}, nil
	}

	entry, found := a.lists[id]
	if !found {
		return nil, fmt.Errorf("%w: placeholder %s has no list to reinsert", ErrMissingList, markup.Placeholder(id))
	}
	delete(a.lists, id)

	post := strings.Trim(n.Text[end:], "\n\r ")
	children := n.Children
	n.Text = strings.Trim(n.Text[:start], "\n\r ")
	n.Children = nil

	list := &doctree.Node{Type: doctree.UnorderedList}
	if len(entry) > 1 {
		list.Type = doctree.OrderedList
	}
	items, err := a.assemble(entry)
	if err != nil {
		return nil, err
	}
	list.Children = items

	out := []*doctree.Node{n, list}
	if post == "" && len(children) == 0 {
		return out, nil
	}

	rest, err := a.expand(&doctree.Node{Type: doctree.Body, Text: post, Children: children})
	if err != nil {
		return nil, err
	}
	return append(out, rest...), nil
}

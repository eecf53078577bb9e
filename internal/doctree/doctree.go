package doctree

import (
	"fmt"
	"strings"
)

// NodeType identifies the structural role of a node.
type NodeType int

const (
	Body NodeType = iota
	Title
	Preamble
	OrderedList
	UnorderedList
)

// String returns the type name used in tabulated output.
func (t NodeType) String() string {
	switch t {
	case Body:
		return "body"
	case Title:
		return "title"
	case Preamble:
		return "preamble"
	case OrderedList:
		return "olist"
	case UnorderedList:
		return "ulist"
	}
	return fmt.Sprintf("NodeType(%d)", int(t))
}

// Node is a recursive section of a segmented document.
type Node struct {
	Header   string   // Structural label, e.g. "Article 5" (empty for body text)
	Text     string   // Head text for titles, content for body nodes
	Type     NodeType // Structural role
	Tags     []string // Content tags applied after segmentation
	Children []*Node  // Ordered, contiguous child sequence
}

// Tree is the root of a segmented document. The root itself carries no text;
// its children are the top-level sections in document order.
type Tree struct {
	Children []*Node
}

// IndexPath locates a node by the child index taken at each level from the root.
type IndexPath []int

func (p IndexPath) String() string {
	parts := make([]string, len(p))
	for i, idx := range p {
		parts[i] = fmt.Sprint(idx)
	}
	return strings.Join(parts, "/")
}

// NewBody returns a body node holding text.
func NewBody(text string) *Node {
	return &Node{Type: Body, Text: text}
}

// NewTitle returns a title node with a single body child, the shape every
// header match produces.
func NewTitle(header, head, body string) *Node {
	return &Node{
		Type:     Title,
		Header:   header,
		Text:     head,
		Children: []*Node{NewBody(body)},
	}
}

// Insert places nodes at position i, shifting later siblings right.
func Insert(seq []*Node, i int, nodes ...*Node) []*Node {
	if i < 0 || i > len(seq) {
		panic(fmt.Sprintf("doctree: insert index %d out of range [0,%d]", i, len(seq)))
	}
	out := make([]*Node, 0, len(seq)+len(nodes))
	out = append(out, seq[:i]...)
	out = append(out, nodes...)
	return append(out, seq[i:]...)
}

// Splice replaces the node at position i with nodes. Later siblings keep
// their relative order and are reindexed to stay contiguous.
func Splice(seq []*Node, i int, nodes ...*Node) []*Node {
	if i < 0 || i >= len(seq) {
		panic(fmt.Sprintf("doctree: splice index %d out of range [0,%d)", i, len(seq)))
	}
	out := make([]*Node, 0, len(seq)-1+len(nodes))
	out = append(out, seq[:i]...)
	out = append(out, nodes...)
	return append(out, seq[i+1:]...)
}

// At returns the node at path, or nil if the path leaves the tree.
func (t *Tree) At(path IndexPath) *Node {
	seq := t.Children
	var n *Node
	for _, idx := range path {
		if idx < 0 || idx >= len(seq) {
			return nil
		}
		n = seq[idx]
		seq = n.Children
	}
	return n
}

// Walk visits every node depth-first in document order. The visitor receives
// the node's index path; returning false skips the node's children.
func (t *Tree) Walk(fn func(n *Node, path IndexPath) bool) {
	walk(t.Children, nil, fn)
}

func walk(seq []*Node, prefix IndexPath, fn func(*Node, IndexPath) bool) {
	for i, n := range seq {
		path := make(IndexPath, len(prefix)+1)
		copy(path, prefix)
		path[len(prefix)] = i
		if fn(n, path) {
			walk(n.Children, path, fn)
		}
	}
}

// Outline renders one line per header-bearing node, indented with one tab for
// each header-bearing ancestor.
func (t *Tree) Outline() []string {
	var out []string
	var visit func(seq []*Node, depth int)
	visit = func(seq []*Node, depth int) {
		for _, n := range seq {
			next := depth
			if n.Header != "" {
				out = append(out, strings.Repeat("\t", depth)+n.Header)
				next++
			}
			visit(n.Children, next)
		}
	}
	visit(t.Children, 0)
	return out
}

// JoinText concatenates the trimmed text of every node depth-first, separated
// by single spaces.
func (t *Tree) JoinText() string {
	var sb strings.Builder
	t.Walk(func(n *Node, _ IndexPath) bool {
		if s := strings.TrimSpace(n.Text); s != "" {
			if sb.Len() > 0 {
				sb.WriteByte(' ')
			}
			sb.WriteString(s)
		}
		return true
	})
	return sb.String()
}

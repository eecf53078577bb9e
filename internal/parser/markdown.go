package parser

import (
	"bytes"
	"fmt"
	"io"
	"strings"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/text"
)

// MarkdownParser handles Markdown files using goldmark. Blocks become lines
// of text and lists become <list> markup, one item per line. Raw HTML such as
// <preamble> or <title> tags passes through untouched.
type MarkdownParser struct{}

func (p *MarkdownParser) Parse(r io.Reader, filename string) (*Source, error) {
	src, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}

	md := goldmark.New()
	doc := md.Parser().Parse(text.NewReader(src))

	w := &markdownWriter{src: src}
	for n := doc.FirstChild(); n != nil; n = n.NextSibling() {
		w.block(n, 0)
	}
	return &Source{
		Title: titleFromFilename(filename),
		Text:  strings.Join(w.lines, "\n"),
	}, nil
}

type markdownWriter struct {
	src   []byte
	lines []string
}

func (w *markdownWriter) add(line string) {
	if line != "" {
		w.lines = append(w.lines, line)
	}
}

func (w *markdownWriter) block(n ast.Node, depth int) {
	switch node := n.(type) {
	case *ast.Heading, *ast.Paragraph, *ast.TextBlock:
		w.add(inlineText(n, w.src))
	case *ast.List:
		tag := listTag(depth)
		w.lines = append(w.lines, "<"+tag+">")
		i := 0
		for item := node.FirstChild(); item != nil; item = item.NextSibling() {
			prefix := ""
			if node.IsOrdered() {
				prefix = fmt.Sprintf("%d. ", node.Start+i)
			}
			w.item(item, depth+1, prefix)
			i++
		}
		w.lines = append(w.lines, "</"+tag+">")
	case *ast.HTMLBlock:
		w.raw(node.Lines())
		if node.HasClosure() {
			w.add(strings.TrimRight(string(node.ClosureLine.Value(w.src)), "\r\n"))
		}
	case *ast.FencedCodeBlock, *ast.CodeBlock:
		w.raw(n.Lines())
	case *ast.ThematicBreak:
	default:
		for c := n.FirstChild(); c != nil; c = c.NextSibling() {
			w.block(c, depth)
		}
	}
}

// item writes a list item. Ordered items carry their number on the first
// line so that the list still reads as numbered once flattened.
func (w *markdownWriter) item(item ast.Node, depth int, prefix string) {
	for c := item.FirstChild(); c != nil; c = c.NextSibling() {
		switch c.(type) {
		case *ast.Paragraph, *ast.TextBlock:
			w.add(prefix + inlineText(c, w.src))
			prefix = ""
			continue
		}
		w.block(c, depth)
	}
}

func (w *markdownWriter) raw(lines *text.Segments) {
	for i := 0; i < lines.Len(); i++ {
		seg := lines.At(i)
		w.add(strings.TrimRight(string(seg.Value(w.src)), "\r\n"))
	}
}

// inlineText gets the text of a block's inline children, keeping line breaks
// and raw HTML.
func inlineText(n ast.Node, src []byte) string {
	var buf bytes.Buffer
	var walk func(ast.Node)
	walk = func(n ast.Node) {
		for c := n.FirstChild(); c != nil; c = c.NextSibling() {
			switch t := c.(type) {
			case *ast.Text:
				buf.Write(t.Segment.Value(src))
				if t.HardLineBreak() || t.SoftLineBreak() {
					buf.WriteByte('\n')
				}
			case *ast.String:
				buf.Write(t.Value)
			case *ast.RawHTML:
				for i := 0; i < t.Segments.Len(); i++ {
					seg := t.Segments.At(i)
					buf.Write(seg.Value(src))
				}
			default:
				walk(c)
			}
		}
	}
	walk(n)
	return strings.TrimSpace(buf.String())
}

package parser

import (
	"fmt"
	"io"
	"strconv"
	"strings"

	"golang.org/x/net/html"
)

// HTMLParser handles HTML files. Block elements become lines of text, ul and
// ol become <list> markup, and <preamble> elements are kept as tags.
type HTMLParser struct{}

func (p *HTMLParser) Parse(r io.Reader, filename string) (*Source, error) {
	doc, err := html.Parse(r)
	if err != nil {
		return nil, fmt.Errorf("parse html: %w", err)
	}

	src := &Source{Title: titleFromFilename(filename)}
	if title := findTitle(doc); title != "" {
		src.Title = title
	}

	w := &htmlWriter{}
	if body := findBody(doc); body != nil {
		w.walk(body)
	} else {
		w.walk(doc)
	}
	src.Text = strings.Join(w.lines, "\n")
	return src, nil
}

type htmlWriter struct {
	lines []string
	depth int
}

func (w *htmlWriter) add(line string) {
	if line != "" {
		w.lines = append(w.lines, line)
	}
}

func (w *htmlWriter) walk(n *html.Node) {
	if n.Type == html.TextNode {
		w.add(collapseSpace(n.Data))
		return
	}
	if n.Type == html.ElementNode {
		switch n.Data {
		case "script", "style", "nav", "footer", "header":
			return
		case "preamble":
			w.lines = append(w.lines, "<preamble>")
			w.children(n)
			w.lines = append(w.lines, "</preamble>")
			return
		case "ul", "ol":
			w.list(n)
			return
		case "h1", "h2", "h3", "h4", "h5", "h6", "p", "td", "th", "blockquote", "dt", "dd":
			w.add(textContent(n))
			return
		}
	}
	w.children(n)
}

func (w *htmlWriter) children(n *html.Node) {
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		w.walk(c)
	}
}

func (w *htmlWriter) list(n *html.Node) {
	tag := listTag(w.depth)
	w.depth++
	defer func() { w.depth-- }()

	ordered := n.Data == "ol"
	number := 1
	if start, err := strconv.Atoi(attr(n, "start")); err == nil && ordered {
		number = start
	}

	w.lines = append(w.lines, "<"+tag+">")
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if c.Type != html.ElementNode || c.Data != "li" {
			continue
		}
		line := itemText(c)
		if ordered && line != "" {
			line = fmt.Sprintf("%d. %s", number, line)
			number++
		}
		w.add(line)
		for nested := c.FirstChild; nested != nil; nested = nested.NextSibling {
			if isList(nested) {
				w.list(nested)
			}
		}
	}
	w.lines = append(w.lines, "</"+tag+">")
}

func isList(n *html.Node) bool {
	return n.Type == html.ElementNode && (n.Data == "ul" || n.Data == "ol")
}

func attr(n *html.Node, key string) string {
	for _, a := range n.Attr {
		if a.Key == key {
			return a.Val
		}
	}
	return ""
}

// itemText is the text of a list item without its nested lists.
func itemText(li *html.Node) string {
	var buf strings.Builder
	for c := li.FirstChild; c != nil; c = c.NextSibling {
		if isList(c) {
			continue
		}
		buf.WriteString(rawText(c))
		buf.WriteByte(' ')
	}
	return collapseSpace(buf.String())
}

func textContent(n *html.Node) string {
	return collapseSpace(rawText(n))
}

func rawText(n *html.Node) string {
	var buf strings.Builder
	var extract func(*html.Node)
	extract = func(n *html.Node) {
		if n.Type == html.TextNode {
			buf.WriteString(n.Data)
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			extract(c)
		}
	}
	extract(n)
	return buf.String()
}

func collapseSpace(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

func findTitle(n *html.Node) string {
	if n.Type == html.ElementNode && n.Data == "title" {
		return textContent(n)
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if t := findTitle(c); t != "" {
			return t
		}
	}
	return ""
}

func findBody(n *html.Node) *html.Node {
	if n.Type == html.ElementNode && n.Data == "body" {
		return n
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if b := findBody(c); b != nil {
			return b
		}
	}
	return nil
}

// Package parser loads source documents of various formats into the raw
// marked-up text segmentation works on.
package parser

import (
	"fmt"
	"io"
	"path/filepath"
	"strings"
)

// Source is a loaded document.
type Source struct {
	Title string
	Text  string
	// Encoding names the character set plain text was decoded from.
	Encoding string
}

// Parser converts raw document bytes into a Source.
type Parser interface {
	Parse(r io.Reader, filename string) (*Source, error)
}

// Options tunes the parsers ForFile returns.
type Options struct {
	// FallbackPdftotext retries failed PDF extraction with the pdftotext
	// binary when it is installed.
	FallbackPdftotext bool
}

// SupportedExtensions lists file extensions that can be loaded.
var SupportedExtensions = map[string]bool{
	".txt":      true,
	".md":       true,
	".markdown": true,
	".html":     true,
	".htm":      true,
	".pdf":      true,
	".docx":     true,
}

// ForFile returns the appropriate parser for a filename.
func ForFile(filename string, opts Options) (Parser, error) {
	ext := strings.ToLower(filepath.Ext(filename))
	switch ext {
	case ".txt":
		return &TextParser{}, nil
	case ".md", ".markdown":
		return &MarkdownParser{}, nil
	case ".html", ".htm":
		return &HTMLParser{}, nil
	case ".pdf":
		return &PDFParser{FallbackPdftotext: opts.FallbackPdftotext}, nil
	case ".docx":
		return &DOCXParser{}, nil
	default:
		return nil, fmt.Errorf("unsupported file extension: %s", ext)
	}
}

// IsSupportedExtension checks if a file extension is supported.
func IsSupportedExtension(filename string) bool {
	ext := strings.ToLower(filepath.Ext(filename))
	return SupportedExtensions[ext]
}

func titleFromFilename(filename string) string {
	base := filepath.Base(filename)
	return strings.TrimSuffix(base, filepath.Ext(base))
}

// listTag names the list markup for a nesting depth. Nested lists get a
// suffix so that they are not closed by their parent's tag.
func listTag(depth int) string {
	if depth == 0 {
		return "list"
	}
	return fmt.Sprintf("list_%d", depth)
}

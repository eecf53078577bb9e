package parser

import (
	"bytes"
	"fmt"
	"io"
	"unicode/utf8"

	"golang.org/x/text/encoding/charmap"
	"golang.org/x/text/encoding/unicode"
)

// Encoding names reported on Source.Encoding.
const (
	EncodingUTF8BOM = "utf-8-sig"
	EncodingUTF8    = "utf-8"
	EncodingLatin9  = "iso-8859-15"
)

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// TextParser handles plain text files. UTF-8 with or without a byte order
// mark is tried first; anything else is read as ISO-8859-15.
type TextParser struct{}

func (p *TextParser) Parse(r io.Reader, filename string) (*Source, error) {
	raw, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("read text: %w", err)
	}

	text, enc, err := decodeText(raw)
	if err != nil {
		return nil, err
	}
	return &Source{Title: titleFromFilename(filename), Text: text, Encoding: enc}, nil
}

func decodeText(raw []byte) (string, string, error) {
	if bytes.HasPrefix(raw, utf8BOM) {
		out, err := unicode.UTF8BOM.NewDecoder().Bytes(raw)
		if err == nil && utf8.Valid(out) {
			return string(out), EncodingUTF8BOM, nil
		}
	}
	if utf8.Valid(raw) {
		return string(raw), EncodingUTF8, nil
	}
	out, err := charmap.ISO8859_15.NewDecoder().Bytes(raw)
	if err != nil {
		return "", "", fmt.Errorf("decode %s: %w", EncodingLatin9, err)
	}
	return string(out), EncodingLatin9, nil
}

package parser

import "testing"

func TestForFile(t *testing.T) {
	tests := []struct {
		filename string
		wantErr  bool
	}{
		{"a.txt", false},
		{"a.MD", false},
		{"a.markdown", false},
		{"a.html", false},
		{"a.htm", false},
		{"a.pdf", false},
		{"a.docx", false},
		{"a.csv", true},
		{"noext", true},
	}
	for _, tt := range tests {
		t.Run(tt.filename, func(t *testing.T) {
			p, err := ForFile(tt.filename, Options{})
			if tt.wantErr {
				if err == nil {
					t.Errorf("expected error for %q", tt.filename)
				}
				return
			}
			if err != nil || p == nil {
				t.Errorf("expected parser for %q, got %v", tt.filename, err)
			}
			if IsSupportedExtension(tt.filename) == tt.wantErr {
				t.Errorf("IsSupportedExtension(%q) disagrees with ForFile", tt.filename)
			}
		})
	}
}

func TestForFile_PDFFallback(t *testing.T) {
	p, err := ForFile("a.pdf", Options{FallbackPdftotext: true})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if pdf, ok := p.(*PDFParser); !ok || !pdf.FallbackPdftotext {
		t.Errorf("expected PDF parser with fallback enabled, got %#v", p)
	}
}

func TestJoinPages(t *testing.T) {
	got := joinPages("page one\n\fpage two\f\n\f")
	if want := "page one\npage two"; got != want {
		t.Errorf("expected %q, got %q", want, got)
	}
}

package config

import (
	"errors"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/rbshaffer/constitute-tools/internal/tabulate"
)

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

const kenyaProfile = `name: kenya
description: Chapters and articles
header_regex:
  - 'CHAPTER [A-Z]+'
  - 'Article \d+\.'
preamble_level: 0
case_sensitive: true
output_format: ccp-multilingual
`

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write %s: %v", name, err)
	}
	return path
}

func TestDefaultProfile_IsValid(t *testing.T) {
	if err := DefaultProfile().Validate(); err != nil {
		t.Fatalf("default profile invalid: %v", err)
	}
}

func TestLoadProfiles(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "kenya.yaml", kenyaProfile)
	writeFile(t, dir, "notes.txt", "ignored")

	reg, err := LoadProfiles(dir, quietLogger())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	names := []string{}
	for _, p := range reg.List() {
		names = append(names, p.Name)
	}
	if strings.Join(names, ",") != "default,kenya" {
		t.Errorf("expected default and kenya, got %v", names)
	}

	p, err := reg.Get("kenya")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	opts := p.Options()
	if len(opts.HeaderPatterns) != 2 || !opts.CaseSensitive || opts.Format != tabulate.FormatCCPMultilingual {
		t.Errorf("unexpected options %+v", opts)
	}
}

func TestLoadProfiles_MissingDirectory(t *testing.T) {
	reg, err := LoadProfiles(filepath.Join(t.TempDir(), "absent"), quietLogger())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, err := reg.Get(""); err != nil {
		t.Errorf("expected default profile, got %v", err)
	}
}

func TestLoadProfiles_InvalidFileReported(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "broken.yaml", "name: broken\nheader_regex:\n  - 'Article (\\d+'\n")
	writeFile(t, dir, "kenya.yml", kenyaProfile)

	reg, err := LoadProfiles(dir, quietLogger())
	if err == nil || !strings.Contains(err.Error(), "broken.yaml") {
		t.Fatalf("expected error naming broken.yaml, got %v", err)
	}
	if reg != nil {
		t.Error("expected no registry on load error")
	}
}

func TestProfile_NameFromFile(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "ghana.yaml", "header_regex: ['Article \\d+']\n")

	reg := NewProfileRegistry(quietLogger())
	if err := reg.LoadFile(path); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, err := reg.Get("ghana"); err != nil {
		t.Errorf("expected profile named after file, got %v", err)
	}
}

func TestProfile_Validate(t *testing.T) {
	tests := []struct {
		name    string
		profile Profile
	}{
		{"no name", Profile{HeaderRegex: []string{"Article"}}},
		{"no patterns", Profile{Name: "x"}},
		{"bad pattern", Profile{Name: "x", HeaderRegex: []string{"("}}},
		{"preamble out of range", Profile{Name: "x", HeaderRegex: []string{"Article"}, PreambleLevel: 1}},
		{"bad format", Profile{Name: "x", HeaderRegex: []string{"Article"}, OutputFormat: "xml"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := tt.profile.Validate(); err == nil {
				t.Error("expected validation error")
			}
		})
	}
}

func TestProfileRegistry_GetUnknown(t *testing.T) {
	reg := NewProfileRegistry(quietLogger())
	if _, err := reg.Get("nope"); !errors.Is(err, ErrProfileNotFound) {
		t.Errorf("expected ErrProfileNotFound, got %v", err)
	}
}

func TestProfileRegistry_Watch(t *testing.T) {
	dir := t.TempDir()
	reg, err := LoadProfiles(dir, quietLogger())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := reg.Watch(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	defer reg.StopWatch()

	writeFile(t, dir, "kenya.yaml", kenyaProfile)

	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		if _, err := reg.Get("kenya"); err == nil {
			return
		}
		time.Sleep(20 * time.Millisecond)
	}
	t.Fatal("expected watcher to load the new profile")
}

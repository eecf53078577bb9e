// Package workspace manages the Constitute directory tree the command line
// tool reads inputs from and writes tabulations and reports into.
package workspace

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/rbshaffer/constitute-tools/internal/tabulate"
	"github.com/rbshaffer/constitute-tools/internal/tagging"
)

// Root is the directory Init creates under the chosen parent.
const Root = "Constitute"

// Subdirectories of Root.
const (
	ArticleNumbers = "Article_Numbers"
	CleanedTexts   = "Cleaned_Texts"
	RawTexts       = "Raw_Texts"
	Reports        = "Reports"
	TabulatedTexts = "Tabulated_Texts"
)

var subdirs = []string{ArticleNumbers, CleanedTexts, RawTexts, Reports, TabulatedTexts}

// ErrNotInitialized is returned by Open when the directory tree is missing.
var ErrNotInitialized = errors.New("workspace not initialized")

// Workspace is a Constitute directory tree rooted at Dir/Constitute.
type Workspace struct {
	Dir string
}

// Init creates the directory tree under dir, which must already exist.
// Directories that are already present are left alone.
func Init(dir string) (*Workspace, error) {
	info, err := os.Stat(dir)
	if err != nil {
		return nil, fmt.Errorf("workspace parent: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("workspace parent %s is not a directory", dir)
	}
	ws := &Workspace{Dir: dir}
	for _, sub := range subdirs {
		if err := os.MkdirAll(ws.path(sub), 0o755); err != nil {
			return nil, fmt.Errorf("create %s: %w", sub, err)
		}
	}
	return ws, nil
}

// Open returns the workspace under dir after checking that Init has run.
func Open(dir string) (*Workspace, error) {
	ws := &Workspace{Dir: dir}
	for _, sub := range subdirs {
		info, err := os.Stat(ws.path(sub))
		if err != nil || !info.IsDir() {
			return nil, fmt.Errorf("%w: %s missing", ErrNotInitialized, ws.path(sub))
		}
	}
	return ws, nil
}

func (ws *Workspace) path(parts ...string) string {
	return filepath.Join(append([]string{ws.Dir, Root}, parts...)...)
}

// DocName is the stem outputs for path are named after: the base name up to
// its first dot.
func DocName(path string) string {
	base := filepath.Base(path)
	if i := strings.IndexByte(base, '.'); i >= 0 {
		base = base[:i]
	}
	return base
}

func (ws *Workspace) TabulatedPath(name string) string {
	return ws.path(TabulatedTexts, name+".csv")
}

func (ws *Workspace) FailedTagsPath(name string) string {
	return ws.path(Reports, name+"_failed_tags.csv")
}

func (ws *Workspace) SkeletonPath(name string) string {
	return ws.path(Reports, name+"_skeleton.txt")
}

func (ws *Workspace) CleanedPath(name string) string {
	return ws.path(CleanedTexts, name+".txt")
}

// TagsPath is where tag records for name are looked up by default.
func (ws *Workspace) TagsPath(name string) string {
	return ws.path(ArticleNumbers, name+".csv")
}

// LoadTags reads tag records from path, or from TagsPath(name) when path is
// empty. A missing default file means no tagging and returns nil records; a
// missing explicit file is an error.
func (ws *Workspace) LoadTags(name, path string) ([]tagging.Record, string, error) {
	explicit := path != ""
	if !explicit {
		path = ws.TagsPath(name)
	}
	f, err := os.Open(path)
	if err != nil {
		if !explicit && errors.Is(err, os.ErrNotExist) {
			return nil, "", nil
		}
		return nil, path, fmt.Errorf("open tags: %w", err)
	}
	defer f.Close()

	records, err := tagging.ReadRecords(f)
	if err != nil {
		return nil, path, err
	}
	if records == nil {
		records = []tagging.Record{}
	}
	return records, path, nil
}

// Written lists the files one tabulation produced.
type Written struct {
	Rows       string
	Skeleton   string
	FailedTags string
}

// WriteResult writes the rows, the skeleton and, when some tags went
// unmatched, the failed tag report for name. A report left by an earlier run
// is removed once every tag matches.
func (ws *Workspace) WriteResult(name string, patterns []string, res *tabulate.Result) (Written, error) {
	out := Written{
		Rows:     ws.TabulatedPath(name),
		Skeleton: ws.SkeletonPath(name),
	}
	if err := writeFile(out.Rows, func(f *os.File) error {
		return tabulate.WriteRows(f, res.Rows)
	}); err != nil {
		return out, err
	}
	if err := writeFile(out.Skeleton, func(f *os.File) error {
		return WriteSkeleton(f, patterns, res.Outline)
	}); err != nil {
		return out, err
	}
	if len(res.Report) == 0 {
		if err := os.Remove(ws.FailedTagsPath(name)); err != nil && !errors.Is(err, os.ErrNotExist) {
			return out, fmt.Errorf("remove stale failed tag report: %w", err)
		}
		return out, nil
	}
	out.FailedTags = ws.FailedTagsPath(name)
	if err := writeFile(out.FailedTags, func(f *os.File) error {
		return tagging.WriteReport(f, res.Report)
	}); err != nil {
		return out, err
	}
	return out, nil
}

// WriteCleaned stores cleaned text for name.
func (ws *Workspace) WriteCleaned(name, text string) (string, error) {
	path := ws.CleanedPath(name)
	if err := os.WriteFile(path, []byte(text), 0o644); err != nil {
		return "", fmt.Errorf("write cleaned text: %w", err)
	}
	return path, nil
}

func writeFile(path string, write func(*os.File) error) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create %s: %w", filepath.Base(path), err)
	}
	if err := write(f); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

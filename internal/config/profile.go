package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"gopkg.in/fsnotify.v1"
	"gopkg.in/yaml.v3"

	"github.com/rbshaffer/constitute-tools/internal/header"
	"github.com/rbshaffer/constitute-tools/internal/markup"
	"github.com/rbshaffer/constitute-tools/internal/tabulate"
)

// ErrProfileNotFound is returned by ProfileRegistry.Get for unknown names.
var ErrProfileNotFound = errors.New("profile not found")

// DefaultProfileName is always registered.
const DefaultProfileName = "default"

// Profile is a named segmentation setup for one family of documents.
type Profile struct {
	Name          string   `yaml:"name" json:"name"`
	Description   string   `yaml:"description,omitempty" json:"description,omitempty"`
	HeaderRegex   []string `yaml:"header_regex" json:"header_regex"`
	PreambleLevel int      `yaml:"preamble_level" json:"preamble_level"`
	CaseSensitive bool     `yaml:"case_sensitive" json:"case_sensitive"`
	OutputFormat  string   `yaml:"output_format,omitempty" json:"output_format,omitempty"`
}

// DefaultProfile splits on titles, chapters and articles, with the preamble
// ending at the first title.
func DefaultProfile() *Profile {
	return &Profile{
		Name:        DefaultProfileName,
		Description: "Titles, chapters and numbered articles",
		HeaderRegex: []string{
			`Title\s+[IVXLC\d]+\b`,
			`Chapter\s+[IVXLC\d]+\b`,
			`Article\s+\d+[A-Za-z]?\.?(?!\d)`,
		},
		PreambleLevel: 0,
		OutputFormat:  string(tabulate.FormatCCP),
	}
}

// Validate checks that the profile's patterns compile and its preamble level
// and format are usable.
func (p *Profile) Validate() error {
	if strings.TrimSpace(p.Name) == "" {
		return fmt.Errorf("profile name is required")
	}
	if len(p.HeaderRegex) == 0 {
		return fmt.Errorf("profile %q: header_regex is empty", p.Name)
	}
	if _, err := header.CompileAll(p.HeaderRegex, header.Options{CaseSensitive: p.CaseSensitive}); err != nil {
		return fmt.Errorf("profile %q: %w", p.Name, err)
	}
	if p.PreambleLevel < markup.NoPreamble || p.PreambleLevel >= len(p.HeaderRegex) {
		return fmt.Errorf("profile %q: preamble_level %d out of range", p.Name, p.PreambleLevel)
	}
	if _, err := tabulate.ParseFormat(p.OutputFormat); err != nil {
		return fmt.Errorf("profile %q: %w", p.Name, err)
	}
	return nil
}

// Options converts the profile into tabulate options. The format is assumed
// to have passed Validate.
func (p *Profile) Options() tabulate.Options {
	format, _ := tabulate.ParseFormat(p.OutputFormat)
	return tabulate.Options{
		HeaderPatterns: append([]string(nil), p.HeaderRegex...),
		PreambleLevel:  p.PreambleLevel,
		CaseSensitive:  p.CaseSensitive,
		Format:         format,
	}
}

// ProfileRegistry holds the loaded profiles. It is safe for concurrent use
// and can follow its directory for changes.
type ProfileRegistry struct {
	mu       sync.RWMutex
	profiles map[string]*Profile
	dir      string
	log      *slog.Logger

	watcher *fsnotify.Watcher
	stop    chan struct{}
}

// NewProfileRegistry returns a registry holding only the default profile.
func NewProfileRegistry(log *slog.Logger) *ProfileRegistry {
	if log == nil {
		log = slog.Default()
	}
	return &ProfileRegistry{
		profiles: builtinProfiles(),
		log:      log,
	}
}

// LoadProfiles creates a registry and loads every YAML file in dir. A missing
// directory leaves only the default profile.
func LoadProfiles(dir string, log *slog.Logger) (*ProfileRegistry, error) {
	r := NewProfileRegistry(log)
	r.dir = dir
	if err := r.Reload(); err != nil {
		return nil, err
	}
	return r, nil
}

func builtinProfiles() map[string]*Profile {
	def := DefaultProfile()
	return map[string]*Profile{def.Name: def}
}

// Register adds or replaces a profile after validating it.
func (r *ProfileRegistry) Register(p *Profile) error {
	if p == nil {
		return fmt.Errorf("profile cannot be nil")
	}
	if err := p.Validate(); err != nil {
		return fmt.Errorf("invalid profile: %w", err)
	}
	r.mu.Lock()
	r.profiles[p.Name] = p
	r.mu.Unlock()
	return nil
}

// Get returns the named profile; an empty name selects the default.
func (r *ProfileRegistry) Get(name string) (*Profile, error) {
	if name == "" {
		name = DefaultProfileName
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	p, ok := r.profiles[name]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrProfileNotFound, name)
	}
	return p, nil
}

// List returns all profiles sorted by name.
func (r *ProfileRegistry) List() []*Profile {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]*Profile, 0, len(r.profiles))
	for _, p := range r.profiles {
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// LoadFile reads one YAML profile. A profile without a name takes the file's
// base name.
func (r *ProfileRegistry) LoadFile(path string) error {
	p, err := readProfile(path)
	if err != nil {
		return err
	}
	return r.Register(p)
}

func readProfile(path string) (*Profile, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading file: %w", err)
	}
	var p Profile
	if err := yaml.Unmarshal(data, &p); err != nil {
		return nil, fmt.Errorf("parsing YAML %s: %w", path, err)
	}
	if p.Name == "" {
		base := filepath.Base(path)
		p.Name = strings.TrimSuffix(base, filepath.Ext(base))
	}
	return &p, nil
}

// Reload rebuilds the registry from its directory and swaps it in whole, so
// readers never see a half-loaded set.
func (r *ProfileRegistry) Reload() error {
	profiles := builtinProfiles()
	if r.dir == "" {
		r.mu.Lock()
		r.profiles = profiles
		r.mu.Unlock()
		return nil
	}

	entries, err := os.ReadDir(r.dir)
	if err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("reading directory %s: %w", r.dir, err)
	}

	var loadErrors []string
	for _, entry := range entries {
		if entry.IsDir() || !isYAML(entry.Name()) {
			continue
		}
		p, err := readProfile(filepath.Join(r.dir, entry.Name()))
		if err == nil {
			err = p.Validate()
		}
		if err != nil {
			loadErrors = append(loadErrors, fmt.Sprintf("%s: %v", entry.Name(), err))
			continue
		}
		profiles[p.Name] = p
	}

	r.mu.Lock()
	r.profiles = profiles
	r.mu.Unlock()

	if len(loadErrors) > 0 {
		return fmt.Errorf("errors loading profiles: %s", strings.Join(loadErrors, "; "))
	}
	r.log.Info("profiles loaded", "dir", r.dir, "count", len(profiles))
	return nil
}

// Watch reloads profiles whenever a YAML file in the directory changes.
func (r *ProfileRegistry) Watch() error {
	if r.dir == "" {
		return fmt.Errorf("no directory configured for watching")
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("creating watcher: %w", err)
	}
	if err := watcher.Add(r.dir); err != nil {
		watcher.Close()
		return fmt.Errorf("watching directory %s: %w", r.dir, err)
	}

	r.watcher = watcher
	r.stop = make(chan struct{})
	go r.watchLoop(watcher, r.stop)
	return nil
}

func (r *ProfileRegistry) watchLoop(watcher *fsnotify.Watcher, stop <-chan struct{}) {
	for {
		select {
		case <-stop:
			return

		case event, ok := <-watcher.Events:
			if !ok {
				return
			}
			if !isYAML(event.Name) {
				continue
			}
			switch {
			case event.Op&fsnotify.Create == fsnotify.Create, event.Op&fsnotify.Write == fsnotify.Write:
				if err := r.LoadFile(event.Name); err != nil {
					r.log.Warn("profile reload failed", "file", event.Name, "error", err)
					continue
				}
				r.log.Info("profile updated", "file", event.Name)
			case event.Op&fsnotify.Remove == fsnotify.Remove, event.Op&fsnotify.Rename == fsnotify.Rename:
				if err := r.Reload(); err != nil {
					r.log.Warn("profile reload failed", "error", err)
				}
			}

		case err, ok := <-watcher.Errors:
			if !ok {
				return
			}
			r.log.Warn("profile watcher error", "error", err)
		}
	}
}

// StopWatch stops following the profile directory.
func (r *ProfileRegistry) StopWatch() {
	if r.stop != nil {
		close(r.stop)
		r.stop = nil
	}
	if r.watcher != nil {
		r.watcher.Close()
		r.watcher = nil
	}
}

func isYAML(name string) bool {
	return strings.HasSuffix(name, ".yaml") || strings.HasSuffix(name, ".yml")
}

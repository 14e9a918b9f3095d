package project

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
)

// Project is one portable browser-automation project document. It is loaded
// once and treated as immutable for the duration of a run, except for the
// controlled command injection in inject.go.
type Project struct {
	ID           string            `json:"id"`
	Name         string            `json:"name"`
	Version      string            `json:"version"`
	URL          string            `json:"url"`
	Tests        []Test            `json:"tests"`
	Suites       []Suite           `json:"suites"`
	Dependencies map[string]string `json:"dependencies,omitempty"`

	// Snapshot is an opaque replay payload handed to the code generator.
	Snapshot json.RawMessage `json:"snapshot,omitempty"`

	// Path is the directory the document was loaded from.
	Path string `json:"-"`

	// SourcePath is the document file itself.
	SourcePath string `json:"-"`
}

// Test is a named, ordered sequence of commands.
type Test struct {
	ID       string    `json:"id"`
	Name     string    `json:"name"`
	Commands []Command `json:"commands"`
}

// Command is a single declarative automation step.
type Command struct {
	ID      string     `json:"id"`
	Comment string     `json:"comment"`
	Command string     `json:"command"`
	Target  string     `json:"target"`
	Targets [][]string `json:"targets,omitempty"`
	Value   string     `json:"value"`
}

// Suite groups tests. Parallel suites run every member as an independently
// invoked script, sequential ones as a single combined script.
type Suite struct {
	ID             string   `json:"id"`
	Name           string   `json:"name"`
	Parallel       bool     `json:"parallel"`
	PersistSession bool     `json:"persistSession"`
	Timeout        int64    `json:"timeout"`
	Tests          []string `json:"tests"`
}

// ValidationError reports a malformed or empty project. It is fatal to that
// project only.
type ValidationError struct {
	Project string
	Reason  string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid project %q: %s", e.Project, e.Reason)
}

// Load reads and parses a project document. Commands missing an id are
// assigned a fresh one so downstream identity invariants hold even for
// hand-edited documents.
func Load(path string) (*Project, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read project file: %w", err)
	}

	var p Project
	if err := json.Unmarshal(data, &p); err != nil {
		return nil, &ValidationError{Project: path, Reason: fmt.Sprintf("not a parsable project document: %s", err)}
	}

	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, err
	}
	p.SourcePath = abs
	p.Path = filepath.Dir(abs)

	for ti := range p.Tests {
		for ci := range p.Tests[ti].Commands {
			if p.Tests[ti].Commands[ci].ID == "" {
				p.Tests[ti].Commands[ci].ID = uuid.NewString()
			}
		}
	}

	return &p, nil
}

// AttachSnapshot loads the replay sidecar next to the source document, if one
// exists. Absence is not an error.
func (p *Project) AttachSnapshot() error {
	if p.SourcePath == "" {
		return nil
	}
	pth := strings.TrimSuffix(p.SourcePath, filepath.Ext(p.SourcePath)) + ".snapshot.json"
	data, err := os.ReadFile(pth)
	if os.IsNotExist(err) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to read snapshot %s: %w", pth, err)
	}
	p.Snapshot = data
	return nil
}

// Validate checks the project shape before any sandbox work begins.
func (p *Project) Validate() error {
	if p.Name == "" {
		return &ValidationError{Project: p.SourcePath, Reason: "project has no name"}
	}
	if len(p.Tests) == 0 {
		return &ValidationError{Project: p.Name, Reason: "project has no tests"}
	}

	testNames := map[string]bool{}
	commandIDs := map[string]bool{}
	for _, t := range p.Tests {
		if t.Name == "" {
			return &ValidationError{Project: p.Name, Reason: "test without a name"}
		}
		if testNames[t.Name] {
			return &ValidationError{Project: p.Name, Reason: fmt.Sprintf("duplicate test name %q", t.Name)}
		}
		testNames[t.Name] = true

		for _, c := range t.Commands {
			if c.ID == "" {
				return &ValidationError{Project: p.Name, Reason: fmt.Sprintf("command without an id in test %q", t.Name)}
			}
			if commandIDs[c.ID] {
				return &ValidationError{Project: p.Name, Reason: fmt.Sprintf("duplicate command id %q", c.ID)}
			}
			commandIDs[c.ID] = true
		}
	}
	return nil
}

// TestByID resolves a suite member reference, by id first, then by name.
func (p *Project) TestByID(ref string) (Test, bool) {
	for _, t := range p.Tests {
		if t.ID == ref {
			return t, true
		}
	}
	for _, t := range p.Tests {
		if t.Name == ref {
			return t, true
		}
	}
	return Test{}, false
}

// Resolve expands CLI glob patterns into a deduplicated, ordered list of
// project document paths.
func Resolve(patterns []string) ([]string, error) {
	var paths []string
	seen := map[string]bool{}

	for _, pattern := range patterns {
		matches, err := filepath.Glob(pattern)
		if err != nil {
			return nil, fmt.Errorf("bad project pattern %q: %w", pattern, err)
		}
		for _, match := range matches {
			abs, err := filepath.Abs(match)
			if err != nil {
				return nil, err
			}
			if seen[abs] {
				continue
			}
			seen[abs] = true
			paths = append(paths, abs)
		}
	}
	return paths, nil
}

// Slug derives a filesystem-safe name from a human-readable one. It is
// deterministic so sandbox and artifact names are stable across runs.
func Slug(name string) string {
	var b strings.Builder
	for _, r := range strings.ToLower(name) {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9', r == '-', r == '_', r == '.':
			b.WriteRune(r)
		default:
			b.WriteRune('-')
		}
	}
	slug := strings.Trim(b.String(), "-")
	if slug == "" {
		return "untitled"
	}
	return slug
}

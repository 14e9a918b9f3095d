// Package sandbox owns the isolated working directory a project is
// materialized into. At most one sandbox is active at a time; its path is
// tracked process-wide so interruption handling can tear it down from outside
// the normal control flow.
package sandbox

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/bitrise-io/go-utils/v2/log"

	"github.com/sideworks/side-runner/project"
)

const dirPrefix = "side-runner-"

// Manager creates and destroys per-project sandboxes.
type Manager interface {
	// Create force-removes anything at the project's deterministic sandbox
	// path, recreates it empty and records it as the current sandbox.
	Create(projectName string) (string, error)
	// Destroy removes the directory tree. It is idempotent; absence is not
	// an error.
	Destroy(path string) error
	// Current returns the active sandbox path, or "" when none is.
	Current() string
}

type manager struct {
	base   string
	logger log.Logger

	mu      sync.Mutex
	current string
}

// NewManager returns a Manager rooting sandboxes under base, or under the
// system temp directory when base is empty.
func NewManager(base string, logger log.Logger) Manager {
	if base == "" {
		base = os.TempDir()
	}
	return &manager{base: base, logger: logger}
}

func (m *manager) Create(projectName string) (string, error) {
	pth := filepath.Join(m.base, dirPrefix+project.Slug(projectName))

	if err := os.RemoveAll(pth); err != nil {
		return "", fmt.Errorf("failed to reset sandbox at %s: %w", pth, err)
	}
	if err := os.MkdirAll(pth, 0o755); err != nil {
		return "", fmt.Errorf("failed to create sandbox at %s: %w", pth, err)
	}

	m.mu.Lock()
	m.current = pth
	m.mu.Unlock()

	m.logger.Debugf("Sandbox created: %s", pth)
	return pth, nil
}

func (m *manager) Destroy(pth string) error {
	if pth == "" {
		return nil
	}
	if err := os.RemoveAll(pth); err != nil {
		return fmt.Errorf("failed to remove sandbox at %s: %w", pth, err)
	}

	m.mu.Lock()
	if m.current == pth {
		m.current = ""
	}
	m.mu.Unlock()

	m.logger.Debugf("Sandbox removed: %s", pth)
	return nil
}

func (m *manager) Current() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.current
}

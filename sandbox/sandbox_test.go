package sandbox

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/bitrise-io/go-utils/v2/log"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func Test_GivenProjectName_WhenCreated_ThenDeterministicEmptyDirectory(t *testing.T) {
	base := t.TempDir()
	m := NewManager(base, log.NewLogger())

	pth, err := m.Create("Smoke Tests")
	require.NoError(t, err)

	assert.Equal(t, filepath.Join(base, "side-runner-smoke-tests"), pth)
	entries, err := os.ReadDir(pth)
	require.NoError(t, err)
	assert.Empty(t, entries)
	assert.Equal(t, pth, m.Current())
}

func Test_GivenStaleSandboxWithContent_WhenCreated_ThenReset(t *testing.T) {
	base := t.TempDir()
	m := NewManager(base, log.NewLogger())

	pth, err := m.Create("Smoke")
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(filepath.Join(pth, "stale.txt"), []byte("old"), 0o600))

	again, err := m.Create("Smoke")
	require.NoError(t, err)

	assert.Equal(t, pth, again)
	_, err = os.Stat(filepath.Join(pth, "stale.txt"))
	assert.True(t, os.IsNotExist(err))
}

func Test_GivenSandbox_WhenDestroyed_ThenGoneAndCurrentCleared(t *testing.T) {
	m := NewManager(t.TempDir(), log.NewLogger())

	pth, err := m.Create("Smoke")
	require.NoError(t, err)

	require.NoError(t, m.Destroy(pth))

	_, err = os.Stat(pth)
	assert.True(t, os.IsNotExist(err))
	assert.Empty(t, m.Current())
}

func Test_GivenMissingPath_WhenDestroyed_ThenNoError(t *testing.T) {
	m := NewManager(t.TempDir(), log.NewLogger())

	assert.NoError(t, m.Destroy(filepath.Join(t.TempDir(), "never-created")))
	assert.NoError(t, m.Destroy(""))
}

func Test_GivenTwoProjects_WhenCreatedInTurn_ThenCurrentTracksLatest(t *testing.T) {
	m := NewManager(t.TempDir(), log.NewLogger())

	first, err := m.Create("First")
	require.NoError(t, err)
	second, err := m.Create("Second")
	require.NoError(t, err)

	assert.Equal(t, second, m.Current())

	require.NoError(t, m.Destroy(first))
	assert.Equal(t, second, m.Current())
}

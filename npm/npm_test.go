package npm

import (
	"errors"
	"testing"

	"github.com/bitrise-io/go-utils/v2/log"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func Test_GivenNoDependencies_WhenInstalled_ThenNothingSpawned(t *testing.T) {
	// A nil factory would panic if Install tried to spawn anything.
	i := NewInstaller(log.NewLogger(), nil)

	assert.NoError(t, i.Install(t.TempDir(), nil))
	assert.NoError(t, i.Install(t.TempDir(), map[string]string{}))
}

func TestInstallError(t *testing.T) {
	cause := errors.New("exit status 1")
	err := &InstallError{ExitCode: 1, Err: cause}

	assert.Equal(t, "dependency install exited with code 1", err.Error())
	require.ErrorIs(t, err, cause)
}

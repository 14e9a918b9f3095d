// Package npm runs the dependency installer inside a sandbox.
package npm

import (
	"fmt"
	"os"

	"github.com/bitrise-io/go-utils/v2/command"
	"github.com/bitrise-io/go-utils/v2/log"
)

// Installer resolves and installs a project's declared third-party packages
// into its sandbox before the runner engine starts.
type Installer interface {
	Install(sandboxPath string, dependencies map[string]string) error
}

// InstallError reports a non-zero installer exit. It is fatal to that project
// only.
type InstallError struct {
	ExitCode int
	Err      error
}

func (e *InstallError) Error() string {
	return fmt.Sprintf("dependency install exited with code %d", e.ExitCode)
}

func (e *InstallError) Unwrap() error {
	return e.Err
}

type installer struct {
	logger         log.Logger
	commandFactory command.Factory
}

// NewInstaller ...
func NewInstaller(logger log.Logger, commandFactory command.Factory) Installer {
	return &installer{logger: logger, commandFactory: commandFactory}
}

// Install spawns npm in the sandbox with inherited stdio. The declared
// dependencies are already listed in the sandbox manifest, so a plain install
// resolves them. Empty dependencies succeed without spawning anything.
func (i *installer) Install(sandboxPath string, dependencies map[string]string) error {
	if len(dependencies) == 0 {
		i.logger.Debugf("No dependencies declared, skipping install")
		return nil
	}

	cmd := i.commandFactory.Create("npm", []string{"install"}, &command.Opts{
		Stdout: os.Stdout,
		Stderr: os.Stderr,
		Dir:    sandboxPath,
	})

	i.logger.Printf("$ %s", cmd.PrintableCommandArgs())
	exitCode, err := cmd.RunAndReturnExitCode()
	if err != nil {
		return &InstallError{ExitCode: exitCode, Err: err}
	}
	return nil
}

// Package jest invokes the test runner engine against a materialized sandbox.
package jest

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"github.com/bitrise-io/go-utils/v2/command"
	"github.com/bitrise-io/go-utils/v2/log"
	shellquote "github.com/kballard/go-shellquote"

	"github.com/sideworks/side-runner/config"
)

// Runner drives one runner engine process per project. Exactly one engine
// process is active at a time; the batch controller is strictly sequential.
type Runner interface {
	Run(projectName, sandboxPath string, cfg config.Config) error
}

// RunError reports a non-zero runner engine exit. Test failures and engine
// crashes are indistinguishable at this layer; both fail the project.
type RunError struct {
	ExitCode int
	Err      error
}

func (e *RunError) Error() string {
	return fmt.Sprintf("test run exited with code %d", e.ExitCode)
}

func (e *RunError) Unwrap() error {
	return e.Err
}

type runner struct {
	logger         log.Logger
	commandFactory command.Factory
}

// NewRunner ...
func NewRunner(logger log.Logger, commandFactory command.Factory) Runner {
	return &runner{logger: logger, commandFactory: commandFactory}
}

func (r *runner) Run(projectName, sandboxPath string, cfg config.Config) error {
	args, err := Args(projectName, cfg)
	if err != nil {
		return err
	}

	cmd := r.commandFactory.Create("jest", args, &command.Opts{
		Stdout: os.Stdout,
		Stderr: os.Stderr,
		Dir:    sandboxPath,
	})

	r.logger.Printf("$ %s", cmd.PrintableCommandArgs())
	exitCode, err := cmd.RunAndReturnExitCode()
	if err != nil {
		return &RunError{ExitCode: exitCode, Err: err}
	}
	return nil
}

// Args derives the engine argument set from the resolved configuration: match
// patterns for both flat suite files and per-test files nested in parallel
// suite directories, the optional worker cap, the optional machine-readable
// output target and any extra engine options from the config file.
func Args(projectName string, cfg config.Config) ([]string, error) {
	args := []string{
		"--testMatch",
		fmt.Sprintf("<rootDir>/*%s*.test.js", cfg.Filter),
		fmt.Sprintf("<rootDir>/*%s*/*.test.js", cfg.Filter),
	}

	if cfg.MaxWorkers > 0 {
		args = append(args, "--maxWorkers", strconv.Itoa(cfg.MaxWorkers))
	}

	if cfg.OutputDir != "" {
		dir := cfg.OutputDir
		if !filepath.IsAbs(dir) {
			dir = filepath.Join(cfg.WorkingDir, dir)
		}
		args = append(args, "--json", "--outputFile", filepath.Join(dir, projectName+".json"))
	}

	if cfg.RunnerOptions != "" {
		extra, err := shellquote.Split(cfg.RunnerOptions)
		if err != nil {
			return nil, fmt.Errorf("failed to split runner options %q: %w", cfg.RunnerOptions, err)
		}
		args = append(args, extra...)
	}

	return args, nil
}

// Package orchestrator coordinates the per-project pipeline: materialize into
// a sandbox, install dependencies, drive the runner engine, tear the sandbox
// down. Projects are processed strictly in order; one project's failure never
// halts the batch.
package orchestrator

import (
	"context"
	"errors"
	"fmt"

	"github.com/bitrise-io/go-utils/v2/log"

	"github.com/sideworks/side-runner/codegen"
	"github.com/sideworks/side-runner/config"
	"github.com/sideworks/side-runner/jest"
	"github.com/sideworks/side-runner/npm"
	"github.com/sideworks/side-runner/project"
	"github.com/sideworks/side-runner/sandbox"
)

// ErrBatchFailed is returned by RunAll when at least one project failed.
var ErrBatchFailed = errors.New("one or more projects failed")

// Orchestrator ...
type Orchestrator struct {
	logger    log.Logger
	sandboxes sandbox.Manager
	generator codegen.Generator
	installer npm.Installer
	runner    jest.Runner
}

// New ...
func New(logger log.Logger, sandboxes sandbox.Manager, generator codegen.Generator, installer npm.Installer, runner jest.Runner) Orchestrator {
	return Orchestrator{
		logger:    logger,
		sandboxes: sandboxes,
		generator: generator,
		installer: installer,
		runner:    runner,
	}
}

// RunAll processes projects strictly in order, one at a time. Every project
// is attempted regardless of earlier failures; the batch settles after the
// last one. Cancellation is observed between stages, never mid-stage.
func (o Orchestrator) RunAll(ctx context.Context, projects []*project.Project, cfg config.Config) error {
	failed := false
	for _, p := range projects {
		if ctx.Err() != nil {
			o.logger.Warnf("Batch interrupted, %s not attempted", p.Name)
			failed = true
			continue
		}
		if err := o.runProject(ctx, p, cfg); err != nil {
			o.logger.Errorf("Project %s failed: %s", p.Name, err)
			failed = true
			continue
		}
		if !cfg.ExtractOnly {
			o.logger.Donef("Project %s succeeded", p.Name)
		}
	}

	if err := ctx.Err(); err != nil {
		return err
	}
	if failed {
		return ErrBatchFailed
	}
	return nil
}

func (o Orchestrator) runProject(ctx context.Context, p *project.Project, cfg config.Config) error {
	o.logger.Println()
	o.logger.Infof("Running project %s", p.Name)

	outdated, err := p.CheckVersion()
	if err != nil {
		return err
	}
	if outdated {
		o.logger.Warnf("Project %s uses outdated format version %s (current: %s), continuing on a best-effort basis", p.Name, p.Version, project.SupportedVersion)
	}

	sandboxPath, materializeErr := o.Materialize(p, cfg)

	// The sandbox may exist even when materialization failed part-way
	// through; teardown is unconditional unless a debug mode keeps it.
	defer func() {
		if cfg.KeepSandbox {
			if pth := o.sandboxes.Current(); pth != "" {
				o.logger.Printf("Sandbox kept for inspection: %s", pth)
			}
			return
		}
		if err := o.sandboxes.Destroy(o.sandboxes.Current()); err != nil {
			o.logger.Warnf("Sandbox teardown: %s", err)
		}
	}()

	if materializeErr != nil {
		return materializeErr
	}

	if cfg.ExtractOnly {
		o.logger.Donef("Project %s extracted to %s", p.Name, sandboxPath)
		return nil
	}

	if err := ctx.Err(); err != nil {
		return err
	}
	if len(p.Dependencies) > 0 {
		if err := o.installer.Install(sandboxPath, p.Dependencies); err != nil {
			return fmt.Errorf("project %s: %w", p.Name, err)
		}
	}

	if err := ctx.Err(); err != nil {
		return err
	}
	if err := o.runner.Run(p.Name, sandboxPath, cfg); err != nil {
		return fmt.Errorf("project %s: %w", p.Name, err)
	}
	return nil
}

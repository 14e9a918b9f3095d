package orchestrator

import (
	"context"
	"testing"

	"github.com/bitrise-io/go-utils/v2/log"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/sideworks/side-runner/codegen"
	"github.com/sideworks/side-runner/config"
	"github.com/sideworks/side-runner/jest"
	"github.com/sideworks/side-runner/orchestrator/mocks"
	"github.com/sideworks/side-runner/project"
)

type collaborators struct {
	sandboxes *mocks.Manager
	generator *mocks.Generator
	installer *mocks.Installer
	runner    *mocks.Runner
}

func newOrchestrator(t *testing.T) (Orchestrator, collaborators) {
	c := collaborators{
		sandboxes: mocks.NewManager(t),
		generator: mocks.NewGenerator(t),
		installer: mocks.NewInstaller(t),
		runner:    mocks.NewRunner(t),
	}
	return New(log.NewLogger(), c.sandboxes, c.generator, c.installer, c.runner), c
}

func validProject(name string) *project.Project {
	return &project.Project{
		Name:    name,
		Version: "2.0",
		Tests: []project.Test{{
			ID:   "t1",
			Name: "login",
			Commands: []project.Command{
				{ID: name + "-c1", Command: "open", Target: "/"},
			},
		}},
	}
}

func generatedOutput() *codegen.Output {
	return &codegen.Output{
		Tests:        map[string]string{"login": "async (ctx) => {\n}"},
		GlobalConfig: "const configuration = {};\n",
	}
}

func Test_GivenHealthyProject_WhenRun_ThenPipelineRunsAndSandboxDestroyed(t *testing.T) {
	o, c := newOrchestrator(t)
	dir := t.TempDir()

	c.sandboxes.On("Create", "One").Return(dir, nil).Once()
	c.generator.On("Generate", mock.Anything, mock.Anything, mock.Anything).Return(generatedOutput(), nil).Once()
	c.runner.On("Run", "One", dir, mock.Anything).Return(nil).Once()
	c.sandboxes.On("Current").Return(dir).Once()
	c.sandboxes.On("Destroy", dir).Return(nil).Once()

	err := o.RunAll(context.Background(), []*project.Project{validProject("One")}, config.Config{})

	require.NoError(t, err)
	c.installer.AssertNotCalled(t, "Install", mock.Anything, mock.Anything)
}

func Test_GivenMiddleProjectFails_WhenRunAll_ThenOthersStillAttempted(t *testing.T) {
	o, c := newOrchestrator(t)
	dir := t.TempDir()

	c.sandboxes.On("Create", mock.Anything).Return(dir, nil).Times(3)
	c.generator.On("Generate", mock.Anything, mock.Anything, mock.Anything).Return(generatedOutput(), nil).Times(3)
	c.runner.On("Run", "Two", dir, mock.Anything).Return(&jest.RunError{ExitCode: 1}).Once()
	c.runner.On("Run", mock.Anything, dir, mock.Anything).Return(nil).Twice()
	c.sandboxes.On("Current").Return(dir).Times(3)
	c.sandboxes.On("Destroy", dir).Return(nil).Times(3)

	projects := []*project.Project{validProject("One"), validProject("Two"), validProject("Three")}
	err := o.RunAll(context.Background(), projects, config.Config{})

	assert.ErrorIs(t, err, ErrBatchFailed)
	c.runner.AssertNumberOfCalls(t, "Run", 3)
}

func Test_GivenProjectWithDependencies_WhenRun_ThenInstallPrecedesRun(t *testing.T) {
	o, c := newOrchestrator(t)
	dir := t.TempDir()
	p := validProject("One")
	p.Dependencies = map[string]string{"left-pad": "^1.3.0"}

	c.sandboxes.On("Create", "One").Return(dir, nil).Once()
	c.generator.On("Generate", mock.Anything, mock.Anything, mock.Anything).Return(generatedOutput(), nil).Once()
	c.installer.On("Install", dir, p.Dependencies).Return(nil).Once()
	c.runner.On("Run", "One", dir, mock.Anything).Return(nil).Once()
	c.sandboxes.On("Current").Return(dir).Once()
	c.sandboxes.On("Destroy", dir).Return(nil).Once()

	err := o.RunAll(context.Background(), []*project.Project{p}, config.Config{})

	require.NoError(t, err)
}

func Test_GivenFutureFormatVersion_WhenRun_ThenFailsBeforeAnySandboxWork(t *testing.T) {
	o, c := newOrchestrator(t)
	p := validProject("One")
	p.Version = "3.0"

	err := o.RunAll(context.Background(), []*project.Project{p}, config.Config{})

	assert.ErrorIs(t, err, ErrBatchFailed)
	c.sandboxes.AssertNotCalled(t, "Create", mock.Anything)
}

func Test_GivenInvalidProject_WhenRun_ThenSandboxStillTornDown(t *testing.T) {
	o, c := newOrchestrator(t)
	p := validProject("One")
	p.Tests = nil

	c.sandboxes.On("Current").Return("").Once()
	c.sandboxes.On("Destroy", "").Return(nil).Once()

	err := o.RunAll(context.Background(), []*project.Project{p}, config.Config{})

	assert.ErrorIs(t, err, ErrBatchFailed)
	c.generator.AssertNotCalled(t, "Generate", mock.Anything, mock.Anything, mock.Anything)
}

func Test_GivenExtractOnly_WhenRun_ThenNoInstallNoRunSandboxKept(t *testing.T) {
	o, c := newOrchestrator(t)
	dir := t.TempDir()
	p := validProject("One")
	p.Dependencies = map[string]string{"left-pad": "^1.3.0"}

	c.sandboxes.On("Create", "One").Return(dir, nil).Once()
	c.generator.On("Generate", mock.Anything, mock.Anything, mock.Anything).Return(generatedOutput(), nil).Once()
	c.sandboxes.On("Current").Return(dir).Once()

	cfg := config.Config{ExtractOnly: true, KeepSandbox: true}
	err := o.RunAll(context.Background(), []*project.Project{p}, cfg)

	require.NoError(t, err)
	c.installer.AssertNotCalled(t, "Install", mock.Anything, mock.Anything)
	c.runner.AssertNotCalled(t, "Run", mock.Anything, mock.Anything, mock.Anything)
	c.sandboxes.AssertNotCalled(t, "Destroy", mock.Anything)
}

func Test_GivenKeepSandbox_WhenRun_ThenSandboxSurvives(t *testing.T) {
	o, c := newOrchestrator(t)
	dir := t.TempDir()

	c.sandboxes.On("Create", "One").Return(dir, nil).Once()
	c.generator.On("Generate", mock.Anything, mock.Anything, mock.Anything).Return(generatedOutput(), nil).Once()
	c.runner.On("Run", "One", dir, mock.Anything).Return(nil).Once()
	c.sandboxes.On("Current").Return(dir).Once()

	err := o.RunAll(context.Background(), []*project.Project{validProject("One")}, config.Config{KeepSandbox: true})

	require.NoError(t, err)
	c.sandboxes.AssertNotCalled(t, "Destroy", mock.Anything)
}

func Test_GivenCancelledContext_WhenRunAll_ThenNothingAttempted(t *testing.T) {
	o, c := newOrchestrator(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := o.RunAll(ctx, []*project.Project{validProject("One"), validProject("Two")}, config.Config{})

	assert.ErrorIs(t, err, context.Canceled)
	c.sandboxes.AssertNotCalled(t, "Create", mock.Anything)
}

func Test_GivenCancellationAfterMaterialize_WhenRun_ThenInstallAndRunSkipped(t *testing.T) {
	o, c := newOrchestrator(t)
	dir := t.TempDir()
	ctx, cancel := context.WithCancel(context.Background())
	p := validProject("One")
	p.Dependencies = map[string]string{"left-pad": "^1.3.0"}

	c.sandboxes.On("Create", "One").Return(dir, nil).Once().Run(func(mock.Arguments) { cancel() })
	c.generator.On("Generate", mock.Anything, mock.Anything, mock.Anything).Return(generatedOutput(), nil).Once()
	c.sandboxes.On("Current").Return(dir).Once()
	c.sandboxes.On("Destroy", dir).Return(nil).Once()

	err := o.RunAll(ctx, []*project.Project{p}, config.Config{})

	assert.ErrorIs(t, err, context.Canceled)
	c.installer.AssertNotCalled(t, "Install", mock.Anything, mock.Anything)
	c.runner.AssertNotCalled(t, "Run", mock.Anything, mock.Anything, mock.Anything)
}

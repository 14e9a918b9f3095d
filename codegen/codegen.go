// Package codegen defines the code generator contract: the translation of a
// declarative project document into executable JavaScript test sources, plus a
// built-in emitter implementing it.
package codegen

import (
	"fmt"

	"github.com/sideworks/side-runner/config"
	"github.com/sideworks/side-runner/project"
)

// Options controls generation behavior.
type Options struct {
	// SilenceErrors makes per-command translation failures non-fatal: the
	// offending command is skipped with a warning instead of failing the
	// whole project. Fatal generator errors (unresolvable suite members,
	// broken documents) still fail generation.
	SilenceErrors bool
}

// SuiteKind tags the two suite shapes a generator may emit.
type SuiteKind int

const (
	// SuiteSequential suites are one combined script.
	SuiteSequential SuiteKind = iota
	// SuiteParallel suites are one independently runnable script per test.
	SuiteParallel
)

// TestCode is one generated per-test entry of a parallel suite.
type TestCode struct {
	Name string
	Code string
}

// SuiteCode is the generated form of one suite. Sequential suites carry Code,
// parallel ones carry Tests; the other field is empty.
type SuiteCode struct {
	Name           string
	Kind           SuiteKind
	PersistSession bool
	Code           string
	Tests          []TestCode
}

// Output is the complete generation result for one project: a flat table of
// test bodies keyed by test name, one code block per suite, and a shared
// global-configuration preamble every generated file starts from.
type Output struct {
	Tests        map[string]string
	Suites       []SuiteCode
	GlobalConfig string
}

// Generator translates a project document into runnable test sources.
type Generator interface {
	Generate(p *project.Project, cfg config.Config, opts Options) (*Output, error)
}

// GenerationError reports a fatal generator failure. It is fatal to that
// project only.
type GenerationError struct {
	Project string
	Err     error
}

func (e *GenerationError) Error() string {
	return fmt.Sprintf("code generation failed for project %q: %s", e.Project, e.Err)
}

func (e *GenerationError) Unwrap() error {
	return e.Err
}

package orchestrator

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/sideworks/side-runner/codegen"
	"github.com/sideworks/side-runner/config"
	"github.com/sideworks/side-runner/project"
)

const (
	manifestName = "package.json"
	commonsName  = "commons.js"
	filePerm     = 0o644
	dirPerm      = 0o755
)

// manifest is the self-contained package description written into every
// sandbox. The runner engine reads the sideRunner block as its execution
// configuration, so no configuration travels on its command line.
type manifest struct {
	Name         string            `json:"name"`
	Version      string            `json:"version"`
	Private      bool              `json:"private"`
	Dependencies map[string]string `json:"dependencies,omitempty"`
	SideRunner   runnerManifest    `json:"sideRunner"`
}

type runnerManifest struct {
	Capabilities map[string]interface{} `json:"capabilities"`
	Server       string                 `json:"server,omitempty"`
	Params       map[string]interface{} `json:"params,omitempty"`
	RunID        string                 `json:"runId"`
	Path         string                 `json:"path"`
	BaseURL      string                 `json:"baseUrl,omitempty"`
	Timeout      int64                  `json:"timeout,omitempty"`
}

// Materialize transforms a project document into a runnable sandbox: manifest,
// shared commons module, one file per sequential suite and one file per test
// of each parallel suite. On failure the sandbox may be partially populated;
// the caller owns teardown.
func (o Orchestrator) Materialize(p *project.Project, cfg config.Config) (string, error) {
	if err := p.Validate(); err != nil {
		return "", err
	}

	p.InjectAuthentication(cfg.AccessToken)
	if cfg.Debug {
		p.InjectDebugEchoes()
	}

	sandboxPath, err := o.sandboxes.Create(p.Name)
	if err != nil {
		return "", err
	}

	if err := writeManifest(sandboxPath, p, cfg); err != nil {
		return "", err
	}

	generated, err := o.generator.Generate(p, cfg, codegen.Options{SilenceErrors: !cfg.Debug})
	if err != nil {
		return "", err
	}

	if err := writeCommons(sandboxPath, p, generated); err != nil {
		return "", err
	}

	for _, suite := range generated.Suites {
		if err := o.writeSuite(sandboxPath, p, suite, generated.GlobalConfig); err != nil {
			return "", err
		}
	}

	return sandboxPath, nil
}

func writeManifest(sandboxPath string, p *project.Project, cfg config.Config) error {
	m := manifest{
		Name:         project.Slug(p.Name),
		Version:      "1.0.0",
		Private:      true,
		Dependencies: p.Dependencies,
		SideRunner: runnerManifest{
			Capabilities: cfg.Capabilities,
			Server:       cfg.Server,
			Params:       cfg.Params,
			RunID:        cfg.RunID,
			Path:         p.Path,
			BaseURL:      cfg.BaseURL,
			Timeout:      cfg.Timeout,
		},
	}

	data, err := json.MarshalIndent(m, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to render sandbox manifest: %w", err)
	}
	if err := os.WriteFile(filepath.Join(sandboxPath, manifestName), data, filePerm); err != nil {
		return fmt.Errorf("failed to write sandbox manifest: %w", err)
	}
	return nil
}

// writeCommons writes the shared module mapping test names to generated
// functions, one entry per test in document order.
func writeCommons(sandboxPath string, p *project.Project, generated *codegen.Output) error {
	var b []byte
	b = append(b, header(p.Name, "shared test functions")...)
	b = append(b, "const tests = {};\n"...)
	for _, t := range p.Tests {
		b = append(b, fmt.Sprintf("tests[%q] = %s;\n", t.Name, generated.Tests[t.Name])...)
	}
	b = append(b, "module.exports = tests;\n"...)

	pth := filepath.Join(sandboxPath, commonsName)
	if err := os.WriteFile(pth, []byte(codegen.Beautify(string(b))), filePerm); err != nil {
		return fmt.Errorf("failed to write %s: %w", commonsName, err)
	}
	return nil
}

func (o Orchestrator) writeSuite(sandboxPath string, p *project.Project, suite codegen.SuiteCode, globalConfig string) error {
	switch suite.Kind {
	case codegen.SuiteParallel:
		if len(suite.Tests) == 0 {
			o.logger.Debugf("Suite %s has no tests, skipping", suite.Name)
			return nil
		}
		dir := filepath.Join(sandboxPath, project.Slug(suite.Name))
		if err := os.MkdirAll(dir, dirPerm); err != nil {
			return fmt.Errorf("failed to create suite directory %s: %w", dir, err)
		}
		for _, t := range suite.Tests {
			content := header(p.Name, suite.Name) +
				"const tests = require(\"../"+commonsName+"\");\n" +
				globalConfig + "\n" +
				t.Code + "\n"
			pth := filepath.Join(dir, project.Slug(t.Name)+".test.js")
			if err := os.WriteFile(pth, []byte(codegen.Beautify(content)), filePerm); err != nil {
				return fmt.Errorf("failed to write %s: %w", pth, err)
			}
		}
		return nil

	case codegen.SuiteSequential:
		content := header(p.Name, suite.Name) +
			"const tests = require(\"./"+commonsName+"\");\n" +
			globalConfig + "\n" +
			suite.Code + "\n"
		if !suite.PersistSession {
			content += sessionResetHooks
		}
		pth := filepath.Join(sandboxPath, project.Slug(suite.Name)+".test.js")
		if err := os.WriteFile(pth, []byte(codegen.Beautify(content)), filePerm); err != nil {
			return fmt.Errorf("failed to write %s: %w", pth, err)
		}
		return nil

	default:
		return fmt.Errorf("suite %s has unknown kind %d", suite.Name, suite.Kind)
	}
}

// sessionResetHooks reset shared variable state before each test and release
// the browser session after each, so tests of a suite that does not persist
// its session cannot observe each other.
const sessionResetHooks = `beforeEach(() => {
vars.clear();
});
afterEach(async () => {
await cleanup();
});
`

func header(projectName, scope string) string {
	return fmt.Sprintf("// Generated by side-runner for %s (%s). Do not edit.\n", projectName, scope)
}

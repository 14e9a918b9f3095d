package codegen

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/bitrise-io/go-utils/v2/log"

	"github.com/sideworks/side-runner/config"
	"github.com/sideworks/side-runner/project"
)

type emitter struct {
	logger log.Logger
}

// NewEmitter returns the built-in generator. It translates command verbs into
// WebDriver JavaScript suitable for the jest engine.
func NewEmitter(logger log.Logger) Generator {
	return &emitter{logger: logger}
}

func (g *emitter) Generate(p *project.Project, cfg config.Config, opts Options) (*Output, error) {
	if len(p.Snapshot) > 0 {
		g.logger.Debugf("Replay snapshot attached to %s (%d bytes)", p.Name, len(p.Snapshot))
	}

	out := &Output{
		Tests:        map[string]string{},
		GlobalConfig: globalConfig(cfg),
	}

	for _, t := range p.Tests {
		code, err := g.emitTest(t, opts)
		if err != nil {
			return nil, &GenerationError{Project: p.Name, Err: err}
		}
		out.Tests[t.Name] = code
	}

	for _, s := range p.Suites {
		members, err := g.resolveMembers(p, s, opts)
		if err != nil {
			return nil, &GenerationError{Project: p.Name, Err: err}
		}

		if s.Parallel {
			sc := SuiteCode{Name: s.Name, Kind: SuiteParallel, PersistSession: s.PersistSession}
			for _, t := range members {
				sc.Tests = append(sc.Tests, TestCode{Name: t.Name, Code: suiteBlock(s.Name, []project.Test{t})})
			}
			out.Suites = append(out.Suites, sc)
			continue
		}
		out.Suites = append(out.Suites, SuiteCode{
			Name:           s.Name,
			Kind:           SuiteSequential,
			PersistSession: s.PersistSession,
			Code:           suiteBlock(s.Name, members),
		})
	}

	return out, nil
}

func (g *emitter) resolveMembers(p *project.Project, s project.Suite, opts Options) ([]project.Test, error) {
	var members []project.Test
	for _, ref := range s.Tests {
		t, ok := p.TestByID(ref)
		if !ok {
			if opts.SilenceErrors {
				g.logger.Warnf("Suite %q references unknown test %q, skipping", s.Name, ref)
				continue
			}
			return nil, fmt.Errorf("suite %q references unknown test %q", s.Name, ref)
		}
		members = append(members, t)
	}
	return members, nil
}

func (g *emitter) emitTest(t project.Test, opts Options) (string, error) {
	var b strings.Builder
	b.WriteString("async (ctx) => {\n")
	b.WriteString("const { By, until, vars, resolveUrl, configuration } = ctx;\n")
	b.WriteString("const driver = await ctx.ensureDriver();\n")
	for _, c := range t.Commands {
		stmt, err := emitCommand(c)
		if err != nil {
			if opts.SilenceErrors {
				g.logger.Warnf("Skipping command in test %q: %s", t.Name, err)
				continue
			}
			return "", fmt.Errorf("test %q: %w", t.Name, err)
		}
		if c.Comment != "" {
			b.WriteString("// " + c.Comment + "\n")
		}
		b.WriteString(stmt + "\n")
	}
	b.WriteString("}")
	return b.String(), nil
}

func emitCommand(c project.Command) (string, error) {
	switch c.Command {
	case "open":
		return fmt.Sprintf("await driver.get(resolveUrl(%s));", jsString(c.Target)), nil
	case "echo":
		return fmt.Sprintf("console.log(%s);", jsString(c.Target)), nil
	case "pause":
		ms, err := pauseDuration(c)
		if err != nil {
			return "", err
		}
		return fmt.Sprintf("await driver.sleep(%d);", ms), nil
	case "store":
		return fmt.Sprintf("vars.set(%s, %s);", jsString(c.Value), jsString(c.Target)), nil
	case "setWindowSize":
		width, height, err := windowSize(c.Target)
		if err != nil {
			return "", err
		}
		return fmt.Sprintf("await driver.manage().window().setRect({ width: %d, height: %d });", width, height), nil
	case "assertTitle":
		return fmt.Sprintf("expect(await driver.getTitle()).toBe(%s);", jsString(c.Target)), nil
	}

	// The remaining verbs address an element.
	locator, err := locatorFor(c.Target)
	if err != nil {
		return "", fmt.Errorf("command %q: %w", c.Command, err)
	}
	switch c.Command {
	case "click":
		return fmt.Sprintf("await driver.findElement(%s).click();", locator), nil
	case "type", "sendKeys":
		return fmt.Sprintf("await driver.findElement(%s).sendKeys(%s);", locator, jsString(c.Value)), nil
	case "assertText":
		return fmt.Sprintf("expect(await driver.findElement(%s).getText()).toBe(%s);", locator, jsString(c.Value)), nil
	case "waitForElementVisible":
		return fmt.Sprintf("await driver.wait(until.elementIsVisible(await driver.findElement(%s)), configuration.timeout || 30000);", locator), nil
	default:
		return "", fmt.Errorf("unknown command %q", c.Command)
	}
}

func locatorFor(target string) (string, error) {
	strategy, selector, found := strings.Cut(target, "=")
	if !found {
		return "", fmt.Errorf("unlocatable target %q", target)
	}
	switch strategy {
	case "css":
		return fmt.Sprintf("By.css(%s)", jsString(selector)), nil
	case "id":
		return fmt.Sprintf("By.id(%s)", jsString(selector)), nil
	case "name":
		return fmt.Sprintf("By.name(%s)", jsString(selector)), nil
	case "xpath":
		return fmt.Sprintf("By.xpath(%s)", jsString(selector)), nil
	case "linkText", "link":
		return fmt.Sprintf("By.linkText(%s)", jsString(selector)), nil
	case "partialLinkText":
		return fmt.Sprintf("By.partialLinkText(%s)", jsString(selector)), nil
	default:
		return "", fmt.Errorf("unknown locator strategy %q in target %q", strategy, target)
	}
}

func pauseDuration(c project.Command) (int64, error) {
	for _, raw := range []string{c.Target, c.Value} {
		if raw == "" {
			continue
		}
		if ms, err := strconv.ParseInt(raw, 10, 64); err == nil && ms >= 0 {
			return ms, nil
		}
	}
	return 0, fmt.Errorf("pause needs a millisecond count, got target %q value %q", c.Target, c.Value)
}

func windowSize(target string) (int, int, error) {
	w, h, found := strings.Cut(target, "x")
	if !found {
		return 0, 0, fmt.Errorf("setWindowSize needs WIDTHxHEIGHT, got %q", target)
	}
	width, err := strconv.Atoi(w)
	if err != nil {
		return 0, 0, fmt.Errorf("setWindowSize width %q: %w", w, err)
	}
	height, err := strconv.Atoi(h)
	if err != nil {
		return 0, 0, fmt.Errorf("setWindowSize height %q: %w", h, err)
	}
	return width, height, nil
}

func suiteBlock(suiteName string, members []project.Test) string {
	var b strings.Builder
	fmt.Fprintf(&b, "describe(%s, () => {\n", jsString(suiteName))
	for _, t := range members {
		fmt.Fprintf(&b, "test(%s, async () => {\n", jsString(t.Name))
		fmt.Fprintf(&b, "await tests[%s](ctx);\n", jsString(t.Name))
		b.WriteString("});\n")
	}
	b.WriteString("});")
	return b.String()
}

// globalConfig renders the shared preamble every generated file starts from:
// the resolved runner configuration, the driver lifecycle helpers and the
// context object generated test functions receive.
func globalConfig(cfg config.Config) string {
	caps, _ := json.Marshal(cfg.Capabilities)
	params, _ := json.Marshal(cfg.Params)

	var b strings.Builder
	b.WriteString("const { Builder, By, until } = require(\"selenium-webdriver\");\n")
	fmt.Fprintf(&b, "const configuration = { capabilities: %s, params: %s, runId: %s, baseUrl: %s, server: %s, timeout: %d };\n",
		caps, params, jsString(cfg.RunID), jsString(cfg.BaseURL), jsString(cfg.Server), cfg.Timeout)
	b.WriteString(`let driver;
const vars = new Map();
function resolveUrl(target) {
return configuration.baseUrl ? new URL(target, configuration.baseUrl).toString() : target;
}
async function ensureDriver() {
if (!driver) {
let builder = new Builder().withCapabilities(configuration.capabilities);
if (configuration.server) {
builder = builder.usingServer(configuration.server);
}
driver = await builder.build();
}
return driver;
}
async function cleanup() {
if (driver) {
const d = driver;
driver = undefined;
await d.quit();
}
}
const ctx = { By, until, vars, resolveUrl, ensureDriver, configuration };
afterAll(async () => {
await cleanup();
});
`)
	if cfg.Timeout > 0 {
		fmt.Fprintf(&b, "jest.setTimeout(%d);\n", cfg.Timeout)
	}
	return b.String()
}

func jsString(s string) string {
	return strconv.Quote(s)
}

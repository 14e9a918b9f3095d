package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/bitrise-io/go-utils/v2/log"
	"github.com/google/uuid"
	shellquote "github.com/kballard/go-shellquote"
	"github.com/spf13/viper"
	yaml "gopkg.in/yaml.v3"
)

// DefaultTimeout is the per-element timeout handed to the runner engine, in milliseconds.
const DefaultTimeout int64 = 15000

// TimeoutCleared is the sentinel that disables the timeout entirely.
const TimeoutCleared = "undefined"

const envPrefix = "SIDE_RUNNER"

// Config holds the resolved execution parameters for one invocation.
// It is built once per process and shared read-only across every project in
// the batch; only the run id is generated, everything else is merged from
// built-in defaults, the config file and CLI flag overrides, in that order of
// precedence.
type Config struct {
	Capabilities map[string]interface{}
	Params       map[string]interface{}

	// RunID identifies this invocation. It is shared by every project in the
	// batch and does not vary per project.
	RunID string

	// Path is the base path projects resolve relative resources against.
	Path string

	Server  string
	BaseURL string

	// Timeout in milliseconds; 0 means no timeout.
	Timeout int64

	Filter     string
	MaxWorkers int

	// OutputDir, when set, makes the runner engine write machine-readable
	// JSON results to <OutputDir>/<project name>.json.
	OutputDir string

	// RunnerOptions are extra arguments appended verbatim to the runner
	// engine invocation, config-file only.
	RunnerOptions string

	// AccessToken, when set, causes an authentication command to be
	// prepended to every test.
	AccessToken string

	Debug       bool
	ExtractOnly bool
	ForceReplay bool
	KeepSandbox bool

	// WorkingDir is the directory the process started in. Relative output
	// paths are resolved against it, not against any sandbox.
	WorkingDir string
}

// Load builds a Config from defaults and the config file. configFile may be
// empty, in which case .side.yml in the working directory is probed. A missing
// or unreadable config file is not an error; the defaults stand.
func Load(configFile string, logger log.Logger) (Config, error) {
	v := viper.New()

	v.SetDefault("timeout", DefaultTimeout)

	v.SetEnvPrefix(envPrefix)
	if err := v.BindEnv("accessToken", envPrefix+"_ACCESS_TOKEN"); err != nil {
		return Config{}, err
	}
	if err := v.BindEnv("keepSandbox", envPrefix+"_KEEP_SANDBOX"); err != nil {
		return Config{}, err
	}

	if configFile != "" {
		v.SetConfigFile(configFile)
	} else {
		v.SetConfigName(".side")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
	}
	if err := v.ReadInConfig(); err != nil {
		logger.Debugf("No usable runner config file: %s", err)
	} else {
		logger.Debugf("Runner config loaded from %s", v.ConfigFileUsed())
	}

	wd, err := os.Getwd()
	if err != nil {
		return Config{}, fmt.Errorf("failed to determine working directory: %w", err)
	}

	timeout, err := ParseTimeout(v.GetString("timeout"))
	if err != nil {
		logger.Debugf("Ignoring timeout from config file: %s", err)
		timeout = DefaultTimeout
	}

	cfg := Config{
		Capabilities:  map[string]interface{}{"browserName": "chrome"},
		Params:        map[string]interface{}{},
		RunID:         uuid.NewString(),
		Path:          wd,
		Server:        v.GetString("server"),
		BaseURL:       v.GetString("baseUrl"),
		Timeout:       timeout,
		Filter:        v.GetString("filter"),
		MaxWorkers:    v.GetInt("maxWorkers"),
		OutputDir:     v.GetString("outputDirectory"),
		RunnerOptions: v.GetString("runnerOptions"),
		AccessToken:   v.GetString("accessToken"),
		Debug:         v.GetBool("debug"),
		KeepSandbox:   v.GetBool("keepSandbox"),
		WorkingDir:    wd,
	}
	// Capabilities and params bypass viper: it folds map keys to lower case,
	// which would corrupt case-sensitive webdriver capability names.
	if used := v.ConfigFileUsed(); used != "" {
		maps, err := loadConfigMaps(used)
		if err != nil {
			logger.Debugf("Ignoring capability/param sections of %s: %s", used, err)
		} else {
			cfg.MergeCapabilities(maps.Capabilities)
			cfg.MergeParams(maps.Params)
		}
	}

	return cfg, nil
}

type configMaps struct {
	Capabilities map[string]interface{} `yaml:"capabilities"`
	Params       map[string]interface{} `yaml:"params"`
}

func loadConfigMaps(pth string) (configMaps, error) {
	data, err := os.ReadFile(pth)
	if err != nil {
		return configMaps{}, err
	}
	var maps configMaps
	if err := yaml.Unmarshal(data, &maps); err != nil {
		return configMaps{}, err
	}
	return maps, nil
}

// MergeCapabilities overlays the given entries onto the resolved capabilities.
func (c *Config) MergeCapabilities(overrides map[string]interface{}) {
	for k, v := range overrides {
		c.Capabilities[k] = v
	}
}

// MergeParams overlays the given entries onto the resolved params.
func (c *Config) MergeParams(overrides map[string]interface{}) {
	for k, v := range overrides {
		c.Params[k] = v
	}
}

// ParseTimeout parses a timeout override. The literal "undefined" clears the
// timeout (returns 0); anything else must be a non-negative millisecond count.
func ParseTimeout(raw string) (int64, error) {
	if raw == TimeoutCleared {
		return 0, nil
	}
	ms, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid timeout %q: %w", raw, err)
	}
	if ms < 0 {
		return 0, fmt.Errorf("invalid timeout %q: must not be negative", raw)
	}
	return ms, nil
}

// ParseKeyValues splits an inline override string like
//
//	browserName=firefox acceptInsecureCerts=true "customField=some value"
//
// into a map. Values are coerced to bool or number where they parse as such.
func ParseKeyValues(raw string) (map[string]interface{}, error) {
	words, err := shellquote.Split(raw)
	if err != nil {
		return nil, fmt.Errorf("failed to split %q: %w", raw, err)
	}

	out := map[string]interface{}{}
	for _, word := range words {
		key, value, found := strings.Cut(word, "=")
		if !found || key == "" {
			return nil, fmt.Errorf("expected key=value, got %q", word)
		}
		out[key] = coerce(value)
	}
	return out, nil
}

func coerce(value string) interface{} {
	switch value {
	case "true":
		return true
	case "false":
		return false
	}
	if n, err := strconv.ParseInt(value, 10, 64); err == nil {
		return n
	}
	if f, err := strconv.ParseFloat(value, 64); err == nil {
		return f
	}
	return value
}

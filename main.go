package main

import (
	"context"
	"os"

	"github.com/bitrise-io/go-utils/v2/command"
	"github.com/bitrise-io/go-utils/v2/env"
	"github.com/bitrise-io/go-utils/v2/log"
	"github.com/bitrise-io/go-utils/v2/pathutil"
	"github.com/spf13/cobra"

	"github.com/sideworks/side-runner/codegen"
	"github.com/sideworks/side-runner/config"
	"github.com/sideworks/side-runner/jest"
	"github.com/sideworks/side-runner/npm"
	"github.com/sideworks/side-runner/orchestrator"
	"github.com/sideworks/side-runner/project"
	"github.com/sideworks/side-runner/sandbox"
)

var (
	flagCapabilities string
	flagServer       string
	flagParams       string
	flagFilter       string
	flagMaxWorkers   int
	flagBaseURL      string
	flagTimeout      string
	flagConfigFile   string
	flagOutputDir    string
	flagDebug        bool
	flagExtract      bool
	flagForceReplay  bool
)

// exitStatus is what the process terminates with after the command ran.
var exitStatus int

var rootCmd = &cobra.Command{
	Use:   "side-runner [flags] <project file or glob>...",
	Short: "Runs browser-automation project files through the jest engine",
	Long: `side-runner executes portable browser-automation project documents.

Each project is materialized into an isolated sandbox as generated JavaScript,
its declared dependencies are installed, and the jest engine runs the result.
Projects are processed one at a time; a failing project never stops the batch.

The process exits 0 only when every project succeeded.`,
	Args:          cobra.ArbitraryArgs,
	SilenceUsage:  true,
	SilenceErrors: true,
	RunE:          runBatch,
}

func init() {
	rootCmd.Flags().StringVarP(&flagCapabilities, "capabilities", "c", "", "Webdriver capability overrides, e.g. 'browserName=firefox'")
	rootCmd.Flags().StringVarP(&flagServer, "server", "s", "", "Remote webdriver server URL")
	rootCmd.Flags().StringVarP(&flagParams, "params", "p", "", "Free-form param overrides, e.g. 'a=1 b=two'")
	rootCmd.Flags().StringVarP(&flagFilter, "filter", "f", "", "Run only tests matching this name filter")
	rootCmd.Flags().IntVarP(&flagMaxWorkers, "max-workers", "w", 0, "Cap on concurrent engine workers")
	rootCmd.Flags().StringVar(&flagBaseURL, "base-url", "", "Base URL override for relative open targets")
	rootCmd.Flags().StringVar(&flagTimeout, "timeout", "", "Per-element timeout in ms, or 'undefined' to disable")
	rootCmd.Flags().StringVar(&flagConfigFile, "config", "", "Runner config file (default .side.yml)")
	rootCmd.Flags().StringVarP(&flagOutputDir, "output-directory", "o", "", "Write machine-readable results here, one JSON file per project")
	rootCmd.Flags().BoolVarP(&flagDebug, "debug", "d", false, "Verbose logging plus value echo injection")

	rootCmd.Flags().BoolVar(&flagExtract, "extract", false, "Materialize sandboxes without installing or running (maintainers)")
	rootCmd.Flags().BoolVar(&flagForceReplay, "force-replay", false, "Attach recorded snapshots for replay (maintainers)")
	_ = rootCmd.Flags().MarkHidden("extract")
	_ = rootCmd.Flags().MarkHidden("force-replay")
}

func runBatch(cmd *cobra.Command, args []string) error {
	logger := log.NewLogger()

	cfg, err := config.Load(flagConfigFile, logger)
	if err != nil {
		return err
	}
	applyFlagOverrides(cmd, &cfg, logger)
	logger.EnableDebugLog(cfg.Debug)

	if cfg.OutputDir != "" {
		abs, err := pathutil.NewPathModifier().AbsPath(cfg.OutputDir)
		if err != nil {
			return err
		}
		cfg.OutputDir = abs
	}

	paths, err := project.Resolve(args)
	if err != nil {
		return err
	}
	if len(paths) == 0 {
		logger.Errorf("No project files matched")
		exitStatus = 1
		return nil
	}

	// A document that does not even load fails that project alone; the rest
	// of the batch still runs.
	var projects []*project.Project
	loadFailed := false
	for _, pth := range paths {
		p, err := project.Load(pth)
		if err != nil {
			logger.Errorf("Project %s failed: %s", pth, err)
			loadFailed = true
			continue
		}
		if cfg.ForceReplay {
			if err := p.AttachSnapshot(); err != nil {
				logger.Warnf("%s", err)
			}
		}
		projects = append(projects, p)
	}

	commandFactory := command.NewFactory(env.NewRepository())
	sandboxes := sandbox.NewManager("", logger)
	orch := orchestrator.New(
		logger,
		sandboxes,
		codegen.NewEmitter(logger),
		npm.NewInstaller(logger, commandFactory),
		jest.NewRunner(logger, commandFactory),
	)

	guard := orchestrator.NewGuard(logger, sandboxes, cfg.KeepSandbox)
	ctx := guard.Watch(context.Background())

	batchErr := orch.RunAll(ctx, projects, cfg)
	if batchErr == nil && loadFailed {
		batchErr = orchestrator.ErrBatchFailed
	}
	exitStatus = guard.Finalize(batchErr)
	return nil
}

// applyFlagOverrides layers changed CLI flags over the file-based config.
// Unparsable inline overrides fall back to the resolved values and are only
// surfaced at debug verbosity.
func applyFlagOverrides(cmd *cobra.Command, cfg *config.Config, logger log.Logger) {
	flags := cmd.Flags()

	if flags.Changed("capabilities") {
		caps, err := config.ParseKeyValues(flagCapabilities)
		if err != nil {
			logger.Debugf("Ignoring capabilities override: %s", err)
		} else {
			cfg.MergeCapabilities(caps)
		}
	}
	if flags.Changed("params") {
		params, err := config.ParseKeyValues(flagParams)
		if err != nil {
			logger.Debugf("Ignoring params override: %s", err)
		} else {
			cfg.MergeParams(params)
		}
	}
	if flags.Changed("server") {
		cfg.Server = flagServer
	}
	if flags.Changed("filter") {
		cfg.Filter = flagFilter
	}
	if flags.Changed("max-workers") {
		cfg.MaxWorkers = flagMaxWorkers
	}
	if flags.Changed("base-url") {
		cfg.BaseURL = flagBaseURL
	}
	if flags.Changed("output-directory") {
		cfg.OutputDir = flagOutputDir
	}
	if flags.Changed("timeout") {
		ms, err := config.ParseTimeout(flagTimeout)
		if err != nil {
			logger.Debugf("Ignoring timeout override: %s", err)
		} else {
			cfg.Timeout = ms
		}
	}
	if flagDebug {
		cfg.Debug = true
	}
	if flagExtract {
		cfg.ExtractOnly = true
		// Extraction is for inspecting the sandbox; deleting it right away
		// would defeat the mode.
		cfg.KeepSandbox = true
	}
	if flagForceReplay {
		cfg.ForceReplay = true
	}
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		log.NewLogger().Errorf("%s", err)
		os.Exit(1)
	}
	os.Exit(exitStatus)
}

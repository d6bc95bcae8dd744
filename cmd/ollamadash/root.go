package main

import (
	"io"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"ollamadash/internal/common/fsutil"
	"ollamadash/internal/config"
	"ollamadash/internal/daemon"
)

// app carries the resolved configuration between cobra hooks and commands.
type app struct {
	cfgPath   string
	overrides config.Config
	cfg       config.Config
	log       zerolog.Logger

	stdout io.Writer
	stderr io.Writer
}

func newRootCmd(stdout, stderr io.Writer) *cobra.Command {
	a := &app{stdout: stdout, stderr: stderr, log: zerolog.Nop()}

	var serverURL, apiKey, logLevel, logFormat string
	root := &cobra.Command{
		Use:           "ollamadash",
		Short:         "Dashboard API and CLI for a local Ollama daemon",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.SetOut(stdout)
	root.SetErr(stderr)

	pf := root.PersistentFlags()
	pf.StringVar(&a.cfgPath, "config", "", "Config file (.yaml, .json or .toml)")
	pf.StringVar(&serverURL, "server-url", "", "Ollama daemon address (defaults OLLAMA_SERVER_URL or http://localhost:11434)")
	pf.StringVar(&apiKey, "api-key", "", "Bearer token sent to the daemon (defaults OLLAMA_API_KEY)")
	pf.StringVar(&logLevel, "log-level", "", "Log level: trace|debug|info|warn|error|off")
	pf.StringVar(&logFormat, "log-format", "", "Log format: console|json")

	root.PersistentPreRunE = func(cmd *cobra.Command, args []string) error {
		flags := cmd.Flags()
		if flags.Changed("server-url") {
			a.overrides.ServerURL = serverURL
		}
		if flags.Changed("api-key") {
			a.overrides.APIKey = apiKey
		}
		if flags.Changed("log-level") {
			a.overrides.LogLevel = logLevel
		}
		if flags.Changed("log-format") {
			a.overrides.LogFormat = logFormat
		}
		applyServeFlags(cmd, &a.overrides)
		return a.resolve()
	}

	root.AddCommand(newServeCmd(a), newStatusCmd(a), newModelsCmd(a))
	return root
}

// defaultConfigPaths are tried in order when --config is not given.
var defaultConfigPaths = []string{"ollamadash.yaml", "~/.config/ollamadash/config.yaml"}

// resolve layers defaults, file, environment and flag overrides.
func (a *app) resolve() error {
	if a.cfgPath == "" {
		a.cfgPath = fsutil.FirstExisting(defaultConfigPaths...)
	}
	cfg, err := config.Resolve(a.cfgPath)
	if err != nil {
		return err
	}
	return a.apply(cfg)
}

func (a *app) apply(cfg config.Config) error {
	cfg = config.Merge(cfg, a.overrides)
	if err := cfg.Validate(); err != nil {
		return err
	}
	a.cfg = cfg
	a.log = newLogger(cfg.LogLevel, cfg.LogFormat, a.stderr)
	return nil
}

// gateway returns a gateway for the configured daemon.
func (a *app) gateway() *daemon.Gateway {
	return daemon.New(a.cfg.Daemon(&a.log))
}

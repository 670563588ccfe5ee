package main

import (
	"fmt"
	"os"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"FactorPulse/internal/config"
	"FactorPulse/internal/logger"
)

// rootOptions are the flags shared by every subcommand.
type rootOptions struct {
	configPath string
	mock       bool
	logLevel   string
	pretty     bool

	cfg *config.Config
	log zerolog.Logger
}

func newRootCmd() *cobra.Command {
	opts := &rootOptions{}

	defaultConfig := "configs/config.yaml"
	if v := os.Getenv("CONFIG_PATH"); v != "" {
		defaultConfig = v
	}

	root := &cobra.Command{
		Use:   "factorpulse",
		Short: "FactorPulse factor performance board",
		Long: `FactorPulse reads factor returns from the analytics backend and serves
rankings, rotation quadrants, sparklines and summaries over HTTP, Telegram
and the command line.`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return opts.load(cmd)
		},
	}

	root.PersistentFlags().StringVar(&opts.configPath, "config", defaultConfig, "Path to the YAML config file")
	root.PersistentFlags().BoolVar(&opts.mock, "mock", false, "Use generated factors instead of the backend")
	root.PersistentFlags().StringVar(&opts.logLevel, "log-level", "", "Log level override (debug, info, warn, error)")
	root.PersistentFlags().BoolVar(&opts.pretty, "pretty", false, "Human-readable log output")

	root.AddCommand(newServeCmd(opts))
	root.AddCommand(newRankingsCmd(opts))
	root.AddCommand(newRotationCmd(opts))
	root.AddCommand(newSummaryCmd(opts))
	root.AddCommand(newFactorCmd(opts))
	return root
}

func (o *rootOptions) load(cmd *cobra.Command) error {
	cfg, err := config.Load(o.configPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	if o.mock {
		cfg.Backend.Mock = true
	}
	if o.logLevel != "" {
		cfg.Log.Level = o.logLevel
	}
	if cmd.Flags().Changed("pretty") {
		cfg.Log.Pretty = o.pretty
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("config validation: %w", err)
	}
	o.cfg = cfg
	o.log = logger.NewWithWriter(logger.Config{Level: cfg.Log.Level, Pretty: cfg.Log.Pretty}, os.Stderr)
	return nil
}

// Package cli provides the taskflow command line: the HTTP server and a few
// offline maintenance commands sharing the same configuration and store.
package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"taskflow/internal/config"
	appLog "taskflow/internal/log"
	"taskflow/internal/store"
	"taskflow/internal/task"
)

const defaultConfigPath = "./taskflow.yaml"

type rootOptions struct {
	configPath string
	logLevel   string
}

// NewRootCommand builds the command tree. Running it without a subcommand
// starts the server.
func NewRootCommand(version string) *cobra.Command {
	opts := &rootOptions{}

	serve := newServeCommand(opts)
	root := &cobra.Command{
		Use:           "taskflow",
		Short:         "Task planner with recurring tasks and calendar views",
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE:          serve.RunE,
	}
	root.Flags().AddFlagSet(serve.Flags())

	root.PersistentFlags().StringVar(&opts.configPath, "config", defaultConfigPath, "Path to config file (.yaml or .toml)")
	root.PersistentFlags().StringVar(&opts.logLevel, "log-level", "", "Log level: debug, info, warn, error (overrides config if set)")

	root.AddCommand(
		serve,
		newBackupCommand(opts),
		newExportCommand(opts),
		newImportCommand(opts),
		newAgendaCommand(opts),
	)
	return root
}

// loadConfig reads the config file and applies the log level.
func (o *rootOptions) loadConfig() (*config.Config, error) {
	conf, err := config.Load(o.configPath)
	if err != nil {
		if conf == nil {
			return nil, fmt.Errorf("load config %s: %w", o.configPath, err)
		}
		appLog.Error("failed to write default config", err, "config_path", o.configPath)
	}
	if o.logLevel != "" {
		conf.LogLevel = o.logLevel
		conf.Normalize()
	}
	appLog.SetLevel(appLog.ParseLevel(conf.LogLevel))
	return conf, nil
}

// openManager opens the configured store and loads the collection from it.
// The caller closes the returned store.
func openManager(ctx context.Context, conf *config.Config) (*task.Manager, *store.Store, error) {
	st, err := store.Open(conf.Store, conf.DataDir)
	if err != nil {
		return nil, nil, fmt.Errorf("open %s store in %s: %w", conf.Store, conf.DataDir, err)
	}
	return task.NewManager(ctx, st, task.WithHorizon(conf.Horizon)), st, nil
}

// Package cmd provides the indexsync CLI commands.
package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/kailas-cloud/indexsync/internal/config"
	logpkg "github.com/kailas-cloud/indexsync/internal/logger"
	"github.com/kailas-cloud/indexsync/internal/version"
)

// rootOptions are the persistent flags shared by every subcommand.
type rootOptions struct {
	configPath string
	env        string
	logLevel   string
}

func (o *rootOptions) loadConfig() (config.Config, error) {
	var (
		cfg config.Config
		err error
	)
	if o.configPath != "" {
		cfg, err = config.LoadFile(o.configPath)
	} else {
		cfg, err = config.Load(o.env)
	}
	if err != nil {
		return config.Config{}, fmt.Errorf("load config: %w", err)
	}
	return cfg, nil
}

// newLogger builds the logger for env. Interactive commands log to the console.
func newLogger(env, level string) (*zap.Logger, error) {
	if env != "prod" {
		env = "cli"
	}
	l, err := logpkg.NewLogger(env, level)
	if err != nil {
		return nil, fmt.Errorf("create logger: %w", err)
	}
	return l, nil
}

// NewRootCmd creates the root command of the indexsync CLI.
func NewRootCmd() *cobra.Command {
	opts := &rootOptions{}

	cmd := &cobra.Command{
		Use:   "indexsync",
		Short: "Keep a relational store and a search index in sync",
		Long: `indexsync derives search documents from database tables, rebuilds the
search index in bulk and applies single-document changes as data changes.`,
		Version:       version.Version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	cmd.SetVersionTemplate("indexsync version {{.Version}}\n")

	cmd.PersistentFlags().StringVar(&opts.configPath, "config", "", "Config file (YAML or TOML); defaults to config/<env>.yaml")
	cmd.PersistentFlags().StringVar(&opts.env, "env", config.GetEnv(), "Environment name used to find the config file")
	cmd.PersistentFlags().StringVar(&opts.logLevel, "log-level", "", "Override the configured log level")

	cmd.AddCommand(newRebuildCmd(opts))
	cmd.AddCommand(newServeCmd(opts))
	cmd.AddCommand(newVersionCmd())

	return cmd
}

// Execute runs the root command and prints the error, if any.
func Execute() error {
	cmd := NewRootCmd()
	if err := cmd.Execute(); err != nil {
		cmd.PrintErrln("Error:", err)
		return err
	}
	return nil
}

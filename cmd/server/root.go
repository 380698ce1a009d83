package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/samber/oops"
	"github.com/spf13/cobra"

	"staffdesk/portal/internal/app"
	"staffdesk/portal/internal/config"
	"staffdesk/portal/internal/observability"
)

var configFile string

// NewRootCmd creates the root command. Running it without a subcommand
// starts the web server.
func NewRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:          "staffdesk",
		Short:        "StaffDesk employee and product portal",
		SilenceUsage: true,
		RunE:         runServe,
	}

	cmd.PersistentFlags().StringVar(&configFile, "config", "", "config file path")
	config.RegisterFlags(cmd.PersistentFlags())

	cmd.AddCommand(NewServeCmd())
	cmd.AddCommand(NewMigrateCmd())
	cmd.AddCommand(NewWaitDBCmd())
	cmd.AddCommand(NewUserCmd())

	return cmd
}

// NewServeCmd creates the serve subcommand.
func NewServeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP server",
		RunE:  runServe,
	}
}

func runServe(cmd *cobra.Command, _ []string) error {
	cfg, logger, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(commandContext(cmd), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	a, err := app.New(ctx, cfg, logger)
	if err != nil {
		return oops.Code("STARTUP_FAILED").With("operation", "create app").Wrap(err)
	}
	return a.Run(ctx)
}

// loadConfig resolves configuration for cmd and builds the process logger.
func loadConfig(cmd *cobra.Command) (config.Config, *slog.Logger, error) {
	cfg, err := config.Load(configFile, cmd.Flags())
	if err != nil {
		return config.Config{}, nil, oops.Code("CONFIG_INVALID").With("operation", "load config").Wrap(err)
	}
	return cfg, observability.NewLogger(cfg.Log.Format, cfg.Log.Level, os.Stderr), nil
}

func commandContext(cmd *cobra.Command) context.Context {
	if ctx := cmd.Context(); ctx != nil {
		return ctx
	}
	return context.Background()
}

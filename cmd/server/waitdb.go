package main

import (
	"github.com/samber/oops"
	"github.com/spf13/cobra"

	"staffdesk/portal/internal/app"
)

// NewWaitDBCmd creates the wait-db subcommand, used by container start
// scripts before the server or migrations run.
func NewWaitDBCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "wait-db",
		Short: "Block until Postgres accepts connections",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, logger, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			db, err := app.OpenDB(commandContext(cmd), cfg, logger)
			if err != nil {
				return oops.Code("DB_CONNECT_FAILED").With("operation", "wait for database").Wrap(err)
			}
			_ = db.Close()
			cmd.Println("postgres ready")
			return nil
		},
	}
}

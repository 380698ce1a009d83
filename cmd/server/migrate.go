package main

import (
	"fmt"
	"text/tabwriter"

	"github.com/samber/oops"
	"github.com/spf13/cobra"

	"staffdesk/portal/internal/app"
	"staffdesk/portal/internal/migrations"
)

// NewMigrateCmd creates the migrate command group.
func NewMigrateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Manage the Postgres schema",
	}
	cmd.AddCommand(&cobra.Command{
		Use:   "up",
		Short: "Apply all pending migrations",
		RunE:  runMigrateUp,
	})
	cmd.AddCommand(&cobra.Command{
		Use:   "status",
		Short: "List migrations and whether each is applied",
		RunE:  runMigrateStatus,
	})
	return cmd
}

func openMigrator(cmd *cobra.Command) (*migrations.Service, func(), error) {
	cfg, logger, err := loadConfig(cmd)
	if err != nil {
		return nil, nil, err
	}
	db, err := app.OpenDB(commandContext(cmd), cfg, logger)
	if err != nil {
		return nil, nil, oops.Code("DB_CONNECT_FAILED").With("operation", "connect to database").Wrap(err)
	}
	svc, err := migrations.NewService(db, logger)
	if err != nil {
		_ = db.Close()
		return nil, nil, err
	}
	return svc, func() { _ = db.Close() }, nil
}

func runMigrateUp(cmd *cobra.Command, _ []string) error {
	svc, closeDB, err := openMigrator(cmd)
	if err != nil {
		return err
	}
	defer closeDB()

	cmd.Println("Running migrations...")
	if err := svc.Up(commandContext(cmd)); err != nil {
		return oops.Code("MIGRATION_FAILED").With("operation", "run migrations").Wrap(err)
	}
	cmd.Println("Migrations completed successfully")
	return nil
}

func runMigrateStatus(cmd *cobra.Command, _ []string) error {
	svc, closeDB, err := openMigrator(cmd)
	if err != nil {
		return err
	}
	defer closeDB()

	statuses, err := svc.Status(commandContext(cmd))
	if err != nil {
		return oops.Code("MIGRATION_STATUS_FAILED").With("operation", "read migration status").Wrap(err)
	}
	printStatus(cmd, statuses)
	return nil
}

func printStatus(cmd *cobra.Command, statuses []migrations.Status) {
	w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "VERSION\tNAME\tAPPLIED\tCHECKSUM")
	for _, s := range statuses {
		fmt.Fprintf(w, "%d\t%s\t%t\t%s\n", s.Version, s.Name, s.Applied, s.Checksum)
	}
	_ = w.Flush()
}

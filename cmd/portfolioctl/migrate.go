package main

import (
	"errors"
	"fmt"

	"github.com/joeyportfolio/portfolio/config"
	"github.com/joeyportfolio/portfolio/db"
	"github.com/spf13/cobra"
)

var errNotPostgres = errors.New("migrations need STORE_DRIVER=postgres")

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Run Postgres schema migrations",
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if err := rootCmd.PersistentPreRunE(cmd, args); err != nil {
			return err
		}
		if cfg.Store.Driver != config.StoreDriverPostgres {
			return errNotPostgres
		}
		return nil
	},
}

var migrateUpCmd = &cobra.Command{
	Use:   "up",
	Short: "Apply all pending migrations",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := db.RunMigrations(cfg.Database.URL()); err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), "Migrations applied")
		return nil
	},
}

var migrateDownCmd = &cobra.Command{
	Use:   "down",
	Short: "Roll back the most recent migration",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := db.RollbackMigrations(cfg.Database.URL()); err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), "Rolled back one migration")
		return nil
	},
}

var migrateVersionCmd = &cobra.Command{
	Use:   "version",
	Short: "Show the current migration version",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		version, dirty, ok, err := db.MigrationVersion(cfg.Database.URL())
		if err != nil {
			return err
		}
		out := cmd.OutOrStdout()
		if !ok {
			fmt.Fprintln(out, "No migrations applied")
			return nil
		}
		fmt.Fprintf(out, "Version: %d\n", version)
		if dirty {
			fmt.Fprintln(out, "State:   dirty")
		}
		return nil
	},
}

func init() {
	migrateCmd.AddCommand(migrateUpCmd)
	migrateCmd.AddCommand(migrateDownCmd)
	migrateCmd.AddCommand(migrateVersionCmd)
}

package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

var migrateDown bool

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Create or drop the database schema",
	RunE: func(cmd *cobra.Command, _ []string) error {
		v, log, err := loadConfig()
		if err != nil {
			return err
		}
		repository, closeDB, err := openRepository(v, log)
		if err != nil {
			return err
		}
		defer closeDB()

		if migrateDown {
			log.Info().Msg("Rolling back migrations...")
			if err := repository.MigrateDown(cmd.Context()); err != nil {
				return fmt.Errorf("failed to rollback migrations: %w", err)
			}
			log.Info().Msg("Migrations rolled back successfully")
			return nil
		}

		if err := repository.MigrateUp(cmd.Context()); err != nil {
			return fmt.Errorf("migration failed: %w", err)
		}
		log.Info().Msg("Migrations applied successfully")
		return nil
	},
}

func init() {
	migrateCmd.Flags().BoolVar(&migrateDown, "down", false, "Drop all tables instead of creating them")
	rootCmd.AddCommand(migrateCmd)
}

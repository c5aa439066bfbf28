package main

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"checkinDesk/internal/auth"
	"checkinDesk/internal/model"
	"checkinDesk/internal/repo"
	"checkinDesk/pkg/validator"
)

var (
	seedUsername string
	seedPassword string
)

// seedAdminCmd creates the first console account; every later admin is
// created through the API by an existing one.
var seedAdminCmd = &cobra.Command{
	Use:   "seed-admin",
	Short: "Create an admin account",
	RunE: func(cmd *cobra.Command, _ []string) error {
		if err := validator.Var(seedUsername, "required,username"); err != nil {
			return fmt.Errorf("username: %w", err)
		}
		if err := validator.Var(seedPassword, "required,min=6"); err != nil {
			return fmt.Errorf("password: %w", err)
		}

		v, log, err := loadConfig()
		if err != nil {
			return err
		}
		repository, closeDB, err := openRepository(v, log)
		if err != nil {
			return err
		}
		defer closeDB()

		ctx := cmd.Context()
		if err := repository.MigrateUp(ctx); err != nil {
			return fmt.Errorf("migration failed: %w", err)
		}

		hash, err := auth.HashPassword(seedPassword)
		if err != nil {
			return err
		}
		admin := &model.Admin{Username: seedUsername, Password: hash}
		if err := repository.CreateAdmin(ctx, admin); err != nil {
			if errors.Is(err, repo.ErrUsernameTaken) {
				log.Warn().Str("username", seedUsername).Msg("admin already exists")
				return nil
			}
			return err
		}

		log.Info().Str("admin_id", admin.ID).Str("username", admin.Username).Msg("admin created")
		_, err = fmt.Fprintf(cmd.OutOrStdout(), "admin %s created\n", admin.Username)
		return err
	},
}

func init() {
	seedAdminCmd.Flags().StringVar(&seedUsername, "username", "admin", "Admin username")
	seedAdminCmd.Flags().StringVar(&seedPassword, "password", "", "Admin password")
	rootCmd.AddCommand(seedAdminCmd)
}

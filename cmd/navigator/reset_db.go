package main

import (
	"errors"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/yield-navigator/pyn/internal/state"
)

var resetDBCmd = &cobra.Command{
	Use:   "reset-db",
	Short: "Drop and recreate the navigator tables (destroys snapshot history)",
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := initEnvironment(); err != nil {
			return err
		}
		log.Info().Msg("Starting database reset...")

		dbCfg, ok := dbConfigFromEnv()
		if !ok {
			return errors.New("DB_USER and DB_NAME environment variables must be set")
		}
		if err := state.InitDB(dbCfg); err != nil {
			return err
		}
		defer state.CloseDB()

		if err := state.DropSchema(); err != nil {
			return err
		}
		if err := state.EnsureSchema(); err != nil {
			return err
		}

		log.Info().Msg("Database reset completed successfully.")
		return nil
	},
}

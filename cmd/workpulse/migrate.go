package main

import (
	"github.com/spf13/cobra"

	"github.com/workpulse/workpulse/internal/database"
)

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Apply the database schema",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		log := newLogger(cfg.Logging)

		db, err := database.Open(&cfg.Database)
		if err != nil {
			return err
		}
		defer db.Close()

		if err := db.Migrate(); err != nil {
			return err
		}
		log.Info("schema up to date")
		return nil
	},
}

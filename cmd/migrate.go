package main

import (
	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/Vovarama1992/wazzup-ai-bridge/internal/config"
)

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Create the thread store schema",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load(envFile)
		if err != nil {
			return err
		}
		logger := setupLogger(cfg.LogLevel, cfg.LogFormat)

		// opening a store creates its schema
		store, err := openStore(cmd.Context(), cfg, logger)
		if err != nil {
			return err
		}
		defer store.Close()

		cmd.Println(color.GreenString("✓"), "thread store ready:", cfg.DatabaseDriver)
		return nil
	},
}

package main

import (
	"fmt"
	"os"

	"github.com/fatih/color"
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/Vovarama1992/wazzup-ai-bridge/internal/config"
)

var saveAssistant bool

var assistantCmd = &cobra.Command{
	Use:   "assistant",
	Short: "Manage the OpenAI assistant",
}

var assistantCreateCmd = &cobra.Command{
	Use:   "create",
	Short: "Create the assistant unless ASSISTANT_ID already points to one",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load(envFile)
		if err != nil {
			return err
		}
		logger := setupLogger(cfg.LogLevel, cfg.LogFormat)

		id, created, err := newAIClient(cfg, logger).EnsureAssistant(cmd.Context(), cfg.OpenAIModel, cfg.Instructions)
		if err != nil {
			return err
		}
		if !created {
			cmd.Println(color.YellowString("ASSISTANT_ID already set:"), id)
			return nil
		}

		cmd.Println(color.GreenString("assistant created:"), id)
		if saveAssistant {
			if err := saveAssistantID(envFile, id); err != nil {
				return err
			}
			cmd.Println(color.GreenString("✓"), "ASSISTANT_ID saved to", envFile)
		}
		return nil
	},
}

func init() {
	assistantCreateCmd.Flags().BoolVar(&saveAssistant, "save", true, "append ASSISTANT_ID to the env file")
	assistantCmd.AddCommand(assistantCreateCmd)
}

// saveAssistantID appends ASSISTANT_ID to the env file, keeping what is already there.
func saveAssistantID(path, id string) error {
	line, err := godotenv.Marshal(map[string]string{"ASSISTANT_ID": id})
	if err != nil {
		return err
	}

	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o600)
	if err != nil {
		return fmt.Errorf("opening env file: %w", err)
	}
	defer f.Close()

	if st, err := f.Stat(); err == nil && st.Size() > 0 {
		line = "\n" + line
	}
	_, err = f.WriteString(line + "\n")
	return err
}

package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"smart-home-bot/internal/infra/sqlite"
)

var linkCmd = &cobra.Command{
	Use:   "link <external-key> <login>",
	Short: "Map a chat identity to a user, creating the user if needed",
	Long: `Map a chat identity to a user so that commands sent from it operate on
that user's devices.

Examples:
  smarthome link @alice:home.lan alice
  smarthome link cli alice`,
	Args: cobra.ExactArgs(2),
	RunE: runLink,
}

func runLink(cmd *cobra.Command, args []string) error {
	cfg, logger, err := loadConfig()
	if err != nil {
		return err
	}

	store, err := sqlite.Open(cfg.Store.Path, logger)
	if err != nil {
		return fmt.Errorf("opening store: %w", err)
	}
	defer store.Close()

	userID, err := store.EnsureUser(cmd.Context(), args[1])
	if err != nil {
		return err
	}
	if err := store.LinkSession(cmd.Context(), args[0], userID); err != nil {
		return err
	}

	fmt.Fprintf(cmd.OutOrStdout(), "linked %s to user %s (id %d)\n", args[0], args[1], userID)
	return nil
}

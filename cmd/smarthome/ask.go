package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"smart-home-bot/internal/application"
)

var askUser string

func init() {
	askCmd.Flags().StringVar(&askUser, "user", "cli", "external chat key the command is sent as")
}

var askCmd = &cobra.Command{
	Use:   "ask <text>",
	Short: "Interpret one command and print the reply",
	Long: `Interpret one command against the configured store and print the reply.

Examples:
  smarthome ask --user alice "turn off the kitchen light"
  smarthome ask "add a kettle"`,
	Args: cobra.MinimumNArgs(1),
	RunE: runAsk,
}

func runAsk(cmd *cobra.Command, args []string) error {
	cfg, logger, err := loadConfig()
	if err != nil {
		return err
	}

	a, err := buildApp(cmd.Context(), cfg, application.NoopMetrics{}, logger)
	if err != nil {
		return err
	}
	defer a.Close()

	reply := a.interpreter.Interpret(cmd.Context(), strings.Join(args, " "), askUser)
	fmt.Fprintln(cmd.OutOrStdout(), reply)
	return nil
}

package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"smart-home-bot/config"
	"smart-home-bot/internal/infra/catalog"
	"smart-home-bot/internal/infra/sqlite"
)

var seedCmd = &cobra.Command{
	Use:   "seed",
	Short: "Load the device template catalog into the store",
	RunE:  runSeed,
}

func runSeed(cmd *cobra.Command, _ []string) error {
	cfg, logger, err := loadConfig()
	if err != nil {
		return err
	}

	store, err := sqlite.Open(cfg.Store.Path, logger)
	if err != nil {
		return fmt.Errorf("opening store: %w", err)
	}
	defer store.Close()

	templates, err := config.LoadCatalog(cfg.Catalog.Path)
	if err != nil {
		return fmt.Errorf("loading catalog: %w", err)
	}
	added, err := store.SeedTemplates(cmd.Context(), templates)
	if err != nil {
		return fmt.Errorf("seeding catalog: %w", err)
	}

	registry := catalog.NewRegistry(store, logger)
	if err := registry.Sync(cmd.Context()); err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "added %d of %d templates\n", added, len(templates))
	fmt.Fprint(out, registry.Summary())
	return nil
}

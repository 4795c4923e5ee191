package main

import (
	"context"
	"fmt"

	"github.com/charmbracelet/huh"
	"github.com/spf13/cobra"

	"github.com/acuminous/rdf/internal/config"
	"github.com/acuminous/rdf/internal/store"
)

var resetForce bool

var resetCmd = &cobra.Command{
	Use:   "reset",
	Short: "Drop all framework-managed objects and re-apply every migration",
	RunE: func(cmd *cobra.Command, args []string) error {
		if !resetForce {
			var confirmed bool
			prompt := huh.NewConfirm().
				Title("This drops every fby_ table and re-runs all migrations. Continue?").
				Affirmative("Reset").
				Negative("Cancel").
				Value(&confirmed)
			if err := prompt.Run(); err != nil {
				return fmt.Errorf("confirmation prompt: %w", err)
			}
			if !confirmed {
				fmt.Println("aborted")
				return nil
			}
		}

		ctx := context.Background()
		cfg, err := config.Load(baseDir)
		if err != nil {
			return fmt.Errorf("load config: %w", err)
		}

		st, err := store.Open(ctx, cfg)
		if err != nil {
			return fmt.Errorf("open store: %w", err)
		}
		defer st.Close()

		// rdfctl has no knowledge of custom objects a project's own
		// migrations created beyond the fby_ tables, so it nukes nothing
		// extra. Embedders calling Framework.Reset directly can supply
		// their own hook.
		if err := st.Reset(ctx, nil); err != nil {
			return fmt.Errorf("reset: %w", err)
		}
		fmt.Println("reset complete")
		return nil
	},
}

func init() {
	resetCmd.Flags().BoolVar(&resetForce, "force", false, "skip the confirmation prompt")
	rootCmd.AddCommand(resetCmd)
}

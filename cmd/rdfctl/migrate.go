package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/acuminous/rdf/internal/config"
	"github.com/acuminous/rdf/internal/store"
)

var dryRun bool

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Apply pending migrations",
	RunE: func(cmd *cobra.Command, args []string) error {
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

		if dryRun {
			pending, err := st.PendingMigrations(ctx)
			if err != nil {
				return err
			}
			if len(pending) == 0 {
				fmt.Println("up to date")
				return nil
			}
			for _, name := range pending {
				fmt.Println(name)
			}
			return nil
		}

		if err := st.Migrate(ctx); err != nil {
			return fmt.Errorf("migrate: %w", err)
		}
		fmt.Println("migrations applied")
		return nil
	},
}

func init() {
	migrateCmd.Flags().BoolVar(&dryRun, "dry-run", false, "list pending migrations without applying them")
	rootCmd.AddCommand(migrateCmd)
}

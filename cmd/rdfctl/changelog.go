package main

import (
	"context"
	"fmt"
	"strconv"

	"github.com/charmbracelet/glamour"
	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/spf13/cobra"

	"github.com/acuminous/rdf/internal/config"
	"github.com/acuminous/rdf/internal/store"
)

var (
	changelogHeaderStyle = lipgloss.NewStyle().Bold(true).Align(lipgloss.Center)
	changelogBorderStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("240"))
)

var changelogCmd = &cobra.Command{
	Use:   "changelog <projection> <version>",
	Short: "Render a projection's change log",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		version, err := strconv.Atoi(args[1])
		if err != nil {
			return fmt.Errorf("version must be an integer: %w", err)
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

		projection, err := st.GetProjection(ctx, args[0], version)
		if err != nil {
			return fmt.Errorf("get projection: %w", err)
		}

		changeSets, err := st.GetChangeLog(ctx, projection.ID)
		if err != nil {
			return fmt.Errorf("get change log: %w", err)
		}

		fmt.Printf("%s v%d\n\n", projection.Name, projection.Version)

		if len(changeSets) == 0 {
			fmt.Println("no change sets yet")
			return nil
		}

		t := table.New().
			Border(lipgloss.RoundedBorder()).
			BorderStyle(changelogBorderStyle).
			Headers("ID", "EFFECTIVE", "DESCRIPTION", "TAG").
			StyleFunc(func(row, col int) lipgloss.Style {
				if row == table.HeaderRow {
					return changelogHeaderStyle
				}
				return lipgloss.NewStyle().Padding(0, 1)
			})

		for _, cs := range changeSets {
			t.Row(
				fmt.Sprintf("%d", cs.ID),
				cs.Effective.Format("2006-01-02T15:04:05Z07:00"),
				renderDescription(cs.Description),
				cs.EntityTag,
			)
		}

		fmt.Println(t.Render())
		return nil
	},
}

// renderDescription renders every change set's free-text description
// through glamour as Markdown, falling back to the raw text if rendering
// fails - rendering is cosmetic and must never fail the command.
func renderDescription(description string) string {
	rendered, err := glamour.Render(description, "dark")
	if err != nil {
		return description
	}
	return rendered
}

func init() {
	rootCmd.AddCommand(changelogCmd)
}

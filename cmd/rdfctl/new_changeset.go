package main

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/olebedev/when"
	"github.com/olebedev/when/rules/common"
	"github.com/olebedev/when/rules/en"
	"github.com/spf13/cobra"
)

var (
	newChangesetEffective string
	newChangesetDesc      string
)

var newChangesetNumberPattern = regexp.MustCompile(`^(\d+)\.`)

var newChangesetCmd = &cobra.Command{
	Use:   "new-changeset <slug>",
	Short: "Scaffold a new numbered change-set migration file",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		slug := args[0]
		migrationsDir := filepath.Join(baseDir, "migrations")
		if err := os.MkdirAll(migrationsDir, 0o755); err != nil {
			return fmt.Errorf("create migrations directory: %w", err)
		}

		next, err := nextMigrationNumber(migrationsDir)
		if err != nil {
			return err
		}

		effective, err := resolveEffective(newChangesetEffective)
		if err != nil {
			return fmt.Errorf("parse --effective: %w", err)
		}

		name := fmt.Sprintf("%03d.%s.yaml", next, slug)
		path := filepath.Join(migrationsDir, name)
		if _, err := os.Stat(path); err == nil {
			return fmt.Errorf("%s already exists", path)
		}

		desc := newChangesetDesc
		if desc == "" {
			desc = strings.ReplaceAll(slug, "-", " ")
		}

		contents := fmt.Sprintf(`- add change set:
  - description: %q
    effective: %s
    frames: []
`, desc, effective.Format(time.RFC3339))

		if err := os.WriteFile(path, []byte(contents), 0o644); err != nil {
			return fmt.Errorf("write %s: %w", path, err)
		}
		fmt.Println(path)
		return nil
	},
}

func init() {
	newChangesetCmd.Flags().StringVar(&newChangesetEffective, "effective", "now", "when this change set takes effect, natural language or RFC3339")
	newChangesetCmd.Flags().StringVar(&newChangesetDesc, "description", "", "change set description, defaults to the slug with dashes turned into spaces")
	rootCmd.AddCommand(newChangesetCmd)
}

func nextMigrationNumber(migrationsDir string) (int, error) {
	entries, err := os.ReadDir(migrationsDir)
	if err != nil {
		return 0, fmt.Errorf("read migrations directory: %w", err)
	}
	highest := 0
	for _, e := range entries {
		m := newChangesetNumberPattern.FindStringSubmatch(e.Name())
		if m == nil {
			continue
		}
		n, err := strconv.Atoi(m[1])
		if err != nil {
			continue
		}
		if n > highest {
			highest = n
		}
	}
	return highest + 1, nil
}

// resolveEffective parses a natural-language or RFC3339 --effective value.
// "now" and an empty string both mean the current moment.
func resolveEffective(value string) (time.Time, error) {
	if value == "" || value == "now" {
		return time.Now().UTC(), nil
	}
	if t, err := time.Parse(time.RFC3339, value); err == nil {
		return t, nil
	}

	w := when.New(nil)
	w.Add(en.All...)
	w.Add(common.All...)
	result, err := w.Parse(value, time.Now())
	if err != nil {
		return time.Time{}, err
	}
	if result == nil {
		return time.Time{}, fmt.Errorf("could not understand %q as a date or time", value)
	}
	return result.Time, nil
}

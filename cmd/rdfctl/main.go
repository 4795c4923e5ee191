// Command rdfctl is the administrative CLI for the reference data
// framework: running migrations, resetting a development database,
// rendering a projection's change log, and scaffolding a new change-set
// migration file.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var baseDir string

var rootCmd = &cobra.Command{
	Use:   "rdfctl",
	Short: "Administer a reference data framework instance",
}

func init() {
	rootCmd.PersistentFlags().StringVar(&baseDir, "dir", ".", "project directory containing rdf.yaml and migrations/")
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

package main

import (
	"os"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

var (
	dbPath      string
	catalogPath string
	verbose     bool
)

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "profiles",
		Short: "Manage supplement-safety user profiles and history offline",
		Long: `profiles operates directly on the supplement-safety SQLite store.

It imports user health profiles from YAML, prints stored profiles, runs the
rule-based safety check for a supplement without an image, and reports the
most frequently recognised supplements.`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if verbose {
				logrus.SetLevel(logrus.DebugLevel)
			}
			return nil
		},
	}

	root.PersistentFlags().StringVar(&dbPath, "db", "data/supplement-safety.db", "Path to SQLite database")
	root.PersistentFlags().StringVar(&catalogPath, "catalog", "", "Catalog YAML overriding the built-in tables")
	root.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable verbose logging")

	root.AddCommand(newImportCmd())
	root.AddCommand(newGetCmd())
	root.AddCommand(newAssessCmd())
	root.AddCommand(newPopularCmd())
	return root
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

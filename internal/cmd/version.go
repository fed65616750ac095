package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/homiodev/homio-hquery/internal/version"
)

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Display version information",
	Long:  `Display the version, commit, and build date of hquery.`,
	Args:  cobra.NoArgs,
	// Version output does not depend on configuration or catalogs.
	PersistentPreRunE: func(*cobra.Command, []string) error { return nil },
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("hquery %s\n", version.Version)
		fmt.Printf("  commit: %s\n", version.Commit)
		fmt.Printf("  built:  %s\n", version.Date)
	},
}

func init() {
	rootCmd.AddCommand(versionCmd)
}

package cli

import (
	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "gateway",
	Short: "Policy gateway server",
	Long:  `The policy gateway exposes policy tuple management and enforcement over HTTP.`,
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}

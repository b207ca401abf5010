package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

const version = "0.1.0"

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the version number",
	Long:  `Display the current version of the vault CLI.`,
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Fprintf(cmd.OutOrStdout(), "vault version %s\n", version)
		fmt.Fprintln(cmd.OutOrStdout(), "A pooled-custody share vault simulator")
	},
}

func init() {
	rootCmd.AddCommand(versionCmd)
}

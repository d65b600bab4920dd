package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

const version = "1.0.0"

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the version number",
	Long:  `Display the current version of the coinsim CLI.`,
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("coinsim version %s\n", version)
		fmt.Println("Crypto instrument discovery and two-phase trade simulation")
	},
}

func init() {
	rootCmd.AddCommand(versionCmd)
}

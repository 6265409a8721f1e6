/*
Copyright © 2026 NAME HERE <EMAIL ADDRESS>
*/
package cmd

import (
	"os"

	"github.com/spf13/cobra"
)

// rootCmd represents the base command when called without any subcommands.
var rootCmd = &cobra.Command{
	Use:   "beliefatlas",
	Short: "BeliefAtlas backend server and tooling",
	Long: `BeliefAtlas backend server and tooling.

Run "beliefatlas server" to start the API server or
"beliefatlas migrate up" to apply database migrations.`,
}

// Execute adds all child commands to the root command and sets flags
// appropriately. This is called by main.main().
func Execute() {
	err := rootCmd.Execute()
	if err != nil {
		os.Exit(1)
	}
}

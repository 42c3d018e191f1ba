package cmd

import (
	"fmt"
	"os"

	"moodmuse/server"

	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "moodmuse",
	Short: "MoodMuse turns a mood description into a shareable moodboard.",
	Run: func(cmd *cobra.Command, args []string) {
		server.Start()
	},
}

// Execute executes the root command.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

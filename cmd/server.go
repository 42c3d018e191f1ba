package cmd

import (
	"moodmuse/server"

	"github.com/spf13/cobra"
)

var serverCmd = &cobra.Command{
	Use:   "server",
	Short: "Start the MoodMuse API server",
	Long:  `Start the MoodMuse HTTP server serving the moodboard pipeline and share-link API.`,
	Run: func(cmd *cobra.Command, args []string) {
		server.Start()
	},
}

func init() {
	rootCmd.AddCommand(serverCmd)
}

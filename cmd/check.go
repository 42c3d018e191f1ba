package cmd

import (
	"fmt"

	"moodmuse/cache"
	"moodmuse/config"
	"moodmuse/core/catalog"
	"moodmuse/core/completion"
	"moodmuse/core/imagegen"
	"moodmuse/db"
	"moodmuse/storage"

	"github.com/spf13/cobra"
)

var checkCmd = &cobra.Command{
	Use:   "check",
	Short: "Check provider configuration and backing-store connectivity",
	Run: func(cmd *cobra.Command, args []string) {
		cfg := config.Load()

		completionClient := completion.NewClient(&completion.Config{APIKey: cfg.OpenAIAPIKey})
		catalogClient := catalog.NewClient(&catalog.Config{
			ClientID:     cfg.SpotifyClientID,
			ClientSecret: cfg.SpotifyClientSecret,
		})
		imageClient := imagegen.NewClient(&imagegen.Config{APIKey: cfg.OpenAIAPIKey})

		printConfigured("completion provider", completionClient.IsConfigured())
		printConfigured("catalog provider", catalogClient.IsConfigured())
		printConfigured("image provider", imageClient.IsConfigured())

		if gdb, err := db.Connect(cfg); err != nil {
			fmt.Printf("mysql: FAILED (%v)\n", err)
		} else {
			fmt.Println("mysql: ok")
			db.Close(gdb)
		}

		if redisClient, err := cache.Connect(cfg); err != nil {
			fmt.Printf("redis: FAILED (%v)\n", err)
		} else {
			fmt.Println("redis: ok")
			redisClient.Close()
		}

		if cfg.MinioEndpoint == "" {
			fmt.Println("minio: not configured")
		} else if _, err := storage.NewImageArchive(cfg); err != nil {
			fmt.Printf("minio: FAILED (%v)\n", err)
		} else {
			fmt.Println("minio: ok")
		}
	},
}

func printConfigured(name string, configured bool) {
	if configured {
		fmt.Printf("%s: configured\n", name)
	} else {
		fmt.Printf("%s: not configured\n", name)
	}
}

func init() {
	rootCmd.AddCommand(checkCmd)
}

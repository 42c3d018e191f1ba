package server

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"moodmuse/cache"
	"moodmuse/config"
	"moodmuse/core/catalog"
	"moodmuse/core/completion"
	"moodmuse/core/imagegen"
	"moodmuse/core/moodboard"
	"moodmuse/db"
	"moodmuse/logger"
	"moodmuse/repository"
	"moodmuse/storage"

	"github.com/gorilla/mux"
)

// Start initializes and starts the HTTP server.
func Start() {
	cfg := config.Load()

	logger.InitLogger(logger.Config{
		Level:      logger.LogLevel(cfg.LogLevel),
		OutputPath: cfg.LogPath,
		MaxSize:    100,
		MaxBackups: 3,
		MaxAge:     28,
		Compress:   true,
	})

	gdb, err := db.Connect(cfg)
	if err != nil {
		logger.Fatal("Failed to connect to database", logger.ErrorField(err))
	}
	defer db.Close(gdb)

	if err := db.Migrate(gdb); err != nil {
		logger.Fatal("Failed to migrate database", logger.ErrorField(err))
	}

	// Provider clients. Missing credentials degrade at request time
	// instead of failing startup.
	completionClient := completion.NewClient(&completion.Config{
		APIBaseURL:  cfg.OpenAIBaseURL,
		APIKey:      cfg.OpenAIAPIKey,
		Model:       cfg.CompletionModel,
		MaxTokens:   cfg.CompletionMaxTok,
		Temperature: cfg.CompletionTemp,
	})
	catalogClient := catalog.NewClient(&catalog.Config{
		ClientID:     cfg.SpotifyClientID,
		ClientSecret: cfg.SpotifyClientSecret,
	})
	imageClient := imagegen.NewClient(&imagegen.Config{
		APIBaseURL: cfg.OpenAIBaseURL,
		APIKey:     cfg.OpenAIAPIKey,
		Model:      cfg.ImageModel,
	})

	for name, configured := range map[string]bool{
		"completion": completionClient.IsConfigured(),
		"catalog":    catalogClient.IsConfigured(),
		"imagegen":   imageClient.IsConfigured(),
	} {
		if !configured {
			logger.Warn("Provider not configured, requests will degrade",
				logger.String("provider", name))
		}
	}

	orchestrator := moodboard.NewOrchestrator(completionClient, catalogClient, imageClient)

	repo := repository.NewMySQLMoodboardRepository(gdb)
	store := moodboard.NewStore(repo, cfg.BaseURL)

	redisClient, err := cache.Connect(cfg)
	if err != nil {
		logger.Warn("Redis unavailable, serving without cache", logger.ErrorField(err))
	} else {
		defer redisClient.Close()
		store.SetCache(cache.NewMoodboardCache(redisClient))
		logger.Info("Connected to Redis")
	}

	var archive *storage.ImageArchive
	if cfg.MinioEndpoint != "" {
		archive, err = storage.NewImageArchive(cfg)
		if err != nil {
			logger.Warn("MinIO unavailable, boards keep provider image URLs", logger.ErrorField(err))
			archive = nil
		} else {
			store.SetArchive(archive)
			logger.Info("Connected to MinIO", logger.String("bucket", cfg.MinioBucket))
		}
	}

	apiHandler := NewMoodboardHandler(orchestrator, store)

	router := mux.NewRouter()
	router.Use(corsMiddleware)
	router.Use(requestLogMiddleware)

	router.HandleFunc("/api/moodboard", apiHandler.HandleCreate).Methods(http.MethodPost)
	router.HandleFunc("/api/moodboard/save", apiHandler.HandleSave).Methods(http.MethodPost)
	router.HandleFunc("/api/moodboard/stream", apiHandler.HandleStream).Methods(http.MethodGet)
	router.HandleFunc("/api/board/{id}", apiHandler.HandleGet).Methods(http.MethodGet)
	router.HandleFunc("/api/health", apiHandler.HandleHealth).Methods(http.MethodGet)

	// Archived board images
	if archive != nil {
		router.PathPrefix("/static/").HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			objectPath := strings.TrimPrefix(r.URL.Path, "/static/")
			archive.Serve(w, r, objectPath)
		})
	}

	server := &http.Server{
		Addr:         cfg.ServerAddr,
		Handler:      router,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 120 * time.Second, // the pipeline holds the request open
		IdleTimeout:  120 * time.Second,
	}

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)

	go func() {
		logger.Info("Server starting",
			logger.String("addr", cfg.ServerAddr),
			logger.String("baseUrl", cfg.BaseURL))

		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("Failed to start server", logger.ErrorField(err))
		}
	}()

	<-stop
	logger.Info("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		logger.Fatal("Server forced to shutdown", logger.ErrorField(err))
	}

	logger.Info("Server stopped")
}

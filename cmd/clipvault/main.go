package main

import (
	"flag"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"clipvault/internal/blob"
	"clipvault/internal/classify"
	"clipvault/internal/clipboard"
	"clipvault/internal/config"
	"clipvault/internal/dedup"
	"clipvault/internal/server"
	"clipvault/internal/service"
	"clipvault/internal/storage"
	"clipvault/internal/storage/sqlite"
)

func main() {
	var (
		configPath = flag.String("config", "", "Config file path (default: ~/.clipvault/config.toml)")
		dbPath     = flag.String("db", "", "Database path (default: ~/.clipvault/clipvault.db)")
		blobPath   = flag.String("blobs", "", "Blob storage path (default: ~/.clipvault/blobs)")
		apiPort    = flag.Int("port", 0, "API port (overrides config)")
		verbose    = flag.Bool("verbose", false, "Enable verbose logging")
	)
	flag.Parse()

	homeDir, err := os.UserHomeDir()
	if err != nil {
		log.Fatalf("Failed to get home directory: %v", err)
	}

	baseDir := filepath.Join(homeDir, ".clipvault")
	if err := os.MkdirAll(baseDir, 0755); err != nil {
		log.Fatalf("Failed to create base directory: %v", err)
	}

	if *configPath == "" {
		*configPath = filepath.Join(baseDir, "config.toml")
	}
	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	// flags override config, config overrides defaults
	if *dbPath != "" {
		cfg.DBPath = *dbPath
	}
	if *blobPath != "" {
		cfg.BlobPath = *blobPath
	}
	if *apiPort > 0 {
		cfg.APIPort = *apiPort
	}
	if cfg.DBPath == "" {
		cfg.DBPath = filepath.Join(baseDir, "clipvault.db")
	}
	if cfg.BlobPath == "" {
		cfg.BlobPath = filepath.Join(baseDir, "blobs")
	}

	cleanup, err := server.EnsureSingleInstance()
	if err != nil {
		log.Fatalf("Failed to claim instance lock: %v", err)
	}
	defer cleanup()

	store, err := sqlite.New(storage.Config{
		DBPath:        cfg.DBPath,
		BlobPath:      cfg.BlobPath,
		PreviewLength: cfg.PreviewLength,
		MaxInlineSize: cfg.MaxInlineSize,
	})
	if err != nil {
		log.Fatalf("Failed to initialize storage: %v", err)
	}
	defer store.Close()

	blobs, err := blob.NewStore(cfg.BlobPath, cfg.MaxBlobSize)
	if err != nil {
		log.Fatalf("Failed to initialize blob storage: %v", err)
	}

	pasteboard := clipboard.NewPasteboard()
	monitor := clipboard.NewMonitor(
		pasteboard,
		classify.New(cfg.PreviewLength),
		dedup.New(store),
		store,
		blobs,
		clipboard.MonitorConfig{
			Interval:       time.Duration(cfg.PollIntervalMS) * time.Millisecond,
			MaxPayloadSize: cfg.MaxBlobSize,
			MaxInlineSize:  cfg.MaxInlineSize,
			ThumbnailDim:   cfg.ThumbnailDim,
		},
	)

	clipService := service.New(monitor, pasteboard, store, blobs, cfg)

	srv := server.New(clipService, server.Config{Port: cfg.APIPort})
	if err := srv.Start(); err != nil {
		log.Fatalf("Failed to start API server: %v", err)
	}

	if err := clipService.Start(); err != nil {
		log.Fatalf("Failed to start clipboard service: %v", err)
	}

	if *verbose {
		log.Printf("clipvault started")
		log.Printf("Database: %s", cfg.DBPath)
		log.Printf("Blob storage: %s", cfg.BlobPath)
		log.Printf("API port: %d", cfg.APIPort)
	}

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	<-sigChan

	if *verbose {
		log.Println("Shutting down...")
	}
	if err := clipService.Stop(); err != nil {
		log.Printf("Error stopping service: %v", err)
	}
	if err := srv.Stop(); err != nil {
		log.Printf("Error stopping server: %v", err)
	}
}

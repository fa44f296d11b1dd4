package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"cadenza/internal/auth"
	"cadenza/internal/catalog"
	"cadenza/internal/config"
	"cadenza/internal/database"
	"cadenza/internal/importer"
	"cadenza/internal/media"
	"cadenza/internal/metadata"
	"cadenza/internal/mongostore"
	"cadenza/internal/ngrok"
	"cadenza/internal/player"
	"cadenza/internal/server"

	"github.com/sirupsen/logrus"
)

func main() {
	configPath := "./config.toml"
	if v := os.Getenv("CADENZA_CONFIG"); v != "" {
		configPath = v
	}

	// Initialize basic logger for startup
	logger := logrus.New()
	logger.SetFormatter(&logrus.TextFormatter{
		FullTimestamp: true,
	})

	config.LoadDotEnv(".env")

	// Load configuration
	cfg, err := config.LoadConfig(configPath)
	if err != nil {
		logger.WithError(err).Fatal("Error loading configuration")
	}

	logger, logCloser, err := cfg.NewLogger()
	if err != nil {
		logrus.WithError(err).Fatal("Error configuring logger")
	}
	defer logCloser.Close()

	generated, err := cfg.EnsureJWTSecret()
	if err != nil {
		logger.WithError(err).Fatal("Error generating JWT secret")
	}
	if generated {
		logger.Warn("No JWT secret configured, using a random one; tokens will not survive a restart")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	store, err := openStore(ctx, cfg, logger)
	if err != nil {
		logger.WithError(err).Fatal("Error initializing database")
	}
	defer store.Close()

	storage, err := media.NewLocalStorage(&cfg.Media, logger)
	if err != nil {
		logger.WithError(err).Fatal("Error initializing media storage")
	}

	extractor := metadata.NewExtractor(cfg.Import.Formats, logger)

	catalogService := catalog.NewService(store, storage, extractor, logger)
	defer catalogService.Close()

	authService, err := auth.NewService(&cfg.Auth, store, logger)
	if err != nil {
		logger.WithError(err).Fatal("Error creating auth service")
	}

	ngrokService, err := ngrok.NewService(&cfg.Ngrok, logger)
	if err != nil {
		logger.WithError(err).Fatal("Error creating ngrok service")
	}

	if cfg.Import.Enabled {
		imp := importer.New(&cfg.Import, catalogService, extractor, logger)
		if err := os.MkdirAll(cfg.Import.Path, 0755); err != nil {
			logger.WithError(err).Fatal("Error creating import directory")
		}

		if cfg.Import.ScanOnStartup {
			count, err := imp.Scan(ctx)
			if err != nil {
				logger.WithError(err).Warn("Import scan failed")
			} else {
				logger.WithField("imported", count).Info("Import scan complete")
			}
		}

		if cfg.Import.WatchForChanges {
			if err := imp.Start(ctx); err != nil {
				logger.WithError(err).Warn("Could not start import watcher")
			} else {
				defer imp.Close()
			}
		}
	}

	catalogServer := server.NewCatalogServer(cfg, server.Dependencies{
		Catalog: catalogService,
		Auth:    authService,
		Media:   storage,
		Player:  player.NewStateManager(catalogService),
		Ngrok:   ngrokService,
	}, logger)

	errCh := make(chan error, 1)
	go func() {
		errCh <- catalogServer.Start(ctx)
	}()

	// Wait for shutdown signal
	select {
	case err := <-errCh:
		if err != nil {
			logger.WithError(err).Error("Server stopped")
		}
	case <-ctx.Done():
		logger.Info("Received shutdown signal")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), time.Duration(cfg.Server.ShutdownTimeout)*time.Second)
	defer cancel()
	if err := catalogServer.Shutdown(shutdownCtx); err != nil {
		logger.WithError(err).Error("Error during shutdown")
	}
}

// openStore connects the configured backend
func openStore(ctx context.Context, cfg *config.Config, logger *logrus.Logger) (catalog.Store, error) {
	switch cfg.Database.Driver {
	case "mongo":
		store, err := mongostore.New(ctx, cfg.Database.MongoURI, cfg.Database.MongoDatabase, logger)
		if err != nil {
			return nil, err
		}
		return store, nil
	default:
		db, err := database.NewDatabase(cfg.Database.Path, logger)
		if err != nil {
			return nil, err
		}
		db.SetMaxConnections(cfg.Database.MaxConnections)
		return db, nil
	}
}

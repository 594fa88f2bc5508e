package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/ksred/fullstack-boilerplate/internal/api"
	"github.com/ksred/fullstack-boilerplate/internal/config"
	"github.com/ksred/fullstack-boilerplate/internal/database"
	"github.com/ksred/fullstack-boilerplate/internal/services"
	"github.com/ksred/fullstack-boilerplate/internal/utils"
	"github.com/rs/zerolog"
	"github.com/spf13/afero"

	// Import swagger docs
	_ "github.com/ksred/fullstack-boilerplate/docs"
)

func main() {
	var (
		configPath     string
		skipMigrations bool
	)
	flag.StringVar(&configPath, "config", "", "Path to configuration file")
	flag.BoolVar(&skipMigrations, "skip-migrations", false, "Skip running database migrations")
	flag.Parse()

	cfg, err := config.LoadConfig(configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	logger := setupLogging(cfg)
	logger.Info().
		Int("port", cfg.HTTP.Port).
		Str("driver", cfg.Database.Driver).
		Msg("Starting Fullstack Boilerplate API server")

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	db := database.NewDatabase(cfg.DatabaseSettings())
	connected := true
	if err := connectToDatabase(db, logger); err != nil {
		connected = false
		logDatabaseFailure(logger, err)

		// Keep serving; requests answer 503 until the database is reachable
		logger.Warn().Msg("Starting server anyway, the API will return errors until the database is configured")
		_ = db.Close()
		if err := db.ConnectLazy(); err != nil {
			logger.Fatal().Err(err).Msg("Failed to set up database connection pool")
		}
	}
	defer func() {
		if err := db.Close(); err != nil {
			logger.Error().Err(err).Msg("Failed to close database connection")
		}
	}()

	runner := database.NewMigrationRunner(db.DB(), afero.NewOsFs(), logger,
		database.WithDirectory(cfg.Migrations.Dir),
		database.WithExtension(cfg.Migrations.Extension),
		database.WithAdvisoryLock(cfg.Migrations.LockKey),
	)

	switch {
	case !connected:
		logger.Warn().Msg("Database unavailable, migrations not run")
	case skipMigrations || !cfg.Migrations.RunOnStartup:
		logger.Warn().Msg("Skipping database migrations as requested")
	default:
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
		if _, err := runner.Run(ctx); err != nil {
			logDatabaseFailure(logger, err)
		} else {
			logger.Info().Msg("Database migrations completed")
		}
		cancel()
	}

	userService := services.NewUserService(db.DB(), logger)

	server, err := api.NewServer(cfg, db, userService, runner, logger)
	if err != nil {
		logger.Fatal().Err(err).Msg("Failed to create HTTP server")
	}

	serverErrChan := make(chan error, 1)
	go func() {
		if err := server.Start(cfg.HTTP.Port); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErrChan <- err
		}
	}()

	select {
	case sig := <-sigChan:
		logger.Info().Str("signal", sig.String()).Msg("Received shutdown signal")
	case err := <-serverErrChan:
		logger.Error().Err(err).Msg("HTTP server error")
	}

	logger.Info().Msg("Starting graceful shutdown")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("Failed to gracefully shutdown HTTP server")
	}

	logger.Info().Msg("Shutdown complete")
}

// setupLogging configures the logger based on configuration
func setupLogging(cfg *config.Config) zerolog.Logger {
	// Only log to a file when LOG_FILE is set
	return utils.SetupGlobalLogger(utils.LoggerConfig{
		Level:      cfg.Server.LogLevel,
		Pretty:     cfg.Server.Debug,
		CallerInfo: cfg.Server.Debug,
		LogFile:    os.Getenv("LOG_FILE"),
	})
}

func connectToDatabase(db *database.Database, logger zerolog.Logger) error {
	logger.Info().Msg("Connecting to database")

	if err := db.Connect(); err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := db.Health(ctx); err != nil {
		return fmt.Errorf("database health check failed: %w", err)
	}

	logger.Info().Msg("Database connection established")
	return nil
}

func logDatabaseFailure(logger zerolog.Logger, err error) {
	logger.Error().
		Err(err).
		Str("hint", database.ConnectionHint(err)).
		Msg("Database setup failed")
}

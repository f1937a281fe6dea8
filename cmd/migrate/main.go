package main

import (
	"fmt"
	"os"

	"github.com/quillhub/backend/internal/config"
	"github.com/quillhub/backend/internal/database"
	"github.com/quillhub/backend/internal/logger"
	"go.uber.org/zap"
)

func main() {
	command := "up"
	if len(os.Args) > 1 {
		command = os.Args[1]
	}

	switch command {
	case "up":
		if err := runMigrationsUp(); err != nil {
			fmt.Fprintf(os.Stderr, "migration failed: %v\n", err)
			os.Exit(1)
		}
	default:
		fmt.Println("Usage: migrate [up]")
		fmt.Println("  up - Create or update all tables and indexes")
		os.Exit(1)
	}
}

func runMigrationsUp() error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	if err := logger.Initialize(cfg.LogLevel, cfg.LogFile); err != nil {
		return err
	}
	defer logger.Close()

	logger.Log.Info("Connecting to database...", zap.String("driver", cfg.Database.Driver))
	if err := database.Initialize(cfg.Database, cfg.IsDevelopment()); err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}
	defer database.Close()

	logger.Log.Info("Running migrations...")
	if err := database.Migrate(); err != nil {
		return err
	}

	logger.Log.Info("All migrations completed successfully")
	return nil
}

package main

import (
	"context"
	"flag"
	"fmt"
	"os"

	"github.com/quillhub/backend/internal/config"
	"github.com/quillhub/backend/internal/container"
	"github.com/quillhub/backend/internal/database"
	"github.com/quillhub/backend/internal/logger"
	"github.com/quillhub/backend/internal/search"
	"github.com/quillhub/backend/internal/seed"
	"go.uber.org/zap"
)

func usage() {
	fmt.Println("Usage: seed [flags] [dev|test|clean]")
	fmt.Println("  dev   - Seed development database with realistic data")
	fmt.Println("  test  - Seed test database with minimal data")
	fmt.Println("  clean - Remove all data (use with caution)")
	flag.PrintDefaults()
}

func main() {
	n := seed.DevCounts
	flag.IntVar(&n.Users, "users", n.Users, "number of users for dev seeding")
	flag.IntVar(&n.Posts, "posts", n.Posts, "number of posts for dev seeding")
	flag.IntVar(&n.Comments, "comments", n.Comments, "number of comments for dev seeding")
	flag.IntVar(&n.Reactions, "reactions", n.Reactions, "number of reaction toggles for dev seeding")
	flag.Usage = usage
	flag.Parse()

	command := "dev"
	if flag.NArg() > 0 {
		command = flag.Arg(0)
	}
	if command != "dev" && command != "test" && command != "clean" {
		usage()
		os.Exit(1)
	}

	if err := run(command, n); err != nil {
		fmt.Fprintf(os.Stderr, "seed %s failed: %v\n", command, err)
		os.Exit(1)
	}
}

func run(command string, n seed.Counts) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	if err := logger.Initialize(cfg.LogLevel, cfg.LogFile); err != nil {
		return err
	}
	defer logger.Close()

	if err := database.Initialize(cfg.Database, cfg.IsDevelopment()); err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}
	defer database.Close()
	if err := database.Migrate(); err != nil {
		return err
	}

	ctx := context.Background()
	opts := container.Options{JWTSecret: []byte(cfg.JWTSecret)}
	if cfg.ElasticsearchURL != "" {
		client, err := search.NewClient(ctx, cfg.ElasticsearchURL)
		if err != nil {
			logger.Log.Warn("Elasticsearch unavailable, skipping reindex", zap.Error(err))
		} else {
			opts.SearchClient = client
		}
	}

	app, err := container.Build(database.DB, opts)
	if err != nil {
		return err
	}
	seeder := seed.NewSeeder(app)

	switch command {
	case "dev":
		logger.Log.Info("Seeding development database...")
		err = seeder.SeedDev(ctx, n)
	case "test":
		logger.Log.Info("Seeding test database...")
		err = seeder.SeedTest(ctx)
	case "clean":
		logger.Log.Info("Cleaning database...")
		err = seeder.Clean()
	}
	if err != nil {
		return err
	}

	logger.Log.Info("Done", zap.String("command", command))
	return nil
}

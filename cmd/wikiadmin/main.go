package main

import (
	"context"
	"fmt"
	"log"
	"log/slog"
	"os"
	"time"

	"wikistore/internal/config"
	"wikistore/internal/repository/postgres"

	"github.com/joho/godotenv"
	"github.com/spf13/pflag"
)

func main() {
	// Load .env file (silently ignore if it doesn't exist - for production)
	_ = godotenv.Load()

	var (
		createWiki = pflag.String("create-wiki", "", "provision the schema and tables for the named wiki")
		dropWiki   = pflag.String("drop-wiki", "", "drop the named wiki and everything in it")
		checkWiki  = pflag.String("exists", "", "report whether the named wiki is provisioned")
	)
	pflag.Parse()

	cfg := config.Load()

	logLevel := slog.LevelInfo
	if cfg.Environment == "dev" {
		logLevel = slog.LevelDebug
	}
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: logLevel,
	}))
	slog.SetDefault(logger)

	if cfg.DatabaseURL == "" {
		log.Fatal("DATABASE_URL is required")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	pool, err := postgres.CreateConnectionPool(ctx, cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer pool.Close()

	prov := postgres.NewProvisioner(pool, logger)

	switch {
	case *createWiki != "":
		if err := prov.CreateWiki(ctx, *createWiki); err != nil {
			log.Fatalf("Failed to create wiki %q: %v", *createWiki, err)
		}
		logger.Info("wiki created", "wiki", *createWiki)
	case *dropWiki != "":
		if err := prov.DeleteWiki(ctx, *dropWiki); err != nil {
			log.Fatalf("Failed to drop wiki %q: %v", *dropWiki, err)
		}
		logger.Info("wiki dropped", "wiki", *dropWiki)
	case *checkWiki != "":
		exists, err := prov.WikiExists(ctx, *checkWiki)
		if err != nil {
			log.Fatalf("Failed to check wiki %q: %v", *checkWiki, err)
		}
		fmt.Println(exists)
	default:
		pflag.Usage()
		os.Exit(2)
	}
}

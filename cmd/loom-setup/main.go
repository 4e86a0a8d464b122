// Command loom-setup initializes the Loom database schema and verifies the
// installation. Opening a store applies its schema, so a plain run is enough
// to provision a fresh database; --verify additionally health-checks the
// configured backend and the embedding provider.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/joho/godotenv"

	"github.com/act-global/loom/internal/config"
	"github.com/act-global/loom/internal/embedding"
	"github.com/act-global/loom/internal/storage"
	"github.com/act-global/loom/internal/storage/postgres"
	"github.com/act-global/loom/internal/storage/sqlite"
)

func main() {
	// Load .env if present; real env vars still win.
	_ = godotenv.Load()

	configPath := flag.String("config", "", "Path to YAML config file")
	dsn := flag.String("dsn", "", "Database connection string (overrides config)")
	verify := flag.Bool("verify", false, "Run a full health check after applying the schema")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
	if *dsn != "" {
		cfg.Storage.DSN = *dsn
	}

	ctx := context.Background()

	store, err := openStore(cfg)
	if err != nil {
		log.Fatalf("Failed to initialize storage: %v", err)
	}
	defer func() { _ = store.Close() }()

	fmt.Printf("Schema applied (%s backend)\n", cfg.Storage.Engine)

	if !*verify {
		return
	}

	fmt.Println()
	fmt.Println("Loom Setup Verification")
	fmt.Println("=======================")
	fmt.Println()

	statusOK := true

	if pending, err := store.CountPendingMatches(ctx); err != nil {
		fmt.Printf("Datastore:  FAIL (%v)\n", err)
		statusOK = false
	} else {
		fmt.Printf("Datastore:  OK (%d pending matches)\n", pending)
	}

	if total, err := store.CountEpisodes(ctx); err != nil {
		fmt.Printf("Episodes:   FAIL (%v)\n", err)
		statusOK = false
	} else {
		fmt.Printf("Episodes:   OK (%d stored)\n", total)
	}

	if pg, ok := store.(*postgres.Store); ok {
		if pg.VectorAvailable() {
			fmt.Println("pgvector:   OK")
		} else {
			fmt.Println("pgvector:   Missing (episodes will be stored without embeddings)")
		}
	}

	embedder := embedding.NewClient(embedding.Config{
		BaseURL:           cfg.Embedding.BaseURL,
		Model:             cfg.Embedding.Model,
		Timeout:           time.Duration(cfg.Embedding.TimeoutSeconds) * time.Second,
		BatchSize:         cfg.Embedding.BatchSize,
		RequestsPerSecond: cfg.Embedding.RequestsPerSecond,
	})
	if err := embedder.Ping(ctx); err != nil {
		fmt.Printf("Embeddings: FAIL (%v)\n", err)
		statusOK = false
	} else {
		fmt.Printf("Embeddings: OK (%s via %s)\n", cfg.Embedding.Model, cfg.Embedding.BaseURL)
	}

	fmt.Println()
	if !statusOK {
		fmt.Println("Verification found problems; see above.")
		os.Exit(1)
	}
	fmt.Println("All checks passed.")
}

// openStore dispatches on the configured storage engine.
func openStore(cfg *config.Config) (storage.Store, error) {
	switch cfg.Storage.Engine {
	case "postgres":
		return postgres.NewStore(cfg.Storage.DSN)
	case "sqlite":
		return sqlite.NewStore(cfg.Storage.DSN)
	default:
		return nil, fmt.Errorf("unknown storage engine %q", cfg.Storage.Engine)
	}
}

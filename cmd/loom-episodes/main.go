// Command loom-episodes runs the episode clustering pipeline: it groups
// project-linked knowledge items into temporal clusters, synthesizes an
// episode for each, embeds it, and persists the result.
package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"time"

	"github.com/joho/godotenv"

	"github.com/act-global/loom/internal/config"
	"github.com/act-global/loom/internal/embedding"
	"github.com/act-global/loom/internal/episode"
	"github.com/act-global/loom/internal/storage"
	"github.com/act-global/loom/internal/storage/postgres"
	"github.com/act-global/loom/internal/storage/sqlite"
)

func main() {
	// Load .env if present; real env vars still win.
	_ = godotenv.Load()

	configPath := flag.String("config", "", "Path to YAML config file")
	dsn := flag.String("dsn", "", "Database connection string (overrides config)")
	dryRun := flag.Bool("dry-run", false, "Detect and print clusters without writing")
	stats := flag.Bool("stats", false, "Print store statistics and exit")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
	if *dsn != "" {
		cfg.Storage.DSN = *dsn
	}

	store, err := openStore(cfg)
	if err != nil {
		log.Fatalf("Failed to initialize storage: %v", err)
	}
	defer func() { _ = store.Close() }()

	ctx := context.Background()

	if *stats {
		if err := printStats(ctx, os.Stdout, store); err != nil {
			log.Fatalf("Failed to read store statistics: %v", err)
		}
		return
	}

	embedder := embedding.NewClient(embedding.Config{
		BaseURL:           cfg.Embedding.BaseURL,
		Model:             cfg.Embedding.Model,
		Timeout:           time.Duration(cfg.Embedding.TimeoutSeconds) * time.Second,
		BatchSize:         cfg.Embedding.BatchSize,
		RequestsPerSecond: cfg.Embedding.RequestsPerSecond,
	})

	clusterer := episode.NewClusterer(store, store, embedder, episode.Options{
		GapDays:          cfg.Episodes.GapDays,
		MinItems:         cfg.Episodes.MinItems,
		ActiveWindowDays: cfg.Episodes.ActiveWindowDays,
	})

	if *dryRun {
		detected, items, err := clusterer.Detect(ctx)
		if err != nil {
			log.Fatalf("Episode detection failed: %v", err)
		}
		fmt.Printf("Dry run: %d items scanned, %d episodes detected\n", items, len(detected))
		for _, ep := range detected {
			fmt.Printf("  [%s] %s (%s to %s, %d events)\n",
				ep.ProjectCode, ep.Title,
				ep.StartedAt.Format("2006-01-02"), ep.EndedAt.Format("2006-01-02"),
				len(ep.KeyEvents))
		}
		return
	}

	report, err := clusterer.Run(ctx)
	if err != nil {
		log.Fatalf("Episode clustering failed: %v", err)
	}

	fmt.Println("Episode clustering complete")
	fmt.Printf("  Items scanned:     %d\n", report.Items)
	fmt.Printf("  Clusters detected: %d\n", report.Detected)
	fmt.Printf("  Already covered:   %d\n", report.Covered)
	fmt.Printf("  Episodes inserted: %d\n", report.Inserted)
	fmt.Printf("  Failures:          %d\n", report.Failed)
	fmt.Printf("  Episodes in store: %d\n", report.Total)
}

// printStats lists every stored episode plus the backlog counts. No
// detection runs in stats mode.
func printStats(ctx context.Context, w io.Writer, store storage.Store) error {
	episodes, err := store.ListEpisodes(ctx)
	if err != nil {
		return fmt.Errorf("list episodes: %w", err)
	}
	pending, err := store.CountPendingMatches(ctx)
	if err != nil {
		return fmt.Errorf("count pending matches: %w", err)
	}

	fmt.Fprintf(w, "Episodes stored:  %d\n", len(episodes))
	for _, ep := range episodes {
		fmt.Fprintf(w, "  [%s] %s (%s to %s, %s)\n",
			ep.ProjectCode, ep.Title,
			ep.StartedAt.Format("2006-01-02"), ep.EndedAt.Format("2006-01-02"),
			ep.Status)
	}
	fmt.Fprintf(w, "Pending matches:  %d\n", pending)
	return nil
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

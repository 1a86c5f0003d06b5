package main

import (
	"context"
	"flag"
	"log"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/carebook/carebook/backend/internal/adapters/database"
	"github.com/carebook/carebook/backend/internal/adapters/search"
	"github.com/carebook/carebook/backend/internal/domain/repositories"
	"github.com/carebook/carebook/backend/internal/infrastructure/clients/postgres"
	"github.com/carebook/carebook/backend/internal/infrastructure/clients/typesense"
	"github.com/carebook/carebook/backend/pkg/config"
)

const indexBatchSize = 500

func main() {
	var reset bool
	var intervalFlag string
	flag.BoolVar(&reset, "reset", false, "delete existing Typesense collection before reindexing")
	flag.StringVar(&intervalFlag, "interval", "", "repeat interval for reindexing (e.g. 6h, 30m)")
	flag.Parse()

	intervalValue := strings.TrimSpace(intervalFlag)
	if intervalValue == "" {
		intervalValue = strings.TrimSpace(os.Getenv("REINDEX_INTERVAL"))
	}

	var interval time.Duration
	var err error
	if intervalValue != "" {
		interval, err = time.ParseDuration(intervalValue)
		if err != nil {
			log.Fatalf("Invalid interval %q: %v", intervalValue, err)
		}
		if interval <= 0 {
			log.Fatalf("Interval must be greater than zero")
		}
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	for {
		if err := indexOnce(ctx, reset); err != nil {
			log.Printf("Reindex failed: %v", err)
		}

		if interval <= 0 {
			break
		}

		reset = false
		log.Printf("Reindex complete. Next run in %s.", interval)

		select {
		case <-ctx.Done():
			log.Println("Reindexer shutting down")
			return
		case <-time.After(interval):
		}
	}
}

func indexOnce(ctx context.Context, reset bool) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}

	pgClient, err := postgres.NewClient(&cfg.Database)
	if err != nil {
		return err
	}
	defer pgClient.Close()

	providerRepo := database.NewProviderAdapter(pgClient)

	tsClient, err := typesense.NewClient(&cfg.Typesense)
	if err != nil {
		return err
	}

	if reset || os.Getenv("RESET_TYPESENSE") == "true" {
		log.Println("Deleting providers collection before reindex")
		if err := tsClient.DropSchema(ctx); err != nil {
			log.Printf("Warning: failed to delete collection: %v", err)
		}
	}

	if err := tsClient.InitSchema(ctx); err != nil {
		return err
	}

	adapter := search.NewTypesenseAdapter(tsClient)

	indexed := 0
	for offset := 0; ; offset += indexBatchSize {
		providers, err := providerRepo.List(ctx, repositories.ProviderFilter{
			Limit:  indexBatchSize,
			Offset: offset,
		})
		if err != nil {
			return err
		}
		if len(providers) == 0 {
			break
		}

		if err := adapter.IndexProviders(ctx, providers); err != nil {
			return err
		}
		indexed += len(providers)
		log.Printf("Indexed %d providers so far...", indexed)

		if len(providers) < indexBatchSize {
			break
		}
	}

	log.Printf("Indexing complete: %d providers.", indexed)
	return nil
}

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

	"github.com/seanokelly/analogmarket/internal/adapters/database"
	"github.com/seanokelly/analogmarket/internal/adapters/search"
	"github.com/seanokelly/analogmarket/internal/infrastructure/clients/postgres"
	"github.com/seanokelly/analogmarket/internal/infrastructure/clients/typesense"
	"github.com/seanokelly/analogmarket/pkg/config"
)

func main() {
	var reset bool
	var intervalFlag string
	var pageSize int
	flag.BoolVar(&reset, "reset", false, "delete existing Typesense collection before reindexing")
	flag.StringVar(&intervalFlag, "interval", "", "repeat interval for reindexing (e.g. 6h, 30m)")
	flag.IntVar(&pageSize, "page-size", 1000, "maximum products to index per run")
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
		if err := indexOnce(ctx, reset, pageSize); err != nil {
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

func indexOnce(ctx context.Context, reset bool, pageSize int) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}

	pgClient, err := postgres.NewClient(&cfg.Database)
	if err != nil {
		return err
	}
	defer pgClient.Close()

	productRepo := database.NewProductAdapter(pgClient)

	tsClient, err := typesense.NewClient(&cfg.Typesense)
	if err != nil {
		return err
	}

	if reset || os.Getenv("RESET_TYPESENSE") == "true" {
		log.Println("Deleting products collection before reindex")
		_, err := tsClient.Client().Collection(typesense.ProductsCollection).Delete(ctx)
		if err != nil {
			log.Printf("Warning: failed to delete collection: %v", err)
		}
	}

	if err := tsClient.InitSchema(ctx); err != nil {
		return err
	}

	products, err := productRepo.ListActive(ctx, pageSize)
	if err != nil {
		return err
	}

	indexRepo := search.NewProductIndexAdapter(tsClient)

	indexed := 0
	failed := 0
	for _, product := range products {
		if err := indexRepo.IndexProduct(ctx, product); err != nil {
			log.Printf("Warning: failed to index product %s: %v", product.ID, err)
			failed++
			continue
		}
		indexed++
	}

	log.Printf("Indexed %d products (%d failed)", indexed, failed)
	return nil
}

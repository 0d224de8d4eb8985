package main

import (
	"context"
	"encoding/json"
	"flag"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/seanokelly/analogmarket/internal/adapters/database"
	"github.com/seanokelly/analogmarket/internal/application/services"
	"github.com/seanokelly/analogmarket/internal/domain/entities"
	"github.com/seanokelly/analogmarket/internal/domain/providers"
	"github.com/seanokelly/analogmarket/internal/infrastructure/clients/openai"
	"github.com/seanokelly/analogmarket/internal/infrastructure/clients/postgres"
	"github.com/seanokelly/analogmarket/pkg/config"
)

func main() {
	var productID string
	var dryRun bool
	var force bool
	var categorize bool
	var style string
	var asJSON bool

	flag.StringVar(&productID, "product", "", "Single product ID to process")
	flag.BoolVar(&dryRun, "dry-run", false, "Report changes without writing them")
	flag.BoolVar(&force, "force", false, "Re-enrich fields that already hold values")
	flag.BoolVar(&categorize, "categorize", false, "Run categorization instead of full rationalization")
	flag.StringVar(&style, "style", "", "Copy tone: nostalgic, practical, or minimalist")
	flag.BoolVar(&asJSON, "json", false, "Print the full report as JSON")
	flag.Parse()

	// Load config
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	// Setup DB
	pgClient, err := postgres.NewClient(&cfg.Database)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer pgClient.Close()

	productRepo := database.NewProductAdapter(pgClient)

	// Setup provider; without a key the rule engine carries every item
	var provider providers.ProductEnrichmentProvider
	if cfg.OpenAI.APIKey != "" {
		client, err := openai.NewClient(&cfg.OpenAI)
		if err != nil {
			log.Fatalf("Failed to create OpenAI client: %v", err)
		}
		defer client.Close()
		provider = client
	} else {
		log.Println("OPENAI_API_KEY not set; using rule-based inference only")
	}

	enricher := services.NewFallbackEnricher(provider)
	settings := services.PipelineSettings{
		Budget:    cfg.Pipeline.Budget(),
		PaceDelay: cfg.Pipeline.PaceDelay(),
		PageSize:  cfg.Pipeline.PageSize,
	}
	opts := services.RunOptions{DryRun: dryRun, Force: force, Style: style}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	start := time.Now()

	var report *entities.RunReport
	if categorize {
		svc := services.NewCategorizationService(productRepo, enricher, nil, nil, settings)
		if productID != "" {
			report, err = svc.CategorizeProduct(ctx, productID, opts)
		} else {
			report, err = svc.CategorizeCatalog(ctx, opts)
		}
	} else {
		svc := services.NewRationalizationService(productRepo, enricher, nil, nil, settings)
		if productID != "" {
			report, err = svc.RationalizeProduct(ctx, productID, opts)
		} else {
			report, err = svc.RationalizeCatalog(ctx, opts)
		}
	}
	if err != nil {
		log.Fatalf("Run failed: %v", err)
	}

	if asJSON {
		encoder := json.NewEncoder(os.Stdout)
		encoder.SetIndent("", "  ")
		if err := encoder.Encode(report); err != nil {
			log.Fatalf("Failed to encode report: %v", err)
		}
		return
	}

	log.Printf("Run complete in %s", time.Since(start))
	log.Printf("Total processed: %d", report.Summary.Total)
	log.Printf("Updated: %d", report.Summary.Updated)
	if categorize {
		log.Printf("Categorized: %d (cameras: %d, accessories: %d)",
			report.Summary.Categorized, report.Summary.Cameras, report.Summary.Accessories)
	} else {
		log.Printf("Copy generated: %d", report.Summary.CopyGenerated)
	}
	log.Printf("Errors: %d", report.Summary.Errors)
	if report.Summary.PartialResult {
		log.Printf("Partial result: run budget exhausted before the full page was processed")
	}
	if dryRun {
		log.Printf("Dry run: no changes were written")
	}
}

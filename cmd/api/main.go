package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	redislib "github.com/redis/go-redis/v9"
	"github.com/seanokelly/analogmarket/internal/adapters/cache"
	"github.com/seanokelly/analogmarket/internal/adapters/database"
	"github.com/seanokelly/analogmarket/internal/adapters/events"
	"github.com/seanokelly/analogmarket/internal/adapters/search"
	"github.com/seanokelly/analogmarket/internal/api/handlers"
	"github.com/seanokelly/analogmarket/internal/api/middleware"
	"github.com/seanokelly/analogmarket/internal/api/routes"
	"github.com/seanokelly/analogmarket/internal/application/services"
	"github.com/seanokelly/analogmarket/internal/domain/providers"
	"github.com/seanokelly/analogmarket/internal/domain/repositories"
	"github.com/seanokelly/analogmarket/internal/infrastructure/clients/openai"
	"github.com/seanokelly/analogmarket/internal/infrastructure/clients/postgres"
	"github.com/seanokelly/analogmarket/internal/infrastructure/clients/redis"
	"github.com/seanokelly/analogmarket/internal/infrastructure/clients/typesense"
	"github.com/seanokelly/analogmarket/internal/infrastructure/observability"
	"github.com/seanokelly/analogmarket/pkg/config"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	observability.InitLogger(cfg.OTEL.ServiceName, os.Getenv("APP_ENV"))

	// Set up context for graceful shutdown
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Initialize OpenTelemetry if enabled
	var shutdown func(context.Context) error
	if cfg.OTEL.Enabled && cfg.OTEL.Endpoint != "" {
		shutdown, err = observability.Setup(
			ctx,
			cfg.OTEL.ServiceName,
			cfg.OTEL.ServiceVersion,
			cfg.OTEL.Endpoint,
		)
		if err != nil {
			log.Printf("Warning: Failed to set up OpenTelemetry: %v", err)
		} else {
			defer func() {
				ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
				defer cancel()
				if err := shutdown(ctx); err != nil {
					log.Printf("Error shutting down OpenTelemetry: %v", err)
				}
			}()
			log.Println("OpenTelemetry initialized successfully")
		}
	}

	// Initialize metrics
	metrics, err := observability.InitMetrics()
	if err != nil {
		log.Fatalf("Failed to initialize metrics: %v", err)
	}

	// Initialize database client
	pgClient, err := postgres.NewClient(&cfg.Database)
	if err != nil {
		log.Fatalf("Failed to initialize PostgreSQL client: %v", err)
	}
	defer pgClient.Close()
	log.Println("PostgreSQL client initialized successfully")

	// Initialize Redis client
	redisClient, err := redis.NewClient(&cfg.Redis)
	if err != nil {
		log.Printf("Warning: Failed to initialize Redis client: %v", err)
		redisClient = nil
		// Continue without Redis - the application can work without caching
	} else {
		defer redisClient.Close()
		log.Println("Redis client initialized successfully")
	}

	// Initialize Typesense client
	typesenseClient, err := typesense.NewClient(&cfg.Typesense)
	if err != nil {
		log.Printf("Warning: Failed to initialize Typesense client: %v", err)
		typesenseClient = nil
	} else {
		log.Println("Typesense client initialized successfully")
	}

	// Initialize adapters

	var cacheProvider providers.CacheProvider
	if redisClient != nil {
		cacheProvider = cache.NewRedisAdapter(redisClient)
	}

	// Create base product adapter, wrapped with caching when Redis is up
	baseProductAdapter := database.NewProductAdapter(pgClient)
	var productAdapter repositories.ProductRepository
	if cacheProvider != nil {
		productAdapter = database.NewCachedProductAdapter(baseProductAdapter, cacheProvider)
		log.Println("Product adapter wrapped with caching layer")
	} else {
		productAdapter = baseProductAdapter
		log.Println("Product adapter running without cache (Redis unavailable)")
	}

	var indexRepo repositories.ProductIndexRepository
	if typesenseClient != nil {
		adapter := search.NewProductIndexAdapter(typesenseClient)
		// Ensure schema exists
		if err := typesenseClient.InitSchema(context.Background()); err != nil {
			log.Printf("Warning: Failed to init Typesense schema: %v", err)
		}
		indexRepo = adapter
	}

	// Initialize event bus for real-time updates
	var eventBus providers.EventBus
	if redisClient != nil {
		eventBus = events.NewRedisEventBus(redisClient)
		log.Println("Event bus initialized successfully")
	} else {
		log.Println("Event bus disabled (Redis not available)")
	}

	var enrichmentProvider providers.ProductEnrichmentProvider
	if cfg.OpenAI.APIKey == "" {
		log.Println("Warning: OPENAI_API_KEY is not set; enrichment runs on the rule engine only")
	} else {
		openaiClient, err := openai.NewClient(&cfg.OpenAI)
		if err != nil {
			log.Printf("Warning: Failed to initialize OpenAI client: %v", err)
		} else {
			defer openaiClient.Close()
			enrichmentProvider = openaiClient
		}
	}

	// Initialize cache invalidation service
	var cacheInvalidationService *services.CacheInvalidationService
	if cacheProvider != nil && eventBus != nil {
		cacheInvalidationService = services.NewCacheInvalidationService(cacheProvider, eventBus)
		if err := cacheInvalidationService.Start(); err != nil {
			log.Printf("Warning: Failed to start cache invalidation service: %v", err)
		} else {
			log.Println("Cache invalidation service started successfully")
		}
	}

	// Initialize services
	enricher := services.NewFallbackEnricher(enrichmentProvider)
	settings := services.PipelineSettings{
		Budget:    cfg.Pipeline.Budget(),
		PaceDelay: cfg.Pipeline.PaceDelay(),
		PageSize:  cfg.Pipeline.PageSize,
	}

	rationalizationService := services.NewRationalizationService(productAdapter, enricher, indexRepo, eventBus, settings)
	categorizationService := services.NewCategorizationService(productAdapter, enricher, indexRepo, eventBus, settings)
	statusService := services.NewCatalogStatusService(productAdapter, settings)

	// Initialize handlers
	productHandler := handlers.NewProductHandler(productAdapter, indexRepo)

	var rawRedis *redislib.Client
	if redisClient != nil {
		rawRedis = redisClient.Client()
	}

	rationalizationHandler := handlers.NewRationalizationHandler(
		rationalizationService,
		categorizationService,
		statusService,
		rawRedis,
		time.Hour,
	)

	// Initialize cache middleware
	var cacheMiddleware *middleware.CacheMiddleware
	if cacheProvider != nil {
		cacheMiddleware = middleware.NewCacheMiddleware(cacheProvider)
		log.Println("Cache middleware initialized successfully")
	}

	// Set up router
	router := routes.NewRouter(
		productHandler,
		rationalizationHandler,
		cacheMiddleware,
		cfg.Admin.Token,
		metrics,
	)

	handler := router.SetupRoutes()

	// Create HTTP server
	serverAddr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	server := &http.Server{
		Addr:         serverAddr,
		Handler:      handler,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 90 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Start server in a goroutine
	go func() {
		log.Printf("Server starting on %s", serverAddr)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Server failed to start: %v", err)
		}
	}()

	// Wait for interrupt signal for graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("Server shutting down...")

	// Graceful shutdown with timeout
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Printf("Error during server shutdown: %v", err)
	}

	// Close event bus
	if eventBus != nil {
		if err := eventBus.Close(); err != nil {
			log.Printf("Error closing event bus: %v", err)
		}
	}

	// Stop cache invalidation service
	if cacheInvalidationService != nil {
		cacheInvalidationService.Stop()
	}

	log.Println("Server stopped")
}

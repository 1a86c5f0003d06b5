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

	"github.com/carebook/carebook/backend/internal/adapters/cache"
	"github.com/carebook/carebook/backend/internal/adapters/database"
	"github.com/carebook/carebook/backend/internal/adapters/events"
	"github.com/carebook/carebook/backend/internal/adapters/providers/emr"
	"github.com/carebook/carebook/backend/internal/adapters/search"
	"github.com/carebook/carebook/backend/internal/api/handlers"
	"github.com/carebook/carebook/backend/internal/api/middleware"
	"github.com/carebook/carebook/backend/internal/api/routes"
	"github.com/carebook/carebook/backend/internal/application/services"
	"github.com/carebook/carebook/backend/internal/domain/providers"
	"github.com/carebook/carebook/backend/internal/domain/repositories"
	"github.com/carebook/carebook/backend/internal/infrastructure/clients/postgres"
	"github.com/carebook/carebook/backend/internal/infrastructure/clients/redis"
	"github.com/carebook/carebook/backend/internal/infrastructure/clients/typesense"
	"github.com/carebook/carebook/backend/internal/infrastructure/observability"
	"github.com/carebook/carebook/backend/pkg/config"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

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
		// Continue without Redis - the application can work without caching
	} else {
		defer redisClient.Close()
		log.Println("Redis client initialized successfully")
	}

	// Initialize Typesense client
	typesenseClient, err := typesense.NewClient(&cfg.Typesense)
	if err != nil {
		log.Printf("Warning: Failed to initialize Typesense client: %v", err)
	} else {
		log.Println("Typesense client initialized successfully")
	}

	var cacheProvider providers.CacheProvider
	if redisClient != nil {
		cacheProvider = cache.NewRedisAdapter(redisClient)
	}

	// Initialize adapters

	// Contract reads sit on the resolution hot path; wrap with caching when
	// Redis is available
	baseContractAdapter := database.NewContractAdapter(pgClient)
	var contractAdapter repositories.ContractRepository
	if cacheProvider != nil {
		contractAdapter = database.NewCachedContractAdapter(baseContractAdapter, cacheProvider, cfg.Availability.ResolutionCacheTTLSeconds)
		log.Println("Contract adapter wrapped with caching layer")
	} else {
		contractAdapter = baseContractAdapter
		log.Println("Contract adapter running without cache (Redis unavailable)")
	}

	providerAdapter := database.NewProviderAdapter(pgClient)
	payerAdapter := database.NewPayerAdapter(pgClient)
	instanceAdapter := database.NewServiceInstanceAdapter(pgClient)
	availabilityAdapter := database.NewAvailabilityAdapter(pgClient)
	slotCacheAdapter := database.NewSlotCacheAdapter(pgClient)
	appointmentAdapter := database.NewAppointmentAdapter(pgClient)

	var searchRepo repositories.ProviderSearchRepository
	if typesenseClient != nil {
		// Ensure schema exists
		if err := typesenseClient.InitSchema(context.Background()); err != nil {
			log.Printf("Warning: Failed to init Typesense schema: %v", err)
		}
		searchRepo = search.NewTypesenseAdapter(typesenseClient)
	}

	// Initialize event bus for schedule change propagation
	var eventBus providers.EventBus
	if redisClient != nil {
		eventBus = events.NewRedisEventBus(redisClient)
		log.Println("Event bus initialized successfully")
	} else {
		log.Println("Event bus disabled (Redis not available)")
	}

	emrProvider := emr.NewEMRProvider(&cfg.EMR)

	// Initialize services
	resolutionDefaults := services.NewResolutionDefaults(&cfg.Availability)
	bookabilityService := services.NewBookabilityService(contractAdapter, providerAdapter, payerAdapter)

	availabilityService := services.NewAvailabilityCacheService(
		slotCacheAdapter,
		availabilityAdapter,
		appointmentAdapter,
		instanceAdapter,
		providerAdapter,
		payerAdapter,
		bookabilityService,
		services.NewSlotGeneratorService(),
		eventBus,
		metrics,
		cfg.Availability.PopulateWorkers,
	)

	mergeService := services.NewMergeService(
		bookabilityService,
		instanceAdapter,
		providerAdapter,
		availabilityService,
	)

	appointmentService := services.NewAppointmentService(
		appointmentAdapter,
		instanceAdapter,
		bookabilityService,
		availabilityService,
		emrProvider,
		eventBus,
		metrics,
	)

	// Initialize cache invalidation service
	var cacheInvalidationService *services.CacheInvalidationService
	if eventBus != nil {
		cacheInvalidationService = services.NewCacheInvalidationService(availabilityService, cacheProvider, eventBus)
		if err := cacheInvalidationService.Start(); err != nil {
			log.Printf("Warning: Failed to start cache invalidation service: %v", err)
		} else {
			log.Println("Cache invalidation service started successfully")
		}
	}

	// Initialize handlers
	bookabilityHandler := handlers.NewBookabilityHandler(bookabilityService, resolutionDefaults)
	availabilityHandler := handlers.NewAvailabilityHandler(availabilityService, mergeService, resolutionDefaults)
	bookingHandler := handlers.NewBookingHandler(appointmentService)

	var providerSearchHandler *handlers.ProviderSearchHandler
	if searchRepo != nil {
		providerSearchHandler = handlers.NewProviderSearchHandler(searchRepo)
	}

	// Initialize cache middleware
	var cacheMiddleware *middleware.CacheMiddleware
	if cacheProvider != nil {
		cacheMiddleware = middleware.NewCacheMiddleware(cacheProvider)
		log.Println("Cache middleware initialized successfully")
	}

	// Set up router
	router := routes.NewRouter(
		bookabilityHandler,
		availabilityHandler,
		bookingHandler,
		providerSearchHandler,
		cacheMiddleware,
		metrics,
	)
	handler := router.SetupRoutes()

	// Create HTTP server
	serverAddr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	server := &http.Server{
		Addr:         serverAddr,
		Handler:      handler,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
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

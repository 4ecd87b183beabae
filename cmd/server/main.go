package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"
	"github.com/newrelic/go-agent/v3/newrelic"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/transitops/fleetdesk/internal/cache"
	"github.com/transitops/fleetdesk/internal/config"
	"github.com/transitops/fleetdesk/internal/database"
	"github.com/transitops/fleetdesk/internal/handler"
	"github.com/transitops/fleetdesk/internal/middleware"
	"github.com/transitops/fleetdesk/internal/notifier"
	"github.com/transitops/fleetdesk/internal/repository"
	"github.com/transitops/fleetdesk/internal/service"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	// Initialize New Relic (optional)
	var nrApp *newrelic.Application
	if cfg.NewRelicEnabled && cfg.NewRelicLicenseKey != "" {
		nrApp, err = newrelic.NewApplication(
			newrelic.ConfigAppName(cfg.NewRelicAppName),
			newrelic.ConfigLicense(cfg.NewRelicLicenseKey),
			newrelic.ConfigDistributedTracerEnabled(true),
		)
		if err != nil {
			log.Printf("Warning: Failed to initialize New Relic: %v", err)
		} else if err := nrApp.WaitForConnection(10 * time.Second); err != nil {
			log.Printf("Warning: New Relic connection timeout: %v", err)
		}
	}

	// Initialize PostgreSQL
	db, err := database.NewPostgres(
		cfg.DatabaseURL,
		cfg.DBMaxConnections,
		cfg.DBMaxIdleConnections,
	)
	if err != nil {
		log.Fatalf("Failed to connect to PostgreSQL: %v", err)
	}
	defer db.Close()
	log.Println("Connected to PostgreSQL")

	// Initialize Redis
	redis, err := database.NewRedis(cfg.RedisURL, cfg.RedisPassword)
	if err != nil {
		log.Fatalf("Failed to connect to Redis: %v", err)
	}
	defer redis.Close()
	log.Println("Connected to Redis")

	// Initialize repositories
	bookingRepo := repository.NewBookingRepository(db.DB)
	vehicleRepo := repository.NewVehicleRepository(db.DB)
	driverRepo := repository.NewDriverRepository(db.DB)
	contractorRepo := repository.NewContractorRepository(db.DB)
	assignmentRepo := repository.NewAssignmentRepository(db.DB)
	requestRepo := repository.NewConfirmationRequestRepository(db.DB)
	allocationStore := repository.NewAllocationStore(db.DB)

	// Notifier: webhook when configured, process log otherwise
	var notify notifier.Notifier
	if cfg.NotifierWebhookURL != "" {
		notify = notifier.NewWebhookNotifier(cfg.NotifierWebhookURL)
	} else {
		notify = notifier.NewLogNotifier()
	}

	// Initialize allocator services
	guard := cache.NewDispatchGuard(redis.Client)
	directory := service.NewResourceDirectory(vehicleRepo, driverRepo, contractorRepo)
	ledger := service.NewAssignmentLedger(allocationStore)
	dispatcher := service.NewContractorDispatcher(
		directory, bookingRepo, requestRepo, ledger, guard, notify,
		cfg.ConfirmationWindow, cfg.MaxContractorFanOut, cfg.NotifyManagers,
	)
	engine := service.NewAssignmentEngine(bookingRepo, directory, ledger, dispatcher, cfg.CommitRetries)

	// Initialize handlers
	bookingHandler := handler.NewBookingHandler(bookingRepo, engine, dispatcher)
	assignmentHandler := handler.NewAssignmentHandler(assignmentRepo, ledger)
	dispatchHandler := handler.NewDispatchHandler(dispatcher, guard)
	fleetHandler := handler.NewFleetHandler(vehicleRepo, driverRepo, contractorRepo)

	// Create router
	r := chi.NewRouter()

	// Apply middleware
	r.Use(middleware.Recovery)
	r.Use(middleware.Logger)
	r.Use(middleware.Metrics)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "Idempotency-Key"},
		ExposedHeaders:   []string{"Link", "X-RateLimit-Limit", "X-RateLimit-Remaining"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	// New Relic middleware
	if nrApp != nil {
		r.Use(middleware.NewRelicMiddleware(nrApp))
	}

	// Rate limiter (100 requests per minute per IP)
	rateLimiter := middleware.NewRateLimiter(redis.Client, 100, time.Minute)
	r.Use(rateLimiter.Handler)

	// Idempotency middleware
	idempotencyMw := middleware.NewIdempotencyMiddleware(redis.Client)
	r.Use(idempotencyMw.Handler)

	// Health check
	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		if err := db.Health(ctx); err != nil {
			http.Error(w, "database unhealthy", http.StatusServiceUnavailable)
			return
		}
		if err := redis.Health(ctx); err != nil {
			http.Error(w, "redis unhealthy", http.StatusServiceUnavailable)
			return
		}

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"status":"ok","services":{"database":"up","redis":"up"}}`))
	})

	// Prometheus metrics
	r.Handle("/metrics", promhttp.Handler())

	// API v1 routes
	r.Route("/v1", func(r chi.Router) {
		bookingHandler.RegisterRoutes(r)
		assignmentHandler.RegisterRoutes(r)
		dispatchHandler.RegisterRoutes(r)
		fleetHandler.RegisterRoutes(r)
	})

	// Background expiry sweep
	sweepCtx, cancelSweep := context.WithCancel(context.Background())
	defer cancelSweep()
	sweeper := service.NewExpirySweeper(dispatcher, cfg.SweepInterval)
	go sweeper.Run(sweepCtx)

	// Create server
	srv := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      r,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Graceful shutdown
	go func() {
		sigChan := make(chan os.Signal, 1)
		signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
		<-sigChan

		log.Println("Shutting down server...")
		cancelSweep()
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		if err := srv.Shutdown(ctx); err != nil {
			log.Printf("Server shutdown error: %v", err)
		}
	}()

	// Start server
	log.Printf("Server starting on port %s", cfg.Port)

	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		log.Fatalf("Server error: %v", err)
	}

	log.Println("Server stopped gracefully")
}

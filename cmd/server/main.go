package main

import (
	"context"
	"errors"
	"flag"
	"log"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"go.opentelemetry.io/contrib/instrumentation/google.golang.org/grpc/otelgrpc"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"

	escrowv1 "rental-escrow-backend/api/escrow/v1"
	api "rental-escrow-backend/internal/api/grpc"
	"rental-escrow-backend/internal/api/grpc/interceptor"
	httpapi "rental-escrow-backend/internal/api/http"
	"rental-escrow-backend/internal/arbiter"
	"rental-escrow-backend/internal/config"
	"rental-escrow-backend/internal/domain"
	"rental-escrow-backend/internal/jobs"
	"rental-escrow-backend/internal/ledger"
	"rental-escrow-backend/internal/logger"
	"rental-escrow-backend/internal/metrics"
	"rental-escrow-backend/internal/notify"
	"rental-escrow-backend/internal/repository"
	"rental-escrow-backend/internal/repository/sqlstore"
	"rental-escrow-backend/internal/security"
	"rental-escrow-backend/internal/service"
	"rental-escrow-backend/internal/telemetry"
	"rental-escrow-backend/internal/verification"
)

func main() {
	// Parse command-line flags
	configPath := flag.String("config", "config/config.example.yaml", "Path to configuration file")
	flag.Parse()

	// Load configuration
	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	// Initialize logger
	logger.Initialize(cfg.Log.Level, cfg.Log.Format)
	logger.Info("Starting Rental Escrow Backend...", "log_level", cfg.Log.Level, "log_format", cfg.Log.Format)
	logger.Info("Server configuration", "grpc_address", cfg.GetServerAddress(), "http_address", cfg.GetHTTPAddress())
	logger.Info("Escrow configuration",
		"fee_bps", cfg.Escrow.FeeBps,
		"min_duration", cfg.Escrow.MinDuration,
		"max_duration", cfg.Escrow.MaxDuration,
		"dispute_timeout", cfg.Escrow.DisputeTimeout,
		"arbiter", cfg.Escrow.Arbiter,
	)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Initialize tracing
	shutdownTelemetry, err := telemetry.Setup(ctx, cfg.Telemetry)
	if err != nil {
		log.Fatalf("Failed to initialize telemetry: %v", err)
	}

	// Initialize Database
	store, err := openStore(ctx, cfg)
	if err != nil {
		logger.Error("Failed to open database", "error", err, "driver", cfg.Database.Driver)
		log.Fatalf("Failed to open database: %v", err)
	}
	logger.Info("Database connection established", "driver", cfg.Database.Driver)

	// Metrics
	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	m := metrics.New(registry)

	// Notifications
	queue := notify.NewQueue(notify.NewSender(cfg.Notify), cfg.Notify.Workers, cfg.Notify.QueueSize, cfg.Notify.MaxRetries)
	queue.Start(ctx)
	notifier := notify.NewNotifier(queue, escrowLookup{store.Escrows()}, cfg.Notify.Contacts, cfg.Escrow.Arbiter)

	// Initialize the ledger
	arb, err := arbiter.New(cfg.Escrow.Arbiter)
	if err != nil {
		log.Fatalf("Failed to configure arbiter: %v", err)
	}
	gate := verification.NewFromConfig(cfg.Verification, store.Identities())
	escrowLedger, err := ledger.New(store, gate, arb, ledgerConfig(cfg),
		ledger.WithPublisher(notifier),
		ledger.WithMetrics(m),
		ledger.WithTracer(telemetry.Tracer()),
	)
	if err != nil {
		log.Fatalf("Failed to initialize ledger: %v", err)
	}

	// Abort anything a previous process left half-applied before taking traffic
	if err := jobs.NewJobRunner(escrowLedger, queue, cfg).ReconcileTransferJournal(); err != nil {
		logger.Warn("Startup journal reconciliation failed", "error", err)
	}

	// Initialize Services
	escrowSvc := service.NewEscrowService(escrowLedger)
	accountSvc := service.NewAccountService(escrowLedger)
	platformSvc := service.NewPlatformService(escrowLedger)

	// Initialize Security
	tokenManager := security.NewTokenManager(cfg.JWT.Secret, cfg.JWT.Issuer, time.Duration(cfg.JWT.AccessTokenExpiry)*time.Minute)
	authInterceptor := interceptor.NewAuthInterceptor(tokenManager)
	rateLimitInterceptor := interceptor.NewRateLimitInterceptor(interceptor.NewCallerLimiter(cfg.RateLimit), m)

	// Set up gRPC server
	lis, err := net.Listen("tcp", cfg.GetServerAddress())
	if err != nil {
		logger.Error("Failed to listen", "error", err, "address", cfg.GetServerAddress())
		log.Fatalf("Failed to listen: %v", err)
	}

	s := grpc.NewServer(
		grpc.StatsHandler(otelgrpc.NewServerHandler()),
		grpc.ChainUnaryInterceptor(authInterceptor.Unary(), rateLimitInterceptor.Unary()),
	)
	escrowv1.RegisterEscrowServiceServer(s, api.NewEscrowHandler(escrowSvc, accountSvc, platformSvc))

	healthServer := health.NewServer()
	healthpb.RegisterHealthServer(s, healthServer)
	healthServer.SetServingStatus(escrowv1.ServiceName, healthpb.HealthCheckResponse_SERVING)

	// Set up the HTTP side server (health, metrics, read-only views)
	var httpServer *http.Server
	if addr := cfg.GetHTTPAddress(); addr != "" {
		router := mux.NewRouter()
		httpapi.RegisterRoutes(router, httpapi.NewEscrowHandler(escrowSvc, tokenManager, store), registry)
		httpServer = &http.Server{
			Addr:              addr,
			Handler:           router,
			ReadHeaderTimeout: 5 * time.Second,
		}
		go func() {
			logger.Info("HTTP server listening", "address", addr)
			if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				logger.Error("HTTP server error", "error", err)
			}
		}()
	}

	serveErr := make(chan error, 1)
	go func() {
		logger.Info("gRPC server listening", "address", cfg.GetServerAddress())
		serveErr <- s.Serve(lis)
	}()

	select {
	case <-ctx.Done():
		logger.Info("Shutdown signal received")
	case err := <-serveErr:
		logger.Error("Failed to serve gRPC", "error", err)
	}

	// Graceful shutdown
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	healthServer.Shutdown()
	s.GracefulStop()
	if httpServer != nil {
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			logger.Error("HTTP server shutdown failed", "error", err)
		}
	}
	queue.Stop()
	if err := shutdownTelemetry(shutdownCtx); err != nil {
		logger.Error("Telemetry shutdown failed", "error", err)
	}
	if err := store.Close(); err != nil {
		logger.Error("Failed to close database", "error", err)
	}
	logger.Info("Server stopped. Goodbye!")
}

// openStore connects to the configured database and brings its schema up to date.
func openStore(ctx context.Context, cfg *config.Config) (*sqlstore.Store, error) {
	if cfg.Database.Driver == sqlstore.SQLite.Name {
		return sqlstore.OpenSQLite(ctx, cfg.GetDatabaseConnectionString())
	}
	store, err := sqlstore.Open(ctx, cfg.Database.Driver, cfg.GetDatabaseConnectionString())
	if err != nil {
		return nil, err
	}
	if err := store.Migrate(ctx); err != nil {
		store.Close()
		return nil, err
	}
	return store, nil
}

func ledgerConfig(cfg *config.Config) ledger.Config {
	return ledger.Config{
		MinDuration:          cfg.Escrow.MinDuration,
		MaxDuration:          cfg.Escrow.MaxDuration,
		DisputeTimeout:       cfg.Escrow.DisputeTimeout,
		MaxDescriptionLength: cfg.Escrow.MaxDescriptionLength,
		MaxReasonLength:      cfg.Escrow.MaxReasonLength,
		DefaultFeeBps:        cfg.Escrow.FeeBps,
		Owner:                cfg.Escrow.Owner,
	}
}

// escrowLookup lets the notifier read agreements without going through the ledger
// that publishes to it.
type escrowLookup struct {
	escrows repository.EscrowRepository
}

func (e escrowLookup) GetEscrow(ctx context.Context, id int64) (*domain.EscrowAgreement, error) {
	return e.escrows.GetByID(ctx, id)
}

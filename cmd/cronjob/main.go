package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"rental-escrow-backend/internal/arbiter"
	"rental-escrow-backend/internal/config"
	"rental-escrow-backend/internal/jobs"
	"rental-escrow-backend/internal/ledger"
	"rental-escrow-backend/internal/logger"
	"rental-escrow-backend/internal/notify"
	"rental-escrow-backend/internal/repository/sqlstore"
	"rental-escrow-backend/internal/scheduler"
	"rental-escrow-backend/internal/telemetry"
	"rental-escrow-backend/internal/verification"
)

func main() {
	// Parse command-line flags
	configPath := flag.String("config", "config/config.example.yaml", "Path to configuration file")
	runOnce := flag.String("run-once", "", "Run a specific job once and exit (e.g., 'reconcile-journal', 'audit-custody', 'all')")
	flag.Parse()

	// Load configuration
	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	// Initialize logger
	logger.Initialize(cfg.Log.Level, cfg.Log.Format)
	logger.Info("Starting Rental Escrow Cronjob Runner...", "log_level", cfg.Log.Level)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	shutdownTelemetry, err := telemetry.Setup(ctx, cfg.Telemetry)
	if err != nil {
		log.Fatalf("Failed to initialize telemetry: %v", err)
	}
	defer shutdownTelemetry(context.Background())

	// Initialize Database
	logger.Info("Connecting to database...", "driver", cfg.Database.Driver)
	store, err := openStore(ctx, cfg)
	if err != nil {
		logger.Error("Failed to open database", "error", err)
		log.Fatalf("Failed to open database: %v", err)
	}
	defer store.Close()
	logger.Info("Database connection established")

	arb, err := arbiter.New(cfg.Escrow.Arbiter)
	if err != nil {
		log.Fatalf("Failed to configure arbiter: %v", err)
	}
	escrowLedger, err := ledger.New(store, verification.NewFromConfig(cfg.Verification, store.Identities()), arb, ledger.Config{
		MinDuration:          cfg.Escrow.MinDuration,
		MaxDuration:          cfg.Escrow.MaxDuration,
		DisputeTimeout:       cfg.Escrow.DisputeTimeout,
		MaxDescriptionLength: cfg.Escrow.MaxDescriptionLength,
		MaxReasonLength:      cfg.Escrow.MaxReasonLength,
		DefaultFeeBps:        cfg.Escrow.FeeBps,
		Owner:                cfg.Escrow.Owner,
	}, ledger.WithTracer(telemetry.Tracer()))
	if err != nil {
		log.Fatalf("Failed to initialize ledger: %v", err)
	}

	// Operator alerts go out through the same queue the server uses for parties
	queue := notify.NewQueue(notify.NewSender(cfg.Notify), cfg.Notify.Workers, cfg.Notify.QueueSize, cfg.Notify.MaxRetries)
	queue.Start(ctx)
	defer queue.Stop()

	// Initialize Job Runner
	jobRunner := jobs.NewJobRunner(escrowLedger, queue, cfg)

	// Check if running a single job
	if *runOnce != "" {
		logger.Info("Running job once", "job", *runOnce)
		if err := runJobOnce(jobRunner, *runOnce); err != nil {
			logger.Error("Job execution failed", "job", *runOnce, "error", err)
			queue.Stop()
			os.Exit(1)
		}
		logger.Info("Job execution completed", "job", *runOnce)
		return
	}

	// Initialize Scheduler
	cronScheduler, err := scheduler.NewScheduler(jobRunner)
	if err != nil {
		log.Fatalf("Failed to initialize scheduler: %v", err)
	}

	// Start scheduler
	cronScheduler.Start()
	logger.Info("Cronjob scheduler is running. Press Ctrl+C to stop.")

	// Wait for interrupt signal
	<-ctx.Done()

	// Graceful shutdown
	logger.Info("Shutting down cronjob scheduler...")
	cronScheduler.Stop()
	logger.Info("Cronjob scheduler stopped. Goodbye!")
}

// runJobOnce runs a specific job once
func runJobOnce(jobRunner *jobs.JobRunner, jobName string) error {
	switch jobName {
	case "reconcile-journal":
		return jobRunner.ReconcileTransferJournal()
	case "audit-custody":
		return jobRunner.AuditCustody()
	case "all":
		return jobRunner.RunAll()
	default:
		fmt.Printf("Available jobs:\n")
		fmt.Printf("  - reconcile-journal\n")
		fmt.Printf("  - audit-custody\n")
		fmt.Printf("  - all\n")
		return fmt.Errorf("unknown job %q", jobName)
	}
}

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

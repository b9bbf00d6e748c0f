package scheduler

import (
	"fmt"
	"time"

	"github.com/robfig/cron/v3"

	"rental-escrow-backend/internal/jobs"
	"rental-escrow-backend/internal/logger"
)

// Scheduler manages cron job scheduling
type Scheduler struct {
	cron *cron.Cron
	jobs *jobs.JobRunner
}

// NewScheduler creates a new scheduler with the provided job runner. It fails when a
// configured schedule cannot be parsed.
func NewScheduler(jobRunner *jobs.JobRunner) (*Scheduler, error) {
	// Create cron with UTC timezone and seconds precision
	c := cron.New(
		cron.WithLocation(time.UTC),
		cron.WithSeconds(),
		cron.WithChain(cron.SkipIfStillRunning(cron.DiscardLogger)),
	)

	s := &Scheduler{
		cron: c,
		jobs: jobRunner,
	}

	if err := s.registerJobs(); err != nil {
		return nil, err
	}
	return s, nil
}

// registerJobs registers all scheduled jobs with the cron scheduler
func (s *Scheduler) registerJobs() error {
	cfg := s.jobs.Config().Scheduler

	// Abort transfers that never committed
	if _, err := s.cron.AddFunc(cfg.ReconcileJournal, func() { _ = s.jobs.ReconcileTransferJournal() }); err != nil {
		logger.Error("Failed to register ReconcileTransferJournal job", "error", err)
		return fmt.Errorf("schedule reconcile journal %q: %w", cfg.ReconcileJournal, err)
	}

	// Nightly custody audit
	if _, err := s.cron.AddFunc(cfg.AuditCustody, func() { _ = s.jobs.AuditCustody() }); err != nil {
		logger.Error("Failed to register AuditCustody job", "error", err)
		return fmt.Errorf("schedule custody audit %q: %w", cfg.AuditCustody, err)
	}

	logger.Info("All cron jobs registered successfully", "count", len(s.cron.Entries()))
	return nil
}

// Start begins the cron scheduler
func (s *Scheduler) Start() {
	logger.Info("Starting cron scheduler...")
	s.cron.Start()
	logger.Info("Cron scheduler started successfully")
}

// Stop gracefully stops the cron scheduler
func (s *Scheduler) Stop() {
	logger.Info("Stopping cron scheduler...")
	ctx := s.cron.Stop()
	<-ctx.Done()
	logger.Info("Cron scheduler stopped")
}

// IsRunning returns true if the scheduler has jobs registered
func (s *Scheduler) IsRunning() bool {
	return len(s.cron.Entries()) > 0
}

package jobs

import (
	"context"
	"fmt"
	"time"

	"rental-escrow-backend/internal/config"
	"rental-escrow-backend/internal/ledger"
	"rental-escrow-backend/internal/logger"
	"rental-escrow-backend/internal/notify"
)

// Maintainer is the part of the ledger the scheduled jobs drive
type Maintainer interface {
	ReconcileJournal(ctx context.Context, staleAfter time.Duration) (ledger.ReconcileReport, error)
	AuditCustody(ctx context.Context) (ledger.AuditReport, error)
}

// Alerter delivers operator alerts
type Alerter interface {
	Enqueue(msg notify.Message) error
}

// JobRunner coordinates all scheduled jobs
type JobRunner struct {
	ledger  Maintainer
	alerts  Alerter
	config  *config.Config
	timeout time.Duration
}

// NewJobRunner creates a new job runner. alerts may be nil.
func NewJobRunner(l Maintainer, alerts Alerter, cfg *config.Config) *JobRunner {
	return &JobRunner{
		ledger:  l,
		alerts:  alerts,
		config:  cfg,
		timeout: 5 * time.Minute,
	}
}

func (jr *JobRunner) Config() *config.Config {
	return jr.config
}

// runWithRecovery wraps job execution with panic recovery
func (jr *JobRunner) runWithRecovery(jobName string, jobFunc func(ctx context.Context) error) (err error) {
	defer func() {
		if r := recover(); r != nil {
			logger.Error("Job panicked", "job", jobName, "panic", r)
			err = fmt.Errorf("job %s panicked: %v", jobName, r)
		}
	}()

	ctx, cancel := context.WithTimeout(context.Background(), jr.timeout)
	defer cancel()

	start := time.Now()
	logger.Info("Starting job", "job", jobName)
	if err = jobFunc(ctx); err != nil {
		logger.Error("Job failed", "job", jobName, "error", err, "duration", time.Since(start))
		return err
	}
	logger.Info("Job completed", "job", jobName, "duration", time.Since(start))
	return nil
}

// RunAll runs every maintenance job once (for manual execution)
func (jr *JobRunner) RunAll() error {
	if err := jr.ReconcileTransferJournal(); err != nil {
		return err
	}
	return jr.AuditCustody()
}

// alertOwner mails the platform owner when a contact address is configured
func (jr *JobRunner) alertOwner(subject, body string) {
	if jr.alerts == nil {
		return
	}
	owner := jr.config.Escrow.Owner
	to, ok := jr.config.Notify.Contacts[owner]
	if !ok || to == "" {
		logger.Warn("No contact for platform owner, alert not sent", "owner", owner, "subject", subject)
		return
	}
	if err := jr.alerts.Enqueue(notify.Message{To: to, ToName: owner, Subject: subject, Body: body}); err != nil {
		logger.Error("Failed to enqueue owner alert", "error", err, "subject", subject)
	}
}

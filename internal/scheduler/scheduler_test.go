package scheduler

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"rental-escrow-backend/internal/config"
	"rental-escrow-backend/internal/jobs"
	"rental-escrow-backend/internal/ledger"
)

type noopMaintainer struct{}

func (noopMaintainer) ReconcileJournal(context.Context, time.Duration) (ledger.ReconcileReport, error) {
	return ledger.ReconcileReport{}, nil
}

func (noopMaintainer) AuditCustody(context.Context) (ledger.AuditReport, error) {
	return ledger.AuditReport{}, nil
}

func TestNewScheduler(t *testing.T) {
	cfg := &config.Config{}
	cfg.Scheduler.ReconcileJournal = "0 */5 * * * *"
	cfg.Scheduler.AuditCustody = "0 0 3 * * *"

	s, err := NewScheduler(jobs.NewJobRunner(noopMaintainer{}, nil, cfg))
	require.NoError(t, err)
	assert.True(t, s.IsRunning())
	assert.Len(t, s.cron.Entries(), 2)

	s.Start()
	s.Stop()
}

func TestNewScheduler_InvalidSpec(t *testing.T) {
	cfg := &config.Config{}
	cfg.Scheduler.ReconcileJournal = "every five minutes"
	cfg.Scheduler.AuditCustody = "0 0 3 * * *"

	_, err := NewScheduler(jobs.NewJobRunner(noopMaintainer{}, nil, cfg))
	assert.Error(t, err)
}

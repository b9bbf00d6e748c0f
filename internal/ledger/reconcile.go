package ledger

import (
	"context"
	"errors"
	"fmt"
	"time"

	"rental-escrow-backend/internal/domain"
	"rental-escrow-backend/internal/logger"
	"rental-escrow-backend/internal/repository"
)

type ReconcileReport struct {
	Examined int
	Aborted  int
	// Skipped counts entries that committed or aborted after they were listed.
	Skipped int
	// Mismatched counts entries whose agreement custody disagrees with its state.
	Mismatched int
}

// ReconcileJournal resolves transfer-journal entries left PENDING for longer than
// staleAfter. An entry is marked COMMITTED in the same transaction as its transfers,
// so a stale PENDING entry never committed and is aborted. The abort only applies to
// an entry that is still PENDING; one resolved after the listing is skipped. The
// agreement's custody is re-checked against its state while holding its lock.
func (l *Ledger) ReconcileJournal(ctx context.Context, staleAfter time.Duration) (ReconcileReport, error) {
	var report ReconcileReport
	now := l.clock.Now().UTC()

	pending, err := l.store.Journal().ListPending(ctx, now.Add(-staleAfter))
	if err != nil {
		return report, fmt.Errorf("list pending journal entries: %w", err)
	}

	for _, entry := range pending {
		report.Examined++
		unlock := l.locks.Lock(entry.EscrowID)
		mismatch, err := l.reconcileEntry(ctx, entry, now)
		unlock()
		if errors.Is(err, repository.ErrNotPending) {
			report.Skipped++
			continue
		}
		if err != nil {
			return report, err
		}
		report.Aborted++
		if mismatch {
			report.Mismatched++
		}
	}
	if report.Examined > 0 {
		logger.Info("Transfer journal reconciled", "examined", report.Examined, "aborted", report.Aborted,
			"skipped", report.Skipped, "mismatched", report.Mismatched)
	}
	return report, nil
}

func (l *Ledger) reconcileEntry(ctx context.Context, entry domain.JournalEntry, now time.Time) (bool, error) {
	a, err := l.load(ctx, l.store, entry.EscrowID, false)
	if err != nil && domain.CodeOf(err) != domain.CodeEscrowNotFound {
		return false, err
	}

	reason := "transaction never committed"
	mismatch := false
	if a != nil {
		if a.State != entry.FromState {
			reason = fmt.Sprintf("superseded, agreement now %s", a.State)
		}
		held, err := l.store.Custody().GetHold(ctx, a.ID)
		if err != nil {
			return false, fmt.Errorf("read hold for escrow %d: %w", a.ID, err)
		}
		if held != a.Custody() {
			mismatch = true
			logger.WithEscrow(a.ID).Error("Custody mismatch after interrupted transfer",
				"journal_id", entry.ID, "state", a.State, "held", held, "expected", a.Custody())
		}
	}

	if err := l.store.Journal().MarkStatus(ctx, entry.ID, domain.JournalStatusAborted, reason, now); err != nil {
		if errors.Is(err, repository.ErrNotPending) {
			logger.WithEscrow(entry.EscrowID).Info("Journal entry resolved before abort", "journal_id", entry.ID)
		}
		return false, fmt.Errorf("abort journal entry %s: %w", entry.ID, err)
	}
	logger.WithEscrow(entry.EscrowID).Warn("Aborted stale journal entry", "journal_id", entry.ID,
		"operation", entry.Operation, "reason", reason)
	return mismatch, nil
}

type AuditReport struct {
	Agreements   int
	TotalCustody int64
	Mismatches   []CustodyMismatch
}

type CustodyMismatch struct {
	EscrowID int64
	State    domain.EscrowState
	Held     int64
	Expected int64
}

var ErrCustodyMismatch = errors.New("custody does not match agreement states")

// AuditCustody compares every custody hold with what each agreement's state requires.
// It returns ErrCustodyMismatch alongside the report when any differ.
func (l *Ledger) AuditCustody(ctx context.Context) (AuditReport, error) {
	var report AuditReport

	holds, err := l.store.Custody().ListHolds(ctx)
	if err != nil {
		return report, fmt.Errorf("list holds: %w", err)
	}
	agreements, err := l.store.Escrows().ListByStates(ctx, allStates)
	if err != nil {
		return report, fmt.Errorf("list agreements: %w", err)
	}

	for _, a := range agreements {
		report.Agreements++
		held := holds[a.ID]
		report.TotalCustody += held
		if held != a.Custody() {
			report.Mismatches = append(report.Mismatches, CustodyMismatch{
				EscrowID: a.ID, State: a.State, Held: held, Expected: a.Custody(),
			})
		}
	}
	l.metrics.SetCustody(report.TotalCustody)

	if len(report.Mismatches) > 0 {
		return report, ErrCustodyMismatch
	}
	return report, nil
}

var allStates = []domain.EscrowState{
	domain.EscrowStateCreated,
	domain.EscrowStateDeposited,
	domain.EscrowStateActive,
	domain.EscrowStateCompleted,
	domain.EscrowStateDisputed,
	domain.EscrowStateRefunded,
	domain.EscrowStateCancelled,
}

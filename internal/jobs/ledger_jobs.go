package jobs

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"rental-escrow-backend/internal/ledger"
	"rental-escrow-backend/internal/logger"
)

// ReconcileTransferJournal aborts transfer-journal entries that never committed and
// re-checks the custody of the agreements they touched.
func (jr *JobRunner) ReconcileTransferJournal() error {
	return jr.runWithRecovery("ReconcileTransferJournal", func(ctx context.Context) error {
		report, err := jr.ledger.ReconcileJournal(ctx, jr.config.Scheduler.JournalStaleAfter)
		if err != nil {
			return err
		}
		logger.Info("Transfer journal reconciled",
			"examined", report.Examined,
			"aborted", report.Aborted,
			"skipped", report.Skipped,
			"mismatched", report.Mismatched,
		)
		if report.Mismatched > 0 {
			jr.alertOwner("Escrow custody mismatch after reconciliation",
				fmt.Sprintf("%d of %d stale journal entries point at agreements whose custody disagrees with their state.",
					report.Mismatched, report.Examined))
		}
		return nil
	})
}

// AuditCustody verifies that every agreement holds exactly what its state requires.
func (jr *JobRunner) AuditCustody() error {
	return jr.runWithRecovery("AuditCustody", func(ctx context.Context) error {
		report, err := jr.ledger.AuditCustody(ctx)
		if errors.Is(err, ledger.ErrCustodyMismatch) {
			var b strings.Builder
			for _, m := range report.Mismatches {
				fmt.Fprintf(&b, "escrow %d (%s): held %d, expected %d\n", m.EscrowID, m.State, m.Held, m.Expected)
				logger.Error("Custody mismatch", "escrowID", m.EscrowID, "state", m.State, "held", m.Held, "expected", m.Expected)
			}
			jr.alertOwner("Escrow custody audit failed", b.String())
			return err
		}
		if err != nil {
			return err
		}
		logger.Info("Custody audit passed", "agreements", report.Agreements, "totalCustody", report.TotalCustody)
		return nil
	})
}

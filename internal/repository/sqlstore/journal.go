package sqlstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"rental-escrow-backend/internal/domain"
	"rental-escrow-backend/internal/repository"
)

const journalColumns = `id, escrow_id, operation, from_state, target_state, amount, status, error, created_at, updated_at`

type journalRepository struct {
	q queryer
	d Dialect
}

func (r *journalRepository) Create(ctx context.Context, e *domain.JournalEntry) error {
	query := r.d.Rebind(`INSERT INTO transfer_journal (` + journalColumns + `) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	_, err := r.q.ExecContext(ctx, query, e.ID, e.EscrowID, e.Operation, string(e.FromState), string(e.TargetState),
		e.Amount, string(e.Status), e.Error, toMillis(e.CreatedAt), toMillis(e.UpdatedAt))
	if err != nil {
		return fmt.Errorf("insert journal entry: %w", err)
	}
	return nil
}

func (r *journalRepository) GetByID(ctx context.Context, id string) (*domain.JournalEntry, error) {
	row := r.q.QueryRowContext(ctx, r.d.Rebind(`SELECT `+journalColumns+` FROM transfer_journal WHERE id = ?`), id)
	e, err := scanJournal(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, repository.ErrNotFound
	}
	return e, err
}

func (r *journalRepository) MarkStatus(ctx context.Context, id string, status domain.JournalStatus, errMsg string, at time.Time) error {
	query := r.d.Rebind(`UPDATE transfer_journal SET status = ?, error = ?, updated_at = ? WHERE id = ? AND status = ?`)
	res, err := r.q.ExecContext(ctx, query, string(status), errMsg, toMillis(at), id, string(domain.JournalStatusPending))
	if err != nil {
		return fmt.Errorf("mark journal entry %s: %w", id, err)
	}
	if err := requireRow(res); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return fmt.Errorf("mark journal entry %s: %w", id, repository.ErrNotPending)
		}
		return err
	}
	return nil
}

func (r *journalRepository) ListPending(ctx context.Context, olderThan time.Time) ([]domain.JournalEntry, error) {
	query := r.d.Rebind(`SELECT ` + journalColumns + ` FROM transfer_journal
	          WHERE status = ? AND created_at < ? ORDER BY created_at`)
	rows, err := r.q.QueryContext(ctx, query, string(domain.JournalStatusPending), toMillis(olderThan))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var entries []domain.JournalEntry
	for rows.Next() {
		e, err := scanJournal(rows)
		if err != nil {
			return nil, err
		}
		entries = append(entries, *e)
	}
	return entries, rows.Err()
}

func scanJournal(row rowScanner) (*domain.JournalEntry, error) {
	var (
		e                    domain.JournalEntry
		from, target, status string
		created, updated     int64
	)
	if err := row.Scan(&e.ID, &e.EscrowID, &e.Operation, &from, &target, &e.Amount, &status, &e.Error, &created, &updated); err != nil {
		return nil, err
	}
	e.FromState = domain.EscrowState(from)
	e.TargetState = domain.EscrowState(target)
	e.Status = domain.JournalStatus(status)
	e.CreatedAt = fromMillis(created)
	e.UpdatedAt = fromMillis(updated)
	return &e, nil
}

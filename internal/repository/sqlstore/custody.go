package sqlstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"rental-escrow-backend/internal/domain"
	"rental-escrow-backend/internal/repository"
)

type custodyRepository struct {
	q queryer
	d Dialect
}

func (r *custodyRepository) GetHold(ctx context.Context, escrowID int64) (int64, error) {
	var amount int64
	err := r.q.QueryRowContext(ctx, r.d.Rebind(`SELECT amount FROM custody_holds WHERE escrow_id = ?`), escrowID).Scan(&amount)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, nil
	}
	return amount, err
}

func (r *custodyRepository) AdjustHold(ctx context.Context, escrowID int64, delta int64) error {
	if delta >= 0 {
		query := r.d.Rebind(`INSERT INTO custody_holds (escrow_id, amount) VALUES (?, ?)
		          ON CONFLICT (escrow_id) DO UPDATE SET amount = custody_holds.amount + excluded.amount`)
		if _, err := r.q.ExecContext(ctx, query, escrowID, delta); err != nil {
			return fmt.Errorf("credit hold %d: %w", escrowID, err)
		}
		return nil
	}
	query := r.d.Rebind(`UPDATE custody_holds SET amount = amount - ? WHERE escrow_id = ? AND amount >= ?`)
	return r.debit(ctx, query, -delta, escrowID)
}

func (r *custodyRepository) ListHolds(ctx context.Context) (map[int64]int64, error) {
	rows, err := r.q.QueryContext(ctx, `SELECT escrow_id, amount FROM custody_holds`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	holds := make(map[int64]int64)
	for rows.Next() {
		var id, amount int64
		if err := rows.Scan(&id, &amount); err != nil {
			return nil, err
		}
		holds[id] = amount
	}
	return holds, rows.Err()
}

// CreditAccount moves amount into (positive) or out of (negative) an account balance.
func (r *custodyRepository) CreditAccount(ctx context.Context, address string, amount int64) error {
	if amount >= 0 {
		query := r.d.Rebind(`INSERT INTO account_balances (address, balance) VALUES (?, ?)
		          ON CONFLICT (address) DO UPDATE SET balance = account_balances.balance + excluded.balance`)
		if _, err := r.q.ExecContext(ctx, query, address, amount); err != nil {
			return fmt.Errorf("credit account: %w", err)
		}
		return nil
	}
	query := r.d.Rebind(`UPDATE account_balances SET balance = balance - ? WHERE address = ? AND balance >= ?`)
	return r.debit(ctx, query, -amount, address)
}

func (r *custodyRepository) debit(ctx context.Context, query string, amount int64, key any) error {
	res, err := r.q.ExecContext(ctx, query, amount, key, amount)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return repository.ErrInsufficientFunds
	}
	return nil
}

func (r *custodyRepository) GetBalance(ctx context.Context, address string) (int64, error) {
	var balance int64
	err := r.q.QueryRowContext(ctx, r.d.Rebind(`SELECT balance FROM account_balances WHERE address = ?`), address).Scan(&balance)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, nil
	}
	return balance, err
}

func (r *custodyRepository) CreateEntry(ctx context.Context, e *domain.LedgerEntry) error {
	var escrowID sql.NullInt64
	if e.EscrowID != nil {
		escrowID = sql.NullInt64{Int64: *e.EscrowID, Valid: true}
	}
	query := r.d.Rebind(`INSERT INTO ledger_entries (escrow_id, address, amount, type, description, created_at)
	          VALUES (?, ?, ?, ?, ?, ?) RETURNING id`)
	return r.q.QueryRowContext(ctx, query, escrowID, e.Address, e.Amount, string(e.Type), e.Description, toMillis(e.CreatedAt)).Scan(&e.ID)
}

func (r *custodyRepository) ListEntries(ctx context.Context, address string, limit, offset int32) ([]domain.LedgerEntry, int32, error) {
	var count int32
	if err := r.q.QueryRowContext(ctx, r.d.Rebind(`SELECT count(*) FROM ledger_entries WHERE address = ?`), address).Scan(&count); err != nil {
		return nil, 0, err
	}

	query := r.d.Rebind(`SELECT id, escrow_id, address, amount, type, description, created_at
	          FROM ledger_entries WHERE address = ? ORDER BY id DESC LIMIT ? OFFSET ?`)
	rows, err := r.q.QueryContext(ctx, query, address, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var entries []domain.LedgerEntry
	for rows.Next() {
		var (
			e         domain.LedgerEntry
			escrowID  sql.NullInt64
			entryType string
			created   int64
		)
		if err := rows.Scan(&e.ID, &escrowID, &e.Address, &e.Amount, &entryType, &e.Description, &created); err != nil {
			return nil, 0, err
		}
		if escrowID.Valid {
			id := escrowID.Int64
			e.EscrowID = &id
		}
		e.Type = domain.EntryType(entryType)
		e.CreatedAt = fromMillis(created)
		entries = append(entries, e)
	}
	return entries, count, rows.Err()
}

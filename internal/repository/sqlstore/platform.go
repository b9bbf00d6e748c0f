package sqlstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"rental-escrow-backend/internal/domain"
	"rental-escrow-backend/internal/repository"
)

// platform_state holds exactly one row, id = 1, seeded by the initial migration.
type platformRepository struct {
	q queryer
	d Dialect
}

func (r *platformRepository) Get(ctx context.Context) (*domain.PlatformState, error) {
	var (
		state domain.PlatformState
		bps   sql.NullInt64
	)
	err := r.q.QueryRowContext(ctx, `SELECT fee_pool, fee_bps FROM platform_state WHERE id = 1`).Scan(&state.FeePool, &bps)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, repository.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	if bps.Valid {
		v := uint32(bps.Int64)
		state.FeeBps = &v
	}
	return &state, nil
}

func (r *platformRepository) AddFees(ctx context.Context, amount int64) error {
	res, err := r.q.ExecContext(ctx, r.d.Rebind(`UPDATE platform_state SET fee_pool = fee_pool + ? WHERE id = 1`), amount)
	if err != nil {
		return fmt.Errorf("accrue fees: %w", err)
	}
	return requireRow(res)
}

func (r *platformRepository) WithdrawFees(ctx context.Context, amount int64) error {
	query := r.d.Rebind(`UPDATE platform_state SET fee_pool = fee_pool - ? WHERE id = 1 AND fee_pool >= ?`)
	res, err := r.q.ExecContext(ctx, query, amount, amount)
	if err != nil {
		return fmt.Errorf("withdraw fees: %w", err)
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

func (r *platformRepository) SetFeeBps(ctx context.Context, bps uint32) error {
	res, err := r.q.ExecContext(ctx, r.d.Rebind(`UPDATE platform_state SET fee_bps = ? WHERE id = 1`), int64(bps))
	if err != nil {
		return fmt.Errorf("set fee bps: %w", err)
	}
	return requireRow(res)
}

func requireRow(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return repository.ErrNotFound
	}
	return nil
}

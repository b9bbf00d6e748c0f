package sqlstore

import (
	"context"
	"database/sql"
	"errors"
	"time"
)

type identityRepository struct {
	q queryer
	d Dialect
}

// IsVerified reports false for addresses that were never recorded.
func (r *identityRepository) IsVerified(ctx context.Context, address string) (bool, error) {
	var verified bool
	err := r.q.QueryRowContext(ctx, r.d.Rebind(`SELECT verified FROM verified_identities WHERE address = ?`), address).Scan(&verified)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	return verified, err
}

func (r *identityRepository) SetVerified(ctx context.Context, address string, verified bool, at time.Time) error {
	query := r.d.Rebind(`INSERT INTO verified_identities (address, verified, updated_at) VALUES (?, ?, ?)
	          ON CONFLICT (address) DO UPDATE SET verified = excluded.verified, updated_at = excluded.updated_at`)
	_, err := r.q.ExecContext(ctx, query, address, verified, toMillis(at))
	return err
}

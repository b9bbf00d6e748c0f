package sqlstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"rental-escrow-backend/internal/domain"
	"rental-escrow-backend/internal/repository"
)

const escrowColumns = `id, borrower, lender, rental_amount, security_deposit, start_time, end_time,
	created_at, updated_at, state, item_description, borrower_confirmed, lender_confirmed, fee_charged,
	dispute_reason, disputed_by, disputed_at, resolved_by, resolved_at, favor_borrower`

type escrowRepository struct {
	q queryer
	d Dialect
}

func (r *escrowRepository) Create(ctx context.Context, a *domain.EscrowAgreement) error {
	query := r.d.Rebind(`INSERT INTO escrows (borrower, lender, rental_amount, security_deposit, start_time, end_time,
	          created_at, updated_at, state, item_description, borrower_confirmed, lender_confirmed, fee_charged)
	          VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?) RETURNING id`)
	err := r.q.QueryRowContext(ctx, query,
		a.Borrower, a.Lender, a.RentalAmount, a.SecurityDeposit,
		toMillis(a.StartTime), toMillis(a.EndTime), toMillis(a.CreatedAt), toMillis(a.UpdatedAt),
		string(a.State), a.ItemDescription, a.BorrowerConfirmed, a.LenderConfirmed, a.FeeCharged,
	).Scan(&a.ID)
	if err != nil {
		return fmt.Errorf("insert escrow: %w", err)
	}

	partyQuery := r.d.Rebind(`INSERT INTO escrow_parties (escrow_id, address, role) VALUES (?, ?, ?)`)
	parties := []struct {
		role    domain.PartyRole
		address string
	}{
		{domain.PartyRoleBorrower, a.Borrower},
		{domain.PartyRoleLender, a.Lender},
	}
	for _, p := range parties {
		if _, err := r.q.ExecContext(ctx, partyQuery, a.ID, p.address, string(p.role)); err != nil {
			return fmt.Errorf("insert escrow party %s: %w", p.role, err)
		}
	}
	return nil
}

func (r *escrowRepository) GetByID(ctx context.Context, id int64) (*domain.EscrowAgreement, error) {
	query := r.d.Rebind(`SELECT ` + escrowColumns + ` FROM escrows WHERE id = ?`)
	return scanEscrow(r.q.QueryRowContext(ctx, query, id))
}

func (r *escrowRepository) GetForUpdate(ctx context.Context, id int64) (*domain.EscrowAgreement, error) {
	query := r.d.Rebind(r.d.forUpdate(`SELECT ` + escrowColumns + ` FROM escrows WHERE id = ?`))
	return scanEscrow(r.q.QueryRowContext(ctx, query, id))
}

func (r *escrowRepository) Update(ctx context.Context, a *domain.EscrowAgreement) error {
	var (
		reason, raisedBy, resolvedBy sql.NullString
		raisedAt, resolvedAt         sql.NullInt64
		favorBorrower                sql.NullBool
	)
	if d := a.Dispute; d != nil {
		reason = nullString(d.Reason)
		raisedBy = nullString(d.RaisedBy)
		raisedAt = nullMillis(&d.RaisedAt)
		resolvedBy = nullString(d.ResolvedBy)
		resolvedAt = nullMillis(d.ResolvedAt)
		if d.FavorBorrower != nil {
			favorBorrower = sql.NullBool{Bool: *d.FavorBorrower, Valid: true}
		}
	}

	query := r.d.Rebind(`UPDATE escrows SET state = ?, borrower_confirmed = ?, lender_confirmed = ?, fee_charged = ?,
	          updated_at = ?, dispute_reason = ?, disputed_by = ?, disputed_at = ?, resolved_by = ?, resolved_at = ?,
	          favor_borrower = ? WHERE id = ?`)
	res, err := r.q.ExecContext(ctx, query,
		string(a.State), a.BorrowerConfirmed, a.LenderConfirmed, a.FeeCharged, toMillis(a.UpdatedAt),
		reason, raisedBy, raisedAt, resolvedBy, resolvedAt, favorBorrower, a.ID,
	)
	if err != nil {
		return fmt.Errorf("update escrow %d: %w", a.ID, err)
	}
	return requireRow(res)
}

func (r *escrowRepository) ListByParty(ctx context.Context, address string) ([]domain.EscrowAgreement, error) {
	query := r.d.Rebind(`SELECT ` + escrowColumns + ` FROM escrows
	          WHERE id IN (SELECT escrow_id FROM escrow_parties WHERE address = ?) ORDER BY id`)
	rows, err := r.q.QueryContext(ctx, query, address)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanEscrows(rows)
}

func (r *escrowRepository) ListByStates(ctx context.Context, states []domain.EscrowState) ([]domain.EscrowAgreement, error) {
	if len(states) == 0 {
		return nil, nil
	}
	placeholders := make([]string, len(states))
	args := make([]any, len(states))
	for i, s := range states {
		placeholders[i] = "?"
		args[i] = string(s)
	}
	query := r.d.Rebind(`SELECT ` + escrowColumns + ` FROM escrows WHERE state IN (` +
		strings.Join(placeholders, ", ") + `) ORDER BY id`)
	rows, err := r.q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanEscrows(rows)
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanEscrow(row rowScanner) (*domain.EscrowAgreement, error) {
	var (
		a                            domain.EscrowAgreement
		state                        string
		start, end, created, updated int64
		reason, raisedBy, resolvedBy sql.NullString
		raisedAt, resolvedAt         sql.NullInt64
		favorBorrower                sql.NullBool
	)
	err := row.Scan(&a.ID, &a.Borrower, &a.Lender, &a.RentalAmount, &a.SecurityDeposit, &start, &end,
		&created, &updated, &state, &a.ItemDescription, &a.BorrowerConfirmed, &a.LenderConfirmed, &a.FeeCharged,
		&reason, &raisedBy, &raisedAt, &resolvedBy, &resolvedAt, &favorBorrower)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, repository.ErrNotFound
	}
	if err != nil {
		return nil, err
	}

	a.State = domain.EscrowState(state)
	a.StartTime = fromMillis(start)
	a.EndTime = fromMillis(end)
	a.CreatedAt = fromMillis(created)
	a.UpdatedAt = fromMillis(updated)
	if raisedAt.Valid {
		a.Dispute = &domain.Dispute{
			Reason:     reason.String,
			RaisedBy:   raisedBy.String,
			RaisedAt:   fromMillis(raisedAt.Int64),
			ResolvedBy: resolvedBy.String,
		}
		if resolvedAt.Valid {
			t := fromMillis(resolvedAt.Int64)
			a.Dispute.ResolvedAt = &t
		}
		if favorBorrower.Valid {
			v := favorBorrower.Bool
			a.Dispute.FavorBorrower = &v
		}
	}
	return &a, nil
}

func scanEscrows(rows *sql.Rows) ([]domain.EscrowAgreement, error) {
	var out []domain.EscrowAgreement
	for rows.Next() {
		a, err := scanEscrow(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *a)
	}
	return out, rows.Err()
}

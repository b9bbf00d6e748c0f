package sqlstore

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"rental-escrow-backend/internal/domain"
	"rental-escrow-backend/internal/repository"
)

func newMockStore(t *testing.T) (*Store, sqlmock.Sqlmock) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("error opening mock database: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return New(db, Postgres), mock
}

var escrowColumnNames = []string{"id", "borrower", "lender", "rental_amount", "security_deposit", "start_time", "end_time",
	"created_at", "updated_at", "state", "item_description", "borrower_confirmed", "lender_confirmed", "fee_charged",
	"dispute_reason", "disputed_by", "disputed_at", "resolved_by", "resolved_at", "favor_borrower"}

func TestEscrowRepository_Create(t *testing.T) {
	store, mock := newMockStore(t)
	ctx := context.Background()
	now := time.UnixMilli(1_700_000_000_000).UTC()

	a := &domain.EscrowAgreement{
		Borrower: "alice", Lender: "bob", RentalAmount: 1000, SecurityDeposit: 500,
		StartTime: now, EndTime: now.Add(time.Hour), CreatedAt: now, UpdatedAt: now,
		State: domain.EscrowStateCreated, ItemDescription: "drill",
	}

	mock.ExpectQuery(`INSERT INTO escrows .* RETURNING id`).
		WithArgs("alice", "bob", int64(1000), int64(500), now.UnixMilli(), now.Add(time.Hour).UnixMilli(),
			now.UnixMilli(), now.UnixMilli(), "CREATED", "drill", false, false, int64(0)).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(7))
	mock.ExpectExec(`INSERT INTO escrow_parties`).WithArgs(int64(7), "alice", "BORROWER").WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(`INSERT INTO escrow_parties`).WithArgs(int64(7), "bob", "LENDER").WillReturnResult(sqlmock.NewResult(0, 1))

	require.NoError(t, store.Escrows().Create(ctx, a))
	assert.Equal(t, int64(7), a.ID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestEscrowRepository_GetForUpdate(t *testing.T) {
	store, mock := newMockStore(t)
	ctx := context.Background()

	t.Run("LocksRowAndDecodesDispute", func(t *testing.T) {
		mock.ExpectQuery(`SELECT .* FROM escrows WHERE id = \$1 FOR UPDATE`).
			WithArgs(int64(3)).
			WillReturnRows(sqlmock.NewRows(escrowColumnNames).AddRow(
				3, "alice", "bob", 1000, 500, 1000, 2000, 1000, 3000, "DISPUTED", "drill", true, true, 0,
				"broken", "alice", 2500, nil, nil, nil))

		a, err := store.Escrows().GetForUpdate(ctx, 3)
		require.NoError(t, err)
		assert.Equal(t, domain.EscrowStateDisputed, a.State)
		require.NotNil(t, a.Dispute)
		assert.Equal(t, "broken", a.Dispute.Reason)
		assert.Equal(t, "alice", a.Dispute.RaisedBy)
		assert.Nil(t, a.Dispute.ResolvedAt)
		assert.Nil(t, a.Dispute.FavorBorrower)
		assert.Equal(t, int64(2000), a.EndTime.UnixMilli())
	})

	t.Run("NotFound", func(t *testing.T) {
		mock.ExpectQuery(`SELECT .* FROM escrows WHERE id = \$1 FOR UPDATE`).
			WithArgs(int64(9)).
			WillReturnRows(sqlmock.NewRows(escrowColumnNames))

		_, err := store.Escrows().GetForUpdate(ctx, 9)
		assert.ErrorIs(t, err, repository.ErrNotFound)
	})
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestEscrowRepository_UpdateMissingRow(t *testing.T) {
	store, mock := newMockStore(t)

	mock.ExpectExec(`UPDATE escrows SET state = \$1`).WillReturnResult(sqlmock.NewResult(0, 0))

	err := store.Escrows().Update(context.Background(), &domain.EscrowAgreement{ID: 4, State: domain.EscrowStateActive})
	assert.ErrorIs(t, err, repository.ErrNotFound)
}

func TestCustodyRepository_AdjustHold(t *testing.T) {
	store, mock := newMockStore(t)
	ctx := context.Background()

	t.Run("Credit", func(t *testing.T) {
		mock.ExpectExec(`INSERT INTO custody_holds .* ON CONFLICT \(escrow_id\) DO UPDATE`).
			WithArgs(int64(1), int64(1500)).
			WillReturnResult(sqlmock.NewResult(0, 1))
		assert.NoError(t, store.Custody().AdjustHold(ctx, 1, 1500))
	})

	t.Run("DebitBeyondBalance", func(t *testing.T) {
		mock.ExpectExec(`UPDATE custody_holds SET amount = amount - \$1 WHERE escrow_id = \$2 AND amount >= \$3`).
			WithArgs(int64(2000), int64(1), int64(2000)).
			WillReturnResult(sqlmock.NewResult(0, 0))
		assert.ErrorIs(t, store.Custody().AdjustHold(ctx, 1, -2000), repository.ErrInsufficientFunds)
	})
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPlatformRepository_Get(t *testing.T) {
	store, mock := newMockStore(t)

	mock.ExpectQuery(`SELECT fee_pool, fee_bps FROM platform_state`).
		WillReturnRows(sqlmock.NewRows([]string{"fee_pool", "fee_bps"}).AddRow(250, 125))

	state, err := store.Platform().Get(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(250), state.FeePool)
	require.NotNil(t, state.FeeBps)
	assert.Equal(t, uint32(125), *state.FeeBps)
}

func TestStore_WithinTxRollsBackOnError(t *testing.T) {
	store, mock := newMockStore(t)
	boom := errors.New("boom")

	mock.ExpectBegin()
	mock.ExpectExec(`UPDATE platform_state SET fee_pool = fee_pool \+ \$1`).
		WithArgs(int64(10)).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectRollback()

	err := store.WithinTx(context.Background(), func(ctx context.Context, tx repository.Repositories) error {
		if err := tx.Platform().AddFees(ctx, 10); err != nil {
			return err
		}
		return boom
	})
	assert.ErrorIs(t, err, boom)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestStore_WithinTxCommits(t *testing.T) {
	store, mock := newMockStore(t)

	mock.ExpectBegin()
	mock.ExpectExec(`UPDATE platform_state SET fee_bps = \$1`).
		WithArgs(int64(300)).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	err := store.WithinTx(context.Background(), func(ctx context.Context, tx repository.Repositories) error {
		return tx.Platform().SetFeeBps(ctx, 300)
	})
	assert.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

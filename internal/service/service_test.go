package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"rental-escrow-backend/internal/domain"
	"rental-escrow-backend/internal/ledger"
)

func TestEscrowService_CreateEscrow(t *testing.T) {
	ctx := context.Background()
	req := CreateEscrowRequest{
		Borrower:        "alice",
		Lender:          "bob",
		RentalAmount:    1_000_000,
		SecurityDeposit: 500_000,
		Duration:        24 * time.Hour,
		Description:     "camera",
	}

	t.Run("Success", func(t *testing.T) {
		l := new(MockLedger)
		svc := NewEscrowService(l)
		l.On("CreateEscrow", ctx, ledger.CreateEscrowParams{
			Borrower:        "alice",
			Lender:          "bob",
			RentalAmount:    1_000_000,
			SecurityDeposit: 500_000,
			Duration:        24 * time.Hour,
			Description:     "camera",
		}).Return(int64(7), nil)
		l.On("GetEscrow", ctx, int64(7)).Return(&domain.EscrowAgreement{ID: 7, State: domain.EscrowStateCreated}, nil)

		a, err := svc.CreateEscrow(ctx, "Alice", req)
		require.NoError(t, err)
		assert.Equal(t, int64(7), a.ID)
		l.AssertExpectations(t)
	})

	t.Run("LenderMayOpen", func(t *testing.T) {
		l := new(MockLedger)
		svc := NewEscrowService(l)
		l.On("CreateEscrow", ctx, mock.Anything).Return(int64(8), nil)
		l.On("GetEscrow", ctx, int64(8)).Return(&domain.EscrowAgreement{ID: 8}, nil)

		_, err := svc.CreateEscrow(ctx, " bob ", req)
		assert.NoError(t, err)
	})

	t.Run("OutsiderRejected", func(t *testing.T) {
		l := new(MockLedger)
		svc := NewEscrowService(l)

		_, err := svc.CreateEscrow(ctx, "mallory", req)
		assert.Equal(t, domain.CodeUnauthorizedAccess, domain.CodeOf(err))
		l.AssertNotCalled(t, "CreateEscrow", mock.Anything, mock.Anything)
	})

	t.Run("LedgerErrorPassesThrough", func(t *testing.T) {
		l := new(MockLedger)
		svc := NewEscrowService(l)
		l.On("CreateEscrow", ctx, mock.Anything).Return(int64(0), domain.ErrInvalidAmount("rental amount must be positive"))

		_, err := svc.CreateEscrow(ctx, "alice", req)
		assert.Equal(t, domain.CodeInvalidAmount, domain.CodeOf(err))
	})
}

func TestEscrowService_Transitions(t *testing.T) {
	ctx := context.Background()

	t.Run("Deposit", func(t *testing.T) {
		l := new(MockLedger)
		svc := NewEscrowService(l)
		l.On("Deposit", ctx, int64(1), "alice", int64(1_500_000)).
			Return(&domain.EscrowAgreement{ID: 1, State: domain.EscrowStateDeposited}, nil)

		a, err := svc.Deposit(ctx, "alice", 1, 1_500_000)
		require.NoError(t, err)
		assert.Equal(t, domain.EscrowStateDeposited, a.State)
	})

	t.Run("ResolveDispute", func(t *testing.T) {
		l := new(MockLedger)
		svc := NewEscrowService(l)
		l.On("ResolveDispute", ctx, int64(3), "judge", true).
			Return(&domain.EscrowAgreement{ID: 3, State: domain.EscrowStateRefunded}, nil)

		a, err := svc.ResolveDispute(ctx, "judge", 3, true)
		require.NoError(t, err)
		assert.Equal(t, domain.EscrowStateRefunded, a.State)
	})

	t.Run("StateErrorPassesThrough", func(t *testing.T) {
		l := new(MockLedger)
		svc := NewEscrowService(l)
		stateErr := domain.ErrInvalidEscrowState(2, domain.EscrowStateActive, domain.EscrowStateCompleted)
		l.On("ReleaseToLender", ctx, int64(2), "bob").Return(nil, stateErr)

		_, err := svc.ReleaseToLender(ctx, "bob", 2)
		assert.True(t, errors.Is(err, stateErr))
	})

	t.Run("AnonymousCallerRejected", func(t *testing.T) {
		l := new(MockLedger)
		svc := NewEscrowService(l)

		_, err := svc.CancelEscrow(ctx, "  ", 4)
		assert.Equal(t, domain.CodeUnauthorizedAccess, domain.CodeOf(err))
		l.AssertNotCalled(t, "CancelEscrow", mock.Anything, mock.Anything, mock.Anything)
	})
}

func TestEscrowService_PrivateViews(t *testing.T) {
	ctx := context.Background()
	agreement := &domain.EscrowAgreement{ID: 5, Borrower: "alice", Lender: "bob"}

	t.Run("PartyReadsEvents", func(t *testing.T) {
		l := new(MockLedger)
		svc := NewEscrowService(l)
		l.On("GetEscrow", ctx, int64(5)).Return(agreement, nil)
		l.On("ListEvents", ctx, int64(5)).Return([]domain.EscrowEvent{{ID: 1, EscrowID: 5}}, nil)

		events, err := svc.ListEvents(ctx, "Bob", 5)
		require.NoError(t, err)
		assert.Len(t, events, 1)
		l.AssertNotCalled(t, "IsAdmin", mock.Anything)
	})

	t.Run("OutsiderCannotReadEvents", func(t *testing.T) {
		l := new(MockLedger)
		svc := NewEscrowService(l)
		l.On("GetEscrow", ctx, int64(5)).Return(agreement, nil)
		l.On("IsAdmin", "mallory").Return(false)

		_, err := svc.ListEvents(ctx, "mallory", 5)
		assert.Equal(t, domain.CodeUnauthorizedAccess, domain.CodeOf(err))
		l.AssertNotCalled(t, "ListEvents", mock.Anything, mock.Anything)
	})

	t.Run("ArbiterReadsEvents", func(t *testing.T) {
		l := new(MockLedger)
		svc := NewEscrowService(l)
		l.On("GetEscrow", ctx, int64(5)).Return(agreement, nil)
		l.On("IsAdmin", "judge").Return(true)
		l.On("ListEvents", ctx, int64(5)).Return([]domain.EscrowEvent{}, nil)

		_, err := svc.ListEvents(ctx, "judge", 5)
		assert.NoError(t, err)
	})

	t.Run("MissingEscrowPassesThrough", func(t *testing.T) {
		l := new(MockLedger)
		svc := NewEscrowService(l)
		l.On("GetEscrow", ctx, int64(9)).Return(nil, domain.ErrEscrowNotFound(9))

		_, err := svc.ListEvents(ctx, "alice", 9)
		assert.Equal(t, domain.CodeEscrowNotFound, domain.CodeOf(err))
	})

	t.Run("OwnEscrowsDefaultToCaller", func(t *testing.T) {
		l := new(MockLedger)
		svc := NewEscrowService(l)
		l.On("GetUserEscrows", ctx, "alice").Return([]domain.EscrowAgreement{*agreement}, nil)

		list, err := svc.GetUserEscrows(ctx, " Alice", "")
		require.NoError(t, err)
		assert.Len(t, list, 1)
	})

	t.Run("OutsiderCannotListOthers", func(t *testing.T) {
		l := new(MockLedger)
		svc := NewEscrowService(l)
		l.On("IsAdmin", "mallory").Return(false)

		_, err := svc.GetUserEscrows(ctx, "mallory", "alice")
		assert.Equal(t, domain.CodeUnauthorizedAccess, domain.CodeOf(err))
		l.AssertNotCalled(t, "GetUserEscrows", mock.Anything, mock.Anything)
	})

	t.Run("OwnerListsOthers", func(t *testing.T) {
		l := new(MockLedger)
		svc := NewEscrowService(l)
		l.On("IsAdmin", "owner").Return(true)
		l.On("GetUserEscrows", ctx, "alice").Return([]domain.EscrowAgreement{}, nil)

		_, err := svc.GetUserEscrows(ctx, "owner", "alice")
		assert.NoError(t, err)
	})

	t.Run("AnonymousRejected", func(t *testing.T) {
		l := new(MockLedger)
		svc := NewEscrowService(l)

		_, err := svc.GetUserEscrows(ctx, "", "alice")
		assert.Equal(t, domain.CodeUnauthorizedAccess, domain.CodeOf(err))
	})
}

func TestAccountService_GetBalance(t *testing.T) {
	ctx := context.Background()
	l := new(MockLedger)
	svc := NewAccountService(l)

	t.Run("OwnBalance", func(t *testing.T) {
		l.On("GetBalance", ctx, "bob").Return(int64(975_000), nil).Once()

		bal, err := svc.GetBalance(ctx, "bob", "")
		require.NoError(t, err)
		assert.Equal(t, int64(975_000), bal)
	})

	t.Run("OtherAccountRejected", func(t *testing.T) {
		_, err := svc.GetBalance(ctx, "bob", "alice")
		assert.Equal(t, domain.CodeUnauthorizedAccess, domain.CodeOf(err))
	})

	t.Run("ListEntries", func(t *testing.T) {
		entries := []domain.LedgerEntry{{ID: 1, Address: "bob", Amount: 975_000, Type: domain.EntryTypeLenderPayout}}
		l.On("ListEntries", ctx, "bob", int32(1), int32(20)).Return(entries, int32(1), nil).Once()

		res, total, err := svc.ListEntries(ctx, "Bob", "bob", 1, 20)
		require.NoError(t, err)
		assert.Equal(t, int32(1), total)
		assert.Equal(t, int64(975_000), res[0].Amount)
	})
}

func TestPlatformService(t *testing.T) {
	ctx := context.Background()
	l := new(MockLedger)
	svc := NewPlatformService(l)

	t.Run("SetFeePercentage", func(t *testing.T) {
		l.On("SetFeePercentage", ctx, "owner", uint32(300)).Return(nil).Once()
		assert.NoError(t, svc.SetFeePercentage(ctx, "owner", 300))
	})

	t.Run("WithdrawFeesError", func(t *testing.T) {
		l.On("WithdrawFees", ctx, "owner", "treasury", int64(10)).Return(domain.ErrInsufficientFees(5, 10)).Once()
		err := svc.WithdrawFees(ctx, "owner", "treasury", 10)
		assert.Equal(t, domain.CodeInsufficientFees, domain.CodeOf(err))
	})

	t.Run("Reads", func(t *testing.T) {
		l.On("GetFeePool", ctx).Return(int64(25_000), nil).Once()
		l.On("GetFeePercentage", ctx).Return(uint32(250), nil).Once()

		pool, err := svc.GetFeePool(ctx)
		require.NoError(t, err)
		assert.Equal(t, int64(25_000), pool)
		bps, err := svc.GetFeePercentage(ctx)
		require.NoError(t, err)
		assert.Equal(t, uint32(250), bps)
	})
}

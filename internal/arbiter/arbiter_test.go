package arbiter

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"rental-escrow-backend/internal/domain"
)

func disputed() *domain.EscrowAgreement {
	now := time.Now().UTC()
	return &domain.EscrowAgreement{
		ID: 5, Borrower: "alice", Lender: "bob", RentalAmount: 100, SecurityDeposit: 10,
		StartTime: now, EndTime: now.Add(time.Hour), State: domain.EscrowStateDisputed,
		BorrowerConfirmed: true, LenderConfirmed: true,
		Dispute: &domain.Dispute{Reason: "late", RaisedBy: "bob", RaisedAt: now},
	}
}

func TestNew(t *testing.T) {
	_, err := New("   ")
	assert.ErrorIs(t, err, ErrNoArbiter)

	a, err := New(" Judge ")
	require.NoError(t, err)
	assert.Equal(t, "judge", a.Authority())
}

func TestArbiter_Rule(t *testing.T) {
	a, err := New("judge")
	require.NoError(t, err)
	now := time.Now().UTC()

	t.Run("OnlyArbiter", func(t *testing.T) {
		_, err := a.Rule("alice", disputed(), true, now)
		assert.Equal(t, domain.CodeUnauthorizedAccess, domain.CodeOf(err))
	})

	t.Run("RequiresDisputed", func(t *testing.T) {
		agreement := disputed()
		agreement.State = domain.EscrowStateActive
		_, err := a.Rule("judge", agreement, true, now)
		assert.Equal(t, domain.CodeInvalidEscrowState, domain.CodeOf(err))
	})

	t.Run("FavorBorrowerRefunds", func(t *testing.T) {
		agreement := disputed()
		ruling, err := a.Rule("judge", agreement, true, now)
		require.NoError(t, err)
		assert.Equal(t, domain.EscrowStateRefunded, ruling.Target)

		ruling.Apply(agreement)
		assert.Equal(t, domain.EscrowStateRefunded, agreement.State)
		assert.Equal(t, "judge", agreement.Dispute.ResolvedBy)
		require.NotNil(t, agreement.Dispute.FavorBorrower)
		assert.True(t, *agreement.Dispute.FavorBorrower)
		assert.NoError(t, agreement.Validate())
	})

	t.Run("FavorLenderCompletes", func(t *testing.T) {
		agreement := disputed()
		ruling, err := a.Rule("judge", agreement, false, now)
		require.NoError(t, err)
		ruling.Apply(agreement)
		assert.Equal(t, domain.EscrowStateCompleted, agreement.State)
		assert.NoError(t, agreement.Validate())
	})
}

// Package arbiter decides disputed agreements. It never moves funds itself; the ledger
// applies a Ruling inside the same transaction as the state change.
package arbiter

import (
	"errors"
	"time"

	"rental-escrow-backend/internal/domain"
)

var ErrNoArbiter = errors.New("arbiter address is not configured")

// Ruling is the outcome of a dispute: the target state and how custody is paid out.
type Ruling struct {
	Arbiter       string
	FavorBorrower bool
	Target        domain.EscrowState
	At            time.Time
}

// Arbiter is the single authority allowed to resolve disputes.
type Arbiter struct {
	authority string
}

func New(address string) (*Arbiter, error) {
	address = domain.NormalizeAddress(address)
	if address == "" {
		return nil, ErrNoArbiter
	}
	return &Arbiter{authority: address}, nil
}

func (a *Arbiter) Authority() string {
	return a.authority
}

func (a *Arbiter) Authorize(caller string) bool {
	return caller != "" && caller == a.authority
}

// Rule validates the caller and the agreement and returns the outcome. It does not
// mutate the agreement.
func (a *Arbiter) Rule(caller string, agreement *domain.EscrowAgreement, favorBorrower bool, now time.Time) (Ruling, error) {
	if !a.Authorize(caller) {
		return Ruling{}, domain.ErrUnauthorized(agreement.ID, "only the arbiter can resolve disputes")
	}
	if agreement.State != domain.EscrowStateDisputed {
		return Ruling{}, domain.ErrInvalidEscrowState(agreement.ID, domain.EscrowStateDisputed, agreement.State)
	}
	target := domain.EscrowStateCompleted
	if favorBorrower {
		target = domain.EscrowStateRefunded
	}
	return Ruling{Arbiter: a.authority, FavorBorrower: favorBorrower, Target: target, At: now}, nil
}

// Apply records the ruling on the agreement's dispute.
func (r Ruling) Apply(agreement *domain.EscrowAgreement) {
	at := r.At
	favor := r.FavorBorrower
	agreement.Dispute.ResolvedBy = r.Arbiter
	agreement.Dispute.ResolvedAt = &at
	agreement.Dispute.FavorBorrower = &favor
	agreement.State = r.Target
}

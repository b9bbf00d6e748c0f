package domain

import (
	"fmt"
	"strings"
	"time"
)

type EscrowState string

const (
	EscrowStateCreated   EscrowState = "CREATED"
	EscrowStateDeposited EscrowState = "DEPOSITED"
	EscrowStateActive    EscrowState = "ACTIVE"
	EscrowStateCompleted EscrowState = "COMPLETED"
	EscrowStateDisputed  EscrowState = "DISPUTED"
	EscrowStateRefunded  EscrowState = "REFUNDED"
	EscrowStateCancelled EscrowState = "CANCELLED"
)

// transitions is the only set of edges an agreement may follow.
var transitions = map[EscrowState][]EscrowState{
	EscrowStateCreated:   {EscrowStateDeposited, EscrowStateCancelled},
	EscrowStateDeposited: {EscrowStateActive},
	EscrowStateActive:    {EscrowStateCompleted, EscrowStateDisputed},
	EscrowStateDisputed:  {EscrowStateRefunded, EscrowStateCompleted},
}

func (s EscrowState) Valid() bool {
	switch s {
	case EscrowStateCreated, EscrowStateDeposited, EscrowStateActive, EscrowStateCompleted,
		EscrowStateDisputed, EscrowStateRefunded, EscrowStateCancelled:
		return true
	}
	return false
}

func (s EscrowState) IsTerminal() bool {
	return s == EscrowStateCompleted || s == EscrowStateRefunded || s == EscrowStateCancelled
}

// HoldsFunds reports whether the ledger custodies the agreement's full amount in this state.
func (s EscrowState) HoldsFunds() bool {
	return s == EscrowStateDeposited || s == EscrowStateActive || s == EscrowStateDisputed
}

func (s EscrowState) CanTransitionTo(next EscrowState) bool {
	for _, candidate := range transitions[s] {
		if candidate == next {
			return true
		}
	}
	return false
}

type PartyRole string

const (
	PartyRoleBorrower PartyRole = "BORROWER"
	PartyRoleLender   PartyRole = "LENDER"
)

// Dispute is only present once an agreement has entered DISPUTED.
type Dispute struct {
	Reason     string     `json:"reason"`
	RaisedBy   string     `json:"raised_by"`
	RaisedAt   time.Time  `json:"raised_at"`
	ResolvedBy string     `json:"resolved_by,omitempty"`
	ResolvedAt *time.Time `json:"resolved_at,omitempty"`
	// FavorBorrower is nil until the arbiter rules.
	FavorBorrower *bool `json:"favor_borrower,omitempty"`
}

type EscrowAgreement struct {
	ID                int64       `json:"id"`
	Borrower          string      `json:"borrower"`
	Lender            string      `json:"lender"`
	RentalAmount      int64       `json:"rental_amount"`
	SecurityDeposit   int64       `json:"security_deposit"`
	StartTime         time.Time   `json:"start_time"`
	EndTime           time.Time   `json:"end_time"`
	CreatedAt         time.Time   `json:"created_at"`
	UpdatedAt         time.Time   `json:"updated_at"`
	State             EscrowState `json:"state"`
	ItemDescription   string      `json:"item_description"`
	BorrowerConfirmed bool        `json:"borrower_confirmed"`
	LenderConfirmed   bool        `json:"lender_confirmed"`
	// FeeCharged is the platform fee taken when the rental amount was paid out.
	FeeCharged int64    `json:"fee_charged"`
	Dispute    *Dispute `json:"dispute,omitempty"`
}

// TotalAmount is the exact sum the borrower must deposit.
func (a *EscrowAgreement) TotalAmount() int64 {
	return a.RentalAmount + a.SecurityDeposit
}

func (a *EscrowAgreement) IsParty(address string) bool {
	return address == a.Borrower || address == a.Lender
}

// Custody is the amount the ledger must hold for this agreement in its current state.
func (a *EscrowAgreement) Custody() int64 {
	if a.State.HoldsFunds() {
		return a.TotalAmount()
	}
	return 0
}

// Validate checks that the per-state fields agree with the state.
func (a *EscrowAgreement) Validate() error {
	if !a.State.Valid() {
		return fmt.Errorf("unknown escrow state %q", a.State)
	}
	if a.Borrower == "" || a.Lender == "" {
		return fmt.Errorf("escrow %d: both parties are required", a.ID)
	}
	if a.Borrower == a.Lender {
		return fmt.Errorf("escrow %d: borrower and lender must differ", a.ID)
	}
	if a.RentalAmount <= 0 || a.SecurityDeposit < 0 {
		return fmt.Errorf("escrow %d: invalid amounts", a.ID)
	}
	if !a.EndTime.After(a.StartTime) {
		return fmt.Errorf("escrow %d: end time must be after start time", a.ID)
	}

	deposited := a.State != EscrowStateCreated && a.State != EscrowStateCancelled
	if a.BorrowerConfirmed != deposited {
		return fmt.Errorf("escrow %d: borrower confirmation inconsistent with state %s", a.ID, a.State)
	}
	activated := deposited && a.State != EscrowStateDeposited
	if a.LenderConfirmed != activated {
		return fmt.Errorf("escrow %d: lender confirmation inconsistent with state %s", a.ID, a.State)
	}

	switch a.State {
	case EscrowStateDisputed:
		if a.Dispute == nil || a.Dispute.ResolvedAt != nil {
			return fmt.Errorf("escrow %d: disputed agreement must carry an open dispute", a.ID)
		}
	case EscrowStateRefunded:
		if a.Dispute == nil || a.Dispute.ResolvedAt == nil {
			return fmt.Errorf("escrow %d: refund requires a resolved dispute", a.ID)
		}
	case EscrowStateCreated, EscrowStateDeposited, EscrowStateActive, EscrowStateCancelled:
		if a.Dispute != nil {
			return fmt.Errorf("escrow %d: unexpected dispute in state %s", a.ID, a.State)
		}
	}
	return nil
}

// NormalizeAddress canonicalises an identity handle before comparison or storage.
func NormalizeAddress(address string) string {
	return strings.ToLower(strings.TrimSpace(address))
}

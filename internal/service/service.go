package service

import (
	"context"
	"time"

	"rental-escrow-backend/internal/domain"
	"rental-escrow-backend/internal/ledger"
)

// Ledger is the subset of *ledger.Ledger the services drive.
type Ledger interface {
	CreateEscrow(ctx context.Context, p ledger.CreateEscrowParams) (int64, error)
	Deposit(ctx context.Context, id int64, payer string, amount int64) (*domain.EscrowAgreement, error)
	ActivateRental(ctx context.Context, id int64, caller string) (*domain.EscrowAgreement, error)
	ReleaseToLender(ctx context.Context, id int64, caller string) (*domain.EscrowAgreement, error)
	RaiseDispute(ctx context.Context, id int64, caller, reason string) (*domain.EscrowAgreement, error)
	ResolveDispute(ctx context.Context, id int64, caller string, favorBorrower bool) (*domain.EscrowAgreement, error)
	CancelEscrow(ctx context.Context, id int64, caller string) (*domain.EscrowAgreement, error)
	GetEscrow(ctx context.Context, id int64) (*domain.EscrowAgreement, error)
	GetUserEscrows(ctx context.Context, address string) ([]domain.EscrowAgreement, error)
	ListEvents(ctx context.Context, id int64) ([]domain.EscrowEvent, error)
	IsAdmin(address string) bool

	SetFeePercentage(ctx context.Context, caller string, bps uint32) error
	GetFeePercentage(ctx context.Context) (uint32, error)
	GetFeePool(ctx context.Context) (int64, error)
	WithdrawFees(ctx context.Context, caller, to string, amount int64) error
	GetBalance(ctx context.Context, address string) (int64, error)
	ListEntries(ctx context.Context, address string, page, pageSize int32) ([]domain.LedgerEntry, int32, error)
}

type CreateEscrowRequest struct {
	Borrower        string
	Lender          string
	RentalAmount    int64
	SecurityDeposit int64
	Duration        time.Duration
	Description     string
}

// EscrowService is the authenticated boundary over the escrow lifecycle. caller is
// the identity established by the transport.
type EscrowService interface {
	CreateEscrow(ctx context.Context, caller string, req CreateEscrowRequest) (*domain.EscrowAgreement, error)
	Deposit(ctx context.Context, caller string, id int64, amount int64) (*domain.EscrowAgreement, error)
	ActivateRental(ctx context.Context, caller string, id int64) (*domain.EscrowAgreement, error)
	ReleaseToLender(ctx context.Context, caller string, id int64) (*domain.EscrowAgreement, error)
	RaiseDispute(ctx context.Context, caller string, id int64, reason string) (*domain.EscrowAgreement, error)
	ResolveDispute(ctx context.Context, caller string, id int64, favorBorrower bool) (*domain.EscrowAgreement, error)
	CancelEscrow(ctx context.Context, caller string, id int64) (*domain.EscrowAgreement, error)
	GetEscrow(ctx context.Context, id int64) (*domain.EscrowAgreement, error)
	// GetUserEscrows and ListEvents are private views: the caller must be the named
	// address or a party to the agreement, or hold the owner or arbiter role.
	GetUserEscrows(ctx context.Context, caller, address string) ([]domain.EscrowAgreement, error)
	ListEvents(ctx context.Context, caller string, id int64) ([]domain.EscrowEvent, error)
}

type AccountService interface {
	GetBalance(ctx context.Context, caller, address string) (int64, error)
	ListEntries(ctx context.Context, caller, address string, page, pageSize int32) ([]domain.LedgerEntry, int32, error)
}

type PlatformService interface {
	SetFeePercentage(ctx context.Context, caller string, bps uint32) error
	GetFeePercentage(ctx context.Context) (uint32, error)
	GetFeePool(ctx context.Context) (int64, error)
	WithdrawFees(ctx context.Context, caller, to string, amount int64) error
}

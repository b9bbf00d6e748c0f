package repository

import (
	"context"
	"errors"
	"time"

	"rental-escrow-backend/internal/domain"
)

var (
	ErrNotFound          = errors.New("record not found")
	ErrInsufficientFunds = errors.New("insufficient funds")
	ErrNotPending        = errors.New("journal entry is not pending")
)

type EscrowRepository interface {
	Create(ctx context.Context, agreement *domain.EscrowAgreement) error
	GetByID(ctx context.Context, id int64) (*domain.EscrowAgreement, error)
	// GetForUpdate reads the agreement and, where the database supports it, locks the row
	// until the surrounding transaction ends.
	GetForUpdate(ctx context.Context, id int64) (*domain.EscrowAgreement, error)
	Update(ctx context.Context, agreement *domain.EscrowAgreement) error
	ListByParty(ctx context.Context, address string) ([]domain.EscrowAgreement, error)
	ListByStates(ctx context.Context, states []domain.EscrowState) ([]domain.EscrowAgreement, error)
}

type CustodyRepository interface {
	GetHold(ctx context.Context, escrowID int64) (int64, error)
	// AdjustHold adds delta to the escrow's custody balance; it fails with
	// ErrInsufficientFunds rather than let the balance go negative.
	AdjustHold(ctx context.Context, escrowID int64, delta int64) error
	ListHolds(ctx context.Context) (map[int64]int64, error)
	CreditAccount(ctx context.Context, address string, amount int64) error
	GetBalance(ctx context.Context, address string) (int64, error)
	CreateEntry(ctx context.Context, entry *domain.LedgerEntry) error
	ListEntries(ctx context.Context, address string, limit, offset int32) ([]domain.LedgerEntry, int32, error)
}

type PlatformRepository interface {
	Get(ctx context.Context) (*domain.PlatformState, error)
	AddFees(ctx context.Context, amount int64) error
	// WithdrawFees fails with ErrInsufficientFunds when the pool holds less than amount.
	WithdrawFees(ctx context.Context, amount int64) error
	SetFeeBps(ctx context.Context, bps uint32) error
}

type EventRepository interface {
	Append(ctx context.Context, event *domain.EscrowEvent) error
	ListByEscrow(ctx context.Context, escrowID int64) ([]domain.EscrowEvent, error)
}

type JournalRepository interface {
	Create(ctx context.Context, entry *domain.JournalEntry) error
	GetByID(ctx context.Context, id string) (*domain.JournalEntry, error)
	// MarkStatus resolves a PENDING entry. It fails with ErrNotPending when the entry is
	// missing or was already resolved, and then changes nothing.
	MarkStatus(ctx context.Context, id string, status domain.JournalStatus, errMsg string, at time.Time) error
	ListPending(ctx context.Context, olderThan time.Time) ([]domain.JournalEntry, error)
}

type IdentityRepository interface {
	IsVerified(ctx context.Context, address string) (bool, error)
	SetVerified(ctx context.Context, address string, verified bool, at time.Time) error
}

// Repositories is the set of repositories bound to one database handle, either the
// shared pool or a single transaction.
type Repositories interface {
	Escrows() EscrowRepository
	Custody() CustodyRepository
	Platform() PlatformRepository
	Events() EventRepository
	Journal() JournalRepository
	Identities() IdentityRepository
}

// Store exposes pool-bound repositories plus a transactional scope. Every write made
// through the repositories handed to fn is committed together or not at all.
type Store interface {
	Repositories
	WithinTx(ctx context.Context, fn func(ctx context.Context, tx Repositories) error) error
	Close() error
}

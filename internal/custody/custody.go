// Package custody moves funds between escrow holds, account balances and the platform
// fee pool. Every call runs against the repositories of the caller's transaction, so
// a failure anywhere in an escrow operation undoes all of its transfers.
package custody

import (
	"context"
	"errors"
	"fmt"
	"time"

	"rental-escrow-backend/internal/domain"
	"rental-escrow-backend/internal/repository"
)

var ErrInvalidTransfer = errors.New("transfer amount must be positive")

type Custodian interface {
	// Hold takes amount from the payer into the escrow's custody.
	Hold(ctx context.Context, tx repository.Repositories, escrowID int64, from string, amount int64, at time.Time) error
	// Release pays amount out of the escrow's custody to an account.
	Release(ctx context.Context, tx repository.Repositories, escrowID int64, to string, amount int64, kind domain.EntryType, at time.Time) error
	// AccrueFee moves amount out of the escrow's custody into the platform fee pool.
	AccrueFee(ctx context.Context, tx repository.Repositories, escrowID int64, amount int64, at time.Time) error
	// WithdrawFees drains amount from the fee pool into an account.
	WithdrawFees(ctx context.Context, tx repository.Repositories, to string, amount int64, at time.Time) error
}

// LedgerCustodian keeps custody in the database ledger. Deposits arrive from outside
// the system, so Hold does not debit the payer's internal balance.
type LedgerCustodian struct{}

func NewLedgerCustodian() *LedgerCustodian {
	return &LedgerCustodian{}
}

func (c *LedgerCustodian) Hold(ctx context.Context, tx repository.Repositories, escrowID int64, from string, amount int64, at time.Time) error {
	if amount <= 0 {
		return ErrInvalidTransfer
	}
	if err := tx.Custody().AdjustHold(ctx, escrowID, amount); err != nil {
		return fmt.Errorf("hold: %w", err)
	}
	return tx.Custody().CreateEntry(ctx, &domain.LedgerEntry{
		EscrowID:    &escrowID,
		Address:     from,
		Amount:      -amount,
		Type:        domain.EntryTypeDepositHold,
		Description: fmt.Sprintf("deposit into escrow %d", escrowID),
		CreatedAt:   at,
	})
}

func (c *LedgerCustodian) Release(ctx context.Context, tx repository.Repositories, escrowID int64, to string, amount int64, kind domain.EntryType, at time.Time) error {
	// A zero security deposit has nothing to return.
	if amount == 0 {
		return nil
	}
	if amount < 0 {
		return ErrInvalidTransfer
	}
	if err := tx.Custody().AdjustHold(ctx, escrowID, -amount); err != nil {
		return fmt.Errorf("release from escrow %d: %w", escrowID, err)
	}
	if err := tx.Custody().CreditAccount(ctx, to, amount); err != nil {
		return fmt.Errorf("credit %s: %w", to, err)
	}
	return tx.Custody().CreateEntry(ctx, &domain.LedgerEntry{
		EscrowID:    &escrowID,
		Address:     to,
		Amount:      amount,
		Type:        kind,
		Description: fmt.Sprintf("release from escrow %d", escrowID),
		CreatedAt:   at,
	})
}

func (c *LedgerCustodian) AccrueFee(ctx context.Context, tx repository.Repositories, escrowID int64, amount int64, at time.Time) error {
	if amount == 0 {
		return nil
	}
	if amount < 0 {
		return ErrInvalidTransfer
	}
	if err := tx.Custody().AdjustHold(ctx, escrowID, -amount); err != nil {
		return fmt.Errorf("fee from escrow %d: %w", escrowID, err)
	}
	if err := tx.Platform().AddFees(ctx, amount); err != nil {
		return err
	}
	return tx.Custody().CreateEntry(ctx, &domain.LedgerEntry{
		EscrowID:    &escrowID,
		Address:     domain.PlatformAccount,
		Amount:      amount,
		Type:        domain.EntryTypePlatformFee,
		Description: fmt.Sprintf("platform fee on escrow %d", escrowID),
		CreatedAt:   at,
	})
}

func (c *LedgerCustodian) WithdrawFees(ctx context.Context, tx repository.Repositories, to string, amount int64, at time.Time) error {
	if amount <= 0 {
		return ErrInvalidTransfer
	}
	if err := tx.Platform().WithdrawFees(ctx, amount); err != nil {
		return err
	}
	if err := tx.Custody().CreditAccount(ctx, to, amount); err != nil {
		return err
	}
	return tx.Custody().CreateEntry(ctx, &domain.LedgerEntry{
		Address:     to,
		Amount:      amount,
		Type:        domain.EntryTypeFeeWithdrawal,
		Description: "fee pool withdrawal",
		CreatedAt:   at,
	})
}

package ledger

import (
	"context"
	"errors"
	"fmt"
	"time"

	"rental-escrow-backend/internal/domain"
	"rental-escrow-backend/internal/fee"
	"rental-escrow-backend/internal/repository"
)

// platformLockKey serialises fee pool administration. Escrow ids start at 1.
const platformLockKey int64 = 0

const maxEntriesPage = 100

// SetFeePercentage changes the rate applied to future releases. Agreements already
// created are charged whatever rate is current when they settle.
func (l *Ledger) SetFeePercentage(ctx context.Context, caller string, bps uint32) (err error) {
	now := l.clock.Now().UTC()
	ctx, span := l.tracer.Start(ctx, "ledger.SetFeePercentage")
	defer func() { l.finish(span, "SetFeePercentage", now, err) }()

	caller = domain.NormalizeAddress(caller)
	if caller != l.cfg.Owner {
		return domain.ErrUnauthorized(0, "only the platform owner can set the fee")
	}
	if err := fee.ValidateBps(bps); err != nil {
		return domain.ErrInvalidFeePercentage(bps, fee.MaxBps)
	}

	unlock := l.locks.Lock(platformLockKey)
	defer unlock()

	var previous uint32
	ev := domain.EscrowEvent{
		Type:      domain.EventFeePercentageUpdated,
		Actor:     caller,
		CreatedAt: now,
	}
	err = l.store.WithinTx(ctx, func(ctx context.Context, tx repository.Repositories) error {
		var err error
		if previous, err = l.feeBps(ctx, tx); err != nil {
			return err
		}
		if err := tx.Platform().SetFeeBps(ctx, bps); err != nil {
			return err
		}
		ev.Attributes = map[string]string{"previous_bps": fmt.Sprint(previous), "fee_bps": fmt.Sprint(bps)}
		return tx.Events().Append(ctx, &ev)
	})
	if err != nil {
		return fmt.Errorf("set fee percentage: %w", err)
	}
	l.publish(ctx, []domain.EscrowEvent{ev})
	return nil
}

func (l *Ledger) GetFeePercentage(ctx context.Context) (uint32, error) {
	return l.feeBps(ctx, l.store)
}

func (l *Ledger) GetFeePool(ctx context.Context) (int64, error) {
	state, err := l.store.Platform().Get(ctx)
	if err != nil {
		return 0, fmt.Errorf("read fee pool: %w", err)
	}
	return state.FeePool, nil
}

// WithdrawFees pays accrued platform fees out to an account. Owner only.
func (l *Ledger) WithdrawFees(ctx context.Context, caller, to string, amount int64) (err error) {
	now := l.clock.Now().UTC()
	ctx, span := l.tracer.Start(ctx, "ledger.WithdrawFees")
	defer func() { l.finish(span, "WithdrawFees", now, err) }()

	caller = domain.NormalizeAddress(caller)
	to = domain.NormalizeAddress(to)
	if caller != l.cfg.Owner {
		return domain.ErrUnauthorized(0, "only the platform owner can withdraw fees")
	}
	if to == "" {
		to = caller
	}
	if amount <= 0 {
		return domain.ErrInvalidAmount("withdrawal amount must be positive")
	}

	unlock := l.locks.Lock(platformLockKey)
	defer unlock()

	pool, err := l.GetFeePool(ctx)
	if err != nil {
		return err
	}
	if pool < amount {
		return domain.ErrInsufficientFees(pool, amount)
	}

	ev := domain.EscrowEvent{
		Type:       domain.EventFeesWithdrawn,
		Actor:      caller,
		Attributes: map[string]string{"to": to, "amount": amountAttr(amount)},
		CreatedAt:  now,
	}
	err = l.store.WithinTx(ctx, func(ctx context.Context, tx repository.Repositories) error {
		if err := l.custodian.WithdrawFees(ctx, tx, to, amount, now); err != nil {
			if errors.Is(err, repository.ErrInsufficientFunds) {
				return domain.ErrInsufficientFees(pool, amount)
			}
			return domain.ErrTransferFailed(0, "", err)
		}
		return tx.Events().Append(ctx, &ev)
	})
	if err != nil {
		return err
	}
	l.publish(ctx, []domain.EscrowEvent{ev})
	return nil
}

func (l *Ledger) GetBalance(ctx context.Context, address string) (int64, error) {
	return l.store.Custody().GetBalance(ctx, domain.NormalizeAddress(address))
}

// ListEntries pages through an account's ledger entries, newest first.
func (l *Ledger) ListEntries(ctx context.Context, address string, page, pageSize int32) ([]domain.LedgerEntry, int32, error) {
	if page < 1 {
		page = 1
	}
	if pageSize < 1 || pageSize > maxEntriesPage {
		pageSize = maxEntriesPage
	}
	return l.store.Custody().ListEntries(ctx, domain.NormalizeAddress(address), pageSize, (page-1)*pageSize)
}

// Now exposes the ledger clock so jobs share its notion of time.
func (l *Ledger) Now() time.Time {
	return l.clock.Now().UTC()
}

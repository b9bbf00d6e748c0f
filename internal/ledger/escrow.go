package ledger

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strings"
	"time"
	"unicode/utf8"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"rental-escrow-backend/internal/domain"
	"rental-escrow-backend/internal/fee"
	"rental-escrow-backend/internal/repository"
)

type CreateEscrowParams struct {
	Borrower        string
	Lender          string
	RentalAmount    int64
	SecurityDeposit int64
	Duration        time.Duration
	Description     string
}

// CreateEscrow opens a new agreement in CREATED. Both parties must pass verification.
func (l *Ledger) CreateEscrow(ctx context.Context, p CreateEscrowParams) (id int64, err error) {
	now := l.clock.Now().UTC()
	ctx, span := l.tracer.Start(ctx, "ledger.CreateEscrow")
	defer func() {
		span.SetAttributes(attribute.Int64("escrow.id", id))
		l.finish(span, "CreateEscrow", now, err)
	}()

	borrower := domain.NormalizeAddress(p.Borrower)
	lender := domain.NormalizeAddress(p.Lender)
	description := strings.TrimSpace(p.Description)

	if borrower == "" || lender == "" {
		return 0, domain.ErrUnauthorized(0, "borrower and lender are required")
	}
	if borrower == lender {
		return 0, domain.ErrUnauthorized(0, "borrower and lender must differ")
	}
	if l.IsAdmin(borrower) || l.IsAdmin(lender) {
		return 0, domain.ErrUnauthorized(0, "platform owner and arbiter cannot be parties")
	}
	if p.RentalAmount <= 0 {
		return 0, domain.ErrInvalidAmount("rental amount must be positive")
	}
	if p.SecurityDeposit < 0 {
		return 0, domain.ErrInvalidAmount("security deposit cannot be negative")
	}
	if p.SecurityDeposit > math.MaxInt64-p.RentalAmount {
		return 0, domain.ErrInvalidAmount("rental amount plus deposit overflows")
	}
	if p.Duration < l.cfg.MinDuration || p.Duration > l.cfg.MaxDuration {
		return 0, domain.ErrInvalidDuration(p.Duration, l.cfg.MinDuration, l.cfg.MaxDuration)
	}
	if description == "" {
		return 0, domain.ErrInvalidDescription("item description is required")
	}
	if utf8.RuneCountInString(description) > l.cfg.MaxDescriptionLength {
		return 0, domain.ErrInvalidDescription(fmt.Sprintf("item description exceeds %d characters", l.cfg.MaxDescriptionLength))
	}

	for _, party := range []string{lender, borrower} {
		ok, err := l.gate.IsAuthorized(ctx, party)
		if err != nil {
			return 0, fmt.Errorf("verify %s: %w", party, err)
		}
		if !ok {
			return 0, domain.ErrUnauthorized(0, party+" is not verified")
		}
	}

	a := &domain.EscrowAgreement{
		Borrower:        borrower,
		Lender:          lender,
		RentalAmount:    p.RentalAmount,
		SecurityDeposit: p.SecurityDeposit,
		StartTime:       now,
		EndTime:         now.Add(p.Duration),
		CreatedAt:       now,
		UpdatedAt:       now,
		State:           domain.EscrowStateCreated,
		ItemDescription: description,
	}
	if err := a.Validate(); err != nil {
		return 0, err
	}

	ev := domain.EscrowEvent{
		Type:  domain.EventEscrowCreated,
		Actor: borrower,
		Attributes: map[string]string{
			"borrower":         borrower,
			"lender":           lender,
			"rental_amount":    amountAttr(a.RentalAmount),
			"security_deposit": amountAttr(a.SecurityDeposit),
			"end_time":         a.EndTime.Format(time.RFC3339),
		},
		CreatedAt: now,
	}
	err = l.store.WithinTx(ctx, func(ctx context.Context, tx repository.Repositories) error {
		if err := tx.Escrows().Create(ctx, a); err != nil {
			return err
		}
		ev.EscrowID = a.ID
		return tx.Events().Append(ctx, &ev)
	})
	if err != nil {
		return 0, fmt.Errorf("create escrow: %w", err)
	}

	l.publish(ctx, []domain.EscrowEvent{ev})
	return a.ID, nil
}

// Deposit moves the exact rental plus deposit from the borrower into custody.
func (l *Ledger) Deposit(ctx context.Context, id int64, payer string, amount int64) (*domain.EscrowAgreement, error) {
	payer = domain.NormalizeAddress(payer)
	return l.mutate(ctx, step{
		op:         "Deposit",
		id:         id,
		target:     domain.EscrowStateDeposited,
		movesFunds: true,
		check: func(a *domain.EscrowAgreement, _ time.Time) error {
			if payer != a.Borrower {
				return domain.ErrUnauthorized(a.ID, "only the borrower can deposit")
			}
			if a.State != domain.EscrowStateCreated {
				return domain.ErrInvalidEscrowState(a.ID, domain.EscrowStateCreated, a.State)
			}
			if amount != a.TotalAmount() {
				return domain.ErrInsufficientDeposit(a.ID, a.TotalAmount(), amount)
			}
			return nil
		},
		apply: func(ctx context.Context, tx repository.Repositories, a *domain.EscrowAgreement, now time.Time) ([]domain.EscrowEvent, error) {
			if err := l.custodian.Hold(ctx, tx, a.ID, payer, amount, now); err != nil {
				return nil, domain.ErrTransferFailed(a.ID, a.State, err)
			}
			a.State = domain.EscrowStateDeposited
			a.BorrowerConfirmed = true
			return []domain.EscrowEvent{{
				Type:       domain.EventDepositMade,
				Actor:      payer,
				Attributes: map[string]string{"amount": amountAttr(amount)},
			}}, nil
		},
	})
}

// ActivateRental is the lender's confirmation that the item was handed over.
func (l *Ledger) ActivateRental(ctx context.Context, id int64, caller string) (*domain.EscrowAgreement, error) {
	caller = domain.NormalizeAddress(caller)
	return l.mutate(ctx, step{
		op:     "ActivateRental",
		id:     id,
		target: domain.EscrowStateActive,
		check: func(a *domain.EscrowAgreement, _ time.Time) error {
			if caller != a.Lender {
				return domain.ErrUnauthorized(a.ID, "only the lender can activate the rental")
			}
			if a.State != domain.EscrowStateDeposited {
				return domain.ErrInvalidEscrowState(a.ID, domain.EscrowStateDeposited, a.State)
			}
			return nil
		},
		apply: func(_ context.Context, _ repository.Repositories, a *domain.EscrowAgreement, _ time.Time) ([]domain.EscrowEvent, error) {
			a.State = domain.EscrowStateActive
			a.LenderConfirmed = true
			return []domain.EscrowEvent{{Type: domain.EventRentalActivated, Actor: caller}}, nil
		},
	})
}

// ReleaseToLender settles a finished rental: the lender is paid the rental minus the
// platform fee and the borrower gets the deposit back.
func (l *Ledger) ReleaseToLender(ctx context.Context, id int64, caller string) (*domain.EscrowAgreement, error) {
	caller = domain.NormalizeAddress(caller)
	return l.mutate(ctx, step{
		op:         "ReleaseToLender",
		id:         id,
		target:     domain.EscrowStateCompleted,
		movesFunds: true,
		check: func(a *domain.EscrowAgreement, now time.Time) error {
			if caller != a.Lender {
				return domain.ErrUnauthorized(a.ID, "only the lender can release payment")
			}
			if a.State != domain.EscrowStateActive {
				return domain.ErrInvalidEscrowState(a.ID, domain.EscrowStateActive, a.State)
			}
			if now.Before(a.EndTime) {
				return domain.ErrRentalNotEnded(a.ID, a.EndTime)
			}
			return nil
		},
		apply: func(ctx context.Context, tx repository.Repositories, a *domain.EscrowAgreement, now time.Time) ([]domain.EscrowEvent, error) {
			events, err := l.settle(ctx, tx, a, caller, now)
			if err != nil {
				return nil, err
			}
			a.State = domain.EscrowStateCompleted
			return events, nil
		},
	})
}

// settle pays out an agreement in the lender's favour: rental minus fee to the lender,
// fee to the pool, deposit to the borrower. It does not change the state.
func (l *Ledger) settle(ctx context.Context, tx repository.Repositories, a *domain.EscrowAgreement, actor string, now time.Time) ([]domain.EscrowEvent, error) {
	bps, err := l.feeBps(ctx, tx)
	if err != nil {
		return nil, err
	}
	payout, charged, err := fee.Split(a.RentalAmount, bps)
	if err != nil {
		return nil, domain.ErrTransferFailed(a.ID, a.State, err)
	}

	if err := l.custodian.Release(ctx, tx, a.ID, a.Lender, payout, domain.EntryTypeLenderPayout, now); err != nil {
		return nil, domain.ErrTransferFailed(a.ID, a.State, err)
	}
	if err := l.custodian.AccrueFee(ctx, tx, a.ID, charged, now); err != nil {
		return nil, domain.ErrTransferFailed(a.ID, a.State, err)
	}
	if err := l.custodian.Release(ctx, tx, a.ID, a.Borrower, a.SecurityDeposit, domain.EntryTypeDepositReturn, now); err != nil {
		return nil, domain.ErrTransferFailed(a.ID, a.State, err)
	}
	a.FeeCharged = charged

	return []domain.EscrowEvent{
		{
			Type:  domain.EventPaymentReleased,
			Actor: actor,
			Attributes: map[string]string{
				"to":      a.Lender,
				"amount":  amountAttr(payout),
				"fee":     amountAttr(charged),
				"fee_bps": fmt.Sprint(bps),
			},
		},
		{
			Type:       domain.EventSecurityDepositReturned,
			Actor:      actor,
			Attributes: map[string]string{"to": a.Borrower, "amount": amountAttr(a.SecurityDeposit)},
		},
	}, nil
}

// RaiseDispute freezes an active agreement until the arbiter rules. No funds move.
func (l *Ledger) RaiseDispute(ctx context.Context, id int64, caller, reason string) (*domain.EscrowAgreement, error) {
	caller = domain.NormalizeAddress(caller)
	reason = strings.TrimSpace(reason)
	return l.mutate(ctx, step{
		op:     "RaiseDispute",
		id:     id,
		target: domain.EscrowStateDisputed,
		check: func(a *domain.EscrowAgreement, now time.Time) error {
			if !a.IsParty(caller) {
				return domain.ErrUnauthorized(a.ID, "only a party can raise a dispute")
			}
			if a.State != domain.EscrowStateActive {
				return domain.ErrInvalidEscrowState(a.ID, domain.EscrowStateActive, a.State)
			}
			if reason == "" {
				return domain.ErrInvalidReason(a.ID, "dispute reason is required")
			}
			if utf8.RuneCountInString(reason) > l.cfg.MaxReasonLength {
				return domain.ErrInvalidReason(a.ID, fmt.Sprintf("dispute reason exceeds %d characters", l.cfg.MaxReasonLength))
			}
			if deadline := a.EndTime.Add(l.cfg.DisputeTimeout); now.After(deadline) {
				return domain.ErrDisputeTimeoutExceeded(a.ID, deadline)
			}
			return nil
		},
		apply: func(_ context.Context, _ repository.Repositories, a *domain.EscrowAgreement, now time.Time) ([]domain.EscrowEvent, error) {
			a.State = domain.EscrowStateDisputed
			a.Dispute = &domain.Dispute{Reason: reason, RaisedBy: caller, RaisedAt: now}
			return []domain.EscrowEvent{{
				Type:       domain.EventDisputeRaised,
				Actor:      caller,
				Attributes: map[string]string{"reason": reason},
			}}, nil
		},
	})
}

// ResolveDispute applies the arbiter's ruling: a full refund to the borrower, or the
// same payout as a normal release.
func (l *Ledger) ResolveDispute(ctx context.Context, id int64, caller string, favorBorrower bool) (*domain.EscrowAgreement, error) {
	caller = domain.NormalizeAddress(caller)
	target := domain.EscrowStateCompleted
	if favorBorrower {
		target = domain.EscrowStateRefunded
	}
	return l.mutate(ctx, step{
		op:         "ResolveDispute",
		id:         id,
		target:     target,
		movesFunds: true,
		check: func(a *domain.EscrowAgreement, now time.Time) error {
			_, err := l.arbiter.Rule(caller, a, favorBorrower, now)
			return err
		},
		apply: func(ctx context.Context, tx repository.Repositories, a *domain.EscrowAgreement, now time.Time) ([]domain.EscrowEvent, error) {
			ruling, err := l.arbiter.Rule(caller, a, favorBorrower, now)
			if err != nil {
				return nil, err
			}

			resolved := domain.EscrowEvent{
				Type:  domain.EventDisputeResolved,
				Actor: ruling.Arbiter,
				Attributes: map[string]string{
					"arbiter":        ruling.Arbiter,
					"favor_borrower": fmt.Sprint(favorBorrower),
					"outcome":        string(ruling.Target),
				},
			}
			var payouts []domain.EscrowEvent
			if favorBorrower {
				if err := l.custodian.Release(ctx, tx, a.ID, a.Borrower, a.TotalAmount(), domain.EntryTypeRefund, now); err != nil {
					return nil, domain.ErrTransferFailed(a.ID, a.State, err)
				}
				resolved.Attributes["refund"] = amountAttr(a.TotalAmount())
			} else {
				payouts, err = l.settle(ctx, tx, a, ruling.Arbiter, now)
				if err != nil {
					return nil, err
				}
			}
			ruling.Apply(a)
			return append([]domain.EscrowEvent{resolved}, payouts...), nil
		},
	})
}

// CancelEscrow abandons an agreement before any funds were deposited.
func (l *Ledger) CancelEscrow(ctx context.Context, id int64, caller string) (*domain.EscrowAgreement, error) {
	caller = domain.NormalizeAddress(caller)
	return l.mutate(ctx, step{
		op:     "CancelEscrow",
		id:     id,
		target: domain.EscrowStateCancelled,
		check: func(a *domain.EscrowAgreement, _ time.Time) error {
			if !a.IsParty(caller) {
				return domain.ErrUnauthorized(a.ID, "only a party can cancel")
			}
			if a.State != domain.EscrowStateCreated {
				return domain.ErrInvalidEscrowState(a.ID, domain.EscrowStateCreated, a.State)
			}
			return nil
		},
		apply: func(_ context.Context, _ repository.Repositories, a *domain.EscrowAgreement, _ time.Time) ([]domain.EscrowEvent, error) {
			a.State = domain.EscrowStateCancelled
			return []domain.EscrowEvent{{Type: domain.EventEscrowCancelled, Actor: caller}}, nil
		},
	})
}

func (l *Ledger) GetEscrow(ctx context.Context, id int64) (*domain.EscrowAgreement, error) {
	ctx, span := l.tracer.Start(ctx, "ledger.GetEscrow", trace.WithAttributes(attribute.Int64("escrow.id", id)))
	defer span.End()
	return l.load(ctx, l.store, id, false)
}

// GetUserEscrows lists every agreement the address is a party to, oldest first.
func (l *Ledger) GetUserEscrows(ctx context.Context, address string) ([]domain.EscrowAgreement, error) {
	ctx, span := l.tracer.Start(ctx, "ledger.GetUserEscrows")
	defer span.End()

	agreements, err := l.store.Escrows().ListByParty(ctx, domain.NormalizeAddress(address))
	if err != nil {
		return nil, fmt.Errorf("list escrows: %w", err)
	}
	if len(agreements) == 0 {
		return nil, &domain.Error{Code: domain.CodeEscrowNotFound, Message: "no escrows for " + address}
	}
	return agreements, nil
}

func (l *Ledger) ListEvents(ctx context.Context, id int64) ([]domain.EscrowEvent, error) {
	if _, err := l.load(ctx, l.store, id, false); err != nil {
		return nil, err
	}
	events, err := l.store.Events().ListByEscrow(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("list events: %w", err)
	}
	return events, nil
}

// feeBps is the owner-set rate, or the configured default when none was set.
func (l *Ledger) feeBps(ctx context.Context, repos repository.Repositories) (uint32, error) {
	state, err := repos.Platform().Get(ctx)
	if errors.Is(err, repository.ErrNotFound) {
		return l.cfg.DefaultFeeBps, nil
	}
	if err != nil {
		return 0, fmt.Errorf("read platform state: %w", err)
	}
	if state.FeeBps != nil {
		return *state.FeeBps, nil
	}
	return l.cfg.DefaultFeeBps, nil
}

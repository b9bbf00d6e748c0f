// Package ledger owns escrow agreements and the funds held for them. Every operation
// on an agreement runs under a per-agreement lock and a single database transaction,
// so state, custody, payouts, fees and audit events commit together or not at all.
package ledger

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"rental-escrow-backend/internal/arbiter"
	"rental-escrow-backend/internal/custody"
	"rental-escrow-backend/internal/domain"
	"rental-escrow-backend/internal/logger"
	"rental-escrow-backend/internal/metrics"
	"rental-escrow-backend/internal/repository"
	"rental-escrow-backend/internal/telemetry"
	"rental-escrow-backend/internal/verification"
)

type Config struct {
	MinDuration          time.Duration
	MaxDuration          time.Duration
	DisputeTimeout       time.Duration
	MaxDescriptionLength int
	MaxReasonLength      int
	// DefaultFeeBps applies until the owner sets a rate.
	DefaultFeeBps uint32
	Owner         string
}

// EventPublisher receives audit events after the transaction that wrote them commits.
type EventPublisher interface {
	Publish(ctx context.Context, event domain.EscrowEvent)
}

type Option func(*Ledger)

func WithClock(c clock.Clock) Option {
	return func(l *Ledger) { l.clock = c }
}

func WithCustodian(c custody.Custodian) Option {
	return func(l *Ledger) { l.custodian = c }
}

func WithPublisher(p EventPublisher) Option {
	return func(l *Ledger) { l.publisher = p }
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(l *Ledger) { l.metrics = m }
}

func WithTracer(t trace.Tracer) Option {
	return func(l *Ledger) { l.tracer = t }
}

type Ledger struct {
	store     repository.Store
	gate      verification.Gate
	arbiter   *arbiter.Arbiter
	custodian custody.Custodian
	clock     clock.Clock
	locks     *keyedLocker
	cfg       Config
	publisher EventPublisher
	metrics   *metrics.Metrics
	tracer    trace.Tracer
}

func New(store repository.Store, gate verification.Gate, arb *arbiter.Arbiter, cfg Config, opts ...Option) (*Ledger, error) {
	if store == nil || gate == nil || arb == nil {
		return nil, errors.New("ledger requires a store, a verification gate and an arbiter")
	}
	cfg.Owner = domain.NormalizeAddress(cfg.Owner)
	if cfg.Owner == "" {
		return nil, errors.New("ledger requires a platform owner")
	}
	if cfg.MinDuration <= 0 || cfg.MaxDuration < cfg.MinDuration {
		return nil, fmt.Errorf("invalid duration bounds [%s, %s]", cfg.MinDuration, cfg.MaxDuration)
	}
	if cfg.MaxDescriptionLength <= 0 || cfg.MaxReasonLength <= 0 {
		return nil, errors.New("description and reason bounds must be positive")
	}

	l := &Ledger{
		store:     store,
		gate:      gate,
		arbiter:   arb,
		custodian: custody.NewLedgerCustodian(),
		clock:     clock.New(),
		locks:     newKeyedLocker(),
		cfg:       cfg,
		tracer:    telemetry.Tracer(),
	}
	for _, opt := range opts {
		opt(l)
	}
	return l, nil
}

// IsAdmin reports whether address is the platform owner or the arbiter. Admins
// cannot be parties but may read any agreement's records.
func (l *Ledger) IsAdmin(address string) bool {
	address = domain.NormalizeAddress(address)
	return address == l.cfg.Owner || l.arbiter.Authorize(address)
}

// step describes one state transition on an existing agreement.
type step struct {
	op     string
	id     int64
	target domain.EscrowState
	// movesFunds writes a transfer-journal entry before the transaction starts.
	movesFunds bool
	// check runs before any write and again under the row lock; it must not mutate.
	check func(a *domain.EscrowAgreement, now time.Time) error
	// apply mutates a and moves funds through tx. It returns the audit events to append.
	apply func(ctx context.Context, tx repository.Repositories, a *domain.EscrowAgreement, now time.Time) ([]domain.EscrowEvent, error)
}

func (l *Ledger) mutate(ctx context.Context, s step) (result *domain.EscrowAgreement, err error) {
	now := l.clock.Now().UTC()
	ctx, span := l.tracer.Start(ctx, "ledger."+s.op, trace.WithAttributes(attribute.Int64("escrow.id", s.id)))
	defer func() {
		l.finish(span, s.op, now, err)
	}()

	unlock := l.locks.Lock(s.id)
	defer unlock()

	current, err := l.load(ctx, l.store, s.id, false)
	if err != nil {
		return nil, err
	}
	if err := s.check(current, now); err != nil {
		return nil, err
	}

	var journalID string
	if s.movesFunds {
		journalID, err = l.openJournal(ctx, s, current, now)
		if err != nil {
			return nil, err
		}
	}

	var events []domain.EscrowEvent
	err = l.store.WithinTx(ctx, func(ctx context.Context, tx repository.Repositories) error {
		a, err := l.load(ctx, tx, s.id, true)
		if err != nil {
			return err
		}
		if err := s.check(a, now); err != nil {
			return err
		}
		from := a.State

		events, err = s.apply(ctx, tx, a, now)
		if err != nil {
			return err
		}
		if a.State != s.target || !from.CanTransitionTo(a.State) {
			return fmt.Errorf("%s produced illegal transition %s -> %s", s.op, from, a.State)
		}
		a.UpdatedAt = now
		if err := a.Validate(); err != nil {
			return err
		}
		if err := l.verifyCustody(ctx, tx, a, from); err != nil {
			return err
		}
		if err := tx.Escrows().Update(ctx, a); err != nil {
			return fmt.Errorf("persist escrow %d: %w", a.ID, err)
		}
		for i := range events {
			events[i].EscrowID = a.ID
			events[i].CreatedAt = now
			if err := tx.Events().Append(ctx, &events[i]); err != nil {
				return fmt.Errorf("append %s event: %w", events[i].Type, err)
			}
		}
		if journalID != "" {
			if err := tx.Journal().MarkStatus(ctx, journalID, domain.JournalStatusCommitted, "", now); err != nil {
				return fmt.Errorf("commit journal entry: %w", err)
			}
		}
		result = a
		return nil
	})
	if err != nil {
		if journalID != "" {
			l.abortJournal(ctx, journalID, err, now)
		}
		return nil, err
	}

	l.publish(ctx, events)
	return result, nil
}

func (l *Ledger) load(ctx context.Context, repos repository.Repositories, id int64, forUpdate bool) (*domain.EscrowAgreement, error) {
	var (
		a   *domain.EscrowAgreement
		err error
	)
	if forUpdate {
		a, err = repos.Escrows().GetForUpdate(ctx, id)
	} else {
		a, err = repos.Escrows().GetByID(ctx, id)
	}
	if errors.Is(err, repository.ErrNotFound) {
		return nil, domain.ErrEscrowNotFound(id)
	}
	if err != nil {
		return nil, fmt.Errorf("load escrow %d: %w", id, err)
	}
	return a, nil
}

// verifyCustody rejects a transition whose transfers left the hold out of step with
// the new state.
func (l *Ledger) verifyCustody(ctx context.Context, tx repository.Repositories, a *domain.EscrowAgreement, from domain.EscrowState) error {
	held, err := tx.Custody().GetHold(ctx, a.ID)
	if err != nil {
		return domain.ErrTransferFailed(a.ID, from, err)
	}
	if held != a.Custody() {
		return domain.ErrTransferFailed(a.ID, from,
			fmt.Errorf("custody holds %d, state %s requires %d", held, a.State, a.Custody()))
	}
	return nil
}

func (l *Ledger) openJournal(ctx context.Context, s step, a *domain.EscrowAgreement, now time.Time) (string, error) {
	entry := &domain.JournalEntry{
		ID:          uuid.NewString(),
		EscrowID:    a.ID,
		Operation:   s.op,
		FromState:   a.State,
		TargetState: s.target,
		Amount:      a.TotalAmount(),
		Status:      domain.JournalStatusPending,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := l.store.Journal().Create(ctx, entry); err != nil {
		return "", fmt.Errorf("write transfer journal: %w", err)
	}
	return entry.ID, nil
}

func (l *Ledger) abortJournal(ctx context.Context, id string, cause error, now time.Time) {
	if err := l.store.Journal().MarkStatus(context.WithoutCancel(ctx), id, domain.JournalStatusAborted, cause.Error(), now); err != nil {
		// The reconciler picks up entries left pending.
		logger.ErrorContext(ctx, "Failed to abort journal entry", "journal_id", id, "error", err)
	}
}

func (l *Ledger) publish(ctx context.Context, events []domain.EscrowEvent) {
	for _, ev := range events {
		for _, kind := range movedEntryTypes(ev) {
			l.metrics.AddMoved(string(kind.entry), kind.amount)
		}
		if ev.Type == domain.EventPaymentReleased {
			l.metrics.AddFees(attrInt(ev.Attributes, "fee"))
		}
		if l.publisher != nil {
			l.publisher.Publish(ctx, ev)
		}
	}
}

func (l *Ledger) finish(span trace.Span, op string, start time.Time, err error) {
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	span.End()
	l.metrics.ObserveOperation(op, string(domain.CodeOf(err)), l.clock.Since(start))
	if err != nil && domain.CodeOf(err) == "" {
		logger.Error("Ledger operation failed", "operation", op, "error", err)
	}
}

type movedAmount struct {
	entry  domain.EntryType
	amount int64
}

func movedEntryTypes(ev domain.EscrowEvent) []movedAmount {
	switch ev.Type {
	case domain.EventDepositMade:
		return []movedAmount{{domain.EntryTypeDepositHold, attrInt(ev.Attributes, "amount")}}
	case domain.EventPaymentReleased:
		return []movedAmount{{domain.EntryTypeLenderPayout, attrInt(ev.Attributes, "amount")}}
	case domain.EventSecurityDepositReturned:
		return []movedAmount{{domain.EntryTypeDepositReturn, attrInt(ev.Attributes, "amount")}}
	case domain.EventDisputeResolved:
		return []movedAmount{{domain.EntryTypeRefund, attrInt(ev.Attributes, "refund")}}
	case domain.EventFeesWithdrawn:
		return []movedAmount{{domain.EntryTypeFeeWithdrawal, attrInt(ev.Attributes, "amount")}}
	}
	return nil
}

func attrInt(attrs map[string]string, key string) int64 {
	v, err := strconv.ParseInt(attrs[key], 10, 64)
	if err != nil {
		return 0
	}
	return v
}

func amountAttr(v int64) string {
	return strconv.FormatInt(v, 10)
}

package notify

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"rental-escrow-backend/internal/domain"
	"rental-escrow-backend/internal/logger"
)

// EscrowLookup resolves the parties of an agreement.
type EscrowLookup interface {
	GetEscrow(ctx context.Context, id int64) (*domain.EscrowAgreement, error)
}

// Enqueuer accepts messages for asynchronous delivery.
type Enqueuer interface {
	Enqueue(msg Message) error
}

// Notifier turns committed escrow events into e-mails for the parties involved.
// Addresses without a known contact are skipped.
type Notifier struct {
	queue    Enqueuer
	escrows  EscrowLookup
	contacts map[string]string
	arbiter  string
}

func NewNotifier(queue Enqueuer, escrows EscrowLookup, contacts map[string]string, arbiter string) *Notifier {
	normalized := make(map[string]string, len(contacts))
	for addr, email := range contacts {
		normalized[domain.NormalizeAddress(addr)] = email
	}
	return &Notifier{
		queue:    queue,
		escrows:  escrows,
		contacts: normalized,
		arbiter:  domain.NormalizeAddress(arbiter),
	}
}

func (n *Notifier) Publish(ctx context.Context, ev domain.EscrowEvent) {
	subject, body, ok := render(ev)
	if !ok || ev.EscrowID == 0 {
		return
	}
	a, err := n.escrows.GetEscrow(ctx, ev.EscrowID)
	if err != nil {
		logger.WarnContext(ctx, "Cannot resolve notification recipients", "escrow_id", ev.EscrowID, "error", err)
		return
	}

	recipients := []string{a.Borrower, a.Lender}
	if ev.Type == domain.EventDisputeRaised && n.arbiter != "" {
		recipients = append(recipients, n.arbiter)
	}
	for _, addr := range recipients {
		email, known := n.contacts[addr]
		if !known {
			continue
		}
		msg := Message{To: email, ToName: addr, Subject: subject, Body: body}
		if err := n.queue.Enqueue(msg); err != nil {
			logger.WarnContext(ctx, "Notification not queued", "escrow_id", ev.EscrowID, "to", addr, "error", err)
		}
	}
}

func render(ev domain.EscrowEvent) (subject, body string, ok bool) {
	id := ev.EscrowID
	switch ev.Type {
	case domain.EventDepositMade:
		subject = fmt.Sprintf("Escrow #%d funded", id)
	case domain.EventRentalActivated:
		subject = fmt.Sprintf("Rental #%d is active", id)
	case domain.EventPaymentReleased:
		subject = fmt.Sprintf("Escrow #%d settled", id)
	case domain.EventDisputeRaised:
		subject = fmt.Sprintf("Dispute raised on escrow #%d", id)
	case domain.EventDisputeResolved:
		subject = fmt.Sprintf("Dispute on escrow #%d resolved", id)
	case domain.EventEscrowCancelled:
		subject = fmt.Sprintf("Escrow #%d cancelled", id)
	default:
		return "", "", false
	}

	var b strings.Builder
	fmt.Fprintf(&b, "%s by %s at %s.\n", ev.Type, ev.Actor, ev.CreatedAt.UTC().Format("2006-01-02 15:04 MST"))
	keys := make([]string, 0, len(ev.Attributes))
	for k := range ev.Attributes {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		fmt.Fprintf(&b, "%s: %s\n", k, ev.Attributes[k])
	}
	return subject, b.String(), true
}

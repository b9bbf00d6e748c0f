package domain

import "time"

type EventType string

const (
	EventEscrowCreated           EventType = "EscrowCreated"
	EventDepositMade             EventType = "DepositMade"
	EventRentalActivated         EventType = "RentalActivated"
	EventPaymentReleased         EventType = "PaymentReleased"
	EventSecurityDepositReturned EventType = "SecurityDepositReturned"
	EventDisputeRaised           EventType = "DisputeRaised"
	EventDisputeResolved         EventType = "DisputeResolved"
	EventEscrowCancelled         EventType = "EscrowCancelled"
	EventFeePercentageUpdated    EventType = "FeePercentageUpdated"
	EventFeesWithdrawn           EventType = "FeesWithdrawn"
)

// EscrowEvent is an append-only audit record. Platform-level events carry a zero EscrowID.
type EscrowEvent struct {
	ID         int64             `json:"id"`
	EscrowID   int64             `json:"escrow_id"`
	Type       EventType         `json:"type"`
	Actor      string            `json:"actor"`
	Attributes map[string]string `json:"attributes,omitempty"`
	CreatedAt  time.Time         `json:"created_at"`
}

package domain

import "time"

type JournalStatus string

const (
	JournalStatusPending   JournalStatus = "PENDING"
	JournalStatusCommitted JournalStatus = "COMMITTED"
	JournalStatusAborted   JournalStatus = "ABORTED"
)

// JournalEntry is written before a money-moving transaction starts so that a crash
// between the intent and the commit can be reconciled on restart.
type JournalEntry struct {
	ID          string        `json:"id"`
	EscrowID    int64         `json:"escrow_id"`
	Operation   string        `json:"operation"`
	FromState   EscrowState   `json:"from_state"`
	TargetState EscrowState   `json:"target_state"`
	Amount      int64         `json:"amount"`
	Status      JournalStatus `json:"status"`
	Error       string        `json:"error,omitempty"`
	CreatedAt   time.Time     `json:"created_at"`
	UpdatedAt   time.Time     `json:"updated_at"`
}

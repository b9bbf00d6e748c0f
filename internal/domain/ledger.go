package domain

import "time"

type EntryType string

const (
	EntryTypeDepositHold   EntryType = "DEPOSIT_HOLD"
	EntryTypeLenderPayout  EntryType = "LENDER_PAYOUT"
	EntryTypeDepositReturn EntryType = "DEPOSIT_RETURN"
	EntryTypeRefund        EntryType = "REFUND"
	EntryTypePlatformFee   EntryType = "PLATFORM_FEE"
	EntryTypeFeeWithdrawal EntryType = "FEE_WITHDRAWAL"
)

// PlatformAccount is the ledger address the fee pool is booked against.
const PlatformAccount = "platform"

// LedgerEntry records one movement of funds. Amount is positive for credits to
// Address and negative for debits.
type LedgerEntry struct {
	ID          int64     `json:"id"`
	EscrowID    *int64    `json:"escrow_id,omitempty"`
	Address     string    `json:"address"`
	Amount      int64     `json:"amount"`
	Type        EntryType `json:"type"`
	Description string    `json:"description"`
	CreatedAt   time.Time `json:"created_at"`
}

type PlatformState struct {
	FeePool int64 `json:"fee_pool"`
	// FeeBps is nil until the owner overrides the configured default.
	FeeBps *uint32 `json:"fee_bps,omitempty"`
}

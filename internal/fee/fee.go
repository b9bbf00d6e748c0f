// Package fee computes the platform's cut of a rental amount.
package fee

import (
	"fmt"

	"github.com/holiman/uint256"
)

const (
	// MaxBps caps the platform fee at 10%.
	MaxBps uint32 = 1000
	// BpsDenominator is the number of basis points in 100%.
	BpsDenominator uint64 = 10000
)

// ValidateBps rejects fee rates outside [0, MaxBps].
func ValidateBps(bps uint32) error {
	if bps > MaxBps {
		return fmt.Errorf("fee %d bps exceeds maximum %d bps", bps, MaxBps)
	}
	return nil
}

// Calculate returns floor(amount * bps / 10000). The product is formed in 256 bits
// so it cannot overflow for any int64 amount.
func Calculate(amount int64, bps uint32) (int64, error) {
	if amount < 0 {
		return 0, fmt.Errorf("amount must be non-negative, got %d", amount)
	}
	if err := ValidateBps(bps); err != nil {
		return 0, err
	}

	product := new(uint256.Int).Mul(uint256.NewInt(uint64(amount)), uint256.NewInt(uint64(bps)))
	quotient := new(uint256.Int).Div(product, uint256.NewInt(BpsDenominator))
	// bps <= MaxBps < BpsDenominator, so the fee never exceeds amount.
	return int64(quotient.Uint64()), nil
}

// Split divides a rental amount into the lender's payout and the platform fee.
func Split(amount int64, bps uint32) (payout, fee int64, err error) {
	fee, err = Calculate(amount, bps)
	if err != nil {
		return 0, 0, err
	}
	return amount - fee, fee, nil
}

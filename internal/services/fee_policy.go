package services

import "github.com/ruralpay/ledgersim/internal/models"

// FeePolicy computes settlement fees. The loyalty threshold is measured in raw packed
// timestamp ticks, not calendar time.
type FeePolicy struct {
	Divisor             uint64 `json:"divisor" validate:"gt=0"`
	Min                 uint64 `json:"min"`
	Max                 uint64 `json:"max" validate:"gtefield=Min"`
	LoyaltyThreshold    uint64 `json:"loyalty_threshold"`
	DiscountNumerator   uint64 `json:"discount_numerator"`
	DiscountDenominator uint64 `json:"discount_denominator" validate:"gt=0"`
}

// DefaultFeePolicy is 1% of the amount clamped to [10, 450], with 25% off for
// customers registered more than 50_000_000_000 ticks before execution.
func DefaultFeePolicy() FeePolicy {
	return FeePolicy{
		Divisor:             100,
		Min:                 10,
		Max:                 450,
		LoyaltyThreshold:    50_000_000_000,
		DiscountNumerator:   3,
		DiscountDenominator: 4,
	}
}

// Calculate returns the fee for amount, given when the sender registered and when the
// transfer executes.
func (p FeePolicy) Calculate(amount uint64, registeredAt, executeAt models.Timestamp) uint64 {
	fee := amount / p.Divisor
	fee = max(p.Min, min(p.Max, fee))

	if executeAt.Since(registeredAt) > p.LoyaltyThreshold {
		fee = fee * p.DiscountNumerator / p.DiscountDenominator
	}
	return fee
}

// Allocate splits fee between sender and recipient. Under split mode the sender carries
// the odd unit.
func (p FeePolicy) Allocate(mode models.FeeMode, fee uint64) (senderShare, recipientShare uint64) {
	if mode == models.FeeSplit {
		return (fee + 1) / 2, fee / 2
	}
	return fee, 0
}

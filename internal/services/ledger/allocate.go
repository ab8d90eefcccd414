package ledger

import (
	"school-fees-backend/internal/models"

	"github.com/shopspring/decimal"
)

// Amounts below one cent are treated as fully allocated.
var centThreshold = decimal.New(1, -2)

// FeeAllocation pairs an open obligation with the portion of a payment (or
// credit) assigned to it.
type FeeAllocation struct {
	Fee    *models.StudentFee
	Amount decimal.Decimal
}

// Allocate splits an amount across open obligations in the order given,
// filling each fee's outstanding balance before moving to the next. It
// returns the planned allocations and the unallocated remainder; the sum of
// allocations never exceeds the amount. Callers decide what the remainder
// becomes (normally an overpayment credit).
func Allocate(amount decimal.Decimal, fees []models.StudentFee) ([]FeeAllocation, decimal.Decimal) {
	remaining := amount
	var allocations []FeeAllocation
	for i := range fees {
		if remaining.LessThan(centThreshold) {
			break
		}
		outstanding := fees[i].Outstanding()
		if outstanding.LessThanOrEqual(decimal.Zero) {
			continue
		}
		portion := decimal.Min(remaining, outstanding)
		allocations = append(allocations, FeeAllocation{Fee: &fees[i], Amount: portion})
		remaining = remaining.Sub(portion)
	}
	return allocations, remaining
}

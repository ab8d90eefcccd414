package ledger

import (
	"testing"

	"school-fees-backend/internal/models"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fee(charged, paid int64) models.StudentFee {
	return models.StudentFee{
		AmountCharged: decimal.NewFromInt(charged),
		AmountPaid:    decimal.NewFromInt(paid),
	}
}

func TestAllocateFillsFeesInOrder(t *testing.T) {
	fees := []models.StudentFee{fee(6000, 0), fee(3000, 0)}

	allocations, remainder := Allocate(decimal.NewFromInt(9000), fees)

	require.Len(t, allocations, 2)
	assert.True(t, allocations[0].Amount.Equal(decimal.NewFromInt(6000)))
	assert.True(t, allocations[1].Amount.Equal(decimal.NewFromInt(3000)))
	assert.True(t, remainder.IsZero())
}

func TestAllocatePartialPayment(t *testing.T) {
	fees := []models.StudentFee{fee(6000, 0), fee(3000, 0)}

	allocations, remainder := Allocate(decimal.NewFromInt(2500), fees)

	require.Len(t, allocations, 1)
	assert.True(t, allocations[0].Amount.Equal(decimal.NewFromInt(2500)))
	assert.True(t, remainder.IsZero())
}

func TestAllocateOverpaymentReturnsRemainder(t *testing.T) {
	fees := []models.StudentFee{fee(6000, 1000)}

	allocations, remainder := Allocate(decimal.NewFromInt(7000), fees)

	require.Len(t, allocations, 1)
	assert.True(t, allocations[0].Amount.Equal(decimal.NewFromInt(5000)))
	assert.True(t, remainder.Equal(decimal.NewFromInt(2000)))
}

func TestAllocateSkipsSettledFees(t *testing.T) {
	fees := []models.StudentFee{fee(5000, 5000), fee(3000, 0)}

	allocations, remainder := Allocate(decimal.NewFromInt(1000), fees)

	require.Len(t, allocations, 1)
	assert.Same(t, &fees[1], allocations[0].Fee)
	assert.True(t, remainder.IsZero())
}

func TestAllocateNoFees(t *testing.T) {
	allocations, remainder := Allocate(decimal.NewFromInt(1000), nil)

	assert.Empty(t, allocations)
	assert.True(t, remainder.Equal(decimal.NewFromInt(1000)))
}

func TestAllocateSubCentAmountLeftAlone(t *testing.T) {
	fees := []models.StudentFee{fee(100, 0)}

	allocations, _ := Allocate(decimal.NewFromFloat(0.005), fees)

	assert.Empty(t, allocations)
}

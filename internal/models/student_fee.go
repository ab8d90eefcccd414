package models

import (
	"time"

	"github.com/shopspring/decimal"
)

type StudentFee struct {
	ID            uint `gorm:"primaryKey"`
	SchoolID      uint `gorm:"index"`
	StudentID     uint `gorm:"index"`
	Term          string
	FeeCategory   string
	AmountCharged decimal.Decimal `gorm:"type:decimal(10,2)"`
	AmountPaid    decimal.Decimal `gorm:"type:decimal(10,2)"`
	DueDate       time.Time       `gorm:"index"`
	IsPaid        bool
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// Outstanding returns the unpaid remainder of the fee.
func (f *StudentFee) Outstanding() decimal.Decimal {
	return f.AmountCharged.Sub(f.AmountPaid)
}

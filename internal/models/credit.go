package models

import (
	"time"

	"github.com/shopspring/decimal"
)

const (
	CreditSourceOverpayment  = "overpayment"
	CreditSourceRefund       = "refund"
	CreditSourceAdjustment   = "adjustment"
	CreditSourceReassignment = "reassignment"
	CreditSourceOther        = "other"
)

type Credit struct {
	ID          uint            `gorm:"primaryKey"`
	SchoolID    uint            `gorm:"index"`
	StudentID   uint            `gorm:"index"`
	Amount      decimal.Decimal `gorm:"type:decimal(10,2)"`
	Source      string
	Description string
	// PaymentID traces the payment that created this credit, when there is one.
	PaymentID      *uint
	IsApplied      bool `gorm:"index"`
	AppliedToFeeID *uint
	AppliedAt      *time.Time
	CreatedBy      string
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

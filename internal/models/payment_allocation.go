package models

import (
	"time"

	"github.com/shopspring/decimal"
)

type PaymentAllocation struct {
	ID              uint            `gorm:"primaryKey"`
	SchoolID        uint            `gorm:"index;uniqueIndex:uniq_school_payment_fee"`
	PaymentID       uint            `gorm:"uniqueIndex:uniq_school_payment_fee"`
	StudentFeeID    uint            `gorm:"index;uniqueIndex:uniq_school_payment_fee"`
	AmountAllocated decimal.Decimal `gorm:"type:decimal(10,2)"`
	CreatedBy       string
	CreatedAt       time.Time
}

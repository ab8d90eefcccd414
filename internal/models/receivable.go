package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Receivable mirrors a StudentFee's due vs. paid amounts. It is never
// authored directly; the ledger service keeps it in sync whenever the
// underlying fee or a completed payment changes.
type Receivable struct {
	ID           uint            `gorm:"primaryKey"`
	SchoolID     uint            `gorm:"index;uniqueIndex:uniq_school_fee"`
	StudentID    uint            `gorm:"index"`
	StudentFeeID uint            `gorm:"uniqueIndex:uniq_school_fee"`
	AmountDue    decimal.Decimal `gorm:"type:decimal(10,2)"`
	AmountPaid   decimal.Decimal `gorm:"type:decimal(10,2)"`
	DueDate      time.Time       `gorm:"index"`
	IsCleared    bool            `gorm:"index"`
	// ClearedAt is stamped the first time the receivable clears and never reset.
	ClearedAt *time.Time
	CreatedAt time.Time
	UpdatedAt time.Time
}

func (r *Receivable) Balance() decimal.Decimal {
	return r.AmountDue.Sub(r.AmountPaid)
}

func (r *Receivable) IsOverdue(now time.Time) bool {
	return !r.IsCleared && now.After(r.DueDate)
}

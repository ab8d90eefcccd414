package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/datatypes"
)

const (
	PaymentStatusPending    = "pending"
	PaymentStatusProcessing = "processing"
	PaymentStatusCompleted  = "completed"
	PaymentStatusFailed     = "failed"
	PaymentStatusCancelled  = "cancelled"
)

const (
	PaymentMethodMpesa        = "mpesa"
	PaymentMethodCash         = "cash"
	PaymentMethodBankTransfer = "bank_transfer"
	PaymentMethodCheque       = "cheque"
)

type Payment struct {
	ID       uint `gorm:"primaryKey"`
	SchoolID uint `gorm:"index;uniqueIndex:uniq_school_payment"`
	// PaymentID is the immutable public identity of the payment.
	PaymentID       uuid.UUID       `gorm:"type:uuid;uniqueIndex:uniq_school_payment"`
	StudentID       uint            `gorm:"index"`
	StudentFeeID    uint            `gorm:"index"`
	Amount          decimal.Decimal `gorm:"type:decimal(10,2)"`
	PaymentMethod   string
	Status          string `gorm:"index"`
	ReferenceNumber string
	// TransactionID holds the M-Pesa receipt/reference when the payment came
	// through M-Pesa or a statement row that carried one.
	TransactionID  string `gorm:"index"`
	PaymentDate    time.Time
	ProcessedBy    string
	Notes          string
	GatewayDetails datatypes.JSON
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

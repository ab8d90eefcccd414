package models

import (
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/datatypes"
)

const (
	UnmatchedStatusUnmatched = "unmatched"
	UnmatchedStatusMatched   = "matched"
	UnmatchedStatusIgnored   = "ignored"
	UnmatchedStatusManual    = "manual"
)

const (
	TransactionTypeCredit = "credit"
	TransactionTypeDebit  = "debit"
)

type UnmatchedTransaction struct {
	ID              uint            `gorm:"primaryKey"`
	SchoolID        uint            `gorm:"index:idx_unmatched_school_status;uniqueIndex:uniq_school_bank_ref"`
	UploadID        *uint           `gorm:"index"`
	TransactionDate time.Time
	Amount          decimal.Decimal `gorm:"type:decimal(10,2)"`
	// ReferenceNumber is the raw narrative text from the statement row.
	ReferenceNumber string
	// BankReferenceNumber is the bank's unique transaction reference, the
	// primary duplicate-detection key. Unique per school when present.
	BankReferenceNumber *string `gorm:"index;uniqueIndex:uniq_school_bank_ref"`
	MpesaReference      *string `gorm:"index"`
	MobileNumber        string
	// ExtractedStudentID is the best-effort student ID pulled from the
	// narrative; the matcher still validates it against the school's students.
	ExtractedStudentID string `gorm:"index"`
	BankAccount        string
	TransactionType    string

	Status string `gorm:"index:idx_unmatched_school_status"`

	MatchedPaymentID *uint
	MatchedStudentID *uint

	ExtractionDetails datatypes.JSON
	Notes             string
	MatchedBy         string
	MatchedAt         *time.Time
	CreatedAt         time.Time
	UpdatedAt         time.Time
}

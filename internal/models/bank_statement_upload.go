package models

import "time"

const (
	UploadStatusPending    = "pending"
	UploadStatusProcessing = "processing"
	UploadStatusCompleted  = "completed"
	UploadStatusFailed     = "failed"
)

type BankStatementUpload struct {
	ID         uint  `gorm:"primaryKey"`
	SchoolID   uint  `gorm:"index"`
	PatternID  *uint `gorm:"index"`
	FileName   string
	UploadedBy string
	UploadedAt time.Time

	Status                string `gorm:"index"`
	TotalTransactions     int
	MatchedPayments       int
	UnmatchedPayments     int
	DuplicateTransactions int
	// ErrorRows counts rows whose date or amount failed to parse. Such rows
	// are retained as StatementRowError records and excluded from the matched
	// and unmatched counters.
	ErrorRows    int
	ErrorMessage string
	ProcessedAt  *time.Time
}

// StatementRowError preserves a statement row that could not be parsed, with
// its raw text, so an operator can inspect it later.
type StatementRowError struct {
	ID        uint `gorm:"primaryKey"`
	SchoolID  uint `gorm:"index"`
	UploadID  uint `gorm:"index"`
	Line      int
	RawText   string
	Reason    string
	CreatedAt time.Time
}

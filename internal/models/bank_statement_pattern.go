package models

import "time"

const (
	DelimiterComma     = ","
	DelimiterSemicolon = ";"
	DelimiterTab       = "\t"
)

const (
	EncodingUTF8     = "utf-8"
	EncodingLatin1   = "latin-1"
	EncodingCP1252   = "cp1252"
	EncodingISO88591 = "iso-8859-1"
)

// BankStatementPattern describes how to parse one bank's CSV export for one
// school. Column fields hold either a header name or a positional index as a
// string (e.g. "Narrative" or "2").
type BankStatementPattern struct {
	ID          uint   `gorm:"primaryKey"`
	SchoolID    uint   `gorm:"index;uniqueIndex:uniq_school_bank_pattern"`
	BankName    string `gorm:"uniqueIndex:uniq_school_bank_pattern"`
	PatternName string `gorm:"uniqueIndex:uniq_school_bank_pattern"`

	DateColumn                 string
	AmountColumn               string
	ReferenceColumn            string
	TransactionReferenceColumn string

	// StudentIDPattern is an optional regex tried before the built-in
	// "#(digits)" default. The first capture group wins, else the whole match.
	StudentIDPattern string
	AmountPattern    string

	// DateFormat is a Go time layout, e.g. "2006-01-02" or "02/01/2006".
	DateFormat string

	HasHeader bool `gorm:"default:true"`
	Delimiter string
	Encoding  string

	IsActive  bool `gorm:"default:true;index"`
	CreatedAt time.Time
	UpdatedAt time.Time
}

func ValidDelimiter(d string) bool {
	switch d {
	case DelimiterComma, DelimiterSemicolon, DelimiterTab:
		return true
	}
	return false
}

func ValidEncoding(e string) bool {
	switch e {
	case EncodingUTF8, EncodingLatin1, EncodingCP1252, EncodingISO88591:
		return true
	}
	return false
}

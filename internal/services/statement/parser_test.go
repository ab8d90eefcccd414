package statement

import (
	"testing"

	"school-fees-backend/internal/models"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/text/encoding/charmap"
)

func headerPattern() *models.BankStatementPattern {
	return &models.BankStatementPattern{
		DateColumn:      "Date",
		AmountColumn:    "Amount",
		ReferenceColumn: "Narrative",
		DateFormat:      "2006-01-02",
		HasHeader:       true,
		Delimiter:       models.DelimiterComma,
		Encoding:        models.EncodingUTF8,
	}
}

func TestParseStatementHeaderColumns(t *testing.T) {
	data := []byte("Date,Amount,Narrative\n" +
		"2025-01-15,5000,MPS 254721266013 TK18K8USG7 064010#00001 SAMUEL KAGIRI\n" +
		"2025-01-16,-1200.50,BANK CHARGES\n")

	rows, err := ParseStatement(headerPattern(), data)
	require.NoError(t, err)
	require.Len(t, rows, 2)

	assert.Equal(t, 2, rows[0].Line)
	assert.Equal(t, "2025-01-15", rows[0].Date.Format("2006-01-02"))
	assert.True(t, rows[0].Amount.Equal(decimal.NewFromInt(5000)))
	assert.Equal(t, models.TransactionTypeCredit, rows[0].TransactionType)
	assert.Contains(t, rows[0].Narrative, "SAMUEL KAGIRI")
	assert.NoError(t, rows[0].Err)

	assert.Equal(t, models.TransactionTypeDebit, rows[1].TransactionType)
	assert.True(t, rows[1].Amount.Equal(decimal.RequireFromString("-1200.50")))
}

func TestParseStatementPositionalColumns(t *testing.T) {
	pattern := &models.BankStatementPattern{
		DateColumn:                 "0",
		AmountColumn:               "2",
		ReferenceColumn:            "1",
		TransactionReferenceColumn: "3",
		DateFormat:                 "02/01/2006",
		HasHeader:                  false,
		Delimiter:                  models.DelimiterSemicolon,
		Encoding:                   models.EncodingUTF8,
	}
	data := []byte("15/01/2025;064010#00001 FEES;KES 5,000.00;FT25123XYZAB\n")

	rows, err := ParseStatement(pattern, data)
	require.NoError(t, err)
	require.Len(t, rows, 1)

	assert.Equal(t, "2025-01-15", rows[0].Date.Format("2006-01-02"))
	assert.True(t, rows[0].Amount.Equal(decimal.NewFromInt(5000)))
	assert.Equal(t, "FT25123XYZAB", rows[0].BankReference)
}

func TestParseStatementBadRowsRetainedWithError(t *testing.T) {
	data := []byte("Date,Amount,Narrative\n" +
		"not-a-date,5000,ROW ONE\n" +
		"2025-01-15,not-a-number,ROW TWO\n" +
		"2025-01-16,3000,ROW THREE\n")

	rows, err := ParseStatement(headerPattern(), data)
	require.NoError(t, err)
	require.Len(t, rows, 3)

	assert.Error(t, rows[0].Err)
	assert.Contains(t, rows[0].Raw, "ROW ONE")
	assert.Error(t, rows[1].Err)
	assert.NoError(t, rows[2].Err)
}

func TestParseStatementSkipsBlankAndShortRows(t *testing.T) {
	data := []byte("Date,Amount,Narrative\n" +
		",,\n" +
		"2025-01-15,5000,REAL ROW\n")

	rows, err := ParseStatement(headerPattern(), data)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Contains(t, rows[0].Narrative, "REAL ROW")
}

func TestParseStatementLatin1Encoding(t *testing.T) {
	pattern := headerPattern()
	pattern.Encoding = models.EncodingLatin1

	// "NIÑO" encoded as ISO-8859-1.
	encoded, err := charmap.ISO8859_1.NewEncoder().Bytes([]byte("Date,Amount,Narrative\n2025-01-15,5000,PAGO NIÑO\n"))
	require.NoError(t, err)

	rows, err := ParseStatement(pattern, encoded)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, "PAGO NIÑO", rows[0].Narrative)
}

func TestParseStatementUnsupportedEncoding(t *testing.T) {
	pattern := headerPattern()
	pattern.Encoding = "utf-16"

	_, err := ParseStatement(pattern, []byte("Date,Amount,Narrative\n"))
	assert.Error(t, err)
}

func TestParseStatementEmptyFile(t *testing.T) {
	rows, err := ParseStatement(headerPattern(), nil)
	require.NoError(t, err)
	assert.Empty(t, rows)
}

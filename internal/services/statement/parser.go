package statement

import (
	"encoding/csv"
	"fmt"
	"io"
	"regexp"
	"strconv"
	"strings"
	"time"

	"school-fees-backend/internal/models"

	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
	"golang.org/x/text/encoding/charmap"
)

// ParsedRow is one statement row mapped through a pattern. A row whose date
// or amount failed to parse carries Err with the raw text preserved; rows are
// independent, so one bad row never aborts the batch.
type ParsedRow struct {
	Line            int
	Date            time.Time
	Amount          decimal.Decimal
	Narrative       string
	BankReference   string
	TransactionType string
	BankAccount     string
	Raw             string
	Err             error
}

// Strips currency symbols and thousands separators before the decimal parse.
var amountCleanRe = regexp.MustCompile(`[^\d.\-]`)

func decodeStatement(data []byte, encoding string) (string, error) {
	var cm *charmap.Charmap
	switch encoding {
	case models.EncodingUTF8, "":
		return string(data), nil
	case models.EncodingLatin1, models.EncodingISO88591:
		cm = charmap.ISO8859_1
	case models.EncodingCP1252:
		cm = charmap.Windows1252
	default:
		return "", errors.Errorf("unsupported encoding %q", encoding)
	}
	decoded, err := cm.NewDecoder().Bytes(data)
	if err != nil {
		return "", errors.Wrapf(err, "decode %s", encoding)
	}
	return string(decoded), nil
}

func delimiterRune(delimiter string) rune {
	switch delimiter {
	case models.DelimiterSemicolon:
		return ';'
	case models.DelimiterTab:
		return '\t'
	default:
		return ','
	}
}

// columnValue resolves a column spec against a record: a numeric spec is a
// positional index, anything else is matched case-insensitively against the
// header row.
func columnValue(record, header []string, spec string) string {
	if spec == "" {
		return ""
	}
	if idx, err := strconv.Atoi(spec); err == nil {
		if idx >= 0 && idx < len(record) {
			return strings.TrimSpace(record[idx])
		}
		return ""
	}
	for i, name := range header {
		if strings.EqualFold(strings.TrimSpace(name), spec) && i < len(record) {
			return strings.TrimSpace(record[i])
		}
	}
	return ""
}

// ParseStatement decodes and splits an uploaded statement per the pattern and
// maps every row. Blank rows and rows with fewer than two fields are skipped
// outright, matching what banks pad their exports with.
func ParseStatement(pattern *models.BankStatementPattern, data []byte) ([]ParsedRow, error) {
	text, err := decodeStatement(data, pattern.Encoding)
	if err != nil {
		return nil, err
	}

	reader := csv.NewReader(strings.NewReader(text))
	reader.Comma = delimiterRune(pattern.Delimiter)
	reader.FieldsPerRecord = -1
	reader.LazyQuotes = true
	reader.TrimLeadingSpace = true

	var header []string
	line := 0
	if pattern.HasHeader {
		h, err := reader.Read()
		if err == io.EOF {
			return nil, nil
		}
		if err != nil {
			return nil, errors.Wrap(err, "read header")
		}
		header = h
		line = 1
	}

	var rows []ParsedRow
	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		line++
		if err != nil {
			rows = append(rows, ParsedRow{Line: line, Err: errors.Wrap(err, "read row")})
			continue
		}
		if len(record) < 2 || strings.Join(record, "") == "" {
			continue
		}

		row := ParsedRow{
			Line: line,
			Raw:  strings.Join(record, string(delimiterRune(pattern.Delimiter))),
		}
		row.Narrative = columnValue(record, header, pattern.ReferenceColumn)
		row.BankReference = columnValue(record, header, pattern.TransactionReferenceColumn)

		dateStr := columnValue(record, header, pattern.DateColumn)
		date, err := time.Parse(pattern.DateFormat, dateStr)
		if err != nil {
			row.Err = fmt.Errorf("parse date %q: %w", dateStr, err)
			rows = append(rows, row)
			continue
		}
		row.Date = date

		amountStr := columnValue(record, header, pattern.AmountColumn)
		amount, err := decimal.NewFromString(amountCleanRe.ReplaceAllString(amountStr, ""))
		if err != nil {
			row.Err = fmt.Errorf("parse amount %q: %w", amountStr, err)
			rows = append(rows, row)
			continue
		}
		row.Amount = amount
		row.TransactionType = models.TransactionTypeCredit
		if amount.IsNegative() {
			row.TransactionType = models.TransactionTypeDebit
		}

		rows = append(rows, row)
	}
	return rows, nil
}

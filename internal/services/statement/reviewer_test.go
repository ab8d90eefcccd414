package statement

import (
	"testing"
	"time"

	"school-fees-backend/internal/models"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func (e *testEnv) seedUnmatched(t *testing.T, amount int64) *models.UnmatchedTransaction {
	t.Helper()
	mpesaRef := "TK18K8USG7"
	txn := &models.UnmatchedTransaction{
		SchoolID:           1,
		TransactionDate:    time.Now(),
		Amount:             decimal.NewFromInt(amount),
		ReferenceNumber:    "MPS 254721266013 TK18K8USG7 064010#00001 SAMUEL KAGIRI",
		MpesaReference:     &mpesaRef,
		ExtractedStudentID: "00001",
		TransactionType:    models.TransactionTypeCredit,
		Status:             models.UnmatchedStatusUnmatched,
	}
	require.NoError(t, e.db.Create(txn).Error)
	return txn
}

func TestMatchToExistingPayment(t *testing.T) {
	env := newTestEnv(t)
	student := env.seedStudent(t, "00001")
	fee := env.seedFee(t, student.ID, 5000, time.Now())
	txn := env.seedUnmatched(t, 5000)

	payment, err := env.ledger.RecordDirectPayment(1, student.ID, fee.ID, decimal.NewFromInt(5000), models.PaymentMethodCash, "RCPT-1", "bursar")
	require.NoError(t, err)

	resolved, err := env.reviewer.Match(1, txn.ID, MatchRequest{PaymentID: payment.ID, ReviewedBy: "bursar"})
	require.NoError(t, err)

	assert.Equal(t, models.UnmatchedStatusMatched, resolved.Status)
	require.NotNil(t, resolved.MatchedPaymentID)
	assert.Equal(t, payment.ID, *resolved.MatchedPaymentID)
	require.NotNil(t, resolved.MatchedStudentID)
	assert.Equal(t, student.ID, *resolved.MatchedStudentID)
	assert.Equal(t, "bursar", resolved.MatchedBy)
	assert.NotNil(t, resolved.MatchedAt)
}

func TestMatchToStudentClearsLargestObligationFirst(t *testing.T) {
	env := newTestEnv(t)
	student := env.seedStudent(t, "00001")
	small := env.seedFee(t, student.ID, 1000, time.Now())
	large := env.seedFee(t, student.ID, 8000, time.Now().AddDate(0, 1, 0))
	txn := env.seedUnmatched(t, 5000)

	resolved, err := env.reviewer.Match(1, txn.ID, MatchRequest{StudentID: "00001", ReviewedBy: "bursar"})
	require.NoError(t, err)
	assert.Equal(t, models.UnmatchedStatusManual, resolved.Status)

	var reloadedLarge, reloadedSmall models.StudentFee
	require.NoError(t, env.db.First(&reloadedLarge, large.ID).Error)
	require.NoError(t, env.db.First(&reloadedSmall, small.ID).Error)
	assert.True(t, reloadedLarge.AmountPaid.Equal(decimal.NewFromInt(5000)))
	assert.True(t, reloadedSmall.AmountPaid.IsZero())

	require.NotNil(t, resolved.MatchedPaymentID)
	var payment models.Payment
	require.NoError(t, env.db.First(&payment, *resolved.MatchedPaymentID).Error)
	assert.Equal(t, "TK18K8USG7", payment.TransactionID)
	assert.Equal(t, models.PaymentStatusCompleted, payment.Status)
}

func TestMatchToStudentSpecificFee(t *testing.T) {
	env := newTestEnv(t)
	student := env.seedStudent(t, "00001")
	env.seedFee(t, student.ID, 8000, time.Now())
	target := env.seedFee(t, student.ID, 1000, time.Now().AddDate(0, 1, 0))
	txn := env.seedUnmatched(t, 600)

	_, err := env.reviewer.Match(1, txn.ID, MatchRequest{StudentID: "00001", StudentFeeID: target.ID, ReviewedBy: "bursar"})
	require.NoError(t, err)

	var reloaded models.StudentFee
	require.NoError(t, env.db.First(&reloaded, target.ID).Error)
	assert.True(t, reloaded.AmountPaid.Equal(decimal.NewFromInt(600)))
}

func TestMatchToStudentFeeOwnershipEnforced(t *testing.T) {
	env := newTestEnv(t)
	env.seedStudent(t, "00001")
	other := env.seedStudent(t, "00002")
	otherFee := env.seedFee(t, other.ID, 1000, time.Now())
	txn := env.seedUnmatched(t, 600)

	_, err := env.reviewer.Match(1, txn.ID, MatchRequest{StudentID: "00001", StudentFeeID: otherFee.ID, ReviewedBy: "bursar"})
	assert.Error(t, err)
}

func TestMatchWithNoOpenFeesCreditsAgainstMostRecent(t *testing.T) {
	env := newTestEnv(t)
	student := env.seedStudent(t, "00001")
	fee := env.seedFee(t, student.ID, 1000, time.Now())
	fee.AmountPaid = decimal.NewFromInt(1000)
	fee.IsPaid = true
	require.NoError(t, env.db.Save(fee).Error)
	txn := env.seedUnmatched(t, 2000)

	resolved, err := env.reviewer.Match(1, txn.ID, MatchRequest{StudentID: "00001", ReviewedBy: "bursar"})
	require.NoError(t, err)
	require.NotNil(t, resolved.MatchedPaymentID)

	var payment models.Payment
	require.NoError(t, env.db.First(&payment, *resolved.MatchedPaymentID).Error)
	assert.Equal(t, fee.ID, payment.StudentFeeID)

	var credit models.Credit
	require.NoError(t, env.db.First(&credit, "student_id = ?", student.ID).Error)
	assert.True(t, credit.Amount.Equal(decimal.NewFromInt(2000)))
}

func TestMatchWithNoFeesAtAllCreditsOnly(t *testing.T) {
	env := newTestEnv(t)
	student := env.seedStudent(t, "00001")
	txn := env.seedUnmatched(t, 2000)

	resolved, err := env.reviewer.Match(1, txn.ID, MatchRequest{StudentID: "00001", ReviewedBy: "bursar"})
	require.NoError(t, err)

	assert.Equal(t, models.UnmatchedStatusManual, resolved.Status)
	assert.Nil(t, resolved.MatchedPaymentID)

	var credit models.Credit
	require.NoError(t, env.db.First(&credit, "student_id = ?", student.ID).Error)
	assert.True(t, credit.Amount.Equal(decimal.NewFromInt(2000)))

	var count int64
	require.NoError(t, env.db.Model(&models.Payment{}).Count(&count).Error)
	assert.Zero(t, count)
}

func TestMatchRequiresTarget(t *testing.T) {
	env := newTestEnv(t)
	txn := env.seedUnmatched(t, 1000)

	_, err := env.reviewer.Match(1, txn.ID, MatchRequest{ReviewedBy: "bursar"})
	assert.Error(t, err)
}

func TestMatchAlreadyResolved(t *testing.T) {
	env := newTestEnv(t)
	env.seedStudent(t, "00001")
	txn := env.seedUnmatched(t, 1000)

	_, err := env.reviewer.Ignore(1, txn.ID, "bursar")
	require.NoError(t, err)

	_, err = env.reviewer.Match(1, txn.ID, MatchRequest{StudentID: "00001"})
	assert.ErrorIs(t, err, ErrAlreadyResolved)

	_, err = env.reviewer.Ignore(1, txn.ID, "bursar")
	assert.ErrorIs(t, err, ErrAlreadyResolved)
}

func TestIgnoreTransaction(t *testing.T) {
	env := newTestEnv(t)
	txn := env.seedUnmatched(t, 1000)

	resolved, err := env.reviewer.Ignore(1, txn.ID, "bursar")
	require.NoError(t, err)
	assert.Equal(t, models.UnmatchedStatusIgnored, resolved.Status)
	assert.Equal(t, "bursar", resolved.MatchedBy)
	assert.NotNil(t, resolved.MatchedAt)
}

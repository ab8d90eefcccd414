package ledger

import (
	"fmt"
	"io"
	"testing"
	"time"

	"school-fees-backend/internal/models"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(
		&models.School{},
		&models.Student{},
		&models.StudentFee{},
		&models.Payment{},
		&models.PaymentAllocation{},
		&models.Receivable{},
		&models.Credit{},
	))
	return db
}

func newTestService(t *testing.T) (*Service, *gorm.DB) {
	t.Helper()
	db := newTestDB(t)
	log := logrus.New()
	log.SetOutput(io.Discard)
	return NewService(db, log), db
}

func seedStudentFee(t *testing.T, db *gorm.DB, charged int64, due time.Time) (*models.Student, *models.StudentFee) {
	t.Helper()
	student := &models.Student{SchoolID: 1, StudentID: "00001", FirstName: "Samuel", IsActive: true}
	require.NoError(t, db.Create(student).Error)
	fee := &models.StudentFee{
		SchoolID:      1,
		StudentID:     student.ID,
		Term:          "T1",
		FeeCategory:   "Tuition",
		AmountCharged: decimal.NewFromInt(charged),
		AmountPaid:    decimal.Zero,
		DueDate:       due,
	}
	require.NoError(t, db.Create(fee).Error)
	return student, fee
}

func TestSyncReceivableMirrorsFee(t *testing.T) {
	svc, db := newTestService(t)
	_, fee := seedStudentFee(t, db, 5000, time.Now().AddDate(0, 0, 7))

	require.NoError(t, svc.SyncReceivable(db, fee))

	var receivable models.Receivable
	require.NoError(t, db.First(&receivable, "student_fee_id = ?", fee.ID).Error)
	assert.True(t, receivable.AmountDue.Equal(decimal.NewFromInt(5000)))
	assert.True(t, receivable.AmountPaid.IsZero())
	assert.False(t, receivable.IsCleared)
	assert.Nil(t, receivable.ClearedAt)
}

func TestSyncReceivableClearedAtStampedOnce(t *testing.T) {
	svc, db := newTestService(t)
	_, fee := seedStudentFee(t, db, 5000, time.Now())

	fee.AmountPaid = decimal.NewFromInt(5000)
	fee.IsPaid = true
	require.NoError(t, svc.SyncReceivable(db, fee))

	var receivable models.Receivable
	require.NoError(t, db.First(&receivable, "student_fee_id = ?", fee.ID).Error)
	require.NotNil(t, receivable.ClearedAt)
	stamped := *receivable.ClearedAt

	// An adjustment reopening the fee must not erase the original stamp.
	fee.AmountCharged = decimal.NewFromInt(6000)
	fee.IsPaid = false
	require.NoError(t, svc.SyncReceivable(db, fee))

	require.NoError(t, db.First(&receivable, "student_fee_id = ?", fee.ID).Error)
	assert.False(t, receivable.IsCleared)
	require.NotNil(t, receivable.ClearedAt)
	assert.Equal(t, stamped.Unix(), receivable.ClearedAt.Unix())
}

func TestChargeFeeCreatesReceivable(t *testing.T) {
	svc, db := newTestService(t)
	student := &models.Student{SchoolID: 1, StudentID: "00001", FirstName: "Samuel", IsActive: true}
	require.NoError(t, db.Create(student).Error)

	fee := &models.StudentFee{
		SchoolID:      1,
		StudentID:     student.ID,
		Term:          "T1",
		FeeCategory:   "Tuition",
		AmountCharged: decimal.NewFromInt(5000),
		AmountPaid:    decimal.Zero,
		DueDate:       time.Now().AddDate(0, 0, 30),
	}
	require.NoError(t, svc.ChargeFee(fee))
	require.NotZero(t, fee.ID)

	// The fully outstanding fee must be visible as a receivable immediately,
	// before any payment touches it.
	var receivable models.Receivable
	require.NoError(t, db.First(&receivable, "school_id = ? AND student_fee_id = ?", 1, fee.ID).Error)
	assert.Equal(t, student.ID, receivable.StudentID)
	assert.True(t, receivable.AmountDue.Equal(decimal.NewFromInt(5000)))
	assert.True(t, receivable.AmountPaid.IsZero())
	assert.False(t, receivable.IsCleared)
	assert.Nil(t, receivable.ClearedAt)
}

func TestPostPaymentSplitsAcrossFees(t *testing.T) {
	svc, db := newTestService(t)
	student, fee1 := seedStudentFee(t, db, 6000, time.Now())
	fee2 := &models.StudentFee{
		SchoolID:      1,
		StudentID:     student.ID,
		Term:          "T1",
		FeeCategory:   "Transport",
		AmountCharged: decimal.NewFromInt(3000),
		AmountPaid:    decimal.Zero,
		DueDate:       time.Now().AddDate(0, 1, 0),
	}
	require.NoError(t, db.Create(fee2).Error)

	fees := []models.StudentFee{*fee1, *fee2}
	allocations, remainder := Allocate(decimal.NewFromInt(9000), fees)
	require.Len(t, allocations, 2)

	payment := &models.Payment{
		SchoolID:      1,
		StudentID:     student.ID,
		Amount:        decimal.NewFromInt(9000),
		PaymentMethod: models.PaymentMethodBankTransfer,
		Status:        models.PaymentStatusCompleted,
		PaymentDate:   time.Now(),
	}
	require.NoError(t, db.Transaction(func(tx *gorm.DB) error {
		return svc.PostPayment(tx, payment, allocations, remainder)
	}))

	assert.Equal(t, fee1.ID, payment.StudentFeeID)

	var allocs []models.PaymentAllocation
	require.NoError(t, db.Where("payment_id = ?", payment.ID).Find(&allocs).Error)
	assert.Len(t, allocs, 2)

	var reloaded models.StudentFee
	require.NoError(t, db.First(&reloaded, fee1.ID).Error)
	assert.True(t, reloaded.IsPaid)

	var receivables []models.Receivable
	require.NoError(t, db.Where("school_id = ?", 1).Find(&receivables).Error)
	assert.Len(t, receivables, 2)
}

func TestPostPaymentOverpaymentBecomesCredit(t *testing.T) {
	svc, db := newTestService(t)
	student, fee := seedStudentFee(t, db, 5000, time.Now())

	allocations, remainder := Allocate(decimal.NewFromInt(7000), []models.StudentFee{*fee})
	require.True(t, remainder.Equal(decimal.NewFromInt(2000)))

	payment := &models.Payment{
		SchoolID:      1,
		StudentID:     student.ID,
		Amount:        decimal.NewFromInt(7000),
		PaymentMethod: models.PaymentMethodBankTransfer,
		Status:        models.PaymentStatusCompleted,
		PaymentDate:   time.Now(),
	}
	require.NoError(t, db.Transaction(func(tx *gorm.DB) error {
		return svc.PostPayment(tx, payment, allocations, remainder)
	}))

	var credit models.Credit
	require.NoError(t, db.First(&credit, "student_id = ?", student.ID).Error)
	assert.True(t, credit.Amount.Equal(decimal.NewFromInt(2000)))
	assert.Equal(t, models.CreditSourceOverpayment, credit.Source)
	require.NotNil(t, credit.PaymentID)
	assert.Equal(t, payment.ID, *credit.PaymentID)
	assert.False(t, credit.IsApplied)
}

func TestCompletePaymentIdempotent(t *testing.T) {
	svc, db := newTestService(t)
	student, fee := seedStudentFee(t, db, 5000, time.Now())

	payment := &models.Payment{
		SchoolID:      1,
		StudentID:     student.ID,
		StudentFeeID:  fee.ID,
		Amount:        decimal.NewFromInt(5000),
		PaymentMethod: models.PaymentMethodMpesa,
		Status:        models.PaymentStatusPending,
		PaymentDate:   time.Now(),
	}
	require.NoError(t, db.Create(payment).Error)

	require.NoError(t, db.Transaction(func(tx *gorm.DB) error {
		return svc.CompletePayment(tx, payment)
	}))
	require.NoError(t, db.Transaction(func(tx *gorm.DB) error {
		return svc.CompletePayment(tx, payment)
	}))

	var reloaded models.StudentFee
	require.NoError(t, db.First(&reloaded, fee.ID).Error)
	assert.True(t, reloaded.AmountPaid.Equal(decimal.NewFromInt(5000)))
	assert.True(t, reloaded.IsPaid)

	var count int64
	require.NoError(t, db.Model(&models.PaymentAllocation{}).Where("payment_id = ?", payment.ID).Count(&count).Error)
	assert.EqualValues(t, 1, count)
}

func TestRecordDirectPayment(t *testing.T) {
	svc, db := newTestService(t)
	student, fee := seedStudentFee(t, db, 5000, time.Now())

	payment, err := svc.RecordDirectPayment(1, student.ID, fee.ID, decimal.NewFromInt(2000), models.PaymentMethodCash, "RCPT-17", "bursar")
	require.NoError(t, err)

	assert.Equal(t, models.PaymentStatusCompleted, payment.Status)

	var reloaded models.StudentFee
	require.NoError(t, db.First(&reloaded, fee.ID).Error)
	assert.True(t, reloaded.AmountPaid.Equal(decimal.NewFromInt(2000)))
	assert.False(t, reloaded.IsPaid)

	var receivable models.Receivable
	require.NoError(t, db.First(&receivable, "student_fee_id = ?", fee.ID).Error)
	assert.True(t, receivable.Balance().Equal(decimal.NewFromInt(3000)))
}

func TestApplyCreditAcrossFees(t *testing.T) {
	svc, db := newTestService(t)
	student, fee1 := seedStudentFee(t, db, 6000, time.Now())
	fee2 := &models.StudentFee{
		SchoolID:      1,
		StudentID:     student.ID,
		Term:          "T1",
		FeeCategory:   "Transport",
		AmountCharged: decimal.NewFromInt(3000),
		AmountPaid:    decimal.Zero,
		DueDate:       time.Now().AddDate(0, 1, 0),
	}
	require.NoError(t, db.Create(fee2).Error)

	credit := &models.Credit{
		SchoolID:  1,
		StudentID: student.ID,
		Amount:    decimal.NewFromInt(10000),
		Source:    models.CreditSourceOverpayment,
	}
	require.NoError(t, db.Create(credit).Error)

	result, err := svc.ApplyCredit(1, credit.ID, nil, "bursar")
	require.NoError(t, err)

	require.Len(t, result.Applied, 2)
	assert.True(t, result.Remainder.Equal(decimal.NewFromInt(1000)))
	assert.NotZero(t, result.NewCreditID)

	var reloaded models.Credit
	require.NoError(t, db.First(&reloaded, credit.ID).Error)
	assert.True(t, reloaded.IsApplied)
	require.NotNil(t, reloaded.AppliedToFeeID)
	assert.Equal(t, fee1.ID, *reloaded.AppliedToFeeID)

	var spawned models.Credit
	require.NoError(t, db.First(&spawned, result.NewCreditID).Error)
	assert.True(t, spawned.Amount.Equal(decimal.NewFromInt(1000)))
	assert.False(t, spawned.IsApplied)

	// A second application of the same credit must be rejected.
	_, err = svc.ApplyCredit(1, credit.ID, nil, "bursar")
	assert.ErrorIs(t, err, ErrCreditAlreadyApplied)
}

func TestApplyCreditNoOpenObligations(t *testing.T) {
	svc, db := newTestService(t)
	student, fee := seedStudentFee(t, db, 5000, time.Now())
	fee.AmountPaid = decimal.NewFromInt(5000)
	fee.IsPaid = true
	require.NoError(t, db.Save(fee).Error)

	credit := &models.Credit{
		SchoolID:  1,
		StudentID: student.ID,
		Amount:    decimal.NewFromInt(1000),
		Source:    models.CreditSourceRefund,
	}
	require.NoError(t, db.Create(credit).Error)

	_, err := svc.ApplyCredit(1, credit.ID, nil, "bursar")
	assert.ErrorIs(t, err, ErrNoOpenObligations)

	var reloaded models.Credit
	require.NoError(t, db.First(&reloaded, credit.ID).Error)
	assert.False(t, reloaded.IsApplied)
}

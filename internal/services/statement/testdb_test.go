package statement

import (
	"fmt"
	"io"
	"testing"
	"time"

	"school-fees-backend/internal/models"
	"school-fees-backend/internal/repository"
	"school-fees-backend/internal/services/ledger"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

type testEnv struct {
	db        *gorm.DB
	students  *repository.StudentRepository
	fees      *repository.StudentFeeRepository
	payments  *repository.PaymentRepository
	unmatched *repository.UnmatchedRepository
	uploads   *repository.UploadRepository
	ledger    *ledger.Service
	processor *Processor
	reviewer  *Reviewer
}

func newTestEnv(t *testing.T) *testEnv {
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
		&models.BankStatementPattern{},
		&models.BankStatementUpload{},
		&models.StatementRowError{},
		&models.UnmatchedTransaction{},
	))

	log := logrus.New()
	log.SetOutput(io.Discard)

	env := &testEnv{
		db:        db,
		students:  repository.NewStudentRepository(db),
		fees:      repository.NewStudentFeeRepository(db),
		payments:  repository.NewPaymentRepository(db),
		unmatched: repository.NewUnmatchedRepository(db),
		uploads:   repository.NewUploadRepository(db),
		ledger:    ledger.NewService(db, log),
	}
	env.processor = NewProcessor(db, env.students, env.fees, env.payments, env.unmatched, env.uploads, env.ledger, log)
	env.reviewer = NewReviewer(db, env.students, env.fees, env.payments, env.unmatched, env.ledger, log)
	return env
}

func (e *testEnv) seedStudent(t *testing.T, admission string) *models.Student {
	t.Helper()
	student := &models.Student{SchoolID: 1, StudentID: admission, FirstName: "Test", IsActive: true}
	require.NoError(t, e.db.Create(student).Error)
	return student
}

func (e *testEnv) seedFee(t *testing.T, studentID uint, charged int64, due time.Time) *models.StudentFee {
	t.Helper()
	fee := &models.StudentFee{
		SchoolID:      1,
		StudentID:     studentID,
		Term:          "T1",
		FeeCategory:   "Tuition",
		AmountCharged: decimal.NewFromInt(charged),
		AmountPaid:    decimal.Zero,
		DueDate:       due,
	}
	require.NoError(t, e.db.Create(fee).Error)
	return fee
}

func (e *testEnv) seedUpload(t *testing.T) *models.BankStatementUpload {
	t.Helper()
	upload := &models.BankStatementUpload{
		SchoolID:   1,
		FileName:   "statement.csv",
		UploadedBy: "bursar",
		UploadedAt: time.Now(),
		Status:     models.UploadStatusPending,
	}
	require.NoError(t, e.db.Create(upload).Error)
	return upload
}

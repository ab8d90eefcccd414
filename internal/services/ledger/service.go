package ledger

import (
	"fmt"
	"time"

	"school-fees-backend/internal/models"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

var (
	ErrCreditAlreadyApplied = errors.New("credit has already been applied")
	ErrNoOpenObligations    = errors.New("student has no open fee obligations")
)

// Service keeps Receivable, PaymentAllocation and Credit records consistent
// with Payment and StudentFee state. All mutating methods run inside the
// caller's transaction; a failure aborts the whole save so no partial ledger
// state persists.
type Service struct {
	db  *gorm.DB
	log *logrus.Logger
}

func NewService(db *gorm.DB, log *logrus.Logger) *Service {
	return &Service{db: db, log: log}
}

func (s *Service) DB() *gorm.DB {
	return s.db
}

// SyncReceivable creates or updates the receivable mirroring a fee. ClearedAt
// is stamped the first time the fee clears and never reset afterwards.
func (s *Service) SyncReceivable(tx *gorm.DB, fee *models.StudentFee) error {
	var receivable models.Receivable
	err := tx.First(&receivable, "school_id = ? AND student_fee_id = ?", fee.SchoolID, fee.ID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		receivable = models.Receivable{
			SchoolID:     fee.SchoolID,
			StudentID:    fee.StudentID,
			StudentFeeID: fee.ID,
			AmountDue:    fee.AmountCharged,
			AmountPaid:   fee.AmountPaid,
			DueDate:      fee.DueDate,
			IsCleared:    fee.IsPaid,
		}
		if fee.IsPaid {
			now := time.Now()
			receivable.ClearedAt = &now
		}
		return errors.Wrap(tx.Create(&receivable).Error, "create receivable")
	}
	if err != nil {
		return errors.Wrap(err, "load receivable")
	}

	receivable.AmountDue = fee.AmountCharged
	receivable.AmountPaid = fee.AmountPaid
	receivable.DueDate = fee.DueDate
	receivable.IsCleared = fee.IsPaid
	if fee.IsPaid && receivable.ClearedAt == nil {
		now := time.Now()
		receivable.ClearedAt = &now
	}
	return errors.Wrap(tx.Save(&receivable).Error, "update receivable")
}

// PostPayment writes a completed payment together with its planned
// allocations: each allocated fee's amount_paid grows, allocation rows are
// created (skipping ones that already exist), receivables are resynced, and
// any overpayment remainder becomes a credit traceable to the payment.
func (s *Service) PostPayment(tx *gorm.DB, payment *models.Payment, allocations []FeeAllocation, overpayment decimal.Decimal) error {
	if payment.PaymentID == uuid.Nil {
		payment.PaymentID = uuid.New()
	}
	if len(allocations) > 0 {
		// The payment record carries a single primary fee; allocations carry
		// the full split.
		payment.StudentFeeID = allocations[0].Fee.ID
	}
	if err := tx.Create(payment).Error; err != nil {
		return errors.Wrap(err, "create payment")
	}

	for _, a := range allocations {
		fee := a.Fee
		fee.AmountPaid = fee.AmountPaid.Add(a.Amount)
		if fee.AmountPaid.GreaterThanOrEqual(fee.AmountCharged) {
			fee.IsPaid = true
		}
		if err := tx.Save(fee).Error; err != nil {
			return errors.Wrap(err, "update student fee")
		}
		if err := s.createAllocation(tx, payment, fee.ID, a.Amount); err != nil {
			return err
		}
		if err := s.SyncReceivable(tx, fee); err != nil {
			return err
		}
	}

	if overpayment.GreaterThanOrEqual(centThreshold) {
		credit := &models.Credit{
			SchoolID:    payment.SchoolID,
			StudentID:   payment.StudentID,
			Amount:      overpayment,
			Source:      models.CreditSourceOverpayment,
			PaymentID:   &payment.ID,
			Description: fmt.Sprintf("Overpayment of %s on payment %s", overpayment.StringFixed(2), payment.PaymentID),
			CreatedBy:   payment.ProcessedBy,
		}
		if err := tx.Create(credit).Error; err != nil {
			return errors.Wrap(err, "create overpayment credit")
		}
		s.log.WithFields(logrus.Fields{
			"school_id":  payment.SchoolID,
			"student_id": payment.StudentID,
			"amount":     overpayment.StringFixed(2),
		}).Info("overpayment credited")
	}
	return nil
}

// CompletePayment transitions a payment to completed. The first transition
// creates a single allocation for the full payment amount against the
// payment's target fee and resyncs the receivable; re-running against an
// already-completed payment is a no-op.
func (s *Service) CompletePayment(tx *gorm.DB, payment *models.Payment) error {
	if payment.Status != models.PaymentStatusCompleted {
		payment.Status = models.PaymentStatusCompleted
		if err := tx.Save(payment).Error; err != nil {
			return errors.Wrap(err, "complete payment")
		}
	}

	var count int64
	err := tx.Model(&models.PaymentAllocation{}).
		Where("school_id = ? AND payment_id = ? AND student_fee_id = ?", payment.SchoolID, payment.ID, payment.StudentFeeID).
		Count(&count).Error
	if err != nil {
		return errors.Wrap(err, "check allocation")
	}
	if count > 0 {
		return nil
	}

	var fee models.StudentFee
	if err := tx.First(&fee, "school_id = ? AND id = ?", payment.SchoolID, payment.StudentFeeID).Error; err != nil {
		return errors.Wrap(err, "load student fee")
	}
	fee.AmountPaid = fee.AmountPaid.Add(payment.Amount)
	if fee.AmountPaid.GreaterThanOrEqual(fee.AmountCharged) {
		fee.IsPaid = true
	}
	if err := tx.Save(&fee).Error; err != nil {
		return errors.Wrap(err, "update student fee")
	}
	if err := s.createAllocation(tx, payment, fee.ID, payment.Amount); err != nil {
		return err
	}
	return s.SyncReceivable(tx, &fee)
}

func (s *Service) createAllocation(tx *gorm.DB, payment *models.Payment, feeID uint, amount decimal.Decimal) error {
	var count int64
	err := tx.Model(&models.PaymentAllocation{}).
		Where("school_id = ? AND payment_id = ? AND student_fee_id = ?", payment.SchoolID, payment.ID, feeID).
		Count(&count).Error
	if err != nil {
		return errors.Wrap(err, "check allocation")
	}
	if count > 0 {
		return nil
	}
	allocation := &models.PaymentAllocation{
		SchoolID:        payment.SchoolID,
		PaymentID:       payment.ID,
		StudentFeeID:    feeID,
		AmountAllocated: amount,
		CreatedBy:       payment.ProcessedBy,
	}
	return errors.Wrap(tx.Create(allocation).Error, "create allocation")
}

// ChargeFee creates a fee obligation together with its receivable mirror, so
// a freshly charged fee shows up in the money-owed view before any payment
// touches it.
func (s *Service) ChargeFee(fee *models.StudentFee) error {
	return s.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(fee).Error; err != nil {
			return errors.Wrap(err, "create student fee")
		}
		return s.SyncReceivable(tx, fee)
	})
}

// RecordDirectPayment posts a cash, cheque or bank payment captured at the
// office against a specific fee: the payment is created completed and the
// single-full-amount allocation rule of CompletePayment applies.
func (s *Service) RecordDirectPayment(schoolID, studentID, feeID uint, amount decimal.Decimal, method, reference, processedBy string) (*models.Payment, error) {
	payment := &models.Payment{
		SchoolID:        schoolID,
		PaymentID:       uuid.New(),
		StudentID:       studentID,
		StudentFeeID:    feeID,
		Amount:          amount,
		PaymentMethod:   method,
		Status:          models.PaymentStatusPending,
		ReferenceNumber: reference,
		PaymentDate:     time.Now(),
		ProcessedBy:     processedBy,
	}
	err := s.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(payment).Error; err != nil {
			return errors.Wrap(err, "create payment")
		}
		return s.CompletePayment(tx, payment)
	})
	if err != nil {
		return nil, err
	}
	return payment, nil
}

type CreditApplication struct {
	FeeID       uint            `json:"fee_id"`
	FeeCategory string          `json:"fee_category"`
	Amount      decimal.Decimal `json:"amount"`
}

type ApplyCreditResult struct {
	Applied     []CreditApplication `json:"applied"`
	Remainder   decimal.Decimal     `json:"remainder"`
	NewCreditID uint                `json:"new_credit_id,omitempty"`
}

// ApplyCredit consumes a credit against the student's open obligations:
// against one named fee, or oldest-first across all of them. Any remainder
// spawns a fresh credit so the original stays immutable once applied.
func (s *Service) ApplyCredit(schoolID, creditID uint, feeID *uint, appliedBy string) (*ApplyCreditResult, error) {
	result := &ApplyCreditResult{}
	err := s.db.Transaction(func(tx *gorm.DB) error {
		var credit models.Credit
		if err := tx.First(&credit, "school_id = ? AND id = ?", schoolID, creditID).Error; err != nil {
			return errors.Wrap(err, "load credit")
		}
		if credit.IsApplied {
			return ErrCreditAlreadyApplied
		}

		var fees []models.StudentFee
		query := tx.
			Where("school_id = ? AND student_id = ?", schoolID, credit.StudentID).
			Where("amount_charged > amount_paid").
			Order("due_date ASC, created_at ASC")
		if feeID != nil {
			query = query.Where("id = ?", *feeID)
		}
		if err := query.Find(&fees).Error; err != nil {
			return errors.Wrap(err, "load open fees")
		}
		if len(fees) == 0 {
			return ErrNoOpenObligations
		}

		allocations, remainder := Allocate(credit.Amount, fees)
		if len(allocations) == 0 {
			return ErrNoOpenObligations
		}

		for _, a := range allocations {
			fee := a.Fee
			fee.AmountPaid = fee.AmountPaid.Add(a.Amount)
			if fee.AmountPaid.GreaterThanOrEqual(fee.AmountCharged) {
				fee.IsPaid = true
			}
			if err := tx.Save(fee).Error; err != nil {
				return errors.Wrap(err, "update student fee")
			}
			if err := s.SyncReceivable(tx, fee); err != nil {
				return err
			}
			result.Applied = append(result.Applied, CreditApplication{
				FeeID:       fee.ID,
				FeeCategory: fee.FeeCategory,
				Amount:      a.Amount,
			})
		}

		now := time.Now()
		credit.IsApplied = true
		credit.AppliedToFeeID = &allocations[0].Fee.ID
		credit.AppliedAt = &now
		if err := tx.Save(&credit).Error; err != nil {
			return errors.Wrap(err, "mark credit applied")
		}

		result.Remainder = remainder
		if remainder.GreaterThanOrEqual(centThreshold) {
			newCredit := &models.Credit{
				SchoolID:    schoolID,
				StudentID:   credit.StudentID,
				Amount:      remainder,
				Source:      credit.Source,
				PaymentID:   credit.PaymentID,
				Description: fmt.Sprintf("Remaining %s from application of credit %d", remainder.StringFixed(2), credit.ID),
				CreatedBy:   appliedBy,
			}
			if err := tx.Create(newCredit).Error; err != nil {
				return errors.Wrap(err, "create remainder credit")
			}
			result.NewCreditID = newCredit.ID
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

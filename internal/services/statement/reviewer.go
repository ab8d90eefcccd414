package statement

import (
	"sort"
	"time"

	"school-fees-backend/internal/models"
	"school-fees-backend/internal/repository"
	"school-fees-backend/internal/services/ledger"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

var ErrAlreadyResolved = errors.New("transaction has already been resolved")

// Reviewer resolves unmatched transactions by hand: attach to an existing
// payment, post a new payment for a chosen student, or ignore outright.
type Reviewer struct {
	db        *gorm.DB
	students  *repository.StudentRepository
	fees      *repository.StudentFeeRepository
	payments  *repository.PaymentRepository
	unmatched *repository.UnmatchedRepository
	ledger    *ledger.Service
	log       *logrus.Logger
}

func NewReviewer(
	db *gorm.DB,
	students *repository.StudentRepository,
	fees *repository.StudentFeeRepository,
	payments *repository.PaymentRepository,
	unmatched *repository.UnmatchedRepository,
	ledgerSvc *ledger.Service,
	log *logrus.Logger,
) *Reviewer {
	return &Reviewer{
		db:        db,
		students:  students,
		fees:      fees,
		payments:  payments,
		unmatched: unmatched,
		ledger:    ledgerSvc,
		log:       log,
	}
}

type MatchRequest struct {
	// PaymentID attaches the transaction to an existing payment.
	PaymentID uint
	// StudentID posts a new payment for this admission number instead.
	StudentID string
	// StudentFeeID optionally targets a specific fee when posting.
	StudentFeeID uint
	Notes        string
	ReviewedBy   string
}

// Match resolves an unmatched transaction. Attaching to an existing payment
// transitions it to matched; posting a new payment for a student transitions
// it to manual.
func (r *Reviewer) Match(schoolID, txnID uint, req MatchRequest) (*models.UnmatchedTransaction, error) {
	txn, err := r.unmatched.GetByID(schoolID, txnID)
	if err != nil {
		return nil, err
	}
	if txn.Status != models.UnmatchedStatusUnmatched {
		return nil, ErrAlreadyResolved
	}

	switch {
	case req.PaymentID != 0:
		payment, err := r.payments.GetByID(schoolID, req.PaymentID)
		if err != nil {
			return nil, errors.Wrap(err, "load payment")
		}
		txn.MatchedPaymentID = &payment.ID
		txn.MatchedStudentID = &payment.StudentID
		txn.Status = models.UnmatchedStatusMatched

	case req.StudentID != "":
		student, err := r.students.FindByStudentID(schoolID, req.StudentID)
		if err != nil {
			return nil, errors.Wrap(err, "load student")
		}
		payment, err := r.postForStudent(txn, student, req)
		if err != nil {
			return nil, err
		}
		txn.MatchedStudentID = &student.ID
		if payment != nil {
			txn.MatchedPaymentID = &payment.ID
		}
		txn.Status = models.UnmatchedStatusManual

	default:
		return nil, errors.New("either payment_id or student_id is required")
	}

	now := time.Now()
	txn.MatchedBy = req.ReviewedBy
	txn.MatchedAt = &now
	if req.Notes != "" {
		txn.Notes = req.Notes
	}
	if err := r.unmatched.Save(txn); err != nil {
		return nil, errors.Wrap(err, "save transaction")
	}
	r.log.WithFields(logrus.Fields{
		"school_id":      schoolID,
		"transaction_id": txnID,
		"status":         txn.Status,
	}).Info("unmatched transaction resolved")
	return txn, nil
}

// postForStudent posts a payment for the transaction amount against the
// student's fees. A specific fee gets the whole allocation attempt; otherwise
// the largest open obligation does. With no open obligations the payment is
// recorded against the most recent fee and the full amount becomes a credit;
// with no fees at all only a credit is written.
func (r *Reviewer) postForStudent(txn *models.UnmatchedTransaction, student *models.Student, req MatchRequest) (*models.Payment, error) {
	paymentRef := truncate(txn.ReferenceNumber, 100)
	mpesaRef := ""
	if txn.MpesaReference != nil {
		mpesaRef = *txn.MpesaReference
		paymentRef = truncate("M-Pesa: "+mpesaRef+" - "+paymentRef, 100)
	}

	var target []models.StudentFee
	if req.StudentFeeID != 0 {
		fee, err := r.fees.GetByID(txn.SchoolID, req.StudentFeeID)
		if err != nil {
			return nil, errors.Wrap(err, "load fee")
		}
		if fee.StudentID != student.ID {
			return nil, errors.New("fee does not belong to student")
		}
		target = []models.StudentFee{*fee}
	} else {
		fees, err := r.fees.OutstandingForStudent(txn.SchoolID, student.ID)
		if err != nil {
			return nil, errors.Wrap(err, "load outstanding fees")
		}
		// Manual resolution clears the largest obligation first, unlike the
		// FIFO order the automatic path uses.
		sort.SliceStable(fees, func(i, j int) bool {
			return fees[i].Outstanding().GreaterThan(fees[j].Outstanding())
		})
		if len(fees) > 0 {
			target = fees[:1]
		}
	}

	allocations, remainder := ledger.Allocate(txn.Amount, target)

	payment := &models.Payment{
		SchoolID:        txn.SchoolID,
		PaymentID:       uuid.New(),
		StudentID:       student.ID,
		Amount:          txn.Amount,
		PaymentMethod:   models.PaymentMethodBankTransfer,
		Status:          models.PaymentStatusCompleted,
		ReferenceNumber: paymentRef,
		TransactionID:   truncate(mpesaRef, 50),
		PaymentDate:     txn.TransactionDate,
		ProcessedBy:     req.ReviewedBy,
		Notes:           "Matched from unmatched transaction: " + truncate(txn.ReferenceNumber, 50),
	}

	if len(allocations) == 0 {
		// No open obligations: record against the newest fee if one exists
		// and credit the full amount.
		recent, err := r.fees.MostRecent(txn.SchoolID, student.ID)
		if errors.Is(err, gorm.ErrRecordNotFound) {
			credit := &models.Credit{
				SchoolID:    txn.SchoolID,
				StudentID:   student.ID,
				Amount:      txn.Amount,
				Source:      models.CreditSourceOverpayment,
				Description: "Matched transaction with no fees on record; full amount credited",
				CreatedBy:   req.ReviewedBy,
			}
			if err := r.db.Create(credit).Error; err != nil {
				return nil, errors.Wrap(err, "create credit")
			}
			return nil, nil
		}
		if err != nil {
			return nil, errors.Wrap(err, "load most recent fee")
		}
		payment.StudentFeeID = recent.ID
		remainder = txn.Amount
	}

	err := r.db.Transaction(func(tx *gorm.DB) error {
		return r.ledger.PostPayment(tx, payment, allocations, remainder)
	})
	if err != nil {
		return nil, err
	}
	return payment, nil
}

// Ignore marks a transaction as deliberately out of scope for matching.
func (r *Reviewer) Ignore(schoolID, txnID uint, reviewedBy string) (*models.UnmatchedTransaction, error) {
	txn, err := r.unmatched.GetByID(schoolID, txnID)
	if err != nil {
		return nil, err
	}
	if txn.Status != models.UnmatchedStatusUnmatched {
		return nil, ErrAlreadyResolved
	}
	now := time.Now()
	txn.Status = models.UnmatchedStatusIgnored
	txn.MatchedBy = reviewedBy
	txn.MatchedAt = &now
	if err := r.unmatched.Save(txn); err != nil {
		return nil, err
	}
	return txn, nil
}

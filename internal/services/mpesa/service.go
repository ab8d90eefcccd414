package mpesa

import (
	"context"
	"encoding/json"
	"time"

	"school-fees-backend/internal/models"
	"school-fees-backend/internal/services/ledger"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

var ErrUnknownCheckout = errors.New("no payment for checkout request")

// Service ties STK-push payments into the ledger: initiation creates a
// pending payment, the gateway callback finalizes it.
type Service struct {
	db     *gorm.DB
	client *Client
	ledger *ledger.Service
	log    *logrus.Logger
}

func NewService(db *gorm.DB, client *Client, ledgerSvc *ledger.Service, log *logrus.Logger) *Service {
	return &Service{db: db, client: client, ledger: ledgerSvc, log: log}
}

// InitiatePayment pushes a payment prompt for a fee and records it pending.
func (s *Service) InitiatePayment(ctx context.Context, student *models.Student, fee *models.StudentFee, phone string, amount decimal.Decimal) (*models.Payment, error) {
	accountRef := s.client.cfg.BusinessShortCode + "#" + student.StudentID
	resp, err := s.client.InitiateSTKPush(ctx, phone, amount, accountRef, "School fees for "+student.StudentID)
	if err != nil {
		return nil, err
	}

	payment := &models.Payment{
		SchoolID:        student.SchoolID,
		PaymentID:       uuid.New(),
		StudentID:       student.ID,
		StudentFeeID:    fee.ID,
		Amount:          amount,
		PaymentMethod:   models.PaymentMethodMpesa,
		Status:          models.PaymentStatusPending,
		ReferenceNumber: accountRef,
		PaymentDate:     time.Now(),
	}
	err = s.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(payment).Error; err != nil {
			return errors.Wrap(err, "create payment")
		}
		record := &models.MpesaPayment{
			SchoolID:          student.SchoolID,
			PaymentID:         payment.ID,
			PhoneNumber:       phone,
			CheckoutRequestID: resp.CheckoutRequestID,
			MerchantRequestID: resp.MerchantRequestID,
		}
		return errors.Wrap(tx.Create(record).Error, "create mpesa record")
	})
	if err != nil {
		return nil, err
	}
	return payment, nil
}

// Callback is the gateway's result payload for an STK-push request. The
// gateway sends ResultCode as a bare number.
type Callback struct {
	ResultCode         json.Number `json:"ResultCode"`
	CheckoutRequestID  string      `json:"CheckoutRequestID"`
	MerchantRequestID  string      `json:"MerchantRequestID"`
	ResultDesc         string      `json:"ResultDesc"`
	MpesaReceiptNumber string      `json:"MpesaReceiptNumber"`
}

// HandleCallback finalizes the payment named by the callback: result code
// zero completes it through the ledger, anything else fails it.
func (s *Service) HandleCallback(cb Callback) error {
	var record models.MpesaPayment
	err := s.db.First(&record, "checkout_request_id = ?", cb.CheckoutRequestID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return ErrUnknownCheckout
	}
	if err != nil {
		return errors.Wrap(err, "load mpesa record")
	}

	return s.db.Transaction(func(tx *gorm.DB) error {
		var payment models.Payment
		if err := tx.First(&payment, "school_id = ? AND id = ?", record.SchoolID, record.PaymentID).Error; err != nil {
			return errors.Wrap(err, "load payment")
		}

		now := time.Now()
		record.ResultCode = cb.ResultCode.String()
		record.ResultDesc = cb.ResultDesc
		record.MpesaReceiptNumber = cb.MpesaReceiptNumber
		record.TransactionDate = &now
		if err := tx.Save(&record).Error; err != nil {
			return errors.Wrap(err, "update mpesa record")
		}

		if cb.ResultCode.String() != "0" {
			payment.Status = models.PaymentStatusFailed
			s.log.WithFields(logrus.Fields{
				"school_id":  payment.SchoolID,
				"payment_id": payment.PaymentID,
				"result":     cb.ResultCode,
			}).Warn("mpesa payment failed")
			return errors.Wrap(tx.Save(&payment).Error, "fail payment")
		}

		payment.TransactionID = cb.MpesaReceiptNumber
		return s.ledger.CompletePayment(tx, &payment)
	})
}

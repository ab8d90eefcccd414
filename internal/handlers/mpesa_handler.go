package handler

import (
	"net/http"

	"school-fees-backend/internal/repository"
	"school-fees-backend/internal/services/mpesa"
	"school-fees-backend/internal/tokens"

	"github.com/gin-gonic/gin"
	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

type MpesaHandler struct {
	students *repository.StudentRepository
	fees     *repository.StudentFeeRepository
	mpesa    *mpesa.Service
	signer   *tokens.Signer
	log      *logrus.Logger
}

func NewMpesaHandler(
	students *repository.StudentRepository,
	fees *repository.StudentFeeRepository,
	mpesaSvc *mpesa.Service,
	signer *tokens.Signer,
	log *logrus.Logger,
) *MpesaHandler {
	return &MpesaHandler{students: students, fees: fees, mpesa: mpesaSvc, signer: signer, log: log}
}

type stkPushPayload struct {
	StudentID    uint   `json:"student_id"`
	StudentFeeID uint   `json:"student_fee_id"`
	PhoneNumber  string `json:"phone_number"`
	Amount       string `json:"amount"`
}

// STKPush prompts the payer's phone for a fee payment and records it pending.
func (h *MpesaHandler) STKPush(c *gin.Context) {
	school, ok := schoolID(c)
	if !ok {
		return
	}

	var payload stkPushPayload
	if err := c.BindJSON(&payload); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid payload"})
		return
	}
	if payload.PhoneNumber == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "phone_number is required"})
		return
	}
	amount, err := decimal.NewFromString(payload.Amount)
	if err != nil || amount.LessThanOrEqual(decimal.Zero) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid amount"})
		return
	}

	student, err := h.students.GetByID(school, payload.StudentID)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": "student not found"})
		return
	}
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	fee, err := h.fees.GetByID(school, payload.StudentFeeID)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": "student fee not found"})
		return
	}
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	if fee.StudentID != student.ID {
		c.JSON(http.StatusBadRequest, gin.H{"error": "fee does not belong to student"})
		return
	}

	payment, err := h.mpesa.InitiatePayment(c.Request.Context(), student, fee, payload.PhoneNumber, amount)
	if err != nil {
		c.JSON(http.StatusBadGateway, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"message": "payment prompt sent",
		"payment": gin.H{
			"id":         payment.ID,
			"token":      signedToken(h.signer, tokens.KindPayment, payment.ID),
			"payment_id": payment.PaymentID,
			"status":     payment.Status,
			"amount":     payment.Amount,
		},
	})
}

// Callback receives the gateway's result for an STK-push request. No tenant
// header here; the checkout request ID identifies the payment.
func (h *MpesaHandler) Callback(c *gin.Context) {
	var cb mpesa.Callback
	if err := c.BindJSON(&cb); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid callback payload"})
		return
	}
	if err := h.mpesa.HandleCallback(cb); err != nil {
		if errors.Is(err, mpesa.ErrUnknownCheckout) {
			c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
			return
		}
		h.log.WithError(err).Error("mpesa callback failed")
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"ResultCode": 0, "ResultDesc": "Accepted"})
}

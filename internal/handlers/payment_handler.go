package handler

import (
	"net/http"

	"school-fees-backend/internal/models"
	"school-fees-backend/internal/repository"
	"school-fees-backend/internal/services/ledger"
	"school-fees-backend/internal/tokens"

	"github.com/gin-gonic/gin"
	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

type PaymentHandler struct {
	payments *repository.PaymentRepository
	fees     *repository.StudentFeeRepository
	ledger   *ledger.Service
	signer   *tokens.Signer
}

func NewPaymentHandler(
	payments *repository.PaymentRepository,
	fees *repository.StudentFeeRepository,
	ledgerSvc *ledger.Service,
	signer *tokens.Signer,
) *PaymentHandler {
	return &PaymentHandler{payments: payments, fees: fees, ledger: ledgerSvc, signer: signer}
}

func (h *PaymentHandler) List(c *gin.Context) {
	school, ok := schoolID(c)
	if !ok {
		return
	}
	payments, err := h.payments.List(school, c.Query("status"), queryLimit(c, 100))
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	items := make([]gin.H, 0, len(payments))
	for i := range payments {
		items = append(items, h.render(&payments[i]))
	}
	c.JSON(http.StatusOK, gin.H{"payments": items})
}

func (h *PaymentHandler) Get(c *gin.Context) {
	school, ok := schoolID(c)
	if !ok {
		return
	}
	payment, ok := h.load(c, school)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, gin.H{"payment": h.render(payment)})
}

// Allocations shows how a payment was split across fees.
func (h *PaymentHandler) Allocations(c *gin.Context) {
	school, ok := schoolID(c)
	if !ok {
		return
	}
	payment, ok := h.load(c, school)
	if !ok {
		return
	}
	allocations, err := h.payments.AllocationsForPayment(school, payment.ID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	items := make([]gin.H, 0, len(allocations))
	for _, a := range allocations {
		items = append(items, gin.H{
			"student_fee_id":   a.StudentFeeID,
			"amount_allocated": a.AmountAllocated,
			"created_by":       a.CreatedBy,
			"created_at":       a.CreatedAt,
		})
	}
	c.JSON(http.StatusOK, gin.H{"payment": h.render(payment), "allocations": items})
}

type directPaymentPayload struct {
	StudentID    uint   `json:"student_id"`
	StudentFeeID uint   `json:"student_fee_id"`
	Amount       string `json:"amount"`
	Method       string `json:"method"`
	Reference    string `json:"reference"`
	ProcessedBy  string `json:"processed_by"`
}

// Record posts a payment captured at the school office: cash, cheque or a
// direct bank deposit against a specific fee.
func (h *PaymentHandler) Record(c *gin.Context) {
	school, ok := schoolID(c)
	if !ok {
		return
	}

	var payload directPaymentPayload
	if err := c.BindJSON(&payload); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid payload"})
		return
	}
	switch payload.Method {
	case models.PaymentMethodCash, models.PaymentMethodCheque, models.PaymentMethodBankTransfer:
	default:
		c.JSON(http.StatusBadRequest, gin.H{"error": "method must be cash, cheque or bank_transfer"})
		return
	}
	amount, err := decimal.NewFromString(payload.Amount)
	if err != nil || amount.LessThanOrEqual(decimal.Zero) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid amount"})
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
	if fee.StudentID != payload.StudentID {
		c.JSON(http.StatusBadRequest, gin.H{"error": "fee does not belong to student"})
		return
	}

	payment, err := h.ledger.RecordDirectPayment(school, payload.StudentID, fee.ID, amount, payload.Method, payload.Reference, payload.ProcessedBy)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusCreated, gin.H{"message": "payment recorded", "payment": h.render(payment)})
}

func (h *PaymentHandler) load(c *gin.Context, school uint) (*models.Payment, bool) {
	id, err := h.signer.ParseOrID(tokens.KindPayment, c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid payment ID"})
		return nil, false
	}
	payment, err := h.payments.GetByID(school, id)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": "payment not found"})
		return nil, false
	}
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return nil, false
	}
	return payment, true
}

func (h *PaymentHandler) render(p *models.Payment) gin.H {
	return gin.H{
		"id":               p.ID,
		"token":            signedToken(h.signer, tokens.KindPayment, p.ID),
		"payment_id":       p.PaymentID,
		"student_id":       p.StudentID,
		"student_fee_id":   p.StudentFeeID,
		"amount":           p.Amount,
		"payment_method":   p.PaymentMethod,
		"status":           p.Status,
		"reference_number": p.ReferenceNumber,
		"transaction_id":   p.TransactionID,
		"payment_date":     p.PaymentDate,
		"processed_by":     p.ProcessedBy,
		"notes":            p.Notes,
		"created_at":       p.CreatedAt,
	}
}

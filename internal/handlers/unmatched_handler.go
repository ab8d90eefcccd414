package handler

import (
	"net/http"
	"strconv"

	"school-fees-backend/internal/models"
	"school-fees-backend/internal/repository"
	"school-fees-backend/internal/services/statement"
	"school-fees-backend/internal/tokens"

	"github.com/gin-gonic/gin"
	"github.com/pkg/errors"
	"gorm.io/gorm"
)

type UnmatchedHandler struct {
	unmatched *repository.UnmatchedRepository
	reviewer  *statement.Reviewer
	signer    *tokens.Signer
}

func NewUnmatchedHandler(unmatched *repository.UnmatchedRepository, reviewer *statement.Reviewer, signer *tokens.Signer) *UnmatchedHandler {
	return &UnmatchedHandler{unmatched: unmatched, reviewer: reviewer, signer: signer}
}

func (h *UnmatchedHandler) List(c *gin.Context) {
	school, ok := schoolID(c)
	if !ok {
		return
	}
	filter := repository.UnmatchedFilter{
		Status:    c.DefaultQuery("status", models.UnmatchedStatusUnmatched),
		StudentID: c.Query("student_id"),
		Limit:     queryLimit(c, 100),
	}
	if raw := c.Query("upload_id"); raw != "" {
		uploadID, err := strconv.ParseUint(raw, 10, 64)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid upload_id"})
			return
		}
		filter.UploadID = uint(uploadID)
	}

	txns, err := h.unmatched.List(school, filter)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	items := make([]gin.H, 0, len(txns))
	for i := range txns {
		items = append(items, h.render(&txns[i]))
	}
	c.JSON(http.StatusOK, gin.H{"transactions": items})
}

func (h *UnmatchedHandler) Get(c *gin.Context) {
	school, ok := schoolID(c)
	if !ok {
		return
	}
	txn, ok := h.load(c, school)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, gin.H{"transaction": h.render(txn)})
}

type matchPayload struct {
	PaymentID    string `json:"payment_id"`
	StudentID    string `json:"student_id"`
	StudentFeeID uint   `json:"student_fee_id"`
	Notes        string `json:"notes"`
	ReviewedBy   string `json:"reviewed_by"`
}

// Match resolves a transaction against an existing payment or a student.
func (h *UnmatchedHandler) Match(c *gin.Context) {
	school, ok := schoolID(c)
	if !ok {
		return
	}
	id, err := h.signer.ParseOrID(tokens.KindUnmatched, c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid transaction ID"})
		return
	}

	var payload matchPayload
	if err := c.BindJSON(&payload); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid payload"})
		return
	}

	req := statement.MatchRequest{
		StudentID:    payload.StudentID,
		StudentFeeID: payload.StudentFeeID,
		Notes:        payload.Notes,
		ReviewedBy:   payload.ReviewedBy,
	}
	if payload.PaymentID != "" {
		paymentID, err := h.signer.ParseOrID(tokens.KindPayment, payload.PaymentID)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid payment_id"})
			return
		}
		req.PaymentID = paymentID
	}

	txn, err := h.reviewer.Match(school, id, req)
	switch {
	case errors.Is(err, gorm.ErrRecordNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "transaction not found"})
		return
	case errors.Is(err, statement.ErrAlreadyResolved):
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
		return
	case err != nil:
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "transaction matched", "transaction": h.render(txn)})
}

func (h *UnmatchedHandler) Ignore(c *gin.Context) {
	school, ok := schoolID(c)
	if !ok {
		return
	}
	id, err := h.signer.ParseOrID(tokens.KindUnmatched, c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid transaction ID"})
		return
	}
	var payload struct {
		ReviewedBy string `json:"reviewed_by"`
	}
	_ = c.BindJSON(&payload)

	txn, err := h.reviewer.Ignore(school, id, payload.ReviewedBy)
	switch {
	case errors.Is(err, gorm.ErrRecordNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "transaction not found"})
		return
	case errors.Is(err, statement.ErrAlreadyResolved):
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
		return
	case err != nil:
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "transaction ignored", "transaction": h.render(txn)})
}

func (h *UnmatchedHandler) Delete(c *gin.Context) {
	school, ok := schoolID(c)
	if !ok {
		return
	}
	id, err := h.signer.ParseOrID(tokens.KindUnmatched, c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid transaction ID"})
		return
	}
	if err := h.unmatched.Delete(school, id); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "transaction deleted"})
}

func (h *UnmatchedHandler) load(c *gin.Context, school uint) (*models.UnmatchedTransaction, bool) {
	id, err := h.signer.ParseOrID(tokens.KindUnmatched, c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid transaction ID"})
		return nil, false
	}
	txn, err := h.unmatched.GetByID(school, id)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": "transaction not found"})
		return nil, false
	}
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return nil, false
	}
	return txn, true
}

func (h *UnmatchedHandler) render(t *models.UnmatchedTransaction) gin.H {
	out := gin.H{
		"id":                   t.ID,
		"token":                signedToken(h.signer, tokens.KindUnmatched, t.ID),
		"upload_id":            t.UploadID,
		"transaction_date":     t.TransactionDate,
		"amount":               t.Amount,
		"reference_number":     t.ReferenceNumber,
		"mobile_number":        t.MobileNumber,
		"extracted_student_id": t.ExtractedStudentID,
		"bank_account":         t.BankAccount,
		"transaction_type":     t.TransactionType,
		"status":               t.Status,
		"extraction_details":   t.ExtractionDetails,
		"notes":                t.Notes,
		"matched_by":           t.MatchedBy,
		"matched_at":           t.MatchedAt,
		"created_at":           t.CreatedAt,
	}
	if t.BankReferenceNumber != nil {
		out["bank_reference_number"] = *t.BankReferenceNumber
	}
	if t.MpesaReference != nil {
		out["mpesa_reference"] = *t.MpesaReference
	}
	if t.MatchedPaymentID != nil {
		out["matched_payment_id"] = *t.MatchedPaymentID
	}
	if t.MatchedStudentID != nil {
		out["matched_student_id"] = *t.MatchedStudentID
	}
	return out
}

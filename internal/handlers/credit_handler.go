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

type CreditHandler struct {
	credits *repository.CreditRepository
	ledger  *ledger.Service
	signer  *tokens.Signer
}

func NewCreditHandler(credits *repository.CreditRepository, ledgerSvc *ledger.Service, signer *tokens.Signer) *CreditHandler {
	return &CreditHandler{credits: credits, ledger: ledgerSvc, signer: signer}
}

func (h *CreditHandler) List(c *gin.Context) {
	school, ok := schoolID(c)
	if !ok {
		return
	}
	credits, err := h.credits.List(school, queryBool(c, "applied"), queryLimit(c, 100))
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	items := make([]gin.H, 0, len(credits))
	for i := range credits {
		items = append(items, h.render(&credits[i]))
	}
	c.JSON(http.StatusOK, gin.H{"credits": items})
}

func (h *CreditHandler) Get(c *gin.Context) {
	school, ok := schoolID(c)
	if !ok {
		return
	}
	id, err := h.signer.ParseOrID(tokens.KindCredit, c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid credit ID"})
		return
	}
	credit, err := h.credits.GetByID(school, id)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": "credit not found"})
		return
	}
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"credit": h.render(credit)})
}

type creditPayload struct {
	StudentID   uint   `json:"student_id"`
	Amount      string `json:"amount"`
	Source      string `json:"source"`
	Description string `json:"description"`
	CreatedBy   string `json:"created_by"`
}

// Create records a manual credit: a refund, an adjustment, or a balance
// carried in from another system.
func (h *CreditHandler) Create(c *gin.Context) {
	school, ok := schoolID(c)
	if !ok {
		return
	}

	var payload creditPayload
	if err := c.BindJSON(&payload); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid payload"})
		return
	}
	if payload.StudentID == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "student_id is required"})
		return
	}
	amount, err := decimal.NewFromString(payload.Amount)
	if err != nil || amount.LessThanOrEqual(decimal.Zero) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid amount"})
		return
	}
	source := payload.Source
	if source == "" {
		source = models.CreditSourceAdjustment
	}

	credit := &models.Credit{
		SchoolID:    school,
		StudentID:   payload.StudentID,
		Amount:      amount,
		Source:      source,
		Description: payload.Description,
		CreatedBy:   payload.CreatedBy,
	}
	if err := h.credits.Create(credit); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusCreated, gin.H{"message": "credit created", "credit": h.render(credit)})
}

type applyCreditPayload struct {
	StudentFeeID *uint  `json:"student_fee_id"`
	AppliedBy    string `json:"applied_by"`
}

// Apply consumes a credit against the student's open fees, or a named fee.
func (h *CreditHandler) Apply(c *gin.Context) {
	school, ok := schoolID(c)
	if !ok {
		return
	}
	id, err := h.signer.ParseOrID(tokens.KindCredit, c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid credit ID"})
		return
	}

	var payload applyCreditPayload
	_ = c.BindJSON(&payload)

	result, err := h.ledger.ApplyCredit(school, id, payload.StudentFeeID, payload.AppliedBy)
	switch {
	case errors.Is(err, gorm.ErrRecordNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "credit not found"})
		return
	case errors.Is(err, ledger.ErrCreditAlreadyApplied):
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
		return
	case errors.Is(err, ledger.ErrNoOpenObligations):
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": err.Error()})
		return
	case err != nil:
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "credit applied", "result": result})
}

// ApplyAll sweeps every unapplied credit for the school, oldest first.
// Credits whose students have no open obligations are left untouched.
func (h *CreditHandler) ApplyAll(c *gin.Context) {
	school, ok := schoolID(c)
	if !ok {
		return
	}
	var payload struct {
		AppliedBy string `json:"applied_by"`
	}
	_ = c.BindJSON(&payload)

	credits, err := h.credits.Unapplied(school)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	applied := 0
	skipped := 0
	for _, credit := range credits {
		_, err := h.ledger.ApplyCredit(school, credit.ID, nil, payload.AppliedBy)
		if errors.Is(err, ledger.ErrNoOpenObligations) {
			skipped++
			continue
		}
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{
				"error":   err.Error(),
				"applied": applied,
				"skipped": skipped,
			})
			return
		}
		applied++
	}
	c.JSON(http.StatusOK, gin.H{
		"message": "credits applied",
		"applied": applied,
		"skipped": skipped,
	})
}

func (h *CreditHandler) render(cr *models.Credit) gin.H {
	out := gin.H{
		"id":          cr.ID,
		"token":       signedToken(h.signer, tokens.KindCredit, cr.ID),
		"student_id":  cr.StudentID,
		"amount":      cr.Amount,
		"source":      cr.Source,
		"description": cr.Description,
		"is_applied":  cr.IsApplied,
		"applied_at":  cr.AppliedAt,
		"created_by":  cr.CreatedBy,
		"created_at":  cr.CreatedAt,
	}
	if cr.PaymentID != nil {
		out["payment_id"] = *cr.PaymentID
	}
	if cr.AppliedToFeeID != nil {
		out["applied_to_fee_id"] = *cr.AppliedToFeeID
	}
	return out
}

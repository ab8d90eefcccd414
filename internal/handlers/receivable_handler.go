package handler

import (
	"net/http"
	"strconv"

	"school-fees-backend/internal/models"
	"school-fees-backend/internal/repository"
	"school-fees-backend/internal/tokens"

	"github.com/gin-gonic/gin"
	"github.com/pkg/errors"
	"gorm.io/gorm"
)

type ReceivableHandler struct {
	receivables *repository.ReceivableRepository
	signer      *tokens.Signer
}

func NewReceivableHandler(receivables *repository.ReceivableRepository, signer *tokens.Signer) *ReceivableHandler {
	return &ReceivableHandler{receivables: receivables, signer: signer}
}

func (h *ReceivableHandler) List(c *gin.Context) {
	school, ok := schoolID(c)
	if !ok {
		return
	}
	filter := repository.ReceivableFilter{
		Cleared: queryBool(c, "cleared"),
		Limit:   queryLimit(c, 100),
	}
	if raw := c.Query("student_id"); raw != "" {
		studentID, err := strconv.ParseUint(raw, 10, 64)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid student_id"})
			return
		}
		filter.StudentID = uint(studentID)
	}

	receivables, err := h.receivables.List(school, filter)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	items := make([]gin.H, 0, len(receivables))
	for i := range receivables {
		items = append(items, h.render(&receivables[i]))
	}
	c.JSON(http.StatusOK, gin.H{"receivables": items})
}

func (h *ReceivableHandler) Get(c *gin.Context) {
	school, ok := schoolID(c)
	if !ok {
		return
	}
	receivable, ok := h.load(c, school)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, gin.H{"receivable": h.render(receivable)})
}

// Allocations lists the payment applications against the receivable's fee.
func (h *ReceivableHandler) Allocations(c *gin.Context) {
	school, ok := schoolID(c)
	if !ok {
		return
	}
	receivable, ok := h.load(c, school)
	if !ok {
		return
	}
	allocations, err := h.receivables.AllocationsForFee(school, receivable.StudentFeeID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	items := make([]gin.H, 0, len(allocations))
	for _, a := range allocations {
		items = append(items, gin.H{
			"payment_id":       a.PaymentID,
			"amount_allocated": a.AmountAllocated,
			"created_by":       a.CreatedBy,
			"created_at":       a.CreatedAt,
		})
	}
	c.JSON(http.StatusOK, gin.H{"receivable": h.render(receivable), "allocations": items})
}

func (h *ReceivableHandler) load(c *gin.Context, school uint) (*models.Receivable, bool) {
	id, err := h.signer.ParseOrID(tokens.KindReceivable, c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid receivable ID"})
		return nil, false
	}
	receivable, err := h.receivables.GetByID(school, id)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": "receivable not found"})
		return nil, false
	}
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return nil, false
	}
	return receivable, true
}

func (h *ReceivableHandler) render(r *models.Receivable) gin.H {
	return gin.H{
		"id":             r.ID,
		"token":          signedToken(h.signer, tokens.KindReceivable, r.ID),
		"student_id":     r.StudentID,
		"student_fee_id": r.StudentFeeID,
		"amount_due":     r.AmountDue,
		"amount_paid":    r.AmountPaid,
		"balance":        r.Balance(),
		"due_date":       r.DueDate,
		"is_cleared":     r.IsCleared,
		"cleared_at":     r.ClearedAt,
		"created_at":     r.CreatedAt,
		"updated_at":     r.UpdatedAt,
	}
}

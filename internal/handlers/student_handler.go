package handler

import (
	"net/http"
	"strconv"
	"time"

	"school-fees-backend/internal/models"
	"school-fees-backend/internal/repository"
	"school-fees-backend/internal/services/ledger"

	"github.com/gin-gonic/gin"
	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

type StudentHandler struct {
	students *repository.StudentRepository
	fees     *repository.StudentFeeRepository
	ledger   *ledger.Service
}

func NewStudentHandler(students *repository.StudentRepository, fees *repository.StudentFeeRepository, ledgerSvc *ledger.Service) *StudentHandler {
	return &StudentHandler{students: students, fees: fees, ledger: ledgerSvc}
}

type studentPayload struct {
	StudentID string `json:"student_id"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	ClassName string `json:"class_name"`
}

func (h *StudentHandler) Create(c *gin.Context) {
	school, ok := schoolID(c)
	if !ok {
		return
	}
	var payload studentPayload
	if err := c.BindJSON(&payload); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid payload"})
		return
	}
	if payload.StudentID == "" || payload.FirstName == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "student_id and first_name are required"})
		return
	}

	student := &models.Student{
		SchoolID:  school,
		StudentID: payload.StudentID,
		FirstName: payload.FirstName,
		LastName:  payload.LastName,
		ClassName: payload.ClassName,
		IsActive:  true,
	}
	if err := h.students.Create(student); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusCreated, gin.H{"message": "student created", "student": student})
}

func (h *StudentHandler) List(c *gin.Context) {
	school, ok := schoolID(c)
	if !ok {
		return
	}
	students, err := h.students.List(school, c.Query("active") == "true", queryLimit(c, 200))
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"students": students})
}

func (h *StudentHandler) Get(c *gin.Context) {
	school, ok := schoolID(c)
	if !ok {
		return
	}
	student, ok := h.load(c, school)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, gin.H{"student": student})
}

// ListFees returns a student's fee register with outstanding balances.
func (h *StudentHandler) ListFees(c *gin.Context) {
	school, ok := schoolID(c)
	if !ok {
		return
	}
	student, ok := h.load(c, school)
	if !ok {
		return
	}
	fees, err := h.fees.ListForStudent(school, student.ID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	items := make([]gin.H, 0, len(fees))
	for i := range fees {
		fee := &fees[i]
		items = append(items, gin.H{
			"id":             fee.ID,
			"term":           fee.Term,
			"fee_category":   fee.FeeCategory,
			"amount_charged": fee.AmountCharged,
			"amount_paid":    fee.AmountPaid,
			"outstanding":    fee.Outstanding(),
			"due_date":       fee.DueDate,
			"is_paid":        fee.IsPaid,
		})
	}
	c.JSON(http.StatusOK, gin.H{"student": student, "fees": items})
}

type feePayload struct {
	Term        string `json:"term"`
	FeeCategory string `json:"fee_category"`
	Amount      string `json:"amount"`
	DueDate     string `json:"due_date"`
}

// ChargeFee creates a new fee obligation for the student.
func (h *StudentHandler) ChargeFee(c *gin.Context) {
	school, ok := schoolID(c)
	if !ok {
		return
	}
	student, ok := h.load(c, school)
	if !ok {
		return
	}

	var payload feePayload
	if err := c.BindJSON(&payload); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid payload"})
		return
	}
	amount, err := decimal.NewFromString(payload.Amount)
	if err != nil || amount.LessThanOrEqual(decimal.Zero) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid amount"})
		return
	}
	dueDate, err := time.Parse("2006-01-02", payload.DueDate)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid due date, expected yyyy-mm-dd"})
		return
	}

	fee := &models.StudentFee{
		SchoolID:      school,
		StudentID:     student.ID,
		Term:          payload.Term,
		FeeCategory:   payload.FeeCategory,
		AmountCharged: amount,
		AmountPaid:    decimal.Zero,
		DueDate:       dueDate,
	}
	if err := h.ledger.ChargeFee(fee); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusCreated, gin.H{"message": "fee charged", "fee": fee})
}

func (h *StudentHandler) load(c *gin.Context, school uint) (*models.Student, bool) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid student ID"})
		return nil, false
	}
	student, err := h.students.GetByID(school, uint(id))
	if errors.Is(err, gorm.ErrRecordNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": "student not found"})
		return nil, false
	}
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return nil, false
	}
	return student, true
}

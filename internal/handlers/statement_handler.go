package handler

import (
	"io"
	"net/http"
	"strconv"
	"time"

	"school-fees-backend/internal/models"
	"school-fees-backend/internal/repository"
	"school-fees-backend/internal/services/statement"
	"school-fees-backend/internal/tokens"

	"github.com/gin-gonic/gin"
	"github.com/pkg/errors"
	"gorm.io/gorm"
)

type StatementHandler struct {
	patterns  *repository.PatternRepository
	uploads   *repository.UploadRepository
	processor *statement.Processor
	signer    *tokens.Signer
}

func NewStatementHandler(
	patterns *repository.PatternRepository,
	uploads *repository.UploadRepository,
	processor *statement.Processor,
	signer *tokens.Signer,
) *StatementHandler {
	return &StatementHandler{patterns: patterns, uploads: uploads, processor: processor, signer: signer}
}

// Upload ingests a bank statement file against a parsing pattern and runs the
// matching pipeline synchronously, returning the final counters.
func (h *StatementHandler) Upload(c *gin.Context) {
	school, ok := schoolID(c)
	if !ok {
		return
	}

	file, header, err := c.Request.FormFile("statement_file")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "statement_file is required"})
		return
	}
	defer file.Close()

	patternValue := c.PostForm("pattern_id")
	if patternValue == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "pattern_id is required"})
		return
	}
	patternID, err := h.signer.ParseOrID(tokens.KindPattern, patternValue)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid pattern_id"})
		return
	}
	pattern, err := h.patterns.GetActive(school, patternID)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": "active pattern not found"})
		return
	}
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	data, err := io.ReadAll(file)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "cannot read statement file"})
		return
	}

	upload := &models.BankStatementUpload{
		SchoolID:   school,
		PatternID:  &pattern.ID,
		FileName:   header.Filename,
		UploadedBy: c.PostForm("uploaded_by"),
		UploadedAt: time.Now(),
		Status:     models.UploadStatusPending,
	}
	if err := h.uploads.Create(upload); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	if err := h.processor.Process(upload, pattern, data); err != nil {
		c.JSON(http.StatusUnprocessableEntity, gin.H{
			"error":  err.Error(),
			"upload": h.render(upload),
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "statement processed", "upload": h.render(upload)})
}

func (h *StatementHandler) ListUploads(c *gin.Context) {
	school, ok := schoolID(c)
	if !ok {
		return
	}
	uploads, err := h.uploads.List(school, queryLimit(c, 50))
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	items := make([]gin.H, 0, len(uploads))
	for i := range uploads {
		items = append(items, h.render(&uploads[i]))
	}
	c.JSON(http.StatusOK, gin.H{"uploads": items})
}

// GetUpload returns one upload with its retained row errors.
func (h *StatementHandler) GetUpload(c *gin.Context) {
	school, ok := schoolID(c)
	if !ok {
		return
	}
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid upload ID"})
		return
	}
	upload, err := h.uploads.GetByID(school, uint(id))
	if errors.Is(err, gorm.ErrRecordNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": "upload not found"})
		return
	}
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	rowErrors, err := h.uploads.RowErrors(school, upload.ID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	errs := make([]gin.H, 0, len(rowErrors))
	for _, re := range rowErrors {
		errs = append(errs, gin.H{
			"line":     re.Line,
			"raw_text": re.RawText,
			"reason":   re.Reason,
		})
	}
	c.JSON(http.StatusOK, gin.H{"upload": h.render(upload), "row_errors": errs})
}

func (h *StatementHandler) render(u *models.BankStatementUpload) gin.H {
	return gin.H{
		"id":                     u.ID,
		"file_name":              u.FileName,
		"uploaded_by":            u.UploadedBy,
		"uploaded_at":            u.UploadedAt,
		"status":                 u.Status,
		"total_transactions":     u.TotalTransactions,
		"matched_payments":       u.MatchedPayments,
		"unmatched_payments":     u.UnmatchedPayments,
		"duplicate_transactions": u.DuplicateTransactions,
		"error_rows":             u.ErrorRows,
		"error_message":          u.ErrorMessage,
		"processed_at":           u.ProcessedAt,
	}
}

package handler

import (
	"net/http"

	"school-fees-backend/internal/models"
	"school-fees-backend/internal/repository"
	"school-fees-backend/internal/tokens"

	"github.com/gin-gonic/gin"
	"github.com/pkg/errors"
	"gorm.io/gorm"
)

type PatternHandler struct {
	patterns *repository.PatternRepository
	signer   *tokens.Signer
}

func NewPatternHandler(patterns *repository.PatternRepository, signer *tokens.Signer) *PatternHandler {
	return &PatternHandler{patterns: patterns, signer: signer}
}

type patternPayload struct {
	BankName    string `json:"bank_name"`
	PatternName string `json:"pattern_name"`

	DateColumn                 string `json:"date_column"`
	AmountColumn               string `json:"amount_column"`
	ReferenceColumn            string `json:"reference_column"`
	TransactionReferenceColumn string `json:"transaction_reference_column"`

	StudentIDPattern string `json:"student_id_pattern"`
	AmountPattern    string `json:"amount_pattern"`
	DateFormat       string `json:"date_format"`

	HasHeader *bool  `json:"has_header"`
	Delimiter string `json:"delimiter"`
	Encoding  string `json:"encoding"`
	IsActive  *bool  `json:"is_active"`
}

func (p *patternPayload) validate() error {
	if p.BankName == "" || p.PatternName == "" {
		return errors.New("bank_name and pattern_name are required")
	}
	if p.DateColumn == "" || p.AmountColumn == "" || p.ReferenceColumn == "" {
		return errors.New("date_column, amount_column and reference_column are required")
	}
	if p.DateFormat == "" {
		return errors.New("date_format is required")
	}
	if p.Delimiter != "" && !models.ValidDelimiter(p.Delimiter) {
		return errors.New("unsupported delimiter")
	}
	if p.Encoding != "" && !models.ValidEncoding(p.Encoding) {
		return errors.New("unsupported encoding")
	}
	return nil
}

func (h *PatternHandler) Create(c *gin.Context) {
	school, ok := schoolID(c)
	if !ok {
		return
	}

	var payload patternPayload
	if err := c.BindJSON(&payload); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid payload"})
		return
	}
	if err := payload.validate(); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	pattern := &models.BankStatementPattern{
		SchoolID:                   school,
		BankName:                   payload.BankName,
		PatternName:                payload.PatternName,
		DateColumn:                 payload.DateColumn,
		AmountColumn:               payload.AmountColumn,
		ReferenceColumn:            payload.ReferenceColumn,
		TransactionReferenceColumn: payload.TransactionReferenceColumn,
		StudentIDPattern:           payload.StudentIDPattern,
		AmountPattern:              payload.AmountPattern,
		DateFormat:                 payload.DateFormat,
		HasHeader:                  true,
		Delimiter:                  payload.Delimiter,
		Encoding:                   payload.Encoding,
		IsActive:                   true,
	}
	if payload.HasHeader != nil {
		pattern.HasHeader = *payload.HasHeader
	}
	if pattern.Delimiter == "" {
		pattern.Delimiter = models.DelimiterComma
	}
	if pattern.Encoding == "" {
		pattern.Encoding = models.EncodingUTF8
	}
	if payload.IsActive != nil {
		pattern.IsActive = *payload.IsActive
	}

	if err := h.patterns.Create(pattern); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusCreated, gin.H{"message": "pattern created", "pattern": h.render(pattern)})
}

func (h *PatternHandler) List(c *gin.Context) {
	school, ok := schoolID(c)
	if !ok {
		return
	}
	activeOnly := c.Query("active") == "true"
	patterns, err := h.patterns.List(school, activeOnly)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	items := make([]gin.H, 0, len(patterns))
	for i := range patterns {
		items = append(items, h.render(&patterns[i]))
	}
	c.JSON(http.StatusOK, gin.H{"patterns": items})
}

func (h *PatternHandler) Get(c *gin.Context) {
	school, ok := schoolID(c)
	if !ok {
		return
	}
	id, err := h.signer.ParseOrID(tokens.KindPattern, c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid pattern ID"})
		return
	}
	pattern, err := h.patterns.GetByID(school, id)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": "pattern not found"})
		return
	}
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"pattern": h.render(pattern)})
}

func (h *PatternHandler) Update(c *gin.Context) {
	school, ok := schoolID(c)
	if !ok {
		return
	}
	id, err := h.signer.ParseOrID(tokens.KindPattern, c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid pattern ID"})
		return
	}
	pattern, err := h.patterns.GetByID(school, id)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": "pattern not found"})
		return
	}
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	var payload patternPayload
	if err := c.BindJSON(&payload); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid payload"})
		return
	}
	if err := payload.validate(); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	pattern.BankName = payload.BankName
	pattern.PatternName = payload.PatternName
	pattern.DateColumn = payload.DateColumn
	pattern.AmountColumn = payload.AmountColumn
	pattern.ReferenceColumn = payload.ReferenceColumn
	pattern.TransactionReferenceColumn = payload.TransactionReferenceColumn
	pattern.StudentIDPattern = payload.StudentIDPattern
	pattern.AmountPattern = payload.AmountPattern
	pattern.DateFormat = payload.DateFormat
	if payload.HasHeader != nil {
		pattern.HasHeader = *payload.HasHeader
	}
	if payload.Delimiter != "" {
		pattern.Delimiter = payload.Delimiter
	}
	if payload.Encoding != "" {
		pattern.Encoding = payload.Encoding
	}
	if payload.IsActive != nil {
		pattern.IsActive = *payload.IsActive
	}

	if err := h.patterns.Save(pattern); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "pattern updated", "pattern": h.render(pattern)})
}

func (h *PatternHandler) Delete(c *gin.Context) {
	school, ok := schoolID(c)
	if !ok {
		return
	}
	id, err := h.signer.ParseOrID(tokens.KindPattern, c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid pattern ID"})
		return
	}
	if err := h.patterns.Delete(school, id); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "pattern deleted"})
}

func (h *PatternHandler) render(p *models.BankStatementPattern) gin.H {
	return gin.H{
		"id":                           p.ID,
		"token":                        signedToken(h.signer, tokens.KindPattern, p.ID),
		"bank_name":                    p.BankName,
		"pattern_name":                 p.PatternName,
		"date_column":                  p.DateColumn,
		"amount_column":                p.AmountColumn,
		"reference_column":             p.ReferenceColumn,
		"transaction_reference_column": p.TransactionReferenceColumn,
		"student_id_pattern":           p.StudentIDPattern,
		"amount_pattern":               p.AmountPattern,
		"date_format":                  p.DateFormat,
		"has_header":                   p.HasHeader,
		"delimiter":                    p.Delimiter,
		"encoding":                     p.Encoding,
		"is_active":                    p.IsActive,
		"created_at":                   p.CreatedAt,
		"updated_at":                   p.UpdatedAt,
	}
}

package repository

import (
	"school-fees-backend/internal/models"

	"gorm.io/gorm"
)

type PatternRepository struct {
	db *gorm.DB
}

func NewPatternRepository(db *gorm.DB) *PatternRepository {
	return &PatternRepository{db: db}
}

func (r *PatternRepository) GetActive(schoolID, id uint) (*models.BankStatementPattern, error) {
	var pattern models.BankStatementPattern
	err := r.db.First(&pattern, "school_id = ? AND id = ? AND is_active = ?", schoolID, id, true).Error
	if err != nil {
		return nil, err
	}
	return &pattern, nil
}

func (r *PatternRepository) GetByID(schoolID, id uint) (*models.BankStatementPattern, error) {
	var pattern models.BankStatementPattern
	err := r.db.First(&pattern, "school_id = ? AND id = ?", schoolID, id).Error
	if err != nil {
		return nil, err
	}
	return &pattern, nil
}

func (r *PatternRepository) List(schoolID uint, activeOnly bool) ([]models.BankStatementPattern, error) {
	var patterns []models.BankStatementPattern
	query := r.db.Where("school_id = ?", schoolID).Order("bank_name ASC, pattern_name ASC")
	if activeOnly {
		query = query.Where("is_active = ?", true)
	}
	err := query.Find(&patterns).Error
	return patterns, err
}

func (r *PatternRepository) Create(pattern *models.BankStatementPattern) error {
	return r.db.Create(pattern).Error
}

func (r *PatternRepository) Save(pattern *models.BankStatementPattern) error {
	return r.db.Save(pattern).Error
}

func (r *PatternRepository) Delete(schoolID, id uint) error {
	return r.db.Delete(&models.BankStatementPattern{}, "school_id = ? AND id = ?", schoolID, id).Error
}

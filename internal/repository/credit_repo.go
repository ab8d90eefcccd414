package repository

import (
	"school-fees-backend/internal/models"

	"gorm.io/gorm"
)

type CreditRepository struct {
	db *gorm.DB
}

func NewCreditRepository(db *gorm.DB) *CreditRepository {
	return &CreditRepository{db: db}
}

func (r *CreditRepository) Create(credit *models.Credit) error {
	return r.db.Create(credit).Error
}

func (r *CreditRepository) GetByID(schoolID, id uint) (*models.Credit, error) {
	var credit models.Credit
	err := r.db.First(&credit, "school_id = ? AND id = ?", schoolID, id).Error
	if err != nil {
		return nil, err
	}
	return &credit, nil
}

func (r *CreditRepository) List(schoolID uint, applied *bool, limit int) ([]models.Credit, error) {
	var credits []models.Credit
	query := r.db.Where("school_id = ?", schoolID).Order("created_at DESC")
	if applied != nil {
		query = query.Where("is_applied = ?", *applied)
	}
	if limit > 0 {
		query = query.Limit(limit)
	}
	err := query.Find(&credits).Error
	return credits, err
}

// Unapplied returns every credit still available for application, oldest
// first, so apply-all consumes them in creation order.
func (r *CreditRepository) Unapplied(schoolID uint) ([]models.Credit, error) {
	var credits []models.Credit
	err := r.db.
		Where("school_id = ? AND is_applied = ?", schoolID, false).
		Order("created_at ASC").
		Find(&credits).Error
	return credits, err
}

package repository

import (
	"school-fees-backend/internal/models"

	"gorm.io/gorm"
)

type ReceivableRepository struct {
	db *gorm.DB
}

func NewReceivableRepository(db *gorm.DB) *ReceivableRepository {
	return &ReceivableRepository{db: db}
}

func (r *ReceivableRepository) GetByID(schoolID, id uint) (*models.Receivable, error) {
	var receivable models.Receivable
	err := r.db.First(&receivable, "school_id = ? AND id = ?", schoolID, id).Error
	if err != nil {
		return nil, err
	}
	return &receivable, nil
}

func (r *ReceivableRepository) GetByFee(schoolID, feeID uint) (*models.Receivable, error) {
	var receivable models.Receivable
	err := r.db.First(&receivable, "school_id = ? AND student_fee_id = ?", schoolID, feeID).Error
	if err != nil {
		return nil, err
	}
	return &receivable, nil
}

type ReceivableFilter struct {
	Cleared   *bool
	StudentID uint
	Limit     int
}

func (r *ReceivableRepository) List(schoolID uint, filter ReceivableFilter) ([]models.Receivable, error) {
	var receivables []models.Receivable
	query := r.db.Where("school_id = ?", schoolID).Order("due_date ASC")
	if filter.Cleared != nil {
		query = query.Where("is_cleared = ?", *filter.Cleared)
	}
	if filter.StudentID != 0 {
		query = query.Where("student_id = ?", filter.StudentID)
	}
	if filter.Limit > 0 {
		query = query.Limit(filter.Limit)
	}
	err := query.Find(&receivables).Error
	return receivables, err
}

// AllocationsForFee lists how payments were applied against the receivable's
// underlying fee.
func (r *ReceivableRepository) AllocationsForFee(schoolID, feeID uint) ([]models.PaymentAllocation, error) {
	var allocations []models.PaymentAllocation
	err := r.db.
		Where("school_id = ? AND student_fee_id = ?", schoolID, feeID).
		Order("created_at ASC").
		Find(&allocations).Error
	return allocations, err
}

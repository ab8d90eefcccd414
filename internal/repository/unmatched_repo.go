package repository

import (
	"school-fees-backend/internal/models"

	"gorm.io/gorm"
)

type UnmatchedRepository struct {
	db *gorm.DB
}

func NewUnmatchedRepository(db *gorm.DB) *UnmatchedRepository {
	return &UnmatchedRepository{db: db}
}

// HasBankReference reports whether the bank's transaction reference was
// already ingested for this school, matched or not.
func (r *UnmatchedRepository) HasBankReference(schoolID uint, ref string) (bool, error) {
	var count int64
	err := r.db.Model(&models.UnmatchedTransaction{}).
		Where("school_id = ? AND bank_reference_number = ?", schoolID, ref).
		Count(&count).Error
	return count > 0, err
}

func (r *UnmatchedRepository) HasMpesaReference(schoolID uint, ref string) (bool, error) {
	var count int64
	err := r.db.Model(&models.UnmatchedTransaction{}).
		Where("school_id = ? AND mpesa_reference = ?", schoolID, ref).
		Count(&count).Error
	return count > 0, err
}

func (r *UnmatchedRepository) GetByID(schoolID, id uint) (*models.UnmatchedTransaction, error) {
	var txn models.UnmatchedTransaction
	err := r.db.First(&txn, "school_id = ? AND id = ?", schoolID, id).Error
	if err != nil {
		return nil, err
	}
	return &txn, nil
}

type UnmatchedFilter struct {
	Status    string
	StudentID string
	UploadID  uint
	Limit     int
}

func (r *UnmatchedRepository) List(schoolID uint, filter UnmatchedFilter) ([]models.UnmatchedTransaction, error) {
	var txns []models.UnmatchedTransaction
	query := r.db.
		Where("school_id = ?", schoolID).
		Order("transaction_date DESC, created_at DESC")
	if filter.Status != "" && filter.Status != "all" {
		query = query.Where("status = ?", filter.Status)
	}
	if filter.StudentID != "" {
		query = query.Where("extracted_student_id = ?", filter.StudentID)
	}
	if filter.UploadID != 0 {
		query = query.Where("upload_id = ?", filter.UploadID)
	}
	if filter.Limit > 0 {
		query = query.Limit(filter.Limit)
	}
	err := query.Find(&txns).Error
	return txns, err
}

func (r *UnmatchedRepository) Create(txn *models.UnmatchedTransaction) error {
	return r.db.Create(txn).Error
}

func (r *UnmatchedRepository) Save(txn *models.UnmatchedTransaction) error {
	return r.db.Save(txn).Error
}

func (r *UnmatchedRepository) Delete(schoolID, id uint) error {
	return r.db.Delete(&models.UnmatchedTransaction{}, "school_id = ? AND id = ?", schoolID, id).Error
}

package repository

import (
	"school-fees-backend/internal/models"

	"gorm.io/gorm"
)

type UploadRepository struct {
	db *gorm.DB
}

func NewUploadRepository(db *gorm.DB) *UploadRepository {
	return &UploadRepository{db: db}
}

func (r *UploadRepository) Create(upload *models.BankStatementUpload) error {
	return r.db.Create(upload).Error
}

func (r *UploadRepository) Save(upload *models.BankStatementUpload) error {
	return r.db.Save(upload).Error
}

func (r *UploadRepository) GetByID(schoolID, id uint) (*models.BankStatementUpload, error) {
	var upload models.BankStatementUpload
	err := r.db.First(&upload, "school_id = ? AND id = ?", schoolID, id).Error
	if err != nil {
		return nil, err
	}
	return &upload, nil
}

func (r *UploadRepository) List(schoolID uint, limit int) ([]models.BankStatementUpload, error) {
	var uploads []models.BankStatementUpload
	err := r.db.
		Where("school_id = ?", schoolID).
		Order("uploaded_at DESC").
		Limit(limit).
		Find(&uploads).Error
	return uploads, err
}

func (r *UploadRepository) RowErrors(schoolID, uploadID uint) ([]models.StatementRowError, error) {
	var rows []models.StatementRowError
	err := r.db.
		Where("school_id = ? AND upload_id = ?", schoolID, uploadID).
		Order("line ASC").
		Find(&rows).Error
	return rows, err
}

package repository

import (
	"school-fees-backend/internal/models"

	"gorm.io/gorm"
)

type StudentFeeRepository struct {
	db *gorm.DB
}

func NewStudentFeeRepository(db *gorm.DB) *StudentFeeRepository {
	return &StudentFeeRepository{db: db}
}

// OutstandingForStudent returns the student's open obligations, oldest due
// date first, the order the allocator consumes them in.
func (r *StudentFeeRepository) OutstandingForStudent(schoolID, studentID uint) ([]models.StudentFee, error) {
	var fees []models.StudentFee
	err := r.db.
		Where("school_id = ? AND student_id = ?", schoolID, studentID).
		Where("amount_charged > amount_paid").
		Order("due_date ASC, created_at ASC").
		Find(&fees).Error
	return fees, err
}

func (r *StudentFeeRepository) GetByID(schoolID, id uint) (*models.StudentFee, error) {
	var fee models.StudentFee
	err := r.db.First(&fee, "school_id = ? AND id = ?", schoolID, id).Error
	if err != nil {
		return nil, err
	}
	return &fee, nil
}

// MostRecent returns the student's newest fee regardless of paid state. Used
// when a payment must be recorded for a student with no open obligations.
func (r *StudentFeeRepository) MostRecent(schoolID, studentID uint) (*models.StudentFee, error) {
	var fee models.StudentFee
	err := r.db.
		Where("school_id = ? AND student_id = ?", schoolID, studentID).
		Order("created_at DESC").
		First(&fee).Error
	if err != nil {
		return nil, err
	}
	return &fee, nil
}

func (r *StudentFeeRepository) Create(fee *models.StudentFee) error {
	return r.db.Create(fee).Error
}

func (r *StudentFeeRepository) ListForStudent(schoolID, studentID uint) ([]models.StudentFee, error) {
	var fees []models.StudentFee
	err := r.db.
		Where("school_id = ? AND student_id = ?", schoolID, studentID).
		Order("due_date ASC").
		Find(&fees).Error
	return fees, err
}

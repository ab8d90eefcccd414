package repository

import (
	"school-fees-backend/internal/models"

	"gorm.io/gorm"
)

type StudentRepository struct {
	db *gorm.DB
}

func NewStudentRepository(db *gorm.DB) *StudentRepository {
	return &StudentRepository{db: db}
}

func (r *StudentRepository) DB() *gorm.DB {
	return r.db
}

// FindByStudentID looks up a student by the school-assigned admission number.
func (r *StudentRepository) FindByStudentID(schoolID uint, studentID string) (*models.Student, error) {
	var student models.Student
	err := r.db.First(&student, "school_id = ? AND student_id = ?", schoolID, studentID).Error
	if err != nil {
		return nil, err
	}
	return &student, nil
}

func (r *StudentRepository) GetByID(schoolID, id uint) (*models.Student, error) {
	var student models.Student
	err := r.db.First(&student, "school_id = ? AND id = ?", schoolID, id).Error
	if err != nil {
		return nil, err
	}
	return &student, nil
}

func (r *StudentRepository) Create(student *models.Student) error {
	return r.db.Create(student).Error
}

func (r *StudentRepository) List(schoolID uint, activeOnly bool, limit int) ([]models.Student, error) {
	var students []models.Student
	query := r.db.Where("school_id = ?", schoolID).Order("student_id ASC").Limit(limit)
	if activeOnly {
		query = query.Where("is_active = ?", true)
	}
	err := query.Find(&students).Error
	return students, err
}

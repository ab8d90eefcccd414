package repository

import (
	"strings"

	"school-fees-backend/internal/models"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type PaymentRepository struct {
	db *gorm.DB
}

func NewPaymentRepository(db *gorm.DB) *PaymentRepository {
	return &PaymentRepository{db: db}
}

func (r *PaymentRepository) DB() *gorm.DB {
	return r.db
}

// HasTransactionID reports whether any payment for the school already carries
// this gateway reference. Part of the duplicate check.
func (r *PaymentRepository) HasTransactionID(schoolID uint, ref string) (bool, error) {
	var count int64
	err := r.db.Model(&models.Payment{}).
		Where("school_id = ? AND transaction_id = ?", schoolID, ref).
		Count(&count).Error
	return count > 0, err
}

// HasReferenceContaining is the backup duplicate check: some banks bury the
// reference inside the stored reference_number rather than transaction_id.
func (r *PaymentRepository) HasReferenceContaining(schoolID uint, ref string) (bool, error) {
	var count int64
	err := r.db.Model(&models.Payment{}).
		Where("school_id = ?", schoolID).
		Where("LOWER(reference_number) LIKE ?", "%"+strings.ToLower(ref)+"%").
		Count(&count).Error
	return count > 0, err
}

func (r *PaymentRepository) GetByPaymentID(schoolID uint, paymentID uuid.UUID) (*models.Payment, error) {
	var payment models.Payment
	err := r.db.First(&payment, "school_id = ? AND payment_id = ?", schoolID, paymentID).Error
	if err != nil {
		return nil, err
	}
	return &payment, nil
}

func (r *PaymentRepository) GetByID(schoolID, id uint) (*models.Payment, error) {
	var payment models.Payment
	err := r.db.First(&payment, "school_id = ? AND id = ?", schoolID, id).Error
	if err != nil {
		return nil, err
	}
	return &payment, nil
}

func (r *PaymentRepository) List(schoolID uint, status string, limit int) ([]models.Payment, error) {
	var payments []models.Payment
	query := r.db.Where("school_id = ?", schoolID).Order("payment_date DESC").Limit(limit)
	if status != "" && status != "all" {
		query = query.Where("status = ?", status)
	}
	err := query.Find(&payments).Error
	return payments, err
}

// CompletedForStudent lists a student's completed payments, newest first.
// Feeds the manual-review screen's candidate list.
func (r *PaymentRepository) CompletedForStudent(schoolID, studentID uint, limit int) ([]models.Payment, error) {
	var payments []models.Payment
	err := r.db.
		Where("school_id = ? AND student_id = ? AND status = ?", schoolID, studentID, models.PaymentStatusCompleted).
		Order("payment_date DESC").
		Limit(limit).
		Find(&payments).Error
	return payments, err
}

func (r *PaymentRepository) AllocationsForPayment(schoolID, paymentID uint) ([]models.PaymentAllocation, error) {
	var allocations []models.PaymentAllocation
	err := r.db.
		Where("school_id = ? AND payment_id = ?", schoolID, paymentID).
		Order("created_at ASC").
		Find(&allocations).Error
	return allocations, err
}

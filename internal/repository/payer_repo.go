package repository

import (
	"errors"

	"childcare-reconciliation-backend/internal/models"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type PayerRepository struct {
	db *gorm.DB
}

func NewPayerRepository(db *gorm.DB) *PayerRepository {
	return &PayerRepository{db: db}
}

func (r *PayerRepository) GetByID(id uuid.UUID) (*models.Payer, error) {
	var payer models.Payer
	if err := r.db.First(&payer, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &payer, nil
}

func (r *PayerRepository) FindByStudentNumber(studentNumber string) (*models.Payer, error) {
	var payer models.Payer
	err := r.db.First(&payer, "student_number = ?", studentNumber).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &payer, nil
}

// FindByPaymentReference does a case-insensitive exact lookup over
// active payers only.
func (r *PayerRepository) FindByPaymentReference(reference string) (*models.Payer, error) {
	var payer models.Payer
	err := r.db.
		Where("LOWER(payment_reference) = LOWER(?)", reference).
		Where("active = ?", true).
		First(&payer).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &payer, nil
}

func (r *PayerRepository) ListActive() ([]models.Payer, error) {
	var payers []models.Payer
	err := r.db.Where("active = ?", true).Order("created_at ASC").Find(&payers).Error
	return payers, err
}

// CreateIfNew inserts the payer unless the student number is already
// enrolled. Used by the seed tool; payer management lives elsewhere.
func (r *PayerRepository) CreateIfNew(payer *models.Payer) (bool, error) {
	if payer.ID == uuid.Nil {
		payer.ID = uuid.New()
	}
	result := r.db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "student_number"}},
		DoNothing: true,
	}).Create(payer)
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}

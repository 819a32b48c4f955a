package repository

import (
	"childcare-reconciliation-backend/internal/models"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type StatementRepository struct {
	db *gorm.DB
}

func NewStatementRepository(db *gorm.DB) *StatementRepository {
	return &StatementRepository{db: db}
}

func (r *StatementRepository) Create(s *models.Statement) error {
	if s.ID == uuid.Nil {
		s.ID = uuid.New()
	}
	return r.db.Create(s).Error
}

func (r *StatementRepository) Save(s *models.Statement) error {
	return r.db.Save(s).Error
}

func (r *StatementRepository) GetByID(id uuid.UUID) (*models.Statement, error) {
	var statement models.Statement
	if err := r.db.First(&statement, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &statement, nil
}

func (r *StatementRepository) ListAll() ([]models.Statement, error) {
	var statements []models.Statement
	err := r.db.Order("uploaded_at DESC").Find(&statements).Error
	return statements, err
}

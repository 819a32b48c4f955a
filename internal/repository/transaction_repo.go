package repository

import (
	"childcare-reconciliation-backend/internal/models"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type TransactionRepository struct {
	db *gorm.DB
}

func NewTransactionRepository(db *gorm.DB) *TransactionRepository {
	return &TransactionRepository{db: db}
}

// CreateIfNew inserts the transaction unless a row with the same bank
// reference already exists. Returns false on the conflict no-op.
func (r *TransactionRepository) CreateIfNew(tx *models.Transaction) (bool, error) {
	result := r.db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "bank_reference"}},
		DoNothing: true,
	}).Create(tx)
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}

func (r *TransactionRepository) GetByID(id uuid.UUID) (*models.Transaction, error) {
	var tx models.Transaction
	if err := r.db.First(&tx, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &tx, nil
}

func (r *TransactionRepository) Save(tx *models.Transaction) error {
	return r.db.Save(tx).Error
}

func (r *TransactionRepository) FindUnmatched() ([]models.Transaction, error) {
	var txs []models.Transaction
	err := r.db.
		Where("status = ?", models.TxUnmatched).
		Order("transaction_date ASC").
		Find(&txs).Error
	return txs, err
}

// FindUnmatchedWithReference scopes batch matching to rows that carry a
// non-blank payment reference.
func (r *TransactionRepository) FindUnmatchedWithReference() ([]models.Transaction, error) {
	var txs []models.Transaction
	err := r.db.
		Where("status = ?", models.TxUnmatched).
		Where("payment_reference IS NOT NULL AND payment_reference <> ''").
		Order("transaction_date ASC").
		Find(&txs).Error
	return txs, err
}

func (r *TransactionRepository) CountUnmatched() (int64, error) {
	var count int64
	err := r.db.Model(&models.Transaction{}).
		Where("status = ?", models.TxUnmatched).
		Count(&count).Error
	return count, err
}

package repository

import (
	"errors"
	"time"

	"childcare-reconciliation-backend/internal/models"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type PaymentRepository struct {
	db *gorm.DB
}

func NewPaymentRepository(db *gorm.DB) *PaymentRepository {
	return &PaymentRepository{db: db}
}

// AccumulateForPeriod adds the transaction amount to the period's
// payment row inside one DB transaction, creating the row on first
// sight and recomputing its status. Callers serialize per period.
func (r *PaymentRepository) AccumulateForPeriod(payer *models.Payer, tx *models.Transaction, month, year int, auto bool) (*models.Payment, error) {
	var payment *models.Payment
	err := r.db.Transaction(func(dbtx *gorm.DB) error {
		var existing models.Payment
		err := dbtx.
			Where("payer_id = ? AND period_month = ? AND period_year = ?", payer.ID, month, year).
			First(&existing).Error

		switch {
		case err == nil:
			existing.AmountPaid += tx.Amount
			payment = &existing
		case errors.Is(err, gorm.ErrRecordNotFound):
			payment = &models.Payment{
				ID:             uuid.New(),
				PayerID:        payer.ID,
				PeriodMonth:    month,
				PeriodYear:     year,
				AmountPaid:     tx.Amount,
				ExpectedAmount: payer.MonthlyFee,
				CreatedAt:      time.Now(),
			}
		default:
			return err
		}

		payment.SourceTransactionID = &tx.ID
		payment.MatchedAutomatically = auto
		payment.RecomputeStatus()
		payment.UpdatedAt = time.Now()
		return dbtx.Save(payment).Error
	})
	if err != nil {
		return nil, err
	}
	return payment, nil
}

package models

import (
	"time"

	"github.com/google/uuid"
)

// Payer is the fee-paying account for one enrolled child. This core
// only reads payers; enrollment CRUD lives in the admin service.
type Payer struct {
	ID               uuid.UUID `gorm:"type:uuid;primaryKey"`
	StudentNumber    string    `gorm:"uniqueIndex"`
	FirstName        string
	LastName         string
	PaymentReference string `gorm:"uniqueIndex"`
	MonthlyFee       float64
	Active           bool `gorm:"index"`
	CreatedAt        time.Time
	UpdatedAt        time.Time
}

func (p *Payer) FullName() string {
	return p.FirstName + " " + p.LastName
}

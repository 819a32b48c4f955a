package models

import (
	"time"

	"github.com/google/uuid"
)

const (
	PaymentPending  = "PENDING"
	PaymentPaid     = "PAID"
	PaymentPartial  = "PARTIAL"
	PaymentOverpaid = "OVERPAID"
	PaymentReversed = "REVERSED"
)

// Payment is the ledger record of money attributed to one payer for one
// billing period. At most one row exists per (payer, month, year).
type Payment struct {
	ID                   uuid.UUID `gorm:"type:uuid;primaryKey"`
	PayerID              uuid.UUID `gorm:"index;uniqueIndex:idx_payer_period"`
	PeriodMonth          int       `gorm:"uniqueIndex:idx_payer_period"`
	PeriodYear           int       `gorm:"uniqueIndex:idx_payer_period"`
	AmountPaid           float64
	ExpectedAmount       float64
	Status               string `gorm:"index"`
	SourceTransactionID  *uuid.UUID
	MatchedAutomatically bool
	CreatedAt            time.Time
	UpdatedAt            time.Time
}

// RecomputeStatus derives the payment status from the paid and expected
// amounts. A REVERSED payment stays reversed until an admin reinstates it.
func (p *Payment) RecomputeStatus() {
	if p.Status == PaymentReversed {
		return
	}
	switch {
	case p.AmountPaid >= p.ExpectedAmount:
		p.Status = PaymentPaid
	case p.AmountPaid > 0:
		p.Status = PaymentPartial
	default:
		p.Status = PaymentPending
	}
}

func (p *Payment) Outstanding() float64 {
	out := p.ExpectedAmount - p.AmountPaid
	if out < 0 {
		return 0
	}
	return out
}

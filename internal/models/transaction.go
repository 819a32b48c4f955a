package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

const (
	TxUnmatched        = "UNMATCHED"
	TxMatched          = "MATCHED"
	TxPartiallyMatched = "PARTIALLY_MATCHED"
	TxIgnored          = "IGNORED"
	TxDisputed         = "DISPUTED"
)

const (
	TxTypeCredit = "CREDIT"
	TxTypeDebit  = "DEBIT"
)

type Transaction struct {
	ID               uuid.UUID `gorm:"type:uuid;primaryKey"`
	BankReference    string    `gorm:"uniqueIndex"`
	Amount           float64   `gorm:"index"`
	TransactionDate  time.Time `gorm:"column:transaction_date;index"`
	PaymentReference string    `gorm:"index"`
	Description      string
	SenderName       string
	Status           string `gorm:"index"`
	Type             string
	MatchingNotes    string
	MatchDetails     datatypes.JSON
	ManuallyMatched  bool
	StatementID      *uuid.UUID `gorm:"index"`
	MatchedAt        *time.Time
	RawData          string
	CreatedAt        time.Time
}

func (t *Transaction) IsMatched() bool {
	return t.Status == TxMatched || t.Status == TxPartiallyMatched
}

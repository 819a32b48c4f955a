package models

import (
	"time"

	"github.com/google/uuid"
)

const (
	NotificationPending   = "PENDING"
	NotificationMatched   = "MATCHED"
	NotificationUnmatched = "UNMATCHED"
	NotificationManual    = "MANUAL"
	NotificationFailed    = "FAILED"
	NotificationDuplicate = "DUPLICATE"
)

// Notification is the audit row for every webhook delivery accepted by
// the bank-alert pipeline. DuplicateHash uniqueness is the idempotency
// boundary for the notification path; rows recording a suppressed
// duplicate carry a NULL hash so the canonical row keeps the index slot.
type Notification struct {
	ID               uuid.UUID `gorm:"type:uuid;primaryKey"`
	ReceivedAt       time.Time `gorm:"index"`
	RawPayload       string
	Subject          string
	Sender           string
	Source           string
	DuplicateHash    *string `gorm:"uniqueIndex"`
	MatchStatus      string  `gorm:"index"`
	Processed        bool    `gorm:"index"`
	ProcessedAt      *time.Time
	TransactionID    *uuid.UUID
	MatchedPayerID   *uuid.UUID
	MatchedPaymentID *uuid.UUID
	ErrorMessage     string
	CreatedAt        time.Time
}

func (n *Notification) MarkProcessed() {
	now := time.Now()
	n.Processed = true
	n.ProcessedAt = &now
}

func (n *Notification) MarkMatched(payerID, paymentID uuid.UUID) {
	n.MatchStatus = NotificationMatched
	n.MatchedPayerID = &payerID
	n.MatchedPaymentID = &paymentID
	n.MarkProcessed()
}

func (n *Notification) MarkFailed(msg string) {
	n.MatchStatus = NotificationFailed
	n.ErrorMessage = msg
	n.MarkProcessed()
}

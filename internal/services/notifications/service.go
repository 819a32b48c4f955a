package notifications

import (
	"fmt"
	"strings"
	"time"

	"childcare-reconciliation-backend/internal/models"
	"childcare-reconciliation-backend/internal/services/matching"
	"childcare-reconciliation-backend/internal/workers"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// Payload is the webhook envelope delivered by the alert forwarding
// pipeline (Zapier, Make.com, a mail script).
type Payload struct {
	EmailID string `json:"email_id"`
	Sender  string `json:"sender"`
	Subject string `json:"subject"`
	Body    string `json:"body"`
	APIKey  string `json:"api_key"`
	Source  string `json:"source"`
}

// NotificationStore persists notification audit rows. InsertIfNew is
// the duplicate filter: it must be atomic on the duplicate hash.
type NotificationStore interface {
	InsertIfNew(n *models.Notification) (bool, error)
	Create(n *models.Notification) error
	Save(n *models.Notification) error
	FindFailed() ([]models.Notification, error)
	CountAll() (int64, error)
	CountByStatus(status string) (int64, error)
	CountReceivedSince(since time.Time) (int64, error)
}

// TransactionCreator inserts the ledger transaction derived from a
// notification, keyed on bank reference.
type TransactionCreator interface {
	CreateIfNew(tx *models.Transaction) (bool, error)
}

// Matcher is the slice of the matching engine this service drives.
type Matcher interface {
	Match(tx *models.Transaction) (matching.Result, error)
}

// Stats summarizes the notification pipeline for the admin dashboard.
type Stats struct {
	Total            int64   `json:"total"`
	Matched          int64   `json:"matched"`
	Unmatched        int64   `json:"unmatched"`
	Failed           int64   `json:"failed"`
	Last24hCount     int64   `json:"last_24h_count"`
	MatchRatePercent float64 `json:"match_rate_percent"`
}

// Service turns accepted webhook payloads into ledger entries. Enqueue
// is fire-and-forget: the caller gets acceptance, the outcome lands on
// the Notification row.
type Service struct {
	notifications NotificationStore
	transactions  TransactionCreator
	matcher       Matcher
	pool          *workers.Pool
	log           zerolog.Logger
}

func NewService(
	notifications NotificationStore,
	transactions TransactionCreator,
	matcher Matcher,
	pool *workers.Pool,
	log zerolog.Logger,
) *Service {
	return &Service{
		notifications: notifications,
		transactions:  transactions,
		matcher:       matcher,
		pool:          pool,
		log:           log,
	}
}

// Enqueue hands the payload to the worker pool and returns
// immediately. ErrQueueFull propagates so the webhook sender retries.
func (s *Service) Enqueue(p Payload) error {
	return s.pool.Submit(func() {
		s.Process(p)
	})
}

// Process runs the full notification pipeline for one payload: parse,
// duplicate-check, persist, match. Every outcome is recorded on a
// Notification row; Process itself never fails the delivery.
func (s *Service) Process(p Payload) *models.Notification {
	receivedAt := time.Now()

	parsed := Parse(p.Body, p.Subject)
	if !parsed.Valid {
		n := s.newNotification(p, receivedAt)
		n.MarkFailed(parsed.ErrorMessage)
		if err := s.notifications.Create(n); err != nil {
			s.log.Error().Err(err).Msg("failed to persist invalid notification")
			return nil
		}
		s.log.Warn().Str("error", parsed.ErrorMessage).Msg("notification failed validation")
		return n
	}

	hash := DuplicateHash(parsed.Date, parsed.Amount, parsed.Reference)

	n := s.newNotification(p, receivedAt)
	n.DuplicateHash = &hash
	n.MatchStatus = models.NotificationPending

	inserted, err := s.notifications.InsertIfNew(n)
	if err != nil {
		s.log.Error().Err(err).Msg("failed to insert notification")
		return nil
	}
	if !inserted {
		// At-least-once delivery replayed a payload we already
		// ingested. Record the suppression, mutate nothing else.
		dup := s.newNotification(p, receivedAt)
		dup.MatchStatus = models.NotificationDuplicate
		dup.MarkProcessed()
		if err := s.notifications.Create(dup); err != nil {
			s.log.Error().Err(err).Msg("failed to persist duplicate notification")
		}
		s.log.Info().Str("hash", hash).Msg("duplicate notification suppressed")
		return dup
	}

	tx := &models.Transaction{
		ID:               uuid.New(),
		BankReference:    hash,
		Amount:           parsed.Amount,
		TransactionDate:  parsed.Date,
		PaymentReference: parsed.Reference,
		Description:      parsed.Description,
		SenderName:       parsed.SenderName,
		Status:           models.TxUnmatched,
		Type:             parsed.TransactionType,
		RawData:          p.Body,
		CreatedAt:        time.Now(),
	}
	if _, err := s.transactions.CreateIfNew(tx); err != nil {
		n.MarkFailed(fmt.Sprintf("persist transaction: %v", err))
		s.saveNotification(n)
		return n
	}
	n.TransactionID = &tx.ID

	result, err := s.matcher.Match(tx)
	if err != nil {
		n.MarkFailed(fmt.Sprintf("matching: %v", err))
		s.saveNotification(n)
		return n
	}

	if result.Matched {
		n.MarkMatched(result.Payer.ID, result.Payment.ID)
	} else {
		n.MatchStatus = models.NotificationUnmatched
		n.MarkProcessed()
	}
	s.saveNotification(n)

	s.log.Info().
		Bool("matched", result.Matched).
		Str("reference", parsed.Reference).
		Msg("notification processed")
	return n
}

// RetryFailed replays the raw payload of every FAILED notification
// through the same pipeline.
func (s *Service) RetryFailed() (int, error) {
	failed, err := s.notifications.FindFailed()
	if err != nil {
		return 0, err
	}

	enqueued := 0
	for i := range failed {
		p := Payload{
			EmailID: failed[i].ID.String(),
			Sender:  failed[i].Sender,
			Subject: failed[i].Subject,
			Body:    failed[i].RawPayload,
			Source:  failed[i].Source,
		}
		if err := s.Enqueue(p); err != nil {
			s.log.Warn().Err(err).Str("id", failed[i].ID.String()).Msg("retry enqueue failed")
			continue
		}
		enqueued++
	}
	s.log.Info().Int("enqueued", enqueued).Int("failed_total", len(failed)).Msg("failed notifications requeued")
	return enqueued, nil
}

func (s *Service) Stats() (Stats, error) {
	var stats Stats
	var err error

	if stats.Total, err = s.notifications.CountAll(); err != nil {
		return stats, err
	}
	if stats.Matched, err = s.notifications.CountByStatus(models.NotificationMatched); err != nil {
		return stats, err
	}
	if stats.Unmatched, err = s.notifications.CountByStatus(models.NotificationUnmatched); err != nil {
		return stats, err
	}
	if stats.Failed, err = s.notifications.CountByStatus(models.NotificationFailed); err != nil {
		return stats, err
	}
	if stats.Last24hCount, err = s.notifications.CountReceivedSince(time.Now().Add(-24 * time.Hour)); err != nil {
		return stats, err
	}
	if stats.Total > 0 {
		stats.MatchRatePercent = float64(stats.Matched) * 100 / float64(stats.Total)
	}
	return stats, nil
}

func (s *Service) newNotification(p Payload, receivedAt time.Time) *models.Notification {
	return &models.Notification{
		ID:         uuid.New(),
		ReceivedAt: receivedAt,
		RawPayload: p.Body,
		Subject:    p.Subject,
		Sender:     p.Sender,
		Source:     detectSource(p),
		CreatedAt:  time.Now(),
	}
}

func (s *Service) saveNotification(n *models.Notification) {
	if err := s.notifications.Save(n); err != nil {
		s.log.Error().Err(err).Str("id", n.ID.String()).Msg("failed to save notification")
	}
}

func detectSource(p Payload) string {
	if p.Source != "" {
		return strings.ToUpper(strings.TrimSpace(p.Source))
	}
	id := strings.ToLower(p.EmailID)
	switch {
	case strings.Contains(id, "zapier"):
		return "ZAPIER"
	case strings.Contains(id, "make"), strings.Contains(id, "integromat"):
		return "MAKE_COM"
	case strings.Contains(id, "gmail"), strings.Contains(id, "google"):
		return "GMAIL_SCRIPT"
	default:
		return "EMAIL_FORWARD"
	}
}

package statements

import (
	"fmt"
	"strings"
	"time"

	"childcare-reconciliation-backend/internal/models"
	"childcare-reconciliation-backend/internal/services/matching"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// StatementStore persists statement rows. Satisfied by
// repository.StatementRepository.
type StatementStore interface {
	Create(st *models.Statement) error
	Save(st *models.Statement) error
	GetByID(id uuid.UUID) (*models.Statement, error)
	ListAll() ([]models.Statement, error)
}

// TransactionCreator inserts parsed transactions, keyed on bank
// reference.
type TransactionCreator interface {
	CreateIfNew(tx *models.Transaction) (bool, error)
}

// Matcher is the slice of the matching engine this service drives.
type Matcher interface {
	Match(tx *models.Transaction) (matching.Result, error)
}

// Service owns the statement upload pipeline: parse, persist, batch
// match, derive counts. One upload is processed synchronously within
// its request.
type Service struct {
	parser       *Parser
	statements   StatementStore
	transactions TransactionCreator
	engine       Matcher
	log          zerolog.Logger
}

func NewService(
	parser *Parser,
	statements StatementStore,
	transactions TransactionCreator,
	engine Matcher,
	log zerolog.Logger,
) *Service {
	return &Service{
		parser:       parser,
		statements:   statements,
		transactions: transactions,
		engine:       engine,
		log:          log,
	}
}

// Ingest runs one uploaded file through the pipeline. Per-row failures
// never fail the statement; unreadable input or a bad extension marks
// it FAILED with the error recorded on the row.
func (s *Service) Ingest(data []byte, fileName string) (*models.Statement, error) {
	statement := &models.Statement{
		ID:         uuid.New(),
		FileName:   fileName,
		FileType:   fileTypeFor(fileName),
		Status:     models.StatementPending,
		UploadedAt: time.Now(),
	}
	if err := s.statements.Create(statement); err != nil {
		return nil, fmt.Errorf("create statement: %w", err)
	}

	statement.Status = models.StatementProcessing
	if err := s.statements.Save(statement); err != nil {
		return nil, err
	}

	raws, skipped, err := s.parser.Parse(data, fileName)
	if err != nil {
		statement.MarkFailed(err.Error())
		if saveErr := s.statements.Save(statement); saveErr != nil {
			return nil, saveErr
		}
		s.log.Error().Err(err).Str("file", fileName).Msg("statement processing failed")
		return statement, nil
	}

	total := 0
	matched := 0
	for i := range raws {
		tx := s.buildTransaction(&raws[i], statement.ID)
		inserted, err := s.transactions.CreateIfNew(tx)
		if err != nil {
			s.log.Warn().Err(err).Str("reference", tx.BankReference).Msg("persist transaction failed")
			continue
		}
		if !inserted {
			continue // bank reference already seen, idempotent no-op
		}
		total++

		result, err := s.engine.Match(tx)
		if err != nil {
			s.log.Warn().Err(err).Str("reference", tx.BankReference).Msg("match failed")
			continue
		}
		if result.Matched {
			matched++
		}
	}

	statement.TotalTransactions = total
	statement.MatchedCount = matched
	statement.UnmatchedCount = total - matched
	statement.MarkCompleted()
	if err := s.statements.Save(statement); err != nil {
		return nil, err
	}

	s.log.Info().
		Str("file", fileName).
		Int("total", total).
		Int("matched", matched).
		Int("skipped", skipped).
		Msg("statement processed")
	return statement, nil
}

func (s *Service) List() ([]models.Statement, error) {
	return s.statements.ListAll()
}

func (s *Service) Get(id uuid.UUID) (*models.Statement, error) {
	return s.statements.GetByID(id)
}

func (s *Service) buildTransaction(raw *RawTransaction, statementID uuid.UUID) *models.Transaction {
	return &models.Transaction{
		ID:               uuid.New(),
		BankReference:    newBankReference(raw.Date, raw.Amount),
		Amount:           raw.Amount,
		TransactionDate:  raw.Date,
		PaymentReference: raw.Reference,
		Description:      raw.Description,
		SenderName:       raw.SenderName,
		Status:           models.TxUnmatched,
		Type:             models.TxTypeCredit,
		StatementID:      &statementID,
		RawData:          raw.RawLine,
		CreatedAt:        time.Now(),
	}
}

// newBankReference synthesizes a unique key from date, amount and a
// random salt. Duplicate real-world transactions therefore get distinct
// references; statement-path dedup is the bank reference alone.
func newBankReference(date time.Time, amount float64) string {
	amountDigits := strings.ReplaceAll(fmt.Sprintf("%.2f", amount), ".", "")
	salt := uuid.New().String()[:8]
	return fmt.Sprintf("%s-%s-%s", date.Format("2006-01-02"), amountDigits, salt)
}

func fileTypeFor(fileName string) string {
	lower := strings.ToLower(fileName)
	switch {
	case strings.HasSuffix(lower, ".csv"):
		return models.FileTypeCSV
	case strings.HasSuffix(lower, ".md"):
		return models.FileTypeMarkdown
	case strings.HasSuffix(lower, ".pdf"):
		return models.FileTypePDF
	default:
		return ""
	}
}

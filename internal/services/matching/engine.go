package matching

import (
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"childcare-reconciliation-backend/internal/models"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// TransactionStore is the slice of the ledger store the engine writes
// transaction state through. Satisfied by repository.TransactionRepository.
type TransactionStore interface {
	GetByID(id uuid.UUID) (*models.Transaction, error)
	Save(tx *models.Transaction) error
	FindUnmatched() ([]models.Transaction, error)
	FindUnmatchedWithReference() ([]models.Transaction, error)
	CountUnmatched() (int64, error)
}

// PaymentStore persists billing-period payments. AccumulateForPeriod
// must be atomic per call; the engine serializes calls per period.
type PaymentStore interface {
	AccumulateForPeriod(payer *models.Payer, tx *models.Transaction, month, year int, auto bool) (*models.Payment, error)
}

// PayerStore extends the directory with the by-ID lookup manual
// matching needs.
type PayerStore interface {
	PayerDirectory
	GetByID(id uuid.UUID) (*models.Payer, error)
}

// Engine attributes unmatched transactions to payers and mutates the
// payment ledger.
type Engine struct {
	payers       PayerStore
	transactions TransactionStore
	payments     PaymentStore
	strategies   []Strategy
	log          zerolog.Logger

	periodLocks sync.Map // "payerID-month-year" -> *sync.Mutex
}

// Result reports the outcome of one match attempt. An unmatched
// transaction is an outcome, not an error.
type Result struct {
	Matched  bool
	Payer    *models.Payer
	Strategy string
	Payment  *models.Payment
}

func NewEngine(payers PayerStore, transactions TransactionStore, payments PaymentStore, log zerolog.Logger) *Engine {
	return &Engine{
		payers:       payers,
		transactions: transactions,
		payments:     payments,
		strategies:   DefaultStrategies,
		log:          log,
	}
}

// Match runs the strategy chain over the transaction and, on success,
// records the payment and marks the transaction matched.
func (e *Engine) Match(tx *models.Transaction) (Result, error) {
	in := MatchInput{Reference: tx.PaymentReference, Description: tx.Description}

	for _, strategy := range e.strategies {
		payer, err := strategy.Fn(in, e.payers)
		if err != nil {
			return Result{}, fmt.Errorf("strategy %s: %w", strategy.Name, err)
		}
		if payer == nil {
			continue
		}

		month := int(tx.TransactionDate.Month())
		year := tx.TransactionDate.Year()
		payment, err := e.applyPayment(payer, tx, month, year, true)
		if err != nil {
			return Result{}, err
		}

		notes := fmt.Sprintf("Automatically matched to %s via %s", payer.FullName(), strategy.Name)
		if err := e.finalizeTransaction(tx, payment, notes, strategy.Name, false); err != nil {
			return Result{}, err
		}

		e.log.Info().
			Str("transaction", tx.BankReference).
			Str("payer", payer.StudentNumber).
			Str("strategy", strategy.Name).
			Msg("transaction matched")

		return Result{Matched: true, Payer: payer, Strategy: strategy.Name, Payment: payment}, nil
	}

	return Result{Matched: false}, nil
}

// MatchAll runs the chain over every unmatched transaction carrying a
// payment reference. Re-running it is a no-op for rows already matched
// because the scan is scoped to UNMATCHED.
func (e *Engine) MatchAll() (int, error) {
	unmatched, err := e.transactions.FindUnmatchedWithReference()
	if err != nil {
		return 0, err
	}

	matched := 0
	for i := range unmatched {
		result, err := e.Match(&unmatched[i])
		if err != nil {
			e.log.Warn().Err(err).
				Str("transaction", unmatched[i].BankReference).
				Msg("match attempt failed")
			continue
		}
		if result.Matched {
			matched++
		}
	}

	e.log.Info().Int("matched", matched).Int("scanned", len(unmatched)).Msg("batch matching done")
	return matched, nil
}

// ManuallyMatch bypasses the strategy chain: the admin names the payer
// and billing period and the ledger mutation happens unconditionally.
func (e *Engine) ManuallyMatch(txID, payerID uuid.UUID, month, year int) (*models.Payment, error) {
	tx, err := e.transactions.GetByID(txID)
	if err != nil {
		return nil, fmt.Errorf("transaction lookup: %w", err)
	}
	payer, err := e.payers.GetByID(payerID)
	if err != nil {
		return nil, fmt.Errorf("payer lookup: %w", err)
	}

	payment, err := e.applyPayment(payer, tx, month, year, false)
	if err != nil {
		return nil, err
	}

	notes := fmt.Sprintf("Manually matched to %s", payer.FullName())
	if err := e.finalizeTransaction(tx, payment, notes, "manual", true); err != nil {
		return nil, err
	}
	return payment, nil
}

func (e *Engine) Unmatched() ([]models.Transaction, error) {
	return e.transactions.FindUnmatched()
}

func (e *Engine) UnmatchedCount() (int64, error) {
	return e.transactions.CountUnmatched()
}

// applyPayment serializes payment accumulation per (payer, month, year)
// so two concurrent matches for the same period cannot lose an update.
func (e *Engine) applyPayment(payer *models.Payer, tx *models.Transaction, month, year int, auto bool) (*models.Payment, error) {
	key := fmt.Sprintf("%s-%d-%d", payer.ID, month, year)
	lockVal, _ := e.periodLocks.LoadOrStore(key, &sync.Mutex{})
	lock := lockVal.(*sync.Mutex)
	lock.Lock()
	defer lock.Unlock()

	payment, err := e.payments.AccumulateForPeriod(payer, tx, month, year, auto)
	if err != nil {
		return nil, fmt.Errorf("payment for %d/%d: %w", month, year, err)
	}
	return payment, nil
}

func (e *Engine) finalizeTransaction(tx *models.Transaction, payment *models.Payment, notes, strategy string, manual bool) error {
	now := time.Now()
	tx.Status = models.TxMatched
	if !manual && payment.Status == models.PaymentPartial {
		tx.Status = models.TxPartiallyMatched
	}
	tx.MatchedAt = &now
	tx.MatchingNotes = notes
	tx.ManuallyMatched = manual

	details, _ := json.Marshal(map[string]interface{}{
		"strategy":   strategy,
		"payer_id":   payment.PayerID.String(),
		"payment_id": payment.ID.String(),
		"period":     fmt.Sprintf("%04d-%02d", payment.PeriodYear, payment.PeriodMonth),
		"decision":   tx.Status,
	})
	tx.MatchDetails = details

	return e.transactions.Save(tx)
}

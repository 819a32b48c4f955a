package matching

import (
	"encoding/json"
	"fmt"
	"sync"
	"testing"
	"time"

	"childcare-reconciliation-backend/internal/models"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakePayerStore struct {
	fakeDirectory
	byID map[uuid.UUID]*models.Payer
}

func (f *fakePayerStore) GetByID(id uuid.UUID) (*models.Payer, error) {
	payer, ok := f.byID[id]
	if !ok {
		return nil, fmt.Errorf("payer %s not found", id)
	}
	return payer, nil
}

type fakeTransactionStore struct {
	mu   sync.Mutex
	byID map[uuid.UUID]*models.Transaction
}

func newFakeTransactionStore() *fakeTransactionStore {
	return &fakeTransactionStore{byID: make(map[uuid.UUID]*models.Transaction)}
}

func (f *fakeTransactionStore) add(tx *models.Transaction) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.byID[tx.ID] = tx
}

func (f *fakeTransactionStore) GetByID(id uuid.UUID) (*models.Transaction, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	tx, ok := f.byID[id]
	if !ok {
		return nil, fmt.Errorf("transaction %s not found", id)
	}
	return tx, nil
}

func (f *fakeTransactionStore) Save(tx *models.Transaction) error {
	f.add(tx)
	return nil
}

func (f *fakeTransactionStore) FindUnmatched() ([]models.Transaction, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []models.Transaction
	for _, tx := range f.byID {
		if tx.Status == models.TxUnmatched {
			out = append(out, *tx)
		}
	}
	return out, nil
}

func (f *fakeTransactionStore) FindUnmatchedWithReference() ([]models.Transaction, error) {
	all, _ := f.FindUnmatched()
	var out []models.Transaction
	for _, tx := range all {
		if tx.PaymentReference != "" {
			out = append(out, tx)
		}
	}
	return out, nil
}

func (f *fakeTransactionStore) CountUnmatched() (int64, error) {
	all, _ := f.FindUnmatched()
	return int64(len(all)), nil
}

// fakePaymentStore accumulates with a deliberately non-atomic
// read-modify-write so a missing engine lock shows up as a lost update.
type fakePaymentStore struct {
	mu       sync.Mutex
	byPeriod map[string]*models.Payment
}

func newFakePaymentStore() *fakePaymentStore {
	return &fakePaymentStore{byPeriod: make(map[string]*models.Payment)}
}

func (f *fakePaymentStore) AccumulateForPeriod(payer *models.Payer, tx *models.Transaction, month, year int, auto bool) (*models.Payment, error) {
	key := fmt.Sprintf("%s-%d-%d", payer.ID, month, year)

	f.mu.Lock()
	payment, ok := f.byPeriod[key]
	if !ok {
		payment = &models.Payment{
			ID:             uuid.New(),
			PayerID:        payer.ID,
			PeriodMonth:    month,
			PeriodYear:     year,
			ExpectedAmount: payer.MonthlyFee,
			Status:         models.PaymentPending,
		}
		f.byPeriod[key] = payment
	}
	paid := payment.AmountPaid
	f.mu.Unlock()

	time.Sleep(time.Millisecond)

	f.mu.Lock()
	defer f.mu.Unlock()
	payment.AmountPaid = paid + tx.Amount
	txID := tx.ID
	payment.SourceTransactionID = &txID
	payment.MatchedAutomatically = auto
	payment.RecomputeStatus()
	snapshot := *payment
	return &snapshot, nil
}

func (f *fakePaymentStore) get(payer *models.Payer, month, year int) *models.Payment {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.byPeriod[fmt.Sprintf("%s-%d-%d", payer.ID, month, year)]
}

func newTransaction(amount float64, reference, description string) *models.Transaction {
	return &models.Transaction{
		ID:               uuid.New(),
		BankReference:    uuid.New().String(),
		Amount:           amount,
		TransactionDate:  time.Date(2025, 1, 15, 0, 0, 0, 0, time.UTC),
		PaymentReference: reference,
		Description:      description,
		Status:           models.TxUnmatched,
		Type:             models.TxTypeCredit,
	}
}

func newTestEngine(payers ...*models.Payer) (*Engine, *fakeTransactionStore, *fakePaymentStore) {
	store := &fakePayerStore{
		fakeDirectory: fakeDirectory{
			byStudentNumber: make(map[string]*models.Payer),
			byReference:     make(map[string]*models.Payer),
		},
		byID: make(map[uuid.UUID]*models.Payer),
	}
	for _, p := range payers {
		store.byStudentNumber[p.StudentNumber] = p
		store.byReference[p.PaymentReference] = p
		store.active = append(store.active, *p)
		store.byID[p.ID] = p
	}
	txs := newFakeTransactionStore()
	payments := newFakePaymentStore()
	return NewEngine(store, txs, payments, zerolog.Nop()), txs, payments
}

func TestMatch_ByStudentNumberPaysInFull(t *testing.T) {
	payer := newPayer("STU-2025-001", "Thabo", "Mokoena", 1500)
	engine, _, _ := newTestEngine(payer)

	tx := newTransaction(1500, "STU-2025-001", "EFT STU-2025-001 JANUARY")
	result, err := engine.Match(tx)
	require.NoError(t, err)

	require.True(t, result.Matched)
	assert.Equal(t, "student-number", result.Strategy)
	assert.Equal(t, payer, result.Payer)
	require.NotNil(t, result.Payment)
	assert.Equal(t, 1500.00, result.Payment.AmountPaid)
	assert.Equal(t, models.PaymentPaid, result.Payment.Status)
	assert.Equal(t, 1, result.Payment.PeriodMonth)
	assert.Equal(t, 2025, result.Payment.PeriodYear)

	assert.Equal(t, models.TxMatched, tx.Status)
	assert.NotNil(t, tx.MatchedAt)
	assert.False(t, tx.ManuallyMatched)
	assert.Equal(t, "Automatically matched to Thabo Mokoena via student-number", tx.MatchingNotes)
}

func TestMatch_PartialPaymentMarksPartiallyMatched(t *testing.T) {
	payer := newPayer("STU-2025-001", "Thabo", "Mokoena", 1500)
	engine, _, _ := newTestEngine(payer)

	tx := newTransaction(700, "STU-2025-001", "PARTIAL PAYMENT")
	result, err := engine.Match(tx)
	require.NoError(t, err)

	require.True(t, result.Matched)
	assert.Equal(t, models.PaymentPartial, result.Payment.Status)
	assert.Equal(t, models.TxPartiallyMatched, tx.Status)
}

func TestMatch_TwoPartialsCompleteThePeriod(t *testing.T) {
	payer := newPayer("STU-2025-001", "Thabo", "Mokoena", 1500)
	engine, _, payments := newTestEngine(payer)

	_, err := engine.Match(newTransaction(900, "STU-2025-001", "first half"))
	require.NoError(t, err)
	_, err = engine.Match(newTransaction(600, "STU-2025-001", "second half"))
	require.NoError(t, err)

	payment := payments.get(payer, 1, 2025)
	require.NotNil(t, payment)
	assert.Equal(t, 1500.00, payment.AmountPaid)
	assert.Equal(t, models.PaymentPaid, payment.Status)
}

func TestMatch_StrategyOrderFirstSuccessWins(t *testing.T) {
	byNumber := newPayer("STU-2025-001", "Thabo", "Mokoena", 1500)
	byName := newPayer("STU-2025-002", "Lerato", "Dlamini", 1500)
	engine, _, _ := newTestEngine(byNumber, byName)

	// description names one payer, reference identifies another; the
	// student-number rule runs first and wins
	tx := newTransaction(1500, "STU-2025-001", "EFT LERATO DLAMINI")
	result, err := engine.Match(tx)
	require.NoError(t, err)
	require.True(t, result.Matched)
	assert.Equal(t, "student-number", result.Strategy)
	assert.Equal(t, byNumber.StudentNumber, result.Payer.StudentNumber)
}

func TestMatch_FallsThroughToNameContains(t *testing.T) {
	payer := newPayer("STU-2025-003", "Kelebogile", "Xaba", 1500)
	engine, _, _ := newTestEngine(payer)

	tx := newTransaction(1500, "EFT 88123", "CAPITEC KELEBOGILE XABA")
	result, err := engine.Match(tx)
	require.NoError(t, err)
	require.True(t, result.Matched)
	assert.Equal(t, "name-contains", result.Strategy)
}

func TestMatch_NoStrategyFires(t *testing.T) {
	payer := newPayer("STU-2025-001", "Thabo", "Mokoena", 1500)
	engine, _, _ := newTestEngine(payer)

	tx := newTransaction(1500, "EFT 88123", "UNKNOWN SENDER")
	result, err := engine.Match(tx)
	require.NoError(t, err)
	assert.False(t, result.Matched)
	assert.Equal(t, models.TxUnmatched, tx.Status)
}

func TestMatch_RecordsMatchDetails(t *testing.T) {
	payer := newPayer("STU-2025-001", "Thabo", "Mokoena", 1500)
	engine, _, _ := newTestEngine(payer)

	tx := newTransaction(1500, "STU-2025-001", "EFT")
	result, err := engine.Match(tx)
	require.NoError(t, err)
	require.True(t, result.Matched)

	var details map[string]interface{}
	require.NoError(t, json.Unmarshal(tx.MatchDetails, &details))
	assert.Equal(t, "student-number", details["strategy"])
	assert.Equal(t, payer.ID.String(), details["payer_id"])
	assert.Equal(t, "2025-01", details["period"])
	assert.Equal(t, models.TxMatched, details["decision"])
}

func TestMatchAll_IsIdempotent(t *testing.T) {
	payer := newPayer("STU-2025-001", "Thabo", "Mokoena", 1500)
	engine, txs, payments := newTestEngine(payer)

	txs.add(newTransaction(700, "STU-2025-001", "first"))
	txs.add(newTransaction(800, "STU-2025-001", "second"))
	txs.add(newTransaction(500, "EFT 999", "NOBODY KNOWN"))

	matched, err := engine.MatchAll()
	require.NoError(t, err)
	assert.Equal(t, 2, matched)

	matched, err = engine.MatchAll()
	require.NoError(t, err)
	assert.Equal(t, 0, matched)

	payment := payments.get(payer, 1, 2025)
	require.NotNil(t, payment)
	assert.Equal(t, 1500.00, payment.AmountPaid)
}

func TestMatchAll_SkipsTransactionsWithoutReference(t *testing.T) {
	payer := newPayer("STU-2025-003", "Kelebogile", "Xaba", 1500)
	engine, txs, _ := newTestEngine(payer)

	tx := newTransaction(1500, "", "CAPITEC KELEBOGILE XABA")
	txs.add(tx)

	matched, err := engine.MatchAll()
	require.NoError(t, err)
	assert.Equal(t, 0, matched)

	count, err := engine.UnmatchedCount()
	require.NoError(t, err)
	assert.Equal(t, int64(1), count)
}

func TestManuallyMatch(t *testing.T) {
	payer := newPayer("STU-2025-001", "Thabo", "Mokoena", 1500)
	engine, txs, _ := newTestEngine(payer)

	tx := newTransaction(1500, "EFT 999", "UNRECOGNIZED")
	txs.add(tx)

	payment, err := engine.ManuallyMatch(tx.ID, payer.ID, 2, 2025)
	require.NoError(t, err)
	assert.Equal(t, 2, payment.PeriodMonth)
	assert.Equal(t, 1500.00, payment.AmountPaid)
	assert.Equal(t, models.PaymentPaid, payment.Status)
	assert.False(t, payment.MatchedAutomatically)

	saved, err := txs.GetByID(tx.ID)
	require.NoError(t, err)
	assert.Equal(t, models.TxMatched, saved.Status)
	assert.True(t, saved.ManuallyMatched)
	assert.Equal(t, "Manually matched to Thabo Mokoena", saved.MatchingNotes)
}

func TestManuallyMatch_UnknownTransaction(t *testing.T) {
	payer := newPayer("STU-2025-001", "Thabo", "Mokoena", 1500)
	engine, _, _ := newTestEngine(payer)

	_, err := engine.ManuallyMatch(uuid.New(), payer.ID, 1, 2025)
	assert.Error(t, err)
}

func TestManuallyMatch_UnknownPayer(t *testing.T) {
	engine, txs, _ := newTestEngine()
	tx := newTransaction(100, "", "")
	txs.add(tx)

	_, err := engine.ManuallyMatch(tx.ID, uuid.New(), 1, 2025)
	assert.Error(t, err)
}

func TestMatch_ConcurrentSamePeriodLosesNoUpdate(t *testing.T) {
	payer := newPayer("STU-2025-001", "Thabo", "Mokoena", 1500)
	engine, _, payments := newTestEngine(payer)

	const workers = 10
	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := engine.Match(newTransaction(100, "STU-2025-001", "installment"))
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	payment := payments.get(payer, 1, 2025)
	require.NotNil(t, payment)
	assert.Equal(t, float64(workers*100), payment.AmountPaid)
}

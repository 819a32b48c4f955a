package statements

import (
	"testing"

	"childcare-reconciliation-backend/internal/models"
	"childcare-reconciliation-backend/internal/services/matching"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeStatementStore struct {
	rows map[uuid.UUID]*models.Statement
}

func newFakeStatementStore() *fakeStatementStore {
	return &fakeStatementStore{rows: make(map[uuid.UUID]*models.Statement)}
}

func (f *fakeStatementStore) Create(st *models.Statement) error {
	f.rows[st.ID] = st
	return nil
}

func (f *fakeStatementStore) Save(st *models.Statement) error {
	f.rows[st.ID] = st
	return nil
}

func (f *fakeStatementStore) GetByID(id uuid.UUID) (*models.Statement, error) {
	return f.rows[id], nil
}

func (f *fakeStatementStore) ListAll() ([]models.Statement, error) {
	var out []models.Statement
	for _, st := range f.rows {
		out = append(out, *st)
	}
	return out, nil
}

type fakeTransactionCreator struct {
	created []*models.Transaction
	seen    map[string]bool
}

func newFakeTransactionCreator() *fakeTransactionCreator {
	return &fakeTransactionCreator{seen: make(map[string]bool)}
}

func (f *fakeTransactionCreator) CreateIfNew(tx *models.Transaction) (bool, error) {
	if f.seen[tx.BankReference] {
		return false, nil
	}
	f.seen[tx.BankReference] = true
	f.created = append(f.created, tx)
	return true, nil
}

type fakeMatcher struct {
	matchWhen func(tx *models.Transaction) bool
	calls     int
}

func (f *fakeMatcher) Match(tx *models.Transaction) (matching.Result, error) {
	f.calls++
	if f.matchWhen != nil && f.matchWhen(tx) {
		return matching.Result{Matched: true, Strategy: "student-number"}, nil
	}
	return matching.Result{}, nil
}

func newIngestService(matcher *fakeMatcher) (*Service, *fakeStatementStore, *fakeTransactionCreator) {
	store := newFakeStatementStore()
	creator := newFakeTransactionCreator()
	svc := NewService(newTestParser(), store, creator, matcher, zerolog.Nop())
	return svc, store, creator
}

func TestIngest_CSVUpload(t *testing.T) {
	matcher := &fakeMatcher{matchWhen: func(tx *models.Transaction) bool {
		return tx.PaymentReference == "STU-2025-001"
	}}
	svc, store, creator := newIngestService(matcher)

	csv := "Date,Description,Deposits,Balance\n" +
		"2025-01-15,EFT STU-2025-001 JANUARY,1500.00,4500.00\n" +
		"2025-01-16,UNKNOWN SENDER,900.00,5400.00\n"

	statement, err := svc.Ingest([]byte(csv), "january.csv")
	require.NoError(t, err)

	assert.Equal(t, models.StatementCompleted, statement.Status)
	assert.Equal(t, models.FileTypeCSV, statement.FileType)
	assert.Equal(t, 2, statement.TotalTransactions)
	assert.Equal(t, 1, statement.MatchedCount)
	assert.Equal(t, 1, statement.UnmatchedCount)
	assert.NotNil(t, statement.ProcessedAt)

	require.Len(t, creator.created, 2)
	tx := creator.created[0]
	assert.Equal(t, statement.ID, *tx.StatementID)
	assert.Equal(t, models.TxTypeCredit, tx.Type)
	assert.NotEmpty(t, tx.BankReference)

	saved, err := store.GetByID(statement.ID)
	require.NoError(t, err)
	assert.Equal(t, models.StatementCompleted, saved.Status)
}

func TestIngest_UnsupportedExtensionMarksFailed(t *testing.T) {
	svc, store, creator := newIngestService(&fakeMatcher{})

	statement, err := svc.Ingest([]byte("anything"), "upload.xlsx")
	require.NoError(t, err)

	assert.Equal(t, models.StatementFailed, statement.Status)
	assert.Contains(t, statement.ErrorMessage, "unsupported file type")
	assert.Empty(t, creator.created)

	saved, err := store.GetByID(statement.ID)
	require.NoError(t, err)
	assert.Equal(t, models.StatementFailed, saved.Status)
}

func TestIngest_SaltedReferencesSurviveReupload(t *testing.T) {
	svc, _, creator := newIngestService(&fakeMatcher{})

	csv := "Date,Description,Amount\n" +
		"2025-01-15,EFT ONE,100.00\n"

	first, err := svc.Ingest([]byte(csv), "a.csv")
	require.NoError(t, err)
	require.Equal(t, 1, first.TotalTransactions)

	// references carry a random salt, so the same file uploaded twice
	// produces distinct rows rather than conflicts
	second, err := svc.Ingest([]byte(csv), "a.csv")
	require.NoError(t, err)
	assert.Equal(t, 1, second.TotalTransactions)
	assert.Len(t, creator.created, 2)
	assert.NotEqual(t, creator.created[0].BankReference, creator.created[1].BankReference)
}

func TestIngest_MatcherCalledOncePerNewTransaction(t *testing.T) {
	matcher := &fakeMatcher{}
	svc, _, _ := newIngestService(matcher)

	csv := "Date,Description,Amount\n" +
		"2025-01-15,ROW ONE,100.00\n" +
		"2025-01-16,ROW TWO,200.00\n"

	_, err := svc.Ingest([]byte(csv), "b.csv")
	require.NoError(t, err)
	assert.Equal(t, 2, matcher.calls)
}

func TestFileTypeFor(t *testing.T) {
	assert.Equal(t, models.FileTypeCSV, fileTypeFor("Statement.CSV"))
	assert.Equal(t, models.FileTypeMarkdown, fileTypeFor("extract.md"))
	assert.Equal(t, models.FileTypePDF, fileTypeFor("scan.pdf"))
	assert.Equal(t, "", fileTypeFor("notes.txt"))
}

package matching

import (
	"regexp"
	"strings"

	"childcare-reconciliation-backend/internal/models"
)

// PayerDirectory is the read-only view of enrolled payers the strategy
// chain matches against. Satisfied by repository.PayerRepository.
type PayerDirectory interface {
	FindByStudentNumber(studentNumber string) (*models.Payer, error)
	FindByPaymentReference(reference string) (*models.Payer, error)
	ListActive() ([]models.Payer, error)
}

// MatchInput carries the fields of a transaction the strategies inspect.
type MatchInput struct {
	Reference   string
	Description string
}

// Strategy is one rule in the ordered fallback chain. A nil payer with
// a nil error means the rule did not fire.
type Strategy struct {
	Name string
	Fn   func(in MatchInput, dir PayerDirectory) (*models.Payer, error)
}

// DefaultStrategies is evaluated in order, first success wins.
var DefaultStrategies = []Strategy{
	{Name: "student-number", Fn: matchByStudentNumber},
	{Name: "payment-reference", Fn: matchByPaymentReference},
	{Name: "name-contains", Fn: matchByNameContains},
}

var studentNumberPattern = regexp.MustCompile(`STU-\d{4}-\d{3}`)

// ExtractStudentNumber returns the first STU-YYYY-NNN identifier in the
// text, or "" when none is present.
func ExtractStudentNumber(text string) string {
	return studentNumberPattern.FindString(text)
}

func matchByStudentNumber(in MatchInput, dir PayerDirectory) (*models.Payer, error) {
	studentNumber := ExtractStudentNumber(in.Reference)
	if studentNumber == "" {
		studentNumber = ExtractStudentNumber(in.Description)
	}
	if studentNumber == "" {
		return nil, nil
	}
	return dir.FindByStudentNumber(studentNumber)
}

func matchByPaymentReference(in MatchInput, dir PayerDirectory) (*models.Payer, error) {
	reference := strings.TrimSpace(in.Reference)
	if reference == "" {
		return nil, nil
	}
	return dir.FindByPaymentReference(reference)
}

// matchByNameContains is the fuzzy fallback: the first active payer
// whose full name appears in the transaction description wins.
func matchByNameContains(in MatchInput, dir PayerDirectory) (*models.Payer, error) {
	if strings.TrimSpace(in.Description) == "" {
		return nil, nil
	}
	payers, err := dir.ListActive()
	if err != nil {
		return nil, err
	}
	desc := strings.ToUpper(in.Description)
	for i := range payers {
		if strings.Contains(desc, strings.ToUpper(payers[i].FullName())) {
			return &payers[i], nil
		}
	}
	return nil, nil
}

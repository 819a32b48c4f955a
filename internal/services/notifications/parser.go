package notifications

import (
	"crypto/sha256"
	"encoding/base64"
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"
)

// Field extractors for bank alert notifications. Each pattern is
// applied to the full text independently, so label order in the
// message does not matter.
var (
	datePattern = regexp.MustCompile(
		`(?i)Date:\s*(\d{2}[/-]\d{2}[/-]\d{4}|\d{4}-\d{2}-\d{2})`)
	amountPattern = regexp.MustCompile(
		`(?i)Amount:\s*R?\s*([\d,]+\.\d{2})`)
	referencePattern = regexp.MustCompile(
		`(?is)Reference:\s*(.+?)(?:\n|\r|$|Date:|Amount:|Balance:)`)
	balancePattern = regexp.MustCompile(
		`(?i)(?:New )?Balance:\s*R?\s*([\d,]+\.\d{2})`)
	descriptionPattern = regexp.MustCompile(
		`(?is)Description:\s*(.+?)(?:\n|\r|$|Date:|Amount:|Reference:)`)
	senderNamePattern = regexp.MustCompile(
		`(?i)(?:From|Sender):\s*(.+?)(?:\n|\r|$)`)
	creditPattern = regexp.MustCompile(
		`(?i)\b(credit|deposit|received|payment received)\b`)
	debitPattern = regexp.MustCompile(
		`(?i)\b(debit|withdrawal|payment sent)\b`)
)

var notificationDateLayouts = []string{
	"02/01/2006",
	"2006-01-02",
	"02-01-2006",
}

// ParsedNotification holds the fields extracted from one free-text
// bank alert. Valid is true only when date, amount and reference are
// all present.
type ParsedNotification struct {
	Valid           bool
	Date            time.Time
	Amount          float64
	Reference       string
	Balance         float64
	HasBalance      bool
	Description     string
	SenderName      string
	TransactionType string
	ErrorMessage    string
}

// Parse extracts transaction fields from the notification body. The
// subject is only used as a description fallback.
func Parse(body, subject string) ParsedNotification {
	parsed := ParsedNotification{}

	if strings.TrimSpace(body) == "" {
		parsed.ErrorMessage = "notification body is empty"
		return parsed
	}

	if date, ok := ExtractDate(body); ok {
		parsed.Date = date
	}
	if amount, ok := ExtractAmount(body); ok {
		parsed.Amount = amount
	}
	parsed.Reference = ExtractReference(body)
	if balance, ok := ExtractBalance(body); ok {
		parsed.Balance = balance
		parsed.HasBalance = true
	}

	parsed.Description = ExtractDescription(body)
	if parsed.Description == "" {
		if subject != "" {
			parsed.Description = subject
		} else if len(body) > 100 {
			parsed.Description = body[:100]
		} else {
			parsed.Description = body
		}
	}

	parsed.SenderName = ExtractSenderName(body)
	parsed.TransactionType = DetectTransactionType(body, subject)

	if missing := missingFields(parsed); missing != "" {
		parsed.ErrorMessage = "missing required fields: " + missing
		return parsed
	}

	parsed.Valid = true
	return parsed
}

func ExtractDate(text string) (time.Time, bool) {
	m := datePattern.FindStringSubmatch(text)
	if m == nil {
		return time.Time{}, false
	}
	for _, layout := range notificationDateLayouts {
		if t, err := time.Parse(layout, m[1]); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

func ExtractAmount(text string) (float64, bool) {
	m := amountPattern.FindStringSubmatch(text)
	if m == nil {
		return 0, false
	}
	return parseCurrency(m[1])
}

func ExtractReference(text string) string {
	m := referencePattern.FindStringSubmatch(text)
	if m == nil {
		return ""
	}
	return strings.TrimSpace(m[1])
}

func ExtractBalance(text string) (float64, bool) {
	m := balancePattern.FindStringSubmatch(text)
	if m == nil {
		return 0, false
	}
	return parseCurrency(m[1])
}

func ExtractDescription(text string) string {
	m := descriptionPattern.FindStringSubmatch(text)
	if m == nil {
		return ""
	}
	return strings.TrimSpace(m[1])
}

func ExtractSenderName(text string) string {
	m := senderNamePattern.FindStringSubmatch(text)
	if m == nil {
		return ""
	}
	return strings.TrimSpace(m[1])
}

// DetectTransactionType keyword-scans body and subject. Undetermined
// messages default to CREDIT: this system only reconciles incoming
// money.
func DetectTransactionType(body, subject string) string {
	combined := body + " " + subject
	if creditPattern.MatchString(combined) {
		return "CREDIT"
	}
	if debitPattern.MatchString(combined) {
		return "DEBIT"
	}
	return "CREDIT"
}

// DuplicateHash is the idempotency key for the notification path:
// base64 of SHA-256 over date, amount and reference.
func DuplicateHash(date time.Time, amount float64, reference string) string {
	combined := fmt.Sprintf("%s|%.2f|%s", date.Format("2006-01-02"), amount, reference)
	sum := sha256.Sum256([]byte(combined))
	return base64.StdEncoding.EncodeToString(sum[:])
}

func missingFields(p ParsedNotification) string {
	var missing []string
	if p.Date.IsZero() {
		missing = append(missing, "date")
	}
	if p.Amount <= 0 {
		missing = append(missing, "amount")
	}
	if strings.TrimSpace(p.Reference) == "" {
		missing = append(missing, "reference")
	}
	return strings.Join(missing, ", ")
}

func parseCurrency(s string) (float64, bool) {
	cleaned := strings.ReplaceAll(strings.ReplaceAll(s, ",", ""), " ", "")
	n, err := strconv.ParseFloat(cleaned, 64)
	if err != nil {
		return 0, false
	}
	return n, true
}

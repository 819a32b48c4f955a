package statements

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"regexp"
	"strconv"
	"strings"
	"time"

	"childcare-reconciliation-backend/internal/services/matching"

	"github.com/rs/zerolog"
)

var ErrUnsupportedFileType = errors.New("unsupported file type, only CSV, MD and PDF are allowed")

// bankStatementMarker identifies the fixed-column bank statement export
// inside a .csv upload; its presence selects the block dialect over the
// generic header-mapped one.
const bankStatementMarker = "Customer Care:"

// transactionSectionMarker starts the transaction block in bank
// statement text.
const transactionSectionMarker = "Date Description"

var markdownLinePattern = regexp.MustCompile(`^\d{1,2} \w{3} \d{2}.*\d+\.\d{2}.*`)

var dateLayouts = []string{
	"2 Jan 06",
	"02 Jan 06",
	"2006-01-02",
	"02/01/2006",
	"2/1/2006",
}

// TextExtractor turns uploaded bytes into plain text. PDF uploads reach
// this core already extracted, so the default passthrough suffices; a
// real extractor is a collaborator concern.
type TextExtractor interface {
	Extract(data []byte, kind string) (string, error)
}

// PlainTextExtractor treats the bytes as UTF-8 text.
type PlainTextExtractor struct{}

func (PlainTextExtractor) Extract(data []byte, _ string) (string, error) {
	return string(data), nil
}

// Parser converts statement uploads into RawTransaction values. A
// malformed row never fails the whole file; only unreadable input or an
// unrecognized extension returns an error.
type Parser struct {
	extractor TextExtractor
	log       zerolog.Logger
}

func NewParser(extractor TextExtractor, log zerolog.Logger) *Parser {
	if extractor == nil {
		extractor = PlainTextExtractor{}
	}
	return &Parser{extractor: extractor, log: log}
}

// Parse detects the dialect from the file name (and, for CSV, the
// content) and returns the parsed credit transactions plus the number
// of malformed rows skipped.
func (p *Parser) Parse(data []byte, fileName string) ([]RawTransaction, int, error) {
	lower := strings.ToLower(fileName)
	switch {
	case strings.HasSuffix(lower, ".csv"):
		return p.parseCSV(data)
	case strings.HasSuffix(lower, ".md"):
		return p.parseMarkdown(string(data))
	case strings.HasSuffix(lower, ".pdf"):
		text, err := p.extractor.Extract(data, SourcePDF)
		if err != nil {
			return nil, 0, fmt.Errorf("extract pdf text: %w", err)
		}
		txs, skipped := p.parseBankBlock(text, SourcePDF)
		return txs, skipped, nil
	default:
		return nil, 0, ErrUnsupportedFileType
	}
}

func (p *Parser) parseCSV(data []byte) ([]RawTransaction, int, error) {
	content := string(data)
	if strings.Contains(firstLine(content), bankStatementMarker) {
		txs, skipped := p.parseBankBlock(content, SourceBankCSV)
		return txs, skipped, nil
	}
	return p.parseGenericCSV(content)
}

// parseGenericCSV handles header-driven exports with case-insensitive
// column aliases. Rows missing date, description or amount are skipped.
func (p *Parser) parseGenericCSV(content string) ([]RawTransaction, int, error) {
	reader := csv.NewReader(strings.NewReader(content))
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true

	header, err := reader.Read()
	if err != nil {
		return nil, 0, fmt.Errorf("read csv header: %w", err)
	}

	columns := make(map[string]int)
	for i, h := range header {
		columns[strings.ToLower(strings.TrimSpace(h))] = i
	}

	var txs []RawTransaction
	skipped := 0
	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			p.log.Warn().Err(err).Msg("skipping malformed csv row")
			skipped++
			continue
		}
		if strings.Join(record, "") == "" {
			continue
		}

		dateStr := columnValue(record, columns, "date", "transaction date")
		description := columnValue(record, columns, "description", "narrative", "details")
		amountStr := columnValue(record, columns, "deposits", "deposit", "credit", "amount")
		balanceStr := columnValue(record, columns, "balance", "running balance")
		senderName := columnValue(record, columns, "sender", "sender name", "payer")

		if dateStr == "" || description == "" || amountStr == "" {
			skipped++
			continue
		}

		date, ok := parseDate(dateStr)
		if !ok {
			p.log.Warn().Str("date", dateStr).Msg("skipping row with unparseable date")
			skipped++
			continue
		}
		amount, ok := parseCurrency(amountStr)
		if !ok {
			p.log.Warn().Str("amount", amountStr).Msg("skipping row with unparseable amount")
			skipped++
			continue
		}
		if amount <= 0 {
			continue // debit or zero, not reconciled here
		}

		balance, _ := parseCurrency(balanceStr)

		txs = append(txs, RawTransaction{
			Date:        date,
			Amount:      amount,
			Description: description,
			Reference:   extractPaymentReference(description),
			Balance:     balance,
			SenderName:  senderName,
			SourceKind:  SourceGenericCSV,
			RawLine:     strings.Join(record, ","),
		})
	}
	return txs, skipped, nil
}

// parseBankBlock scans the fixed-column transaction section that
// follows the "Date Description" marker row. Each logical line reads
// "<day> <mon> <yy> <description> <amount> <balance>".
func (p *Parser) parseBankBlock(content, sourceKind string) ([]RawTransaction, int) {
	var txs []RawTransaction
	skipped := 0
	inSection := false

	for _, line := range strings.Split(content, "\n") {
		if strings.Contains(line, transactionSectionMarker) {
			inSection = true
			continue
		}
		if !inSection {
			continue
		}
		line = strings.Trim(strings.TrimSpace(line), `"`)
		if line == "" ||
			strings.Contains(line, "STATEMENT") ||
			strings.Contains(line, "Transaction details") ||
			strings.Contains(line, bankStatementMarker) {
			continue
		}

		tx, ok := parseBlockLine(line, sourceKind)
		if !ok {
			// debit lines and page furniture land here; only count
			// lines that look like transactions but fail to parse
			if markdownLinePattern.MatchString(line) {
				skipped++
				p.log.Warn().Str("line", line).Msg("skipping malformed statement line")
			}
			continue
		}
		txs = append(txs, tx)
	}
	return txs, skipped
}

func (p *Parser) parseMarkdown(content string) ([]RawTransaction, int, error) {
	var txs []RawTransaction
	skipped := 0
	for _, line := range strings.Split(content, "\n") {
		line = strings.TrimSpace(line)
		if !markdownLinePattern.MatchString(line) {
			continue
		}
		tx, ok := parseBlockLine(line, SourceMarkdown)
		if !ok {
			skipped++
			continue
		}
		txs = append(txs, tx)
	}
	return txs, skipped, nil
}

// parseBlockLine parses one "<day> <mon> <yy> <description> <amount>
// <balance>" line. Amount and balance are found by scanning tokens
// right to left for the last two parseable decimal numbers. Lines with
// a non-positive amount are dropped.
func parseBlockLine(line, sourceKind string) (RawTransaction, bool) {
	fields := strings.Fields(line)
	if len(fields) < 5 {
		return RawTransaction{}, false
	}

	date, ok := parseDate(strings.Join(fields[:3], " "))
	if !ok {
		return RawTransaction{}, false
	}

	balance := 0.0
	amount := 0.0
	amountIdx := -1
	found := 0
	for i := len(fields) - 1; i >= 3 && found < 2; i-- {
		n, err := strconv.ParseFloat(strings.ReplaceAll(fields[i], ",", ""), 64)
		if err != nil {
			continue
		}
		if found == 0 {
			balance = n
		} else {
			amount = n
			amountIdx = i
		}
		found++
	}
	if found < 2 || amount <= 0 {
		return RawTransaction{}, false
	}

	description := strings.Join(fields[3:amountIdx], " ")
	if description == "" {
		return RawTransaction{}, false
	}

	return RawTransaction{
		Date:        date,
		Amount:      amount,
		Description: description,
		Reference:   extractPaymentReference(description),
		Balance:     balance,
		SourceKind:  sourceKind,
		RawLine:     line,
	}, true
}

// parseDate tries the fixed layout list, normalizing two-digit years
// into the 2000s.
func parseDate(s string) (time.Time, bool) {
	s = strings.TrimSpace(s)
	for _, layout := range dateLayouts {
		t, err := time.Parse(layout, s)
		if err != nil {
			continue
		}
		if t.Year() < 100 {
			t = t.AddDate(2000, 0, 0)
		}
		return t, true
	}
	return time.Time{}, false
}

// parseCurrency strips everything but digits and the decimal point
// before conversion, so "R 1,500.00" parses as 1500.
func parseCurrency(s string) (float64, bool) {
	cleaned := strings.Map(func(r rune) rune {
		if (r >= '0' && r <= '9') || r == '.' {
			return r
		}
		return -1
	}, s)
	if cleaned == "" {
		return 0, false
	}
	n, err := strconv.ParseFloat(cleaned, 64)
	if err != nil {
		return 0, false
	}
	return n, true
}

// extractPaymentReference pulls the student-number identifier out of
// the description, falling back to a truncated description.
func extractPaymentReference(description string) string {
	if ref := matching.ExtractStudentNumber(description); ref != "" {
		return ref
	}
	if len(description) > 50 {
		return description[:50]
	}
	return description
}

func columnValue(record []string, columns map[string]int, aliases ...string) string {
	for _, alias := range aliases {
		if idx, ok := columns[alias]; ok && idx < len(record) {
			if v := strings.TrimSpace(record[idx]); v != "" {
				return v
			}
		}
	}
	return ""
}

func firstLine(content string) string {
	if idx := strings.IndexByte(content, '\n'); idx >= 0 {
		return content[:idx]
	}
	return content
}

package statements

import "time"

// Source dialects a RawTransaction can originate from.
const (
	SourceGenericCSV = "csv"
	SourceBankCSV    = "bank-csv"
	SourceMarkdown   = "markdown"
	SourcePDF        = "pdf"
)

// RawTransaction is the normalized, not-yet-attributed record a parser
// produces. It is transient: the upload service turns it into a
// persisted Transaction, it is never stored as-is.
type RawTransaction struct {
	Date        time.Time
	Amount      float64
	Description string
	Reference   string
	Balance     float64
	SenderName  string
	SourceKind  string
	RawLine     string
}

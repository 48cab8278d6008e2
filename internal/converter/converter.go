// Package converter defines the bank statement converter contract and the
// normalized shapes converters produce.
package converter

import "errors"

// ErrUnsupportedFormat is returned when no registered converter recognizes
// the file. It is a user-facing condition, not a parse failure.
var ErrUnsupportedFormat = errors.New("unsupported statement format")

// ParsedTransaction is a single statement line normalized to the common shape.
type ParsedTransaction struct {
	// FitID is the bank's own transaction identifier, used for duplicate
	// tracking. Uniqueness is bank-defined, not guaranteed.
	FitID string `json:"fitId"`
	Date  string `json:"date"` // ISO format YYYY-MM-DD
	// Amount sign convention: positive = money in, negative = money out.
	Amount   float64 `json:"amount"`
	Currency string  `json:"currency"`
	Payee    string  `json:"payee"`
	Memo     string  `json:"memo"`
	// AccountNumber is the statement's account number when the format
	// carries one (used for account matching).
	AccountNumber string `json:"accountNumber,omitempty"`
}

// ParseResult is the outcome of parsing one statement file.
// When Transactions is non-empty, DateStart <= DateEnd.
type ParseResult struct {
	// BankCode is the 6-char SWIFT-like identifier of the issuing bank.
	BankCode      string              `json:"bankCode"`
	AccountNumber string              `json:"accountNumber"`
	Currency      string              `json:"currency"`
	DateStart     string              `json:"dateStart"`
	DateEnd       string              `json:"dateEnd"`
	Transactions  []ParsedTransaction `json:"transactions"`
}

// Converter is the strategy interface implemented once per bank format.
// Implementations are stateless shared instances, safe for concurrent use.
type Converter interface {
	// BankCode returns the 6-char SWIFT-like code prefix
	BankCode() string

	// BankName returns the human-readable bank name
	BankName() string

	// SupportedFormats returns file formats this converter handles
	SupportedFormats() []string

	// Detect checks if the file belongs to this bank. It sniffs the raw
	// content; it must not fully parse it.
	Detect(content, fileName string) bool

	// Parse converts file content into a normalized result. A failure here
	// means the format matched but the structure is malformed; the error is
	// fatal for the import attempt.
	Parse(content string) (*ParseResult, error)
}

// Truncate cuts s to at most n runes. Statement payees and memos are capped
// to OFX field lengths (NAME 32, MEMO 255) since OFX is the interchange
// format of the surrounding application.
func Truncate(s string, n int) string {
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return string(runes[:n])
}

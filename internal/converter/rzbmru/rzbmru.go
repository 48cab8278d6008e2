// Package rzbmru provides the Raiffeisen Bank (Russia) CSV statement converter.
package rzbmru

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"
	"unicode"
	"unicode/utf8"

	"golang.org/x/text/encoding/charmap"

	"github.com/rumor-ml/commons.systems/bankimport/internal/converter"
)

// Converter implements Raiffeisen CSV parsing with a stateless design.
// Safe for concurrent use; all behavior is determined by the input content.
type Converter struct{}

var converterInstance = &Converter{}

// New returns the shared Raiffeisen converter instance.
func New() *Converter {
	return converterInstance
}

// BankCode returns the SWIFT code prefix
func (c *Converter) BankCode() string { return "RZBMRU" }

// BankName returns the human-readable bank name
func (c *Converter) BankName() string { return "Raiffeisen Bank (Russia)" }

// SupportedFormats returns the file formats this converter handles
func (c *Converter) SupportedFormats() []string { return []string{"csv"} }

// Detect matches known header phrases in the first line, case-insensitively.
// The bank exports both English and Russian headers.
func (c *Converter) Detect(content, fileName string) bool {
	content = decodeContent(content)
	firstLine := strings.ToLower(strings.SplitN(content, "\n", 2)[0])
	return strings.Contains(firstLine, "date and time") ||
		strings.Contains(firstLine, "дата и время") ||
		strings.Contains(firstLine, "дата;номер документа") ||
		(strings.Contains(firstLine, "дата") && strings.Contains(firstLine, "приход"))
}

// Parse extracts a normalized result from a Raiffeisen CSV statement.
//
// Column order is fixed regardless of header language:
// date and time, date, document number, income, expense, currency, details,
// card number. The header is only used by Detect, never to remap columns.
func (c *Converter) Parse(content string) (*converter.ParseResult, error) {
	content = decodeContent(content)
	lines := strings.Split(content, "\n")

	var transactions []converter.ParsedTransaction
	for i := 1; i < len(lines); i++ {
		line := strings.TrimSpace(lines[i])
		if line == "" {
			continue
		}

		fields := splitLine(line, ';')
		// Short rows (footers, summary lines) are skipped, not errors.
		if len(fields) < 7 {
			continue
		}

		dateTimeStr := fields[0]
		dateStr := fields[1]
		docNum := fields[2]
		income := parseNumber(fields[3])
		expense := parseNumber(fields[4])
		currency := fields[5]
		if currency == "" {
			currency = "RUB"
		}
		memo := fields[6]

		// The date column is authoritative; fall back to the datetime column.
		rawDate := dateStr
		if rawDate == "" {
			rawDate = dateTimeStr
		}
		date, err := parseDate(rawDate)
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", i+1, err)
		}

		amount := income
		if income <= 0 {
			amount = -expense
		}
		// Zero-amount rows (e.g. declined operations) are skipped silently.
		if amount == 0 {
			continue
		}

		fitID := docNum
		if fitID == "" {
			fitID = fmt.Sprintf("%s_%d", dateTimeStr, i)
		}

		transactions = append(transactions, converter.ParsedTransaction{
			FitID:    fitID,
			Date:     date,
			Amount:   amount,
			Currency: currency,
			Payee:    extractPayee(memo),
			Memo:     memo,
		})
	}

	// The format carries no period header; derive the range from the
	// transaction dates (lexicographic sort is valid on ISO dates).
	dates := make([]string, 0, len(transactions))
	for _, t := range transactions {
		dates = append(dates, t.Date)
	}
	sort.Strings(dates)
	var dateStart, dateEnd string
	if len(dates) > 0 {
		dateStart = dates[0]
		dateEnd = dates[len(dates)-1]
	}

	return &converter.ParseResult{
		BankCode:      c.BankCode(),
		AccountNumber: "", // format carries no account number
		Currency:      "RUB",
		DateStart:     dateStart,
		DateEnd:       dateEnd,
		Transactions:  transactions,
	}, nil
}

// decodeContent transparently decodes windows-1251 exports. The bank still
// ships legacy-encoded CSVs; anything that is already valid UTF-8 passes
// through untouched.
func decodeContent(content string) string {
	if utf8.ValidString(content) {
		return content
	}
	decoded, err := charmap.Windows1251.NewDecoder().String(content)
	if err != nil {
		return content
	}
	return decoded
}

// splitLine splits a delimited line with quote awareness: a quote character
// toggles an "inside quotes" mode that suppresses splitting, and quotes are
// not kept in the output. Every field is whitespace-trimmed.
func splitLine(line string, delimiter rune) []string {
	var result []string
	var current strings.Builder
	inQuotes := false

	for _, ch := range line {
		switch {
		case ch == '"':
			inQuotes = !inQuotes
		case ch == delimiter && !inQuotes:
			result = append(result, strings.TrimSpace(current.String()))
			current.Reset()
		default:
			current.WriteRune(ch)
		}
	}
	result = append(result, strings.TrimSpace(current.String()))

	return result
}

// parseNumber parses the localized number form: space as thousands separator,
// comma as decimal separator. Blank or unparseable values read as zero.
func parseNumber(str string) float64 {
	cleaned := strings.Map(func(r rune) rune {
		if unicode.IsSpace(r) {
			return -1
		}
		return r
	}, str)
	if cleaned == "" {
		return 0
	}
	cleaned = strings.Replace(cleaned, ",", ".", 1)
	n, err := strconv.ParseFloat(cleaned, 64)
	if err != nil {
		return 0
	}
	return n
}

// parseDate converts "DD.MM.YYYY" (optionally followed by a time component,
// which is discarded) to ISO format.
func parseDate(dateStr string) (string, error) {
	datePart := strings.SplitN(dateStr, " ", 2)[0]
	t, err := time.Parse("02.01.2006", datePart)
	if err != nil {
		return "", fmt.Errorf("invalid date %q: %w", dateStr, err)
	}
	return t.Format("2006-01-02"), nil
}

// extractPayee derives a short payee from the details column: whitespace
// collapsed, truncated to the OFX NAME limit.
func extractPayee(memo string) string {
	cleaned := strings.Join(strings.Fields(memo), " ")
	return converter.Truncate(cleaned, 32)
}

// Package insjam provides the Inecobank (Armenia) XML statement converter.
package insjam

import (
	"encoding/xml"
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/rumor-ml/commons.systems/bankimport/internal/converter"
)

// Converter implements Inecobank XML parsing with a stateless design.
// Safe for concurrent use; all behavior is determined by the input content.
type Converter struct{}

var converterInstance = &Converter{}

// New returns the shared Inecobank converter instance.
func New() *Converter {
	return converterInstance
}

// BankCode returns the SWIFT code prefix
func (c *Converter) BankCode() string { return "INSJAM" }

// BankName returns the human-readable bank name
func (c *Converter) BankName() string { return "Inecobank (Armenia)" }

// SupportedFormats returns the file formats this converter handles
func (c *Converter) SupportedFormats() []string { return []string{"xml"} }

// Detect sniffs for the Inecobank XML structure. This is format sniffing on
// raw content, not XML parsing: all three markers must be present.
func (c *Converter) Detect(content, fileName string) bool {
	return strings.Contains(content, "<statement") &&
		strings.Contains(content, "<AccountNumber>") &&
		strings.Contains(content, "<Operations>")
}

// statement mirrors the Inecobank XML layout. Operation amounts stay strings
// because the bank writes comma-grouped decimals ("1,234.50").
type statement struct {
	XMLName       xml.Name    `xml:"statement"`
	AccountNumber string      `xml:"AccountNumber"`
	Currency      string      `xml:"Currency"`
	Period        string      `xml:"Period"`
	Operations    []operation `xml:"Operations>Operation"`
}

type operation struct {
	FitID   string `xml:"n-n"`
	Date    string `xml:"Date"`
	Income  string `xml:"Income"`
	Expense string `xml:"Expense"`
	Payee   string `xml:"Receiver-Payer"`
	Details string `xml:"Details"`
}

// Parse extracts a normalized result from an Inecobank XML statement.
func (c *Converter) Parse(content string) (*converter.ParseResult, error) {
	var stmt statement
	if err := xml.Unmarshal([]byte(content), &stmt); err != nil {
		return nil, fmt.Errorf("invalid XML format: %w", err)
	}

	currency := stmt.Currency
	if currency == "" {
		currency = "USD"
	}

	dateStart, dateEnd, err := parsePeriod(stmt.Period)
	if err != nil {
		return nil, err
	}

	transactions := make([]converter.ParsedTransaction, 0, len(stmt.Operations))
	for i, op := range stmt.Operations {
		date, err := parseDate(op.Date)
		if err != nil {
			return nil, fmt.Errorf("operation %d: %w", i, err)
		}

		income, err := parseAmount(op.Income)
		if err != nil {
			return nil, fmt.Errorf("operation %d: invalid income: %w", i, err)
		}
		expense, err := parseAmount(op.Expense)
		if err != nil {
			return nil, fmt.Errorf("operation %d: invalid expense: %w", i, err)
		}

		// Positive for income, negative for expense.
		amount := income
		if income <= 0 {
			amount = -expense
		}

		transactions = append(transactions, converter.ParsedTransaction{
			FitID:         op.FitID,
			Date:          date,
			Amount:        amount,
			Currency:      currency,
			Payee:         converter.Truncate(op.Payee, 32),
			Memo:          converter.Truncate(op.Details, 255),
			AccountNumber: stmt.AccountNumber,
		})
	}

	return &converter.ParseResult{
		BankCode:      c.BankCode(),
		AccountNumber: stmt.AccountNumber,
		Currency:      currency,
		DateStart:     dateStart,
		DateEnd:       dateEnd,
		Transactions:  transactions,
	}, nil
}

var periodPattern = regexp.MustCompile(`\[(\d{2}/\d{2}/\d{4})\] - \[(\d{2}/\d{2}/\d{4})\]`)

// parsePeriod parses the statement period string "[DD/MM/YYYY] - [DD/MM/YYYY]"
func parsePeriod(periodStr string) (string, string, error) {
	match := periodPattern.FindStringSubmatch(periodStr)
	if match == nil {
		return "", "", fmt.Errorf("invalid period format: %q", periodStr)
	}
	start, err := parseDate(match[1])
	if err != nil {
		return "", "", err
	}
	end, err := parseDate(match[2])
	if err != nil {
		return "", "", err
	}
	return start, end, nil
}

// parseDate converts DD/MM/YYYY to ISO format
func parseDate(dateStr string) (string, error) {
	t, err := time.Parse("02/01/2006", dateStr)
	if err != nil {
		return "", fmt.Errorf("invalid date %q: %w", dateStr, err)
	}
	return t.Format("2006-01-02"), nil
}

// parseAmount parses a comma-grouped decimal ("1,234.50"). Empty means zero.
func parseAmount(amountStr string) (float64, error) {
	cleaned := strings.ReplaceAll(strings.TrimSpace(amountStr), ",", "")
	if cleaned == "" {
		return 0, nil
	}
	return strconv.ParseFloat(cleaned, 64)
}

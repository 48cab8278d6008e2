// Package ofx provides a bank-agnostic OFX/QFX statement converter.
//
// It is registered after the bank-specific converters: banks with dedicated
// converters win detection, and this one picks up generic OFX exports.
package ofx

import (
	"fmt"
	"strings"

	"github.com/aclindsa/ofxgo"

	"github.com/rumor-ml/commons.systems/bankimport/internal/converter"
)

// Converter implements OFX/QFX parsing with a stateless design.
// Safe for concurrent use; all behavior is determined by the input content.
type Converter struct{}

var converterInstance = &Converter{}

// New returns the shared OFX converter instance.
func New() *Converter {
	return converterInstance
}

// BankCode returns the generic code used when the signon block names no
// institution.
func (c *Converter) BankCode() string { return "OFXUNK" }

// BankName returns the human-readable name
func (c *Converter) BankName() string { return "OFX statement" }

// SupportedFormats returns the file formats this converter handles
func (c *Converter) SupportedFormats() []string { return []string{"ofx", "qfx"} }

// Detect checks for OFX header markers (both v1 SGML and v2 XML forms).
func (c *Converter) Detect(content, fileName string) bool {
	head := strings.ToUpper(content)
	if len(head) > 1024 {
		head = head[:1024]
	}
	return strings.Contains(head, "OFXHEADER") ||
		strings.Contains(head, "<?OFX") ||
		strings.Contains(head, "<OFX>")
}

// Parse extracts a normalized result from an OFX/QFX statement.
func (c *Converter) Parse(content string) (*converter.ParseResult, error) {
	response, err := ofxgo.ParseResponse(strings.NewReader(content))
	if err != nil {
		return nil, fmt.Errorf("failed to parse OFX content (%d bytes): %w", len(content), err)
	}

	bankCode := deriveBankCode(response)

	if len(response.Bank) > 0 {
		return c.parseBank(response, bankCode)
	}
	if len(response.CreditCard) > 0 {
		return c.parseCreditCard(response, bankCode)
	}

	return nil, fmt.Errorf("no supported statement type found in OFX file (bank: %d, creditcard: %d, investment: %d)",
		len(response.Bank), len(response.CreditCard), len(response.InvStmt))
}

// parseBank parses a bank account statement
func (c *Converter) parseBank(resp *ofxgo.Response, bankCode string) (*converter.ParseResult, error) {
	stmt, ok := resp.Bank[0].(*ofxgo.StatementResponse)
	if !ok {
		return nil, fmt.Errorf("unexpected bank statement type %T", resp.Bank[0])
	}

	accountNumber := stmt.BankAcctFrom.AcctID.String()
	if accountNumber == "" {
		return nil, fmt.Errorf("missing account ID in bank statement")
	}
	if stmt.BankTranList == nil {
		return nil, fmt.Errorf("missing transaction list in bank statement")
	}

	return c.buildResult(bankCode, accountNumber, stmt.CurDef.String(), stmt.BankTranList)
}

// parseCreditCard parses a credit card statement
func (c *Converter) parseCreditCard(resp *ofxgo.Response, bankCode string) (*converter.ParseResult, error) {
	stmt, ok := resp.CreditCard[0].(*ofxgo.CCStatementResponse)
	if !ok {
		return nil, fmt.Errorf("unexpected credit card statement type %T", resp.CreditCard[0])
	}

	accountNumber := stmt.CCAcctFrom.AcctID.String()
	if accountNumber == "" {
		return nil, fmt.Errorf("missing account ID in credit card statement")
	}
	if stmt.BankTranList == nil {
		return nil, fmt.Errorf("missing transaction list in credit card statement")
	}

	return c.buildResult(bankCode, accountNumber, stmt.CurDef.String(), stmt.BankTranList)
}

// buildResult converts an OFX transaction list into the normalized shape
func (c *Converter) buildResult(bankCode, accountNumber, currency string, tranList *ofxgo.TransactionList) (*converter.ParseResult, error) {
	if currency == "" {
		currency = "USD"
	}

	transactions := make([]converter.ParsedTransaction, 0, len(tranList.Transactions))
	for i, txn := range tranList.Transactions {
		fitID := txn.FiTID.String()
		if fitID == "" {
			return nil, fmt.Errorf("transaction %d missing required FITID", i)
		}

		date := txn.DtPosted.Time
		if date.IsZero() {
			return nil, fmt.Errorf("transaction %s missing posted date", fitID)
		}

		// OFX amounts are already signed: positive in, negative out.
		amount, _ := txn.TrnAmt.Float64()

		payee := strings.TrimSpace(txn.Name.String())
		memo := strings.TrimSpace(txn.Memo.String())
		if payee == "" {
			payee = memo
		}

		transactions = append(transactions, converter.ParsedTransaction{
			FitID:         fitID,
			Date:          date.Format("2006-01-02"),
			Amount:        amount,
			Currency:      currency,
			Payee:         converter.Truncate(payee, 32),
			Memo:          converter.Truncate(memo, 255),
			AccountNumber: accountNumber,
		})
	}

	return &converter.ParseResult{
		BankCode:      bankCode,
		AccountNumber: accountNumber,
		Currency:      currency,
		DateStart:     tranList.DtStart.Time.Format("2006-01-02"),
		DateEnd:       tranList.DtEnd.Time.Format("2006-01-02"),
		Transactions:  transactions,
	}, nil
}

// deriveBankCode builds a 6-char SWIFT-like code from the signon ORG:
// uppercased alphanumerics, truncated to 6. Falls back to the generic code.
func deriveBankCode(resp *ofxgo.Response) string {
	org := strings.ToUpper(resp.Signon.Org.String())
	var b strings.Builder
	for _, r := range org {
		if (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9') {
			b.WriteRune(r)
		}
	}
	code := b.String()
	if code == "" {
		return "OFXUNK"
	}
	if len(code) > 6 {
		code = code[:6]
	}
	return code
}

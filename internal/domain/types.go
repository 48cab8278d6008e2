// Package domain defines the ledger types shared across the import core.
package domain

import (
	"fmt"
	"time"
)

// AccountType represents the account type enum.
// Use ValidateAccountType to ensure validity before use.
type AccountType string

const (
	AccountTypeCash     AccountType = "cash"
	AccountTypeChecking AccountType = "checking"
	AccountTypeCard     AccountType = "ccard"
	AccountTypeDeposit  AccountType = "deposit"
	AccountTypeLoan     AccountType = "loan"
	AccountTypeDebt     AccountType = "debt"
)

var validAccountTypes = map[AccountType]struct{}{
	AccountTypeCash: {}, AccountTypeChecking: {}, AccountTypeCard: {},
	AccountTypeDeposit: {}, AccountTypeLoan: {}, AccountTypeDebt: {},
}

// ValidateAccountType checks if account type is valid
func ValidateAccountType(t AccountType) bool {
	_, ok := validAccountTypes[t]
	return ok
}

// TrType classifies a transaction by which sides carry money and whether a
// debt account is involved.
type TrType string

const (
	TrTypeIncome      TrType = "income"
	TrTypeOutcome     TrType = "outcome"
	TrTypeTransfer    TrType = "transfer"
	TrTypeIncomeDebt  TrType = "incomeDebt"
	TrTypeOutcomeDebt TrType = "outcomeDebt"
)

// DeletionSentinel marks a permanently deleted transaction: both income and
// outcome are set to this near-zero value instead of removing the record.
const DeletionSentinel = 0.00001

// deletionThreshold is intentionally above the sentinel so float noise on a
// sentinel value still reads as deleted.
const deletionThreshold = 0.0001

// Account is an entry in the account directory.
type Account struct {
	ID   string `json:"id"`
	User string `json:"user"`
	// Instrument is the account currency code (e.g. "AMD", "RUB").
	Instrument string      `json:"instrument"`
	Title      string      `json:"title"`
	Type       AccountType `json:"type"`
	Archive    bool        `json:"archive"`
	// SwiftCode is the 6-char bank identifier used for statement matching.
	SwiftCode string `json:"swiftCode,omitempty"`
	// BankAccountNumber is the full account number as printed on statements.
	BankAccountNumber string `json:"bankAccountNumber,omitempty"`
	// SyncID holds legacy sync identifiers (usually card/account number tails).
	SyncID []string `json:"syncID,omitempty"`
}

// NewAccount creates a validated account
func NewAccount(id, user, instrument, title string, accountType AccountType) (*Account, error) {
	if id == "" {
		return nil, fmt.Errorf("account ID cannot be empty")
	}
	if instrument == "" {
		return nil, fmt.Errorf("account instrument cannot be empty")
	}
	if title == "" {
		return nil, fmt.Errorf("account title cannot be empty")
	}
	if !ValidateAccountType(accountType) {
		return nil, fmt.Errorf("invalid account type: %s", accountType)
	}

	return &Account{
		ID:         id,
		User:       user,
		Instrument: instrument,
		Title:      title,
		Type:       accountType,
	}, nil
}

// Transaction is the canonical ledger record.
//
// Sign convention: Income and Outcome are both non-negative. A plain income
// or expense has exactly one nonzero side; a transfer has both. Imported
// statement postings always reference the same account on both sides.
type Transaction struct {
	ID   string `json:"id"`
	User string `json:"user"`
	Date string `json:"date"` // ISO format YYYY-MM-DD

	IncomeAccount     string  `json:"incomeAccount"`
	OutcomeAccount    string  `json:"outcomeAccount"`
	IncomeInstrument  string  `json:"incomeInstrument"`
	OutcomeInstrument string  `json:"outcomeInstrument"`
	Income            float64 `json:"income"`
	Outcome           float64 `json:"outcome"`

	Payee         string `json:"payee,omitempty"`
	OriginalPayee string `json:"originalPayee,omitempty"`
	Comment       string `json:"comment,omitempty"`
	// Tag is the ordered category list. nil means uncategorized.
	Tag []string `json:"tag"`

	Deleted bool  `json:"deleted"`
	Viewed  bool  `json:"viewed"`
	Created int64 `json:"created"` // epoch ms
	Changed int64 `json:"changed"` // epoch ms
}

// NewTransaction creates a validated transaction
func NewTransaction(id, user, date string) (*Transaction, error) {
	if id == "" {
		return nil, fmt.Errorf("transaction ID cannot be empty")
	}
	if _, err := time.Parse("2006-01-02", date); err != nil {
		return nil, fmt.Errorf("invalid date format: %w", err)
	}

	now := time.Now().UnixMilli()
	return &Transaction{
		ID:      id,
		User:    user,
		Date:    date,
		Created: now,
		Changed: now,
	}, nil
}

// Validate checks the invariants a ledger store relies on.
func (t *Transaction) Validate() error {
	if t.ID == "" {
		return fmt.Errorf("transaction ID cannot be empty")
	}
	if _, err := time.Parse("2006-01-02", t.Date); err != nil {
		return fmt.Errorf("transaction %s: invalid date %q: %w", t.ID, t.Date, err)
	}
	if t.Income < 0 || t.Outcome < 0 {
		return fmt.Errorf("transaction %s: income and outcome must be non-negative", t.ID)
	}
	if t.IncomeAccount == "" && t.OutcomeAccount == "" {
		return fmt.Errorf("transaction %s: at least one account must be set", t.ID)
	}
	return nil
}

// IsDeleted reports whether the transaction is deleted under either
// convention: the explicit flag, or the near-zero amount sentinel on both
// sides.
func (t *Transaction) IsDeleted() bool {
	if t.Deleted {
		return true
	}
	return t.Income < deletionThreshold && t.Outcome < deletionThreshold
}

// IsViewed reports whether the user has seen the transaction.
func (t *Transaction) IsViewed() bool {
	return t.Viewed
}

// Type classifies the transaction. debtAccounts is the set of account IDs
// whose type is AccountTypeDebt; money arriving into a debt account means the
// user lent it out, money leaving one means the user borrowed.
func (t *Transaction) Type(debtAccounts map[string]bool) TrType {
	if debtAccounts[t.IncomeAccount] {
		return TrTypeOutcomeDebt
	}
	if debtAccounts[t.OutcomeAccount] {
		return TrTypeIncomeDebt
	}
	if t.Income > 0 && t.Outcome > 0 {
		return TrTypeTransfer
	}
	if t.Outcome > 0 {
		return TrTypeOutcome
	}
	return TrTypeIncome
}

// Package importer composes parsing, account matching, duplicate detection
// and the ledger into the end-to-end statement import operation.
package importer

import (
	"errors"
	"fmt"
	"log"
	"math"
	"time"

	"github.com/google/uuid"

	"github.com/rumor-ml/commons.systems/bankimport/internal/converter"
	"github.com/rumor-ml/commons.systems/bankimport/internal/converter/insjam"
	"github.com/rumor-ml/commons.systems/bankimport/internal/converter/ofx"
	"github.com/rumor-ml/commons.systems/bankimport/internal/converter/rzbmru"
	"github.com/rumor-ml/commons.systems/bankimport/internal/dedup"
	"github.com/rumor-ml/commons.systems/bankimport/internal/domain"
	"github.com/rumor-ml/commons.systems/bankimport/internal/history"
	"github.com/rumor-ml/commons.systems/bankimport/internal/match"
	"github.com/rumor-ml/commons.systems/bankimport/internal/rules"
)

// ErrAccountNotFound aborts an import before any mutation.
var ErrAccountNotFound = errors.New("account not found")

// Ledger is the transaction store collaborator. *ledger.Store satisfies it.
type Ledger interface {
	Account(id string) (*domain.Account, bool)
	Accounts() map[string]*domain.Account
	TransactionsByID() map[string]*domain.Transaction
	// ApplyPatch applies a batch of new transactions all-or-nothing.
	ApplyPatch(transactions []*domain.Transaction) error
}

// Options control a single import call.
type Options struct {
	// AccountID is the target account for all imported postings.
	AccountID string
	// SkipDuplicates skips transactions the duplicate heuristic flags.
	SkipDuplicates bool
}

// Result summarizes an import for the caller's UI.
type Result struct {
	Imported int             `json:"imported"`
	Skipped  int             `json:"skipped"`
	Record   *history.Record `json:"importRecord"`
}

// DefaultRegistry builds the converter registry in its canonical order.
// Bank-specific converters come first; the generic OFX converter is last so
// it never shadows them.
func DefaultRegistry() *converter.Registry {
	return converter.NewRegistry(
		insjam.New(),
		rzbmru.New(),
		ofx.New(),
	)
}

// Importer runs statement imports against a ledger and a history store.
type Importer struct {
	registry *converter.Registry
	ledger   Ledger
	history  history.Store
	rules    *rules.Engine // optional; nil means no auto-categorization
}

// New creates an importer with the default converter registry.
func New(ledger Ledger, hist history.Store) *Importer {
	return &Importer{
		registry: DefaultRegistry(),
		ledger:   ledger,
		history:  hist,
	}
}

// SetRules enables payee-based categorization of imported transactions.
func (imp *Importer) SetRules(engine *rules.Engine) {
	imp.rules = engine
}

// Registry exposes the converter registry for bank listings.
func (imp *Importer) Registry() *converter.Registry {
	return imp.registry
}

// PreviewImport parses the statement without side effects, to drive a
// confirmation step before committing.
func (imp *Importer) PreviewImport(fileContent, fileName string) (*converter.ParseResult, error) {
	return imp.registry.ParseStatement(fileContent, fileName)
}

// SuggestAccount proposes a target account for a parsed statement, or nil.
func (imp *Importer) SuggestAccount(result *converter.ParseResult) *domain.Account {
	return match.SuggestAccount(imp.ledger.Accounts(), result)
}

// ImportStatement imports one statement file into the target account.
//
// The call either applies all non-duplicate transactions in a single batch
// or fails before any mutation: account resolution and parsing both happen
// up front.
func (imp *Importer) ImportStatement(fileContent, fileName string, opts Options) (*Result, error) {
	targetAccount, ok := imp.ledger.Account(opts.AccountID)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrAccountNotFound, opts.AccountID)
	}

	parseResult, err := imp.registry.ParseStatement(fileContent, fileName)
	if err != nil {
		return nil, err
	}

	existing := imp.ledger.TransactionsByID()

	var transactions []*domain.Transaction
	skipped := 0
	for _, parsed := range parseResult.Transactions {
		if opts.SkipDuplicates && dedup.IsDuplicate(&parsed, existing, opts.AccountID) {
			skipped++
			continue
		}
		transactions = append(transactions, imp.buildTransaction(&parsed, targetAccount))
	}

	if len(transactions) > 0 {
		if err := imp.ledger.ApplyPatch(transactions); err != nil {
			return nil, fmt.Errorf("failed to apply imported transactions: %w", err)
		}
	}

	transactionIDs := make([]string, len(transactions))
	for i, tr := range transactions {
		transactionIDs[i] = tr.ID
	}

	record := &history.Record{
		ID:               uuid.New().String(),
		AccountID:        opts.AccountID,
		BankCode:         parseResult.BankCode,
		FileName:         fileName,
		ImportDate:       time.Now().UnixMilli(),
		DateRangeStart:   parseResult.DateStart,
		DateRangeEnd:     parseResult.DateEnd,
		TransactionCount: len(transactions),
		TransactionIDs:   transactionIDs,
	}
	if err := imp.history.Add(record); err != nil {
		// History is non-critical metadata; the import itself succeeded.
		log.Printf("WARNING: failed to record import history: %v", err)
	}

	return &Result{
		Imported: len(transactions),
		Skipped:  skipped,
		Record:   record,
	}, nil
}

// buildTransaction converts a parsed statement line into a ledger posting.
// Imports are always same-account postings, never transfers: both sides
// reference the target account and the amount sign picks which side carries
// the money.
func (imp *Importer) buildTransaction(parsed *converter.ParsedTransaction, account *domain.Account) *domain.Transaction {
	isIncome := parsed.Amount > 0
	amount := math.Abs(parsed.Amount)

	now := time.Now().UnixMilli()
	tr := &domain.Transaction{
		ID:   uuid.New().String(),
		User: account.User,
		Date: parsed.Date,

		IncomeAccount:     account.ID,
		OutcomeAccount:    account.ID,
		IncomeInstrument:  account.Instrument,
		OutcomeInstrument: account.Instrument,

		Payee:         parsed.Payee,
		OriginalPayee: parsed.Payee,
		Comment:       converter.Truncate(fmt.Sprintf("[Import: %s] %s", parsed.FitID, parsed.Memo), 255),

		Created: now,
		Changed: now,
	}
	if isIncome {
		tr.Income = amount
	} else {
		tr.Outcome = amount
	}

	if imp.rules != nil {
		if tag, ok := imp.rules.Match(parsed.Payee); ok {
			tr.Tag = []string{tag}
		}
	}
	return tr
}

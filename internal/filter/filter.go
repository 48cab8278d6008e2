// Package filter evaluates composable boolean conditions against ledger
// transactions. It powers transaction-list filtering independently of the
// import flow.
package filter

import (
	"errors"
	"fmt"
	"strings"

	"github.com/rumor-ml/commons.systems/bankimport/internal/domain"
)

// ErrUnknownField reports a condition referencing a field that is neither a
// special filter nor a transaction field. Unknown fields are a configuration
// error: silently ignoring one would produce a wrong result set.
var ErrUnknownField = errors.New("unknown filtering field")

// Condition is a recursive filter over transactions. Every present field
// must pass independently (implicit AND across fields). Absent fields are
// vacuously true, as are empty Or/And lists.
type Condition struct {
	// Search matches case-insensitively against comment or payee.
	Search string
	// Type matches the derived transaction type.
	Type *StringCondition
	// Types is a membership filter over derived transaction types.
	Types []domain.TrType
	// ShowDeleted lets deleted transactions through instead of excluding
	// them. Deleted transactions are filtered out by every condition
	// unless ShowDeleted or OnlyDeleted is set.
	ShowDeleted bool
	// OnlyDeleted demands the transaction IS deleted.
	OnlyDeleted bool
	// IsViewed matches the viewed flag when set.
	IsViewed *bool
	// Tags matches category overlap. Only income/outcome transactions can
	// match; transfers and debt transactions never do. The sentinel value
	// "null" means "transaction has no tags".
	Tags []string
	// MainTag matches the first category.
	MainTag *StringCondition
	// Month matches the ISO month (YYYY-MM) of the transaction date.
	Month *StringCondition
	// Account matches either the income or the outcome account.
	Account *StringCondition
	// Accounts is a membership filter over both accounts.
	Accounts []string
	// Currencies is a membership filter over both instruments.
	Currencies []string
	// Amount matches income for income transactions, outcome for outcome
	// transactions, and either side otherwise.
	Amount *ValueCondition
	// DateFrom/DateTo are inclusive ISO date bounds.
	DateFrom string
	DateTo   string

	// Or passes when any nested condition passes (vacuously true when
	// empty); And when all do.
	Or  []*Condition
	And []*Condition

	// Fields holds generic per-field conditions keyed by transaction field
	// name (e.g. "payee", "income"). Unknown names are a configuration
	// error.
	Fields map[string]*ValueCondition
}

// Engine evaluates conditions. It is pure and reentrant; a single engine may
// be used concurrently across many transactions.
type Engine struct {
	debtAccounts map[string]bool
}

// NewEngine creates an engine. debtAccountIDs lists the accounts of debt
// type, needed to derive transaction types.
func NewEngine(debtAccountIDs []string) *Engine {
	debt := make(map[string]bool, len(debtAccountIDs))
	for _, id := range debtAccountIDs {
		debt[id] = true
	}
	return &Engine{debtAccounts: debt}
}

// Check reports whether the transaction matches the condition. A nil
// condition matches every non-deleted transaction.
func (e *Engine) Check(tr *domain.Transaction, cond *Condition) (bool, error) {
	// Deletion visibility is checked unconditionally first: deleted
	// transactions are invisible unless the condition opts in.
	if !checkDeleted(tr, cond) {
		return false, nil
	}
	if cond == nil {
		return true, nil
	}

	if !checkSearch(tr, cond.Search) {
		return false, nil
	}
	trType := tr.Type(e.debtAccounts)
	if !cond.Type.Check(string(trType)) {
		return false, nil
	}
	if !checkTypes(trType, cond.Types) {
		return false, nil
	}
	if cond.IsViewed != nil && tr.IsViewed() != *cond.IsViewed {
		return false, nil
	}
	if !checkTags(tr, trType, cond.Tags) {
		return false, nil
	}
	if !cond.MainTag.Check(mainTag(tr)) {
		return false, nil
	}
	if !cond.Month.Check(isoMonth(tr.Date)) {
		return false, nil
	}
	if cond.Account != nil &&
		!cond.Account.Check(tr.IncomeAccount) && !cond.Account.Check(tr.OutcomeAccount) {
		return false, nil
	}
	if !checkMembership(cond.Accounts, tr.IncomeAccount, tr.OutcomeAccount) {
		return false, nil
	}
	if !checkMembership(cond.Currencies, tr.IncomeInstrument, tr.OutcomeInstrument) {
		return false, nil
	}
	if !checkAmount(tr, trType, cond.Amount) {
		return false, nil
	}
	if cond.DateFrom != "" && tr.Date < cond.DateFrom {
		return false, nil
	}
	if cond.DateTo != "" && tr.Date > cond.DateTo {
		return false, nil
	}

	// Logical combinators, evaluated recursively. Empty lists are
	// vacuously true.
	if cond.Or != nil {
		matched := len(cond.Or) == 0
		for _, nested := range cond.Or {
			ok, err := e.Check(tr, nested)
			if err != nil {
				return false, err
			}
			if ok {
				matched = true
				break
			}
		}
		if !matched {
			return false, nil
		}
	}
	for _, nested := range cond.And {
		ok, err := e.Check(tr, nested)
		if err != nil {
			return false, err
		}
		if !ok {
			return false, nil
		}
	}

	// Generic per-field fallback.
	for name, vc := range cond.Fields {
		v, ok := fieldValue(tr, name)
		if !ok {
			return false, fmt.Errorf("%w: %s", ErrUnknownField, name)
		}
		if !vc.Check(v) {
			return false, nil
		}
	}

	return true, nil
}

// Predicate validates the condition once and returns a reusable predicate.
// Field-name errors surface here instead of on every call.
func (e *Engine) Predicate(cond *Condition) (func(*domain.Transaction) bool, error) {
	if err := validateFields(cond); err != nil {
		return nil, err
	}
	return func(tr *domain.Transaction) bool {
		ok, err := e.Check(tr, cond)
		if err != nil {
			// validateFields already rejected unknown names, the
			// only error source.
			return false
		}
		return ok
	}, nil
}

func validateFields(cond *Condition) error {
	if cond == nil {
		return nil
	}
	for name := range cond.Fields {
		if _, ok := fieldValue(&domain.Transaction{}, name); !ok {
			return fmt.Errorf("%w: %s", ErrUnknownField, name)
		}
	}
	for _, nested := range cond.Or {
		if err := validateFields(nested); err != nil {
			return err
		}
	}
	for _, nested := range cond.And {
		if err := validateFields(nested); err != nil {
			return err
		}
	}
	return nil
}

func checkDeleted(tr *domain.Transaction, cond *Condition) bool {
	deleted := tr.IsDeleted()
	if cond != nil && cond.OnlyDeleted {
		return deleted
	}
	if deleted {
		return cond != nil && cond.ShowDeleted
	}
	return true
}

func checkSearch(tr *domain.Transaction, search string) bool {
	if search == "" {
		return true
	}
	needle := strings.ToUpper(search)
	return strings.Contains(strings.ToUpper(tr.Comment), needle) ||
		strings.Contains(strings.ToUpper(tr.Payee), needle)
}

func checkTypes(trType domain.TrType, types []domain.TrType) bool {
	if len(types) == 0 {
		return true
	}
	for _, t := range types {
		if t == trType {
			return true
		}
	}
	return false
}

func checkTags(tr *domain.Transaction, trType domain.TrType, tags []string) bool {
	if len(tags) == 0 {
		return true
	}
	// A tags filter only ever matches plain income or outcome
	// transactions; transfers and debts carry no category semantics.
	if trType != domain.TrTypeIncome && trType != domain.TrTypeOutcome {
		return false
	}
	for _, tagID := range tags {
		if tagID == "null" {
			if len(tr.Tag) == 0 {
				return true
			}
			continue
		}
		for _, trTag := range tr.Tag {
			if trTag == tagID {
				return true
			}
		}
	}
	return false
}

func checkAmount(tr *domain.Transaction, trType domain.TrType, cond *ValueCondition) bool {
	if cond == nil {
		return true
	}
	switch trType {
	case domain.TrTypeIncome:
		return cond.Check(tr.Income)
	case domain.TrTypeOutcome:
		return cond.Check(tr.Outcome)
	default:
		return cond.Check(tr.Income) || cond.Check(tr.Outcome)
	}
}

func checkMembership(wanted []string, a, b string) bool {
	if len(wanted) == 0 {
		return true
	}
	for _, w := range wanted {
		if w == a || w == b {
			return true
		}
	}
	return false
}

func mainTag(tr *domain.Transaction) string {
	if len(tr.Tag) == 0 {
		return ""
	}
	return tr.Tag[0]
}

// isoMonth truncates an ISO date to YYYY-MM.
func isoMonth(date string) string {
	if len(date) < 7 {
		return date
	}
	return date[:7]
}

// fieldValue looks a generic condition field up on the transaction record.
// The second return is false for names that are not transaction fields.
func fieldValue(tr *domain.Transaction, name string) (any, bool) {
	switch name {
	case "id":
		return tr.ID, true
	case "user":
		return tr.User, true
	case "date":
		return tr.Date, true
	case "payee":
		return tr.Payee, true
	case "originalPayee":
		return tr.OriginalPayee, true
	case "comment":
		return tr.Comment, true
	case "incomeAccount":
		return tr.IncomeAccount, true
	case "outcomeAccount":
		return tr.OutcomeAccount, true
	case "incomeInstrument":
		return tr.IncomeInstrument, true
	case "outcomeInstrument":
		return tr.OutcomeInstrument, true
	case "income":
		return tr.Income, true
	case "outcome":
		return tr.Outcome, true
	case "deleted":
		return tr.Deleted, true
	case "viewed":
		return tr.Viewed, true
	case "created":
		return tr.Created, true
	case "changed":
		return tr.Changed, true
	}
	return nil, false
}

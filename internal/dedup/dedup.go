// Package dedup decides whether a parsed statement transaction already
// exists in the ledger.
package dedup

import (
	"math"
	"strings"

	"github.com/rumor-ml/commons.systems/bankimport/internal/converter"
	"github.com/rumor-ml/commons.systems/bankimport/internal/domain"
)

// amountTolerance absorbs floating rounding between bank exports and stored
// ledger amounts.
const amountTolerance = 0.01

// IsDuplicate reports whether parsed looks like an existing transaction on
// the target account.
//
// A parsed transaction is a duplicate of an existing one iff the existing
// transaction is not deleted, the dates are exactly equal, the existing
// transaction involves the target account, the matching-side amount agrees
// within the tolerance, and either the payee matches or the comment carries
// the parsed transaction's bank-native ID.
//
// This is a heuristic, not an exact match. Short bank-native IDs can produce
// false positives via the comment-substring check; that behavior is kept as
// the surrounding application expects it.
func IsDuplicate(parsed *converter.ParsedTransaction, existing map[string]*domain.Transaction, accountID string) bool {
	parsedAmount := math.Abs(parsed.Amount)

	for _, tr := range existing {
		if tr.IsDeleted() {
			continue
		}
		if tr.Date != parsed.Date {
			continue
		}
		if tr.IncomeAccount != accountID && tr.OutcomeAccount != accountID {
			continue
		}

		// Positive parsed amounts compare against the income side,
		// negative against the outcome side.
		trAmount := tr.Income
		if parsed.Amount <= 0 {
			trAmount = tr.Outcome
		}
		if math.Abs(trAmount-parsedAmount) > amountTolerance {
			continue
		}

		if tr.Payee == parsed.Payee ||
			tr.OriginalPayee == parsed.Payee ||
			(tr.Comment != "" && strings.Contains(tr.Comment, parsed.FitID)) {
			return true
		}
	}
	return false
}

// Package match resolves which ledger account a parsed statement belongs to.
package match

import (
	"strings"

	"github.com/rumor-ml/commons.systems/bankimport/internal/converter"
	"github.com/rumor-ml/commons.systems/bankimport/internal/domain"
)

// AccountsByID is the account directory shape the matcher operates on.
// Iteration order over the map is not deterministic; matching only relies on
// the priority between match classes, never on ordering within one.
type AccountsByID map[string]*domain.Account

// BySwift returns an account whose SWIFT code equals the first 6 chars of
// bankCode, case-insensitively. Archived accounts never match.
func BySwift(accounts AccountsByID, bankCode string) *domain.Account {
	swiftPrefix := bankCode
	if len(swiftPrefix) > 6 {
		swiftPrefix = swiftPrefix[:6]
	}
	swiftPrefix = strings.ToUpper(swiftPrefix)

	for _, acc := range accounts {
		if acc.Archive {
			continue
		}
		if acc.SwiftCode != "" && strings.ToUpper(acc.SwiftCode) == swiftPrefix {
			return acc
		}
	}
	return nil
}

// ByNumber returns an account matching the statement's account number:
// either an exact match on the stored bank account number, or any stored
// sync identifier contained in the statement's number. Archived accounts
// never match.
func ByNumber(accounts AccountsByID, accountNumber string) *domain.Account {
	if accountNumber == "" {
		return nil
	}

	for _, acc := range accounts {
		if acc.Archive {
			continue
		}
		if acc.BankAccountNumber != "" && acc.BankAccountNumber == accountNumber {
			return acc
		}
		for _, syncID := range acc.SyncID {
			if syncID != "" && strings.Contains(accountNumber, syncID) {
				return acc
			}
		}
	}
	return nil
}

// AllBySwift returns every account matching the SWIFT code, for the case
// where the user holds multiple accounts in the same bank.
func AllBySwift(accounts AccountsByID, bankCode string) []*domain.Account {
	swiftPrefix := bankCode
	if len(swiftPrefix) > 6 {
		swiftPrefix = swiftPrefix[:6]
	}
	swiftPrefix = strings.ToUpper(swiftPrefix)

	var result []*domain.Account
	for _, acc := range accounts {
		if acc.Archive {
			continue
		}
		if acc.SwiftCode != "" && strings.ToUpper(acc.SwiftCode) == swiftPrefix {
			result = append(result, acc)
		}
	}
	return result
}

// SuggestAccount picks the best target account for a parsed statement.
// Account number matches are preferred over SWIFT matches since they are
// more specific. Returns nil when nothing matches; the caller falls back to
// a pre-selected or user-chosen account.
func SuggestAccount(accounts AccountsByID, result *converter.ParseResult) *domain.Account {
	if result.AccountNumber != "" {
		if acc := ByNumber(accounts, result.AccountNumber); acc != nil {
			return acc
		}
	}
	return BySwift(accounts, result.BankCode)
}

// Package ledger is a file-backed transaction and account store. It stands
// in for the host application's ledger: a key-value transaction store keyed
// by transaction ID plus an account directory.
package ledger

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"

	"github.com/rumor-ml/commons.systems/bankimport/internal/domain"
)

// Store holds accounts and transactions in memory with optional JSON file
// persistence. Reads may happen concurrently; writes assume a single writer
// per call, matching the import core's contract.
type Store struct {
	mu           sync.RWMutex
	accounts     map[string]*domain.Account
	transactions map[string]*domain.Transaction
}

// fileFormat is the on-disk JSON layout.
type fileFormat struct {
	Accounts     []*domain.Account     `json:"accounts"`
	Transactions []*domain.Transaction `json:"transactions"`
}

// NewStore creates an empty store.
func NewStore() *Store {
	return &Store{
		accounts:     make(map[string]*domain.Account),
		transactions: make(map[string]*domain.Transaction),
	}
}

// Load reads a ledger file. A missing file is an error: this is financial
// data, silently starting empty would hide data loss from the user.
func Load(path string) (*Store, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read ledger file: %w", err)
	}

	var f fileFormat
	if err := json.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("failed to decode ledger file %s: %w", path, err)
	}

	s := NewStore()
	for _, acc := range f.Accounts {
		if err := s.AddAccount(acc); err != nil {
			return nil, fmt.Errorf("ledger file %s: %w", path, err)
		}
	}
	for _, tr := range f.Transactions {
		if err := tr.Validate(); err != nil {
			return nil, fmt.Errorf("ledger file %s: %w", path, err)
		}
		s.transactions[tr.ID] = tr
	}
	return s, nil
}

// Save atomically writes the ledger to disk: write to a temp file, then
// rename.
func (s *Store) Save(path string) error {
	s.mu.RLock()
	f := fileFormat{
		Accounts:     s.accountSlice(),
		Transactions: s.transactionSlice(),
	}
	s.mu.RUnlock()

	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create directory: %w", err)
	}

	data, err := json.MarshalIndent(&f, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal ledger: %w", err)
	}

	tempFile := path + ".tmp"
	if err := os.WriteFile(tempFile, data, 0644); err != nil {
		return fmt.Errorf("failed to write temp file: %w", err)
	}
	if err := os.Rename(tempFile, path); err != nil {
		os.Remove(tempFile)
		return fmt.Errorf("failed to rename temp file: %w", err)
	}
	return nil
}

// AddAccount adds a validated account, rejecting duplicate IDs.
func (s *Store) AddAccount(acc *domain.Account) error {
	if acc.ID == "" || acc.Title == "" {
		return fmt.Errorf("invalid account: ID and Title are required")
	}
	if !domain.ValidateAccountType(acc.Type) {
		return fmt.Errorf("account %s: invalid type %q", acc.ID, acc.Type)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.accounts[acc.ID]; ok {
		return fmt.Errorf("account %s: %w", acc.ID, domain.ErrAlreadyExists)
	}
	s.accounts[acc.ID] = acc
	return nil
}

// Account returns an account by ID.
func (s *Store) Account(id string) (*domain.Account, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	acc, ok := s.accounts[id]
	return acc, ok
}

// Accounts returns the account directory keyed by ID. The returned map is a
// copy; the records are shared and must be treated as immutable.
func (s *Store) Accounts() map[string]*domain.Account {
	s.mu.RLock()
	defer s.mu.RUnlock()
	result := make(map[string]*domain.Account, len(s.accounts))
	for id, acc := range s.accounts {
		result[id] = acc
	}
	return result
}

// DebtAccountIDs lists the IDs of debt-type accounts, for the filter engine.
func (s *Store) DebtAccountIDs() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var ids []string
	for id, acc := range s.accounts {
		if acc.Type == domain.AccountTypeDebt {
			ids = append(ids, id)
		}
	}
	sort.Strings(ids)
	return ids
}

// ApplyPatch upserts a batch of transactions. Every record is validated
// before any is applied, so the batch is all-or-nothing.
func (s *Store) ApplyPatch(transactions []*domain.Transaction) error {
	for _, tr := range transactions {
		if err := tr.Validate(); err != nil {
			return err
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	for _, tr := range transactions {
		s.transactions[tr.ID] = tr
	}
	return nil
}

// Transaction returns a transaction by ID.
func (s *Store) Transaction(id string) (*domain.Transaction, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	tr, ok := s.transactions[id]
	return tr, ok
}

// TransactionsByID returns all transactions keyed by ID. The returned map is
// a copy; the records are shared and must be treated as immutable.
func (s *Store) TransactionsByID() map[string]*domain.Transaction {
	s.mu.RLock()
	defer s.mu.RUnlock()
	result := make(map[string]*domain.Transaction, len(s.transactions))
	for id, tr := range s.transactions {
		result[id] = tr
	}
	return result
}

func (s *Store) accountSlice() []*domain.Account {
	accounts := make([]*domain.Account, 0, len(s.accounts))
	for _, acc := range s.accounts {
		accounts = append(accounts, acc)
	}
	sort.Slice(accounts, func(i, j int) bool { return accounts[i].ID < accounts[j].ID })
	return accounts
}

func (s *Store) transactionSlice() []*domain.Transaction {
	transactions := make([]*domain.Transaction, 0, len(s.transactions))
	for _, tr := range s.transactions {
		transactions = append(transactions, tr)
	}
	sort.Slice(transactions, func(i, j int) bool {
		if transactions[i].Date != transactions[j].Date {
			return transactions[i].Date < transactions[j].Date
		}
		return transactions[i].ID < transactions[j].ID
	})
	return transactions
}

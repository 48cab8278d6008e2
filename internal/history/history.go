// Package history persists import records. History is non-critical metadata:
// unreadable or corrupted storage degrades to an empty list, never an error.
package history

import (
	"sort"
	"sync"
)

// MaxRecords caps retained history; the oldest records are evicted first.
const MaxRecords = 100

// Record captures a single completed import.
type Record struct {
	ID        string `json:"id"`
	AccountID string `json:"accountId"`
	BankCode  string `json:"bankCode"`
	FileName  string `json:"fileName"`
	// ImportDate is when the import was performed, epoch ms.
	ImportDate     int64  `json:"importDate"`
	DateRangeStart string `json:"dateRangeStart"`
	DateRangeEnd   string `json:"dateRangeEnd"`
	// TransactionIDs enables a potential undo.
	TransactionCount int      `json:"transactionCount"`
	TransactionIDs   []string `json:"transactionIds"`
}

// Store is the import history collaborator. Implementations own the record
// lifecycle; records are immutable once added.
type Store interface {
	// Add persists a record, evicting the oldest beyond MaxRecords.
	Add(record *Record) error

	// Remove deletes a record by ID. Removing a missing ID is not an error.
	Remove(id string) error

	// List returns records ordered by recency, newest first. Storage
	// problems yield an empty list, not an error.
	List() []*Record
}

// MemoryStore is an in-process Store for tests and callers that do not need
// persistence.
type MemoryStore struct {
	mu      sync.Mutex
	records []*Record
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{}
}

// Add prepends the record and trims to MaxRecords.
func (s *MemoryStore) Add(record *Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.records = append([]*Record{record}, s.records...)
	if len(s.records) > MaxRecords {
		s.records = s.records[:MaxRecords]
	}
	return nil
}

// Remove deletes the record with the given ID.
func (s *MemoryStore) Remove(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	kept := s.records[:0]
	for _, r := range s.records {
		if r.ID != id {
			kept = append(kept, r)
		}
	}
	s.records = kept
	return nil
}

// List returns the records newest first.
func (s *MemoryStore) List() []*Record {
	s.mu.Lock()
	defer s.mu.Unlock()
	result := make([]*Record, len(s.records))
	copy(result, s.records)
	sort.SliceStable(result, func(i, j int) bool {
		return result[i].ImportDate > result[j].ImportDate
	})
	return result
}

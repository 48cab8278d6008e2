package history

import (
	"fmt"
	"path/filepath"
	"testing"
)

func openTestStore(t *testing.T) *SQLiteStore {
	t.Helper()
	s, err := OpenSQLite(filepath.Join(t.TempDir(), "history.db"))
	if err != nil {
		t.Fatalf("OpenSQLite() error = %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func TestSQLiteStore_AddAndList(t *testing.T) {
	s := openTestStore(t)

	if err := s.Add(record("r1", 100)); err != nil {
		t.Fatalf("Add() error = %v", err)
	}
	if err := s.Add(record("r2", 200)); err != nil {
		t.Fatalf("Add() error = %v", err)
	}

	records := s.List()
	if len(records) != 2 {
		t.Fatalf("List() returned %d records, want 2", len(records))
	}
	if records[0].ID != "r2" {
		t.Errorf("List()[0] = %s, want r2 (newest first)", records[0].ID)
	}

	got := records[1]
	if got.AccountID != "acc-1" || got.BankCode != "INSJAM" || got.FileName != "statement.xml" {
		t.Errorf("record fields not round-tripped: %+v", got)
	}
	if got.DateRangeStart != "2024-03-01" || got.DateRangeEnd != "2024-03-31" {
		t.Errorf("date range not round-tripped: %+v", got)
	}
	if len(got.TransactionIDs) != 2 || got.TransactionIDs[0] != "tr-1" {
		t.Errorf("transaction IDs not round-tripped: %v", got.TransactionIDs)
	}
}

func TestSQLiteStore_DuplicateID(t *testing.T) {
	s := openTestStore(t)

	if err := s.Add(record("r1", 100)); err != nil {
		t.Fatalf("Add() error = %v", err)
	}
	if err := s.Add(record("r1", 200)); err == nil {
		t.Error("Add() should reject a duplicate primary key")
	}
}

func TestSQLiteStore_Remove(t *testing.T) {
	s := openTestStore(t)
	s.Add(record("r1", 100))
	s.Add(record("r2", 200))

	if err := s.Remove("r1"); err != nil {
		t.Fatalf("Remove() error = %v", err)
	}
	records := s.List()
	if len(records) != 1 || records[0].ID != "r2" {
		t.Errorf("List() after Remove = %v", records)
	}

	if err := s.Remove("missing"); err != nil {
		t.Errorf("Remove(missing) error = %v", err)
	}
}

func TestSQLiteStore_CapsAtMaxRecords(t *testing.T) {
	s := openTestStore(t)
	for i := 0; i < MaxRecords+5; i++ {
		if err := s.Add(record(fmt.Sprintf("r%03d", i), int64(i))); err != nil {
			t.Fatalf("Add() error = %v", err)
		}
	}

	records := s.List()
	if len(records) != MaxRecords {
		t.Fatalf("List() returned %d records, want %d", len(records), MaxRecords)
	}
	for _, r := range records {
		if r.ImportDate < 5 {
			t.Errorf("record %s should have been evicted as oldest", r.ID)
		}
	}
}

func TestSQLiteStore_ListAfterCloseDegrades(t *testing.T) {
	s := openTestStore(t)
	s.Add(record("r1", 100))
	s.Close()

	// A broken store reads as empty rather than failing the caller.
	if got := s.List(); len(got) != 0 {
		t.Errorf("List() on closed store = %v, want empty", got)
	}
}

package history

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"log"

	_ "modernc.org/sqlite"
)

const schema = `
CREATE TABLE IF NOT EXISTS imports (
	id TEXT PRIMARY KEY,
	account_id TEXT NOT NULL,
	bank_code TEXT NOT NULL,
	file_name TEXT NOT NULL,
	import_date INTEGER NOT NULL,
	date_start TEXT NOT NULL,
	date_end TEXT NOT NULL,
	txn_count INTEGER NOT NULL,
	txn_ids TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_imports_date ON imports(import_date);
`

// SQLiteStore persists import history in a local sqlite database.
type SQLiteStore struct {
	db *sql.DB
}

// OpenSQLite opens (or creates) the history database at path.
func OpenSQLite(path string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open history database %s: %w", path, err)
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize history schema: %w", err)
	}
	return &SQLiteStore{db: db}, nil
}

// Close closes the underlying database.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// Add inserts the record and evicts everything beyond the newest MaxRecords.
func (s *SQLiteStore) Add(record *Record) error {
	txnIDs, err := json.Marshal(record.TransactionIDs)
	if err != nil {
		return fmt.Errorf("failed to encode transaction IDs: %w", err)
	}

	_, err = s.db.Exec(
		`INSERT INTO imports (id, account_id, bank_code, file_name, import_date, date_start, date_end, txn_count, txn_ids)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		record.ID, record.AccountID, record.BankCode, record.FileName,
		record.ImportDate, record.DateRangeStart, record.DateRangeEnd,
		record.TransactionCount, string(txnIDs),
	)
	if err != nil {
		return fmt.Errorf("failed to insert import record: %w", err)
	}

	_, err = s.db.Exec(
		`DELETE FROM imports WHERE id NOT IN
		 (SELECT id FROM imports ORDER BY import_date DESC, id LIMIT ?)`,
		MaxRecords,
	)
	if err != nil {
		return fmt.Errorf("failed to trim import history: %w", err)
	}
	return nil
}

// Remove deletes a record by ID.
func (s *SQLiteStore) Remove(id string) error {
	if _, err := s.db.Exec(`DELETE FROM imports WHERE id = ?`, id); err != nil {
		return fmt.Errorf("failed to remove import record %s: %w", id, err)
	}
	return nil
}

// List returns records newest first. A broken database reads as empty:
// history is metadata, losing it must never fail a caller.
func (s *SQLiteStore) List() []*Record {
	rows, err := s.db.Query(
		`SELECT id, account_id, bank_code, file_name, import_date, date_start, date_end, txn_count, txn_ids
		 FROM imports ORDER BY import_date DESC, id`,
	)
	if err != nil {
		log.Printf("WARNING: import history unreadable, treating as empty: %v", err)
		return []*Record{}
	}
	defer rows.Close()

	var records []*Record
	for rows.Next() {
		var r Record
		var txnIDs string
		if err := rows.Scan(&r.ID, &r.AccountID, &r.BankCode, &r.FileName,
			&r.ImportDate, &r.DateRangeStart, &r.DateRangeEnd,
			&r.TransactionCount, &txnIDs); err != nil {
			log.Printf("WARNING: skipping corrupt import history row: %v", err)
			continue
		}
		if err := json.Unmarshal([]byte(txnIDs), &r.TransactionIDs); err != nil {
			log.Printf("WARNING: corrupt transaction ID list in import %s: %v", r.ID, err)
			r.TransactionIDs = nil
		}
		records = append(records, &r)
	}
	if err := rows.Err(); err != nil {
		log.Printf("WARNING: import history read interrupted: %v", err)
	}
	if records == nil {
		return []*Record{}
	}
	return records
}

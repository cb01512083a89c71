// Package sqlstore persists the audit ledger in SQLite.
package sqlstore

import (
	"context"
	"database/sql"
	_ "embed"
	"encoding/json"
	"fmt"
	"time"

	_ "modernc.org/sqlite"

	"github.com/Metatronsdoob369/arbiterOS-legal-confidant/internal/ledger"
	"github.com/Metatronsdoob369/arbiterOS-legal-confidant/internal/models"
)

//go:embed schema.sql
var schema string

var _ ledger.Store = (*Store)(nil)

type Store struct {
	db *sql.DB
}

// OpenSQLite opens dsn and applies the schema.
func OpenSQLite(dsn string) (*Store, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, err
	}
	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, err
	}
	s := New(db)
	if err := s.Migrate(); err != nil {
		_ = db.Close()
		return nil, err
	}
	return s, nil
}

func New(db *sql.DB) *Store {
	return &Store{db: db}
}

func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) DB() *sql.DB {
	return s.db
}

// Migrate is idempotent.
func (s *Store) Migrate() error {
	if _, err := s.db.Exec(schema); err != nil {
		return fmt.Errorf("apply audit schema: %w", err)
	}
	return nil
}

func (s *Store) WithTx(fn func(*sql.Tx) error) error {
	tx, err := s.db.BeginTx(context.Background(), &sql.TxOptions{})
	if err != nil {
		return err
	}
	if err := fn(tx); err != nil {
		_ = tx.Rollback()
		return err
	}
	return tx.Commit()
}

func (s *Store) Load() ([]models.AuditEntry, error) {
	rows, err := s.db.Query(`SELECT id, timestamp, action, details, source, status, hash, metadata_json
FROM audit_entries
ORDER BY seq ASC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []models.AuditEntry{}
	for rows.Next() {
		var (
			e        models.AuditEntry
			ts       string
			source   string
			status   string
			metadata sql.NullString
		)
		if err := rows.Scan(&e.ID, &ts, &e.Action, &e.Details, &source, &status, &e.Hash, &metadata); err != nil {
			return nil, err
		}
		if e.Timestamp, err = time.Parse(time.RFC3339Nano, ts); err != nil {
			return nil, fmt.Errorf("entry %s: bad timestamp: %w", e.ID, err)
		}
		e.Source = models.Source(source)
		e.Status = models.Status(status)
		if metadata.Valid && metadata.String != "" {
			var m models.AuditMetadata
			if err := json.Unmarshal([]byte(metadata.String), &m); err != nil {
				return nil, fmt.Errorf("entry %s: bad metadata: %w", e.ID, err)
			}
			e.Metadata = &m
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

func (s *Store) Insert(e models.AuditEntry) error {
	return s.WithTx(func(tx *sql.Tx) error { return insert(tx, e) })
}

func (s *Store) Replace(e models.AuditEntry) error {
	return s.WithTx(func(tx *sql.Tx) error {
		if _, err := tx.Exec(`DELETE FROM audit_entries`); err != nil {
			return err
		}
		return insert(tx, e)
	})
}

func insert(tx *sql.Tx, e models.AuditEntry) error {
	var metadata sql.NullString
	if e.Metadata != nil {
		raw, err := json.Marshal(e.Metadata)
		if err != nil {
			return err
		}
		metadata = sql.NullString{String: string(raw), Valid: true}
	}
	_, err := tx.Exec(`INSERT INTO audit_entries (id, timestamp, action, details, source, status, hash, metadata_json)
VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		e.ID, e.Timestamp.UTC().Format(time.RFC3339Nano), e.Action, e.Details, string(e.Source), string(e.Status), e.Hash, metadata)
	return err
}

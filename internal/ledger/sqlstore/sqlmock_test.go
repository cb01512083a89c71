package sqlstore

import (
	"database/sql/driver"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"

	"github.com/Metatronsdoob369/arbiterOS-legal-confidant/internal/ledger"
	"github.com/Metatronsdoob369/arbiterOS-legal-confidant/internal/models"
)

var entryColumns = []string{"id", "timestamp", "action", "details", "source", "status", "hash", "metadata_json"}

func newMockStore(t *testing.T) (*Store, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("an error '%s' was not expected when opening a stub database connection", err)
	}
	t.Cleanup(func() { _ = db.Close() })
	return New(db), mock
}

func TestInsert_RollsBackOnExecError(t *testing.T) {
	s, mock := newMockStore(t)
	e := models.AuditEntry{
		ID:        "e1",
		Timestamp: time.Date(2026, 2, 1, 0, 0, 0, 0, time.UTC),
		Action:    "verify_ordinary",
		Details:   "PASS",
		Source:    models.SourceArbiter,
		Status:    models.StatusVerified,
		Hash:      "0x0000000000000000",
	}

	mock.ExpectBegin()
	mock.ExpectExec("INSERT INTO audit_entries").
		WithArgs(e.ID, "2026-02-01T00:00:00Z", e.Action, e.Details, "Arbiter", "Verified", e.Hash, nil).
		WillReturnError(errors.New("disk full"))
	mock.ExpectRollback()

	if err := s.Insert(e); err == nil {
		t.Fatal("expected insert error")
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unmet expectations: %s", err)
	}
}

func TestLedgerAppend_StoreFailureRecordsNothing(t *testing.T) {
	s, mock := newMockStore(t)
	mock.ExpectQuery("SELECT id, timestamp").WillReturnRows(sqlmock.NewRows(entryColumns))
	l, err := ledger.Open(s)
	if err != nil {
		t.Fatalf("open ledger: %v", err)
	}

	mock.ExpectBegin()
	mock.ExpectExec("INSERT INTO audit_entries").WillReturnError(errors.New("locked"))
	mock.ExpectRollback()

	if _, err := l.Append("verify_ordinary", "PASS", models.SourceArbiter); err == nil {
		t.Fatal("expected append error")
	}
	if l.Len() != 0 {
		t.Errorf("failed append was recorded: %d entries", l.Len())
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unmet expectations: %s", err)
	}
}

func TestReplace_RollsBackOnDeleteError(t *testing.T) {
	s, mock := newMockStore(t)

	mock.ExpectBegin()
	mock.ExpectExec("DELETE FROM audit_entries").WillReturnError(errors.New("locked"))
	mock.ExpectRollback()

	if err := s.Replace(models.AuditEntry{ID: "reset"}); err == nil {
		t.Fatal("expected replace error")
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unmet expectations: %s", err)
	}
}

func TestLoad_RejectsCorruptRows(t *testing.T) {
	tests := []struct {
		name string
		row  []driver.Value
	}{
		{"bad timestamp", []driver.Value{"e1", "yesterday", "a", "d", "Arbiter", "Verified", "0x0", nil}},
		{"bad metadata", []driver.Value{"e2", "2026-02-01T00:00:00Z", "a", "d", "Arbiter", "Verified", "0x0", "{"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s, mock := newMockStore(t)
			rows := sqlmock.NewRows(entryColumns).AddRow(tt.row...)
			mock.ExpectQuery("SELECT id, timestamp").WillReturnRows(rows)

			if _, err := s.Load(); err == nil {
				t.Fatal("expected load error")
			}
		})
	}
}

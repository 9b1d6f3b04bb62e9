package repo

import (
	"context"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/carlo/audit-trail/internal/models"
)

func strp(s string) *string { return &s }

func TestEntryRepo_Append(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	defer db.Close()

	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	mock.ExpectQuery(`INSERT INTO audit_entries`).
		WithArgs("ticket", "42", "create", []byte(`{"status":"open"}`), "alice", "t-1", now).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(7))

	r := NewEntryRepo(db)
	stored, err := r.Append(context.Background(), models.AuditEntry{
		SubjectType: "ticket",
		SubjectID:   "42",
		Action:      models.ActionCreate,
		Payload:     models.Payload{{Name: "status", Value: strp("open")}},
		ActorLabel:  "alice",
		TraceID:     "t-1",
		CreatedAt:   now,
	})
	if err != nil {
		t.Fatalf("Append: %v", err)
	}
	if stored.ID != 7 {
		t.Errorf("expected id 7, got %d", stored.ID)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("expectations: %v", err)
	}
}

func TestEntryRepo_Append_DBError(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	defer db.Close()

	mock.ExpectQuery(`INSERT INTO audit_entries`).
		WillReturnError(context.DeadlineExceeded)

	r := NewEntryRepo(db)
	_, err = r.Append(context.Background(), models.AuditEntry{
		SubjectType: "ticket",
		SubjectID:   "42",
		Action:      models.ActionCreate,
		Payload:     models.Payload{{Name: "a", Value: strp("1")}},
	})
	if err == nil {
		t.Fatal("expected error to propagate")
	}
}

func TestEntryRepo_ListFor(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	defer db.Close()

	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	cols := []string{"id", "subject_type", "subject_id", "action", "payload", "actor_label", "trace_id", "created_at"}
	mock.ExpectQuery(`SELECT id, subject_type, subject_id, action, payload`).
		WithArgs("ticket", "42").
		WillReturnRows(sqlmock.NewRows(cols).
			AddRow(1, "ticket", "42", "create", []byte(`{"status":"open","owner":null}`), "alice", "t-1", base).
			AddRow(2, "ticket", "42", "update", []byte(`{"status":"closed"}`), "", "", base.Add(time.Minute)))

	r := NewEntryRepo(db)
	entries, err := r.ListFor(context.Background(), "ticket", "42")
	if err != nil {
		t.Fatalf("ListFor: %v", err)
	}
	if len(entries) != 2 {
		t.Fatalf("expected 2 entries, got %d", len(entries))
	}
	first := entries[0]
	if first.ID != 1 || first.Action != "create" || first.ActorLabel != "alice" {
		t.Errorf("unexpected first entry: %+v", first)
	}
	if len(first.Payload) != 2 || first.Payload[0].Name != "status" || *first.Payload[0].Value != "open" {
		t.Errorf("payload lost order or values: %+v", first.Payload)
	}
	if first.Payload[1].Name != "owner" || first.Payload[1].Value != nil {
		t.Errorf("nil payload value not preserved: %+v", first.Payload[1])
	}
	if entries[1].CreatedAt.Before(entries[0].CreatedAt) {
		t.Error("entries out of order")
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("expectations: %v", err)
	}
}

// TestEntryRepo_RoundTripKeepsFieldOrder writes a payload whose field order
// differs from alphabetical and asserts ListFor returns the fields exactly as
// Append serialized them. This holds in Postgres because the payload column is
// json (stored as the input text), not jsonb (which canonicalizes key order).
func TestEntryRepo_RoundTripKeepsFieldOrder(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	defer db.Close()

	payload := models.Payload{
		{Name: "zz", Value: strp("1")},
		{Name: "aa", Value: strp("2")},
		{Name: "mm", Value: nil},
	}
	stored := []byte(`{"zz":"1","aa":"2","mm":null}`)
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	mock.ExpectQuery(`INSERT INTO audit_entries`).
		WithArgs("ticket", "42", "update", stored, "", "", now).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(1))
	mock.ExpectQuery(`SELECT id, subject_type, subject_id, action, payload`).
		WithArgs("ticket", "42").
		WillReturnRows(sqlmock.NewRows([]string{"id", "subject_type", "subject_id", "action", "payload", "actor_label", "trace_id", "created_at"}).
			AddRow(1, "ticket", "42", "update", stored, "", "", now))

	r := NewEntryRepo(db)
	if _, err := r.Append(context.Background(), models.AuditEntry{
		SubjectType: "ticket",
		SubjectID:   "42",
		Action:      models.ActionUpdate,
		Payload:     payload,
		CreatedAt:   now,
	}); err != nil {
		t.Fatalf("Append: %v", err)
	}

	entries, err := r.ListFor(context.Background(), "ticket", "42")
	if err != nil {
		t.Fatalf("ListFor: %v", err)
	}
	if len(entries) != 1 {
		t.Fatalf("expected 1 entry, got %d", len(entries))
	}
	got := entries[0].Payload
	if len(got) != len(payload) {
		t.Fatalf("expected %d fields, got %+v", len(payload), got)
	}
	for i := range payload {
		if got[i].Name != payload[i].Name {
			t.Errorf("field %d: got %q, want %q", i, got[i].Name, payload[i].Name)
		}
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("expectations: %v", err)
	}
}

func TestEntryRepo_ListFor_Empty(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	defer db.Close()

	mock.ExpectQuery(`SELECT id, subject_type, subject_id, action, payload`).
		WithArgs("ticket", "999").
		WillReturnRows(sqlmock.NewRows([]string{"id", "subject_type", "subject_id", "action", "payload", "actor_label", "trace_id", "created_at"}))

	r := NewEntryRepo(db)
	entries, err := r.ListFor(context.Background(), "ticket", "999")
	if err != nil {
		t.Fatalf("ListFor: %v", err)
	}
	if len(entries) != 0 {
		t.Errorf("expected empty list, got %d", len(entries))
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("expectations: %v", err)
	}
}

func TestEntryRepo_CountBySubjectType(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	defer db.Close()

	mock.ExpectQuery(`SELECT subject_type, COUNT\(\*\) FROM audit_entries GROUP BY subject_type`).
		WillReturnRows(sqlmock.NewRows([]string{"subject_type", "count"}).
			AddRow("ticket", 3).
			AddRow("user", 1))

	r := NewEntryRepo(db)
	counts, err := r.CountBySubjectType(context.Background())
	if err != nil {
		t.Fatalf("CountBySubjectType: %v", err)
	}
	if counts["ticket"] != 3 || counts["user"] != 1 {
		t.Errorf("unexpected counts: %+v", counts)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("expectations: %v", err)
	}
}

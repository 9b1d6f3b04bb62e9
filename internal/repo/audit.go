package repo

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/carlo/audit-trail/internal/models"
)

// EntryRepo persists audit entries in Postgres. The audit_entries table is
// append-only: there is no update or delete statement in this file, and there
// never should be. Concurrent appends for the same subject need no locking
// because rows are immutable and order only by (created_at, id).
type EntryRepo struct {
	DB *sql.DB
}

// NewEntryRepo returns a new EntryRepo.
func NewEntryRepo(db *sql.DB) *EntryRepo {
	return &EntryRepo{DB: db}
}

// Append inserts one entry and returns it with the id assigned by the
// database. The payload column is json, not jsonb, so the stored text keeps
// the field order the snapshot was captured in.
func (r *EntryRepo) Append(ctx context.Context, e models.AuditEntry) (*models.AuditEntry, error) {
	payload, err := json.Marshal(e.Payload)
	if err != nil {
		return nil, fmt.Errorf("marshal payload: %w", err)
	}
	err = r.DB.QueryRowContext(ctx,
		`INSERT INTO audit_entries (subject_type, subject_id, action, payload, actor_label, trace_id, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)
		 RETURNING id`,
		e.SubjectType, e.SubjectID, e.Action, payload, e.ActorLabel, e.TraceID, e.CreatedAt,
	).Scan(&e.ID)
	if err != nil {
		return nil, err
	}
	return &e, nil
}

// ListFor returns a subject's entries ascending by created_at, ties broken by id.
func (r *EntryRepo) ListFor(ctx context.Context, subjectType, subjectID string) ([]models.AuditEntry, error) {
	query := `
		SELECT id, subject_type, subject_id, action, payload, COALESCE(actor_label, ''), COALESCE(trace_id, ''), created_at
		FROM audit_entries
		WHERE subject_type = $1 AND subject_id = $2
		ORDER BY created_at, id
	`
	rows, err := r.DB.QueryContext(ctx, query, subjectType, subjectID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var entries []models.AuditEntry
	for rows.Next() {
		var e models.AuditEntry
		var payload []byte
		if err := rows.Scan(&e.ID, &e.SubjectType, &e.SubjectID, &e.Action, &payload, &e.ActorLabel, &e.TraceID, &e.CreatedAt); err != nil {
			return nil, err
		}
		if err := json.Unmarshal(payload, &e.Payload); err != nil {
			return nil, fmt.Errorf("unmarshal payload for entry %d: %w", e.ID, err)
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

// CountBySubjectType returns the number of stored entries per subject type
// (for the stats job).
func (r *EntryRepo) CountBySubjectType(ctx context.Context) (map[string]int, error) {
	rows, err := r.DB.QueryContext(ctx,
		`SELECT subject_type, COUNT(*) FROM audit_entries GROUP BY subject_type`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	counts := make(map[string]int)
	for rows.Next() {
		var subjectType string
		var n int
		if err := rows.Scan(&subjectType, &n); err != nil {
			return nil, err
		}
		counts[subjectType] = n
	}
	return counts, rows.Err()
}

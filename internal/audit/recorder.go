package audit

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/carlo/audit-trail/internal/models"
)

// Store persists audit entries. Implementations are append-only: entries are
// never updated or deleted once written.
type Store interface {
	Append(ctx context.Context, e models.AuditEntry) (*models.AuditEntry, error)
	ListFor(ctx context.Context, subjectType, subjectID string) ([]models.AuditEntry, error)
	CountBySubjectType(ctx context.Context) (map[string]int, error)
}

// ErrInvalidAction is returned when Record is called with an action outside
// create/update/destroy.
var ErrInvalidAction = errors.New("audit: invalid action")

// Recorder writes audit entries for subject lifecycle events. Hosts call
// Record explicitly from their own create/update/destroy paths; the recorder
// never reaches into the host's object model.
type Recorder struct {
	store Store
	now   func() time.Time
}

// NewRecorder returns a Recorder backed by store.
func NewRecorder(store Store) *Recorder {
	return &Recorder{store: store, now: time.Now}
}

// Record appends exactly one entry for the given subject, or nothing when the
// payload is blank. Suppressing a blank payload is a deliberate filter, not a
// failure: Record returns (nil, nil) and the store is untouched. The actor
// label and trace id are read from ctx (WithActor, WithTraceID). Store errors
// propagate to the caller unwrapped of any retry policy.
func (r *Recorder) Record(ctx context.Context, subjectType, subjectID, action string, payload models.Payload) (*models.AuditEntry, error) {
	if !models.ValidAction(action) {
		return nil, fmt.Errorf("%w: %q", ErrInvalidAction, action)
	}
	if payload.IsBlank() {
		return nil, nil
	}
	e := models.AuditEntry{
		SubjectType: subjectType,
		SubjectID:   subjectID,
		Action:      action,
		Payload:     payload,
		ActorLabel:  ActorFrom(ctx),
		TraceID:     TraceIDFrom(ctx),
		CreatedAt:   r.now().UTC(),
	}
	return r.store.Append(ctx, e)
}

// ListFor returns the subject's entries ascending by created_at then id. The
// result is a finite, re-queryable list, not a live stream.
func (r *Recorder) ListFor(ctx context.Context, subjectType, subjectID string) ([]models.AuditEntry, error) {
	return r.store.ListFor(ctx, subjectType, subjectID)
}

package audit

import (
	"context"
	"sort"
	"sync"

	"github.com/carlo/audit-trail/internal/models"
)

// MemoryStore is an in-memory Store for tests and wiring without a database.
// It assigns ids in insertion order, matching the Postgres bigserial.
type MemoryStore struct {
	mu      sync.Mutex
	nextID  int64
	entries []models.AuditEntry
}

// NewMemoryStore returns an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{nextID: 1}
}

func (s *MemoryStore) Append(ctx context.Context, e models.AuditEntry) (*models.AuditEntry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e.ID = s.nextID
	s.nextID++
	s.entries = append(s.entries, e)
	stored := e
	return &stored, nil
}

func (s *MemoryStore) ListFor(ctx context.Context, subjectType, subjectID string) ([]models.AuditEntry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []models.AuditEntry
	for _, e := range s.entries {
		if e.SubjectType == subjectType && e.SubjectID == subjectID {
			out = append(out, e)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.Before(out[j].CreatedAt)
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

func (s *MemoryStore) CountBySubjectType(ctx context.Context) (map[string]int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	counts := make(map[string]int)
	for _, e := range s.entries {
		counts[e.SubjectType]++
	}
	return counts, nil
}

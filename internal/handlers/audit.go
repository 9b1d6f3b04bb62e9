package handlers

import (
	"encoding/json"
	"log"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/carlo/audit-trail/internal/audit"
	"github.com/carlo/audit-trail/internal/metrics"
	"github.com/carlo/audit-trail/internal/models"
)

// AuditHandler serves the audit trail endpoints.
type AuditHandler struct {
	Recorder *audit.Recorder
}

// validate is shared across requests so validator can cache struct metadata.
var validate = validator.New()

// RecordEntry accepts a snapshot for a subject lifecycle event and appends one
// audit entry. A blank payload is suppressed and answered with 204: the filter
// is deliberate, not a failure.
func (h *AuditHandler) RecordEntry(w http.ResponseWriter, r *http.Request) {
	var input struct {
		SubjectType string         `json:"subject_type" validate:"required,max=255"`
		SubjectID   string         `json:"subject_id" validate:"required,max=255"`
		Action      string         `json:"action" validate:"required,oneof=create update destroy"`
		Payload     models.Payload `json:"payload"`
	}

	if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
		JSONError(w, "invalid JSON: "+err.Error(), http.StatusBadRequest)
		return
	}

	if err := validate.Struct(input); err != nil {
		JSONError(w, err.Error(), http.StatusBadRequest)
		return
	}

	entry, err := h.Recorder.Record(r.Context(), input.SubjectType, input.SubjectID, input.Action, input.Payload)
	if err != nil {
		log.Printf("RecordEntry: append failed: %v", err)
		JSONError(w, "failed to record entry", http.StatusInternalServerError)
		return
	}
	if entry == nil {
		metrics.IncEntriesSuppressed()
		w.WriteHeader(http.StatusNoContent)
		return
	}

	metrics.IncEntriesRecorded(entry.SubjectType, entry.Action)
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	json.NewEncoder(w).Encode(entry)
}

// ListEntries returns a subject's entries ascending by created_at then id.
func (h *AuditHandler) ListEntries(w http.ResponseWriter, r *http.Request) {
	subjectType := chi.URLParam(r, "type")
	subjectID := chi.URLParam(r, "id")

	entries, err := h.Recorder.ListFor(r.Context(), subjectType, subjectID)
	if err != nil {
		log.Printf("ListEntries: %v", err)
		JSONError(w, ErrMessageInternal, http.StatusInternalServerError)
		return
	}
	if entries == nil {
		entries = []models.AuditEntry{}
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(entries)
}

// History returns the subject's entries with each entry's field-level delta
// against its predecessor, ready for a display layer to render.
func (h *AuditHandler) History(w http.ResponseWriter, r *http.Request) {
	subjectType := chi.URLParam(r, "type")
	subjectID := chi.URLParam(r, "id")

	entries, err := h.Recorder.ListFor(r.Context(), subjectType, subjectID)
	if err != nil {
		log.Printf("History: %v", err)
		JSONError(w, ErrMessageInternal, http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(audit.History(entries))
}

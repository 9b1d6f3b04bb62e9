package audit

import "github.com/carlo/audit-trail/internal/models"

// Delta compares two snapshots of the same subject and returns the fields
// whose values differ. previous is the snapshot immediately preceding current
// in the subject's entry sequence, or nil when current is the first entry, in
// which case every field of current is reported as newly set.
//
// Fields are visited in the order they first appear in current, then any
// remaining fields of previous. Comparison is whole-value equality only;
// unchanged fields are omitted. The function is total: any two payloads
// produce a result, never an error.
func Delta(previous, current models.Payload) []models.FieldChange {
	changes := []models.FieldChange{}
	seen := make(map[string]bool, len(current))
	for _, f := range current {
		if seen[f.Name] {
			continue
		}
		seen[f.Name] = true
		prev, _ := previous.Get(f.Name)
		if !equalValue(prev, f.Value) {
			changes = append(changes, models.FieldChange{Field: f.Name, Previous: prev, Current: f.Value})
		}
	}
	for _, f := range previous {
		if seen[f.Name] {
			continue
		}
		seen[f.Name] = true
		if f.Value != nil {
			changes = append(changes, models.FieldChange{Field: f.Name, Previous: f.Value, Current: nil})
		}
	}
	return changes
}

// equalValue compares two serialized values; nil is the absent marker and
// only equals nil.
func equalValue(a, b *string) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return *a == *b
}

// HistoryRow pairs an entry with the field changes since the subject's
// previous entry. It is the input a rendering layer consumes; no markup is
// produced here.
type HistoryRow struct {
	Entry   models.AuditEntry    `json:"entry"`
	Changes []models.FieldChange `json:"changes"`
}

// History walks entries in chronological order (as ListFor returns them) and
// computes each entry's delta against its predecessor.
func History(entries []models.AuditEntry) []HistoryRow {
	rows := make([]HistoryRow, 0, len(entries))
	var prev models.Payload
	for _, e := range entries {
		rows = append(rows, HistoryRow{Entry: e, Changes: Delta(prev, e.Payload)})
		prev = e.Payload
	}
	return rows
}

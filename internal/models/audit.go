package models

import (
	"bytes"
	"encoding/json"
	"fmt"
	"time"
)

// Actions recorded for a subject. Destroy entries carry the final snapshot.
const (
	ActionCreate  = "create"
	ActionUpdate  = "update"
	ActionDestroy = "destroy"
)

// ValidAction reports whether a is one of the known audit actions.
func ValidAction(a string) bool {
	return a == ActionCreate || a == ActionUpdate || a == ActionDestroy
}

// AuditEntry is one immutable audit record for a subject. Entries are only
// ever appended; nothing in this codebase mutates or deletes them.
type AuditEntry struct {
	ID          int64     `json:"id"`
	SubjectType string    `json:"subject_type"`
	SubjectID   string    `json:"subject_id"`
	Action      string    `json:"action"` // create, update, destroy
	Payload     Payload   `json:"payload"`
	ActorLabel  string    `json:"actor_label,omitempty"`
	TraceID     string    `json:"trace_id,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
}

// Field is one name/value pair in a snapshot. Values arrive already
// serialized by the host; a nil Value records a field that was present but
// unset.
type Field struct {
	Name  string
	Value *string
}

// Payload is the snapshot of a subject's fields at one point in time. It is
// an ordered mapping: fields keep the order they were captured in, and deltas
// are reported in that order.
type Payload []Field

// Get returns the value of the named field and whether it is present.
func (p Payload) Get(name string) (*string, bool) {
	for _, f := range p {
		if f.Name == name {
			return f.Value, true
		}
	}
	return nil, false
}

// Set appends a field, or replaces an existing field of the same name in place.
func (p Payload) Set(name string, value *string) Payload {
	for i, f := range p {
		if f.Name == name {
			p[i].Value = value
			return p
		}
	}
	return append(p, Field{Name: name, Value: value})
}

// IsBlank reports whether the snapshot carries no information: it is empty,
// or every value is blank. A blank payload is never persisted.
func (p Payload) IsBlank() bool {
	for _, f := range p {
		if !blankValue(f.Value) {
			return false
		}
	}
	return true
}

// blankValue enumerates the serialized values treated as absent: nil, the
// empty string, and an empty serialized collection.
func blankValue(v *string) bool {
	if v == nil {
		return true
	}
	switch *v {
	case "", "[]", "{}":
		return true
	}
	return false
}

// MarshalJSON writes the payload as a JSON object with keys in field order.
func (p Payload) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, f := range p {
		if i > 0 {
			buf.WriteByte(',')
		}
		name, err := json.Marshal(f.Name)
		if err != nil {
			return nil, err
		}
		buf.Write(name)
		buf.WriteByte(':')
		if f.Value == nil {
			buf.WriteString("null")
		} else {
			val, err := json.Marshal(*f.Value)
			if err != nil {
				return nil, err
			}
			buf.Write(val)
		}
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// UnmarshalJSON reads a JSON object of string-or-null values, preserving key
// order. Non-string values are an error: serialization happens before a
// payload reaches this package.
func (p *Payload) UnmarshalJSON(data []byte) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	tok, err := dec.Token()
	if err != nil {
		return err
	}
	if d, ok := tok.(json.Delim); !ok || d != '{' {
		return fmt.Errorf("payload: expected JSON object, got %v", tok)
	}
	out := Payload{}
	for dec.More() {
		keyTok, err := dec.Token()
		if err != nil {
			return err
		}
		key, ok := keyTok.(string)
		if !ok {
			return fmt.Errorf("payload: expected object key, got %v", keyTok)
		}
		var val *string
		if err := dec.Decode(&val); err != nil {
			return fmt.Errorf("payload: field %q: value must be a string or null", key)
		}
		out = append(out, Field{Name: key, Value: val})
	}
	if _, err := dec.Token(); err != nil {
		return err
	}
	*p = out
	return nil
}

// FieldChange is one row of a delta between two snapshots. A nil Previous or
// Current marks a field absent on that side.
type FieldChange struct {
	Field    string  `json:"field"`
	Previous *string `json:"previous"`
	Current  *string `json:"current"`
}

package shared

import (
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
)

// Reference is an id-or-resolved union for entity references that arrive either as a
// bare id string or as an embedded object carrying an "id" field. Normalization
// happens once, here, instead of in every handler.
type Reference[T any] struct {
	id       uuid.UUID
	resolved *T
}

// RefID builds an unresolved reference from an id.
func RefID[T any](id uuid.UUID) Reference[T] {
	return Reference[T]{id: id}
}

// RefResolved builds a resolved reference.
func RefResolved[T any](id uuid.UUID, value T) Reference[T] {
	return Reference[T]{id: id, resolved: &value}
}

// ID returns the referenced entity id.
func (r Reference[T]) ID() uuid.UUID {
	return r.id
}

// Resolved returns the embedded entity when present.
func (r Reference[T]) Resolved() (T, bool) {
	if r.resolved == nil {
		var zero T
		return zero, false
	}
	return *r.resolved, true
}

// IsZero reports whether the reference carries no id.
func (r Reference[T]) IsZero() bool {
	return r.id == uuid.Nil
}

// UnmarshalJSON accepts either "uuid" or {"id": "uuid", ...}.
func (r *Reference[T]) UnmarshalJSON(data []byte) error {
	var raw string
	if err := json.Unmarshal(data, &raw); err == nil {
		id, err := uuid.Parse(raw)
		if err != nil {
			return fmt.Errorf("reference: invalid id %q: %w", raw, err)
		}
		*r = Reference[T]{id: id}
		return nil
	}

	var envelope struct {
		ID uuid.UUID `json:"id"`
	}
	if err := json.Unmarshal(data, &envelope); err != nil {
		return fmt.Errorf("reference: expected id string or object: %w", err)
	}
	if envelope.ID == uuid.Nil {
		return fmt.Errorf("reference: object form requires non-empty id")
	}
	var value T
	if err := json.Unmarshal(data, &value); err != nil {
		return fmt.Errorf("reference: decode embedded entity: %w", err)
	}
	*r = Reference[T]{id: envelope.ID, resolved: &value}
	return nil
}

// MarshalJSON always emits the bare id string.
func (r Reference[T]) MarshalJSON() ([]byte, error) {
	return json.Marshal(r.id.String())
}

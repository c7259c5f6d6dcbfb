package todo

import (
	"bytes"
	"encoding/json"
	"time"
)

// Todo is the single resource managed by the service.
type Todo struct {
	ID          string    `json:"id"`
	Title       string    `json:"title"`
	Description string    `json:"description"`
	Completed   bool      `json:"completed"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

// Field is an optional request field that remembers whether it was present
// in the decoded JSON body and whether it was an explicit null.
type Field[T any] struct {
	Value T
	Set   bool
	Null  bool
}

// Some returns a present, non-null field.
func Some[T any](v T) Field[T] {
	return Field[T]{Value: v, Set: true}
}

// IsZero reports whether the field was absent. It makes `omitzero` drop
// absent fields when a request is re-encoded.
func (f Field[T]) IsZero() bool {
	return !f.Set
}

// UnmarshalJSON marks the field as present. encoding/json calls it for
// explicit nulls too, which is what lets Null be recorded.
func (f *Field[T]) UnmarshalJSON(data []byte) error {
	f.Set = true
	if bytes.Equal(bytes.TrimSpace(data), []byte("null")) {
		var zero T
		f.Value = zero
		f.Null = true
		return nil
	}
	f.Null = false
	return json.Unmarshal(data, &f.Value)
}

// MarshalJSON encodes the value, or null for an explicit null.
func (f Field[T]) MarshalJSON() ([]byte, error) {
	if f.Null {
		return []byte("null"), nil
	}
	return json.Marshal(f.Value)
}

// CreateInput is the body of a create request.
type CreateInput struct {
	Title       Field[string] `json:"title,omitzero"`
	Description Field[string] `json:"description,omitzero"`
	Completed   Field[bool]   `json:"completed,omitzero"`
}

// UpdateInput is the body of an update request. Absent fields are left
// untouched.
type UpdateInput struct {
	Title       Field[string] `json:"title,omitzero"`
	Description Field[string] `json:"description,omitzero"`
	Completed   Field[bool]   `json:"completed,omitzero"`
}

// Patch is a validated, normalized set of field changes handed to a Store.
// A nil pointer means "leave as is".
type Patch struct {
	Title       *string
	Description *string
	Completed   *bool
}

// Empty reports whether the patch changes no user fields.
func (p Patch) Empty() bool {
	return p.Title == nil && p.Description == nil && p.Completed == nil
}

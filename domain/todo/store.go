package todo

import (
	"context"
	"errors"
	"fmt"
)

// SortOrder selects the createdAt ordering of FindAll.
type SortOrder int

const (
	NewestFirst SortOrder = iota
	OldestFirst
)

// Store is the persistence port for todos. Implementations own id and
// timestamp assignment.
type Store interface {
	// Insert persists a new todo and returns it with ID, CreatedAt and
	// UpdatedAt filled in.
	Insert(ctx context.Context, t *Todo) (*Todo, error)
	// FindAll returns every todo ordered by createdAt, ties broken by id.
	FindAll(ctx context.Context, order SortOrder) ([]*Todo, error)
	FindByID(ctx context.Context, id string) (*Todo, error)
	// UpdateByID applies the patch, refreshes UpdatedAt and returns the
	// stored result.
	UpdateByID(ctx context.Context, id string, patch Patch) (*Todo, error)
	// DeleteByID removes the todo and returns its last state.
	DeleteByID(ctx context.Context, id string) (*Todo, error)
}

// IDValidator reports whether a string is in the store's key format.
type IDValidator func(id string) bool

// FailureKind tags a storage error so callers never inspect messages.
type FailureKind int

const (
	FailureOther FailureKind = iota
	FailureConnectionLost
	FailureValidation
	FailureNotFound
)

func (k FailureKind) String() string {
	switch k {
	case FailureConnectionLost:
		return "connection lost"
	case FailureValidation:
		return "validation failed"
	case FailureNotFound:
		return "not found"
	default:
		return "storage error"
	}
}

// StoreError is the only error type Store implementations return.
type StoreError struct {
	Kind FailureKind
	Op   string
	Err  error
}

func (e *StoreError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("%s: %s", e.Op, e.Kind)
	}
	return fmt.Sprintf("%s: %s: %v", e.Op, e.Kind, e.Err)
}

func (e *StoreError) Unwrap() error {
	return e.Err
}

// NewStoreError builds a tagged storage error.
func NewStoreError(kind FailureKind, op string, err error) *StoreError {
	return &StoreError{Kind: kind, Op: op, Err: err}
}

// FailureKindOf extracts the tag from err. Untagged errors count as
// FailureOther.
func FailureKindOf(err error) FailureKind {
	var se *StoreError
	if errors.As(err, &se) {
		return se.Kind
	}
	return FailureOther
}

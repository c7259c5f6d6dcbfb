package todo

import (
	"errors"

	domain "github.com/example/todo-service/domain/todo"
)

// toPayload converts a service error for transport. Errors that are not
// *domain.Error become non-transient storage failures.
func toPayload(err error, fallback string) *ErrorPayload {
	if err == nil {
		return nil
	}
	var de *domain.Error
	if !errors.As(err, &de) {
		de = domain.StorageFailure(fallback, false, err)
	}
	return &ErrorPayload{
		Kind:      de.Kind.String(),
		Message:   de.Message,
		Detail:    de.Detail,
		Transient: de.Transient,
	}
}

// Err rebuilds the typed error.
func (p *ErrorPayload) Err() error {
	if p == nil {
		return nil
	}
	return &domain.Error{
		Kind:      domain.ParseErrorKind(p.Kind),
		Message:   p.Message,
		Detail:    p.Detail,
		Transient: p.Transient,
	}
}

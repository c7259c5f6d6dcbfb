package todo

import (
	"fmt"
	"strings"
)

// ErrorKind classifies a failed todo operation.
type ErrorKind int

const (
	KindStorageFailure ErrorKind = iota
	KindUnavailable
	KindInvalidInput
	KindInvalidIdentifier
	KindNotFound
)

var kindNames = map[ErrorKind]string{
	KindStorageFailure:    "storage_failure",
	KindUnavailable:       "unavailable",
	KindInvalidInput:      "invalid_input",
	KindInvalidIdentifier: "invalid_identifier",
	KindNotFound:          "not_found",
}

// String returns the machine-readable name of the kind.
func (k ErrorKind) String() string {
	if name, ok := kindNames[k]; ok {
		return name
	}
	return kindNames[KindStorageFailure]
}

// ParseErrorKind is the inverse of ErrorKind.String. Unknown names map to
// KindStorageFailure.
func ParseErrorKind(name string) ErrorKind {
	for k, n := range kindNames {
		if n == name {
			return k
		}
	}
	return KindStorageFailure
}

// Error is returned by every todo operation that fails.
//
// Message is meant for people, Detail for machines and logs. Transient is
// only meaningful for KindStorageFailure and marks connectivity-class
// failures (timeouts, dropped connections).
type Error struct {
	Kind      ErrorKind
	Message   string
	Detail    string
	Transient bool
	Err       error
}

// Sentinels for errors.Is. Matching is by kind only.
var (
	ErrUnavailable       = &Error{Kind: KindUnavailable}
	ErrInvalidInput      = &Error{Kind: KindInvalidInput}
	ErrInvalidIdentifier = &Error{Kind: KindInvalidIdentifier}
	ErrNotFound          = &Error{Kind: KindNotFound}
	ErrStorageFailure    = &Error{Kind: KindStorageFailure}
)

func (e *Error) Error() string {
	var b strings.Builder
	b.WriteString(e.Kind.String())
	if e.Detail != "" {
		b.WriteString(": ")
		b.WriteString(e.Detail)
	} else if e.Err != nil {
		b.WriteString(": ")
		b.WriteString(e.Err.Error())
	}
	return b.String()
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Is matches any *Error of the same kind.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	return ok && t.Kind == e.Kind
}

// Unavailable reports that storage is not in the connected state.
func Unavailable(state string) *Error {
	return &Error{
		Kind:    KindUnavailable,
		Message: "Database is unavailable. Please try again later.",
		Detail:  fmt.Sprintf("storage connection state: %s", state),
	}
}

// InvalidInput reports a missing, empty or mistyped field.
func InvalidInput(message, detail string) *Error {
	return &Error{Kind: KindInvalidInput, Message: message, Detail: detail}
}

// InvalidIdentifier reports an id that is not in the storage key format.
func InvalidIdentifier(id string) *Error {
	return &Error{
		Kind:    KindInvalidIdentifier,
		Message: "Invalid ID format.",
		Detail:  fmt.Sprintf("%q is not a valid todo id", id),
	}
}

// NotFound reports a well-formed id with no matching todo.
func NotFound(id string) *Error {
	return &Error{
		Kind:    KindNotFound,
		Message: "Todo not found.",
		Detail:  fmt.Sprintf("no todo with id %q", id),
	}
}

// StorageFailure wraps any other storage error. message names the
// operation that failed.
func StorageFailure(message string, transient bool, err error) *Error {
	detail := ""
	if err != nil {
		detail = err.Error()
	}
	return &Error{
		Kind:      KindStorageFailure,
		Message:   message,
		Detail:    detail,
		Transient: transient,
		Err:       err,
	}
}

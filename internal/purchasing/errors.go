package purchasing

import (
	"errors"
	"sort"
	"strings"
)

var (
	// ErrValidation indicates malformed or missing input.
	ErrValidation = errors.New("purchasing: invalid input")
	// ErrUnknownSupplier indicates supplier_id does not reference a supplier.
	ErrUnknownSupplier = errors.New("purchasing: unknown supplier")
	// ErrIdentityUnresolved indicates neither the session user id nor its email match a user.
	ErrIdentityUnresolved = errors.New("purchasing: requestor account not found")
	// ErrPersistence indicates the creation transaction failed and was rolled back.
	ErrPersistence = errors.New("purchasing: persistence failed")
	// ErrNotFound indicates the purchase order does not exist.
	ErrNotFound = errors.New("purchasing: not found")
	// ErrForbidden indicates the caller may not perform the action.
	ErrForbidden = errors.New("purchasing: forbidden")
	// ErrDuplicateNumber is returned by repositories when the generated
	// purchase order number is already taken.
	ErrDuplicateNumber = errors.New("purchasing: duplicate purchase order number")
)

// IdentityRemediation is shown to users whose account cannot be resolved.
const IdentityRemediation = "We could not find your user account. Please re-login or contact admin."

// ValidationError carries field-keyed messages. Keys use the request field
// names, with item fields addressed as items.<index>.<field>.
type ValidationError struct {
	Fields map[string]string
	kind   error
}

func newValidationError(kind error, fields map[string]string) *ValidationError {
	return &ValidationError{Fields: fields, kind: kind}
}

func (e *ValidationError) Error() string {
	keys := make([]string, 0, len(e.Fields))
	for k := range e.Fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, k+": "+e.Fields[k])
	}
	return e.kind.Error() + ": " + strings.Join(parts, "; ")
}

// Unwrap exposes ErrValidation or ErrUnknownSupplier.
func (e *ValidationError) Unwrap() error {
	return e.kind
}

// FieldErrors returns the field messages.
func (e *ValidationError) FieldErrors() map[string]string {
	return e.Fields
}

// PersistenceError wraps a failure of the creation transaction.
type PersistenceError struct {
	Err   error
	Stack []byte
}

func (e *PersistenceError) Error() string {
	return "purchasing: create purchase order: " + e.Err.Error()
}

// Unwrap exposes both ErrPersistence and the underlying cause.
func (e *PersistenceError) Unwrap() []error {
	return []error{ErrPersistence, e.Err}
}

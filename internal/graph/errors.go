package graph

import (
	"errors"
	"fmt"
)

// Kind classifies resolution and evaluation failures.
type Kind int

const (
	// KindNotFound means an object, project, or version id is unknown.
	KindNotFound Kind = iota
	// KindInvalidPath means a property path failed to parse.
	KindInvalidPath
	// KindPropertyNotFound means a field step named a missing key.
	KindPropertyNotFound
	// KindIndexOutOfRange means an index step exceeded a sequence length.
	KindIndexOutOfRange
	// KindTypeMismatch means a step was applied to a value of the wrong shape.
	KindTypeMismatch
	// KindCyclicReference means the object graph contains a reference cycle.
	KindCyclicReference
	// KindFetchTimeout means an object fetch exceeded its deadline.
	KindFetchTimeout
	// KindTransient means the object store was unavailable; retryable.
	KindTransient
)

// String returns the wire name of the kind, as used in error bodies.
func (k Kind) String() string {
	switch k {
	case KindNotFound:
		return "NotFound"
	case KindInvalidPath:
		return "InvalidPath"
	case KindPropertyNotFound:
		return "PropertyNotFound"
	case KindIndexOutOfRange:
		return "IndexOutOfRange"
	case KindTypeMismatch:
		return "TypeMismatch"
	case KindCyclicReference:
		return "CyclicReference"
	case KindFetchTimeout:
		return "FetchTimeout"
	case KindTransient:
		return "TransientError"
	default:
		return "Unknown"
	}
}

// Error is a classified resolution failure carrying enough context for a
// caller to diagnose without re-fetching: the offending object id and,
// for path evaluation failures, the path prefix walked so far.
type Error struct {
	Kind     Kind
	ObjectID string
	Segment  string // path prefix up to and including the failing step
	Message  string
	Err      error
}

// Error implements the error interface.
func (e *Error) Error() string {
	msg := e.Message
	if msg == "" && e.Err != nil {
		msg = e.Err.Error()
	}
	switch {
	case e.Segment != "" && msg != "":
		return fmt.Sprintf("%s at %q: %s", e.Kind, e.Segment, msg)
	case e.Segment != "":
		return fmt.Sprintf("%s at %q", e.Kind, e.Segment)
	case e.ObjectID != "" && msg != "":
		return fmt.Sprintf("%s: object %s: %s", e.Kind, e.ObjectID, msg)
	case e.ObjectID != "":
		return fmt.Sprintf("%s: object %s", e.Kind, e.ObjectID)
	case msg != "":
		return fmt.Sprintf("%s: %s", e.Kind, msg)
	default:
		return e.Kind.String()
	}
}

// Unwrap returns the underlying cause, if any.
func (e *Error) Unwrap() error { return e.Err }

// KindOf extracts the classification from err. The second return is
// false when err carries no graph classification.
func KindOf(err error) (Kind, bool) {
	var ge *Error
	if errors.As(err, &ge) {
		return ge.Kind, true
	}
	return 0, false
}

// IsNotFound reports whether err is a NotFound failure.
func IsNotFound(err error) bool {
	k, ok := KindOf(err)
	return ok && k == KindNotFound
}

// IsCyclicReference reports whether err is a CyclicReference failure.
func IsCyclicReference(err error) bool {
	k, ok := KindOf(err)
	return ok && k == KindCyclicReference
}

// IsTransient reports whether err may succeed on retry.
func IsTransient(err error) bool {
	k, ok := KindOf(err)
	return ok && (k == KindTransient || k == KindFetchTimeout)
}

// NewNotFound builds a NotFound error for the given object id.
func NewNotFound(objectID string) *Error {
	return &Error{Kind: KindNotFound, ObjectID: objectID}
}

// NewCyclicReference builds a CyclicReference error for the object whose
// reference closes the cycle.
func NewCyclicReference(objectID string) *Error {
	return &Error{Kind: KindCyclicReference, ObjectID: objectID, Message: "reference cycle detected"}
}

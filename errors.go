package codescope

import "fmt"

// ErrorKind classifies engine errors so callers can branch on category
// without string matching.
type ErrorKind string

const (
	// ErrInvalidFilter indicates a malformed include/exclude glob pattern.
	ErrInvalidFilter ErrorKind = "invalid_filter"
	// ErrBudgetTooSmall indicates the token budget cannot hold any output.
	ErrBudgetTooSmall ErrorKind = "budget_too_small"
	// ErrRadiusTooLarge indicates the requested radius exceeds the cap.
	ErrRadiusTooLarge ErrorKind = "radius_too_large"
	// ErrNoSeeds indicates no requested seed exists in the graph.
	ErrNoSeeds ErrorKind = "no_seeds"
)

// Error is the engine's error type. All errors returned from Engine
// operations that stem from caller input are of this type.
type Error struct {
	Kind    ErrorKind
	Message string
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func newError(kind ErrorKind, format string, args ...any) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

// IsKind reports whether err is an engine Error of the given kind.
func IsKind(err error, kind ErrorKind) bool {
	e, ok := err.(*Error)
	return ok && e.Kind == kind
}

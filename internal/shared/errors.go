package shared

import (
	"fmt"
	"strconv"
	"strings"
)

// ValidationError reports malformed or rejected input. Field names the
// offending input and IDs lists offending entities for batch operations.
type ValidationError struct {
	Field  string
	Reason string
	IDs    []int64
}

func (e *ValidationError) Error() string {
	var b strings.Builder
	b.WriteString("validation failed")
	if e.Field != "" {
		b.WriteString(": ")
		b.WriteString(e.Field)
	}
	if e.Reason != "" {
		b.WriteString(": ")
		b.WriteString(e.Reason)
	}
	if len(e.IDs) > 0 {
		b.WriteString(" [ids ")
		b.WriteString(joinIDs(e.IDs))
		b.WriteString("]")
	}
	return b.String()
}

// NewValidationError constructs a ValidationError for a single field.
func NewValidationError(field, reason string) *ValidationError {
	return &ValidationError{Field: field, Reason: reason}
}

// ConflictError reports a status precondition violated by concurrent
// mutation or a wrong current state.
type ConflictError struct {
	Entity   string
	ID       int64
	Expected string
	Actual   string
}

func (e *ConflictError) Error() string {
	return fmt.Sprintf("%s %d: expected status %s, got %s", e.Entity, e.ID, e.Expected, e.Actual)
}

// NotFoundError reports an unknown entity id.
type NotFoundError struct {
	Entity string
	ID     int64
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s %d not found", e.Entity, e.ID)
}

func joinIDs(ids []int64) string {
	parts := make([]string, len(ids))
	for i, id := range ids {
		parts[i] = strconv.FormatInt(id, 10)
	}
	return strings.Join(parts, ",")
}

package domain

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

var (
	ErrNotFound          = errors.New("entity not found")
	ErrUnknownCollection = errors.New("unknown collection")
)

// FieldErrors maps a field path (e.g. "date.day") to a message.
type FieldErrors map[string]string

func (fe FieldErrors) Add(field, msg string) {
	if _, ok := fe[field]; !ok {
		fe[field] = msg
	}
}

func (fe FieldErrors) Err() error {
	if len(fe) == 0 {
		return nil
	}
	return &ValidationError{Fields: fe}
}

type ValidationError struct {
	Fields FieldErrors
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
	return "validation failed: " + strings.Join(parts, "; ")
}

type NotFoundError struct {
	Collection string
	ID         string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s %q not found", e.Collection, e.ID)
}

func (e *NotFoundError) Is(target error) bool { return target == ErrNotFound }

// ConflictError reports a uniqueness or version clash.
type ConflictError struct {
	Field   string
	Message string
}

func (e *ConflictError) Error() string {
	return fmt.Sprintf("conflict on %s: %s", e.Field, e.Message)
}

// ReorderPartialFailure means some but not all order writes were applied;
// the collection's orders may no longer be contiguous.
type ReorderPartialFailure struct {
	Collection string
	Applied    int
	Total      int
	Failed     []string
	Err        error
}

func (e *ReorderPartialFailure) Error() string {
	return fmt.Sprintf("reorder of %s partially applied (%d/%d): %v", e.Collection, e.Applied, e.Total, e.Err)
}

func (e *ReorderPartialFailure) Unwrap() error { return e.Err }

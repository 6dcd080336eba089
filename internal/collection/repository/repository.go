package repository

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/duet-robotics/drc-backend/internal/collection/domain"
)

type Filter struct {
	ActiveOnly bool
}

// Repository persists entities of every collection. Implementations return
// *domain.NotFoundError for missing ids and *domain.ConflictError for
// version or uniqueness clashes.
type Repository interface {
	Insert(ctx context.Context, collection string, e *domain.Entity) error
	FindAll(ctx context.Context, collection string, f Filter) ([]*domain.Entity, error)
	FindByID(ctx context.Context, collection, id string) (*domain.Entity, error)
	FindByField(ctx context.Context, collection, field string, value any) ([]*domain.Entity, error)
	// Replace overwrites the stored entity and sets e.Version to the new
	// stored version. expectedVersion > 0 must match the stored version.
	Replace(ctx context.Context, collection string, e *domain.Entity, expectedVersion int64) error
	Delete(ctx context.Context, collection, id string) error
	// SetOrders writes every pair, bumping each entity's version, and
	// returns how many were applied, also on error. When the applied writes
	// are not a prefix of updates the error is a *PartialWriteError.
	SetOrders(ctx context.Context, collection string, updates []domain.OrderUpdate) (int, error)
	// Increment bumps a counter field. Counters are not admin-edited, so the
	// version stays as it is.
	Increment(ctx context.Context, collection, id, field string, delta int) error
}

// PartialWriteError names the ids a bulk write left untouched when they do
// not simply follow the applied ones.
type PartialWriteError struct {
	Failed []string
	Err    error
}

func (e *PartialWriteError) Error() string {
	return fmt.Sprintf("%d writes not applied: %v", len(e.Failed), e.Err)
}

func (e *PartialWriteError) Unwrap() error { return e.Err }

func notFound(collection, id string) error {
	return &domain.NotFoundError{Collection: collection, ID: id}
}

func versionConflict(expected int64) error {
	return &domain.ConflictError{
		Field:   "version",
		Message: fmt.Sprintf("entity was modified since version %d", expected),
	}
}

func uniqueConflict(field string) error {
	return &domain.ConflictError{Field: field, Message: "value already exists"}
}

// canonical round-trips e through JSON so every backend hands out values in
// the same shape.
func canonical(e *domain.Entity) (*domain.Entity, error) {
	b, err := json.Marshal(e)
	if err != nil {
		return nil, fmt.Errorf("encode entity: %w", err)
	}
	var out domain.Entity
	if err := json.Unmarshal(b, &out); err != nil {
		return nil, fmt.Errorf("decode entity: %w", err)
	}
	if out.Fields == nil {
		out.Fields = map[string]any{}
	}
	return &out, nil
}

// Package service implements the ordered collection store on top of a
// repository, the image binder and the reorder lock.
package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/duet-robotics/drc-backend/internal/collection/domain"
	"github.com/duet-robotics/drc-backend/internal/collection/reorder"
	"github.com/duet-robotics/drc-backend/internal/collection/repository"
	"github.com/duet-robotics/drc-backend/internal/lock"
	"github.com/duet-robotics/drc-backend/internal/logger"
	"github.com/duet-robotics/drc-backend/internal/media"
	"github.com/duet-robotics/drc-backend/internal/orphans"
)

// Images is the part of the image binder the store needs.
type Images interface {
	GeneratePlaceholder(name string) media.Image
	IsPlaceholder(url string) bool
	Release(ctx context.Context, ref string) error
}

// Invalidator drops cached public views of a collection.
type Invalidator interface {
	Invalidate(ctx context.Context, collection string)
}

type Deps struct {
	Repo        repository.Repository
	Images      Images
	Locker      lock.Locker
	Ledger      orphans.Ledger
	Invalidator Invalidator
	Log         *zap.Logger
	Now         func() time.Time
}

// Store is the ordered collection store for one content type.
type Store struct {
	schema *domain.Schema
	deps   Deps
}

func NewStore(schema *domain.Schema, deps Deps) *Store {
	if deps.Log == nil {
		deps.Log = zap.NewNop()
	}
	if deps.Locker == nil {
		deps.Locker = lock.NewLocal()
	}
	if deps.Now == nil {
		deps.Now = func() time.Time { return time.Now().UTC() }
	}
	return &Store{schema: schema, deps: deps}
}

func (s *Store) Schema() *domain.Schema { return s.schema }

func (s *Store) env() domain.Env {
	env := domain.Env{Now: s.deps.Now()}
	if s.deps.Images != nil {
		env.Placeholder = func(name string) string {
			return s.deps.Images.GeneratePlaceholder(name).URL
		}
	}
	return env
}

func (s *Store) log(ctx context.Context) *zap.Logger {
	return logger.For(ctx, s.deps.Log).With(zap.String("collection", s.schema.Name))
}

// Create validates input and stores a new entity. Image-bearing types get
// a generated placeholder when no image is supplied.
func (s *Store) Create(ctx context.Context, input map[string]any) (*domain.Entity, error) {
	e, err := s.schema.Build(input, s.env())
	if err != nil {
		return nil, err
	}
	s.ensureImage(e)
	if err := s.checkUnique(ctx, e); err != nil {
		return nil, err
	}

	now := s.deps.Now()
	e.ID = uuid.NewString()
	e.Version = 1
	e.CreatedAt = now
	e.UpdatedAt = now

	if err := s.deps.Repo.Insert(ctx, s.schema.Name, e); err != nil {
		return nil, fmt.Errorf("create %s: %w", s.schema.Name, err)
	}
	s.invalidate(ctx)

	s.log(ctx).Info("entity created", zap.String("id", e.ID))
	return e, nil
}

// GetAll returns the collection in display order. The public view holds
// active entities only.
func (s *Store) GetAll(ctx context.Context, view domain.View) ([]*domain.Entity, error) {
	items, err := s.deps.Repo.FindAll(ctx, s.schema.Name, repository.Filter{ActiveOnly: view == domain.ViewPublic})
	if err != nil {
		return nil, fmt.Errorf("list %s: %w", s.schema.Name, err)
	}
	s.schema.SortEntities(items)
	return items, nil
}

func (s *Store) GetByID(ctx context.Context, id string) (*domain.Entity, error) {
	return s.deps.Repo.FindByID(ctx, s.schema.Name, id)
}

// FindBy returns the entities whose field equals value, in display order.
func (s *Store) FindBy(ctx context.Context, field string, value any) ([]*domain.Entity, error) {
	items, err := s.deps.Repo.FindByField(ctx, s.schema.Name, field, value)
	if err != nil {
		return nil, err
	}
	s.schema.SortEntities(items)
	return items, nil
}

// Update merges patch into the stored entity. It never releases images;
// callers replacing a bound image release the old one themselves.
// expectedVersion 0 means last write wins.
func (s *Store) Update(ctx context.Context, id string, patch map[string]any, expectedVersion int64) (*domain.Entity, error) {
	cur, err := s.deps.Repo.FindByID(ctx, s.schema.Name, id)
	if err != nil {
		return nil, err
	}
	if expectedVersion > 0 && cur.Version != expectedVersion {
		return nil, &domain.ConflictError{
			Field:   "version",
			Message: fmt.Sprintf("entity is at version %d, not %d", cur.Version, expectedVersion),
		}
	}

	next, err := s.schema.Merge(cur, patch, s.env())
	if err != nil {
		return nil, err
	}
	s.ensureImage(next)
	if err := s.checkUnique(ctx, next); err != nil {
		return nil, err
	}

	next.UpdatedAt = s.deps.Now()
	if err := s.deps.Repo.Replace(ctx, s.schema.Name, next, expectedVersion); err != nil {
		return nil, err
	}
	s.invalidate(ctx)
	return next, nil
}

// Delete releases the entity's bound image and removes the record. A
// failed release is recorded for the sweeper and does not stop the delete.
func (s *Store) Delete(ctx context.Context, id string) error {
	cur, err := s.deps.Repo.FindByID(ctx, s.schema.Name, id)
	if err != nil {
		return err
	}

	if ref := cur.Image.Ref(); ref != "" && s.deps.Images != nil {
		if relErr := s.deps.Images.Release(ctx, ref); relErr != nil {
			s.log(ctx).Warn("image release failed", zap.String("id", id), zap.String("public_id", ref), zap.Error(relErr))
			s.RecordOrphan(ctx, ref, orphans.ReasonReleaseFailed, relErr)
		}
	}

	if err := s.deps.Repo.Delete(ctx, s.schema.Name, id); err != nil {
		return err
	}
	s.invalidate(ctx)

	s.log(ctx).Info("entity deleted", zap.String("id", id))
	return nil
}

// Reorder applies a full set of (id, order) pairs. Every entity of the
// collection must be listed.
func (s *Store) Reorder(ctx context.Context, updates []domain.OrderUpdate) error {
	unlock, err := s.deps.Locker.Acquire(ctx, s.lockKey())
	if err != nil {
		return err
	}
	defer unlock()

	all, err := s.deps.Repo.FindAll(ctx, s.schema.Name, repository.Filter{})
	if err != nil {
		return fmt.Errorf("list %s: %w", s.schema.Name, err)
	}
	known := make(map[string]bool, len(all))
	for _, e := range all {
		known[e.ID] = true
	}
	if err := reorder.Check(updates, known); err != nil {
		return err
	}
	if len(updates) != len(all) {
		return &domain.ValidationError{Fields: domain.FieldErrors{
			"updates": fmt.Sprintf("must list every entity (%d given, %d stored)", len(updates), len(all)),
		}}
	}
	return s.persistOrders(ctx, updates)
}

// Move swaps id with its neighbour in admin order and renumbers the whole
// collection. A move past either end changes nothing.
func (s *Store) Move(ctx context.Context, id string, dir reorder.Direction) ([]*domain.Entity, error) {
	unlock, err := s.deps.Locker.Acquire(ctx, s.lockKey())
	if err != nil {
		return nil, err
	}
	defer unlock()

	items, err := s.GetAll(ctx, domain.ViewAdmin)
	if err != nil {
		return nil, err
	}
	seq := make([]string, len(items))
	for i, e := range items {
		seq[i] = e.ID
	}

	updates, moved, err := reorder.Move(seq, id, dir)
	if errors.Is(err, reorder.ErrNotInSequence) {
		return nil, &domain.NotFoundError{Collection: s.schema.Name, ID: id}
	}
	if err != nil {
		return nil, err
	}
	if !moved {
		return items, nil
	}

	if err := s.persistOrders(ctx, updates); err != nil {
		return nil, err
	}
	return s.GetAll(ctx, domain.ViewAdmin)
}

func (s *Store) persistOrders(ctx context.Context, updates []domain.OrderUpdate) error {
	applied, err := s.deps.Repo.SetOrders(ctx, s.schema.Name, updates)
	if applied > 0 {
		s.invalidate(ctx)
	}
	if err == nil {
		s.log(ctx).Info("collection reordered", zap.Int("entities", len(updates)))
		return nil
	}
	if applied > 0 && applied < len(updates) {
		var failed []string
		var pwe *repository.PartialWriteError
		if errors.As(err, &pwe) {
			failed = pwe.Failed
		} else {
			for _, u := range updates[applied:] {
				failed = append(failed, u.ID)
			}
		}
		s.log(ctx).Error("reorder partially applied",
			zap.Int("applied", applied),
			zap.Int("total", len(updates)),
			zap.Error(err),
		)
		return &domain.ReorderPartialFailure{
			Collection: s.schema.Name,
			Applied:    applied,
			Total:      len(updates),
			Failed:     failed,
			Err:        err,
		}
	}
	return fmt.Errorf("reorder %s: %w", s.schema.Name, err)
}

// Increment bumps a counter field such as blog views.
func (s *Store) Increment(ctx context.Context, id, field string, delta int) error {
	if err := s.deps.Repo.Increment(ctx, s.schema.Name, id, field, delta); err != nil {
		return err
	}
	s.invalidate(ctx)
	return nil
}

// RecordOrphan notes an asset reference that nothing points to any more.
func (s *Store) RecordOrphan(ctx context.Context, ref string, reason orphans.Reason, cause error) {
	if s.deps.Ledger == nil || ref == "" {
		return
	}
	o := orphans.Orphan{Ref: ref, Collection: s.schema.Name, Reason: reason, FirstSeen: s.deps.Now()}
	if cause != nil {
		o.LastError = cause.Error()
	}
	if err := s.deps.Ledger.Record(ctx, o); err != nil {
		s.log(ctx).Error("orphan not recorded", zap.String("public_id", ref), zap.Error(err))
	}
}

func (s *Store) ensureImage(e *domain.Entity) {
	if !s.schema.HasImage() || s.schema.ImageRequired || s.deps.Images == nil {
		return
	}
	if e.Image != nil && e.Image.URL != "" {
		// generated avatars follow the display name
		if !e.Image.Bound() && s.deps.Images.IsPlaceholder(e.Image.URL) {
			img := s.deps.Images.GeneratePlaceholder(s.schema.DisplayName(e))
			e.Image = &img
			return
		}
		if e.Image.Alt == "" {
			e.Image.Alt = s.schema.DisplayName(e)
		}
		return
	}
	img := s.deps.Images.GeneratePlaceholder(s.schema.DisplayName(e))
	e.Image = &img
}

func (s *Store) checkUnique(ctx context.Context, e *domain.Entity) error {
	for _, field := range s.schema.UniqueFields() {
		v, ok := e.Fields[field]
		if !ok {
			continue
		}
		matches, err := s.deps.Repo.FindByField(ctx, s.schema.Name, field, v)
		if err != nil {
			return fmt.Errorf("check %s: %w", field, err)
		}
		for _, m := range matches {
			if m.ID != e.ID {
				return &domain.ConflictError{Field: field, Message: fmt.Sprintf("%v is already used", v)}
			}
		}
	}
	return nil
}

func (s *Store) lockKey() string { return "reorder:" + s.schema.Name }

func (s *Store) invalidate(ctx context.Context) {
	if s.deps.Invalidator != nil {
		s.deps.Invalidator.Invalidate(ctx, s.schema.Name)
	}
}

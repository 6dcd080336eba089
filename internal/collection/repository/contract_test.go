package repository

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/duet-robotics/drc-backend/internal/collection/domain"
	"github.com/duet-robotics/drc-backend/internal/media"
)

func newEntity(name string, order int, active bool) *domain.Entity {
	now := time.Now().UTC().Truncate(time.Millisecond)
	return &domain.Entity{
		ID:        uuid.NewString(),
		Order:     order,
		IsActive:  active,
		Version:   1,
		Fields:    map[string]any{"name": name, "views": float64(0)},
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// runContract exercises behaviour every backend must share. collection
// should be unique per run.
func runContract(t *testing.T, repo Repository, collection string) {
	ctx := context.Background()

	a := newEntity("A", 0, true)
	a.Image = &media.Image{URL: "https://cdn/a.png", Alt: "A", PublicID: "img_a"}
	b := newEntity("B", 1, false)
	c := newEntity("C", 2, true)
	for _, e := range []*domain.Entity{a, b, c} {
		require.NoError(t, repo.Insert(ctx, collection, e))
	}

	t.Run("find by id", func(t *testing.T) {
		got, err := repo.FindByID(ctx, collection, a.ID)
		require.NoError(t, err)
		assert.Equal(t, "A", got.Fields["name"])
		assert.Equal(t, a.Image, got.Image)
		assert.Equal(t, int64(1), got.Version)

		_, err = repo.FindByID(ctx, collection, "missing")
		assert.ErrorIs(t, err, domain.ErrNotFound)
	})

	t.Run("active filter", func(t *testing.T) {
		all, err := repo.FindAll(ctx, collection, Filter{})
		require.NoError(t, err)
		assert.Len(t, all, 3)

		active, err := repo.FindAll(ctx, collection, Filter{ActiveOnly: true})
		require.NoError(t, err)
		assert.Len(t, active, 2)
		for _, e := range active {
			assert.True(t, e.IsActive)
		}
	})

	t.Run("find by field", func(t *testing.T) {
		got, err := repo.FindByField(ctx, collection, "name", "B")
		require.NoError(t, err)
		require.Len(t, got, 1)
		assert.Equal(t, b.ID, got[0].ID)
	})

	t.Run("replace bumps version", func(t *testing.T) {
		upd, err := repo.FindByID(ctx, collection, c.ID)
		require.NoError(t, err)
		upd.Fields["name"] = "C2"
		upd.Image = nil

		require.NoError(t, repo.Replace(ctx, collection, upd, 0))
		assert.Equal(t, int64(2), upd.Version)

		err = repo.Replace(ctx, collection, upd, 1)
		var ce *domain.ConflictError
		require.ErrorAs(t, err, &ce)
		assert.Equal(t, "version", ce.Field)

		require.NoError(t, repo.Replace(ctx, collection, upd, 2))

		got, err := repo.FindByID(ctx, collection, c.ID)
		require.NoError(t, err)
		assert.Equal(t, "C2", got.Fields["name"])
		assert.Nil(t, got.Image)
		assert.Equal(t, int64(3), got.Version)

		ghost := newEntity("ghost", 0, true)
		assert.ErrorIs(t, repo.Replace(ctx, collection, ghost, 0), domain.ErrNotFound)
	})

	t.Run("set orders", func(t *testing.T) {
		before, err := repo.FindByID(ctx, collection, c.ID)
		require.NoError(t, err)

		n, err := repo.SetOrders(ctx, collection, []domain.OrderUpdate{
			{ID: c.ID, Order: 0}, {ID: a.ID, Order: 1}, {ID: b.ID, Order: 2},
		})
		require.NoError(t, err)
		assert.Equal(t, 3, n)

		got, err := repo.FindByID(ctx, collection, c.ID)
		require.NoError(t, err)
		assert.Equal(t, 0, got.Order)
		assert.Equal(t, before.Version+1, got.Version)

		// a stale replace must not undo the new order
		stale := got.Clone()
		stale.Order = 2
		assert.ErrorAs(t, repo.Replace(ctx, collection, stale, before.Version), new(*domain.ConflictError))
	})

	t.Run("increment", func(t *testing.T) {
		before, err := repo.FindByID(ctx, collection, a.ID)
		require.NoError(t, err)

		require.NoError(t, repo.Increment(ctx, collection, a.ID, "views", 1))
		require.NoError(t, repo.Increment(ctx, collection, a.ID, "views", 1))

		got, err := repo.FindByID(ctx, collection, a.ID)
		require.NoError(t, err)
		n, ok := domain.Int(got.Fields["views"])
		require.True(t, ok)
		assert.Equal(t, 2, n)
		assert.Equal(t, before.Version, got.Version)

		assert.ErrorIs(t, repo.Increment(ctx, collection, "missing", "views", 1), domain.ErrNotFound)
	})

	t.Run("delete is not idempotent at the repo", func(t *testing.T) {
		require.NoError(t, repo.Delete(ctx, collection, b.ID))
		assert.ErrorIs(t, repo.Delete(ctx, collection, b.ID), domain.ErrNotFound)
	})
}

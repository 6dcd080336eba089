package repository

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/duet-robotics/drc-backend/internal/collection/domain"
)

func TestMemoryRepo_Contract(t *testing.T) {
	repo, err := NewMemory()
	require.NoError(t, err)

	runContract(t, repo, "faq")
}

func TestMemoryRepo_CollectionsAreIsolated(t *testing.T) {
	ctx := context.Background()
	repo, err := NewMemory()
	require.NoError(t, err)

	e := newEntity("same", 0, true)
	require.NoError(t, repo.Insert(ctx, "faq", e))
	require.NoError(t, repo.Insert(ctx, "stats", e))

	var ce *domain.ConflictError
	require.ErrorAs(t, repo.Insert(ctx, "faq", e), &ce)

	require.NoError(t, repo.Delete(ctx, "faq", e.ID))
	_, err = repo.FindByID(ctx, "stats", e.ID)
	assert.NoError(t, err)
}

func TestMemoryRepo_ReturnsCopies(t *testing.T) {
	ctx := context.Background()
	repo, err := NewMemory()
	require.NoError(t, err)

	e := newEntity("orig", 0, true)
	require.NoError(t, repo.Insert(ctx, "faq", e))
	e.Fields["name"] = "mutated after insert"

	got, err := repo.FindByID(ctx, "faq", e.ID)
	require.NoError(t, err)
	got.Fields["name"] = "mutated after read"

	again, err := repo.FindByID(ctx, "faq", e.ID)
	require.NoError(t, err)
	assert.Equal(t, "orig", again.Fields["name"])
}

func TestMemoryRepo_SetOrdersIsAllOrNothing(t *testing.T) {
	ctx := context.Background()
	repo, err := NewMemory()
	require.NoError(t, err)

	a := newEntity("A", 0, true)
	require.NoError(t, repo.Insert(ctx, "faq", a))

	n, err := repo.SetOrders(ctx, "faq", []domain.OrderUpdate{{ID: a.ID, Order: 5}, {ID: "gone", Order: 0}})
	assert.ErrorIs(t, err, domain.ErrNotFound)
	assert.Equal(t, 0, n)

	got, err := repo.FindByID(ctx, "faq", a.ID)
	require.NoError(t, err)
	assert.Equal(t, 0, got.Order)
}

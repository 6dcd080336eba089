package repository

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"

	"github.com/duet-robotics/drc-backend/internal/collection/domain"
)

var uniqueSchema = &domain.Schema{
	Name:   "it-widgets",
	Fields: []domain.Field{{Name: "name", Kind: domain.KindString}, {Name: "slug", Kind: domain.KindString, Unique: true}},
}

func assertUniqueConflict(t *testing.T, repo Repository, collection string) {
	ctx := context.Background()
	slug := "s-" + uuid.NewString()

	first := newEntity("one", 0, true)
	first.Fields["slug"] = slug
	require.NoError(t, repo.Insert(ctx, collection, first))

	second := newEntity("two", 1, true)
	second.Fields["slug"] = slug
	err := repo.Insert(ctx, collection, second)

	var ce *domain.ConflictError
	require.ErrorAs(t, err, &ce)
	assert.Equal(t, "slug", ce.Field)
}

// Skips unless TEST_DB_DSN points at a disposable database.
func TestPostgresRepo_Integration(t *testing.T) {
	dsn := os.Getenv("TEST_DB_DSN")
	if dsn == "" {
		t.Skip("TEST_DB_DSN not set")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	pool, err := pgxpool.New(ctx, dsn)
	require.NoError(t, err)
	defer pool.Close()

	repo := NewPostgres(pool)
	require.NoError(t, repo.Migrate(ctx, []*domain.Schema{uniqueSchema}))

	runContract(t, repo, "it-"+uuid.NewString())
	assertUniqueConflict(t, repo, uniqueSchema.Name)
}

// Skips unless TEST_MONGODB_URI is set.
func TestMongoRepo_Integration(t *testing.T) {
	uri := os.Getenv("TEST_MONGODB_URI")
	if uri == "" {
		t.Skip("TEST_MONGODB_URI not set")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	client, err := mongo.Connect(options.Client().ApplyURI(uri))
	require.NoError(t, err)
	defer client.Disconnect(ctx)

	db := client.Database("drc_test_" + uuid.NewString()[:8])
	defer db.Drop(ctx)

	repo := NewMongo(db)
	require.NoError(t, repo.EnsureIndexes(ctx, []*domain.Schema{uniqueSchema}))

	runContract(t, repo, "contract")
	assertUniqueConflict(t, repo, uniqueSchema.Name)
}

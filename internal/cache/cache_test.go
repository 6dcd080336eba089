package cache

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRedisCache(t *testing.T) {
	mr, err := miniredis.Run()
	require.NoError(t, err)
	defer mr.Close()

	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer client.Close()

	ctx := context.Background()
	c := NewRedis(client, "drc:")

	_, ok, err := c.Get(ctx, "site:page")
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, c.Set(ctx, "site:page", []byte(`{"ok":true}`), time.Minute))
	assert.True(t, mr.Exists("drc:site:page"))

	b, ok, err := c.Get(ctx, "site:page")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.JSONEq(t, `{"ok":true}`, string(b))

	mr.FastForward(2 * time.Minute)
	_, ok, err = c.Get(ctx, "site:page")
	require.NoError(t, err)
	assert.False(t, ok, "entry should expire")

	require.NoError(t, c.Set(ctx, "a", []byte("1"), 0))
	require.NoError(t, c.Delete(ctx, "a", "missing"))
	assert.False(t, mr.Exists("drc:a"))
}

func TestNoop(t *testing.T) {
	var c Cache = Noop{}
	require.NoError(t, c.Set(context.Background(), "k", []byte("v"), 0))
	_, ok, err := c.Get(context.Background(), "k")
	require.NoError(t, err)
	assert.False(t, ok)
}

package lock

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func setupRedis(t *testing.T) (*miniredis.Miniredis, *redis.Client) {
	mr, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(mr.Close)

	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })
	return mr, client
}

func exercise(t *testing.T, l Locker) {
	var (
		inside  int32
		maxSeen int32
		wg      sync.WaitGroup
	)
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			release, err := l.Acquire(context.Background(), "faq")
			if !assert.NoError(t, err) {
				return
			}
			n := atomic.AddInt32(&inside, 1)
			for {
				m := atomic.LoadInt32(&maxSeen)
				if n <= m || atomic.CompareAndSwapInt32(&maxSeen, m, n) {
					break
				}
			}
			time.Sleep(2 * time.Millisecond)
			atomic.AddInt32(&inside, -1)
			release()
		}()
	}
	wg.Wait()
	assert.Equal(t, int32(1), maxSeen)
}

func TestLocal_MutualExclusion(t *testing.T) {
	exercise(t, NewLocal())
}

func TestLocal_ContextCancel(t *testing.T) {
	l := NewLocal()
	release, err := l.Acquire(context.Background(), "k")
	require.NoError(t, err)
	defer release()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	_, err = l.Acquire(ctx, "k")
	assert.ErrorIs(t, err, context.DeadlineExceeded)

	other, err := l.Acquire(context.Background(), "other")
	require.NoError(t, err)
	other()
}

func TestRedis_MutualExclusion(t *testing.T) {
	_, client := setupRedis(t)
	exercise(t, NewRedis(client, time.Second, nil))
}

func TestRedis_ReleaseOnlyOwnToken(t *testing.T) {
	mr, client := setupRedis(t)
	l := NewRedis(client, time.Second, nil)

	release, err := l.Acquire(context.Background(), "k")
	require.NoError(t, err)

	// Simulate expiry and takeover by another holder.
	mr.Set("lock:k", "someone-else")
	release()

	v, err := mr.Get("lock:k")
	require.NoError(t, err)
	assert.Equal(t, "someone-else", v)
}

func TestRedis_ReleaseFreesKey(t *testing.T) {
	mr, client := setupRedis(t)
	l := NewRedis(client, time.Second, nil)

	release, err := l.Acquire(context.Background(), "k")
	require.NoError(t, err)
	assert.True(t, mr.Exists("lock:k"))

	release()
	release()
	assert.False(t, mr.Exists("lock:k"))
}

func TestRedis_ReleaseErrorIsLogged(t *testing.T) {
	mr, client := setupRedis(t)
	core, logs := observer.New(zapcore.WarnLevel)
	l := NewRedis(client, time.Second, zap.New(core))

	release, err := l.Acquire(context.Background(), "k")
	require.NoError(t, err)

	mr.Close()
	release()

	entries := logs.FilterMessage("lock release failed; key expires with its ttl").All()
	require.Len(t, entries, 1)
	assert.Equal(t, "lock:k", entries[0].ContextMap()["key"])
}

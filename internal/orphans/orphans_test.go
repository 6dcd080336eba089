package orphans

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func redisLedger(t *testing.T) *RedisLedger {
	mr, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(mr.Close)

	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })
	return NewRedisLedger(client)
}

func ledgers(t *testing.T) map[string]Ledger {
	return map[string]Ledger{
		"redis":  redisLedger(t),
		"memory": NewMemoryLedger(),
	}
}

func TestLedger(t *testing.T) {
	for name, l := range ledgers(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			t0 := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)

			require.NoError(t, l.Record(ctx, Orphan{Ref: "b", Reason: ReasonSaveFailed, FirstSeen: t0.Add(time.Hour)}))
			require.NoError(t, l.Record(ctx, Orphan{Ref: "a", Reason: ReasonReleaseFailed, FirstSeen: t0}))
			require.NoError(t, l.Record(ctx, Orphan{Ref: "a", Reason: ReasonSaveFailed, FirstSeen: t0}))

			pending, err := l.Pending(ctx, 0)
			require.NoError(t, err)
			require.Len(t, pending, 2)
			assert.Equal(t, "a", pending[0].Ref)
			assert.Equal(t, ReasonReleaseFailed, pending[0].Reason, "first record wins")

			limited, err := l.Pending(ctx, 1)
			require.NoError(t, err)
			assert.Len(t, limited, 1)

			require.NoError(t, l.Retry(ctx, pending[0], errors.New("timeout")))
			pending, err = l.Pending(ctx, 0)
			require.NoError(t, err)
			assert.Equal(t, 1, pending[0].Attempts)
			assert.Equal(t, "timeout", pending[0].LastError)

			require.NoError(t, l.Resolve(ctx, "a"))
			require.NoError(t, l.Resolve(ctx, "missing"))
			pending, err = l.Pending(ctx, 0)
			require.NoError(t, err)
			require.Len(t, pending, 1)
			assert.Equal(t, "b", pending[0].Ref)
		})
	}
}

type fakeReleaser struct {
	fail  map[string]error
	calls []string
}

func (f *fakeReleaser) Release(_ context.Context, ref string) error {
	f.calls = append(f.calls, ref)
	return f.fail[ref]
}

func TestSweeper(t *testing.T) {
	ctx := context.Background()
	l := NewMemoryLedger()
	require.NoError(t, l.Record(ctx, Orphan{Ref: "ok"}))
	require.NoError(t, l.Record(ctx, Orphan{Ref: "flaky"}))
	require.NoError(t, l.Record(ctx, Orphan{Ref: "dead", Attempts: 3}))

	rel := &fakeReleaser{fail: map[string]error{"flaky": errors.New("503")}}
	s := NewSweeper(l, rel, nil, 10, 3)

	res, err := s.Sweep(ctx)
	require.NoError(t, err)
	assert.Equal(t, SweepResult{Released: 1, Failed: 1, Dropped: 1}, res)
	assert.ElementsMatch(t, []string{"ok", "flaky"}, rel.calls)

	pending, err := l.Pending(ctx, 0)
	require.NoError(t, err)
	require.Len(t, pending, 1)
	assert.Equal(t, "flaky", pending[0].Ref)
	assert.Equal(t, 1, pending[0].Attempts)
}

func TestNewScheduler(t *testing.T) {
	s := NewSweeper(NewMemoryLedger(), &fakeReleaser{}, nil, 0, 0)

	_, err := NewScheduler("not a schedule", s, nil)
	assert.Error(t, err)

	sched, err := NewScheduler("0 */30 * * * *", s, nil)
	require.NoError(t, err)
	sched.Start()
	sched.Stop()
}

// Package orphans tracks media host assets that no entity references any
// more but that could not be released at the time.
package orphans

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

type Reason string

const (
	// ReasonReleaseFailed: the entity moved on but deleting the asset failed.
	ReasonReleaseFailed Reason = "release_failed"
	// ReasonSaveFailed: an upload succeeded but the entity save did not.
	ReasonSaveFailed Reason = "save_failed"
)

type Orphan struct {
	Ref        string    `json:"ref"`
	Collection string    `json:"collection,omitempty"`
	Reason     Reason    `json:"reason"`
	Attempts   int       `json:"attempts"`
	LastError  string    `json:"lastError,omitempty"`
	FirstSeen  time.Time `json:"firstSeen"`
}

type Ledger interface {
	// Record adds o; recording an already known ref keeps the first entry.
	Record(ctx context.Context, o Orphan) error
	Pending(ctx context.Context, limit int) ([]Orphan, error)
	Resolve(ctx context.Context, ref string) error
	Retry(ctx context.Context, o Orphan, cause error) error
}

const redisLedgerKey = "media:orphans"

// RedisLedger keeps orphans in one hash keyed by reference.
type RedisLedger struct {
	client *redis.Client
}

func NewRedisLedger(client *redis.Client) *RedisLedger {
	return &RedisLedger{client: client}
}

func (l *RedisLedger) Record(ctx context.Context, o Orphan) error {
	if o.FirstSeen.IsZero() {
		o.FirstSeen = time.Now().UTC()
	}
	b, err := json.Marshal(o)
	if err != nil {
		return fmt.Errorf("encode orphan: %w", err)
	}
	if err := l.client.HSetNX(ctx, redisLedgerKey, o.Ref, b).Err(); err != nil {
		return fmt.Errorf("record orphan %s: %w", o.Ref, err)
	}
	return nil
}

func (l *RedisLedger) Pending(ctx context.Context, limit int) ([]Orphan, error) {
	all, err := l.client.HGetAll(ctx, redisLedgerKey).Result()
	if err != nil {
		return nil, fmt.Errorf("list orphans: %w", err)
	}

	out := make([]Orphan, 0, len(all))
	for ref, raw := range all {
		var o Orphan
		if err := json.Unmarshal([]byte(raw), &o); err != nil {
			o = Orphan{Ref: ref, Reason: ReasonReleaseFailed}
		}
		out = append(out, o)
	}
	return oldestFirst(out, limit), nil
}

func (l *RedisLedger) Resolve(ctx context.Context, ref string) error {
	if err := l.client.HDel(ctx, redisLedgerKey, ref).Err(); err != nil {
		return fmt.Errorf("resolve orphan %s: %w", ref, err)
	}
	return nil
}

func (l *RedisLedger) Retry(ctx context.Context, o Orphan, cause error) error {
	o.Attempts++
	if cause != nil {
		o.LastError = cause.Error()
	}
	b, err := json.Marshal(o)
	if err != nil {
		return fmt.Errorf("encode orphan: %w", err)
	}
	if err := l.client.HSet(ctx, redisLedgerKey, o.Ref, b).Err(); err != nil {
		return fmt.Errorf("retry orphan %s: %w", o.Ref, err)
	}
	return nil
}

// MemoryLedger is the in-process Ledger used without Redis.
type MemoryLedger struct {
	mu    sync.Mutex
	items map[string]Orphan
}

func NewMemoryLedger() *MemoryLedger {
	return &MemoryLedger{items: map[string]Orphan{}}
}

func (l *MemoryLedger) Record(_ context.Context, o Orphan) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if _, ok := l.items[o.Ref]; ok {
		return nil
	}
	if o.FirstSeen.IsZero() {
		o.FirstSeen = time.Now().UTC()
	}
	l.items[o.Ref] = o
	return nil
}

func (l *MemoryLedger) Pending(_ context.Context, limit int) ([]Orphan, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make([]Orphan, 0, len(l.items))
	for _, o := range l.items {
		out = append(out, o)
	}
	return oldestFirst(out, limit), nil
}

func (l *MemoryLedger) Resolve(_ context.Context, ref string) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	delete(l.items, ref)
	return nil
}

func (l *MemoryLedger) Retry(_ context.Context, o Orphan, cause error) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	o.Attempts++
	if cause != nil {
		o.LastError = cause.Error()
	}
	l.items[o.Ref] = o
	return nil
}

func oldestFirst(items []Orphan, limit int) []Orphan {
	sort.Slice(items, func(i, j int) bool {
		if !items[i].FirstSeen.Equal(items[j].FirstSeen) {
			return items[i].FirstSeen.Before(items[j].FirstSeen)
		}
		return items[i].Ref < items[j].Ref
	})
	if limit > 0 && len(items) > limit {
		items = items[:limit]
	}
	return items
}

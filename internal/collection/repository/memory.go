package repository

import (
	"context"
	"fmt"
	"reflect"
	"time"

	"github.com/hashicorp/go-memdb"

	"github.com/duet-robotics/drc-backend/internal/collection/domain"
)

const memTable = "entities"

type memRecord struct {
	Key        string
	Collection string
	Entity     *domain.Entity
}

func memSchema() *memdb.DBSchema {
	return &memdb.DBSchema{
		Tables: map[string]*memdb.TableSchema{
			memTable: {
				Name: memTable,
				Indexes: map[string]*memdb.IndexSchema{
					"id": {
						Name:    "id",
						Unique:  true,
						Indexer: &memdb.StringFieldIndex{Field: "Key"},
					},
					"collection": {
						Name:    "collection",
						Indexer: &memdb.StringFieldIndex{Field: "Collection"},
					},
				},
			},
		},
	}
}

// MemoryRepo is a transactional in-process store. Stored records are never
// mutated; every write inserts a fresh copy.
type MemoryRepo struct {
	db  *memdb.MemDB
	now func() time.Time
}

func NewMemory() (*MemoryRepo, error) {
	db, err := memdb.NewMemDB(memSchema())
	if err != nil {
		return nil, fmt.Errorf("memdb: %w", err)
	}
	return &MemoryRepo{db: db, now: func() time.Time { return time.Now().UTC() }}, nil
}

func memKey(collection, id string) string { return collection + "/" + id }

func (r *MemoryRepo) put(txn *memdb.Txn, collection string, e *domain.Entity) error {
	c, err := canonical(e)
	if err != nil {
		return err
	}
	return txn.Insert(memTable, &memRecord{Key: memKey(collection, e.ID), Collection: collection, Entity: c})
}

func (r *MemoryRepo) get(txn *memdb.Txn, collection, id string) (*memRecord, error) {
	raw, err := txn.First(memTable, "id", memKey(collection, id))
	if err != nil {
		return nil, err
	}
	if raw == nil {
		return nil, notFound(collection, id)
	}
	return raw.(*memRecord), nil
}

func (r *MemoryRepo) Insert(_ context.Context, collection string, e *domain.Entity) error {
	txn := r.db.Txn(true)
	defer txn.Abort()

	if raw, err := txn.First(memTable, "id", memKey(collection, e.ID)); err != nil {
		return err
	} else if raw != nil {
		return uniqueConflict("id")
	}
	if err := r.put(txn, collection, e); err != nil {
		return err
	}
	txn.Commit()
	return nil
}

func (r *MemoryRepo) FindAll(_ context.Context, collection string, f Filter) ([]*domain.Entity, error) {
	return r.scan(collection, func(e *domain.Entity) bool {
		return !f.ActiveOnly || e.IsActive
	})
}

func (r *MemoryRepo) FindByID(_ context.Context, collection, id string) (*domain.Entity, error) {
	txn := r.db.Txn(false)
	rec, err := r.get(txn, collection, id)
	if err != nil {
		return nil, err
	}
	return rec.Entity.Clone(), nil
}

func (r *MemoryRepo) FindByField(_ context.Context, collection, field string, value any) ([]*domain.Entity, error) {
	return r.scan(collection, func(e *domain.Entity) bool {
		v, ok := e.Get(field)
		return ok && reflect.DeepEqual(v, value)
	})
}

func (r *MemoryRepo) scan(collection string, keep func(*domain.Entity) bool) ([]*domain.Entity, error) {
	txn := r.db.Txn(false)
	it, err := txn.Get(memTable, "collection", collection)
	if err != nil {
		return nil, err
	}

	var out []*domain.Entity
	for obj := it.Next(); obj != nil; obj = it.Next() {
		e := obj.(*memRecord).Entity
		if keep(e) {
			out = append(out, e.Clone())
		}
	}
	return out, nil
}

func (r *MemoryRepo) Replace(_ context.Context, collection string, e *domain.Entity, expectedVersion int64) error {
	txn := r.db.Txn(true)
	defer txn.Abort()

	rec, err := r.get(txn, collection, e.ID)
	if err != nil {
		return err
	}
	if expectedVersion > 0 && rec.Entity.Version != expectedVersion {
		return versionConflict(expectedVersion)
	}

	next := e.Clone()
	next.Version = rec.Entity.Version + 1
	next.CreatedAt = rec.Entity.CreatedAt
	if err := r.put(txn, collection, next); err != nil {
		return err
	}
	txn.Commit()

	e.Version = next.Version
	return nil
}

func (r *MemoryRepo) Delete(_ context.Context, collection, id string) error {
	txn := r.db.Txn(true)
	defer txn.Abort()

	rec, err := r.get(txn, collection, id)
	if err != nil {
		return err
	}
	if err := txn.Delete(memTable, rec); err != nil {
		return err
	}
	txn.Commit()
	return nil
}

// SetOrders applies all pairs or none.
func (r *MemoryRepo) SetOrders(_ context.Context, collection string, updates []domain.OrderUpdate) (int, error) {
	txn := r.db.Txn(true)
	defer txn.Abort()

	now := r.now()
	for _, u := range updates {
		rec, err := r.get(txn, collection, u.ID)
		if err != nil {
			return 0, err
		}
		next := rec.Entity.Clone()
		next.Order = u.Order
		next.Version++
		next.UpdatedAt = now
		if err := r.put(txn, collection, next); err != nil {
			return 0, err
		}
	}
	txn.Commit()
	return len(updates), nil
}

func (r *MemoryRepo) Increment(_ context.Context, collection, id, field string, delta int) error {
	txn := r.db.Txn(true)
	defer txn.Abort()

	rec, err := r.get(txn, collection, id)
	if err != nil {
		return err
	}
	next := rec.Entity.Clone()
	n, _ := domain.Int(next.Fields[field])
	next.Fields[field] = float64(n + delta)
	if err := r.put(txn, collection, next); err != nil {
		return err
	}
	txn.Commit()
	return nil
}

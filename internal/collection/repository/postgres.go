package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/duet-robotics/drc-backend/internal/collection/domain"
	"github.com/duet-robotics/drc-backend/internal/media"
)

const pgCreateTable = `
CREATE TABLE IF NOT EXISTS content_entities (
  collection  text        NOT NULL,
  id          text        NOT NULL,
  sort_order  integer     NOT NULL DEFAULT 0,
  is_active   boolean     NOT NULL DEFAULT true,
  version     bigint      NOT NULL DEFAULT 1,
  image       jsonb,
  fields      jsonb       NOT NULL DEFAULT '{}'::jsonb,
  created_at  timestamptz NOT NULL,
  updated_at  timestamptz NOT NULL,
  PRIMARY KEY (collection, id)
);
CREATE INDEX IF NOT EXISTS content_entities_order_idx ON content_entities (collection, sort_order);
`

const pgColumns = `id, sort_order, is_active, version, image, fields, created_at, updated_at`

// PostgresRepo stores every collection in one JSONB document table.
type PostgresRepo struct {
	pool *pgxpool.Pool
	// unique index name -> field, filled by Migrate
	uniqueIdx map[string]string
}

func NewPostgres(pool *pgxpool.Pool) *PostgresRepo {
	return &PostgresRepo{pool: pool, uniqueIdx: map[string]string{}}
}

// Migrate creates the table and one partial unique index per unique field.
func (r *PostgresRepo) Migrate(ctx context.Context, schemas []*domain.Schema) error {
	if _, err := r.pool.Exec(ctx, pgCreateTable); err != nil {
		return fmt.Errorf("create content_entities: %w", err)
	}

	for _, s := range schemas {
		for _, field := range s.UniqueFields() {
			name := uniqueIndexName(s.Name, field)
			sql := fmt.Sprintf(
				`CREATE UNIQUE INDEX IF NOT EXISTS %s ON content_entities ((fields->>%s)) WHERE collection = %s`,
				pgx.Identifier{name}.Sanitize(), quoteLiteral(field), quoteLiteral(s.Name),
			)
			if _, err := r.pool.Exec(ctx, sql); err != nil {
				return fmt.Errorf("create index %s: %w", name, err)
			}
			r.uniqueIdx[name] = field
		}
	}
	return nil
}

func uniqueIndexName(collection, field string) string {
	return "content_" + strings.ReplaceAll(collection, "-", "_") + "_" + strings.ToLower(field) + "_key"
}

func quoteLiteral(s string) string {
	return "'" + strings.ReplaceAll(s, "'", "''") + "'"
}

func (r *PostgresRepo) mapWriteErr(err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == "23505" {
		if field, ok := r.uniqueIdx[pgErr.ConstraintName]; ok {
			return uniqueConflict(field)
		}
		return uniqueConflict("id")
	}
	return err
}

func encodeJSON(e *domain.Entity) (image, fields []byte, err error) {
	if e.Image != nil {
		if image, err = json.Marshal(e.Image); err != nil {
			return nil, nil, fmt.Errorf("encode image: %w", err)
		}
	}
	f := e.Fields
	if f == nil {
		f = map[string]any{}
	}
	if fields, err = json.Marshal(f); err != nil {
		return nil, nil, fmt.Errorf("encode fields: %w", err)
	}
	return image, fields, nil
}

func (r *PostgresRepo) Insert(ctx context.Context, collection string, e *domain.Entity) error {
	image, fields, err := encodeJSON(e)
	if err != nil {
		return err
	}

	_, err = r.pool.Exec(ctx, `
		INSERT INTO content_entities (collection, id, sort_order, is_active, version, image, fields, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`, collection, e.ID, e.Order, e.IsActive, e.Version, image, fields, e.CreatedAt, e.UpdatedAt)
	if err != nil {
		return fmt.Errorf("insert %s: %w", collection, r.mapWriteErr(err))
	}
	return nil
}

func scanEntity(row pgx.Row) (*domain.Entity, error) {
	var (
		e             domain.Entity
		image, fields []byte
	)
	if err := row.Scan(&e.ID, &e.Order, &e.IsActive, &e.Version, &image, &fields, &e.CreatedAt, &e.UpdatedAt); err != nil {
		return nil, err
	}
	if len(image) > 0 {
		var img media.Image
		if err := json.Unmarshal(image, &img); err != nil {
			return nil, fmt.Errorf("decode image: %w", err)
		}
		e.Image = &img
	}
	e.Fields = map[string]any{}
	if len(fields) > 0 {
		if err := json.Unmarshal(fields, &e.Fields); err != nil {
			return nil, fmt.Errorf("decode fields: %w", err)
		}
	}
	return &e, nil
}

func (r *PostgresRepo) query(ctx context.Context, sql string, args ...any) ([]*domain.Entity, error) {
	rows, err := r.pool.Query(ctx, sql, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*domain.Entity
	for rows.Next() {
		e, err := scanEntity(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

func (r *PostgresRepo) FindAll(ctx context.Context, collection string, f Filter) ([]*domain.Entity, error) {
	sql := `SELECT ` + pgColumns + ` FROM content_entities WHERE collection = $1`
	if f.ActiveOnly {
		sql += ` AND is_active`
	}
	sql += ` ORDER BY sort_order, created_at`

	items, err := r.query(ctx, sql, collection)
	if err != nil {
		return nil, fmt.Errorf("list %s: %w", collection, err)
	}
	return items, nil
}

func (r *PostgresRepo) FindByID(ctx context.Context, collection, id string) (*domain.Entity, error) {
	row := r.pool.QueryRow(ctx,
		`SELECT `+pgColumns+` FROM content_entities WHERE collection = $1 AND id = $2`,
		collection, id)

	e, err := scanEntity(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, notFound(collection, id)
	}
	if err != nil {
		return nil, fmt.Errorf("get %s/%s: %w", collection, id, err)
	}
	return e, nil
}

func (r *PostgresRepo) FindByField(ctx context.Context, collection, field string, value any) ([]*domain.Entity, error) {
	items, err := r.query(ctx,
		`SELECT `+pgColumns+` FROM content_entities WHERE collection = $1 AND fields->>$2 = $3`,
		collection, field, fmt.Sprint(value))
	if err != nil {
		return nil, fmt.Errorf("find %s by %s: %w", collection, field, err)
	}
	return items, nil
}

func (r *PostgresRepo) Replace(ctx context.Context, collection string, e *domain.Entity, expectedVersion int64) error {
	image, fields, err := encodeJSON(e)
	if err != nil {
		return err
	}

	var version int64
	err = r.pool.QueryRow(ctx, `
		UPDATE content_entities
		SET sort_order = $3, is_active = $4, image = $5, fields = $6, updated_at = $7, version = version + 1
		WHERE collection = $1 AND id = $2 AND ($8::bigint = 0 OR version = $8)
		RETURNING version
	`, collection, e.ID, e.Order, e.IsActive, image, fields, e.UpdatedAt, expectedVersion).Scan(&version)

	if errors.Is(err, pgx.ErrNoRows) {
		if _, ferr := r.FindByID(ctx, collection, e.ID); ferr != nil {
			return ferr
		}
		return versionConflict(expectedVersion)
	}
	if err != nil {
		return fmt.Errorf("update %s/%s: %w", collection, e.ID, r.mapWriteErr(err))
	}

	e.Version = version
	return nil
}

func (r *PostgresRepo) Delete(ctx context.Context, collection, id string) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM content_entities WHERE collection = $1 AND id = $2`, collection, id)
	if err != nil {
		return fmt.Errorf("delete %s/%s: %w", collection, id, err)
	}
	if tag.RowsAffected() == 0 {
		return notFound(collection, id)
	}
	return nil
}

// SetOrders runs in one transaction, so it applies all pairs or none.
func (r *PostgresRepo) SetOrders(ctx context.Context, collection string, updates []domain.OrderUpdate) (int, error) {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return 0, fmt.Errorf("begin reorder: %w", err)
	}
	defer tx.Rollback(ctx)

	now := time.Now().UTC()
	for _, u := range updates {
		tag, err := tx.Exec(ctx, `
			UPDATE content_entities SET sort_order = $3, updated_at = $4, version = version + 1
			WHERE collection = $1 AND id = $2
		`, collection, u.ID, u.Order, now)
		if err != nil {
			return 0, fmt.Errorf("reorder %s/%s: %w", collection, u.ID, err)
		}
		if tag.RowsAffected() == 0 {
			return 0, notFound(collection, u.ID)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return 0, fmt.Errorf("commit reorder: %w", err)
	}
	return len(updates), nil
}

func (r *PostgresRepo) Increment(ctx context.Context, collection, id, field string, delta int) error {
	tag, err := r.pool.Exec(ctx, `
		UPDATE content_entities
		SET fields = jsonb_set(fields, ARRAY[$3::text], to_jsonb(COALESCE((fields->>$3)::numeric, 0) + $4))
		WHERE collection = $1 AND id = $2
	`, collection, id, field, delta)
	if err != nil {
		return fmt.Errorf("increment %s/%s.%s: %w", collection, id, field, err)
	}
	if tag.RowsAffected() == 0 {
		return notFound(collection, id)
	}
	return nil
}

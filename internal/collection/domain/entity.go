package domain

import (
	"strings"
	"time"

	"github.com/duet-robotics/drc-backend/internal/media"
)

// Entity is one record of an ordered collection. Fields holds the
// type-specific values declared by the collection's Schema.
type Entity struct {
	ID        string         `json:"id"`
	Order     int            `json:"order"`
	IsActive  bool           `json:"isActive"`
	Version   int64          `json:"version"`
	Image     *media.Image   `json:"image,omitempty"`
	Fields    map[string]any `json:"fields"`
	CreatedAt time.Time      `json:"createdAt"`
	UpdatedAt time.Time      `json:"updatedAt"`
}

// OrderUpdate is one (id, order) pair of a bulk reorder.
type OrderUpdate struct {
	ID    string `json:"id"`
	Order int    `json:"order"`
}

type View int

const (
	ViewPublic View = iota // active entities only
	ViewAdmin
)

func (e *Entity) Clone() *Entity {
	if e == nil {
		return nil
	}
	c := *e
	if e.Image != nil {
		img := *e.Image
		c.Image = &img
	}
	c.Fields, _ = deepCopy(e.Fields).(map[string]any)
	if c.Fields == nil {
		c.Fields = map[string]any{}
	}
	return &c
}

// Get reads a dotted path from Fields.
func (e *Entity) Get(path string) (any, bool) {
	return lookup(e.Fields, path)
}

// String returns the field as a string, or "" when absent or not a string.
func (e *Entity) String(field string) string {
	v, _ := e.Get(field)
	s, _ := v.(string)
	return s
}

func deepCopy(v any) any {
	switch t := v.(type) {
	case map[string]any:
		if t == nil {
			return map[string]any(nil)
		}
		out := make(map[string]any, len(t))
		for k, val := range t {
			out[k] = deepCopy(val)
		}
		return out
	case []any:
		out := make([]any, len(t))
		for i, val := range t {
			out[i] = deepCopy(val)
		}
		return out
	case []string:
		return append([]string(nil), t...)
	case []map[string]any:
		out := make([]any, len(t))
		for i, val := range t {
			out[i] = deepCopy(val)
		}
		return out
	default:
		return v
	}
}

func lookup(m map[string]any, path string) (any, bool) {
	cur := any(m)
	for _, part := range strings.Split(path, ".") {
		mm, ok := cur.(map[string]any)
		if !ok {
			return nil, false
		}
		cur, ok = mm[part]
		if !ok {
			return nil, false
		}
	}
	return cur, true
}

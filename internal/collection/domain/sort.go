package domain

import (
	"cmp"
	"fmt"
	"slices"
	"strings"
	"time"
)

// SortEntities orders items by the schema's sort keys. Ties fall back to
// creation time and then id so the sequence is total and stable.
func (s *Schema) SortEntities(items []*Entity) {
	slices.SortStableFunc(items, s.Compare)
}

func (s *Schema) Compare(a, b *Entity) int {
	for _, k := range s.Sort {
		c := compareValues(s.sortValue(a, k.Path), s.sortValue(b, k.Path))
		if c == 0 {
			continue
		}
		if k.Desc {
			return -c
		}
		return c
	}
	if c := a.CreatedAt.Compare(b.CreatedAt); c != 0 {
		return c
	}
	return strings.Compare(a.ID, b.ID)
}

func (s *Schema) sortValue(e *Entity, path string) any {
	switch path {
	case "order":
		return float64(e.Order)
	case "isActive":
		return e.IsActive
	case "createdAt":
		return e.CreatedAt
	case "updatedAt":
		return e.UpdatedAt
	}

	v, ok := e.Get(path)
	if !ok {
		return nil
	}
	if f, ok := s.Field(path); ok && len(f.Enum) > 0 {
		if str, ok := v.(string); ok {
			idx := slices.Index(f.Enum, str)
			if idx < 0 {
				idx = len(f.Enum)
			}
			return float64(idx)
		}
	}
	return v
}

// compareValues sorts missing values first, like the document stores do.
func compareValues(a, b any) int {
	switch {
	case a == nil && b == nil:
		return 0
	case a == nil:
		return -1
	case b == nil:
		return 1
	}

	if af, ok := toFloat(a); ok {
		if bf, ok := toFloat(b); ok {
			return cmp.Compare(af, bf)
		}
	}

	switch av := a.(type) {
	case string:
		if bv, ok := b.(string); ok {
			return strings.Compare(av, bv)
		}
	case bool:
		if bv, ok := b.(bool); ok {
			switch {
			case av == bv:
				return 0
			case !av:
				return -1
			default:
				return 1
			}
		}
	case time.Time:
		if bv, ok := b.(time.Time); ok {
			return av.Compare(bv)
		}
	}

	return strings.Compare(fmt.Sprint(a), fmt.Sprint(b))
}

// Package reorder computes order assignments for manual re-ordering.
// It holds no state; persisting and locking are the store's job.
package reorder

import (
	"errors"
	"fmt"

	"github.com/duet-robotics/drc-backend/internal/collection/domain"
)

type Direction string

const (
	Up   Direction = "up"
	Down Direction = "down"
)

var ErrNotInSequence = errors.New("entity is not in the sequence")

func ParseDirection(s string) (Direction, error) {
	switch Direction(s) {
	case Up, Down:
		return Direction(s), nil
	}
	return "", fmt.Errorf("direction must be %q or %q", Up, Down)
}

// Move swaps id with its neighbour in the displayed sequence and returns the
// full renumbered assignment. Moving the first entity up or the last one
// down returns moved=false and no updates.
func Move(seq []string, id string, dir Direction) ([]domain.OrderUpdate, bool, error) {
	idx := -1
	for i, v := range seq {
		if v == id {
			idx = i
			break
		}
	}
	if idx < 0 {
		return nil, false, ErrNotInSequence
	}

	target := idx - 1
	if dir == Down {
		target = idx + 1
	}
	if target < 0 || target >= len(seq) {
		return nil, false, nil
	}

	next := append([]string(nil), seq...)
	next[idx], next[target] = next[target], next[idx]
	return Renumber(next), true, nil
}

// Renumber assigns every id its zero-based position.
func Renumber(seq []string) []domain.OrderUpdate {
	out := make([]domain.OrderUpdate, len(seq))
	for i, id := range seq {
		out[i] = domain.OrderUpdate{ID: id, Order: i}
	}
	return out
}

// Check verifies that updates name distinct known ids and that their orders
// form 0..n-1. known may be nil to skip the existence check.
func Check(updates []domain.OrderUpdate, known map[string]bool) error {
	errs := domain.FieldErrors{}
	if len(updates) == 0 {
		errs.Add("updates", "must not be empty")
		return errs.Err()
	}

	seenID := make(map[string]bool, len(updates))
	seenOrder := make(map[int]bool, len(updates))
	for i, u := range updates {
		key := fmt.Sprintf("updates[%d]", i)
		switch {
		case u.ID == "":
			errs.Add(key+".id", "is required")
		case seenID[u.ID]:
			errs.Add(key+".id", "is duplicated")
		case known != nil && !known[u.ID]:
			errs.Add(key+".id", "does not exist")
		}
		seenID[u.ID] = true

		switch {
		case u.Order < 0 || u.Order >= len(updates):
			errs.Add(key+".order", fmt.Sprintf("must be between 0 and %d", len(updates)-1))
		case seenOrder[u.Order]:
			errs.Add(key+".order", "is duplicated")
		}
		seenOrder[u.Order] = true
	}
	return errs.Err()
}

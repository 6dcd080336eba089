// Package form drives admin create/edit submissions: it resolves the image
// source, saves through the store and releases replaced assets.
package form

import (
	"fmt"

	"github.com/duet-robotics/drc-backend/internal/collection/domain"
	"github.com/duet-robotics/drc-backend/internal/media"
)

type Mode int

const (
	ModeCreate Mode = iota
	ModeEdit
)

func (m Mode) String() string {
	if m == ModeEdit {
		return "edit"
	}
	return "create"
}

// AfterUpdate decides where a session goes after a successful update.
type AfterUpdate int

const (
	ReturnToCreate AfterUpdate = iota
	StayInEdit
)

// ParseAfterUpdate reads "create" or "edit"; empty means create.
func ParseAfterUpdate(s string) (AfterUpdate, error) {
	switch s {
	case "", "create":
		return ReturnToCreate, nil
	case "edit":
		return StayInEdit, nil
	}
	return ReturnToCreate, fmt.Errorf("after update must be create or edit, got %q", s)
}

// Session is the form state for one collection: either creating a new
// entity or editing the one it holds.
type Session struct {
	mode    Mode
	id      string
	version int64
	fields  map[string]any
	preview *media.Image
}

func NewSession() *Session {
	return &Session{fields: map[string]any{}}
}

func (s *Session) Mode() Mode     { return s.mode }
func (s *Session) ID() string     { return s.id }
func (s *Session) Version() int64 { return s.version }

// Fields returns the hydrated field values; empty in create mode.
func (s *Session) Fields() map[string]any { return s.fields }

// Preview is the image currently shown next to the form.
func (s *Session) Preview() *media.Image { return s.preview }

// Edit switches to edit mode for e, loading its fields and image preview.
func (s *Session) Edit(e *domain.Entity) {
	c := e.Clone()
	s.mode = ModeEdit
	s.id = c.ID
	s.version = c.Version
	s.fields = c.Fields
	s.preview = c.Image
}

// Cancel drops any held entity and returns to create mode.
func (s *Session) Cancel() {
	s.mode = ModeCreate
	s.id = ""
	s.version = 0
	s.fields = map[string]any{}
	s.preview = nil
}

package http

import (
	"go.uber.org/zap"

	"github.com/duet-robotics/drc-backend/internal/collection/domain"
	"github.com/duet-robotics/drc-backend/internal/collection/form"
	"github.com/duet-robotics/drc-backend/internal/collection/service"
)

// Handler serves the admin collection endpoints for every registered
// content type.
type Handler struct {
	stores    *service.Stores
	images    form.Images
	log       *zap.Logger
	maxUpload int64
	after     form.AfterUpdate
}

type Option func(*Handler)

// WithMaxUpload bounds the multipart form endpoint's file size.
func WithMaxUpload(n int64) Option {
	return func(h *Handler) { h.maxUpload = n }
}

func WithAfterUpdate(a form.AfterUpdate) Option {
	return func(h *Handler) { h.after = a }
}

func New(stores *service.Stores, images form.Images, log *zap.Logger, opts ...Option) *Handler {
	if log == nil {
		log = zap.NewNop()
	}
	h := &Handler{stores: stores, images: images, log: log, maxUpload: 5 << 20}
	for _, o := range opts {
		o(h)
	}
	return h
}

type reorderReq struct {
	Updates []domain.OrderUpdate `json:"updates" binding:"required"`
}

type moveReq struct {
	ID        string `json:"id" binding:"required"`
	Direction string `json:"direction" binding:"required"`
}

type fieldInfo struct {
	Name     string      `json:"name"`
	Kind     string      `json:"kind"`
	Required bool        `json:"required,omitempty"`
	Unique   bool        `json:"unique,omitempty"`
	Enum     []string    `json:"enum,omitempty"`
	Default  any         `json:"default,omitempty"`
	Fields   []fieldInfo `json:"fields,omitempty"`
}

type schemaInfo struct {
	Name          string      `json:"name"`
	Label         string      `json:"label"`
	ImageKey      string      `json:"imageKey,omitempty"`
	ImageRequired bool        `json:"imageRequired,omitempty"`
	Fields        []fieldInfo `json:"fields"`
}

func describe(s *domain.Schema) schemaInfo {
	return schemaInfo{
		Name:          s.Name,
		Label:         s.Label,
		ImageKey:      s.ImageKey,
		ImageRequired: s.ImageRequired,
		Fields:        describeFields(s.Fields),
	}
}

func describeFields(fields []domain.Field) []fieldInfo {
	out := make([]fieldInfo, 0, len(fields))
	for _, f := range fields {
		out = append(out, fieldInfo{
			Name:     f.Name,
			Kind:     f.Kind.String(),
			Required: f.Required,
			Unique:   f.Unique,
			Enum:     f.Enum,
			Default:  f.Default,
			Fields:   describeFields(f.Fields),
		})
	}
	return out
}

func documents(s *domain.Schema, items []*domain.Entity) []map[string]any {
	out := make([]map[string]any, len(items))
	for i, e := range items {
		out[i] = s.Document(e)
	}
	return out
}

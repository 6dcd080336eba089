package domain

import (
	"fmt"
	"strings"
	"time"
)

type Kind int

const (
	KindString Kind = iota
	KindHTML        // rich text, sanitized on write
	KindInt
	KindNumber
	KindBool
	KindStringList
	KindObject
	KindObjectList
	KindTime
)

var kindNames = [...]string{"string", "html", "int", "number", "bool", "stringList", "object", "objectList", "time"}

func (k Kind) String() string {
	if k >= 0 && int(k) < len(kindNames) {
		return kindNames[k]
	}
	return fmt.Sprintf("Kind(%d)", int(k))
}

type Case int

const (
	CaseKeep Case = iota
	CaseLower
	CaseUpper
)

// Field declares one type-specific field. Object kinds describe their
// members in Fields.
type Field struct {
	Name     string
	Kind     Kind
	Required bool
	Enum     []string
	Default  any
	// Rules is a go-playground/validator tag, e.g. "max=300" or "email".
	Rules  string
	Unique bool
	Case   Case
	Fields []Field
}

type SortKey struct {
	Path string
	Desc bool
}

// Env carries what normalization hooks may depend on.
type Env struct {
	Now         time.Time
	Placeholder func(name string) string
}

// Schema turns the generic store into one content type.
type Schema struct {
	Name   string
	Label  string
	Fields []Field

	// ImageKey is the JSON key of the image slot; empty means no image.
	ImageKey      string
	ImageRequired bool
	// DisplayField names the field used for placeholders and alt text.
	DisplayField string
	ImageFolder  string

	Sort []SortKey

	// Normalize derives fields (slugs, dates, meta) before validation.
	Normalize func(fields map[string]any, env Env, errs FieldErrors)
}

func (s *Schema) HasImage() bool { return s.ImageKey != "" }

// Folder is the upload namespace for the collection's images.
func (s *Schema) Folder() string {
	if s.ImageFolder != "" {
		return s.ImageFolder
	}
	return "drc/" + s.Name
}

// Field resolves a dotted path such as "date.day".
func (s *Schema) Field(path string) (Field, bool) {
	fields := s.Fields
	parts := strings.Split(path, ".")
	for i, part := range parts {
		var found *Field
		for j := range fields {
			if fields[j].Name == part {
				found = &fields[j]
				break
			}
		}
		if found == nil {
			return Field{}, false
		}
		if i == len(parts)-1 {
			return *found, true
		}
		fields = found.Fields
	}
	return Field{}, false
}

func (s *Schema) UniqueFields() []string {
	var out []string
	for _, f := range s.Fields {
		if f.Unique {
			out = append(out, f.Name)
		}
	}
	return out
}

func (s *Schema) DisplayName(e *Entity) string {
	if s.DisplayField == "" {
		return ""
	}
	return e.String(s.DisplayField)
}

// Document flattens e into the JSON shape served to clients.
func (s *Schema) Document(e *Entity) map[string]any {
	doc := make(map[string]any, len(e.Fields)+7)
	for k, v := range e.Fields {
		doc[k] = v
	}
	doc["id"] = e.ID
	doc["order"] = e.Order
	doc["isActive"] = e.IsActive
	doc["version"] = e.Version
	doc["createdAt"] = e.CreatedAt
	doc["updatedAt"] = e.UpdatedAt
	if s.ImageKey != "" {
		if e.Image != nil {
			doc[s.ImageKey] = e.Image
		} else {
			doc[s.ImageKey] = nil
		}
	}
	return doc
}

// Registry holds the schemas served by the API, in registration order.
type Registry struct {
	byName map[string]*Schema
	names  []string
}

func NewRegistry(schemas ...*Schema) *Registry {
	r := &Registry{byName: make(map[string]*Schema, len(schemas))}
	for _, s := range schemas {
		if _, dup := r.byName[s.Name]; dup {
			panic("duplicate schema " + s.Name)
		}
		r.byName[s.Name] = s
		r.names = append(r.names, s.Name)
	}
	return r
}

func (r *Registry) Get(name string) (*Schema, error) {
	s, ok := r.byName[name]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownCollection, name)
	}
	return s, nil
}

func (r *Registry) All() []*Schema {
	out := make([]*Schema, 0, len(r.names))
	for _, n := range r.names {
		out = append(out, r.byName[n])
	}
	return out
}

package domain

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/duet-robotics/drc-backend/internal/media"
)

func testSchema() *Schema {
	return &Schema{
		Name:         "widgets",
		ImageKey:     "image",
		DisplayField: "name",
		Fields: []Field{
			{Name: "name", Kind: KindString, Required: true, Rules: "max=10"},
			{Name: "code", Kind: KindString, Case: CaseUpper, Unique: true},
			{Name: "category", Kind: KindString, Enum: []string{"COMBAT", "AI", "AERO", "AUTO"}, Default: "COMBAT"},
			{Name: "rating", Kind: KindInt, Default: float64(5), Rules: "min=1,max=5"},
			{Name: "email", Kind: KindString, Case: CaseLower, Rules: "email"},
			{Name: "tags", Kind: KindStringList, Case: CaseLower},
			{Name: "body", Kind: KindHTML},
			{Name: "when", Kind: KindTime},
			{Name: "date", Kind: KindObject, Required: true, Fields: []Field{
				{Name: "day", Kind: KindString, Required: true},
				{Name: "month", Kind: KindString, Required: true},
				{Name: "year", Kind: KindString, Default: "2025"},
			}},
		},
	}
}

func validInput() map[string]any {
	return map[string]any{
		"name": "Rover",
		"date": map[string]any{"day": "5", "month": "JAN"},
	}
}

func TestBuild_Defaults(t *testing.T) {
	e, err := testSchema().Build(validInput(), Env{})
	require.NoError(t, err)

	assert.True(t, e.IsActive)
	assert.Equal(t, 0, e.Order)
	assert.Nil(t, e.Image)
	assert.Equal(t, "COMBAT", e.Fields["category"])
	assert.Equal(t, float64(5), e.Fields["rating"])
	assert.Equal(t, map[string]any{"day": "5", "month": "JAN", "year": "2025"}, e.Fields["date"])
}

func TestBuild_Coercion(t *testing.T) {
	in := validInput()
	in["code"] = " ab-1 "
	in["email"] = "Team@DUET.ac.bd"
	in["tags"] = "Robots, AI ,,"
	in["rating"] = float64(3)
	in["order"] = float64(4)
	in["isActive"] = false
	in["body"] = `<p>ok</p><script>bad()</script>`
	in["when"] = "2025-03-01"
	in["image"] = map[string]any{"url": "https://x/y.png", "alt": "y", "publicId": "img_1"}
	in["unknown"] = "dropped"

	e, err := testSchema().Build(in, Env{})
	require.NoError(t, err)

	assert.Equal(t, "AB-1", e.Fields["code"])
	assert.Equal(t, "team@duet.ac.bd", e.Fields["email"])
	assert.Equal(t, []any{"robots", "ai"}, e.Fields["tags"])
	assert.Equal(t, 4, e.Order)
	assert.False(t, e.IsActive)
	assert.Equal(t, "<p>ok</p>", e.Fields["body"])
	assert.Equal(t, "2025-03-01T00:00:00Z", e.Fields["when"])
	assert.Equal(t, &media.Image{URL: "https://x/y.png", Alt: "y", PublicID: "img_1"}, e.Image)
	assert.NotContains(t, e.Fields, "unknown")
}

func TestBuild_EnumMessage(t *testing.T) {
	in := validInput()
	in["category"] = "SPACE"

	_, err := testSchema().Build(in, Env{})
	var ve *ValidationError
	require.ErrorAs(t, err, &ve)
	assert.Equal(t, FieldErrors{"category": "must be one of COMBAT, AI, AERO, AUTO"}, ve.Fields)
}

func TestBuild_FieldErrors(t *testing.T) {
	in := map[string]any{
		"name":   "a name that is far too long",
		"rating": float64(9),
		"email":  "nope",
		"order":  float64(-1),
		"date":   map[string]any{"day": "1"},
		"image":  42,
	}

	_, err := testSchema().Build(in, Env{})
	var ve *ValidationError
	require.ErrorAs(t, err, &ve)

	assert.Equal(t, "must be at most 10 characters", ve.Fields["name"])
	assert.Equal(t, "must be at most 5", ve.Fields["rating"])
	assert.Equal(t, "must be a valid email address", ve.Fields["email"])
	assert.Equal(t, "must be a non-negative integer", ve.Fields["order"])
	assert.Equal(t, "is required", ve.Fields["date.month"])
	assert.Contains(t, ve.Fields, "image")
}

func TestBuild_RequiredImage(t *testing.T) {
	s := testSchema()
	s.ImageRequired = true

	_, err := s.Build(validInput(), Env{})
	var ve *ValidationError
	require.ErrorAs(t, err, &ve)
	assert.Equal(t, "is required", ve.Fields["image"])
}

func TestBuild_NormalizeHook(t *testing.T) {
	s := testSchema()
	now := time.Date(2025, 1, 2, 3, 4, 5, 0, time.UTC)
	s.Normalize = func(fields map[string]any, env Env, errs FieldErrors) {
		fields["code"] = "GEN-" + env.Now.Format("2006")
	}

	e, err := s.Build(validInput(), Env{Now: now})
	require.NoError(t, err)
	assert.Equal(t, "GEN-2025", e.Fields["code"])
}

func TestMerge(t *testing.T) {
	s := testSchema()
	orig, err := s.Build(validInput(), Env{})
	require.NoError(t, err)
	orig.ID = "id-1"
	orig.Image = &media.Image{URL: "u", PublicID: "img_1"}

	updated, err := s.Merge(orig, map[string]any{"name": "Rover 2", "category": nil, "image": nil}, Env{})
	require.NoError(t, err)

	assert.Equal(t, "Rover 2", updated.Fields["name"])
	assert.NotContains(t, updated.Fields, "category")
	assert.Nil(t, updated.Image)
	assert.Equal(t, "id-1", updated.ID)

	assert.Equal(t, "Rover", orig.Fields["name"], "merge must not mutate the stored entity")
	assert.NotNil(t, orig.Image)

	_, err = s.Merge(orig, map[string]any{"name": ""}, Env{})
	var ve *ValidationError
	require.ErrorAs(t, err, &ve)
	assert.Equal(t, "is required", ve.Fields["name"])
}

func TestDocument(t *testing.T) {
	s := testSchema()
	e := &Entity{ID: "x", Order: 2, IsActive: true, Fields: map[string]any{"name": "n"}}

	doc := s.Document(e)
	assert.Equal(t, "x", doc["id"])
	assert.Equal(t, 2, doc["order"])
	assert.Equal(t, "n", doc["name"])
	assert.Contains(t, doc, "image")
}

func TestRegistry(t *testing.T) {
	r := NewRegistry(&Schema{Name: "a"}, &Schema{Name: "b"})

	s, err := r.Get("b")
	require.NoError(t, err)
	assert.Equal(t, "b", s.Name)

	_, err = r.Get("c")
	assert.ErrorIs(t, err, ErrUnknownCollection)
	assert.Len(t, r.All(), 2)
	assert.Panics(t, func() { NewRegistry(&Schema{Name: "a"}, &Schema{Name: "a"}) })
}

func TestErrors(t *testing.T) {
	var err error = &NotFoundError{Collection: "faq", ID: "1"}
	assert.ErrorIs(t, err, ErrNotFound)

	ve := &ValidationError{Fields: FieldErrors{"b": "x", "a": "y"}}
	assert.Equal(t, "validation failed: a: y; b: x", ve.Error())
}

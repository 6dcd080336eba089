package seed

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/duet-robotics/drc-backend/internal/collection/domain"
	"github.com/duet-robotics/drc-backend/internal/collection/repository"
	"github.com/duet-robotics/drc-backend/internal/collection/service"
	"github.com/duet-robotics/drc-backend/internal/content"
	"github.com/duet-robotics/drc-backend/internal/media"
)

const sample = `
faq:
  - question: What is DRC?
    answer: The robotics club of DUET.
  - question: How do I join?
    answer: Come to the lab.
    isActive: false
sponsors:
  - name: Acme Corp
    category: GOLD
  - name: Globex
    category: PLATINUM
    logo:
      url: https://cdn.example.com/globex.png
`

func newStores(t *testing.T) *service.Stores {
	t.Helper()
	repo, err := repository.NewMemory()
	require.NoError(t, err)
	return service.NewStores(content.NewRegistry(), service.Deps{
		Repo:   repo,
		Images: media.NewBinder(media.NewMemoryHost(), zap.NewNop()),
	})
}

func all(t *testing.T, stores *service.Stores, name string) []*domain.Entity {
	t.Helper()
	s, err := stores.Get(name)
	require.NoError(t, err)
	items, err := s.GetAll(context.Background(), domain.ViewAdmin)
	require.NoError(t, err)
	return items
}

func TestApply_CreatesInListOrder(t *testing.T) {
	stores := newStores(t)
	doc, err := Parse(strings.NewReader(sample))
	require.NoError(t, err)

	res, err := Apply(context.Background(), stores, doc, false, nil)
	require.NoError(t, err)
	assert.Equal(t, map[string]int{content.FAQ: 2, content.Sponsors: 2}, res.Created)
	assert.Empty(t, res.Skipped)

	faqs := all(t, stores, content.FAQ)
	require.Len(t, faqs, 2)
	assert.Equal(t, "What is DRC?", faqs[0].Fields["question"])
	assert.Equal(t, 0, faqs[0].Order)
	assert.Equal(t, 1, faqs[1].Order)
	assert.False(t, faqs[1].IsActive)

	sponsors := all(t, stores, content.Sponsors)
	require.Len(t, sponsors, 2)
	// platinum sorts first; Acme gets a generated logo
	assert.Equal(t, "Globex", sponsors[0].Fields["name"])
	assert.Equal(t, "https://cdn.example.com/globex.png", sponsors[0].Image.URL)
	assert.Equal(t, media.PlaceholderURL("Acme Corp", media.DefaultPlaceholderStyle), sponsors[1].Image.URL)
}

func TestApply_SkipsNonEmptyCollections(t *testing.T) {
	stores := newStores(t)
	doc, err := Parse(strings.NewReader(sample))
	require.NoError(t, err)

	_, err = Apply(context.Background(), stores, doc, false, nil)
	require.NoError(t, err)

	doc, err = Parse(strings.NewReader(sample))
	require.NoError(t, err)
	res, err := Apply(context.Background(), stores, doc, false, nil)
	require.NoError(t, err)
	assert.Empty(t, res.Created)
	assert.ElementsMatch(t, []string{content.FAQ, content.Sponsors}, res.Skipped)
	assert.Len(t, all(t, stores, content.FAQ), 2)
}

func TestApply_ForceAppends(t *testing.T) {
	stores := newStores(t)
	doc, err := Parse(strings.NewReader("faq:\n  - question: Q1\n    answer: A1\n"))
	require.NoError(t, err)
	_, err = Apply(context.Background(), stores, doc, false, nil)
	require.NoError(t, err)

	doc, err = Parse(strings.NewReader("faq:\n  - question: Q2\n    answer: A2\n"))
	require.NoError(t, err)
	_, err = Apply(context.Background(), stores, doc, true, nil)
	require.NoError(t, err)

	faqs := all(t, stores, content.FAQ)
	require.Len(t, faqs, 2)
	assert.Equal(t, "Q2", faqs[1].Fields["question"])
	assert.Equal(t, 1, faqs[1].Order)
}

func TestApply_UnknownCollection(t *testing.T) {
	stores := newStores(t)
	doc, err := Parse(strings.NewReader("robots:\n  - name: R2\n"))
	require.NoError(t, err)

	_, err = Apply(context.Background(), stores, doc, false, nil)
	assert.True(t, errors.Is(err, domain.ErrUnknownCollection))
}

func TestApply_ReportsInvalidItem(t *testing.T) {
	stores := newStores(t)
	doc, err := Parse(strings.NewReader("faq:\n  - question: Q1\n"))
	require.NoError(t, err)

	_, err = Apply(context.Background(), stores, doc, false, nil)
	var ve *domain.ValidationError
	require.ErrorAs(t, err, &ve)
	assert.Equal(t, "is required", ve.Fields["answer"])
	assert.Contains(t, err.Error(), "faq[0]")
}

func TestParse_Empty(t *testing.T) {
	doc, err := Parse(strings.NewReader(""))
	require.NoError(t, err)
	assert.Empty(t, doc)
}

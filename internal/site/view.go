// Package site is the read side of the public website: active entities in
// display order, cached and aggregated per page.
package site

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/duet-robotics/drc-backend/internal/cache"
	"github.com/duet-robotics/drc-backend/internal/collection/domain"
	"github.com/duet-robotics/drc-backend/internal/collection/service"
	"github.com/duet-robotics/drc-backend/internal/content"
	"github.com/duet-robotics/drc-backend/internal/logger"
	"github.com/duet-robotics/drc-backend/internal/media"
)

const (
	pageKey          = "site:page"
	sectionKeyPrefix = "site:section:"
	maxConcurrent    = 4
)

func sectionKey(collection string) string { return sectionKeyPrefix + collection }

// Placeholder renders the fallback image URL for a display name.
type Placeholder func(name string) string

type View struct {
	stores      *service.Stores
	cache       cache.Cache
	ttl         time.Duration
	placeholder Placeholder
	log         *zap.Logger
}

func NewView(stores *service.Stores, c cache.Cache, ttl time.Duration, placeholder Placeholder, log *zap.Logger) *View {
	if c == nil {
		c = cache.Noop{}
	}
	if placeholder == nil {
		placeholder = func(name string) string { return media.PlaceholderURL(name, media.DefaultPlaceholderStyle) }
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &View{stores: stores, cache: c, ttl: ttl, placeholder: placeholder, log: log}
}

// Section returns the active entities of one collection in display order.
// Every image carries a fallbackUrl to show when the image fails to load.
func (v *View) Section(ctx context.Context, collection string) ([]map[string]any, error) {
	store, err := v.stores.Get(collection)
	if err != nil {
		return nil, err
	}

	var items []map[string]any
	if v.cached(ctx, sectionKey(collection), &items) {
		return items, nil
	}

	entities, err := store.GetAll(ctx, domain.ViewPublic)
	if err != nil {
		return nil, err
	}
	docs := make([]map[string]any, len(entities))
	for i, e := range entities {
		docs[i] = v.document(store.Schema(), e)
	}

	b, err := json.Marshal(docs)
	if err != nil {
		return nil, fmt.Errorf("encode %s: %w", collection, err)
	}
	v.store(ctx, sectionKey(collection), b)

	// Decode what was cached so fresh and cached answers look alike.
	if err := json.Unmarshal(b, &items); err != nil {
		return nil, fmt.Errorf("decode %s: %w", collection, err)
	}
	return items, nil
}

// Page loads every public section concurrently.
func (v *View) Page(ctx context.Context) (map[string][]map[string]any, error) {
	var page map[string][]map[string]any
	if v.cached(ctx, pageKey, &page) {
		return page, nil
	}

	schemas := v.stores.Registry().All()
	page = make(map[string][]map[string]any, len(schemas))
	var mu sync.Mutex

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(maxConcurrent)
	for _, s := range schemas {
		g.Go(func() error {
			items, err := v.Section(gctx, s.Name)
			if err != nil {
				return fmt.Errorf("section %s: %w", s.Name, err)
			}
			mu.Lock()
			page[s.Name] = items
			mu.Unlock()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	if b, err := json.Marshal(page); err == nil {
		v.store(ctx, pageKey, b)
	}
	return page, nil
}

// BlogBySlug finds an active post by slug, falling back to a title built
// from the slug for posts saved before slugs existed, and counts the view.
func (v *View) BlogBySlug(ctx context.Context, slug string) (map[string]any, error) {
	store, err := v.stores.Get(content.Blog)
	if err != nil {
		return nil, err
	}
	raw := strings.TrimSpace(slug)
	slug = strings.ToLower(raw)

	post, err := firstActive(ctx, store, "slug", slug)
	if err != nil {
		return nil, err
	}
	if post == nil {
		// titles keep their case, e.g. AI-Lab -> "AI Lab"
		if post, err = firstActive(ctx, store, "title", titleFromSlug(raw)); err != nil {
			return nil, err
		}
	}
	if post == nil {
		return nil, &domain.NotFoundError{Collection: content.Blog, ID: slug}
	}

	if err := store.Increment(ctx, post.ID, "views", 1); err != nil {
		logger.For(ctx, v.log).Warn("blog view not counted", zap.String("id", post.ID), zap.Error(err))
	}

	b, err := json.Marshal(v.document(store.Schema(), post))
	if err != nil {
		return nil, err
	}
	var doc map[string]any
	if err := json.Unmarshal(b, &doc); err != nil {
		return nil, err
	}
	return doc, nil
}

func firstActive(ctx context.Context, store *service.Store, field, value string) (*domain.Entity, error) {
	if value == "" {
		return nil, nil
	}
	matches, err := store.FindBy(ctx, field, value)
	if err != nil {
		return nil, err
	}
	for _, e := range matches {
		if e.IsActive {
			return e, nil
		}
	}
	return nil, nil
}

// titleFromSlug turns "robo-fest" into "Robo Fest".
func titleFromSlug(slug string) string {
	words := strings.Split(slug, "-")
	for i, w := range words {
		if w != "" {
			words[i] = strings.ToUpper(w[:1]) + w[1:]
		}
	}
	return strings.Join(words, " ")
}

func (v *View) document(s *domain.Schema, e *domain.Entity) map[string]any {
	doc := s.Document(e)
	delete(doc, "version")
	if !s.HasImage() || e.Image == nil {
		return doc
	}
	img := map[string]any{
		"url":         e.Image.URL,
		"alt":         e.Image.Alt,
		"fallbackUrl": v.placeholder(s.DisplayName(e)),
	}
	doc[s.ImageKey] = img
	return doc
}

func (v *View) cached(ctx context.Context, key string, dst any) bool {
	b, ok, err := v.cache.Get(ctx, key)
	if err != nil {
		logger.For(ctx, v.log).Warn("cache read failed", zap.String("key", key), zap.Error(err))
		return false
	}
	if !ok {
		return false
	}
	if err := json.Unmarshal(b, dst); err != nil {
		logger.For(ctx, v.log).Warn("cache entry unreadable", zap.String("key", key), zap.Error(err))
		return false
	}
	return true
}

func (v *View) store(ctx context.Context, key string, b []byte) {
	if v.ttl <= 0 {
		return
	}
	if err := v.cache.Set(ctx, key, b, v.ttl); err != nil {
		logger.For(ctx, v.log).Warn("cache write failed", zap.String("key", key), zap.Error(err))
	}
}

// CacheInvalidator drops a collection's cached section and the page.
type CacheInvalidator struct {
	cache cache.Cache
	log   *zap.Logger
}

func NewCacheInvalidator(c cache.Cache, log *zap.Logger) *CacheInvalidator {
	if log == nil {
		log = zap.NewNop()
	}
	return &CacheInvalidator{cache: c, log: log}
}

func (ci *CacheInvalidator) Invalidate(ctx context.Context, collection string) {
	if err := ci.cache.Delete(ctx, sectionKey(collection), pageKey); err != nil {
		logger.For(ctx, ci.log).Warn("cache invalidation failed", zap.String("collection", collection), zap.Error(err))
	}
}

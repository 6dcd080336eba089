// Package seed loads initial site content from a YAML document.
//
// The document maps collection names to lists of entities:
//
//	faq:
//	  - question: What is DRC?
//	    answer: The robotics club of DUET.
package seed

import (
	"context"
	"fmt"
	"io"

	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	"github.com/duet-robotics/drc-backend/internal/collection/domain"
	"github.com/duet-robotics/drc-backend/internal/collection/service"
)

type Document map[string][]map[string]any

// Result counts created entities per collection. Skipped lists collections
// that already had content.
type Result struct {
	Created map[string]int
	Skipped []string
}

func Parse(r io.Reader) (Document, error) {
	var doc Document
	if err := yaml.NewDecoder(r).Decode(&doc); err != nil {
		if err == io.EOF {
			return Document{}, nil
		}
		return nil, fmt.Errorf("parse seed: %w", err)
	}
	return doc, nil
}

// Apply creates the document's entities in registry order. A collection
// that is not empty is left alone unless force is set. Items without an
// explicit order get their position in the list.
func Apply(ctx context.Context, stores *service.Stores, doc Document, force bool, log *zap.Logger) (Result, error) {
	if log == nil {
		log = zap.NewNop()
	}
	res := Result{Created: map[string]int{}}

	for name := range doc {
		if _, err := stores.Get(name); err != nil {
			return res, fmt.Errorf("seed: %w", err)
		}
	}

	for _, schema := range stores.Registry().All() {
		items, ok := doc[schema.Name]
		if !ok || len(items) == 0 {
			continue
		}
		store, _ := stores.Get(schema.Name)

		existing, err := store.GetAll(ctx, domain.ViewAdmin)
		if err != nil {
			return res, fmt.Errorf("seed %s: %w", schema.Name, err)
		}
		if len(existing) > 0 && !force {
			log.Info("seed skipped, collection not empty",
				zap.String("collection", schema.Name), zap.Int("existing", len(existing)))
			res.Skipped = append(res.Skipped, schema.Name)
			continue
		}

		for i, item := range items {
			if item == nil {
				item = map[string]any{}
			}
			if _, ok := item["order"]; !ok {
				item["order"] = len(existing) + i
			}
			if _, err := store.Create(ctx, item); err != nil {
				return res, fmt.Errorf("seed %s[%d]: %w", schema.Name, i, err)
			}
			res.Created[schema.Name]++
		}
		log.Info("seeded collection",
			zap.String("collection", schema.Name), zap.Int("created", res.Created[schema.Name]))
	}
	return res, nil
}

package service

import "github.com/duet-robotics/drc-backend/internal/collection/domain"

// Stores holds one Store per registered content type.
type Stores struct {
	registry *domain.Registry
	byName   map[string]*Store
}

func NewStores(registry *domain.Registry, deps Deps) *Stores {
	s := &Stores{registry: registry, byName: map[string]*Store{}}
	for _, schema := range registry.All() {
		s.byName[schema.Name] = NewStore(schema, deps)
	}
	return s
}

// Get returns the store for collection, or an error wrapping
// domain.ErrUnknownCollection.
func (s *Stores) Get(collection string) (*Store, error) {
	if _, err := s.registry.Get(collection); err != nil {
		return nil, err
	}
	return s.byName[collection], nil
}

func (s *Stores) Registry() *domain.Registry { return s.registry }

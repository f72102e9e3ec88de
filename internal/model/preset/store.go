package preset

import "errors"

// ErrNotFound is returned when a preset id is not in the catalog.
var ErrNotFound = errors.New("preset not found")

// Store exposes catalog retrieval for handlers and the console.
type Store interface {
	List() []Issue
	Links() []Link
	FindByID(id string) (Issue, bool)
}

// MemoryStore implements Store with in-memory slices.
type MemoryStore struct {
	items []Issue
	links []Link
}

// NewMemoryStore returns a MemoryStore preloaded with the supplied issues and links.
func NewMemoryStore(items []Issue, links []Link) *MemoryStore {
	return &MemoryStore{
		items: append([]Issue(nil), items...),
		links: append([]Link(nil), links...),
	}
}

// List returns the catalog in display order.
func (s *MemoryStore) List() []Issue {
	return append([]Issue(nil), s.items...)
}

// Links returns the support resources.
func (s *MemoryStore) Links() []Link {
	return append([]Link(nil), s.links...)
}

// FindByID looks up an issue by identifier.
func (s *MemoryStore) FindByID(id string) (Issue, bool) {
	for _, item := range s.items {
		if item.ID == id {
			return item, true
		}
	}
	return Issue{}, false
}

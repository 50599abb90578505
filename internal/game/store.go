package game

import "sort"

// EntityID is an opaque entity handle. Zero is never issued.
type EntityID uint32

// Store is a component container for one concern, keyed by entity.
// Uses the sparse set pattern: a map for lookup plus a dense slice for
// iteration in a stable order.
type Store[T any] struct {
	components map[EntityID]T
	entities   []EntityID
}

// NewStore creates an empty store
func NewStore[T any]() *Store[T] {
	return &Store[T]{
		components: make(map[EntityID]T),
		entities:   make([]EntityID, 0, 16),
	}
}

// Set inserts or updates the component of e
func (s *Store[T]) Set(e EntityID, val T) {
	if _, exists := s.components[e]; !exists {
		s.entities = append(s.entities, e)
	}
	s.components[e] = val
}

// Get returns the component of e
func (s *Store[T]) Get(e EntityID) (T, bool) {
	val, ok := s.components[e]
	return val, ok
}

// Has reports whether e has a component here
func (s *Store[T]) Has(e EntityID) bool {
	_, ok := s.components[e]
	return ok
}

// Remove deletes the component of e, keeping the remaining order
func (s *Store[T]) Remove(e EntityID) {
	if _, exists := s.components[e]; !exists {
		return
	}
	delete(s.components, e)
	for i, entity := range s.entities {
		if entity == e {
			s.entities = append(s.entities[:i], s.entities[i+1:]...)
			break
		}
	}
}

// Entities returns a copy of the entity list, safe to mutate the store while ranging
func (s *Store[T]) Entities() []EntityID {
	result := make([]EntityID, len(s.entities))
	copy(result, s.entities)
	return result
}

// SortedEntities returns the entities in ascending id order
func (s *Store[T]) SortedEntities() []EntityID {
	result := s.Entities()
	sort.Slice(result, func(i, j int) bool { return result[i] < result[j] })
	return result
}

// Len returns the number of components
func (s *Store[T]) Len() int {
	return len(s.entities)
}

// Clear removes every component
func (s *Store[T]) Clear() {
	s.components = make(map[EntityID]T)
	s.entities = s.entities[:0]
}

package store

import (
	"context"
	"sync"

	"predicacal/internal/model"
)

// table keeps rows in insertion order.
type table[T any] struct {
	order []string
	rows  map[string]T
}

func newTable[T any]() *table[T] {
	return &table[T]{rows: make(map[string]T)}
}

func (t *table[T]) list() []T {
	out := make([]T, 0, len(t.order))
	for _, id := range t.order {
		out = append(out, t.rows[id])
	}
	return out
}

func (t *table[T]) clone() *table[T] {
	c := &table[T]{
		order: append([]string(nil), t.order...),
		rows:  make(map[string]T, len(t.rows)),
	}
	for id, v := range t.rows {
		c.rows[id] = v
	}
	return c
}

func (t *table[T]) get(id string) (T, bool) {
	v, ok := t.rows[id]
	return v, ok
}

func (t *table[T]) put(id string, v T) {
	if _, ok := t.rows[id]; !ok {
		t.order = append(t.order, id)
	}
	t.rows[id] = v
}

func (t *table[T]) remove(id string) bool {
	if _, ok := t.rows[id]; !ok {
		return false
	}
	delete(t.rows, id)
	for i, o := range t.order {
		if o == id {
			t.order = append(t.order[:i], t.order[i+1:]...)
			break
		}
	}
	return true
}

// MemoryStore keeps everything in process memory. It is safe for
// concurrent use.
type MemoryStore struct {
	mu          sync.RWMutex
	locations   *table[model.Location]
	conductors  *table[model.Conductor]
	territories *table[model.Territory]
	events      *table[model.EventRecord]
}

// NewMemoryStore returns an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		locations:   newTable[model.Location](),
		conductors:  newTable[model.Conductor](),
		territories: newTable[model.Territory](),
		events:      newTable[model.EventRecord](),
	}
}

func (s *MemoryStore) ListLocations(ctx context.Context) ([]model.Location, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.locations.list(), nil
}

func (s *MemoryStore) GetLocation(ctx context.Context, id string) (model.Location, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if l, ok := s.locations.get(id); ok {
		return l, nil
	}
	return model.Location{}, notFound("location", id)
}

func (s *MemoryStore) CreateLocation(ctx context.Context, l model.Location) (model.Location, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if l.ID == "" {
		l.ID = newID()
	}
	s.locations.put(l.ID, l)
	return l, nil
}

func (s *MemoryStore) DeleteLocation(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.locations.remove(id) {
		return notFound("location", id)
	}
	return nil
}

func (s *MemoryStore) ListConductors(ctx context.Context) ([]model.Conductor, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.conductors.list(), nil
}

func (s *MemoryStore) GetConductor(ctx context.Context, id string) (model.Conductor, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if c, ok := s.conductors.get(id); ok {
		return c, nil
	}
	return model.Conductor{}, notFound("conductor", id)
}

func (s *MemoryStore) CreateConductor(ctx context.Context, c model.Conductor) (model.Conductor, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if c.ID == "" {
		c.ID = newID()
	}
	s.conductors.put(c.ID, c)
	return c, nil
}

func (s *MemoryStore) DeleteConductor(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.conductors.remove(id) {
		return notFound("conductor", id)
	}
	return nil
}

func (s *MemoryStore) ListTerritories(ctx context.Context) ([]model.Territory, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.territories.list(), nil
}

func (s *MemoryStore) GetTerritory(ctx context.Context, id string) (model.Territory, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if t, ok := s.territories.get(id); ok {
		return t, nil
	}
	return model.Territory{}, notFound("territory", id)
}

func (s *MemoryStore) CreateTerritory(ctx context.Context, t model.Territory) (model.Territory, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if t.ID == "" {
		t.ID = newID()
	}
	s.territories.put(t.ID, t)
	return t, nil
}

func (s *MemoryStore) DeleteTerritory(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.territories.remove(id) {
		return notFound("territory", id)
	}
	return nil
}

func (s *MemoryStore) ListEvents(ctx context.Context) ([]model.EventRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	evs := s.events.list()
	sortEvents(evs)
	return evs, nil
}

func (s *MemoryStore) GetEvent(ctx context.Context, id string) (model.EventRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if e, ok := s.events.get(id); ok {
		return e, nil
	}
	return model.EventRecord{}, notFound("event", id)
}

func (s *MemoryStore) CreateEvent(ctx context.Context, e model.EventRecord) (model.EventRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if e.ID == "" {
		e.ID = newID()
	}
	s.events.put(e.ID, e)
	return e, nil
}

func (s *MemoryStore) DeleteEvent(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.events.remove(id) {
		return notFound("event", id)
	}
	return nil
}

func (s *MemoryStore) Close() error { return nil }

var _ Store = (*MemoryStore)(nil)

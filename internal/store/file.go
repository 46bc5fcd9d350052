package store

import (
	"context"
	"encoding/json"
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"sync"

	"predicacal/internal/apperr"
	appLog "predicacal/internal/log"
	"predicacal/internal/model"
)

const defaultDataPath = "./data/predicacal.json"

// snapshot is the on-disk layout of a FileStore.
type snapshot struct {
	Locations   []model.Location    `json:"locations"`
	Conductors  []model.Conductor   `json:"conductors"`
	Territories []model.Territory   `json:"territories"`
	Events      []model.EventRecord `json:"events"`
}

// FileStore is a MemoryStore backed by a JSON file. Reads are served from
// memory; every successful mutation rewrites the file.
type FileStore struct {
	*MemoryStore

	// mu serializes mutations with their snapshot write.
	mu   sync.Mutex
	path string
}

// NewFileStore loads path (creating its directory if needed). A missing
// file yields an empty store.
func NewFileStore(path string) (*FileStore, error) {
	if path == "" {
		path = defaultDataPath
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return nil, apperr.Wrap(apperr.CodeUnavailable, err, "create data dir")
	}

	s := &FileStore{MemoryStore: NewMemoryStore(), path: path}

	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		appLog.Info("data file not found, starting empty", "path", path)
		return s, nil
	}
	if err != nil {
		return nil, apperr.Wrap(apperr.CodeUnavailable, err, "read data file")
	}

	var snap snapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return nil, apperr.Wrap(apperr.CodeInternal, err, "parse data file %s", path)
	}
	for _, l := range snap.Locations {
		s.locations.put(l.ID, l)
	}
	for _, c := range snap.Conductors {
		s.conductors.put(c.ID, c)
	}
	for _, t := range snap.Territories {
		s.territories.put(t.ID, t)
	}
	for _, e := range snap.Events {
		s.events.put(e.ID, e)
	}

	appLog.Info("data file loaded",
		"path", path,
		"locations", len(snap.Locations),
		"conductors", len(snap.Conductors),
		"territories", len(snap.Territories),
		"events", len(snap.Events),
	)
	return s, nil
}

// Path returns the snapshot file location.
func (s *FileStore) Path() string {
	return s.path
}

// save writes the current state to a temp file and renames it over the
// snapshot, so readers never observe a half-written file.
func (s *FileStore) save() error {
	s.MemoryStore.mu.RLock()
	snap := snapshot{
		Locations:   s.locations.list(),
		Conductors:  s.conductors.list(),
		Territories: s.territories.list(),
		Events:      s.events.list(),
	}
	s.MemoryStore.mu.RUnlock()

	data, err := json.MarshalIndent(&snap, "", "  ")
	if err != nil {
		return apperr.Wrap(apperr.CodeInternal, err, "encode data file")
	}

	dir := filepath.Dir(s.path)
	tmp, err := os.CreateTemp(dir, ".predicacal-data-*.tmp")
	if err != nil {
		return apperr.Wrap(apperr.CodeUnavailable, err, "create temp data file")
	}
	tmpName := tmp.Name()
	defer func() {
		_ = os.Remove(tmpName)
	}()

	if err := tmp.Chmod(0o600); err != nil {
		_ = tmp.Close()
		return apperr.Wrap(apperr.CodeUnavailable, err, "chmod temp data file")
	}
	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		return apperr.Wrap(apperr.CodeUnavailable, err, "write temp data file")
	}
	if err := tmp.Sync(); err != nil {
		_ = tmp.Close()
		return apperr.Wrap(apperr.CodeUnavailable, err, "sync temp data file")
	}
	if err := tmp.Close(); err != nil {
		return apperr.Wrap(apperr.CodeUnavailable, err, "close temp data file")
	}
	if err := os.Rename(tmpName, s.path); err != nil {
		return apperr.Wrap(apperr.CodeUnavailable, err, "replace data file")
	}
	return nil
}

// commit applies a mutation to t and writes the snapshot. When the write
// fails, t is restored so memory never holds rows the file does not.
func commit[T any](s *FileStore, t *table[T], apply func() error) error {
	s.MemoryStore.mu.RLock()
	backup := t.clone()
	s.MemoryStore.mu.RUnlock()

	if err := apply(); err != nil {
		return err
	}
	if err := s.save(); err != nil {
		s.MemoryStore.mu.Lock()
		*t = *backup
		s.MemoryStore.mu.Unlock()
		return err
	}
	return nil
}

func (s *FileStore) CreateLocation(ctx context.Context, l model.Location) (model.Location, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	err := commit(s, s.locations, func() (err error) {
		l, err = s.MemoryStore.CreateLocation(ctx, l)
		return err
	})
	if err != nil {
		return model.Location{}, err
	}
	return l, nil
}

func (s *FileStore) DeleteLocation(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return commit(s, s.locations, func() error {
		return s.MemoryStore.DeleteLocation(ctx, id)
	})
}

func (s *FileStore) CreateConductor(ctx context.Context, c model.Conductor) (model.Conductor, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	err := commit(s, s.conductors, func() (err error) {
		c, err = s.MemoryStore.CreateConductor(ctx, c)
		return err
	})
	if err != nil {
		return model.Conductor{}, err
	}
	return c, nil
}

func (s *FileStore) DeleteConductor(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return commit(s, s.conductors, func() error {
		return s.MemoryStore.DeleteConductor(ctx, id)
	})
}

func (s *FileStore) CreateTerritory(ctx context.Context, t model.Territory) (model.Territory, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	err := commit(s, s.territories, func() (err error) {
		t, err = s.MemoryStore.CreateTerritory(ctx, t)
		return err
	})
	if err != nil {
		return model.Territory{}, err
	}
	return t, nil
}

func (s *FileStore) DeleteTerritory(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return commit(s, s.territories, func() error {
		return s.MemoryStore.DeleteTerritory(ctx, id)
	})
}

func (s *FileStore) CreateEvent(ctx context.Context, e model.EventRecord) (model.EventRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	err := commit(s, s.events, func() (err error) {
		e, err = s.MemoryStore.CreateEvent(ctx, e)
		return err
	})
	if err != nil {
		return model.EventRecord{}, err
	}
	return e, nil
}

func (s *FileStore) DeleteEvent(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return commit(s, s.events, func() error {
		return s.MemoryStore.DeleteEvent(ctx, id)
	})
}

var _ Store = (*FileStore)(nil)

// Package store persists locations, conductors, territories and event
// records.
//
// Implementations:
//   - memory: process-local maps, for tests and throwaway runs
//   - file: the memory store plus a JSON snapshot rewritten atomically after
//     every mutation; the default for single-host installs
//   - mongo: MongoDB collections, for shared deployments
//
// Every implementation returns apperr NOT_FOUND for unknown ids and
// UNAVAILABLE when the backend cannot be reached. Callers receive a Store
// explicitly; there is no package-level handle.
package store

import (
	"context"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"

	"predicacal/internal/apperr"
	"predicacal/internal/config"
	"predicacal/internal/model"
)

// Store is the persistence contract used by the service layer.
type Store interface {
	ListLocations(ctx context.Context) ([]model.Location, error)
	GetLocation(ctx context.Context, id string) (model.Location, error)
	CreateLocation(ctx context.Context, l model.Location) (model.Location, error)
	DeleteLocation(ctx context.Context, id string) error

	ListConductors(ctx context.Context) ([]model.Conductor, error)
	GetConductor(ctx context.Context, id string) (model.Conductor, error)
	CreateConductor(ctx context.Context, c model.Conductor) (model.Conductor, error)
	DeleteConductor(ctx context.Context, id string) error

	ListTerritories(ctx context.Context) ([]model.Territory, error)
	GetTerritory(ctx context.Context, id string) (model.Territory, error)
	CreateTerritory(ctx context.Context, t model.Territory) (model.Territory, error)
	DeleteTerritory(ctx context.Context, id string) error

	// ListEvents returns every event record ordered by start time. Records
	// without a usable start time come last.
	ListEvents(ctx context.Context) ([]model.EventRecord, error)
	GetEvent(ctx context.Context, id string) (model.EventRecord, error)
	CreateEvent(ctx context.Context, e model.EventRecord) (model.EventRecord, error)
	DeleteEvent(ctx context.Context, id string) error

	Close() error
}

// Open builds the store selected by cfg.Driver. loc is the zone stored
// start times are presented in.
func Open(ctx context.Context, cfg config.StorageConfig, loc *time.Location) (Store, error) {
	switch strings.ToLower(cfg.Driver) {
	case "memory":
		return NewMemoryStore(), nil
	case "mongo":
		s, err := NewMongoStore(ctx, MongoConfig{URI: cfg.MongoURI, Database: cfg.Database, Location: loc})
		if err != nil {
			return nil, err
		}
		return s, nil
	case "", "file":
		s, err := NewFileStore(cfg.Path)
		if err != nil {
			return nil, err
		}
		return s, nil
	default:
		return nil, apperr.New(apperr.CodeInvalidArgument, "unknown storage driver %q", cfg.Driver)
	}
}

func newID() string {
	return uuid.NewString()
}

func notFound(kind, id string) error {
	return apperr.New(apperr.CodeNotFound, "%s %s not found", kind, id)
}

// sortEvents orders records by start time, keeping insertion order for
// ties and moving records without a start time to the end.
func sortEvents(evs []model.EventRecord) {
	sort.SliceStable(evs, func(i, j int) bool {
		a, b := evs[i].StartTime, evs[j].StartTime
		if a.IsZero() || b.IsZero() {
			return !a.IsZero() && b.IsZero()
		}
		return a.Before(b)
	})
}

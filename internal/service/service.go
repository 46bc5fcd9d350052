// Package service wires the store, the renderer, the ICS encoders and the
// document cache into the operations exposed over HTTP and the CLI.
package service

import (
	"context"
	"strings"
	"time"

	"predicacal/internal/apperr"
	"predicacal/internal/cache"
	"predicacal/internal/config"
	"predicacal/internal/ics"
	appLog "predicacal/internal/log"
	"predicacal/internal/model"
	"predicacal/internal/pdfcal"
	"predicacal/internal/schedule"
	"predicacal/internal/store"
)

// Service is safe for concurrent use as long as its Store and Cache are.
type Service struct {
	store    store.Store
	cache    cache.Cache
	renderer *pdfcal.Renderer
	resolver *schedule.Resolver
	fetcher  *ics.Fetcher

	icsOpts  ics.Options
	loc      *time.Location
	cacheTTL time.Duration
	now      func() time.Time
}

// Deps are the collaborators a Service needs. Cache and Fetcher are
// optional.
type Deps struct {
	Store   store.Store
	Cache   cache.Cache
	Fetcher *ics.Fetcher
}

// New builds a Service from cfg. The style section is validated here, so
// a bad colour fails at startup rather than on the first render.
func New(cfg *config.Config, deps Deps) (*Service, error) {
	if deps.Store == nil {
		return nil, apperr.New(apperr.CodeInvalidArgument, "service needs a store")
	}
	if deps.Cache == nil {
		deps.Cache = cache.Null{}
	}
	if deps.Fetcher == nil {
		deps.Fetcher = ics.NewFetcher(nil)
	}

	style, err := pdfcal.StyleFromConfig(cfg.Style)
	if err != nil {
		return nil, err
	}
	loc, err := LoadLocation(cfg.Timezone)
	if err != nil {
		return nil, err
	}

	return &Service{
		store:    deps.Store,
		cache:    deps.Cache,
		renderer: pdfcal.NewRenderer(style),
		resolver: schedule.NewResolver(deps.Store, loc),
		fetcher:  deps.Fetcher,
		icsOpts:  ics.OptionsFromConfig(cfg.ICS, cfg.Timezone),
		loc:      loc,
		cacheTTL: time.Duration(cfg.Cache.TTLMinutes) * time.Minute,
		now:      time.Now,
	}, nil
}

// LoadLocation resolves an IANA zone name; empty means UTC.
func LoadLocation(name string) (*time.Location, error) {
	if name == "" {
		return time.UTC, nil
	}
	loc, err := time.LoadLocation(name)
	if err != nil {
		return nil, apperr.Wrap(apperr.CodeInvalidArgument, err, "unknown timezone %q", name)
	}
	return loc, nil
}

// Location is the zone wall-clock times are interpreted in.
func (s *Service) Location() *time.Location {
	return s.loc
}

// Style returns the page style used for PDFs and the HTML view.
func (s *Service) Style() pdfcal.Style {
	return s.renderer.Style()
}

// CurrentMonth returns the year and month of now in the service zone.
func (s *Service) CurrentMonth() (int, time.Month) {
	y, m, _ := s.now().In(s.loc).Date()
	return y, m
}

// --- locations ---

func (s *Service) ListLocations(ctx context.Context) ([]model.Location, error) {
	return s.store.ListLocations(ctx)
}

// CreateLocation adds a meeting place. url is optional.
func (s *Service) CreateLocation(ctx context.Context, name, url string) (model.Location, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return model.Location{}, apperr.New(apperr.CodeInvalidArgument, "location name is required")
	}
	l, err := s.store.CreateLocation(ctx, model.Location{Name: name, URL: strings.TrimSpace(url)})
	if err != nil {
		return model.Location{}, err
	}
	appLog.Info("location created", "id", l.ID, "name", l.Name)
	return l, nil
}

func (s *Service) DeleteLocation(ctx context.Context, id string) error {
	if err := s.store.DeleteLocation(ctx, id); err != nil {
		return err
	}
	appLog.Info("location deleted", "id", id)
	return nil
}

// --- conductors ---

func (s *Service) ListConductors(ctx context.Context) ([]model.Conductor, error) {
	return s.store.ListConductors(ctx)
}

func (s *Service) CreateConductor(ctx context.Context, name string) (model.Conductor, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return model.Conductor{}, apperr.New(apperr.CodeInvalidArgument, "conductor name is required")
	}
	c, err := s.store.CreateConductor(ctx, model.Conductor{Name: name})
	if err != nil {
		return model.Conductor{}, err
	}
	appLog.Info("conductor created", "id", c.ID, "name", c.Name)
	return c, nil
}

func (s *Service) DeleteConductor(ctx context.Context, id string) error {
	if err := s.store.DeleteConductor(ctx, id); err != nil {
		return err
	}
	appLog.Info("conductor deleted", "id", id)
	return nil
}

// --- territories ---

func (s *Service) ListTerritories(ctx context.Context) ([]model.Territory, error) {
	return s.store.ListTerritories(ctx)
}

func (s *Service) CreateTerritory(ctx context.Context, number int) (model.Territory, error) {
	if number <= 0 {
		return model.Territory{}, apperr.New(apperr.CodeInvalidArgument, "territory number must be positive, got %d", number)
	}
	t, err := s.store.CreateTerritory(ctx, model.Territory{Number: number})
	if err != nil {
		return model.Territory{}, err
	}
	appLog.Info("territory created", "id", t.ID, "number", t.Number)
	return t, nil
}

func (s *Service) DeleteTerritory(ctx context.Context, id string) error {
	if err := s.store.DeleteTerritory(ctx, id); err != nil {
		return err
	}
	appLog.Info("territory deleted", "id", id)
	return nil
}

// --- events ---

func (s *Service) ListEvents(ctx context.Context) ([]model.EventRecord, error) {
	return s.store.ListEvents(ctx)
}

// CreateEvent validates in, resolves its references and stores it.
func (s *Service) CreateEvent(ctx context.Context, in schedule.EventInput) (model.EventRecord, error) {
	rec, err := s.resolver.NewEvent(ctx, in)
	if err != nil {
		return model.EventRecord{}, err
	}
	rec, err = s.store.CreateEvent(ctx, rec)
	if err != nil {
		return model.EventRecord{}, err
	}
	appLog.Info("event created",
		"id", rec.ID,
		"title", rec.Title,
		"start", rec.StartTime.Format(schedule.FormLayout),
		"recurrence", rec.Recurrence,
	)
	return rec, nil
}

func (s *Service) DeleteEvent(ctx context.Context, id string) error {
	if err := s.store.DeleteEvent(ctx, id); err != nil {
		return err
	}
	appLog.Info("event deleted", "id", id)
	return nil
}

// MonthEvents returns the concrete occurrences of a month, sorted by start
// time.
func (s *Service) MonthEvents(ctx context.Context, year int, month time.Month) (schedule.ExpandResult, error) {
	if err := validateMonth(year, month); err != nil {
		return schedule.ExpandResult{}, err
	}
	recs, err := s.store.ListEvents(ctx)
	if err != nil {
		return schedule.ExpandResult{}, err
	}
	res := schedule.Expand(recs, year, month, schedule.ExpandOptions{})
	appLog.Debug("month events expanded",
		"year", year,
		"month", int(month),
		"records", len(recs),
		"event_count", len(res.Events),
		"malformed", len(res.Malformed),
	)
	return res, nil
}

func validateMonth(year int, month time.Month) error {
	if month < time.January || month > time.December {
		return apperr.New(apperr.CodeInvalidArgument, "month must be 1-12, got %d", int(month))
	}
	if year < 1 || year > 9999 {
		return apperr.New(apperr.CodeInvalidArgument, "year must be 1-9999, got %d", year)
	}
	return nil
}

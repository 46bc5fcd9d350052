package service

import (
	"context"
	"strings"
	"time"

	"github.com/robfig/cron/v3"

	"predicacal/internal/apperr"
	appLog "predicacal/internal/log"
)

// warmTimeout bounds one cache warming run.
const warmTimeout = 2 * time.Minute

// Scheduler periodically pre-renders the current and next month so the
// first download after an edit is served from cache.
type Scheduler struct {
	svc  *Service
	cron *cron.Cron
	spec string
}

// NewScheduler parses spec (standard five-field cron syntax, or
// descriptors such as "@hourly"). "off" or an empty spec disables
// warming; the returned Scheduler then does nothing.
func NewScheduler(svc *Service, spec string) (*Scheduler, error) {
	s := &Scheduler{svc: svc, spec: strings.TrimSpace(spec)}
	if s.disabled() {
		return s, nil
	}

	s.cron = cron.New(cron.WithLocation(svc.Location()))
	if _, err := s.cron.AddFunc(s.spec, s.run); err != nil {
		return nil, apperr.Wrap(apperr.CodeInvalidArgument, err, "invalid refresh schedule %q", spec)
	}
	return s, nil
}

func (s *Scheduler) disabled() bool {
	return s.spec == "" || strings.EqualFold(s.spec, "off")
}

// Start begins running the schedule in the background.
func (s *Scheduler) Start() {
	if s.cron == nil {
		appLog.Info("cache warming disabled")
		return
	}
	appLog.Info("cache warming scheduled", "refresh", s.spec)
	s.cron.Start()
}

// Stop stops the schedule and waits for a running job, or for ctx.
func (s *Scheduler) Stop(ctx context.Context) error {
	if s.cron == nil {
		return nil
	}
	select {
	case <-s.cron.Stop().Done():
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (s *Scheduler) run() {
	ctx, cancel := context.WithTimeout(context.Background(), warmTimeout)
	defer cancel()
	if err := s.Warm(ctx); err != nil {
		appLog.Error("cache warming failed", err)
	}
}

// Warm renders the current and next month into the cache.
func (s *Scheduler) Warm(ctx context.Context) error {
	year, month := s.svc.CurrentMonth()
	next := time.Date(year, month, 1, 0, 0, 0, 0, time.UTC).AddDate(0, 1, 0)

	start := time.Now()
	for _, ym := range []struct {
		y int
		m time.Month
	}{{year, month}, {next.Year(), next.Month()}} {
		doc, err := s.svc.MonthPDF(ctx, ym.y, ym.m)
		if err != nil {
			return err
		}
		appLog.Debug("month warmed", "year", ym.y, "month", int(ym.m), "from_cache", doc.FromCache)
	}
	appLog.Info("cache warming completed", "duration", time.Since(start).String())
	return nil
}

// Package service runs the world record checker: it seeds the confirmed
// records at startup and performs one poll iteration per Tick.
package service

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/okian/wrchecker/internal/catalog"
	"github.com/okian/wrchecker/internal/domain/model"
	"github.com/okian/wrchecker/internal/domain/record"
	"github.com/okian/wrchecker/internal/domain/weekly"
	"github.com/okian/wrchecker/pkg/logger"
	"github.com/okian/wrchecker/pkg/metrics"
)

// Store is the persistence the service needs directly.
type Store interface {
	record.SeedStore
	Provision(ctx context.Context, levels []catalog.Level) error
}

// Backend reads the current best scores.
type Backend interface {
	FetchBest(ctx context.Context, levelID string) (model.Score, error)
	FetchBests(ctx context.Context, levelIDs []string) ([]model.Score, map[string]error)
}

// RecordNotifier announces new records.
type RecordNotifier interface {
	NewRecords(ctx context.Context, announcements []record.Announcement)
}

// WeeklyChecker runs the weekly challenge check.
type WeeklyChecker interface {
	Check(ctx context.Context) (weekly.Outcome, error)
}

// ReplaySaver archives replays of new records.
type ReplaySaver = record.ReplaySaver

// Heartbeat signals a finished tick to an uptime monitor.
type Heartbeat interface {
	Enabled() bool
	Push(ctx context.Context) error
}

// Catalog lists the tracked levels.
type Catalog interface {
	IDs() []string
	Levels() []catalog.Level
	Missing() []string
}

// TickReport describes one iteration.
type TickReport struct {
	ID        string
	Started   time.Time
	Duration  time.Duration
	Fetched   int
	Announced []record.Announcement
	Weekly    weekly.Outcome
	// Errors are classified with Kind; none of them is fatal.
	Errors []error
}

// Service owns the confirmed records. Seed and Tick must not run
// concurrently; Records and GetStats are safe from any goroutine.
type Service struct {
	store     Store
	backend   Backend
	notifier  RecordNotifier
	weekly    WeeklyChecker
	catalog   Catalog
	replays   ReplaySaver
	heartbeat Heartbeat
	engine    *record.Engine

	confirmed record.Confirmed

	mu       sync.RWMutex
	snapshot map[string]model.Score
	stats    stats

	now    func() time.Time
	logger logger.Logger
}

type stats struct {
	startedAt     time.Time
	ticks         int
	announced     int
	fetchErrors   int
	inconsistent  int
	rollovers     int
	lastTickID    string
	lastTick      time.Time
	lastDuration  time.Duration
	bootstrapped  int
	lastTickError int
}

// New constructs a Service.
func New(store Store, backend Backend, notifier RecordNotifier, weeklyChecker WeeklyChecker, cat Catalog, opts ...Option) *Service {
	s := &Service{
		store:    store,
		backend:  backend,
		notifier: notifier,
		weekly:   weeklyChecker,
		catalog:  cat,
		now:      time.Now,
		logger:   logger.Discard(),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.engine = record.NewEngine(store, s.replays, s.logger.Named("records"))
	s.stats.startedAt = s.now()
	return s
}

// Seed provisions the store and builds the confirmed records. Every error
// it returns is KindFatal.
func (s *Service) Seed(ctx context.Context) error {
	for _, id := range s.catalog.Missing() {
		s.logger.Warn(ctx, "level has no display title", logger.String("level", id))
	}

	if err := s.store.Provision(ctx, s.catalog.Levels()); err != nil {
		return newError(KindFatal, "provision", err)
	}

	confirmed, bootstrapped, err := record.Seed(ctx, s.store, s.catalog.IDs(), s.backend)
	if err != nil {
		return newError(KindFatal, "seed", err)
	}
	for _, id := range bootstrapped {
		s.logger.Info(ctx, "bootstrapped level from backend", logger.String("level", id))
	}

	s.confirmed = confirmed
	s.publish(func(st *stats) { st.bootstrapped = len(bootstrapped) })
	metrics.UpdateConfirmedLevels(len(confirmed))

	s.logger.Info(ctx, "confirmed records loaded",
		logger.Int("levels", len(confirmed)), logger.Int("bootstrapped", len(bootstrapped)))
	return nil
}

// Tick runs one iteration: the record check, then the weekly check, then
// the heartbeat. Failures are logged and reported, never returned.
func (s *Service) Tick(ctx context.Context) TickReport {
	report := TickReport{ID: uuid.NewString(), Started: s.now()}
	tickField := logger.String("tick", report.ID)

	fetched, failures := s.backend.FetchBests(ctx, s.catalog.IDs())
	report.Fetched = len(fetched)
	for level, err := range failures {
		s.logger.Warn(ctx, "failed to fetch level", tickField,
			logger.String("level", level), logger.Error(err))
		report.Errors = append(report.Errors, newError(KindTransient, "fetch "+level, err))
	}

	inconsistent := 0
	for _, sc := range fetched {
		if _, ok := s.confirmed[sc.LevelID]; !ok {
			inconsistent++
			report.Errors = append(report.Errors,
				newError(KindInconsistency, "diff "+sc.LevelID, errUnknownLevel))
		}
	}

	announced, failedWrites := s.engine.Apply(ctx, s.confirmed, fetched)
	report.Announced = announced
	for _, err := range failedWrites {
		op := "persist"
		var pe *record.PersistError
		if errors.As(err, &pe) {
			op = "persist " + pe.Level
		}
		report.Errors = append(report.Errors, newError(KindPersistence, op, err))
	}
	if len(report.Announced) > 0 {
		s.notifier.NewRecords(ctx, report.Announced)
	}

	outcome, err := s.weekly.Check(ctx)
	report.Weekly = outcome
	if err != nil {
		kind := KindTransient
		if errors.Is(err, weekly.ErrPersist) {
			kind = KindPersistence
		}
		s.logger.Warn(ctx, "weekly check incomplete", tickField, logger.Error(err))
		report.Errors = append(report.Errors, newError(kind, "weekly", err))
	}

	if s.heartbeat != nil && s.heartbeat.Enabled() {
		if err := s.heartbeat.Push(ctx); err != nil {
			s.logger.Warn(ctx, "failed to send heartbeat", tickField, logger.Error(err))
			report.Errors = append(report.Errors, newError(KindTransient, "heartbeat", err))
		}
	}

	report.Duration = s.now().Sub(report.Started)
	s.finish(ctx, report, len(failures), inconsistent)
	return report
}

func (s *Service) finish(ctx context.Context, report TickReport, fetchErrors, inconsistent int) {
	result := metrics.ResultSuccess
	if len(report.Errors) > 0 {
		result = metrics.ResultError
	}
	metrics.RecordTick(result, report.Duration)
	metrics.UpdateConfirmedLevels(len(s.confirmed))

	snap := s.confirmed.Clone()
	s.mu.Lock()
	s.snapshot = snap
	s.stats.ticks++
	s.stats.announced += len(report.Announced)
	s.stats.fetchErrors += fetchErrors
	s.stats.inconsistent += inconsistent
	if report.Weekly.Announced {
		s.stats.rollovers++
	}
	s.stats.lastTickID = report.ID
	s.stats.lastTick = report.Started
	s.stats.lastDuration = report.Duration
	s.stats.lastTickError = len(report.Errors)
	s.mu.Unlock()

	s.logger.Info(ctx, "finished tick",
		logger.String("tick", report.ID),
		logger.Int("fetched", report.Fetched),
		logger.Int("records", len(report.Announced)),
		logger.String("weekly", report.Weekly.State.String()),
		logger.Int("errors", len(report.Errors)),
		logger.Duration("elapsed", report.Duration))
}

func (s *Service) publish(update func(*stats)) {
	snap := s.confirmed.Clone()
	s.mu.Lock()
	defer s.mu.Unlock()
	s.snapshot = snap
	update(&s.stats)
}

// Records returns the confirmed records as of the last finished tick.
func (s *Service) Records() map[string]model.Score {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make(map[string]model.Score, len(s.snapshot))
	for k, v := range s.snapshot {
		out[k] = v
	}
	return out
}

// GetStats returns service statistics for monitoring.
func (s *Service) GetStats() map[string]any {
	s.mu.RLock()
	defer s.mu.RUnlock()

	stats := map[string]any{
		"started_at":        s.stats.startedAt,
		"confirmed_levels":  len(s.snapshot),
		"bootstrapped":      s.stats.bootstrapped,
		"ticks":             s.stats.ticks,
		"records_announced": s.stats.announced,
		"fetch_errors":      s.stats.fetchErrors,
		"inconsistencies":   s.stats.inconsistent,
		"weekly_rollovers":  s.stats.rollovers,
	}
	if s.stats.ticks > 0 {
		stats["last_tick_id"] = s.stats.lastTickID
		stats["last_tick_at"] = s.stats.lastTick
		stats["last_tick_duration"] = s.stats.lastDuration.String()
		stats["last_tick_errors"] = s.stats.lastTickError
	}
	return stats
}

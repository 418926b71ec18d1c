// Package runner answers simulation requests from the report cache, then the
// report store, and finally by simulating, persisting what it computes.
package runner

//go:generate mockgen -destination=mock/mock_runner.go -package=runnermock github.com/cory-johannsen/dpr/internal/runner Simulator,Store,Cache

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/cory-johannsen/dpr/internal/sim"
	"github.com/cory-johannsen/dpr/internal/storage/cache"
	"github.com/cory-johannsen/dpr/internal/storage/postgres"
)

// Simulator runs a request to completion.
type Simulator interface {
	Run(ctx context.Context, req sim.Request) (*sim.Report, error)
}

// Store persists reports. Latest returns postgres.ErrReportNotFound when key
// has no report.
type Store interface {
	Save(ctx context.Context, key string, rep *sim.Report) error
	Latest(ctx context.Context, key string) (*sim.Report, error)
}

// Cache holds recent reports. Get returns cache.ErrCacheMiss when key is not
// cached.
type Cache interface {
	Get(ctx context.Context, key string) (*sim.Report, error)
	Set(ctx context.Context, key string, rep *sim.Report) error
}

// Source says where a report came from.
type Source string

const (
	FromCache     Source = "cache"
	FromStore     Source = "store"
	FromSimulator Source = "simulator"
)

// Options adjusts a single Run.
type Options struct {
	// Refresh skips both lookups and always simulates.
	Refresh bool
}

// Service coordinates the simulator with the optional store and cache.
type Service struct {
	sim    Simulator
	store  Store
	cache  Cache
	logger *zap.Logger
}

// Option configures a Service.
type Option func(*Service)

// WithStore persists simulated reports and consults them before simulating.
func WithStore(s Store) Option { return func(svc *Service) { svc.store = s } }

// WithCache caches reports and consults the cache first.
func WithCache(c Cache) Option { return func(svc *Service) { svc.cache = c } }

// WithLogger sets the service logger.
func WithLogger(l *zap.Logger) Option { return func(svc *Service) { svc.logger = l } }

// New creates a Service around s.
//
// Precondition: s must be non-nil.
func New(s Simulator, opts ...Option) *Service {
	svc := &Service{sim: s, logger: zap.NewNop()}
	for _, opt := range opts {
		opt(svc)
	}
	return svc
}

// Key returns the cache key of req: the hex SHA-256 of its canonical JSON
// after defaults are applied. Workers, Budget and LogIterations do not take
// part in the key.
func Key(req sim.Request) (string, error) {
	data, err := json.Marshal(req.WithDefaults())
	if err != nil {
		return "", fmt.Errorf("encoding request: %w", err)
	}
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:]), nil
}

// Run returns the report for req and where it came from.
//
// Requests that retain iteration logs always simulate, since logs are never
// stored. Truncated reports are returned but neither stored nor cached.
//
// Postcondition: lookup failures are logged and fall through to the next
// source; a simulation or Save failure is returned.
func (s *Service) Run(ctx context.Context, req sim.Request, opts Options) (*sim.Report, Source, error) {
	key, err := Key(req)
	if err != nil {
		return nil, "", err
	}
	logger := s.logger.With(zap.String("key", key))

	if !opts.Refresh && req.LogIterations == 0 {
		if hit := s.lookup(ctx, key, logger); hit != nil {
			return hit.Report, hit.source, nil
		}
	}

	rep, err := s.sim.Run(ctx, req)
	if err != nil {
		return nil, "", err
	}
	if rep.Truncated {
		logger.Info("report truncated, not saved", zap.String("run", rep.ID))
		return rep, FromSimulator, nil
	}
	if s.store != nil {
		if err := s.store.Save(ctx, key, rep); err != nil {
			return nil, "", fmt.Errorf("saving report %s: %w", rep.ID, err)
		}
	}
	s.fill(ctx, key, rep, logger)
	return rep, FromSimulator, nil
}

type found struct {
	*sim.Report
	source Source
}

func (s *Service) lookup(ctx context.Context, key string, logger *zap.Logger) *found {
	if s.cache != nil {
		rep, err := s.cache.Get(ctx, key)
		switch {
		case err == nil:
			logger.Debug("report cache hit", zap.String("run", rep.ID))
			return &found{rep, FromCache}
		case !errors.Is(err, cache.ErrCacheMiss):
			logger.Warn("report cache lookup failed", zap.Error(err))
		}
	}
	if s.store != nil {
		rep, err := s.store.Latest(ctx, key)
		switch {
		case err == nil:
			logger.Debug("report store hit", zap.String("run", rep.ID))
			s.fill(ctx, key, rep, logger)
			return &found{rep, FromStore}
		case !errors.Is(err, postgres.ErrReportNotFound):
			logger.Warn("report store lookup failed", zap.Error(err))
		}
	}
	return nil
}

func (s *Service) fill(ctx context.Context, key string, rep *sim.Report, logger *zap.Logger) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Set(ctx, key, rep); err != nil {
		logger.Warn("caching report failed", zap.String("run", rep.ID), zap.Error(err))
	}
}

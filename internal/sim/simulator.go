// Package sim runs many simulated adventuring days per level and reduces
// them into damage-per-round and outcome statistics.
package sim

import (
	"context"
	"errors"
	"fmt"
	"runtime"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/cory-johannsen/dpr/internal/game/ability"
	"github.com/cory-johannsen/dpr/internal/game/ai"
	"github.com/cory-johannsen/dpr/internal/game/condition"
	"github.com/cory-johannsen/dpr/internal/game/creature"
	"github.com/cory-johannsen/dpr/internal/game/dice"
)

// SourceFactory returns the dice source for one iteration seed.
type SourceFactory func(seed int64) dice.Source

// IterationSeed derives the seed of iteration iter at level from the run seed.
//
// Postcondition: the result depends only on its arguments, so a run is
// reproducible regardless of worker count or scheduling.
func IterationSeed(base int64, level, iter int) int64 {
	return dice.DeriveSeed(dice.DeriveSeed(base, int64(level)), int64(iter))
}

// Simulator runs requests against a catalog. It is safe for concurrent use;
// every iteration builds its own combatants and encounters.
type Simulator struct {
	catalog    *creature.Catalog
	abilities  *ability.Registry
	conditions *condition.Registry
	targeting  *ai.Registry
	sources    SourceFactory
	logger     *zap.Logger
}

// Option customises a Simulator.
type Option func(*Simulator)

// WithAbilities replaces the built-in ability registry, e.g. to add scripts.
func WithAbilities(r *ability.Registry) Option { return func(s *Simulator) { s.abilities = r } }

// WithConditions replaces the built-in condition registry.
func WithConditions(r *condition.Registry) Option { return func(s *Simulator) { s.conditions = r } }

// WithTargeting replaces the built-in targeting strategies.
func WithTargeting(r *ai.Registry) Option { return func(s *Simulator) { s.targeting = r } }

// WithSourceFactory replaces dice.NewSeededSource.
func WithSourceFactory(f SourceFactory) Option { return func(s *Simulator) { s.sources = f } }

// WithLogger sets the logger.
func WithLogger(l *zap.Logger) Option { return func(s *Simulator) { s.logger = l } }

// New creates a Simulator over catalog.
//
// Precondition: catalog must be non-nil.
func New(catalog *creature.Catalog, opts ...Option) *Simulator {
	s := &Simulator{catalog: catalog}
	for _, opt := range opts {
		opt(s)
	}
	if s.abilities == nil {
		s.abilities = ability.NewRegistry()
	}
	if s.conditions == nil {
		s.conditions = condition.Builtin()
	}
	if s.targeting == nil {
		s.targeting = ai.NewRegistry()
	}
	if s.sources == nil {
		s.sources = dice.NewSeededSource
	}
	if s.logger == nil {
		s.logger = zap.NewNop()
	}
	return s
}

// Run simulates req and returns the report.
//
// Postcondition: configuration problems are returned before any iteration
// runs; cancelling ctx returns its error; an expired Budget returns a
// truncated report; too many failed iterations return ErrFailureTolerance.
func (s *Simulator) Run(ctx context.Context, req Request) (*Report, error) {
	req = req.WithDefaults()
	if err := req.Validate(); err != nil {
		return nil, fmt.Errorf("sim.Run: invalid request: %w", err)
	}
	plans, err := s.plan(req)
	if err != nil {
		return nil, fmt.Errorf("sim.Run: %w", err)
	}
	workers := req.Workers
	if workers == 0 {
		workers = runtime.GOMAXPROCS(0)
	}

	report := &Report{ID: uuid.NewString(), CreatedAt: time.Now().UTC(), Request: req}
	logger := s.logger.With(zap.String("run", report.ID))
	start := time.Now()

	runCtx := ctx
	if req.Budget > 0 {
		var cancel context.CancelFunc
		runCtx, cancel = context.WithTimeout(ctx, req.Budget)
		defer cancel()
	}
	runCtx, abort := context.WithCancelCause(runCtx)
	defer abort(nil)

	type outcome struct {
		plan int
		iter int
		day  *DayResult
		err  error
	}
	total := len(plans) * req.Iterations
	maxFailures := req.AllowedFailures(total)
	days := make([][]*DayResult, len(plans))
	failures := make([]int, len(plans))
	for i := range days {
		days[i] = make([]*DayResult, req.Iterations)
	}

	results := make(chan outcome, workers)
	reduced := make(chan struct{})
	go func() {
		defer close(reduced)
		failed := 0
		for o := range results {
			if o.err == nil {
				days[o.plan][o.iter] = o.day
				report.Completed++
				continue
			}
			var ie *IterationError
			if !errors.As(o.err, &ie) {
				continue
			}
			failed++
			failures[o.plan]++
			logger.Warn("iteration failed",
				zap.Int("level", ie.Level),
				zap.Int("iteration", ie.Iteration),
				zap.Int("encounter", ie.Encounter),
				zap.Int("round", ie.Round),
				zap.String("actor", ie.Actor),
				zap.Error(ie.Err),
			)
			if failed > maxFailures {
				abort(fmt.Errorf("%w: %d of %d iterations failed, last: %w", ErrFailureTolerance, failed, total, o.err))
			}
		}
	}()

	g, gctx := errgroup.WithContext(runCtx)
	g.SetLimit(workers)
dispatch:
	for pi, p := range plans {
		for iter := range req.Iterations {
			if gctx.Err() != nil {
				break dispatch
			}
			g.Go(func() error {
				day, err := s.runDay(gctx, &req, p, iter)
				results <- outcome{plan: pi, iter: iter, day: day, err: err}
				return nil
			})
		}
	}
	_ = g.Wait()
	close(results)
	<-reduced

	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("sim.Run: %w", err)
	}
	if cause := context.Cause(runCtx); errors.Is(cause, ErrFailureTolerance) {
		return nil, cause
	}
	report.Truncated = runCtx.Err() != nil

	for pi, p := range plans {
		rows, logs := buildRows(p, days[pi], failures[pi])
		report.Rows = append(report.Rows, rows...)
		report.Logs = append(report.Logs, logs...)
		report.Failures += failures[pi]
	}
	report.Elapsed = time.Since(start)
	logger.Info("run complete",
		zap.Strings("party", req.Party),
		zap.Ints("levels", req.Levels),
		zap.Int("completed", report.Completed),
		zap.Int("failures", report.Failures),
		zap.Bool("truncated", report.Truncated),
		zap.Duration("elapsed", report.Elapsed),
	)
	return report, nil
}

// RunDay simulates a single day of req at level, the same day iteration iter
// of a full run would produce.
func (s *Simulator) RunDay(ctx context.Context, req Request, level, iter int) (*DayResult, error) {
	req = req.WithDefaults()
	req.Levels = []int{level}
	if err := req.Validate(); err != nil {
		return nil, fmt.Errorf("sim.RunDay: invalid request: %w", err)
	}
	plans, err := s.plan(req)
	if err != nil {
		return nil, fmt.Errorf("sim.RunDay: %w", err)
	}
	return s.runDay(ctx, &req, plans[0], iter)
}

// plan resolves every definition once per level and builds each ability
// once, so configuration errors surface before the first iteration.
func (s *Simulator) plan(req Request) ([]*plan, error) {
	enemies := req.Enemies
	if len(enemies) == 0 {
		enemies = []string{creature.GenericTargetID}
	}
	var errs []error
	plans := make([]*plan, 0, len(req.Levels))
	for i, lvl := range req.Levels {
		p := &plan{index: i, level: lvl}
		taken := make(map[string]int)
		resolve := func(ids []string) []slot {
			out := make([]slot, 0, len(ids))
			for _, id := range ids {
				def, err := s.catalog.Get(id, lvl)
				if err != nil {
					errs = append(errs, fmt.Errorf("level %d: %w", lvl, err))
					continue
				}
				if _, err := s.abilities.BuildAll(def); err != nil {
					errs = append(errs, fmt.Errorf("level %d: %w", lvl, err))
					continue
				}
				out = append(out, slot{id: uniqueID(id, taken), def: def})
			}
			return out
		}
		p.party = resolve(req.Party)
		p.enemies = resolve(enemies)
		plans = append(plans, p)
	}
	if err := errors.Join(errs...); err != nil {
		return nil, err
	}
	return plans, nil
}

// uniqueID returns id the first time it is seen and id#n afterwards.
func uniqueID(id string, taken map[string]int) string {
	taken[id]++
	if n := taken[id]; n > 1 {
		return fmt.Sprintf("%s#%d", id, n)
	}
	return id
}

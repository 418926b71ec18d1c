package main

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/cory-johannsen/dpr/internal/config"
	"github.com/cory-johannsen/dpr/internal/game/combat"
	"github.com/cory-johannsen/dpr/internal/game/dice"
	"github.com/cory-johannsen/dpr/internal/lifecycle"
	"github.com/cory-johannsen/dpr/internal/runner"
	"github.com/cory-johannsen/dpr/internal/sim"
	"github.com/cory-johannsen/dpr/internal/storage/cache"
	"github.com/cory-johannsen/dpr/internal/storage/postgres"
)

var (
	runParty         []string
	runEnemies       []string
	runLevels        string
	runLogIterations int
	runRefresh       bool
	runJSON          bool
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Simulate a party across levels and print DPR statistics",
	Example: `  dprsim run --party champion --levels 1-20
  dprsim run --party champion,rogue --enemies ogre --levels 5 --carry-hp --json`,
	RunE: runRun,
}

func init() {
	f := runCmd.Flags()
	f.StringSliceVar(&runParty, "party", nil, "character definition IDs; repeat an ID for copies")
	f.StringSliceVar(&runEnemies, "enemies", nil, "monster definition IDs (default: the generic target)")
	f.StringVar(&runLevels, "levels", "1-20", `levels to simulate, e.g. "5", "1-20", "1,3,5-7"`)
	f.IntVar(&runLogIterations, "log-iterations", 0, "retain encounter logs for the first n iterations of each level")
	f.BoolVar(&runRefresh, "refresh", false, "ignore cached and stored reports")
	f.BoolVar(&runJSON, "json", false, "print the report as JSON")

	f.String("creatures", "content/creatures", "creature definition directory")
	f.String("conditions", "content/conditions", "extra condition definition directory")
	f.String("scripts", "content/scripts", "Lua ability script directory")
	f.Int("iterations", sim.DefaultIterations, "simulated days per level")
	f.Int("rounds", sim.DefaultRounds, "round cap per encounter")
	f.Int("encounters", sim.DefaultEncountersPerDay, "encounters per day")
	f.Int("short-rest-every", sim.DefaultShortRestEvery, "encounters between short rests; -1 disables them")
	f.Int64("seed", 1, "base random seed")
	f.Int("workers", 0, "concurrent iterations (0: one per CPU)")
	f.Float64("tolerance", sim.DefaultFailureTolerance, "fraction of iterations allowed to fail")
	f.Duration("budget", 0, "wall-clock limit; the report is truncated when it expires")
	f.Bool("carry-hp", false, "keep party hit points between encounters of a day")
	f.String("tie-break", string(combat.TieBreakModifier), "initiative tie break: modifier or insertion")
	f.String("cancel-policy", string(dice.CancelBoth), "advantage with disadvantage: cancel, advantage or disadvantage")

	_ = runCmd.MarkFlagRequired("party")
}

func runRun(cmd *cobra.Command, _ []string) error {
	levels, err := sim.ParseLevels(runLevels)
	if err != nil {
		return err
	}
	logger := current.logger
	c, err := loadContent(current.cfg.Content, logger)
	if err != nil {
		return err
	}

	req := requestFromConfig(current.cfg.Simulation)
	req.Party = runParty
	req.Enemies = runEnemies
	req.Levels = levels
	req.LogIterations = runLogIterations

	simulator := sim.New(c.catalog,
		sim.WithAbilities(c.abilities),
		sim.WithConditions(c.conditions),
		sim.WithLogger(logger),
	)
	lc := lifecycle.New(logger)
	return lc.Run(cmd.Context(), func(ctx context.Context) error {
		opts, err := backends(ctx, current.cfg, logger, lc)
		if err != nil {
			return err
		}

		start := time.Now()
		rep, src, err := runner.New(simulator, opts...).Run(ctx, req, runner.Options{Refresh: runRefresh})
		if err != nil {
			return err
		}
		logger.Info("report ready", zap.String("run", rep.ID), zap.String("source", string(src)),
			zap.Duration("elapsed", time.Since(start)))

		if runJSON {
			return writeJSON(cmd.OutOrStdout(), rep)
		}
		return writeReport(cmd.OutOrStdout(), rep, src)
	})
}

// requestFromConfig copies the configured run defaults into a request.
func requestFromConfig(s config.SimulationConfig) sim.Request {
	return sim.Request{
		RoundsPerEncounter: s.Rounds,
		EncountersPerDay:   s.EncountersPerDay,
		ShortRestEvery:     s.ShortRestEvery,
		Iterations:         s.Iterations,
		Seed:               s.Seed,
		Workers:            s.Workers,
		FailureTolerance:   sim.Tolerance(s.FailureTolerance),
		Budget:             s.Budget,
		CarryHP:            s.CarryHP,
		TieBreak:           combat.TieBreak(s.TieBreak),
		CancelPolicy:       dice.CancelPolicy(s.CancelPolicy),
		CritMultiplier:     s.CritMultiplier,
	}
}

// backends connects the report store and cache that cfg enables and
// registers each connection with lc.
func backends(ctx context.Context, cfg config.Config, logger *zap.Logger, lc *lifecycle.Lifecycle) ([]runner.Option, error) {
	opts := []runner.Option{runner.WithLogger(logger)}
	if cfg.Database.Enabled {
		pool, err := postgres.NewPool(ctx, cfg.Database)
		if err != nil {
			return nil, err
		}
		lc.Add("postgres", lifecycle.Quiet(pool.Close))
		opts = append(opts, runner.WithStore(postgres.NewReportRepository(pool.DB())))
	}
	if cfg.Redis.Enabled {
		client, err := cache.NewClient(ctx, cfg.Redis)
		if err != nil {
			return nil, err
		}
		lc.Add("redis", client)
		opts = append(opts, runner.WithCache(cache.NewReportCache(client, cfg.Redis.TTL)))
	}
	return opts, nil
}

// withStore runs fn against the report store under a lifecycle that closes
// the pool afterwards.
func withStore(cmd *cobra.Command, fn func(context.Context, *postgres.ReportRepository) error) error {
	cfg := current.cfg.Database
	if !cfg.Enabled {
		return fmt.Errorf("the report store is disabled; set database.enabled")
	}
	lc := lifecycle.New(current.logger)
	return lc.Run(cmd.Context(), func(ctx context.Context) error {
		pool, err := postgres.NewPool(ctx, cfg)
		if err != nil {
			return err
		}
		lc.Add("postgres", lifecycle.Quiet(pool.Close))
		return fn(ctx, postgres.NewReportRepository(pool.DB()))
	})
}

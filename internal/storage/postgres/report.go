package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/cory-johannsen/dpr/internal/sim"
)

// ErrReportNotFound is returned when a report lookup yields no results.
var ErrReportNotFound = errors.New("report not found")

// ErrReportExists is returned when saving a report whose ID is already stored.
var ErrReportExists = errors.New("report already exists")

// RunSummary is one line of the run listing.
type RunSummary struct {
	ID         string
	CacheKey   string
	CreatedAt  time.Time
	Party      []string
	Levels     []int
	Iterations int
	Truncated  bool
}

// ReportRepository stores simulation reports and their rows. Iteration logs
// are not persisted.
type ReportRepository struct {
	db *pgxpool.Pool
}

// NewReportRepository creates a ReportRepository backed by the given pool.
//
// Precondition: db must be a valid, open connection pool.
func NewReportRepository(db *pgxpool.Pool) *ReportRepository {
	return &ReportRepository{db: db}
}

var rowColumns = []string{
	"run_id", "position", "level", "label", "samples", "mean", "variance", "stddev", "min", "max",
	"p10", "p50", "p90", "wins", "losses", "stalemates", "draws", "mean_rounds", "failures", "spends",
}

// Save inserts rep and all of its rows in one transaction under key.
//
// Precondition: rep.ID must be a UUID.
// Postcondition: Returns ErrReportExists if rep.ID is already stored; on any
// error nothing is written.
func (r *ReportRepository) Save(ctx context.Context, key string, rep *sim.Report) error {
	if _, err := uuid.Parse(rep.ID); err != nil {
		return fmt.Errorf("report id %q: %w", rep.ID, err)
	}
	request, err := json.Marshal(rep.Request)
	if err != nil {
		return fmt.Errorf("encoding request: %w", err)
	}

	tx, err := r.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	enemies := rep.Request.Enemies
	if enemies == nil {
		enemies = []string{}
	}
	_, err = tx.Exec(ctx, `
		INSERT INTO runs
			(id, cache_key, created_at, party, enemies, levels, iterations, seed,
			 completed, failures, truncated, elapsed_ms, request)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13)`,
		rep.ID, key, rep.CreatedAt, rep.Request.Party, enemies, rep.Request.Levels,
		rep.Request.Iterations, rep.Request.Seed, rep.Completed, rep.Failures, rep.Truncated,
		rep.Elapsed.Milliseconds(), request,
	)
	if err != nil {
		if isDuplicateKeyError(err) {
			return ErrReportExists
		}
		return fmt.Errorf("inserting run: %w", err)
	}

	rows := make([][]any, 0, len(rep.Rows))
	for i, row := range rep.Rows {
		var spends any
		if len(row.Spends) > 0 {
			spends = row.Spends
		}
		rows = append(rows, []any{
			rep.ID, i, row.Level, row.Label, row.DPR.N, row.DPR.Mean, row.DPR.Variance, row.DPR.StdDev,
			row.DPR.Min, row.DPR.Max, row.DPR.P10, row.DPR.P50, row.DPR.P90,
			row.Wins, row.Losses, row.Stalemates, row.Draws, row.MeanRounds, row.Failures, spends,
		})
	}
	if _, err := tx.CopyFrom(ctx, pgx.Identifier{"run_rows"}, rowColumns, pgx.CopyFromRows(rows)); err != nil {
		return fmt.Errorf("copying rows: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("committing report: %w", err)
	}
	return nil
}

// Get returns the report with the given ID, rows in their saved order.
//
// Postcondition: Returns ErrReportNotFound if no such report exists.
func (r *ReportRepository) Get(ctx context.Context, id string) (*sim.Report, error) {
	if _, err := uuid.Parse(id); err != nil {
		return nil, ErrReportNotFound
	}
	return r.one(ctx, `SELECT id::text, created_at, request, completed, failures, truncated, elapsed_ms
		FROM runs WHERE id = $1`, id)
}

// Latest returns the newest report stored under key.
//
// Postcondition: Returns ErrReportNotFound if key has no reports.
func (r *ReportRepository) Latest(ctx context.Context, key string) (*sim.Report, error) {
	return r.one(ctx, `SELECT id::text, created_at, request, completed, failures, truncated, elapsed_ms
		FROM runs WHERE cache_key = $1 ORDER BY created_at DESC LIMIT 1`, key)
}

func (r *ReportRepository) one(ctx context.Context, query string, arg any) (*sim.Report, error) {
	var (
		rep       sim.Report
		request   []byte
		elapsedMS int64
	)
	err := r.db.QueryRow(ctx, query, arg).Scan(
		&rep.ID, &rep.CreatedAt, &request, &rep.Completed, &rep.Failures, &rep.Truncated, &elapsedMS,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrReportNotFound
		}
		return nil, fmt.Errorf("querying run: %w", err)
	}
	if err := json.Unmarshal(request, &rep.Request); err != nil {
		return nil, fmt.Errorf("decoding request of %s: %w", rep.ID, err)
	}
	rep.Elapsed = time.Duration(elapsedMS) * time.Millisecond

	rows, err := r.db.Query(ctx, `
		SELECT level, label, samples, mean, variance, stddev, min, max, p10, p50, p90,
		       wins, losses, stalemates, draws, mean_rounds, failures, spends
		FROM run_rows WHERE run_id = $1 ORDER BY position`, rep.ID)
	if err != nil {
		return nil, fmt.Errorf("querying rows of %s: %w", rep.ID, err)
	}
	defer rows.Close()
	for rows.Next() {
		var row sim.Row
		if err := rows.Scan(
			&row.Level, &row.Label, &row.DPR.N, &row.DPR.Mean, &row.DPR.Variance, &row.DPR.StdDev,
			&row.DPR.Min, &row.DPR.Max, &row.DPR.P10, &row.DPR.P50, &row.DPR.P90,
			&row.Wins, &row.Losses, &row.Stalemates, &row.Draws, &row.MeanRounds, &row.Failures, &row.Spends,
		); err != nil {
			return nil, fmt.Errorf("scanning row of %s: %w", rep.ID, err)
		}
		rep.Rows = append(rep.Rows, row)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating rows of %s: %w", rep.ID, err)
	}
	return &rep, nil
}

// List returns up to limit runs, newest first.
//
// Precondition: limit > 0.
func (r *ReportRepository) List(ctx context.Context, limit int) ([]RunSummary, error) {
	rows, err := r.db.Query(ctx, `
		SELECT id::text, cache_key, created_at, party, levels, iterations, truncated
		FROM runs ORDER BY created_at DESC LIMIT $1`, limit)
	if err != nil {
		return nil, fmt.Errorf("listing runs: %w", err)
	}
	out, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (RunSummary, error) {
		var s RunSummary
		err := row.Scan(&s.ID, &s.CacheKey, &s.CreatedAt, &s.Party, &s.Levels, &s.Iterations, &s.Truncated)
		return s, err
	})
	if err != nil {
		return nil, fmt.Errorf("scanning runs: %w", err)
	}
	return out, nil
}

// Delete removes a report and its rows.
//
// Postcondition: Returns ErrReportNotFound if no such report exists.
func (r *ReportRepository) Delete(ctx context.Context, id string) error {
	if _, err := uuid.Parse(id); err != nil {
		return ErrReportNotFound
	}
	tag, err := r.db.Exec(ctx, `DELETE FROM runs WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("deleting run: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrReportNotFound
	}
	return nil
}

// isDuplicateKeyError checks if a pgx error is a unique constraint violation.
func isDuplicateKeyError(err error) bool {
	// pgx wraps PostgreSQL errors; check for SQLSTATE 23505 (unique_violation)
	var pgErr interface{ SQLState() string }
	if errors.As(err, &pgErr) {
		return pgErr.SQLState() == "23505"
	}
	return false
}

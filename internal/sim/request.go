package sim

import (
	"errors"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/cory-johannsen/dpr/internal/game/combat"
	"github.com/cory-johannsen/dpr/internal/game/creature"
	"github.com/cory-johannsen/dpr/internal/game/dice"
)

// Request defaults and limits.
const (
	DefaultRounds           = 5
	DefaultEncountersPerDay = 3
	DefaultShortRestEvery   = 1
	DefaultIterations       = 500
	MaxIterations           = 10000
	DefaultFailureTolerance = 0.05
)

// NoShortRests disables short rests when assigned to Request.ShortRestEvery.
const NoShortRests = -1

// Request describes one simulation run. Zero fields take the defaults above.
type Request struct {
	// Party lists character definition IDs; a repeated ID adds another copy.
	Party []string `json:"party"`
	// Levels are the character levels to simulate, each in [1, 20].
	Levels []int `json:"levels"`
	// Enemies lists monster definition IDs. Empty means one generic target.
	Enemies []string `json:"enemies,omitempty"`

	RoundsPerEncounter int `json:"rounds_per_encounter"`
	EncountersPerDay   int `json:"encounters_per_day"`
	// ShortRestEvery takes a short rest after every n encounters of a day.
	// NoShortRests disables them.
	ShortRestEvery int   `json:"short_rest_every"`
	Iterations     int   `json:"iterations"`
	Seed           int64 `json:"seed"`
	// Workers bounds concurrent iterations; 0 means one per CPU.
	Workers int `json:"-"`
	// FailureTolerance is the fraction of iterations allowed to fail before
	// the run is abandoned. Nil means DefaultFailureTolerance; zero aborts on
	// the first failure.
	FailureTolerance *float64 `json:"failure_tolerance,omitempty"`
	// Budget caps wall-clock time; the report is truncated when it expires.
	Budget time.Duration `json:"-"`
	// CarryHP keeps party hit points between the encounters of a day.
	CarryHP bool `json:"carry_hp"`
	// LogIterations retains encounter logs for the first n iterations of each level.
	LogIterations int `json:"-"`

	TieBreak       combat.TieBreak   `json:"tie_break,omitempty"`
	CancelPolicy   dice.CancelPolicy `json:"cancel_policy,omitempty"`
	CritMultiplier int               `json:"crit_multiplier,omitempty"`
}

// WithDefaults returns a copy of r with zero fields replaced by defaults.
// Levels are sorted and deduplicated.
func (r Request) WithDefaults() Request {
	if r.RoundsPerEncounter == 0 {
		r.RoundsPerEncounter = DefaultRounds
	}
	if r.EncountersPerDay == 0 {
		r.EncountersPerDay = DefaultEncountersPerDay
	}
	if r.ShortRestEvery == 0 {
		r.ShortRestEvery = DefaultShortRestEvery
	}
	if r.Iterations == 0 {
		r.Iterations = DefaultIterations
	}
	if r.FailureTolerance == nil {
		r.FailureTolerance = Tolerance(DefaultFailureTolerance)
	}
	if r.TieBreak == "" {
		r.TieBreak = combat.TieBreakModifier
	}
	if r.CancelPolicy == "" {
		r.CancelPolicy = dice.CancelBoth
	}
	if len(r.Levels) > 0 {
		levels := append([]int(nil), r.Levels...)
		sort.Ints(levels)
		r.Levels = compact(levels)
	}
	return r
}

// Validate reports every problem with r joined into one error.
//
// Precondition: r has passed through WithDefaults.
func (r Request) Validate() error {
	var errs []error
	add := func(format string, args ...any) { errs = append(errs, fmt.Errorf(format, args...)) }

	if len(r.Party) == 0 {
		add("party must not be empty")
	}
	for _, id := range append(append([]string(nil), r.Party...), r.Enemies...) {
		if strings.TrimSpace(id) == "" {
			add("definition ids must not be empty")
			break
		}
	}
	if len(r.Levels) == 0 {
		add("at least one level is required")
	}
	for _, lvl := range r.Levels {
		if lvl < 1 || lvl > creature.MaxLevel {
			add("level %d outside [1, %d]", lvl, creature.MaxLevel)
		}
	}
	if r.RoundsPerEncounter < 1 {
		add("rounds_per_encounter must be >= 1, got %d", r.RoundsPerEncounter)
	}
	if r.EncountersPerDay < 1 {
		add("encounters_per_day must be >= 1, got %d", r.EncountersPerDay)
	}
	if r.ShortRestEvery < 1 && r.ShortRestEvery != NoShortRests {
		add("short_rest_every must be >= 1 or %d, got %d", NoShortRests, r.ShortRestEvery)
	}
	if r.Iterations < 1 || r.Iterations > MaxIterations {
		add("iterations must be in [1, %d], got %d", MaxIterations, r.Iterations)
	}
	if r.Workers < 0 {
		add("workers must be >= 0, got %d", r.Workers)
	}
	if r.FailureTolerance != nil && (*r.FailureTolerance < 0 || *r.FailureTolerance > 1) {
		add("failure_tolerance must be in [0, 1], got %g", *r.FailureTolerance)
	}
	if r.Budget < 0 {
		add("budget must be >= 0, got %s", r.Budget)
	}
	if r.LogIterations < 0 {
		add("log_iterations must be >= 0, got %d", r.LogIterations)
	}
	if _, err := combat.ParseTieBreak(string(r.TieBreak)); err != nil {
		errs = append(errs, err)
	}
	if _, err := dice.ParseCancelPolicy(string(r.CancelPolicy)); err != nil {
		errs = append(errs, err)
	}
	if r.CritMultiplier < 0 {
		add("crit_multiplier must be >= 0, got %d", r.CritMultiplier)
	}
	return errors.Join(errs...)
}

// Tolerance returns a FailureTolerance value for a Request literal.
func Tolerance(fraction float64) *float64 { return &fraction }

// AllowedFailures returns how many of total iterations may fail before the
// run is abandoned.
func (r Request) AllowedFailures(total int) int {
	tol := DefaultFailureTolerance
	if r.FailureTolerance != nil {
		tol = *r.FailureTolerance
	}
	return int(tol * float64(total))
}

// ParseLevels parses a level list such as "5", "1-20", or "1,3,5-7".
//
// Postcondition: the result is sorted, deduplicated, and within [1, 20].
func ParseLevels(s string) ([]int, error) {
	var out []int
	for _, part := range strings.Split(s, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			return nil, fmt.Errorf("sim.ParseLevels %q: empty element", s)
		}
		lo, hi, isRange := strings.Cut(part, "-")
		first, err := parseLevel(lo)
		if err != nil {
			return nil, fmt.Errorf("sim.ParseLevels %q: %w", s, err)
		}
		last := first
		if isRange {
			if last, err = parseLevel(hi); err != nil {
				return nil, fmt.Errorf("sim.ParseLevels %q: %w", s, err)
			}
			if last < first {
				return nil, fmt.Errorf("sim.ParseLevels %q: range %d-%d is descending", s, first, last)
			}
		}
		for lvl := first; lvl <= last; lvl++ {
			out = append(out, lvl)
		}
	}
	sort.Ints(out)
	return compact(out), nil
}

func parseLevel(s string) (int, error) {
	n, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil {
		return 0, fmt.Errorf("invalid level %q", s)
	}
	if n < 1 || n > creature.MaxLevel {
		return 0, fmt.Errorf("level %d outside [1, %d]", n, creature.MaxLevel)
	}
	return n, nil
}

// compact removes adjacent duplicates from a sorted slice in place.
func compact(sorted []int) []int {
	out := sorted[:0]
	for i, v := range sorted {
		if i == 0 || v != sorted[i-1] {
			out = append(out, v)
		}
	}
	return out
}

package sim_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"

	"github.com/cory-johannsen/dpr/internal/sim"
)

func TestParseLevels(t *testing.T) {
	cases := []struct {
		in      string
		want    []int
		wantErr bool
	}{
		{"5", []int{5}, false},
		{"1-3", []int{1, 2, 3}, false},
		{"1,3,5", []int{1, 3, 5}, false},
		{"5, 1-2, 2", []int{1, 2, 5}, false},
		{"1-20", nil, false},
		{"0", nil, true},
		{"21", nil, true},
		{"5-3", nil, true},
		{"1,,2", nil, true},
		{"x", nil, true},
	}
	for _, tc := range cases {
		t.Run(tc.in, func(t *testing.T) {
			got, err := sim.ParseLevels(tc.in)
			if tc.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			if tc.want == nil {
				assert.Len(t, got, 20)
				return
			}
			assert.Equal(t, tc.want, got)
		})
	}
}

func TestRequest_WithDefaults(t *testing.T) {
	r := sim.Request{Party: []string{"a"}, Levels: []int{3, 1, 3}}.WithDefaults()
	assert.Equal(t, []int{1, 3}, r.Levels)
	assert.Equal(t, sim.DefaultRounds, r.RoundsPerEncounter)
	assert.Equal(t, sim.DefaultEncountersPerDay, r.EncountersPerDay)
	assert.Equal(t, sim.DefaultShortRestEvery, r.ShortRestEvery)
	assert.Equal(t, sim.DefaultIterations, r.Iterations)
	require.NotNil(t, r.FailureTolerance)
	assert.InDelta(t, sim.DefaultFailureTolerance, *r.FailureTolerance, 1e-12)
	assert.NoError(t, r.Validate())
}

func TestRequest_ValidateJoinsProblems(t *testing.T) {
	r := sim.Request{
		Party:            []string{""},
		Levels:           []int{0, 25},
		ShortRestEvery:   -3,
		Iterations:       -1,
		FailureTolerance: sim.Tolerance(2),
		TieBreak:         "coin",
	}.WithDefaults()
	err := r.Validate()
	require.Error(t, err)
	for _, want := range []string{"ids must not be empty", "level 0", "level 25", "short_rest_every",
		"iterations", "failure_tolerance", "tie-break"} {
		assert.ErrorContains(t, err, want)
	}
}

func TestSummarize(t *testing.T) {
	s := sim.Summarize([]float64{4, 1, 3, 2, 5})
	assert.Equal(t, 5, s.N)
	assert.InDelta(t, 3.0, s.Mean, 1e-12)
	assert.InDelta(t, 2.5, s.Variance, 1e-12)
	assert.InDelta(t, 1.4, s.P10, 1e-12)
	assert.InDelta(t, 3.0, s.P50, 1e-12)
	assert.InDelta(t, 4.6, s.P90, 1e-12)
	assert.Equal(t, 1.0, s.Min)
	assert.Equal(t, 5.0, s.Max)
	assert.Equal(t, sim.Summary{}, sim.Summarize(nil))
}

func TestSummarize_Properties(t *testing.T) {
	rapid.Check(t, func(rt *rapid.T) {
		xs := rapid.SliceOfN(rapid.Float64Range(0, 1000), 1, 200).Draw(rt, "xs")
		s := sim.Summarize(xs)
		sum := 0.0
		for _, x := range xs {
			sum += x
		}
		if diff := s.Mean - sum/float64(len(xs)); diff > 1e-6 || diff < -1e-6 {
			rt.Fatalf("mean %v, want %v", s.Mean, sum/float64(len(xs)))
		}
		if s.Variance < 0 {
			rt.Fatalf("negative variance %v", s.Variance)
		}
		if !(s.Min <= s.P10 && s.P10 <= s.P50 && s.P50 <= s.P90 && s.P90 <= s.Max) {
			rt.Fatalf("percentiles out of order: %+v", s)
		}
	})
}

func TestRequest_AllowedFailures(t *testing.T) {
	cases := []struct {
		name      string
		tolerance *float64
		want      int
	}{
		{"unset uses the default", nil, 5},
		{"zero allows none", sim.Tolerance(0), 0},
		{"fraction is floored", sim.Tolerance(0.019), 1},
		{"one allows all", sim.Tolerance(1), 100},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			r := sim.Request{FailureTolerance: tc.tolerance}
			assert.Equal(t, tc.want, r.AllowedFailures(100))
		})
	}
	r := sim.Request{Party: []string{"a"}, Levels: []int{1}, FailureTolerance: sim.Tolerance(0)}.WithDefaults()
	require.NotNil(t, r.FailureTolerance)
	assert.Zero(t, *r.FailureTolerance, "an explicit zero survives defaults")
	assert.NoError(t, r.Validate())
}

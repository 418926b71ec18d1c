package dice_test

import (
	"strings"
	"testing"

	"github.com/cory-johannsen/dpr/internal/game/dice"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"
)

func TestRollResult_Total(t *testing.T) {
	r := dice.RollResult{Expression: "2d6+4", Dice: []int{3, 5}, Modifier: 4}
	assert.Equal(t, 12, r.Total())
}

func TestRollResult_String(t *testing.T) {
	cases := []struct {
		name string
		r    dice.RollResult
		want string
	}{
		{"modifier", dice.RollResult{Expression: "2d6+4", Dice: []int{3, 5}, Modifier: 4}, "2d6+4 [3 5] +4 = 12"},
		{"dropped", dice.RollResult{Expression: "4d6kh3", Dice: []int{6, 5, 3}, Dropped: []int{1}}, "4d6kh3 [6 5 3] (dropped [1]) = 14"},
		{"no expression", dice.RollResult{Dice: []int{4}}, "roll [4] = 4"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, tc.r.String())
		})
	}
}

func TestRoll_KeepHighestRecordsDropped(t *testing.T) {
	// Sequence values are Intn results, so faces are one higher.
	res, err := dice.RollExpr("4d6kh3+1", dice.NewSequence(2, 5, 0, 3))
	require.NoError(t, err)
	assert.Equal(t, []int{6, 4, 3}, res.Dice)
	assert.Equal(t, []int{1}, res.Dropped)
	assert.Equal(t, 6, res.Sides)
	assert.Equal(t, 14, res.Total())
}

func TestRollResult_Total_Property(t *testing.T) {
	rapid.Check(t, func(rt *rapid.T) {
		rolled := rapid.SliceOf(rapid.IntRange(1, 20)).Draw(rt, "dice")
		modifier := rapid.IntRange(-100, 100).Draw(rt, "modifier")
		r := dice.RollResult{Expression: "Nd6+M", Dice: rolled, Modifier: modifier}

		expected := modifier
		for _, d := range rolled {
			expected += d
		}
		assert.Equal(rt, expected, r.Total())
	})
}

func TestCryptoSource_Intn_InRange(t *testing.T) {
	src := dice.NewCryptoSource()
	for i := 0; i < 1000; i++ {
		v := src.Intn(6)
		assert.GreaterOrEqual(t, v, 0)
		assert.Less(t, v, 6)
	}
}

func TestCryptoSource_Intn_PanicsOnZero(t *testing.T) {
	assert.Panics(t, func() { dice.NewCryptoSource().Intn(0) })
}

func TestSeededSource_SameSeedSameSequence(t *testing.T) {
	a := dice.NewSeededSource(42)
	b := dice.NewSeededSource(42)
	for i := 0; i < 200; i++ {
		require.Equal(t, a.Intn(20), b.Intn(20), "draw %d", i)
	}
}

func TestSeededSource_ZeroSeedIsUsable(t *testing.T) {
	a := dice.NewSeededSource(0)
	b := dice.NewSeededSource(1)
	for i := 0; i < 20; i++ {
		require.Equal(t, a.Intn(100), b.Intn(100))
	}
}

func TestDeriveSeed_Deterministic(t *testing.T) {
	assert.Equal(t, dice.DeriveSeed(7, 3), dice.DeriveSeed(7, 3))
	assert.NotEqual(t, dice.DeriveSeed(7, 3), dice.DeriveSeed(7, 4))
	assert.NotEqual(t, dice.DeriveSeed(7, 3), dice.DeriveSeed(8, 3))
}

func TestRollDie_InRange_Property(t *testing.T) {
	rapid.Check(t, func(rt *rapid.T) {
		seed := rapid.Int64().Draw(rt, "seed")
		sides := rapid.IntRange(1, 100).Draw(rt, "sides")
		v := dice.RollDie(sides, dice.NewSeededSource(seed))
		assert.GreaterOrEqual(rt, v, 1)
		assert.LessOrEqual(rt, v, sides)
	})
}

func TestParse(t *testing.T) {
	cases := []struct {
		in   string
		want dice.Expression
	}{
		{"d20", dice.Expression{Raw: "d20", Count: 1, Sides: 20}},
		{"2d6+4", dice.Expression{Raw: "2d6+4", Count: 2, Sides: 6, Modifier: 4}},
		{"1d8-1", dice.Expression{Raw: "1d8-1", Count: 1, Sides: 8, Modifier: -1}},
		{"4d6kh3", dice.Expression{Raw: "4d6kh3", Count: 4, Sides: 6, KeepHighest: 3}},
		{"4D6KH3+2", dice.Expression{Raw: "4D6KH3+2", Count: 4, Sides: 6, KeepHighest: 3, Modifier: 2}},
	}
	for _, tc := range cases {
		t.Run(tc.in, func(t *testing.T) {
			got, err := dice.Parse(tc.in)
			require.NoError(t, err)
			assert.Equal(t, tc.want, got)
		})
	}
}

func TestParse_Errors(t *testing.T) {
	for _, in := range []string{"", "6", "0d6", "2d1", "2dx", "2d6+", "2d6kh2", "2d6kh0"} {
		_, err := dice.Parse(in)
		assert.Error(t, err, "input %q", in)
	}
}

func TestExpression_StringAndAverage(t *testing.T) {
	e := dice.MustParse("2d6+4")
	assert.Equal(t, "2d6+4", e.String())
	assert.InDelta(t, 11.0, e.Average(), 1e-9)
	assert.Equal(t, "1d20", dice.MustParse("d20").String())
}

func TestRoll_KeepHighest(t *testing.T) {
	// Zero-based replay: 0,5,2,3 read as 1,6,3,4.
	r, err := dice.Roll(dice.MustParse("4d6kh3"), dice.NewSequence(0, 5, 2, 3))
	require.NoError(t, err)
	assert.Equal(t, []int{6, 4, 3}, r.Dice)
	assert.Equal(t, 13, r.Total())
}

func TestRollAdvantage_KeepsMax_Property(t *testing.T) {
	rapid.Check(t, func(rt *rapid.T) {
		a := rapid.IntRange(0, 19).Draw(rt, "a")
		b := rapid.IntRange(0, 19).Draw(rt, "b")
		kept, pair := dice.RollAdvantage(dice.NewSequence(a, b))
		assert.Equal(rt, dice.D20{First: a + 1, Second: b + 1}, pair)
		assert.Equal(rt, max(a, b)+1, kept)
	})
}

func TestRollDisadvantage_KeepsMin_Property(t *testing.T) {
	rapid.Check(t, func(rt *rapid.T) {
		a := rapid.IntRange(0, 19).Draw(rt, "a")
		b := rapid.IntRange(0, 19).Draw(rt, "b")
		kept, _ := dice.RollDisadvantage(dice.NewSequence(a, b))
		assert.Equal(rt, min(a, b)+1, kept)
	})
}

func TestResolveMode_SimultaneousCancels_Property(t *testing.T) {
	rapid.Check(t, func(rt *rapid.T) {
		a := rapid.IntRange(1, 20).Draw(rt, "a")
		b := rapid.IntRange(1, 20).Draw(rt, "b")
		mode := dice.ResolveMode(true, true, dice.CancelBoth)
		assert.Equal(rt, dice.Normal, mode)
		assert.Equal(rt, a, dice.D20{First: a, Second: b}.Kept(mode))
	})
}

func TestResolveMode_Policies(t *testing.T) {
	assert.Equal(t, dice.Advantage, dice.ResolveMode(true, true, dice.PreferAdvantage))
	assert.Equal(t, dice.Disadvantage, dice.ResolveMode(true, true, dice.PreferDisadvantage))
	assert.Equal(t, dice.Advantage, dice.ResolveMode(true, false, dice.CancelBoth))
	assert.Equal(t, dice.Disadvantage, dice.ResolveMode(false, true, dice.CancelBoth))
	assert.Equal(t, dice.Normal, dice.ResolveMode(false, false, dice.PreferAdvantage))
}

func TestParseCancelPolicy(t *testing.T) {
	p, err := dice.ParseCancelPolicy("")
	require.NoError(t, err)
	assert.Equal(t, dice.CancelBoth, p)
	_, err = dice.ParseCancelPolicy("coinflip")
	assert.Error(t, err)
}

func TestIsCritical(t *testing.T) {
	assert.True(t, dice.IsCritical(20, 0))
	assert.False(t, dice.IsCritical(19, 20))
	assert.True(t, dice.IsCritical(19, 19))
	assert.True(t, dice.IsCritical(18, 18))
}

func TestMode_String(t *testing.T) {
	assert.True(t, strings.EqualFold("ADVANTAGE", dice.Advantage.String()))
	assert.Equal(t, "normal", dice.Normal.String())
}

package creature_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"

	"github.com/cory-johannsen/dpr/internal/game/creature"
	"github.com/cory-johannsen/dpr/internal/game/resource"
)

func TestMod_Floors(t *testing.T) {
	cases := map[int]int{1: -5, 8: -1, 9: -1, 10: 0, 11: 0, 12: 1, 18: 4, 20: 5}
	for score, want := range cases {
		assert.Equal(t, want, creature.Mod(score), "score %d", score)
	}
}

func TestMod_Property(t *testing.T) {
	rapid.Check(t, func(rt *rapid.T) {
		score := rapid.IntRange(1, 30).Draw(rt, "score")
		m := creature.Mod(score)
		assert.LessOrEqual(rt, 2*m, score-10)
		assert.Greater(rt, 2*(m+1), score-10)
	})
}

func TestProficiencyForLevel(t *testing.T) {
	assert.Equal(t, 2, creature.ProficiencyForLevel(1))
	assert.Equal(t, 3, creature.ProficiencyForLevel(5))
	assert.Equal(t, 4, creature.ProficiencyForLevel(9))
	assert.Equal(t, 6, creature.ProficiencyForLevel(20))
}

func TestDefinition_DerivedBonuses(t *testing.T) {
	toHit := 9
	d := &creature.Definition{
		ID: "fighter", Level: 5, Proficiency: 3,
		Stats:          creature.Stats{Str: 18, Dex: 14, Con: 16},
		SaveProficient: []creature.Stat{creature.Str, creature.Con},
		SaveOverrides:  map[creature.Stat]int{creature.Wis: 7},
	}
	sword := &creature.ActionDef{ID: "greatsword", AttackBonus: 1}
	assert.Equal(t, 8, d.ToHit(sword))
	assert.Equal(t, 9, d.ToHit(&creature.ActionDef{ID: "fixed", ToHit: &toHit}))
	assert.Equal(t, 15, d.SaveDC(&creature.ActionDef{ID: "shove"}))
	assert.Equal(t, 6, d.SaveBonus(creature.Con))
	assert.Equal(t, 2, d.SaveBonus(creature.Dex))
	assert.Equal(t, 7, d.SaveBonus(creature.Wis))
	assert.Equal(t, 2, d.InitiativeMod())
}

func TestDefinition_ValidateJoinsProblems(t *testing.T) {
	d := &creature.Definition{
		ID: "broken", Kind: creature.KindCharacter, Level: 3, MaxHP: 0, AC: 12,
		Resources: []resource.Def{{Name: "slot", Max: -1}},
		Actions: []creature.ActionDef{
			{ID: "bad", Kind: creature.ActionAttack, Range: creature.RangeMelee,
				Damage: []creature.DamageSpec{{Dice: "2dx", Type: "fire"}},
				Cost:   &creature.Cost{Resource: "ghost", Amount: 1}},
		},
	}
	err := d.Validate()
	require.Error(t, err)
	msg := err.Error()
	assert.Contains(t, msg, "max_hp")
	assert.Contains(t, msg, "max must be >= 0")
	assert.Contains(t, msg, "unknown resource \"ghost\"")
	assert.Contains(t, msg, "invalid die sides")
}

func TestGenericTarget_ScalesWithLevel(t *testing.T) {
	assert.Equal(t, 13, creature.GenericTarget(1).AC)
	assert.Equal(t, 15, creature.GenericTarget(5).AC)
	assert.Equal(t, 19, creature.GenericTarget(20).AC)
	assert.Equal(t, 2+3, creature.TargetSaveBonus(1))
	assert.Equal(t, 3+4, creature.TargetSaveBonus(5))
	assert.Equal(t, 6+5, creature.TargetSaveBonus(20))

	g := creature.GenericTarget(5)
	assert.Equal(t, 7, g.SaveBonus(creature.Dex))
	assert.Empty(t, g.Actions)
	assert.NoError(t, g.Validate())
}

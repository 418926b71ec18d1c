package combat_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cory-johannsen/dpr/internal/game/combat"
	"github.com/cory-johannsen/dpr/internal/game/creature"
	"github.com/cory-johannsen/dpr/internal/game/dice"
)

func TestConcentrate_EndsPreviousSpell(t *testing.T) {
	hero := newCombatant(t, "hero", fighterDef(5), combat.TeamParty)
	foe := newCombatant(t, "foe", dummyDef("foe", 50, 10), combat.TeamEnemies)
	enc, err := combat.NewEncounter(combat.Config{}, dice.NewSequence(14), hero, foe)
	require.NoError(t, err)

	var ended []string
	enc.Concentrate(hero, "bless", func() { ended = append(ended, "bless") })
	enc.Concentrate(hero, "hunters_mark", func() { ended = append(ended, "hunters_mark") })
	assert.Equal(t, []string{"bless"}, ended)
	assert.Equal(t, "hunters_mark", hero.Concentration())

	enc.EndConcentration(hero)
	enc.EndConcentration(hero)
	assert.Equal(t, []string{"bless", "hunters_mark"}, ended)
	assert.Empty(t, hero.Concentration())
}

func TestConcentrate_EndsWhenConcentratorDrops(t *testing.T) {
	// 15 + 5 hits AC 10 for 10, dropping the 10 HP foe.
	hero := newCombatant(t, "hero", fighterDef(5), combat.TeamParty)
	foe := newCombatant(t, "foe", dummyDef("foe", 10, 10), combat.TeamEnemies)
	enc, err := combat.NewEncounter(combat.Config{MaxRounds: 1}, dice.NewSequence(14), hero, foe)
	require.NoError(t, err)

	ended := false
	enc.Concentrate(foe, "hex", func() { ended = true })
	_, err = enc.Run(context.Background())
	require.NoError(t, err)
	assert.True(t, ended)
	assert.Empty(t, foe.Concentration())
}

func TestEncounter_HealClampsAndLogs(t *testing.T) {
	hero := newCombatant(t, "hero", fighterDef(5), combat.TeamParty, combat.WithHP(20))
	foe := newCombatant(t, "foe", dummyDef("foe", 50, 10), combat.TeamEnemies)
	enc, err := combat.NewEncounter(combat.Config{Log: true, MaxRounds: 1}, dice.NewSequence(14), hero, foe)
	require.NoError(t, err)

	assert.Equal(t, 24, enc.Heal(hero, hero, 100, "cure_wounds"))
	assert.Equal(t, 44, hero.HP)
	assert.Zero(t, enc.Heal(hero, hero, 5, "cure_wounds"))

	res, err := enc.Run(context.Background())
	require.NoError(t, err)
	var heals []combat.Entry
	for _, e := range res.Log {
		if e.Kind == combat.LogHeal {
			heals = append(heals, e)
		}
	}
	require.Len(t, heals, 2)
	assert.Equal(t, 24, heals[0].Amount)
}

func TestStrike_IgnoresArmorClass(t *testing.T) {
	hero := newCombatant(t, "hero", fighterDef(5), combat.TeamParty)
	foe := newCombatant(t, "foe", dummyDef("foe", 50, 30), combat.TeamEnemies)
	enc, err := combat.NewEncounter(combat.Config{}, dice.NewSequence(14), hero, foe)
	require.NoError(t, err)

	darts := &combat.Action{
		Source: "magic_missile",
		Kind:   creature.ActionAttack,
		Damage: []combat.DamageComponent{{Source: "magic_missile", Count: 3, Sides: 4, Flat: 3, Type: "force"}},
		Tags:   map[string]bool{combat.TagSpell: true},
	}
	assert.False(t, darts.IsWeapon())
	require.NoError(t, enc.Strike(hero, foe, darts))
	// Three d4 at 3 plus 3.
	assert.Equal(t, 50-12, foe.HP)
	assert.Equal(t, 12, hero.DamageDealt)
	assert.Nil(t, darts.Damage[0].Rolls, "the template action is not rolled")

	assert.ErrorContains(t, enc.ForceSave(hero, []*combat.Combatant{foe}, darts), "not a save action")
}

func TestCombatant_EquipmentBonuses(t *testing.T) {
	def := fighterDef(5)
	def.Equipment = []creature.Item{{ID: "blade", AC: 1, DamageBonus: 2}}
	def.Actions[0].Weapon = "blade"
	hero := newCombatant(t, "hero", def, combat.TeamParty)

	assert.Equal(t, 19, hero.AC())
	a, err := hero.Action(&def.Actions[0])
	require.NoError(t, err)
	require.Len(t, a.Damage, 1)
	assert.Equal(t, 3+2, a.Damage[0].Flat)
	assert.True(t, a.IsWeapon())
}

package creature_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"

	"github.com/cory-johannsen/dpr/internal/game/creature"
	"github.com/cory-johannsen/dpr/internal/game/resource"
)

const wizardYAML = `
id: wizard
kind: character
hit_die: 6
stats: {str: 8, dex: 14, con: 14, int: 16, wis: 12, cha: 10}
ac: 12
spellcasting: {ability: int, progression: full}
spells: [magic_missile, fire_bolt]
equipment:
  - {id: wand, spell_attack: 1}
resources:
  - {name: spell_slot_1, max: 1}
levels:
  2:
    ac: 12
`

func TestCatalog_DerivesSpellSlotsPerLevel(t *testing.T) {
	c := creature.NewCatalog()
	require.NoError(t, c.LoadFromBytes([]byte(wizardYAML)))

	d5, err := c.Get("wizard", 5)
	require.NoError(t, err)
	slots := map[string]resource.Def{}
	for _, r := range d5.Resources {
		slots[r.Name] = r
	}
	// Declared spell_slot_1 wins over the table's four.
	assert.Equal(t, 1, slots[creature.SlotResource(1)].Max)
	assert.Equal(t, 3, slots[creature.SlotResource(2)].Max)
	assert.Equal(t, 2, slots[creature.SlotResource(3)].Max)
	assert.Equal(t, resource.LongRest, slots[creature.SlotResource(3)].Trigger)
	assert.NotContains(t, slots, creature.SlotResource(4))
	assert.NotContains(t, slots, creature.PactSlot)

	assert.Equal(t, 3+3+1, d5.SpellAttack())
	assert.Equal(t, 8+3+3, d5.SpellDC())

	d1, err := c.Get("wizard", 1)
	require.NoError(t, err)
	assert.Len(t, d1.Resources, 1, "level 1 adds nothing beyond the declared first-level slot")
}

func TestSpellcasting_ProgressionTables(t *testing.T) {
	full := &creature.Spellcasting{Progression: creature.ProgressionFull}
	half := &creature.Spellcasting{Progression: creature.ProgressionHalf}
	third := &creature.Spellcasting{Progression: creature.ProgressionThird}
	pact := &creature.Spellcasting{Progression: creature.ProgressionPact}

	assert.Equal(t, [creature.MaxSpellLevel]int{4, 3, 3, 3, 3, 2, 2, 1, 1}, full.SlotCounts(20))
	assert.Equal(t, 3, half.CasterLevel(5))
	assert.Equal(t, [creature.MaxSpellLevel]int{4, 2}, half.SlotCounts(5))
	assert.Equal(t, 2, third.CasterLevel(4))
	assert.Equal(t, [creature.MaxSpellLevel]int{}, pact.SlotCounts(20))

	cases := []struct{ level, count, slot int }{
		{1, 1, 1}, {2, 2, 1}, {3, 2, 2}, {5, 2, 3}, {7, 2, 4}, {9, 2, 5}, {11, 3, 5}, {17, 4, 5},
	}
	for _, tc := range cases {
		n, lvl := pact.PactSlots(tc.level)
		assert.Equal(t, tc.count, n, "level %d count", tc.level)
		assert.Equal(t, tc.slot, lvl, "level %d slot level", tc.level)
	}
	n, _ := full.PactSlots(20)
	assert.Zero(t, n)
}

func TestSpellcasting_SlotsNeverShrinkWithLevel_Property(t *testing.T) {
	rapid.Check(t, func(rt *rapid.T) {
		sc := &creature.Spellcasting{Progression: rapid.SampledFrom([]creature.Progression{
			creature.ProgressionFull, creature.ProgressionHalf, creature.ProgressionThird,
		}).Draw(rt, "progression")}
		level := rapid.IntRange(1, 19).Draw(rt, "level")
		lo, hi := sc.SlotCounts(level), sc.SlotCounts(level+1)
		for i := range lo {
			assert.LessOrEqual(rt, lo[i], hi[i], "slot level %d", i+1)
		}
	})
}

func TestDefinition_PactCasterGetsShortRestSlots(t *testing.T) {
	d := &creature.Definition{
		ID: "warlock", Level: 5, MaxHP: 30, AC: 13,
		Stats:        creature.Stats{Cha: 18},
		Spellcasting: &creature.Spellcasting{Ability: creature.Cha, Progression: creature.ProgressionPact},
		Spells:       []string{"eldritch_blast"},
	}
	c := creature.NewCatalog()
	require.NoError(t, c.Add(d))
	require.Len(t, d.Resources, 1)
	assert.Equal(t, resource.Def{Name: creature.PactSlot, Max: 2, Trigger: resource.ShortRest}, d.Resources[0])
	assert.Equal(t, 3, d.PactSlotLevel())
	assert.Equal(t, 4, d.CastingMod())
}

func TestDefinition_EquipmentBonuses(t *testing.T) {
	d := &creature.Definition{
		ID: "knight", Level: 5, Proficiency: 3, AC: 18,
		Stats:          creature.Stats{Str: 16, Con: 14},
		SaveProficient: []creature.Stat{creature.Con},
		SaveOverrides:  map[creature.Stat]int{creature.Wis: 4},
		Equipment: []creature.Item{
			{ID: "longsword", AttackBonus: 1, DamageBonus: 1},
			{ID: "ring", AC: 1, Saves: 1},
		},
	}
	sword := &creature.ActionDef{ID: "slash", Weapon: "longsword"}
	fist := &creature.ActionDef{ID: "punch"}
	assert.Equal(t, 3+3+1, d.ToHit(sword))
	assert.Equal(t, 1, d.DamageBonus(sword))
	assert.Equal(t, 3+3, d.ToHit(fist))
	assert.Zero(t, d.DamageBonus(fist))
	assert.Equal(t, 19, d.ArmorClass())
	assert.Equal(t, 2+3+1, d.SaveBonus(creature.Con))
	assert.Equal(t, 5, d.SaveBonus(creature.Wis))
	assert.Zero(t, d.SpellAttack())
}

func TestDefinition_ValidateEquipmentAndSpells(t *testing.T) {
	d := &creature.Definition{
		ID: "confused", Kind: creature.KindCharacter, Level: 1, MaxHP: 10,
		Equipment: []creature.Item{{ID: "dagger"}, {ID: "dagger"}, {}},
		Actions: []creature.ActionDef{{ID: "stab", Kind: creature.ActionAttack, Range: creature.RangeMelee,
			Weapon: "spear", Damage: []creature.DamageSpec{{Dice: "1d4", Type: "piercing"}}}},
		Spells: []string{"fire_bolt"},
	}
	err := d.Validate()
	require.Error(t, err)
	assert.ErrorContains(t, err, `duplicate item "dagger"`)
	assert.ErrorContains(t, err, "item id must not be empty")
	assert.ErrorContains(t, err, `unknown item "spear"`)
	assert.ErrorContains(t, err, "spellcasting block")

	d = &creature.Definition{
		ID: "odd", Kind: creature.KindCharacter, Level: 1, MaxHP: 10,
		Spellcasting: &creature.Spellcasting{Ability: "luck", Progression: "quarter"},
	}
	assert.ErrorContains(t, d.Validate(), "unknown ability")
}

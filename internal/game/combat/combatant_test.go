package combat_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"

	"github.com/cory-johannsen/dpr/internal/game/combat"
)

func TestApplyDamage_Modifiers(t *testing.T) {
	def := dummyDef("elemental", 50, 12)
	def.Immunities = []string{"Fire"}
	def.Resistances = []string{"cold", "fire"}
	def.Vulnerabilities = []string{"thunder"}

	cases := []struct {
		name     string
		amount   int
		dmgType  string
		adjusted int
		modifier string
	}{
		{"immunity beats resistance", 13, "fire", 0, combat.ModImmune},
		{"case-insensitive immunity", 13, "FIRE", 0, combat.ModImmune},
		{"resistance floors", 13, "cold", 6, combat.ModResisted},
		{"vulnerability doubles", 7, "thunder", 14, combat.ModVulnerable},
		{"unmodified", 9, "slashing", 9, ""},
		{"partial name does not match", 9, "fir", 9, ""},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			c := newCombatant(t, "e1", def, combat.TeamEnemies)
			out := c.ApplyDamage(tc.amount, tc.dmgType)
			assert.Equal(t, tc.adjusted, out.Adjusted)
			assert.Equal(t, tc.modifier, out.Modifier)
			assert.Equal(t, 50-tc.adjusted, c.HP)
		})
	}
}

func TestApplyDamage_TempHPAbsorbsFirst(t *testing.T) {
	c := newCombatant(t, "e1", dummyDef("ogre", 10, 11), combat.TeamEnemies)
	c.GrantTempHP(4)
	c.GrantTempHP(2)
	require.Equal(t, 4, c.TempHP)

	out := c.ApplyDamage(6, "bludgeoning")
	assert.Equal(t, 4, out.Absorbed)
	assert.Equal(t, 2, out.Applied)
	assert.Equal(t, 6, out.Dealt())
	assert.Equal(t, 0, c.TempHP)
	assert.Equal(t, 8, c.HP)
}

func TestApplyDamage_DefeatedOnTransitionOnly(t *testing.T) {
	c := newCombatant(t, "e1", dummyDef("goblin", 7, 13), combat.TeamEnemies)
	out := c.ApplyDamage(20, "piercing")
	assert.True(t, out.Defeated)
	assert.Equal(t, 7, out.Applied)
	assert.Equal(t, 0, c.HP)

	again := c.ApplyDamage(5, "piercing")
	assert.False(t, again.Defeated)
	assert.Equal(t, 0, again.Applied)
	assert.False(t, c.IsAlive())
}

func TestGrantResistance_IsCounted(t *testing.T) {
	c := newCombatant(t, "p1", fighterDef(5), combat.TeamParty)
	c.GrantResistance("slashing")
	c.GrantResistance("Slashing")
	c.RevokeResistance("slashing")
	assert.True(t, c.Resists("slashing"))
	c.RevokeResistance("slashing")
	assert.False(t, c.Resists("slashing"))
	c.RevokeResistance("slashing")
	assert.False(t, c.Resists("slashing"))
}

func TestWithHP_Clamps(t *testing.T) {
	c := newCombatant(t, "p1", fighterDef(5), combat.TeamParty, combat.WithHP(500))
	assert.Equal(t, 44, c.HP)
	down := newCombatant(t, "p2", fighterDef(5), combat.TeamParty, combat.WithHP(-3))
	assert.Equal(t, 0, down.HP)
	assert.False(t, down.CanAct())
}

func TestNewCombatant_Rejects(t *testing.T) {
	_, err := combat.NewCombatant("", fighterDef(5), combat.TeamParty)
	assert.Error(t, err)
	_, err = combat.NewCombatant("p1", nil, combat.TeamParty)
	assert.Error(t, err)
}

func TestPropertyApplyDamage_HPMonotonicAndFloored(t *testing.T) {
	rapid.Check(t, func(rt *rapid.T) {
		maxHP := rapid.IntRange(1, 200).Draw(rt, "maxHP")
		temp := rapid.IntRange(0, 30).Draw(rt, "temp")
		def := dummyDef("target", maxHP, 10)
		def.Resistances = []string{"cold"}
		def.Vulnerabilities = []string{"thunder"}
		def.Immunities = []string{"poison"}
		c, err := combat.NewCombatant("t", def, combat.TeamEnemies)
		if err != nil {
			rt.Fatalf("NewCombatant: %v", err)
		}
		c.GrantTempHP(temp)

		hits := rapid.SliceOfN(rapid.IntRange(-5, 60), 1, 20).Draw(rt, "hits")
		types := []string{"slashing", "cold", "thunder", "poison"}
		defeats := 0
		for i, amount := range hits {
			before := c.HP
			out := c.ApplyDamage(amount, types[i%len(types)])
			if c.HP > before {
				rt.Fatalf("HP increased from %d to %d", before, c.HP)
			}
			if c.HP < 0 || c.HP > maxHP {
				rt.Fatalf("HP %d out of [0, %d]", c.HP, maxHP)
			}
			if out.Applied != before-c.HP {
				rt.Fatalf("Applied %d != HP delta %d", out.Applied, before-c.HP)
			}
			if out.Defeated {
				defeats++
				if before == 0 || c.HP != 0 {
					rt.Fatalf("Defeated reported for %d -> %d", before, c.HP)
				}
			}
		}
		if defeats > 1 {
			rt.Fatalf("Defeated reported %d times", defeats)
		}
		if c.HP == 0 && defeats != 1 {
			rt.Fatalf("HP reached 0 without exactly one defeat, got %d", defeats)
		}
	})
}

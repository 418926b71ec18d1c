package combat_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/cory-johannsen/dpr/internal/game/combat"
	"github.com/cory-johannsen/dpr/internal/game/creature"
	"github.com/cory-johannsen/dpr/internal/game/resource"
)

func intPtr(v int) *int { return &v }

// fighterDef returns a level 5 fighter with one longsword attack at +toHit
// for 1d8+3 slashing.
func fighterDef(toHit int) *creature.Definition {
	return &creature.Definition{
		ID:          "fighter",
		Name:        "Fighter",
		Kind:        creature.KindCharacter,
		Level:       5,
		Proficiency: 3,
		Stats:       creature.Stats{Str: 16, Dex: 10, Con: 14, Int: 10, Wis: 10, Cha: 10},
		MaxHP:       44,
		AC:          18,
		Actions: []creature.ActionDef{{
			ID:     "longsword",
			Kind:   creature.ActionAttack,
			ToHit:  intPtr(toHit),
			Range:  creature.RangeMelee,
			Damage: []creature.DamageSpec{{Dice: "1d8", Flat: 3, Type: "slashing"}},
		}},
	}
}

// dummyDef returns a monster with no actions.
func dummyDef(id string, hp, ac int) *creature.Definition {
	return &creature.Definition{
		ID:    id,
		Name:  id,
		Kind:  creature.KindMonster,
		Level: 1,
		Stats: creature.Stats{Str: 10, Dex: 10, Con: 10, Int: 10, Wis: 10, Cha: 10},
		MaxHP: hp,
		AC:    ac,
	}
}

func newCombatant(t *testing.T, id string, def *creature.Definition, team combat.Team, opts ...combat.Option) *combat.Combatant {
	t.Helper()
	c, err := combat.NewCombatant(id, def, team, opts...)
	require.NoError(t, err)
	return c
}

func resourceDef(name string, limit int) resource.Def {
	return resource.Def{Name: name, Max: limit, Trigger: resource.LongRest, Recovery: resource.Full}
}

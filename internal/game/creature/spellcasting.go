package creature

import (
	"fmt"
	"slices"
	"strconv"

	"github.com/cory-johannsen/dpr/internal/game/resource"
)

// Progression selects the spell slot table of a caster.
type Progression string

const (
	ProgressionFull  Progression = "full"
	ProgressionHalf  Progression = "half"
	ProgressionThird Progression = "third"
	ProgressionPact  Progression = "pact"
)

// PactSlot is the resource holding pact magic slots. Pact slots refill on a
// short rest and are all of the same level.
const PactSlot = "pact_slot"

// MaxSpellLevel is the highest spell slot level.
const MaxSpellLevel = 9

// SlotResource returns the resource name of regular slots of the given level.
func SlotResource(level int) string {
	return "spell_slot_" + strconv.Itoa(level)
}

// Spellcasting describes how a creature casts the spells in Definition.Spells.
type Spellcasting struct {
	Ability     Stat        `yaml:"ability"`
	Progression Progression `yaml:"progression"`
	// AttackBonus is added to spell attack rolls.
	AttackBonus int `yaml:"attack_bonus"`
	// AddModifier lists damage spells that add the casting modifier to each hit.
	AddModifier []string `yaml:"add_modifier"`
}

// fullCasterSlots[l][s-1] is the number of level s slots of a full caster of
// caster level l.
var fullCasterSlots = [21][MaxSpellLevel]int{
	{},
	{2},
	{3},
	{4, 2},
	{4, 3},
	{4, 3, 2},
	{4, 3, 3},
	{4, 3, 3, 1},
	{4, 3, 3, 2},
	{4, 3, 3, 3, 1},
	{4, 3, 3, 3, 2},
	{4, 3, 3, 3, 2, 1},
	{4, 3, 3, 3, 2, 1},
	{4, 3, 3, 3, 2, 1, 1},
	{4, 3, 3, 3, 2, 1, 1},
	{4, 3, 3, 3, 2, 1, 1, 1},
	{4, 3, 3, 3, 2, 1, 1, 1},
	{4, 3, 3, 3, 2, 1, 1, 1, 1},
	{4, 3, 3, 3, 3, 1, 1, 1, 1},
	{4, 3, 3, 3, 3, 2, 1, 1, 1},
	{4, 3, 3, 3, 3, 2, 2, 1, 1},
}

// CasterLevel returns the slot table row for a class level: the level itself
// for full casters, rounded-up halves and thirds for half and third casters.
// Pact casters have no regular slots.
func (s *Spellcasting) CasterLevel(level int) int {
	level = min(max(level, 0), 20)
	switch s.Progression {
	case ProgressionFull:
		return level
	case ProgressionHalf:
		return (level + 1) / 2
	case ProgressionThird:
		return (level + 2) / 3
	default:
		return 0
	}
}

// SlotCounts returns the regular slots per slot level at class level.
func (s *Spellcasting) SlotCounts(level int) [MaxSpellLevel]int {
	return fullCasterSlots[s.CasterLevel(level)]
}

// PactSlots returns the number and level of pact slots at class level; both
// are zero for other progressions.
func (s *Spellcasting) PactSlots(level int) (count, slotLevel int) {
	if s.Progression != ProgressionPact || level < 1 {
		return 0, 0
	}
	switch {
	case level >= 9:
		slotLevel = 5
	case level >= 7:
		slotLevel = 4
	case level >= 5:
		slotLevel = 3
	case level >= 3:
		slotLevel = 2
	default:
		slotLevel = 1
	}
	switch {
	case level >= 17:
		count = 4
	case level >= 11:
		count = 3
	case level >= 2:
		count = 2
	default:
		count = 1
	}
	return count, slotLevel
}

// AddsModifier reports whether spell adds the casting modifier to its damage.
func (s *Spellcasting) AddsModifier(spell string) bool {
	return slices.Contains(s.AddModifier, spell)
}

// slotDefs returns the resources the progression grants at level.
func (s *Spellcasting) slotDefs(level int) []resource.Def {
	var out []resource.Def
	for i, n := range s.SlotCounts(level) {
		if n > 0 {
			out = append(out, resource.Def{Name: SlotResource(i + 1), Max: n, Trigger: resource.LongRest})
		}
	}
	if n, _ := s.PactSlots(level); n > 0 {
		out = append(out, resource.Def{Name: PactSlot, Max: n, Trigger: resource.ShortRest})
	}
	return out
}

func (s *Spellcasting) validate() error {
	if !knownStat(s.Ability) {
		return fmt.Errorf("spellcasting: unknown ability %q", s.Ability)
	}
	switch s.Progression {
	case ProgressionFull, ProgressionHalf, ProgressionThird, ProgressionPact:
		return nil
	default:
		return fmt.Errorf("spellcasting: unknown progression %q", s.Progression)
	}
}

// SpellAttack returns the spell attack bonus, proficiency plus casting
// modifier plus any flat and item bonuses. It is zero for non-casters.
func (d *Definition) SpellAttack() int {
	if d.Spellcasting == nil {
		return 0
	}
	bonus := d.Proficiency + d.Mod(d.Spellcasting.Ability) + d.Spellcasting.AttackBonus
	for _, it := range d.Equipment {
		bonus += it.SpellAttack
	}
	return bonus
}

// SpellDC returns 8 + proficiency + casting modifier, or 0 for non-casters.
func (d *Definition) SpellDC() int {
	if d.Spellcasting == nil {
		return 0
	}
	return 8 + d.Proficiency + d.Mod(d.Spellcasting.Ability)
}

// CastingMod returns the casting ability modifier, or 0 for non-casters.
func (d *Definition) CastingMod() int {
	if d.Spellcasting == nil {
		return 0
	}
	return d.Mod(d.Spellcasting.Ability)
}

// PactSlotLevel returns the level of the definition's pact slots, or 0.
func (d *Definition) PactSlotLevel() int {
	if d.Spellcasting == nil {
		return 0
	}
	_, lvl := d.Spellcasting.PactSlots(d.Level)
	return lvl
}

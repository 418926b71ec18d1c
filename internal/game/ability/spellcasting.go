package ability

import (
	"errors"
	"fmt"
	"maps"
	"slices"

	"github.com/cory-johannsen/dpr/internal/game/combat"
	"github.com/cory-johannsen/dpr/internal/game/creature"
	"github.com/cory-johannsen/dpr/internal/game/dice"
	"github.com/cory-johannsen/dpr/internal/game/event"
)

const SpellcastingID = "spellcasting"

// ErrUnknownSpell is returned when a spell list names a spell with no effect.
var ErrUnknownSpell = errors.New("ability: unknown spell")

// SlotPolicy picks which available slot a leveled spell spends.
type SlotPolicy string

const (
	SlotLowest  SlotPolicy = "lowest"
	SlotHighest SlotPolicy = "highest"
)

// Spellcasting casts the owner's spells in place of its action or bonus
// action. Spells are tried in list order and the first one worth casting
// with a slot left is cast. A concentration spell only replaces one listed
// after it.
type Spellcasting struct {
	Spells []string
	// HealBelow is the hit point percentage under which a teammate is healed.
	HealBelow int

	book    []*spell
	owner   *combat.Combatant
	enc     *combat.Encounter
	marked  *combat.Combatant
	blessed map[*combat.Combatant]bool
}

func newSpellcasting(p Params) (combat.Ability, error) {
	s := &Spellcasting{}
	var err error
	if s.Spells, err = p.Strings("spells", nil); err != nil {
		return nil, err
	}
	if s.HealBelow, err = p.Int("heal_below", 50); err != nil {
		return nil, err
	}
	if s.HealBelow < 1 || s.HealBelow > 100 {
		return nil, fmt.Errorf("heal_below %d out of range [1, 100]", s.HealBelow)
	}
	if len(s.Spells) == 0 {
		return nil, errors.New("no spells listed")
	}
	var errs []error
	for _, id := range s.Spells {
		sp, ok := spellBook[id]
		if !ok {
			errs = append(errs, fmt.Errorf("%w %q", ErrUnknownSpell, id))
			continue
		}
		s.book = append(s.book, sp)
	}
	if err := errors.Join(errs...); err != nil {
		return nil, err
	}
	return s, nil
}

// withSpellcasting adds the spellcasting feature for a definition's spell
// list, or fills the list into an explicit spellcasting feature.
func withSpellcasting(features []creature.FeatureSpec, spells []string) []creature.FeatureSpec {
	out := slices.Clone(features)
	for i, f := range out {
		if f.ID != SpellcastingID {
			continue
		}
		if _, ok := f.Params["spells"]; !ok {
			params := maps.Clone(f.Params)
			if params == nil {
				params = make(map[string]any, 1)
			}
			params["spells"] = spells
			out[i].Params = params
		}
		return out
	}
	return append(out, creature.FeatureSpec{ID: SpellcastingID, Params: map[string]any{"spells": spells}})
}

func (*Spellcasting) ID() string { return SpellcastingID }

func (s *Spellcasting) Attach(owner *combat.Combatant, enc *combat.Encounter) error {
	if owner.Def.Spellcasting == nil {
		return fmt.Errorf("%s has no spellcasting block", owner.ID)
	}
	s.owner, s.enc = owner, enc
	s.blessed = make(map[*combat.Combatant]bool)
	bus := enc.Bus()
	if _, err := event.On(bus, event.Action, s.choose); err != nil {
		return err
	}
	if _, err := event.On(bus, event.AttackResult, s.markDamage); err != nil {
		return err
	}
	if _, err := event.On(bus, event.AttackRoll, s.blessAttack); err != nil {
		return err
	}
	_, err := event.On(bus, event.SavingThrow, s.blessSave)
	return err
}

func (s *Spellcasting) choose(p *combat.ActionChoice) error {
	if p.Actor != s.owner || p.Handled {
		return nil
	}
	for i, sp := range s.book {
		if sp.bonus != p.Bonus {
			continue
		}
		if sp.mark && s.owner.Concentration() == sp.id {
			if s.marked != nil && s.marked.IsAlive() {
				continue
			}
			// Moving the mark takes the action but no slot.
			if s.moveMark(sp.id) {
				p.Handled = true
				return nil
			}
			continue
		}
		if sp.concentration && !s.mayReplace(i) {
			continue
		}
		if sp.want != nil && !sp.want(s) {
			continue
		}
		slot, res := 0, ""
		if sp.level > 0 {
			if slot, res = s.slotFor(sp.level, sp.policy); slot == 0 {
				continue
			}
			ok, err := s.enc.Spend(s.owner, res, 1)
			if err != nil {
				return err
			}
			if !ok {
				continue
			}
		}
		if err := s.cast(sp, slot, res, p.Bonus); err != nil {
			return fmt.Errorf("%s: %w", sp.id, err)
		}
		p.Handled = true
		return nil
	}
	return nil
}

// mayReplace reports whether the spell at index i may take over the owner's
// concentration.
func (s *Spellcasting) mayReplace(i int) bool {
	current := s.owner.Concentration()
	if current == "" {
		return true
	}
	j := slices.Index(s.Spells, current)
	return j < 0 || i < j
}

func (s *Spellcasting) cast(sp *spell, slot int, res string, bonus bool) error {
	s.enc.Logf(combat.LogSpell, s.owner, nil, slot, "casts %s", sp.id)
	if err := s.enc.Bus().Publish(&combat.SpellCast{
		Encounter: s.enc, Caster: s.owner, Spell: sp.id, Level: sp.level, SlotLevel: slot, Resource: res, Bonus: bonus,
	}); err != nil {
		return err
	}
	if sp.concentration {
		s.enc.Concentrate(s.owner, sp.id, s.endConcentration)
	}
	return sp.cast(s, slot)
}

func (s *Spellcasting) endConcentration() {
	s.marked = nil
	clear(s.blessed)
}

// slotFor returns the slot a spell of the given level spends under policy
// and the resource holding it, or 0 when none is left. A pact slot wins a
// tie with a regular slot of the same level.
func (s *Spellcasting) slotFor(level int, policy SlotPolicy) (int, string) {
	best, res := 0, ""
	consider := func(slot int, name string, pact bool) {
		switch {
		case best == 0,
			policy == SlotHighest && slot > best,
			policy != SlotHighest && slot < best,
			pact && slot == best:
			best, res = slot, name
		}
	}
	for lvl := level; lvl <= creature.MaxSpellLevel; lvl++ {
		if s.owner.Resources.Current(creature.SlotResource(lvl)) > 0 {
			consider(lvl, creature.SlotResource(lvl), false)
		}
	}
	if pact := s.owner.Def.PactSlotLevel(); pact >= level && s.owner.Resources.Current(creature.PactSlot) > 0 {
		consider(pact, creature.PactSlot, true)
	}
	return best, res
}

// cantripDice returns the damage dice of a cantrip: one, plus one at
// levels 5, 11, and 17.
func (s *Spellcasting) cantripDice() int {
	switch lvl := s.owner.Def.Level; {
	case lvl >= 17:
		return 4
	case lvl >= 11:
		return 3
	case lvl >= 5:
		return 2
	default:
		return 1
	}
}

// spellAttack builds a ranged spell attack for count d sides.
func (s *Spellcasting) spellAttack(id string, count, sides int, damageType string) *combat.Action {
	flat := 0
	if s.owner.Def.Spellcasting.AddsModifier(id) {
		flat = s.owner.Def.CastingMod()
	}
	return &combat.Action{
		Source:        id,
		Kind:          creature.ActionAttack,
		ToHit:         s.owner.Def.SpellAttack(),
		Ranged:        true,
		CritThreshold: dice.DefaultCritThreshold,
		Damage:        []combat.DamageComponent{{Source: id, Count: count, Sides: sides, Flat: flat, Type: damageType}},
		Tags:          map[string]bool{combat.TagSpell: true},
	}
}

// target returns the enemy the owner's strategy picks, or nil.
func (s *Spellcasting) target() *combat.Combatant {
	if t := s.enc.PickTargets(s.owner, 1); len(t) > 0 {
		return t[0]
	}
	return nil
}

// team returns the owner followed by its living allies.
func (s *Spellcasting) team() []*combat.Combatant {
	return append([]*combat.Combatant{s.owner}, s.enc.Allies(s.owner)...)
}

// woundedAlly returns the living teammate with the lowest hit point fraction
// under HealBelow percent, or nil.
func (s *Spellcasting) woundedAlly() *combat.Combatant {
	var best *combat.Combatant
	for _, c := range s.team() {
		if !c.IsAlive() || c.HP*100 >= c.MaxHP()*s.HealBelow {
			continue
		}
		if best == nil || c.HP*best.MaxHP() < best.HP*c.MaxHP() {
			best = c
		}
	}
	return best
}

func (s *Spellcasting) moveMark(spell string) bool {
	t := s.target()
	if t == nil {
		return false
	}
	s.marked = t
	s.enc.Logf(combat.LogSpell, s.owner, t, 0, "%s moved", spell)
	return true
}

func (s *Spellcasting) markDamage(p *combat.AttackResult) error {
	if p.Attacker != s.owner || !p.Hit || s.marked == nil || p.Target != s.marked {
		return nil
	}
	switch s.owner.Concentration() {
	case huntersMarkID:
		if !p.Action.IsWeapon() {
			return nil
		}
		p.Damage = append(p.Damage, combat.DamageComponent{
			Source: huntersMarkID, Count: 1, Sides: 6, Type: primaryType(p.Action),
		})
	case hexID:
		p.Damage = append(p.Damage, combat.DamageComponent{
			Source: hexID, Count: 1, Sides: 6, Type: "necrotic",
		})
	}
	return nil
}

func (s *Spellcasting) blessAttack(p *combat.AttackRoll) error {
	if s.blessed[p.Attacker] && s.owner.Concentration() == blessID {
		p.Situational += s.enc.Roller().RollDie(4)
	}
	return nil
}

func (s *Spellcasting) blessSave(p *combat.SavingThrow) error {
	if s.blessed[p.Target] && s.owner.Concentration() == blessID {
		p.Bonus += s.enc.Roller().RollDie(4)
	}
	return nil
}

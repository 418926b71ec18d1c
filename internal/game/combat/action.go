package combat

import (
	"fmt"
	"maps"

	"github.com/cory-johannsen/dpr/internal/game/creature"
	"github.com/cory-johannsen/dpr/internal/game/dice"
)

// TagSpell marks actions built by a spell rather than a weapon.
const TagSpell = "spell"

// DamageComponent is one typed slice of an attack's damage.
type DamageComponent struct {
	Source string
	Count  int // dice before any critical multiplier
	Sides  int
	Flat   int
	Type   string
	// Rolls holds the dice actually rolled; filled by the resolver.
	Rolls []int
	// OnMiss components are applied only when the attack misses.
	OnMiss bool
	// NoCrit components never multiply their dice on a critical.
	NoCrit bool
	// ExtraCritDice are added to the dice count on a critical.
	ExtraCritDice int
}

// Total returns the sum of rolled dice and the flat amount.
func (d *DamageComponent) Total() int {
	total := d.Flat
	for _, r := range d.Rolls {
		total += r
	}
	return total
}

// Average returns the expected total of the component before any roll.
func (d *DamageComponent) Average() float64 {
	return float64(d.Count)*float64(d.Sides+1)/2 + float64(d.Flat)
}

// Action is the per-attempt descriptor built from an ActionDef. Each attack
// roll resolves a copy, so tags set during one attack in a multiattack do not
// leak into the next.
type Action struct {
	Def           *creature.ActionDef
	Source        string
	Kind          creature.ActionKind
	ToHit         int
	DC            int
	SaveStat      creature.Stat
	OnSave        string
	Ranged        bool
	CritThreshold int
	Damage        []DamageComponent
	Condition     *creature.ConditionEffect
	Tags          map[string]bool
}

// NewAction builds the descriptor for actor using def.
//
// Precondition: def has passed creature validation.
func NewAction(actor *Combatant, def *creature.ActionDef) (*Action, error) {
	a := &Action{
		Def:       def,
		Source:    def.ID,
		Kind:      def.Kind,
		SaveStat:  def.SaveStat,
		OnSave:    def.OnSave,
		Ranged:    def.IsRanged(),
		Condition: def.Condition,
		Tags:      make(map[string]bool, len(def.Tags)),
	}
	switch def.Kind {
	case creature.ActionSave:
		a.DC = actor.Def.SaveDC(def)
	default:
		a.ToHit = actor.Def.ToHit(def)
	}
	a.CritThreshold = def.CritThreshold
	if a.CritThreshold == 0 {
		a.CritThreshold = actor.Def.CritThreshold
	}
	if a.CritThreshold == 0 {
		a.CritThreshold = dice.DefaultCritThreshold
	}
	mod := actor.Def.Mod(creature.ActionStat(def))
	itemBonus := actor.Def.DamageBonus(def)
	for _, spec := range def.Damage {
		comp := DamageComponent{Source: def.ID, Flat: spec.Flat, Type: spec.Type}
		if spec.Dice != "" {
			expr, err := dice.Parse(spec.Dice)
			if err != nil {
				return nil, fmt.Errorf("combat.NewAction %q: %w", def.ID, err)
			}
			comp.Count, comp.Sides = expr.Count, expr.Sides
			comp.Flat += expr.Modifier
		}
		if spec.AddModifier {
			comp.Flat += mod
		}
		if len(a.Damage) == 0 {
			comp.Flat += itemBonus
		}
		a.Damage = append(a.Damage, comp)
	}
	for _, t := range def.Tags {
		a.Tags[t] = true
	}
	return a, nil
}

// HasTag reports whether tag is set on this attempt.
func (a *Action) HasTag(tag string) bool { return a.Tags[tag] }

// Tag sets tag on this attempt.
func (a *Action) Tag(tag string) { a.Tags[tag] = true }

// IsWeapon reports whether the action is a weapon attack roll.
func (a *Action) IsWeapon() bool { return a.Kind != creature.ActionSave && !a.Tags[TagSpell] }

// attempt returns an independent copy for one attack roll or save.
func (a *Action) attempt() *Action {
	c := *a
	c.Tags = maps.Clone(a.Tags)
	if c.Tags == nil {
		c.Tags = make(map[string]bool)
	}
	c.Damage = cloneComponents(a.Damage)
	return &c
}

func cloneComponents(in []DamageComponent) []DamageComponent {
	out := make([]DamageComponent, len(in))
	copy(out, in)
	for i := range out {
		out[i].Rolls = nil
	}
	return out
}

func (a *Action) attacks() int {
	if a.Def == nil {
		return 1
	}
	return a.Def.Attacks()
}

func (a *Action) targetCount() int {
	if a.Def == nil {
		return 1
	}
	return a.Def.TargetCount()
}

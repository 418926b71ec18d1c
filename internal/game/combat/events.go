package combat

import (
	"github.com/cory-johannsen/dpr/internal/game/creature"
	"github.com/cory-johannsen/dpr/internal/game/dice"
	"github.com/cory-johannsen/dpr/internal/game/event"
)

// RoundMarker is published at round_start and round_end.
type RoundMarker struct {
	Name      event.Name
	Encounter *Encounter
	Round     int
}

func (p *RoundMarker) EventName() event.Name { return p.Name }

// Turn is published at each stage of a combatant's turn. The same value is
// reused for every stage of one turn, so changes made at begin_turn (an extra
// action, say) are visible when actions are taken.
type Turn struct {
	Name         event.Name
	Encounter    *Encounter
	Actor        *Combatant
	Round        int
	Actions      int
	BonusActions int
}

func (p *Turn) EventName() event.Name { return p.Name }

// ActionChoice is published before each action is executed. Listeners may
// replace Action or set Handled after resolving their own action.
type ActionChoice struct {
	Encounter *Encounter
	Actor     *Combatant
	Round     int
	Bonus     bool
	Action    *Action
	Handled   bool
}

func (*ActionChoice) EventName() event.Name { return event.Action }

// AttackRoll is published before the attack is compared to the target's
// defense. Listeners may add to Situational, flip Advantage or Disadvantage,
// change CritThreshold, or replace the drawn Roll.
type AttackRoll struct {
	Encounter     *Encounter
	Attacker      *Combatant
	Target        *Combatant
	Action        *Action
	Roll          dice.D20
	ToHit         int
	Situational   int
	Advantage     bool
	Disadvantage  bool
	CritThreshold int
	Defense       int
}

func (*AttackRoll) EventName() event.Name { return event.AttackRoll }

// Natural returns the d20 result kept under the current advantage flags.
func (p *AttackRoll) Natural() int {
	policy := dice.CancelBoth
	if p.Encounter != nil {
		policy = p.Encounter.cfg.CancelPolicy
	}
	return p.Roll.Kept(dice.ResolveMode(p.Advantage, p.Disadvantage, policy))
}

// Hits reports whether the roll would hit if resolved now.
func (p *AttackRoll) Hits() bool {
	n := p.Natural()
	switch {
	case n == 1:
		return false
	case dice.IsCritical(n, p.CritThreshold):
		return true
	default:
		return n+p.ToHit+p.Situational >= p.Defense
	}
}

// AttackResult is published after hit and critical are decided. Listeners may
// append to Damage; components marked OnMiss apply only when Hit is false.
type AttackResult struct {
	Encounter      *Encounter
	Attacker       *Combatant
	Target         *Combatant
	Action         *Action
	Mode           dice.Mode
	Natural        int
	Total          int
	Defense        int
	Hit            bool
	Critical       bool
	CritMultiplier int
	Damage         []DamageComponent
}

func (*AttackResult) EventName() event.Name { return event.AttackResult }

// MissBy returns how far the total fell short of the defense, or 0 on a hit.
func (p *AttackResult) MissBy() int {
	if p.Hit {
		return 0
	}
	return max(p.Defense-p.Total, 0)
}

// Bundle is the summed damage of one type.
type Bundle struct {
	Type   string
	Amount int
}

// DamageRoll is published after damage dice are rolled and before damage is
// applied. Target is nil for area saves, where one roll is shared by every target.
type DamageRoll struct {
	Encounter  *Encounter
	Attacker   *Combatant
	Target     *Combatant
	Action     *Action
	Critical   bool
	Save       bool
	Components []DamageComponent
	// Multiplier scales every bundle; the result is floored. Default 1.
	Multiplier float64
	roller     *dice.Roller
}

func (*DamageRoll) EventName() event.Name { return event.DamageRoll }

// AddFlat appends a flat component of the given type.
func (p *DamageRoll) AddFlat(source, damageType string, amount int) {
	p.Components = append(p.Components, DamageComponent{Source: source, Flat: amount, Type: damageType})
}

// AddDice rolls and appends a dice component of the given type.
func (p *DamageRoll) AddDice(source, damageType string, count, sides int) {
	p.Components = append(p.Components, DamageComponent{
		Source: source, Count: count, Sides: sides, Type: damageType,
		Rolls: p.roller.RollDice(count, sides),
	})
}

// Reroll replaces die j of component i and returns the new value.
func (p *DamageRoll) Reroll(i, j int) int {
	c := &p.Components[i]
	c.Rolls[j] = p.roller.RollDie(c.Sides)
	return c.Rolls[j]
}

// Bundles sums components by damage type in first-seen order and applies
// the multiplier.
//
// Postcondition: every Amount is >= 0.
func (p *DamageRoll) Bundles() []Bundle {
	var out []Bundle
	index := make(map[string]int)
	for i := range p.Components {
		c := &p.Components[i]
		key := normalizeType(c.Type)
		pos, ok := index[key]
		if !ok {
			pos = len(out)
			index[key] = pos
			out = append(out, Bundle{Type: c.Type})
		}
		out[pos].Amount += c.Total()
	}
	mult := p.Multiplier
	if mult == 0 {
		mult = 1
	}
	for i := range out {
		amount := max(out[i].Amount, 0)
		if mult != 1 {
			amount = int(float64(amount) * mult)
		}
		out[i].Amount = amount
	}
	return out
}

// SavingThrow is published before a save is rolled. Listeners may change the
// DC or Bonus, flip Advantage or Disadvantage, or force AutoFail.
type SavingThrow struct {
	Encounter    *Encounter
	Source       *Combatant
	Target       *Combatant
	Action       *Action
	Stat         creature.Stat
	DC           int
	Bonus        int
	Advantage    bool
	Disadvantage bool
	AutoFail     bool
}

func (*SavingThrow) EventName() event.Name { return event.SavingThrow }

// SaveResult is published once the save outcome is known. Listeners may
// flip Success (a reroll feature, say).
type SaveResult struct {
	Encounter *Encounter
	Source    *Combatant
	Target    *Combatant
	Action    *Action
	Natural   int
	Total     int
	DC        int
	Success   bool
}

func (*SaveResult) EventName() event.Name { return event.SaveResult }

// Defeat is published when a combatant drops to zero hit points.
type Defeat struct {
	Encounter *Encounter
	Attacker  *Combatant // nil when no creature caused it
	Target    *Combatant
	Round     int
}

func (*Defeat) EventName() event.Name { return event.Defeated }

// SpellCast is published after a spell's slot is spent and before its
// effect resolves.
type SpellCast struct {
	Encounter *Encounter
	Caster    *Combatant
	Spell     string
	Level     int // spell level; 0 for cantrips
	SlotLevel int // slot spent; 0 for cantrips
	Resource  string
	Bonus     bool
}

func (*SpellCast) EventName() event.Name { return event.SpellCast }

// ResourceSpent is published after a successful spend through the encounter.
type ResourceSpent struct {
	Encounter *Encounter
	Actor     *Combatant
	Resource  string
	Amount    int
	Remaining int
}

func (*ResourceSpent) EventName() event.Name { return event.ResourceSpent }

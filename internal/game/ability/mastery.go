package ability

import (
	"github.com/cory-johannsen/dpr/internal/game/combat"
	"github.com/cory-johannsen/dpr/internal/game/creature"
	"github.com/cory-johannsen/dpr/internal/game/event"
)

// Weapon masteries trigger on actions carrying the matching tag.
const (
	VexID    = "vex"
	GrazeID  = "graze"
	ToppleID = "topple"
)

// primaryType returns the damage type of the action's first component.
func primaryType(a *combat.Action) string {
	if len(a.Damage) == 0 {
		return ""
	}
	return a.Damage[0].Type
}

// actionStat returns the ability an action is made with.
func actionStat(a *combat.Action) creature.Stat {
	if a.Def == nil {
		return creature.Str
	}
	return creature.ActionStat(a.Def)
}

// Vex gives advantage on the owner's next attack against a creature hit
// with a vex weapon.
type Vex struct {
	target *combat.Combatant
}

func newVex(Params) (combat.Ability, error) { return &Vex{}, nil }

func (*Vex) ID() string { return VexID }

func (a *Vex) Attach(owner *combat.Combatant, enc *combat.Encounter) error {
	if _, err := event.On(enc.Bus(), event.AttackRoll, func(p *combat.AttackRoll) error {
		if p.Attacker == owner && a.target != nil && p.Target == a.target {
			p.Advantage = true
			a.target = nil
		}
		return nil
	}); err != nil {
		return err
	}
	_, err := event.On(enc.Bus(), event.AttackResult, func(p *combat.AttackResult) error {
		if p.Attacker == owner && p.Hit && p.Action.HasTag(VexID) {
			a.target = p.Target
		}
		return nil
	})
	return err
}

// Graze deals the attack's ability modifier as damage when a graze weapon misses.
type Graze struct{}

func newGraze(Params) (combat.Ability, error) { return Graze{}, nil }

func (Graze) ID() string { return GrazeID }

func (Graze) Attach(owner *combat.Combatant, enc *combat.Encounter) error {
	_, err := event.On(enc.Bus(), event.AttackResult, func(p *combat.AttackResult) error {
		if p.Attacker != owner || p.Hit || !p.Action.HasTag(GrazeID) {
			return nil
		}
		mod := owner.Def.Mod(actionStat(p.Action))
		if mod <= 0 {
			return nil
		}
		p.Damage = append(p.Damage, combat.DamageComponent{
			Source: GrazeID, Flat: mod, Type: primaryType(p.Action), OnMiss: true,
		})
		return nil
	})
	return err
}

// Topple forces a Constitution save against 8 + proficiency + modifier when
// a topple weapon hits; on a failure the target is knocked prone.
type Topple struct {
	Save creature.Stat
}

func newTopple(p Params) (combat.Ability, error) {
	s, err := p.String("save", string(creature.Con))
	if err != nil {
		return nil, err
	}
	return &Topple{Save: creature.Stat(s)}, nil
}

func (*Topple) ID() string { return ToppleID }

func (a *Topple) Attach(owner *combat.Combatant, enc *combat.Encounter) error {
	_, err := event.On(enc.Bus(), event.AttackResult, func(p *combat.AttackResult) error {
		if p.Attacker != owner || !p.Hit || !p.Action.HasTag(ToppleID) || !p.Target.IsAlive() {
			return nil
		}
		if p.Target.Conditions.Has("prone") {
			return nil
		}
		dc := 8 + owner.Def.Proficiency + owner.Def.Mod(actionStat(p.Action))
		saved, err := enc.RollSave(owner, p.Target, p.Action, a.Save, dc)
		if err != nil || saved {
			return err
		}
		return enc.ApplyCondition(p.Target, "prone", 0, ToppleID)
	})
	return err
}

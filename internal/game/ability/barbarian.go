package ability

import (
	"fmt"

	"github.com/cory-johannsen/dpr/internal/game/combat"
	"github.com/cory-johannsen/dpr/internal/game/creature"
	"github.com/cory-johannsen/dpr/internal/game/event"
)

const (
	RageID           = "rage"
	RecklessAttackID = "reckless_attack"
	BrutalCriticalID = "brutal_critical"
)

const ragingFlag = "raging"

// Rage enters a rage with the owner's first bonus action while a use of
// Resource remains. While raging, Strength melee hits deal Bonus extra damage
// and the owner resists Resist damage types for the rest of the encounter.
type Rage struct {
	Bonus    int
	Resource string
	Resist   []string
}

func newRage(p Params) (combat.Ability, error) {
	a := &Rage{}
	var err error
	if a.Bonus, err = p.Int("bonus", 2); err != nil {
		return nil, err
	}
	if a.Resource, err = p.String("resource", RageID); err != nil {
		return nil, err
	}
	if a.Resist, err = p.Strings("resist", []string{"bludgeoning", "piercing", "slashing"}); err != nil {
		return nil, err
	}
	if a.Bonus < 0 {
		return nil, fmt.Errorf("bonus must be >= 0, got %d", a.Bonus)
	}
	return a, nil
}

func (*Rage) ID() string { return RageID }

func (a *Rage) Attach(owner *combat.Combatant, enc *combat.Encounter) error {
	if _, err := event.On(enc.Bus(), event.Action, func(p *combat.ActionChoice) error {
		if p.Actor != owner || !p.Bonus || p.Handled || owner.Flag(ragingFlag) > 0 {
			return nil
		}
		ok, err := enc.Spend(owner, a.Resource, 1)
		if err != nil || !ok {
			return err
		}
		owner.SetFlag(ragingFlag, 1)
		owner.GrantResistance(a.Resist...)
		p.Handled = true
		return nil
	}); err != nil {
		return err
	}
	_, err := event.On(enc.Bus(), event.AttackResult, func(p *combat.AttackResult) error {
		if p.Attacker != owner || !p.Hit || owner.Flag(ragingFlag) == 0 {
			return nil
		}
		if p.Action.Ranged || actionStat(p.Action) != creature.Str {
			return nil
		}
		p.Damage = append(p.Damage, combat.DamageComponent{
			Source: RageID, Flat: a.Bonus, Type: primaryType(p.Action), NoCrit: true,
		})
		return nil
	})
	return err
}

// RecklessAttack gives the owner advantage on Strength melee attacks.
type RecklessAttack struct{}

func newRecklessAttack(Params) (combat.Ability, error) { return RecklessAttack{}, nil }

func (RecklessAttack) ID() string { return RecklessAttackID }

func (RecklessAttack) Attach(owner *combat.Combatant, enc *combat.Encounter) error {
	_, err := event.On(enc.Bus(), event.AttackRoll, func(p *combat.AttackRoll) error {
		if p.Attacker == owner && !p.Action.Ranged && actionStat(p.Action) == creature.Str {
			p.Advantage = true
		}
		return nil
	})
	return err
}

// BrutalCritical adds Dice extra weapon dice to the owner's critical hits.
type BrutalCritical struct {
	Dice int
}

func newBrutalCritical(p Params) (combat.Ability, error) {
	n, err := p.Int("dice", 1)
	if err != nil {
		return nil, err
	}
	if n < 1 {
		return nil, fmt.Errorf("dice must be >= 1, got %d", n)
	}
	return &BrutalCritical{Dice: n}, nil
}

func (*BrutalCritical) ID() string { return BrutalCriticalID }

func (a *BrutalCritical) Attach(owner *combat.Combatant, enc *combat.Encounter) error {
	_, err := event.On(enc.Bus(), event.AttackResult, func(p *combat.AttackResult) error {
		if p.Attacker != owner || !p.Critical || !p.Action.IsWeapon() {
			return nil
		}
		for i := range p.Damage {
			if p.Damage[i].Count > 0 {
				p.Damage[i].ExtraCritDice += a.Dice
				return nil
			}
		}
		return nil
	})
	return err
}

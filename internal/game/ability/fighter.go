package ability

import (
	"fmt"

	"github.com/cory-johannsen/dpr/internal/game/combat"
	"github.com/cory-johannsen/dpr/internal/game/event"
)

const (
	ImprovedCriticalID = "improved_critical"
	ActionSurgeID      = "action_surge"
	PrecisionAttackID  = "precision_attack"
)

// usedManeuver tags an attack that already had a maneuver applied.
const usedManeuver = "used_maneuver"

// ImprovedCritical lowers the owner's critical threshold.
type ImprovedCritical struct {
	Threshold int
}

func newImprovedCritical(p Params) (combat.Ability, error) {
	n, err := p.Int("threshold", 19)
	if err != nil {
		return nil, err
	}
	if n < 2 || n > 20 {
		return nil, fmt.Errorf("threshold %d out of range [2, 20]", n)
	}
	return &ImprovedCritical{Threshold: n}, nil
}

func (*ImprovedCritical) ID() string { return ImprovedCriticalID }

// Attach lowers the threshold on the combatant itself, so every attack_roll
// listener sees it regardless of feature order.
func (a *ImprovedCritical) Attach(owner *combat.Combatant, _ *combat.Encounter) error {
	owner.LowerCritThreshold(a.Threshold)
	return nil
}

// ActionSurge spends one use of Resource before acting to gain an action.
type ActionSurge struct {
	Resource string
}

func newActionSurge(p Params) (combat.Ability, error) {
	res, err := p.String("resource", ActionSurgeID)
	if err != nil {
		return nil, err
	}
	return &ActionSurge{Resource: res}, nil
}

func (*ActionSurge) ID() string { return ActionSurgeID }

func (a *ActionSurge) Attach(owner *combat.Combatant, enc *combat.Encounter) error {
	_, err := event.On(enc.Bus(), event.BeforeAction, func(p *combat.Turn) error {
		if p.Actor != owner {
			return nil
		}
		ok, err := enc.Spend(owner, a.Resource, 1)
		if ok {
			p.Actions++
		}
		return err
	})
	return err
}

// PrecisionAttack adds a superiority die to an attack roll that would miss
// when the natural roll is at least Low. Hits are judged against the
// threshold already lowered by ImprovedCritical; a script that changes
// crit_threshold on attack_roll is only seen if it is listed first. With Relentless, an owner out of
// dice may still add a d8 once per turn.
type PrecisionAttack struct {
	Low        int
	Resource   string
	Die        int
	Relentless bool
}

func newPrecisionAttack(p Params) (combat.Ability, error) {
	a := &PrecisionAttack{}
	var err error
	if a.Low, err = p.Int("low", 5); err != nil {
		return nil, err
	}
	if a.Resource, err = p.String("resource", "superiority_dice"); err != nil {
		return nil, err
	}
	if a.Die, err = p.Int("die", 8); err != nil {
		return nil, err
	}
	if a.Relentless, err = p.Bool("relentless", false); err != nil {
		return nil, err
	}
	switch a.Die {
	case 6, 8, 10, 12:
	default:
		return nil, fmt.Errorf("invalid superiority die d%d", a.Die)
	}
	return a, nil
}

func (*PrecisionAttack) ID() string { return PrecisionAttackID }

func (a *PrecisionAttack) Attach(owner *combat.Combatant, enc *combat.Encounter) error {
	_, err := event.On(enc.Bus(), event.AttackRoll, func(p *combat.AttackRoll) error {
		if p.Attacker != owner || p.Action.HasTag(usedManeuver) {
			return nil
		}
		if p.Hits() || p.Natural() < a.Low {
			return nil
		}
		die := 0
		ok, err := enc.Spend(owner, a.Resource, 1)
		if err != nil {
			return err
		}
		switch {
		case ok:
			die = a.Die
		case a.Relentless && !owner.TurnFlag("relentless"):
			owner.SetTurnFlag("relentless")
			die = 8
		default:
			return nil
		}
		p.Situational += enc.Roller().RollDie(die)
		p.Action.Tag(usedManeuver)
		return nil
	})
	return err
}

package ability

import (
	"fmt"

	"github.com/cory-johannsen/dpr/internal/game/combat"
	"github.com/cory-johannsen/dpr/internal/game/event"
)

const SneakAttackID = "sneak_attack"

// SneakAttack adds Dice d6 to the first hit of each of the owner's turns.
type SneakAttack struct {
	Dice int
}

func newSneakAttack(p Params) (combat.Ability, error) {
	n, err := p.Int("dice", 1)
	if err != nil {
		return nil, err
	}
	if n < 1 {
		return nil, fmt.Errorf("dice must be >= 1, got %d", n)
	}
	return &SneakAttack{Dice: n}, nil
}

func (*SneakAttack) ID() string { return SneakAttackID }

func (a *SneakAttack) Attach(owner *combat.Combatant, enc *combat.Encounter) error {
	_, err := event.On(enc.Bus(), event.AttackResult, func(p *combat.AttackResult) error {
		if p.Attacker != owner || !p.Hit || owner.TurnFlag(SneakAttackID) {
			return nil
		}
		owner.SetTurnFlag(SneakAttackID)
		p.Damage = append(p.Damage, combat.DamageComponent{
			Source: SneakAttackID, Count: a.Dice, Sides: 6, Type: primaryType(p.Action),
		})
		return nil
	})
	return err
}

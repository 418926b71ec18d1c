package ability

import (
	"github.com/cory-johannsen/dpr/internal/game/combat"
	"github.com/cory-johannsen/dpr/internal/game/event"
)

const GreatWeaponFightingID = "great_weapon_fighting"

// GreatWeaponFighting rerolls weapon damage dice showing Below or lower once,
// keeping the new roll. With Tag set, only actions carrying it qualify.
type GreatWeaponFighting struct {
	Below int
	Tag   string
}

func newGreatWeaponFighting(p Params) (combat.Ability, error) {
	a := &GreatWeaponFighting{}
	var err error
	if a.Below, err = p.Int("below", 2); err != nil {
		return nil, err
	}
	if a.Tag, err = p.String("tag", ""); err != nil {
		return nil, err
	}
	return a, nil
}

func (*GreatWeaponFighting) ID() string { return GreatWeaponFightingID }

func (a *GreatWeaponFighting) Attach(owner *combat.Combatant, enc *combat.Encounter) error {
	_, err := event.On(enc.Bus(), event.DamageRoll, func(p *combat.DamageRoll) error {
		if p.Attacker != owner || p.Save || p.Action.Ranged || !p.Action.IsWeapon() {
			return nil
		}
		if a.Tag != "" && !p.Action.HasTag(a.Tag) {
			return nil
		}
		for i := range p.Components {
			if p.Components[i].Source != p.Action.Source {
				continue
			}
			for j, r := range p.Components[i].Rolls {
				if r <= a.Below {
					p.Reroll(i, j)
				}
			}
		}
		return nil
	})
	return err
}

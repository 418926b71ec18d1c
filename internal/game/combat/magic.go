package combat

import (
	"fmt"

	"github.com/cory-johannsen/dpr/internal/game/creature"
)

// Concentrate starts c concentrating on spell. Any previous concentration
// ends first and its end function runs. end may be nil.
func (e *Encounter) Concentrate(c *Combatant, spell string, end func()) {
	e.EndConcentration(c)
	c.concentration, c.endSpell = spell, end
	e.Logf(LogSpell, c, nil, 0, "concentrating on %s", spell)
}

// EndConcentration ends c's concentration, if any.
func (e *Encounter) EndConcentration(c *Combatant) {
	if c.concentration == "" {
		return
	}
	spell, end := c.concentration, c.endSpell
	c.concentration, c.endSpell = "", nil
	e.Logf(LogSpell, c, nil, 0, "%s ended", spell)
	if end != nil {
		end()
	}
}

// Heal restores amount hit points to target and returns what was restored.
func (e *Encounter) Heal(healer, target *Combatant, amount int, source string) int {
	healed := target.Heal(amount)
	e.Logf(LogHeal, healer, target, healed, "%s heals %d", source, healed)
	return healed
}

// Attack resolves one attack roll of a against target, for listeners that
// act in place of the default tactic.
func (e *Encounter) Attack(attacker, target *Combatant, a *Action) error {
	if !target.IsAlive() {
		return nil
	}
	return e.resolveAttack(attacker, target, a.attempt())
}

// ForceSave resolves a saving-throw action against targets.
//
// Precondition: a.Kind is creature.ActionSave.
func (e *Encounter) ForceSave(source *Combatant, targets []*Combatant, a *Action) error {
	if a.Kind != creature.ActionSave {
		return fmt.Errorf("combat.ForceSave: %s is not a save action", a.Source)
	}
	return e.resolveSave(source, targets, a.attempt())
}

// Strike applies a's damage to target with no attack roll or save, for
// effects that always hit. damage_roll is still published.
func (e *Encounter) Strike(attacker, target *Combatant, a *Action) error {
	if !target.IsAlive() {
		return nil
	}
	a = a.attempt()
	e.rollComponents(a.Damage, false, e.cfg.CritMultiplier)
	dr := &DamageRoll{
		Encounter:  e,
		Attacker:   attacker,
		Target:     target,
		Action:     a,
		Components: a.Damage,
		Multiplier: 1,
		roller:     e.roller,
	}
	if err := e.bus.Publish(dr); err != nil {
		return err
	}
	return e.deal(attacker, target, dr.Bundles())
}

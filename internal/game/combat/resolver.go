package combat

import (
	"github.com/cory-johannsen/dpr/internal/game/condition"
	"github.com/cory-johannsen/dpr/internal/game/creature"
	"github.com/cory-johannsen/dpr/internal/game/dice"
)

// resolveAttack resolves one attack roll of a against target.
//
// Postcondition: damage is applied once per damage type and the attacker's
// DamageDealt grows by the damage that landed.
func (e *Encounter) resolveAttack(attacker, target *Combatant, a *Action) error {
	roll := &AttackRoll{
		Encounter:     e,
		Attacker:      attacker,
		Target:        target,
		Action:        a,
		Roll:          e.roller.RollD20(),
		ToHit:         a.ToHit,
		Situational:   condition.AttackBonus(attacker.Conditions),
		CritThreshold: attacker.CritThreshold(a),
		Defense:       target.AC(),
	}
	ownAdv, ownDis := condition.OwnAttackEffects(attacker.Conditions)
	defAdv, defDis := condition.DefenseEffects(target.Conditions, a.Ranged)
	roll.Advantage = ownAdv || defAdv
	roll.Disadvantage = ownDis || defDis
	if err := e.bus.Publish(roll); err != nil {
		return err
	}

	mode := dice.ResolveMode(roll.Advantage, roll.Disadvantage, e.cfg.CancelPolicy)
	natural := roll.Natural()
	res := &AttackResult{
		Encounter:      e,
		Attacker:       attacker,
		Target:         target,
		Action:         a,
		Mode:           mode,
		Natural:        natural,
		Total:          natural + roll.ToHit + roll.Situational,
		Defense:        roll.Defense,
		CritMultiplier: e.cfg.CritMultiplier,
		Damage:         a.Damage,
	}
	switch {
	case natural == 1:
	case dice.IsCritical(natural, roll.CritThreshold):
		res.Hit, res.Critical = true, true
	default:
		res.Hit = res.Total >= res.Defense
	}
	if res.Hit && !res.Critical && !a.Ranged && condition.MeleeHitsCrit(target.Conditions) {
		res.Critical = true
	}
	e.Logf(LogAttack, attacker, target, res.Total, "%s: %d vs AC %d (%s, natural %d)%s",
		a.Source, res.Total, res.Defense, mode, natural, hitLabel(res))
	if err := e.bus.Publish(res); err != nil {
		return err
	}

	var comps []DamageComponent
	for _, c := range res.Damage {
		if c.OnMiss != res.Hit {
			comps = append(comps, c)
		}
	}
	if len(comps) > 0 {
		critical := res.Hit && res.Critical
		e.rollComponents(comps, critical, res.CritMultiplier)
		dr := &DamageRoll{
			Encounter:  e,
			Attacker:   attacker,
			Target:     target,
			Action:     a,
			Critical:   critical,
			Components: comps,
			Multiplier: 1,
			roller:     e.roller,
		}
		if err := e.bus.Publish(dr); err != nil {
			return err
		}
		if err := e.deal(attacker, target, dr.Bundles()); err != nil {
			return err
		}
	}
	if res.Hit && a.Condition != nil && target.IsAlive() {
		return e.ApplyCondition(target, a.Condition.ID, a.Condition.Rounds, a.Source)
	}
	return nil
}

func hitLabel(res *AttackResult) string {
	switch {
	case res.Critical:
		return " critical"
	case res.Hit:
		return " hit"
	default:
		return " miss"
	}
}

// rollComponents fills Rolls for every component. On a critical, dice counts
// are multiplied and extra critical dice added; flat amounts never change.
func (e *Encounter) rollComponents(comps []DamageComponent, critical bool, multiplier int) {
	if multiplier <= 0 {
		multiplier = DefaultCritMultiplier
	}
	for i := range comps {
		c := &comps[i]
		count := c.Count
		if critical && !c.NoCrit {
			count = count*multiplier + c.ExtraCritDice
		}
		if count > 0 && c.Sides > 0 {
			c.Rolls = e.roller.RollDice(count, c.Sides)
		}
	}
}

// deal applies each bundle to target once and credits the attacker.
func (e *Encounter) deal(attacker, target *Combatant, bundles []Bundle) error {
	for _, b := range bundles {
		out := target.ApplyDamage(b.Amount, b.Type)
		if attacker != nil {
			attacker.DamageDealt += out.Dealt()
		}
		e.Logf(LogDamage, attacker, target, out.Dealt(), "%d %s (%s)", out.Adjusted, b.Type, modifierLabel(out.Modifier))
		if out.Defeated {
			e.Logf(LogDefeated, attacker, target, 0, "%s defeated", target.Name())
			e.EndConcentration(target)
			if err := e.bus.Publish(&Defeat{Encounter: e, Attacker: attacker, Target: target, Round: e.round}); err != nil {
				return err
			}
		}
	}
	return nil
}

func modifierLabel(m string) string {
	if m == "" {
		return "normal"
	}
	return m
}

// RollSave resolves one saving throw of target against dc, publishing
// saving_throw and save_result. a may be nil for saves forced by a feature.
func (e *Encounter) RollSave(source, target *Combatant, a *Action, stat creature.Stat, dc int) (bool, error) {
	st := &SavingThrow{
		Encounter:    e,
		Source:       source,
		Target:       target,
		Action:       a,
		Stat:         stat,
		DC:           dc,
		Bonus:        target.Def.SaveBonus(stat),
		Disadvantage: condition.SaveHasDisadvantage(target.Conditions, string(stat)),
		AutoFail:     condition.AutoFailsSave(target.Conditions, string(stat)),
	}
	if err := e.bus.Publish(st); err != nil {
		return false, err
	}
	d := e.roller.RollD20()
	natural := d.Kept(dice.ResolveMode(st.Advantage, st.Disadvantage, e.cfg.CancelPolicy))
	sr := &SaveResult{
		Encounter: e,
		Source:    source,
		Target:    target,
		Action:    a,
		Natural:   natural,
		Total:     natural + st.Bonus,
		DC:        st.DC,
		Success:   !st.AutoFail && natural+st.Bonus >= st.DC,
	}
	if err := e.bus.Publish(sr); err != nil {
		return false, err
	}
	verdict := "failed"
	if sr.Success {
		verdict = "saved"
	}
	e.Logf(LogSave, source, target, sr.Total, "%s save %d vs DC %d %s", stat, sr.Total, sr.DC, verdict)
	return sr.Success, nil
}

// resolveSave resolves a saving-throw action against targets. Damage is
// rolled once and shared: full on a failed save, half (rounded down) or none
// on a success. The action's condition is applied on a failed save.
func (e *Encounter) resolveSave(source *Combatant, targets []*Combatant, a *Action) error {
	var bundles []Bundle
	if len(a.Damage) > 0 {
		comps := a.Damage
		e.rollComponents(comps, false, e.cfg.CritMultiplier)
		dr := &DamageRoll{
			Encounter:  e,
			Attacker:   source,
			Action:     a,
			Save:       true,
			Components: comps,
			Multiplier: 1,
			roller:     e.roller,
		}
		if err := e.bus.Publish(dr); err != nil {
			return err
		}
		bundles = dr.Bundles()
	}
	for _, t := range targets {
		if !t.IsAlive() {
			continue
		}
		saved, err := e.RollSave(source, t, a, a.SaveStat, a.DC)
		if err != nil {
			return err
		}
		if len(bundles) > 0 {
			if err := e.deal(source, t, onSave(bundles, saved, a.OnSave)); err != nil {
				return err
			}
		}
		if !saved && a.Condition != nil && t.IsAlive() {
			if err := e.ApplyCondition(t, a.Condition.ID, a.Condition.Rounds, a.Source); err != nil {
				return err
			}
		}
	}
	return nil
}

// onSave returns the bundles a target takes after its save.
func onSave(bundles []Bundle, saved bool, rule string) []Bundle {
	if !saved {
		return bundles
	}
	if rule == creature.OnSaveNone {
		return nil
	}
	out := make([]Bundle, len(bundles))
	for i, b := range bundles {
		out[i] = Bundle{Type: b.Type, Amount: b.Amount / 2}
	}
	return out
}

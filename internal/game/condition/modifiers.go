package condition

import "slices"

// AttackBonus returns the net attack roll modifier from all active conditions,
// multiplied by stacks.
//
// Postcondition: Returns <= 0.
func AttackBonus(s *ActiveSet) int {
	total := 0
	for _, ac := range s.conditions {
		if ac.Def.AttackPenalty > 0 {
			total -= ac.Def.AttackPenalty * ac.Stacks
		}
	}
	return total
}

// ACBonus returns the net AC modifier from all active conditions.
//
// Postcondition: Returns <= 0.
func ACBonus(s *ActiveSet) int {
	total := 0
	for _, ac := range s.conditions {
		if ac.Def.ACPenalty > 0 {
			total -= ac.Def.ACPenalty * ac.Stacks
		}
	}
	return total
}

// IsIncapacitated reports whether any active condition removes the
// creature's turn.
func IsIncapacitated(s *ActiveSet) bool {
	for _, ac := range s.conditions {
		if ac.Def.Incapacitates {
			return true
		}
	}
	return false
}

// OwnAttackEffects reports whether the creature's own conditions give its
// attacks advantage and/or disadvantage.
func OwnAttackEffects(s *ActiveSet) (adv, dis bool) {
	for _, ac := range s.conditions {
		switch ac.Def.OwnAttacks {
		case EffectAdvantage:
			adv = true
		case EffectDisadvantage:
			dis = true
		}
	}
	return adv, dis
}

// DefenseEffects reports the effects the target's conditions impose on an
// attack made against it.
func DefenseEffects(s *ActiveSet, ranged bool) (adv, dis bool) {
	for _, ac := range s.conditions {
		effect := ac.Def.MeleeAttackers
		if ranged {
			effect = ac.Def.RangedAttackers
		}
		switch effect {
		case EffectAdvantage:
			adv = true
		case EffectDisadvantage:
			dis = true
		}
	}
	return adv, dis
}

// MeleeHitsCrit reports whether a melee hit against the creature is always critical.
func MeleeHitsCrit(s *ActiveSet) bool {
	for _, ac := range s.conditions {
		if ac.Def.MeleeHitsCrit {
			return true
		}
	}
	return false
}

// AutoFailsSave reports whether saves of the given ability fail automatically.
func AutoFailsSave(s *ActiveSet, ability string) bool {
	for _, ac := range s.conditions {
		if slices.Contains(ac.Def.AutoFailSaves, ability) {
			return true
		}
	}
	return false
}

// SaveHasDisadvantage reports whether saves of the given ability are rolled
// with disadvantage.
func SaveHasDisadvantage(s *ActiveSet, ability string) bool {
	for _, ac := range s.conditions {
		if slices.Contains(ac.Def.SaveDisadvantage, ability) {
			return true
		}
	}
	return false
}

// Package ai implements target selection for combatants controlled by the
// simulator. Strategies see a read-only snapshot of the opposing side and
// return the index of the chosen target.
package ai

// CombatantState captures a potential target at selection time.
type CombatantState struct {
	ID     string
	Name   string
	HP     int
	MaxHP  int
	AC     int
	Threat int
}

// HPPercent returns current HP as a percentage of MaxHP; 0 if MaxHP == 0.
func (c *CombatantState) HPPercent() float64 {
	if c.MaxHP <= 0 {
		return 0
	}
	return float64(c.HP) / float64(c.MaxHP) * 100
}

// AtFull reports whether the combatant is undamaged.
func (c *CombatantState) AtFull() bool {
	return c.HP >= c.MaxHP
}

// WorldState is the snapshot passed to a Strategy.
//
// Invariant: Enemies contains only living, targetable combatants in initiative order.
type WorldState struct {
	SelfID  string
	Round   int
	Enemies []*CombatantState
}

// Nearest returns the index of the first enemy, or -1.
func (ws *WorldState) Nearest() int {
	if len(ws.Enemies) == 0 {
		return -1
	}
	return 0
}

// Weakest returns the index of the enemy with the lowest HP percentage, or -1.
//
// Postcondition: ties are broken by order in Enemies.
func (ws *WorldState) Weakest() int {
	best := -1
	for i, e := range ws.Enemies {
		if best < 0 || e.HPPercent() < ws.Enemies[best].HPPercent() {
			best = i
		}
	}
	return best
}

// LowestHP returns the index of the enemy with the fewest current hit points, or -1.
func (ws *WorldState) LowestHP() int {
	best := -1
	for i, e := range ws.Enemies {
		if best < 0 || e.HP < ws.Enemies[best].HP {
			best = i
		}
	}
	return best
}

// HighestThreat returns the index of the enemy with the highest threat rating, or -1.
func (ws *WorldState) HighestThreat() int {
	best := -1
	for i, e := range ws.Enemies {
		if best < 0 || e.Threat > ws.Enemies[best].Threat {
			best = i
		}
	}
	return best
}

// AllAtFull reports whether no enemy has taken damage yet.
func (ws *WorldState) AllAtFull() bool {
	for _, e := range ws.Enemies {
		if !e.AtFull() {
			return false
		}
	}
	return true
}

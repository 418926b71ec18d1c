// Package combat implements the encounter engine: combatants, the
// turn/round state machine, and attack and saving-throw resolution.
//
// Everything in this package belongs to one encounter of one iteration and
// is not safe for concurrent use. Definitions are shared read-only.
package combat

import "fmt"

// Team identifies a side of an encounter.
type Team string

const (
	TeamParty   Team = "party"
	TeamEnemies Team = "enemies"
)

// Outcome is how an encounter ended.
type Outcome string

const (
	// Victory means exactly one team still had an able member.
	Victory Outcome = "victory"
	// Stalemate means the round cap was reached with more than one able team.
	Stalemate Outcome = "stalemate"
	// Draw means no team had an able member at the same time.
	Draw Outcome = "draw"
)

// State is a phase of the encounter state machine.
type State int

const (
	NotStarted State = iota
	InitiativeRolled
	RoundInProgress
	RoundComplete
	EncounterEnded
)

// String returns the state name.
func (s State) String() string {
	switch s {
	case NotStarted:
		return "not_started"
	case InitiativeRolled:
		return "initiative_rolled"
	case RoundInProgress:
		return "round_in_progress"
	case RoundComplete:
		return "round_complete"
	case EncounterEnded:
		return "encounter_ended"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

// TieBreak orders combatants with equal initiative totals.
type TieBreak string

const (
	// TieBreakModifier puts the higher initiative modifier first, then
	// insertion order.
	TieBreakModifier TieBreak = "modifier"
	// TieBreakInsertion keeps insertion order.
	TieBreakInsertion TieBreak = "insertion"
)

// ParseTieBreak validates a tie-break policy name. Empty yields TieBreakModifier.
func ParseTieBreak(s string) (TieBreak, error) {
	switch TieBreak(s) {
	case "", TieBreakModifier:
		return TieBreakModifier, nil
	case TieBreakInsertion:
		return TieBreakInsertion, nil
	default:
		return "", fmt.Errorf("combat: unknown initiative tie-break %q", s)
	}
}

// DefaultMaxRounds is the round cap used when Config.MaxRounds is zero.
const DefaultMaxRounds = 100

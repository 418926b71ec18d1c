package dice

import "fmt"

// DefaultCritThreshold is the natural d20 result at or above which an attack
// roll is a critical hit when no ability lowers it.
const DefaultCritThreshold = 20

// Mode selects how a pair of d20 draws is reduced to one result.
type Mode int

const (
	// Normal keeps the first draw.
	Normal Mode = iota
	// Advantage keeps the higher draw.
	Advantage
	// Disadvantage keeps the lower draw.
	Disadvantage
)

// String returns the lowercase mode name.
func (m Mode) String() string {
	switch m {
	case Advantage:
		return "advantage"
	case Disadvantage:
		return "disadvantage"
	default:
		return "normal"
	}
}

// CancelPolicy decides the Mode when advantage and disadvantage apply at once.
type CancelPolicy string

const (
	// CancelBoth reduces simultaneous advantage and disadvantage to a single
	// unmodified draw.
	CancelBoth CancelPolicy = "cancel"
	// PreferAdvantage lets advantage win.
	PreferAdvantage CancelPolicy = "advantage"
	// PreferDisadvantage lets disadvantage win.
	PreferDisadvantage CancelPolicy = "disadvantage"
)

// ParseCancelPolicy validates a policy name. The empty string yields CancelBoth.
func ParseCancelPolicy(s string) (CancelPolicy, error) {
	switch CancelPolicy(s) {
	case "", CancelBoth:
		return CancelBoth, nil
	case PreferAdvantage, PreferDisadvantage:
		return CancelPolicy(s), nil
	default:
		return "", fmt.Errorf("dice: unknown cancel policy %q", s)
	}
}

// ResolveMode folds the advantage and disadvantage flags collected from
// conditions and listeners into one Mode.
func ResolveMode(adv, dis bool, policy CancelPolicy) Mode {
	switch {
	case adv && dis:
		switch policy {
		case PreferAdvantage:
			return Advantage
		case PreferDisadvantage:
			return Disadvantage
		default:
			return Normal
		}
	case adv:
		return Advantage
	case dis:
		return Disadvantage
	default:
		return Normal
	}
}

// D20 holds two independent d20 draws. Both are always drawn so listeners can
// change the mode after the roll without consuming extra randomness.
type D20 struct {
	First  int
	Second int
}

// RollPair draws two independent d20 values.
func RollPair(src Source) D20 {
	return D20{First: RollDie(20, src), Second: RollDie(20, src)}
}

// Kept returns the natural result selected by mode.
//
// Postcondition: Normal yields First; Advantage yields max(First, Second);
// Disadvantage yields min(First, Second).
func (d D20) Kept(mode Mode) int {
	switch mode {
	case Advantage:
		return max(d.First, d.Second)
	case Disadvantage:
		return min(d.First, d.Second)
	default:
		return d.First
	}
}

// RollAdvantage draws two d20 values and returns the higher along with the pair.
func RollAdvantage(src Source) (int, D20) {
	d := RollPair(src)
	return d.Kept(Advantage), d
}

// RollDisadvantage draws two d20 values and returns the lower along with the pair.
func RollDisadvantage(src Source) (int, D20) {
	d := RollPair(src)
	return d.Kept(Disadvantage), d
}

// IsCritical reports whether a natural result meets the critical threshold.
// A non-positive threshold means DefaultCritThreshold.
func IsCritical(natural, threshold int) bool {
	if threshold <= 0 {
		threshold = DefaultCritThreshold
	}
	return natural >= threshold
}

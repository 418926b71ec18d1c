// Package dice provides the randomness abstraction, dice expressions, and d20
// roll mechanics used by the combat simulator.
package dice

import (
	"fmt"
	"strings"
)

// RollResult records one evaluated dice expression.
//
// Invariant: Total() == sum(Dice) + Modifier. Dropped dice never count.
type RollResult struct {
	Expression string // canonical form, e.g. "4d6kh3+1"
	Sides      int
	Dice       []int // kept dice, highest first when the expression keeps
	Dropped    []int // dice discarded by a keep-highest suffix
	Modifier   int
}

// Total returns the kept dice plus the modifier.
func (r RollResult) Total() int {
	total := r.Modifier
	for _, d := range r.Dice {
		total += d
	}
	return total
}

// String renders the roll for debug logs, e.g. "2d6+4 [3 5] +4 = 12" or
// "4d6kh3 [6 5 3] (dropped [1]) = 14". An empty Expression renders as "roll".
func (r RollResult) String() string {
	var b strings.Builder
	if r.Expression == "" {
		b.WriteString("roll")
	} else {
		b.WriteString(r.Expression)
	}
	fmt.Fprintf(&b, " %v", r.Dice)
	if len(r.Dropped) > 0 {
		fmt.Fprintf(&b, " (dropped %v)", r.Dropped)
	}
	if r.Modifier != 0 {
		fmt.Fprintf(&b, " %+d", r.Modifier)
	}
	fmt.Fprintf(&b, " = %d", r.Total())
	return b.String()
}

// Source is the randomness provider for dice rolls.
//
// A Source is owned by a single simulated iteration and is not required to
// be safe for concurrent use; NewCryptoSource is the exception.
type Source interface {
	// Intn returns a non-negative random int in [0, n).
	//
	// Precondition: n > 0.
	Intn(n int) int
}

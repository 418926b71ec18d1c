package dice

import (
	"fmt"
	"strconv"
	"strings"
)

// Expression represents a parsed dice expression ready to be rolled.
//
// Invariant: Count >= 1 and Sides >= 2 after a successful Parse.
type Expression struct {
	Raw         string // original input string
	Count       int    // number of dice
	Sides       int    // faces per die
	Modifier    int    // flat modifier (may be negative)
	KeepHighest int    // if > 0, keep only the N highest dice (e.g. 4d6kh3)
}

// Parse parses a dice expression string into an Expression.
// Supported forms: "d20", "2d6", "2d6+4", "1d8-1", "4d6kh3", "4d6kh3+2".
//
// Postcondition: returns a valid Expression or a descriptive error.
func Parse(expr string) (Expression, error) {
	raw := strings.TrimSpace(expr)
	if raw == "" {
		return Expression{}, fmt.Errorf("dice: empty expression")
	}
	s := strings.ToLower(raw)

	countStr, rest, ok := strings.Cut(s, "d")
	if !ok {
		return Expression{}, fmt.Errorf("dice: missing 'd' in expression %q", raw)
	}
	count := 1
	if countStr != "" {
		n, err := strconv.Atoi(countStr)
		if err != nil {
			return Expression{}, fmt.Errorf("dice: invalid die count in %q: %w", raw, err)
		}
		if n <= 0 {
			return Expression{}, fmt.Errorf("dice: invalid die count in %q: must be >= 1", raw)
		}
		count = n
	}

	body, modifier, err := splitModifier(rest)
	if err != nil {
		return Expression{}, fmt.Errorf("dice: invalid modifier in %q: %w", raw, err)
	}

	sidesStr, khStr, hasKH := strings.Cut(body, "kh")
	sides, err := strconv.Atoi(sidesStr)
	if err != nil {
		return Expression{}, fmt.Errorf("dice: invalid die sides in %q: %w", raw, err)
	}
	if sides < 2 {
		return Expression{}, fmt.Errorf("dice: invalid die sides in %q: must be >= 2", raw)
	}

	keep := 0
	if hasKH {
		keep, err = strconv.Atoi(khStr)
		if err != nil {
			return Expression{}, fmt.Errorf("dice: invalid kh value in %q: %w", raw, err)
		}
		if keep <= 0 || keep >= count {
			return Expression{}, fmt.Errorf("dice: kh value %d must be > 0 and < count %d in %q", keep, count, raw)
		}
	}

	return Expression{Raw: raw, Count: count, Sides: sides, Modifier: modifier, KeepHighest: keep}, nil
}

// splitModifier separates a trailing "+N" or "-N" from s. The sign at
// position 0 is never treated as a modifier.
func splitModifier(s string) (string, int, error) {
	idx := strings.LastIndexAny(s, "+-")
	if idx <= 0 {
		return s, 0, nil
	}
	mod, err := strconv.Atoi(s[idx:])
	if err != nil {
		return "", 0, err
	}
	return s[:idx], mod, nil
}

// String renders the expression in canonical "NdS[khK][+M]" form.
func (e Expression) String() string {
	var b strings.Builder
	fmt.Fprintf(&b, "%dd%d", e.Count, e.Sides)
	if e.KeepHighest > 0 {
		fmt.Fprintf(&b, "kh%d", e.KeepHighest)
	}
	if e.Modifier != 0 {
		fmt.Fprintf(&b, "%+d", e.Modifier)
	}
	return b.String()
}

// Average returns the expected total of the expression. KeepHighest is
// ignored; callers needing it must compute the order statistic themselves.
func (e Expression) Average() float64 {
	return float64(e.Count)*float64(e.Sides+1)/2 + float64(e.Modifier)
}

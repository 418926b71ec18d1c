package dice

import "sort"

// Roll evaluates an Expression using the given Source and returns a RollResult.
//
// Precondition: expr must come from Parse; src must be non-nil.
// Postcondition: len(result.Dice) == expr.Count when KeepHighest == 0, or
// expr.KeepHighest otherwise.
func Roll(expr Expression, src Source) (RollResult, error) {
	rolled := RollDice(expr.Count, expr.Sides, src)

	res := RollResult{
		Expression: expr.String(),
		Sides:      expr.Sides,
		Dice:       rolled,
		Modifier:   expr.Modifier,
	}
	if expr.KeepHighest > 0 {
		sort.Sort(sort.Reverse(sort.IntSlice(rolled)))
		res.Dice, res.Dropped = rolled[:expr.KeepHighest], rolled[expr.KeepHighest:]
	}
	return res, nil
}

// RollExpr parses expr and rolls it using src in a single call.
func RollExpr(expr string, src Source) (RollResult, error) {
	e, err := Parse(expr)
	if err != nil {
		return RollResult{}, err
	}
	return Roll(e, src)
}

// MustParse parses expr and panics on error. Useful for package-level values.
func MustParse(expr string) Expression {
	e, err := Parse(expr)
	if err != nil {
		panic("dice: MustParse failed for expression " + expr + ": " + err.Error())
	}
	return e
}

// RollDie returns a single die result uniformly in [1, sides].
//
// Precondition: sides >= 1.
func RollDie(sides int, src Source) int {
	return src.Intn(sides) + 1
}

// RollDice returns count independent results of a die with the given sides.
//
// Postcondition: len(result) == max(count, 0); every value is in [1, sides].
func RollDice(count, sides int, src Source) []int {
	if count <= 0 {
		return nil
	}
	out := make([]int, count)
	for i := range out {
		out[i] = RollDie(sides, src)
	}
	return out
}

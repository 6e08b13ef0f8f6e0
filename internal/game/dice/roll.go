package dice

import "slices"

// Roll evaluates expr against src.
//
// Precondition: expr came from Parse; src is non-nil.
// Postcondition: len(result.Dice) == expr.Count, or expr.KeepHighest when set.
func Roll(expr Expression, src Source) RollResult {
	rolled := make([]int, expr.Count)
	for i := range rolled {
		rolled[i] = src.Intn(expr.Sides) + 1
	}
	if expr.KeepHighest > 0 {
		slices.Sort(rolled)
		slices.Reverse(rolled)
		rolled = rolled[:expr.KeepHighest]
	}
	return RollResult{Expression: expr.Raw, Dice: rolled, Modifier: expr.Modifier}
}

// Chance reports whether an event with probability p happens.
// Probabilities are resolved to basis points so fakes can drive outcomes exactly:
// the event happens iff src.Intn(10000) < round(p*10000).
//
// Postcondition: p <= 0 never happens; p >= 1 always happens.
func Chance(src Source, p float64) bool {
	if p <= 0 {
		return false
	}
	if p >= 1 {
		return true
	}
	return src.Intn(10000) < int(p*10000+0.5)
}

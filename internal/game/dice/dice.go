// Package dice provides the randomness abstraction used by movement rolls,
// encounter checks and battle resolution.
package dice

import (
	"fmt"
	"strings"
)

// Source is the randomness provider for every random decision in the game.
//
// Implementations MUST be safe for concurrent use.
type Source interface {
	// Intn returns a non-negative random int in [0, n).
	//
	// Precondition: n > 0.
	Intn(n int) int
}

// RollResult holds the full audit trail for a single dice roll.
//
// Postcondition: Total() == sum(Dice) + Modifier.
type RollResult struct {
	Expression string
	Dice       []int
	Modifier   int
}

// Sum returns the sum of the kept dice, without the modifier.
func (r RollResult) Sum() int {
	sum := 0
	for _, d := range r.Dice {
		sum += d
	}
	return sum
}

// Total returns the sum of all die results plus the modifier.
func (r RollResult) Total() int {
	return r.Sum() + r.Modifier
}

// String renders the roll as "3d6+1 → [2 5 6] +1 = 14".
//
// Precondition: r.Expression is non-empty.
func (r RollResult) String() string {
	if r.Expression == "" {
		panic("dice: RollResult.String() precondition violated: Expression must be non-empty")
	}
	parts := make([]string, len(r.Dice))
	for i, d := range r.Dice {
		parts[i] = fmt.Sprint(d)
	}
	return fmt.Sprintf("%s → [%s] %+d = %d", r.Expression, strings.Join(parts, " "), r.Modifier, r.Total())
}

package dice

import (
	"fmt"
	"strconv"
	"strings"
)

// Expression is a parsed dice expression such as "3d6+2" or "4d6kh3".
//
// Invariant: Count >= 1, Sides >= 2, 0 <= KeepHighest < Count.
type Expression struct {
	Raw         string
	Count       int
	Sides       int
	Modifier    int
	KeepHighest int
}

// Max returns the largest total the expression can produce.
func (e Expression) Max() int {
	kept := e.Count
	if e.KeepHighest > 0 {
		kept = e.KeepHighest
	}
	return kept*e.Sides + e.Modifier
}

// Parse parses "NdS", "dS", "NdS+M", "NdS-M" and "NdSkhK" forms.
//
// Precondition: expr must be non-empty.
// Postcondition: Returns an Expression satisfying its invariant or a descriptive error.
func Parse(expr string) (Expression, error) {
	s := strings.ToLower(strings.TrimSpace(expr))
	if s == "" {
		return Expression{}, fmt.Errorf("dice: empty expression")
	}

	countStr, rest, ok := strings.Cut(s, "d")
	if !ok {
		return Expression{}, fmt.Errorf("dice: missing 'd' in expression %q", expr)
	}

	count := 1
	if countStr != "" {
		n, err := strconv.Atoi(countStr)
		if err != nil || n < 1 {
			return Expression{}, fmt.Errorf("dice: invalid die count in %q", expr)
		}
		count = n
	}

	modifier := 0
	if i := strings.IndexAny(rest, "+-"); i > 0 {
		m, err := strconv.Atoi(rest[i:])
		if err != nil {
			return Expression{}, fmt.Errorf("dice: invalid modifier in %q: %w", expr, err)
		}
		modifier = m
		rest = rest[:i]
	}

	keep := 0
	if sidesStr, khStr, found := strings.Cut(rest, "kh"); found {
		kh, err := strconv.Atoi(khStr)
		if err != nil {
			return Expression{}, fmt.Errorf("dice: invalid kh value in %q: %w", expr, err)
		}
		if kh <= 0 || kh >= count {
			return Expression{}, fmt.Errorf("dice: kh value %d must be > 0 and < count %d in %q", kh, count, expr)
		}
		keep = kh
		rest = sidesStr
	}

	sides, err := strconv.Atoi(rest)
	if err != nil || sides < 2 {
		return Expression{}, fmt.Errorf("dice: invalid die sides in %q", expr)
	}

	return Expression{Raw: expr, Count: count, Sides: sides, Modifier: modifier, KeepHighest: keep}, nil
}

// MustParse parses expr and panics on error. Useful for package-level values.
func MustParse(expr string) Expression {
	e, err := Parse(expr)
	if err != nil {
		panic("dice: MustParse failed for expression " + expr + ": " + err.Error())
	}
	return e
}

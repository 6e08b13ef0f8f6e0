package world

// IsVisible reports whether conn can be acted on by a player standing at
// currentPosition on conn's source location.
//
// Rules, in priority order:
//   - no source position: always visible (town connections)
//   - source position 0: visible at or below 0
//   - source position 100: visible at or above 100
//   - anything else: visible only on the exact position
func IsVisible(conn Connection, currentPosition int) bool {
	if conn.SourcePosition == nil {
		return true
	}
	switch sp := *conn.SourcePosition; sp {
	case MinPosition:
		return currentPosition <= MinPosition
	case MaxPosition:
		return currentPosition >= MaxPosition
	default:
		return currentPosition == sp
	}
}

// Package gameerr defines the error taxonomy shared by the movement and battle
// engines. Every failure a caller can act on carries a Kind so the transport
// layer can decide how to surface it.
package gameerr

import (
	"errors"
	"fmt"
)

// Kind classifies a failure by who is expected to fix it.
type Kind int

const (
	// KindInternal is an unexpected fault such as a failed persistence call.
	KindInternal Kind = iota
	// KindConfiguration means content data (locations, connections, monsters) is missing or inconsistent.
	KindConfiguration
	// KindValidation means the request itself is malformed.
	KindValidation
	// KindStateConflict means the client's view of the game diverged from the server's.
	KindStateConflict
	// KindResource means the player lacks a spendable resource (MP, SP).
	KindResource
)

// String returns a stable lowercase label for k.
func (k Kind) String() string {
	switch k {
	case KindConfiguration:
		return "configuration"
	case KindValidation:
		return "validation"
	case KindStateConflict:
		return "state_conflict"
	case KindResource:
		return "resource"
	default:
		return "internal"
	}
}

// Error is a classified game error.
//
// Invariant: Code is non-empty and identifies the failure independent of Message.
type Error struct {
	Kind    Kind
	Code    string
	Message string
	Err     error
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

// Unwrap returns the wrapped cause, if any.
func (e *Error) Unwrap() error { return e.Err }

// Is reports whether target is a *Error with the same Code.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Code == e.Code
}

// With returns a copy of e carrying a more specific message.
//
// Postcondition: errors.Is(result, e) is true.
func (e *Error) With(format string, args ...any) *Error {
	return &Error{Kind: e.Kind, Code: e.Code, Message: fmt.Sprintf(format, args...), Err: e.Err}
}

// Wrap returns a copy of e wrapping cause.
//
// Postcondition: errors.Is(result, e) and errors.Is(result, cause) are both true.
func (e *Error) Wrap(cause error) *Error {
	return &Error{Kind: e.Kind, Code: e.Code, Message: e.Message, Err: cause}
}

func newError(kind Kind, code, msg string) *Error {
	return &Error{Kind: kind, Code: code, Message: msg}
}

// Configuration errors.
var (
	ErrLocationNotFound = newError(KindConfiguration, "location_not_found", "location not found")
	ErrTargetMissing    = newError(KindConfiguration, "target_missing", "connection target does not exist")
)

// Validation errors.
var (
	ErrNotOnPathway       = newError(KindValidation, "not_on_pathway", "not on a pathway")
	ErrInvalidSteps       = newError(KindValidation, "invalid_steps", "steps must not be negative")
	ErrInvalidDirection   = newError(KindValidation, "invalid_direction", "direction must be forward or backward")
	ErrConnectionNotFound = newError(KindValidation, "connection_not_found", "no such connection")
	ErrConnectionDisabled = newError(KindValidation, "connection_disabled", "that way is closed")
	ErrUnknownSkill       = newError(KindValidation, "unknown_skill", "unknown skill")
	ErrSkillNotOwned      = newError(KindValidation, "skill_not_owned", "you have not learned that skill")
	ErrNoSpecialAction    = newError(KindValidation, "no_special_action", "there is nothing to do here")
	ErrEncounterMismatch  = newError(KindValidation, "encounter_mismatch", "that monster is not the one waiting for you")
)

// State conflict errors.
var (
	ErrLocationMismatch = newError(KindStateConflict, "location_mismatch", "you are not at that connection's location")
	ErrPositionMismatch = newError(KindStateConflict, "position_mismatch", "that connection is not reachable from your position")
	ErrPositionConflict = newError(KindStateConflict, "position_conflict", "your position changed while moving")
	ErrNoActiveBattle   = newError(KindStateConflict, "no_active_battle", "no active battle")
	ErrBattleInProgress = newError(KindStateConflict, "battle_in_progress", "a battle is already in progress")
	ErrNoEncounter      = newError(KindStateConflict, "no_encounter", "no monster is waiting for you")
	ErrTurnConflict     = newError(KindStateConflict, "turn_conflict", "the battle moved on before your action landed")
	ErrPlayerNotFound   = newError(KindStateConflict, "player_not_found", "no player exists for this user")
	ErrPlayerExists     = newError(KindStateConflict, "player_exists", "this user already has a player")
)

// Resource errors.
var (
	ErrInsufficientResource = newError(KindResource, "insufficient_resource", "not enough resources")
)

// ErrInternal is the generic failure surfaced after an unexpected fault has been logged.
var ErrInternal = newError(KindInternal, "internal", "something went wrong, please try again")

// KindOf returns the Kind of err, or KindInternal when err is not a *Error.
func KindOf(err error) Kind {
	var ge *Error
	if errors.As(err, &ge) {
		return ge.Kind
	}
	return KindInternal
}

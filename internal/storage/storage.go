// Package storage holds the errors shared by every persistence backend.
package storage

import "errors"

var (
	// ErrPlayerNotFound is returned when no player row exists for a user.
	ErrPlayerNotFound = errors.New("player not found")
	// ErrPlayerExists is returned when creating a player for a user that already has one.
	ErrPlayerExists = errors.New("player already exists")
	// ErrBattleNotFound is returned when a user has no active battle.
	ErrBattleNotFound = errors.New("active battle not found")
	// ErrBattleExists is returned when creating a second active battle for a user.
	ErrBattleExists = errors.New("active battle already exists")
	// ErrTreasureClaimed is returned when a user opens a treasure they already looted.
	ErrTreasureClaimed = errors.New("treasure already claimed")
	// ErrStaleWrite is returned when a guarded write finds the row changed
	// since it was read.
	ErrStaleWrite = errors.New("stale write")
)

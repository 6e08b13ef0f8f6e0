// Package codec converts an ActiveBattle to and from the JSON columns every
// store persists it as.
package codec

import (
	"encoding/json"
	"fmt"

	"github.com/cory-johannsen/wayfarer/internal/game/battle"
	"github.com/cory-johannsen/wayfarer/internal/game/monster"
)

// EncodeBattle serialises the character, monster and log columns of ab.
// The monster is stored in its UI shape; a nil log is stored as [].
func EncodeBattle(ab *battle.ActiveBattle) (charData, monsterData, logData []byte, err error) {
	if charData, err = json.Marshal(ab.Character); err != nil {
		return nil, nil, nil, fmt.Errorf("encoding character: %w", err)
	}
	if monsterData, err = json.Marshal(monster.ToUIShape(ab.Monster)); err != nil {
		return nil, nil, nil, fmt.Errorf("encoding monster: %w", err)
	}
	entries := ab.Log
	if entries == nil {
		entries = []battle.LogEntry{}
	}
	if logData, err = json.Marshal(entries); err != nil {
		return nil, nil, nil, fmt.Errorf("encoding battle log: %w", err)
	}
	return charData, monsterData, logData, nil
}

// DecodeBattle fills the JSON-backed fields of ab.
//
// Postcondition: ab.Monster is normalized and ab.Character.Skills is non-nil.
func DecodeBattle(ab *battle.ActiveBattle, charData, monsterData, logData []byte) error {
	if err := json.Unmarshal(charData, &ab.Character); err != nil {
		return fmt.Errorf("decoding character: %w", err)
	}
	var ui monster.UIShape
	if err := json.Unmarshal(monsterData, &ui); err != nil {
		return fmt.Errorf("decoding monster: %w", err)
	}
	ab.Monster = monster.ToBattleShape(ui)
	if err := json.Unmarshal(logData, &ab.Log); err != nil {
		return fmt.Errorf("decoding battle log: %w", err)
	}
	if ab.Character.Skills == nil {
		ab.Character.Skills = []string{}
	}
	return nil
}

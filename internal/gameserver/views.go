package gameserver

import (
	"encoding/json"
	"time"

	"github.com/cory-johannsen/wayfarer/internal/game/battle"
	"github.com/cory-johannsen/wayfarer/internal/game/monster"
	"github.com/cory-johannsen/wayfarer/internal/game/movement"
	"github.com/cory-johannsen/wayfarer/internal/game/player"
	"github.com/cory-johannsen/wayfarer/internal/game/world"
)

// RollResult is a movement dice roll with the agility bonus applied.
type RollResult struct {
	Rolls         []int `json:"rolls"`
	BaseTotal     int   `json:"base_total"`
	Bonus         int   `json:"bonus"`
	FinalMovement int   `json:"final_movement"`
}

// ConnectionView is a connection as shown to the player.
type ConnectionView struct {
	ID               string `json:"id"`
	TargetLocationID string `json:"target_location_id"`
	TargetName       string `json:"target_name,omitempty"`
	TargetType       string `json:"target_type,omitempty"`
	SourcePosition   *int   `json:"source_position,omitempty"`
	ActionLabel      string `json:"action_label,omitempty"`
	KeyboardShortcut string `json:"keyboard_shortcut,omitempty"`
	Direction        string `json:"direction,omitempty"`
	Enabled          bool   `json:"enabled"`
}

// SpecialActionView describes the event at a pathway position.
type SpecialActionView struct {
	Position int    `json:"position"`
	Type     string `json:"type"`
	Label    string `json:"label"`
}

// LocationView summarises a location.
type LocationView struct {
	ID          string `json:"id"`
	Type        string `json:"type"`
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
	Length      int    `json:"length,omitempty"`
	Difficulty  int    `json:"difficulty,omitempty"`
}

// PositionView is where the player stands and what is visible from there.
type PositionView struct {
	Position      player.Position    `json:"position"`
	Location      LocationView       `json:"location"`
	Connections   []ConnectionView   `json:"connections"`
	HasBranch     bool               `json:"has_branch"`
	SpecialAction *SpecialActionView `json:"special_action,omitempty"`
}

// MoveResult is returned by every movement operation.
type MoveResult struct {
	Success           bool               `json:"success"`
	Position          player.Position    `json:"position"`
	StartPosition     int                `json:"start_position"`
	StepsMoved        int                `json:"steps_moved"`
	StopReason        string             `json:"stop_reason"`
	CanMoveToNext     bool               `json:"can_move_to_next"`
	CanMoveToPrevious bool               `json:"can_move_to_previous"`
	HasBranch         bool               `json:"has_branch"`
	BranchOptions     []ConnectionView   `json:"branch_options,omitempty"`
	SpecialAction     *SpecialActionView `json:"special_action,omitempty"`
	Encounter         *monster.UIShape   `json:"encounter,omitempty"`
	Message           string             `json:"message,omitempty"`
}

// SpecialActionResult is the outcome of triggering a special action.
type SpecialActionResult struct {
	Type       string           `json:"type"`
	Message    string           `json:"message"`
	Player     *player.Player   `json:"player,omitempty"`
	GoldGained int              `json:"gold_gained,omitempty"`
	Encounter  *monster.UIShape `json:"encounter,omitempty"`
}

// HistoryEntry is one finished battle.
type HistoryEntry struct {
	BattleID         string          `json:"battle_id"`
	MonsterName      string          `json:"monster_name"`
	Result           string          `json:"result"`
	ExperienceGained int             `json:"experience_gained"`
	GoldGained       int             `json:"gold_gained"`
	GoldLost         int             `json:"gold_lost"`
	Turns            int             `json:"turns"`
	BattleData       json.RawMessage `json:"battle_data,omitempty"`
	EndedAt          time.Time       `json:"ended_at"`
}

func historyEntry(h battle.HistoryRecord) HistoryEntry {
	return HistoryEntry{
		BattleID:         h.BattleID,
		MonsterName:      h.MonsterName,
		Result:           string(h.Result),
		ExperienceGained: h.ExperienceGained,
		GoldGained:       h.GoldGained,
		GoldLost:         h.GoldLost,
		Turns:            h.Turns,
		BattleData:       json.RawMessage(h.BattleData),
		EndedAt:          h.EndedAt,
	}
}

func (s *Service) connectionViews(conns []world.Connection) []ConnectionView {
	out := make([]ConnectionView, 0, len(conns))
	for _, c := range conns {
		v := ConnectionView{
			ID:               c.ID,
			TargetLocationID: c.TargetLocationID,
			SourcePosition:   c.SourcePosition,
			ActionLabel:      c.ActionLabel,
			KeyboardShortcut: c.KeyboardShortcut,
			Direction:        string(c.Direction),
			Enabled:          c.Enabled,
		}
		if target, ok := s.graph.Location(c.TargetLocationID); ok {
			v.TargetName = target.Name
			v.TargetType = string(target.Category)
		}
		out = append(out, v)
	}
	return out
}

func specialActionView(a *world.SpecialAction) *SpecialActionView {
	if a == nil {
		return nil
	}
	return &SpecialActionView{Position: a.Position, Type: string(a.Type), Label: a.Label}
}

func locationView(l *world.Location) LocationView {
	return LocationView{
		ID:          l.ID,
		Type:        string(l.Category),
		Name:        l.Name,
		Description: l.Description,
		Length:      l.Length,
		Difficulty:  l.Difficulty,
	}
}

func (s *Service) moveResult(res movement.Result, pos player.Position) MoveResult {
	out := MoveResult{
		Success:           res.Success,
		Position:          pos,
		StartPosition:     res.StartPosition,
		StepsMoved:        res.StepsMoved,
		StopReason:        string(res.StopReason),
		CanMoveToNext:     res.CanMoveToNext,
		CanMoveToPrevious: res.CanMoveToPrevious,
		HasBranch:         res.HasBranch,
		SpecialAction:     specialActionView(res.SpecialAction),
	}
	if res.HasBranch {
		out.BranchOptions = s.connectionViews(res.BranchOptions)
	}
	return out
}

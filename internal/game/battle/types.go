// Package battle implements the turn-based battle state machine between one
// player and one monster.
package battle

import (
	"slices"
	"time"

	"github.com/cory-johannsen/wayfarer/internal/game/monster"
	"github.com/cory-johannsen/wayfarer/internal/game/player"
)

// State is the lifecycle state of a battle.
type State string

// Battle states. Every state after InProgress is terminal.
const (
	NotStarted State = "not_started"
	InProgress State = "in_progress"
	Victory    State = "victory"
	Defeat     State = "defeat"
	Escaped    State = "escaped"
	ForcedEnd  State = "forced_end"
)

// Terminal reports whether s ends the battle.
func (s State) Terminal() bool {
	switch s {
	case Victory, Defeat, Escaped, ForcedEnd:
		return true
	default:
		return false
	}
}

// Character is the flat combat snapshot of a player taken at battle start.
// Buffs change it for the rest of the battle only; they are not written back.
type Character struct {
	UserID   int64    `json:"user_id"`
	Name     string   `json:"name"`
	Level    int      `json:"level"`
	HP       int      `json:"hp"`
	MaxHP    int      `json:"max_hp"`
	MP       int      `json:"mp"`
	MaxMP    int      `json:"max_mp"`
	SP       int      `json:"sp"`
	MaxSP    int      `json:"max_sp"`
	Attack   int      `json:"attack"`
	Defense  int      `json:"defense"`
	Agility  int      `json:"agility"`
	Evasion  int      `json:"evasion"`
	Accuracy int      `json:"accuracy"`
	Skills   []string `json:"skills"`
}

// NewCharacter snapshots p with the given owned skills.
//
// Postcondition: Skills is non-nil.
func NewCharacter(p *player.Player, skills []string) Character {
	if skills == nil {
		skills = []string{}
	}
	return Character{
		UserID:   p.UserID,
		Name:     p.Name,
		Level:    p.Level,
		HP:       p.HP,
		MaxHP:    p.MaxHP,
		MP:       p.MP,
		MaxMP:    p.MaxMP,
		SP:       p.SP,
		MaxSP:    p.MaxSP,
		Attack:   p.Attack,
		Defense:  p.Defense,
		Agility:  p.Agility,
		Evasion:  p.Evasion,
		Accuracy: p.Accuracy,
		Skills:   slices.Clone(skills),
	}
}

// HasSkill reports whether the character owns skillID.
func (c *Character) HasSkill(skillID string) bool {
	return slices.Contains(c.Skills, skillID)
}

// Actor identifies who produced a log entry.
type Actor string

// Log actors.
const (
	ActorPlayer  Actor = "player"
	ActorMonster Actor = "monster"
	ActorSystem  Actor = "system"
)

// LogEntry is one line of the battle log.
type LogEntry struct {
	Turn     int    `json:"turn"`
	Actor    Actor  `json:"actor"`
	Action   string `json:"action"`
	Message  string `json:"message"`
	Damage   int    `json:"damage,omitempty"`
	Hit      bool   `json:"hit,omitempty"`
	Critical bool   `json:"critical,omitempty"`
}

// ActiveBattle is the persisted record of an in-progress battle.
//
// Invariant: Turn >= 1 and Monster satisfies the snapshot HP invariant.
type ActiveBattle struct {
	BattleID  string
	UserID    int64
	Character Character
	Monster   monster.Snapshot
	Log       []LogEntry
	Turn      int
	CreatedAt time.Time
	UpdatedAt time.Time
}

// HistoryRecord is the permanent record of a finished battle.
type HistoryRecord struct {
	ID               int64
	UserID           int64
	BattleID         string
	MonsterName      string
	Result           State
	ExperienceGained int
	GoldGained       int
	GoldLost         int
	Turns            int
	// BattleData is the JSON encoding of the final character, monster and log.
	BattleData []byte
	EndedAt    time.Time
}

// Completion is everything the end sequence writes in one transaction: the
// updated player, the history row, and the removal of the active battle.
type Completion struct {
	UserID       int64
	BattleID     string
	ExpectedTurn int
	Player       *player.Player
	History      HistoryRecord
}

// Rewards summarises what a finished battle changed for the player.
type Rewards struct {
	Experience   int              `json:"experience"`
	Gold         int              `json:"gold"`
	GoldLost     int              `json:"gold_lost"`
	LevelsGained int              `json:"levels_gained"`
	Relocated    *player.Position `json:"relocated,omitempty"`
}

// Result is returned by every battle operation.
type Result struct {
	BattleID  string          `json:"battle_id"`
	State     State           `json:"state"`
	Character Character       `json:"character"`
	Monster   monster.UIShape `json:"monster"`
	Log       []LogEntry      `json:"log"`
	Turn      int             `json:"turn"`
	// Success is false for expected failures such as a failed escape.
	Success bool     `json:"success"`
	Message string   `json:"message"`
	Rewards *Rewards `json:"rewards,omitempty"`
}

func resultFrom(ab *ActiveBattle, state State, success bool, msg string) Result {
	return Result{
		BattleID:  ab.BattleID,
		State:     state,
		Character: ab.Character,
		Monster:   monster.ToUIShape(ab.Monster),
		Log:       slices.Clone(ab.Log),
		Turn:      ab.Turn,
		Success:   success,
		Message:   msg,
	}
}

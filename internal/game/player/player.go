// Package player defines the player aggregate the engine reads and writes.
package player

import (
	"github.com/cory-johannsen/wayfarer/internal/game/world"
)

// Position is where a player stands in the world.
//
// Invariant: after Normalize, towns sit at 0 and pathways within [0,100].
type Position struct {
	LocationType world.Category `json:"location_type"`
	LocationID   string         `json:"location_id"`
	Position     int            `json:"position"`
}

// Normalize returns p with its position forced into the range its category allows.
func (p Position) Normalize() Position {
	if !p.LocationType.IsPathway() {
		p.Position = world.MinPosition
		return p
	}
	p.Position = min(max(p.Position, world.MinPosition), world.MaxPosition)
	return p
}

// Player is the persisted player aggregate.
type Player struct {
	UserID     int64    `json:"user_id"`
	Name       string   `json:"name"`
	Position   Position `json:"position"`
	HP         int      `json:"hp"`
	MaxHP      int      `json:"max_hp"`
	MP         int      `json:"mp"`
	MaxMP      int      `json:"max_mp"`
	SP         int      `json:"sp"`
	MaxSP      int      `json:"max_sp"`
	Gold       int      `json:"gold"`
	Level      int      `json:"level"`
	Experience int      `json:"experience"`
	Attack     int      `json:"attack"`
	Defense    int      `json:"defense"`
	Agility    int      `json:"agility"`
	Evasion    int      `json:"evasion"`
	Accuracy   int      `json:"accuracy"`
}

// Growth describes how a player improves on levelling up.
type Growth struct {
	ExperiencePerLevel int
	HP                 int
	MP                 int
	SP                 int
	Attack             int
	Defense            int
	Agility            int
}

// DefaultGrowth is the growth curve used when configuration supplies none.
var DefaultGrowth = Growth{ExperiencePerLevel: 100, HP: 10, MP: 5, SP: 5, Attack: 2, Defense: 1, Agility: 1}

// GainExperience adds exp and applies every level-up it earns. A level-up
// happens while Experience >= Level*ExperiencePerLevel and refills HP, MP and SP.
//
// Precondition: exp >= 0 and g.ExperiencePerLevel > 0.
// Postcondition: returns the number of levels gained.
func (p *Player) GainExperience(exp int, g Growth) int {
	p.Experience += exp
	if p.Level < 1 {
		p.Level = 1
	}
	gained := 0
	for p.Experience >= p.Level*g.ExperiencePerLevel {
		p.Level++
		p.MaxHP += g.HP
		p.MaxMP += g.MP
		p.MaxSP += g.SP
		p.Attack += g.Attack
		p.Defense += g.Defense
		p.Agility += g.Agility
		gained++
	}
	if gained > 0 {
		p.Refill()
	}
	return gained
}

// Refill restores HP, MP and SP to their maxima.
func (p *Player) Refill() {
	p.HP, p.MP, p.SP = p.MaxHP, p.MaxMP, p.MaxSP
}

// ClampVitals keeps HP, MP and SP within [0, max].
func (p *Player) ClampVitals() {
	p.HP = min(max(p.HP, 0), p.MaxHP)
	p.MP = min(max(p.MP, 0), p.MaxMP)
	p.SP = min(max(p.SP, 0), p.MaxSP)
}

// New returns a level 1 player standing in startTown.
func New(userID int64, name, startTown string) *Player {
	return &Player{
		UserID:   userID,
		Name:     name,
		Position: Position{LocationType: world.Town, LocationID: startTown},
		HP:       50,
		MaxHP:    50,
		MP:       20,
		MaxMP:    20,
		SP:       20,
		MaxSP:    20,
		Gold:     50,
		Level:    1,
		Attack:   10,
		Defense:  5,
		Agility:  10,
		Evasion:  5,
		Accuracy: 10,
	}
}

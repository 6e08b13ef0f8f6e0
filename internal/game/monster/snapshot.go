// Package monster provides monster templates and the snapshot a battle fights against.
package monster

// Snapshot is the canonical monster combat state. Its fields are flat so the
// battle formulas can read them directly; this is the "battle shape".
//
// Invariant: 0 <= HP <= MaxHP after Normalize.
type Snapshot struct {
	ID               string `json:"id"`
	Name             string `json:"name"`
	Emoji            string `json:"emoji"`
	Level            int    `json:"level"`
	Description      string `json:"description"`
	HP               int    `json:"hp"`
	MaxHP            int    `json:"max_hp"`
	Attack           int    `json:"attack"`
	Defense          int    `json:"defense"`
	Agility          int    `json:"agility"`
	Evasion          int    `json:"evasion"`
	Accuracy         int    `json:"accuracy"`
	ExperienceReward int    `json:"experience_reward"`
	GoldReward       int    `json:"gold_reward"`
}

// Normalize enforces the HP invariant, clamping HP into [0, MaxHP].
//
// Postcondition: 0 <= s.HP <= s.MaxHP, and MaxHP >= 0.
func (s *Snapshot) Normalize() {
	if s.MaxHP < 0 {
		s.MaxHP = 0
	}
	if s.HP > s.MaxHP {
		s.HP = s.MaxHP
	}
	if s.HP < 0 {
		s.HP = 0
	}
}

// ApplyDamage reduces HP by amount and returns the remaining HP.
//
// Precondition: amount >= 0.
// Postcondition: HP >= 0.
func (s *Snapshot) ApplyDamage(amount int) int {
	s.HP -= amount
	s.Normalize()
	return s.HP
}

// IsDefeated reports whether the monster has no HP left.
func (s Snapshot) IsDefeated() bool { return s.HP <= 0 }

// Stats is the nested stat block of the UI shape.
type Stats struct {
	HP               int `json:"hp"`
	MaxHP            int `json:"max_hp"`
	Attack           int `json:"attack"`
	Defense          int `json:"defense"`
	Agility          int `json:"agility"`
	Evasion          int `json:"evasion"`
	Accuracy         int `json:"accuracy"`
	ExperienceReward int `json:"experience_reward"`
	GoldReward       int `json:"gold_reward"`
}

// UIShape is the nested representation used for persistence and display.
type UIShape struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Emoji       string `json:"emoji"`
	Level       int    `json:"level"`
	Description string `json:"description"`
	Stats       Stats  `json:"stats"`
}

// ToUIShape converts a snapshot to its nested form. It is pure and lossless:
// ToBattleShape(ToUIShape(s)) == s for any normalized s.
func ToUIShape(s Snapshot) UIShape {
	return UIShape{
		ID:          s.ID,
		Name:        s.Name,
		Emoji:       s.Emoji,
		Level:       s.Level,
		Description: s.Description,
		Stats: Stats{
			HP:               s.HP,
			MaxHP:            s.MaxHP,
			Attack:           s.Attack,
			Defense:          s.Defense,
			Agility:          s.Agility,
			Evasion:          s.Evasion,
			Accuracy:         s.Accuracy,
			ExperienceReward: s.ExperienceReward,
			GoldReward:       s.GoldReward,
		},
	}
}

// ToBattleShape converts the nested form back to a normalized snapshot.
//
// Postcondition: the result satisfies the Snapshot HP invariant.
func ToBattleShape(u UIShape) Snapshot {
	s := Snapshot{
		ID:               u.ID,
		Name:             u.Name,
		Emoji:            u.Emoji,
		Level:            u.Level,
		Description:      u.Description,
		HP:               u.Stats.HP,
		MaxHP:            u.Stats.MaxHP,
		Attack:           u.Stats.Attack,
		Defense:          u.Stats.Defense,
		Agility:          u.Stats.Agility,
		Evasion:          u.Stats.Evasion,
		Accuracy:         u.Stats.Accuracy,
		ExperienceReward: u.Stats.ExperienceReward,
		GoldReward:       u.Stats.GoldReward,
	}
	s.Normalize()
	return s
}

// DisplayHP is the HP shown to players; it never goes below zero.
func (u UIShape) DisplayHP() int {
	return max(u.Stats.HP, 0)
}

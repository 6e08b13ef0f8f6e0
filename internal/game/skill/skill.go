// Package skill loads the skill definitions players can use in battle.
package skill

import (
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"gopkg.in/yaml.v3"
)

// Effect is what a skill does when it resolves.
type Effect string

// Skill effects.
const (
	EffectDamage Effect = "damage"
	EffectHeal   Effect = "heal"
	EffectBuff   Effect = "buff"
	EffectScript Effect = "script"
)

// CostType names the resource a skill spends.
type CostType string

// Cost types.
const (
	CostMP CostType = "mp"
	CostSP CostType = "sp"
)

// Skill is a battle skill definition.
type Skill struct {
	ID          string   `yaml:"id"`
	Name        string   `yaml:"name"`
	Description string   `yaml:"description"`
	Effect      Effect   `yaml:"effect"`
	CostType    CostType `yaml:"cost_type"`
	Cost        int      `yaml:"cost"`
	// Power is added to attack for damage, restored for heal, or added to Stat for buff.
	Power int `yaml:"power"`
	// Stat is the buffed stat: attack, defense or agility.
	Stat string `yaml:"stat"`
	// Hook is the Lua function for EffectScript; defaults to "skill_<id>".
	Hook string `yaml:"hook"`
}

// HookName returns the Lua function a scripted skill calls.
func (s *Skill) HookName() string {
	if s.Hook != "" {
		return s.Hook
	}
	return "skill_" + s.ID
}

// Validate checks the definition.
//
// Postcondition: Returns nil iff the skill is usable by the battle engine.
func (s *Skill) Validate() error {
	if s.ID == "" {
		return fmt.Errorf("skill: id must not be empty")
	}
	if s.Name == "" {
		return fmt.Errorf("skill %q: name must not be empty", s.ID)
	}
	switch s.Effect {
	case EffectDamage, EffectHeal, EffectScript:
	case EffectBuff:
		if !slices.Contains([]string{"attack", "defense", "agility"}, s.Stat) {
			return fmt.Errorf("skill %q: buff stat must be attack, defense or agility, got %q", s.ID, s.Stat)
		}
	default:
		return fmt.Errorf("skill %q: unknown effect %q", s.ID, s.Effect)
	}
	if s.CostType != CostMP && s.CostType != CostSP {
		return fmt.Errorf("skill %q: cost_type must be mp or sp, got %q", s.ID, s.CostType)
	}
	if s.Cost < 0 || s.Power < 0 {
		return fmt.Errorf("skill %q: cost and power must not be negative", s.ID)
	}
	return nil
}

// Registry indexes skills by ID. It is read-only after construction.
type Registry struct {
	skills map[string]*Skill
}

// NewRegistry indexes skills, rejecting invalid or duplicate entries.
func NewRegistry(skills []*Skill) (*Registry, error) {
	r := &Registry{skills: make(map[string]*Skill, len(skills))}
	for _, s := range skills {
		if err := s.Validate(); err != nil {
			return nil, err
		}
		if _, dup := r.skills[s.ID]; dup {
			return nil, fmt.Errorf("duplicate skill %q", s.ID)
		}
		r.skills[s.ID] = s
	}
	return r, nil
}

// Get returns the skill with the given ID.
func (r *Registry) Get(id string) (*Skill, bool) {
	s, ok := r.skills[id]
	return s, ok
}

// Scripted returns every skill with EffectScript, sorted by ID.
func (r *Registry) Scripted() []*Skill {
	var out []*Skill
	for _, s := range r.skills {
		if s.Effect == EffectScript {
			out = append(out, s)
		}
	}
	slices.SortFunc(out, func(a, b *Skill) int { return strings.Compare(a.ID, b.ID) })
	return out
}

// Len returns the number of skills.
func (r *Registry) Len() int { return len(r.skills) }

// LoadFromBytes parses a YAML file holding a "skills:" list.
func LoadFromBytes(data []byte) ([]*Skill, error) {
	var f struct {
		Skills []*Skill `yaml:"skills"`
	}
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parsing skill YAML: %w", err)
	}
	return f.Skills, nil
}

// LoadRegistry reads every *.yaml file in dir into a Registry.
//
// Precondition: dir must be a readable directory.
func LoadRegistry(dir string) (*Registry, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("reading skill dir %q: %w", dir, err)
	}
	var all []*Skill
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), ".yaml") {
			continue
		}
		path := filepath.Join(dir, e.Name())
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("reading %q: %w", path, err)
		}
		ss, err := LoadFromBytes(data)
		if err != nil {
			return nil, fmt.Errorf("loading %q: %w", path, err)
		}
		all = append(all, ss...)
	}
	return NewRegistry(all)
}

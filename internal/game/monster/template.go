package monster

import (
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"gopkg.in/yaml.v3"
)

// TemplateStats is the authored stat block of a monster.
type TemplateStats struct {
	MaxHP            int `yaml:"max_hp"`
	Attack           int `yaml:"attack"`
	Defense          int `yaml:"defense"`
	Agility          int `yaml:"agility"`
	Evasion          int `yaml:"evasion"`
	Accuracy         int `yaml:"accuracy"`
	ExperienceReward int `yaml:"experience_reward"`
	GoldReward       int `yaml:"gold_reward"`
}

// Template defines a reusable monster archetype loaded from YAML.
type Template struct {
	ID          string        `yaml:"id"`
	Name        string        `yaml:"name"`
	Emoji       string        `yaml:"emoji"`
	Level       int           `yaml:"level"`
	Description string        `yaml:"description"`
	Stats       TemplateStats `yaml:"stats"`
}

// Validate checks that the template satisfies basic invariants.
//
// Postcondition: Returns nil iff ID and Name are non-empty, Level >= 1,
// MaxHP >= 1 and no stat or reward is negative.
func (t *Template) Validate() error {
	if t.ID == "" {
		return fmt.Errorf("monster template: id must not be empty")
	}
	if t.Name == "" {
		return fmt.Errorf("monster template %q: name must not be empty", t.ID)
	}
	if t.Level < 1 {
		return fmt.Errorf("monster template %q: level must be >= 1", t.ID)
	}
	if t.Stats.MaxHP < 1 {
		return fmt.Errorf("monster template %q: max_hp must be >= 1", t.ID)
	}
	s := t.Stats
	if s.Attack < 0 || s.Defense < 0 || s.Agility < 0 || s.Evasion < 0 || s.Accuracy < 0 {
		return fmt.Errorf("monster template %q: stats must not be negative", t.ID)
	}
	if s.ExperienceReward < 0 || s.GoldReward < 0 {
		return fmt.Errorf("monster template %q: rewards must not be negative", t.ID)
	}
	return nil
}

// Spawn returns a fresh snapshot of the template at full health.
//
// Postcondition: HP == MaxHP.
func (t *Template) Spawn() Snapshot {
	return Snapshot{
		ID:               t.ID,
		Name:             t.Name,
		Emoji:            t.Emoji,
		Level:            t.Level,
		Description:      strings.TrimSpace(t.Description),
		HP:               t.Stats.MaxHP,
		MaxHP:            t.Stats.MaxHP,
		Attack:           t.Stats.Attack,
		Defense:          t.Stats.Defense,
		Agility:          t.Stats.Agility,
		Evasion:          t.Stats.Evasion,
		Accuracy:         t.Stats.Accuracy,
		ExperienceReward: t.Stats.ExperienceReward,
		GoldReward:       t.Stats.GoldReward,
	}
}

// Catalog indexes templates by ID. It is read-only after construction.
type Catalog struct {
	templates map[string]*Template
}

// NewCatalog indexes templates, rejecting invalid or duplicate entries.
func NewCatalog(templates []*Template) (*Catalog, error) {
	c := &Catalog{templates: make(map[string]*Template, len(templates))}
	for _, t := range templates {
		if err := t.Validate(); err != nil {
			return nil, err
		}
		if _, dup := c.templates[t.ID]; dup {
			return nil, fmt.Errorf("duplicate monster template %q", t.ID)
		}
		c.templates[t.ID] = t
	}
	return c, nil
}

// Get returns the template with the given ID.
func (c *Catalog) Get(id string) (*Template, bool) {
	t, ok := c.templates[id]
	return t, ok
}

// Has reports whether id names a known template.
func (c *Catalog) Has(id string) bool {
	_, ok := c.templates[id]
	return ok
}

// Spawn returns a fresh snapshot of the template id.
func (c *Catalog) Spawn(id string) (Snapshot, bool) {
	t, ok := c.templates[id]
	if !ok {
		return Snapshot{}, false
	}
	return t.Spawn(), true
}

// Len returns the number of templates.
func (c *Catalog) Len() int { return len(c.templates) }

// IDs returns every template ID, sorted.
func (c *Catalog) IDs() []string {
	ids := make([]string, 0, len(c.templates))
	for id := range c.templates {
		ids = append(ids, id)
	}
	slices.Sort(ids)
	return ids
}

type yamlTemplateFile struct {
	Monsters []*Template `yaml:"monsters"`
}

// LoadTemplatesFromBytes parses a YAML file holding a "monsters:" list.
func LoadTemplatesFromBytes(data []byte) ([]*Template, error) {
	var f yamlTemplateFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parsing monster YAML: %w", err)
	}
	for _, t := range f.Monsters {
		if err := t.Validate(); err != nil {
			return nil, err
		}
	}
	return f.Monsters, nil
}

// LoadCatalog reads every *.yaml file in dir into a Catalog.
//
// Precondition: dir must be a readable directory.
// Postcondition: Returns a Catalog or the first parse/validate error; partial results are discarded.
func LoadCatalog(dir string) (*Catalog, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("reading monster dir %q: %w", dir, err)
	}
	var all []*Template
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".yaml") {
			continue
		}
		path := filepath.Join(dir, entry.Name())
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("reading %q: %w", path, err)
		}
		ts, err := LoadTemplatesFromBytes(data)
		if err != nil {
			return nil, fmt.Errorf("loading %q: %w", path, err)
		}
		all = append(all, ts...)
	}
	return NewCatalog(all)
}

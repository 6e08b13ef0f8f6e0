package world

import (
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"gopkg.in/yaml.v3"
)

// yamlFile is the top-level structure of a location content file. A file may
// hold any mix of locations and connections; connections may point into
// locations declared in other files.
type yamlFile struct {
	Locations   []yamlLocation   `yaml:"locations"`
	Connections []yamlConnection `yaml:"connections"`
}

type yamlLocation struct {
	ID             string              `yaml:"id"`
	Category       string              `yaml:"category"`
	Name           string              `yaml:"name"`
	Description    string              `yaml:"description"`
	Length         int                 `yaml:"length"`
	Difficulty     int                 `yaml:"difficulty"`
	EncounterRate  float64             `yaml:"encounter_rate"`
	Dungeon        *yamlDungeon        `yaml:"dungeon"`
	SpecialActions []yamlSpecialAction `yaml:"special_actions"`
	Spawns         []yamlSpawn         `yaml:"spawns"`
}

type yamlDungeon struct {
	Floors   int    `yaml:"floors"`
	MinLevel int    `yaml:"min_level"`
	MaxLevel int    `yaml:"max_level"`
	Boss     string `yaml:"boss"`
}

type yamlSpecialAction struct {
	Position       int    `yaml:"position"`
	Type           string `yaml:"type"`
	Label          string `yaml:"label"`
	Monster        string `yaml:"monster"`
	Gold           int    `yaml:"gold"`
	TargetLocation string `yaml:"target_location"`
	TargetPosition int    `yaml:"target_position"`
}

type yamlSpawn struct {
	Monster   string  `yaml:"monster"`
	SpawnRate float64 `yaml:"spawn_rate"`
	Priority  int     `yaml:"priority"`
	MinLevel  int     `yaml:"min_level"`
	MaxLevel  int     `yaml:"max_level"`
}

type yamlConnection struct {
	ID             string `yaml:"id"`
	From           string `yaml:"from"`
	FromPosition   *int   `yaml:"from_position"`
	To             string `yaml:"to"`
	ToPosition     *int   `yaml:"to_position"`
	Label          string `yaml:"label"`
	Shortcut       string `yaml:"shortcut"`
	EdgeType       string `yaml:"edge_type"`
	Direction      string `yaml:"direction"`
	Disabled       bool   `yaml:"disabled"`
	Bidirectional  bool   `yaml:"bidirectional"`
	ReturnLabel    string `yaml:"return_label"`
	ReturnShortcut string `yaml:"return_shortcut"`
}

// Content is the parsed, not yet indexed, contents of one or more files.
type Content struct {
	Locations   []*Location
	Connections []Connection
}

// LoadContentFromBytes parses one YAML content file.
//
// Postcondition: every returned location has passed Validate.
func LoadContentFromBytes(data []byte) (*Content, error) {
	var file yamlFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("parsing location YAML: %w", err)
	}
	out := &Content{}
	for _, yl := range file.Locations {
		loc := convertLocation(yl)
		if err := loc.Validate(); err != nil {
			return nil, fmt.Errorf("validating location: %w", err)
		}
		out.Locations = append(out.Locations, loc)
	}
	for _, yc := range file.Connections {
		out.Connections = append(out.Connections, convertConnection(yc)...)
	}
	return out, nil
}

// LoadGraphFromDir loads every *.yaml/*.yml file in dir into one Graph and
// validates cross-file references.
//
// Precondition: dir must be a readable directory.
// Postcondition: Returns a fully validated Graph or the first error encountered.
func LoadGraphFromDir(dir string) (*Graph, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("reading location directory %s: %w", dir, err)
	}
	var all Content
	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() || !(strings.HasSuffix(name, ".yaml") || strings.HasSuffix(name, ".yml")) {
			continue
		}
		data, err := os.ReadFile(filepath.Join(dir, name))
		if err != nil {
			return nil, fmt.Errorf("reading location file %s: %w", name, err)
		}
		c, err := LoadContentFromBytes(data)
		if err != nil {
			return nil, fmt.Errorf("loading locations from %s: %w", name, err)
		}
		all.Locations = append(all.Locations, c.Locations...)
		all.Connections = append(all.Connections, c.Connections...)
	}
	if len(all.Locations) == 0 {
		return nil, fmt.Errorf("no locations found in %s", dir)
	}
	g, err := NewGraph(all.Locations, all.Connections)
	if err != nil {
		return nil, err
	}
	if err := g.ValidateConnections(); err != nil {
		return nil, err
	}
	return g, nil
}

func convertLocation(yl yamlLocation) *Location {
	loc := &Location{
		ID:            yl.ID,
		Category:      Category(strings.ToLower(yl.Category)),
		Name:          yl.Name,
		Description:   strings.TrimSpace(yl.Description),
		Length:        yl.Length,
		Difficulty:    yl.Difficulty,
		EncounterRate: yl.EncounterRate,
	}
	if loc.Length == 0 && loc.Category.IsPathway() {
		loc.Length = MaxPosition
	}
	if yl.Dungeon != nil {
		loc.Dungeon = &DungeonInfo{
			Floors:   yl.Dungeon.Floors,
			MinLevel: yl.Dungeon.MinLevel,
			MaxLevel: yl.Dungeon.MaxLevel,
			Boss:     yl.Dungeon.Boss,
		}
	}
	for _, ya := range yl.SpecialActions {
		loc.SpecialActions = append(loc.SpecialActions, SpecialAction{
			Position:       ya.Position,
			Type:           SpecialActionType(ya.Type),
			Label:          ya.Label,
			Monster:        ya.Monster,
			Gold:           ya.Gold,
			TargetLocation: ya.TargetLocation,
			TargetPosition: ya.TargetPosition,
		})
	}
	slices.SortFunc(loc.SpecialActions, func(a, b SpecialAction) int { return a.Position - b.Position })
	for _, ys := range yl.Spawns {
		loc.Spawns = append(loc.Spawns, SpawnEntry{
			Monster:   ys.Monster,
			SpawnRate: ys.SpawnRate,
			Priority:  ys.Priority,
			MinLevel:  ys.MinLevel,
			MaxLevel:  ys.MaxLevel,
		})
	}
	return loc
}

// convertConnection returns the declared connection plus its reverse when the
// YAML marks it bidirectional. The reverse leaves from the forward target
// position and lands on the forward source position.
func convertConnection(yc yamlConnection) []Connection {
	fwd := Connection{
		ID:               yc.ID,
		SourceLocationID: yc.From,
		SourcePosition:   yc.FromPosition,
		TargetLocationID: yc.To,
		TargetPosition:   yc.ToPosition,
		ActionLabel:      yc.Label,
		KeyboardShortcut: yc.Shortcut,
		EdgeType:         yc.EdgeType,
		Direction:        Direction(yc.Direction),
		Enabled:          !yc.Disabled,
	}
	if !yc.Bidirectional {
		return []Connection{fwd}
	}
	rev := Connection{
		ID:               yc.ID + "~return",
		SourceLocationID: yc.To,
		SourcePosition:   yc.ToPosition,
		TargetLocationID: yc.From,
		TargetPosition:   yc.FromPosition,
		ActionLabel:      yc.ReturnLabel,
		KeyboardShortcut: yc.ReturnShortcut,
		EdgeType:         yc.EdgeType,
		Direction:        fwd.Direction.Opposite(),
		Enabled:          !yc.Disabled,
	}
	if rev.ActionLabel == "" {
		rev.ActionLabel = "Return"
	}
	return []Connection{fwd, rev}
}

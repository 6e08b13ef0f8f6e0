package world

import (
	"fmt"
	"slices"
	"strings"

	"github.com/cory-johannsen/wayfarer/internal/game/gameerr"
)

// Graph indexes locations and connections for O(1) lookup.
// It is read-only after construction and safe for concurrent use.
type Graph struct {
	locations   map[string]*Location
	connections map[string]Connection
	// outgoing holds connection IDs per source location, in declaration order.
	outgoing map[string][]string
	// branches holds the sorted interior source positions per pathway location.
	branches map[string][]int
	// directions holds every direction some connection leads in.
	directions map[Direction]struct{}
}

// NewGraph builds a Graph from validated locations and their connections.
//
// Precondition: every location has passed Validate.
// Postcondition: Returns a Graph, or an error on duplicate IDs, a connection
// leaving an unknown location, or a source position that does not fit its location.
// Connection targets are checked separately by ValidateConnections.
func NewGraph(locations []*Location, connections []Connection) (*Graph, error) {
	g := &Graph{
		locations:   make(map[string]*Location, len(locations)),
		connections: make(map[string]Connection, len(connections)),
		outgoing:    make(map[string][]string),
		branches:    make(map[string][]int),
		directions:  make(map[Direction]struct{}),
	}
	for _, l := range locations {
		if _, dup := g.locations[l.ID]; dup {
			return nil, fmt.Errorf("duplicate location ID %q", l.ID)
		}
		g.locations[l.ID] = l
	}
	for _, c := range connections {
		if c.ID == "" {
			return nil, fmt.Errorf("connection from %q has an empty ID", c.SourceLocationID)
		}
		if _, dup := g.connections[c.ID]; dup {
			return nil, fmt.Errorf("duplicate connection ID %q", c.ID)
		}
		src, ok := g.locations[c.SourceLocationID]
		if !ok {
			return nil, fmt.Errorf("connection %q leaves unknown location %q", c.ID, c.SourceLocationID)
		}
		if c.SourcePosition != nil {
			if !src.Category.IsPathway() {
				return nil, fmt.Errorf("connection %q: source position set on %s %q", c.ID, src.Category, src.ID)
			}
			if *c.SourcePosition < MinPosition || *c.SourcePosition > MaxPosition {
				return nil, fmt.Errorf("connection %q: source position %d outside [0,100]", c.ID, *c.SourcePosition)
			}
		}
		g.connections[c.ID] = c
		g.outgoing[c.SourceLocationID] = append(g.outgoing[c.SourceLocationID], c.ID)
		if c.Direction != "" {
			g.directions[c.Direction] = struct{}{}
		}
		if c.IsBranch() && !slices.Contains(g.branches[c.SourceLocationID], *c.SourcePosition) {
			g.branches[c.SourceLocationID] = append(g.branches[c.SourceLocationID], *c.SourcePosition)
		}
	}
	for _, positions := range g.branches {
		slices.Sort(positions)
	}
	return g, nil
}

// ParseDirection accepts a compass or branch direction, or any custom
// direction some connection in g uses.
//
// Postcondition: Returns gameerr.ErrInvalidDirection for any other input.
func (g *Graph) ParseDirection(s string) (Direction, error) {
	d := Direction(strings.ToLower(strings.TrimSpace(s)))
	if d.Opposite() != "" {
		return d, nil
	}
	if _, ok := g.directions[d]; ok && d != "" {
		return d, nil
	}
	return "", gameerr.ErrInvalidDirection.With("unknown direction %q", s)
}

// ValidateConnections checks that every connection lands on a known location
// at a position that location can hold. Call after NewGraph to catch dangling
// references in content.
//
// Postcondition: Returns nil if every target resolves, or an error naming the first bad connection.
func (g *Graph) ValidateConnections() error {
	for _, id := range g.sortedConnectionIDs() {
		c := g.connections[id]
		target, ok := g.locations[c.TargetLocationID]
		if !ok {
			return fmt.Errorf("connection %q targets unknown location %q", c.ID, c.TargetLocationID)
		}
		if c.TargetPosition == nil {
			continue
		}
		if !target.Category.IsPathway() && *c.TargetPosition != MinPosition {
			return fmt.Errorf("connection %q: target position %d on %s %q", c.ID, *c.TargetPosition, target.Category, target.ID)
		}
		if *c.TargetPosition < MinPosition || *c.TargetPosition > MaxPosition {
			return fmt.Errorf("connection %q: target position %d outside [0,100]", c.ID, *c.TargetPosition)
		}
	}
	for _, l := range g.sortedLocations() {
		for _, a := range l.SpecialActions {
			if a.Type != ActionTeleport {
				continue
			}
			if _, ok := g.locations[a.TargetLocation]; !ok {
				return fmt.Errorf("location %q: teleport at %d targets unknown location %q", l.ID, a.Position, a.TargetLocation)
			}
		}
	}
	return nil
}

// ValidateMonsters checks that every monster referenced by spawn tables,
// boss actions and dungeon metadata satisfies known.
//
// Precondition: known must be non-nil.
func (g *Graph) ValidateMonsters(known func(id string) bool) error {
	for _, l := range g.sortedLocations() {
		for _, s := range l.Spawns {
			if !known(s.Monster) {
				return fmt.Errorf("location %q: spawn references unknown monster %q", l.ID, s.Monster)
			}
		}
		for _, a := range l.SpecialActions {
			if a.Type == ActionBoss && !known(a.Monster) {
				return fmt.Errorf("location %q: boss at %d references unknown monster %q", l.ID, a.Position, a.Monster)
			}
		}
		if l.Dungeon != nil && l.Dungeon.Boss != "" && !known(l.Dungeon.Boss) {
			return fmt.Errorf("location %q: dungeon boss %q is unknown", l.ID, l.Dungeon.Boss)
		}
	}
	return nil
}

// GetLocation returns the location with the given category and ID.
//
// Postcondition: Returns the location, or gameerr.ErrLocationNotFound when the
// ID is unknown or recorded under another category.
func (g *Graph) GetLocation(category Category, id string) (*Location, error) {
	l, ok := g.locations[id]
	if !ok || l.Category != category {
		return nil, gameerr.ErrLocationNotFound.With("%s %q not found", category, id)
	}
	return l, nil
}

// Location returns the location with the given ID regardless of category.
func (g *Graph) Location(id string) (*Location, bool) {
	l, ok := g.locations[id]
	return l, ok
}

// Connection returns the connection with the given ID.
func (g *Graph) Connection(id string) (Connection, bool) {
	c, ok := g.connections[id]
	return c, ok
}

// ConnectionsFrom lists connections leaving locationID in declaration order.
// A nil position lists them all; otherwise only those visible at *position.
//
// Postcondition: Returns a non-nil slice.
func (g *Graph) ConnectionsFrom(locationID string, position *int) []Connection {
	ids := g.outgoing[locationID]
	out := make([]Connection, 0, len(ids))
	for _, id := range ids {
		c := g.connections[id]
		if position != nil && !IsVisible(c, *position) {
			continue
		}
		out = append(out, c)
	}
	return out
}

// BranchPositions returns the sorted interior positions of locationID that
// offer a choice of ways onward.
func (g *Graph) BranchPositions(locationID string) []int {
	return slices.Clone(g.branches[locationID])
}

// HasBranchAt reports whether pos is a branch point on locationID.
func (g *Graph) HasBranchAt(locationID string, pos int) bool {
	_, found := slices.BinarySearch(g.branches[locationID], pos)
	return found
}

// BranchOptions returns the connections leaving locationID from branch position pos.
func (g *Graph) BranchOptions(locationID string, pos int) []Connection {
	if !g.HasBranchAt(locationID, pos) {
		return nil
	}
	return g.ConnectionsFrom(locationID, &pos)
}

// SpecialActionAt returns the special action at pos on locationID.
func (g *Graph) SpecialActionAt(locationID string, pos int) (SpecialAction, bool) {
	l, ok := g.locations[locationID]
	if !ok {
		return SpecialAction{}, false
	}
	return l.SpecialActionAt(pos)
}

// LocationCount returns the number of loaded locations.
func (g *Graph) LocationCount() int { return len(g.locations) }

// ConnectionCount returns the number of loaded connections.
func (g *Graph) ConnectionCount() int { return len(g.connections) }

// Locations returns all locations sorted by ID.
func (g *Graph) Locations() []*Location { return g.sortedLocations() }

func (g *Graph) sortedLocations() []*Location {
	out := make([]*Location, 0, len(g.locations))
	for _, l := range g.locations {
		out = append(out, l)
	}
	slices.SortFunc(out, func(a, b *Location) int { return strings.Compare(a.ID, b.ID) })
	return out
}

func (g *Graph) sortedConnectionIDs() []string {
	ids := make([]string, 0, len(g.connections))
	for id := range g.connections {
		ids = append(ids, id)
	}
	slices.Sort(ids)
	return ids
}

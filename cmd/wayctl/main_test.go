package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/cory-johannsen/wayfarer/internal/game/world"
)

// sampleConfig writes a config pointing at the repository's content tree.
func sampleConfig(t *testing.T) string {
	t.Helper()
	root, err := filepath.Abs(filepath.Join("..", "..", "content"))
	require.NoError(t, err)
	cfg := fmt.Sprintf(`
storage:
  driver: sqlite
content:
  locations_dir: %[1]s/locations
  monsters_dir: %[1]s/monsters
  skills_dir: %[1]s/skills
  scripts_dir: %[1]s/scripts/skills
game:
  start_location: starting_village
  defeat_town: starting_village
  starter_skills: [power_strike, first_aid]
`, filepath.ToSlash(root))
	path := filepath.Join(t.TempDir(), "wayctl.yaml")
	require.NoError(t, os.WriteFile(path, []byte(cfg), 0o600))
	return path
}

func TestSampleContentIsValid(t *testing.T) {
	ct, err := loadContent(sampleConfig(t))
	require.NoError(t, err)
	require.NoError(t, validateContent(ct))

	assert.True(t, ct.graph.HasBranchAt("kings_road", 50))
	opts := ct.graph.BranchOptions("kings_road", 50)
	assert.Len(t, opts, 2)

	back, ok := ct.graph.Connection("village_east_gate~return")
	require.True(t, ok)
	assert.Equal(t, "starting_village", back.TargetLocationID)
	assert.True(t, world.IsVisible(back, 0))
	assert.False(t, world.IsVisible(back, 1))

	bridge, ok := ct.graph.Connection("highmoor_north_road")
	require.True(t, ok)
	assert.False(t, bridge.Enabled)

	for _, id := range []string{"slime", "wolf", "goblin", "cave_bat", "goblin_king"} {
		assert.True(t, ct.catalog.Has(id), id)
	}
}

func TestValidateContent_UnknownStarterSkill(t *testing.T) {
	ct, err := loadContent(sampleConfig(t))
	require.NoError(t, err)
	ct.cfg.Game.StarterSkills = []string{"fireball"}
	assert.ErrorContains(t, validateContent(ct), "fireball")
}

func TestSimulateBattle_Terminates(t *testing.T) {
	ct, err := loadContent(sampleConfig(t))
	require.NoError(t, err)
	slime, ok := ct.catalog.Spawn("slime")
	require.True(t, ok)

	res, err := simulateBattle(context.Background(), ct, slime, 7, 3, 100, zaptest.NewLogger(t))
	require.NoError(t, err)
	assert.True(t, res.State.Terminal(), "state %s after %d turns", res.State, res.Turn)
	assert.NotEmpty(t, res.Log)
}

func TestSortedKeys(t *testing.T) {
	assert.Equal(t, []string{"a", "b", "c"}, sortedKeys(map[string]int{"c": 3, "a": 1, "b": 2}))
	assert.Contains(t, sortedKeys(rpcCalls), "move")
}

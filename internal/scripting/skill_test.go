package scripting_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cory-johannsen/wayfarer/internal/scripting"
)

const drainScript = `
function skill_drain(caster, target, power)
	local dmg = power + math.floor(caster.attack / 2)
	engine.log.debug("drain for " .. dmg)
	return { damage = dmg, heal = math.floor(dmg / 2), message = caster.name .. " drains " .. target.name }
end

function skill_focus(caster, target, power)
	return { attack = power, defense = -1 }
end

function skill_silent(caster, target, power)
end
`

func TestManager_RunSkill(t *testing.T) {
	mgr, _ := newTestManager(t)
	require.NoError(t, mgr.LoadString(drainScript, 0))

	caster := scripting.Combatant{Name: "Ayla", Attack: 10, HP: 20, MaxHP: 50}
	target := scripting.Combatant{Name: "Slime", HP: 30, MaxHP: 30}

	out, err := mgr.RunSkill(context.Background(), "skill_drain", caster, target, 6)
	require.NoError(t, err)
	assert.Equal(t, 11, out.Damage)
	assert.Equal(t, 5, out.Heal)
	assert.Equal(t, "Ayla drains Slime", out.Message)

	out, err = mgr.RunSkill(context.Background(), "skill_focus", caster, target, 3)
	require.NoError(t, err)
	assert.Equal(t, 3, out.AttackDelta)
	assert.Equal(t, -1, out.DefenseDelta)
	assert.Zero(t, out.Damage)

	out, err = mgr.RunSkill(context.Background(), "skill_silent", caster, target, 3)
	require.NoError(t, err)
	assert.Equal(t, scripting.SkillOutcome{}, out)
}

func TestManager_RunSkill_UndefinedHook(t *testing.T) {
	mgr, _ := newTestManager(t)
	_, err := mgr.RunSkill(context.Background(), "skill_x", scripting.Combatant{}, scripting.Combatant{}, 1)
	assert.Error(t, err)

	require.NoError(t, mgr.LoadString(drainScript, 0))
	_, err = mgr.RunSkill(context.Background(), "skill_x", scripting.Combatant{}, scripting.Combatant{}, 1)
	assert.ErrorContains(t, err, "not defined")
}

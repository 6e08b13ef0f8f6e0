package scripting

import (
	"context"
	"fmt"

	lua "github.com/yuin/gopher-lua"
)

// Combatant is the state of one side of a battle as seen by a skill script.
type Combatant struct {
	Name     string
	HP       int
	MaxHP    int
	MP       int
	SP       int
	Attack   int
	Defense  int
	Agility  int
	Evasion  int
	Accuracy int
}

// SkillOutcome is what a skill script asks the battle engine to apply.
// Damage is dealt to the target, Heal restores the caster, the stat deltas
// buff the caster for the rest of the battle.
type SkillOutcome struct {
	Damage       int
	Heal         int
	AttackDelta  int
	DefenseDelta int
	AgilityDelta int
	Message      string
}

// RunSkill invokes hook(caster, target, power) and decodes the returned table.
// A hook that returns nothing yields a zero outcome.
//
// Postcondition: Damage and Heal are never negative.
func (m *Manager) RunSkill(ctx context.Context, hook string, caster, target Combatant, power int) (SkillOutcome, error) {
	m.mu.Lock()
	L := m.L
	m.mu.Unlock()
	if L == nil {
		return SkillOutcome{}, fmt.Errorf("scripting: no scripts loaded for hook %q", hook)
	}
	if !m.HasHook(hook) {
		return SkillOutcome{}, fmt.Errorf("scripting: hook %q is not defined", hook)
	}

	ret, err := m.CallHook(ctx, hook, m.combatantTable(caster), m.combatantTable(target), lua.LNumber(power))
	if err != nil {
		return SkillOutcome{}, err
	}
	tbl, ok := ret.(*lua.LTable)
	if !ok {
		return SkillOutcome{}, nil
	}
	out := SkillOutcome{
		Damage:       max(0, intField(tbl, "damage")),
		Heal:         max(0, intField(tbl, "heal")),
		AttackDelta:  intField(tbl, "attack"),
		DefenseDelta: intField(tbl, "defense"),
		AgilityDelta: intField(tbl, "agility"),
	}
	if s, ok := tbl.RawGetString("message").(lua.LString); ok {
		out.Message = string(s)
	}
	return out, nil
}

// combatantTable builds the read-only view handed to scripts. Tables are
// created on the manager's VM, so the caller must not hold mu.
func (m *Manager) combatantTable(c Combatant) *lua.LTable {
	m.mu.Lock()
	defer m.mu.Unlock()
	t := m.L.NewTable()
	t.RawSetString("name", lua.LString(c.Name))
	t.RawSetString("hp", lua.LNumber(c.HP))
	t.RawSetString("max_hp", lua.LNumber(c.MaxHP))
	t.RawSetString("mp", lua.LNumber(c.MP))
	t.RawSetString("sp", lua.LNumber(c.SP))
	t.RawSetString("attack", lua.LNumber(c.Attack))
	t.RawSetString("defense", lua.LNumber(c.Defense))
	t.RawSetString("agility", lua.LNumber(c.Agility))
	t.RawSetString("evasion", lua.LNumber(c.Evasion))
	t.RawSetString("accuracy", lua.LNumber(c.Accuracy))
	return t
}

func intField(t *lua.LTable, key string) int {
	if n, ok := t.RawGetString(key).(lua.LNumber); ok {
		return int(n)
	}
	return 0
}

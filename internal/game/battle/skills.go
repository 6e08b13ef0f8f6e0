package battle

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/cory-johannsen/wayfarer/internal/game/gameerr"
	"github.com/cory-johannsen/wayfarer/internal/game/monster"
	"github.com/cory-johannsen/wayfarer/internal/game/skill"
	"github.com/cory-johannsen/wayfarer/internal/scripting"
)

// UseSkill spends the skill's cost and applies its effect, then proceeds like
// Attack: end check, monster counter, end check, persist.
//
// Postcondition: on any returned error the stored battle is unchanged.
func (e *Engine) UseSkill(ctx context.Context, userID int64, skillID string) (Result, error) {
	ab, err := e.load(ctx, userID)
	if err != nil {
		return Result{}, err
	}
	sk, ok := e.skills.Get(skillID)
	if !ok {
		return Result{}, gameerr.ErrUnknownSkill.With("unknown skill %q", skillID)
	}
	if !ab.Character.HasSkill(skillID) {
		return Result{}, gameerr.ErrSkillNotOwned.With("you have not learned %s", sk.Name)
	}
	if err := spend(&ab.Character, sk); err != nil {
		return Result{}, err
	}

	expected := ab.Turn
	msg, err := e.applySkill(ctx, ab, sk)
	if err != nil {
		return Result{}, err
	}
	if ab.Monster.IsDefeated() {
		return e.finish(ctx, ab, expected, Victory)
	}
	return e.counterAndSave(ctx, ab, expected, false, true, msg)
}

// spend deducts the skill cost from c.
//
// Postcondition: c is unchanged when ErrInsufficientResource is returned.
func spend(c *Character, sk *skill.Skill) error {
	pool := &c.MP
	if sk.CostType == skill.CostSP {
		pool = &c.SP
	}
	if *pool < sk.Cost {
		return gameerr.ErrInsufficientResource.With("%s needs %d %s, you have %d", sk.Name, sk.Cost, sk.CostType, *pool)
	}
	*pool -= sk.Cost
	return nil
}

func (e *Engine) applySkill(ctx context.Context, ab *ActiveBattle, sk *skill.Skill) (string, error) {
	c, m := &ab.Character, &ab.Monster
	entry := LogEntry{Turn: ab.Turn, Actor: ActorPlayer, Action: "skill:" + sk.ID, Hit: true}
	switch sk.Effect {
	case skill.EffectDamage:
		dmg := BaseDamage(c.Attack+sk.Power, m.Defense)
		m.ApplyDamage(dmg)
		entry.Damage = dmg
		entry.Message = fmt.Sprintf("%s uses %s for %d damage!", c.Name, sk.Name, dmg)
	case skill.EffectHeal:
		healed := min(sk.Power, c.MaxHP-c.HP)
		c.HP += healed
		entry.Message = fmt.Sprintf("%s uses %s and recovers %d HP.", c.Name, sk.Name, healed)
	case skill.EffectBuff:
		buff(c, sk.Stat, sk.Power)
		entry.Message = fmt.Sprintf("%s uses %s. %s +%d!", c.Name, sk.Name, sk.Stat, sk.Power)
	case skill.EffectScript:
		if e.scripts == nil {
			return "", gameerr.ErrUnknownSkill.With("%s cannot be used here", sk.Name)
		}
		out, err := e.scripts.RunSkill(ctx, sk.HookName(), characterCombatant(c), monsterCombatant(m), sk.Power)
		if err != nil {
			e.logger.Error("skill script failed",
				zap.String("battle_id", ab.BattleID),
				zap.Int64("user_id", ab.UserID),
				zap.String("skill", sk.ID),
				zap.Error(err),
			)
			return "", gameerr.ErrInternal.Wrap(err)
		}
		if out.Damage > 0 {
			m.ApplyDamage(out.Damage)
		}
		c.HP = min(c.MaxHP, c.HP+out.Heal)
		buff(c, "attack", out.AttackDelta)
		buff(c, "defense", out.DefenseDelta)
		buff(c, "agility", out.AgilityDelta)
		entry.Damage = out.Damage
		entry.Message = out.Message
		if entry.Message == "" {
			entry.Message = fmt.Sprintf("%s uses %s!", c.Name, sk.Name)
		}
	}
	ab.Log = append(ab.Log, entry)
	return entry.Message, nil
}

// buff changes a battle-only stat, never below zero.
func buff(c *Character, stat string, delta int) {
	switch stat {
	case "attack":
		c.Attack = max(0, c.Attack+delta)
	case "defense":
		c.Defense = max(0, c.Defense+delta)
	case "agility":
		c.Agility = max(0, c.Agility+delta)
	}
}

func characterCombatant(c *Character) scripting.Combatant {
	return scripting.Combatant{
		Name:     c.Name,
		HP:       c.HP,
		MaxHP:    c.MaxHP,
		MP:       c.MP,
		SP:       c.SP,
		Attack:   c.Attack,
		Defense:  c.Defense,
		Agility:  c.Agility,
		Evasion:  c.Evasion,
		Accuracy: c.Accuracy,
	}
}

func monsterCombatant(m *monster.Snapshot) scripting.Combatant {
	return scripting.Combatant{
		Name:     m.Name,
		HP:       m.HP,
		MaxHP:    m.MaxHP,
		Attack:   m.Attack,
		Defense:  m.Defense,
		Agility:  m.Agility,
		Evasion:  m.Evasion,
		Accuracy: m.Accuracy,
	}
}

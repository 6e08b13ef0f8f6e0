package battle

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/cory-johannsen/wayfarer/internal/game/dice"
	"github.com/cory-johannsen/wayfarer/internal/game/gameerr"
	"github.com/cory-johannsen/wayfarer/internal/game/monster"
	"github.com/cory-johannsen/wayfarer/internal/game/player"
	"github.com/cory-johannsen/wayfarer/internal/game/skill"
	"github.com/cory-johannsen/wayfarer/internal/scripting"
	"github.com/cory-johannsen/wayfarer/internal/storage"
)

// BattleStore persists active battles. Implementations return
// storage.ErrBattleNotFound, storage.ErrBattleExists and storage.ErrStaleWrite.
type BattleStore interface {
	Get(ctx context.Context, userID int64) (*ActiveBattle, error)
	Create(ctx context.Context, ab *ActiveBattle) error
	// Update overwrites the battle only if its stored turn equals expectedTurn.
	Update(ctx context.Context, ab *ActiveBattle, expectedTurn int) error
	Delete(ctx context.Context, userID int64) error
	// Complete applies c atomically: player row updated, history appended,
	// active battle deleted if its turn still equals c.ExpectedTurn.
	Complete(ctx context.Context, c Completion) error
}

// PlayerStore is the read side of player persistence the engine needs.
type PlayerStore interface {
	Get(ctx context.Context, userID int64) (*player.Player, error)
	SkillIDs(ctx context.Context, userID int64) ([]string, error)
}

// SkillScripter runs scripted skill effects.
type SkillScripter interface {
	RunSkill(ctx context.Context, hook string, caster, target scripting.Combatant, power int) (scripting.SkillOutcome, error)
}

// Invalidator drops cached per-user state after a battle ends.
type Invalidator interface {
	Purge(userID int64)
}

// Engine runs battles. Callers serialise operations per user; the store's
// turn guard rejects anything that slips through.
type Engine struct {
	battles BattleStore
	players PlayerStore
	skills  *skill.Registry
	scripts SkillScripter
	cache   Invalidator
	src     dice.Source
	balance Balance
	logger  *zap.Logger
	now     func() time.Time
	newID   func() string
}

// Option customises an Engine.
type Option func(*Engine)

// WithScripter enables scripted skills.
func WithScripter(s SkillScripter) Option { return func(e *Engine) { e.scripts = s } }

// WithInvalidator registers a cache purged whenever a battle ends.
func WithInvalidator(c Invalidator) Option { return func(e *Engine) { e.cache = c } }

// WithClock overrides time.Now.
func WithClock(now func() time.Time) Option { return func(e *Engine) { e.now = now } }

// NewEngine creates a battle Engine.
//
// Precondition: battles, players, skills, src and logger must be non-nil.
func NewEngine(battles BattleStore, players PlayerStore, skills *skill.Registry, src dice.Source, balance Balance, logger *zap.Logger, opts ...Option) *Engine {
	e := &Engine{
		battles: battles,
		players: players,
		skills:  skills,
		src:     src,
		balance: balance,
		logger:  logger,
		now:     time.Now,
		newID:   uuid.NewString,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Balance returns the engine's balance constants.
func (e *Engine) Balance() Balance { return e.balance }

// Start opens a battle between p and m at turn 1.
//
// Precondition: p is the authoritative player state.
// Postcondition: an ActiveBattle is persisted, or gameerr.ErrBattleInProgress
// when the user already has one.
func (e *Engine) Start(ctx context.Context, p *player.Player, m monster.Snapshot) (Result, error) {
	if _, err := e.battles.Get(ctx, p.UserID); err == nil {
		return Result{}, gameerr.ErrBattleInProgress
	} else if !errors.Is(err, storage.ErrBattleNotFound) {
		return Result{}, e.internal(err, "", p.UserID, "load_battle")
	}

	skills, err := e.players.SkillIDs(ctx, p.UserID)
	if err != nil {
		e.logger.Warn("loading skills failed, battling without skills",
			zap.Int64("user_id", p.UserID),
			zap.Error(err),
		)
		skills = nil
	}

	m.Normalize()
	now := e.now()
	ab := &ActiveBattle{
		BattleID:  e.newID(),
		UserID:    p.UserID,
		Character: NewCharacter(p, skills),
		Monster:   m,
		Turn:      1,
		CreatedAt: now,
		UpdatedAt: now,
	}
	ab.Log = append(ab.Log, LogEntry{
		Turn:    1,
		Actor:   ActorSystem,
		Action:  "start",
		Message: fmt.Sprintf("%s %s appears!", m.Emoji, m.Name),
	})

	if err := e.battles.Create(ctx, ab); err != nil {
		if errors.Is(err, storage.ErrBattleExists) {
			return Result{}, gameerr.ErrBattleInProgress
		}
		return Result{}, e.internal(err, ab.BattleID, p.UserID, "create_battle")
	}
	e.logger.Info("battle started",
		zap.String("battle_id", ab.BattleID),
		zap.Int64("user_id", p.UserID),
		zap.String("monster", m.ID),
	)
	return resultFrom(ab, InProgress, true, ab.Log[0].Message), nil
}

// Current returns the user's in-progress battle.
func (e *Engine) Current(ctx context.Context, userID int64) (Result, error) {
	ab, err := e.load(ctx, userID)
	if err != nil {
		return Result{}, err
	}
	return resultFrom(ab, InProgress, true, ""), nil
}

// Attack resolves a player attack followed by the monster's counter.
func (e *Engine) Attack(ctx context.Context, userID int64) (Result, error) {
	ab, err := e.load(ctx, userID)
	if err != nil {
		return Result{}, err
	}
	expected := ab.Turn
	msg := e.playerStrike(ab)
	if ab.Monster.IsDefeated() {
		return e.finish(ctx, ab, expected, Victory)
	}
	return e.counterAndSave(ctx, ab, expected, false, true, msg)
}

// Defend braces for the monster's counter, which still happens this turn.
func (e *Engine) Defend(ctx context.Context, userID int64) (Result, error) {
	ab, err := e.load(ctx, userID)
	if err != nil {
		return Result{}, err
	}
	expected := ab.Turn
	msg := fmt.Sprintf("%s braces for the attack.", ab.Character.Name)
	ab.Log = append(ab.Log, LogEntry{Turn: ab.Turn, Actor: ActorPlayer, Action: "defend", Message: msg})
	return e.counterAndSave(ctx, ab, expected, true, true, msg)
}

// Escape tries to flee. A failed attempt gives the monster a free attack and
// is reported with Success false, not as an error.
func (e *Engine) Escape(ctx context.Context, userID int64) (Result, error) {
	ab, err := e.load(ctx, userID)
	if err != nil {
		return Result{}, err
	}
	expected := ab.Turn
	chance := e.balance.EscapeChance(ab.Character.Agility, ab.Monster.Agility)
	if dice.Chance(e.src, chance) {
		ab.Log = append(ab.Log, LogEntry{Turn: ab.Turn, Actor: ActorPlayer, Action: "escape", Hit: true,
			Message: fmt.Sprintf("%s got away safely!", ab.Character.Name)})
		return e.finish(ctx, ab, expected, Escaped)
	}
	msg := fmt.Sprintf("%s couldn't escape!", ab.Character.Name)
	ab.Log = append(ab.Log, LogEntry{Turn: ab.Turn, Actor: ActorPlayer, Action: "escape", Message: msg})
	return e.counterAndSave(ctx, ab, expected, false, false, msg)
}

// ForceEnd deletes the user's battle without payouts. It succeeds when there
// is no battle, so calling it twice is safe.
func (e *Engine) ForceEnd(ctx context.Context, userID int64) (Result, error) {
	ab, err := e.battles.Get(ctx, userID)
	if errors.Is(err, storage.ErrBattleNotFound) {
		e.purge(userID)
		return Result{State: ForcedEnd, Success: true, Message: "no active battle"}, nil
	}
	if err != nil {
		return Result{}, e.internal(err, "", userID, "load_battle")
	}
	if err := e.battles.Delete(ctx, userID); err != nil && !errors.Is(err, storage.ErrBattleNotFound) {
		return Result{}, e.internal(err, ab.BattleID, userID, "delete_battle")
	}
	e.purge(userID)
	e.logger.Info("battle force-ended",
		zap.String("battle_id", ab.BattleID),
		zap.Int64("user_id", userID),
	)
	ab.Log = append(ab.Log, LogEntry{Turn: ab.Turn, Actor: ActorSystem, Action: "end", Message: "The battle was ended."})
	return resultFrom(ab, ForcedEnd, true, "The battle was ended."), nil
}

// playerStrike resolves a basic player attack against the monster.
func (e *Engine) playerStrike(ab *ActiveBattle) string {
	c, m := &ab.Character, &ab.Monster
	entry := LogEntry{Turn: ab.Turn, Actor: ActorPlayer, Action: "attack"}
	if !dice.Chance(e.src, e.balance.HitChance(c.Accuracy, m.Evasion)) {
		entry.Message = fmt.Sprintf("%s's attack missed!", c.Name)
		ab.Log = append(ab.Log, entry)
		return entry.Message
	}
	dmg := BaseDamage(c.Attack, m.Defense)
	if dice.Chance(e.src, e.balance.CritChance) {
		dmg = e.balance.CritDamage(dmg)
		entry.Critical = true
	}
	m.ApplyDamage(dmg)
	entry.Hit, entry.Damage = true, dmg
	if entry.Critical {
		entry.Message = fmt.Sprintf("Critical hit! %s deals %d damage to %s.", c.Name, dmg, m.Name)
	} else {
		entry.Message = fmt.Sprintf("%s deals %d damage to %s.", c.Name, dmg, m.Name)
	}
	ab.Log = append(ab.Log, entry)
	return entry.Message
}

// monsterStrike resolves the monster's turn. The monster always attacks.
func (e *Engine) monsterStrike(ab *ActiveBattle, defending bool) {
	c, m := &ab.Character, &ab.Monster
	entry := LogEntry{Turn: ab.Turn, Actor: ActorMonster, Action: "attack"}
	if !dice.Chance(e.src, e.balance.HitChance(m.Accuracy, c.Evasion)) {
		entry.Message = fmt.Sprintf("%s's attack missed!", m.Name)
		ab.Log = append(ab.Log, entry)
		return
	}
	dmg := BaseDamage(m.Attack, c.Defense)
	if dice.Chance(e.src, e.balance.CritChance) {
		dmg = e.balance.CritDamage(dmg)
		entry.Critical = true
	}
	if defending {
		dmg = e.balance.Defended(dmg)
	}
	c.HP = max(0, c.HP-dmg)
	entry.Hit, entry.Damage = true, dmg
	entry.Message = fmt.Sprintf("%s deals %d damage to %s.", m.Name, dmg, c.Name)
	ab.Log = append(ab.Log, entry)
}

// counterAndSave lets the monster act, then either ends the battle in defeat
// or advances the turn and persists.
func (e *Engine) counterAndSave(ctx context.Context, ab *ActiveBattle, expected int, defending, success bool, msg string) (Result, error) {
	e.monsterStrike(ab, defending)
	if ab.Character.HP <= 0 {
		return e.finish(ctx, ab, expected, Defeat)
	}
	ab.Turn++
	ab.UpdatedAt = e.now()
	if err := e.battles.Update(ctx, ab, expected); err != nil {
		if errors.Is(err, storage.ErrStaleWrite) || errors.Is(err, storage.ErrBattleNotFound) {
			return Result{}, gameerr.ErrTurnConflict
		}
		return Result{}, e.internal(err, ab.BattleID, ab.UserID, "update_battle")
	}
	return resultFrom(ab, InProgress, success, msg), nil
}

func (e *Engine) load(ctx context.Context, userID int64) (*ActiveBattle, error) {
	ab, err := e.battles.Get(ctx, userID)
	if errors.Is(err, storage.ErrBattleNotFound) {
		return nil, gameerr.ErrNoActiveBattle
	}
	if err != nil {
		return nil, e.internal(err, "", userID, "load_battle")
	}
	return ab, nil
}

func (e *Engine) purge(userID int64) {
	if e.cache != nil {
		e.cache.Purge(userID)
	}
}

// internal logs a persistence fault with full context and converts it to
// the generic failure surfaced to players.
func (e *Engine) internal(err error, battleID string, userID int64, op string) error {
	e.logger.Error("battle persistence failed",
		zap.String("battle_id", battleID),
		zap.Int64("user_id", userID),
		zap.String("operation", op),
		zap.Error(err),
	)
	return gameerr.ErrInternal.Wrap(err)
}

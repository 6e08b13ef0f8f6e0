package battle

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/cory-johannsen/wayfarer/internal/game/gameerr"
	"github.com/cory-johannsen/wayfarer/internal/game/monster"
	"github.com/cory-johannsen/wayfarer/internal/game/player"
	"github.com/cory-johannsen/wayfarer/internal/game/world"
	"github.com/cory-johannsen/wayfarer/internal/storage"
)

// battleData is the JSON stored with each history row.
type battleData struct {
	Character Character       `json:"character"`
	Monster   monster.UIShape `json:"monster"`
	Log       []LogEntry      `json:"log"`
}

// finish runs the end sequence for a terminal state: apply rewards or
// penalties to the authoritative player, append the final log entry, then
// persist player, history and battle deletion in one store call.
//
// Precondition: state is Victory, Defeat or Escaped.
func (e *Engine) finish(ctx context.Context, ab *ActiveBattle, expected int, state State) (Result, error) {
	p, err := e.players.Get(ctx, ab.UserID)
	if err != nil {
		return Result{}, e.internal(err, ab.BattleID, ab.UserID, "load_player")
	}

	p.HP, p.MP, p.SP = ab.Character.HP, ab.Character.MP, ab.Character.SP
	p.ClampVitals()

	rewards := &Rewards{}
	var msg string
	switch state {
	case Victory:
		rewards.Experience = ab.Monster.ExperienceReward
		rewards.Gold = ab.Monster.GoldReward
		p.Gold += rewards.Gold
		rewards.LevelsGained = p.GainExperience(rewards.Experience, e.balance.Growth)
		msg = fmt.Sprintf("%s was defeated! You gain %d experience and %d gold.", ab.Monster.Name, rewards.Experience, rewards.Gold)
		if rewards.LevelsGained > 0 {
			msg += fmt.Sprintf(" You reached level %d!", p.Level)
		}
	case Defeat:
		rewards.GoldLost = e.balance.GoldLoss(p.Gold)
		p.Gold -= rewards.GoldLost
		p.Position = player.Position{LocationType: world.Town, LocationID: e.balance.DefeatTown, Position: world.MinPosition}
		p.HP = 1
		rewards.Relocated = &p.Position
		msg = fmt.Sprintf("You were defeated by %s and lost %d gold. You wake up in town.", ab.Monster.Name, rewards.GoldLost)
	case Escaped:
		msg = "You escaped from battle."
	default:
		return Result{}, e.internal(fmt.Errorf("finish called with %s", state), ab.BattleID, ab.UserID, "finish")
	}
	ab.Log = append(ab.Log, LogEntry{Turn: ab.Turn, Actor: ActorSystem, Action: string(state), Message: msg})
	ab.Character.HP = p.HP

	data, err := json.Marshal(battleData{Character: ab.Character, Monster: monster.ToUIShape(ab.Monster), Log: ab.Log})
	if err != nil {
		return Result{}, e.internal(err, ab.BattleID, ab.UserID, "encode_history")
	}
	completion := Completion{
		UserID:       ab.UserID,
		BattleID:     ab.BattleID,
		ExpectedTurn: expected,
		Player:       p,
		History: HistoryRecord{
			UserID:           ab.UserID,
			BattleID:         ab.BattleID,
			MonsterName:      ab.Monster.Name,
			Result:           state,
			ExperienceGained: rewards.Experience,
			GoldGained:       rewards.Gold,
			GoldLost:         rewards.GoldLost,
			Turns:            ab.Turn,
			BattleData:       data,
			EndedAt:          e.now(),
		},
	}
	if err := e.battles.Complete(ctx, completion); err != nil {
		if errors.Is(err, storage.ErrStaleWrite) || errors.Is(err, storage.ErrBattleNotFound) {
			return Result{}, gameerr.ErrTurnConflict
		}
		return Result{}, e.internal(err, ab.BattleID, ab.UserID, "complete_battle")
	}
	e.purge(ab.UserID)
	e.logger.Info("battle ended",
		zap.String("battle_id", ab.BattleID),
		zap.Int64("user_id", ab.UserID),
		zap.String("result", string(state)),
		zap.Int("turns", ab.Turn),
	)

	res := resultFrom(ab, state, true, msg)
	res.Rewards = rewards
	return res, nil
}

package gameserver

import (
	"fmt"
	"slices"

	"github.com/cory-johannsen/wayfarer/internal/config"
	"github.com/cory-johannsen/wayfarer/internal/game/battle"
	"github.com/cory-johannsen/wayfarer/internal/game/dice"
	"github.com/cory-johannsen/wayfarer/internal/game/player"
)

// DefaultHistoryLimit is used when a history request asks for no limit.
const DefaultHistoryLimit = 20

// MaxHistoryLimit caps a single history request.
const MaxHistoryLimit = 100

// Rules are the movement and onboarding knobs the Service applies.
type Rules struct {
	MovementDice         dice.Expression
	BonusDivisor         int
	MaxSteps             int
	EncountersInDungeons bool
	StartLocation        string
	StarterSkills        []string
}

// DefaultRules mirrors the configuration defaults.
func DefaultRules() Rules {
	return Rules{
		MovementDice:         dice.MustParse("3d6"),
		BonusDivisor:         10,
		MaxSteps:             100,
		EncountersInDungeons: true,
		StartLocation:        "starting_village",
	}
}

// RulesFromConfig builds Rules from validated configuration.
//
// Precondition: cfg passed Validate.
// Postcondition: Returns an error only when the dice expression does not parse.
func RulesFromConfig(cfg config.Config) (Rules, error) {
	expr, err := dice.Parse(cfg.Movement.Dice)
	if err != nil {
		return Rules{}, fmt.Errorf("parsing movement dice: %w", err)
	}
	return Rules{
		MovementDice:         expr,
		BonusDivisor:         cfg.Movement.BonusDivisor,
		MaxSteps:             cfg.Movement.MaxSteps,
		EncountersInDungeons: cfg.Movement.EncountersInDungeons,
		StartLocation:        cfg.Game.StartLocation,
		StarterSkills:        slices.Clone(cfg.Game.StarterSkills),
	}, nil
}

// BalanceFromConfig converts the battle section into battle.Balance.
func BalanceFromConfig(cfg config.Config) battle.Balance {
	b := cfg.Battle
	return battle.Balance{
		HitBase:               b.HitBase,
		HitPerPoint:           b.HitPerPoint,
		HitMin:                b.HitMin,
		HitMax:                b.HitMax,
		CritChance:            b.CritChance,
		CritMultiplier:        b.CritMultiplier,
		DefendReduction:       b.DefendReduction,
		EscapeBase:            b.EscapeBase,
		EscapePerAgility:      b.EscapePerAgility,
		EscapeMin:             b.EscapeMin,
		EscapeMax:             b.EscapeMax,
		DefeatGoldLossPercent: b.DefeatGoldLossPercent,
		DefeatTown:            cfg.Game.DefeatTown,
		Growth: player.Growth{
			ExperiencePerLevel: b.ExperiencePerLevel,
			HP:                 b.LevelHP,
			MP:                 b.LevelMP,
			SP:                 b.LevelSP,
			Attack:             b.LevelAttack,
			Defense:            b.LevelDefense,
			Agility:            b.LevelAgility,
		},
	}
}

package battle

import (
	"math"

	"github.com/cory-johannsen/wayfarer/internal/game/player"
)

// Balance holds every tunable constant of the battle formulas.
type Balance struct {
	HitBase     float64
	HitPerPoint float64
	HitMin      float64
	HitMax      float64

	CritChance     float64
	CritMultiplier float64

	// DefendReduction is the fraction of counter damage a defending player avoids.
	DefendReduction float64

	EscapeBase       float64
	EscapePerAgility float64
	EscapeMin        float64
	EscapeMax        float64

	DefeatGoldLossPercent int
	// DefeatTown is where defeated players wake up, at position 0 with 1 HP.
	DefeatTown string

	Growth player.Growth
}

// DefaultBalance returns the shipped balance.
func DefaultBalance() Balance {
	return Balance{
		HitBase:               0.85,
		HitPerPoint:           0.01,
		HitMin:                0.10,
		HitMax:                0.98,
		CritChance:            0.10,
		CritMultiplier:        1.5,
		DefendReduction:       0.5,
		EscapeBase:            0.5,
		EscapePerAgility:      0.02,
		EscapeMin:             0.10,
		EscapeMax:             0.90,
		DefeatGoldLossPercent: 10,
		DefeatTown:            "starting_village",
		Growth:                player.DefaultGrowth,
	}
}

// HitChance is clamp(HitBase + (accuracy-evasion)*HitPerPoint, HitMin, HitMax).
func (b Balance) HitChance(accuracy, evasion int) float64 {
	return clampf(b.HitBase+float64(accuracy-evasion)*b.HitPerPoint, b.HitMin, b.HitMax)
}

// EscapeChance is clamp(EscapeBase + (playerAgi-monsterAgi)*EscapePerAgility, EscapeMin, EscapeMax).
func (b Balance) EscapeChance(playerAgility, monsterAgility int) float64 {
	return clampf(b.EscapeBase+float64(playerAgility-monsterAgility)*b.EscapePerAgility, b.EscapeMin, b.EscapeMax)
}

// BaseDamage is max(1, attack-defense).
func BaseDamage(attack, defense int) int {
	return max(1, attack-defense)
}

// CritDamage applies the crit multiplier, flooring and keeping at least 1.
func (b Balance) CritDamage(dmg int) int {
	return max(1, int(math.Floor(float64(dmg)*b.CritMultiplier)))
}

// Defended applies the defend reduction, flooring and keeping at least 1.
func (b Balance) Defended(dmg int) int {
	return max(1, int(math.Floor(float64(dmg)*(1-b.DefendReduction))))
}

// GoldLoss is the gold forfeited on defeat, floored.
func (b Balance) GoldLoss(gold int) int {
	if gold <= 0 {
		return 0
	}
	return gold * b.DefeatGoldLossPercent / 100
}

func clampf(v, lo, hi float64) float64 {
	return math.Min(math.Max(v, lo), hi)
}

package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/cory-johannsen/wayfarer/internal/game/battle"
)

// HistoryRepository reads finished battles. Rows are written by BattleRepository.Complete.
type HistoryRepository struct {
	db *pgxpool.Pool
}

// NewHistoryRepository creates a HistoryRepository backed by the given pool.
//
// Precondition: db must be a valid, open connection pool.
func NewHistoryRepository(db *pgxpool.Pool) *HistoryRepository {
	return &HistoryRepository{db: db}
}

// ListByUser returns the user's most recent battles, newest first.
//
// Precondition: limit > 0.
// Postcondition: Returns a slice (may be empty) or a non-nil error.
func (r *HistoryRepository) ListByUser(ctx context.Context, userID int64, limit int) ([]battle.HistoryRecord, error) {
	rows, err := r.db.Query(ctx, `
		SELECT id, user_id, battle_id::text, monster_name, result, experience_gained,
		       gold_gained, gold_lost, turns, battle_data, ended_at
		FROM battle_history WHERE user_id = $1
		ORDER BY ended_at DESC, id DESC
		LIMIT $2`,
		userID, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("listing battle history: %w", err)
	}
	defer rows.Close()

	records := make([]battle.HistoryRecord, 0)
	for rows.Next() {
		var (
			h      battle.HistoryRecord
			result string
		)
		if err := rows.Scan(
			&h.ID, &h.UserID, &h.BattleID, &h.MonsterName, &result, &h.ExperienceGained,
			&h.GoldGained, &h.GoldLost, &h.Turns, &h.BattleData, &h.EndedAt,
		); err != nil {
			return nil, fmt.Errorf("scanning battle history row: %w", err)
		}
		h.Result = battle.State(result)
		records = append(records, h)
	}
	return records, rows.Err()
}

package sqlite

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/cory-johannsen/wayfarer/internal/game/battle"
)

// HistoryRepository reads finished battles. Rows are written by BattleRepository.Complete.
type HistoryRepository struct {
	db *sql.DB
}

// NewHistoryRepository creates a HistoryRepository on d.
func NewHistoryRepository(d *DB) *HistoryRepository {
	return &HistoryRepository{db: d.db}
}

// ListByUser returns the user's most recent battles, newest first.
func (r *HistoryRepository) ListByUser(ctx context.Context, userID int64, limit int) ([]battle.HistoryRecord, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, user_id, battle_id, monster_name, result, experience_gained,
		       gold_gained, gold_lost, turns, battle_data, ended_at
		FROM battle_history WHERE user_id = ?
		ORDER BY ended_at DESC, id DESC
		LIMIT ?`,
		userID, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("list battle history: %w", err)
	}
	defer rows.Close()

	records := make([]battle.HistoryRecord, 0)
	for rows.Next() {
		var (
			h       battle.HistoryRecord
			result  string
			data    string
			endedAt int64
		)
		if err := rows.Scan(
			&h.ID, &h.UserID, &h.BattleID, &h.MonsterName, &result, &h.ExperienceGained,
			&h.GoldGained, &h.GoldLost, &h.Turns, &data, &endedAt,
		); err != nil {
			return nil, fmt.Errorf("scan battle history: %w", err)
		}
		h.Result = battle.State(result)
		h.BattleData = []byte(data)
		h.EndedAt = fromUnixNano(endedAt)
		records = append(records, h)
	}
	return records, rows.Err()
}

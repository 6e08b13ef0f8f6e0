package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/cory-johannsen/wayfarer/internal/game/battle"
	"github.com/cory-johannsen/wayfarer/internal/storage"
	"github.com/cory-johannsen/wayfarer/internal/storage/codec"
)

// BattleRepository persists active battles. A user has at most one.
type BattleRepository struct {
	db  *sql.DB
	now func() time.Time
}

// NewBattleRepository creates a BattleRepository on d.
func NewBattleRepository(d *DB) *BattleRepository {
	return &BattleRepository{db: d.db, now: time.Now}
}

// Get retrieves the user's active battle, or storage.ErrBattleNotFound.
func (r *BattleRepository) Get(ctx context.Context, userID int64) (*battle.ActiveBattle, error) {
	var (
		ab                             battle.ActiveBattle
		charData, monsterData, logData string
		createdAt, updatedAt           int64
	)
	err := r.db.QueryRowContext(ctx, `
		SELECT battle_id, user_id, character_data, monster_data, battle_log, turn, created_at, updated_at
		FROM active_battles WHERE user_id = ?`,
		userID,
	).Scan(&ab.BattleID, &ab.UserID, &charData, &monsterData, &logData, &ab.Turn, &createdAt, &updatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, storage.ErrBattleNotFound
		}
		return nil, fmt.Errorf("query active battle: %w", err)
	}
	if err := codec.DecodeBattle(&ab, []byte(charData), []byte(monsterData), []byte(logData)); err != nil {
		return nil, err
	}
	ab.CreatedAt = fromUnixNano(createdAt)
	ab.UpdatedAt = fromUnixNano(updatedAt)
	return &ab, nil
}

// Create inserts a new active battle, or returns storage.ErrBattleExists.
func (r *BattleRepository) Create(ctx context.Context, ab *battle.ActiveBattle) error {
	charData, monsterData, logData, err := codec.EncodeBattle(ab)
	if err != nil {
		return err
	}
	_, err = r.db.ExecContext(ctx, `
		INSERT INTO active_battles
			(user_id, battle_id, character_data, monster_data, battle_log, turn, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		ab.UserID, ab.BattleID, string(charData), string(monsterData), string(logData), ab.Turn,
		unixNano(ab.CreatedAt), unixNano(ab.UpdatedAt),
	)
	if err != nil {
		if isDuplicateKeyError(err) {
			return storage.ErrBattleExists
		}
		return fmt.Errorf("insert active battle: %w", err)
	}
	return nil
}

// Update overwrites the battle if its stored turn still equals expectedTurn.
// It returns storage.ErrStaleWrite when the turn moved on and
// storage.ErrBattleNotFound when the battle is gone.
func (r *BattleRepository) Update(ctx context.Context, ab *battle.ActiveBattle, expectedTurn int) error {
	charData, monsterData, logData, err := codec.EncodeBattle(ab)
	if err != nil {
		return err
	}
	res, err := r.db.ExecContext(ctx, `
		UPDATE active_battles
		SET character_data = ?, monster_data = ?, battle_log = ?, turn = ?, updated_at = ?
		WHERE user_id = ? AND battle_id = ? AND turn = ?`,
		string(charData), string(monsterData), string(logData), ab.Turn, unixNano(ab.UpdatedAt),
		ab.UserID, ab.BattleID, expectedTurn,
	)
	if err != nil {
		return fmt.Errorf("update active battle: %w", err)
	}
	if n, err := res.RowsAffected(); err != nil {
		return fmt.Errorf("update active battle: %w", err)
	} else if n == 0 {
		return r.missingOrStale(ctx, ab.UserID, ab.BattleID)
	}
	return nil
}

// Delete removes the user's active battle. Deleting a missing battle is not an error.
func (r *BattleRepository) Delete(ctx context.Context, userID int64) error {
	if _, err := r.db.ExecContext(ctx, `DELETE FROM active_battles WHERE user_id = ?`, userID); err != nil {
		return fmt.Errorf("delete active battle: %w", err)
	}
	return nil
}

// Complete deletes the active battle, saves the player and appends the
// history row in one transaction. It returns storage.ErrStaleWrite, and
// writes nothing, when the battle's turn no longer equals c.ExpectedTurn.
func (r *BattleRepository) Complete(ctx context.Context, c battle.Completion) (err error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	res, err := tx.ExecContext(ctx, `
		DELETE FROM active_battles WHERE user_id = ? AND battle_id = ? AND turn = ?`,
		c.UserID, c.BattleID, c.ExpectedTurn,
	)
	if err != nil {
		return fmt.Errorf("delete active battle: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete active battle: %w", err)
	}
	if n == 0 {
		return storage.ErrStaleWrite
	}
	if err = savePlayer(ctx, tx, c.Player, r.now()); err != nil {
		return err
	}
	h := c.History
	_, err = tx.ExecContext(ctx, `
		INSERT INTO battle_history
			(user_id, battle_id, monster_name, result, experience_gained, gold_gained,
			 gold_lost, turns, battle_data, ended_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		h.UserID, h.BattleID, h.MonsterName, string(h.Result), h.ExperienceGained, h.GoldGained,
		h.GoldLost, h.Turns, string(h.BattleData), unixNano(h.EndedAt),
	)
	if err != nil {
		return fmt.Errorf("insert battle history: %w", err)
	}
	if err = tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}

func (r *BattleRepository) missingOrStale(ctx context.Context, userID int64, battleID string) error {
	var exists bool
	err := r.db.QueryRowContext(ctx, `
		SELECT EXISTS (SELECT 1 FROM active_battles WHERE user_id = ? AND battle_id = ?)`,
		userID, battleID,
	).Scan(&exists)
	if err != nil {
		return fmt.Errorf("check active battle: %w", err)
	}
	if !exists {
		return storage.ErrBattleNotFound
	}
	return storage.ErrStaleWrite
}

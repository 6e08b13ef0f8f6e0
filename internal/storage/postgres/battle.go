package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/cory-johannsen/wayfarer/internal/game/battle"
	"github.com/cory-johannsen/wayfarer/internal/storage"
	"github.com/cory-johannsen/wayfarer/internal/storage/codec"
)

// BattleRepository persists active battles. A user has at most one.
type BattleRepository struct {
	db *pgxpool.Pool
}

// NewBattleRepository creates a BattleRepository backed by the given pool.
//
// Precondition: db must be a valid, open connection pool.
func NewBattleRepository(db *pgxpool.Pool) *BattleRepository {
	return &BattleRepository{db: db}
}

// Get retrieves the user's active battle.
//
// Postcondition: Returns the battle with a normalized monster, or storage.ErrBattleNotFound.
func (r *BattleRepository) Get(ctx context.Context, userID int64) (*battle.ActiveBattle, error) {
	var (
		ab                    battle.ActiveBattle
		charData, monsterData []byte
		logData               []byte
	)
	err := r.db.QueryRow(ctx, `
		SELECT battle_id::text, user_id, character_data, monster_data, battle_log, turn, created_at, updated_at
		FROM active_battles WHERE user_id = $1`,
		userID,
	).Scan(&ab.BattleID, &ab.UserID, &charData, &monsterData, &logData, &ab.Turn, &ab.CreatedAt, &ab.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, storage.ErrBattleNotFound
		}
		return nil, fmt.Errorf("querying active battle: %w", err)
	}
	if err := codec.DecodeBattle(&ab, charData, monsterData, logData); err != nil {
		return nil, err
	}
	return &ab, nil
}

// Create inserts a new active battle.
//
// Precondition: ab.Turn >= 1 and ab.BattleID is a UUID.
// Postcondition: Returns nil, or storage.ErrBattleExists if the user already has one.
func (r *BattleRepository) Create(ctx context.Context, ab *battle.ActiveBattle) error {
	charData, monsterData, logData, err := codec.EncodeBattle(ab)
	if err != nil {
		return err
	}
	_, err = r.db.Exec(ctx, `
		INSERT INTO active_battles
			(user_id, battle_id, character_data, monster_data, battle_log, turn, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		ab.UserID, ab.BattleID, charData, monsterData, logData, ab.Turn, ab.CreatedAt, ab.UpdatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return storage.ErrBattleExists
		}
		return fmt.Errorf("inserting active battle: %w", err)
	}
	return nil
}

// Update overwrites the battle if its stored turn still equals expectedTurn.
//
// Postcondition: Returns nil, storage.ErrStaleWrite when the turn moved on,
// or storage.ErrBattleNotFound when the battle is gone.
func (r *BattleRepository) Update(ctx context.Context, ab *battle.ActiveBattle, expectedTurn int) error {
	charData, monsterData, logData, err := codec.EncodeBattle(ab)
	if err != nil {
		return err
	}
	tag, err := r.db.Exec(ctx, `
		UPDATE active_battles
		SET character_data = $3, monster_data = $4, battle_log = $5, turn = $6, updated_at = $7
		WHERE user_id = $1 AND battle_id = $2 AND turn = $8`,
		ab.UserID, ab.BattleID, charData, monsterData, logData, ab.Turn, ab.UpdatedAt, expectedTurn,
	)
	if err != nil {
		return fmt.Errorf("updating active battle: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return r.missingOrStale(ctx, ab.UserID, ab.BattleID)
	}
	return nil
}

// Delete removes the user's active battle. Deleting a missing battle is not an error.
func (r *BattleRepository) Delete(ctx context.Context, userID int64) error {
	if _, err := r.db.Exec(ctx, `DELETE FROM active_battles WHERE user_id = $1`, userID); err != nil {
		return fmt.Errorf("deleting active battle: %w", err)
	}
	return nil
}

// Complete deletes the active battle, saves the player and appends the
// history row in one transaction.
//
// Postcondition: Either every write lands or none does. Returns
// storage.ErrStaleWrite when the battle's turn no longer equals c.ExpectedTurn.
func (r *BattleRepository) Complete(ctx context.Context, c battle.Completion) error {
	return pgx.BeginFunc(ctx, r.db, func(tx pgx.Tx) error {
		tag, err := tx.Exec(ctx, `
			DELETE FROM active_battles WHERE user_id = $1 AND battle_id = $2 AND turn = $3`,
			c.UserID, c.BattleID, c.ExpectedTurn,
		)
		if err != nil {
			return fmt.Errorf("deleting active battle: %w", err)
		}
		if tag.RowsAffected() == 0 {
			return storage.ErrStaleWrite
		}
		if err := savePlayer(ctx, tx, c.Player); err != nil {
			return err
		}
		h := c.History
		_, err = tx.Exec(ctx, `
			INSERT INTO battle_history
				(user_id, battle_id, monster_name, result, experience_gained, gold_gained,
				 gold_lost, turns, battle_data, ended_at)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`,
			h.UserID, h.BattleID, h.MonsterName, string(h.Result), h.ExperienceGained, h.GoldGained,
			h.GoldLost, h.Turns, h.BattleData, h.EndedAt,
		)
		if err != nil {
			return fmt.Errorf("inserting battle history: %w", err)
		}
		return nil
	})
}

func (r *BattleRepository) missingOrStale(ctx context.Context, userID int64, battleID string) error {
	var exists bool
	err := r.db.QueryRow(ctx, `
		SELECT EXISTS (SELECT 1 FROM active_battles WHERE user_id = $1 AND battle_id = $2)`,
		userID, battleID,
	).Scan(&exists)
	if err != nil {
		return fmt.Errorf("checking active battle: %w", err)
	}
	if !exists {
		return storage.ErrBattleNotFound
	}
	return storage.ErrStaleWrite
}

package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/cory-johannsen/wayfarer/internal/game/player"
	"github.com/cory-johannsen/wayfarer/internal/game/world"
	"github.com/cory-johannsen/wayfarer/internal/storage"
)

const playerColumns = `user_id, name, location_type, location_id, game_position,
	hp, max_hp, mp, max_mp, sp, max_sp, gold, level, experience,
	attack, defense, agility, evasion, accuracy`

// PlayerRepository persists players, their positions and their learned skills.
type PlayerRepository struct {
	db  *sql.DB
	now func() time.Time
}

// NewPlayerRepository creates a PlayerRepository on d.
func NewPlayerRepository(d *DB) *PlayerRepository {
	return &PlayerRepository{db: d.db, now: time.Now}
}

// Create inserts a new player and teaches it skillIDs in one transaction, or
// returns storage.ErrPlayerExists.
func (r *PlayerRepository) Create(ctx context.Context, p *player.Player, skillIDs ...string) (err error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	pos := p.Position.Normalize()
	_, err = tx.ExecContext(ctx, `
		INSERT INTO players (`+playerColumns+`, updated_at)
		VALUES (?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?)`,
		p.UserID, p.Name, string(pos.LocationType), pos.LocationID, pos.Position,
		p.HP, p.MaxHP, p.MP, p.MaxMP, p.SP, p.MaxSP, p.Gold, p.Level, p.Experience,
		p.Attack, p.Defense, p.Agility, p.Evasion, p.Accuracy, r.now().UnixNano(),
	)
	if err != nil {
		if isDuplicateKeyError(err) {
			return storage.ErrPlayerExists
		}
		return fmt.Errorf("insert player: %w", err)
	}
	for _, id := range skillIDs {
		if _, err = tx.ExecContext(ctx, `
			INSERT INTO player_skills (user_id, skill_id) VALUES (?, ?)
			ON CONFLICT DO NOTHING`,
			p.UserID, id,
		); err != nil {
			return fmt.Errorf("grant skill %q: %w", id, err)
		}
	}
	if err = tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}

// Get retrieves the full player aggregate, or storage.ErrPlayerNotFound.
func (r *PlayerRepository) Get(ctx context.Context, userID int64) (*player.Player, error) {
	var (
		p        player.Player
		category string
	)
	err := r.db.QueryRowContext(ctx, `SELECT `+playerColumns+` FROM players WHERE user_id = ?`, userID).Scan(
		&p.UserID, &p.Name, &category, &p.Position.LocationID, &p.Position.Position,
		&p.HP, &p.MaxHP, &p.MP, &p.MaxMP, &p.SP, &p.MaxSP, &p.Gold, &p.Level, &p.Experience,
		&p.Attack, &p.Defense, &p.Agility, &p.Evasion, &p.Accuracy,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, storage.ErrPlayerNotFound
		}
		return nil, fmt.Errorf("query player: %w", err)
	}
	p.Position.LocationType = world.Category(category)
	p.Position = p.Position.Normalize()
	return &p, nil
}

// Position retrieves only the player's position, or storage.ErrPlayerNotFound.
func (r *PlayerRepository) Position(ctx context.Context, userID int64) (player.Position, error) {
	var (
		pos      player.Position
		category string
	)
	err := r.db.QueryRowContext(ctx, `
		SELECT location_type, location_id, game_position FROM players WHERE user_id = ?`,
		userID,
	).Scan(&category, &pos.LocationID, &pos.Position)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return player.Position{}, storage.ErrPlayerNotFound
		}
		return player.Position{}, fmt.Errorf("query position: %w", err)
	}
	pos.LocationType = world.Category(category)
	return pos.Normalize(), nil
}

// UpdatePosition moves the player to next only if the stored position still
// equals expected. It returns storage.ErrStaleWrite when it does not.
func (r *PlayerRepository) UpdatePosition(ctx context.Context, userID int64, expected, next player.Position) error {
	next = next.Normalize()
	res, err := r.db.ExecContext(ctx, `
		UPDATE players
		SET location_type = ?, location_id = ?, game_position = ?, updated_at = ?
		WHERE user_id = ? AND location_type = ? AND location_id = ? AND game_position = ?`,
		string(next.LocationType), next.LocationID, next.Position, r.now().UnixNano(),
		userID, string(expected.LocationType), expected.LocationID, expected.Position,
	)
	if err != nil {
		return fmt.Errorf("update position: %w", err)
	}
	if n, err := res.RowsAffected(); err != nil {
		return fmt.Errorf("update position: %w", err)
	} else if n == 0 {
		return r.missingOrStale(ctx, userID)
	}
	return nil
}

// SaveVitals persists HP, MP, SP and gold.
func (r *PlayerRepository) SaveVitals(ctx context.Context, p *player.Player) error {
	res, err := r.db.ExecContext(ctx, `
		UPDATE players SET hp = ?, mp = ?, sp = ?, gold = ?, updated_at = ? WHERE user_id = ?`,
		p.HP, p.MP, p.SP, p.Gold, r.now().UnixNano(), p.UserID,
	)
	if err != nil {
		return fmt.Errorf("save vitals: %w", err)
	}
	if n, err := res.RowsAffected(); err != nil {
		return fmt.Errorf("save vitals: %w", err)
	} else if n == 0 {
		return storage.ErrPlayerNotFound
	}
	return nil
}

// ClaimTreasure records that the user looted the treasure at locationID and
// position and adds gold to the player, in one transaction. It returns the
// new gold total, or storage.ErrTreasureClaimed when the treasure was already
// looted.
func (r *PlayerRepository) ClaimTreasure(ctx context.Context, userID int64, locationID string, position, gold int) (total int, err error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("begin: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	now := r.now().UnixNano()
	_, err = tx.ExecContext(ctx, `
		INSERT INTO player_treasures (user_id, location_id, game_position, gold, claimed_at)
		VALUES (?, ?, ?, ?, ?)`,
		userID, locationID, position, gold, now,
	)
	if err != nil {
		switch {
		case isDuplicateKeyError(err):
			return 0, storage.ErrTreasureClaimed
		case isForeignKeyError(err):
			return 0, storage.ErrPlayerNotFound
		}
		return 0, fmt.Errorf("insert treasure claim: %w", err)
	}
	err = tx.QueryRowContext(ctx, `
		UPDATE players SET gold = gold + ?, updated_at = ? WHERE user_id = ? RETURNING gold`,
		gold, now, userID,
	).Scan(&total)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return 0, storage.ErrPlayerNotFound
		}
		return 0, fmt.Errorf("add treasure gold: %w", err)
	}
	if err = tx.Commit(); err != nil {
		return 0, fmt.Errorf("commit: %w", err)
	}
	return total, nil
}

// SkillIDs returns the skills the player has learned, ordered by id.
func (r *PlayerRepository) SkillIDs(ctx context.Context, userID int64) ([]string, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT skill_id FROM player_skills WHERE user_id = ? ORDER BY skill_id`,
		userID,
	)
	if err != nil {
		return nil, fmt.Errorf("list skills: %w", err)
	}
	defer rows.Close()

	ids := []string{}
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan skill: %w", err)
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// GrantSkill teaches the player skillID. Granting a known skill is a no-op.
func (r *PlayerRepository) GrantSkill(ctx context.Context, userID int64, skillID string) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO player_skills (user_id, skill_id) VALUES (?, ?)
		ON CONFLICT DO NOTHING`,
		userID, skillID,
	)
	if err != nil {
		if isForeignKeyError(err) {
			return storage.ErrPlayerNotFound
		}
		return fmt.Errorf("grant skill: %w", err)
	}
	return nil
}

func (r *PlayerRepository) missingOrStale(ctx context.Context, userID int64) error {
	var exists bool
	if err := r.db.QueryRowContext(ctx, `SELECT EXISTS (SELECT 1 FROM players WHERE user_id = ?)`, userID).Scan(&exists); err != nil {
		return fmt.Errorf("check player: %w", err)
	}
	if !exists {
		return storage.ErrPlayerNotFound
	}
	return storage.ErrStaleWrite
}

// savePlayer writes every mutable player column inside tx.
func savePlayer(ctx context.Context, tx *sql.Tx, p *player.Player, now time.Time) error {
	pos := p.Position.Normalize()
	res, err := tx.ExecContext(ctx, `
		UPDATE players SET
			location_type = ?, location_id = ?, game_position = ?,
			hp = ?, max_hp = ?, mp = ?, max_mp = ?, sp = ?, max_sp = ?,
			gold = ?, level = ?, experience = ?,
			attack = ?, defense = ?, agility = ?, evasion = ?, accuracy = ?,
			updated_at = ?
		WHERE user_id = ?`,
		string(pos.LocationType), pos.LocationID, pos.Position,
		p.HP, p.MaxHP, p.MP, p.MaxMP, p.SP, p.MaxSP,
		p.Gold, p.Level, p.Experience,
		p.Attack, p.Defense, p.Agility, p.Evasion, p.Accuracy,
		now.UnixNano(), p.UserID,
	)
	if err != nil {
		return fmt.Errorf("save player: %w", err)
	}
	if n, err := res.RowsAffected(); err != nil {
		return fmt.Errorf("save player: %w", err)
	} else if n == 0 {
		return storage.ErrPlayerNotFound
	}
	return nil
}

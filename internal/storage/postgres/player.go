package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/cory-johannsen/wayfarer/internal/game/player"
	"github.com/cory-johannsen/wayfarer/internal/game/world"
	"github.com/cory-johannsen/wayfarer/internal/storage"
)

const playerColumns = `user_id, name, location_type, location_id, game_position,
	hp, max_hp, mp, max_mp, sp, max_sp, gold, level, experience,
	attack, defense, agility, evasion, accuracy`

// PlayerRepository persists players, their positions and their learned skills.
type PlayerRepository struct {
	db *pgxpool.Pool
}

// NewPlayerRepository creates a PlayerRepository backed by the given pool.
//
// Precondition: db must be a valid, open connection pool.
func NewPlayerRepository(db *pgxpool.Pool) *PlayerRepository {
	return &PlayerRepository{db: db}
}

// Create inserts a new player and teaches it skillIDs in one transaction.
//
// Precondition: p.UserID > 0 and p.Position is normalized.
// Postcondition: Either the player and every skill land or nothing does.
// Returns storage.ErrPlayerExists when the user already has a player.
func (r *PlayerRepository) Create(ctx context.Context, p *player.Player, skillIDs ...string) error {
	return pgx.BeginFunc(ctx, r.db, func(tx pgx.Tx) error {
		pos := p.Position.Normalize()
		_, err := tx.Exec(ctx, `
			INSERT INTO players (`+playerColumns+`)
			VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16,$17,$18,$19)`,
			p.UserID, p.Name, string(pos.LocationType), pos.LocationID, pos.Position,
			p.HP, p.MaxHP, p.MP, p.MaxMP, p.SP, p.MaxSP, p.Gold, p.Level, p.Experience,
			p.Attack, p.Defense, p.Agility, p.Evasion, p.Accuracy,
		)
		if err != nil {
			if isUniqueViolation(err) {
				return storage.ErrPlayerExists
			}
			return fmt.Errorf("inserting player: %w", err)
		}
		batch := &pgx.Batch{}
		for _, id := range skillIDs {
			batch.Queue(`INSERT INTO player_skills (user_id, skill_id) VALUES ($1, $2) ON CONFLICT DO NOTHING`, p.UserID, id)
		}
		if err := tx.SendBatch(ctx, batch).Close(); err != nil {
			return fmt.Errorf("granting starter skills: %w", err)
		}
		return nil
	})
}

// Get retrieves the full player aggregate.
//
// Postcondition: Returns the Player or storage.ErrPlayerNotFound.
func (r *PlayerRepository) Get(ctx context.Context, userID int64) (*player.Player, error) {
	p, err := scanPlayer(r.db.QueryRow(ctx, `SELECT `+playerColumns+` FROM players WHERE user_id = $1`, userID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, storage.ErrPlayerNotFound
		}
		return nil, fmt.Errorf("querying player: %w", err)
	}
	return p, nil
}

// Position retrieves only the player's position.
//
// Postcondition: Returns the normalized Position or storage.ErrPlayerNotFound.
func (r *PlayerRepository) Position(ctx context.Context, userID int64) (player.Position, error) {
	var (
		pos      player.Position
		category string
	)
	err := r.db.QueryRow(ctx, `
		SELECT location_type, location_id, game_position FROM players WHERE user_id = $1`,
		userID,
	).Scan(&category, &pos.LocationID, &pos.Position)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return player.Position{}, storage.ErrPlayerNotFound
		}
		return player.Position{}, fmt.Errorf("querying position: %w", err)
	}
	pos.LocationType = world.Category(category)
	return pos.Normalize(), nil
}

// UpdatePosition moves the player to next only if the stored position still
// equals expected.
//
// Postcondition: Returns nil on success, storage.ErrStaleWrite when the stored
// position differs from expected, or storage.ErrPlayerNotFound.
func (r *PlayerRepository) UpdatePosition(ctx context.Context, userID int64, expected, next player.Position) error {
	next = next.Normalize()
	tag, err := r.db.Exec(ctx, `
		UPDATE players
		SET location_type = $5, location_id = $6, game_position = $7, updated_at = NOW()
		WHERE user_id = $1 AND location_type = $2 AND location_id = $3 AND game_position = $4`,
		userID, string(expected.LocationType), expected.LocationID, expected.Position,
		string(next.LocationType), next.LocationID, next.Position,
	)
	if err != nil {
		return fmt.Errorf("updating position: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return r.missingOrStale(ctx, userID)
	}
	return nil
}

// SaveVitals persists HP, MP, SP and gold.
//
// Postcondition: Returns nil on success or storage.ErrPlayerNotFound.
func (r *PlayerRepository) SaveVitals(ctx context.Context, p *player.Player) error {
	tag, err := r.db.Exec(ctx, `
		UPDATE players SET hp = $2, mp = $3, sp = $4, gold = $5, updated_at = NOW()
		WHERE user_id = $1`,
		p.UserID, p.HP, p.MP, p.SP, p.Gold,
	)
	if err != nil {
		return fmt.Errorf("saving vitals: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return storage.ErrPlayerNotFound
	}
	return nil
}

// ClaimTreasure records that the user looted the treasure at locationID and
// position and adds gold to the player.
//
// Postcondition: Returns the new gold total. Returns storage.ErrTreasureClaimed,
// and changes nothing, when the treasure was already looted.
func (r *PlayerRepository) ClaimTreasure(ctx context.Context, userID int64, locationID string, position, gold int) (int, error) {
	var total int
	err := pgx.BeginFunc(ctx, r.db, func(tx pgx.Tx) error {
		tag, err := tx.Exec(ctx, `
			INSERT INTO player_treasures (user_id, location_id, game_position, gold)
			SELECT $1, $2, $3, $4 WHERE EXISTS (SELECT 1 FROM players WHERE user_id = $1)
			ON CONFLICT DO NOTHING`,
			userID, locationID, position, gold,
		)
		if err != nil {
			return fmt.Errorf("inserting treasure claim: %w", err)
		}
		if tag.RowsAffected() == 0 {
			return r.missingOrClaimed(ctx, tx, userID)
		}
		err = tx.QueryRow(ctx, `
			UPDATE players SET gold = gold + $2, updated_at = NOW() WHERE user_id = $1 RETURNING gold`,
			userID, gold,
		).Scan(&total)
		if err != nil {
			return fmt.Errorf("adding treasure gold: %w", err)
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	return total, nil
}

func (r *PlayerRepository) missingOrClaimed(ctx context.Context, tx pgx.Tx, userID int64) error {
	var exists bool
	if err := tx.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM players WHERE user_id = $1)`, userID).Scan(&exists); err != nil {
		return fmt.Errorf("checking player: %w", err)
	}
	if !exists {
		return storage.ErrPlayerNotFound
	}
	return storage.ErrTreasureClaimed
}

// SkillIDs returns the skills the player has learned, ordered by id.
//
// Postcondition: Returns a non-nil slice (may be empty) or a non-nil error.
func (r *PlayerRepository) SkillIDs(ctx context.Context, userID int64) ([]string, error) {
	rows, err := r.db.Query(ctx, `
		SELECT skill_id FROM player_skills WHERE user_id = $1 ORDER BY skill_id`,
		userID,
	)
	if err != nil {
		return nil, fmt.Errorf("listing skills: %w", err)
	}
	ids, err := pgx.CollectRows(rows, pgx.RowTo[string])
	if err != nil {
		return nil, fmt.Errorf("scanning skill row: %w", err)
	}
	if ids == nil {
		ids = []string{}
	}
	return ids, nil
}

// GrantSkill teaches the player skillID. Granting a known skill is a no-op.
//
// Postcondition: Returns nil on success or storage.ErrPlayerNotFound.
func (r *PlayerRepository) GrantSkill(ctx context.Context, userID int64, skillID string) error {
	_, err := r.db.Exec(ctx, `
		INSERT INTO player_skills (user_id, skill_id) VALUES ($1, $2)
		ON CONFLICT DO NOTHING`,
		userID, skillID,
	)
	if err != nil {
		var pgErr interface{ SQLState() string }
		// 23503 is foreign_key_violation: no such player.
		if errors.As(err, &pgErr) && pgErr.SQLState() == "23503" {
			return storage.ErrPlayerNotFound
		}
		return fmt.Errorf("granting skill: %w", err)
	}
	return nil
}

func (r *PlayerRepository) missingOrStale(ctx context.Context, userID int64) error {
	var exists bool
	if err := r.db.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM players WHERE user_id = $1)`, userID).Scan(&exists); err != nil {
		return fmt.Errorf("checking player: %w", err)
	}
	if !exists {
		return storage.ErrPlayerNotFound
	}
	return storage.ErrStaleWrite
}

func scanPlayer(row pgx.Row) (*player.Player, error) {
	var (
		p        player.Player
		category string
	)
	err := row.Scan(
		&p.UserID, &p.Name, &category, &p.Position.LocationID, &p.Position.Position,
		&p.HP, &p.MaxHP, &p.MP, &p.MaxMP, &p.SP, &p.MaxSP, &p.Gold, &p.Level, &p.Experience,
		&p.Attack, &p.Defense, &p.Agility, &p.Evasion, &p.Accuracy,
	)
	if err != nil {
		return nil, err
	}
	p.Position.LocationType = world.Category(category)
	p.Position = p.Position.Normalize()
	return &p, nil
}

// savePlayer writes every mutable player column inside tx.
func savePlayer(ctx context.Context, tx pgx.Tx, p *player.Player) error {
	pos := p.Position.Normalize()
	tag, err := tx.Exec(ctx, `
		UPDATE players SET
			location_type = $2, location_id = $3, game_position = $4,
			hp = $5, max_hp = $6, mp = $7, max_mp = $8, sp = $9, max_sp = $10,
			gold = $11, level = $12, experience = $13,
			attack = $14, defense = $15, agility = $16, evasion = $17, accuracy = $18,
			updated_at = NOW()
		WHERE user_id = $1`,
		p.UserID, string(pos.LocationType), pos.LocationID, pos.Position,
		p.HP, p.MaxHP, p.MP, p.MaxMP, p.SP, p.MaxSP,
		p.Gold, p.Level, p.Experience,
		p.Attack, p.Defense, p.Agility, p.Evasion, p.Accuracy,
	)
	if err != nil {
		return fmt.Errorf("saving player: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return storage.ErrPlayerNotFound
	}
	return nil
}

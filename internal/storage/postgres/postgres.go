// Package postgres provides the PostgreSQL player and battle stores using pgx v5.
package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/cory-johannsen/wayfarer/internal/config"
)

// applicationName is reported to the server in pg_stat_activity.
const applicationName = "wayfarer"

// Pool owns the pgx pool shared by the player, battle and history stores.
type Pool struct {
	pool *pgxpool.Pool
}

// NewPool connects to the database described by cfg and pings it once.
//
// Precondition: cfg passed config validation.
// Postcondition: Returns a pool that has answered a ping, or an error and no
// open connections.
func NewPool(ctx context.Context, cfg config.DatabaseConfig) (*Pool, error) {
	poolCfg, err := pgxpool.ParseConfig(cfg.DSN())
	if err != nil {
		return nil, fmt.Errorf("parsing database config: %w", err)
	}
	poolCfg.MaxConns = cfg.MaxConns
	poolCfg.MinConns = cfg.MinConns
	poolCfg.MaxConnLifetime = cfg.MaxConnLifetime
	poolCfg.ConnConfig.RuntimeParams["application_name"] = applicationName

	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("creating connection pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("pinging %s:%d: %w", cfg.Host, cfg.Port, err)
	}
	return &Pool{pool: pool}, nil
}

// Health pings the database, giving up after timeout.
func (p *Pool) Health(ctx context.Context, timeout time.Duration) error {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	return p.pool.Ping(ctx)
}

// Close releases every connection. The stores built on p stop working.
func (p *Pool) Close() {
	p.pool.Close()
}

// DB returns the underlying pgx pool.
func (p *Pool) DB() *pgxpool.Pool {
	return p.pool
}

// Players returns the player store on p.
func (p *Pool) Players() *PlayerRepository { return NewPlayerRepository(p.pool) }

// Battles returns the active battle store on p.
func (p *Pool) Battles() *BattleRepository { return NewBattleRepository(p.pool) }

// History returns the battle history store on p.
func (p *Pool) History() *HistoryRepository { return NewHistoryRepository(p.pool) }

// isUniqueViolation reports whether err is SQLSTATE 23505.
func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}

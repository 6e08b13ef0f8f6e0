// Package testutil starts throwaway backends for storage tests.
package testutil

import (
	"context"
	"testing"
	"time"

	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/cory-johannsen/wayfarer/internal/config"
	"github.com/cory-johannsen/wayfarer/internal/storage/postgres"
	"github.com/cory-johannsen/wayfarer/migrations"
)

const (
	postgresImage = "postgres:16-alpine"
	postgresCreds = "wayfarer_test"
)

// wayfarerTables lists every migrated table, children first.
var wayfarerTables = []string{"battle_history", "active_battles", "player_treasures", "player_skills", "players"}

// Postgres is a running PostgreSQL container with a connected pool.
type Postgres struct {
	Pool   *postgres.Pool
	Config config.DatabaseConfig
}

// StartPostgres starts a disposable PostgreSQL, connects to it and, when
// migrate is true, applies the embedded migrations. The container is
// terminated when t finishes. The test is skipped in -short mode.
//
// Precondition: Docker must be reachable.
func StartPostgres(t *testing.T, migrate bool) *Postgres {
	t.Helper()
	if testing.Short() {
		t.Skip("postgres container skipped in -short mode")
	}
	ctx := context.Background()
	start := time.Now()

	container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: testcontainers.ContainerRequest{
			Image:        postgresImage,
			ExposedPorts: []string{"5432/tcp"},
			Env: map[string]string{
				"POSTGRES_USER":     postgresCreds,
				"POSTGRES_PASSWORD": postgresCreds,
				"POSTGRES_DB":       postgresCreds,
			},
			WaitingFor: wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(45 * time.Second),
		},
		Started: true,
	})
	if err != nil {
		t.Fatalf("starting %s: %v", postgresImage, err)
	}
	t.Cleanup(func() { _ = container.Terminate(context.Background()) })

	host, err := container.Host(ctx)
	if err != nil {
		t.Fatalf("container host: %v", err)
	}
	port, err := container.MappedPort(ctx, "5432")
	if err != nil {
		t.Fatalf("container port: %v", err)
	}
	cfg := config.DatabaseConfig{
		Host:            host,
		Port:            port.Int(),
		User:            postgresCreds,
		Password:        postgresCreds,
		Name:            postgresCreds,
		SSLMode:         "disable",
		MaxConns:        4,
		MinConns:        1,
		MaxConnLifetime: time.Minute,
	}

	pg := &Postgres{Config: cfg}
	if migrate {
		pg.Migrate(t)
	}
	pg.Pool, err = postgres.NewPool(ctx, cfg)
	if err != nil {
		t.Fatalf("connecting to %s:%d: %v", host, port.Int(), err)
	}
	t.Cleanup(pg.Pool.Close)
	t.Logf("postgres ready on %s:%d [%s]", host, port.Int(), time.Since(start))
	return pg
}

// Migrate applies the embedded migrations. Re-running is a no-op.
func (pg *Postgres) Migrate(t *testing.T) {
	t.Helper()
	if err := migrations.Up(pg.Config.DSN()); err != nil {
		t.Fatalf("migrating: %v", err)
	}
}

// Reset empties every wayfarer table so one container serves many subtests.
//
// Precondition: the schema is migrated.
func (pg *Postgres) Reset(t *testing.T) {
	t.Helper()
	stmt := "TRUNCATE "
	for i, table := range wayfarerTables {
		if i > 0 {
			stmt += ", "
		}
		stmt += table
	}
	if _, err := pg.Pool.DB().Exec(context.Background(), stmt+" RESTART IDENTITY CASCADE"); err != nil {
		t.Fatalf("resetting tables: %v", err)
	}
}

// TableCount returns how many wayfarer tables exist.
func (pg *Postgres) TableCount(t *testing.T) int {
	t.Helper()
	var n int
	err := pg.Pool.DB().QueryRow(context.Background(),
		`SELECT count(*) FROM information_schema.tables WHERE table_schema = 'public' AND table_name = ANY($1)`,
		wayfarerTables,
	).Scan(&n)
	if err != nil {
		t.Fatalf("counting tables: %v", err)
	}
	return n
}

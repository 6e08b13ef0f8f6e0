package sqlite_test

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cory-johannsen/wayfarer/internal/storage"
	"github.com/cory-johannsen/wayfarer/internal/storage/sqlite"
	"github.com/cory-johannsen/wayfarer/internal/storage/storetest"
)

func openMemory(t *testing.T) *sqlite.DB {
	t.Helper()
	db, err := sqlite.Open(context.Background(), sqlite.MemoryPath)
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return db
}

func TestRepositories_Contract(t *testing.T) {
	storetest.Run(t, func(t *testing.T) storetest.Stores {
		db := openMemory(t)
		return storetest.Stores{
			Players: sqlite.NewPlayerRepository(db),
			Battles: sqlite.NewBattleRepository(db),
			History: sqlite.NewHistoryRepository(db),
		}
	})
}

func TestOpen_FileReopenKeepsData(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "wayfarer.db")

	db, err := sqlite.Open(ctx, path)
	require.NoError(t, err)
	require.NoError(t, sqlite.NewPlayerRepository(db).Create(ctx, storetest.NewPlayer(5)))
	require.NoError(t, db.Close())

	db, err = sqlite.Open(ctx, path)
	require.NoError(t, err)
	defer db.Close()
	p, err := sqlite.NewPlayerRepository(db).Get(ctx, 5)
	require.NoError(t, err)
	assert.Equal(t, "Aria", p.Name)
}

func TestDB_Health(t *testing.T) {
	db := openMemory(t)
	assert.NoError(t, db.Health(context.Background(), time.Second))
}

func TestMemoryDatabasesAreIsolated(t *testing.T) {
	ctx := context.Background()
	a, b := openMemory(t), openMemory(t)
	require.NoError(t, sqlite.NewPlayerRepository(a).Create(ctx, storetest.NewPlayer(1)))
	require.NoError(t, sqlite.NewPlayerRepository(b).Create(ctx, storetest.NewPlayer(1)))
}

func TestPlayerRepository_CreateRollsBackOnSkillFailure(t *testing.T) {
	ctx := context.Background()
	db := openMemory(t)
	_, err := db.SQL().ExecContext(ctx, `
		CREATE TRIGGER reject_cursed BEFORE INSERT ON player_skills
		WHEN NEW.skill_id = 'cursed'
		BEGIN SELECT RAISE(ABORT, 'cursed skill'); END`)
	require.NoError(t, err)
	repo := sqlite.NewPlayerRepository(db)

	require.Error(t, repo.Create(ctx, storetest.NewPlayer(1), "first_aid", "cursed"))
	_, err = repo.Get(ctx, 1)
	assert.ErrorIs(t, err, storage.ErrPlayerNotFound)

	require.NoError(t, repo.Create(ctx, storetest.NewPlayer(1), "first_aid"))
	ids, err := repo.SkillIDs(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, []string{"first_aid"}, ids)
}

package postgres_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/cory-johannsen/wayfarer/internal/storage/storetest"
	"github.com/cory-johannsen/wayfarer/internal/testutil"
)

func TestRepositories_Contract(t *testing.T) {
	pg := testutil.StartPostgres(t, true)

	storetest.Run(t, func(t *testing.T) storetest.Stores {
		pg.Reset(t)
		return storetest.Stores{
			Players: pg.Pool.Players(),
			Battles: pg.Pool.Battles(),
			History: pg.Pool.History(),
		}
	})
}

func TestPool_Health(t *testing.T) {
	pg := testutil.StartPostgres(t, false)
	assert.NoError(t, pg.Pool.Health(context.Background(), 5*time.Second))
}

func TestMigrations_Idempotent(t *testing.T) {
	pg := testutil.StartPostgres(t, true)
	assert.Equal(t, 5, pg.TableCount(t))

	pg.Migrate(t)
	assert.Equal(t, 5, pg.TableCount(t))
}

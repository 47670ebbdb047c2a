package repositories_test

import (
	"context"
	"testing"
	"time"

	"github.com/Totarae/shortlinks/internal/database"
	"github.com/Totarae/shortlinks/internal/repositories"
	"github.com/Totarae/shortlinks/internal/storage"
	"github.com/Totarae/shortlinks/internal/storage/storagetest"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	tc "github.com/testcontainers/testcontainers-go"
	tcpostgres "github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"
	"go.uber.org/zap"
)

// startPostgres поднимает PostgreSQL в контейнере и накатывает миграции.
// Без Docker или с -short тест пропускается.
func startPostgres(t *testing.T) *database.DB {
	t.Helper()
	if testing.Short() {
		t.Skip("postgres container skipped in -short mode")
	}

	tc.SkipIfProviderIsNotHealthy(t)

	ctx := context.Background()
	container, err := tcpostgres.Run(ctx,
		"postgres:16-alpine",
		tcpostgres.WithDatabase("shortlinks"),
		tcpostgres.WithUsername("test"),
		tcpostgres.WithPassword("test"),
		tc.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(60*time.Second),
		),
	)
	if err != nil {
		t.Skipf("docker is not available: %v", err)
	}
	t.Cleanup(func() { _ = container.Terminate(context.Background()) })

	dsn, err := container.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err)

	logger := zap.NewNop()
	migrator, err := database.NewMigrator(dsn, logger)
	require.NoError(t, err)
	require.NoError(t, migrator.Up())
	version, dirty, err := migrator.Version()
	require.NoError(t, err)
	assert.EqualValues(t, 1, version)
	assert.False(t, dirty)
	require.NoError(t, migrator.Close())

	db, err := database.NewDB(ctx, dsn, logger)
	require.NoError(t, err)
	t.Cleanup(db.Close)
	return db
}

func TestLinkRepository_Contract(t *testing.T) {
	db := startPostgres(t)

	storagetest.Run(t, func(t *testing.T) storage.LinkStore {
		_, err := db.Pool.Exec(context.Background(), "TRUNCATE links")
		require.NoError(t, err)
		return repositories.NewLinkRepository(db.Pool)
	})
}

func TestLinkRepository_MalformedID(t *testing.T) {
	db := startPostgres(t)
	repo := repositories.NewLinkRepository(db.Pool)
	ctx := context.Background()

	_, err := repo.FindByID(ctx, "not-a-uuid")
	assert.ErrorIs(t, err, storage.ErrNotFound)
	_, err = repo.IncrementClicks(ctx, "not-a-uuid")
	assert.ErrorIs(t, err, storage.ErrNotFound)
	assert.ErrorIs(t, repo.Delete(ctx, "not-a-uuid"), storage.ErrNotFound)
	assert.NoError(t, repo.Ping(ctx))
}

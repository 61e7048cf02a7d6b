package repository_test

import (
	"context"
	"path/filepath"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mdmuhtasimfuadfahim/hyperauth/internal/auth"
	"github.com/mdmuhtasimfuadfahim/hyperauth/internal/config"
	"github.com/mdmuhtasimfuadfahim/hyperauth/internal/constants"
	"github.com/mdmuhtasimfuadfahim/hyperauth/internal/database"
	"github.com/mdmuhtasimfuadfahim/hyperauth/internal/models"
	"github.com/mdmuhtasimfuadfahim/hyperauth/internal/repository"
	"github.com/mdmuhtasimfuadfahim/hyperauth/internal/utils"
	"github.com/mdmuhtasimfuadfahim/hyperauth/migrations"
)

// openSQLite returns a migrated database in a temporary directory.
func openSQLite(t *testing.T) *database.Pool {
	t.Helper()

	cfg := &config.AppConfig{}
	cfg.Database.Driver = constants.DriverSQLite
	cfg.Database.Path = filepath.Join(t.TempDir(), "hyperauth.db")

	pool, err := database.Connect(cfg)
	require.NoError(t, err)
	t.Cleanup(pool.Close)

	require.NoError(t, migrations.NewMigrator(pool).RunMigrations(context.Background()))
	return pool
}

func seedUser(t *testing.T, users repository.UserRepository, email string) *models.User {
	t.Helper()
	user := models.NewUser(email, "Seed")
	user.PasswordHash = "digest"
	require.NoError(t, users.Create(context.Background(), user))
	return user
}

func TestSQLite_UserRepository(t *testing.T) {
	pool := openSQLite(t)
	users := repository.NewUserRepository(pool)
	ctx := context.Background()

	user := seedUser(t, users, "a@b.com")

	found, err := users.FindByEmail(ctx, "a@b.com")
	require.NoError(t, err)
	assert.Equal(t, user.ID, found.ID)
	assert.False(t, found.Verified)
	assert.WithinDuration(t, user.CreatedAt, found.CreatedAt, time.Millisecond)

	err = users.Create(ctx, models.NewUser("a@b.com", "Other"))
	assert.Equal(t, utils.KindDuplicateEmail, utils.KindOf(err))

	require.NoError(t, users.MarkEmailVerified(ctx, user.ID))
	require.NoError(t, users.MarkEmailVerified(ctx, user.ID), "verifying twice is not an error")
	require.NoError(t, users.UpdatePassword(ctx, user.ID, "new-digest"))

	found, err = users.FindByID(ctx, user.ID)
	require.NoError(t, err)
	assert.True(t, found.Verified)
	assert.Equal(t, "new-digest", found.PasswordHash)

	_, err = users.FindByID(ctx, "missing")
	assert.True(t, utils.IsNotFoundError(err))
}

func TestSQLite_BlacklistIfActiveIsAtomic(t *testing.T) {
	pool := openSQLite(t)
	users := repository.NewUserRepository(pool)
	tokens := repository.NewTokenRepository(pool)
	ctx := context.Background()

	user := seedUser(t, users, "race@b.com")
	record := validRecord()
	record.UserID = user.ID
	require.NoError(t, tokens.Create(ctx, record))

	const workers = 16
	var wins int32
	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			flipped, err := tokens.BlacklistIfActive(ctx, record.ID)
			assert.NoError(t, err)
			if flipped {
				atomic.AddInt32(&wins, 1)
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, int32(1), wins)

	found, err := tokens.FindByHash(ctx, record.TokenHash)
	require.NoError(t, err)
	assert.True(t, found.Blacklisted)
}

func TestSQLite_WithinTxRollsBack(t *testing.T) {
	pool := openSQLite(t)
	users := repository.NewUserRepository(pool)
	tokens := repository.NewTokenRepository(pool)
	ctx := context.Background()

	user := seedUser(t, users, "tx@b.com")
	old := validRecord()
	old.UserID = user.ID
	require.NoError(t, tokens.Create(ctx, old))

	duplicate := validRecord()
	duplicate.ID = "22222222-2222-4222-8222-222222222222"
	duplicate.UserID = user.ID

	err := tokens.WithinTx(ctx, func(tx auth.CredentialStore) error {
		flipped, err := tx.BlacklistIfActive(ctx, old.ID)
		require.NoError(t, err)
		require.True(t, flipped)
		return tx.Create(ctx, duplicate)
	})
	assert.True(t, utils.IsDuplicateError(err), "same token hash must violate the unique index")

	found, err := tokens.FindByHash(ctx, old.TokenHash)
	require.NoError(t, err)
	assert.False(t, found.Blacklisted, "blacklist must be rolled back with the failed insert")
}

func TestSQLite_Housekeeping(t *testing.T) {
	pool := openSQLite(t)
	users := repository.NewUserRepository(pool)
	tokens := repository.NewTokenRepository(pool)
	logs := repository.NewRequestLogRepository(pool)
	ctx := context.Background()

	user := seedUser(t, users, "keep@b.com")
	now := time.Now().UTC()

	expired := validRecord()
	expired.UserID = user.ID
	expired.ExpiresAt = now.Add(-48 * time.Hour)
	require.NoError(t, tokens.Create(ctx, expired))

	live := validRecord()
	live.ID = "33333333-3333-4333-8333-333333333333"
	live.TokenHash = strings.Repeat("cd", 32)
	live.UserID = user.ID
	live.Blacklisted = true
	require.NoError(t, tokens.Create(ctx, live))

	deleted, err := tokens.DeleteExpired(ctx, now.Add(-24*time.Hour))
	require.NoError(t, err)
	assert.Equal(t, int64(1), deleted)

	_, err = tokens.FindByHash(ctx, live.TokenHash)
	assert.NoError(t, err, "unexpired blacklisted records are kept")

	revoked, err := tokens.RevokeAllForUser(ctx, user.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(0), revoked)

	entry := models.NewRequestLog("0-1-::1", "r", "::1", "0", "GET", "/health", 200, time.Millisecond)
	entry.CreatedAt = now.Add(-40 * 24 * time.Hour)
	require.NoError(t, logs.Create(ctx, entry))
	require.NoError(t, logs.Create(ctx, models.NewRequestLog("0-2-::1", "r2", "::1", "0", "GET", "/health", 200, time.Millisecond)))

	purged, err := logs.DeleteOlderThan(ctx, now.Add(-30*24*time.Hour))
	require.NoError(t, err)
	assert.Equal(t, int64(1), purged)

	require.NoError(t, users.Delete(ctx, user.ID))
	_, err = tokens.FindByHash(ctx, live.TokenHash)
	assert.True(t, utils.IsNotFoundError(err), "token records are removed with their user")
}

package models_test

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mdmuhtasimfuadfahim/hyperauth/internal/constants"
	"github.com/mdmuhtasimfuadfahim/hyperauth/internal/models"
)

func TestNewUser(t *testing.T) {
	user := models.NewUser("a@b.com", "Ann")

	_, err := uuid.Parse(user.ID)
	assert.NoError(t, err)
	assert.Equal(t, "a@b.com", user.Email)
	assert.Equal(t, "Ann", user.Name)
	assert.Equal(t, constants.RoleUser, user.Role)
	assert.False(t, user.Verified)
	assert.False(t, user.CreatedAt.IsZero())
	assert.Equal(t, user.CreatedAt, user.UpdatedAt)
	assert.Equal(t, constants.TableUsers, user.TableName())
	assert.False(t, user.IsAdmin())
}

func TestUser_Sanitize(t *testing.T) {
	user := models.NewUser("a@b.com", "Ann")
	user.PasswordHash = "$argon2id$v=19$m=16,t=1,p=1$c2FsdA$a2V5"

	sanitized := user.Sanitize()

	assert.Empty(t, sanitized.PasswordHash)
	assert.Equal(t, user.Email, sanitized.Email)
	assert.NotEmpty(t, user.PasswordHash, "original must not be modified")
}

func TestUser_JSONOmitsPassword(t *testing.T) {
	user := models.NewUser("a@b.com", "Ann")
	user.PasswordHash = "secret-digest"

	data, err := json.Marshal(user)
	require.NoError(t, err)

	assert.NotContains(t, string(data), "secret-digest")
	assert.NotContains(t, string(data), "password")
}

func TestTokenRecord_IsExpired(t *testing.T) {
	expiresAt := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
	record := &models.TokenRecord{ExpiresAt: expiresAt}

	assert.False(t, record.IsExpired(expiresAt.Add(-time.Second)))
	assert.False(t, record.IsExpired(expiresAt))
	assert.True(t, record.IsExpired(expiresAt.Add(time.Nanosecond)))
	assert.Equal(t, constants.TableTokens, record.TableName())
}

func TestTokenRecord_JSONOmitsHash(t *testing.T) {
	record := &models.TokenRecord{ID: "t1", TokenHash: "deadbeef", UserID: "u1", Purpose: constants.PurposeAccess}

	data, err := json.Marshal(record)
	require.NoError(t, err)

	assert.NotContains(t, string(data), "deadbeef")
}

func TestNewRequestLog(t *testing.T) {
	entry := models.NewRequestLog("u1-1-127.0.0.1", "req-1", "127.0.0.1", "u1", "POST", "/api/v1/auth/login", 200, 1500*time.Millisecond)

	assert.NotEmpty(t, entry.ID)
	assert.Equal(t, int64(1500), entry.ResponseTimeMs)
	assert.Equal(t, 200, entry.Status)
	assert.Equal(t, constants.TableRequestLogs, entry.TableName())
}

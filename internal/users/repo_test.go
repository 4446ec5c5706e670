package users

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/angelmondragon/showcart-backend/pkg/db/models"
	"github.com/angelmondragon/showcart-backend/pkg/enums"
)

func setupUsersTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open("file::memory:?cache=shared"), &gorm.Config{})
	require.NoError(t, err)

	schema := `
CREATE TABLE IF NOT EXISTS users (
  id TEXT PRIMARY KEY,
  email TEXT NOT NULL UNIQUE,
  password_hash TEXT NOT NULL,
  display_name TEXT NOT NULL,
  role TEXT NOT NULL DEFAULT 'buyer',
  is_active BOOLEAN NOT NULL DEFAULT TRUE,
  last_login_at DATETIME,
  created_at DATETIME,
  updated_at DATETIME
);`
	require.NoError(t, db.Exec(schema).Error)
	return db
}

func TestRepositoryCreateAndFindByEmail(t *testing.T) {
	db := setupUsersTestDB(t)
	repo := NewRepository(db)

	user := &models.User{
		ID:           uuid.New(),
		Email:        "breaker@example.com",
		PasswordHash: "$argon2id$stub",
		DisplayName:  "Breaker",
		Role:         enums.UserRoleSeller,
		IsActive:     true,
	}
	created, err := repo.Create(context.Background(), user)
	require.NoError(t, err)

	got, err := repo.FindByEmail(context.Background(), "breaker@example.com")
	require.NoError(t, err)
	assert.Equal(t, created.ID, got.ID)
	assert.Equal(t, enums.UserRoleSeller, got.Role)
	assert.Nil(t, got.LastLoginAt)

	_, err = repo.FindByEmail(context.Background(), "nobody@example.com")
	require.ErrorIs(t, err, gorm.ErrRecordNotFound)
}

func TestRepositoryUpdateLastLogin(t *testing.T) {
	db := setupUsersTestDB(t)
	repo := NewRepository(db)

	user := &models.User{
		ID:           uuid.New(),
		Email:        "collector@example.com",
		PasswordHash: "$argon2id$stub",
		DisplayName:  "Collector",
		Role:         enums.UserRoleBuyer,
		IsActive:     true,
	}
	_, err := repo.Create(context.Background(), user)
	require.NoError(t, err)

	at := time.Date(2025, 6, 15, 20, 0, 0, 0, time.UTC)
	require.NoError(t, repo.UpdateLastLogin(context.Background(), user.ID, at))

	got, err := repo.FindByID(context.Background(), user.ID)
	require.NoError(t, err)
	require.NotNil(t, got.LastLoginAt)
	assert.True(t, got.LastLoginAt.Equal(at))
}

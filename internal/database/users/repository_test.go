package users

import (
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/jkoudys/daybook/internal/entities"
)

func setupTestDB(t *testing.T) (*Repository, *gorm.DB, func()) {
	dbPath := "./test_users_" + t.Name() + ".db"

	db, err := gorm.Open(sqlite.Open(dbPath), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)

	err = db.AutoMigrate(&entities.User{}, &entities.Session{}, &entities.APIToken{})
	require.NoError(t, err)

	repo := NewRepository(db)

	cleanup := func() {
		sqlDB, _ := db.DB()
		sqlDB.Close()
		os.Remove(dbPath)
	}

	return repo, db, cleanup
}

func TestRepository_Create(t *testing.T) {
	repo, _, cleanup := setupTestDB(t)
	defer cleanup()

	user, err := repo.Create("alice@example.com", "Alice", "hashed-password")

	require.NoError(t, err)
	assert.NotEmpty(t, user.ID)
	assert.Equal(t, "alice@example.com", user.Email)
	assert.Equal(t, "Alice", user.DisplayName)
	assert.NotEmpty(t, user.URLToken)
	assert.Len(t, user.URLToken, 32) // 16 bytes hex encoded = 32 chars
}

func TestRepository_Create_DuplicateEmail(t *testing.T) {
	repo, _, cleanup := setupTestDB(t)
	defer cleanup()

	_, err := repo.Create("alice@example.com", "Alice", "hash")
	require.NoError(t, err)

	_, err = repo.Create("alice@example.com", "Alice Again", "hash")
	assert.Error(t, err)
}

func TestRepository_GetByEmail(t *testing.T) {
	repo, _, cleanup := setupTestDB(t)
	defer cleanup()

	created, err := repo.Create("alice@example.com", "Alice", "hash")
	require.NoError(t, err)

	user, err := repo.GetByEmail("alice@example.com")
	require.NoError(t, err)
	assert.Equal(t, created.ID, user.ID)

	_, err = repo.GetByEmail("nobody@example.com")
	assert.ErrorIs(t, err, gorm.ErrRecordNotFound)
}

func TestRepository_GetByURLToken(t *testing.T) {
	repo, _, cleanup := setupTestDB(t)
	defer cleanup()

	created, err := repo.Create("alice@example.com", "Alice", "hash")
	require.NoError(t, err)

	user, err := repo.GetByURLToken(created.URLToken)
	require.NoError(t, err)
	assert.Equal(t, created.ID, user.ID)

	_, err = repo.GetByURLToken("0000000000000000")
	assert.ErrorIs(t, err, gorm.ErrRecordNotFound)
}

func TestRepository_Update(t *testing.T) {
	repo, _, cleanup := setupTestDB(t)
	defer cleanup()

	created, err := repo.Create("alice@example.com", "Alice", "hash")
	require.NoError(t, err)

	err = repo.Update(created.ID, map[string]any{"display_name": "Alice B"})
	require.NoError(t, err)

	user, err := repo.GetByID(created.ID)
	require.NoError(t, err)
	assert.Equal(t, "Alice B", user.DisplayName)

	err = repo.Update("no-such-id", map[string]any{"display_name": "x"})
	assert.ErrorIs(t, err, gorm.ErrRecordNotFound)
}

func TestRepository_RegenerateURLToken(t *testing.T) {
	repo, _, cleanup := setupTestDB(t)
	defer cleanup()

	created, err := repo.Create("alice@example.com", "Alice", "hash")
	require.NoError(t, err)

	fresh, err := repo.RegenerateURLToken(created.ID)
	require.NoError(t, err)
	assert.NotEqual(t, created.URLToken, fresh)
	assert.Len(t, fresh, 32)

	user, err := repo.GetByID(created.ID)
	require.NoError(t, err)
	assert.Equal(t, fresh, user.URLToken)
}

func TestRepository_Delete_CascadesOwnedRecords(t *testing.T) {
	repo, db, cleanup := setupTestDB(t)
	defer cleanup()

	created, err := repo.Create("alice@example.com", "Alice", "hash")
	require.NoError(t, err)

	require.NoError(t, db.Create(&entities.Session{
		ID: "s1", UserID: created.ID, Token: "session-token",
	}).Error)
	require.NoError(t, db.Create(&entities.APIToken{
		ID: "t1", UserID: &created.ID, TokenHash: "token-hash",
	}).Error)

	require.NoError(t, repo.Delete(created.ID))

	_, err = repo.GetByID(created.ID)
	assert.ErrorIs(t, err, gorm.ErrRecordNotFound)

	var sessionCount, tokenCount int64
	db.Model(&entities.Session{}).Where("user_id = ?", created.ID).Count(&sessionCount)
	db.Model(&entities.APIToken{}).Where("user_id = ?", created.ID).Count(&tokenCount)
	assert.Zero(t, sessionCount)
	assert.Zero(t, tokenCount)
}

func TestRepository_Count(t *testing.T) {
	repo, _, cleanup := setupTestDB(t)
	defer cleanup()

	count, err := repo.Count()
	require.NoError(t, err)
	assert.Zero(t, count)

	_, err = repo.Create("alice@example.com", "Alice", "hash")
	require.NoError(t, err)

	count, err = repo.Count()
	require.NoError(t, err)
	assert.EqualValues(t, 1, count)
}

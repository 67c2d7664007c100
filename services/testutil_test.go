package services

import (
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"speed/models"
)

// newTestDB opens an isolated in-memory database with the production schema.
func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger:         logger.Default.LogMode(logger.Silent),
		TranslateError: true,
	})
	require.NoError(t, err)

	// The pool must stay on one connection, otherwise every new connection
	// sees a fresh empty :memory: database.
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)

	require.NoError(t, db.AutoMigrate(&models.Article{}, &models.User{}))
	return db
}

func newTestArticleService(t *testing.T) *ArticleService {
	t.Helper()
	return NewArticleService(newTestDB(t), zap.NewNop(), nil)
}

func newTestUserService(t *testing.T) *UserService {
	t.Helper()
	tokens := NewTokenService("test-secret", "1h")
	return NewUserService(newTestDB(t), zap.NewNop(), tokens)
}

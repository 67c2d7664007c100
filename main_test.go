package main

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"speed/config"
	"speed/models"
	"speed/services"
)

func newTestRouter(t *testing.T) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger:         logger.Default.LogMode(logger.Silent),
		TranslateError: true,
	})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	require.NoError(t, db.AutoMigrate(&models.Article{}, &models.User{}))

	cfg := &config.Config{CORSOrigins: "*", JWTSecret: "test-secret", JWTExpiresIn: "1h"}
	logging := zap.NewNop()
	tokens := services.NewTokenService(cfg.JWTSecret, cfg.JWTExpiresIn)
	mailer := services.NewMailer(cfg, logging)
	articleService := services.NewArticleService(db, logging, mailer)
	userService := services.NewUserService(db, logging, tokens)
	return newRouter(cfg, tokens, mailer, articleService, userService, logging)
}

func TestHealthEndpoint(t *testing.T) {
	router := newTestRouter(t)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/api/health", nil)
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"status":"healthy"}`, w.Body.String())
}

func TestGlobalMiddlewareChain(t *testing.T) {
	router := newTestRouter(t)

	// gin.Default contributes logger and recovery; newRouter adds CORS and
	// bearer-claims extraction. Nothing should be installed twice.
	assert.Len(t, router.Handlers, 4)
}

func TestSubmitValidatesEvidenceLabel(t *testing.T) {
	router := newTestRouter(t)

	body := func(evidence string) *strings.Reader {
		return strings.NewReader(`{
			"title": "Pair programming study",
			"authors": "Smith, Jones",
			"source": "ICSE",
			"pubyear": "2021",
			"doi": "10.1000/pp1",
			"claim": "improves code quality",
			"evidence": "` + evidence + `"
		}`)
	}

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/articles/submit", body("Empirical Study"))
	req.Header.Set("Content-Type", "application/json")
	router.ServeHTTP(w, req)
	assert.Equal(t, http.StatusCreated, w.Code)

	w = httptest.NewRecorder()
	req = httptest.NewRequest(http.MethodPost, "/api/articles/submit", body("Strongly Supports"))
	req.Header.Set("Content-Type", "application/json")
	router.ServeHTTP(w, req)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

package middleware

import (
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
	"taskhub/config"
	"taskhub/models"
	"taskhub/utils"
)

func corsApp(cfg CORSConfig) *fiber.App {
	app := fiber.New()
	app.Use(CORS(cfg))
	app.Get("/ping", func(c *fiber.Ctx) error { return c.SendString("pong") })
	return app
}

func TestCORS(t *testing.T) {
	app := corsApp(CORSConfigFrom(&config.Config{AllowedOrigins: []string{"https://app.example"}}))

	req := httptest.NewRequest(http.MethodGet, "/ping", nil)
	req.Header.Set("Origin", "https://app.example")
	resp, err := app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "https://app.example", resp.Header.Get("Access-Control-Allow-Origin"))
	assert.Equal(t, "true", resp.Header.Get("Access-Control-Allow-Credentials"))
	assert.Contains(t, resp.Header.Get("Access-Control-Expose-Headers"), "Content-Disposition")

	req = httptest.NewRequest(http.MethodOptions, "/ping", nil)
	req.Header.Set("Origin", "https://app.example")
	resp, err = app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, http.StatusNoContent, resp.StatusCode)
	assert.Contains(t, resp.Header.Get("Access-Control-Allow-Methods"), "PUT")

	req = httptest.NewRequest(http.MethodOptions, "/ping", nil)
	req.Header.Set("Origin", "https://evil.example")
	resp, err = app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)
	assert.Empty(t, resp.Header.Get("Access-Control-Allow-Origin"))

	req = httptest.NewRequest(http.MethodGet, "/ping", nil)
	resp, err = app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Empty(t, resp.Header.Get("Access-Control-Allow-Origin"))
}

func TestCORSWildcard(t *testing.T) {
	cfg := DefaultCORSConfig()
	cfg.AllowedOrigins = []string{"*"}
	app := corsApp(cfg)

	req := httptest.NewRequest(http.MethodGet, "/ping", nil)
	req.Header.Set("Origin", "https://anywhere.example")
	resp, err := app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, "*", resp.Header.Get("Access-Control-Allow-Origin"))
	assert.Empty(t, resp.Header.Get("Access-Control-Allow-Credentials"))
}

func TestProtected(t *testing.T) {
	db, err := gorm.Open(sqlite.Open("file::memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })
	require.NoError(t, models.Migrate(db))

	active := models.User{Name: "a", Email: "a@example.com", PasswordHash: "x", Role: models.RoleEmployee, IsActive: true}
	require.NoError(t, db.Create(&active).Error)

	issuer := utils.NewTokenIssuer("secret", time.Hour, 24*time.Hour)
	access, refresh, err := issuer.GenerateTokens(&active)
	require.NoError(t, err)

	app := fiber.New(fiber.Config{ErrorHandler: utils.ErrorHandler})
	app.Get("/me", Protected(db, issuer), func(c *fiber.Ctx) error {
		return c.SendString(CurrentUser(c).ID + "/" + SessionID(c))
	})

	do := func(header string) int {
		req := httptest.NewRequest(http.MethodGet, "/me", nil)
		if header != "" {
			req.Header.Set("Authorization", header)
		}
		resp, err := app.Test(req)
		require.NoError(t, err)
		return resp.StatusCode
	}

	assert.Equal(t, http.StatusOK, do("Bearer "+access))

	claims, err := issuer.ParseToken(access)
	require.NoError(t, err)
	req := httptest.NewRequest(http.MethodGet, "/me", nil)
	req.Header.Set("Authorization", "Bearer "+access)
	resp, err := app.Test(req)
	require.NoError(t, err)
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.Equal(t, active.ID+"/"+claims.SessionID, string(body))

	assert.Equal(t, http.StatusUnauthorized, do(""))
	assert.Equal(t, http.StatusUnauthorized, do("Token "+access))
	assert.Equal(t, http.StatusUnauthorized, do("Bearer "+refresh))
	assert.Equal(t, http.StatusUnauthorized, do("Bearer garbage"))

	require.NoError(t, db.Model(&active).Update("token_version", active.TokenVersion+1).Error)
	assert.Equal(t, http.StatusUnauthorized, do("Bearer "+access))

	require.NoError(t, db.Model(&active).Update("is_active", false).Error)
	var stored models.User
	require.NoError(t, db.First(&stored, "id = ?", active.ID).Error)
	access, _, err = issuer.GenerateTokens(&stored)
	require.NoError(t, err)
	assert.Equal(t, http.StatusForbidden, do("Bearer "+access))
}

func TestAuthRateLimiter(t *testing.T) {
	app := fiber.New()
	app.Post("/auth/login", AuthRateLimiter(2, nil), func(c *fiber.Ctx) error {
		return c.SendStatus(fiber.StatusOK)
	})

	statuses := make([]int, 0, 3)
	for i := 0; i < 3; i++ {
		resp, err := app.Test(httptest.NewRequest(http.MethodPost, "/auth/login", nil))
		require.NoError(t, err)
		statuses = append(statuses, resp.StatusCode)
	}
	assert.Equal(t, []int{http.StatusOK, http.StatusOK, http.StatusTooManyRequests}, statuses)
}

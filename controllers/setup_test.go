package controller_test

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
	"taskhub/config"
	"taskhub/models"
	"taskhub/routes"
	"taskhub/utils"
)

type testEnv struct {
	t      *testing.T
	db     *gorm.DB
	app    *fiber.App
	issuer *utils.TokenIssuer
}

type envelope struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data"`
	Error   string          `json:"error"`
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	db, err := gorm.Open(sqlite.Open("file::memory:"), &gorm.Config{
		Logger:  logger.Default.LogMode(logger.Silent),
		NowFunc: func() time.Time { return time.Now().UTC() },
	})
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })

	require.NoError(t, models.Migrate(db))

	issuer := utils.NewTokenIssuer("test-secret", time.Hour, 24*time.Hour)
	app := routes.NewApp(routes.Dependencies{
		DB:     db,
		Config: &config.Config{AuthRateLimit: 1000},
		Issuer: issuer,
	})

	return &testEnv{t: t, db: db, app: app, issuer: issuer}
}

// createUser inserts a user directly and returns it with an access token.
func (e *testEnv) createUser(name string, role models.Role, managerID *string) (*models.User, string) {
	e.t.Helper()

	user := &models.User{
		Name:         name,
		Email:        name + "@example.com",
		PasswordHash: "x",
		Role:         role,
		ManagerID:    managerID,
		IsActive:     true,
	}
	require.NoError(e.t, e.db.Create(user).Error)

	token, _, err := e.issuer.GenerateTokens(user)
	require.NoError(e.t, err)
	return user, token
}

func (e *testEnv) createTeam(name, leaderID string, memberIDs ...string) *models.Team {
	e.t.Helper()

	team := &models.Team{Name: name, LeaderID: leaderID}
	require.NoError(e.t, e.db.Create(team).Error)
	for _, id := range memberIDs {
		require.NoError(e.t, e.db.Create(&models.TeamMember{TeamID: team.ID, UserID: id}).Error)
	}
	return team
}

func (e *testEnv) request(method, path, token string, body interface{}) (*http.Response, []byte) {
	e.t.Helper()

	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		require.NoError(e.t, err)
		reader = bytes.NewReader(payload)
	}

	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := e.app.Test(req, -1)
	require.NoError(e.t, err)
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	require.NoError(e.t, err)
	return resp, data
}

// call performs a request, asserts the status and decodes the data field of
// the success envelope into out when out is non-nil.
func (e *testEnv) call(method, path, token string, body interface{}, status int, out interface{}) envelope {
	e.t.Helper()

	resp, data := e.request(method, path, token, body)
	require.Equal(e.t, status, resp.StatusCode, "body: %s", data)

	var env envelope
	require.NoError(e.t, json.Unmarshal(data, &env), "body: %s", data)
	if out != nil {
		require.NoError(e.t, json.Unmarshal(env.Data, out))
	}
	return env
}

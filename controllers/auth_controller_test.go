package controller_test

import (
	"encoding/json"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	controller "taskhub/controllers"
	"taskhub/models"
)

func register(t *testing.T, env *testEnv, name, email string) controller.AuthResponse {
	t.Helper()

	resp, data := env.request(http.MethodPost, "/auth/register", "", map[string]string{
		"name":     name,
		"email":    email,
		"password": "password123",
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode, "body: %s", data)

	var out controller.AuthResponse
	require.NoError(t, json.Unmarshal(data, &out))
	return out
}

func TestRegister_FirstUserIsHead(t *testing.T) {
	env := newTestEnv(t)

	first := register(t, env, "Alice", "alice@example.com")
	assert.Equal(t, models.RoleHead, first.User.Role)
	assert.NotEmpty(t, first.AccessToken)
	assert.NotEmpty(t, first.RefreshToken)

	for _, email := range []string{"bob@example.com", "carol@example.com"} {
		next := register(t, env, "Someone", email)
		assert.Equal(t, models.RoleEmployee, next.User.Role)
		assert.Nil(t, next.User.ManagerID)
	}

	resp, _ := env.request(http.MethodPost, "/auth/register", "", map[string]string{
		"name":     "Alice again",
		"email":    "ALICE@example.com",
		"password": "password123",
	})
	assert.Equal(t, http.StatusConflict, resp.StatusCode)
}

func TestRegister_Validation(t *testing.T) {
	env := newTestEnv(t)

	env.call(http.MethodPost, "/auth/register", "", map[string]string{
		"name":     "Short",
		"email":    "short@example.com",
		"password": "123",
	}, http.StatusBadRequest, nil)
}

func TestLoginAndSession(t *testing.T) {
	env := newTestEnv(t)
	register(t, env, "Alice", "alice@example.com")

	resp, _ := env.request(http.MethodPost, "/auth/login", "", map[string]string{
		"email":    "alice@example.com",
		"password": "wrong-password",
	})
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	resp, data := env.request(http.MethodPost, "/auth/login", "", map[string]string{
		"email":    "alice@example.com",
		"password": "password123",
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var login controller.AuthResponse
	require.NoError(t, json.Unmarshal(data, &login))

	var me models.User
	env.call(http.MethodGet, "/auth/me", login.AccessToken, nil, http.StatusOK, &me)
	assert.Equal(t, "alice@example.com", me.Email)

	// refresh tokens cannot be used as access tokens
	env.call(http.MethodGet, "/auth/me", login.RefreshToken, nil, http.StatusUnauthorized, nil)
	env.call(http.MethodGet, "/api/v1/tasks", "", nil, http.StatusUnauthorized, nil)

	resp, data = env.request(http.MethodPost, "/auth/refresh", "", map[string]string{
		"refreshToken": login.RefreshToken,
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var refreshed controller.AuthResponse
	require.NoError(t, json.Unmarshal(data, &refreshed))
	assert.NotEmpty(t, refreshed.AccessToken)

	resp, _ = env.request(http.MethodPost, "/auth/logout", login.AccessToken, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	// logout revokes every token issued before it
	env.call(http.MethodGet, "/auth/me", login.AccessToken, nil, http.StatusUnauthorized, nil)
	env.call(http.MethodGet, "/auth/me", refreshed.AccessToken, nil, http.StatusUnauthorized, nil)
}

func TestInactiveUserIsForbidden(t *testing.T) {
	env := newTestEnv(t)
	user, token := env.createUser("dora", models.RoleEmployee, nil)
	require.NoError(t, env.db.Model(user).Update("is_active", false).Error)

	env.call(http.MethodGet, "/auth/me", token, nil, http.StatusForbidden, nil)
}

func TestChangePassword(t *testing.T) {
	env := newTestEnv(t)
	session := register(t, env, "Erin", "erin@example.com")

	env.call(http.MethodPost, "/auth/change-password", session.AccessToken, map[string]string{
		"currentPassword": "not-my-password",
		"newPassword":     "new-password-456",
	}, http.StatusUnauthorized, nil)

	resp, data := env.request(http.MethodPost, "/auth/change-password", session.AccessToken, map[string]string{
		"currentPassword": "password123",
		"newPassword":     "new-password-456",
	})
	require.Equal(t, http.StatusOK, resp.StatusCode, "body: %s", data)
	var changed controller.AuthResponse
	require.NoError(t, json.Unmarshal(data, &changed))

	env.call(http.MethodGet, "/auth/me", session.AccessToken, nil, http.StatusUnauthorized, nil)
	env.call(http.MethodGet, "/auth/me", changed.AccessToken, nil, http.StatusOK, nil)

	resp, _ = env.request(http.MethodPost, "/auth/login", "", map[string]string{
		"email":    "erin@example.com",
		"password": "password123",
	})
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	resp, _ = env.request(http.MethodPost, "/auth/login", "", map[string]string{
		"email":    "erin@example.com",
		"password": "new-password-456",
	})
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

package controller_test

import (
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"taskhub/models"
)

// assertManagerInvariant checks that only EMPLOYEE users have a manager and
// that every manager is a MANAGER.
func assertManagerInvariant(t *testing.T, env *testEnv) {
	t.Helper()

	var users []models.User
	require.NoError(t, env.db.Preload("Manager").Find(&users).Error)
	for _, u := range users {
		if u.ManagerID == nil {
			continue
		}
		assert.Equal(t, models.RoleEmployee, u.Role, "user %s has a manager", u.Name)
		require.NotNil(t, u.Manager)
		assert.Equal(t, models.RoleManager, u.Manager.Role, "manager of %s", u.Name)
	}
}

func TestAssignManager(t *testing.T) {
	env := newTestEnv(t)
	_, headToken := env.createUser("head", models.RoleHead, nil)
	m1, m1Token := env.createUser("m1", models.RoleManager, nil)
	m2, _ := env.createUser("m2", models.RoleManager, nil)
	e1, _ := env.createUser("e1", models.RoleEmployee, nil)
	e2, _ := env.createUser("e2", models.RoleEmployee, nil)

	path := "/api/v1/users/" + e1.ID + "/manager"

	var updated models.User
	env.call(http.MethodPut, path, headToken, map[string]string{"managerId": m1.ID}, http.StatusOK, &updated)
	require.NotNil(t, updated.ManagerID)
	assert.Equal(t, m1.ID, *updated.ManagerID)
	assertManagerInvariant(t, env)

	env.call(http.MethodPut, path, headToken, map[string]string{"managerId": m2.ID}, http.StatusOK, &updated)
	assert.Equal(t, m2.ID, *updated.ManagerID)
	assertManagerInvariant(t, env)

	// new manager must be a MANAGER
	env.call(http.MethodPut, path, headToken, map[string]string{"managerId": e2.ID}, http.StatusBadRequest, nil)
	// target must be an EMPLOYEE
	env.call(http.MethodPut, "/api/v1/users/"+m1.ID+"/manager", headToken,
		map[string]string{"managerId": m2.ID}, http.StatusBadRequest, nil)
	// only HEAD may reassign
	env.call(http.MethodPut, path, m1Token, map[string]string{"managerId": m1.ID}, http.StatusForbidden, nil)
	// unknown users
	env.call(http.MethodPut, "/api/v1/users/00000000-0000-0000-0000-000000000000/manager", headToken, map[string]string{"managerId": m1.ID}, http.StatusNotFound, nil)
	// non-HEAD callers are rejected before the target is looked up
	env.call(http.MethodPut, "/api/v1/users/00000000-0000-0000-0000-000000000000/manager", m1Token, map[string]string{"managerId": m1.ID}, http.StatusForbidden, nil)
	assertManagerInvariant(t, env)

	env.call(http.MethodPut, path, headToken, map[string]interface{}{"managerId": nil}, http.StatusOK, &updated)
	assert.Nil(t, updated.ManagerID)
	assertManagerInvariant(t, env)
}

func TestCreateUser(t *testing.T) {
	env := newTestEnv(t)
	_, headToken := env.createUser("head", models.RoleHead, nil)
	m1, m1Token := env.createUser("m1", models.RoleManager, nil)
	m2, _ := env.createUser("m2", models.RoleManager, nil)
	_, e1Token := env.createUser("e1", models.RoleEmployee, nil)

	newUser := func(name string, role models.Role, managerID *string) map[string]interface{} {
		body := map[string]interface{}{
			"name":     name,
			"email":    name + "@example.com",
			"password": "password123",
			"role":     role,
		}
		if managerID != nil {
			body["managerId"] = *managerID
		}
		return body
	}

	var created models.User
	env.call(http.MethodPost, "/api/v1/users", m1Token, newUser("report", models.RoleEmployee, nil), http.StatusCreated, &created)
	require.NotNil(t, created.ManagerID)
	assert.Equal(t, m1.ID, *created.ManagerID)

	env.call(http.MethodPost, "/api/v1/users", headToken, newUser("assigned", models.RoleEmployee, &m2.ID), http.StatusCreated, &created)
	assert.Equal(t, m2.ID, *created.ManagerID)

	env.call(http.MethodPost, "/api/v1/users", headToken, newUser("boss", models.RoleManager, nil), http.StatusCreated, &created)
	assert.Equal(t, models.RoleManager, created.Role)
	assert.Nil(t, created.ManagerID)

	env.call(http.MethodPost, "/api/v1/users", m1Token, newUser("peer", models.RoleManager, nil), http.StatusForbidden, nil)
	env.call(http.MethodPost, "/api/v1/users", m1Token, newUser("poached", models.RoleEmployee, &m2.ID), http.StatusForbidden, nil)
	env.call(http.MethodPost, "/api/v1/users", headToken, newUser("king", models.RoleHead, nil), http.StatusForbidden, nil)
	env.call(http.MethodPost, "/api/v1/users", e1Token, newUser("friend", models.RoleEmployee, nil), http.StatusForbidden, nil)
	env.call(http.MethodPost, "/api/v1/users", headToken, newUser("managed", models.RoleManager, &m1.ID), http.StatusBadRequest, nil)
	env.call(http.MethodPost, "/api/v1/users", headToken, newUser("report", models.RoleEmployee, nil), http.StatusConflict, nil)

	assertManagerInvariant(t, env)
}

func TestListUsers(t *testing.T) {
	env := newTestEnv(t)
	_, headToken := env.createUser("head", models.RoleHead, nil)
	m1, m1Token := env.createUser("m1", models.RoleManager, nil)
	env.createUser("e1", models.RoleEmployee, &m1.ID)
	env.createUser("e2", models.RoleEmployee, &m1.ID)
	_, e3Token := env.createUser("e3", models.RoleEmployee, nil)

	var users []models.User
	env.call(http.MethodGet, "/api/v1/users", headToken, nil, http.StatusOK, &users)
	assert.Len(t, users, 5)

	env.call(http.MethodGet, "/api/v1/users?role=MANAGER", headToken, nil, http.StatusOK, &users)
	require.Len(t, users, 1)
	assert.Equal(t, "m1", users[0].Name)

	env.call(http.MethodGet, "/api/v1/users", m1Token, nil, http.StatusOK, &users)
	require.Len(t, users, 2)
	assert.Equal(t, []string{"e1", "e2"}, []string{users[0].Name, users[1].Name})

	env.call(http.MethodGet, "/api/v1/users", e3Token, nil, http.StatusForbidden, nil)

	var managers []models.User
	env.call(http.MethodGet, "/api/v1/users/managers", headToken, nil, http.StatusOK, &managers)
	assert.Len(t, managers, 1)
	env.call(http.MethodGet, "/api/v1/users/managers", m1Token, nil, http.StatusForbidden, nil)
}

package controller_test

import (
	"encoding/json"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"taskhub/models"
)

func TestTeamPermissions(t *testing.T) {
	env := newTestEnv(t)
	u1, u1Token := env.createUser("u1", models.RoleEmployee, nil)
	u2, u2Token := env.createUser("u2", models.RoleEmployee, nil)
	_, headToken := env.createUser("head", models.RoleHead, nil)
	_, outsiderToken := env.createUser("outsider", models.RoleManager, nil)
	team := env.createTeam("core", u1.ID, u1.ID, u2.ID)

	path := "/api/v1/teams/" + team.ID + "/permissions"
	permissions := func(token string) map[string]bool {
		resp, data := env.request(http.MethodGet, path, token, nil)
		require.Equal(t, http.StatusOK, resp.StatusCode, "body: %s", data)
		var out map[string]bool
		require.NoError(t, json.Unmarshal(data, &out))
		return out
	}

	assert.Equal(t, map[string]bool{
		"isLeader":       false,
		"isHead":         false,
		"isManager":      false,
		"isMember":       true,
		"canManageTasks": false,
	}, permissions(u2Token))

	assert.Equal(t, map[string]bool{
		"isLeader":       true,
		"isHead":         false,
		"isManager":      false,
		"isMember":       true,
		"canManageTasks": true,
	}, permissions(u1Token))

	assert.Equal(t, map[string]bool{
		"isLeader":       false,
		"isHead":         true,
		"isManager":      false,
		"isMember":       false,
		"canManageTasks": true,
	}, permissions(headToken))

	env.call(http.MethodGet, path, outsiderToken, nil, http.StatusForbidden, nil)
	env.call(http.MethodGet, "/api/v1/teams/00000000-0000-0000-0000-000000000000/permissions", headToken, nil, http.StatusNotFound, nil)
}

func TestRequestUpdate(t *testing.T) {
	env := newTestEnv(t)
	leader, leaderToken := env.createUser("leader", models.RoleManager, nil)
	member, memberToken := env.createUser("member", models.RoleEmployee, nil)
	other, _ := env.createUser("other", models.RoleEmployee, nil)
	_, outsiderToken := env.createUser("outsider", models.RoleEmployee, nil)
	_, headToken := env.createUser("head", models.RoleHead, nil)
	team := env.createTeam("core", leader.ID, leader.ID, member.ID, other.ID)

	path := "/api/v1/teams/" + team.ID + "/update-requests"

	env.call(http.MethodPost, path, outsiderToken, map[string]string{}, http.StatusForbidden, nil)
	env.call(http.MethodPost, path, memberToken, map[string]string{}, http.StatusForbidden, nil)

	var sent []models.Notification
	env.call(http.MethodPost, path, leaderToken, map[string]string{"message": "status please"}, http.StatusCreated, &sent)
	require.Len(t, sent, 2)
	recipients := []string{sent[0].UserID, sent[1].UserID}
	assert.ElementsMatch(t, []string{member.ID, other.ID}, recipients)
	for _, n := range sent {
		assert.Equal(t, models.NotificationUpdateRequest, n.Type)
		assert.Equal(t, "status please", n.Message)
		require.NotNil(t, n.TeamID)
		assert.Equal(t, team.ID, *n.TeamID)
	}

	env.call(http.MethodPost, path, headToken, map[string][]string{"memberIds": {member.ID}}, http.StatusCreated, &sent)
	require.Len(t, sent, 1)
	env.call(http.MethodPost, path, headToken, map[string][]string{
		"memberIds": {"00000000-0000-0000-0000-000000000000"},
	}, http.StatusBadRequest, nil)

	var requests []models.Notification
	env.call(http.MethodGet, path, memberToken, nil, http.StatusOK, &requests)
	assert.Len(t, requests, 3)
	env.call(http.MethodGet, path, outsiderToken, nil, http.StatusForbidden, nil)

	var inbox []models.Notification
	env.call(http.MethodGet, "/api/v1/notifications?unread=true", memberToken, nil, http.StatusOK, &inbox)
	require.Len(t, inbox, 2)
	env.call(http.MethodPut, "/api/v1/notifications/"+inbox[0].ID+"/read", outsiderToken, nil, http.StatusForbidden, nil)
	env.call(http.MethodPut, "/api/v1/notifications/"+inbox[0].ID+"/read", memberToken, nil, http.StatusOK, nil)
	env.call(http.MethodGet, "/api/v1/notifications?unread=true", memberToken, nil, http.StatusOK, &inbox)
	assert.Len(t, inbox, 1)
	env.call(http.MethodPut, "/api/v1/notifications/read-all", memberToken, nil, http.StatusOK, nil)
	env.call(http.MethodGet, "/api/v1/notifications?unread=true", memberToken, nil, http.StatusOK, &inbox)
	assert.Empty(t, inbox)
}

func TestTeamsLifecycle(t *testing.T) {
	env := newTestEnv(t)
	_, headToken := env.createUser("head", models.RoleHead, nil)
	manager, managerToken := env.createUser("manager", models.RoleManager, nil)
	report, _ := env.createUser("report", models.RoleEmployee, &manager.ID)
	loner, lonerToken := env.createUser("loner", models.RoleEmployee, nil)

	env.call(http.MethodPost, "/api/v1/teams", lonerToken, map[string]string{"name": "nope"}, http.StatusForbidden, nil)

	var team models.Team
	env.call(http.MethodPost, "/api/v1/teams", managerToken, map[string]interface{}{
		"name":      "platform",
		"memberIds": []string{report.ID},
	}, http.StatusCreated, &team)
	assert.Equal(t, manager.ID, team.LeaderID)
	assert.Len(t, team.Members, 2)

	var teams []models.Team
	env.call(http.MethodGet, "/api/v1/teams", managerToken, nil, http.StatusOK, &teams)
	assert.Len(t, teams, 1)
	env.call(http.MethodGet, "/api/v1/teams", lonerToken, nil, http.StatusOK, &teams)
	assert.Empty(t, teams)
	env.call(http.MethodGet, "/api/v1/teams", headToken, nil, http.StatusOK, &teams)
	assert.Len(t, teams, 1)

	env.call(http.MethodGet, "/api/v1/teams/"+team.ID, lonerToken, nil, http.StatusForbidden, nil)

	members := "/api/v1/teams/" + team.ID + "/members"
	env.call(http.MethodPost, members, lonerToken, map[string]string{"userId": loner.ID}, http.StatusForbidden, nil)
	env.call(http.MethodPost, members, managerToken, map[string]string{"userId": loner.ID}, http.StatusCreated, nil)
	env.call(http.MethodPost, members, managerToken, map[string]string{"userId": loner.ID}, http.StatusConflict, nil)
	env.call(http.MethodGet, "/api/v1/teams/"+team.ID, lonerToken, nil, http.StatusOK, nil)

	env.call(http.MethodDelete, members+"/"+manager.ID, headToken, nil, http.StatusBadRequest, nil)
	env.call(http.MethodDelete, members+"/"+loner.ID, managerToken, nil, http.StatusOK, nil)
	env.call(http.MethodDelete, members+"/"+loner.ID, managerToken, nil, http.StatusNotFound, nil)
}

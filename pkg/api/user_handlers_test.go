package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/questlog/questlog/pkg/auth"
	"github.com/questlog/questlog/pkg/users"
)

func TestCurrentUser(t *testing.T) {
	env := newTestEnv(t)

	w := env.do("GET", "/api/user/me", "", nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.JSONEq(t, `{"error":"authentication required"}`, w.Body.String())

	w = env.do("GET", "/api/user/me", env.login(t, "alice"), nil)
	require.Equal(t, http.StatusOK, w.Code)

	var me UserResponse
	decode(t, w, &me)
	assert.Equal(t, "alice", me.Username)
	assert.Equal(t, "alice@example.com", me.Email)
	assert.False(t, me.Admin)
	assert.Equal(t, []auth.Authority{auth.AuthorityUser}, me.Authorities)
	assert.NotContains(t, w.Body.String(), "$2a$")
}

func TestCurrentUser_BadTokens(t *testing.T) {
	env := newTestEnv(t)
	token := env.login(t, "alice")

	for _, header := range []string{"bearer " + token, "Token " + token, "Bearer x.y.z", token} {
		req := httptest.NewRequest("GET", "/api/user/me", nil)
		req.Header.Set("Authorization", header)
		w := httptest.NewRecorder()
		env.server.ServeHTTP(w, req)
		assert.Equal(t, http.StatusUnauthorized, w.Code, header)
	}
}

func TestGetUser_SelfOrAdmin(t *testing.T) {
	env := newTestEnv(t)
	aliceToken := env.login(t, "alice")
	rootToken := env.login(t, "root")

	alicePath := fmt.Sprintf("/api/user/%d", env.alice.ID)
	rootPath := fmt.Sprintf("/api/user/%d", env.root.ID)

	assert.Equal(t, http.StatusOK, env.do("GET", alicePath, aliceToken, nil).Code)
	assert.Equal(t, http.StatusForbidden, env.do("GET", rootPath, aliceToken, nil).Code)
	assert.Equal(t, http.StatusOK, env.do("GET", alicePath, rootToken, nil).Code)
	assert.Equal(t, http.StatusUnauthorized, env.do("GET", alicePath, "", nil).Code)
	assert.Equal(t, http.StatusNotFound, env.do("GET", "/api/user/9999", rootToken, nil).Code)
}

func TestAdmin_ListUsers(t *testing.T) {
	env := newTestEnv(t)

	assert.Equal(t, http.StatusUnauthorized, env.do("GET", "/api/admin/users", "", nil).Code)

	w := env.do("GET", "/api/admin/users", env.login(t, "alice"), nil)
	assert.Equal(t, http.StatusForbidden, w.Code)
	assert.JSONEq(t, `{"error":"admin privileges required"}`, w.Body.String())

	w = env.do("GET", "/api/admin/users", env.login(t, "root"), nil)
	require.Equal(t, http.StatusOK, w.Code)

	var list []UserResponse
	decode(t, w, &list)
	require.Len(t, list, 2)
	assert.ElementsMatch(t, []string{"alice", "root"}, []string{list[0].Username, list[1].Username})
}

func TestAdmin_ListUsersStoreFailure(t *testing.T) {
	env := newTestEnv(t, withStore(func(s users.Store) users.Store {
		return listFailingStore{Store: s, err: errors.New("timeout")}
	}))

	w := env.do("GET", "/api/admin/users", env.login(t, "root"), nil)
	assert.Equal(t, http.StatusInternalServerError, w.Code)
}

// Scenario: granting admin takes effect on the user's existing token.
func TestAdmin_GrantAndRevoke(t *testing.T) {
	env := newTestEnv(t)
	aliceToken := env.login(t, "alice")
	rootToken := env.login(t, "root")

	grantPath := fmt.Sprintf("/api/admin/users/%d/grant-admin", env.alice.ID)
	revokePath := fmt.Sprintf("/api/admin/users/%d/revoke-admin", env.alice.ID)

	assert.Equal(t, http.StatusForbidden, env.do("PUT", grantPath, aliceToken, nil).Code)

	w := env.do("PUT", grantPath, rootToken, nil)
	require.Equal(t, http.StatusOK, w.Code)

	var resp AdminChangeResponse
	decode(t, w, &resp)
	assert.Equal(t, "Admin privileges granted successfully", resp.Message)
	assert.True(t, resp.User.Admin)
	assert.Equal(t, []auth.Authority{auth.AuthorityAdmin}, resp.User.Authorities)

	assert.Equal(t, http.StatusOK, env.do("GET", "/api/admin/users", aliceToken, nil).Code)

	w = env.do("PUT", revokePath, rootToken, nil)
	require.Equal(t, http.StatusOK, w.Code)
	decode(t, w, &resp)
	assert.Equal(t, "Admin privileges revoked successfully", resp.Message)
	assert.False(t, resp.User.Admin)

	assert.Equal(t, http.StatusForbidden, env.do("GET", "/api/admin/users", aliceToken, nil).Code)

	audit := env.auditBuf.String()
	assert.Contains(t, audit, auth.ActionGrantAdmin)
	assert.Contains(t, audit, auth.ActionRevokeAdmin)
}

func TestAdmin_GrantErrors(t *testing.T) {
	env := newTestEnv(t)
	rootToken := env.login(t, "root")

	w := env.do("PUT", "/api/admin/users/9999/grant-admin", rootToken, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.JSONEq(t, `{"error":"user not found"}`, w.Body.String())

	w = env.do("PUT", "/api/admin/users/abc/grant-admin", rootToken, nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = env.do("GET", "/api/admin/users/1/grant-admin", rootToken, nil)
	assert.Equal(t, http.StatusMethodNotAllowed, w.Code)
}

// listFailingStore fails only List
type listFailingStore struct {
	users.Store
	err error
}

func (s listFailingStore) List(ctx context.Context) ([]*auth.Principal, error) {
	return nil, s.err
}

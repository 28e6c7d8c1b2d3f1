package tests

import (
	"context"
	"net/http"
	"testing"

	"github.com/dgrijalva/jwt-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	. "github.com/trezcool/academia/apps/api/echo"
	"github.com/trezcool/academia/core/user"
	"github.com/trezcool/academia/tests"
)

func Test_home(t *testing.T) {
	app, c := setup(t)

	req, rec := newAuthRequest(http.MethodGet, "/", "")
	app.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "Welcome to "+c.Conf.AppName+" API!", rec.Body.String())
}

func Test_userApi_login(t *testing.T) {
	app, c := setup(t)
	pwd := "Sup3r-Secret!"
	usr := testutil.CreateUser(t, c.Repos.Users, "awe", pwd, nil, true)
	testutil.CreateUser(t, c.Repos.Users, "ndog", pwd, nil, false)

	body := func(uname, pwd string) []byte {
		return marchallObj(t, LoginRequest{Username: uname, Password: pwd})
	}
	tests := []httpTest{
		{name: "missing credentials", body: body("", ""), wantCode: http.StatusBadRequest},
		{name: "unknown user", body: body("lol", pwd), wantCode: http.StatusBadRequest, wantData: marchallObj(t, httpErr{Error: user.ErrAuthenticationFailed.Error()})},
		{name: "wrong password", body: body("awe", "lol"), wantCode: http.StatusBadRequest, wantData: marchallObj(t, httpErr{Error: user.ErrAuthenticationFailed.Error()})},
		{name: "deactivated", body: body("ndog", pwd), wantCode: http.StatusForbidden, wantData: marchallObj(t, httpErr{Error: user.ErrAccountDeactivated.Error()})},
		{name: "case insensitive username", body: body(" AWE ", pwd), wantCode: http.StatusOK},
	}
	for _, tt := range tests {
		tt.method = http.MethodPost
		tt.path = "/v1/users/login"

		t.Run(tt.name, func(t *testing.T) {
			rec := tt.run(t, app)
			if rec.Code != http.StatusOK {
				return
			}

			var resp LoginResponse
			unmarchall(t, rec, &resp)
			claims := new(Claims)
			token, err := jwt.ParseWithClaims(resp.Token, claims, func(*jwt.Token) (interface{}, error) {
				return []byte(c.Conf.SecretKey), nil
			})
			require.NoError(t, err)
			assert.True(t, token.Valid)
			assert.Equal(t, usr.ID, claims.Subject)
			assert.Equal(t, "awe", claims.Username)
			assert.Equal(t, string(user.RoleParticipant), claims.Role)

			refreshed, err := c.Repos.Users.GetUserByID(context.Background(), usr.ID)
			require.NoError(t, err)
			assert.False(t, refreshed.LastLogin.IsZero(), "last login not recorded")
		})
	}
}

func Test_userApi_profile(t *testing.T) {
	app, c := setup(t)
	ctx := context.Background()

	curator, _ := actorToken(t, c, "cura", user.RoleCurator)
	participant, token := actorToken(t, c, "awe", user.RoleParticipant)
	golang := testutil.CreateCatalog(t, c.Repos.Catalog, "golang", 2, curator.UserID)

	enr, err := c.Ledger.Request(ctx, participant, golang.Program.ID)
	require.NoError(t, err)
	_, err = c.Ledger.SetApproval(ctx, curator, enr.ID, true)
	require.NoError(t, err)
	sub, err := c.Tracker.Submit(ctx, participant, golang.Assignments[0].ID, submissionAnswer("42"))
	require.NoError(t, err)
	_, err = c.Tracker.Review(ctx, curator, sub.ID, "accepted")
	require.NoError(t, err)

	(httpTest{path: "/v1/users/me", wantCode: http.StatusUnauthorized, wantData: marchallObj(t, errMissingToken)}).run(t, app)
	(httpTest{path: "/v1/users/me", token: "lol", wantCode: http.StatusUnauthorized}).run(t, app)

	rec := (httpTest{path: "/v1/users/me", token: token, wantCode: http.StatusOK}).run(t, app)
	var resp ProfileResponse
	unmarchall(t, rec, &resp)
	assert.Equal(t, participant.UserID, resp.User.ID)
	assert.Equal(t, user.RoleParticipant, resp.Role)
	assert.Empty(t, resp.Certificates)
	if assert.Len(t, resp.Progress, 1) {
		assert.Equal(t, golang.Program.ID, resp.Progress[0].ProgramID)
		assert.Equal(t, 2, resp.Progress[0].Required)
		assert.Equal(t, 1, resp.Progress[0].Accepted)
	}
	assert.Equal(t, 50, resp.ProgressPercent)
	assert.NotContains(t, rec.Body.String(), "password")
}

func Test_userApi_deactivatedToken(t *testing.T) {
	app, c := setup(t)
	usr := testutil.CreateUser(t, c.Repos.Users, "ndog", "", nil, false)

	(httpTest{
		path: "/v1/users/me", token: getToken(t, c, usr),
		wantCode: http.StatusForbidden, wantData: marchallObj(t, httpErr{Error: "account deactivated"}),
	}).run(t, app)

	ghost := user.User{ID: "ghost", Username: "ghost"}
	(httpTest{
		path: "/v1/users/me", token: getToken(t, c, ghost),
		wantCode: http.StatusUnauthorized, wantData: marchallObj(t, httpErr{Error: "user not authenticated"}),
	}).run(t, app)
}

func Test_userApi_stats(t *testing.T) {
	app, c := setup(t)

	_, adminToken := actorToken(t, c, "admin", user.RoleAdmin)
	curator, curatorToken := actorToken(t, c, "cura", user.RoleCurator)
	actorToken(t, c, "awe", user.RoleParticipant)
	actorToken(t, c, "bob", user.RoleParticipant)
	testutil.CreateCatalog(t, c.Repos.Catalog, "golang", 1, curator.UserID)

	tests := []httpTest{
		{name: "auth required", wantCode: http.StatusUnauthorized, wantData: marchallObj(t, errMissingToken)},
		{name: "admin required", token: curatorToken, wantCode: http.StatusForbidden, wantData: marchallObj(t, httpErr{Error: "permission denied"})},
		{
			name: "admin", token: adminToken, wantCode: http.StatusOK,
			wantData: marchallObj(t, StatsResponse{Participants: 2, Curators: 1, Programs: 1, Certificates: 0}),
		},
	}
	for _, tt := range tests {
		tt.path = "/v1/stats"
		t.Run(tt.name, func(t *testing.T) {
			tt.run(t, app)
		})
	}
}

func Test_userApi_curators(t *testing.T) {
	app, c := setup(t)

	_, adminToken := actorToken(t, c, "admin", user.RoleAdmin)
	zoe, curatorToken := actorToken(t, c, "zoe", user.RoleCurator)
	ann, _ := actorToken(t, c, "ann", user.RoleCurator)
	actorToken(t, c, "awe", user.RoleParticipant)

	(httpTest{path: "/v1/curators", token: curatorToken, wantCode: http.StatusForbidden}).run(t, app)

	var curators []user.User
	rec := (httpTest{path: "/v1/curators", token: adminToken, wantCode: http.StatusOK}).run(t, app)
	unmarchall(t, rec, &curators)
	require.Len(t, curators, 2)
	assert.Equal(t, ann.UserID, curators[0].ID)
	assert.Equal(t, zoe.UserID, curators[1].ID)
	assert.NotContains(t, rec.Body.String(), "password")
}

package tests

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"reflect"
	"testing"

	"github.com/stretchr/testify/require"

	. "github.com/trezcool/academia/apps/api/echo"
	"github.com/trezcool/academia/apps/di"
	"github.com/trezcool/academia/core/user"
	"github.com/trezcool/academia/storage/database"
	"github.com/trezcool/academia/tests"
)

var errMissingToken = httpErr{Error: "missing or malformed jwt"}

// setup wires a fresh application on a sqlite database of its own.
func setup(t *testing.T) (Server, *di.Container) {
	c := testutil.NewContainer(t, database.EngineSQLite)
	app := NewServer(ServerDeps{
		Conf:         c.Conf,
		Logger:       c.Logger,
		Validate:     c.Validate,
		Translator:   c.Translator,
		UserSvc:      c.UserSvc,
		CatalogSvc:   c.CatalogSvc,
		Ledger:       c.Ledger,
		Tracker:      c.Tracker,
		Evaluator:    c.Evaluator,
		Certificates: c.Certificates,
		ProgressSvc:  c.ProgressSvc,
	})
	return app, c
}

type httpErr struct {
	Error string `json:"error"`
}

type httpTest struct {
	name     string
	method   string
	path     string
	body     []byte
	token    string
	wantCode int
	wantData []byte // not checked when nil
}

func (tt httpTest) run(t *testing.T, app Server) *httptest.ResponseRecorder {
	method := tt.method
	if method == "" {
		method = http.MethodGet
	}
	req, rec := newAuthRequest(method, tt.path, tt.token, tt.body)
	app.ServeHTTP(rec, req)
	checkCodeAndData(t, tt, rec)
	return rec
}

func newAuthRequest(method, path, token string, data ...[]byte) (*http.Request, *httptest.ResponseRecorder) {
	var body bytes.Buffer
	if len(data) > 0 {
		body.Write(data[0])
	}
	req := httptest.NewRequest(method, path, &body)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	return req, rec
}

func getToken(t *testing.T, c *di.Container, usr user.User) string {
	token, err := GenerateToken(c.Conf, usr)
	require.NoError(t, err, "getToken()")
	return token
}

func actorToken(t *testing.T, c *di.Container, uname string, role user.Role) (user.Actor, string) {
	usr := testutil.CreateUser(t, c.Repos.Users, uname, "", []user.Role{role}, true)
	return user.NewActor(usr), getToken(t, c, usr)
}

func marchallObj(t *testing.T, obj interface{}) []byte {
	data, err := json.Marshal(obj)
	require.NoError(t, err, "marchallObj()")
	return data
}

func unmarchall(t *testing.T, rec *httptest.ResponseRecorder, obj interface{}) {
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), obj), "unmarchall(): %s", rec.Body.String())
}

func jsonBytesEqual(b1, b2 []byte) (bool, error) {
	var j1, j2 interface{}
	if err := json.Unmarshal(b1, &j1); err != nil {
		return false, err
	}
	if err := json.Unmarshal(b2, &j2); err != nil {
		return false, err
	}
	return reflect.DeepEqual(j1, j2), nil
}

func checkCodeAndData(t *testing.T, tt httpTest, rec *httptest.ResponseRecorder) {
	t.Helper()
	if rec.Code != tt.wantCode {
		t.Errorf("failed! code = %v; wantCode %v; body %s", rec.Code, tt.wantCode, rec.Body.String())
	}
	if tt.wantData == nil {
		return
	}
	ok, err := jsonBytesEqual(rec.Body.Bytes(), tt.wantData)
	if err != nil {
		t.Errorf("jsonBytesEqual() failed to compare; err %v", err)
	}
	if !ok {
		t.Errorf("failed! data = %v; wantData %v", rec.Body.String(), string(tt.wantData))
	}
}

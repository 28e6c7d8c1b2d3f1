package tests

import (
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	. "github.com/trezcool/academia/apps/api/echo"
	"github.com/trezcool/academia/core/catalog"
	"github.com/trezcool/academia/core/user"
	"github.com/trezcool/academia/tests"
)

func Test_catalogApi_manage(t *testing.T) {
	app, c := setup(t)

	curator, curatorToken := actorToken(t, c, "cura", user.RoleCurator)
	_, participantToken := actorToken(t, c, "awe", user.RoleParticipant)

	// sections & modules
	(httpTest{
		method: http.MethodPost, path: "/v1/sections", token: participantToken,
		body:     marchallObj(t, catalog.NewSection{Name: "golang"}),
		wantCode: http.StatusForbidden, wantData: marchallObj(t, httpErr{Error: "permission denied: participant cannot manage sections"}),
	}).run(t, app)
	(httpTest{
		method: http.MethodPost, path: "/v1/sections", token: curatorToken,
		body: marchallObj(t, catalog.NewSection{Name: "  "}), wantCode: http.StatusBadRequest,
	}).run(t, app)

	var sec catalog.Section
	rec := (httpTest{
		method: http.MethodPost, path: "/v1/sections", token: curatorToken,
		body: marchallObj(t, catalog.NewSection{Name: "golang"}), wantCode: http.StatusCreated,
	}).run(t, app)
	unmarchall(t, rec, &sec)
	require.NotEmpty(t, sec.ID)

	var mod catalog.Module
	rec = (httpTest{
		method: http.MethodPost, path: "/v1/modules", token: curatorToken,
		body: marchallObj(t, catalog.NewModule{SectionID: sec.ID, Name: "basics"}), wantCode: http.StatusCreated,
	}).run(t, app)
	unmarchall(t, rec, &mod)
	assert.Equal(t, sec.ID, mod.SectionID)

	// programs
	other := testutil.CreateCatalog(t, c.Repos.Catalog, "rust", 0)
	progPath := "/v1/programs"
	tests := []httpTest{
		{
			name: "unknown section", body: marchallObj(t, catalog.ProgramInput{SectionID: "lol", Name: "go"}),
			wantCode: http.StatusNotFound, wantData: marchallObj(t, httpErr{Error: "section not found"}),
		},
		{
			name: "module of another section", body: marchallObj(t, catalog.ProgramInput{SectionID: sec.ID, Name: "go", ModuleIDs: []string{other.Module.ID}}),
			wantCode: http.StatusBadRequest,
		},
		{
			name: "curator is not a curator", body: marchallObj(t, catalog.ProgramInput{SectionID: sec.ID, Name: "go", CuratorIDs: []string{other.Section.ID}}),
			wantCode: http.StatusBadRequest,
		},
	}
	for _, tt := range tests {
		tt.method = http.MethodPost
		tt.path = progPath
		tt.token = curatorToken
		t.Run(tt.name, func(t *testing.T) {
			tt.run(t, app)
		})
	}

	var prog catalog.Program
	rec = (httpTest{
		method: http.MethodPost, path: progPath, token: curatorToken,
		body: marchallObj(t, catalog.ProgramInput{
			SectionID: sec.ID, Name: "Go in practice", CuratorIDs: []string{curator.UserID}, ModuleIDs: []string{mod.ID},
		}),
		wantCode: http.StatusCreated,
	}).run(t, app)
	unmarchall(t, rec, &prog)
	assert.Equal(t, []string{curator.UserID}, prog.CuratorIDs)
	assert.Equal(t, []string{mod.ID}, prog.ModuleIDs)

	rec = (httpTest{
		method: http.MethodPut, path: progPath + "/" + prog.ID, token: curatorToken,
		body:     marchallObj(t, catalog.ProgramInput{SectionID: sec.ID, Name: "Go, for real", ModuleIDs: []string{mod.ID}}),
		wantCode: http.StatusOK,
	}).run(t, app)
	unmarchall(t, rec, &prog)
	assert.Equal(t, "Go, for real", prog.Name)
	assert.Empty(t, prog.CuratorIDs)

	// assignments
	var asg catalog.Assignment
	rec = (httpTest{
		method: http.MethodPost, path: "/v1/assignments", token: curatorToken,
		body: marchallObj(t, catalog.AssignmentInput{ModuleID: mod.ID, Title: "hello world"}), wantCode: http.StatusCreated,
	}).run(t, app)
	unmarchall(t, rec, &asg)
	(httpTest{path: "/v1/assignments/" + asg.ID, token: participantToken, wantCode: http.StatusOK}).run(t, app)
	(httpTest{method: http.MethodDelete, path: "/v1/assignments/" + asg.ID, token: participantToken, wantCode: http.StatusForbidden}).run(t, app)
	(httpTest{method: http.MethodDelete, path: "/v1/assignments/" + asg.ID, token: curatorToken, wantCode: http.StatusNoContent}).run(t, app)
	(httpTest{
		path: "/v1/assignments/" + asg.ID, token: participantToken,
		wantCode: http.StatusNotFound, wantData: marchallObj(t, httpErr{Error: "assignment not found"}),
	}).run(t, app)

	(httpTest{method: http.MethodDelete, path: progPath + "/" + prog.ID, token: curatorToken, wantCode: http.StatusNoContent}).run(t, app)
	(httpTest{path: progPath + "/" + prog.ID, token: curatorToken, wantCode: http.StatusNotFound}).run(t, app)

	// section edit & delete
	secPath := "/v1/sections/" + sec.ID
	(httpTest{
		method: http.MethodPut, path: secPath, token: participantToken,
		body: marchallObj(t, catalog.NewSection{Name: "go"}), wantCode: http.StatusForbidden,
	}).run(t, app)
	(httpTest{
		method: http.MethodPut, path: "/v1/sections/lol", token: curatorToken,
		body: marchallObj(t, catalog.NewSection{Name: "go"}), wantCode: http.StatusNotFound,
		wantData: marchallObj(t, httpErr{Error: "section not found"}),
	}).run(t, app)
	rec = (httpTest{
		method: http.MethodPut, path: secPath, token: curatorToken,
		body: marchallObj(t, catalog.NewSection{Name: "go", Description: "The Go language"}), wantCode: http.StatusOK,
	}).run(t, app)
	unmarchall(t, rec, &sec)
	assert.Equal(t, "go", sec.Name)
	assert.Equal(t, "The Go language", sec.Description)

	(httpTest{method: http.MethodDelete, path: secPath, token: participantToken, wantCode: http.StatusForbidden}).run(t, app)
	(httpTest{method: http.MethodDelete, path: secPath, token: curatorToken, wantCode: http.StatusNoContent}).run(t, app)
	(httpTest{method: http.MethodDelete, path: secPath, token: curatorToken, wantCode: http.StatusNotFound}).run(t, app)
	(httpTest{
		method: http.MethodPost, path: "/v1/assignments", token: curatorToken,
		body:     marchallObj(t, catalog.AssignmentInput{ModuleID: mod.ID, Title: "orphan"}),
		wantCode: http.StatusNotFound, wantData: marchallObj(t, httpErr{Error: "module not found"}),
	}).run(t, app)
}

func Test_catalogApi_favoritesAndMaterials(t *testing.T) {
	app, c := setup(t)

	_, curatorToken := actorToken(t, c, "cura", user.RoleCurator)
	_, token := actorToken(t, c, "awe", user.RoleParticipant)
	golang := testutil.CreateCatalog(t, c.Repos.Catalog, "golang", 1)

	favPath := "/v1/programs/" + golang.Program.ID + "/favorite"
	(httpTest{method: http.MethodPost, path: favPath, token: curatorToken, wantCode: http.StatusForbidden}).run(t, app)
	(httpTest{method: http.MethodPost, path: "/v1/programs/lol/favorite", token: token, wantCode: http.StatusNotFound}).run(t, app)

	(httpTest{method: http.MethodPost, path: favPath, token: token, wantCode: http.StatusOK, wantData: marchallObj(t, FavoriteResponse{IsFavorite: true})}).run(t, app)
	(httpTest{path: "/v1/favorites", token: token, wantCode: http.StatusOK, wantData: marchallObj(t, IDsResponse{IDs: []string{golang.Program.ID}})}).run(t, app)

	var prog ProgramResponse
	rec := (httpTest{path: "/v1/programs/" + golang.Program.ID, token: token, wantCode: http.StatusOK}).run(t, app)
	unmarchall(t, rec, &prog)
	assert.True(t, prog.IsFavorite)

	(httpTest{method: http.MethodPost, path: favPath, token: token, wantCode: http.StatusOK, wantData: marchallObj(t, FavoriteResponse{IsFavorite: false})}).run(t, app)
	rec = (httpTest{path: "/v1/favorites", token: token, wantCode: http.StatusOK}).run(t, app)
	var favs IDsResponse
	unmarchall(t, rec, &favs)
	assert.Empty(t, favs.IDs)

	// materials
	matPath := "/v1/materials/" + golang.Material.ID
	(httpTest{path: matPath, token: token, wantCode: http.StatusOK}).run(t, app)
	(httpTest{method: http.MethodPost, path: matPath + "/viewed", token: curatorToken, wantCode: http.StatusForbidden}).run(t, app)
	(httpTest{method: http.MethodPost, path: "/v1/materials/lol/viewed", token: token, wantCode: http.StatusNotFound}).run(t, app)
	(httpTest{method: http.MethodPost, path: matPath + "/viewed", token: token, wantCode: http.StatusOK}).run(t, app)
	(httpTest{method: http.MethodPost, path: matPath + "/viewed", token: token, wantCode: http.StatusOK}).run(t, app)
	(httpTest{
		path: "/v1/materials/viewed", token: token,
		wantCode: http.StatusOK, wantData: marchallObj(t, IDsResponse{IDs: []string{golang.Material.ID}}),
	}).run(t, app)

	(httpTest{
		method: http.MethodPut, path: matPath, token: token,
		body: marchallObj(t, catalog.NewMaterial{ModuleID: golang.Module.ID, Title: "slides"}), wantCode: http.StatusForbidden,
	}).run(t, app)
	(httpTest{
		method: http.MethodPut, path: matPath, token: curatorToken,
		body: marchallObj(t, catalog.NewMaterial{ModuleID: golang.Module.ID, Title: "slides", FileType: "gif"}), wantCode: http.StatusBadRequest,
	}).run(t, app)
	var mat catalog.Material
	rec = (httpTest{
		method: http.MethodPut, path: matPath, token: curatorToken,
		body:     marchallObj(t, catalog.NewMaterial{ModuleID: golang.Module.ID, Title: "talk", File: "materials/talk.mp4", FileType: catalog.FileTypeVideo}),
		wantCode: http.StatusOK,
	}).run(t, app)
	unmarchall(t, rec, &mat)
	assert.Equal(t, golang.Material.ID, mat.ID)
	assert.Equal(t, catalog.FileTypeVideo, mat.FileType)
	// progress survives the edit
	(httpTest{
		path: "/v1/materials/viewed", token: token,
		wantCode: http.StatusOK, wantData: marchallObj(t, IDsResponse{IDs: []string{golang.Material.ID}}),
	}).run(t, app)
}

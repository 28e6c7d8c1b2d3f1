// Package testutil holds the fixtures shared by the package tests.
package testutil

import (
	"context"
	"fmt"
	"path/filepath"
	"testing"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/trezcool/academia/apps/di"
	"github.com/trezcool/academia/core"
	"github.com/trezcool/academia/core/catalog"
	"github.com/trezcool/academia/core/user"
	logsvc "github.com/trezcool/academia/services/logger"
	"github.com/trezcool/academia/storage/database"
)

// NewConfig returns the test configuration with a sqlite database in a temp dir.
func NewConfig(t *testing.T) *core.Config {
	conf := core.NewTestConfig()
	conf.Database.Engine = database.EngineSQLite
	conf.Database.SQLitePath = filepath.Join(t.TempDir(), "academia_test.db")
	conf.Certificate.MediaRoot = t.TempDir()
	return conf
}

// NewLogger returns a silent logger that never reports to Rollbar.
func NewLogger(conf *core.Config) core.Logger {
	logger := logsvc.NewRollbarLogger(zap.NewNop(), conf)
	logger.Enable(false)
	return logger
}

// PrepareDB opens a migrated sqlite database closed at the end of the test.
func PrepareDB(t *testing.T) *sqlx.DB {
	t.Helper()
	conf := NewConfig(t)

	db, err := database.OpenSQLite(conf.Database.SQLitePath)
	require.NoError(t, err, "opening test database")
	t.Cleanup(func() { _ = db.Close() })

	require.NoError(t, database.Migrate(db), "migrating test database")
	return db
}

// NewContainer wires the whole application on the given database engine (sqlite3 or memory).
func NewContainer(t *testing.T, engine string) *di.Container {
	t.Helper()
	conf := NewConfig(t)
	conf.Database.Engine = engine

	c, err := di.New(conf)
	require.NoError(t, err, "setting up container")
	c.Logger.Enable(false)
	t.Cleanup(c.Close)
	return c
}

func CreateUser(
	t *testing.T,
	repo user.Repository,
	uname, pwd string,
	roles []user.Role,
	isActive bool,
	createdAt ...time.Time,
) user.User {
	t.Helper()
	tstamp := time.Now().UTC()
	if len(createdAt) > 0 {
		tstamp = createdAt[0].UTC()
	}
	usr := user.User{
		Username:  uname,
		Email:     uname + "@test.cd",
		Roles:     roles,
		IsActive:  isActive,
		CreatedAt: tstamp,
		UpdatedAt: tstamp,
	}
	if pwd != "" {
		require.NoError(t, usr.SetPassword(pwd), "createUser()")
	}
	usr, err := repo.CreateUser(context.Background(), usr)
	require.NoError(t, err, "createUser()")
	return usr
}

// CreateActor creates an active user holding the single role and returns its actor.
func CreateActor(t *testing.T, repo user.Repository, uname string, role user.Role) user.Actor {
	t.Helper()
	return user.NewActor(CreateUser(t, repo, uname, "", []user.Role{role}, true))
}

// Catalog is a section with one module holding the assignments and a material,
// and a program of that section with the module in its syllabus.
type Catalog struct {
	Section     catalog.Section
	Module      catalog.Module
	Program     catalog.Program
	Assignments []catalog.Assignment
	Material    catalog.Material
}

func (c Catalog) AssignmentIDs() []string {
	ids := make([]string, 0, len(c.Assignments))
	for _, asg := range c.Assignments {
		ids = append(ids, asg.ID)
	}
	return ids
}

func CreateCatalog(t *testing.T, repo catalog.Repository, name string, assignments int, curatorIDs ...string) Catalog {
	t.Helper()
	ctx := context.Background()
	now := time.Now().UTC()
	var (
		cat Catalog
		err error
	)

	cat.Section, err = repo.CreateSection(ctx, catalog.Section{Name: name, CreatedAt: now})
	require.NoError(t, err, "creating section")

	cat.Module, err = repo.CreateModule(ctx, catalog.Module{SectionID: cat.Section.ID, Name: name + " basics", CreatedAt: now})
	require.NoError(t, err, "creating module")

	cat.Program, err = repo.CreateProgram(ctx, catalog.Program{
		SectionID:  cat.Section.ID,
		Name:       name,
		CuratorIDs: curatorIDs,
		ModuleIDs:  []string{cat.Module.ID},
		CreatedAt:  now,
		UpdatedAt:  now,
	})
	require.NoError(t, err, "creating program")

	for i := 0; i < assignments; i++ {
		asg, err := repo.CreateAssignment(ctx, catalog.Assignment{
			ModuleID:  cat.Module.ID,
			Title:     fmt.Sprintf("%s assignment %d", name, i+1),
			CreatedAt: now,
		})
		require.NoError(t, err, "creating assignment")
		cat.Assignments = append(cat.Assignments, asg)
	}

	cat.Material, err = repo.CreateMaterial(ctx, catalog.Material{
		ModuleID:  cat.Module.ID,
		Title:     name + " slides",
		File:      "materials/" + name + ".pdf",
		FileType:  catalog.FileTypePDF,
		CreatedAt: now,
	})
	require.NoError(t, err, "creating material")
	return cat
}

package main

import (
	"bytes"
	"context"
	"fmt"
	"strconv"
	"testing"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/academia/apps/di"
	"github.com/trezcool/academia/core"
	"github.com/trezcool/academia/core/submission"
	"github.com/trezcool/academia/core/user"
	"github.com/trezcool/academia/storage/database"
	"github.com/trezcool/academia/tests"
)

func setup(t *testing.T) (*commandLine, *di.Container) {
	c := testutil.NewContainer(t, database.EngineSQLite)

	// start CLI
	return &commandLine{
		db:        c.DB,
		usrSvc:    c.UserSvc,
		evaluator: c.Evaluator,
		validate:  c.Validate,
	}, c
}

type cliTest struct {
	name       string
	args       []string // without program name
	wantErr    error
	wantErrStr string
	wantErrIs  func(err error) bool
	extra      interface{}
}

func isValidatorErr(err error) bool {
	_, ok := err.(validator.ValidationErrors)
	return ok
}

func (tt cliTest) check(t *testing.T, err error) {
	switch {
	case tt.wantErr != nil:
		assert.Equal(t, tt.wantErr, err)
	case tt.wantErrIs != nil:
		assert.True(t, tt.wantErrIs(err), "unexpected error = %v", err)
	case tt.wantErrStr != "":
		if assert.Error(t, err) {
			assert.Equal(t, tt.wantErrStr, err.Error())
		}
	default:
		assert.NoError(t, err)
	}
}

// mockPasswords makes every prompt answer the next password of pwds.
func mockPasswords(pwds ...string) {
	var i int
	readPasswordFunc = func(fd int) ([]byte, error) {
		if i >= len(pwds) {
			return nil, nil
		}
		pwd := pwds[i]
		i++
		return []byte(pwd), nil
	}
}

func Test_commandLine_migrate(t *testing.T) {
	cli, _ := setup(t)

	runMigrationsFunc = func(db *sqlx.DB, command string, args ...string) error {
		switch command {
		case "up", "up-by-one", "down", "fix", "redo", "reset", "status", "version": // pass
		case "up-to", "down-to":
			if len(args) == 0 {
				return fmt.Errorf("%s must be of form: goose [OPTIONS] DRIVER DBSTRING %s VERSION", command, command)
			}
			if _, err := strconv.ParseInt(args[0], 10, 64); err != nil {
				return fmt.Errorf("version must be a number (got '%s')", args[0])
			}
		case "create":
			if len(args) == 0 {
				return fmt.Errorf("create must be of form: goose [OPTIONS] DRIVER DBSTRING create NAME [go|sql]")
			}
		default:
			return fmt.Errorf("%q: no such command", command)
		}
		return nil
	}
	defer func() { runMigrationsFunc = database.RunMigrations }()

	tests := []cliTest{
		{name: "no subcommand", args: []string{"migrate"}, wantErr: errHelp},
		{name: "unknown subcommand", args: []string{"migrate", "lol"}, wantErrStr: "\"lol\": no such command"},
		{name: "up-to: no args", args: []string{"migrate", "up-to"}, wantErrStr: "up-to must be of form: goose [OPTIONS] DRIVER DBSTRING up-to VERSION"},
		{name: "up-to: non-int arg", args: []string{"migrate", "up-to", "lol"}, wantErrStr: "version must be a number (got 'lol')"},
		{name: "create: no args", args: []string{"migrate", "create"}, wantErrStr: "create must be of form: goose [OPTIONS] DRIVER DBSTRING create NAME [go|sql]"},
		{name: "down-to: no args", args: []string{"migrate", "down-to"}, wantErrStr: "down-to must be of form: goose [OPTIONS] DRIVER DBSTRING down-to VERSION"},
		{name: "up", args: []string{"migrate", "up"}},
		{name: "up-to", args: []string{"migrate", "up-to", "2"}},
		{name: "down-to", args: []string{"migrate", "down-to", "1"}},
		{name: "status", args: []string{"migrate", "status"}},
		{name: "create", args: []string{"migrate", "create", "cohorts", "sql"}},
	}
	for _, tt := range tests {
		args := append([]string{"admin"}, tt.args...)

		t.Run(tt.name, func(t *testing.T) {
			tt.check(t, cli.run(args))
		})
	}

	t.Run("memory engine", func(t *testing.T) {
		memCLI := &commandLine{usrSvc: cli.usrSvc}
		assert.Equal(t, errNoSQLDB, memCLI.run([]string{"admin", "migrate", "up"}))
	})
}

func Test_commandLine_migrateStatus(t *testing.T) {
	cli, _ := setup(t)
	assert.NoError(t, cli.run([]string{"admin", "migrate", "status"}))
}

func Test_commandLine_addUser(t *testing.T) {
	cli, c := setup(t)
	testutil.CreateUser(t, c.Repos.Users, "taken", "", nil, true)

	type extra struct {
		pwds []string
	}
	strong := "Sup3r-Secret!"
	tests := []cliTest{
		{name: "no args", args: []string{"adduser"}, wantErr: errHelp},
		{name: "no password", args: []string{"adduser", "-username", "awe"}, wantErr: errPwdEmpty},
		{name: "weak password", args: []string{"adduser", "-username", "awe"}, extra: extra{pwds: []string{"12345678", "12345678"}}, wantErrIs: isValidatorErr},
		{name: "username taken", args: []string{"adduser", "-username", "taken"}, extra: extra{pwds: []string{strong, strong}}, wantErrStr: user.ErrUsernameExists.Error()},
		{name: "participant", args: []string{"adduser", "-username", "awe", "-email", "awe@test.cd"}, extra: extra{pwds: []string{strong, strong}}},
		{name: "curator", args: []string{"adduser", "-username", "cura", "-roles", "curator"}, extra: extra{pwds: []string{strong, strong}}},
	}
	for _, tt := range tests {
		args := append([]string{"admin"}, tt.args...)

		t.Run(tt.name, func(t *testing.T) {
			if e, ok := tt.extra.(extra); ok {
				mockPasswords(e.pwds...)
			} else {
				mockPasswords()
			}
			tt.check(t, cli.run(args))
		})
	}

	ctx := context.Background()
	usr, err := c.UserSvc.GetByUsername(ctx, "awe")
	require.NoError(t, err)
	assert.Equal(t, user.RoleParticipant, usr.Role())
	assert.Equal(t, "awe@test.cd", usr.Email)
	assert.NoError(t, usr.CheckPassword(strong))

	cura, err := c.UserSvc.GetByUsername(ctx, "cura")
	require.NoError(t, err)
	assert.Equal(t, user.RoleCurator, cura.Role())
}

func Test_commandLine_resetPassword(t *testing.T) {
	cli, c := setup(t)

	usr := testutil.CreateUser(t, c.Repos.Users, "awe", "Old-Passw0rd", nil, true)

	type extra struct {
		pwd string
	}
	tests := []cliTest{
		{name: "no command", wantErr: errHelp},
		{name: "unknown command", args: []string{"lol"}, wantErr: errHelp},
		{name: "no args", args: []string{"resetpassword"}, wantErr: errHelp},
		{name: "username but no password", args: []string{"resetpassword", "-username", "lol"}, wantErr: errHelp},
		{name: "user not found", args: []string{"resetpassword", "-username", "lol"}, extra: extra{pwd: "N3w-Passw0rd"}, wantErr: user.ErrNotFound},
		{name: "reset with username", args: []string{"resetpassword", "-username", usr.Username}, extra: extra{pwd: "N3w-Passw0rd"}},
	}
	for _, tt := range tests {
		args := append([]string{"admin"}, tt.args...)

		t.Run(tt.name, func(t *testing.T) {
			if e, ok := tt.extra.(extra); ok {
				mockPasswords(e.pwd)
			} else {
				mockPasswords()
			}
			err := cli.run(args)
			tt.check(t, err)
			if err == nil {
				refreshedUsr, err := c.Repos.Users.GetUserByID(context.Background(), usr.ID)
				require.NoError(t, err)
				assert.False(t, bytes.Equal(refreshedUsr.PasswordHash, usr.PasswordHash), "failed to update new password")
			}
		})
	}
}

func Test_commandLine_grantRole(t *testing.T) {
	cli, c := setup(t)
	usr := testutil.CreateUser(t, c.Repos.Users, "awe", "", []user.Role{user.RoleParticipant}, true)

	tests := []cliTest{
		{name: "no args", args: []string{"grantrole"}, wantErr: errHelp},
		{name: "no role", args: []string{"grantrole", "-username", "awe"}, wantErr: errHelp},
		{name: "user not found", args: []string{"grantrole", "-username", "lol", "-role", "curator"}, wantErr: user.ErrNotFound},
		{name: "grant curator", args: []string{"grantrole", "-username", "awe", "-role", "curator"}},
	}
	for _, tt := range tests {
		args := append([]string{"admin"}, tt.args...)
		t.Run(tt.name, func(t *testing.T) {
			tt.check(t, cli.run(args))
		})
	}

	t.Run("invalid role", func(t *testing.T) {
		err := cli.run([]string{"admin", "grantrole", "-username", "awe", "-role", "janitor"})
		assert.True(t, core.IsValidation(err), "unexpected error = %v", err)
	})

	refreshed, err := c.Repos.Users.GetUserByID(context.Background(), usr.ID)
	require.NoError(t, err)
	assert.Equal(t, user.RoleCurator, refreshed.Role())
}

func Test_commandLine_evaluate(t *testing.T) {
	cli, c := setup(t)
	ctx := context.Background()

	curator := testutil.CreateActor(t, c.Repos.Users, "cura", user.RoleCurator)
	participant := testutil.CreateActor(t, c.Repos.Users, "awe", user.RoleParticipant)
	cat := testutil.CreateCatalog(t, c.Repos.Catalog, "golang", 1, curator.UserID)

	assert.Equal(t, errHelp, cli.run([]string{"admin", "evaluate"}))
	assert.Equal(t, user.ErrNotFound, cli.run([]string{"admin", "evaluate", "-username", "lol"}))

	enr, err := c.Ledger.Request(ctx, participant, cat.Program.ID)
	require.NoError(t, err)
	_, err = c.Ledger.SetApproval(ctx, curator, enr.ID, true)
	require.NoError(t, err)

	// accepted straight in the store: no acceptance hook evaluates the user
	sub, err := c.Repos.Submissions.SaveAnswer(ctx, submission.Submission{
		AssignmentID: cat.Assignments[0].ID,
		UserID:       participant.UserID,
		AnswerText:   "42",
		Status:       submission.StatusSubmitted,
		SubmittedAt:  time.Now().UTC(),
	})
	require.NoError(t, err)
	_, ok, err := c.Repos.Submissions.TransitionStatus(ctx, sub.ID, submission.StatusSubmitted, submission.StatusAccepted, curator.UserID, sub.SubmittedAt)
	require.NoError(t, err)
	require.True(t, ok)

	certs, err := c.Certificates.ListForUser(ctx, participant.UserID)
	require.NoError(t, err)
	require.Empty(t, certs)

	require.NoError(t, cli.run([]string{"admin", "evaluate", "-username", "awe"}))
	require.NoError(t, cli.run([]string{"admin", "evaluate", "-username", "awe"}))

	certs, err = c.Certificates.ListForUser(ctx, participant.UserID)
	require.NoError(t, err)
	if assert.Len(t, certs, 1) {
		assert.Equal(t, cat.Program.ID, certs[0].ProgramID)
	}

	assert.NoError(t, cli.run([]string{"admin", "retry"}))
}

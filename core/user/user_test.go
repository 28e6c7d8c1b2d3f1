package user

import (
	"testing"

	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/academia/core"
)

func TestResolveRole(t *testing.T) {
	tests := []struct {
		name  string
		roles []Role
		want  Role
	}{
		{name: "no role", want: RoleParticipant},
		{name: "participant", roles: []Role{RoleParticipant}, want: RoleParticipant},
		{name: "curator", roles: []Role{RoleCurator}, want: RoleCurator},
		{name: "curator & participant", roles: []Role{RoleParticipant, RoleCurator}, want: RoleCurator},
		{name: "admin wins", roles: []Role{RoleCurator, RoleAdmin, RoleParticipant}, want: RoleAdmin},
		{name: "unknown role ignored", roles: []Role{"janitor"}, want: RoleParticipant},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ResolveRole(tt.roles))
		})
	}
}

func TestActor_Require(t *testing.T) {
	actor := NewActor(User{ID: "1", Username: "cura", Roles: []Role{RoleCurator}})
	assert.Equal(t, RoleCurator, actor.Role)
	assert.True(t, actor.Is(RoleCurator, RoleAdmin))
	assert.NoError(t, actor.Require("review submissions", RoleCurator))

	err := actor.Require("enroll", RoleParticipant)
	require.True(t, core.IsPermission(err))
	assert.Equal(t, "permission denied: curator cannot enroll", err.Error())
}

func TestUser_FullName(t *testing.T) {
	assert.Equal(t, "awe", (&User{Username: "awe"}).FullName())
	assert.Equal(t, "Kabila Joseph", (&User{Username: "jk", FirstName: " Joseph ", LastName: "Kabila"}).FullName())
	assert.Equal(t, "Ivanov Ivan Ivanovich", (&User{Username: "ii", FirstName: "Ivan", LastName: "Ivanov", MiddleName: "Ivanovich"}).FullName())
}

func TestUser_Password(t *testing.T) {
	usr := User{}
	require.NoError(t, usr.SetPassword("Sup3r-Secret!"))
	assert.NoError(t, usr.CheckPassword("Sup3r-Secret!"))
	assert.Error(t, usr.CheckPassword("sup3r-secret!"))
}

func TestPasswordPolicy(t *testing.T) {
	validate := validator.New()
	translator := core.NewTranslator()
	core.InitValidators(validate, translator)
	InitValidators(validate, translator)

	commonPasswordsMu.Lock()
	commonPasswords = []string{"passw0rd!"}
	commonPasswordsMu.Unlock()
	defer func() {
		commonPasswordsMu.Lock()
		commonPasswords = nil
		commonPasswordsMu.Unlock()
	}()

	tests := []struct {
		name    string
		pwd     string
		wantErr string
	}{
		{name: "too short", pwd: "Ab1!", wantErr: pwdMinLenText},
		{name: "whitespace", pwd: "Abcd 123!", wantErr: pwdNoSpaceText},
		{name: "all numeric", pwd: "1234567890", wantErr: pwdNotAllNumText},
		{name: "no special", pwd: "Abcdefg123", wantErr: pwdComplexityText},
		{name: "no upper", pwd: "abcdefg123!", wantErr: pwdComplexityText},
		{name: "similar to username", pwd: "Kabasele1!", wantErr: pwdAttrSimText},
		{name: "common", pwd: "Passw0rd!", wantErr: pwdNoCommonText},
		{name: "valid", pwd: "Tr0ub4dor&3-horse"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sp := SetPassword{Password: tt.pwd, PasswordConfirm: tt.pwd, Username: "kabasele", Email: "kabasele@test.cd"}
			err := sp.Validate(validate)
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			verrs, ok := err.(validator.ValidationErrors)
			require.True(t, ok, "unexpected error = %v", err)
			fields := core.TranslateValidationErrors(verrs, translator)
			require.Len(t, fields, 1)
			assert.Equal(t, "password", fields[0].Field)
			assert.Equal(t, tt.wantErr, fields[0].Error)
		})
	}
}

func TestNewUser_Validate(t *testing.T) {
	validate := validator.New()
	translator := core.NewTranslator()
	core.InitValidators(validate, translator)
	InitValidators(validate, translator)

	nu := NewUser{
		Username:        "  Awe_01 ",
		Email:           " AWE@Test.cd",
		Password:        "Tr0ub4dor&3-horse",
		PasswordConfirm: "Tr0ub4dor&3-horse",
		Roles:           []Role{RoleCurator},
	}
	require.NoError(t, nu.Validate(validate))
	assert.Equal(t, "awe_01", nu.Username)
	assert.Equal(t, "awe@test.cd", nu.Email)

	nu.Roles = []Role{"janitor"}
	assert.Error(t, nu.Validate(validate))

	nu.Roles = nil
	nu.Username = "awe-01"
	assert.Error(t, nu.Validate(validate))
}

package user

import (
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"golang.org/x/crypto/bcrypt"

	"github.com/trezcool/academia/core"
)

// Role is the single role a user acts with during a request.
type Role string

const (
	RoleParticipant Role = "participant"
	RoleCurator     Role = "curator"
	RoleAdmin       Role = "admin"
)

var (
	AllRoles = []Role{RoleAdmin, RoleCurator, RoleParticipant}

	rolePriorities = map[Role]int{
		RoleAdmin:       30,
		RoleCurator:     20,
		RoleParticipant: 10,
	}
)

func (r Role) IsValid() bool {
	_, ok := rolePriorities[r]
	return ok
}

func (r Role) Priority() int {
	return rolePriorities[r]
}

// ResolveRole picks the highest priority role of a role set: admin > curator > participant.
// An empty set resolves to RoleParticipant.
func ResolveRole(roles []Role) Role {
	resolved := RoleParticipant
	for _, role := range roles {
		if role.Priority() > resolved.Priority() {
			resolved = role
		}
	}
	return resolved
}

type User struct {
	ID           string    `json:"id"`
	Username     string    `json:"username"`
	FirstName    string    `json:"first_name"`
	LastName     string    `json:"last_name"`
	MiddleName   string    `json:"middle_name"`
	Email        string    `json:"email"`
	IsActive     bool      `json:"is_active"`
	Roles        []Role    `json:"roles"`
	PasswordHash []byte    `json:"-"`
	CreatedAt    time.Time `json:"created_at"` // UTC
	UpdatedAt    time.Time `json:"updated_at"` // UTC
	LastLogin    time.Time `json:"last_login"` // UTC
}

func (u *User) SetPassword(pwd string) error {
	hash, err := bcrypt.GenerateFromPassword([]byte(pwd), bcrypt.DefaultCost)
	if err != nil {
		return err
	}
	u.PasswordHash = hash
	return nil
}

func (u *User) CheckPassword(pwd string) error {
	return bcrypt.CompareHashAndPassword(u.PasswordHash, []byte(pwd))
}

// Role returns the resolved role of the user.
func (u *User) Role() Role {
	return ResolveRole(u.Roles)
}

func (u *User) HasRole(role Role) bool {
	for _, r := range u.Roles {
		if r == role {
			return true
		}
	}
	return false
}

// FullName returns "Last First Middle", falling back to the username.
func (u *User) FullName() string {
	parts := make([]string, 0, 3)
	for _, p := range []string{u.LastName, u.FirstName, u.MiddleName} {
		if p = strings.TrimSpace(p); p != "" {
			parts = append(parts, p)
		}
	}
	if len(parts) == 0 {
		return u.Username
	}
	return strings.Join(parts, " ")
}

// Actor is the authenticated identity of a request, with its role resolved once.
type Actor struct {
	UserID   string
	Username string
	Role     Role
}

func NewActor(usr User) Actor {
	return Actor{UserID: usr.ID, Username: usr.Username, Role: usr.Role()}
}

func (a Actor) Is(roles ...Role) bool {
	for _, r := range roles {
		if a.Role == r {
			return true
		}
	}
	return false
}

// Require returns a core.PermissionError unless the actor's role is one of roles.
func (a Actor) Require(action string, roles ...Role) error {
	if a.Is(roles...) {
		return nil
	}
	return core.NewPermissionError(action, string(a.Role))
}

// NewUser contains information needed to create a new User.
type NewUser struct {
	Username        string `json:"username" validate:"required,min=3,max=150,alphanum_"`
	FirstName       string `json:"first_name" validate:"max=150"`
	LastName        string `json:"last_name" validate:"max=150"`
	MiddleName      string `json:"middle_name" validate:"max=150"`
	Email           string `json:"email" validate:"omitempty,email"`
	Password        string `json:"password" validate:"required"`
	PasswordConfirm string `json:"password_confirm" validate:"required,eqfield=Password"`
	Roles           []Role `json:"roles" validate:"omitempty,dive,role"`
}

func (nu *NewUser) Validate(validate *validator.Validate) error {
	nu.Username = core.CleanString(nu.Username, true /* lower */)
	nu.FirstName = core.CleanString(nu.FirstName)
	nu.LastName = core.CleanString(nu.LastName)
	nu.MiddleName = core.CleanString(nu.MiddleName)
	nu.Email = core.CleanString(nu.Email, true /* lower */)
	return validate.Struct(nu)
}

// SetPassword contains the information needed to change a User's password.
type SetPassword struct {
	Password        string `json:"password" validate:"required"`
	PasswordConfirm string `json:"password_confirm" validate:"required,eqfield=Password"`

	// user attributes the password is compared against
	Username string `json:"-"`
	Email    string `json:"-"`
}

func (sp *SetPassword) Validate(validate *validator.Validate) error {
	return validate.Struct(sp)
}

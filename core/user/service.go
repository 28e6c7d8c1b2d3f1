package user

import (
	"context"
	"time"

	"github.com/pkg/errors"

	"github.com/trezcool/academia/core"
)

var (
	// errors
	ErrNotFound             = core.NewNotFoundError("user")
	ErrUsernameExists       = errors.New("a user with this username already exists")
	ErrAuthenticationFailed = errors.New("authentication failed")
	ErrAccountDeactivated   = errors.New("account deactivated")
)

type (
	Repository interface {
		// CreateUser returns ErrUsernameExists when the username is taken.
		CreateUser(ctx context.Context, usr User) (User, error)
		GetUserByID(ctx context.Context, id string) (User, error)
		GetUserByUsername(ctx context.Context, username string) (User, error)
		UpdatePassword(ctx context.Context, id string, hash []byte, updatedAt time.Time) error
		SetLastLogin(ctx context.Context, id string, at time.Time) error
		// SetRoles replaces the role set of a user.
		SetRoles(ctx context.Context, id string, roles []Role) error
		CountUsersWithRole(ctx context.Context, role Role) (int, error)
		// ListUsersWithRole returns the users holding role, ordered by username.
		ListUsersWithRole(ctx context.Context, role Role) ([]User, error)
	}

	Service struct {
		repo Repository
	}
)

func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

// Create creates a new active User. Callers are expected to have validated nu.
func (svc *Service) Create(ctx context.Context, nu NewUser) (User, error) {
	now := time.Now().UTC()
	usr := User{
		Username:   nu.Username,
		FirstName:  nu.FirstName,
		LastName:   nu.LastName,
		MiddleName: nu.MiddleName,
		Email:      nu.Email,
		IsActive:   true,
		Roles:      nu.Roles,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	if len(usr.Roles) == 0 {
		usr.Roles = []Role{RoleParticipant}
	}
	if err := usr.SetPassword(nu.Password); err != nil {
		return User{}, errors.Wrap(err, "hashing password")
	}

	usr, err := svc.repo.CreateUser(ctx, usr)
	if err != nil {
		if errors.Cause(err) == ErrUsernameExists {
			return User{}, core.NewValidationError(err, core.FieldError{Field: "username", Error: err.Error()})
		}
		return User{}, errors.Wrap(err, "creating user")
	}
	return usr, nil
}

func (svc *Service) GetByID(ctx context.Context, id string) (User, error) {
	return svc.repo.GetUserByID(ctx, id)
}

func (svc *Service) GetByUsername(ctx context.Context, uname string) (User, error) {
	return svc.repo.GetUserByUsername(ctx, core.CleanString(uname, true /* lower */))
}

// Authenticate checks the credentials of an active user and records the login.
func (svc *Service) Authenticate(ctx context.Context, uname, pwd string) (User, error) {
	usr, err := svc.GetByUsername(ctx, uname)
	if err != nil {
		if errors.Cause(err) == ErrNotFound {
			return User{}, ErrAuthenticationFailed
		}
		return User{}, errors.Wrap(err, "finding user by username")
	}
	if err = usr.CheckPassword(pwd); err != nil {
		return User{}, ErrAuthenticationFailed
	}
	if !usr.IsActive {
		return User{}, ErrAccountDeactivated
	}

	usr.LastLogin = time.Now().UTC()
	if err = svc.repo.SetLastLogin(ctx, usr.ID, usr.LastLogin); err != nil {
		return User{}, errors.Wrap(err, "setting lastLogin")
	}
	return usr, nil
}

// SetPassword changes the password of the user with the given username.
// Callers are expected to have validated sp.
func (svc *Service) SetPassword(ctx context.Context, uname string, sp SetPassword) error {
	usr, err := svc.GetByUsername(ctx, uname)
	if err != nil {
		return err
	}
	if err = usr.SetPassword(sp.Password); err != nil {
		return errors.Wrap(err, "hashing password")
	}
	return errors.Wrap(svc.repo.UpdatePassword(ctx, usr.ID, usr.PasswordHash, time.Now().UTC()), "updating password")
}

// GrantRoles adds roles to the role set of a user.
func (svc *Service) GrantRoles(ctx context.Context, id string, roles ...Role) (User, error) {
	usr, err := svc.repo.GetUserByID(ctx, id)
	if err != nil {
		return User{}, err
	}
	for _, role := range roles {
		if !role.IsValid() {
			return User{}, core.NewValidationError(nil, core.FieldError{Field: "roles", Error: roleText})
		}
		if !usr.HasRole(role) {
			usr.Roles = append(usr.Roles, role)
		}
	}
	if err = svc.repo.SetRoles(ctx, usr.ID, usr.Roles); err != nil {
		return User{}, errors.Wrap(err, "setting roles")
	}
	return usr, nil
}

// CountWithRole counts users holding role in their role set.
func (svc *Service) CountWithRole(ctx context.Context, role Role) (int, error) {
	return svc.repo.CountUsersWithRole(ctx, role)
}

func (svc *Service) ListWithRole(ctx context.Context, role Role) ([]User, error) {
	return svc.repo.ListUsersWithRole(ctx, role)
}

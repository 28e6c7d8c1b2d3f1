package sqlxrepos

import (
	"context"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"
	"github.com/volatiletech/null/v8"

	"github.com/trezcool/academia/core"
	"github.com/trezcool/academia/core/user"
)

const userColumns = `id, username, first_name, last_name, middle_name, email, password_hash, is_active,
	created_at, updated_at, last_login`

type userRow struct {
	ID           string    `db:"id"`
	Username     string    `db:"username"`
	FirstName    string    `db:"first_name"`
	LastName     string    `db:"last_name"`
	MiddleName   string    `db:"middle_name"`
	Email        string    `db:"email"`
	PasswordHash string    `db:"password_hash"`
	IsActive     bool      `db:"is_active"`
	CreatedAt    time.Time `db:"created_at"`
	UpdatedAt    time.Time `db:"updated_at"`
	LastLogin    null.Time `db:"last_login"`
}

func (r userRow) toUser(roles []user.Role) user.User {
	return user.User{
		ID:           r.ID,
		Username:     r.Username,
		FirstName:    r.FirstName,
		LastName:     r.LastName,
		MiddleName:   r.MiddleName,
		Email:        r.Email,
		IsActive:     r.IsActive,
		Roles:        roles,
		PasswordHash: []byte(r.PasswordHash),
		CreatedAt:    r.CreatedAt,
		UpdatedAt:    r.UpdatedAt,
		LastLogin:    r.LastLogin.Time,
	}
}

type userRepository struct {
	db core.DB
}

var _ user.Repository = (*userRepository)(nil) // interface compliance check

func NewUserRepository(db core.DB) *userRepository {
	return &userRepository{db: db}
}

func (repo *userRepository) roles(ctx context.Context, ex core.DBExecutor, userID string) ([]user.Role, error) {
	var roles []user.Role
	err := sel(ctx, ex, &roles, "SELECT role FROM user_roles WHERE user_id = ? ORDER BY role", userID)
	return roles, errors.Wrap(err, "selecting user roles")
}

func (repo *userRepository) setRoles(ctx context.Context, ex core.DBExecutor, userID string, roles []user.Role) error {
	if _, err := exec(ctx, ex, "DELETE FROM user_roles WHERE user_id = ?", userID); err != nil {
		return errors.Wrap(err, "deleting user roles")
	}
	for _, role := range roles {
		_, err := exec(ctx, ex,
			"INSERT INTO user_roles (user_id, role) VALUES (?, ?) ON CONFLICT (user_id, role) DO NOTHING",
			userID, string(role),
		)
		if err != nil {
			return errors.Wrap(err, "inserting user role")
		}
	}
	return nil
}

func (repo *userRepository) getUser(ctx context.Context, where string, arg interface{}) (user.User, error) {
	var row userRow
	if err := get(ctx, repo.db, &row, "SELECT "+userColumns+" FROM users WHERE "+where, arg); err != nil {
		return user.User{}, trapNoRowsErr(err, user.ErrNotFound)
	}
	roles, err := repo.roles(ctx, repo.db, row.ID)
	if err != nil {
		return user.User{}, err
	}
	return row.toUser(roles), nil
}

func (repo *userRepository) CreateUser(ctx context.Context, usr user.User) (user.User, error) {
	usr.ID = newID()
	err := withTx(ctx, repo.db, func(tx *sqlx.Tx) error {
		inserted, err := exec(ctx, tx, `
			INSERT INTO users (`+userColumns+`)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
			ON CONFLICT (username) DO NOTHING`,
			usr.ID, usr.Username, usr.FirstName, usr.LastName, usr.MiddleName, usr.Email,
			string(usr.PasswordHash), usr.IsActive, usr.CreatedAt, usr.UpdatedAt, null.NewTime(usr.LastLogin, !usr.LastLogin.IsZero()),
		)
		if err != nil {
			return errors.Wrap(err, "inserting user")
		}
		if inserted == 0 {
			return user.ErrUsernameExists
		}
		return repo.setRoles(ctx, tx, usr.ID, usr.Roles)
	})
	if err != nil {
		return user.User{}, err
	}
	return usr, nil
}

func (repo *userRepository) GetUserByID(ctx context.Context, id string) (user.User, error) {
	return repo.getUser(ctx, "id = ?", id)
}

func (repo *userRepository) GetUserByUsername(ctx context.Context, username string) (user.User, error) {
	return repo.getUser(ctx, "username = ?", username)
}

func (repo *userRepository) UpdatePassword(ctx context.Context, id string, hash []byte, updatedAt time.Time) error {
	updated, err := exec(ctx, repo.db,
		"UPDATE users SET password_hash = ?, updated_at = ? WHERE id = ?",
		string(hash), updatedAt, id,
	)
	if err != nil {
		return errors.Wrap(err, "updating password")
	}
	if updated == 0 {
		return user.ErrNotFound
	}
	return nil
}

func (repo *userRepository) SetLastLogin(ctx context.Context, id string, at time.Time) error {
	_, err := exec(ctx, repo.db, "UPDATE users SET last_login = ? WHERE id = ?", at, id)
	return errors.Wrap(err, "updating last login")
}

func (repo *userRepository) SetRoles(ctx context.Context, id string, roles []user.Role) error {
	return withTx(ctx, repo.db, func(tx *sqlx.Tx) error {
		return repo.setRoles(ctx, tx, id, roles)
	})
}

func (repo *userRepository) CountUsersWithRole(ctx context.Context, role user.Role) (int, error) {
	var count int
	err := get(ctx, repo.db, &count, "SELECT COUNT(*) FROM user_roles WHERE role = ?", string(role))
	return count, errors.Wrap(err, "counting users")
}

func (repo *userRepository) ListUsersWithRole(ctx context.Context, role user.Role) ([]user.User, error) {
	var rows []userRow
	err := sel(ctx, repo.db, &rows, `
		SELECT `+userColumns+` FROM users
		WHERE id IN (SELECT user_id FROM user_roles WHERE role = ?)
		ORDER BY username`,
		string(role),
	)
	if err != nil {
		return nil, errors.Wrap(err, "selecting users")
	}

	users := make([]user.User, 0, len(rows))
	for _, row := range rows {
		roles, err := repo.roles(ctx, repo.db, row.ID)
		if err != nil {
			return nil, err
		}
		users = append(users, row.toUser(roles))
	}
	return users, nil
}

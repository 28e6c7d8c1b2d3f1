package inmemdb

import (
	"context"
	"sort"
	"time"

	"github.com/trezcool/academia/core/user"
)

type userRepository struct {
	db *DB
}

var _ user.Repository = (*userRepository)(nil) // interface compliance check

func NewUserRepository(db *DB) *userRepository {
	return &userRepository{db: db}
}

func copyUser(usr *user.User) user.User {
	cp := *usr
	cp.Roles = append([]user.Role(nil), usr.Roles...)
	cp.PasswordHash = append([]byte(nil), usr.PasswordHash...)
	return cp
}

func (repo *userRepository) CreateUser(_ context.Context, usr user.User) (user.User, error) {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	for _, u := range repo.db.users {
		if u.Username == usr.Username {
			return user.User{}, user.ErrUsernameExists
		}
	}
	usr.ID = newID()
	stored := copyUser(&usr)
	repo.db.users[usr.ID] = &stored
	return usr, nil
}

func (repo *userRepository) GetUserByID(_ context.Context, id string) (user.User, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	if usr, ok := repo.db.users[id]; ok {
		return copyUser(usr), nil
	}
	return user.User{}, user.ErrNotFound
}

func (repo *userRepository) GetUserByUsername(_ context.Context, username string) (user.User, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	for _, usr := range repo.db.users {
		if usr.Username == username {
			return copyUser(usr), nil
		}
	}
	return user.User{}, user.ErrNotFound
}

func (repo *userRepository) update(id string, fn func(usr *user.User)) error {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	usr, ok := repo.db.users[id]
	if !ok {
		return user.ErrNotFound
	}
	fn(usr)
	return nil
}

func (repo *userRepository) UpdatePassword(_ context.Context, id string, hash []byte, updatedAt time.Time) error {
	return repo.update(id, func(usr *user.User) {
		usr.PasswordHash = append([]byte(nil), hash...)
		usr.UpdatedAt = updatedAt
	})
}

func (repo *userRepository) SetLastLogin(_ context.Context, id string, at time.Time) error {
	return repo.update(id, func(usr *user.User) { usr.LastLogin = at })
}

func (repo *userRepository) SetRoles(_ context.Context, id string, roles []user.Role) error {
	return repo.update(id, func(usr *user.User) { usr.Roles = append([]user.Role(nil), roles...) })
}

func (repo *userRepository) CountUsersWithRole(_ context.Context, role user.Role) (int, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	var count int
	for _, usr := range repo.db.users {
		if usr.HasRole(role) {
			count++
		}
	}
	return count, nil
}

func (repo *userRepository) ListUsersWithRole(_ context.Context, role user.Role) ([]user.User, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	users := make([]user.User, 0)
	for _, usr := range repo.db.users {
		if usr.HasRole(role) {
			users = append(users, copyUser(usr))
		}
	}
	sort.Slice(users, func(i, j int) bool { return users[i].Username < users[j].Username })
	return users, nil
}

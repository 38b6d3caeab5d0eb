package inmemdb

import (
	"context"
	"sort"

	"github.com/trezcool/masomo-credentials/core/user"
)

type userRepository struct {
	db *userTable
}

var _ user.Repository = (*userRepository)(nil)

func NewUserRepository(db *DB) user.Repository {
	return &userRepository{db: db.user}
}

func (repo *userRepository) GetByID(ctx context.Context, id int64) (user.User, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	if usr, ok := repo.db.table[id]; ok {
		return *usr, nil
	}
	return user.User{}, user.ErrNotFound
}

func (repo *userRepository) GetByUsername(ctx context.Context, username string) (user.User, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()
	return repo.getByUsername(username)
}

func (repo *userRepository) getByUsername(username string) (user.User, error) {
	for _, usr := range repo.db.table {
		if usr.Username == username {
			return *usr, nil
		}
	}
	return user.User{}, user.ErrNotFound
}

func (repo *userRepository) ListByUsernames(ctx context.Context, usernames ...string) ([]user.User, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	users := make([]user.User, 0, len(usernames))
	for _, uname := range usernames {
		if usr, err := repo.getByUsername(uname); err == nil {
			users = append(users, usr)
		}
	}
	sort.Slice(users, func(i, j int) bool { return users[i].ID < users[j].ID })
	return users, nil
}

func (repo *userRepository) UpdateOrCreate(ctx context.Context, usr user.User) (user.User, error) {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	if usr.ID == 0 {
		if existing, err := repo.getByUsername(usr.Username); err == nil {
			usr.ID = existing.ID
			usr.CreatedAt = existing.CreatedAt
		} else {
			repo.db.pk++
			usr.ID = repo.db.pk
		}
	} else if usr.ID > repo.db.pk {
		repo.db.pk = usr.ID
	}
	repo.db.table[usr.ID] = &usr
	return usr, nil
}

package sqlxrepos

import (
	"context"
	"database/sql"

	"github.com/lib/pq"
	"github.com/pkg/errors"

	"github.com/trezcool/masomo-credentials/core"
	"github.com/trezcool/masomo-credentials/core/user"
)

const userColumns = "id, username, email, is_active, is_service, id_verified, is_restricted, created_at, updated_at"

type userRepository struct {
	db core.DBExecutor
}

var _ user.Repository = (*userRepository)(nil)

func NewUserRepository(db core.DBExecutor) user.Repository {
	return &userRepository{db: db}
}

func (repo *userRepository) get(ctx context.Context, where string, arg interface{}) (user.User, error) {
	var usr user.User
	err := repo.db.GetContext(ctx, &usr, "SELECT "+userColumns+" FROM users WHERE "+where, arg)
	if err != nil {
		if err == sql.ErrNoRows {
			return user.User{}, user.ErrNotFound
		}
		return user.User{}, errors.Wrap(err, "selecting user")
	}
	return usr, nil
}

func (repo *userRepository) GetByID(ctx context.Context, id int64) (user.User, error) {
	return repo.get(ctx, "id = $1", id)
}

func (repo *userRepository) GetByUsername(ctx context.Context, username string) (user.User, error) {
	return repo.get(ctx, "username = $1", username)
}

func (repo *userRepository) ListByUsernames(ctx context.Context, usernames ...string) ([]user.User, error) {
	users := make([]user.User, 0, len(usernames))
	if len(usernames) == 0 {
		return users, nil
	}
	err := repo.db.SelectContext(ctx, &users,
		"SELECT "+userColumns+" FROM users WHERE username = ANY($1) ORDER BY username", pq.Array(usernames))
	return users, errors.Wrap(err, "selecting users")
}

func (repo *userRepository) UpdateOrCreate(ctx context.Context, usr user.User) (user.User, error) {
	var saved user.User
	err := repo.db.GetContext(ctx, &saved, `
		INSERT INTO users (username, email, is_active, is_service, id_verified, is_restricted, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		ON CONFLICT (username) DO UPDATE SET
			email = EXCLUDED.email,
			is_active = EXCLUDED.is_active,
			is_service = EXCLUDED.is_service,
			id_verified = EXCLUDED.id_verified,
			is_restricted = EXCLUDED.is_restricted,
			updated_at = EXCLUDED.updated_at
		RETURNING `+userColumns,
		usr.Username, usr.Email, usr.IsActive, usr.IsService, usr.IDVerified, usr.IsRestricted, usr.CreatedAt.UTC(), usr.UpdatedAt.UTC(),
	)
	if err != nil {
		return user.User{}, errors.Wrap(err, "upserting user")
	}
	return saved, nil
}

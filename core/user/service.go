package user

import (
	"context"
	"errors"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/trezcool/masomo-credentials/core"
)

var (
	// errors
	ErrNotFound = errors.New("user not found")

	NowFunc = time.Now // mockable
)

type (
	Repository interface {
		GetByID(ctx context.Context, id int64) (User, error)
		GetByUsername(ctx context.Context, username string) (User, error)
		ListByUsernames(ctx context.Context, usernames ...string) ([]User, error)
		// UpdateOrCreate inserts the User when its ID is zero; it is looked up by username otherwise.
		UpdateOrCreate(ctx context.Context, usr User) (User, error)
	}

	Service struct {
		repo     Repository
		validate *validator.Validate
	}
)

func NewService(repo Repository, validate *validator.Validate) *Service {
	return &Service{repo: repo, validate: validate}
}

func (svc *Service) GetByUsername(ctx context.Context, username string) (User, error) {
	return svc.repo.GetByUsername(ctx, core.CleanString(username))
}

// AddServiceUser updates or creates the active service account used to talk to other services.
func (svc *Service) AddServiceUser(ctx context.Context, nu NewServiceUser) (User, error) {
	nu.Username = core.CleanString(nu.Username)
	nu.Email = core.CleanString(nu.Email, true /* lower */)
	if err := svc.validate.Struct(nu); err != nil {
		return User{}, err
	}

	now := NowFunc().UTC()
	usr, err := svc.repo.GetByUsername(ctx, nu.Username)
	if err != nil {
		if err != ErrNotFound {
			return User{}, err
		}
		usr = User{Username: nu.Username, CreatedAt: now}
	}
	usr.Email = nu.Email
	usr.IsActive = true
	usr.IsService = true
	usr.UpdatedAt = now
	return svc.repo.UpdateOrCreate(ctx, usr)
}

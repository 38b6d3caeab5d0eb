package inmemdb

import (
	"context"

	"github.com/trezcool/masomo-credentials/core/credentials"
)

type configRepository struct {
	db *configTable
}

var _ credentials.ConfigRepository = (*configRepository)(nil)

func NewCredentialsConfigRepository(db *DB) credentials.ConfigRepository {
	return &configRepository{db: db.config}
}

func (repo *configRepository) Current(ctx context.Context) (credentials.APIConfig, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	if n := len(repo.db.rows); n > 0 {
		return repo.db.rows[n-1], nil
	}
	return credentials.APIConfig{}, credentials.ErrNotConfigured
}

func (repo *configRepository) Save(ctx context.Context, conf credentials.APIConfig) (credentials.APIConfig, error) {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	conf.ID = int64(len(repo.db.rows) + 1)
	repo.db.rows = append(repo.db.rows, conf)
	return conf, nil
}

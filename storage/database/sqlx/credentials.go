package sqlxrepos

import (
	"context"
	"database/sql"
	"time"

	"github.com/pkg/errors"

	"github.com/trezcool/masomo-credentials/core"
	"github.com/trezcool/masomo-credentials/core/credentials"
)

const configColumns = "id, enabled, learner_issuance_enabled, internal_service_url, public_service_url, cache_ttl_seconds, changed_by, changed_at"

type (
	configRow struct {
		ID                     int64     `db:"id"`
		Enabled                bool      `db:"enabled"`
		LearnerIssuanceEnabled bool      `db:"learner_issuance_enabled"`
		InternalServiceURL     string    `db:"internal_service_url"`
		PublicServiceURL       string    `db:"public_service_url"`
		CacheTTLSeconds        int64     `db:"cache_ttl_seconds"`
		ChangedBy              string    `db:"changed_by"`
		ChangedAt              time.Time `db:"changed_at"`
	}

	configRepository struct {
		db core.DBExecutor
	}
)

var _ credentials.ConfigRepository = (*configRepository)(nil)

// NewCredentialsConfigRepository stores the append-only history of the Credentials API config.
func NewCredentialsConfigRepository(db core.DBExecutor) credentials.ConfigRepository {
	return &configRepository{db: db}
}

func (r configRow) toConfig() credentials.APIConfig {
	return credentials.APIConfig{
		ID:                     r.ID,
		Enabled:                r.Enabled,
		LearnerIssuanceEnabled: r.LearnerIssuanceEnabled,
		InternalServiceURL:     r.InternalServiceURL,
		PublicServiceURL:       r.PublicServiceURL,
		CacheTTL:               time.Duration(r.CacheTTLSeconds) * time.Second,
		ChangedBy:              r.ChangedBy,
		ChangedAt:              r.ChangedAt,
	}
}

func (repo *configRepository) Current(ctx context.Context) (credentials.APIConfig, error) {
	var row configRow
	err := repo.db.GetContext(ctx, &row, "SELECT "+configColumns+" FROM credentials_api_config ORDER BY id DESC LIMIT 1")
	if err != nil {
		if err == sql.ErrNoRows {
			return credentials.APIConfig{}, credentials.ErrNotConfigured
		}
		return credentials.APIConfig{}, errors.Wrap(err, "selecting credentials config")
	}
	return row.toConfig(), nil
}

func (repo *configRepository) Save(ctx context.Context, conf credentials.APIConfig) (credentials.APIConfig, error) {
	if conf.ChangedAt.IsZero() {
		conf.ChangedAt = time.Now()
	}
	var row configRow
	err := repo.db.GetContext(ctx, &row, `
		INSERT INTO credentials_api_config (enabled, learner_issuance_enabled, internal_service_url, public_service_url, cache_ttl_seconds, changed_by, changed_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING `+configColumns,
		conf.Enabled, conf.LearnerIssuanceEnabled, conf.InternalServiceURL, conf.PublicServiceURL,
		int64(conf.CacheTTL/time.Second), conf.ChangedBy, conf.ChangedAt.UTC(),
	)
	if err != nil {
		return credentials.APIConfig{}, errors.Wrap(err, "saving credentials config")
	}
	return row.toConfig(), nil
}

package cache

import (
	"context"
	"encoding/json"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/pkg/errors"

	"github.com/trezcool/masomo-credentials/core"
	"github.com/trezcool/masomo-credentials/core/credentials"
)

// ConfigCache serves the current Credentials API config, caching it in Redis
// for as long as the config's own CacheTTL says. A missing config reads as disabled.
type ConfigCache struct {
	client redis.UniversalClient
	repo   credentials.ConfigRepository
	key    string
	logger core.Logger
}

var (
	_ credentials.ConfigProvider   = (*ConfigCache)(nil)
	_ credentials.ConfigRepository = (*ConfigCache)(nil)
)

func NewConfigCache(client redis.UniversalClient, repo credentials.ConfigRepository, prefix string, logger core.Logger) *ConfigCache {
	return &ConfigCache{client: client, repo: repo, key: prefix + ":credentials_config", logger: logger}
}

func (c *ConfigCache) Current(ctx context.Context) (credentials.APIConfig, error) {
	raw, err := c.client.Get(ctx, c.key).Bytes()
	switch err {
	case nil:
		var conf credentials.APIConfig
		if err = json.Unmarshal(raw, &conf); err == nil {
			return conf, nil
		}
		c.logger.Warn("decoding config cache: "+err.Error(), err)
	case redis.Nil:
	default:
		c.logger.Warn("reading config cache: "+err.Error(), err)
	}

	conf, err := c.repo.Current(ctx)
	if err != nil {
		if errors.Cause(err) != credentials.ErrNotConfigured {
			return credentials.APIConfig{}, errors.Wrap(err, "loading credentials config")
		}
		conf = credentials.Disabled()
	}
	if conf.CacheTTL > 0 {
		c.store(ctx, conf, conf.CacheTTL)
	}
	return conf, nil
}

// Save stores a new config and drops the cached one.
func (c *ConfigCache) Save(ctx context.Context, conf credentials.APIConfig) (credentials.APIConfig, error) {
	saved, err := c.repo.Save(ctx, conf)
	if err != nil {
		return credentials.APIConfig{}, err
	}
	if err = c.client.Del(ctx, c.key).Err(); err != nil {
		c.logger.Warn("clearing config cache: "+err.Error(), err)
	}
	return saved, nil
}

func (c *ConfigCache) store(ctx context.Context, conf credentials.APIConfig, ttl time.Duration) {
	raw, err := json.Marshal(conf)
	if err != nil {
		c.logger.Warn("encoding config cache: "+err.Error(), err)
		return
	}
	if err = c.client.Set(ctx, c.key, raw, ttl).Err(); err != nil {
		c.logger.Warn("writing config cache: "+err.Error(), err)
	}
}

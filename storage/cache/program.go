package cache

import (
	"context"
	"encoding/json"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/pkg/errors"

	"github.com/trezcool/masomo-credentials/core"
	"github.com/trezcool/masomo-credentials/core/program"
)

const (
	programsKey   = "programs"
	courseRunsKey = "course_runs:"
)

// ProgramCache keeps the catalog's answers in Redis for ttl.
// Cache failures are logged and fall through to the catalog.
type ProgramCache struct {
	client  redis.UniversalClient
	catalog program.Catalog
	prefix  string
	ttl     time.Duration
	logger  core.Logger
}

var _ program.Catalog = (*ProgramCache)(nil)

func NewProgramCache(client redis.UniversalClient, catalog program.Catalog, prefix string, ttl time.Duration, logger core.Logger) *ProgramCache {
	return &ProgramCache{client: client, catalog: catalog, prefix: prefix + ":", ttl: ttl, logger: logger}
}

func (c *ProgramCache) Programs(ctx context.Context) ([]program.Definition, error) {
	var defs []program.Definition
	if c.get(ctx, programsKey, &defs) {
		return defs, nil
	}
	defs, err := c.catalog.Programs(ctx)
	if err != nil {
		return nil, err
	}
	c.set(ctx, programsKey, defs)
	return defs, nil
}

func (c *ProgramCache) CourseRunsForCourse(ctx context.Context, courseUUID string) ([]program.CourseRun, error) {
	var runs []program.CourseRun
	key := courseRunsKey + courseUUID
	if c.get(ctx, key, &runs) {
		return runs, nil
	}
	runs, err := c.catalog.CourseRunsForCourse(ctx, courseUUID)
	if err != nil {
		return nil, err
	}
	c.set(ctx, key, runs)
	return runs, nil
}

// Invalidate drops every cached catalog answer.
func (c *ProgramCache) Invalidate(ctx context.Context) error {
	keys, err := c.client.Keys(ctx, c.prefix+"*").Result()
	if err != nil {
		return errors.Wrap(err, "listing cached keys")
	}
	if len(keys) == 0 {
		return nil
	}
	return errors.Wrap(c.client.Del(ctx, keys...).Err(), "deleting cached keys")
}

func (c *ProgramCache) get(ctx context.Context, key string, v interface{}) bool {
	if c.ttl <= 0 {
		return false
	}
	raw, err := c.client.Get(ctx, c.prefix+key).Bytes()
	if err != nil {
		if err != redis.Nil {
			c.logger.Warn("reading catalog cache: "+err.Error(), err)
		}
		return false
	}
	if err = json.Unmarshal(raw, v); err != nil {
		c.logger.Warn("decoding catalog cache: "+err.Error(), err)
		return false
	}
	return true
}

func (c *ProgramCache) set(ctx context.Context, key string, v interface{}) {
	if c.ttl <= 0 {
		return
	}
	raw, err := json.Marshal(v)
	if err != nil {
		c.logger.Warn("encoding catalog cache: "+err.Error(), err)
		return
	}
	if err = c.client.Set(ctx, c.prefix+key, raw, c.ttl).Err(); err != nil {
		c.logger.Warn("writing catalog cache: "+err.Error(), err)
	}
}

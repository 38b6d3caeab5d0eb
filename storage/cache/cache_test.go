package cache

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-redis/redis/v8"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/masomo-credentials/core/credentials"
	"github.com/trezcool/masomo-credentials/core/program"
	"github.com/trezcool/masomo-credentials/storage/database/inmem"
	"github.com/trezcool/masomo-credentials/tests"
)

func newClient(t *testing.T) (*miniredis.Miniredis, *redis.Client) {
	srv := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: srv.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return srv, client
}

func TestProgramCache(t *testing.T) {
	srv, client := newClient(t)
	ctx := context.Background()
	catalog := &testutil.FakeCatalog{
		Defs: []program.Definition{{UUID: "p1", Title: "P1", Units: []program.Unit{{CourseKey: "course-v1:edX+X+2024"}}}},
		Runs: map[string][]program.CourseRun{"c1": {{Key: "course-v1:edX+X+2024", Title: "X"}}},
	}
	c := NewProgramCache(client, catalog, "test:catalog", time.Minute, testutil.NewLogger())

	for i := 0; i < 3; i++ {
		defs, err := c.Programs(ctx)
		require.NoError(t, err)
		assert.Equal(t, catalog.Defs, defs)
	}
	assert.Equal(t, 1, catalog.Calls)

	runs, err := c.CourseRunsForCourse(ctx, "c1")
	require.NoError(t, err)
	assert.Equal(t, "X", runs[0].Title)
	_, _ = c.CourseRunsForCourse(ctx, "c1")
	assert.Equal(t, 2, catalog.Calls)

	srv.FastForward(2 * time.Minute)
	_, err = c.Programs(ctx)
	require.NoError(t, err)
	assert.Equal(t, 3, catalog.Calls)

	require.NoError(t, c.Invalidate(ctx))
	assert.False(t, srv.Exists("test:catalog:programs"))
	_, _ = c.Programs(ctx)
	assert.Equal(t, 4, catalog.Calls)
}

func TestProgramCache_Disabled(t *testing.T) {
	_, client := newClient(t)
	catalog := &testutil.FakeCatalog{}
	c := NewProgramCache(client, catalog, "test:catalog", 0, testutil.NewLogger())

	_, _ = c.Programs(context.Background())
	_, _ = c.Programs(context.Background())
	assert.Equal(t, 2, catalog.Calls)
}

func TestProgramCache_RedisDown(t *testing.T) {
	srv, client := newClient(t)
	catalog := &testutil.FakeCatalog{Defs: []program.Definition{{UUID: "p1"}}}
	c := NewProgramCache(client, catalog, "test:catalog", time.Minute, testutil.NewLogger())
	srv.Close()

	defs, err := c.Programs(context.Background())
	require.NoError(t, err)
	assert.Len(t, defs, 1)
}

func TestConfigCache(t *testing.T) {
	srv, client := newClient(t)
	ctx := context.Background()
	repo := inmemdb.NewCredentialsConfigRepository(inmemdb.NewDB())
	c := NewConfigCache(client, repo, "test", testutil.NewLogger())

	conf, err := c.Current(ctx)
	require.NoError(t, err)
	assert.False(t, conf.IsLearnerIssuanceEnabled(), "not configured reads as disabled")

	_, err = c.Save(ctx, credentials.APIConfig{
		Enabled:                true,
		LearnerIssuanceEnabled: true,
		InternalServiceURL:     "http://credentials.test",
		CacheTTL:               time.Minute,
	})
	require.NoError(t, err)

	conf, err = c.Current(ctx)
	require.NoError(t, err)
	assert.True(t, conf.IsLearnerIssuanceEnabled())
	assert.True(t, srv.Exists("test:credentials_config"))

	// changes made behind the cache show up once the ttl runs out
	_, err = repo.Save(ctx, credentials.APIConfig{Enabled: false, CacheTTL: time.Minute})
	require.NoError(t, err)
	conf, _ = c.Current(ctx)
	assert.True(t, conf.Enabled)

	srv.FastForward(2 * time.Minute)
	conf, _ = c.Current(ctx)
	assert.False(t, conf.Enabled)
}

func TestConfigCache_NoTTL(t *testing.T) {
	srv, client := newClient(t)
	ctx := context.Background()
	repo := inmemdb.NewCredentialsConfigRepository(inmemdb.NewDB())
	c := NewConfigCache(client, repo, "test", testutil.NewLogger())

	_, err := repo.Save(ctx, credentials.APIConfig{Enabled: true})
	require.NoError(t, err)
	conf, err := c.Current(ctx)
	require.NoError(t, err)
	assert.True(t, conf.Enabled)
	assert.False(t, srv.Exists("test:credentials_config"))
}

package redis

import (
	"context"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"campusvote/internal/platform/config"
)

func TestNewWithoutURL(t *testing.T) {
	client, err := New(context.Background(), config.RedisConfig{})
	require.NoError(t, err)
	assert.Nil(t, client)
}

func TestNewRejectsBadURL(t *testing.T) {
	_, err := New(context.Background(), config.RedisConfig{URL: "http://not-redis"})
	assert.ErrorContains(t, err, "parse REDIS_URL")
}

func TestPoolCollector(t *testing.T) {
	stats := &redis.PoolStats{Hits: 7, Misses: 2, Timeouts: 1, TotalConns: 3, IdleConns: 2}
	collector := newPoolCollector(func() *redis.PoolStats { return stats })

	assert.Equal(t, 5, testutil.CollectAndCount(collector))
	expected := `
# HELP campusvote_redis_pool_hits_total Connections reused from the pool
# TYPE campusvote_redis_pool_hits_total counter
campusvote_redis_pool_hits_total 7
# HELP campusvote_redis_pool_idle_conns Idle connections
# TYPE campusvote_redis_pool_idle_conns gauge
campusvote_redis_pool_idle_conns 2
`
	assert.NoError(t, testutil.CollectAndCompare(collector, strings.NewReader(expected),
		"campusvote_redis_pool_hits_total", "campusvote_redis_pool_idle_conns"))
}

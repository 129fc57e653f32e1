//go:build integration

package cache

import (
	"context"
	"testing"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
)

func TestStatsCacheAgainstRedisContainer(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping Redis integration test in short mode")
	}

	ctx := context.Background()
	redisContainer, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: testcontainers.ContainerRequest{
			Image:        "redis:7-alpine",
			ExposedPorts: []string{"6379/tcp"},
			WaitingFor:   wait.ForLog("Ready to accept connections"),
		},
		Started: true,
	})
	require.NoError(t, err)
	defer redisContainer.Terminate(ctx)

	host, err := redisContainer.Host(ctx)
	require.NoError(t, err)
	port, err := redisContainer.MappedPort(ctx, "6379")
	require.NoError(t, err)

	client := redis.NewClient(&redis.Options{Addr: host + ":" + port.Port()})
	defer client.Close()

	c := NewStatsCache(client, time.Minute)
	require.NoError(t, c.Ping(ctx))

	require.NoError(t, c.Set(ctx, KeyTotalRevenue, 1000))
	v, ok, err := c.Get(ctx, KeyTotalRevenue)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, int64(1000), v)

	require.NoError(t, c.Invalidate(ctx, RevenueKeys...))
	_, ok, err = c.Get(ctx, KeyTotalRevenue)
	require.NoError(t, err)
	assert.False(t, ok)
}

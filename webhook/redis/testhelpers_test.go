//go:build integration

package redis_test

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/marcelsud/webhook-router/webhook/redis"
	goredis "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"
	testcontainersredis "github.com/testcontainers/testcontainers-go/modules/redis"
)

/* Test Helpers for Redis Integration Tests
 * Following the pattern from: https://eltonminetto.dev/post/2024-02-15-using-test-helpers/
 */

// SetupRedisContainer creates and starts a Redis testcontainer, returning its address
func SetupRedisContainer(t *testing.T, ctx context.Context) string {
	t.Helper()

	redisContainer, err := testcontainersredis.Run(ctx, "redis:7-alpine")
	require.NoError(t, err, "failed to start Redis container")
	t.Cleanup(func() {
		if err := redisContainer.Terminate(context.Background()); err != nil {
			t.Logf("failed to terminate Redis container: %v", err)
		}
	})

	addr, err := redisContainer.ConnectionString(ctx)
	require.NoError(t, err, "failed to get Redis connection string")

	return strings.TrimPrefix(addr, "redis://")
}

// CreateTestBroker creates a broker connected to the test container
func CreateTestBroker(t *testing.T, addr string) *redis.Broker {
	t.Helper()

	broker, err := redis.NewBroker(addr, "", 0)
	require.NoError(t, err, "failed to create Redis broker")
	t.Cleanup(func() { _ = broker.Close() })

	return broker
}

// GetKeyTTL returns the TTL of a Redis key
func GetKeyTTL(t *testing.T, addr string, key string) time.Duration {
	t.Helper()

	client := goredis.NewClient(&goredis.Options{Addr: addr})
	defer client.Close()

	ttl, err := client.TTL(context.Background(), key).Result()
	require.NoError(t, err)

	return ttl
}

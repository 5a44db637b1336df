// Package testutil starts in-memory Redis servers for tests.
package testutil

import (
	"testing"

	"github.com/alicebob/miniredis/v2"

	"github.com/kbukum/flowengine/logger"
	"github.com/kbukum/flowengine/redis"
)

// Start runs a miniredis server and returns a client connected to it. Both
// are closed when the test ends.
func Start(t testing.TB) (*redis.Client, *miniredis.Miniredis) {
	t.Helper()

	mini, err := miniredis.Run()
	if err != nil {
		t.Fatalf("start miniredis: %v", err)
	}
	t.Cleanup(mini.Close)

	client, err := redis.New(redis.Config{Enabled: true, Addr: mini.Addr(), KeyPrefix: "test"}, logger.NewNop())
	if err != nil {
		t.Fatalf("create redis client: %v", err)
	}
	t.Cleanup(func() { _ = client.Close() })
	return client, mini
}

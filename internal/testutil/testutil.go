// Package testutil provides test helpers shared across the analysis service packages.
package testutil

import (
	"context"
	"net"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
)

// RedisImage is the container image started when no Redis address is configured.
const RedisImage = "redis:7-alpine"

// SetupTestRedis returns a client for a clean Redis database.
// REDIS_ADDR selects an existing server; otherwise an ephemeral container is
// started and terminated when the test ends. The test is skipped under -short
// or when neither is reachable, unless TEST_REQUIRE_REDIS is set.
func SetupTestRedis(t *testing.T) *redis.Client {
	t.Helper()
	if testing.Short() {
		t.Skip("redis tests are skipped in -short mode")
	}

	addr := os.Getenv("REDIS_ADDR")
	if addr == "" {
		addr = startRedisContainer(t)
	}

	client := redis.NewClient(&redis.Options{Addr: addr})
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		if cerr := client.Close(); cerr != nil {
			t.Logf("warning: failed to close redis client after ping error: %v", cerr)
		}
		skipOrFail(t, "Redis not available at "+addr+": "+err.Error())
	}
	if err := client.FlushDB(ctx).Err(); err != nil {
		t.Fatalf("flush redis: %v", err)
	}
	t.Cleanup(func() {
		if err := client.Close(); err != nil {
			t.Logf("warning: failed to close redis client: %v", err)
		}
	})
	return client
}

func startRedisContainer(t *testing.T) string {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: testcontainers.ContainerRequest{
			Image:        RedisImage,
			ExposedPorts: []string{"6379/tcp"},
			WaitingFor:   wait.ForLog("Ready to accept connections").WithStartupTimeout(60 * time.Second),
		},
		Started: true,
	})
	if err != nil {
		skipOrFail(t, "start redis container: "+err.Error())
	}
	t.Cleanup(func() {
		if err := container.Terminate(context.Background()); err != nil {
			t.Logf("warning: failed to terminate redis container: %v", err)
		}
	})

	host, err := container.Host(ctx)
	if err != nil {
		t.Fatalf("redis container host: %v", err)
	}
	// Some Docker setups report "null" for the host.
	if host == "" || host == "null" {
		host = "localhost"
	}
	port, err := container.MappedPort(ctx, "6379/tcp")
	if err != nil {
		t.Fatalf("redis container port: %v", err)
	}
	return net.JoinHostPort(host, port.Port())
}

func skipOrFail(t *testing.T, msg string) {
	t.Helper()
	if envBool("TEST_REQUIRE_REDIS") || envBool("TEST_REQUIRE_INFRA") {
		t.Fatal(msg)
	}
	t.Skip(msg)
}

// WriteScript writes an executable shell script into dir and returns its path.
// Tests relying on it are skipped on Windows.
func WriteScript(t testing.TB, dir, name, body string) string {
	t.Helper()
	if runtime.GOOS == "windows" {
		t.Skip("fake tools are shell scripts")
	}
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte("#!/bin/sh\n"+body), 0o755); err != nil { //nolint:gosec // test helper writes an executable on purpose
		t.Fatalf("write script %s: %v", name, err)
	}
	return path
}

// envBool parses common truthy values from env vars.
func envBool(key string) bool {
	v := strings.ToLower(os.Getenv(key))
	return v == "1" || v == "true" || v == "yes" || v == "y"
}

// FixedTimeFunc returns a function that always returns the same time.
func FixedTimeFunc(t time.Time) func() time.Time {
	return func() time.Time {
		return t
	}
}

// TestTime returns a fixed time for testing.
func TestTime() time.Time {
	return time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
}

// Float64Ptr returns a pointer to the given float64 value.
func Float64Ptr(f float64) *float64 {
	return &f
}

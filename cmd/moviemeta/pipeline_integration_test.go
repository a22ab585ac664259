//go:build integration

package main

import (
	"context"
	"errors"
	"testing"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
)

func setupTestRedis(t *testing.T) (string, func()) {
	ctx := context.Background()

	req := testcontainers.ContainerRequest{
		Image:        "redis:7-alpine",
		ExposedPorts: []string{"6379/tcp"},
		WaitingFor:   wait.ForLog("Ready to accept connections"),
	}

	redisC, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	if err != nil {
		t.Fatalf("Failed to start Redis container: %v", err)
	}

	host, err := redisC.Host(ctx)
	if err != nil {
		t.Fatalf("Failed to get container host: %v", err)
	}

	port, err := redisC.MappedPort(ctx, "6379")
	if err != nil {
		t.Fatalf("Failed to get container port: %v", err)
	}

	cleanup := func() {
		redisC.Terminate(ctx)
	}

	return "redis://" + host + ":" + port.Port() + "/0", cleanup
}

func TestNewPipeline_SharedWindow(t *testing.T) {
	redisURL, cleanup := setupTestRedis(t)
	defer cleanup()

	clearEnv(t)
	t.Setenv("REDIS_URL", redisURL)
	cfgPath := mockConfig(t, "http://127.0.0.1:1")
	cfg, err := newCommandContext(&cfgPath).ensureConfig()
	if err != nil {
		t.Fatalf("load config: %v", err)
	}

	p, err := newPipeline(cfg, zerolog.Nop())
	if err != nil {
		t.Fatalf("newPipeline failed: %v", err)
	}

	t.Run("ready", func(t *testing.T) {
		if err := p.Ping(context.Background()); err != nil {
			t.Errorf("Ping() = %v, want nil", err)
		}
	})

	t.Run("not_ready_redis_closed", func(t *testing.T) {
		p.Close()
		err := p.Ping(context.Background())
		if !errors.Is(err, redis.ErrClosed) {
			t.Errorf("Ping() after Close = %v, want redis.ErrClosed", err)
		}
	})
}

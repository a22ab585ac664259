//go:build integration

package ratelimit

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
)

// setupRedis starts a Redis container and returns a client
func setupRedis(t *testing.T) (*redis.Client, func()) {
	ctx := context.Background()

	req := testcontainers.ContainerRequest{
		Image:        "redis:7-alpine",
		ExposedPorts: []string{"6379/tcp"},
		WaitingFor:   wait.ForLog("Ready to accept connections"),
	}

	redisContainer, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	if err != nil {
		t.Fatalf("Failed to start Redis container: %v", err)
	}

	endpoint, err := redisContainer.Endpoint(ctx, "")
	if err != nil {
		t.Fatalf("Failed to get Redis endpoint: %v", err)
	}

	client := redis.NewClient(&redis.Options{
		Addr: endpoint,
	})

	if err := client.Ping(ctx).Err(); err != nil {
		t.Fatalf("Failed to connect to Redis: %v", err)
	}

	cleanup := func() {
		client.Close()
		redisContainer.Terminate(ctx)
	}

	return client, cleanup
}

// TestRedisWindow_Integration_SharedAcrossReplicas simulates two service
// replicas sharing one credential: together they must respect one budget.
func TestRedisWindow_Integration_SharedAcrossReplicas(t *testing.T) {
	redisClient, cleanup := setupRedis(t)
	defer cleanup()

	cfg := Config{MaxRequests: 5, Window: 500 * time.Millisecond, SafetyMargin: 20 * time.Millisecond}
	replicaA := NewRedisWindow(redisClient, cfg, zerolog.Nop())
	replicaB := NewRedisWindow(redisClient, cfg, zerolog.Nop())
	ctx := context.Background()

	var (
		mu       sync.Mutex
		admitted []time.Time
		wg       sync.WaitGroup
	)
	for i := 0; i < 12; i++ {
		rw := replicaA
		if i%2 == 1 {
			rw = replicaB
		}
		wg.Add(1)
		go func(rw *RedisWindow) {
			defer wg.Done()
			if err := rw.Acquire(ctx, "shared-key"); err != nil {
				t.Errorf("Acquire() error = %v", err)
				return
			}
			mu.Lock()
			admitted = append(admitted, time.Now())
			mu.Unlock()
		}(rw)
	}
	wg.Wait()

	if len(admitted) != 12 {
		t.Fatalf("admitted %d calls, want 12", len(admitted))
	}

	used, err := replicaA.Used(ctx, "shared-key")
	if err != nil {
		t.Fatalf("Used() error = %v", err)
	}
	if used > int64(cfg.MaxRequests) {
		t.Errorf("Used() = %d, want <= %d", used, cfg.MaxRequests)
	}
}

func TestRedisWindow_Integration_KeyExpires(t *testing.T) {
	redisClient, cleanup := setupRedis(t)
	defer cleanup()

	cfg := Config{MaxRequests: 2, Window: 200 * time.Millisecond}
	rw := NewRedisWindow(redisClient, cfg, zerolog.Nop())
	ctx := context.Background()

	if err := rw.Acquire(ctx, "expiring"); err != nil {
		t.Fatal(err)
	}

	ttl, err := redisClient.PTTL(ctx, RedisKey("expiring")).Result()
	if err != nil {
		t.Fatalf("PTTL error = %v", err)
	}
	if ttl <= 0 || ttl > cfg.Window {
		t.Errorf("key TTL = %v, want (0, %v]", ttl, cfg.Window)
	}

	time.Sleep(300 * time.Millisecond)

	exists, err := redisClient.Exists(ctx, RedisKey("expiring")).Result()
	if err != nil {
		t.Fatalf("Exists error = %v", err)
	}
	if exists != 0 {
		t.Error("window key should expire once the window is empty")
	}
}

//go:build integration

package enrich

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/Sternrassler/moviemeta/internal/testutil"
	"github.com/Sternrassler/moviemeta/pkg/cache"
	"github.com/Sternrassler/moviemeta/pkg/catalog"
	"github.com/Sternrassler/moviemeta/pkg/ratelimit"
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

	client := redis.NewClient(&redis.Options{Addr: endpoint})
	if err := client.Ping(ctx).Err(); err != nil {
		t.Fatalf("Failed to connect to Redis: %v", err)
	}

	cleanup := func() {
		client.Close()
		redisContainer.Terminate(ctx)
	}
	return client, cleanup
}

// TestEnrich_Integration_SharedAdmission runs two replicas against one
// Redis-backed window: together they must not exceed the shared budget.
func TestEnrich_Integration_SharedAdmission(t *testing.T) {
	redisClient, cleanup := setupRedis(t)
	defer cleanup()

	mock := testutil.NewMockTMDB()
	defer mock.Close()

	const perReplica = 5
	titles := make([][]string, 2)
	for r := range titles {
		for i := 0; i < perReplica; i++ {
			title := fmt.Sprintf("Replica %d Film %d", r, i)
			titles[r] = append(titles[r], title)
			mock.AddMovie(title, testutil.MockMovie{ID: int64(r*100 + i + 1), Title: title})
		}
	}

	admission := ratelimit.Config{MaxRequests: 4, Window: time.Second, SafetyMargin: 20 * time.Millisecond}
	newReplica := func() *Enricher {
		cfg := catalog.DefaultConfig()
		cfg.BaseURL = mock.URL()
		window := ratelimit.NewRedisWindow(redisClient, admission, zerolog.Nop())
		client, err := catalog.New(cfg, window, cache.NewManager(cache.DefaultConfig()), catalog.WithLogger(zerolog.Nop()))
		if err != nil {
			t.Fatalf("catalog.New returned error: %v", err)
		}
		return newTestEnricher(client)
	}

	replicas := []*Enricher{newReplica(), newReplica()}
	start := time.Now()

	var wg sync.WaitGroup
	errs := make([]error, len(replicas))
	counts := make([]int, len(replicas))
	for r, e := range replicas {
		wg.Add(1)
		go func(r int, e *Enricher) {
			defer wg.Done()
			records, err := e.Enrich(context.Background(), inputs(titles[r]...), "shared-key")
			errs[r] = err
			counts[r] = len(records)
		}(r, e)
	}
	wg.Wait()
	elapsed := time.Since(start)

	for r := range replicas {
		if errs[r] != nil {
			t.Fatalf("replica %d: Enrich returned error: %v", r, errs[r])
		}
		if counts[r] != perReplica {
			t.Errorf("replica %d: len(records) = %d, want %d", r, counts[r], perReplica)
		}
	}

	// 10 calls with 4 per second need at least two full windows.
	if elapsed < 2*time.Second {
		t.Errorf("elapsed = %v, want >= 2s for a shared budget", elapsed)
	}
	if n := mock.TotalRequests(); n != 2*perReplica {
		t.Errorf("network calls = %d, want %d", n, 2*perReplica)
	}
}

package main

import (
	"context"
	"fmt"

	"github.com/Sternrassler/moviemeta/internal/config"
	"github.com/Sternrassler/moviemeta/pkg/cache"
	"github.com/Sternrassler/moviemeta/pkg/catalog"
	"github.com/Sternrassler/moviemeta/pkg/enrich"
	"github.com/Sternrassler/moviemeta/pkg/logging"
	"github.com/Sternrassler/moviemeta/pkg/ratelimit"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

// pipeline wires admission, cache, catalog client and enricher from the
// configuration.
type pipeline struct {
	enricher *enrich.Enricher
	client   *catalog.Client
	redis    *redis.Client
}

func newPipeline(cfg *config.Config, logger zerolog.Logger, opts ...enrich.Option) (*pipeline, error) {
	p := &pipeline{}

	redisOpts, err := cfg.RedisOptions()
	if err != nil {
		return nil, err
	}

	var admitter ratelimit.Admitter
	if redisOpts != nil {
		p.redis = redis.NewClient(redisOpts)
		admitter = ratelimit.NewRedisWindow(p.redis, cfg.AdmissionConfig(), logging.NewLogger("ratelimit"))
		logger.Info().Str("redis", redisOpts.Addr).Msg("Using shared Redis admission window")
	} else {
		admitter = ratelimit.NewLimiter(cfg.AdmissionConfig(), logging.NewLogger("ratelimit"))
	}

	lookupCache := cache.NewManager(cfg.CacheConfig())

	p.client, err = catalog.New(cfg.CatalogConfig(), admitter, lookupCache,
		catalog.WithLogger(logging.NewLogger("catalog")))
	if err != nil {
		p.Close()
		return nil, fmt.Errorf("create catalog client: %w", err)
	}

	p.enricher = enrich.New(p.client, cfg.EnrichConfig(), opts...)
	return p, nil
}

// Ping checks the Redis connection when one is configured.
func (p *pipeline) Ping(ctx context.Context) error {
	if p.redis == nil {
		return nil
	}
	if err := p.redis.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("redis ping: %w", err)
	}
	return nil
}

// Close releases the Redis connection.
func (p *pipeline) Close() error {
	if p.redis == nil {
		return nil
	}
	return p.redis.Close()
}

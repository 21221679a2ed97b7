package rediscache

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"paperTrader/internal/ports"
)

const defaultTTL = 15 * time.Second

// CachedPriceSource decorates a ports.PriceSource with a Redis cache.
// Each asset's last quote is stored at key "price:{address}" with a short
// TTL so a burst of refresh cycles does not hammer the rate-limited
// upstream provider. Cache failures are soft: the upstream is always
// consulted when Redis misbehaves.
type CachedPriceSource struct {
	upstream ports.PriceSource
	rdb      *redis.Client
	ttl      time.Duration
	logger   ports.Logger
}

// Config holds configuration for the Redis price cache.
type Config struct {
	Addr     string
	Password string
	DB       int
	TTL      time.Duration
	Logger   ports.Logger
}

// New creates a CachedPriceSource in front of the given upstream source.
func New(cfg Config, upstream ports.PriceSource) (*CachedPriceSource, error) {
	if cfg.Logger == nil {
		return nil, fmt.Errorf("logger is required for price cache")
	}
	if upstream == nil {
		return nil, fmt.Errorf("upstream price source is required for price cache")
	}
	if cfg.Addr == "" {
		return nil, fmt.Errorf("%w: redis address must be set", ports.ErrConfigurationError)
	}
	ttl := cfg.TTL
	if ttl <= 0 {
		ttl = defaultTTL
	}

	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})
	return &CachedPriceSource{
		upstream: upstream,
		rdb:      rdb,
		ttl:      ttl,
		logger:   cfg.Logger,
	}, nil
}

func priceKey(assetAddress string) string {
	return "price:" + assetAddress
}

// GetPrice returns a cached quote when one is still fresh, otherwise fetches
// from the upstream source and writes through.
func (c *CachedPriceSource) GetPrice(ctx context.Context, assetAddress string) (float64, error) {
	key := priceKey(assetAddress)

	val, err := c.rdb.Get(ctx, key).Result()
	if err == nil {
		if price, perr := strconv.ParseFloat(val, 64); perr == nil && price > 0 {
			return price, nil
		}
		// Unparseable entry: drop it and fall through to the upstream.
		_ = c.rdb.Del(ctx, key).Err()
	} else if !errors.Is(err, redis.Nil) {
		c.logger.Warn(ctx, "Price cache read failed, falling through", map[string]interface{}{
			"asset": assetAddress, "error": err.Error(),
		})
	}

	price, err := c.upstream.GetPrice(ctx, assetAddress)
	if err != nil {
		return 0, err
	}

	if err := c.rdb.Set(ctx, key, strconv.FormatFloat(price, 'f', -1, 64), c.ttl).Err(); err != nil {
		c.logger.Warn(ctx, "Price cache write failed", map[string]interface{}{
			"asset": assetAddress, "error": err.Error(),
		})
	}
	return price, nil
}

// Close releases the Redis connection.
func (c *CachedPriceSource) Close() error {
	return c.rdb.Close()
}

// Compile-time interface check.
var _ ports.PriceSource = (*CachedPriceSource)(nil)

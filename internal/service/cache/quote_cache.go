// Package cache keeps the latest observed quote per instrument in
// Redis so the status surface can serve it without touching the
// provider session.
package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"fxpull/internal/domain/models"
)

type QuoteCache struct {
	cli    *redis.Client
	ttl    time.Duration
	prefix string
}

type QuoteCacheConfig struct {
	Addr     string
	Password string
	DB       int
	TTL      time.Duration
}

func NewQuoteCache(cfg QuoteCacheConfig) *QuoteCache {
	cli := redis.NewClient(&redis.Options{Addr: cfg.Addr, Password: cfg.Password, DB: cfg.DB})
	ttl := cfg.TTL
	if ttl <= 0 {
		ttl = time.Minute
	}
	return &QuoteCache{cli: cli, ttl: ttl, prefix: "fxpull:quote:"}
}

func (c *QuoteCache) Set(ctx context.Context, q models.Quote) error {
	b, err := json.Marshal(q)
	if err != nil {
		return fmt.Errorf("marshal quote: %w", err)
	}
	key := c.prefix + models.NormalizeInstrument(q.Instrument)
	if err := c.cli.Set(ctx, key, b, c.ttl).Err(); err != nil {
		return fmt.Errorf("cache quote %s: %w", q.Instrument, err)
	}
	return nil
}

func (c *QuoteCache) Get(ctx context.Context, instrument string) (models.Quote, bool, error) {
	key := c.prefix + models.NormalizeInstrument(instrument)
	b, err := c.cli.Get(ctx, key).Bytes()
	if err != nil {
		if err == redis.Nil {
			return models.Quote{}, false, nil
		}
		return models.Quote{}, false, err
	}
	var q models.Quote
	if err := json.Unmarshal(b, &q); err != nil {
		return models.Quote{}, false, fmt.Errorf("unmarshal quote: %w", err)
	}
	return q, true, nil
}

func (c *QuoteCache) Health(ctx context.Context) error {
	return c.cli.Ping(ctx).Err()
}

func (c *QuoteCache) Close() error {
	return c.cli.Close()
}

// Package cache keeps recent simulation reports in Redis, keyed by the
// canonical request key.
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/cory-johannsen/dpr/internal/config"
	"github.com/cory-johannsen/dpr/internal/sim"
)

const keyPrefix = "dpr:report:"

// ErrCacheMiss is returned when no report is cached under a key.
var ErrCacheMiss = errors.New("report not cached")

// NewClient connects to the Redis server described by cfg.
//
// Postcondition: Returns a client that answered PING, or a non-nil error.
func NewClient(ctx context.Context, cfg config.RedisConfig) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("pinging redis at %s: %w", cfg.Addr, err)
	}
	return client, nil
}

// ReportCache stores reports as JSON documents with an expiry.
type ReportCache struct {
	client redis.Cmdable
	ttl    time.Duration
}

// NewReportCache creates a ReportCache.
//
// Precondition: client must be non-nil; ttl of 0 stores reports without expiry.
func NewReportCache(client redis.Cmdable, ttl time.Duration) *ReportCache {
	return &ReportCache{client: client, ttl: ttl}
}

// Get returns the report cached under key.
//
// Postcondition: Returns ErrCacheMiss when nothing is cached.
func (c *ReportCache) Get(ctx context.Context, key string) (*sim.Report, error) {
	data, err := c.client.Get(ctx, keyPrefix+key).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, ErrCacheMiss
		}
		return nil, fmt.Errorf("reading cached report %s: %w", key, err)
	}
	var rep sim.Report
	if err := json.Unmarshal(data, &rep); err != nil {
		return nil, fmt.Errorf("decoding cached report %s: %w", key, err)
	}
	return &rep, nil
}

// Set caches rep under key, replacing any previous entry.
func (c *ReportCache) Set(ctx context.Context, key string, rep *sim.Report) error {
	data, err := json.Marshal(rep)
	if err != nil {
		return fmt.Errorf("encoding report %s: %w", rep.ID, err)
	}
	if err := c.client.Set(ctx, keyPrefix+key, data, c.ttl).Err(); err != nil {
		return fmt.Errorf("caching report %s: %w", rep.ID, err)
	}
	return nil
}

// Delete drops the entry for key. Deleting a missing key is not an error.
func (c *ReportCache) Delete(ctx context.Context, key string) error {
	if err := c.client.Del(ctx, keyPrefix+key).Err(); err != nil {
		return fmt.Errorf("evicting report %s: %w", key, err)
	}
	return nil
}

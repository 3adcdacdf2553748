package services

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"time"

	"github.com/go-redis/redis/v8"
)

const (
	summaryCacheTTL      = 5 * time.Minute
	summaryGenerationKey = "summary:generation"
)

// SummaryCache is a read cache for summary queries. Cache keys embed a
// generation counter that every transaction write bumps, so a summary
// computed before a write can never be served after it. A nil Redis client
// disables caching and all methods become no-ops.
type SummaryCache struct {
	redis *redis.Client
}

func NewSummaryCache(rdb *redis.Client) *SummaryCache {
	return &SummaryCache{redis: rdb}
}

func (c *SummaryCache) generation(ctx context.Context) int64 {
	gen, err := c.redis.Get(ctx, summaryGenerationKey).Int64()
	if err != nil {
		return 0
	}
	return gen
}

// Get loads a cached summary into dst. Returns false on miss or when
// caching is disabled.
func (c *SummaryCache) Get(ctx context.Context, suffix string, dst any) bool {
	if c == nil || c.redis == nil {
		return false
	}

	key := fmt.Sprintf("summary:v%d:%s", c.generation(ctx), suffix)
	data, err := c.redis.Get(ctx, key).Bytes()
	if err != nil {
		return false
	}

	return json.Unmarshal(data, dst) == nil
}

// Set stores a computed summary under the current generation.
func (c *SummaryCache) Set(ctx context.Context, suffix string, v any) {
	if c == nil || c.redis == nil {
		return
	}

	data, err := json.Marshal(v)
	if err != nil {
		return
	}

	key := fmt.Sprintf("summary:v%d:%s", c.generation(ctx), suffix)
	if err := c.redis.Set(ctx, key, data, summaryCacheTTL).Err(); err != nil {
		log.Printf("[CACHE] Failed to store %s: %v", key, err)
	}
}

// Bump invalidates all cached summaries by advancing the generation.
// Called after every transaction write; old entries age out via TTL.
func (c *SummaryCache) Bump(ctx context.Context) {
	if c == nil || c.redis == nil {
		return
	}

	if err := c.redis.Incr(ctx, summaryGenerationKey).Err(); err != nil {
		log.Printf("[CACHE] Failed to bump summary generation: %v", err)
	}
}

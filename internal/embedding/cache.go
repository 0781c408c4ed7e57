package embedding

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"log"
	"time"

	"github.com/redis/go-redis/v9"
)

// Cache is a read-through Redis cache in front of an Embedder. Repeated
// queries and re-ingested passages skip the provider round trip. Cache
// failures degrade to a direct provider call.
type Cache struct {
	inner  Embedder
	rdb    *redis.Client
	ttl    time.Duration
	logger *log.Logger
}

// NewCache wraps inner with a Redis-backed vector cache.
func NewCache(inner Embedder, rdb *redis.Client, ttl time.Duration, logger *log.Logger) *Cache {
	if logger == nil {
		logger = log.New(log.Writer(), "[EMBED-CACHE] ", log.LstdFlags)
	}
	return &Cache{inner: inner, rdb: rdb, ttl: ttl, logger: logger}
}

var _ Embedder = (*Cache)(nil)

func cacheKey(text string, mode Mode) string {
	sum := sha256.Sum256([]byte(text))
	return fmt.Sprintf("emb:%s:%s", mode, hex.EncodeToString(sum[:]))
}

// Embed returns the cached vector when present, otherwise delegates to the
// inner embedder and stores the result.
func (c *Cache) Embed(ctx context.Context, text string, mode Mode) ([]float32, error) {
	key := cacheKey(text, mode)
	raw, err := c.rdb.Get(ctx, key).Bytes()
	switch {
	case err == nil:
		var vec []float32
		if err := json.Unmarshal(raw, &vec); err == nil && len(vec) > 0 {
			return vec, nil
		}
		c.logger.Printf("warn: discarding corrupt cache entry %s", key)
	case err != redis.Nil:
		c.logger.Printf("warn: cache get failed: %v", err)
	}

	vec, err := c.inner.Embed(ctx, text, mode)
	if err != nil {
		return nil, err
	}
	if encoded, err := json.Marshal(vec); err == nil {
		if err := c.rdb.Set(ctx, key, encoded, c.ttl).Err(); err != nil {
			c.logger.Printf("warn: cache set failed: %v", err)
		}
	}
	return vec, nil
}

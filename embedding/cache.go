package embedding

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"time"

	"github.com/redis/go-redis/v9"

	"hn-insight/logger"
)

const cacheKeyPrefix = "hninsight:emb:"

// cachedEmbedder memoizes vectors in redis keyed by a hash of the text.
// Re-ingestion of unchanged content then skips the provider entirely.
// Cache failures are logged and ignored; the provider is the source of truth.
type cachedEmbedder struct {
	inner Embedder
	rdb   *redis.Client
	ttl   time.Duration
}

func WithCache(inner Embedder, rdb *redis.Client, ttl time.Duration) Embedder {
	if rdb == nil {
		return inner
	}
	return &cachedEmbedder{inner: inner, rdb: rdb, ttl: ttl}
}

func (c *cachedEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	key := cacheKey(text)
	if data, err := c.rdb.Get(ctx, key).Bytes(); err == nil {
		var vector []float32
		if err := json.Unmarshal(data, &vector); err == nil && len(vector) > 0 {
			return vector, nil
		}
	} else if err != redis.Nil {
		logger.Log.Debugf("embedding cache read failed: %v", err)
	}

	vector, err := c.inner.Embed(ctx, text)
	if err != nil {
		return nil, err
	}
	c.put(ctx, key, vector)
	return vector, nil
}

func (c *cachedEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	vectors := make([][]float32, len(texts))
	missing := make([]int, 0, len(texts))
	missingTexts := make([]string, 0, len(texts))

	for i, text := range texts {
		if data, err := c.rdb.Get(ctx, cacheKey(text)).Bytes(); err == nil {
			var vector []float32
			if err := json.Unmarshal(data, &vector); err == nil && len(vector) > 0 {
				vectors[i] = vector
				continue
			}
		}
		missing = append(missing, i)
		missingTexts = append(missingTexts, text)
	}

	if len(missing) == 0 {
		return vectors, nil
	}

	fresh, err := c.inner.EmbedBatch(ctx, missingTexts)
	if err != nil {
		return nil, err
	}
	for j, i := range missing {
		vectors[i] = fresh[j]
		c.put(ctx, cacheKey(texts[i]), fresh[j])
	}
	return vectors, nil
}

func (c *cachedEmbedder) put(ctx context.Context, key string, vector []float32) {
	data, err := json.Marshal(vector)
	if err != nil {
		return
	}
	if err := c.rdb.Set(ctx, key, data, c.ttl).Err(); err != nil {
		logger.Log.Debugf("embedding cache write failed: %v", err)
	}
}

func cacheKey(text string) string {
	sum := sha256.Sum256([]byte(text))
	return cacheKeyPrefix + hex.EncodeToString(sum[:])
}

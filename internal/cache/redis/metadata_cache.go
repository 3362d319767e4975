package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"solana-sniper/internal/domain"
	"solana-sniper/internal/enrich"
)

// MetadataCache implements enrich.Cache with one JSON string per mint.
//
// Key schema:
//
//	meta:{mint} - JSON encoded EnrichedMetadata, expiring after the entry TTL
type MetadataCache struct {
	rdb *redis.Client
}

var _ enrich.Cache = (*MetadataCache)(nil)

// NewMetadataCache creates a MetadataCache backed by the given Client.
func NewMetadataCache(c *Client) *MetadataCache {
	return &MetadataCache{rdb: c.Underlying()}
}

func metadataKey(mint string) string { return "meta:" + mint }

// Get returns enrich.ErrCacheMiss when the key does not exist.
func (mc *MetadataCache) Get(ctx context.Context, mint string) (*domain.EnrichedMetadata, error) {
	data, err := mc.rdb.Get(ctx, metadataKey(mint)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, enrich.ErrCacheMiss
		}
		return nil, fmt.Errorf("redis: get metadata %s: %w", mint, err)
	}

	var meta domain.EnrichedMetadata
	if err := json.Unmarshal(data, &meta); err != nil {
		return nil, fmt.Errorf("redis: unmarshal metadata %s: %w", mint, err)
	}
	return &meta, nil
}

// Set stores meta with the given TTL.
func (mc *MetadataCache) Set(ctx context.Context, meta *domain.EnrichedMetadata, ttl time.Duration) error {
	data, err := json.Marshal(meta)
	if err != nil {
		return fmt.Errorf("redis: marshal metadata %s: %w", meta.Mint, err)
	}
	if err := mc.rdb.Set(ctx, metadataKey(meta.Mint), data, ttl).Err(); err != nil {
		return fmt.Errorf("redis: set metadata %s: %w", meta.Mint, err)
	}
	return nil
}

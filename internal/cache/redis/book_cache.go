package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/quantbot/smartrouter/internal/domain"
)

// BookCache implements domain.BookCache. Each asset's aggregated book is
// stored as one JSON blob under aggbook:{asset} with a TTL, so read-side
// consumers never see a snapshot older than the TTL.
type BookCache struct {
	rdb *redis.Client
	ttl time.Duration
}

// NewBookCache creates a BookCache backed by the given Client. A non-positive
// ttl disables expiry.
func NewBookCache(c *Client, ttl time.Duration) *BookCache {
	return &BookCache{rdb: c.Underlying(), ttl: ttl}
}

func bookKey(asset string) string { return "aggbook:" + asset }

// SetSnapshot replaces the cached book for the snapshot's asset.
func (bc *BookCache) SetSnapshot(ctx context.Context, book domain.AggregatedBook) error {
	payload, err := json.Marshal(book)
	if err != nil {
		return fmt.Errorf("redis: marshal book %s: %w", book.Asset, err)
	}
	if err := bc.rdb.Set(ctx, bookKey(book.Asset), payload, bc.ttl).Err(); err != nil {
		return fmt.Errorf("redis: set book %s: %w", book.Asset, err)
	}
	return nil
}

// GetSnapshot returns the cached book for an asset, or domain.ErrNotFound
// when none exists or the snapshot has expired.
func (bc *BookCache) GetSnapshot(ctx context.Context, asset string) (domain.AggregatedBook, error) {
	payload, err := bc.rdb.Get(ctx, bookKey(asset)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return domain.AggregatedBook{}, fmt.Errorf("redis: book %s: %w", asset, domain.ErrNotFound)
		}
		return domain.AggregatedBook{}, fmt.Errorf("redis: get book %s: %w", asset, err)
	}
	var book domain.AggregatedBook
	if err := json.Unmarshal(payload, &book); err != nil {
		return domain.AggregatedBook{}, fmt.Errorf("redis: unmarshal book %s: %w", asset, err)
	}
	return book, nil
}

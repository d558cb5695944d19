package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"

	"github.com/quantbot/smartrouter/internal/domain"
)

// ProfileCache implements domain.ProfileCache. Venue profiles live under
// venue:{name}:profile without expiry; the refresher overwrites them in
// place when reference data changes.
type ProfileCache struct {
	rdb *redis.Client
}

// NewProfileCache creates a ProfileCache backed by the given Client.
func NewProfileCache(c *Client) *ProfileCache {
	return &ProfileCache{rdb: c.Underlying()}
}

func profileKey(venue string) string { return "venue:" + venue + ":profile" }

// SetProfile stores or replaces the profile for its venue.
func (pc *ProfileCache) SetProfile(ctx context.Context, p domain.VenueProfile) error {
	payload, err := json.Marshal(p)
	if err != nil {
		return fmt.Errorf("redis: marshal profile %s: %w", p.Venue, err)
	}
	if err := pc.rdb.Set(ctx, profileKey(p.Venue), payload, 0).Err(); err != nil {
		return fmt.Errorf("redis: set profile %s: %w", p.Venue, err)
	}
	return nil
}

// GetProfile returns the cached profile for a venue, or domain.ErrNotFound.
func (pc *ProfileCache) GetProfile(ctx context.Context, venue string) (domain.VenueProfile, error) {
	payload, err := pc.rdb.Get(ctx, profileKey(venue)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return domain.VenueProfile{}, fmt.Errorf("redis: profile %s: %w", venue, domain.ErrNotFound)
		}
		return domain.VenueProfile{}, fmt.Errorf("redis: get profile %s: %w", venue, err)
	}
	var p domain.VenueProfile
	if err := json.Unmarshal(payload, &p); err != nil {
		return domain.VenueProfile{}, fmt.Errorf("redis: unmarshal profile %s: %w", venue, err)
	}
	return p, nil
}

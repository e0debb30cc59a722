package repository

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/stemsi/mtq-judge/internal/config"
	"github.com/stemsi/mtq-judge/internal/metrics"
	"github.com/stemsi/mtq-judge/internal/model"
)

// ListingSource is the uncached origin of the competition listings.
type ListingSource interface {
	ListRounds(ctx context.Context) ([]model.Round, error)
	ListCandidates(ctx context.Context, roundID int) ([]model.Candidate, error)
	ListActiveCandidates(ctx context.Context) ([]model.Candidate, error)
}

// ListingCache keeps candidate listings in Redis for a short TTL.
// Listings are the same for every judge, so entries are shared. A Redis
// failure is logged and the origin is queried directly.
type ListingCache struct {
	rdb *redis.Client
	ttl time.Duration
	log zerolog.Logger
}

// NewListingCache creates a ListingCache. A non-positive ttl disables caching.
func NewListingCache(rdb *redis.Client, ttl time.Duration, log zerolog.Logger) *ListingCache {
	return &ListingCache{
		rdb: rdb,
		ttl: ttl,
		log: log.With().Str("component", "listing_cache").Logger(),
	}
}

// Wrap returns a cached view of src.
func (c *ListingCache) Wrap(src ListingSource) *CachedListing {
	return &CachedListing{cache: c, src: src}
}

// Invalidate drops the listings a submission in roundID can change.
func (c *ListingCache) Invalidate(ctx context.Context, roundID int) {
	if c.rdb == nil {
		return
	}
	err := c.rdb.Del(ctx,
		config.CacheKey.RoundCandidatesKey(roundID),
		config.CacheKey.ActiveCandidatesKey(),
	).Err()
	if err != nil {
		c.log.Warn().Err(err).Int("round_id", roundID).Msg("Failed to invalidate listing cache")
	}
}

// CachedListing is a ListingSource served from the cache when possible.
type CachedListing struct {
	cache *ListingCache
	src   ListingSource
}

// ListRounds always asks the origin. The active flag gates submissions and
// must not lag behind an admin's change.
func (l *CachedListing) ListRounds(ctx context.Context) ([]model.Round, error) {
	return l.src.ListRounds(ctx)
}

func (l *CachedListing) ListCandidates(ctx context.Context, roundID int) ([]model.Candidate, error) {
	return cached(ctx, l.cache, config.CacheKey.RoundCandidatesKey(roundID), func() ([]model.Candidate, error) {
		return l.src.ListCandidates(ctx, roundID)
	})
}

func (l *CachedListing) ListActiveCandidates(ctx context.Context) ([]model.Candidate, error) {
	return cached(ctx, l.cache, config.CacheKey.ActiveCandidatesKey(), func() ([]model.Candidate, error) {
		return l.src.ListActiveCandidates(ctx)
	})
}

func cached[T any](ctx context.Context, c *ListingCache, key string, load func() ([]T, error)) ([]T, error) {
	if c.rdb == nil || c.ttl <= 0 {
		return load()
	}

	raw, err := c.rdb.Get(ctx, key).Bytes()
	switch {
	case err == nil:
		var out []T
		if jsonErr := json.Unmarshal(raw, &out); jsonErr == nil {
			metrics.CacheHit()
			return out, nil
		}
		c.log.Warn().Str("key", key).Msg("Corrupt listing cache entry, reloading")
	case errors.Is(err, redis.Nil):
		metrics.CacheMiss()
	default:
		metrics.CacheErr()
		c.log.Warn().Err(err).Str("key", key).Msg("Listing cache unavailable, using origin")
		return load()
	}

	out, err := load()
	if err != nil {
		return nil, err
	}
	if raw, err := json.Marshal(out); err == nil {
		if err := c.rdb.Set(ctx, key, raw, c.ttl).Err(); err != nil {
			c.log.Warn().Err(err).Str("key", key).Msg("Failed to store listing")
		}
	}
	return out, nil
}

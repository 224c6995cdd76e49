package identity

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

const cacheKeyPrefix = "swift:identity:"

// CachedProvider remembers successful lookups in redis so repeat requests
// from the same session skip the upstream provider. Failures are not cached,
// and an entry never outlives the token's own exp claim.
type CachedProvider struct {
	next   Provider
	client redis.UniversalClient
	ttl    time.Duration
	now    func() time.Time
	logger zerolog.Logger
}

// NewCachedProvider wraps next with a redis cache of the given ttl.
func NewCachedProvider(next Provider, client redis.UniversalClient, ttl time.Duration, logger zerolog.Logger) *CachedProvider {
	if ttl <= 0 {
		ttl = time.Minute
	}
	return &CachedProvider{
		next:   next,
		client: client,
		ttl:    ttl,
		now:    time.Now,
		logger: logger.With().Str("component", "identity_cache").Logger(),
	}
}

// Lookup implements Provider.
func (p *CachedProvider) Lookup(ctx context.Context, token string) (string, error) {
	key := cacheKey(token)

	userID, err := p.client.Get(ctx, key).Result()
	switch {
	case err == nil && userID != "":
		return userID, nil
	case err != nil && !errors.Is(err, redis.Nil):
		// A broken cache must not block resolution.
		p.logger.Debug().Err(err).Msg("identity cache read failed")
	}

	userID, err = p.next.Lookup(ctx, token)
	if err != nil {
		return "", err
	}

	ttl := p.entryTTL(token)
	if ttl <= 0 {
		return userID, nil
	}
	if err := p.client.Set(ctx, key, userID, ttl).Err(); err != nil {
		p.logger.Debug().Err(err).Msg("identity cache write failed")
	}
	return userID, nil
}

// entryTTL caps the cache ttl at the token expiry. The upstream provider has
// already verified the token, so the claims are only read here.
func (p *CachedProvider) entryTTL(token string) time.Duration {
	claims := &jwt.RegisteredClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(token, claims); err != nil || claims.ExpiresAt == nil {
		return p.ttl
	}
	return min(p.ttl, claims.ExpiresAt.Sub(p.now()))
}

// Tokens are hashed so the cache never holds usable credentials.
func cacheKey(token string) string {
	sum := sha256.Sum256([]byte(token))
	return cacheKeyPrefix + hex.EncodeToString(sum[:])
}

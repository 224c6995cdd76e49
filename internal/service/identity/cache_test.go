package identity

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/golang-jwt/jwt/v5"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCachedProviderRemembersSuccess(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer client.Close()

	upstream := &countingProvider{userID: "u-9"}
	p := NewCachedProvider(upstream, client, time.Minute, zerolog.Nop())
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		id, err := p.Lookup(ctx, "token")
		require.NoError(t, err)
		assert.Equal(t, "u-9", id)
	}
	assert.Equal(t, 1, upstream.calls)

	key := cacheKey("token")
	assert.NotContains(t, key, "token")
	assert.True(t, mr.Exists(key))

	mr.FastForward(2 * time.Minute)
	_, err := p.Lookup(ctx, "token")
	require.NoError(t, err)
	assert.Equal(t, 2, upstream.calls)
}

func TestCachedProviderDoesNotCacheFailures(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer client.Close()

	upstream := &countingProvider{err: ErrUnauthorized}
	p := NewCachedProvider(upstream, client, time.Minute, zerolog.Nop())

	_, err := p.Lookup(context.Background(), "bad")
	assert.True(t, errors.Is(err, ErrUnauthorized))
	_, err = p.Lookup(context.Background(), "bad")
	assert.True(t, errors.Is(err, ErrUnauthorized))
	assert.Equal(t, 2, upstream.calls)
	assert.False(t, mr.Exists(cacheKey("bad")))
}

func TestCachedProviderSurvivesRedisOutage(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr(), MaxRetries: -1})
	defer client.Close()
	mr.Close()

	p := NewCachedProvider(&countingProvider{userID: "u-1"}, client, time.Minute, zerolog.Nop())

	id, err := p.Lookup(context.Background(), "token")
	require.NoError(t, err)
	assert.Equal(t, "u-1", id)
}

func TestCachedProviderStopsAtTokenExpiry(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer client.Close()

	now := time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC)
	upstream := &countingProvider{userID: "u-7"}
	p := NewCachedProvider(upstream, client, time.Minute, zerolog.Nop())
	p.now = func() time.Time { return now }

	sign := func(exp time.Time) string {
		return signToken(t, jwt.SigningMethodHS256, []byte("secret"), jwt.RegisteredClaims{
			Subject:   "u-7",
			ExpiresAt: jwt.NewNumericDate(exp),
		})
	}
	ctx := context.Background()

	soon := sign(now.Add(10 * time.Second))
	_, err := p.Lookup(ctx, soon)
	require.NoError(t, err)
	assert.Equal(t, 10*time.Second, mr.TTL(cacheKey(soon)))

	// once the token is past exp the cached user is gone
	mr.FastForward(11 * time.Second)
	assert.False(t, mr.Exists(cacheKey(soon)))

	expired := sign(now.Add(-time.Second))
	_, err = p.Lookup(ctx, expired)
	require.NoError(t, err)
	assert.False(t, mr.Exists(cacheKey(expired)))

	late := sign(now.Add(time.Hour))
	_, err = p.Lookup(ctx, late)
	require.NoError(t, err)
	assert.Equal(t, time.Minute, mr.TTL(cacheKey(late)))
}

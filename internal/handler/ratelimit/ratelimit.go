// Package ratelimit rejects callers that exceed a per-client request budget
// before any upstream service is called.
package ratelimit

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/Victorugws/swift/internal/logging"
	"github.com/Victorugws/swift/internal/metrics"
	voicesvc "github.com/Victorugws/swift/internal/service/voice"
	"github.com/Victorugws/swift/pkg/utils"
)

const keyPrefix = "swift:ratelimit:"

// Decision is the outcome of one Acquire call.
type Decision struct {
	Allowed    bool
	Count      int64
	RetryAfter time.Duration
}

// Limiter is a fixed-window counter kept in redis, shared by every replica.
type Limiter struct {
	client redis.UniversalClient
	limit  int64
	window time.Duration
	now    func() time.Time
	logger zerolog.Logger
}

// New returns a limiter allowing limit requests per window and client.
func New(client redis.UniversalClient, limit int, window time.Duration, logger zerolog.Logger) *Limiter {
	if window <= 0 {
		window = time.Minute
	}
	return &Limiter{
		client: client,
		limit:  int64(limit),
		window: window,
		now:    time.Now,
		logger: logger.With().Str("component", "ratelimit").Logger(),
	}
}

// Acquire counts one request for client. Redis failures let the request
// through; losing the gate is better than losing the service.
func (l *Limiter) Acquire(ctx context.Context, client string) Decision {
	now := l.now()
	start := now.Truncate(l.window)
	key := fmt.Sprintf("%s%s:%d", keyPrefix, client, start.Unix())

	pipe := l.client.TxPipeline()
	incr := pipe.Incr(ctx, key)
	pipe.Expire(ctx, key, l.window)
	if _, err := pipe.Exec(ctx); err != nil {
		l.logger.Warn().Err(err).Str("client", client).Msg("rate limit check failed, allowing request")
		return Decision{Allowed: true}
	}

	count := incr.Val()
	if count <= l.limit {
		return Decision{Allowed: true, Count: count}
	}
	return Decision{
		Allowed:    false,
		Count:      count,
		RetryAfter: start.Add(l.window).Sub(now),
	}
}

// Middleware rejects requests over budget with 429. OPTIONS preflights and
// GET health checks pass.
func (l *Limiter) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodOptions || r.Method == http.MethodGet {
			next.ServeHTTP(w, r)
			return
		}

		dec := l.Acquire(r.Context(), clientKey(r))
		if !dec.Allowed {
			logger := logging.FromRequest(l.logger, r)
			logger.Info().
				Int64("count", dec.Count).
				Dur("retry_after", dec.RetryAfter).
				Msg("request rate limited")

			metrics.Requests.WithLabelValues(voicesvc.Outcome(voicesvc.ErrRateLimited)).Inc()
			w.Header().Set("Retry-After", strconv.Itoa(retrySeconds(dec.RetryAfter)))
			utils.RespondText(w, http.StatusTooManyRequests, "Too many requests. Please try again later.")
			return
		}

		next.ServeHTTP(w, r)
	})
}

// clientKey uses the address left by middleware.RealIP.
func clientKey(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

func retrySeconds(d time.Duration) int {
	secs := int((d + time.Second - 1) / time.Second)
	if secs < 1 {
		return 1
	}
	return secs
}

// Package identity resolves the caller behind an authorization credential.
// Resolution never fails a request: anything that cannot be resolved is
// attributed to the anonymous user.
package identity

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/rs/zerolog"

	"github.com/Victorugws/swift/internal/metrics"
	"github.com/Victorugws/swift/internal/model/conversation"
)

var (
	// ErrResolutionFailed wraps every provider failure reported on Identity.Failure.
	ErrResolutionFailed = errors.New("identity resolution failed")
	// ErrUnauthorized is returned by providers when the token is rejected.
	ErrUnauthorized = errors.New("credential rejected")
	// ErrNoUser is returned when the provider accepted the token but named no user.
	ErrNoUser = errors.New("no user for credential")
)

// Provider maps a bearer token to a user id.
type Provider interface {
	Lookup(ctx context.Context, token string) (string, error)
}

// ProviderFunc adapts a function to Provider.
type ProviderFunc func(ctx context.Context, token string) (string, error)

// Lookup calls f.
func (f ProviderFunc) Lookup(ctx context.Context, token string) (string, error) {
	return f(ctx, token)
}

// Identity is the resolved caller.
type Identity struct {
	ID        string
	Anonymous bool
	// Failure is set when a credential was presented but could not be resolved.
	// The caller is still served as anonymous.
	Failure error
}

// Anonymous is the identity of callers without a usable credential.
func Anonymous() Identity {
	return Identity{ID: conversation.AnonymousUserID, Anonymous: true}
}

// ParseBearer extracts the token from an Authorization header value. The
// "Bearer " scheme prefix is optional; a bare token is accepted as is.
func ParseBearer(header string) (string, bool) {
	header = strings.TrimSpace(header)
	if header == "" {
		return "", false
	}
	const prefix = "bearer "
	if len(header) >= len(prefix) && strings.EqualFold(header[:len(prefix)], prefix) {
		header = strings.TrimSpace(header[len(prefix):])
	}
	if header == "" {
		return "", false
	}
	return header, true
}

// Resolver applies the anonymous fallback policy around a Provider.
type Resolver struct {
	provider Provider
	logger   zerolog.Logger
}

// NewResolver returns a Resolver. A nil provider resolves every caller to
// anonymous without recording a failure.
func NewResolver(provider Provider, logger zerolog.Logger) *Resolver {
	return &Resolver{
		provider: provider,
		logger:   logger.With().Str("component", "identity").Logger(),
	}
}

// Resolve returns the caller identity for an Authorization header value.
func (r *Resolver) Resolve(ctx context.Context, authorization string) Identity {
	token, ok := ParseBearer(authorization)
	if !ok || r.provider == nil {
		return Anonymous()
	}

	userID, err := r.provider.Lookup(ctx, token)
	if err == nil && strings.TrimSpace(userID) == "" {
		err = ErrNoUser
	}
	if err != nil {
		reason := fallbackReason(err)
		metrics.IdentityFallbacks.WithLabelValues(reason).Inc()
		r.logger.Warn().Err(err).Str("reason", reason).Msg("falling back to anonymous identity")

		id := Anonymous()
		id.Failure = fmt.Errorf("%w: %w", ErrResolutionFailed, err)
		return id
	}

	return Identity{ID: userID}
}

func fallbackReason(err error) string {
	switch {
	case errors.Is(err, ErrUnauthorized):
		return "unauthorized"
	case errors.Is(err, ErrNoUser):
		return "no_user"
	case errors.Is(err, context.DeadlineExceeded), errors.Is(err, context.Canceled):
		return "timeout"
	default:
		return "error"
	}
}

package identity

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/supabase-community/gotrue-go"
)

// SupabaseProvider resolves access tokens with the Supabase Auth user endpoint.
type SupabaseProvider struct {
	client gotrue.Client
}

// NewSupabaseProvider returns a provider for the project at baseURL.
func NewSupabaseProvider(baseURL, anonKey string, timeout time.Duration) *SupabaseProvider {
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	baseURL = strings.TrimRight(baseURL, "/")

	client := gotrue.New(projectRef(baseURL), anonKey).
		WithCustomGoTrueURL(baseURL + "/auth/v1").
		WithClient(http.Client{Timeout: timeout})
	return &SupabaseProvider{client: client}
}

// projectRef is the first host label of https://<ref>.supabase.co.
func projectRef(baseURL string) string {
	u, err := url.Parse(baseURL)
	if err != nil {
		return ""
	}
	ref, _, _ := strings.Cut(u.Hostname(), ".")
	return ref
}

type lookupResult struct {
	userID string
	err    error
}

// Lookup implements Provider. The client has no context support, so the call
// runs aside and is abandoned when ctx ends; the client timeout bounds it.
func (p *SupabaseProvider) Lookup(ctx context.Context, token string) (string, error) {
	done := make(chan lookupResult, 1)
	go func() {
		userID, err := p.fetch(token)
		done <- lookupResult{userID: userID, err: err}
	}()

	select {
	case <-ctx.Done():
		return "", ctx.Err()
	case res := <-done:
		return res.userID, res.err
	}
}

func (p *SupabaseProvider) fetch(token string) (string, error) {
	user, err := p.client.WithToken(token).GetUser()
	if err != nil {
		if status := responseStatus(err); status == http.StatusUnauthorized || status == http.StatusForbidden {
			return "", fmt.Errorf("%w: %w", ErrUnauthorized, err)
		}
		return "", fmt.Errorf("fetch user: %w", err)
	}
	if user == nil || user.ID == uuid.Nil {
		return "", ErrNoUser
	}
	return user.ID.String(), nil
}

// responseStatus reads the status out of gotrue's "response status code N" errors.
func responseStatus(err error) int {
	var status int
	if _, scanErr := fmt.Sscanf(err.Error(), "response status code %d", &status); scanErr != nil {
		return 0
	}
	return status
}

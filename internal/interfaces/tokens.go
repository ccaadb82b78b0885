package interfaces

import "context"

// TokenService hands out valid OAuth access tokens, transparently refreshing
/// expired ones. An empty token with a nil error means "no token available":
// the caller must treat it as re-authentication required and degrade, not
// fail. Refresh failures (network, non-2xx) are folded into that same
// outcome; only crypto failures are returned as errors.
type TokenService interface {
	GetValidToken(ctx context.Context, provider string) (string, error)
	Providers() []string
}

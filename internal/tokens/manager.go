// Package tokens manages the OAuth access/refresh lifecycle for the external
// providers. Cached access tokens are handed out until they expire; expired
// ones are exchanged at the provider's token endpoint and the refreshed pair
// is re-encrypted and persisted. A refresh that fails for any reason degrades
// to "no token available" rather than surfacing an error.
package tokens

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/ternarybob/arbor"

	"github.com/ternarybob/venator/internal/interfaces"
	"github.com/ternarybob/venator/internal/models"
	"github.com/ternarybob/venator/internal/vault"
)

// ProviderConfig describes one OAuth provider's refresh endpoint.
type ProviderConfig struct {
	Name         string `toml:"-"`
	TokenURL     string `toml:"token_url" validate:"omitempty,url"`
	ClientID     string `toml:"client_id"`
	ClientSecret string `toml:"client_secret"`
}

// refreshResponse covers both provider response shapes: one reports
// expires_in (seconds from now), the other expires_at (unix epoch).
type refreshResponse struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	ExpiresIn    int64  `json:"expires_in"`
	ExpiresAt    int64  `json:"expires_at"`
}

// Manager implements interfaces.TokenService.
type Manager struct {
	vault     *vault.Vault
	storage   interfaces.TokenStorage
	client    *resty.Client
	providers map[string]ProviderConfig
	logger    arbor.ILogger

	// Pair mutations are serialized per provider so a concurrent "is it
	// expired" read cannot race a "here is the refreshed pair" write.
	mu    sync.Mutex
	locks map[string]*sync.Mutex

	now func() time.Time
}

// NewManager creates a token manager for the configured providers.
func NewManager(v *vault.Vault, storage interfaces.TokenStorage, providers map[string]ProviderConfig, logger arbor.ILogger) *Manager {
	client := resty.New().
		SetTimeout(30 * time.Second).
		SetHeader("Accept", "application/json")

	named := make(map[string]ProviderConfig, len(providers))
	for name, cfg := range providers {
		cfg.Name = name
		named[name] = cfg
	}

	return &Manager{
		vault:     v,
		storage:   storage,
		client:    client,
		providers: named,
		logger:    logger,
		locks:     make(map[string]*sync.Mutex),
		now:       time.Now,
	}
}

// Providers returns the configured provider names.
func (m *Manager) Providers() []string {
	names := make([]string, 0, len(m.providers))
	for name := range m.providers {
		names = append(names, name)
	}
	return names
}

// GetValidToken returns a decrypted access token for the provider, refreshing
// the stored pair first when it has expired. An empty token with a nil error
// means no token is available and the caller must fall back to
// unauthenticated behavior. Within a token's validity window repeated calls
// never issue a refresh.
func (m *Manager) GetValidToken(ctx context.Context, provider string) (string, error) {
	lock := m.providerLock(provider)
	lock.Lock()
	defer lock.Unlock()

	pair, err := m.storage.GetTokenPair(ctx, provider)
	if err != nil {
		return "", fmt.Errorf("load token pair for %s: %w", provider, err)
	}
	if pair == nil {
		m.logger.Debug().Str("provider", provider).Msg("No stored token pair")
		return "", nil
	}

	now := m.now().UTC()
	if pair.Usable(now) {
		access, err := m.vault.DecryptString(pair.AccessToken)
		if err != nil {
			return "", fmt.Errorf("decrypt access token for %s: %w", provider, err)
		}
		return access, nil
	}

	if len(pair.RefreshToken) == 0 {
		m.logger.Debug().Str("provider", provider).Msg("Token expired and no refresh token stored")
		return "", nil
	}

	refreshed, err := m.refresh(ctx, provider, pair)
	if err != nil {
		// Refresh failures are graceful degradation, not hard errors, except
		// when the stored data itself cannot be decrypted.
		if isCrypto(err) {
			return "", err
		}
		m.logger.Warn().
			Str("provider", provider).
			Str("error", err.Error()).
			Msg("Token refresh failed, treating as no token")
		return "", nil
	}
	return refreshed, nil
}

func (m *Manager) providerLock(provider string) *sync.Mutex {
	m.mu.Lock()
	defer m.mu.Unlock()
	lock, ok := m.locks[provider]
	if !ok {
		lock = &sync.Mutex{}
		m.locks[provider] = lock
	}
	return lock
}

// refresh exchanges the stored refresh token for a new pair, encrypts and
// persists it, and returns the new plaintext access token.
func (m *Manager) refresh(ctx context.Context, provider string, pair *models.TokenPair) (string, error) {
	cfg, ok := m.providers[provider]
	if !ok || cfg.TokenURL == "" {
		return "", fmt.Errorf("%w: provider %s has no token endpoint configured", models.ErrTokenRefreshFailed, provider)
	}

	refreshToken, err := m.vault.DecryptString(pair.RefreshToken)
	if err != nil {
		return "", fmt.Errorf("decrypt refresh token for %s: %w", provider, err)
	}

	var body refreshResponse
	res, err := m.client.R().
		SetContext(ctx).
		SetFormData(map[string]string{
			"grant_type":    "refresh_token",
			"refresh_token": refreshToken,
			"client_id":     cfg.ClientID,
			"client_secret": cfg.ClientSecret,
		}).
		SetResult(&body).
		Post(cfg.TokenURL)
	if err != nil {
		return "", fmt.Errorf("%w: %v", models.ErrTokenRefreshFailed, err)
	}
	if !res.IsSuccess() {
		return "", fmt.Errorf("%w: token endpoint returned %d", models.ErrTokenRefreshFailed, res.StatusCode())
	}
	if body.AccessToken == "" {
		return "", fmt.Errorf("%w: token endpoint returned no access token", models.ErrTokenRefreshFailed)
	}

	now := m.now().UTC()
	expiry := now
	switch {
	case body.ExpiresAt > 0:
		expiry = time.Unix(body.ExpiresAt, 0).UTC()
	case body.ExpiresIn > 0:
		expiry = now.Add(time.Duration(body.ExpiresIn) * time.Second)
	default:
		return "", fmt.Errorf("%w: token endpoint returned no expiry", models.ErrTokenRefreshFailed)
	}

	encAccess, err := m.vault.EncryptString(body.AccessToken)
	if err != nil {
		return "", err
	}
	// Providers may omit the refresh token when it is unchanged.
	newRefresh := body.RefreshToken
	if newRefresh == "" {
		newRefresh = refreshToken
	}
	encRefresh, err := m.vault.EncryptString(newRefresh)
	if err != nil {
		return "", err
	}

	updated := &models.TokenPair{
		Provider:     provider,
		AccessToken:  encAccess,
		RefreshToken: encRefresh,
		Expiry:       expiry,
		UpdatedAt:    now,
	}
	if err := m.storage.SaveTokenPair(ctx, updated); err != nil {
		return "", fmt.Errorf("persist refreshed pair for %s: %w", provider, err)
	}

	m.logger.Info().
		Str("provider", provider).
		Str("expiry", expiry.Format(time.RFC3339)).
		Msg("Token pair refreshed")
	return body.AccessToken, nil
}

func isCrypto(err error) bool {
	return errors.Is(err, models.ErrCrypto)
}

package models

import "time"

// Credential is a decrypted username/password pair for one scraped source.
// It only ever exists transiently in memory; the stored form is a vault
// ciphertext of the JSON encoding.
type Credential struct {
	Source   string `json:"-"`
	Username string `json:"username"`
	Password string `json:"password"`
	APIKey   string `json:"api_key,omitempty"`
}

// StoredCredential is the at-rest form of a credential. Ciphertext is the
// vault encryption of the Credential JSON; plaintext is never persisted.
type StoredCredential struct {
	Source     string `json:"source"`
	Ciphertext []byte `json:"ciphertext"`
	UpdatedAt  int64  `json:"updated_at"`
}

// TokenPair holds one OAuth provider's access/refresh tokens. Both token
// fields are vault ciphertexts; Expiry is kept in UTC and a token is usable
// iff now < Expiry. Each refresh fully replaces the pair.
type TokenPair struct {
	Provider     string    `json:"provider"`
	AccessToken  []byte    `json:"access_token"`
	RefreshToken []byte    `json:"refresh_token"`
	Expiry       time.Time `json:"expiry"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// Usable reports whether the cached access token is still inside its
// validity window at the given instant.
func (p *TokenPair) Usable(now time.Time) bool {
	return p != nil && len(p.AccessToken) > 0 && now.Before(p.Expiry)
}

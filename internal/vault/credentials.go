package vault

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/ternarybob/venator/internal/interfaces"
	"github.com/ternarybob/venator/internal/models"
)

// CredentialStore couples the vault with credential persistence so the rest
// of the code never handles ciphertext or raw storage rows. Plaintext
// credentials exist only in memory, inside a Save or Load call and in the
// caller that needed them.
type CredentialStore struct {
	vault   *Vault
	storage interfaces.CredentialStorage
}

// NewCredentialStore wires a vault to a credential storage backend.
func NewCredentialStore(v *Vault, storage interfaces.CredentialStorage) *CredentialStore {
	return &CredentialStore{vault: v, storage: storage}
}

// Save encrypts the credential and persists it keyed by source, replacing
// any previous credential for that source.
func (s *CredentialStore) Save(ctx context.Context, cred *models.Credential) error {
	if cred == nil || cred.Source == "" {
		return fmt.Errorf("credential requires a source")
	}
	plaintext, err := json.Marshal(cred)
	if err != nil {
		return fmt.Errorf("encode credential: %w", err)
	}
	ciphertext, err := s.vault.Encrypt(plaintext)
	if err != nil {
		return err
	}
	return s.storage.StoreCredential(ctx, &models.StoredCredential{
		Source:     cred.Source,
		Ciphertext: ciphertext,
		UpdatedAt:  time.Now().UTC().Unix(),
	})
}

// Load decrypts and returns the credential for a source. A missing
// credential is models.ErrNoCredential; a credential that fails to decrypt
// (wrong key, tampered row) is models.ErrCrypto.
func (s *CredentialStore) Load(ctx context.Context, source string) (*models.Credential, error) {
	stored, err := s.storage.GetCredential(ctx, source)
	if err != nil {
		return nil, fmt.Errorf("load credential for %s: %w", source, err)
	}
	if stored == nil {
		return nil, fmt.Errorf("%w: %s", models.ErrNoCredential, source)
	}
	plaintext, err := s.vault.Decrypt(stored.Ciphertext)
	if err != nil {
		return nil, fmt.Errorf("credential for %s: %w", source, err)
	}
	var cred models.Credential
	if err := json.Unmarshal(plaintext, &cred); err != nil {
		return nil, fmt.Errorf("%w: decode credential for %s", models.ErrCrypto, source)
	}
	return &cred, nil
}

// Delete removes the stored credential for a source.
func (s *CredentialStore) Delete(ctx context.Context, source string) error {
	return s.storage.DeleteCredential(ctx, source)
}

package interfaces

import (
	"context"

	"github.com/ternarybob/venator/internal/models"
)

// CredentialStorage persists encrypted source credentials. Implementations
// never see plaintext; callers encrypt through the vault before storing.
type CredentialStorage interface {
	// GetCredential returns the stored ciphertext for a source, or nil when
	// no credential exists (not an error).
	GetCredential(ctx context.Context, source string) (*models.StoredCredential, error)
	StoreCredential(ctx context.Context, cred *models.StoredCredential) error
	DeleteCredential(ctx context.Context, source string) error
}

// TokenStorage persists OAuth token pairs keyed by provider.
type TokenStorage interface {
	// GetTokenPair returns nil (not an error) when no pair is stored.
	GetTokenPair(ctx context.Context, provider string) (*models.TokenPair, error)
	SaveTokenPair(ctx context.Context, pair *models.TokenPair) error
}

// RecordStorage persists normalized records keyed by external id.
type RecordStorage interface {
	// UpsertRecord is idempotent: storing the same external id twice keeps a
	// single record.
	UpsertRecord(ctx context.Context, record *models.Record) error
	GetRecord(ctx context.Context, externalID string) (*models.Record, error)
	// ListRecentRecords returns up to limit records of the given kind ordered
	// most-recently-seen first, excluding the given ids.
	ListRecentRecords(ctx context.Context, kind models.RecordKind, excludingIDs []string, limit int) ([]*models.Record, error)
	// PruneSynthetic removes placeholder records older than the cutoff and
	// returns the number deleted.
	PruneSynthetic(ctx context.Context, olderThanUnix int64) (int, error)
}

// StorageManager aggregates the storage backends behind one lifecycle.
type StorageManager interface {
	Credentials() CredentialStorage
	Tokens() TokenStorage
	Records() RecordStorage
	Close() error
}

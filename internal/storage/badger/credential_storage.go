package badger

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/ternarybob/arbor"
	"github.com/timshannon/badgerhold/v4"

	"github.com/ternarybob/venator/internal/interfaces"
	"github.com/ternarybob/venator/internal/models"
)

// CredentialStorage implements the CredentialStorage interface for Badger.
// Rows hold ciphertext only; encryption happens above this layer.
type CredentialStorage struct {
	db     *BadgerDB
	logger arbor.ILogger
}

// NewCredentialStorage creates a new CredentialStorage instance
func NewCredentialStorage(db *BadgerDB, logger arbor.ILogger) interfaces.CredentialStorage {
	return &CredentialStorage{
		db:     db,
		logger: logger,
	}
}

func (s *CredentialStorage) GetCredential(ctx context.Context, source string) (*models.StoredCredential, error) {
	var cred models.StoredCredential
	if err := s.db.Store().Get(source, &cred); err != nil {
		if errors.Is(err, badgerhold.ErrNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get credential: %w", err)
	}
	return &cred, nil
}

func (s *CredentialStorage) StoreCredential(ctx context.Context, cred *models.StoredCredential) error {
	if cred.Source == "" {
		return fmt.Errorf("credential source is required")
	}
	if cred.UpdatedAt == 0 {
		cred.UpdatedAt = time.Now().UTC().Unix()
	}

	if err := s.db.Store().Upsert(cred.Source, cred); err != nil {
		return fmt.Errorf("failed to store credential: %w", err)
	}
	return nil
}

func (s *CredentialStorage) DeleteCredential(ctx context.Context, source string) error {
	if err := s.db.Store().Delete(source, &models.StoredCredential{}); err != nil {
		if errors.Is(err, badgerhold.ErrNotFound) {
			return nil // Already deleted
		}
		return fmt.Errorf("failed to delete credential: %w", err)
	}
	return nil
}

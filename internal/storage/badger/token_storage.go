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

// TokenStorage implements the TokenStorage interface for Badger. Token
// pairs arrive already encrypted by the vault.
type TokenStorage struct {
	db     *BadgerDB
	logger arbor.ILogger
}

// NewTokenStorage creates a new TokenStorage instance
func NewTokenStorage(db *BadgerDB, logger arbor.ILogger) interfaces.TokenStorage {
	return &TokenStorage{
		db:     db,
		logger: logger,
	}
}

func (s *TokenStorage) GetTokenPair(ctx context.Context, provider string) (*models.TokenPair, error) {
	var pair models.TokenPair
	if err := s.db.Store().Get(provider, &pair); err != nil {
		if errors.Is(err, badgerhold.ErrNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get token pair: %w", err)
	}
	return &pair, nil
}

func (s *TokenStorage) SaveTokenPair(ctx context.Context, pair *models.TokenPair) error {
	if pair.Provider == "" {
		return fmt.Errorf("token pair provider is required")
	}
	pair.UpdatedAt = time.Now().UTC()

	if err := s.db.Store().Upsert(pair.Provider, pair); err != nil {
		return fmt.Errorf("failed to save token pair: %w", err)
	}
	return nil
}

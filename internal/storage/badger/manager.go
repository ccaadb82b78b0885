package badger

import (
	"github.com/ternarybob/arbor"

	"github.com/ternarybob/venator/internal/common"
	"github.com/ternarybob/venator/internal/interfaces"
)

// Manager implements the StorageManager interface for Badger
type Manager struct {
	db          *BadgerDB
	credentials interfaces.CredentialStorage
	tokens      interfaces.TokenStorage
	records     interfaces.RecordStorage
	logger      arbor.ILogger
}

// NewManager creates a new Badger storage manager
func NewManager(logger arbor.ILogger, config *common.StorageConfig) (interfaces.StorageManager, error) {
	db, err := NewBadgerDB(logger, config)
	if err != nil {
		return nil, err
	}

	manager := &Manager{
		db:          db,
		credentials: NewCredentialStorage(db, logger),
		tokens:      NewTokenStorage(db, logger),
		records:     NewRecordStorage(db, logger),
		logger:      logger,
	}

	logger.Info().Msg("Badger storage manager initialized")

	return manager, nil
}

// Credentials returns the credential storage interface
func (m *Manager) Credentials() interfaces.CredentialStorage {
	return m.credentials
}

// Tokens returns the token storage interface
func (m *Manager) Tokens() interfaces.TokenStorage {
	return m.tokens
}

// Records returns the record storage interface
func (m *Manager) Records() interfaces.RecordStorage {
	return m.records
}

// Close closes the database connection
func (m *Manager) Close() error {
	if m.db != nil {
		return m.db.Close()
	}
	return nil
}

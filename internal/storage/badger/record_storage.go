package badger

import (
	"context"
	"errors"
	"fmt"

	"github.com/ternarybob/arbor"
	"github.com/timshannon/badgerhold/v4"

	"github.com/ternarybob/venator/internal/interfaces"
	"github.com/ternarybob/venator/internal/models"
)

// RecordStorage implements the RecordStorage interface for Badger
type RecordStorage struct {
	db     *BadgerDB
	logger arbor.ILogger
}

// NewRecordStorage creates a new RecordStorage instance
func NewRecordStorage(db *BadgerDB, logger arbor.ILogger) interfaces.RecordStorage {
	return &RecordStorage{
		db:     db,
		logger: logger,
	}
}

func (s *RecordStorage) UpsertRecord(ctx context.Context, record *models.Record) error {
	if record.ExternalID == "" {
		return fmt.Errorf("record external id is required")
	}

	if err := s.db.Store().Upsert(record.ExternalID, record); err != nil {
		return fmt.Errorf("failed to upsert record: %w", err)
	}
	return nil
}

func (s *RecordStorage) GetRecord(ctx context.Context, externalID string) (*models.Record, error) {
	var record models.Record
	if err := s.db.Store().Get(externalID, &record); err != nil {
		if errors.Is(err, badgerhold.ErrNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get record: %w", err)
	}
	return &record, nil
}

func (s *RecordStorage) ListRecentRecords(ctx context.Context, kind models.RecordKind, excludingIDs []string, limit int) ([]*models.Record, error) {
	if limit <= 0 {
		return nil, nil
	}

	var records []models.Record
	query := badgerhold.Where("Kind").Eq(kind).SortBy("ScrapedAt").Reverse()
	if err := s.db.Store().Find(&records, query); err != nil {
		return nil, fmt.Errorf("failed to list records: %w", err)
	}

	excluded := make(map[string]struct{}, len(excludingIDs))
	for _, id := range excludingIDs {
		excluded[id] = struct{}{}
	}

	result := make([]*models.Record, 0, limit)
	for i := range records {
		if _, skip := excluded[records[i].ExternalID]; skip {
			continue
		}
		result = append(result, &records[i])
		if len(result) == limit {
			break
		}
	}
	return result, nil
}

func (s *RecordStorage) PruneSynthetic(ctx context.Context, olderThanUnix int64) (int, error) {
	var records []models.Record
	if err := s.db.Store().Find(&records, nil); err != nil {
		return 0, fmt.Errorf("failed to scan records: %w", err)
	}

	deleted := 0
	for i := range records {
		r := &records[i]
		if !r.IsSynthetic() || r.ScrapedAt.Unix() >= olderThanUnix {
			continue
		}
		if err := s.db.Store().Delete(r.ExternalID, &models.Record{}); err != nil {
			s.logger.Warn().Err(err).Str("external_id", r.ExternalID).Msg("Failed to delete stale placeholder record")
			continue
		}
		deleted++
	}
	if deleted > 0 {
		s.logger.Info().Int("deleted", deleted).Msg("Pruned stale placeholder records")
	}
	return deleted, nil
}

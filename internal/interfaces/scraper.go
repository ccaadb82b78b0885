package interfaces

import (
	"context"

	"github.com/ternarybob/venator/internal/models"
)

// Scraper is one external record source. Search never returns an empty,
// non-error result when the caller expects candidates: if the whole pipeline
// yields zero usable records it substitutes clearly tagged synthetic ones.
// Only driver provisioning failures surface as errors.
type Scraper interface {
	Name() string
	Search(ctx context.Context, req models.SearchRequest) ([]models.Record, error)
}

// PeopleSearcher is implemented by sources that can also search people.
type PeopleSearcher interface {
	SearchPeople(ctx context.Context, req models.SearchRequest) ([]models.Record, error)
}

// AcquisitionService merges, deduplicates and caps results across sources.
type AcquisitionService interface {
	Acquire(ctx context.Context, req models.AcquireRequest) ([]models.Record, error)
}

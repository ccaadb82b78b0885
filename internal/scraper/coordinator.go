package scraper

import (
	"context"
	"fmt"
	"sync"

	"github.com/ternarybob/arbor"
	"golang.org/x/sync/errgroup"

	"github.com/ternarybob/venator/internal/common"
	"github.com/ternarybob/venator/internal/interfaces"
	"github.com/ternarybob/venator/internal/models"
)

// DefaultQuota caps the merged result when the caller does not say how many
// records it wants.
const DefaultQuota = 10

// Coordinator fans an acquisition request out across the registered sources,
// persists everything the sources return, then merges: dedupe on external id
// in request source order, truncate to quota, backfill from the record store
// when the live pass comes up short. One source failing never poisons the
// others; its slot simply contributes nothing.
type Coordinator struct {
	scrapers map[string]interfaces.Scraper
	order    []string
	records  interfaces.RecordStorage
	logger   arbor.ILogger
}

// NewCoordinator registers the scrapers in the order given; that order is
// the merge precedence when a request does not name its sources.
func NewCoordinator(records interfaces.RecordStorage, logger arbor.ILogger, scrapers ...interfaces.Scraper) *Coordinator {
	if logger == nil {
		logger = common.GetLogger()
	}
	c := &Coordinator{
		scrapers: make(map[string]interfaces.Scraper, len(scrapers)),
		records:  records,
		logger:   logger,
	}
	for _, s := range scrapers {
		if _, dup := c.scrapers[s.Name()]; dup {
			continue
		}
		c.scrapers[s.Name()] = s
		c.order = append(c.order, s.Name())
	}
	return c
}

// Sources returns the registered source names in merge order.
func (c *Coordinator) Sources() []string {
	out := make([]string, len(c.order))
	copy(out, c.order)
	return out
}

// Acquire implements interfaces.AcquisitionService.
func (c *Coordinator) Acquire(ctx context.Context, req models.AcquireRequest) ([]models.Record, error) {
	if req.Quota <= 0 {
		req.Quota = DefaultQuota
	}
	sources := req.Sources
	if len(sources) == 0 {
		sources = c.order
	}

	runID := common.NewRunID()
	c.logger.Info().
		Str("run", runID).
		Str("kind", string(req.Kind)).
		Str("query", req.Query).
		Strs("sources", sources).
		Int("quota", req.Quota).
		Msg("Acquisition started")

	results := c.fanOut(ctx, req, sources)
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	merged := c.merge(ctx, results, sources, req.Quota)
	merged = c.backfill(ctx, req, merged)

	c.logger.Info().
		Str("run", runID).
		Str("kind", string(req.Kind)).
		Int("count", len(merged)).
		Msg("Acquisition complete")
	return merged, nil
}

// fanOut runs every requested source concurrently. Source errors are logged
// and the source contributes nothing; they never abort the group.
func (c *Coordinator) fanOut(ctx context.Context, req models.AcquireRequest, sources []string) map[string][]models.Record {
	searchReq := models.SearchRequest{
		Kind:     req.Kind,
		Query:    req.Query,
		Filters:  req.Filters,
		Headless: req.Headless,
		Limit:    req.Quota,
	}

	var mu sync.Mutex
	results := make(map[string][]models.Record, len(sources))

	g, ctx := errgroup.WithContext(ctx)
	for _, name := range sources {
		scraper, ok := c.scrapers[name]
		if !ok {
			c.logger.Warn().Str("source", name).Msg("Unknown source requested, skipping")
			continue
		}
		g.Go(func() error {
			records, err := c.searchOne(ctx, scraper, searchReq)
			if err != nil {
				c.logger.Warn().Err(err).Str("source", name).Msg("Source failed, continuing without it")
				return nil
			}
			mu.Lock()
			results[name] = records
			mu.Unlock()
			return nil
		})
	}
	_ = g.Wait()
	return results
}

func (c *Coordinator) searchOne(ctx context.Context, scraper interfaces.Scraper, req models.SearchRequest) ([]models.Record, error) {
	if req.Kind == models.RecordKindPerson {
		ps, ok := scraper.(interfaces.PeopleSearcher)
		if !ok {
			return nil, fmt.Errorf("source %s cannot search people", scraper.Name())
		}
		return ps.SearchPeople(ctx, req)
	}
	return scraper.Search(ctx, req)
}

// merge persists and deduplicates in request source order, first seen wins,
// then truncates to quota.
func (c *Coordinator) merge(ctx context.Context, results map[string][]models.Record, sources []string, quota int) []models.Record {
	seen := make(map[string]struct{})
	merged := make([]models.Record, 0, quota)

	for _, name := range sources {
		for _, record := range results[name] {
			if record.ExternalID == "" {
				continue
			}
			if err := c.records.UpsertRecord(ctx, &record); err != nil {
				c.logger.Warn().Err(err).Str("external_id", record.ExternalID).Msg("Record persist failed")
			}
			if _, dup := seen[record.ExternalID]; dup {
				continue
			}
			seen[record.ExternalID] = struct{}{}
			if len(merged) < quota {
				merged = append(merged, record)
			}
		}
	}
	return merged
}

// backfill tops the result up from previously stored records when the live
// pass returned fewer than quota.
func (c *Coordinator) backfill(ctx context.Context, req models.AcquireRequest, merged []models.Record) []models.Record {
	missing := req.Quota - len(merged)
	if missing <= 0 {
		return merged
	}

	excluding := make([]string, 0, len(merged))
	for _, r := range merged {
		excluding = append(excluding, r.ExternalID)
	}
	stored, err := c.records.ListRecentRecords(ctx, req.Kind, excluding, missing)
	if err != nil {
		c.logger.Warn().Err(err).Msg("Record store backfill failed")
		return merged
	}
	for _, r := range stored {
		merged = append(merged, *r)
	}
	if len(stored) > 0 {
		c.logger.Info().Int("count", len(stored)).Msg("Backfilled from record store")
	}
	return merged
}

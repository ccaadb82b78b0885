package scraper

import (
	"context"
	"errors"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/ternarybob/arbor"
	"golang.org/x/time/rate"

	"github.com/ternarybob/venator/internal/common"
	"github.com/ternarybob/venator/internal/interfaces"
	"github.com/ternarybob/venator/internal/models"
	"github.com/ternarybob/venator/internal/vault"
)

// Per-source processing caps. A search page can surface hundreds of cards;
// everything past the cap is noise for the caller and load for the site.
const (
	maxJobCards    = 15
	maxPersonCards = 10
)

// minCardMatches is the FindAll threshold: a card locator matching this many
// elements or fewer is treated as having matched page chrome, not results.
const minCardMatches = 2

// SourceDeps bundles what every browser-driven source needs.
type SourceDeps struct {
	Opener      interfaces.PageOpener
	Credentials *vault.CredentialStore
	Limiter     *rate.Limiter
	Logger      arbor.ILogger

	// Optional login tuning; zero values keep each source's defaults.
	TypingPace         time.Duration
	SecondFactorBudget time.Duration
}

// tuneLogin applies the configured overrides to a source's login defaults.
func (d *SourceDeps) tuneLogin(cfg *LoginConfig) {
	if d.TypingPace > 0 {
		cfg.TypingPace = d.TypingPace
	}
	if d.SecondFactorBudget > 0 && cfg.SecondFactorBudget > 0 {
		cfg.SecondFactorBudget = d.SecondFactorBudget
	}
}

func (d *SourceDeps) logger() arbor.ILogger {
	if d.Logger == nil {
		d.Logger = common.GetLogger()
	}
	return d.Logger
}

// pace blocks on the politeness limiter before the next page interaction.
// Context cancellation wins over the limiter.
func (d *SourceDeps) pace(ctx context.Context) error {
	if d.Limiter == nil {
		return nil
	}
	return d.Limiter.Wait(ctx)
}

// loadCredential fetches the decrypted credential for a source. Absence and
// decryption failures both come back as an error the caller downgrades to
// the synthetic path.
func (d *SourceDeps) loadCredential(ctx context.Context, source string) (*models.Credential, error) {
	if d.Credentials == nil {
		return nil, models.ErrNoCredential
	}
	return d.Credentials.Load(ctx, source)
}

// fallbackCount sizes a synthetic record set from the coordinator's hint.
func fallbackCount(req models.SearchRequest) int {
	if req.Limit > 3 {
		return req.Limit
	}
	return 3
}

// extractJobCards runs the job extractor over a card set, dropping malformed
// cards and stopping at the processing cap.
func extractJobCards(cards *goquery.Selection, extractor *JobExtractor, logger arbor.ILogger, source string) []models.Record {
	records := make([]models.Record, 0, maxJobCards)
	cards.EachWithBreak(func(i int, card *goquery.Selection) bool {
		if len(records) >= maxJobCards {
			return false
		}
		record, err := extractor.Extract(card)
		if err != nil {
			if !errors.Is(err, models.ErrMalformedRecord) {
				logger.Warn().Err(err).Str("source", source).Int("card", i).Msg("Card extraction failed")
			}
			return true
		}
		records = append(records, *record)
		return true
	})
	return records
}

// extractPersonCards mirrors extractJobCards for people results.
func extractPersonCards(cards *goquery.Selection, extractor *PersonExtractor, defaultOrganization string, logger arbor.ILogger, source string) []models.Record {
	records := make([]models.Record, 0, maxPersonCards)
	cards.EachWithBreak(func(i int, card *goquery.Selection) bool {
		if len(records) >= maxPersonCards {
			return false
		}
		record, err := extractor.Extract(card, defaultOrganization)
		if err != nil {
			if !errors.Is(err, models.ErrMalformedRecord) {
				logger.Warn().Err(err).Str("source", source).Int("card", i).Msg("Card extraction failed")
			}
			return true
		}
		records = append(records, *record)
		return true
	})
	return records
}

// stampRecords fills the scrape timestamp on freshly extracted records.
func stampRecords(records []models.Record) []models.Record {
	now := time.Now().UTC()
	for i := range records {
		if records[i].ScrapedAt.IsZero() {
			records[i].ScrapedAt = now
		}
	}
	return records
}

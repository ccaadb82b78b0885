package scraper

import (
	"fmt"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/ternarybob/arbor"

	"github.com/ternarybob/venator/internal/models"
)

// PersonExtractorConfig holds the selector chains for one source's people
// search result cards.
type PersonExtractorConfig struct {
	Source  string
	BaseURL string
	// ProfilePathMarker is the URL fragment preceding a profile slug,
	// e.g. "/in/".
	ProfilePathMarker string

	NameChain     Chain
	HeadlineChain Chain
	LocationChain Chain
}

// PersonExtractor assembles a normalized person record from one search
// result card. The headline is split on " at " into role and organization;
// a missing organization falls back to the search's company context. When
// no email is visible one is predicted from the common first.last@company
// pattern.
type PersonExtractor struct {
	cfg    PersonExtractorConfig
	logger arbor.ILogger
}

// NewPersonExtractor creates an extractor for one source's people cards.
func NewPersonExtractor(cfg PersonExtractorConfig, logger arbor.ILogger) *PersonExtractor {
	return &PersonExtractor{cfg: cfg, logger: logger}
}

// Extract parses one card. defaultOrganization is the company the search was
// scoped to and backfills a headline that carries no organization. A card
// with no resolvable name is rejected with models.ErrMalformedRecord.
func (e *PersonExtractor) Extract(card *goquery.Selection, defaultOrganization string) (*models.Record, error) {
	name, profileURL := e.extractName(card)
	if name == "" {
		return nil, fmt.Errorf("%w: no resolvable name in %s card", models.ErrMalformedRecord, e.cfg.Source)
	}

	role, organization := e.extractHeadline(card, defaultOrganization)
	location := e.extractLocation(card)

	if profileURL == "" {
		profileURL = e.cfg.BaseURL + e.cfg.ProfilePathMarker + slugify(name)
	}

	record := &models.Record{
		ExternalID:   e.externalID(name, organization, profileURL),
		Kind:         models.RecordKindPerson,
		Title:        name,
		Organization: organization,
		Location:     location,
		URL:          profileURL,
		Source:       e.cfg.Source,
		Description:  fmt.Sprintf("%s, %s at %s", name, role, organization),
		Email:        PredictEmail(name, organization),
		ScrapedAt:    time.Now().UTC(),
	}
	return record, nil
}

func (e *PersonExtractor) extractName(card *goquery.Selection) (name, profileURL string) {
	if sel := e.cfg.NameChain.Find(card); sel != nil {
		name = cleanText(sel.Text())
	}
	if name == "" {
		return "", ""
	}
	card.Find("a").EachWithBreak(func(_ int, link *goquery.Selection) bool {
		href, _ := link.Attr("href")
		if e.cfg.ProfilePathMarker != "" && strings.Contains(href, e.cfg.ProfilePathMarker) {
			profileURL = href
			return false
		}
		return true
	})
	return name, profileURL
}

// extractHeadline splits "Strategy Consultant at Bain & Company" into role
// and organization.
func (e *PersonExtractor) extractHeadline(card *goquery.Selection, defaultOrganization string) (role, organization string) {
	role = "Professional"
	organization = defaultOrganization
	if organization == "" {
		organization = models.PlaceholderOrganization
	}

	sel := e.cfg.HeadlineChain.Find(card)
	if sel == nil {
		return role, organization
	}
	headline := cleanText(sel.Text())
	if headline == "" {
		return role, organization
	}

	if before, after, found := strings.Cut(headline, " at "); found {
		role = cleanText(before)
		if org := cleanText(after); usableOrganization(org) {
			organization = org
		}
	} else {
		role = headline
	}
	return role, organization
}

func (e *PersonExtractor) extractLocation(card *goquery.Selection) string {
	if sel := e.cfg.LocationChain.Find(card); sel != nil {
		if loc := cleanText(sel.Text()); loc != "" {
			return loc
		}
	}
	return models.PlaceholderLocation
}

// externalID prefers the profile slug as the natural identifier; without one
// it falls back to the deterministic name+organization hash.
func (e *PersonExtractor) externalID(name, organization, profileURL string) string {
	if e.cfg.ProfilePathMarker != "" {
		if _, after, found := strings.Cut(profileURL, e.cfg.ProfilePathMarker); found {
			slug := strings.SplitN(after, "?", 2)[0]
			slug = strings.Trim(slug, "/")
			if slug != "" {
				return e.cfg.Source + "_" + slug
			}
		}
	}
	return models.DeriveExternalID(e.cfg.Source, name, organization)
}

// PredictEmail guesses a work address from the most common corporate
// pattern: first.last@company.com. It returns the explicit placeholder when
// either part is unusable; predictions are best-effort hints, not verified
// addresses.
func PredictEmail(name, organization string) string {
	nameParts := strings.Fields(strings.ToLower(name))
	if len(nameParts) < 2 || organization == "" || organization == models.PlaceholderOrganization {
		return models.PlaceholderEmail
	}
	first, last := nameParts[0], nameParts[len(nameParts)-1]

	domain := strings.ToLower(organization)
	domain = strings.ReplaceAll(domain, "&", "and")
	domain = strings.Map(func(r rune) rune {
		if r >= 'a' && r <= 'z' || r >= '0' && r <= '9' {
			return r
		}
		return -1
	}, domain)
	if domain == "" {
		return models.PlaceholderEmail
	}
	return fmt.Sprintf("%s.%s@%s.com", first, last, domain)
}

func slugify(name string) string {
	return strings.ReplaceAll(strings.ToLower(cleanText(name)), " ", "-")
}

package scraper

import (
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/ternarybob/arbor"

	"github.com/ternarybob/venator/internal/models"
)

// atOrganizationPattern recovers an organization from free card text shaped
// like "Senior Consultant at Bain & Company".
var atOrganizationPattern = regexp.MustCompile(`\bat\s+([A-Z][A-Za-z\s&,\.]{2,49})\b`)

// organizationSkipWords are fragments that disqualify a candidate string
// from being an organization name (timestamps, UI chrome, calls to action).
var organizationSkipWords = []string{
	"ago", "day", "week", "month", "easy apply", "promoted", "location",
	"salary", "apply", "view", "more", "see all", "show more",
}

// JobExtractorConfig holds the selector chains and URL conventions for one
// source's job cards.
type JobExtractorConfig struct {
	Source string
	// BaseURL is the fallback link when a card exposes no usable URL.
	BaseURL string
	// ListingPathMarker is the URL fragment preceding a listing's natural id,
	// e.g. "/jobs/view/". Empty when the source has no such convention.
	ListingPathMarker string
	// OrganizationPathMarker is the URL fragment preceding an organization
	// slug, e.g. "/company/".
	OrganizationPathMarker string
	// CardIDAttributes are element attributes that carry a natural listing id.
	CardIDAttributes []string

	TitleChain        Chain
	OrganizationChain Chain
	LocationChain     Chain
}

// JobExtractor assembles a normalized job record from one raw card element.
// Strategies run in order: direct field chains, pattern-based text recovery,
// then inference from structural URL fragments. Only an unresolvable title
// rejects the card; other fields degrade to placeholders.
type JobExtractor struct {
	cfg    JobExtractorConfig
	logger arbor.ILogger
}

// NewJobExtractor creates an extractor for one source's card layout.
func NewJobExtractor(cfg JobExtractorConfig, logger arbor.ILogger) *JobExtractor {
	return &JobExtractor{cfg: cfg, logger: logger}
}

// Extract parses one card. It returns models.ErrMalformedRecord (wrapped)
// when no strategy resolves a title; such cards are dropped, not retried.
func (e *JobExtractor) Extract(card *goquery.Selection) (*models.Record, error) {
	title, jobURL := e.extractTitle(card)
	if title == "" {
		return nil, fmt.Errorf("%w: no resolvable title in %s card", models.ErrMalformedRecord, e.cfg.Source)
	}

	organization := e.extractOrganization(card, title)
	location := e.extractLocation(card)
	externalID, jobURL := e.resolveIdentity(card, title, organization, jobURL)

	record := &models.Record{
		ExternalID:   externalID,
		Kind:         models.RecordKindJob,
		Title:        title,
		Organization: organization,
		Location:     location,
		URL:          jobURL,
		Source:       e.cfg.Source,
		Description:  fmt.Sprintf("Position: %s at %s", title, organization),
		ScrapedAt:    time.Now().UTC(),
	}
	return record, nil
}

// extractTitle resolves the primary field: the chain first, then any link
// whose text looks like a title rather than UI chrome.
func (e *JobExtractor) extractTitle(card *goquery.Selection) (title, jobURL string) {
	if sel := e.cfg.TitleChain.Find(card); sel != nil {
		title = cleanText(sel.Text())
		if href, ok := sel.Attr("href"); ok {
			jobURL = href
		} else if href, ok := sel.Find("a").First().Attr("href"); ok {
			jobURL = href
		}
	}
	if title != "" && len(title) > 3 {
		return title, jobURL
	}

	title, jobURL = "", ""
	card.Find("a").EachWithBreak(func(_ int, link *goquery.Selection) bool {
		text := cleanText(link.Text())
		if len(text) <= 5 {
			return true
		}
		lower := strings.ToLower(text)
		if strings.Contains(lower, "see more") || strings.Contains(lower, "company") || strings.Contains(lower, "location") {
			return true
		}
		title = text
		jobURL, _ = link.Attr("href")
		return false
	})
	return title, jobURL
}

func (e *JobExtractor) extractOrganization(card *goquery.Selection, title string) string {
	if sel := e.cfg.OrganizationChain.Find(card); sel != nil {
		if org := cleanText(sel.Text()); usableOrganization(org) {
			return org
		}
	}

	cardText := card.Text()

	// "at <Capitalized Phrase>" in the card's full text.
	if match := atOrganizationPattern.FindStringSubmatch(cardText); match != nil {
		if org := cleanText(match[1]); usableOrganization(org) {
			return org
		}
	}

	// The line immediately following the title line is usually the employer.
	lines := nonEmptyLines(cardText)
	for i, line := range lines {
		if strings.Contains(strings.ToLower(line), strings.ToLower(title)) && i+1 < len(lines) {
			if org := cleanText(lines[i+1]); usableOrganization(org) && len(org) < 60 {
				return org
			}
		}
	}

	// Organization slug embedded in a card link, humanized.
	if e.cfg.OrganizationPathMarker != "" {
		if org := organizationFromLinks(card, e.cfg.OrganizationPathMarker); org != "" {
			return org
		}
	}

	return models.PlaceholderOrganization
}

func (e *JobExtractor) extractLocation(card *goquery.Selection) string {
	if sel := e.cfg.LocationChain.Find(card); sel != nil {
		if loc := cleanText(sel.Text()); loc != "" {
			return loc
		}
	}
	return models.PlaceholderLocation
}

// resolveIdentity derives the record's external id, preferring the source's
// natural listing id (URL path or card attribute) and falling back to a
// deterministic hash of title and organization.
func (e *JobExtractor) resolveIdentity(card *goquery.Selection, title, organization, jobURL string) (externalID, finalURL string) {
	if e.cfg.ListingPathMarker != "" && jobURL != "" {
		if _, after, found := strings.Cut(jobURL, e.cfg.ListingPathMarker); found {
			id := strings.SplitN(after, "?", 2)[0]
			id = strings.SplitN(id, "/", 2)[0]
			if id != "" {
				return e.cfg.Source + "_" + id, jobURL
			}
		}
	}

	for _, attr := range e.cfg.CardIDAttributes {
		if id, ok := card.Attr(attr); ok && id != "" {
			if jobURL == "" && e.cfg.ListingPathMarker != "" {
				jobURL = e.cfg.BaseURL + e.cfg.ListingPathMarker + id
			}
			return e.cfg.Source + "_" + id, orDefault(jobURL, e.cfg.BaseURL)
		}
	}

	return models.DeriveExternalID(e.cfg.Source, title, organization), orDefault(jobURL, e.cfg.BaseURL)
}

func usableOrganization(org string) bool {
	if len(org) < 2 || len(org) > 100 {
		return false
	}
	lower := strings.ToLower(org)
	for _, skip := range organizationSkipWords {
		if strings.Contains(lower, skip) {
			return false
		}
	}
	return true
}

// organizationFromLinks pulls an organization slug out of hrefs like
// "/company/bain-and-company" and humanizes it.
func organizationFromLinks(card *goquery.Selection, marker string) string {
	var org string
	card.Find("a").EachWithBreak(func(_ int, link *goquery.Selection) bool {
		href, _ := link.Attr("href")
		_, after, found := strings.Cut(href, marker)
		if !found {
			return true
		}
		slug := strings.SplitN(after, "/", 2)[0]
		slug = strings.SplitN(slug, "?", 2)[0]
		if len(slug) < 2 {
			return true
		}
		org = humanizeSlug(slug)
		return false
	})
	return org
}

// humanizeSlug turns "bain-and-company" into "Bain And Company".
func humanizeSlug(slug string) string {
	words := strings.FieldsFunc(slug, func(r rune) bool { return r == '-' || r == '_' })
	for i, w := range words {
		if w == "" {
			continue
		}
		words[i] = strings.ToUpper(w[:1]) + w[1:]
	}
	return strings.Join(words, " ")
}

func cleanText(s string) string {
	return strings.TrimSpace(strings.Join(strings.Fields(s), " "))
}

func nonEmptyLines(s string) []string {
	var lines []string
	for _, line := range strings.Split(s, "\n") {
		if line = strings.TrimSpace(line); line != "" {
			lines = append(lines, line)
		}
	}
	return lines
}

func orDefault(value, fallback string) string {
	if value == "" {
		return fallback
	}
	return value
}

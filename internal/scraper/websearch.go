package scraper

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"

	"github.com/ternarybob/venator/internal/models"
)

const (
	webSearchSource   = "websearch"
	webSearchEndpoint = "https://google.serper.dev/search"
)

// webSearchResponse is the search API's response, covering both the
// structured jobs block and the organic results it falls back to.
type webSearchResponse struct {
	Jobs []struct {
		JobID    string `json:"job_id"`
		Title    string `json:"title"`
		Company  string `json:"company"`
		Location string `json:"location"`
		Snippet  string `json:"snippet"`
		Link     string `json:"link"`
	} `json:"jobs"`
	Organic []struct {
		Title   string `json:"title"`
		Snippet string `json:"snippet"`
		Link    string `json:"link"`
	} `json:"organic"`
}

// Organic result titles that are aggregator landing pages, not listings.
var webSearchSkipMarkers = []string{"jobs in", "careers at", "job search", "job listings", "employment"}

// Aggregator suffixes stripped from organization names parsed out of organic
// result titles.
var webSearchBoardSuffixes = []string{"LinkedIn", "Glassdoor", "ZipRecruiter", "Jobs", "Careers"}

// WebSearchScraper queries a web-search API for job listings. It needs an
// API key, not a browser, so driver provisioning failures cannot occur; the
// only hard failure is a missing or undecryptable key, and even that
// degrades to synthetic records like any other dead pipeline.
type WebSearchScraper struct {
	deps     SourceDeps
	client   *resty.Client
	endpoint string
}

// NewWebSearchScraper builds the API-backed scraper.
func NewWebSearchScraper(deps SourceDeps) *WebSearchScraper {
	return &WebSearchScraper{
		deps: deps,
		client: resty.New().
			SetTimeout(30 * time.Second).
			SetHeader("Content-Type", "application/json"),
		endpoint: webSearchEndpoint,
	}
}

// Name implements interfaces.Scraper.
func (s *WebSearchScraper) Name() string { return webSearchSource }

// Search queries the structured jobs endpoint first and reparses organic
// results when it comes back empty.
func (s *WebSearchScraper) Search(ctx context.Context, req models.SearchRequest) ([]models.Record, error) {
	query := req.Query
	if query == "" {
		query = "consultant"
	}
	location := req.Filters.Location
	if location == "" {
		location = "New York, NY"
	}

	logger := s.deps.logger()
	fallback := func() []models.Record {
		return SyntheticJobs(webSearchSource, query, location, fallbackCount(req))
	}

	cred, err := s.deps.loadCredential(ctx, webSearchSource)
	if err != nil || cred.APIKey == "" {
		logger.Warn().Err(err).Str("source", webSearchSource).Msg("No search API key, substituting fallback jobs")
		return fallback(), nil
	}

	records := s.searchJobs(ctx, cred.APIKey, query, location)
	if len(records) == 0 {
		records = s.searchOrganic(ctx, cred.APIKey, query, location)
	}
	if len(records) == 0 {
		logger.Warn().Str("source", webSearchSource).Str("query", query).Msg("Search API returned nothing usable, substituting fallback jobs")
		return fallback(), nil
	}
	if len(records) > maxJobCards {
		records = records[:maxJobCards]
	}

	logger.Info().Str("source", webSearchSource).Int("count", len(records)).Msg("Job search complete")
	return stampRecords(records), nil
}

func (s *WebSearchScraper) searchJobs(ctx context.Context, apiKey, query, location string) []models.Record {
	result, ok := s.post(ctx, apiKey, map[string]interface{}{
		"q":        query + " " + location,
		"location": location,
		"gl":       "us",
		"num":      30,
	})
	if !ok {
		return nil
	}

	records := make([]models.Record, 0, len(result.Jobs))
	for _, job := range result.Jobs {
		title := cleanText(job.Title)
		if len(title) <= 5 || strings.Contains(strings.ToLower(title), "jobs") {
			continue
		}
		externalID := models.DeriveExternalID(webSearchSource, title, job.Company)
		if job.JobID != "" {
			externalID = webSearchSource + "_" + job.JobID
		}
		records = append(records, models.Record{
			ExternalID:   externalID,
			Kind:         models.RecordKindJob,
			Title:        title,
			Organization: orDefault(cleanText(job.Company), models.PlaceholderOrganization),
			Location:     orDefault(cleanText(job.Location), location),
			URL:          job.Link,
			Source:       webSearchSource,
			Description:  job.Snippet,
		})
	}
	return records
}

// searchOrganic reparses plain search results into listings. Title patterns
// are tried in order: "Role - Company", "Role at Company", "Role | Company".
func (s *WebSearchScraper) searchOrganic(ctx context.Context, apiKey, query, location string) []models.Record {
	result, ok := s.post(ctx, apiKey, map[string]interface{}{
		"q":   fmt.Sprintf(`%s jobs %s -intitle:"jobs" -intitle:"careers"`, query, location),
		"gl":  "us",
		"num": 30,
	})
	if !ok {
		return nil
	}

	records := make([]models.Record, 0, len(result.Organic))
	for _, hit := range result.Organic {
		title := cleanText(hit.Title)
		if title == "" || skipOrganicTitle(title) || strings.Contains(strings.ToLower(hit.Link), "indeed") {
			continue
		}

		role, organization := splitOrganicTitle(title)
		if looksLikeAggregatorPage(role) {
			continue
		}

		records = append(records, models.Record{
			ExternalID:   models.DeriveExternalID(webSearchSource, role, hit.Link),
			Kind:         models.RecordKindJob,
			Title:        role,
			Organization: orDefault(organization, models.PlaceholderOrganization),
			Location:     location,
			URL:          hit.Link,
			Source:       webSearchSource,
			Description:  hit.Snippet,
		})
	}
	return records
}

func (s *WebSearchScraper) post(ctx context.Context, apiKey string, body map[string]interface{}) (*webSearchResponse, bool) {
	var result webSearchResponse
	resp, err := s.client.R().
		SetContext(ctx).
		SetHeader("X-API-KEY", apiKey).
		SetBody(body).
		SetResult(&result).
		Post(s.endpoint)
	if err != nil {
		s.deps.logger().Warn().Err(err).Str("source", webSearchSource).Msg("Search API request failed")
		return nil, false
	}
	if resp.IsError() {
		s.deps.logger().Warn().
			Str("source", webSearchSource).
			Int("status", resp.StatusCode()).
			Msg("Search API request rejected")
		return nil, false
	}
	return &result, true
}

func splitOrganicTitle(title string) (role, organization string) {
	for _, sep := range []string{" - ", " at ", " | "} {
		if before, after, found := strings.Cut(title, sep); found {
			role = strings.TrimSpace(before)
			organization = strings.TrimSpace(after)
			if sep == " - " {
				for _, suffix := range webSearchBoardSuffixes {
					organization = strings.TrimSpace(strings.TrimSuffix(organization, suffix))
				}
			}
			organization = strings.TrimRight(organization, ".,;:")
			if len(organization) <= 2 {
				organization = ""
			}
			return role, organization
		}
	}
	return title, ""
}

func skipOrganicTitle(title string) bool {
	lower := strings.ToLower(title)
	for _, marker := range webSearchSkipMarkers {
		if strings.Contains(lower, marker) {
			return true
		}
	}
	return false
}

// looksLikeAggregatorPage flags short generic roles like "Consulting Jobs".
func looksLikeAggregatorPage(role string) bool {
	lower := strings.ToLower(role)
	for _, word := range []string{"jobs", "careers", "opportunities", "openings"} {
		if strings.Contains(lower, word) && len(strings.Fields(role)) < 4 {
			return true
		}
	}
	return false
}

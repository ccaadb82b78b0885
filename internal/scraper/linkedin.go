package scraper

import (
	"context"
	"fmt"
	"net/url"
	"time"

	"github.com/PuerkitoBio/goquery"

	"github.com/ternarybob/venator/internal/interfaces"
	"github.com/ternarybob/venator/internal/models"
)

const (
	linkedInSource  = "linkedin"
	linkedInBaseURL = "https://www.linkedin.com"
)

// LinkedInScraper drives the professional-network source for both job and
// people searches. Jobs need keyword plus location; people searches are
// scoped to a company and optionally a school.
type LinkedInScraper struct {
	deps  SourceDeps
	login LoginConfig

	jobExtractor    *JobExtractor
	personExtractor *PersonExtractor
}

// NewLinkedInScraper builds the scraper with its selector fallback chains.
// The chains mirror the site's historical markup generations, newest first.
func NewLinkedInScraper(deps SourceDeps) *LinkedInScraper {
	logger := deps.logger()
	s := &LinkedInScraper{
		deps: deps,
		login: LoginConfig{
			URL: linkedInBaseURL + "/login",
			UsernameChain: NewChain("username field",
				"#username",
				`[name="session_key"]`,
				`[data-test-id="username"]`,
				`input[type="text"]`,
			),
			PasswordChain: NewChain("password field",
				"#password",
				`[name="session_password"]`,
				`[data-test-id="password"]`,
				`input[type="password"]`,
			),
			TypingPace:          100 * time.Millisecond,
			SuccessURLFragments: []string{"/feed", "linkedin.com/in/", "mynetwork"},
			SuccessChain:        NewChain("authenticated nav", `[data-test-id="nav-primary-feed"]`),
			LoginPathMarker:     "/login",
		},
		jobExtractor: NewJobExtractor(JobExtractorConfig{
			Source:                 linkedInSource,
			BaseURL:                linkedInBaseURL,
			ListingPathMarker:      "/jobs/view/",
			OrganizationPathMarker: "/company/",
			CardIDAttributes:       []string{"data-occludable-job-id", "data-job-id"},
			TitleChain: NewChain("job title",
				`a[data-control-name="job_search_job_title_click"]`,
				".job-search-card__title a",
				"h3 a",
				"h4 a",
				`[data-test-id="job-title"]`,
				".job-card-list__title",
				".base-search-card__title a",
			),
			OrganizationChain: NewChain("organization",
				`a[data-control-name="job_search_company_name_click"]`,
				".job-search-card__subtitle a",
				`[data-test-id="job-company"]`,
				".job-card-container__company-name",
				".base-search-card__subtitle a",
				".base-search-card__subtitle",
				".job-search-card__subtitle",
				".artdeco-entity-lockup__subtitle",
				".job-card-list__company-name",
			),
			LocationChain: NewChain("location",
				".job-search-card__location",
				`[data-test-id="job-location"]`,
				".job-card-container__metadata-item",
				".base-search-card__metadata .job-search-card__location",
			),
		}, logger),
		personExtractor: NewPersonExtractor(PersonExtractorConfig{
			Source:            linkedInSource,
			BaseURL:           linkedInBaseURL,
			ProfilePathMarker: "/in/",
			NameChain: NewChain("person name",
				`.entity-result__title-text a span[aria-hidden="true"]`,
				".entity-result__title-text",
				`.app-aware-link span[aria-hidden="true"]`,
				"span.entity-result__title-text",
			),
			HeadlineChain: NewChain("headline",
				".entity-result__primary-subtitle",
			),
			LocationChain: NewChain("person location",
				".entity-result__secondary-subtitle",
			),
		}, logger),
	}
	s.deps.tuneLogin(&s.login)
	return s
}

// Name implements interfaces.Scraper.
func (s *LinkedInScraper) Name() string { return linkedInSource }

// Search runs a job search. The full pipeline failing at any stage past
// driver provisioning degrades to synthetic records rather than an error.
func (s *LinkedInScraper) Search(ctx context.Context, req models.SearchRequest) ([]models.Record, error) {
	query := req.Query
	if query == "" {
		query = "consultant"
	}
	location := req.Filters.Location
	if location == "" {
		location = "New York, NY"
	}

	pg, err := s.deps.Opener.Open(ctx, req.Headless)
	if err != nil {
		return nil, err
	}
	defer pg.Close()

	logger := s.deps.logger()
	if err := s.authenticate(ctx, pg, req.Headless); err != nil {
		logger.Warn().Err(err).Str("source", linkedInSource).Msg("Login failed, substituting fallback jobs")
		return SyntheticJobs(linkedInSource, query, location, fallbackCount(req)), nil
	}

	searchURL := fmt.Sprintf("%s/jobs/search/?keywords=%s&location=%s",
		linkedInBaseURL, url.QueryEscape(query), url.QueryEscape(location))
	cards, err := s.collect(ctx, pg, searchURL, s.jobCardChain())
	if err != nil || cards == nil {
		logger.Warn().Err(err).Str("source", linkedInSource).Str("query", query).Msg("No job cards found, substituting fallback jobs")
		return SyntheticJobs(linkedInSource, query, location, fallbackCount(req)), nil
	}

	records := extractJobCards(cards, s.jobExtractor, logger, linkedInSource)
	if len(records) == 0 {
		logger.Warn().Str("source", linkedInSource).Str("query", query).Msg("No usable jobs extracted, substituting fallback jobs")
		return SyntheticJobs(linkedInSource, query, location, fallbackCount(req)), nil
	}

	logger.Info().Str("source", linkedInSource).Int("count", len(records)).Msg("Job search complete")
	return stampRecords(records), nil
}

// SearchPeople runs a people search scoped to the request's company filter.
func (s *LinkedInScraper) SearchPeople(ctx context.Context, req models.SearchRequest) ([]models.Record, error) {
	company := req.Filters.Company
	if company == "" {
		company = req.Query
	}

	pg, err := s.deps.Opener.Open(ctx, req.Headless)
	if err != nil {
		return nil, err
	}
	defer pg.Close()

	logger := s.deps.logger()
	if err := s.authenticate(ctx, pg, req.Headless); err != nil {
		logger.Warn().Err(err).Str("source", linkedInSource).Msg("Login failed, substituting fallback people")
		return SyntheticPeople(linkedInSource, company, fallbackCount(req)), nil
	}

	keywords := company
	if req.Filters.School != "" {
		keywords += " " + req.Filters.School
	}
	searchURL := fmt.Sprintf("%s/search/results/people/?keywords=%s",
		linkedInBaseURL, url.QueryEscape(keywords))

	cards, err := s.collect(ctx, pg, searchURL, s.peopleCardChain())
	if err != nil || cards == nil {
		logger.Warn().Err(err).Str("source", linkedInSource).Str("company", company).Msg("No people cards found, substituting fallback people")
		return SyntheticPeople(linkedInSource, company, fallbackCount(req)), nil
	}

	records := extractPersonCards(cards, s.personExtractor, company, logger, linkedInSource)
	if len(records) == 0 {
		logger.Warn().Str("source", linkedInSource).Str("company", company).Msg("No usable people extracted, substituting fallback people")
		return SyntheticPeople(linkedInSource, company, fallbackCount(req)), nil
	}

	logger.Info().Str("source", linkedInSource).Int("count", len(records)).Msg("People search complete")
	return stampRecords(records), nil
}

func (s *LinkedInScraper) authenticate(ctx context.Context, pg interfaces.Page, headless bool) error {
	cred, err := s.deps.loadCredential(ctx, linkedInSource)
	if err != nil {
		return err
	}
	flow := NewLoginFlow(s.login, s.deps.logger())
	return flow.Run(ctx, pg, cred.Username, cred.Password, headless)
}

func (s *LinkedInScraper) collect(ctx context.Context, pg interfaces.Page, searchURL string, chain Chain) (*goquery.Selection, error) {
	if err := s.deps.pace(ctx); err != nil {
		return nil, err
	}
	if err := pg.Navigate(ctx, searchURL); err != nil {
		return nil, err
	}
	// Results render asynchronously; an absent container just means the
	// chain walks the degraded path.
	_ = pg.WaitVisible(ctx,
		".jobs-search__results-list, .jobs-search-results__list, .scaffold-layout__list-container, .search-results-container",
		15*time.Second)
	if err := s.deps.pace(ctx); err != nil {
		return nil, err
	}
	return CollectCards(ctx, pg, chain, minCardMatches)
}

func (s *LinkedInScraper) jobCardChain() Chain {
	return NewChain("job cards",
		"li[data-occludable-job-id]",
		".jobs-search-results__list .jobs-search-results__list-item",
		".jobs-search__results-list .artdeco-list__item",
		"[data-job-id]",
		".job-search-card",
		".base-search-card",
	)
}

func (s *LinkedInScraper) peopleCardChain() Chain {
	return NewChain("people cards",
		"li.reusable-search__result-container",
		".entity-result",
		".search-result__wrapper",
		"div[data-test-search-result]",
	)
}

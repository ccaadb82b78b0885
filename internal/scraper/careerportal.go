package scraper

import (
	"context"
	"time"

	"github.com/ternarybob/venator/internal/interfaces"
	"github.com/ternarybob/venator/internal/models"
)

const (
	careerPortalSource  = "careerportal"
	careerPortalBaseURL = "https://yale.12twenty.com"
	careerPortalAppURL  = careerPortalBaseURL + "/app"
)

// CareerPortalScraper drives the university career portal. The portal sits
// behind an institutional login with a Duo second-factor interstitial, so an
// attended (non-headless) session is the only way through a fresh challenge.
type CareerPortalScraper struct {
	deps  SourceDeps
	login LoginConfig

	extractor *JobExtractor
}

// NewCareerPortalScraper builds the scraper with its selector fallback chains.
func NewCareerPortalScraper(deps SourceDeps) *CareerPortalScraper {
	s := &CareerPortalScraper{
		deps: deps,
		login: LoginConfig{
			URL: careerPortalAppURL,
			UsernameChain: NewChain("username field",
				"#username",
				`[name="username"]`,
				`input[type="text"]`,
			),
			PasswordChain: NewChain("password field",
				"#password",
				`[name="password"]`,
				`input[type="password"]`,
			),
			TypingPace:          80 * time.Millisecond,
			SuccessURLFragments: []string{"dashboard", "home", "jobpostings"},
			SuccessChain:        NewChain("logout control", ".logout", `[href*="logout"]`),
			LoginPathMarker:     "/login",

			SecondFactorURLMarker: "duosecurity",
			SecondFactorBudget:    60 * time.Second,
		},
		extractor: NewJobExtractor(JobExtractorConfig{
			Source:  careerPortalSource,
			BaseURL: careerPortalAppURL,
			TitleChain: NewChain("job title",
				"a",
				"h3",
				"h4",
				".job-title",
			),
			OrganizationChain: NewChain("organization",
				".company",
				".employer",
				".company-name",
			),
			LocationChain: NewChain("location",
				".location",
				".job-location",
			),
		}, deps.logger()),
	}
	s.deps.tuneLogin(&s.login)
	return s
}

// Name implements interfaces.Scraper.
func (s *CareerPortalScraper) Name() string { return careerPortalSource }

// Search lists the portal's job postings, filtered by the request keywords
// when the portal exposes a keyword box. Anything failing past driver
// provisioning degrades to synthetic records.
func (s *CareerPortalScraper) Search(ctx context.Context, req models.SearchRequest) ([]models.Record, error) {
	pg, err := s.deps.Opener.Open(ctx, req.Headless)
	if err != nil {
		return nil, err
	}
	defer pg.Close()

	logger := s.deps.logger()
	fallback := func() []models.Record {
		return SyntheticJobs(careerPortalSource, req.Query, req.Filters.Location, fallbackCount(req))
	}

	cred, err := s.deps.loadCredential(ctx, careerPortalSource)
	if err != nil {
		logger.Warn().Err(err).Str("source", careerPortalSource).Msg("No usable credential, substituting fallback jobs")
		return fallback(), nil
	}
	flow := NewLoginFlow(s.login, logger)
	if err := flow.Run(ctx, pg, cred.Username, cred.Password, req.Headless); err != nil {
		logger.Warn().Err(err).Str("source", careerPortalSource).Msg("Login failed, substituting fallback jobs")
		return fallback(), nil
	}

	if err := s.deps.pace(ctx); err != nil {
		return nil, err
	}
	if err := pg.Navigate(ctx, careerPortalAppURL); err != nil {
		logger.Warn().Err(err).Str("source", careerPortalSource).Msg("Portal navigation failed, substituting fallback jobs")
		return fallback(), nil
	}

	// The postings list lives behind a nav link rather than a stable URL.
	if sel, err := LocateOnPage(ctx, pg, NewChain("postings link", `a[href*="jobs"]`, `.nav-link[href*="jobs"]`), 5*time.Second); err == nil {
		_ = pg.Click(ctx, sel)
	}

	if keywords := s.searchKeywords(req); keywords != "" {
		s.applyKeywordFilter(ctx, pg, keywords)
	}

	cards, err := CollectCards(ctx, pg, s.listingChain(), 0)
	if err != nil || cards == nil {
		logger.Warn().Err(err).Str("source", careerPortalSource).Msg("No job listings found, substituting fallback jobs")
		return fallback(), nil
	}

	records := extractJobCards(cards, s.extractor, logger, careerPortalSource)
	if len(records) == 0 {
		logger.Warn().Str("source", careerPortalSource).Msg("No usable jobs extracted, substituting fallback jobs")
		return fallback(), nil
	}

	logger.Info().Str("source", careerPortalSource).Int("count", len(records)).Msg("Job search complete")
	return stampRecords(records), nil
}

func (s *CareerPortalScraper) searchKeywords(req models.SearchRequest) string {
	if req.Filters.Keywords != "" {
		return req.Filters.Keywords
	}
	return req.Query
}

// applyKeywordFilter is best effort: the portal works without it, the result
// set is just broader.
func (s *CareerPortalScraper) applyKeywordFilter(ctx context.Context, pg interfaces.Page, keywords string) {
	sel, err := LocateOnPage(ctx, pg, NewChain("keyword box", `input[placeholder*="keyword"]`, "#keywords"), 3*time.Second)
	if err != nil {
		return
	}
	if err := pg.TypeKeys(ctx, sel, keywords, 0); err != nil {
		return
	}
	_ = pg.PressEnter(ctx, sel)
}

func (s *CareerPortalScraper) listingChain() Chain {
	return NewChain("job listings",
		".job-listing",
		".job-item",
		".posting",
		`tr[class*="job"]`,
		`div[class*="job-card"]`,
	)
}

package scraper

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ternarybob/venator/internal/common"
	"github.com/ternarybob/venator/internal/interfaces"
	"github.com/ternarybob/venator/internal/models"
)

// fakeOpener hands out a prepared page or fails like a missing browser.
type fakeOpener struct {
	page *fakePage
	err  error
}

func (o *fakeOpener) Open(ctx context.Context, headless bool) (interfaces.Page, error) {
	if o.err != nil {
		return nil, o.err
	}
	return o.page, nil
}

func linkedInCredential() *models.Credential {
	return &models.Credential{Source: linkedInSource, Username: "alice@example.com", Password: "hunter2"}
}

func fastLinkedInScraper(t *testing.T, pg *fakePage, creds ...*models.Credential) *LinkedInScraper {
	t.Helper()
	s := NewLinkedInScraper(SourceDeps{
		Opener:      &fakeOpener{page: pg},
		Credentials: testCredentialStore(t, creds...),
		Logger:      common.GetLogger(),
	})
	s.login.FieldWait = 5 * time.Millisecond
	s.login.SuccessPoll = 5 * time.Millisecond
	s.login.TypingPace = time.Millisecond
	return s
}

func loginReadyPage() *fakePage {
	pg := newFakePage()
	pg.visible["#username"] = true
	pg.visible["#password"] = true
	pg.afterSubmit = func(p *fakePage) { p.url = "https://www.linkedin.com/feed/" }
	return pg
}

func TestLinkedInDriverUnavailableSurfaces(t *testing.T) {
	s := NewLinkedInScraper(SourceDeps{
		Opener:      &fakeOpener{err: fmt.Errorf("start chrome: %w", models.ErrDriverUnavailable)},
		Credentials: testCredentialStore(t, linkedInCredential()),
		Logger:      common.GetLogger(),
	})

	_, err := s.Search(context.Background(), models.SearchRequest{Kind: models.RecordKindJob})
	require.Error(t, err)
	assert.ErrorIs(t, err, models.ErrDriverUnavailable)
}

func TestLinkedInLoginFailureReturnsSynthetic(t *testing.T) {
	pg := newFakePage() // no visible fields, login cannot proceed
	s := fastLinkedInScraper(t, pg, linkedInCredential())

	records, err := s.Search(context.Background(), models.SearchRequest{
		Kind:  models.RecordKindJob,
		Query: "consultant",
		Limit: 4,
	})
	require.NoError(t, err)
	require.Len(t, records, 4)
	for _, r := range records {
		assert.True(t, r.IsSynthetic())
		assert.Equal(t, "linkedin_fallback", r.Source)
	}
	assert.True(t, pg.closed, "page must be torn down on every path")
}

func TestLinkedInMissingCredentialReturnsSynthetic(t *testing.T) {
	s := fastLinkedInScraper(t, loginReadyPage())

	records, err := s.Search(context.Background(), models.SearchRequest{Kind: models.RecordKindJob})
	require.NoError(t, err)
	require.NotEmpty(t, records)
	assert.True(t, records[0].IsSynthetic())
}

func TestLinkedInSearchExtractsJobCards(t *testing.T) {
	pg := loginReadyPage()
	pg.html = `<html><body><ul>
		<li data-occludable-job-id="101"><h3 class="job-search-card__title"><a href="/jobs/view/101">Consultant</a></h3><span class="job-search-card__subtitle">Bain</span></li>
		<li data-occludable-job-id="102"><h3 class="job-search-card__title"><a href="/jobs/view/102">Analyst</a></h3><span class="job-search-card__subtitle">BCG</span></li>
		<li data-occludable-job-id="103"><h3 class="job-search-card__title"><a href="/jobs/view/103">Associate</a></h3><span class="job-search-card__subtitle">Deloitte</span></li>
	</ul></body></html>`

	s := fastLinkedInScraper(t, pg, linkedInCredential())
	records, err := s.Search(context.Background(), models.SearchRequest{
		Kind:    models.RecordKindJob,
		Query:   "consultant",
		Filters: models.SearchFilters{Location: "Boston, MA"},
	})
	require.NoError(t, err)

	require.Len(t, records, 3)
	assert.Equal(t, "linkedin_101", records[0].ExternalID)
	assert.Equal(t, "Consultant", records[0].Title)
	assert.Equal(t, "Bain", records[0].Organization)
	assert.False(t, records[0].IsSynthetic())

	require.NotEmpty(t, pg.navigated)
	last := pg.navigated[len(pg.navigated)-1]
	assert.Contains(t, last, "keywords=consultant")
	assert.Contains(t, last, "location=Boston%2C+MA")
}

func TestLinkedInSearchPeopleExtractsCards(t *testing.T) {
	pg := loginReadyPage()
	pg.html = `<html><body>
		<li class="reusable-search__result-container"><span class="entity-result__title-text"><a class="app-aware-link" href="/in/jane-doe"><span aria-hidden="true">Jane Doe</span></a></span><div class="entity-result__primary-subtitle">Manager at McKinsey</div></li>
		<li class="reusable-search__result-container"><span class="entity-result__title-text">Raj Patel</span></li>
		<li class="reusable-search__result-container"><span class="entity-result__title-text">Ana Silva</span></li>
	</body></html>`

	s := fastLinkedInScraper(t, pg, linkedInCredential())
	records, err := s.SearchPeople(context.Background(), models.SearchRequest{
		Kind:    models.RecordKindPerson,
		Filters: models.SearchFilters{Company: "McKinsey", School: "Yale"},
	})
	require.NoError(t, err)

	require.Len(t, records, 3)
	assert.Equal(t, "Jane Doe", records[0].Title)
	assert.Equal(t, "McKinsey", records[0].Organization)
	assert.Equal(t, models.RecordKindPerson, records[0].Kind)

	last := pg.navigated[len(pg.navigated)-1]
	assert.Contains(t, last, "keywords=McKinsey+Yale")
}

func TestLinkedInZeroExtractedReturnsSynthetic(t *testing.T) {
	pg := loginReadyPage()
	// Enough cards to pass the threshold, none with a usable title.
	pg.html = `<html><body>
		<li data-occludable-job-id="1"></li>
		<li data-occludable-job-id="2"></li>
		<li data-occludable-job-id="3"></li>
	</body></html>`

	s := fastLinkedInScraper(t, pg, linkedInCredential())
	records, err := s.Search(context.Background(), models.SearchRequest{Kind: models.RecordKindJob, Query: "x", Limit: 3})
	require.NoError(t, err)
	require.Len(t, records, 3)
	for _, r := range records {
		assert.True(t, r.IsSynthetic())
	}
}

package scraper

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ternarybob/venator/internal/common"
	"github.com/ternarybob/venator/internal/models"
)

func testJobExtractor() *JobExtractor {
	return NewJobExtractor(JobExtractorConfig{
		Source:                 "linkedin",
		BaseURL:                "https://www.linkedin.com",
		ListingPathMarker:      "/jobs/view/",
		OrganizationPathMarker: "/company/",
		CardIDAttributes:       []string{"data-occludable-job-id"},
		TitleChain:             NewChain("title", ".job-search-card__title a", "h3 a"),
		OrganizationChain:      NewChain("organization", ".job-search-card__subtitle a", ".base-search-card__subtitle"),
		LocationChain:          NewChain("location", ".job-search-card__location"),
	}, common.GetLogger())
}

func TestJobExtractFullCard(t *testing.T) {
	card := parseHTML(t, `
		<li>
			<h3 class="job-search-card__title"><a href="https://www.linkedin.com/jobs/view/3912345678?refId=abc">Strategy Consultant</a></h3>
			<span class="job-search-card__subtitle"><a>Bain &amp; Company</a></span>
			<span class="job-search-card__location">Boston, MA</span>
		</li>`)

	record, err := testJobExtractor().Extract(card)
	require.NoError(t, err)

	assert.Equal(t, "Strategy Consultant", record.Title)
	assert.Equal(t, "Bain & Company", record.Organization)
	assert.Equal(t, "Boston, MA", record.Location)
	assert.Equal(t, "linkedin_3912345678", record.ExternalID, "natural id from the listing URL")
	assert.Equal(t, models.RecordKindJob, record.Kind)
	assert.Equal(t, "linkedin", record.Source)
	assert.False(t, record.IsSynthetic())
}

func TestJobExtractOrganizationFromAtPattern(t *testing.T) {
	card := parseHTML(t, `
		<li>
			<h3><a href="/jobs/view/111">Senior Associate</a></h3>
			<p>Senior Associate at McKinsey &amp; Company - 3 days ago</p>
		</li>`)

	record, err := testJobExtractor().Extract(card)
	require.NoError(t, err)
	assert.Equal(t, "McKinsey & Company", record.Organization)
}

func TestJobExtractOrganizationFromCompanySlug(t *testing.T) {
	card := parseHTML(t, `
		<li>
			<h3><a href="/jobs/view/222">Analyst</a></h3>
			<a href="https://www.linkedin.com/company/boston-consulting-group?trk=x">logo</a>
		</li>`)

	record, err := testJobExtractor().Extract(card)
	require.NoError(t, err)
	assert.Equal(t, "Boston Consulting Group", record.Organization)
}

func TestJobExtractPlaceholdersWhenFieldsMissing(t *testing.T) {
	card := parseHTML(t, `<li><h3><a href="/jobs/view/333">Product Manager</a></h3></li>`)

	record, err := testJobExtractor().Extract(card)
	require.NoError(t, err)
	assert.Equal(t, models.PlaceholderOrganization, record.Organization)
	assert.Equal(t, models.PlaceholderLocation, record.Location)
}

func TestJobExtractRejectsCardWithoutTitle(t *testing.T) {
	card := parseHTML(t, `<li><span class="job-search-card__location">Remote</span></li>`)

	record, err := testJobExtractor().Extract(card)
	require.Error(t, err)
	assert.ErrorIs(t, err, models.ErrMalformedRecord)
	assert.Nil(t, record)
}

func TestJobExtractTitleFromGenericLink(t *testing.T) {
	// No chain locator matches; the first substantial link text is the title.
	card := parseHTML(t, `
		<li>
			<a href="#">see more</a>
			<a href="https://example.com/posting/42">Operations Manager</a>
		</li>`)

	record, err := testJobExtractor().Extract(card)
	require.NoError(t, err)
	assert.Equal(t, "Operations Manager", record.Title)
	assert.Equal(t, "https://example.com/posting/42", record.URL)
}

func TestJobExtractIDFromCardAttribute(t *testing.T) {
	card := parseHTML(t, `<li data-occludable-job-id="987654"><h3><a>Data Engineer</a></h3></li>`).Find("li")

	record, err := testJobExtractor().Extract(card)
	require.NoError(t, err)
	assert.Equal(t, "linkedin_987654", record.ExternalID)
	assert.Equal(t, "https://www.linkedin.com/jobs/view/987654", record.URL)
}

func TestJobExtractHashedIDIsDeterministic(t *testing.T) {
	html := `<li><h3><a>Consultant</a></h3><span class="base-search-card__subtitle">Deloitte</span></li>`

	first, err := testJobExtractor().Extract(parseHTML(t, html))
	require.NoError(t, err)
	second, err := testJobExtractor().Extract(parseHTML(t, html))
	require.NoError(t, err)

	assert.Equal(t, first.ExternalID, second.ExternalID)
	assert.Equal(t, models.DeriveExternalID("linkedin", "Consultant", "Deloitte"), first.ExternalID)
}

func TestHumanizeSlug(t *testing.T) {
	assert.Equal(t, "Bain And Company", humanizeSlug("bain-and-company"))
	assert.Equal(t, "Goldman Sachs", humanizeSlug("goldman_sachs"))
	assert.Equal(t, "Ibm", humanizeSlug("ibm"))
}

func TestUsableOrganizationSkipWords(t *testing.T) {
	assert.True(t, usableOrganization("Bain & Company"))
	assert.False(t, usableOrganization("3 days ago"))
	assert.False(t, usableOrganization("Easy Apply"))
	assert.False(t, usableOrganization("x"))
}

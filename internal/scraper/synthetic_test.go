package scraper

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ternarybob/venator/internal/models"
)

func TestSyntheticJobsAreTagged(t *testing.T) {
	records := SyntheticJobs("linkedin", "consultant", "Boston, MA", 5)
	require.Len(t, records, 5)

	seen := map[string]struct{}{}
	for _, r := range records {
		assert.True(t, r.IsSynthetic())
		assert.Equal(t, "linkedin_fallback", r.Source)
		assert.Equal(t, models.RecordKindJob, r.Kind)
		assert.Equal(t, "Boston, MA", r.Location)
		assert.NotEmpty(t, r.Title)
		assert.Contains(t, r.Description, "Placeholder")

		_, dup := seen[r.ExternalID]
		assert.False(t, dup, "external ids must be distinct: %s", r.ExternalID)
		seen[r.ExternalID] = struct{}{}
	}
}

func TestSyntheticJobsMinimumCount(t *testing.T) {
	assert.Len(t, SyntheticJobs("websearch", "", "", 0), 3)
	assert.Len(t, SyntheticJobs("websearch", "", "", 1), 3)
	assert.Len(t, SyntheticJobs("websearch", "", "", 10), 10)
}

func TestSyntheticJobsEchoQuery(t *testing.T) {
	records := SyntheticJobs("careerportal", "product manager", "", 3)
	assert.Contains(t, records[0].Title, "Product Manager")
}

func TestSyntheticPeopleAreTagged(t *testing.T) {
	records := SyntheticPeople("linkedin", "McKinsey", 4)
	require.Len(t, records, 4)

	seen := map[string]struct{}{}
	for _, r := range records {
		assert.True(t, r.IsSynthetic())
		assert.Equal(t, models.RecordKindPerson, r.Kind)
		assert.Equal(t, "McKinsey", r.Organization)
		assert.Equal(t, models.PlaceholderEmail, r.Email)

		_, dup := seen[r.ExternalID]
		assert.False(t, dup)
		seen[r.ExternalID] = struct{}{}
	}
}

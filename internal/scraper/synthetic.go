package scraper

import (
	"fmt"
	"strings"
	"time"

	"github.com/ternarybob/venator/internal/models"
)

// Synthetic records substitute for live results when a whole source pipeline
// fails. They are distinguishable at the source and external_id level (the
// "_fallback" source suffix and a "_fallback_" id segment) so no caller or
// test can mistake them for scraped data, while still giving the surrounding
// application something non-empty to render.

var syntheticJobTemplates = []struct {
	role, organization, description string
}{
	{"Management Consultant", "McKinsey & Company", "Join our team of consultants working on strategic initiatives."},
	{"Strategy Consultant", "Bain & Company", "Help clients solve their most critical business challenges."},
	{"Business Analyst", "Boston Consulting Group", "Analyze complex business problems and develop solutions."},
	{"Associate Consultant", "Deloitte", "Strategic consulting role with top-tier clients."},
	{"Investment Banking Analyst", "Goldman Sachs", "Join our investment banking division."},
	{"Private Equity Associate", "Blackstone", "Work on high-profile private equity transactions."},
}

var syntheticPeopleTemplates = []struct {
	name, role string
}{
	{"Jordan Mills", "Engagement Manager"},
	{"Priya Natarajan", "Senior Associate"},
	{"Daniel Okafor", "Vice President"},
	{"Sofia Ricci", "Principal"},
	{"Marcus Webb", "Analyst"},
}

// SyntheticJobs generates count placeholder job records for a failed source,
// echoing the query and location so the output still reflects what was asked
// for. Count is clamped to a minimum of 3; ids are distinct and stable per
// source and position.
func SyntheticJobs(source, query, location string, count int) []models.Record {
	if count < 3 {
		count = 3
	}
	if query == "" {
		query = "consultant"
	}
	if location == "" {
		location = models.PlaceholderLocation
	}

	now := time.Now().UTC()
	records := make([]models.Record, 0, count)
	for i := 0; i < count; i++ {
		tpl := syntheticJobTemplates[i%len(syntheticJobTemplates)]
		role := tpl.role
		if i < 3 {
			// The first few echo the query so a reader sees what was searched.
			role = fmt.Sprintf("%s (%s)", titleCase(query), tpl.role)
		}
		records = append(records, models.Record{
			ExternalID:   fmt.Sprintf("%s_fallback_%d", source, i+1),
			Kind:         models.RecordKindJob,
			Title:        role,
			Organization: tpl.organization,
			Location:     location,
			URL:          "",
			Source:       models.SyntheticSource(source),
			Description:  "Placeholder result: live extraction from " + source + " returned nothing. " + tpl.description,
			ScrapedAt:    now,
		})
	}
	return records
}

// SyntheticPeople generates count placeholder person records scoped to the
// company the search targeted.
func SyntheticPeople(source, company string, count int) []models.Record {
	if count < 3 {
		count = 3
	}
	if company == "" {
		company = "the target company"
	}

	now := time.Now().UTC()
	records := make([]models.Record, 0, count)
	for i := 0; i < count; i++ {
		tpl := syntheticPeopleTemplates[i%len(syntheticPeopleTemplates)]
		records = append(records, models.Record{
			ExternalID:   fmt.Sprintf("%s_fallback_%d", source, i+1),
			Kind:         models.RecordKindPerson,
			Title:        tpl.name,
			Organization: company,
			Location:     models.PlaceholderLocation,
			Source:       models.SyntheticSource(source),
			Description:  fmt.Sprintf("Placeholder contact: live extraction from %s returned nothing. %s, %s at %s.", source, tpl.name, tpl.role, company),
			Email:        models.PlaceholderEmail,
			ScrapedAt:    now,
		})
	}
	return records
}

func titleCase(s string) string {
	words := strings.Fields(strings.ToLower(s))
	for i, w := range words {
		words[i] = strings.ToUpper(w[:1]) + w[1:]
	}
	return strings.Join(words, " ")
}

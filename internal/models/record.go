package models

import (
	"fmt"
	"hash/fnv"
	"strings"
	"time"
)

// RecordKind distinguishes the two record shapes the scrapers produce.
type RecordKind string

const (
	RecordKindJob    RecordKind = "job"
	RecordKindPerson RecordKind = "person"
)

// SyntheticSourceSuffix marks records generated as placeholders when live
// extraction failed. A record whose Source carries this suffix must never be
// mistaken for scraped data.
const SyntheticSourceSuffix = "_fallback"

// Placeholder values for fields that could not be resolved from a card.
// A partial record with placeholders is preferred over dropping the record.
const (
	PlaceholderOrganization = "Company Name Not Found"
	PlaceholderLocation     = "Location Not Found"
	PlaceholderEmail        = "Email Not Found"
)

// Record is a normalized job or person extracted from one raw page element.
// Records are immutable once returned by an extractor and are persisted
// keyed by ExternalID (idempotent upsert, same id never duplicated).
type Record struct {
	ExternalID   string     `json:"external_id"`
	Kind         RecordKind `json:"kind"`
	Title        string     `json:"title"` // role for jobs, full name for people
	Organization string     `json:"organization"`
	Location     string     `json:"location"`
	URL          string     `json:"url"`
	Source       string     `json:"source"`
	Description  string     `json:"description"`
	Email        string     `json:"email,omitempty"`
	ScrapedAt    time.Time  `json:"scraped_at"`
}

// IsSynthetic reports whether the record is a generated placeholder rather
// than a genuinely scraped result.
func (r *Record) IsSynthetic() bool {
	return strings.HasSuffix(r.Source, SyntheticSourceSuffix)
}

// SyntheticSource returns the tagged source name for placeholder records of
// the given source.
func SyntheticSource(source string) string {
	return source + SyntheticSourceSuffix
}

// DeriveExternalID synthesizes a deterministic identifier for records whose
// source exposes no natural id, so repeated scrapes of the same listing
// collapse to one record. Hashing title+organization is an accepted
// approximation: two genuinely distinct postings with identical title and
// organization will collide.
func DeriveExternalID(source, title, organization string) string {
	h := fnv.New64a()
	h.Write([]byte(strings.ToLower(strings.TrimSpace(title))))
	h.Write([]byte{0})
	h.Write([]byte(strings.ToLower(strings.TrimSpace(organization))))
	return fmt.Sprintf("%s_%x", source, h.Sum64())
}

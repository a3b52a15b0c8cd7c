package model

import (
	"strings"
	"time"
)

// SourceLinkedIn tags records extracted from LinkedIn people search.
const SourceLinkedIn = "LinkedIn"

// CandidatePerson is a single people-search result. ProfileURL is the
// identity and is normalized exactly once, at extraction.
type CandidatePerson struct {
	FullName         string `json:"full_name"`
	ProfileURL       string `json:"linkedin_url"`
	Headline         string `json:"headline"`
	Location         string `json:"location"`
	AvatarURL        string `json:"image_url,omitempty"`
	ConnectionDegree string `json:"connection_degree,omitempty"`
	SearchKeyword    string `json:"search_keyword"`
	SearchLocation   string `json:"search_location"`
	SearchIndustry   string `json:"search_industry"`
	Source           string `json:"source"`
}

// EnrichmentFlag records that enrichment was attempted, not that it
// succeeded.
type EnrichmentFlag struct {
	Enriched   bool       `json:"is_enriched"`
	EnrichedAt *time.Time `json:"enriched_at,omitempty"`
}

// Profile is the persisted form of a CandidatePerson.
type Profile struct {
	CandidatePerson

	OwnerID    string         `json:"user_id,omitempty"`
	CampaignID string         `json:"campaign_id,omitempty"`
	DetailURL  string         `json:"finalscout_contact_url,omitempty"`
	Enrichment EnrichmentFlag `json:"enrichment"`
	CreatedAt  time.Time      `json:"created_at"`
}

// Stamp wraps people as profiles owned by the given user and campaign.
func Stamp(people []CandidatePerson, ownerID, campaignID string) []Profile {
	out := make([]Profile, 0, len(people))
	for _, p := range people {
		out = append(out, Profile{
			CandidatePerson: p,
			OwnerID:         ownerID,
			CampaignID:      campaignID,
		})
	}
	return out
}

// NormalizeProfileURL strips the query string and fragment from a profile
// link. Applying it twice yields the same value.
func NormalizeProfileURL(raw string) string {
	u := strings.TrimSpace(raw)
	if i := strings.IndexAny(u, "?#"); i >= 0 {
		u = u[:i]
	}
	return u
}

// SplitName returns the first token of a full name and the remaining tokens.
func SplitName(full string) (first, last string) {
	parts := strings.Fields(full)
	switch len(parts) {
	case 0:
		return "", ""
	case 1:
		return parts[0], ""
	default:
		return parts[0], strings.Join(parts[1:], " ")
	}
}

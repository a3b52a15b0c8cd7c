package store

import (
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/sells-group/leadgen-cli/internal/model"
)

// profileColumns is the insert column list for profiles.
var profileColumns = []string{
	"id", "linkedin_url", "full_name", "headline", "location", "image_url",
	"connection_degree", "search_keyword", "search_location", "search_industry",
	"source", "user_id", "campaign_id", "finalscout_contact_url", "created_at",
}

// profileUpdateColumns are merged on conflict; the flag and timestamps are
// never reset by a re-scrape.
var profileUpdateColumns = []string{
	"full_name", "headline", "location", "image_url", "connection_degree",
	"search_keyword", "search_location", "search_industry", "source",
	"user_id", "campaign_id", "finalscout_contact_url",
}

// profileSelect is the read column list, scanned by profileDest.
const profileSelect = "linkedin_url, full_name, headline, location, image_url, connection_degree, " +
	"search_keyword, search_location, search_industry, source, user_id, campaign_id, " +
	"finalscout_contact_url, is_enriched, enriched_at, created_at"

func profileValues(p model.Profile, now time.Time) []any {
	return []any{
		uuid.New().String(), p.ProfileURL, p.FullName, p.Headline, p.Location, p.AvatarURL,
		p.ConnectionDegree, p.SearchKeyword, p.SearchLocation, p.SearchIndustry,
		sourceOr(p.Source), p.OwnerID, p.CampaignID, p.DetailURL, now,
	}
}

// profileDest returns scan targets matching profileSelect. enrichedAt
// receives the nullable enriched_at column.
func profileDest(p *model.Profile, enrichedAt **time.Time) []any {
	return []any{
		&p.ProfileURL, &p.FullName, &p.Headline, &p.Location, &p.AvatarURL, &p.ConnectionDegree,
		&p.SearchKeyword, &p.SearchLocation, &p.SearchIndustry, &p.Source, &p.OwnerID, &p.CampaignID,
		&p.DetailURL, &p.Enrichment.Enriched, enrichedAt, &p.CreatedAt,
	}
}

func sourceOr(s string) string {
	if s == "" {
		return model.SourceLinkedIn
	}
	return s
}

// contactFields lists the data columns of a contact in scan/insert order.
var contactFields = []string{
	"user_id", "campaign_id", "first_name", "last_name", "full_name", "email",
	"email_status", "email_confidence", "email_type", "privacy", "tags",
	"linkedin", "headline", "title", "location", "company", "industry", "website",
	"image_url", "connection_degree", "source_detail", "note",
	"search_keyword", "search_location", "search_industry",
	"company_city", "company_state", "company_country", "company_postal_code",
	"company_raw_address", "company_phone", "company_domain", "company_linkedin",
	"company_staff_count", "contact_created_at_ts", "contact_latest_update_ts",
}

var (
	contactColumns       = append(append([]string{"id"}, contactFields...), "created_at", "updated_at")
	contactUpdateColumns = contactUpdates()
	contactSelect        = strings.Join(contactFields, ", ")
)

func contactUpdates() []string {
	skip := map[string]bool{"user_id": true, "campaign_id": true, "email": true}
	var out []string
	for _, f := range contactFields {
		if !skip[f] {
			out = append(out, f)
		}
	}
	return append(out, "updated_at")
}

func contactValues(c model.EnrichedContact, now time.Time) []any {
	vals := []any{uuid.New().String()}
	for _, p := range contactDest(&c) {
		switch v := p.(type) {
		case *string:
			vals = append(vals, *v)
		case *model.EmailStatus:
			vals = append(vals, string(*v))
		case *model.Confidence:
			vals = append(vals, string(*v))
		}
	}
	return append(vals, now, now)
}

// contactDest returns scan targets matching contactFields.
func contactDest(c *model.EnrichedContact) []any {
	return []any{
		&c.OwnerID, &c.CampaignID, &c.FirstName, &c.LastName, &c.FullName, &c.Email,
		&c.EmailStatus, &c.EmailConfidence, &c.EmailType, &c.Privacy, &c.Tags,
		&c.LinkedIn, &c.Headline, &c.Title, &c.Location, &c.Company, &c.Industry, &c.Website,
		&c.ImageURL, &c.ConnectionDegree, &c.SourceDetail, &c.Note,
		&c.SearchKeyword, &c.SearchLocation, &c.SearchIndustry,
		&c.CompanyCity, &c.CompanyState, &c.CompanyCountry, &c.CompanyPostalCode,
		&c.CompanyRawAddress, &c.CompanyPhone, &c.CompanyDomain, &c.CompanyLinkedIn,
		&c.CompanyStaffCount, &c.ContactCreatedAt, &c.ContactUpdatedAt,
	}
}

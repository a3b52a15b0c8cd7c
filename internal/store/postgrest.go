package store

import (
	"context"
	"time"

	"github.com/rotisserie/eris"

	"github.com/sells-group/leadgen-cli/internal/model"
	"github.com/sells-group/leadgen-cli/pkg/postgrest"
)

// PostgRESTStore implements Gateway over the Supabase REST API.
type PostgRESTStore struct {
	client    postgrest.Client
	chunkSize int
	now       func() time.Time
}

var _ Gateway = (*PostgRESTStore)(nil)

// NewPostgREST wraps a PostgREST client.
func NewPostgREST(client postgrest.Client, chunkSize int) *PostgRESTStore {
	return &PostgRESTStore{client: client, chunkSize: chunkSizeOr(chunkSize), now: time.Now}
}

// profileRecord is the REST read shape of a profile row.
type profileRecord struct {
	model.CandidatePerson
	OwnerID    string     `json:"user_id,omitempty"`
	CampaignID string     `json:"campaign_id,omitempty"`
	DetailURL  string     `json:"finalscout_contact_url,omitempty"`
	IsEnriched *bool      `json:"is_enriched,omitempty"`
	EnrichedAt *time.Time `json:"enriched_at,omitempty"`
	CreatedAt  *time.Time `json:"created_at,omitempty"`
}

// profileUpsert is the REST write shape of a profile row. PostgREST bulk
// inserts require every object to carry the same keys, so no field is
// omitted. The enrichment flag and timestamps are left to column defaults.
type profileUpsert struct {
	FullName         string `json:"full_name"`
	ProfileURL       string `json:"linkedin_url"`
	Headline         string `json:"headline"`
	Location         string `json:"location"`
	AvatarURL        string `json:"image_url"`
	ConnectionDegree string `json:"connection_degree"`
	SearchKeyword    string `json:"search_keyword"`
	SearchLocation   string `json:"search_location"`
	SearchIndustry   string `json:"search_industry"`
	Source           string `json:"source"`
	OwnerID          string `json:"user_id"`
	CampaignID       string `json:"campaign_id"`
	DetailURL        string `json:"finalscout_contact_url"`
}

func toProfileUpsert(p model.Profile) profileUpsert {
	return profileUpsert{
		FullName:         p.FullName,
		ProfileURL:       p.ProfileURL,
		Headline:         p.Headline,
		Location:         p.Location,
		AvatarURL:        p.AvatarURL,
		ConnectionDegree: p.ConnectionDegree,
		SearchKeyword:    p.SearchKeyword,
		SearchLocation:   p.SearchLocation,
		SearchIndustry:   p.SearchIndustry,
		Source:           sourceOr(p.Source),
		OwnerID:          p.OwnerID,
		CampaignID:       p.CampaignID,
		DetailURL:        p.DetailURL,
	}
}

func (r profileRecord) profile() model.Profile {
	p := model.Profile{
		CandidatePerson: r.CandidatePerson,
		OwnerID:         r.OwnerID,
		CampaignID:      r.CampaignID,
		DetailURL:       r.DetailURL,
	}
	if r.IsEnriched != nil {
		p.Enrichment.Enriched = *r.IsEnriched
	}
	p.Enrichment.EnrichedAt = r.EnrichedAt
	if r.CreatedAt != nil {
		p.CreatedAt = *r.CreatedAt
	}
	return p
}

// contactRecord sends empty tool timestamps as null.
type contactRecord struct {
	model.EnrichedContact
	ContactCreatedAt *string `json:"contact_created_at_ts"`
	ContactUpdatedAt *string `json:"contact_latest_update_ts"`
}

func toContactRecord(c model.EnrichedContact) contactRecord {
	return contactRecord{
		EnrichedContact:  c,
		ContactCreatedAt: nullable(c.ContactCreatedAt),
		ContactUpdatedAt: nullable(c.ContactUpdatedAt),
	}
}

func (r contactRecord) contact() model.EnrichedContact {
	c := r.EnrichedContact
	if r.ContactCreatedAt != nil {
		c.ContactCreatedAt = *r.ContactCreatedAt
	}
	if r.ContactUpdatedAt != nil {
		c.ContactUpdatedAt = *r.ContactUpdatedAt
	}
	return c
}

func nullable(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

func (s *PostgRESTStore) Migrate(context.Context) error {
	return eris.New("postgrest: schema is managed by the database owner; run migrate with the postgres driver")
}

func (s *PostgRESTStore) Close() error {
	return nil
}

func (s *PostgRESTStore) UpsertProfiles(ctx context.Context, profiles []model.Profile) (int, error) {
	return upsertProfiles(ctx, s, profiles, s.chunkSize)
}

func (s *PostgRESTStore) existingProfileURLs(ctx context.Context, urls []string) (map[string]bool, error) {
	var rows []struct {
		LinkedInURL string `json:"linkedin_url"`
	}
	q := postgrest.NewQuery().Select("linkedin_url").Or(eqConds("linkedin_url", urls)...)
	if err := s.client.Select(ctx, ProfilesTable, q, &rows); err != nil {
		return nil, eris.Wrap(err, "store: query existing profiles")
	}
	found := make(map[string]bool, len(rows))
	for _, r := range rows {
		if r.LinkedInURL != "" {
			found[r.LinkedInURL] = true
		}
	}
	return found, nil
}

func (s *PostgRESTStore) writeProfiles(ctx context.Context, profiles []model.Profile) error {
	recs := make([]profileUpsert, len(profiles))
	for i, p := range profiles {
		recs[i] = toProfileUpsert(p)
	}
	return eris.Wrap(s.client.Upsert(ctx, ProfilesTable, profileConflict, recs), "store: upsert profiles")
}

func (s *PostgRESTStore) FetchUnenriched(ctx context.Context, f UnenrichedFilter) ([]model.Profile, error) {
	q := postgrest.NewQuery().Select(profileSelectREST).Eq("is_enriched", "false")
	if f.CampaignID != "" {
		q.Eq("campaign_id", f.CampaignID)
	}
	q.Order("created_at", true).Limit(f.Limit)

	var recs []profileRecord
	if err := s.client.Select(ctx, ProfilesTable, q, &recs); err != nil {
		return nil, eris.Wrap(err, "store: fetch unenriched profiles")
	}
	out := make([]model.Profile, len(recs))
	for i, r := range recs {
		out[i] = r.profile()
	}
	return out, nil
}

// profileSelectREST is profileSelect without spaces, as PostgREST expects.
const profileSelectREST = "linkedin_url,full_name,headline,location,image_url,connection_degree," +
	"search_keyword,search_location,search_industry,source,user_id,campaign_id," +
	"finalscout_contact_url,is_enriched,enriched_at,created_at"

func (s *PostgRESTStore) MarkEnriched(ctx context.Context, profileURLs []string) (int, error) {
	urls := uniqueURLs(profileURLs)
	if len(urls) == 0 {
		return 0, nil
	}
	patch := struct {
		IsEnriched bool   `json:"is_enriched"`
		EnrichedAt string `json:"enriched_at"`
	}{true, s.now().UTC().Format(time.RFC3339)}

	q := postgrest.NewQuery().Or(eqConds("linkedin_url", urls)...)
	if err := s.client.Update(ctx, ProfilesTable, q, patch); err != nil {
		return 0, eris.Wrap(err, "store: mark profiles enriched")
	}
	// PostgREST does not report a reliable row count; report what was sent.
	return len(urls), nil
}

func (s *PostgRESTStore) UpsertContacts(ctx context.Context, contacts []model.EnrichedContact) (int, error) {
	return upsertContacts(ctx, s.writeContacts, contacts, s.chunkSize)
}

func (s *PostgRESTStore) writeContacts(ctx context.Context, contacts []model.EnrichedContact) error {
	recs := make([]contactRecord, len(contacts))
	for i, c := range contacts {
		recs[i] = toContactRecord(c)
	}
	return eris.Wrap(s.client.Upsert(ctx, ContactsTable, contactConflict, recs), "store: upsert contacts")
}

func (s *PostgRESTStore) CountUnenriched(ctx context.Context, campaignID string) (int, error) {
	q := postgrest.NewQuery().Select("linkedin_url").Eq("is_enriched", "false")
	if campaignID != "" {
		q.Eq("campaign_id", campaignID)
	}
	n, err := s.client.Count(ctx, ProfilesTable, q)
	return n, eris.Wrap(err, "store: count unenriched profiles")
}

func (s *PostgRESTStore) ListContacts(ctx context.Context, f ContactFilter) ([]model.EnrichedContact, error) {
	q := postgrest.NewQuery().Select("*")
	if f.OwnerID != "" {
		q.Eq("user_id", f.OwnerID)
	}
	if f.CampaignID != "" {
		q.Eq("campaign_id", f.CampaignID)
	}
	q.Order("created_at", false).Limit(f.Limit)

	var recs []contactRecord
	if err := s.client.Select(ctx, ContactsTable, q, &recs); err != nil {
		return nil, eris.Wrap(err, "store: list contacts")
	}
	out := make([]model.EnrichedContact, len(recs))
	for i, r := range recs {
		out[i] = r.contact()
	}
	return out, nil
}

func eqConds(col string, vals []string) []string {
	out := make([]string, len(vals))
	for i, v := range vals {
		out[i] = postgrest.EqCond(col, v)
	}
	return out
}

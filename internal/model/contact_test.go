package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func samplePerson() CandidatePerson {
	return CandidatePerson{
		FullName:         "Jane Q Doe",
		ProfileURL:       "https://www.linkedin.com/in/jane-doe",
		Headline:         "Owner at Acme Cafe",
		Location:         "Sydney, NSW",
		AvatarURL:        "https://media.licdn.com/jane.jpg",
		ConnectionDegree: "2nd degree connection",
		SearchKeyword:    "cafe owner",
		SearchLocation:   "Sydney",
		SearchIndustry:   "Hospitality",
		Source:           SourceLinkedIn,
	}
}

func TestMergeContact_SearchOnly(t *testing.T) {
	t.Parallel()

	c := MergeContact(samplePerson(), Resolved("jane@acme.com", ConfidenceHigh), DetailBundle{}, "u1", "c1")

	assert.Equal(t, "u1", c.OwnerID)
	assert.Equal(t, "c1", c.CampaignID)
	assert.Equal(t, "Jane", c.FirstName)
	assert.Equal(t, "Q Doe", c.LastName)
	assert.Equal(t, "jane@acme.com", c.Email)
	assert.Equal(t, EmailStatusValid, c.EmailStatus)
	assert.Equal(t, ConfidenceHigh, c.EmailConfidence)
	assert.Equal(t, "Owner at Acme Cafe", c.Title)
	assert.Equal(t, "Sydney, NSW", c.Location)
	assert.Equal(t, "Hospitality", c.Industry)
	assert.Equal(t, "https://media.licdn.com/jane.jpg", c.ImageURL)
	assert.Equal(t, DefaultPrivacy, c.Privacy)
	assert.Equal(t, DefaultSourceDetail, c.SourceDetail)
	assert.Equal(t, "https://www.linkedin.com/in/jane-doe", c.LinkedIn)
	assert.Equal(t, "Source: FinalScout. Search: cafe owner in Sydney", c.Note)
}

func TestMergeContact_DetailWins(t *testing.T) {
	t.Parallel()

	d := DetailBundle{
		Title:       "Managing Director",
		Location:    "Bondi, NSW",
		Industry:    "Restaurants",
		Company:     "Acme Cafe Pty Ltd",
		AvatarURL:   "https://finalscout.com/avatar/jane.png",
		Privacy:     "Private",
		Source:      "Work",
		EmailType:   "Work",
		CompanyCity: "Sydney",
		CreatedAt:   "2024-01-02T03:04:05Z",
	}
	c := MergeContact(samplePerson(), Resolved("jane@acme.com", ConfidenceHigh), d, "u1", "c1")

	assert.Equal(t, "Managing Director", c.Title)
	assert.Equal(t, "Owner at Acme Cafe", c.Headline)
	assert.Equal(t, "Bondi, NSW", c.Location)
	assert.Equal(t, "Restaurants", c.Industry)
	assert.Equal(t, "Acme Cafe Pty Ltd", c.Company)
	assert.Equal(t, "https://finalscout.com/avatar/jane.png", c.ImageURL)
	assert.Equal(t, "Private", c.Privacy)
	assert.Equal(t, "Work", c.SourceDetail)
	assert.Equal(t, "Work", c.EmailType)
	assert.Equal(t, "Sydney", c.CompanyCity)
	assert.Equal(t, "2024-01-02T03:04:05Z", c.ContactCreatedAt)
}

func TestMergeContact_NotFoundEmail(t *testing.T) {
	t.Parallel()

	c := MergeContact(samplePerson(), Unresolved(OutcomeNotFound), DetailBundle{}, "u1", "c1")
	assert.Empty(t, c.Email)
	assert.Equal(t, EmailStatusNotFound, c.EmailStatus)
	assert.False(t, c.Valid())
}

func TestEnrichedContact_Valid(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		c    EnrichedContact
		want bool
	}{
		{"ok", EnrichedContact{OwnerID: "u", CampaignID: "c", Email: "a@b.co"}, true},
		{"no at", EnrichedContact{OwnerID: "u", CampaignID: "c", Email: "ab.co"}, false},
		{"not found literal", EnrichedContact{OwnerID: "u", CampaignID: "c", Email: "not found"}, false},
		{"empty", EnrichedContact{OwnerID: "u", CampaignID: "c"}, false},
		{"no owner", EnrichedContact{CampaignID: "c", Email: "a@b.co"}, false},
		{"no campaign", EnrichedContact{OwnerID: "u", Email: "a@b.co"}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, tt.c.Valid())
		})
	}
}

func TestPrepareContacts_DropsInvalid(t *testing.T) {
	t.Parallel()

	in := []EnrichedContact{
		{OwnerID: "u", CampaignID: "c", Email: "Not found"},
		{OwnerID: "u", CampaignID: "c", Email: "nobody"},
		{OwnerID: "u", CampaignID: "c", Email: ""},
		{OwnerID: "u", CampaignID: "c", Email: "kept@acme.com"},
	}
	out := PrepareContacts(in)

	require.Len(t, out, 1)
	assert.Equal(t, "kept@acme.com", out[0].Email)
}

func TestPrepareContacts_LaterDuplicateWins(t *testing.T) {
	t.Parallel()

	in := []EnrichedContact{
		{OwnerID: "u", CampaignID: "c", Email: "Jane@Acme.com", Title: "first"},
		{OwnerID: "u", CampaignID: "c", Email: "other@acme.com", Title: "other"},
		{OwnerID: "u", CampaignID: "c", Email: "jane@acme.com", Title: "second"},
		{OwnerID: "u", CampaignID: "c2", Email: "jane@acme.com", Title: "other campaign"},
	}
	out := PrepareContacts(in)

	require.Len(t, out, 3)
	assert.Equal(t, "second", out[0].Title)
	assert.Equal(t, "jane@acme.com", out[0].Email)
	assert.Equal(t, "other", out[1].Title)
	assert.Equal(t, "other campaign", out[2].Title)
}

package model

import (
	"fmt"
	"strings"
)

// Default values applied when the detail bundle is silent.
const (
	DefaultPrivacy      = "Normal"
	DefaultSourceDetail = "FinalScout"
)

// EnrichedContact is the merged, persistable contact record.
type EnrichedContact struct {
	OwnerID    string `json:"user_id"`
	CampaignID string `json:"campaign_id"`

	FirstName       string      `json:"first_name"`
	LastName        string      `json:"last_name"`
	FullName        string      `json:"full_name"`
	Email           string      `json:"email"`
	EmailStatus     EmailStatus `json:"email_status"`
	EmailConfidence Confidence  `json:"email_confidence"`
	EmailType       string      `json:"email_type"`
	Privacy         string      `json:"privacy"`
	Tags            string      `json:"tags"`

	LinkedIn         string `json:"linkedin"`
	Headline         string `json:"headline"`
	Title            string `json:"title"`
	Location         string `json:"location"`
	Company          string `json:"company"`
	Industry         string `json:"industry"`
	Website          string `json:"website"`
	ImageURL         string `json:"image_url"`
	ConnectionDegree string `json:"connection_degree"`
	SourceDetail     string `json:"source_detail"`
	Note             string `json:"note"`

	SearchKeyword  string `json:"search_keyword"`
	SearchLocation string `json:"search_location"`
	SearchIndustry string `json:"search_industry"`

	CompanyCity       string `json:"company_city"`
	CompanyState      string `json:"company_state"`
	CompanyCountry    string `json:"company_country"`
	CompanyPostalCode string `json:"company_postal_code"`
	CompanyRawAddress string `json:"company_raw_address"`
	CompanyPhone      string `json:"company_phone"`
	CompanyDomain     string `json:"company_domain"`
	CompanyLinkedIn   string `json:"company_linkedin"`
	CompanyStaffCount string `json:"company_staff_count"`

	ContactCreatedAt string `json:"contact_created_at_ts"`
	ContactUpdatedAt string `json:"contact_latest_update_ts"`
}

// MergeContact combines a search result, its e-mail resolution and the
// optional detail bundle into one contact. Every field has a defined
// source; detail values win over search values where both exist.
func MergeContact(p CandidatePerson, res EmailResolution, d DetailBundle, ownerID, campaignID string) EnrichedContact {
	full := firstNonEmpty(p.FullName, d.FullName)
	first, last := SplitName(full)
	if d.FirstName != "" && first == "" {
		first = d.FirstName
	}
	if d.LastName != "" && last == "" {
		last = d.LastName
	}

	addr, found := res.Email.Address()
	if !found {
		addr = ""
	}

	c := EnrichedContact{
		OwnerID:    ownerID,
		CampaignID: campaignID,

		FirstName:       first,
		LastName:        last,
		FullName:        full,
		Email:           addr,
		EmailStatus:     res.Confidence.Status(),
		EmailConfidence: res.Confidence,
		EmailType:       d.EmailType,
		Privacy:         firstNonEmpty(d.Privacy, DefaultPrivacy),

		LinkedIn:         p.ProfileURL,
		Headline:         p.Headline,
		Title:            firstNonEmpty(d.Title, p.Headline),
		Location:         firstNonEmpty(d.Location, p.Location),
		Company:          d.Company,
		Industry:         firstNonEmpty(d.Industry, p.SearchIndustry),
		Website:          d.Website,
		ImageURL:         firstNonEmpty(d.AvatarURL, p.AvatarURL),
		ConnectionDegree: p.ConnectionDegree,
		SourceDetail:     firstNonEmpty(d.Source, DefaultSourceDetail),

		SearchKeyword:  p.SearchKeyword,
		SearchLocation: p.SearchLocation,
		SearchIndustry: p.SearchIndustry,

		CompanyCity:       d.CompanyCity,
		CompanyState:      d.CompanyState,
		CompanyCountry:    d.CompanyCountry,
		CompanyPostalCode: d.CompanyPostalCode,
		CompanyRawAddress: d.CompanyRawAddress,
		CompanyPhone:      d.CompanyPhone,
		CompanyDomain:     d.CompanyDomain,
		CompanyLinkedIn:   d.CompanyLinkedIn,
		CompanyStaffCount: d.CompanyStaffCount,

		ContactCreatedAt: d.CreatedAt,
		ContactUpdatedAt: d.UpdatedAt,
	}
	c.Note = fmt.Sprintf("Source: %s. Search: %s in %s", c.SourceDetail, p.SearchKeyword, p.SearchLocation)
	return c
}

// ContactKey is the persistence identity of a contact.
type ContactKey struct {
	OwnerID    string
	CampaignID string
	Email      string
}

// Key returns the contact's identity; the e-mail part is lower-cased.
func (c EnrichedContact) Key() ContactKey {
	return ContactKey{
		OwnerID:    c.OwnerID,
		CampaignID: c.CampaignID,
		Email:      strings.ToLower(strings.TrimSpace(c.Email)),
	}
}

// Valid reports whether the contact may be written: it needs a usable
// e-mail and both ownership stamps.
func (c EnrichedContact) Valid() bool {
	return ValidEmail(c.Email) && c.OwnerID != "" && c.CampaignID != ""
}

// PrepareContacts drops invalid contacts and collapses duplicates on Key.
// The later record wins and takes the position of the first occurrence.
func PrepareContacts(in []EnrichedContact) []EnrichedContact {
	out := make([]EnrichedContact, 0, len(in))
	index := make(map[ContactKey]int, len(in))
	for _, c := range in {
		if !c.Valid() {
			continue
		}
		c.Email = strings.TrimSpace(c.Email)
		k := c.Key()
		if i, ok := index[k]; ok {
			out[i] = c
			continue
		}
		index[k] = len(out)
		out = append(out, c)
	}
	return out
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if v != "" {
			return v
		}
	}
	return ""
}

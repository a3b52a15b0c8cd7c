package model

// Canonical detail keys produced by the contact-detail label dictionary.
const (
	DetailFirstName         = "first_name"
	DetailLastName          = "last_name"
	DetailFullName          = "full_name"
	DetailEmail             = "email"
	DetailEmailType         = "email_type"
	DetailLinkedIn          = "linkedin"
	DetailSource            = "source_detail"
	DetailPrivacy           = "privacy_label"
	DetailTitle             = "title"
	DetailCompany           = "company"
	DetailWebsite           = "website"
	DetailLocation          = "location"
	DetailIndustry          = "industry"
	DetailCompanyCity       = "company_city"
	DetailCompanyState      = "company_state"
	DetailCompanyCountry    = "company_country"
	DetailCompanyPostalCode = "company_postal_code"
	DetailCompanyRawAddress = "company_raw_address"
	DetailCompanyPhone      = "company_phone"
	DetailCompanyDomain     = "company_domain"
	DetailCompanyLinkedIn   = "company_linkedin"
	DetailCompanyStaffCount = "company_staff_count"
	DetailCreatedAt         = "contact_created_at_ts"
	DetailUpdatedAt         = "contact_latest_update_ts"
	DetailAvatarURL         = "avatar_url"
)

// DetailRef identifies the person whose contact detail is requested.
type DetailRef struct {
	ProfileURL string
	NameHint   string
	DetailURL  string
}

// DetailBundle is the optional contact detail scraped from the enrichment
// tool. Absent fields are empty strings.
type DetailBundle struct {
	FirstName         string            `json:"first_name,omitempty"`
	LastName          string            `json:"last_name,omitempty"`
	FullName          string            `json:"full_name,omitempty"`
	Email             string            `json:"email,omitempty"`
	EmailType         string            `json:"email_type,omitempty"`
	LinkedIn          string            `json:"linkedin,omitempty"`
	Source            string            `json:"source_detail,omitempty"`
	Privacy           string            `json:"privacy_label,omitempty"`
	Title             string            `json:"title,omitempty"`
	Company           string            `json:"company,omitempty"`
	Website           string            `json:"website,omitempty"`
	Location          string            `json:"location,omitempty"`
	Industry          string            `json:"industry,omitempty"`
	CompanyCity       string            `json:"company_city,omitempty"`
	CompanyState      string            `json:"company_state,omitempty"`
	CompanyCountry    string            `json:"company_country,omitempty"`
	CompanyPostalCode string            `json:"company_postal_code,omitempty"`
	CompanyRawAddress string            `json:"company_raw_address,omitempty"`
	CompanyPhone      string            `json:"company_phone,omitempty"`
	CompanyDomain     string            `json:"company_domain,omitempty"`
	CompanyLinkedIn   string            `json:"company_linkedin,omitempty"`
	CompanyStaffCount string            `json:"company_staff_count,omitempty"`
	CreatedAt         string            `json:"contact_created_at_ts,omitempty"`
	UpdatedAt         string            `json:"contact_latest_update_ts,omitempty"`
	AvatarURL         string            `json:"avatar_url,omitempty"`
	Extra             map[string]string `json:"extra,omitempty"`
}

// Set assigns value to the field named by a canonical key. Unknown keys
// land in Extra.
func (d *DetailBundle) Set(key, value string) {
	if value == "" {
		return
	}
	if f := d.field(key); f != nil {
		*f = value
		return
	}
	if d.Extra == nil {
		d.Extra = make(map[string]string)
	}
	d.Extra[key] = value
}

func (d *DetailBundle) field(key string) *string {
	switch key {
	case DetailFirstName:
		return &d.FirstName
	case DetailLastName:
		return &d.LastName
	case DetailFullName:
		return &d.FullName
	case DetailEmail:
		return &d.Email
	case DetailEmailType:
		return &d.EmailType
	case DetailLinkedIn:
		return &d.LinkedIn
	case DetailSource:
		return &d.Source
	case DetailPrivacy:
		return &d.Privacy
	case DetailTitle:
		return &d.Title
	case DetailCompany:
		return &d.Company
	case DetailWebsite:
		return &d.Website
	case DetailLocation:
		return &d.Location
	case DetailIndustry:
		return &d.Industry
	case DetailCompanyCity:
		return &d.CompanyCity
	case DetailCompanyState:
		return &d.CompanyState
	case DetailCompanyCountry:
		return &d.CompanyCountry
	case DetailCompanyPostalCode:
		return &d.CompanyPostalCode
	case DetailCompanyRawAddress:
		return &d.CompanyRawAddress
	case DetailCompanyPhone:
		return &d.CompanyPhone
	case DetailCompanyDomain:
		return &d.CompanyDomain
	case DetailCompanyLinkedIn:
		return &d.CompanyLinkedIn
	case DetailCompanyStaffCount:
		return &d.CompanyStaffCount
	case DetailCreatedAt:
		return &d.CreatedAt
	case DetailUpdatedAt:
		return &d.UpdatedAt
	case DetailAvatarURL:
		return &d.AvatarURL
	}
	return nil
}

// IsEmpty reports whether no detail was captured ("enrichment unavailable").
func (d DetailBundle) IsEmpty() bool {
	if len(d.Extra) > 0 {
		return false
	}
	for _, k := range detailKeys {
		if *d.field(k) != "" {
			return false
		}
	}
	return true
}

var detailKeys = []string{
	DetailFirstName, DetailLastName, DetailFullName, DetailEmail, DetailEmailType,
	DetailLinkedIn, DetailSource, DetailPrivacy, DetailTitle, DetailCompany,
	DetailWebsite, DetailLocation, DetailIndustry, DetailCompanyCity,
	DetailCompanyState, DetailCompanyCountry, DetailCompanyPostalCode,
	DetailCompanyRawAddress, DetailCompanyPhone, DetailCompanyDomain,
	DetailCompanyLinkedIn, DetailCompanyStaffCount, DetailCreatedAt,
	DetailUpdatedAt, DetailAvatarURL,
}

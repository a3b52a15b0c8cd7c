// Package outreach formats enriched contacts as Instantly leads and uploads
// them.
package outreach

import (
	"strings"
	"time"

	"github.com/sells-group/leadgen-cli/internal/model"
	"github.com/sells-group/leadgen-cli/pkg/instantly"
)

const importedDateLayout = "2006-01-02 15:04:05"

// FormatLead maps a contact to an Instantly lead. ok is false when the
// contact has no usable e-mail.
func FormatLead(c model.EnrichedContact, now time.Time) (lead instantly.Lead, ok bool) {
	email := strings.TrimSpace(c.Email)
	if !model.ValidEmail(email) {
		return instantly.Lead{}, false
	}

	first, last := model.SplitName(c.FullName)
	lead = instantly.Lead{
		Email:       email,
		FirstName:   first,
		LastName:    last,
		LinkedInURL: c.LinkedIn,
		JobTitle:    c.Headline,
		Location:    c.Location,
		CompanyName: CompanyFromHeadline(c.Headline),
	}

	vars := map[string]string{}
	for k, v := range map[string]string{
		"search_keyword":    c.SearchKeyword,
		"search_location":   c.SearchLocation,
		"search_industry":   c.SearchIndustry,
		"connection_degree": c.ConnectionDegree,
		"email_confidence":  string(c.EmailConfidence),
	} {
		if v != "" {
			vars[k] = v
		}
	}
	vars["imported_date"] = now.Format(importedDateLayout)
	lead.CustomVariables = vars
	return lead, true
}

// CompanyFromHeadline takes the text after the last " at ", or failing
// that the last " @ ".
func CompanyFromHeadline(headline string) string {
	for _, sep := range []string{" at ", " @ "} {
		if i := strings.LastIndex(headline, sep); i >= 0 {
			return strings.TrimSpace(headline[i+len(sep):])
		}
	}
	return ""
}

package linkedin

import (
	"net/url"
	"strconv"
	"strings"
)

// Combination is one keyword × location × industry search.
type Combination struct {
	Keyword    string
	Location   string
	LocationID string
	Industry   string
	IndustryID string
}

func (c Combination) String() string {
	return c.Keyword + " | " + c.Location + " | " + c.Industry
}

// BuildSearchURL returns the people-search URL for a combination and page.
func BuildSearchURL(baseURL string, c Combination, page int) string {
	params := url.Values{}
	params.Set("keywords", c.Keyword)
	params.Set("origin", "FACETED_SEARCH")
	if c.LocationID != "" {
		params.Set("geoUrn", `["`+c.LocationID+`"]`)
	}
	if c.IndustryID != "" {
		params.Set("industry", `["`+c.IndustryID+`"]`)
	}
	if page > 0 {
		params.Set("page", strconv.Itoa(page))
	}
	return strings.TrimRight(baseURL, "/") + "/search/results/people/?" + params.Encode()
}

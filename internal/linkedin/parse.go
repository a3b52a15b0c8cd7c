package linkedin

import (
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/leadgen-cli/internal/model"
)

// Result-card selectors.
const (
	profileLinkSelector = "a[href*='/in/']"
	headlineSelector    = "div[class*='t-black t-normal']"
	locationSelector    = "div[class*='t-14 t-normal']"
	avatarSelector      = "img[class*='ivm-view-attr__img--centered']"
	// :contains also matches ancestors; the innermost match is last.
	connectionSelector = "span:contains('degree connection')"
)

// ParseResults extracts candidate people from a search-results page. Rows
// missing a name or profile link are skipped; optional fields default to
// empty. Profile URLs are normalized here and nowhere else.
func ParseResults(html, baseURL string, c Combination) ([]model.CandidatePerson, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return nil, eris.Wrap(err, "linkedin: parse results html")
	}

	var out []model.CandidatePerson
	seen := make(map[string]bool)
	doc.Find("li").Each(func(_ int, li *goquery.Selection) {
		link := li.Find(profileLinkSelector).First()
		if link.Length() == 0 {
			return
		}
		href, _ := link.Attr("href")
		profileURL := model.NormalizeProfileURL(absolute(baseURL, href))
		name := cardName(link)
		if profileURL == "" || name == "" {
			zap.L().Debug("linkedin: skipping unreadable card",
				zap.String("combination", c.String()),
				zap.String("profile_url", profileURL),
			)
			return
		}
		if seen[profileURL] {
			return
		}
		seen[profileURL] = true

		avatar, _ := li.Find(avatarSelector).First().Attr("src")
		out = append(out, model.CandidatePerson{
			FullName:         name,
			ProfileURL:       profileURL,
			Headline:         cleanText(li.Find(headlineSelector).First().Text()),
			Location:         cleanText(li.Find(locationSelector).First().Text()),
			AvatarURL:        strings.TrimSpace(avatar),
			ConnectionDegree: cleanText(li.Find(connectionSelector).Last().Text()),
			SearchKeyword:    c.Keyword,
			SearchLocation:   c.Location,
			SearchIndustry:   c.Industry,
			Source:           model.SourceLinkedIn,
		})
	})
	return out, nil
}

// cardName reads the visible name from the profile link. LinkedIn pairs an
// aria-hidden span with a visually hidden "View X's profile" span.
func cardName(link *goquery.Selection) string {
	span := link.Find("span[aria-hidden='true']").First()
	if span.Length() == 0 {
		span = link.Find("span").First()
	}
	if span.Length() == 0 {
		return ""
	}
	text := strings.TrimSpace(span.Text())
	if i := strings.IndexByte(text, '\n'); i >= 0 {
		text = text[:i]
	}
	return strings.TrimSpace(text)
}

func cleanText(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

func absolute(baseURL, href string) string {
	href = strings.TrimSpace(href)
	if strings.HasPrefix(href, "/") {
		return strings.TrimRight(baseURL, "/") + href
	}
	return href
}

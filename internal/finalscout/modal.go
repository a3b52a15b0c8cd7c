package finalscout

import (
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/rotisserie/eris"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/sells-group/leadgen-cli/internal/model"
)

// Contact-detail modal selectors.
const (
	modalSelector       = "#contact_detail_modal___BV_modal_body_"
	avatarImgSelector   = ".b-avatar-img img, img.b-avatar-img, img.avatar, .b-avatar img"
	avatarStyleSelector = ".b-avatar, .b-avatar-img"
	modalCloseSelector  = ".modal-header .close, .btn-close, [data-dismiss='modal'], .modal .close"
	contactNameSelector = "span.font-weight-bold.text-primary.text-link"
	contactRowSelector  = "table tbody tr"
	contactLinkSelector = "a[href*='linkedin.com']"
)

// labelKeys maps normalized modal labels to canonical detail keys.
var labelKeys = map[string]string{
	"first name":          model.DetailFirstName,
	"last name":           model.DetailLastName,
	"full name":           model.DetailFullName,
	"email":               model.DetailEmail,
	"email type":          model.DetailEmailType,
	"linkedin":            model.DetailLinkedIn,
	"source":              model.DetailSource,
	"privacy":             model.DetailPrivacy,
	"title":               model.DetailTitle,
	"company":             model.DetailCompany,
	"website":             model.DetailWebsite,
	"location":            model.DetailLocation,
	"industry":            model.DetailIndustry,
	"company city":        model.DetailCompanyCity,
	"company state":       model.DetailCompanyState,
	"company country":     model.DetailCompanyCountry,
	"company postal code": model.DetailCompanyPostalCode,
	"company raw address": model.DetailCompanyRawAddress,
	"company phone":       model.DetailCompanyPhone,
	"company domain":      model.DetailCompanyDomain,
	"company linkedin":    model.DetailCompanyLinkedIn,
	"company staff count": model.DetailCompanyStaffCount,
	"created at":          model.DetailCreatedAt,
	"latest update":       model.DetailUpdatedAt,
}

var (
	lower           = cases.Lower(language.Und)
	backgroundImage = regexp.MustCompile(`(?i)background-image\s*:\s*url\((['"]?)(.*?)['"]?\)`)
)

// normalizeLabel lower-cases a modal label and strips its trailing colon.
func normalizeLabel(s string) string {
	s = strings.Join(strings.Fields(lower.String(s)), " ")
	return strings.TrimSpace(strings.TrimRight(s, ":"))
}

// labelKey maps a label through the dictionary; unknown labels become
// snake case.
func labelKey(label string) string {
	if k, ok := labelKeys[label]; ok {
		return k
	}
	return strings.ReplaceAll(label, " ", "_")
}

// ParseModal reads the label/value table and avatar from the contact-detail
// modal HTML.
func ParseModal(html string) (model.DetailBundle, error) {
	var d model.DetailBundle
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return d, eris.Wrap(err, "finalscout: parse modal html")
	}

	d.Set(model.DetailAvatarURL, avatarURL(doc.Selection))

	dts := doc.Find("dt")
	dds := doc.Find("dd")
	n := min(dts.Length(), dds.Length())
	for i := range n {
		label := normalizeLabel(dts.Eq(i).Text())
		if label == "" {
			continue
		}
		d.Set(labelKey(label), cellValue(dds.Eq(i)))
	}
	return d, nil
}

// cellValue prefers a link's href over the visible text.
func cellValue(dd *goquery.Selection) string {
	if a := dd.Find("a").First(); a.Length() > 0 {
		if href, ok := a.Attr("href"); ok && strings.TrimSpace(href) != "" {
			return strings.TrimSpace(href)
		}
		return strings.TrimSpace(a.Text())
	}
	return strings.TrimSpace(dd.Text())
}

// avatarURL returns an <img> source, then an inline background-image URL;
// initials-only avatars yield "".
func avatarURL(s *goquery.Selection) string {
	if src, ok := s.Find(avatarImgSelector).First().Attr("src"); ok && strings.TrimSpace(src) != "" {
		return strings.TrimSpace(src)
	}
	var out string
	s.Find(avatarStyleSelector).EachWithBreak(func(_ int, el *goquery.Selection) bool {
		style, _ := el.Attr("style")
		if m := backgroundImage.FindStringSubmatch(style); m != nil && strings.TrimSpace(m[2]) != "" {
			out = strings.TrimSpace(m[2])
			return false
		}
		return true
	})
	return out
}

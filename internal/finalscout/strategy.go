package finalscout

import (
	"context"
	"fmt"
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/rotisserie/eris"

	"github.com/sells-group/leadgen-cli/internal/browser"
	"github.com/sells-group/leadgen-cli/internal/model"
)

// DetailStrategy is one way of reaching a contact's detail modal. An empty
// bundle with a nil error means the strategy did not apply.
type DetailStrategy interface {
	Name() string
	Lookup(ctx context.Context, ref model.DetailRef) (model.DetailBundle, error)
}

var errNoModal = eris.New("finalscout: detail modal not reached")

// directLink opens a previously stored detail URL.
type directLink struct{ e *Engine }

func (directLink) Name() string { return "direct-link" }

func (s directLink) Lookup(ctx context.Context, ref model.DetailRef) (model.DetailBundle, error) {
	if ref.DetailURL == "" {
		return model.DetailBundle{}, nil
	}
	e := s.e
	if err := e.session.Navigate(ctx, ref.DetailURL); err != nil {
		return model.DetailBundle{}, eris.Wrap(err, "finalscout: open detail url")
	}
	if err := browser.Pause(ctx, e.cfg.SettleDelay); err != nil {
		return model.DetailBundle{}, err
	}
	if d, err := e.readModal(ctx); err == nil {
		return d, nil
	}

	var selectors []string
	if cid := contactID(ref.DetailURL); cid != "" {
		selectors = append(selectors,
			fmt.Sprintf("tr[data-id='%s'] %s", cid, contactNameSelector),
			fmt.Sprintf("a[href*='contact=%s'] %s", cid, contactNameSelector),
			fmt.Sprintf("a[href*='contact=%s']", cid),
		)
	}
	selectors = append(selectors, contactNameSelector)

	for _, sel := range selectors {
		if err := ctx.Err(); err != nil {
			return model.DetailBundle{}, err
		}
		if err := e.session.Click(ctx, sel); err != nil {
			continue
		}
		if d, err := e.readModal(ctx); err == nil {
			return d, nil
		}
	}
	return model.DetailBundle{}, errNoModal
}

// contactID returns the "contact" query parameter of a detail URL.
func contactID(detailURL string) string {
	u, err := url.Parse(detailURL)
	if err != nil {
		return ""
	}
	return strings.TrimSpace(u.Query().Get("contact"))
}

// identityMatch searches the contact list by name and opens the row whose
// LinkedIn link is the profile being enriched.
type identityMatch struct{ e *Engine }

func (identityMatch) Name() string { return "identity-match" }

func (s identityMatch) Lookup(ctx context.Context, ref model.DetailRef) (model.DetailBundle, error) {
	e := s.e
	q := url.Values{"keywords": {ref.NameHint}, "privacy": {"0"}}
	if err := e.session.Navigate(ctx, e.url("/app/contacts/?"+q.Encode())); err != nil {
		return model.DetailBundle{}, eris.Wrap(err, "finalscout: open contact list")
	}
	if err := browser.Pause(ctx, e.cfg.SettleDelay); err != nil {
		return model.DetailBundle{}, err
	}

	doc, err := e.document(ctx)
	if err != nil {
		return model.DetailBundle{}, err
	}
	want := identityKey(ref.ProfileURL)
	idx := -1
	doc.Find(contactNameSelector).EachWithBreak(func(i int, name *goquery.Selection) bool {
		row := name.Closest(contactRowSelector)
		row.Find(contactLinkSelector).EachWithBreak(func(_ int, a *goquery.Selection) bool {
			href, _ := a.Attr("href")
			if identityKey(href) == want {
				idx = i
			}
			return idx < 0
		})
		return idx < 0
	})
	if idx < 0 {
		return model.DetailBundle{}, nil
	}

	if err := e.session.ClickNth(ctx, contactNameSelector, idx); err != nil {
		return model.DetailBundle{}, eris.Wrap(err, "finalscout: open matched contact")
	}
	return e.readModal(ctx)
}

// identityKey reduces a profile URL to a comparable form. It applies the
// same normalization as persisted profile URLs.
func identityKey(raw string) string {
	s := strings.ToLower(model.NormalizeProfileURL(raw))
	s = strings.TrimPrefix(s, "https://")
	s = strings.TrimPrefix(s, "http://")
	s = strings.TrimPrefix(s, "www.")
	return strings.TrimRight(s, "/")
}

// nameSearch searches the contact list by name and opens the entry whose
// visible name matches, else the first entry.
type nameSearch struct{ e *Engine }

func (nameSearch) Name() string { return "name-search" }

func (s nameSearch) Lookup(ctx context.Context, ref model.DetailRef) (model.DetailBundle, error) {
	hint := strings.TrimSpace(ref.NameHint)
	if hint == "" {
		return model.DetailBundle{}, nil
	}
	e := s.e
	q := url.Values{"cursor": {""}, "keywords": {hint}, "privacy": {"0"}}
	if err := e.session.Navigate(ctx, e.url("/app/contacts/?"+q.Encode())); err != nil {
		return model.DetailBundle{}, eris.Wrap(err, "finalscout: open contact search")
	}
	if err := browser.Pause(ctx, e.cfg.SettleDelay); err != nil {
		return model.DetailBundle{}, err
	}

	doc, err := e.document(ctx)
	if err != nil {
		return model.DetailBundle{}, err
	}
	idx := -1
	doc.Find(contactNameSelector).EachWithBreak(func(i int, name *goquery.Selection) bool {
		if strings.EqualFold(strings.TrimSpace(name.Text()), hint) {
			idx = i
		}
		return idx < 0
	})
	if idx < 0 {
		if err := e.session.WaitVisible(ctx, contactNameSelector, e.cfg.ModalWait); err != nil {
			return model.DetailBundle{}, nil
		}
		idx = 0
	}

	if err := e.session.ClickNth(ctx, contactNameSelector, idx); err != nil {
		return model.DetailBundle{}, eris.Wrap(err, "finalscout: open contact")
	}
	if err := browser.Pause(ctx, e.cfg.SettleDelay); err != nil {
		return model.DetailBundle{}, err
	}
	return e.readModal(ctx)
}

func (e *Engine) document(ctx context.Context) (*goquery.Document, error) {
	html, err := e.session.HTML(ctx, "body")
	if err != nil {
		return nil, eris.Wrap(err, "finalscout: read page")
	}
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return nil, eris.Wrap(err, "finalscout: parse page")
	}
	return doc, nil
}

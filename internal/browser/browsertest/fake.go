// Package browsertest provides an in-memory browser.Session that serves
// canned HTML and answers selector queries with goquery.
package browsertest

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/PuerkitoBio/goquery"

	"github.com/sells-group/leadgen-cli/internal/browser"
)

const blankPage = "<html><head></head><body></body></html>"

// ClickFunc reacts to a click, typically by swapping the current page.
type ClickFunc func(f *Fake, n int) error

// Fake is a scripted browser.Session. Pages maps URLs to HTML; unknown URLs
// render an empty body.
type Fake struct {
	mu sync.Mutex

	Pages   map[string]string
	OnClick map[string]ClickFunc
	// NavigateFailures makes the next N navigations to a URL fail.
	NavigateFailures map[string]int

	Visited []string
	Clicks  []string
	Filled  map[string]string
	Escapes int
	Closed  bool

	current string
	html    string
}

var _ browser.Session = (*Fake)(nil)

// New returns a Fake with the given pages.
func New(pages map[string]string) *Fake {
	if pages == nil {
		pages = make(map[string]string)
	}
	return &Fake{
		Pages:            pages,
		OnClick:          make(map[string]ClickFunc),
		NavigateFailures: make(map[string]int),
		Filled:           make(map[string]string),
		html:             blankPage,
	}
}

// Show replaces the current document without recording a navigation.
func (f *Fake) Show(url, html string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.current = url
	f.html = html
}

// Current returns the current URL.
func (f *Fake) Current() string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.current
}

// VisitedWith returns visited URLs containing substr, in order.
func (f *Fake) VisitedWith(substr string) []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []string
	for _, u := range f.Visited {
		if strings.Contains(u, substr) {
			out = append(out, u)
		}
	}
	return out
}

func (f *Fake) Navigate(ctx context.Context, url string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.Visited = append(f.Visited, url)
	if n := f.NavigateFailures[url]; n > 0 {
		f.NavigateFailures[url] = n - 1
		return fmt.Errorf("navigate %s: net::ERR_TIMED_OUT", url)
	}
	f.current = url
	if html, ok := f.Pages[url]; ok {
		f.html = html
	} else {
		f.html = blankPage
	}
	return nil
}

func (f *Fake) find(selector string) (*goquery.Selection, error) {
	f.mu.Lock()
	html := f.html
	f.mu.Unlock()
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return nil, err
	}
	return doc.Find(selector), nil
}

func (f *Fake) WaitVisible(ctx context.Context, selector string, _ time.Duration) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	sel, err := f.find(selector)
	if err != nil {
		return err
	}
	if sel.Length() == 0 {
		return fmt.Errorf("wait visible %s: %w", selector, context.DeadlineExceeded)
	}
	return nil
}

func (f *Fake) Fill(ctx context.Context, selector, value string) error {
	if err := f.WaitVisible(ctx, selector, 0); err != nil {
		return err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.Filled[selector] = value
	return nil
}

func (f *Fake) Click(ctx context.Context, selector string) error {
	return f.ClickNth(ctx, selector, 0)
}

func (f *Fake) ClickNth(ctx context.Context, selector string, n int) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	sel, err := f.find(selector)
	if err != nil {
		return err
	}
	if sel.Length() <= n {
		return fmt.Errorf("click %s[%d]: element not found", selector, n)
	}
	f.mu.Lock()
	f.Clicks = append(f.Clicks, fmt.Sprintf("%s[%d]", selector, n))
	fn := f.OnClick[selector]
	f.mu.Unlock()
	if fn != nil {
		return fn(f, n)
	}
	return nil
}

func (f *Fake) PressEscape(ctx context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.Escapes++
	return ctx.Err()
}

func (f *Fake) HTML(ctx context.Context, selector string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	sel, err := f.find(selector)
	if err != nil {
		return "", err
	}
	if sel.Length() == 0 {
		return "", fmt.Errorf("outer html %s: %w", selector, context.DeadlineExceeded)
	}
	return goquery.OuterHtml(sel.First())
}

func (f *Fake) Text(ctx context.Context, selector string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	sel, err := f.find(selector)
	if err != nil {
		return "", err
	}
	if sel.Length() == 0 {
		return "", fmt.Errorf("text %s: %w", selector, context.DeadlineExceeded)
	}
	return strings.TrimSpace(sel.First().Text()), nil
}

func (f *Fake) Location(ctx context.Context) (string, error) {
	return f.Current(), ctx.Err()
}

func (f *Fake) ScrollToBottom(ctx context.Context) error {
	return ctx.Err()
}

func (f *Fake) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.Closed = true
	return nil
}

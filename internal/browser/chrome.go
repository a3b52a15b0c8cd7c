package browser

import (
	"context"
	"fmt"
	"time"

	"github.com/chromedp/chromedp"
	"github.com/chromedp/chromedp/kb"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"
)

// Options configures a Chrome session.
type Options struct {
	Headless  bool
	ExecPath  string
	UserAgent string
	// Timeout bounds every action that has no explicit wait. Default: 30s.
	Timeout time.Duration
}

// Chrome is a Session backed by a chromedp-controlled Chrome process.
type Chrome struct {
	ctx         context.Context
	cancel      context.CancelFunc
	allocCancel context.CancelFunc
	timeout     time.Duration
}

var _ Session = (*Chrome)(nil)

// NewChrome launches Chrome and opens a blank tab. The browser lives until
// Close; per-call contexts only bound individual actions.
func NewChrome(opts Options) (*Chrome, error) {
	if opts.Timeout <= 0 {
		opts.Timeout = 30 * time.Second
	}

	allocOpts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.Flag("headless", opts.Headless),
		chromedp.Flag("no-sandbox", true),
		chromedp.Flag("disable-gpu", true),
		chromedp.Flag("disable-dev-shm-usage", true),
		chromedp.Flag("disable-blink-features", "AutomationControlled"),
		chromedp.WindowSize(1920, 1080),
	)
	if opts.UserAgent != "" {
		allocOpts = append(allocOpts, chromedp.UserAgent(opts.UserAgent))
	}
	if opts.ExecPath != "" {
		allocOpts = append(allocOpts, chromedp.ExecPath(opts.ExecPath))
	}

	allocCtx, allocCancel := chromedp.NewExecAllocator(context.Background(), allocOpts...)
	bctx, cancel := chromedp.NewContext(allocCtx)

	if err := chromedp.Run(bctx, chromedp.Navigate("about:blank")); err != nil {
		cancel()
		allocCancel()
		return nil, eris.Wrap(err, "browser: start chrome")
	}

	zap.L().Info("browser: chrome started", zap.Bool("headless", opts.Headless))

	return &Chrome{
		ctx:         bctx,
		cancel:      cancel,
		allocCancel: allocCancel,
		timeout:     opts.Timeout,
	}, nil
}

// run executes actions against the tab, bounded by timeout and by the
// caller's ctx.
func (c *Chrome) run(ctx context.Context, timeout time.Duration, actions ...chromedp.Action) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if timeout <= 0 {
		timeout = c.timeout
	}
	rctx, cancel := context.WithTimeout(c.ctx, timeout)
	defer cancel()
	stop := context.AfterFunc(ctx, cancel)
	defer stop()

	return chromedp.Run(rctx, actions...)
}

func (c *Chrome) Navigate(ctx context.Context, url string) error {
	err := c.run(ctx, 0,
		chromedp.Navigate(url),
		chromedp.WaitReady("body", chromedp.ByQuery),
	)
	return eris.Wrapf(err, "browser: navigate %s", url)
}

func (c *Chrome) WaitVisible(ctx context.Context, selector string, timeout time.Duration) error {
	err := c.run(ctx, timeout, chromedp.WaitVisible(selector, chromedp.ByQuery))
	return eris.Wrapf(err, "browser: wait visible %s", selector)
}

func (c *Chrome) Fill(ctx context.Context, selector, value string) error {
	err := c.run(ctx, 0,
		chromedp.WaitVisible(selector, chromedp.ByQuery),
		chromedp.SetValue(selector, "", chromedp.ByQuery),
		chromedp.SendKeys(selector, value, chromedp.ByQuery),
	)
	return eris.Wrapf(err, "browser: fill %s", selector)
}

func (c *Chrome) Click(ctx context.Context, selector string) error {
	return c.ClickNth(ctx, selector, 0)
}

// clickNthJS scrolls the element into view before clicking; result rows are
// often rendered off-screen.
const clickNthJS = `(() => {
	const els = document.querySelectorAll(%q);
	if (els.length <= %d) return false;
	const el = els[%d];
	el.scrollIntoView({block: 'center'});
	el.click();
	return true;
})()`

func (c *Chrome) ClickNth(ctx context.Context, selector string, n int) error {
	var ok bool
	err := c.run(ctx, 0, chromedp.Evaluate(fmt.Sprintf(clickNthJS, selector, n, n), &ok))
	if err != nil {
		return eris.Wrapf(err, "browser: click %s[%d]", selector, n)
	}
	if !ok {
		return eris.Errorf("browser: click %s[%d]: element not found", selector, n)
	}
	return nil
}

func (c *Chrome) PressEscape(ctx context.Context) error {
	err := c.run(ctx, 0, chromedp.KeyEvent(kb.Escape))
	return eris.Wrap(err, "browser: press escape")
}

func (c *Chrome) HTML(ctx context.Context, selector string) (string, error) {
	var html string
	if err := c.run(ctx, 0, chromedp.OuterHTML(selector, &html, chromedp.ByQuery)); err != nil {
		return "", eris.Wrapf(err, "browser: outer html %s", selector)
	}
	return html, nil
}

func (c *Chrome) Text(ctx context.Context, selector string) (string, error) {
	var text string
	if err := c.run(ctx, 0, chromedp.Text(selector, &text, chromedp.ByQuery, chromedp.NodeVisible)); err != nil {
		return "", eris.Wrapf(err, "browser: text %s", selector)
	}
	return text, nil
}

func (c *Chrome) Location(ctx context.Context) (string, error) {
	var loc string
	if err := c.run(ctx, 0, chromedp.Location(&loc)); err != nil {
		return "", eris.Wrap(err, "browser: location")
	}
	return loc, nil
}

func (c *Chrome) ScrollToBottom(ctx context.Context) error {
	err := c.run(ctx, 0, chromedp.Evaluate(`window.scrollTo(0, document.body.scrollHeight)`, nil))
	return eris.Wrap(err, "browser: scroll")
}

func (c *Chrome) Close() error {
	c.cancel()
	c.allocCancel()
	return nil
}

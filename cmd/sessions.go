package main

import (
	"context"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/leadgen-cli/internal/browser"
	"github.com/sells-group/leadgen-cli/internal/config"
	"github.com/sells-group/leadgen-cli/internal/finalscout"
	"github.com/sells-group/leadgen-cli/internal/linkedin"
	"github.com/sells-group/leadgen-cli/internal/outreach"
	"github.com/sells-group/leadgen-cli/internal/resilience"
	"github.com/sells-group/leadgen-cli/pkg/instantly"
)

func seconds(n int) time.Duration {
	return time.Duration(n) * time.Second
}

func millis(n int) time.Duration {
	return time.Duration(n) * time.Millisecond
}

func jitter(r config.DelayRange) browser.Jitter {
	return browser.Between(r.MinMs, r.MaxMs)
}

func chromeOptions(c *config.Config) browser.Options {
	return browser.Options{
		Headless:  c.Browser.Headless,
		ExecPath:  c.Browser.ExecPath,
		UserAgent: c.Browser.UserAgent,
	}
}

func linkedinConfig(c *config.Config) linkedin.Config {
	lc := linkedin.DefaultConfig()
	if c.LinkedIn.BaseURL != "" {
		lc.BaseURL = c.LinkedIn.BaseURL
	}
	lc.Email = c.LinkedIn.Email
	lc.Password = c.LinkedIn.Password
	if c.LinkedIn.Interactive {
		lc.Policy = linkedin.Interactive
	}
	if c.LinkedIn.LoginWaitSecs > 0 {
		lc.LoginWait = seconds(c.LinkedIn.LoginWaitSecs)
	}
	if c.LinkedIn.ExtendedWaitSecs > 0 {
		lc.ExtendedWait = seconds(c.LinkedIn.ExtendedWaitSecs)
	}
	if c.LinkedIn.PageAttempts > 0 {
		lc.PageRetry = resilience.FixedRetryConfig(c.LinkedIn.PageAttempts, seconds(c.LinkedIn.PageBackoffSecs))
	}
	if c.LinkedIn.PageDelay.MaxMs > 0 {
		lc.PageDelay = jitter(c.LinkedIn.PageDelay)
	}
	if c.LinkedIn.RenderDelay.MaxMs > 0 {
		lc.RenderDelay = jitter(c.LinkedIn.RenderDelay)
	}
	if c.LinkedIn.ScrollDelay.MaxMs > 0 {
		lc.ScrollDelay = jitter(c.LinkedIn.ScrollDelay)
	}
	return lc
}

func finalscoutConfig(c *config.Config) finalscout.Config {
	fc := finalscout.DefaultConfig()
	if c.FinalScout.BaseURL != "" {
		fc.BaseURL = c.FinalScout.BaseURL
	}
	fc.Email = c.FinalScout.Email
	fc.Password = c.FinalScout.Password
	if c.FinalScout.LookupDelayMs > 0 {
		fc.LookupSpacing = millis(c.FinalScout.LookupDelayMs)
	}
	if c.FinalScout.ResultWaitSecs > 0 {
		fc.ResultDelay = seconds(c.FinalScout.ResultWaitSecs)
	}
	if c.FinalScout.ModalWaitSecs > 0 {
		fc.ModalWait = seconds(c.FinalScout.ModalWaitSecs)
	}
	return fc
}

func outreachConfig(c *config.Config) outreach.Config {
	oc := outreach.DefaultConfig()
	oc.WorkspaceID = c.Instantly.WorkspaceID
	if c.Instantly.BatchSize > 0 {
		oc.BatchSize = c.Instantly.BatchSize
	}
	oc.LeadDelay = millis(c.Instantly.LeadDelayMs)
	oc.BatchDelay = millis(c.Instantly.BatchDelayMs)
	if c.Instantly.DashboardBase != "" {
		oc.DashboardBase = c.Instantly.DashboardBase
	}
	return oc
}

// chromeLauncher opens a fresh Chrome per engine so the enrichment browser
// never shares a tab with the search browser.
func chromeLauncher(c *config.Config) finalscout.Launcher {
	opts := chromeOptions(c)
	return func(context.Context) (browser.Session, error) {
		return browser.NewChrome(opts)
	}
}

func newEngine(c *config.Config) (*finalscout.Engine, error) {
	if err := c.ValidateFinalScout(); err != nil {
		return nil, err
	}
	return finalscout.New(chromeLauncher(c), finalscoutConfig(c)), nil
}

// openScraper launches Chrome and signs in to LinkedIn. The returned close
// func releases the browser.
func openScraper(ctx context.Context, c *config.Config) (*linkedin.Scraper, func(), error) {
	if err := c.ValidateLinkedIn(); err != nil {
		return nil, nil, err
	}
	facets, err := linkedin.LoadFacets(c.LinkedIn.FacetsFile)
	if err != nil {
		return nil, nil, err
	}
	session, err := browser.NewChrome(chromeOptions(c))
	if err != nil {
		return nil, nil, err
	}
	release := func() {
		if err := session.Close(); err != nil {
			zap.L().Warn("close linkedin browser", zap.Error(err))
		}
	}

	scraper := linkedin.New(session, facets, linkedinConfig(c))
	if err := scraper.Login(ctx); err != nil {
		release()
		return nil, nil, eris.Wrap(err, "linkedin login")
	}
	return scraper, release, nil
}

func newInstantly(c *config.Config) (instantly.Client, error) {
	if err := c.ValidateInstantly(); err != nil {
		return nil, err
	}
	opts := []instantly.Option{instantly.WithRateLimit(5)}
	if c.Instantly.BaseURL != "" {
		opts = append(opts, instantly.WithBaseURL(c.Instantly.BaseURL))
	}
	return instantly.NewClient(c.Instantly.APIKey, opts...), nil
}

// Package finalscout drives the FinalScout web tool: an e-mail finder keyed
// by LinkedIn profile URL and a contact list with a detail modal.
package finalscout

import (
	"context"
	"net/url"
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/sells-group/leadgen-cli/internal/browser"
	"github.com/sells-group/leadgen-cli/internal/model"
)

// Finder and login selectors.
const (
	signinEmailSelector    = "#input_email"
	signinPasswordSelector = "#input_password"
	signinSubmitSelector   = "#submit_form"
	finderInputSelector    = "input[placeholder^='https://www.linkedin.com/in/']"
	finderSubmitSelector   = "button.btn.btn-primary.btn-promise"
	finderResultSelector   = "div.finder-result"
)

// ErrNotStarted is returned by lookups before Start.
var ErrNotStarted = eris.New("finalscout: engine not started")

// Config tunes the engine's waits. Zero durations are valid and used by
// tests.
type Config struct {
	BaseURL  string
	Email    string
	Password string

	// LookupSpacing is the minimum gap between identity lookups.
	LookupSpacing time.Duration
	LoginWait     time.Duration
	LoginSettle   time.Duration
	FinderWait    time.Duration
	ResultDelay   time.Duration
	ResultWait    time.Duration
	ModalWait     time.Duration
	SettleDelay   time.Duration
	// CleanupTimeout bounds the return to the finder after a detail lookup.
	CleanupTimeout time.Duration
}

// DefaultConfig returns production waits.
func DefaultConfig() Config {
	return Config{
		BaseURL:        "https://finalscout.com",
		LookupSpacing:  2 * time.Second,
		LoginWait:      15 * time.Second,
		LoginSettle:    5 * time.Second,
		FinderWait:     10 * time.Second,
		ResultDelay:    8 * time.Second,
		ResultWait:     10 * time.Second,
		ModalWait:      8 * time.Second,
		SettleDelay:    2 * time.Second,
		CleanupTimeout: 30 * time.Second,
	}
}

// Launcher opens the browser session the engine drives.
type Launcher func(ctx context.Context) (browser.Session, error)

// Static returns a Launcher for an already open session.
func Static(s browser.Session) Launcher {
	return func(context.Context) (browser.Session, error) { return s, nil }
}

// Engine resolves e-mails and contact details for one identity at a time.
type Engine struct {
	launch     Launcher
	session    browser.Session
	cfg        Config
	limiter    *rate.Limiter
	strategies []DetailStrategy
}

// New creates an Engine. The browser is not launched until Start.
func New(launch Launcher, cfg Config) *Engine {
	cfg.BaseURL = strings.TrimRight(cfg.BaseURL, "/")
	limit := rate.Inf
	if cfg.LookupSpacing > 0 {
		limit = rate.Every(cfg.LookupSpacing)
	}
	e := &Engine{
		launch:  launch,
		cfg:     cfg,
		limiter: rate.NewLimiter(limit, 1),
	}
	e.strategies = []DetailStrategy{
		directLink{e: e},
		identityMatch{e: e},
		nameSearch{e: e},
	}
	return e
}

// Strategies returns the detail strategies in the order they are tried.
func (e *Engine) Strategies() []DetailStrategy {
	return e.strategies
}

// Start launches the browser and signs in.
func (e *Engine) Start(ctx context.Context) error {
	if e.session == nil {
		s, err := e.launch(ctx)
		if err != nil {
			return eris.Wrap(err, "finalscout: launch browser")
		}
		e.session = s
	}
	return e.Login(ctx)
}

// Close closes the browser session, if any.
func (e *Engine) Close() error {
	if e.session == nil {
		return nil
	}
	err := e.session.Close()
	e.session = nil
	return eris.Wrap(err, "finalscout: close browser")
}

func (e *Engine) url(path string) string {
	return e.cfg.BaseURL + path
}

func (e *Engine) finderURL() string {
	return e.url("/app/find/linkedin")
}

// Login signs in with e-mail and password and opens the finder tool.
func (e *Engine) Login(ctx context.Context) error {
	if e.session == nil {
		return ErrNotStarted
	}
	s := e.session
	signin := e.url("/account/signin?type=email&next=" + url.QueryEscape("/app/find/linkedin"))
	if err := s.Navigate(ctx, signin); err != nil {
		return eris.Wrap(err, "finalscout: open sign-in page")
	}
	if err := s.WaitVisible(ctx, signinEmailSelector, e.cfg.LoginWait); err != nil {
		return eris.Wrapf(browser.ErrAuthFailed, "finalscout: sign-in form not found: %v", err)
	}
	if err := s.Fill(ctx, signinEmailSelector, e.cfg.Email); err != nil {
		return eris.Wrapf(browser.ErrAuthFailed, "finalscout: fill email: %v", err)
	}
	if err := s.Fill(ctx, signinPasswordSelector, e.cfg.Password); err != nil {
		return eris.Wrapf(browser.ErrAuthFailed, "finalscout: fill password: %v", err)
	}
	if err := s.Click(ctx, signinSubmitSelector); err != nil {
		return eris.Wrapf(browser.ErrAuthFailed, "finalscout: submit sign-in: %v", err)
	}
	if err := browser.Pause(ctx, e.cfg.LoginSettle); err != nil {
		return err
	}
	if err := s.Navigate(ctx, e.finderURL()); err != nil {
		return eris.Wrap(err, "finalscout: open finder")
	}
	zap.L().Info("finalscout: logged in")
	return nil
}

// ResolveEmail looks up one profile URL in the finder. A result without "@"
// is NotFound; a timeout is Failed and also returns the error.
func (e *Engine) ResolveEmail(ctx context.Context, profileURL string) (model.EmailResolution, error) {
	if e.session == nil {
		return model.Unresolved(model.OutcomeFailed), ErrNotStarted
	}
	log := zap.L().With(zap.String("stage", "email_lookup"), zap.String("profile_url", profileURL))

	if err := e.limiter.Wait(ctx); err != nil {
		return model.Unresolved(model.OutcomeFailed), eris.Wrap(err, "finalscout: lookup spacing")
	}

	s := e.session
	if err := s.WaitVisible(ctx, finderInputSelector, e.cfg.FinderWait); err != nil {
		return model.Unresolved(model.OutcomeFailed), eris.Wrap(err, "finalscout: finder input")
	}
	if err := s.Fill(ctx, finderInputSelector, profileURL); err != nil {
		return model.Unresolved(model.OutcomeFailed), eris.Wrap(err, "finalscout: enter profile url")
	}
	if err := s.Click(ctx, finderSubmitSelector); err != nil {
		return model.Unresolved(model.OutcomeFailed), eris.Wrap(err, "finalscout: submit lookup")
	}
	if err := browser.Pause(ctx, e.cfg.ResultDelay); err != nil {
		return model.Unresolved(model.OutcomeFailed), err
	}
	if err := s.WaitVisible(ctx, finderResultSelector, e.cfg.ResultWait); err != nil {
		return model.Unresolved(model.OutcomeFailed), eris.Wrap(err, "finalscout: wait for result")
	}
	text, err := s.Text(ctx, finderResultSelector)
	if err != nil {
		return model.Unresolved(model.OutcomeFailed), eris.Wrap(err, "finalscout: read result")
	}

	addr := emailToken(text)
	if addr == "" {
		log.Info("finalscout: email not found")
		return model.Unresolved(model.OutcomeNotFound), nil
	}
	log.Info("finalscout: email found", zap.String("email", addr))
	return model.Resolved(addr, model.ConfidenceHigh), nil
}

// emailToken returns the first whitespace-separated token containing "@".
func emailToken(text string) string {
	for _, tok := range strings.Fields(text) {
		if strings.Contains(tok, "@") {
			return strings.Trim(tok, "<>()[],;:\"'")
		}
	}
	return ""
}

// ResolveDetails runs the detail strategies in order and returns the first
// non-empty bundle. Exhaustion yields an empty bundle. The engine always
// returns to the finder afterwards.
func (e *Engine) ResolveDetails(ctx context.Context, ref model.DetailRef) model.DetailBundle {
	var d model.DetailBundle
	if e.session == nil {
		return d
	}
	log := zap.L().With(zap.String("stage", "detail_lookup"), zap.String("profile_url", ref.ProfileURL))
	defer e.ReturnToFinder(ctx)

	for _, st := range e.strategies {
		if ctx.Err() != nil {
			return d
		}
		got, err := st.Lookup(ctx, ref)
		if err != nil {
			log.Debug("finalscout: detail strategy failed", zap.String("strategy", st.Name()), zap.Error(err))
			e.closeModal(ctx)
			continue
		}
		if !got.IsEmpty() {
			log.Info("finalscout: details resolved", zap.String("strategy", st.Name()))
			return got
		}
		e.closeModal(ctx)
	}
	log.Info("finalscout: no details found")
	return d
}

// ReturnToFinder closes any open modal and navigates back to the finder. It
// runs even when ctx is already cancelled.
func (e *Engine) ReturnToFinder(ctx context.Context) {
	if e.session == nil {
		return
	}
	cctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), e.cleanupTimeout())
	defer cancel()

	e.closeModal(cctx)
	if err := e.session.Navigate(cctx, e.finderURL()); err != nil {
		zap.L().Warn("finalscout: return to finder failed", zap.Error(err))
		return
	}
	_ = browser.Pause(cctx, e.cfg.SettleDelay)
}

func (e *Engine) cleanupTimeout() time.Duration {
	if e.cfg.CleanupTimeout > 0 {
		return e.cfg.CleanupTimeout
	}
	return 30 * time.Second
}

// closeModal clicks a close control if one exists, else presses Escape.
func (e *Engine) closeModal(ctx context.Context) {
	if err := e.session.Click(ctx, modalCloseSelector); err == nil {
		_ = browser.Pause(ctx, e.cfg.SettleDelay/2)
		return
	}
	_ = e.session.PressEscape(ctx)
}

// readModal waits for the detail modal and parses it.
func (e *Engine) readModal(ctx context.Context) (model.DetailBundle, error) {
	if err := e.session.WaitVisible(ctx, modalSelector, e.cfg.ModalWait); err != nil {
		return model.DetailBundle{}, err
	}
	html, err := e.session.HTML(ctx, modalSelector)
	if err != nil {
		return model.DetailBundle{}, err
	}
	return ParseModal(html)
}

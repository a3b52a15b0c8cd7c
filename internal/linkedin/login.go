package linkedin

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/leadgen-cli/internal/browser"
)

// LoginPolicy decides what happens when the post-login URL never shows up,
// typically because of a checkpoint or two-factor challenge.
type LoginPolicy int

const (
	// Unattended waits a fixed extended period and proceeds.
	Unattended LoginPolicy = iota
	// Interactive blocks until the operator confirms the login.
	Interactive
)

// Prompter asks the operator to finish a login by hand.
type Prompter interface {
	WaitForOperator(ctx context.Context, message string) error
}

// LinePrompter prints a message and waits for a newline on In.
type LinePrompter struct {
	In  io.Reader
	Out io.Writer
}

// WaitForOperator implements Prompter.
func (p LinePrompter) WaitForOperator(ctx context.Context, message string) error {
	fmt.Fprintln(p.Out, message)
	done := make(chan error, 1)
	go func() {
		_, err := bufio.NewReader(p.In).ReadString('\n')
		done <- err
	}()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case err := <-done:
		if err != nil && err != io.EOF {
			return eris.Wrap(err, "linkedin: read operator confirmation")
		}
		return nil
	}
}

// Login form selectors.
const (
	usernameSelector = "#username"
	passwordSelector = "#password"
	submitSelector   = "button[type='submit']"
)

// loginSignatures are URL fragments seen only after a successful login.
var loginSignatures = []string{"/feed", "/in/", "/search", "profile"}

func loggedIn(location string) bool {
	for _, sig := range loginSignatures {
		if strings.Contains(location, sig) {
			return true
		}
	}
	return false
}

// Login submits the credentials and waits for a post-login URL. A missing
// login form is an authentication failure.
func (s *Scraper) Login(ctx context.Context) error {
	log := zap.L().With(zap.String("stage", "linkedin_login"))

	loginURL := strings.TrimRight(s.cfg.BaseURL, "/") + "/login"
	if err := s.session.Navigate(ctx, loginURL); err != nil {
		return eris.Wrap(err, "linkedin: open login page")
	}
	if err := s.session.WaitVisible(ctx, usernameSelector, 20*time.Second); err != nil {
		return eris.Wrapf(browser.ErrAuthFailed, "linkedin: login form not found: %v", err)
	}
	if err := s.session.Fill(ctx, usernameSelector, s.cfg.Email); err != nil {
		return eris.Wrapf(browser.ErrAuthFailed, "linkedin: fill username: %v", err)
	}
	if err := s.session.Fill(ctx, passwordSelector, s.cfg.Password); err != nil {
		return eris.Wrapf(browser.ErrAuthFailed, "linkedin: fill password: %v", err)
	}
	if err := s.session.Click(ctx, submitSelector); err != nil {
		return eris.Wrapf(browser.ErrAuthFailed, "linkedin: submit login: %v", err)
	}
	log.Info("linkedin: login submitted, waiting for completion")

	if s.waitForLogin(ctx) {
		log.Info("linkedin: login completed")
		return nil
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	switch s.cfg.Policy {
	case Interactive:
		log.Warn("linkedin: login needs manual intervention")
		if err := s.prompter.WaitForOperator(ctx, "Finish the LinkedIn login in the browser, then press ENTER..."); err != nil {
			return err
		}
	default:
		log.Warn("linkedin: login not confirmed, continuing after extended wait",
			zap.Duration("wait", s.cfg.ExtendedWait),
		)
		if err := browser.Pause(ctx, s.cfg.ExtendedWait); err != nil {
			return err
		}
	}
	return nil
}

// waitForLogin polls the current URL until a login signature appears or
// LoginWait elapses.
func (s *Scraper) waitForLogin(ctx context.Context) bool {
	deadline := time.Now().Add(s.cfg.LoginWait)
	for {
		if loc, err := s.session.Location(ctx); err == nil && loggedIn(loc) {
			return true
		}
		if !time.Now().Before(deadline) {
			return false
		}
		if err := browser.Pause(ctx, s.cfg.PollInterval); err != nil {
			return false
		}
	}
}

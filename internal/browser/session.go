// Package browser provides the explicit browser session handle shared by the
// LinkedIn scraper and the FinalScout engine.
package browser

import (
	"context"
	"time"

	"github.com/rotisserie/eris"
)

// ErrAuthFailed marks an unrecoverable login failure.
var ErrAuthFailed = eris.New("browser: authentication failed")

// Session is one logged-in browser tab. Each site owns its own session and
// drives it sequentially. All selectors are CSS.
type Session interface {
	// Navigate loads url and waits for the document body.
	Navigate(ctx context.Context, url string) error
	// WaitVisible blocks until selector is visible or timeout elapses.
	WaitVisible(ctx context.Context, selector string, timeout time.Duration) error
	// Fill clears the input at selector and types value into it.
	Fill(ctx context.Context, selector, value string) error
	// Click clicks the first element matching selector.
	Click(ctx context.Context, selector string) error
	// ClickNth clicks the n-th (zero-based) element matching selector.
	ClickNth(ctx context.Context, selector string, n int) error
	// PressEscape sends the Escape key to the page.
	PressEscape(ctx context.Context) error
	// HTML returns the outer HTML of the first element matching selector.
	HTML(ctx context.Context, selector string) (string, error)
	// Text returns the visible text of the first element matching selector.
	Text(ctx context.Context, selector string) (string, error)
	// Location returns the current page URL.
	Location(ctx context.Context) (string, error)
	// ScrollToBottom scrolls the window to the end of the document.
	ScrollToBottom(ctx context.Context) error
	// Close releases the tab and the browser process.
	Close() error
}

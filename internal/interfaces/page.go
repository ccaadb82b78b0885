package interfaces

import (
	"context"
	"time"
)

// Page is the browser-automation surface the scrapers drive. The production
// implementation wraps a chromedp browser context; tests substitute fakes so
// login flows and extraction run without a browser process.
//
// A Page is owned by exactly one scrape invocation and must never be driven
// from two concurrent call sites. Close tears down the underlying browser
// process and is safe to call more than once.
type Page interface {
	Navigate(ctx context.Context, url string) error
	CurrentURL(ctx context.Context) (string, error)

	// WaitVisible blocks until the selector matches a visible element or the
	// timeout elapses. A timed-out wait returns an error; callers treat it as
	// a signal to try the next locator, not as a failure.
	WaitVisible(ctx context.Context, selector string, timeout time.Duration) error

	// Count returns how many elements currently match the selector.
	Count(ctx context.Context, selector string) (int, error)

	Text(ctx context.Context, selector string) (string, error)

	// OuterHTML captures the rendered HTML of the first match, letting the
	// extractors work on a static snapshot.
	OuterHTML(ctx context.Context, selector string) (string, error)

	// TypeKeys clears the target and types text one character at a time with
	// the given pace between keystrokes.
	TypeKeys(ctx context.Context, selector, text string, pace time.Duration) error

	// PressEnter submits the form owning the selector's element.
	PressEnter(ctx context.Context, selector string) error

	Click(ctx context.Context, selector string) error

	// ScrollBy runs a window scroll to trigger lazy-loaded content.
	ScrollBy(ctx context.Context, pixels int) error

	Close() error
}

// PageOpener provisions a fresh browser session. Open returns
// models.ErrDriverUnavailable (wrapped) when the automation runtime cannot
// be started; that error is surfaced to the caller, never swallowed.
type PageOpener interface {
	Open(ctx context.Context, headless bool) (Page, error)
}

// Package browser provides the chromedp-backed automation session behind the
// interfaces.Page abstraction. One session owns one Chrome process; scrapers
// open a fresh session per search and close it on every exit path.
package browser

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/chromedp/cdproto/emulation"
	"github.com/chromedp/chromedp"
	"github.com/chromedp/chromedp/kb"
	"github.com/ternarybob/arbor"

	"github.com/ternarybob/venator/internal/common"
	"github.com/ternarybob/venator/internal/interfaces"
	"github.com/ternarybob/venator/internal/models"
)

const (
	startupTimeout  = 30 * time.Second
	navigateTimeout = 30 * time.Second
	actionTimeout   = 10 * time.Second
)

// Config holds browser session settings.
type Config struct {
	UserAgent  string
	WindowW    int
	WindowH    int
	ChromePath string
}

// Opener implements interfaces.PageOpener.
type Opener struct {
	config Config
	logger arbor.ILogger
}

// NewOpener creates a session factory.
func NewOpener(config Config, logger arbor.ILogger) *Opener {
	if logger == nil {
		logger = common.GetLogger()
	}
	if config.UserAgent == "" {
		config.UserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36"
	}
	if config.WindowW <= 0 || config.WindowH <= 0 {
		config.WindowW, config.WindowH = 1920, 1080
	}
	return &Opener{config: config, logger: logger}
}

// Open starts a Chrome process and verifies it responds. A Chrome that
// cannot start or fails the startup test surfaces as a wrapped
// models.ErrDriverUnavailable; nothing downstream can run without it.
func (o *Opener) Open(ctx context.Context, headless bool) (interfaces.Page, error) {
	opts := o.allocatorOptions(headless)

	allocCtx, allocCancel := chromedp.NewExecAllocator(ctx, opts...)
	browserCtx, browserCancel := chromedp.NewContext(allocCtx)

	cancelAll := func() {
		browserCancel()
		allocCancel()
	}

	testCtx, testCancel := context.WithTimeout(browserCtx, startupTimeout)
	defer testCancel()
	if err := chromedp.Run(testCtx,
		emulation.SetUserAgentOverride(o.config.UserAgent),
		chromedp.Navigate("about:blank"),
	); err != nil {
		cancelAll()
		return nil, fmt.Errorf("%w: browser failed startup test: %v", models.ErrDriverUnavailable, err)
	}

	session := &Session{
		id:     common.NewSessionID(),
		ctx:    browserCtx,
		cancel: cancelAll,
		logger: o.logger,
	}
	o.logger.Debug().
		Str("session", session.id).
		Bool("headless", headless).
		Msg("Browser session started")
	return session, nil
}

func (o *Opener) allocatorOptions(headless bool) []chromedp.ExecAllocatorOption {
	opts := []chromedp.ExecAllocatorOption{
		chromedp.NoFirstRun,
		chromedp.NoDefaultBrowserCheck,
		chromedp.UserAgent(o.config.UserAgent),
		chromedp.WindowSize(o.config.WindowW, o.config.WindowH),

		// The target sites fingerprint automation aggressively.
		chromedp.Flag("disable-blink-features", "AutomationControlled"),
		chromedp.Flag("excludeSwitches", "enable-automation"),
		chromedp.Flag("useAutomationExtension", false),
		chromedp.Flag("disable-infobars", true),

		chromedp.Flag("no-sandbox", true),
		chromedp.Flag("disable-dev-shm-usage", true),
		chromedp.Flag("disable-popup-blocking", true),

		// Card extraction never needs pixels.
		chromedp.Flag("blink-settings", "imagesEnabled=false"),
	}
	if o.config.ChromePath != "" {
		opts = append(opts, chromedp.ExecPath(o.config.ChromePath))
	}
	if headless {
		opts = append(opts, chromedp.Flag("headless", "new"))
	}
	return opts
}

// Session implements interfaces.Page over a live browser context.
type Session struct {
	id     string
	ctx    context.Context
	cancel context.CancelFunc
	logger arbor.ILogger

	closeOnce sync.Once
}

// run executes chromedp actions against the session's browser, bounded by
// the timeout and cancelled when the caller's context is.
func (s *Session) run(ctx context.Context, timeout time.Duration, actions ...chromedp.Action) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	runCtx, cancel := context.WithTimeout(s.ctx, timeout)
	defer cancel()
	stop := context.AfterFunc(ctx, cancel)
	defer stop()
	return chromedp.Run(runCtx, actions...)
}

func (s *Session) Navigate(ctx context.Context, url string) error {
	return s.run(ctx, navigateTimeout, chromedp.Navigate(url))
}

func (s *Session) CurrentURL(ctx context.Context) (string, error) {
	var url string
	err := s.run(ctx, actionTimeout, chromedp.Location(&url))
	return url, err
}

func (s *Session) WaitVisible(ctx context.Context, selector string, timeout time.Duration) error {
	return s.run(ctx, timeout, chromedp.WaitVisible(selector, chromedp.ByQuery))
}

func (s *Session) Count(ctx context.Context, selector string) (int, error) {
	var count int
	err := s.run(ctx, actionTimeout,
		chromedp.Evaluate(fmt.Sprintf("document.querySelectorAll(%q).length", selector), &count))
	return count, err
}

func (s *Session) Text(ctx context.Context, selector string) (string, error) {
	var text string
	err := s.run(ctx, actionTimeout, chromedp.Text(selector, &text, chromedp.ByQuery))
	return text, err
}

func (s *Session) OuterHTML(ctx context.Context, selector string) (string, error) {
	var html string
	err := s.run(ctx, actionTimeout, chromedp.OuterHTML(selector, &html, chromedp.ByQuery))
	return html, err
}

// TypeKeys clears the field and types one character at a time. Instant form
// fills are an automation tell on the sites this drives.
func (s *Session) TypeKeys(ctx context.Context, selector, text string, pace time.Duration) error {
	actions := []chromedp.Action{chromedp.Clear(selector, chromedp.ByQuery)}
	for _, r := range text {
		actions = append(actions, chromedp.SendKeys(selector, string(r), chromedp.ByQuery))
		if pace > 0 {
			actions = append(actions, chromedp.Sleep(pace))
		}
	}
	timeout := actionTimeout + time.Duration(len(text))*pace
	return s.run(ctx, timeout, actions...)
}

func (s *Session) PressEnter(ctx context.Context, selector string) error {
	return s.run(ctx, actionTimeout, chromedp.SendKeys(selector, kb.Enter, chromedp.ByQuery))
}

func (s *Session) Click(ctx context.Context, selector string) error {
	return s.run(ctx, actionTimeout, chromedp.Click(selector, chromedp.ByQuery))
}

func (s *Session) ScrollBy(ctx context.Context, pixels int) error {
	return s.run(ctx, actionTimeout,
		chromedp.Evaluate(fmt.Sprintf("window.scrollBy(0, %d)", pixels), nil))
}

// Close tears down the browser process. Safe to call more than once.
func (s *Session) Close() error {
	s.closeOnce.Do(func() {
		s.cancel()
		s.logger.Debug().Str("session", s.id).Msg("Browser session closed")
	})
	return nil
}

package scraper

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/ternarybob/arbor"

	"github.com/ternarybob/venator/internal/common"
	"github.com/ternarybob/venator/internal/interfaces"
	"github.com/ternarybob/venator/internal/models"
)

// LoginState tracks the authentication state machine for a source session.
type LoginState string

const (
	LoginNotStarted           LoginState = "not_started"
	LoginAwaitingCredentials  LoginState = "awaiting_credentials"
	LoginAwaitingSecondFactor LoginState = "awaiting_second_factor"
	LoginAuthenticated        LoginState = "authenticated"
	LoginFailed               LoginState = "failed"
)

// LoginConfig describes one source's login page well enough to drive it:
// where the form lives, how to find its fields, what a logged-in page looks
// like, and how the site's second-factor interstitial announces itself.
type LoginConfig struct {
	URL           string
	UsernameChain Chain
	PasswordChain Chain

	// TypingPace is the delay between keystrokes. Instant form fills are a
	// well-known automation tell on the sites this drives.
	TypingPace time.Duration

	// FieldWait bounds the visibility wait for each locator in a chain.
	FieldWait time.Duration

	// SuccessURLFragments mark a post-login URL; SuccessChain marks elements
	// that only render for an authenticated session. Either signal counts,
	// except that a URL still sitting on LoginPathMarker never does.
	SuccessURLFragments []string
	SuccessChain        Chain
	LoginPathMarker     string

	// SecondFactorURLMarker identifies the 2FA interstitial in the URL.
	// SecondFactorBudget is how long an attended session gets to approve it.
	SecondFactorURLMarker string
	SecondFactorBudget    time.Duration

	SuccessPoll time.Duration
}

// LoginFlow drives a credentialed login against a page and reports the state
// it ended in. The flow never logs or returns the password it types.
type LoginFlow struct {
	config LoginConfig
	logger arbor.ILogger

	state LoginState
	tick  time.Duration
}

// NewLoginFlow builds a flow in the not_started state.
func NewLoginFlow(config LoginConfig, logger arbor.ILogger) *LoginFlow {
	if logger == nil {
		logger = common.GetLogger()
	}
	if config.TypingPace <= 0 {
		config.TypingPace = 60 * time.Millisecond
	}
	if config.FieldWait <= 0 {
		config.FieldWait = 5 * time.Second
	}
	if config.SuccessPoll <= 0 {
		config.SuccessPoll = 10 * time.Second
	}
	if config.SecondFactorBudget <= 0 {
		config.SecondFactorBudget = 60 * time.Second
	}
	return &LoginFlow{config: config, logger: logger, state: LoginNotStarted, tick: time.Second}
}

// State returns the flow's current state.
func (f *LoginFlow) State() LoginState { return f.state }

// Run performs the full login: navigate, fill credentials with paced typing,
// submit, then wait out the success and second-factor signals. A headless
// session that hits a second-factor interstitial fails immediately since
// nobody is present to approve it. Every failure path returns a wrapped
// models.ErrLoginFailed and leaves the flow in LoginFailed.
func (f *LoginFlow) Run(ctx context.Context, pg interfaces.Page, username, password string, headless bool) error {
	source := f.config.URL
	if username == "" || password == "" {
		return f.fail("missing credentials for %s", source)
	}

	if err := pg.Navigate(ctx, f.config.URL); err != nil {
		return f.fail("open login page: %v", err)
	}
	f.state = LoginAwaitingCredentials

	userSel, err := LocateOnPage(ctx, pg, f.config.UsernameChain, f.config.FieldWait)
	if err != nil {
		return f.fail("username field: %v", err)
	}
	passSel, err := LocateOnPage(ctx, pg, f.config.PasswordChain, f.config.FieldWait)
	if err != nil {
		return f.fail("password field: %v", err)
	}

	if err := pg.TypeKeys(ctx, userSel, username, f.config.TypingPace); err != nil {
		return f.fail("type username: %v", err)
	}
	if err := pg.TypeKeys(ctx, passSel, password, f.config.TypingPace); err != nil {
		return f.fail("type password: %v", err)
	}
	if err := pg.PressEnter(ctx, passSel); err != nil {
		return f.fail("submit login form: %v", err)
	}

	f.logger.Debug().Str("url", f.config.URL).Str("username", username).Msg("Login form submitted")

	if ok, err := f.pollSuccess(ctx, pg, f.config.SuccessPoll); err != nil {
		return f.fail("login wait: %v", err)
	} else if ok {
		f.state = LoginAuthenticated
		f.logger.Info().Str("url", f.config.URL).Msg("Login succeeded")
		return nil
	}

	// Not visibly logged in yet. A second-factor interstitial is the one
	// recoverable reason, and only when a human is watching the browser.
	if f.config.SecondFactorURLMarker != "" {
		url, err := pg.CurrentURL(ctx)
		if err != nil {
			return f.fail("read post-login url: %v", err)
		}
		if strings.Contains(url, f.config.SecondFactorURLMarker) {
			f.state = LoginAwaitingSecondFactor
			if headless {
				return f.fail("second factor requires manual approval, headless session cannot continue")
			}
			f.logger.Info().
				Str("url", url).
				Str("budget", f.config.SecondFactorBudget.String()).
				Msg("Second factor prompt detected, waiting for manual approval")
			if ok, err := f.pollSuccess(ctx, pg, f.config.SecondFactorBudget); err != nil {
				return f.fail("second factor wait: %v", err)
			} else if ok {
				f.state = LoginAuthenticated
				f.logger.Info().Str("url", f.config.URL).Msg("Login succeeded after second factor")
				return nil
			}
			return f.fail("second factor not approved within %s", f.config.SecondFactorBudget)
		}
	}

	return f.fail("no post-login success signal at %s", f.config.URL)
}

// pollSuccess re-evaluates the success predicate every second until it holds
// or the budget runs out. Returning (false, nil) means the budget expired
// without a signal.
func (f *LoginFlow) pollSuccess(ctx context.Context, pg interfaces.Page, budget time.Duration) (bool, error) {
	deadline := time.Now().Add(budget)
	for {
		ok, err := f.loggedIn(ctx, pg)
		if err != nil {
			return false, err
		}
		if ok {
			return true, nil
		}
		if time.Now().After(deadline) {
			return false, nil
		}
		select {
		case <-ctx.Done():
			return false, ctx.Err()
		case <-time.After(f.tick):
		}
	}
}

// loggedIn evaluates the success disjunction against the live page. A URL
// that still contains the login path marker is never a success, even when an
// element signal matched; logged-out pages routinely render lookalike chrome.
func (f *LoginFlow) loggedIn(ctx context.Context, pg interfaces.Page) (bool, error) {
	url, err := pg.CurrentURL(ctx)
	if err != nil {
		return false, err
	}
	if f.config.LoginPathMarker != "" && strings.Contains(url, f.config.LoginPathMarker) {
		return false, nil
	}

	for _, fragment := range f.config.SuccessURLFragments {
		if fragment != "" && strings.Contains(url, fragment) {
			return true, nil
		}
	}
	for _, locator := range f.config.SuccessChain.Locators {
		n, err := pg.Count(ctx, locator)
		if err != nil {
			continue
		}
		if n > 0 {
			return true, nil
		}
	}
	return false, nil
}

func (f *LoginFlow) fail(format string, args ...interface{}) error {
	f.state = LoginFailed
	err := fmt.Errorf("%w: %s", models.ErrLoginFailed, fmt.Sprintf(format, args...))
	f.logger.Warn().Str("url", f.config.URL).Msg(err.Error())
	return err
}

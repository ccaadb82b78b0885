package models

import "errors"

// Failure taxonomy for the acquisition pipeline. Only ErrDriverUnavailable
// and ErrCrypto propagate to callers as hard failures; everything else is
// absorbed at the component boundary that can degrade gracefully.
var (
	// ErrDriverUnavailable means no browser automation runtime could be
	// started. Fatal for the invocation, never silently swallowed.
	ErrDriverUnavailable = errors.New("browser driver unavailable")

	// ErrLoginFailed is recoverable; the scraper falls back to synthetic
	// records and the reason state is logged.
	ErrLoginFailed = errors.New("login failed")

	// ErrSelectorExhausted means every locator in a chain (including the
	// scroll-and-retry pass) produced nothing. Recoverable; the caller moves
	// to its next fallback strategy or a field placeholder.
	ErrSelectorExhausted = errors.New("selector chain exhausted")

	// ErrMalformedRecord marks a card whose primary field could not be
	// resolved by any strategy. The record is dropped, not retried.
	ErrMalformedRecord = errors.New("malformed record")

	// ErrTokenRefreshFailed is recoverable and treated as "no token"; the
	// caller degrades to unauthenticated behavior.
	ErrTokenRefreshFailed = errors.New("token refresh failed")

	// ErrCrypto indicates corrupted stored data or a missing encryption key.
	// Fatal; must not be swallowed.
	ErrCrypto = errors.New("crypto failure")

	// ErrNoCredential means no stored credential exists for a source.
	ErrNoCredential = errors.New("no stored credential")
)

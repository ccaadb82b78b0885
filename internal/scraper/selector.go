// Package scraper implements the multi-source acquisition pipeline: selector
// fallback chains, login flows, record extraction, per-source scrapers and
// the coordinator that merges their output.
package scraper

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"

	"github.com/ternarybob/venator/internal/interfaces"
	"github.com/ternarybob/venator/internal/models"
)

// Chain is an ordered list of structural locators for one logical target.
// Locators are evaluated strictly in declared order, first match wins; no
// locator is assumed permanently valid because the upstream page structure
// changes without notice.
type Chain struct {
	Target   string
	Locators []string
}

// NewChain builds a chain for a named target.
func NewChain(target string, locators ...string) Chain {
	return Chain{Target: target, Locators: locators}
}

// Find returns the first element matched by the first locator that matches
// anything inside root, or nil when the chain is exhausted.
func (c Chain) Find(root *goquery.Selection) *goquery.Selection {
	for _, locator := range c.Locators {
		if sel := root.Find(locator); sel.Length() > 0 {
			return sel.First()
		}
	}
	return nil
}

// FindAll returns the match set of the first locator matching strictly more
// than minAcceptable elements. The threshold guards against locators that
// match a trivial or wrong handful of elements. An empty selection signals
// the caller to use its degraded path; it is not an error.
func (c Chain) FindAll(root *goquery.Selection, minAcceptable int) *goquery.Selection {
	for _, locator := range c.Locators {
		if sel := root.Find(locator); sel.Length() > minAcceptable {
			return sel
		}
	}
	return nil
}

// LocateOnPage walks the chain against a live page, giving each locator a
// bounded visibility wait, and returns the first locator that matched.
// Exhaustion yields models.ErrSelectorExhausted.
func LocateOnPage(ctx context.Context, pg interfaces.Page, c Chain, wait time.Duration) (string, error) {
	for _, locator := range c.Locators {
		if err := ctx.Err(); err != nil {
			return "", err
		}
		if err := pg.WaitVisible(ctx, locator, wait); err == nil {
			return locator, nil
		}
	}
	return "", fmt.Errorf("%w: %s", models.ErrSelectorExhausted, c.Target)
}

// CollectCards captures the rendered page, applies the chain with the
// minimum-match threshold, and when everything misses runs one best-effort
// scroll pass to trigger lazy loading before retrying the whole chain. A nil
// document with a nil error means the degraded path should be taken.
func CollectCards(ctx context.Context, pg interfaces.Page, c Chain, minAcceptable int) (*goquery.Selection, error) {
	cards, err := findCardsOnPage(ctx, pg, c, minAcceptable)
	if err != nil {
		return nil, err
	}
	if cards != nil {
		return cards, nil
	}

	// Lazy-loading pages only materialize results once the viewport moves.
	for _, pixels := range []int{1000, 2000} {
		if err := pg.ScrollBy(ctx, pixels); err != nil {
			return nil, nil
		}
	}
	return findCardsOnPage(ctx, pg, c, minAcceptable)
}

func findCardsOnPage(ctx context.Context, pg interfaces.Page, c Chain, minAcceptable int) (*goquery.Selection, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	html, err := pg.OuterHTML(ctx, "html")
	if err != nil {
		return nil, fmt.Errorf("capture page html: %w", err)
	}
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return nil, fmt.Errorf("parse page html: %w", err)
	}
	return c.FindAll(doc.Selection, minAcceptable), nil
}

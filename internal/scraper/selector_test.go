package scraper

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ternarybob/venator/internal/models"
)

func parseHTML(t *testing.T, html string) *goquery.Selection {
	t.Helper()
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	require.NoError(t, err)
	return doc.Selection
}

func TestChainFindRespectsDeclaredOrder(t *testing.T) {
	root := parseHTML(t, `<div class="new">first</div><div class="old">second</div>`)

	chain := NewChain("target", ".missing", ".old", ".new")
	sel := chain.Find(root)
	require.NotNil(t, sel)
	assert.Equal(t, "second", sel.Text(), "first matching locator wins, even when a later one also matches")
}

func TestChainFindExhausted(t *testing.T) {
	root := parseHTML(t, `<div class="other">x</div>`)

	sel := NewChain("target", ".a", ".b").Find(root)
	assert.Nil(t, sel)
}

func TestChainFindAllHonorsThreshold(t *testing.T) {
	root := parseHTML(t, `
		<div class="sparse">1</div>
		<ul>
			<li class="card">a</li>
			<li class="card">b</li>
			<li class="card">c</li>
		</ul>`)

	chain := NewChain("cards", ".sparse", ".card")

	sel := chain.FindAll(root, 2)
	require.NotNil(t, sel)
	assert.Equal(t, 3, sel.Length(), "the single .sparse match is below threshold and must be skipped")

	assert.Nil(t, chain.FindAll(root, 3), "no locator exceeds the threshold")
}

func TestLocateOnPageReturnsFirstVisible(t *testing.T) {
	pg := newFakePage()
	pg.visible["#password"] = true

	sel, err := LocateOnPage(context.Background(), pg, NewChain("password field", "#missing", "#password"), 10*time.Millisecond)
	require.NoError(t, err)
	assert.Equal(t, "#password", sel)
}

func TestLocateOnPageExhaustion(t *testing.T) {
	pg := newFakePage()

	_, err := LocateOnPage(context.Background(), pg, NewChain("username field", "#a", "#b"), 10*time.Millisecond)
	require.Error(t, err)
	assert.ErrorIs(t, err, models.ErrSelectorExhausted)
}

func TestCollectCardsScrollRetry(t *testing.T) {
	pg := newFakePage()
	pg.html = `<html><body><div class="empty"></div></body></html>`

	cards, err := CollectCards(context.Background(), pg, NewChain("cards", ".card"), 2)
	require.NoError(t, err)
	assert.Nil(t, cards, "still nothing after the scroll pass means the degraded path, not an error")
	assert.Equal(t, []int{1000, 2000}, pg.scrolls)
}

func TestCollectCardsFindsAfterScroll(t *testing.T) {
	pg := newFakePage()
	pg.html = `<html><body><p>loading</p></body></html>`
	loaded := `<html><body><li class="card">a</li><li class="card">b</li><li class="card">c</li></body></html>`

	// Lazy-loaded results appear once the page scrolls.
	scrolled := false
	pgWithLoad := &scrollLoadingPage{fakePage: pg, loadedHTML: loaded, scrolled: &scrolled}

	cards, err := CollectCards(context.Background(), pgWithLoad, NewChain("cards", ".card"), 2)
	require.NoError(t, err)
	require.NotNil(t, cards)
	assert.Equal(t, 3, cards.Length())
}

// scrollLoadingPage serves different HTML before and after the first scroll.
type scrollLoadingPage struct {
	*fakePage
	loadedHTML string
	scrolled   *bool
}

func (p *scrollLoadingPage) ScrollBy(ctx context.Context, pixels int) error {
	*p.scrolled = true
	return p.fakePage.ScrollBy(ctx, pixels)
}

func (p *scrollLoadingPage) OuterHTML(ctx context.Context, selector string) (string, error) {
	if *p.scrolled {
		return p.loadedHTML, nil
	}
	return p.fakePage.OuterHTML(ctx, selector)
}

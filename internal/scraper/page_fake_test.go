package scraper

import (
	"context"
	"fmt"
	"time"
)

// fakePage is a scripted interfaces.Page for driving login flows and card
// collection without a browser.
type fakePage struct {
	url     string
	html    string
	visible map[string]bool
	counts  map[string]int
	texts   map[string]string

	typed     map[string]string
	pressed   []string
	clicked   []string
	scrolls   []int
	navigated []string
	closed    bool

	// afterSubmit mutates page state when the login form is submitted,
	// simulating the post-login redirect.
	afterSubmit func(p *fakePage)
	// urlSequence, when set, is consumed one entry per CurrentURL call and
	// the last entry sticks.
	urlSequence []string
}

func newFakePage() *fakePage {
	return &fakePage{
		visible: map[string]bool{},
		counts:  map[string]int{},
		texts:   map[string]string{},
		typed:   map[string]string{},
	}
}

func (p *fakePage) Navigate(ctx context.Context, url string) error {
	p.navigated = append(p.navigated, url)
	p.url = url
	return nil
}

func (p *fakePage) CurrentURL(ctx context.Context) (string, error) {
	if len(p.urlSequence) > 0 {
		p.url = p.urlSequence[0]
		if len(p.urlSequence) > 1 {
			p.urlSequence = p.urlSequence[1:]
		}
	}
	return p.url, nil
}

func (p *fakePage) WaitVisible(ctx context.Context, selector string, timeout time.Duration) error {
	if p.visible[selector] {
		return nil
	}
	return fmt.Errorf("selector not visible: %s", selector)
}

func (p *fakePage) Count(ctx context.Context, selector string) (int, error) {
	return p.counts[selector], nil
}

func (p *fakePage) Text(ctx context.Context, selector string) (string, error) {
	return p.texts[selector], nil
}

func (p *fakePage) OuterHTML(ctx context.Context, selector string) (string, error) {
	return p.html, nil
}

func (p *fakePage) TypeKeys(ctx context.Context, selector, text string, pace time.Duration) error {
	p.typed[selector] = text
	return nil
}

func (p *fakePage) PressEnter(ctx context.Context, selector string) error {
	p.pressed = append(p.pressed, selector)
	if p.afterSubmit != nil {
		p.afterSubmit(p)
	}
	return nil
}

func (p *fakePage) Click(ctx context.Context, selector string) error {
	p.clicked = append(p.clicked, selector)
	return nil
}

func (p *fakePage) ScrollBy(ctx context.Context, pixels int) error {
	p.scrolls = append(p.scrolls, pixels)
	return nil
}

func (p *fakePage) Close() error {
	p.closed = true
	return nil
}

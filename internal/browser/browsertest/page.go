// Package browsertest provides a scripted browser.Page for tests. Each URL maps
// to a Feed whose visible items and scroll height advance with every scroll.
package browsertest

import (
	"context"
	"time"

	"github.com/ibeckermayer/xengage/internal/browser"
)

// Feed scripts one page. Frames[n] and Heights[n] describe the page after n
// scroll commands; the last entry repeats once the script runs out.
type Feed struct {
	Frames  [][]string
	Heights []int64

	// Present lists the selectors that match on this page
	Present map[string]bool

	NavigateErr error
	ItemsErr    error
	WaitErr     error
}

// Page is a fake browser.Page
type Page struct {
	feeds map[string]*Feed

	current *Feed
	scrolls int

	// Visited records every navigated URL in order
	Visited []string
	// Scrolls counts scroll commands per URL, across visits
	Scrolls map[string]int
	// Fractions records the argument of every ScrollBy call
	Fractions []float64
}

var _ browser.Page = (*Page)(nil)

// New returns an empty fake page. Unknown URLs load as blank pages.
func New() *Page {
	return &Page{
		feeds:   make(map[string]*Feed),
		Scrolls: make(map[string]int),
	}
}

// Add scripts url
func (p *Page) Add(url string, f *Feed) *Page {
	if f.Present == nil {
		f.Present = make(map[string]bool)
	}
	p.feeds[url] = f
	return p
}

// Current returns the URL most recently navigated to
func (p *Page) Current() string {
	if len(p.Visited) == 0 {
		return ""
	}
	return p.Visited[len(p.Visited)-1]
}

func (p *Page) Navigate(ctx context.Context, url string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	p.Visited = append(p.Visited, url)
	p.scrolls = 0

	f, ok := p.feeds[url]
	if !ok {
		f = &Feed{Present: map[string]bool{}}
	}
	p.current = f
	return f.NavigateErr
}

func (p *Page) Items(ctx context.Context, selector string) ([]browser.Item, error) {
	if p.current == nil {
		return nil, nil
	}
	if p.current.ItemsErr != nil {
		return nil, p.current.ItemsErr
	}
	if len(p.current.Frames) == 0 {
		return nil, nil
	}

	frame := p.current.Frames[clamp(p.scrolls, len(p.current.Frames))]
	items := make([]browser.Item, 0, len(frame))
	for _, html := range frame {
		item, err := browser.ParseItem(html)
		if err != nil {
			return nil, err
		}
		items = append(items, item)
	}
	return items, nil
}

func (p *Page) Exists(ctx context.Context, selector string) (bool, error) {
	if p.current == nil {
		return false, nil
	}
	return p.current.Present[selector], nil
}

// WaitFirst answers immediately: a selector that is not present behaves like
// an elapsed timeout.
func (p *Page) WaitFirst(ctx context.Context, timeout time.Duration, selectors ...string) (string, bool, error) {
	if p.current == nil {
		return "", false, nil
	}
	if p.current.WaitErr != nil {
		return "", false, p.current.WaitErr
	}
	for _, sel := range selectors {
		if p.current.Present[sel] {
			return sel, true, nil
		}
	}
	return "", false, nil
}

func (p *Page) ScrollBy(ctx context.Context, fraction float64) error {
	p.scrolls++
	p.Scrolls[p.Current()]++
	p.Fractions = append(p.Fractions, fraction)
	return nil
}

func (p *Page) ScrollHeight(ctx context.Context) (int64, error) {
	if p.current == nil || len(p.current.Heights) == 0 {
		return 0, nil
	}
	return p.current.Heights[clamp(p.scrolls, len(p.current.Heights))], nil
}

func clamp(i, n int) int {
	if i >= n {
		return n - 1
	}
	return i
}

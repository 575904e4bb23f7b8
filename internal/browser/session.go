package browser

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/chromedp/cdproto/network"
	"github.com/chromedp/chromedp"
)

// pollInterval is how often WaitFirst re-checks the DOM
const pollInterval = 250 * time.Millisecond

// ActionTimeout bounds a single browser call, page loads included
const ActionTimeout = 30 * time.Second

// Session is a chromedp-backed browser tab. It owns the Chrome process and
// must be closed by whoever opened it.
type Session struct {
	ctx       context.Context
	cancel    context.CancelFunc
	timeout   time.Duration
	closeOnce sync.Once
}

var _ Page = (*Session)(nil)

// Open launches Chrome, opens a tab and injects the given cookies. The
// browser is torn down again if any step fails.
func Open(ctx context.Context, headless bool, cookies []*network.Cookie) (*Session, error) {
	allocCtx, allocCancel := chromedp.NewExecAllocator(ctx, Options(headless)...)
	browserCtx, browserCancel := chromedp.NewContext(allocCtx)

	s := &Session{
		ctx: browserCtx,
		cancel: func() {
			browserCancel()
			allocCancel()
		},
		timeout: ActionTimeout,
	}

	// Starts the browser
	if err := chromedp.Run(browserCtx); err != nil {
		s.Close()
		return nil, fmt.Errorf("failed to start browser: %w", err)
	}

	if err := chromedp.Run(browserCtx, setCookies(cookies)); err != nil {
		s.Close()
		return nil, fmt.Errorf("failed to inject cookies: %w", err)
	}

	return s, nil
}

// Close shuts the browser down. Safe to call more than once.
func (s *Session) Close() {
	s.closeOnce.Do(s.cancel)
}

// setCookies sets cookies in the browser context
func setCookies(cookies []*network.Cookie) chromedp.Action {
	return chromedp.ActionFunc(func(ctx context.Context) error {
		for _, c := range cookies {
			err := network.SetCookie(c.Name, c.Value).
				WithDomain(c.Domain).
				WithPath(c.Path).
				WithSecure(c.Secure).
				WithHTTPOnly(c.HTTPOnly).
				WithSameSite(c.SameSite).
				Do(ctx)
			if err != nil {
				return err
			}
		}
		return nil
	})
}

// run executes actions on the session's tab. The call is cut short by
// s.timeout or by ctx, whichever ends first.
func (s *Session) run(ctx context.Context, actions ...chromedp.Action) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	cctx, cancel := bound(s.ctx, ctx, s.timeout)
	defer cancel()

	err := chromedp.Run(cctx, actions...)
	if ctxErr := ctx.Err(); ctxErr != nil {
		return ctxErr
	}
	if err != nil && errors.Is(cctx.Err(), context.DeadlineExceeded) {
		return fmt.Errorf("browser call timed out after %v: %w", s.timeout, err)
	}
	return err
}

// bound derives a context from tab, which keeps addressing the same tab
// (cancelling it does not close the tab), and ends it after timeout or when
// caller is done.
func bound(tab, caller context.Context, timeout time.Duration) (context.Context, context.CancelFunc) {
	cctx, cancel := context.WithTimeout(tab, timeout)
	stop := context.AfterFunc(caller, cancel)
	return cctx, func() {
		stop()
		cancel()
	}
}

// Navigate loads url
func (s *Session) Navigate(ctx context.Context, url string) error {
	if err := s.run(ctx, chromedp.Navigate(url)); err != nil {
		return fmt.Errorf("failed to navigate to %s: %w", url, err)
	}
	return nil
}

// Items snapshots the outer HTML of every element matching selector
func (s *Session) Items(ctx context.Context, selector string) ([]Item, error) {
	js := fmt.Sprintf(`Array.from(document.querySelectorAll(%s)).map(el => el.outerHTML)`, jsString(selector))

	var raw []string
	if err := s.run(ctx, chromedp.Evaluate(js, &raw)); err != nil {
		return nil, fmt.Errorf("failed to read %s from DOM: %w", selector, err)
	}

	items := make([]Item, 0, len(raw))
	for _, html := range raw {
		item, err := ParseItem(html)
		if err != nil {
			// Element was detached between query and serialization
			continue
		}
		items = append(items, item)
	}
	return items, nil
}

// Exists reports whether selector currently matches anything
func (s *Session) Exists(ctx context.Context, selector string) (bool, error) {
	js := fmt.Sprintf(`document.querySelector(%s) !== null`, jsString(selector))

	var found bool
	if err := s.run(ctx, chromedp.Evaluate(js, &found)); err != nil {
		return false, fmt.Errorf("failed to query %s: %w", selector, err)
	}
	return found, nil
}

// WaitFirst polls until one of selectors matches or timeout elapses
func (s *Session) WaitFirst(ctx context.Context, timeout time.Duration, selectors ...string) (string, bool, error) {
	deadline := time.After(timeout)
	ticker := time.NewTicker(pollInterval)
	defer ticker.Stop()

	for {
		for _, sel := range selectors {
			found, err := s.Exists(ctx, sel)
			if err != nil {
				// Page may be mid-navigation; try again on the next tick
				continue
			}
			if found {
				return sel, true, nil
			}
		}

		select {
		case <-deadline:
			return "", false, nil
		case <-ctx.Done():
			return "", false, ctx.Err()
		case <-ticker.C:
		}
	}
}

// ScrollBy scrolls down by a fraction of the viewport height
func (s *Session) ScrollBy(ctx context.Context, fraction float64) error {
	js := fmt.Sprintf(`window.scrollBy(0, Math.round(window.innerHeight * %f))`, fraction)
	return s.run(ctx, chromedp.Evaluate(js, nil))
}

// ScrollHeight returns document.documentElement.scrollHeight
func (s *Session) ScrollHeight(ctx context.Context) (int64, error) {
	var height int64
	if err := s.run(ctx, chromedp.Evaluate(`document.documentElement.scrollHeight`, &height)); err != nil {
		return 0, fmt.Errorf("failed to read scroll height: %w", err)
	}
	return height, nil
}

// jsString renders s as a JavaScript string literal
func jsString(s string) string {
	b, _ := json.Marshal(s)
	return string(b)
}

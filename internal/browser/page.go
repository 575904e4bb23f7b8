package browser

import (
	"context"
	"time"
)

// Page is the subset of browser control the collectors need. Element lookup is
// by CSS selector; absence is reported through booleans, never as an error.
type Page interface {
	// Navigate loads url in the current tab
	Navigate(ctx context.Context, url string) error

	// Items returns a snapshot of every element currently matching selector,
	// in document order
	Items(ctx context.Context, selector string) ([]Item, error)

	// Exists reports whether at least one element matches selector right now
	Exists(ctx context.Context, selector string) (bool, error)

	// WaitFirst waits up to timeout for any of selectors to match and returns
	// the one that did. ok is false when the timeout elapsed.
	WaitFirst(ctx context.Context, timeout time.Duration, selectors ...string) (matched string, ok bool, err error)

	// ScrollBy scrolls forward by fraction of the viewport height
	ScrollBy(ctx context.Context, fraction float64) error

	// ScrollHeight returns the document's total scrollable height
	ScrollHeight(ctx context.Context) (int64, error)
}

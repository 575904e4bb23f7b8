package scraper

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"github.com/ibeckermayer/xengage/internal/browser"
	"github.com/ibeckermayer/xengage/internal/types"
)

// InteractionChecker answers "has a replied to or mentioned b" with a single
// live search.
//
// Each pair gets exactly one bounded wait and no retry, so slow result pages
// can produce false negatives.
type InteractionChecker struct {
	page    browser.Page
	timeout time.Duration
	log     zerolog.Logger
}

// NewInteractionChecker creates a checker that waits up to timeout per pair
func NewInteractionChecker(page browser.Page, timeout time.Duration, log zerolog.Logger) *InteractionChecker {
	return &InteractionChecker{
		page:    page,
		timeout: timeout,
		log:     log.With().Str("component", "pairwise").Logger(),
	}
}

// HasInteracted reports whether the search for a's posts directed at b shows
// at least one result. An empty result page, a timeout and any failure all
// read as false.
func (c *InteractionChecker) HasInteracted(ctx context.Context, a, b types.Identity) bool {
	log := c.log.With().Str("from", string(a)).Str("to", string(b)).Logger()

	if err := c.page.Navigate(ctx, SearchURL(InteractionQuery(a, b))); err != nil {
		log.Warn().Err(err).Msg("interaction check failed")
		return false
	}

	matched, ok, err := c.page.WaitFirst(ctx, c.timeout, TweetArticle, EmptyState)
	if err != nil {
		log.Warn().Err(err).Msg("interaction check failed")
		return false
	}
	if !ok {
		log.Debug().Dur("timeout", c.timeout).Msg("no results before timeout")
		return false
	}

	return matched == TweetArticle
}

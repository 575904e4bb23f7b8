// Package scraper collects account handles from X.com feeds: the replies
// under a post, the pinned or latest post of a profile, and live search
// results used for pairwise interaction checks.
package scraper

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/ibeckermayer/xengage/internal/browser"
	"github.com/ibeckermayer/xengage/internal/types"
)

// CollectorOptions tunes the scroll loop
type CollectorOptions struct {
	// ScrollFraction is how much of the viewport each scroll advances
	ScrollFraction float64
	// Pause lets lazily loaded content arrive after a scroll
	Pause time.Duration
	// ConfirmPause is the longer wait before the retry that confirms the
	// feed is exhausted
	ConfirmPause time.Duration
	// MaxScrolls caps scroll commands per feed; 0 means no cap
	MaxScrolls int
}

// DefaultCollectorOptions returns the options used against the live site
func DefaultCollectorOptions() CollectorOptions {
	return CollectorOptions{
		ScrollFraction: 0.8,
		Pause:          1500 * time.Millisecond,
		ConfirmPause:   3 * time.Second,
		MaxScrolls:     200,
	}
}

// FeedSpec describes one feed to collect
type FeedSpec struct {
	// Source labels collected items, usually the page URL
	Source string
	// ItemSelector locates the repeating feed items
	ItemSelector string
	// EmptySelector, if set, marks a feed with no results
	EmptySelector string
	// ExcludeKeys are item keys never collected (the root post of a thread)
	ExcludeKeys []string
	Extractor   Extractor
}

// Collection is the result of one pass over a feed. Items hold one entry
// per distinct identity, in the order first seen.
type Collection struct {
	Source    string           `json:"source"`
	Items     []types.FeedItem `json:"items"`
	Scrolls   int              `json:"scrolls"`
	Exhausted bool             `json:"exhausted"` // false when stopped by MaxScrolls
}

// Identities returns the collected identities in first-seen order
func (c *Collection) Identities() []types.Identity {
	ids := make([]types.Identity, len(c.Items))
	for i, item := range c.Items {
		ids[i] = item.Identity
	}
	return ids
}

// Set returns the collected identities as a set
func (c *Collection) Set() types.IdentitySet {
	return types.NewIdentitySet(c.Identities()...)
}

// FeedCollector scrolls a feed to its end and gathers distinct identities
type FeedCollector struct {
	opts  CollectorOptions
	log   zerolog.Logger
	sleep func(ctx context.Context, d time.Duration) error
}

// NewFeedCollector creates a new feed collector
func NewFeedCollector(opts CollectorOptions, log zerolog.Logger) *FeedCollector {
	if opts.ScrollFraction <= 0 {
		opts.ScrollFraction = DefaultCollectorOptions().ScrollFraction
	}
	return &FeedCollector{
		opts:  opts,
		log:   log.With().Str("component", "feed").Logger(),
		sleep: pause,
	}
}

// Collect scrolls the already-loaded page until the scroll height stops
// growing, recording the author of every item seen along the way.
//
// A height that does not change after a scroll gets one confirmation retry
// with a longer pause; only a second unchanged reading ends the loop.
func (c *FeedCollector) Collect(ctx context.Context, page browser.Page, spec FeedSpec) (*Collection, error) {
	col := &Collection{Source: spec.Source}
	log := c.log.With().Str("source", spec.Source).Logger()

	if spec.EmptySelector != "" {
		empty, err := page.Exists(ctx, spec.EmptySelector)
		if err != nil {
			log.Warn().Err(err).Msg("could not check for empty feed")
		} else if empty {
			log.Info().Msg("feed reports no results")
			col.Exhausted = true
			return col, nil
		}
	}

	h := &harvester{
		spec:       spec,
		col:        col,
		log:        log,
		seenKeys:   make(map[string]bool),
		excluded:   make(map[string]bool, len(spec.ExcludeKeys)),
		identities: make(types.IdentitySet),
	}
	for _, k := range spec.ExcludeKeys {
		h.excluded[k] = true
	}

	lastHeight, err := page.ScrollHeight(ctx)
	if err != nil {
		return nil, err
	}

	for {
		if err := h.harvest(ctx, page); err != nil {
			return nil, err
		}

		height, err := c.step(ctx, page, col, c.opts.Pause)
		if errors.Is(err, errScrollCap) {
			break
		}
		if err != nil {
			return nil, err
		}

		if height == lastHeight {
			// The stalled frame can still show items the next scroll unmounts
			if err := h.harvest(ctx, page); err != nil {
				return nil, err
			}
			log.Debug().Int64("height", height).Int("scrolls", col.Scrolls).Msg("height unchanged, confirming")
			height, err = c.step(ctx, page, col, c.opts.ConfirmPause)
			if errors.Is(err, errScrollCap) {
				break
			}
			if err != nil {
				return nil, err
			}
			if height == lastHeight {
				col.Exhausted = true
				break
			}
		}
		lastHeight = height
	}

	// Pick up whatever the last scrolls brought into view
	if err := h.harvest(ctx, page); err != nil {
		return nil, err
	}

	if col.Exhausted {
		log.Info().Int("identities", len(col.Items)).Int("scrolls", col.Scrolls).Msg("feed exhausted")
	} else {
		log.Warn().Int("identities", len(col.Items)).Int("max_scrolls", c.opts.MaxScrolls).Msg("scroll cap reached")
	}
	return col, nil
}

// errScrollCap stops the loop once MaxScrolls is spent
var errScrollCap = errors.New("scroll cap reached")

// step scrolls once, waits, and reads the new height
func (c *FeedCollector) step(ctx context.Context, page browser.Page, col *Collection, wait time.Duration) (int64, error) {
	if c.opts.MaxScrolls > 0 && col.Scrolls >= c.opts.MaxScrolls {
		return 0, errScrollCap
	}

	if err := page.ScrollBy(ctx, c.opts.ScrollFraction); err != nil {
		return 0, fmt.Errorf("failed to scroll: %w", err)
	}
	col.Scrolls++

	if err := c.sleep(ctx, wait); err != nil {
		return 0, err
	}

	return page.ScrollHeight(ctx)
}

// harvester holds the dedupe state of one Collect call
type harvester struct {
	spec       FeedSpec
	col        *Collection
	log        zerolog.Logger
	seenKeys   map[string]bool
	excluded   map[string]bool
	identities types.IdentitySet
}

func (h *harvester) harvest(ctx context.Context, page browser.Page) error {
	items, err := page.Items(ctx, h.spec.ItemSelector)
	if err != nil {
		return fmt.Errorf("failed to locate feed items: %w", err)
	}

	ex := h.spec.Extractor
	for _, item := range items {
		key, err := ex.Key(item)
		if err != nil {
			// Not yet fully rendered; it will be retried on the next frame
			h.log.Debug().Err(err).Msg("skipping item without key")
			continue
		}
		if h.seenKeys[key] {
			continue
		}
		h.seenKeys[key] = true

		if h.excluded[key] {
			continue
		}

		id, err := ex.Identity(item)
		if err != nil {
			h.log.Warn().Err(err).Str("key", key).Msg("skipping item")
			continue
		}
		if !h.identities.Add(id) {
			continue
		}

		at, _ := ex.ObservedAt(item)
		h.col.Items = append(h.col.Items, types.FeedItem{
			Identity:   id,
			Key:        key,
			Position:   len(h.col.Items),
			ObservedAt: at,
			Source:     h.spec.Source,
		})
	}
	return nil
}

// pause waits for d or until ctx is done
func pause(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()

	select {
	case <-t.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

package scraper

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"github.com/ibeckermayer/xengage/internal/browser"
	"github.com/ibeckermayer/xengage/internal/types"
)

// TargetResult is what was collected for one target account. Post and
// Collection are nil when the target could not be processed.
type TargetResult struct {
	Target     types.Identity    `json:"target"`
	Post       *types.TargetPost `json:"post,omitempty"`
	Collection *Collection       `json:"collection,omitempty"`
	Error      string            `json:"error,omitempty"`
}

// Set returns the identities that replied to the target's post
func (r TargetResult) Set() types.IdentitySet {
	if r.Collection == nil {
		return types.IdentitySet{}
	}
	return r.Collection.Set()
}

// CrossAccountCollector gathers the repliers to each target account's
// representative post
type CrossAccountCollector struct {
	page        browser.Page
	resolver    *PostResolver
	feed        *FeedCollector
	waitTimeout time.Duration
	log         zerolog.Logger
}

// NewCrossAccountCollector creates a collector driving page
func NewCrossAccountCollector(page browser.Page, resolver *PostResolver, feed *FeedCollector, waitTimeout time.Duration, log zerolog.Logger) *CrossAccountCollector {
	return &CrossAccountCollector{
		page:        page,
		resolver:    resolver,
		feed:        feed,
		waitTimeout: waitTimeout,
		log:         log.With().Str("component", "cross-account").Logger(),
	}
}

// Collect processes targets in order. A failure on one target is logged and
// leaves that target with an empty set; it never stops the batch.
func (c *CrossAccountCollector) Collect(ctx context.Context, targets []types.Identity) []TargetResult {
	results := make([]TargetResult, 0, len(targets))

	for i, target := range targets {
		log := c.log.With().Str("target", string(target)).Logger()
		log.Info().Msgf("[%d/%d] collecting repliers", i+1, len(targets))

		res := TargetResult{Target: target}

		post, ok, err := c.resolver.Resolve(ctx, c.page, target)
		switch {
		case err != nil:
			log.Error().Err(err).Msg("failed to resolve target post")
			res.Error = err.Error()
		case !ok:
			log.Warn().Msg("no post found for target")
		default:
			res.Post = &post
			log.Info().Str("post", post.URL).Bool("pinned", post.Pinned).Msg("resolved target post")

			col, err := c.feed.CollectThread(ctx, c.page, post.URL, c.waitTimeout)
			if err != nil {
				log.Error().Err(err).Msg("failed to collect replies")
				res.Error = err.Error()
			} else {
				res.Collection = col
				log.Info().Int("repliers", len(col.Items)).Msg("collected replies")
			}
		}

		results = append(results, res)
	}

	return results
}

// CollectPerTarget returns the replier set for every target. Every target is
// present in the result, with an empty set when nothing was collected.
func (c *CrossAccountCollector) CollectPerTarget(ctx context.Context, targets []types.Identity) map[types.Identity]types.IdentitySet {
	return MembershipSets(c.Collect(ctx, targets))
}

// MembershipSets indexes results by target
func MembershipSets(results []TargetResult) map[types.Identity]types.IdentitySet {
	sets := make(map[types.Identity]types.IdentitySet, len(results))
	for _, r := range results {
		sets[r.Target] = r.Set()
	}
	return sets
}

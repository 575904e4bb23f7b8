package scraper

import (
	"context"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/ibeckermayer/xengage/internal/browser"
	"github.com/ibeckermayer/xengage/internal/types"
)

// PostResolver picks the representative post of a profile: the pinned post
// if there is one, otherwise the most recent post by the account.
type PostResolver struct {
	waitTimeout time.Duration
	extractor   TweetExtractor
	log         zerolog.Logger
}

// NewPostResolver creates a resolver that waits up to waitTimeout for a
// profile timeline to render
func NewPostResolver(waitTimeout time.Duration, log zerolog.Logger) *PostResolver {
	return &PostResolver{
		waitTimeout: waitTimeout,
		log:         log.With().Str("component", "resolver").Logger(),
	}
}

// Resolve returns handle's target post. ok is false when the profile shows no
// posts.
func (r *PostResolver) Resolve(ctx context.Context, page browser.Page, handle types.Identity) (types.TargetPost, bool, error) {
	if err := page.Navigate(ctx, ProfileURL(handle)); err != nil {
		return types.TargetPost{}, false, err
	}

	matched, ok, err := page.WaitFirst(ctx, r.waitTimeout, TweetArticle, EmptyState)
	if err != nil {
		return types.TargetPost{}, false, err
	}
	if !ok || matched == EmptyState {
		return types.TargetPost{}, false, nil
	}

	items, err := page.Items(ctx, TweetArticle)
	if err != nil {
		return types.TargetPost{}, false, err
	}

	var first, firstOwn *types.TargetPost
	for _, item := range items {
		p, err := r.postFromItem(item)
		if err != nil {
			r.log.Debug().Err(err).Str("handle", string(handle)).Msg("skipping unreadable timeline item")
			continue
		}

		// A pinned post always renders at the top of its owner's timeline
		if isPinned(item) {
			p.Pinned = true
			return p, true, nil
		}

		if first == nil {
			first = &p
		}
		if firstOwn == nil && !isRepost(item) && strings.EqualFold(string(p.Owner), string(handle)) {
			firstOwn = &p
		}
	}

	switch {
	case firstOwn != nil:
		return *firstOwn, true, nil
	case first != nil:
		return *first, true, nil
	default:
		return types.TargetPost{}, false, nil
	}
}

func (r *PostResolver) postFromItem(item browser.Item) (types.TargetPost, error) {
	id, err := r.extractor.Key(item)
	if err != nil {
		return types.TargetPost{}, err
	}
	owner, err := r.extractor.Identity(item)
	if err != nil {
		return types.TargetPost{}, err
	}
	return types.TargetPost{
		Owner: owner,
		ID:    id,
		URL:   StatusURL(owner, id),
	}, nil
}

package scraper

import (
	"errors"
	"strings"
	"time"

	"github.com/ibeckermayer/xengage/internal/browser"
	"github.com/ibeckermayer/xengage/internal/types"
)

var (
	errNoStatusLink = errors.New("item has no status link")
	errNoAuthor     = errors.New("item has no author handle")
)

// Extractor pulls the per-item key, the author identity and an optional
// timestamp out of a feed item
type Extractor interface {
	Key(item browser.Item) (string, error)
	Identity(item browser.Item) (types.Identity, error)
	ObservedAt(item browser.Item) (time.Time, bool)
}

// TweetExtractor reads X post articles
type TweetExtractor struct{}

var _ Extractor = TweetExtractor{}

// Key returns the post's status id
func (TweetExtractor) Key(item browser.Item) (string, error) {
	for _, link := range item.FindAll(TweetLink) {
		href, _ := link.Attr("href")
		if id, ok := StatusID(href); ok {
			return id, nil
		}
	}
	return "", errNoStatusLink
}

// Identity returns the author handle from the User-Name block
func (TweetExtractor) Identity(item browser.Item) (types.Identity, error) {
	author, ok := item.Find(TweetAuthor)
	if !ok {
		return "", errNoAuthor
	}
	link, ok := author.Find(AuthorLink)
	if !ok {
		return "", errNoAuthor
	}
	href, _ := link.Attr("href")

	// "/alice" or "/alice/status/..."
	handle, _, _ := strings.Cut(strings.TrimPrefix(href, "/"), "/")
	if handle == "" {
		return "", errNoAuthor
	}
	return types.Identity(handle), nil
}

// ObservedAt returns the post's datetime attribute, if present
func (TweetExtractor) ObservedAt(item browser.Item) (time.Time, bool) {
	el, ok := item.Find(TweetTimestamp)
	if !ok {
		return time.Time{}, false
	}
	raw, ok := el.Attr("datetime")
	if !ok || raw == "" {
		return time.Time{}, false
	}
	t, err := time.Parse(time.RFC3339, raw)
	if err != nil {
		return time.Time{}, false
	}
	return t, true
}

// socialContext returns the banner text above a tweet ("Pinned", "alice reposted")
func socialContext(item browser.Item) string {
	el, ok := item.Find(SocialContext)
	if !ok {
		return ""
	}
	return el.Text()
}

func isPinned(item browser.Item) bool {
	return strings.Contains(socialContext(item), PinnedMarker)
}

func isRepost(item browser.Item) bool {
	ctx := socialContext(item)
	return strings.Contains(strings.ToLower(ctx), RepostMarker) || strings.Contains(ctx, RetweetMarker)
}

// Package scrapertest renders minimal X.com markup for driving the scraper
// against a browsertest.Page.
package scrapertest

import (
	"fmt"
	"strings"
	"time"

	"github.com/ibeckermayer/xengage/internal/browser/browsertest"
	"github.com/ibeckermayer/xengage/internal/scraper"
)

type tweet struct {
	handle   string
	id       string
	banner   string
	at       time.Time
	noAuthor bool
	noStatus bool
}

// TweetOption customizes a rendered tweet
type TweetOption func(*tweet)

// Pinned marks the tweet as its author's pinned post
func Pinned() TweetOption {
	return func(t *tweet) { t.banner = "Pinned" }
}

// RepostedBy renders the tweet as reposted onto who's timeline
func RepostedBy(who string) TweetOption {
	return func(t *tweet) { t.banner = who + " reposted" }
}

// At sets the tweet's datetime
func At(at time.Time) TweetOption {
	return func(t *tweet) { t.at = at }
}

// WithoutAuthor drops the User-Name block
func WithoutAuthor() TweetOption {
	return func(t *tweet) { t.noAuthor = true }
}

// WithoutStatusLink drops every status link, as in a half-rendered article
func WithoutStatusLink() TweetOption {
	return func(t *tweet) { t.noStatus = true }
}

// Tweet renders an article for a post by handle with status id
func Tweet(handle, id string, opts ...TweetOption) string {
	t := &tweet{handle: handle, id: id}
	for _, opt := range opts {
		opt(t)
	}

	var b strings.Builder
	b.WriteString(`<article data-testid="tweet">`)
	if t.banner != "" {
		fmt.Fprintf(&b, `<div data-testid="socialContext"><span>%s</span></div>`, t.banner)
	}
	if !t.noAuthor {
		fmt.Fprintf(&b, `<div data-testid="User-Name"><a href="/%s"><span>%s</span></a></div>`, t.handle, t.handle)
	}
	if !t.noStatus {
		fmt.Fprintf(&b, `<a href="/%s/status/%s">`, t.handle, t.id)
		if !t.at.IsZero() {
			fmt.Fprintf(&b, `<time datetime="%s">now</time>`, t.at.UTC().Format(time.RFC3339))
		}
		b.WriteString(`</a>`)
	}
	fmt.Fprintf(&b, `<div data-testid="tweetText">post %s</div>`, t.id)
	b.WriteString(`</article>`)
	return b.String()
}

// Feed scripts a page of tweets. frames[n] is visible after n scrolls and
// heights[n] is the scroll height after n scrolls.
func Feed(frames [][]string, heights []int64) *browsertest.Feed {
	f := &browsertest.Feed{
		Frames:  frames,
		Heights: heights,
		Present: map[string]bool{},
	}
	for _, frame := range frames {
		if len(frame) > 0 {
			f.Present[scraper.TweetArticle] = true
			break
		}
	}
	return f
}

// Static scripts a page whose items never change and whose height is fixed
func Static(items ...string) *browsertest.Feed {
	return Feed([][]string{items}, []int64{1000})
}

// Empty scripts a page showing the "no results" placeholder
func Empty() *browsertest.Feed {
	return &browsertest.Feed{
		Heights: []int64{800},
		Present: map[string]bool{scraper.EmptyState: true},
	}
}

// Home scripts the home timeline of a logged-in session
func Home() *browsertest.Feed {
	return &browsertest.Feed{Present: map[string]bool{scraper.HomeIndicator: true}}
}

package scraper

import (
	"context"
	"fmt"
	"time"

	"github.com/ibeckermayer/xengage/internal/browser"
)

// ThreadSpec returns the feed spec for the replies under the post at postURL.
// The post itself is excluded by its status id.
func ThreadSpec(postURL string) FeedSpec {
	spec := FeedSpec{
		Source:       postURL,
		ItemSelector: TweetArticle,
		Extractor:    TweetExtractor{},
	}
	if id, ok := StatusID(postURL); ok {
		spec.ExcludeKeys = []string{id}
	}
	return spec
}

// CollectThread opens the post at postURL and collects everyone who replied
// to it
func (c *FeedCollector) CollectThread(ctx context.Context, page browser.Page, postURL string, waitTimeout time.Duration) (*Collection, error) {
	if err := page.Navigate(ctx, postURL); err != nil {
		return nil, err
	}

	_, ok, err := page.WaitFirst(ctx, waitTimeout, TweetArticle)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, fmt.Errorf("post %s did not load within %v", postURL, waitTimeout)
	}

	return c.Collect(ctx, page, ThreadSpec(postURL))
}

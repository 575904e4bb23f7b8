package scraper

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ibeckermayer/xengage/internal/browser"
	"github.com/ibeckermayer/xengage/internal/types"
)

func mustItem(t *testing.T, html string) browser.Item {
	t.Helper()
	item, err := browser.ParseItem(html)
	require.NoError(t, err)
	return item
}

func TestTweetExtractor(t *testing.T) {
	item := mustItem(t, `<article data-testid="tweet">
		<div data-testid="socialContext"><span>Pinned</span></div>
		<div data-testid="User-Name"><a href="/Carol_X"><span>Carol</span></a></div>
		<a href="/Carol_X/status/777"><time datetime="2024-03-02T08:30:00.000Z">Mar 2</time></a>
	</article>`)

	var ex TweetExtractor

	key, err := ex.Key(item)
	require.NoError(t, err)
	assert.Equal(t, "777", key)

	id, err := ex.Identity(item)
	require.NoError(t, err)
	assert.Equal(t, types.Identity("Carol_X"), id)

	at, ok := ex.ObservedAt(item)
	assert.True(t, ok)
	assert.Equal(t, 2024, at.Year())

	assert.True(t, isPinned(item))
	assert.False(t, isRepost(item))
}

func TestTweetExtractorMissingParts(t *testing.T) {
	item := mustItem(t, `<article data-testid="tweet">
		<div data-testid="socialContext"><span>Dan reposted</span></div>
		<div data-testid="User-Name"><span>no link</span></div>
		<time datetime="yesterday">?</time>
	</article>`)

	var ex TweetExtractor

	_, err := ex.Key(item)
	assert.ErrorIs(t, err, errNoStatusLink)

	_, err = ex.Identity(item)
	assert.ErrorIs(t, err, errNoAuthor)

	_, ok := ex.ObservedAt(item)
	assert.False(t, ok)

	assert.True(t, isRepost(item))
	assert.False(t, isPinned(item))
}

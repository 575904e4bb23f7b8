package browser

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseItem(t *testing.T) {
	item, err := ParseItem(`<article data-testid="tweet">
		<div data-testid="User-Name"><a href="/alice"><span>Alice</span></a></div>
		<a href="/alice/status/42"><time datetime="2024-05-01T10:00:00.000Z">May 1</time></a>
		<a href="/alice/status/42/photo/1">photo</a>
	</article>`)
	require.NoError(t, err)

	testID, ok := item.Attr("data-testid")
	assert.True(t, ok)
	assert.Equal(t, "tweet", testID)

	name, ok := item.Find(`[data-testid="User-Name"]`)
	require.True(t, ok)
	assert.Equal(t, "Alice", name.Text())

	links := item.FindAll(`a[href*="/status/"]`)
	assert.Len(t, links, 2)

	_, ok = item.Find(`[data-testid="socialContext"]`)
	assert.False(t, ok)
}

func TestParseItemEmpty(t *testing.T) {
	_, err := ParseItem("   ")
	assert.Error(t, err)
}

func TestZeroItem(t *testing.T) {
	var item Item
	_, ok := item.Attr("href")
	assert.False(t, ok)
	_, ok = item.Find("a")
	assert.False(t, ok)
	assert.Empty(t, item.FindAll("a"))
	assert.Equal(t, "", item.Text())
}

package scraper

import (
	"net/url"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStatusID(t *testing.T) {
	id, ok := StatusID("https://x.com/carol/status/1790000000000000000?s=20")
	assert.True(t, ok)
	assert.Equal(t, "1790000000000000000", id)

	_, ok = StatusID("https://x.com/carol")
	assert.False(t, ok)
}

func TestSearchURL(t *testing.T) {
	raw := SearchURL(InteractionQuery("alice", "carol"))

	u, err := url.Parse(raw)
	require.NoError(t, err)
	assert.Equal(t, "/search", u.Path)
	assert.Equal(t, "(from:alice to:carol) OR (from:alice @carol)", u.Query().Get("q"))
	assert.Equal(t, "live", u.Query().Get("f"))
}

package store

import (
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ibeckermayer/xengage/internal/types"
)

func TestStepCache(t *testing.T) {
	c := NewStepCache(t.TempDir())
	clock := time.Date(2024, 5, 1, 9, 0, 0, 0, time.UTC)
	c.now = func() time.Time { return clock }

	_, _, ok, err := LoadLatestStepOutput[[]types.FeedItem](c, StepCommenters)
	require.NoError(t, err)
	assert.False(t, ok)

	first := []types.FeedItem{{Identity: "bob", Key: "1", Source: "seed"}}
	_, err = SaveStepOutput(c, StepCommenters, first)
	require.NoError(t, err)

	clock = clock.Add(1500 * time.Millisecond)
	second := []types.FeedItem{{Identity: "carol", Key: "2", Source: "seed"}}
	path, err := SaveStepOutput(c, StepCommenters, second)
	require.NoError(t, err)

	got, gotPath, ok, err := LoadLatestStepOutput[[]types.FeedItem](c, StepCommenters)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, path, gotPath)
	assert.Equal(t, second, got)

	_, _, ok, err = LoadLatestStepOutput[[]types.FeedItem](c, StepMatrix)
	require.NoError(t, err)
	assert.False(t, ok, "steps are cached independently")
}

func TestLoadStepOutputCorrupt(t *testing.T) {
	c := NewStepCache(t.TempDir())
	require.NoError(t, os.MkdirAll(c.stepDir(StepTargets), 0755))
	require.NoError(t, os.WriteFile(c.stepDir(StepTargets)+"/2024-01-01T00-00-00.000.json", []byte("{"), 0644))

	_, _, _, err := LoadLatestStepOutput[map[string]any](c, StepTargets)
	assert.Error(t, err)
}

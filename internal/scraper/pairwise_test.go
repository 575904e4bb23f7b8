package scraper_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"

	"github.com/ibeckermayer/xengage/internal/browser/browsertest"
	"github.com/ibeckermayer/xengage/internal/scraper"
	"github.com/ibeckermayer/xengage/internal/scraper/scrapertest"
)

func TestHasInteracted(t *testing.T) {
	searchURL := scraper.SearchURL(scraper.InteractionQuery("alice", "carol"))

	tests := []struct {
		name string
		feed *browsertest.Feed
		want bool
	}{
		{"results", scrapertest.Static(scrapertest.Tweet("alice", "1")), true},
		{"empty result page", scrapertest.Empty(), false},
		{"timeout with no items", &browsertest.Feed{}, false},
		{"navigation failure", &browsertest.Feed{NavigateErr: errors.New("net::ERR_ABORTED")}, false},
		{"wait failure", &browsertest.Feed{WaitErr: errors.New("context canceled")}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			page := browsertest.New().Add(searchURL, tt.feed)
			c := scraper.NewInteractionChecker(page, time.Second, zerolog.Nop())

			assert.Equal(t, tt.want, c.HasInteracted(context.Background(), "alice", "carol"))
			assert.Equal(t, []string{searchURL}, page.Visited, "exactly one attempt per pair")
		})
	}
}

func TestVerifyLogin(t *testing.T) {
	ctx := context.Background()

	page := browsertest.New().Add(scraper.HomeURL, scrapertest.Home())
	assert.NoError(t, scraper.VerifyLogin(ctx, page, time.Second))

	page = browsertest.New().Add(scraper.HomeURL, &browsertest.Feed{Present: map[string]bool{scraper.LoginForm: true}})
	assert.ErrorIs(t, scraper.VerifyLogin(ctx, page, time.Second), scraper.ErrLoginNotVerified)

	page = browsertest.New()
	assert.ErrorIs(t, scraper.VerifyLogin(ctx, page, time.Second), scraper.ErrLoginNotVerified)
}

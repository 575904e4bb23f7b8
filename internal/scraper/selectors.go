package scraper

// X.com DOM selectors
// These are isolated here because X changes their DOM frequently
// Update these when scraping breaks

const (
	// Feed selectors
	FeedContainer = `[data-testid="primaryColumn"]`
	TweetArticle  = `article[data-testid="tweet"]`

	// Tweet content selectors
	TweetAuthor    = `[data-testid="User-Name"]`
	AuthorLink     = `a[href^="/"]`
	TweetTimestamp = `time`
	TweetLink      = `a[href*="/status/"]`

	// Pinned / repost banner above a tweet
	SocialContext = `[data-testid="socialContext"]`

	// "No results" placeholder on search and empty profiles
	EmptyState = `[data-testid="emptyState"]`

	// Login page indicators (for detecting auth state)
	HomeIndicator = `[data-testid="SideNav_NewTweet_Button"]`
	LoginForm     = `[data-testid="loginButton"]`
)

// Social context banner texts
const (
	PinnedMarker  = "Pinned"
	RepostMarker  = "reposted"
	RetweetMarker = "Retweeted"
)

package app

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/chromedp/cdproto/network"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	xbrowser "github.com/ibeckermayer/xengage/internal/browser"
	"github.com/ibeckermayer/xengage/internal/browser/browsertest"
	"github.com/ibeckermayer/xengage/internal/config"
	"github.com/ibeckermayer/xengage/internal/scraper"
	"github.com/ibeckermayer/xengage/internal/scraper/scrapertest"
	"github.com/ibeckermayer/xengage/internal/store"
	"github.com/ibeckermayer/xengage/internal/types"
)

const seedURL = "https://x.com/alice/status/1"

type fakeAuth struct {
	authed bool
}

func (f *fakeAuth) IsAuthenticated() bool { return f.authed }

func (f *fakeAuth) Cookies() ([]*network.Cookie, error) {
	return []*network.Cookie{{Name: "auth_token", Value: "t"}}, nil
}

func (f *fakeAuth) Login(ctx context.Context) error {
	f.authed = true
	return nil
}

func (f *fakeAuth) Logout() error {
	f.authed = false
	return nil
}

type fakeOpener struct {
	page     *browsertest.Page
	opened   int
	released int
}

func (o *fakeOpener) open(ctx context.Context, headless bool, cookies []*network.Cookie) (xbrowser.Page, func(), error) {
	o.opened++
	return o.page, func() { o.released++ }, nil
}

func testConfig(t *testing.T) *config.Config {
	cfg := config.Default()
	cfg.Run.SeedPostURL = seedURL
	cfg.Run.OutputPath = filepath.Join(t.TempDir(), "out.csv")
	cfg.Scraping.ScrollPauseMs = 0
	cfg.Scraping.ConfirmPauseMs = 0
	cfg.Scraping.WaitTimeoutMs = 10
	cfg.Scraping.PairwiseTimeoutMs = 10
	return cfg
}

func loggedIn() *browsertest.Page {
	return browsertest.New().Add(scraper.HomeURL, scrapertest.Home())
}

func newTestApp(cfg *config.Config, page *browsertest.Page, deps Deps) (*App, *fakeOpener) {
	o := &fakeOpener{page: page}
	if deps.Auth == nil {
		deps.Auth = &fakeAuth{authed: true}
	}
	deps.Open = o.open
	deps.Log = zerolog.Nop()
	return New(cfg, deps), o
}

func readOutput(t *testing.T, cfg *config.Config) string {
	t.Helper()
	data, err := os.ReadFile(cfg.Run.OutputPath)
	require.NoError(t, err)
	return string(data)
}

// matrixPage scripts a seed post answered by bob and dave, a target carol
// with a pinned post answered by bob, and a target erin whose latest post
// was answered by dave and bob.
func matrixPage() *browsertest.Page {
	return loggedIn().
		Add(seedURL, scrapertest.Static(
			scrapertest.Tweet("alice", "1"),
			scrapertest.Tweet("bob", "2"),
			scrapertest.Tweet("dave", "3"),
		)).
		Add(scraper.ProfileURL("carol"), scrapertest.Static(
			scrapertest.Tweet("carol", "10", scrapertest.Pinned()),
			scrapertest.Tweet("carol", "11"),
		)).
		Add("https://x.com/carol/status/10", scrapertest.Static(
			scrapertest.Tweet("carol", "10"),
			scrapertest.Tweet("bob", "12"),
		)).
		Add(scraper.ProfileURL("erin"), scrapertest.Static(
			scrapertest.Tweet("erin", "20"),
		)).
		Add("https://x.com/erin/status/20", scrapertest.Static(
			scrapertest.Tweet("erin", "20"),
			scrapertest.Tweet("dave", "21"),
			scrapertest.Tweet("bob", "22"),
		))
}

func TestRunMatrix(t *testing.T) {
	cfg := testConfig(t)
	cfg.Run.Targets = []string{"carol", "erin"}
	page := matrixPage()
	var out bytes.Buffer
	a, o := newTestApp(cfg, page, Deps{Out: &out})

	res, err := a.Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, "Username,carol,erin,False_count\nbob,TRUE,TRUE,0\ndave,FALSE,TRUE,1\n", readOutput(t, cfg))
	assert.Equal(t, []types.Identity{"bob", "dave"}, res.Subjects)
	require.Len(t, res.Targets, 2)
	require.NotNil(t, res.Targets[0].Post)
	assert.True(t, res.Targets[0].Post.Pinned, "pinned post is preferred")
	assert.NotContains(t, page.Visited, "https://x.com/carol/status/11")
	assert.Equal(t, cfg.Run.OutputPath, res.OutputPath)
	assert.Contains(t, out.String(), "dave")
	assert.Equal(t, 1, o.opened)
	assert.Equal(t, 1, o.released)
}

func TestRunMatrixWithoutCommenters(t *testing.T) {
	cfg := testConfig(t)
	cfg.Run.Targets = []string{"carol"}
	page := loggedIn().
		Add(seedURL, scrapertest.Static(scrapertest.Tweet("alice", "1"))).
		Add(scraper.ProfileURL("carol"), scrapertest.Static(scrapertest.Tweet("carol", "10"))).
		Add("https://x.com/carol/status/10", scrapertest.Static(scrapertest.Tweet("carol", "10")))
	a, _ := newTestApp(cfg, page, Deps{})

	res, err := a.Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, "Username,carol,False_count\n", readOutput(t, cfg))
	assert.Empty(t, res.Subjects)
	assert.Contains(t, page.Visited, scraper.ProfileURL("carol"), "targets are still collected")
}

func TestRunMatrixTargetFailureIsIsolated(t *testing.T) {
	cfg := testConfig(t)
	cfg.Run.Targets = []string{"ghost", "carol"}
	page := matrixPage()
	page.Add(scraper.ProfileURL("ghost"), &browsertest.Feed{NavigateErr: errors.New("net::ERR_ABORTED")})
	a, _ := newTestApp(cfg, page, Deps{})

	res, err := a.Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, "Username,ghost,carol,False_count\nbob,FALSE,TRUE,1\ndave,FALSE,FALSE,2\n", readOutput(t, cfg))
	assert.NotEmpty(t, res.Targets[0].Error)
	assert.Nil(t, res.Targets[0].Collection)
}

func TestRunPairwiseAllPairs(t *testing.T) {
	cfg := testConfig(t)
	cfg.Run.Mode = config.ModePairwise
	cfg.Run.SeedPostURL = ""
	cfg.Run.Subjects = []string{"a", "b"}
	page := loggedIn().
		Add(scraper.SearchURL(scraper.InteractionQuery("a", "b")), scrapertest.Static(scrapertest.Tweet("a", "5"))).
		Add(scraper.SearchURL(scraper.InteractionQuery("b", "a")), scrapertest.Empty())
	a, _ := newTestApp(cfg, page, Deps{})

	res, err := a.Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, []string{"Username", "a", "b", "False_count"}, res.Table.Header)
	assert.Equal(t, [][]string{
		{"a", "", "TRUE", "0"},
		{"b", "FALSE", "", "1"},
	}, res.Table.Records)
	assert.Equal(t, "Username,a,b,False_count\na,,TRUE,0\nb,FALSE,,1\n", readOutput(t, cfg))
	assert.Len(t, page.Visited, 3, "home plus one search per ordered pair")
}

func TestRunPairwiseLogsProgress(t *testing.T) {
	cfg := testConfig(t)
	cfg.Run.Mode = config.ModePairwise
	cfg.Run.SeedPostURL = ""
	cfg.Run.Subjects = []string{"a", "b"}
	page := loggedIn().
		Add(scraper.SearchURL(scraper.InteractionQuery("a", "b")), scrapertest.Empty()).
		Add(scraper.SearchURL(scraper.InteractionQuery("b", "a")), scrapertest.Empty())
	var logs bytes.Buffer
	o := &fakeOpener{page: page}
	a := New(cfg, Deps{
		Auth: &fakeAuth{authed: true},
		Open: o.open,
		Log:  zerolog.New(&logs).Level(zerolog.InfoLevel),
	})

	_, err := a.Run(context.Background())
	require.NoError(t, err)

	assert.Contains(t, logs.String(), `"message":"[1/2] pairs checked"`)
	assert.Contains(t, logs.String(), `"message":"[2/2] pairs checked"`)
	assert.NotContains(t, logs.String(), `"level":"debug"`)
}

func TestLogProgressThrottlesLookups(t *testing.T) {
	var buf bytes.Buffer
	log := zerolog.New(&buf).Level(zerolog.InfoLevel)

	report := logProgress(log, false)
	for i := 1; i <= 25; i++ {
		report(i, 25)
	}
	assert.Equal(t, 13, strings.Count(buf.String(), "pairs checked"), "every second pair plus the last")
	assert.Contains(t, buf.String(), `"message":"[25/25] pairs checked"`)

	buf.Reset()
	report = logProgress(log, true)
	for i := 1; i <= 3; i++ {
		report(i, 3)
	}
	assert.Equal(t, 3, strings.Count(buf.String(), "pairs checked"))
}

func TestRunMatrixWarnsOnCaseOnlyMatch(t *testing.T) {
	cfg := testConfig(t)
	cfg.Run.Targets = []string{"carol", "erin"}
	cfg.Run.Subjects = []string{"Bob", "dave"}
	var logs bytes.Buffer
	o := &fakeOpener{page: matrixPage()}
	a := New(cfg, Deps{
		Auth: &fakeAuth{authed: true},
		Open: o.open,
		Log:  zerolog.New(&logs).Level(zerolog.InfoLevel),
	})

	res, err := a.Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, [][]string{
		{"Bob", "FALSE", "FALSE", "2"},
		{"dave", "FALSE", "TRUE", "1"},
	}, res.Table.Records)
	assert.Contains(t, logs.String(), `"level":"warn"`)
	assert.Contains(t, logs.String(), `"subject":"Bob","collected":"bob"`)
	assert.NotContains(t, logs.String(), `"subject":"dave"`)
}

func TestRunFirstDegree(t *testing.T) {
	cfg := testConfig(t)
	cfg.Run.Mode = config.ModeFirstDegree
	page := loggedIn().Add(seedURL, scrapertest.Static(
		scrapertest.Tweet("alice", "1"),
		scrapertest.Tweet("bob", "2"),
		scrapertest.Tweet("dave", "3"),
		scrapertest.Tweet("bob", "4"),
	))
	a, _ := newTestApp(cfg, page, Deps{})

	res, err := a.Run(context.Background())
	require.NoError(t, err)

	assert.Nil(t, res.Matrix)
	assert.Len(t, res.Commenters, 2)
	assert.Equal(t, "Username,Position,Observed_at\nbob,0,\ndave,1,\n", readOutput(t, cfg))
}

func TestRunFirstDegreeSeedFailure(t *testing.T) {
	cfg := testConfig(t)
	cfg.Run.Mode = config.ModeFirstDegree
	a, o := newTestApp(cfg, loggedIn(), Deps{})

	_, err := a.Run(context.Background())
	require.Error(t, err)

	assert.NoFileExists(t, cfg.Run.OutputPath)
	assert.Equal(t, 1, o.released)
}

func TestRunPrechecks(t *testing.T) {
	t.Run("not authenticated", func(t *testing.T) {
		cfg := testConfig(t)
		cfg.Run.Targets = []string{"carol"}
		a, o := newTestApp(cfg, loggedIn(), Deps{Auth: &fakeAuth{}})

		_, err := a.Run(context.Background())
		assert.ErrorIs(t, err, ErrNotAuthenticated)
		assert.Zero(t, o.opened)
	})

	t.Run("no targets", func(t *testing.T) {
		cfg := testConfig(t)
		a, o := newTestApp(cfg, loggedIn(), Deps{})

		_, err := a.Run(context.Background())
		assert.ErrorIs(t, err, ErrNoTargets)
		assert.Zero(t, o.opened)
	})

	t.Run("no subjects", func(t *testing.T) {
		cfg := testConfig(t)
		cfg.Run.Mode = config.ModePairwise
		cfg.Run.SeedPostURL = ""
		a, _ := newTestApp(cfg, loggedIn(), Deps{})

		_, err := a.Run(context.Background())
		assert.ErrorIs(t, err, ErrNoSubjects)
	})
}

func TestRunLoginNotVerified(t *testing.T) {
	cfg := testConfig(t)
	cfg.Run.Targets = []string{"carol"}
	a, o := newTestApp(cfg, browsertest.New(), Deps{})

	_, err := a.Run(context.Background())
	assert.ErrorIs(t, err, scraper.ErrLoginNotVerified)
	assert.Equal(t, 1, o.released)
	assert.NoFileExists(t, cfg.Run.OutputPath)
}

func TestRunPersistsToStore(t *testing.T) {
	dir := t.TempDir()
	s, err := store.New(filepath.Join(dir, "xengage.db"))
	require.NoError(t, err)
	defer s.Close()
	steps := store.NewStepCache(dir)

	cfg := testConfig(t)
	cfg.Run.Targets = []string{"carol", "erin"}
	a, _ := newTestApp(cfg, matrixPage(), Deps{Store: s, Steps: steps})

	res, err := a.Run(context.Background())
	require.NoError(t, err)
	require.NotEmpty(t, res.RunID)

	run, ok, err := s.GetRun(res.RunID)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, store.RunCompleted, run.Status)
	assert.Equal(t, cfg.Run.OutputPath, run.OutputPath)

	m, err := s.LoadMatrix(res.RunID)
	require.NoError(t, err)
	assert.Equal(t, res.Matrix.Records(), m.Records())

	posts, err := s.TargetPosts(res.RunID)
	require.NoError(t, err)
	require.Len(t, posts, 2)
	assert.True(t, posts[0].Pinned)

	commenters, err := s.LoadCollection(res.RunID, seedURL)
	require.NoError(t, err)
	assert.Len(t, commenters, 2)

	for _, step := range []store.StepName{store.StepCommenters, store.StepTargets, store.StepMatrix} {
		_, ok, err := steps.LatestStepFile(step)
		require.NoError(t, err)
		assert.True(t, ok, "step %s cached", step)
	}
}

func TestRunRecordsFailure(t *testing.T) {
	dir := t.TempDir()
	s, err := store.New(filepath.Join(dir, "xengage.db"))
	require.NoError(t, err)
	defer s.Close()

	cfg := testConfig(t)
	cfg.Run.Targets = []string{"carol"}
	a, _ := newTestApp(cfg, browsertest.New(), Deps{Store: s})

	res, err := a.Run(context.Background())
	require.Error(t, err)

	run, ok, err := s.GetRun(res.RunID)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, store.RunFailed, run.Status)
	assert.Contains(t, run.Error, "login could not be verified")
}

func TestReloadConfig(t *testing.T) {
	cfg := testConfig(t)
	cfg.Run.Targets = []string{"carol"}
	a, _ := newTestApp(cfg, loggedIn(), Deps{})

	err := a.ReloadConfig(func() (*config.Config, error) {
		bad := testConfig(t)
		bad.Run.Mode = "graph"
		return bad, nil
	})
	assert.Error(t, err)
	assert.Same(t, cfg, a.Config())

	next := testConfig(t)
	next.Run.Mode = config.ModeFirstDegree
	require.NoError(t, a.ReloadConfig(func() (*config.Config, error) { return next, nil }))
	assert.Same(t, next, a.Config())
}

func TestLoginLogout(t *testing.T) {
	a, _ := newTestApp(testConfig(t), loggedIn(), Deps{Auth: &fakeAuth{}})

	assert.False(t, a.IsAuthenticated())
	require.NoError(t, a.TriggerLogin(context.Background()))
	assert.True(t, a.IsAuthenticated())
	require.NoError(t, a.TriggerLogout())
	assert.False(t, a.IsAuthenticated())
}

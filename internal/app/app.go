package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"

	"github.com/chromedp/cdproto/network"
	"github.com/pkg/browser"
	"github.com/rs/zerolog"

	xbrowser "github.com/ibeckermayer/xengage/internal/browser"
	"github.com/ibeckermayer/xengage/internal/config"
	"github.com/ibeckermayer/xengage/internal/engagement"
	"github.com/ibeckermayer/xengage/internal/notifier"
	"github.com/ibeckermayer/xengage/internal/report"
	"github.com/ibeckermayer/xengage/internal/scraper"
	"github.com/ibeckermayer/xengage/internal/store"
	"github.com/ibeckermayer/xengage/internal/types"
)

var (
	// ErrNotAuthenticated means no valid X session cookies are stored
	ErrNotAuthenticated = errors.New("not logged in to X, run `xe login` first")
	// ErrNoTargets means matrix mode was started without target accounts
	ErrNoTargets = errors.New("no target accounts configured")
	// ErrNoSubjects means pairwise mode has neither subjects nor a seed post
	ErrNoSubjects = errors.New("no subjects configured and no seed post to collect them from")
)

// Authenticator supplies the X session
type Authenticator interface {
	IsAuthenticated() bool
	Cookies() ([]*network.Cookie, error)
	Login(ctx context.Context) error
	Logout() error
}

// Opener starts a browser session. The returned func releases it and must be
// called exactly once.
type Opener func(ctx context.Context, headless bool, cookies []*network.Cookie) (xbrowser.Page, func(), error)

// ChromeOpener opens a real Chrome session
func ChromeOpener(ctx context.Context, headless bool, cookies []*network.Cookie) (xbrowser.Page, func(), error) {
	s, err := xbrowser.Open(ctx, headless, cookies)
	if err != nil {
		return nil, nil, err
	}
	return s, s.Close, nil
}

// Deps are the collaborators of an App. Store, Steps and Notifier are
// optional.
type Deps struct {
	Auth     Authenticator
	Open     Opener
	Store    *store.Store
	Steps    *store.StepCache
	Notifier *notifier.Notifier
	// Out receives the printed result table
	Out io.Writer
	Log zerolog.Logger
}

// App holds the application state.
type App struct {
	mu   sync.RWMutex
	deps Deps // immutable after creation

	// Mutable - replaced by ReloadConfig.
	config *config.Config

	log zerolog.Logger
}

// New creates a new App instance.
func New(cfg *config.Config, deps Deps) *App {
	if deps.Open == nil {
		deps.Open = ChromeOpener
	}
	if deps.Out == nil {
		deps.Out = io.Discard
	}
	return &App{
		config: cfg,
		deps:   deps,
		log:    deps.Log.With().Str("component", "app").Logger(),
	}
}

// Config returns the current configuration
func (a *App) Config() *config.Config {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.config
}

// IsAuthenticated checks if X.com credentials are stored.
func (a *App) IsAuthenticated() bool {
	return a.deps.Auth.IsAuthenticated()
}

// TriggerLogin starts the X.com login flow.
func (a *App) TriggerLogin(ctx context.Context) error {
	a.log.Info().Msg("opening browser for X.com authentication")
	if err := a.deps.Auth.Login(ctx); err != nil {
		return err
	}
	a.log.Info().Msg("login successful, cookies saved")
	return nil
}

// TriggerLogout clears stored X.com credentials.
func (a *App) TriggerLogout() error {
	if err := a.deps.Auth.Logout(); err != nil {
		return err
	}
	a.log.Info().Msg("logout successful, cookies cleared")
	return nil
}

// ReloadConfig replaces the configuration used by subsequent runs.
func (a *App) ReloadConfig(load func() (*config.Config, error)) error {
	cfg, err := load()
	if err != nil {
		return err
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	a.mu.Lock()
	a.config = cfg
	a.mu.Unlock()

	a.log.Info().Msg("configuration reloaded")
	return nil
}

// OpenOutput opens the most recent output file with the OS default handler.
func (a *App) OpenOutput() error {
	path := a.Config().Run.OutputPath
	if a.deps.Store != nil {
		if r, ok, err := a.deps.Store.LatestRun(); err == nil && ok && r.OutputPath != "" {
			path = r.OutputPath
		}
	}
	a.log.Info().Str("path", path).Msg("opening output")
	return browser.OpenFile(path)
}

// Result is the outcome of one run
type Result struct {
	RunID      string                 `json:"run_id,omitempty"`
	Mode       string                 `json:"mode"`
	Subjects   []types.Identity       `json:"subjects"`
	Commenters []types.FeedItem       `json:"commenters,omitempty"`
	Targets    []scraper.TargetResult `json:"targets,omitempty"`
	Matrix     *engagement.Matrix     `json:"-"`
	Table      report.Table           `json:"table"`
	OutputPath string                 `json:"output_path"`
}

// Run performs one end-to-end run in the configured mode. The browser
// session is released on every path. Per-target and per-pair failures are
// logged and recovered; only session-level failures are returned.
func (a *App) Run(ctx context.Context) (res *Result, err error) {
	cfg := a.Config()
	mode := cfg.Run.Mode
	if mode == "" {
		mode = config.ModeMatrix
	}
	log := a.log.With().Str("mode", mode).Logger()

	if err := precheck(cfg, mode); err != nil {
		return nil, err
	}
	if !a.deps.Auth.IsAuthenticated() {
		return nil, ErrNotAuthenticated
	}
	cookies, err := a.deps.Auth.Cookies()
	if err != nil {
		return nil, fmt.Errorf("failed to load cookies: %w", err)
	}

	res = &Result{Mode: mode}
	if a.deps.Store != nil {
		r, berr := a.deps.Store.BeginRun(mode, cfg.Run.SeedPostURL)
		if berr != nil {
			return nil, berr
		}
		res.RunID = r.ID
		defer func() {
			if ferr := a.deps.Store.FinishRun(r.ID, res.OutputPath, err); ferr != nil {
				log.Error().Err(ferr).Msg("failed to record run status")
			}
		}()
	}

	log.Info().Bool("headless", cfg.Scraping.Headless).Msg("starting browser session")
	page, release, err := a.deps.Open(ctx, cfg.Scraping.Headless, cookies)
	if err != nil {
		return res, fmt.Errorf("failed to start browser session: %w", err)
	}
	defer release()

	if err := scraper.VerifyLogin(ctx, page, cfg.Scraping.WaitTimeout()); err != nil {
		return res, err
	}
	log.Info().Msg("login verified")

	p := &pipeline{app: a, cfg: cfg, page: page, res: res, log: log}
	if err := p.run(ctx); err != nil {
		return res, err
	}

	if err := report.Write(cfg.Run.OutputPath, cfg.Run.OutputFormat, res.Table); err != nil {
		return res, err
	}
	res.OutputPath = cfg.Run.OutputPath
	log.Info().Str("path", res.OutputPath).Int("rows", len(res.Table.Records)).Msg("results saved")

	if err := report.Print(a.deps.Out, res.Table); err != nil {
		log.Warn().Err(err).Msg("failed to print results")
	}

	a.notify(res, cfg)
	return res, nil
}

func precheck(cfg *config.Config, mode string) error {
	switch mode {
	case config.ModeMatrix:
		if len(cfg.Run.TargetIdentities()) == 0 {
			return ErrNoTargets
		}
	case config.ModePairwise:
		if cfg.Run.SeedPostURL == "" && len(cfg.Run.SubjectIdentities()) == 0 {
			return ErrNoSubjects
		}
	case config.ModeFirstDegree:
		if cfg.Run.SeedPostURL == "" {
			return ErrNoSubjects
		}
	default:
		return fmt.Errorf("unknown mode %q", mode)
	}
	return nil
}

func (a *App) notify(res *Result, cfg *config.Config) {
	if a.deps.Notifier == nil {
		return
	}

	s, err := report.NewSummarizer(50)
	if err != nil {
		a.log.Error().Err(err).Msg("failed to build summary")
		return
	}
	summary, err := s.Build(res.Table, report.RunInfo{
		RunID:       res.RunID,
		Mode:        res.Mode,
		SeedPostURL: cfg.Run.SeedPostURL,
		OutputPath:  res.OutputPath,
	})
	if err != nil {
		a.log.Error().Err(err).Msg("failed to build summary")
		return
	}
	if err := a.deps.Notifier.SendReport(summary); err != nil {
		a.log.Error().Err(err).Msg("failed to send summary email")
		return
	}
	a.log.Info().Msg("summary email sent")
}

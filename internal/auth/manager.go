package auth

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/chromedp/cdproto/network"
	"github.com/chromedp/cdproto/storage"
	"github.com/chromedp/chromedp"
	"github.com/rs/zerolog"

	"github.com/ibeckermayer/xengage/internal/browser"
)

const (
	loginURL = "https://x.com/login"

	// How long the user gets to finish logging in
	loginTimeout = 5 * time.Minute
)

var homeURLs = map[string]bool{
	"https://x.com/home":       true,
	"https://twitter.com/home": true,
}

// ErrLoginTimeout is returned when the user does not finish logging in
var ErrLoginTimeout = errors.New("login timeout exceeded")

// Manager handles X.com authentication
type Manager struct {
	cookieStore *CookieStore
	log         zerolog.Logger
}

// NewManager creates a new auth manager
func NewManager(cookieStore *CookieStore, log zerolog.Logger) *Manager {
	return &Manager{
		cookieStore: cookieStore,
		log:         log.With().Str("component", "auth").Logger(),
	}
}

// IsAuthenticated checks if we have valid stored credentials
func (m *Manager) IsAuthenticated() bool {
	return m.cookieStore.IsValid()
}

// Login opens a visible browser window for the user to log in to X.com and
// stores the session cookies once the home timeline is reached
func (m *Manager) Login(ctx context.Context) error {
	allocCtx, cancel := chromedp.NewExecAllocator(ctx, browser.Options(false)...)
	defer cancel()

	browserCtx, cancel := chromedp.NewContext(allocCtx)
	defer cancel()

	if err := chromedp.Run(browserCtx, chromedp.Navigate(loginURL)); err != nil {
		return fmt.Errorf("failed to navigate to login page: %w", err)
	}
	m.log.Info().Dur("timeout", loginTimeout).Msg("waiting for login in the browser window")

	cookies, err := m.waitForLogin(browserCtx)
	if err != nil {
		return fmt.Errorf("login failed: %w", err)
	}

	if err := m.cookieStore.Save(cookies); err != nil {
		return fmt.Errorf("failed to save cookies: %w", err)
	}

	m.log.Info().Int("cookies", len(cookies)).Msg("login captured")
	return nil
}

// waitForLogin polls until the browser reaches the home timeline with an
// auth_token cookie set
func (m *Manager) waitForLogin(ctx context.Context) ([]*network.Cookie, error) {
	timeout := time.After(loginTimeout)
	ticker := time.NewTicker(2 * time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-timeout:
			return nil, ErrLoginTimeout
		case <-ticker.C:
			var url string
			if err := chromedp.Run(ctx, chromedp.Location(&url)); err != nil {
				continue
			}
			if !homeURLs[url] {
				continue
			}

			cookies, err := extractCookies(ctx)
			if err != nil {
				m.log.Debug().Err(err).Msg("cookie read failed, retrying")
				continue
			}
			for _, c := range cookies {
				if c.Name == "auth_token" && c.Value != "" {
					return cookies, nil
				}
			}
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
}

// extractCookies gets all cookies from the browser
func extractCookies(ctx context.Context) ([]*network.Cookie, error) {
	var cookies []*network.Cookie

	err := chromedp.Run(ctx,
		chromedp.ActionFunc(func(ctx context.Context) error {
			var err error
			cookies, err = storage.GetCookies().Do(ctx)
			return err
		}),
	)

	return cookies, err
}

// Logout clears stored credentials
func (m *Manager) Logout() error {
	return m.cookieStore.Clear()
}

// Cookies returns the stored x.com cookies for a scraping session
func (m *Manager) Cookies() ([]*network.Cookie, error) {
	return m.cookieStore.XCookies()
}

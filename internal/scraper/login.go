package scraper

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/ibeckermayer/xengage/internal/browser"
)

// ErrLoginNotVerified means the session is not logged in to X
var ErrLoginNotVerified = errors.New("login could not be verified")

// VerifyLogin opens the home timeline and checks that it renders for a
// logged-in user
func VerifyLogin(ctx context.Context, page browser.Page, timeout time.Duration) error {
	if err := page.Navigate(ctx, HomeURL); err != nil {
		return fmt.Errorf("%w: %v", ErrLoginNotVerified, err)
	}

	matched, ok, err := page.WaitFirst(ctx, timeout, HomeIndicator, LoginForm)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrLoginNotVerified, err)
	}
	if !ok {
		return fmt.Errorf("%w: home timeline did not load within %v", ErrLoginNotVerified, timeout)
	}
	if matched == LoginForm {
		return fmt.Errorf("%w: redirected to login", ErrLoginNotVerified)
	}
	return nil
}

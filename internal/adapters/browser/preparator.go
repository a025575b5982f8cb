package browser

import (
	"context"
	"fmt"
	"time"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/proto"

	"github.com/snapwatch/worker/internal/domain"
	"github.com/snapwatch/worker/internal/domain/models"
)

const (
	// DefaultNavigationTimeout bounds navigation plus readiness waits.
	DefaultNavigationTimeout = 60 * time.Second

	// networkIdleWindow is how long the network must stay quiet before
	// the page counts as idle.
	networkIdleWindow = time.Second
)

// setViewport configures the page viewport dimensions.
func setViewport(page *rod.Page, width, height int) error {
	if err := page.SetViewport(&proto.EmulationSetDeviceMetricsOverride{
		Width:  width,
		Height: height,
	}); err != nil {
		return fmt.Errorf("failed to set viewport: %w", err)
	}
	return nil
}

// preparePage brings a fresh page to a capture-ready state: viewport,
// navigation with load + network idle, a settle pause, then two consent
// passes since some banners re-render after the first dismissal.
func preparePage(ctx context.Context, page *rod.Page, url string, vp models.Viewport, timeout time.Duration) error {
	if timeout <= 0 {
		timeout = DefaultNavigationTimeout
	}

	if err := setViewport(page, vp.Width, vp.Height); err != nil {
		return err
	}

	nav := page.Context(ctx).Timeout(timeout)
	if err := nav.Navigate(url); err != nil {
		return fmt.Errorf("%w: %s: %v", domain.ErrNavigationError, url, err)
	}
	if err := nav.WaitLoad(); err != nil {
		return fmt.Errorf("%w: waiting for load of %s: %v", domain.ErrNavigationError, url, err)
	}
	wait := nav.WaitRequestIdle(networkIdleWindow, nil, nil, nil)
	wait()

	if err := sleep(ctx, time.Second); err != nil {
		return err
	}
	dismissConsent(page)
	if err := sleep(ctx, time.Second); err != nil {
		return err
	}
	dismissConsent(page)
	return sleep(ctx, 500*time.Millisecond)
}

// sleep pauses without outliving the context.
func sleep(ctx context.Context, d time.Duration) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-time.After(d):
		return nil
	}
}

package capture

import (
	"context"
	"time"

	"github.com/chromedp/cdproto/network"
	"github.com/chromedp/chromedp"

	"predicacal/internal/apperr"
	appLog "predicacal/internal/log"
)

// Default capture parameters. They match the preview section of the
// default config.
const (
	DefaultWidth      = 1920
	DefaultHeight     = 1080
	DefaultTimeoutSec = 30
)

// Options defines parameters for a Chromium-based screenshot capture.
type Options struct {
	// URL to capture, e.g. "http://127.0.0.1:8080/calendar?year=2024&month=7".
	URL string

	// Headers are sent with every request the page makes, e.g. an
	// Authorization header when the server uses basic auth.
	Headers map[string]string

	// Width and Height are the viewport dimensions in pixels. If zero,
	// DefaultWidth / DefaultHeight are used.
	Width  int
	Height int

	// Timeout bounds the entire capture operation. If zero,
	// DefaultTimeoutSec is used.
	Timeout time.Duration
}

// Chromium captures pages with a headless Chromium driven by chromedp.
type Chromium struct{}

// CapturePNG navigates to opts.URL, waits until the page marks itself
// rendered with data-ready="true", and returns a full-page PNG.
func (Chromium) CapturePNG(parentCtx context.Context, opts Options) ([]byte, error) {
	if opts.URL == "" {
		return nil, apperr.New(apperr.CodeInvalidArgument, "capture: URL is required")
	}
	if opts.Width <= 0 {
		opts.Width = DefaultWidth
	}
	if opts.Height <= 0 {
		opts.Height = DefaultHeight
	}
	if opts.Timeout <= 0 {
		opts.Timeout = time.Duration(DefaultTimeoutSec) * time.Second
	}

	ctx, cancel := chromedp.NewContext(parentCtx)
	defer cancel()

	ctx, timeoutCancel := context.WithTimeout(ctx, opts.Timeout)
	defer timeoutCancel()

	headers := network.Headers{}
	for k, v := range opts.Headers {
		headers[k] = v
	}

	start := time.Now()
	var png []byte
	tasks := chromedp.Tasks{
		network.Enable(),
		network.SetExtraHTTPHeaders(headers),
		chromedp.EmulateViewport(int64(opts.Width), int64(opts.Height)),
		chromedp.Navigate(opts.URL),
		chromedp.WaitVisible(`[data-ready="true"]`, chromedp.ByQuery),
		chromedp.FullScreenshot(&png, 100),
	}
	if err := chromedp.Run(ctx, tasks); err != nil {
		return nil, apperr.Wrap(apperr.CodeUnavailable, err, "capture: chromedp run failed")
	}

	appLog.Debug("page captured", "width", opts.Width, "height", opts.Height, "bytes", len(png), "duration", time.Since(start).String())
	return png, nil
}

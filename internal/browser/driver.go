package browser

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"clickwatch-mcp-server/internal/config"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/proto"
)

// ReleaseFunc returns a page to its provider. For a persistent session this
// is a no-op; for a temporary session it tears down the whole browser.
type ReleaseFunc func()

// PageProvider hands out a page to operate on. The implementation decides
// whether to reuse the persistent session or spin up a temporary one, so
// callers never branch on session state themselves.
type PageProvider interface {
	AcquirePage(ctx context.Context) (Page, ReleaseFunc, error)
}

// Page is the minimal page surface the locator, executor and capture
// utility need. Production code wraps a rod page; tests supply fakes.
type Page interface {
	// Navigate loads the URL and blocks until the configured settle
	// criterion holds ("load" or "idle").
	Navigate(ctx context.Context, url string) error
	// URL reports the page's current location.
	URL() (string, error)
	// EvalJSON runs a JS function in the page and decodes its return
	// value into out.
	EvalJSON(ctx context.Context, js string, out interface{}) error
	// Resolve looks up one element by CSS selector. When the selector
	// matches several elements the first match is returned.
	Resolve(ctx context.Context, selector string) (Element, error)
	// Screenshot captures a PNG of the current viewport or full page.
	Screenshot(ctx context.Context, fullPage bool) ([]byte, error)
}

// Element is the per-element surface needed for readiness checks and clicks.
type Element interface {
	Visible() (bool, error)
	Disabled() (bool, error)
	Click() error
}

const resolveTimeout = 2 * time.Second

// ErrElementNotFound marks a selector that matched nothing before the
// resolve timeout, as opposed to a transport or cancellation failure.
var ErrElementNotFound = errors.New("element not found")

// rodPage adapts a rod page to the Page interface.
type rodPage struct {
	page       *rod.Page
	navTimeout time.Duration
	settleMode string
}

func newRodPage(page *rod.Page, cfg config.BrowserConfig) *rodPage {
	return &rodPage{
		page:       page,
		navTimeout: cfg.NavigationTimeout(),
		settleMode: cfg.GetSettleMode(),
	}
}

func (p *rodPage) Navigate(ctx context.Context, url string) error {
	page := p.page.Context(ctx).Timeout(p.navTimeout)

	// Same-URL navigation emits no load event over CDP, so waiting on one
	// would hang until the timeout.
	if info, err := page.Info(); err == nil && info.URL == url {
		return nil
	}

	if p.settleMode == "idle" {
		wait := page.MustWaitRequestIdle()
		if err := page.Navigate(url); err != nil {
			return fmt.Errorf("navigate to %s: %w", url, err)
		}
		wait()
		return nil
	}

	if err := page.Navigate(url); err != nil {
		return fmt.Errorf("navigate to %s: %w", url, err)
	}
	if err := page.WaitLoad(); err != nil {
		return fmt.Errorf("wait for load of %s: %w", url, err)
	}
	return nil
}

func (p *rodPage) URL() (string, error) {
	info, err := p.page.Info()
	if err != nil {
		return "", fmt.Errorf("page info: %w", err)
	}
	return info.URL, nil
}

func (p *rodPage) EvalJSON(ctx context.Context, js string, out interface{}) error {
	res, err := p.page.Context(ctx).Eval(js)
	if err != nil {
		return fmt.Errorf("eval: %w", err)
	}
	raw, err := res.Value.MarshalJSON()
	if err != nil {
		return fmt.Errorf("marshal eval result: %w", err)
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return fmt.Errorf("decode eval result: %w", err)
	}
	return nil
}

func (p *rodPage) Resolve(ctx context.Context, selector string) (Element, error) {
	el, err := p.page.Context(ctx).Timeout(resolveTimeout).Element(selector)
	if err != nil {
		// Element blocks until the selector matches, so running out of our
		// own resolve budget means nothing matched.
		if errors.Is(err, context.DeadlineExceeded) && ctx.Err() == nil {
			return nil, fmt.Errorf("%w: %s", ErrElementNotFound, selector)
		}
		return nil, fmt.Errorf("resolve %q: %w", selector, err)
	}
	return &rodElement{el: el}, nil
}

func (p *rodPage) Screenshot(ctx context.Context, fullPage bool) ([]byte, error) {
	img, err := p.page.Context(ctx).Screenshot(fullPage, &proto.PageCaptureScreenshot{
		Format: proto.PageCaptureScreenshotFormatPng,
	})
	if err != nil {
		return nil, fmt.Errorf("capture screenshot: %w", err)
	}
	return img, nil
}

type rodElement struct {
	el *rod.Element
}

func (e *rodElement) Visible() (bool, error) {
	return e.el.Visible()
}

func (e *rodElement) Disabled() (bool, error) {
	prop, err := e.el.Property("disabled")
	if err != nil {
		return false, fmt.Errorf("read disabled property: %w", err)
	}
	if prop.Bool() {
		return true, nil
	}
	aria, err := e.el.Attribute("aria-disabled")
	if err != nil {
		return false, fmt.Errorf("read aria-disabled attribute: %w", err)
	}
	return aria != nil && *aria == "true", nil
}

func (e *rodElement) Click() error {
	return e.el.Click("left", 1)
}

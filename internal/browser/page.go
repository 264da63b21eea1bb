package browser

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/chromedp/cdproto/network"
	"github.com/chromedp/chromedp"
	"go.uber.org/zap"

	"github.com/xkilldash9x/veracity-cli/api/schemas"
	"github.com/xkilldash9x/veracity-cli/internal/config"
)

// Page wraps one browser tab. All operations are bounded by the configured
// action or navigation timeout, whichever applies.
type Page struct {
	ctx    context.Context
	cancel context.CancelFunc
	cfg    config.BrowserConfig
	logger *zap.Logger
	net    *netTracker
}

func newPage(ctx context.Context, tabCtx context.Context, cancel context.CancelFunc, cfg config.BrowserConfig, logger *zap.Logger) (*Page, error) {
	p := &Page{
		ctx:    tabCtx,
		cancel: cancel,
		cfg:    cfg,
		logger: logger.Named("page"),
		net:    newNetTracker(),
	}

	// The listener must be attached before the first navigation or request
	// counting starts mid-stream.
	p.net.listen(tabCtx)

	opCtx, opCancel := p.opContext(ctx, cfg.NavigationTimeout)
	defer opCancel()
	if err := chromedp.Run(opCtx,
		network.Enable(),
		chromedp.EmulateViewport(int64(cfg.ViewportWidth), int64(cfg.ViewportHeight)),
	); err != nil {
		return nil, fmt.Errorf("preparing tab: %w", err)
	}
	return p, nil
}

// opContext derives a timeout-bounded context from the tab context while
// still honoring cancellation of the caller's context.
func (p *Page) opContext(ctx context.Context, timeout time.Duration) (context.Context, context.CancelFunc) {
	opCtx, cancel := context.WithTimeout(p.ctx, timeout)
	stop := context.AfterFunc(ctx, cancel)
	return opCtx, func() {
		stop()
		cancel()
	}
}

// queryOption routes selectors: "//" or "(" prefixes are XPath, everything
// else is CSS. This convention is shared with the action resolver.
func queryOption(selector string) chromedp.QueryOption {
	if strings.HasPrefix(selector, "//") || strings.HasPrefix(selector, "(") {
		return chromedp.BySearch
	}
	return chromedp.ByQuery
}

// classifyElementErr maps an exhausted wait on a selector to the sentinel
// the resolver keys its fallback behavior on.
func (p *Page) classifyElementErr(err error, selector string) error {
	if errors.Is(err, context.DeadlineExceeded) && p.ctx.Err() == nil {
		return fmt.Errorf("%w: %s", schemas.ErrElementNotFound, selector)
	}
	return err
}

// Navigate loads the URL and waits for the document body to be ready.
func (p *Page) Navigate(ctx context.Context, url string) error {
	opCtx, cancel := p.opContext(ctx, p.cfg.NavigationTimeout)
	defer cancel()

	p.logger.Debug("Navigating", zap.String("url", url))
	err := chromedp.Run(opCtx,
		chromedp.Navigate(url),
		chromedp.WaitReady("body", chromedp.ByQuery),
	)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) && p.ctx.Err() == nil {
			return fmt.Errorf("%w: %s", schemas.ErrNavigationTimeout, url)
		}
		return fmt.Errorf("navigating to %s: %w", url, err)
	}
	return nil
}

// WaitNetworkIdle blocks until no requests have been in flight for the
// configured quiet period, bounded by the navigation timeout.
func (p *Page) WaitNetworkIdle(ctx context.Context) error {
	opCtx, cancel := p.opContext(ctx, p.cfg.NavigationTimeout)
	defer cancel()
	return p.net.waitIdle(opCtx, p.cfg.NetworkIdleWait)
}

// Click scrolls the element into view and clicks it.
func (p *Page) Click(ctx context.Context, selector string) error {
	opCtx, cancel := p.opContext(ctx, p.cfg.ActionTimeout)
	defer cancel()

	opt := queryOption(selector)
	err := chromedp.Run(opCtx,
		chromedp.WaitVisible(selector, opt),
		chromedp.ScrollIntoView(selector, opt),
		chromedp.Click(selector, opt),
	)
	if err != nil {
		return p.classifyElementErr(err, selector)
	}
	return nil
}

// Fill clears the field and types the value into it.
func (p *Page) Fill(ctx context.Context, selector, value string) error {
	opCtx, cancel := p.opContext(ctx, p.cfg.ActionTimeout)
	defer cancel()

	opt := queryOption(selector)
	err := chromedp.Run(opCtx,
		chromedp.WaitVisible(selector, opt),
		chromedp.Clear(selector, opt),
		chromedp.SendKeys(selector, value, opt),
	)
	if err != nil {
		return p.classifyElementErr(err, selector)
	}
	return nil
}

// SelectOption picks the option whose value or visible text matches,
// dispatching the events a real selection would fire.
func (p *Page) SelectOption(ctx context.Context, selector, value string) error {
	opCtx, cancel := p.opContext(ctx, p.cfg.ActionTimeout)
	defer cancel()

	opt := queryOption(selector)
	if err := chromedp.Run(opCtx, chromedp.WaitVisible(selector, opt)); err != nil {
		return p.classifyElementErr(err, selector)
	}

	script := fmt.Sprintf(`(() => {
		const el = %s;
		if (!el || el.tagName !== 'SELECT') { return 'no-select'; }
		const want = %q;
		for (const option of el.options) {
			if (option.value === want || option.text.trim() === want) {
				el.value = option.value;
				el.dispatchEvent(new Event('input', { bubbles: true }));
				el.dispatchEvent(new Event('change', { bubbles: true }));
				return 'ok';
			}
		}
		return 'no-option';
	})()`, jsLocator(selector), value)

	var status string
	if err := chromedp.Run(opCtx, chromedp.Evaluate(script, &status)); err != nil {
		return p.classifyElementErr(err, selector)
	}
	if status != "ok" {
		return fmt.Errorf("%w: option %q in %s (%s)", schemas.ErrElementNotFound, value, selector, status)
	}
	return nil
}

// SetChecked drives a checkbox or radio button to the desired state by
// clicking it, so the page sees genuine interaction events.
func (p *Page) SetChecked(ctx context.Context, selector string, checked bool) error {
	opCtx, cancel := p.opContext(ctx, p.cfg.ActionTimeout)
	defer cancel()

	opt := queryOption(selector)
	if err := chromedp.Run(opCtx, chromedp.WaitVisible(selector, opt)); err != nil {
		return p.classifyElementErr(err, selector)
	}

	script := fmt.Sprintf(`(() => {
		const el = %s;
		if (!el) { return 'not-found'; }
		if (el.checked !== %t) { el.click(); }
		return 'ok';
	})()`, jsLocator(selector), checked)

	var status string
	if err := chromedp.Run(opCtx, chromedp.Evaluate(script, &status)); err != nil {
		return p.classifyElementErr(err, selector)
	}
	if status != "ok" {
		return fmt.Errorf("%w: %s", schemas.ErrElementNotFound, selector)
	}
	return nil
}

// WaitVisible blocks until the element is visible or the action timeout
// expires.
func (p *Page) WaitVisible(ctx context.Context, selector string) error {
	opCtx, cancel := p.opContext(ctx, p.cfg.ActionTimeout)
	defer cancel()

	if err := chromedp.Run(opCtx, chromedp.WaitVisible(selector, queryOption(selector))); err != nil {
		return p.classifyElementErr(err, selector)
	}
	return nil
}

// ScrollIntoView brings the element into the viewport.
func (p *Page) ScrollIntoView(ctx context.Context, selector string) error {
	opCtx, cancel := p.opContext(ctx, p.cfg.ActionTimeout)
	defer cancel()

	opt := queryOption(selector)
	err := chromedp.Run(opCtx,
		chromedp.WaitVisible(selector, opt),
		chromedp.ScrollIntoView(selector, opt),
	)
	if err != nil {
		return p.classifyElementErr(err, selector)
	}
	return nil
}

// ScrollTo moves the viewport to the top or bottom of the document.
func (p *Page) ScrollTo(ctx context.Context, position string) error {
	opCtx, cancel := p.opContext(ctx, p.cfg.ActionTimeout)
	defer cancel()

	var script string
	switch position {
	case "top":
		script = `window.scrollTo({ top: 0, behavior: 'instant' })`
	case "bottom":
		script = `window.scrollTo({ top: document.body.scrollHeight, behavior: 'instant' })`
	default:
		return fmt.Errorf("unknown scroll position %q", position)
	}
	return chromedp.Run(opCtx, chromedp.Evaluate(script, nil))
}

// Sleep pauses without touching the browser, honoring cancellation.
func (p *Page) Sleep(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	case <-p.ctx.Done():
		return p.ctx.Err()
	}
}

// Screenshot captures the full page as PNG.
func (p *Page) Screenshot(ctx context.Context) ([]byte, error) {
	opCtx, cancel := p.opContext(ctx, p.cfg.ActionTimeout)
	defer cancel()

	var buf []byte
	if err := chromedp.Run(opCtx, chromedp.FullScreenshot(&buf, 80)); err != nil {
		return nil, fmt.Errorf("capturing screenshot: %w", err)
	}
	return buf, nil
}

// Content returns the serialized DOM of the current document.
func (p *Page) Content(ctx context.Context) (string, error) {
	opCtx, cancel := p.opContext(ctx, p.cfg.ActionTimeout)
	defer cancel()

	var html string
	if err := chromedp.Run(opCtx, chromedp.OuterHTML("html", &html, chromedp.ByQuery)); err != nil {
		return "", fmt.Errorf("reading page content: %w", err)
	}
	return html, nil
}

// URL returns the current location.
func (p *Page) URL(ctx context.Context) (string, error) {
	opCtx, cancel := p.opContext(ctx, p.cfg.ActionTimeout)
	defer cancel()

	var url string
	if err := chromedp.Run(opCtx, chromedp.Location(&url)); err != nil {
		return "", fmt.Errorf("reading page url: %w", err)
	}
	return url, nil
}

// Title returns the document title.
func (p *Page) Title(ctx context.Context) (string, error) {
	opCtx, cancel := p.opContext(ctx, p.cfg.ActionTimeout)
	defer cancel()

	var title string
	if err := chromedp.Run(opCtx, chromedp.Title(&title)); err != nil {
		return "", fmt.Errorf("reading page title: %w", err)
	}
	return title, nil
}

// Close tears down the tab.
func (p *Page) Close() error {
	p.cancel()
	return nil
}

// jsLocator produces a JavaScript expression resolving the selector to an
// element, mirroring the XPath/CSS routing of queryOption.
func jsLocator(selector string) string {
	if strings.HasPrefix(selector, "//") || strings.HasPrefix(selector, "(") {
		return fmt.Sprintf(`document.evaluate(%q, document, null, XPathResult.FIRST_ORDERED_NODE_TYPE, null).singleNodeValue`, selector)
	}
	return fmt.Sprintf(`document.querySelector(%q)`, selector)
}

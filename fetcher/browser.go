package fetcher

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/playwright-community/playwright-go"
	"go.uber.org/zap"
)

type BrowserOptions struct {
	Headless          bool
	NavigationTimeout time.Duration
	ViewportWidth     int
	ViewportHeight    int
}

// BrowserSession owns one Chromium page. All calls mutate that page, so
// callers must issue them one at a time.
type BrowserSession struct {
	opts   BrowserOptions
	logger *zap.Logger

	mu          sync.Mutex
	pw          *playwright.Playwright
	browser     playwright.Browser
	page        playwright.Page
	initialized bool
}

func NewBrowserSession(opts BrowserOptions, logger *zap.Logger) *BrowserSession {
	if opts.NavigationTimeout == 0 {
		opts.NavigationTimeout = 60 * time.Second
	}
	if opts.ViewportWidth == 0 {
		opts.ViewportWidth, opts.ViewportHeight = 1280, 800
	}
	return &BrowserSession{opts: opts, logger: logger}
}

// Start launches the browser and opens the working page.
func (s *BrowserSession) Start() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.initialized {
		return nil
	}

	var err error
	s.pw, err = playwright.Run()
	if err != nil {
		return fmt.Errorf("failed to start playwright: %w", err)
	}

	s.browser, err = s.pw.Chromium.Launch(playwright.BrowserTypeLaunchOptions{
		Headless: playwright.Bool(s.opts.Headless),
		Args: []string{
			"--disable-features=TranslateUI",
			"--disable-blink-features=AutomationControlled",
			"--disable-dev-shm-usage",
			fmt.Sprintf("--window-size=%d,%d", s.opts.ViewportWidth, s.opts.ViewportHeight),
		},
	})
	if err != nil {
		s.pw.Stop()
		return fmt.Errorf("failed to launch browser: %w", err)
	}

	s.page, err = s.browser.NewPage(playwright.BrowserNewPageOptions{
		Viewport: &playwright.Size{Width: s.opts.ViewportWidth, Height: s.opts.ViewportHeight},
	})
	if err != nil {
		s.browser.Close()
		s.pw.Stop()
		return fmt.Errorf("failed to create page: %w", err)
	}
	s.page.SetDefaultNavigationTimeout(float64(s.opts.NavigationTimeout.Milliseconds()))

	s.initialized = true
	return nil
}

func (s *BrowserSession) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.page != nil {
		s.page.Close()
		s.page = nil
	}
	if s.browser != nil {
		s.browser.Close()
		s.browser = nil
	}
	if s.pw != nil {
		s.pw.Stop()
		s.pw = nil
	}
	s.initialized = false
}

func (s *BrowserSession) active(ctx context.Context) (playwright.Page, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.initialized {
		return nil, errors.New("browser session not started")
	}
	return s.page, nil
}

// Navigate loads url and returns once the network has gone idle.
func (s *BrowserSession) Navigate(ctx context.Context, url string) error {
	page, err := s.active(ctx)
	if err != nil {
		return err
	}
	s.logger.Debug("navigating", zap.String("url", url))
	resp, err := page.Goto(url, playwright.PageGotoOptions{
		WaitUntil: playwright.WaitUntilStateNetworkidle,
	})
	if err != nil {
		if errors.Is(err, playwright.ErrTimeout) {
			return &TimeoutError{Op: "navigate " + url, Timeout: s.opts.NavigationTimeout, Err: err}
		}
		return &FetchError{URL: url, Err: err}
	}
	if resp != nil && (resp.Status() < 200 || resp.Status() > 299) {
		return &FetchError{URL: url, Status: resp.Status()}
	}
	return nil
}

// WaitForSelector waits until selector is attached to the DOM. A comma
// separated selector resolves as soon as any alternative shows up.
func (s *BrowserSession) WaitForSelector(ctx context.Context, selector string, timeout time.Duration) error {
	page, err := s.active(ctx)
	if err != nil {
		return err
	}
	err = page.Locator(selector).First().WaitFor(playwright.LocatorWaitForOptions{
		State:   playwright.WaitForSelectorStateAttached,
		Timeout: playwright.Float(float64(timeout.Milliseconds())),
	})
	return s.wrapWait(err, "wait for selector", selector, timeout)
}

// WaitClassAbsent waits until the element matching selector exists and no
// longer carries class.
func (s *BrowserSession) WaitClassAbsent(ctx context.Context, selector, class string, timeout time.Duration) error {
	page, err := s.active(ctx)
	if err != nil {
		return err
	}
	_, err = page.WaitForFunction(`([sel, cls]) => {
		const el = document.querySelector(sel);
		return !!el && !el.classList.contains(cls);
	}`, []interface{}{selector, class}, playwright.PageWaitForFunctionOptions{
		Timeout: playwright.Float(float64(timeout.Milliseconds())),
	})
	return s.wrapWait(err, "wait for class removal", selector, timeout)
}

func (s *BrowserSession) Click(ctx context.Context, selector string) error {
	page, err := s.active(ctx)
	if err != nil {
		return err
	}
	if err := page.Locator(selector).First().Click(); err != nil {
		return fmt.Errorf("click %q: %w", selector, err)
	}
	return nil
}

// ClickText clicks the first element under selector whose trimmed text
// equals text, ignoring case. It reports whether anything was clicked.
func (s *BrowserSession) ClickText(ctx context.Context, selector, text string) (bool, error) {
	page, err := s.active(ctx)
	if err != nil {
		return false, err
	}
	result, err := page.Evaluate(`([sel, text]) => {
		const wanted = text.toLowerCase();
		const el = Array.from(document.querySelectorAll(sel))
			.find((e) => e.textContent.trim().toLowerCase() === wanted);
		if (!el) return false;
		el.click();
		return true;
	}`, []interface{}{selector, text})
	if err != nil {
		return false, fmt.Errorf("click text %q in %q: %w", text, selector, err)
	}
	clicked, _ := result.(bool)
	return clicked, nil
}

func (s *BrowserSession) ScrollIntoView(ctx context.Context, selector string) error {
	page, err := s.active(ctx)
	if err != nil {
		return err
	}
	if err := page.Locator(selector).First().ScrollIntoViewIfNeeded(); err != nil {
		return fmt.Errorf("scroll to %q: %w", selector, err)
	}
	return nil
}

// Query runs the extraction script inside the page and returns its
// structured result.
func (s *BrowserSession) Query(ctx context.Context, q Query) ([]QueryItem, error) {
	page, err := s.active(ctx)
	if err != nil {
		return nil, err
	}
	raw, err := page.Evaluate(queryScript, q.arg())
	if err != nil {
		return nil, fmt.Errorf("query %q: %w", q.Selector, err)
	}
	return decodeItems(raw)
}

// Fetch navigates to url and snapshots the rendered DOM, so the browser can
// stand in for StaticFetcher.
func (s *BrowserSession) Fetch(ctx context.Context, url string) (*goquery.Document, error) {
	if err := s.Navigate(ctx, url); err != nil {
		return nil, err
	}
	page, err := s.active(ctx)
	if err != nil {
		return nil, err
	}
	html, err := page.Content()
	if err != nil {
		return nil, &FetchError{URL: url, Err: err}
	}
	return goquery.NewDocumentFromReader(strings.NewReader(html))
}

func (s *BrowserSession) wrapWait(err error, op, selector string, timeout time.Duration) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, playwright.ErrTimeout) {
		return &TimeoutError{Op: op, Selector: selector, Timeout: timeout, Err: err}
	}
	return fmt.Errorf("%s %q: %w", op, selector, err)
}

func decodeItems(raw interface{}) ([]QueryItem, error) {
	if raw == nil {
		return nil, nil
	}
	data, err := json.Marshal(raw)
	if err != nil {
		return nil, fmt.Errorf("encode query result: %w", err)
	}
	var items []QueryItem
	if err := json.Unmarshal(data, &items); err != nil {
		return nil, fmt.Errorf("decode query result: %w", err)
	}
	return items, nil
}

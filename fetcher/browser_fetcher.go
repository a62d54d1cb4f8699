package fetcher

import (
	"context"
	"sync"

	"github.com/PuerkitoBio/goquery"
	"go.uber.org/zap"
)

// BrowserFetcher renders pages for sites whose listings only appear after
// scripts run. The browser starts on the first Fetch and fetches are
// serialized since they share one page.
type BrowserFetcher struct {
	mu      sync.Mutex
	session *BrowserSession
}

func NewBrowserFetcher(opts BrowserOptions, logger *zap.Logger) *BrowserFetcher {
	return &BrowserFetcher{session: NewBrowserSession(opts, logger)}
}

func (f *BrowserFetcher) Fetch(ctx context.Context, url string) (*goquery.Document, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if err := f.session.Start(); err != nil {
		return nil, err
	}
	return f.session.Fetch(ctx, url)
}

// Close shuts the browser down. A later Fetch starts it again.
func (f *BrowserFetcher) Close() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.session.Close()
}

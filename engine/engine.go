// Package engine maps source URLs to extraction functions and runs them
// against fetched documents.
package engine

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"github.com/PuerkitoBio/goquery"

	"agenda_scrooper/fetcher"
	"agenda_scrooper/models"
)

var ErrUnregisteredSource = errors.New("no parser registered for source")

// ParseFunc extracts records from one fetched listing document.
type ParseFunc func(ctx context.Context, doc *goquery.Document) ([]models.Event, error)

// Engine holds the parser registry for one run. It is not meant for
// concurrent Scrape calls that share a browser-backed fetcher.
type Engine struct {
	fetcher fetcher.Fetcher
	parsers map[string]ParseFunc
}

func New(f fetcher.Fetcher) *Engine {
	return &Engine{
		fetcher: f,
		parsers: make(map[string]ParseFunc),
	}
}

// AddParser registers fn for url, replacing any earlier registration.
func (e *Engine) AddParser(url string, fn ParseFunc) {
	e.parsers[url] = fn
}

// URLs lists the registered sources in lexical order.
func (e *Engine) URLs() []string {
	urls := make([]string, 0, len(e.parsers))
	for u := range e.parsers {
		urls = append(urls, u)
	}
	sort.Strings(urls)
	return urls
}

// Scrape fetches url and hands the document to its registered parser.
func (e *Engine) Scrape(ctx context.Context, url string) ([]models.Event, error) {
	fn, ok := e.parsers[url]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnregisteredSource, url)
	}

	doc, err := e.fetcher.Fetch(ctx, url)
	if err != nil {
		return nil, err
	}

	events, err := fn(ctx, doc)
	if err != nil {
		return nil, fmt.Errorf("parse %s: %w", url, err)
	}
	return events, nil
}

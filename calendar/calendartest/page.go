// Package calendartest provides a scripted calendar.Page for tests.
package calendartest

import (
	"context"
	"strings"
	"time"

	"agenda_scrooper/fetcher"
)

// Page serves canned query results per URL and records navigation.
type Page struct {
	// OpenSignal is the selector the navigator waits on after clicking the
	// picker toggle.
	OpenSignal string

	Current   string
	Navigated []string
	Clicked   []string

	// Results[url][selector]; the "" url holds results valid on any page.
	Results map[string]map[string][]fetcher.QueryItem

	Months       map[string]bool
	SlowMonths   map[string]bool
	FailOpenOn   map[int]bool
	FailNavigate map[string]bool

	lastMonth string
	openWaits int
}

func NewPage(openSignal string) *Page {
	return &Page{
		OpenSignal:   openSignal,
		Results:      map[string]map[string][]fetcher.QueryItem{"": {}},
		Months:       map[string]bool{},
		SlowMonths:   map[string]bool{},
		FailOpenOn:   map[int]bool{},
		FailNavigate: map[string]bool{},
	}
}

// Set scripts the items a selector yields on url.
func (p *Page) Set(url, selector string, items ...fetcher.QueryItem) {
	if p.Results[url] == nil {
		p.Results[url] = map[string][]fetcher.QueryItem{}
	}
	p.Results[url][selector] = items
}

func (p *Page) Navigate(ctx context.Context, url string) error {
	p.Navigated = append(p.Navigated, url)
	if p.FailNavigate[url] {
		return &fetcher.FetchError{URL: url, Status: 500}
	}
	p.Current = url
	return nil
}

// WaitForSelector fails the nth wait on the open signal when FailOpenOn[n].
func (p *Page) WaitForSelector(ctx context.Context, selector string, timeout time.Duration) error {
	if selector == p.OpenSignal {
		p.openWaits++
		if p.FailOpenOn[p.openWaits] {
			return &fetcher.TimeoutError{Op: "wait for selector", Selector: selector, Timeout: timeout}
		}
	}
	return nil
}

func (p *Page) WaitClassAbsent(ctx context.Context, selector, class string, timeout time.Duration) error {
	if p.SlowMonths[p.lastMonth] {
		return &fetcher.TimeoutError{Op: "wait for class removal", Selector: selector, Timeout: timeout}
	}
	return nil
}

func (p *Page) Click(ctx context.Context, selector string) error {
	p.Clicked = append(p.Clicked, selector)
	return nil
}

func (p *Page) ClickText(ctx context.Context, selector, text string) (bool, error) {
	p.lastMonth = text
	return p.Months[text], nil
}

func (p *Page) ScrollIntoView(ctx context.Context, selector string) error { return nil }

func (p *Page) Query(ctx context.Context, q fetcher.Query) ([]fetcher.QueryItem, error) {
	items, ok := p.Results[p.Current][q.Selector]
	if !ok {
		items = p.Results[""][q.Selector]
	}
	var out []fetcher.QueryItem
	for _, it := range items {
		if excluded(q.ExcludeGroups, it.Group) {
			continue
		}
		out = append(out, it)
		if q.Limit > 0 && len(out) == q.Limit {
			break
		}
	}
	return out, nil
}

// NavigatedWithPrefix counts visits to URLs starting with prefix.
func (p *Page) NavigatedWithPrefix(prefix string) int {
	n := 0
	for _, u := range p.Navigated {
		if strings.HasPrefix(u, prefix) {
			n++
		}
	}
	return n
}

func excluded(groups []string, g string) bool {
	for _, x := range groups {
		if x == g {
			return true
		}
	}
	return false
}

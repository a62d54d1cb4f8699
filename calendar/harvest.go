package calendar

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"agenda_scrooper/fetcher"
)

// Listing is one event link found in the month view.
type Listing struct {
	Month      string
	Title      string
	URL        string
	IsMultiple bool
}

// Harvest collects the month's event links. Days with a "+N more" link are
// skipped in the grid and read from their overflow page instead, for at most
// OverflowCap such pages. It always ends by returning to the calendar root.
func (n *Navigator) Harvest(ctx context.Context, month string) ([]Listing, error) {
	if n.state != StateMonthSelected {
		return nil, fmt.Errorf("%w: harvest from %s", ErrWrongState, n.state)
	}

	listings, err := n.harvestGrid(ctx, month)
	if err != nil {
		n.logger.Warn("month grid not readable", zap.String("month", month), zap.Error(err))
	}

	if resetErr := n.Reset(ctx); resetErr != nil {
		return listings, resetErr
	}
	n.logger.Info("month harvested", zap.String("month", month), zap.Int("events", len(listings)))
	return listings, nil
}

func (n *Navigator) harvestGrid(ctx context.Context, month string) ([]Listing, error) {
	sel := n.opts.Selectors

	if err := n.page.WaitForSelector(ctx, sel.TitleLink, n.opts.WaitTimeout); err != nil {
		return nil, err
	}

	more, err := n.page.Query(ctx, fetcher.Query{
		Selector:  sel.MoreLink,
		GroupBy:   sel.Day,
		GroupAttr: sel.DayDateAttr,
	})
	if err != nil {
		return nil, fmt.Errorf("overflow links: %w", err)
	}

	overflowDays := make([]string, 0, len(more))
	var overflowURLs []string
	for _, m := range more {
		if m.Group != "" {
			overflowDays = append(overflowDays, m.Group)
		}
		if m.Href != "" {
			overflowURLs = append(overflowURLs, m.Href)
		}
	}

	singles, err := n.page.Query(ctx, fetcher.Query{
		Selector:      sel.TitleLink,
		TextFrom:      "h3",
		GroupBy:       sel.Day,
		GroupAttr:     sel.DayDateAttr,
		ExcludeGroups: overflowDays,
	})
	if err != nil {
		return nil, fmt.Errorf("title links: %w", err)
	}

	var listings []Listing
	for _, s := range singles {
		if s.Text == "" || s.Href == "" {
			continue
		}
		listings = append(listings, Listing{Month: month, Title: s.Text, URL: s.Href})
	}
	n.logger.Debug("grid read",
		zap.String("month", month),
		zap.Int("single", len(listings)),
		zap.Int("overflow_links", len(overflowURLs)))

	if len(overflowURLs) > n.opts.OverflowCap {
		overflowURLs = overflowURLs[:n.opts.OverflowCap]
	}
	for _, u := range overflowURLs {
		found, err := n.harvestOverflow(ctx, month, u)
		if err != nil {
			n.logger.Warn("overflow page skipped", zap.String("url", u), zap.Error(err))
		}
		listings = append(listings, found...)
		if err := n.opts.Politeness.Wait(ctx); err != nil {
			return listings, err
		}
	}
	return listings, nil
}

func (n *Navigator) harvestOverflow(ctx context.Context, month, url string) ([]Listing, error) {
	sel := n.opts.Selectors

	if err := n.page.Navigate(ctx, url); err != nil {
		return nil, err
	}
	if err := n.page.WaitForSelector(ctx, sel.OverflowEvent, n.opts.OverflowWaitTimeout); err != nil {
		return nil, err
	}

	items, err := n.page.Query(ctx, fetcher.Query{Selector: sel.OverflowTitle})
	if err != nil {
		return nil, err
	}

	var listings []Listing
	for _, it := range items {
		if it.Href == "" {
			continue
		}
		listings = append(listings, Listing{Month: month, Title: it.Text, URL: it.Href, IsMultiple: true})
	}
	return listings, nil
}

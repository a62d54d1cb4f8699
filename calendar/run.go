package calendar

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"
)

// Enriched pairs a listing with its detail page. Detail is nil when the page
// was not visited or could not be read.
type Enriched struct {
	Listing
	Detail *Detail
}

// Run harvests every month in order and then enriches the listings. Months
// are strictly sequential since they share one page. A month that fails is
// logged and skipped; only a picker that will not open on the first month,
// or a page that cannot be brought back to the calendar, ends the run.
func (n *Navigator) Run(ctx context.Context, months []string) ([]Enriched, error) {
	if err := n.Start(ctx); err != nil {
		return nil, err
	}

	var listings []Listing
	for i, month := range months {
		n.logger.Info("scraping month", zap.String("month", month))

		found, err := n.month(ctx, month)
		listings = append(listings, found...)
		if err == nil {
			continue
		}
		if errors.Is(err, ErrCalendarOpen) && i == 0 {
			return nil, err
		}
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		n.logger.Warn("month abandoned", zap.String("month", month), zap.Error(err))
		if err := n.Reset(ctx); err != nil {
			return nil, fmt.Errorf("after %s: %w", month, err)
		}
	}
	n.state = StateEventsListed
	n.logger.Info("calendar harvested", zap.Int("listings", len(listings)))

	return n.enrich(ctx, listings), ctx.Err()
}

func (n *Navigator) month(ctx context.Context, month string) ([]Listing, error) {
	if err := n.Open(ctx); err != nil {
		return nil, err
	}
	if err := n.SelectMonth(ctx, month); err != nil {
		return nil, err
	}
	return n.Harvest(ctx, month)
}

func (n *Navigator) enrich(ctx context.Context, listings []Listing) []Enriched {
	out := make([]Enriched, len(listings))
	limit := len(listings)
	if n.opts.DetailLimit > 0 && n.opts.DetailLimit < limit {
		limit = n.opts.DetailLimit
	}

	for i, l := range listings {
		out[i] = Enriched{Listing: l}
		if i >= limit || ctx.Err() != nil {
			continue
		}
		if i > 0 {
			if err := n.opts.Politeness.Wait(ctx); err != nil {
				continue
			}
		}
		n.logger.Info("reading details", zap.String("title", l.Title), zap.String("url", l.URL))
		d, err := n.Details(ctx, l)
		if err != nil {
			n.logger.Warn("detail page skipped", zap.String("url", l.URL), zap.Error(err))
			continue
		}
		out[i].Detail = d
	}
	n.state = StateDetailsEnriched
	return out
}

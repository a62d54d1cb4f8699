package calendar

import (
	"context"
	"fmt"
	"time"

	"agenda_scrooper/fetcher"
	"agenda_scrooper/models"
	"agenda_scrooper/normalize"
)

// Detail is what an event's own page adds to its Listing.
type Detail struct {
	Title       string
	ImageToken  string
	Description string
	ExternalURL string
	StartTime   *string
	EndTime     *string
	StartDate   *time.Time
	Address     string
	Category    models.CategoryID
}

// Details visits the listing's page and extracts its fields. The image is
// returned only as a relay token so the hosting domain never reaches
// clients.
func (n *Navigator) Details(ctx context.Context, l Listing) (*Detail, error) {
	sel := n.opts.Selectors

	if err := n.page.Navigate(ctx, l.URL); err != nil {
		return nil, err
	}

	title, err := n.first(ctx, fetcher.Query{Selector: sel.DetailTitle})
	if err != nil {
		return nil, err
	}
	image, err := n.first(ctx, fetcher.Query{Selector: sel.DetailImage, Attr: "src"})
	if err != nil {
		return nil, err
	}
	desc, err := n.first(ctx, fetcher.Query{Selector: sel.DetailDescription})
	if err != nil {
		return nil, err
	}
	link, err := n.first(ctx, fetcher.Query{Selector: sel.DetailExternalLink})
	if err != nil {
		return nil, err
	}
	when, err := n.first(ctx, fetcher.Query{Selector: sel.DetailStartTime, Attr: "title"})
	if err != nil {
		return nil, err
	}
	addr, err := n.first(ctx, fetcher.Query{Selector: sel.DetailAddress})
	if err != nil {
		return nil, err
	}

	d := &Detail{
		Title:       title.Text,
		ImageToken:  normalize.EncodeImageToken(image.Attr),
		Description: desc.Text,
		ExternalURL: normalize.KeepExternalURL(link.Href, n.opts.ExternalPrefix),
		Address:     addr.Text,
	}
	if d.Title == "" {
		d.Title = l.Title
	}
	d.Category = normalize.Classify(d.Title)
	d.StartTime, d.EndTime = normalize.ParseTimeRange(when.Text)
	if t, ok := normalize.ISODate(when.Attr); ok {
		d.StartDate = &t
	}
	return d, nil
}

func (n *Navigator) first(ctx context.Context, q fetcher.Query) (fetcher.QueryItem, error) {
	q.Limit = 1
	items, err := n.page.Query(ctx, q)
	if err != nil {
		return fetcher.QueryItem{}, fmt.Errorf("query %q: %w", q.Selector, err)
	}
	if len(items) == 0 {
		return fetcher.QueryItem{}, nil
	}
	return items[0], nil
}

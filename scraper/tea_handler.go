package scraper

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"go.uber.org/zap"

	"agenda_scrooper/config"
	"agenda_scrooper/engine"
	"agenda_scrooper/fetcher"
	"agenda_scrooper/geo"
	"agenda_scrooper/models"
	"agenda_scrooper/normalize"
)

// TEAHandler scrapes sites made of static listing pages whose items link to
// a detail page. Each listing page gets its own parser on the engine.
type TEAHandler struct {
	site    *config.SiteConfig
	engine  *engine.Engine
	fetcher fetcher.Fetcher
	pacer   *engine.Pacer
	locator geo.Locator
	adminID string
	logger  *zap.Logger

	// closeFetcher releases a browser-backed fetcher after each Scrape.
	closeFetcher func()
}

func NewTEAHandler(site *config.SiteConfig, deps Deps) (*TEAHandler, error) {
	if len(site.Listings) == 0 {
		return nil, fmt.Errorf("site %s: no listings configured", site.ID)
	}
	for _, l := range site.Listings {
		if l.URL == "" {
			return nil, fmt.Errorf("site %s: listing %s has no url (set %s)", site.ID, l.Name, l.URLEnv)
		}
	}

	f := deps.Fetcher
	var closeFetcher func()
	switch site.Render {
	case "", "static":
	case "browser":
		headless := true
		if deps.Config != nil {
			headless = deps.Config.Browser.Headless
		}
		bf := fetcher.NewBrowserFetcher(fetcher.BrowserOptions{Headless: headless}, deps.Logger)
		f = bf
		closeFetcher = bf.Close
	default:
		return nil, fmt.Errorf("site %s: unknown render mode %q", site.ID, site.Render)
	}

	h := &TEAHandler{
		site:         site,
		engine:       engine.New(f),
		fetcher:      f,
		closeFetcher: closeFetcher,
		pacer:        engine.NewPacer(time.Duration(site.RateLimitMS) * time.Millisecond),
		locator:      deps.Locator,
		logger:       deps.Logger.With(zap.String("site", site.ID)),
	}
	if deps.Config != nil {
		h.adminID = deps.Config.AdminID
	}
	for _, l := range site.Listings {
		h.engine.AddParser(l.URL, h.parser(l))
	}
	return h, nil
}

func (h *TEAHandler) ID() string {
	return h.site.ID
}

// Scrape reads every listing page in config order. A listing page that
// cannot be fetched or parsed fails the whole run.
func (h *TEAHandler) Scrape(ctx context.Context) ([]models.Event, error) {
	if h.closeFetcher != nil {
		defer h.closeFetcher()
	}

	var all []models.Event
	for _, l := range h.site.Listings {
		h.logger.Info("scraping listing", zap.String("listing", l.Name), zap.String("url", l.URL))
		events, err := h.engine.Scrape(ctx, l.URL)
		if err != nil {
			return all, fmt.Errorf("listing %s: %w", l.Name, err)
		}
		h.logger.Info("listing scraped", zap.String("listing", l.Name), zap.Int("events", len(events)))
		all = append(all, events...)
	}
	return all, nil
}

// draft is what the listing page says about one item.
type draft struct {
	title    string
	dates    *normalize.DateRange
	fullLink string
	imgURL   string
}

func (h *TEAHandler) parser(l config.ListingConfig) engine.ParseFunc {
	return func(ctx context.Context, doc *goquery.Document) ([]models.Event, error) {
		drafts := h.readListing(l, doc)

		outcomes := engine.Settle(ctx, drafts, h.site.Concurrency, func(ctx context.Context, d draft) (models.Event, error) {
			return h.enrich(ctx, l, d), nil
		})

		events := make([]models.Event, 0, len(outcomes))
		for _, o := range outcomes {
			if o.Err != nil {
				h.logger.Warn("item dropped", zap.String("link", drafts[o.Index].fullLink), zap.Error(o.Err))
				continue
			}
			events = append(events, o.Value)
		}
		return events, nil
	}
}

func (h *TEAHandler) readListing(l config.ListingConfig, doc *goquery.Document) []draft {
	sel := h.site.Selectors
	items := doc.Find(sel.Item)
	h.logger.Info("listing items found", zap.String("listing", l.Name), zap.Int("items", items.Length()))

	var drafts []draft
	items.Each(func(_ int, item *goquery.Selection) {
		dateText := strings.TrimSpace(item.Find(sel.Date).First().Text())
		dates, ok := normalize.ParseDateRange(dateText)
		if !ok {
			h.logger.Debug("item without usable date", zap.String("date", dateText))
			return
		}

		href, _ := item.Find(sel.Link).First().Attr("href")
		if strings.TrimSpace(href) == "" {
			h.logger.Warn("item without link skipped", zap.String("listing", l.Name), zap.String("date", dateText))
			return
		}
		d := draft{
			title:    strings.TrimSpace(item.Find(sel.Title).First().Text()),
			dates:    dates,
			fullLink: normalize.ResolveURL(href, h.site.Origin),
		}
		if l.ImageFrom != "detail" {
			src, _ := item.Find(sel.Image).First().Attr("src")
			d.imgURL = normalize.ResolveURL(src, h.site.Origin)
		}
		drafts = append(drafts, d)
	})
	return drafts
}

// enrich merges the detail page and the venue location into the draft.
// Neither lookup can drop the item; failures leave the fields empty.
func (h *TEAHandler) enrich(ctx context.Context, l config.ListingConfig, d draft) models.Event {
	e := models.Event{
		Title:    d.title,
		Category: models.CategoryID(l.Category),
		Location: h.site.Location,
		ImgURL:   d.imgURL,
		FullLink: d.fullLink,
		Island:   h.site.Island,
		UserID:   h.adminID,
		Source:   h.site.ID,
	}
	e.SetDates(d.dates.From, d.dates.To)

	if desc, img, err := h.readDetail(ctx, l, d.fullLink); err != nil {
		h.logger.Warn("detail page failed", zap.String("url", d.fullLink), zap.Error(err))
	} else {
		e.Description = desc
		if l.ImageFrom == "detail" {
			e.ImgURL = img
		}
	}

	locate(ctx, h.locator, h.logger, &e)
	return e
}

// readDetail fetches the detail page, spaced by the site's rate_limit_ms.
func (h *TEAHandler) readDetail(ctx context.Context, l config.ListingConfig, url string) (description, image string, err error) {
	if err := h.pacer.Wait(ctx); err != nil {
		return "", "", err
	}
	doc, err := h.fetcher.Fetch(ctx, url)
	if err != nil {
		return "", "", err
	}

	var paragraphs []string
	doc.Find(l.DetailDescription).Each(func(_ int, p *goquery.Selection) {
		if text := strings.TrimSpace(p.Text()); text != "" {
			paragraphs = append(paragraphs, text)
		}
	})

	if l.DetailImage != "" {
		src, _ := doc.Find(l.DetailImage).First().Attr("src")
		image = normalize.ResolveURL(src, h.site.Origin)
	}
	return strings.Join(paragraphs, "\n\n"), image, nil
}

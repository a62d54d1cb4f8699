package scraper

import (
	"context"
	"fmt"
	"net/url"
	"time"

	"go.uber.org/zap"

	"agenda_scrooper/calendar"
	"agenda_scrooper/config"
	"agenda_scrooper/fetcher"
	"agenda_scrooper/geo"
	"agenda_scrooper/models"
	"agenda_scrooper/normalize"
)

// CalendarHandler drives a browser through the calendar site and turns the
// enriched listings into records.
type CalendarHandler struct {
	site        *config.SiteConfig
	opts        calendar.Options
	browser     fetcher.BrowserOptions
	monthWindow int
	relayBase   string
	adminID     string
	locator     geo.Locator
	logger      *zap.Logger
	now         func() time.Time
	openPage    func() (calendar.Page, func(), error)
}

func NewCalendarHandler(site *config.SiteConfig, deps Deps) (*CalendarHandler, error) {
	if site.Calendar == nil || site.Calendar.URL == "" {
		env := ""
		if site.Calendar != nil {
			env = site.Calendar.URLEnv
		}
		return nil, fmt.Errorf("site %s: calendar url missing (set %s)", site.ID, env)
	}

	cfg := deps.Config
	if cfg == nil {
		cfg = &config.Config{}
	}
	if !isAbsoluteURL(cfg.Relay.BaseURL) {
		return nil, fmt.Errorf("site %s: relay base url %q is not absolute (set RELAY_BASE_URL)", site.ID, cfg.Relay.BaseURL)
	}

	opts := calendar.Options{
		CalendarURL:    site.Calendar.URL,
		ExternalPrefix: site.Calendar.ExternalPrefix,
		OverflowCap:    cfg.Calendar.OverflowCap,
		DetailLimit:    cfg.Calendar.DetailLimit,
		SettleDelay:    cfg.Calendar.SettleDelay,
		Politeness: calendar.Delay{
			Min: cfg.Calendar.PolitenessMin,
			Max: cfg.Calendar.PolitenessMax,
		},
	}
	if site.Calendar.Selectors != nil {
		opts.Selectors = *site.Calendar.Selectors
	}

	h := &CalendarHandler{
		site:        site,
		opts:        opts,
		browser:     fetcher.BrowserOptions{Headless: cfg.Browser.Headless},
		monthWindow: cfg.Calendar.MonthWindow,
		relayBase:   cfg.Relay.BaseURL,
		adminID:     cfg.AdminID,
		locator:     deps.Locator,
		logger:      deps.Logger.With(zap.String("site", site.ID)),
		now:         time.Now,
	}
	h.openPage = h.startBrowser
	return h, nil
}

func isAbsoluteURL(raw string) bool {
	u, err := url.Parse(raw)
	return err == nil && (u.Scheme == "http" || u.Scheme == "https") && u.Host != ""
}

func (h *CalendarHandler) ID() string {
	return h.site.ID
}

func (h *CalendarHandler) Scrape(ctx context.Context) ([]models.Event, error) {
	page, closePage, err := h.openPage()
	if err != nil {
		return nil, err
	}
	defer closePage()

	return h.scrapePage(ctx, page)
}

func (h *CalendarHandler) startBrowser() (calendar.Page, func(), error) {
	session := fetcher.NewBrowserSession(h.browser, h.logger)
	if err := session.Start(); err != nil {
		return nil, nil, err
	}
	return session, session.Close, nil
}

func (h *CalendarHandler) scrapePage(ctx context.Context, page calendar.Page) ([]models.Event, error) {
	months := MonthWindow(h.now(), h.monthWindow)
	h.logger.Info("walking calendar", zap.Strings("months", months))

	nav := calendar.NewNavigator(page, h.opts, h.logger)
	enriched, err := nav.Run(ctx, months)
	if err != nil {
		return nil, err
	}
	return h.toEvents(ctx, enriched), nil
}

// toEvents keeps only listings whose detail page gave a start date. The site
// exposes no end date, so every record is a single-day event.
func (h *CalendarHandler) toEvents(ctx context.Context, enriched []calendar.Enriched) []models.Event {
	var events []models.Event
	for _, en := range enriched {
		d := en.Detail
		if d == nil || d.StartDate == nil {
			h.logger.Debug("listing without start date", zap.String("url", en.URL))
			continue
		}

		e := models.Event{
			Title:       d.Title,
			Category:    d.Category,
			Time:        d.StartTime,
			EndTime:     d.EndTime,
			Description: d.Description,
			Location:    d.Address,
			ImgURL:      normalize.RelayURL(h.relayBase, d.ImageToken),
			FullLink:    en.URL,
			ExternalURL: d.ExternalURL,
			Island:      h.site.Island,
			UserID:      h.adminID,
			Source:      h.site.ID,
		}
		e.SetDates(*d.StartDate, nil)

		locate(ctx, h.locator, h.logger, &e)
		events = append(events, e)
	}
	return events
}

// MonthWindow lists the picker labels to walk: n months from now's month,
// never past December. n <= 0 means through December.
func MonthWindow(now time.Time, n int) []string {
	var months []string
	for m := now.Month(); m <= time.December; m++ {
		if n > 0 && len(months) == n {
			break
		}
		months = append(months, normalize.MonthLabel(m))
	}
	return months
}

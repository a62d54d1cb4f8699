// Package calendar drives the month view of a tribe-events calendar through
// a single browser page: open the date picker, pick a month, harvest the
// event links (including "+N more" overflow days) and enrich each event from
// its detail page.
package calendar

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"agenda_scrooper/fetcher"
)

// Page is the browser surface the navigator needs. fetcher.BrowserSession
// implements it.
type Page interface {
	Navigate(ctx context.Context, url string) error
	WaitForSelector(ctx context.Context, selector string, timeout time.Duration) error
	WaitClassAbsent(ctx context.Context, selector, class string, timeout time.Duration) error
	Click(ctx context.Context, selector string) error
	ClickText(ctx context.Context, selector, text string) (bool, error)
	ScrollIntoView(ctx context.Context, selector string) error
	Query(ctx context.Context, q fetcher.Query) ([]fetcher.QueryItem, error)
}

type State int

const (
	StateClosed State = iota
	StateOpen
	StateMonthSelected
	StateEventsListed
	StateDetailsEnriched
)

func (s State) String() string {
	switch s {
	case StateClosed:
		return "closed"
	case StateOpen:
		return "open"
	case StateMonthSelected:
		return "month-selected"
	case StateEventsListed:
		return "events-listed"
	case StateDetailsEnriched:
		return "details-enriched"
	}
	return fmt.Sprintf("state(%d)", int(s))
}

var (
	ErrCalendarOpen = errors.New("calendar picker did not open")
	ErrMonthMissing = errors.New("month not present in picker")
	ErrWrongState   = errors.New("navigator in wrong state")
)

// Selectors maps the calendar site's markup.
type Selectors struct {
	Toggle          string `yaml:"toggle"`
	ToggleOpenClass string `yaml:"toggle_open_class"`
	MonthPicker     string `yaml:"month_picker"`
	MonthItem       string `yaml:"month_item"`
	TitleLink       string `yaml:"title_link"`
	Day             string `yaml:"day"`
	DayDateAttr     string `yaml:"day_date_attr"`
	MoreLink        string `yaml:"more_link"`
	OverflowEvent   string `yaml:"overflow_event"`
	OverflowTitle   string `yaml:"overflow_title"`
	CookieDeny      string `yaml:"cookie_deny"`

	DetailTitle        string `yaml:"detail_title"`
	DetailImage        string `yaml:"detail_image"`
	DetailDescription  string `yaml:"detail_description"`
	DetailExternalLink string `yaml:"detail_external_link"`
	DetailStartTime    string `yaml:"detail_start_time"`
	DetailAddress      string `yaml:"detail_address"`
}

func DefaultSelectors() Selectors {
	const liveDay = ".tribe-events-calendar-month__day:not(.tribe-events-calendar-month__day--past)"
	return Selectors{
		Toggle:          ".tribe-events-c-top-bar__datepicker-button",
		ToggleOpenClass: "tribe-events-c-top-bar__datepicker-button--open",
		MonthPicker:     ".datepicker-months",
		MonthItem:       ".datepicker-months span.month",
		TitleLink:       liveDay + " a.tribe-events-calendar-month__calendar-event-title-link",
		Day:             ".tribe-events-calendar-month__day",
		DayDateAttr:     "data-tribe-date",
		MoreLink:        liveDay + " a.tribe-events-calendar-month__more-events-link",
		OverflowEvent:   ".tribe-events-calendar-day__event-featured-image-link",
		OverflowTitle:   ".tribe-events-calendar-day__event-details h3 a",
		CookieDeny:      ".cmplz-deny",

		DetailTitle:        "h1",
		DetailImage:        "img.wp-post-image",
		DetailDescription:  "div.epta-content-area",
		DetailExternalLink: ".tribe-events-event-url a",
		DetailStartTime:    ".tribe-events-abbr.tribe-events-start-time.published.dtstart",
		DetailAddress:      ".tribe-street-address",
	}
}

// OpenSignal matches either sign that the date picker is showing.
func (s Selectors) OpenSignal() string {
	return "." + s.ToggleOpenClass + ", " + s.MonthPicker
}

// withDefaults fills every empty selector from DefaultSelectors.
func (s Selectors) withDefaults() Selectors {
	d := DefaultSelectors()
	pairs := []struct {
		dst *string
		def string
	}{
		{&s.Toggle, d.Toggle},
		{&s.ToggleOpenClass, d.ToggleOpenClass},
		{&s.MonthPicker, d.MonthPicker},
		{&s.MonthItem, d.MonthItem},
		{&s.TitleLink, d.TitleLink},
		{&s.Day, d.Day},
		{&s.DayDateAttr, d.DayDateAttr},
		{&s.MoreLink, d.MoreLink},
		{&s.OverflowEvent, d.OverflowEvent},
		{&s.OverflowTitle, d.OverflowTitle},
		{&s.CookieDeny, d.CookieDeny},
		{&s.DetailTitle, d.DetailTitle},
		{&s.DetailImage, d.DetailImage},
		{&s.DetailDescription, d.DetailDescription},
		{&s.DetailExternalLink, d.DetailExternalLink},
		{&s.DetailStartTime, d.DetailStartTime},
		{&s.DetailAddress, d.DetailAddress},
	}
	for _, p := range pairs {
		if *p.dst == "" {
			*p.dst = p.def
		}
	}
	return s
}

type Options struct {
	CalendarURL string
	Selectors   Selectors

	// OverflowCap bounds how many "+N more" pages are visited per month.
	// Zero visits none; a negative value takes the default of 2.
	OverflowCap int
	// DetailLimit bounds how many detail pages are visited; zero means all.
	DetailLimit int
	// ExternalPrefix is the only external link domain kept from detail pages.
	ExternalPrefix string

	WaitTimeout         time.Duration
	OverflowWaitTimeout time.Duration
	CookieTimeout       time.Duration
	SettleDelay         time.Duration
	Politeness          Delay
}

func (o *Options) applyDefaults() {
	o.Selectors = o.Selectors.withDefaults()
	if o.OverflowCap < 0 {
		o.OverflowCap = 2
	}
	if o.WaitTimeout == 0 {
		o.WaitTimeout = 20 * time.Second
	}
	if o.OverflowWaitTimeout == 0 {
		o.OverflowWaitTimeout = 10 * time.Second
	}
	if o.CookieTimeout == 0 {
		o.CookieTimeout = 20 * time.Second
	}
}

// Navigator walks the calendar one step at a time. It owns the page for the
// duration of a run; nothing else may drive it concurrently.
type Navigator struct {
	page   Page
	opts   Options
	logger *zap.Logger
	state  State
}

func NewNavigator(page Page, opts Options, logger *zap.Logger) *Navigator {
	opts.applyDefaults()
	return &Navigator{
		page:   page,
		opts:   opts,
		logger: logger,
		state:  StateClosed,
	}
}

func (n *Navigator) State() State { return n.state }

// Start loads the calendar root and dismisses the cookie banner if one shows.
func (n *Navigator) Start(ctx context.Context) error {
	if err := n.page.Navigate(ctx, n.opts.CalendarURL); err != nil {
		return fmt.Errorf("load calendar: %w", err)
	}
	n.state = StateClosed
	n.dismissCookies(ctx)
	return nil
}

func (n *Navigator) dismissCookies(ctx context.Context) {
	sel := n.opts.Selectors.CookieDeny
	if sel == "" {
		return
	}
	if err := n.page.WaitForSelector(ctx, sel, n.opts.CookieTimeout); err != nil {
		n.logger.Info("no cookie banner")
		return
	}
	if err := n.page.Click(ctx, sel); err != nil {
		n.logger.Warn("cookie banner click failed", zap.Error(err))
		return
	}
	n.logger.Info("cookie banner dismissed")
	sleep(ctx, n.opts.SettleDelay)
}

// Open clicks the date picker toggle and waits for the picker to show.
func (n *Navigator) Open(ctx context.Context) error {
	sel := n.opts.Selectors
	if n.state != StateClosed {
		return fmt.Errorf("%w: open from %s", ErrWrongState, n.state)
	}

	if err := n.page.WaitForSelector(ctx, sel.Toggle, n.opts.WaitTimeout); err != nil {
		return fmt.Errorf("%w: toggle: %w", ErrCalendarOpen, err)
	}
	if err := n.page.ScrollIntoView(ctx, sel.Toggle); err != nil {
		n.logger.Warn("scroll to toggle failed", zap.Error(err))
	}
	if err := n.page.Click(ctx, sel.Toggle); err != nil {
		return fmt.Errorf("%w: %w", ErrCalendarOpen, err)
	}

	if err := n.page.WaitForSelector(ctx, sel.OpenSignal(), n.opts.WaitTimeout); err != nil {
		return fmt.Errorf("%w (markup changed?): %w", ErrCalendarOpen, err)
	}

	n.state = StateOpen
	n.logger.Debug("calendar open")
	return nil
}

// SelectMonth picks month (the picker's short label, e.g. "Mar") and waits
// for the month view to render.
func (n *Navigator) SelectMonth(ctx context.Context, month string) error {
	sel := n.opts.Selectors
	if n.state != StateOpen {
		return fmt.Errorf("%w: select month from %s", ErrWrongState, n.state)
	}

	clicked, err := n.page.ClickText(ctx, sel.MonthItem, month)
	if err != nil {
		return err
	}
	if !clicked {
		return fmt.Errorf("%w: %s", ErrMonthMissing, month)
	}

	if err := n.page.WaitClassAbsent(ctx, sel.Toggle, sel.ToggleOpenClass, n.opts.WaitTimeout); err != nil {
		return fmt.Errorf("picker did not close after %s: %w", month, err)
	}
	if err := n.page.WaitForSelector(ctx, sel.TitleLink, n.opts.WaitTimeout); err != nil {
		return fmt.Errorf("no events rendered for %s: %w", month, err)
	}
	if err := sleep(ctx, n.opts.SettleDelay); err != nil {
		return err
	}

	n.state = StateMonthSelected
	n.logger.Info("month selected", zap.String("month", month))
	return nil
}

// Reset returns to the calendar root and confirms the toggle is back, which
// is the precondition for the next Open.
func (n *Navigator) Reset(ctx context.Context) error {
	if err := n.page.Navigate(ctx, n.opts.CalendarURL); err != nil {
		return fmt.Errorf("return to calendar: %w", err)
	}
	if err := n.page.WaitForSelector(ctx, n.opts.Selectors.Toggle, n.opts.WaitTimeout); err != nil {
		return fmt.Errorf("toggle missing after reset: %w", err)
	}
	n.state = StateClosed
	return nil
}

func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

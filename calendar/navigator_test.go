package calendar

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"agenda_scrooper/calendar/calendartest"
	"agenda_scrooper/fetcher"
	"agenda_scrooper/models"
	"agenda_scrooper/normalize"
)

const rootURL = "https://cal.test/eventos/"

func newFakePage() *calendartest.Page {
	return calendartest.NewPage(DefaultSelectors().OpenSignal())
}

func newTestNavigator(p Page) *Navigator {
	return NewNavigator(p, Options{
		CalendarURL:    rootURL,
		ExternalPrefix: "https://www.instagram.com/",
		OverflowCap:    2,
	}, zap.NewNop())
}

func monthGrid(p *calendartest.Page) {
	sel := DefaultSelectors()
	p.Months["Mar"] = true
	p.Set("", sel.TitleLink,
		fetcher.QueryItem{Text: "Concierto de jazz", Href: "https://cal.test/evento/jazz/", Group: "2025-03-03"},
		fetcher.QueryItem{Text: "Taller de cerámica", Href: "https://cal.test/evento/ceramica/", Group: "2025-03-04"},
		fetcher.QueryItem{Text: "Oculto por overflow", Href: "https://cal.test/evento/oculto/", Group: "2025-03-10"},
		fetcher.QueryItem{Text: "Otro oculto", Href: "https://cal.test/evento/oculto-2/", Group: "2025-03-11"},
	)
	p.Set("", sel.MoreLink,
		fetcher.QueryItem{Href: "https://cal.test/day/2025-03-10/", Group: "2025-03-10"},
		fetcher.QueryItem{Href: "https://cal.test/day/2025-03-11/", Group: "2025-03-11"},
		fetcher.QueryItem{Href: "https://cal.test/day/2025-03-12/", Group: "2025-03-12"},
		fetcher.QueryItem{Href: "https://cal.test/day/2025-03-13/", Group: "2025-03-13"},
	)
	p.Set("https://cal.test/day/2025-03-10/", sel.OverflowTitle,
		fetcher.QueryItem{Text: "Cine de verano", Href: "https://cal.test/evento/cine/"},
		fetcher.QueryItem{Text: "Feria gastronómica", Href: "https://cal.test/evento/feria/"},
	)
	p.Set("https://cal.test/day/2025-03-11/", sel.OverflowTitle,
		fetcher.QueryItem{Text: "Danza urbana", Href: "https://cal.test/evento/danza/"},
	)
}

func TestHarvestCapsOverflowAndExcludesOverflowDays(t *testing.T) {
	p := newFakePage()
	monthGrid(p)
	n := newTestNavigator(p)
	ctx := context.Background()

	require.NoError(t, n.Start(ctx))
	require.NoError(t, n.Open(ctx))
	require.NoError(t, n.SelectMonth(ctx, "Mar"))
	assert.Equal(t, StateMonthSelected, n.State())

	listings, err := n.Harvest(ctx, "Mar")
	require.NoError(t, err)

	assert.Equal(t, 2, p.NavigatedWithPrefix("https://cal.test/day/"), "overflow pages visited")
	assert.Equal(t, StateClosed, n.State())
	assert.Equal(t, rootURL, p.Current)

	var titles []string
	multiple := 0
	for _, l := range listings {
		titles = append(titles, l.Title)
		assert.Equal(t, "Mar", l.Month)
		if l.IsMultiple {
			multiple++
		}
	}
	assert.Equal(t, []string{"Concierto de jazz", "Taller de cerámica", "Cine de verano", "Feria gastronómica", "Danza urbana"}, titles)
	assert.Equal(t, 3, multiple)
}

func TestHarvestRequiresSelectedMonth(t *testing.T) {
	n := newTestNavigator(newFakePage())
	_, err := n.Harvest(context.Background(), "Mar")
	assert.ErrorIs(t, err, ErrWrongState)
}

func TestOpenFailureIsFatalOnFirstMonth(t *testing.T) {
	p := newFakePage()
	monthGrid(p)
	p.FailOpenOn[1] = true
	n := newTestNavigator(p)

	_, err := n.Run(context.Background(), []string{"Mar", "Abr"})
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrCalendarOpen)
	assert.True(t, fetcher.IsTimeout(err))
}

func TestRunAbandonsOnlyTheFailingMonth(t *testing.T) {
	p := newFakePage()
	monthGrid(p)
	p.Months["Abr"] = true
	p.SlowMonths["Abr"] = true
	n := newTestNavigator(p)
	n.opts.DetailLimit = 1

	out, err := n.Run(context.Background(), []string{"Abr", "Mar", "Jun"})
	require.NoError(t, err)
	assert.Equal(t, StateDetailsEnriched, n.State())
	require.Len(t, out, 5)
	for _, e := range out {
		assert.Equal(t, "Mar", e.Month)
	}
	assert.NotNil(t, out[0].Detail)
	assert.Nil(t, out[1].Detail, "beyond detail limit")
}

func TestRunKeepsListingsWhenOpenFailsLater(t *testing.T) {
	p := newFakePage()
	monthGrid(p)
	p.Months["Abr"] = true
	p.FailOpenOn[2] = true
	n := newTestNavigator(p)
	n.opts.DetailLimit = 1

	out, err := n.Run(context.Background(), []string{"Mar", "Abr"})
	require.NoError(t, err)
	assert.Len(t, out, 5)
}

func TestDetailsExtractsFields(t *testing.T) {
	sel := DefaultSelectors()
	p := newFakePage()
	const url = "https://cal.test/evento/jazz/"
	p.Set(url, sel.DetailTitle, fetcher.QueryItem{Text: "Concierto de jazz en la plaza"})
	p.Set(url, sel.DetailImage, fetcher.QueryItem{Attr: "https://media.cal.test/jazz.jpg"})
	p.Set(url, sel.DetailDescription, fetcher.QueryItem{Text: "Una noche de jazz."})
	p.Set(url, sel.DetailExternalLink,
		fetcher.QueryItem{Href: "https://www.instagram.com/jazzcanarias"},
		fetcher.QueryItem{Href: "https://tickets.example.com/"},
	)
	p.Set(url, sel.DetailStartTime, fetcher.QueryItem{Text: "5 marzo @ 20:30 - 22:00", Attr: "2025-03-05"})
	p.Set(url, sel.DetailAddress, fetcher.QueryItem{Text: "Plaza del Adelantado"})

	n := newTestNavigator(p)
	d, err := n.Details(context.Background(), Listing{Title: "Jazz", URL: url})
	require.NoError(t, err)

	assert.Equal(t, "Concierto de jazz en la plaza", d.Title)
	assert.Equal(t, models.CategoryMusic, d.Category)
	assert.Equal(t, "Una noche de jazz.", d.Description)
	assert.Equal(t, "https://www.instagram.com/jazzcanarias", d.ExternalURL)
	assert.Equal(t, "Plaza del Adelantado", d.Address)
	require.NotNil(t, d.StartTime)
	require.NotNil(t, d.EndTime)
	assert.Equal(t, "20:30", *d.StartTime)
	assert.Equal(t, "22:00", *d.EndTime)
	require.NotNil(t, d.StartDate)
	assert.Equal(t, time.Date(2025, time.March, 5, 0, 0, 0, 0, time.UTC), *d.StartDate)

	img, err := normalize.DecodeImageToken(d.ImageToken)
	require.NoError(t, err)
	assert.Equal(t, "https://media.cal.test/jazz.jpg", img)
}

func TestDetailsDropsForeignLinksAndKeepsListingTitle(t *testing.T) {
	sel := DefaultSelectors()
	p := newFakePage()
	const url = "https://cal.test/evento/x/"
	p.Set(url, sel.DetailExternalLink, fetcher.QueryItem{Href: "https://tickets.example.com/"})

	d, err := newTestNavigator(p).Details(context.Background(), Listing{Title: "Mercadillo", URL: url})
	require.NoError(t, err)
	assert.Equal(t, "Mercadillo", d.Title)
	assert.Empty(t, d.ExternalURL)
	assert.Empty(t, d.ImageToken)
	assert.Nil(t, d.StartDate)
	assert.Nil(t, d.StartTime)
}

func TestEnrichSurvivesDetailFailure(t *testing.T) {
	p := newFakePage()
	p.FailNavigate["https://cal.test/evento/b/"] = true
	n := newTestNavigator(p)

	out := n.enrich(context.Background(), []Listing{
		{Title: "A", URL: "https://cal.test/evento/a/"},
		{Title: "B", URL: "https://cal.test/evento/b/"},
		{Title: "C", URL: "https://cal.test/evento/c/"},
	})
	require.Len(t, out, 3)
	assert.NotNil(t, out[0].Detail)
	assert.Nil(t, out[1].Detail)
	assert.NotNil(t, out[2].Detail)
}

func TestDelayNextStaysInWindow(t *testing.T) {
	d := Delay{Min: 5 * time.Millisecond, Max: 8 * time.Millisecond}
	for i := 0; i < 200; i++ {
		v := d.Next()
		assert.GreaterOrEqual(t, v, d.Min)
		assert.LessOrEqual(t, v, d.Max)
	}
	assert.Equal(t, time.Second, Delay{Min: time.Second}.Next())
}

func TestDelayWaitHonoursContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	err := Delay{Min: time.Hour, Max: time.Hour}.Wait(ctx)
	assert.True(t, errors.Is(err, context.Canceled))
}

func TestSelectorsPartialOverride(t *testing.T) {
	n := NewNavigator(newFakePage(), Options{Selectors: Selectors{Toggle: ".my-toggle"}, OverflowCap: -1}, zap.NewNop())
	assert.Equal(t, ".my-toggle", n.opts.Selectors.Toggle)
	assert.Equal(t, DefaultSelectors().TitleLink, n.opts.Selectors.TitleLink)
	assert.Equal(t, 2, n.opts.OverflowCap)
}

func TestHarvestWithOverflowOff(t *testing.T) {
	p := newFakePage()
	monthGrid(p)
	n := newTestNavigator(p)
	n.opts.OverflowCap = 0
	ctx := context.Background()

	require.NoError(t, n.Start(ctx))
	require.NoError(t, n.Open(ctx))
	require.NoError(t, n.SelectMonth(ctx, "Mar"))
	listings, err := n.Harvest(ctx, "Mar")
	require.NoError(t, err)

	assert.Zero(t, p.NavigatedWithPrefix("https://cal.test/day/"))
	require.Len(t, listings, 2)
	assert.Equal(t, "Concierto de jazz", listings[0].Title)
	assert.Equal(t, "Taller de cerámica", listings[1].Title)
}

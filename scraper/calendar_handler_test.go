package scraper

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"agenda_scrooper/calendar"
	"agenda_scrooper/config"
	"agenda_scrooper/models"
	"agenda_scrooper/normalize"
)

func calendarSite() *config.SiteConfig {
	return &config.SiteConfig{
		ID:      "calendario",
		Handler: "calendar",
		Island:  "Tenerife",
		Calendar: &config.CalendarSite{
			URL:            "https://cal.test/eventos/",
			ExternalPrefix: "https://www.instagram.com/",
		},
	}
}

func newTestCalendarHandler(t *testing.T) *CalendarHandler {
	t.Helper()
	cfg := &config.Config{AdminID: "admin-1"}
	cfg.Relay.BaseURL = "https://api.test/img-proxy"
	h, err := NewCalendarHandler(calendarSite(), Deps{Config: cfg, Locator: fixedLocator{}, Logger: zap.NewNop()})
	require.NoError(t, err)
	return h
}

func TestCalendarToEvents(t *testing.T) {
	h := newTestCalendarHandler(t)
	start := time.Date(2025, 3, 5, 0, 0, 0, 0, time.UTC)
	from, to := "20:30", "22:00"
	token := normalize.EncodeImageToken("https://media.cal.test/jazz.jpg")

	events := h.toEvents(context.Background(), []calendar.Enriched{
		{
			Listing: calendar.Listing{Month: "Mar", Title: "Jazz", URL: "https://cal.test/evento/jazz/"},
			Detail: &calendar.Detail{
				Title:       "Concierto de jazz",
				ImageToken:  token,
				Description: "Una noche de jazz.",
				ExternalURL: "https://www.instagram.com/jazz",
				StartTime:   &from,
				EndTime:     &to,
				StartDate:   &start,
				Address:     "Plaza del Adelantado",
				Category:    models.CategoryMusic,
			},
		},
		{Listing: calendar.Listing{Title: "Sin detalle", URL: "https://cal.test/evento/x/"}},
		{
			Listing: calendar.Listing{Title: "Sin fecha", URL: "https://cal.test/evento/y/"},
			Detail:  &calendar.Detail{Title: "Sin fecha", Category: models.CategoryActivities},
		},
	})

	require.Len(t, events, 1)
	e := events[0]
	assert.Equal(t, "Concierto de jazz", e.Title)
	assert.Equal(t, models.CategoryMusic, e.Category)
	assert.Equal(t, "https://cal.test/evento/jazz/", e.FullLink)
	assert.Equal(t, "https://api.test/img-proxy?src="+token, e.ImgURL)
	assert.Equal(t, "https://www.instagram.com/jazz", e.ExternalURL)
	assert.Equal(t, "Plaza del Adelantado", e.Location)
	assert.Equal(t, "38003", e.PostalCode)
	assert.Equal(t, 2025, e.StartYear)
	assert.Equal(t, e.StartDay, e.LastDay)
	assert.Equal(t, e.StartMonth, e.LastMonth)
	assert.Equal(t, "admin-1", e.UserID)
	assert.Equal(t, "calendario", e.Source)
	require.NotNil(t, e.Time)
	assert.Equal(t, "20:30", *e.Time)
	assert.NoError(t, e.Validate())
}

func TestCalendarToEventsWithoutImage(t *testing.T) {
	h := newTestCalendarHandler(t)
	start := time.Date(2025, 4, 1, 0, 0, 0, 0, time.UTC)
	events := h.toEvents(context.Background(), []calendar.Enriched{{
		Listing: calendar.Listing{URL: "https://cal.test/evento/z/"},
		Detail:  &calendar.Detail{Title: "Mercadillo", StartDate: &start, Category: models.CategoryActivities},
	}})
	require.Len(t, events, 1)
	assert.Empty(t, events[0].ImgURL)
	assert.Empty(t, events[0].PostalCode, "no address, no lookup")
}

func TestNewCalendarHandlerRequiresURL(t *testing.T) {
	site := calendarSite()
	site.Calendar.URL = ""
	site.Calendar.URLEnv = "CALENDARIO_EVENTOS_URL"
	_, err := NewCalendarHandler(site, Deps{Logger: zap.NewNop()})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "CALENDARIO_EVENTOS_URL")

	_, err = NewCalendarHandler(&config.SiteConfig{ID: "x"}, Deps{Logger: zap.NewNop()})
	assert.Error(t, err)
}

func TestNewCalendarHandlerRequiresAbsoluteRelay(t *testing.T) {
	for _, base := range []string{"", "/img-proxy", "api.test/img-proxy"} {
		cfg := &config.Config{}
		cfg.Relay.BaseURL = base
		_, err := NewCalendarHandler(calendarSite(), Deps{Config: cfg, Logger: zap.NewNop()})
		require.Error(t, err, base)
		assert.Contains(t, err.Error(), "RELAY_BASE_URL")
	}
}

func TestMonthWindow(t *testing.T) {
	march := time.Date(2025, 3, 15, 0, 0, 0, 0, time.UTC)
	assert.Equal(t, []string{"Mar", "Abr"}, MonthWindow(march, 2))

	december := time.Date(2025, 12, 1, 0, 0, 0, 0, time.UTC)
	assert.Equal(t, []string{"Dic"}, MonthWindow(december, 2))

	october := time.Date(2025, 10, 1, 0, 0, 0, 0, time.UTC)
	assert.Equal(t, []string{"Oct", "Nov", "Dic"}, MonthWindow(october, 0))
}

func TestNewHandlerUnknown(t *testing.T) {
	_, err := NewHandler(&config.SiteConfig{ID: "x", Handler: "ftp"}, Deps{Logger: zap.NewNop()})
	assert.Error(t, err)
}

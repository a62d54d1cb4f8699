package scraper

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"agenda_scrooper/config"
	"agenda_scrooper/fetcher"
	"agenda_scrooper/geo"
	"agenda_scrooper/models"
)

// Handler scrapes one configured site into storage-ready records.
type Handler interface {
	ID() string
	Scrape(ctx context.Context) ([]models.Event, error)
}

// Deps are the collaborators shared by every handler.
type Deps struct {
	Config  *config.Config
	Fetcher fetcher.Fetcher
	Locator geo.Locator
	Logger  *zap.Logger
}

// NewHandler builds the handler named by the site config. A site without the
// URLs it needs cannot be built.
func NewHandler(site *config.SiteConfig, deps Deps) (Handler, error) {
	switch site.Handler {
	case "static":
		return NewTEAHandler(site, deps)
	case "calendar":
		return NewCalendarHandler(site, deps)
	default:
		return nil, fmt.Errorf("site %s: unknown handler %q", site.ID, site.Handler)
	}
}

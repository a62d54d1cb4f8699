package scraper

import (
	"context"

	"go.uber.org/zap"

	"agenda_scrooper/geo"
	"agenda_scrooper/models"
)

// locate fills the geo fields of e from its Location. A failed lookup leaves
// them empty.
func locate(ctx context.Context, locator geo.Locator, logger *zap.Logger, e *models.Event) {
	if locator == nil || e.Location == "" {
		return
	}
	loc, err := locator.Locate(ctx, e.Location, e.Island)
	if err != nil {
		logger.Warn("geolocation failed", zap.String("location", e.Location), zap.Error(err))
		return
	}
	e.PostalCode = loc.PostalCode
	e.Coordinates = loc.Coordinates
	e.MapImageURL = loc.MapImageURL
}

package scraper

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"agenda_scrooper/config"
	"agenda_scrooper/models"
)

// EventSaver persists one record at a time. storage.EventStore implements it.
type EventSaver interface {
	SaveScrapedEvent(ctx context.Context, e *models.Event) (models.SaveStatus, error)
}

// RunJournal records runs and their log lines. storage.RunStore implements it.
type RunJournal interface {
	CreateRun(run *models.ScrapeRun) (int64, error)
	UpdateRun(run *models.ScrapeRun) error
	Log(runID *int64, level models.LogLevel, message, siteID string) error
}

type Orchestrator struct {
	cfg       *config.Config
	events    EventSaver
	runs      RunJournal
	logger    *zap.Logger
	handlers  map[string]Handler
	buildErrs map[string]error
}

// NewOrchestrator builds a handler per configured site. A site whose handler
// cannot be built is kept so that running it reports the failure.
func NewOrchestrator(cfg *config.Config, deps Deps, events EventSaver, runs RunJournal) *Orchestrator {
	o := &Orchestrator{
		cfg:       cfg,
		events:    events,
		runs:      runs,
		logger:    deps.Logger,
		handlers:  make(map[string]Handler),
		buildErrs: make(map[string]error),
	}
	for id, site := range cfg.Sites {
		h, err := NewHandler(site, deps)
		if err != nil {
			o.buildErrs[id] = err
			continue
		}
		o.handlers[id] = h
	}
	return o
}

// SetHandler replaces the handler of a site.
func (o *Orchestrator) SetHandler(h Handler) {
	o.handlers[h.ID()] = h
	delete(o.buildErrs, h.ID())
}

// RunAll runs every site in id order. One site failing does not stop the
// others; all failures are returned joined.
func (o *Orchestrator) RunAll(ctx context.Context) error {
	var errs []error
	for _, siteID := range o.cfg.SiteIDs() {
		if err := o.RunSite(ctx, siteID); err != nil {
			o.logger.Error("site run failed", zap.String("site", siteID), zap.Error(err))
			errs = append(errs, fmt.Errorf("%s: %w", siteID, err))
		}
	}
	return errors.Join(errs...)
}

func (o *Orchestrator) RunSite(ctx context.Context, siteID string) error {
	if _, ok := o.cfg.Sites[siteID]; !ok {
		return fmt.Errorf("unknown site: %s", siteID)
	}

	run := &models.ScrapeRun{
		SiteID:    siteID,
		StartedAt: time.Now(),
		Status:    models.RunStatusRunning,
	}
	runID, err := o.runs.CreateRun(run)
	if err != nil {
		return fmt.Errorf("create run: %w", err)
	}
	run.ID = runID

	defer func() {
		now := time.Now()
		run.FinishedAt = &now
		if err := o.runs.UpdateRun(run); err != nil {
			o.logger.Warn("failed to update run", zap.Int64("run", run.ID), zap.Error(err))
		}
	}()

	handler, ok := o.handlers[siteID]
	if !ok {
		err := o.buildErrs[siteID]
		if err == nil {
			err = fmt.Errorf("no handler for site: %s", siteID)
		}
		o.log(run.ID, models.LogLevelError, fmt.Sprintf("Cannot start: %v", err), siteID)
		run.ErrorsCount++
		run.Status = models.RunStatusFailed
		return err
	}

	o.log(run.ID, models.LogLevelInfo, fmt.Sprintf("Starting scrape for %s", siteID), siteID)

	events, err := handler.Scrape(ctx)
	if err != nil {
		o.log(run.ID, models.LogLevelError, fmt.Sprintf("Scrape error: %v", err), siteID)
		run.ErrorsCount++
		run.Status = models.RunStatusFailed
		return err
	}
	run.EventsFound = len(events)
	o.log(run.ID, models.LogLevelInfo, fmt.Sprintf("Scraped %d events", len(events)), siteID)

	for i := range events {
		status := o.save(ctx, run.ID, &events[i], siteID)
		run.Record(status)
	}

	run.Status = models.RunStatusCompleted
	o.log(run.ID, models.LogLevelInfo,
		fmt.Sprintf("Completed: %d found, %d saved, %d duplicated, %d skipped, %d errors",
			run.EventsFound, run.EventsSaved, run.EventsDuplicated, run.EventsSkipped, run.ErrorsCount), siteID)

	return nil
}

// save validates and stores one record. Failures are logged and counted,
// never returned, so the remaining records are still attempted.
func (o *Orchestrator) save(ctx context.Context, runID int64, e *models.Event, siteID string) models.SaveStatus {
	if err := e.Validate(); err != nil {
		o.log(runID, models.LogLevelWarn, fmt.Sprintf("Skipped %q: %v", e.Title, err), siteID)
		return models.SaveStatusInvalid
	}

	status, err := o.events.SaveScrapedEvent(ctx, e)
	if err != nil {
		o.log(runID, models.LogLevelError, fmt.Sprintf("Failed to save %q: %v", e.Title, err), siteID)
		return models.SaveStatusError
	}

	switch status {
	case models.SaveStatusDuplicated:
		o.log(runID, models.LogLevelInfo, fmt.Sprintf("Duplicated: %s", e.Title), siteID)
	default:
		o.log(runID, models.LogLevelInfo, fmt.Sprintf("Saved: %s", e.Title), siteID)
	}
	return status
}

// SiteIDs returns the configured sites in run order.
func (o *Orchestrator) SiteIDs() []string {
	return o.cfg.SiteIDs()
}

func (o *Orchestrator) log(runID int64, level models.LogLevel, message, siteID string) {
	fields := []zap.Field{zap.String("site", siteID), zap.Int64("run", runID)}
	switch level {
	case models.LogLevelError:
		o.logger.Error(message, fields...)
	case models.LogLevelWarn:
		o.logger.Warn(message, fields...)
	default:
		o.logger.Info(message, fields...)
	}
	if err := o.runs.Log(&runID, level, message, siteID); err != nil {
		o.logger.Warn("failed to journal log line", zap.Error(err))
	}
}

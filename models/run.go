package models

import "time"

type RunStatus string

const (
	RunStatusRunning   RunStatus = "running"
	RunStatusCompleted RunStatus = "completed"
	RunStatusFailed    RunStatus = "failed"
)

// SaveStatus is the per-record outcome reported by the event store.
type SaveStatus string

const (
	SaveStatusSaved      SaveStatus = "saved"
	SaveStatusDuplicated SaveStatus = "duplicated"
	SaveStatusError      SaveStatus = "error"
	SaveStatusInvalid    SaveStatus = "invalid"
)

type ScrapeRun struct {
	ID               int64      `json:"id" db:"id"`
	SiteID           string     `json:"site_id" db:"site_id"`
	StartedAt        time.Time  `json:"started_at" db:"started_at"`
	FinishedAt       *time.Time `json:"finished_at" db:"finished_at"`
	Status           RunStatus  `json:"status" db:"status"`
	EventsFound      int        `json:"events_found" db:"events_found"`
	EventsSaved      int        `json:"events_saved" db:"events_saved"`
	EventsDuplicated int        `json:"events_duplicated" db:"events_duplicated"`
	EventsSkipped    int        `json:"events_skipped" db:"events_skipped"`
	ErrorsCount      int        `json:"errors_count" db:"errors_count"`
}

// Record counts one save outcome against the run.
func (r *ScrapeRun) Record(status SaveStatus) {
	switch status {
	case SaveStatusSaved:
		r.EventsSaved++
	case SaveStatusDuplicated:
		r.EventsDuplicated++
	case SaveStatusInvalid:
		r.EventsSkipped++
	default:
		r.ErrorsCount++
	}
}

package storage

import (
	"database/sql"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"agenda_scrooper/models"
)

// RunStore is the local journal of scrape runs and their log lines.
type RunStore struct {
	db *sql.DB
}

func NewRunStore(dbPath string) (*RunStore, error) {
	db, err := sql.Open("sqlite3", dbPath+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, err
	}

	store := &RunStore{db: db}
	if err := store.migrate(); err != nil {
		db.Close()
		return nil, err
	}

	return store, nil
}

func (s *RunStore) Close() error {
	return s.db.Close()
}

func (s *RunStore) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS scrape_runs (
		id INTEGER PRIMARY KEY,
		site_id TEXT,
		started_at DATETIME,
		finished_at DATETIME,
		status TEXT,
		events_found INTEGER DEFAULT 0,
		events_saved INTEGER DEFAULT 0,
		events_duplicated INTEGER DEFAULT 0,
		events_skipped INTEGER DEFAULT 0,
		errors_count INTEGER DEFAULT 0
	);

	CREATE TABLE IF NOT EXISTS scrape_logs (
		id INTEGER PRIMARY KEY,
		run_id INTEGER,
		timestamp DATETIME,
		level TEXT,
		message TEXT,
		site_id TEXT
	);

	CREATE INDEX IF NOT EXISTS idx_logs_run ON scrape_logs(run_id, timestamp);
	CREATE INDEX IF NOT EXISTS idx_runs_site ON scrape_runs(site_id, started_at);
	`
	_, err := s.db.Exec(schema)
	return err
}

func (s *RunStore) CreateRun(run *models.ScrapeRun) (int64, error) {
	result, err := s.db.Exec(`
		INSERT INTO scrape_runs (site_id, started_at, status)
		VALUES (?, ?, ?)`,
		run.SiteID, run.StartedAt, run.Status)
	if err != nil {
		return 0, err
	}
	return result.LastInsertId()
}

func (s *RunStore) UpdateRun(run *models.ScrapeRun) error {
	_, err := s.db.Exec(`
		UPDATE scrape_runs SET finished_at = ?, status = ?, events_found = ?, events_saved = ?,
			events_duplicated = ?, events_skipped = ?, errors_count = ?
		WHERE id = ?`,
		run.FinishedAt, run.Status, run.EventsFound, run.EventsSaved,
		run.EventsDuplicated, run.EventsSkipped, run.ErrorsCount, run.ID)
	return err
}

func (s *RunStore) Log(runID *int64, level models.LogLevel, message, siteID string) error {
	_, err := s.db.Exec(`
		INSERT INTO scrape_logs (run_id, timestamp, level, message, site_id)
		VALUES (?, ?, ?, ?, ?)`,
		runID, time.Now(), level, message, siteID)
	return err
}

// RecentRuns returns the latest runs, newest first. An empty siteID matches
// every site.
func (s *RunStore) RecentRuns(siteID string, limit int) ([]models.ScrapeRun, error) {
	rows, err := s.db.Query(`
		SELECT id, site_id, started_at, finished_at, status, events_found, events_saved,
			events_duplicated, events_skipped, errors_count
		FROM scrape_runs
		WHERE ? = '' OR site_id = ?
		ORDER BY started_at DESC, id DESC
		LIMIT ?`, siteID, siteID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var runs []models.ScrapeRun
	for rows.Next() {
		var r models.ScrapeRun
		var finished sql.NullTime
		if err := rows.Scan(&r.ID, &r.SiteID, &r.StartedAt, &finished, &r.Status, &r.EventsFound,
			&r.EventsSaved, &r.EventsDuplicated, &r.EventsSkipped, &r.ErrorsCount); err != nil {
			return nil, err
		}
		if finished.Valid {
			r.FinishedAt = &finished.Time
		}
		runs = append(runs, r)
	}
	return runs, rows.Err()
}

// RunLogs returns the log lines of one run in order.
func (s *RunStore) RunLogs(runID int64) ([]models.ScrapeLog, error) {
	rows, err := s.db.Query(`
		SELECT id, run_id, timestamp, level, message, site_id
		FROM scrape_logs WHERE run_id = ? ORDER BY timestamp, id`, runID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var logs []models.ScrapeLog
	for rows.Next() {
		var l models.ScrapeLog
		if err := rows.Scan(&l.ID, &l.RunID, &l.Timestamp, &l.Level, &l.Message, &l.SiteID); err != nil {
			return nil, err
		}
		logs = append(logs, l)
	}
	return logs, rows.Err()
}

package storage

import (
	"database/sql"
	"fmt"
	"time"

	_ "github.com/lib/pq"

	"zigbang-scraper/models"
)

// PostgresRecorder appends scrape-run history rows to PostgreSQL.
type PostgresRecorder struct {
	db *sql.DB
}

// NewPostgresRecorder opens a connection to PostgreSQL, runs schema
// migrations, and returns a ready-to-use PostgresRecorder.
func NewPostgresRecorder(dsn string) (*PostgresRecorder, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("postgres: open: %w", err)
	}

	for i := 0; i < 10; i++ {
		if err = db.Ping(); err == nil {
			break
		}
		time.Sleep(2 * time.Second)
	}
	if err != nil {
		return nil, fmt.Errorf("postgres: ping failed after retries: %w", err)
	}

	pr := &PostgresRecorder{db: db}
	if err := pr.migrate(); err != nil {
		return nil, fmt.Errorf("postgres: migrate: %w", err)
	}

	return pr, nil
}

func (pr *PostgresRecorder) migrate() error {
	_, err := pr.db.Exec(`
		CREATE TABLE IF NOT EXISTS scrape_runs (
			id            SERIAL PRIMARY KEY,
			run_id        UUID         NOT NULL,
			portal        VARCHAR(50)  NOT NULL,
			city          TEXT         NOT NULL,
			property_type TEXT         NOT NULL,
			discovered    INTEGER      NOT NULL DEFAULT 0,
			fetched       INTEGER      NOT NULL DEFAULT 0,
			ingested      INTEGER      NOT NULL DEFAULT 0,
			failed        INTEGER      NOT NULL DEFAULT 0,
			started_at    TIMESTAMPTZ  NOT NULL,
			finished_at   TIMESTAMPTZ  NOT NULL
		);

		CREATE INDEX IF NOT EXISTS idx_scrape_runs_run_id ON scrape_runs(run_id);
		CREATE INDEX IF NOT EXISTS idx_scrape_runs_portal ON scrape_runs(portal);
		CREATE INDEX IF NOT EXISTS idx_scrape_runs_city   ON scrape_runs(city);
	`)
	return err
}

// Record inserts one combination's outcome.
func (pr *PostgresRecorder) Record(r *models.RunRecord) error {
	_, err := pr.db.Exec(`
		INSERT INTO scrape_runs
			(run_id, portal, city, property_type, discovered, fetched, ingested, failed, started_at, finished_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10)
	`, r.RunID, r.Portal, r.City, r.PropertyType,
		r.Discovered, r.Fetched, r.Ingested, r.Failed, r.StartedAt, r.FinishedAt)
	if err != nil {
		return fmt.Errorf("postgres: insert run record: %w", err)
	}
	return nil
}

func (pr *PostgresRecorder) Close() error {
	return pr.db.Close()
}

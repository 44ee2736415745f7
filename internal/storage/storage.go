// Package storage provides a SQLite-backed time-to-live cache of retrieved
// price series.
package storage

import (
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"github.com/rewired-gh/fxcorr/internal/models"
)

// Storage wraps a SQLite database holding cached series.
type Storage struct {
	db *sql.DB
}

// New opens or creates the SQLite database at dbPath.
// An empty dbPath defaults to $TMPDIR/fxcorr/cache.db.
func New(dbPath string) (*Storage, error) {
	if dbPath == "" {
		dbPath = filepath.Join(os.TempDir(), "fxcorr", "cache.db")
	}
	if dbPath != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(dbPath), 0o755); err != nil {
			return nil, fmt.Errorf("failed to create data directory: %w", err)
		}
	}
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	db.SetMaxOpenConns(1) // single writer; WAL allows concurrent readers
	if _, err := db.Exec(`PRAGMA journal_mode=WAL`); err != nil {
		return nil, fmt.Errorf("failed to set WAL mode: %w", err)
	}
	if _, err := db.Exec(`PRAGMA foreign_keys=ON`); err != nil {
		return nil, fmt.Errorf("failed to enable foreign keys: %w", err)
	}
	s := &Storage{db: db}
	if err := s.createTables(); err != nil {
		return nil, fmt.Errorf("failed to create tables: %w", err)
	}
	return s, nil
}

// Close closes the underlying database connection.
func (s *Storage) Close() error {
	return s.db.Close()
}

func (s *Storage) createTables() error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS fetches (
			id          TEXT PRIMARY KEY,
			instrument  TEXT NOT NULL,
			start_day   TEXT NOT NULL,
			end_day     TEXT NOT NULL,
			fetched_at  INTEGER NOT NULL,
			UNIQUE (instrument, start_day, end_day)
		)`,
		`CREATE TABLE IF NOT EXISTS quotes (
			fetch_id    TEXT NOT NULL REFERENCES fetches(id) ON DELETE CASCADE,
			day         TEXT NOT NULL,
			close       REAL NOT NULL,
			PRIMARY KEY (fetch_id, day)
		)`,
		`CREATE INDEX IF NOT EXISTS idx_fetches_fetched_at ON fetches(fetched_at)`,
	}
	for _, stmt := range stmts {
		if _, err := s.db.Exec(stmt); err != nil {
			return err
		}
	}
	return nil
}

// SaveSeries caches a retrieved series under (instrument, start, end),
// replacing any earlier entry for the same key. Synthetic series are rejected.
func (s *Storage) SaveSeries(series models.PriceSeries, start, end, fetchedAt time.Time) error {
	if err := series.Validate(); err != nil {
		return fmt.Errorf("invalid series: %w", err)
	}
	if series.Synthetic() {
		return fmt.Errorf("refusing to cache synthetic series for %s", series.Instrument)
	}

	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	startDay, endDay := dayKey(start), dayKey(end)
	if _, err := tx.Exec(`DELETE FROM fetches WHERE instrument = ? AND start_day = ? AND end_day = ?`,
		series.Instrument, startDay, endDay); err != nil {
		return fmt.Errorf("failed to replace cached fetch: %w", err)
	}

	id := uuid.NewString()
	if _, err := tx.Exec(`
		INSERT INTO fetches (id, instrument, start_day, end_day, fetched_at)
		VALUES (?,?,?,?,?)`,
		id, series.Instrument, startDay, endDay, fetchedAt.UnixNano(),
	); err != nil {
		return fmt.Errorf("failed to insert fetch: %w", err)
	}

	stmt, err := tx.Prepare(`INSERT INTO quotes (fetch_id, day, close) VALUES (?,?,?)`)
	if err != nil {
		return fmt.Errorf("failed to prepare quote insert: %w", err)
	}
	defer stmt.Close()
	for _, p := range series.Points {
		if _, err := stmt.Exec(id, dayKey(p.Date), p.Close); err != nil {
			return fmt.Errorf("failed to insert quote: %w", err)
		}
	}

	return tx.Commit()
}

// LoadSeries returns the cached series for (instrument, start, end) if it was
// fetched no longer than maxAge before now. ok is false on a miss.
func (s *Storage) LoadSeries(instrument string, start, end time.Time, maxAge time.Duration, now time.Time) (series models.PriceSeries, ok bool, err error) {
	var id string
	var fetchedAtNano int64
	err = s.db.QueryRow(`
		SELECT id, fetched_at FROM fetches
		WHERE instrument = ? AND start_day = ? AND end_day = ?`,
		instrument, dayKey(start), dayKey(end),
	).Scan(&id, &fetchedAtNano)
	if errors.Is(err, sql.ErrNoRows) {
		return models.PriceSeries{}, false, nil
	}
	if err != nil {
		return models.PriceSeries{}, false, fmt.Errorf("failed to look up fetch: %w", err)
	}
	if now.Sub(time.Unix(0, fetchedAtNano)) > maxAge {
		return models.PriceSeries{}, false, nil
	}

	rows, err := s.db.Query(`SELECT day, close FROM quotes WHERE fetch_id = ? ORDER BY day`, id)
	if err != nil {
		return models.PriceSeries{}, false, fmt.Errorf("failed to query quotes: %w", err)
	}
	defer rows.Close()

	series = models.PriceSeries{
		Instrument: instrument,
		Provenance: models.ProvenanceRetrieved,
		Points:     []models.PricePoint{},
	}
	for rows.Next() {
		var day string
		var p models.PricePoint
		if err := rows.Scan(&day, &p.Close); err != nil {
			return models.PriceSeries{}, false, fmt.Errorf("failed to scan quote: %w", err)
		}
		if p.Date, err = time.Parse(models.DateLayout, day); err != nil {
			return models.PriceSeries{}, false, fmt.Errorf("failed to parse quote day %q: %w", day, err)
		}
		series.Points = append(series.Points, p)
	}
	if err := rows.Err(); err != nil {
		return models.PriceSeries{}, false, err
	}
	return series, true, nil
}

// Prune deletes entries fetched more than maxAge before now. Cascading
// deletes remove their quotes. It returns the number of fetches removed.
func (s *Storage) Prune(maxAge time.Duration, now time.Time) (int64, error) {
	res, err := s.db.Exec(`DELETE FROM fetches WHERE fetched_at < ?`, now.Add(-maxAge).UnixNano())
	if err != nil {
		return 0, fmt.Errorf("failed to prune cache: %w", err)
	}
	n, _ := res.RowsAffected()
	return n, nil
}

// Count returns the number of cached fetches.
func (s *Storage) Count() (int, error) {
	var n int
	if err := s.db.QueryRow(`SELECT COUNT(*) FROM fetches`).Scan(&n); err != nil {
		return 0, fmt.Errorf("failed to count fetches: %w", err)
	}
	return n, nil
}

func dayKey(t time.Time) string {
	return models.Day(t).Format(models.DateLayout)
}

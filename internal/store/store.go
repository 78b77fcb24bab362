// Package store handles SQLite persistence.
package store

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/verte-zerg/retell/internal/model"

	_ "modernc.org/sqlite" // SQLite driver.
)

// Store wraps SQLite access for practice history.
type Store struct {
	db *sql.DB
}

// Open opens or creates the SQLite database and applies migrations.
func Open(path string) (*Store, error) {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, err
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	store := &Store{db: db}
	if err := store.migrate(); err != nil {
		if cerr := db.Close(); cerr != nil {
			// Best-effort close on migration failure.
			_ = cerr
		}
		return nil, err
	}
	return store, nil
}

// Close closes the underlying database.
func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) migrate() error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS practice_records (
			id INTEGER PRIMARY KEY,
			story_id INTEGER NOT NULL,
			score INTEGER NOT NULL,
			recorded_at TEXT NOT NULL,
			total_keywords INTEGER NOT NULL,
			transcript_words INTEGER NOT NULL
		);`,
		`CREATE TABLE IF NOT EXISTS record_keywords (
			record_id INTEGER NOT NULL,
			keyword TEXT NOT NULL,
			matched INTEGER NOT NULL,
			PRIMARY KEY (record_id, keyword)
		);`,
		`CREATE INDEX IF NOT EXISTS idx_practice_records_recorded_at ON practice_records(recorded_at);`,
		`CREATE INDEX IF NOT EXISTS idx_practice_records_story ON practice_records(story_id);`,
	}
	for _, stmt := range stmts {
		if _, err := s.db.Exec(stmt); err != nil {
			return err
		}
	}
	return nil
}

// Record implements the controller's record sink.
func (s *Store) Record(ctx context.Context, rec model.PracticeRecord) error {
	_, err := s.InsertRecord(ctx, rec)
	return err
}

// InsertRecord stores a completed run and the outcome of each keyword.
func (s *Store) InsertRecord(ctx context.Context, rec model.PracticeRecord) (id int64, err error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, err
	}
	defer func() {
		if err != nil {
			if rerr := tx.Rollback(); rerr != nil {
				// Best-effort rollback.
				_ = rerr
			}
		}
	}()

	res, err := tx.ExecContext(ctx,
		`INSERT INTO practice_records (story_id, score, recorded_at, total_keywords, transcript_words)
		 VALUES (?, ?, ?, ?, ?)`,
		rec.StoryID,
		rec.Score,
		rec.Timestamp.UTC().Format(time.RFC3339Nano),
		rec.TotalKeywords,
		rec.TranscriptWords,
	)
	if err != nil {
		return 0, err
	}
	id, err = res.LastInsertId()
	if err != nil {
		return 0, err
	}

	if len(rec.Matched)+len(rec.Missing) > 0 {
		stmt, err := tx.PrepareContext(ctx,
			`INSERT OR REPLACE INTO record_keywords (record_id, keyword, matched) VALUES (?, ?, ?)`)
		if err != nil {
			return 0, err
		}
		defer func() {
			if cerr := stmt.Close(); cerr != nil {
				// Best-effort statement close.
				_ = cerr
			}
		}()
		for _, kw := range rec.Matched {
			if _, err := stmt.ExecContext(ctx, id, kw, 1); err != nil {
				return 0, err
			}
		}
		for _, kw := range rec.Missing {
			if _, err := stmt.ExecContext(ctx, id, kw, 0); err != nil {
				return 0, err
			}
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, err
	}
	return id, nil
}

// ListRecords returns records filtered by history config, oldest first.
// Keyword lists are not loaded.
func (s *Store) ListRecords(ctx context.Context, cfg model.HistoryConfig) ([]model.PracticeRecord, error) {
	clauses := []string{"1=1"}
	args := []any{}
	if cfg.StoryID > 0 {
		clauses = append(clauses, "story_id = ?")
		args = append(args, cfg.StoryID)
	}
	if cfg.Since != nil {
		clauses = append(clauses, "recorded_at >= ?")
		args = append(args, cfg.Since.UTC().Format(time.RFC3339Nano))
	}
	query := fmt.Sprintf(`SELECT id, story_id, score, recorded_at, total_keywords, transcript_words
		FROM practice_records
		WHERE %s
		ORDER BY recorded_at DESC, id DESC`, strings.Join(clauses, " AND "))
	if cfg.Last > 0 {
		query += " LIMIT ?"
		args = append(args, cfg.Last)
	}
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer func() {
		if cerr := rows.Close(); cerr != nil {
			// Best-effort rows close.
			_ = cerr
		}
	}()

	var records []model.PracticeRecord
	for rows.Next() {
		var rec model.PracticeRecord
		var recordedAt string
		if err := rows.Scan(&rec.ID, &rec.StoryID, &rec.Score, &recordedAt, &rec.TotalKeywords, &rec.TranscriptWords); err != nil {
			return nil, err
		}
		parsed, err := time.Parse(time.RFC3339Nano, recordedAt)
		if err != nil {
			return nil, err
		}
		rec.Timestamp = parsed
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	for i, j := 0, len(records)-1; i < j; i, j = i+1, j-1 {
		records[i], records[j] = records[j], records[i]
	}
	return records, nil
}

// MissedKeywords aggregates keyword outcomes over the most recent records.
func (s *Store) MissedKeywords(ctx context.Context, window int, storyID int) ([]model.KeywordAggregate, error) {
	if window <= 0 {
		return nil, nil
	}
	query := `WITH recent_records AS (
		SELECT id FROM practice_records
		WHERE (? = 0 OR story_id = ?)
		ORDER BY recorded_at DESC, id DESC
		LIMIT ?
	)
	SELECT rk.keyword, SUM(rk.matched) AS matched, SUM(1 - rk.matched) AS missed
	FROM record_keywords rk
	JOIN recent_records r ON r.id = rk.record_id
	GROUP BY rk.keyword`

	rows, err := s.db.QueryContext(ctx, query, storyID, storyID, window)
	if err != nil {
		return nil, err
	}
	defer func() {
		if cerr := rows.Close(); cerr != nil {
			// Best-effort rows close.
			_ = cerr
		}
	}()

	var result []model.KeywordAggregate
	for rows.Next() {
		var agg model.KeywordAggregate
		if err := rows.Scan(&agg.Keyword, &agg.Matched, &agg.Missed); err != nil {
			return nil, err
		}
		result = append(result, agg)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return result, nil
}

// StoryAverages returns the mean score per story id over all records.
func (s *Store) StoryAverages(ctx context.Context) (map[int]float64, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT story_id, AVG(score) FROM practice_records GROUP BY story_id`)
	if err != nil {
		return nil, err
	}
	defer func() {
		if cerr := rows.Close(); cerr != nil {
			// Best-effort rows close.
			_ = cerr
		}
	}()

	result := map[int]float64{}
	for rows.Next() {
		var storyID int
		var avg float64
		if err := rows.Scan(&storyID, &avg); err != nil {
			return nil, err
		}
		result[storyID] = avg
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return result, nil
}

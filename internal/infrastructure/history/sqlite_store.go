// Package history persists the queries asked from this machine so that they
// can be listed, searched and resumed later.
package history

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "modernc.org/sqlite"

	"github.com/doeshing/pdqa/internal/domain"
	"github.com/doeshing/pdqa/internal/ports"
)

// SQLiteStore persists history in a SQLite database.
type SQLiteStore struct {
	db   *sql.DB
	path string
}

// NewSQLiteStore opens (or creates) the database at path.
func NewSQLiteStore(path string) (*SQLiteStore, error) {
	if err := os.MkdirAll(filepath.Dir(path), domain.DirectoryPermissions); err != nil {
		return nil, fmt.Errorf("create history directory: %w", err)
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open history database: %w", err)
	}
	// A single connection serialises writers.
	db.SetMaxOpenConns(1)

	store := &SQLiteStore{db: db, path: path}
	if err := store.init(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("initialize history schema: %w", err)
	}
	return store, nil
}

func (s *SQLiteStore) init() error {
	_, err := s.db.Exec(`CREATE TABLE IF NOT EXISTS queries (
		query_id TEXT PRIMARY KEY,
		query_text TEXT NOT NULL,
		create_time REAL,
		submitted_at INTEGER NOT NULL,
		updated_at INTEGER NOT NULL,
		complete INTEGER NOT NULL DEFAULT 0,
		answer_text TEXT,
		sources TEXT,
		error TEXT
	);
	CREATE INDEX IF NOT EXISTS idx_queries_submitted_at ON queries(submitted_at);`)
	return err
}

// Save inserts a record, or refreshes the stored one for the same query id.
// The original submission time is preserved.
func (s *SQLiteStore) Save(ctx context.Context, record domain.HistoryRecord) error {
	sources, err := json.Marshal(record.Sources)
	if err != nil {
		return err
	}
	_, err = s.db.ExecContext(ctx, `INSERT INTO queries
		(query_id, query_text, create_time, submitted_at, updated_at, complete, answer_text, sources, error)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(query_id) DO UPDATE SET
			query_text = excluded.query_text,
			create_time = excluded.create_time,
			updated_at = excluded.updated_at,
			complete = excluded.complete,
			answer_text = excluded.answer_text,
			sources = excluded.sources,
			error = excluded.error`,
		record.QueryID,
		record.QueryText,
		record.CreateTime,
		record.SubmittedAt.UnixNano(),
		record.UpdatedAt.UnixNano(),
		boolToInt(record.Complete),
		record.AnswerText,
		string(sources),
		record.Error,
	)
	return err
}

// Records returns history entries, newest first (limit/search optional).
func (s *SQLiteStore) Records(ctx context.Context, limit int, search string) ([]domain.HistoryRecord, error) {
	builder := strings.Builder{}
	builder.WriteString("SELECT query_id, query_text, create_time, submitted_at, updated_at, complete, answer_text, sources, error FROM queries")
	var args []interface{}
	if search != "" {
		builder.WriteString(" WHERE query_text LIKE ? OR answer_text LIKE ? OR query_id = ?")
		args = append(args, "%"+search+"%", "%"+search+"%", search)
	}
	builder.WriteString(" ORDER BY submitted_at DESC")
	if limit > 0 {
		builder.WriteString(" LIMIT ?")
		args = append(args, limit)
	}
	rows, err := s.db.QueryContext(ctx, builder.String(), args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var records []domain.HistoryRecord
	for rows.Next() {
		var (
			rec                  domain.HistoryRecord
			submitted, updated   int64
			complete             int
			answer, sources, msg sql.NullString
		)
		if err := rows.Scan(&rec.QueryID, &rec.QueryText, &rec.CreateTime, &submitted, &updated, &complete, &answer, &sources, &msg); err != nil {
			return nil, err
		}
		rec.SubmittedAt = time.Unix(0, submitted)
		rec.UpdatedAt = time.Unix(0, updated)
		rec.Complete = complete == 1
		rec.AnswerText = answer.String
		rec.Error = msg.String
		if sources.Valid && sources.String != "" {
			if err := json.Unmarshal([]byte(sources.String), &rec.Sources); err != nil {
				return nil, fmt.Errorf("decode sources of %s: %w", rec.QueryID, err)
			}
		}
		records = append(records, rec)
	}
	return records, rows.Err()
}

// Prune deletes entries submitted before olderThan.
func (s *SQLiteStore) Prune(ctx context.Context, olderThan time.Time) (int, error) {
	res, err := s.db.ExecContext(ctx, "DELETE FROM queries WHERE submitted_at < ?", olderThan.UnixNano())
	if err != nil {
		return 0, err
	}
	n, err := res.RowsAffected()
	return int(n), err
}

// Clear deletes all history entries.
func (s *SQLiteStore) Clear(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, "DELETE FROM queries")
	return err
}

// Location returns the sqlite database path.
func (s *SQLiteStore) Location() string {
	return s.path
}

// Close releases the database handle.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

var _ ports.HistoryRepository = (*SQLiteStore)(nil)

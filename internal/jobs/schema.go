package jobs

import (
	"context"
	"fmt"
)

const schemaSQL = `
CREATE TABLE IF NOT EXISTS jobs (
    id               TEXT PRIMARY KEY,
    source_path      TEXT NOT NULL,
    source_name      TEXT,
    status           TEXT NOT NULL,
    progress         INTEGER NOT NULL DEFAULT 0,
    current_chunk    INTEGER NOT NULL DEFAULT 0,
    total_chunks     INTEGER NOT NULL DEFAULT 0,
    accumulated_text TEXT,
    segments_json    TEXT,
    language         TEXT,
    duration_seconds REAL NOT NULL DEFAULT 0,
    chunk_seconds    REAL NOT NULL,
    overlap_seconds  REAL NOT NULL,
    options_json     TEXT,
    error_message    TEXT,
    cancel_requested INTEGER NOT NULL DEFAULT 0,
    created_at       TEXT NOT NULL,
    updated_at       TEXT NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_jobs_status ON jobs(status);
CREATE INDEX IF NOT EXISTS idx_jobs_updated_at ON jobs(updated_at);
`

func (s *Store) initSchema(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, schemaSQL); err != nil {
		return fmt.Errorf("create schema: %w", err)
	}
	return nil
}

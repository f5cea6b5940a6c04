package jobs

import (
	"database/sql"
	"fmt"
	"strings"
	"time"
)

type rowScanner interface {
	Scan(dest ...any) error
}

func scanJob(row rowScanner) (*Job, error) {
	var (
		job             Job
		status          string
		sourceName      sql.NullString
		accumulatedText sql.NullString
		segmentsJSON    sql.NullString
		language        sql.NullString
		optionsJSON     sql.NullString
		errorMessage    sql.NullString
		cancelRequested int
		createdAt       string
		updatedAt       string
	)
	err := row.Scan(&job.ID, &job.SourcePath, &sourceName, &status, &job.Progress,
		&job.CurrentChunk, &job.TotalChunks, &accumulatedText, &segmentsJSON, &language,
		&job.DurationSeconds, &job.ChunkSeconds, &job.OverlapSeconds, &optionsJSON,
		&errorMessage, &cancelRequested, &createdAt, &updatedAt)
	if err != nil {
		return nil, err
	}
	job.Status = Status(status)
	job.SourceName = sourceName.String
	job.AccumulatedText = accumulatedText.String
	job.SegmentsJSON = segmentsJSON.String
	job.Language = language.String
	job.OptionsJSON = optionsJSON.String
	job.ErrorMessage = errorMessage.String
	job.CancelRequested = cancelRequested != 0
	if job.CreatedAt, err = parseTimestamp(createdAt); err != nil {
		return nil, fmt.Errorf("parse created_at: %w", err)
	}
	if job.UpdatedAt, err = parseTimestamp(updatedAt); err != nil {
		return nil, fmt.Errorf("parse updated_at: %w", err)
	}
	return &job, nil
}

func parseTimestamp(value string) (time.Time, error) {
	ts, err := time.Parse(time.RFC3339Nano, value)
	if err != nil {
		return time.Time{}, err
	}
	return ts.UTC(), nil
}

func nullableString(value string) any {
	if value == "" {
		return nil
	}
	return value
}

func boolToInt(value bool) int {
	if value {
		return 1
	}
	return 0
}

func placeholders(n int) string {
	return strings.TrimSuffix(strings.Repeat("?, ", n), ", ")
}

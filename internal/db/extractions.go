package db

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// Extraction is one processed document: the outcome of a single extract
// call, stored for history and statistics. Records are kept as the JSON the
// API returned; user edits never flow back here.
type Extraction struct {
	ID          uuid.UUID `json:"id"`
	Backend     string    `json:"backend"`
	MimeType    string    `json:"mime_type"`
	ImageURL    string    `json:"image_url"`
	Success     bool      `json:"success"`
	Error       string    `json:"error,omitempty"`
	RecordCount int       `json:"record_count"`
	RecordsJSON string    `json:"records_json,omitempty"`
	RawText     string    `json:"raw_text,omitempty"`
	Duration    float64   `json:"duration_seconds"`
	CreatedAt   time.Time `json:"created_at"`
}

// SaveExtraction inserts a new extraction row and fills in ID and CreatedAt.
func SaveExtraction(ctx context.Context, ext *Extraction) error {
	query := `
		INSERT INTO extractions (
			backend, mime_type, image_url, success, error,
			record_count, records_json, raw_text, duration_seconds
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		RETURNING id, created_at
	`
	return Pool.QueryRow(ctx, query,
		ext.Backend, ext.MimeType, ext.ImageURL, ext.Success, ext.Error,
		ext.RecordCount, ext.RecordsJSON, ext.RawText, ext.Duration,
	).Scan(&ext.ID, &ext.CreatedAt)
}

// GetExtractions returns the most recent extractions, newest first.
func GetExtractions(ctx context.Context, limit int) ([]Extraction, error) {
	query := `
		SELECT id, backend, COALESCE(mime_type, ''), COALESCE(image_url, ''),
		       success, COALESCE(error, ''), record_count, duration_seconds, created_at
		FROM extractions
		ORDER BY created_at DESC
		LIMIT $1
	`
	rows, err := Pool.Query(ctx, query, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var extractions []Extraction
	for rows.Next() {
		var ext Extraction
		err := rows.Scan(
			&ext.ID, &ext.Backend, &ext.MimeType, &ext.ImageURL,
			&ext.Success, &ext.Error, &ext.RecordCount, &ext.Duration, &ext.CreatedAt,
		)
		if err != nil {
			return nil, err
		}
		extractions = append(extractions, ext)
	}
	return extractions, rows.Err()
}

// GetExtractionByID retrieves a single extraction including its stored
// records and raw text.
func GetExtractionByID(ctx context.Context, id string) (*Extraction, error) {
	query := `
		SELECT id, backend, COALESCE(mime_type, ''), COALESCE(image_url, ''),
		       success, COALESCE(error, ''), record_count,
		       COALESCE(records_json::text, ''), COALESCE(raw_text, ''),
		       duration_seconds, created_at
		FROM extractions
		WHERE id = $1
	`
	var ext Extraction
	err := Pool.QueryRow(ctx, query, id).Scan(
		&ext.ID, &ext.Backend, &ext.MimeType, &ext.ImageURL,
		&ext.Success, &ext.Error, &ext.RecordCount,
		&ext.RecordsJSON, &ext.RawText, &ext.Duration, &ext.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &ext, nil
}

// DeleteExtraction removes an extraction row.
func DeleteExtraction(ctx context.Context, id string) error {
	_, err := Pool.Exec(ctx, "DELETE FROM extractions WHERE id = $1", id)
	return err
}

// MonthlyStats summarizes the current month's extraction activity.
type MonthlyStats struct {
	Month            string `json:"month"`
	TotalExtractions int    `json:"total_extractions"`
	Succeeded        int    `json:"succeeded"`
	Failed           int    `json:"failed"`
	TotalRecords     int    `json:"total_records"`
}

// GetMonthlyStats returns statistics for the current month.
func GetMonthlyStats(ctx context.Context) (*MonthlyStats, error) {
	query := `
		SELECT
			COUNT(*) AS total,
			COUNT(*) FILTER (WHERE success) AS succeeded,
			COUNT(*) FILTER (WHERE NOT success) AS failed,
			COALESCE(SUM(record_count), 0) AS total_records
		FROM extractions
		WHERE DATE_TRUNC('month', created_at) = DATE_TRUNC('month', CURRENT_DATE)
	`
	stats := &MonthlyStats{Month: time.Now().Format("2006-01")}
	err := Pool.QueryRow(ctx, query).Scan(
		&stats.TotalExtractions, &stats.Succeeded, &stats.Failed, &stats.TotalRecords,
	)
	if err != nil {
		return nil, err
	}
	return stats, nil
}

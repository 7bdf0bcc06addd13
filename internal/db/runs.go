package db

import (
	"fmt"
	"time"
)

// Run is one recorded generation run.
type Run struct {
	RunID           string
	InputPath       string
	OutputPath      string
	TemplateRecords int
	TargetBytes     int64
	BytesWritten    int64
	RecordsWritten  uint64
	Sweeps          int
	StartTime       time.Time // synthetic timestamp base, whole seconds
	Duration        time.Duration
	Verified        bool
}

// RecordRun inserts a finished run.
func (db *DB) RecordRun(r Run) error {
	_, err := db.Exec(
		`INSERT INTO generation_runs (
			run_id, input_path, output_path, template_records, target_bytes,
			bytes_written, records_written, sweeps, start_unix, duration_ns, verified
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		r.RunID, r.InputPath, r.OutputPath, r.TemplateRecords, r.TargetBytes,
		r.BytesWritten, int64(r.RecordsWritten), r.Sweeps, r.StartTime.Unix(),
		int64(r.Duration), r.Verified,
	)
	if err != nil {
		return fmt.Errorf("failed to record run %s: %w", r.RunID, err)
	}
	return nil
}

// RecentRuns returns up to limit runs, newest first.
func (db *DB) RecentRuns(limit int) ([]Run, error) {
	rows, err := db.Query(
		`SELECT run_id, input_path, output_path, template_records, target_bytes,
			bytes_written, records_written, sweeps, start_unix, duration_ns, verified
		FROM generation_runs
		ORDER BY rowid DESC
		LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query runs: %w", err)
	}
	defer rows.Close()

	var runs []Run
	for rows.Next() {
		var (
			r          Run
			records    int64
			startUnix  int64
			durationNs int64
		)
		if err := rows.Scan(
			&r.RunID, &r.InputPath, &r.OutputPath, &r.TemplateRecords, &r.TargetBytes,
			&r.BytesWritten, &records, &r.Sweeps, &startUnix, &durationNs, &r.Verified,
		); err != nil {
			return nil, fmt.Errorf("failed to scan run: %w", err)
		}
		r.RecordsWritten = uint64(records)
		r.StartTime = time.Unix(startUnix, 0)
		r.Duration = time.Duration(durationNs)
		runs = append(runs, r)
	}
	return runs, rows.Err()
}

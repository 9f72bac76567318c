package queue

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

// Timestamps are stored as fixed-width UTC text so ended_at compares
// lexically in SQL.
const storedTimeLayout = "2006-01-02T15:04:05.000000000Z"

type jobRow struct {
	id                  string
	status              string
	progress            int
	createdAt           string
	startedAt           any
	endedAt             any
	estimatedCompletion any
	input               string
	intermediate        any
	output              any
	jobError            any
	warnings            any
	metrics             any
}

func (r jobRow) args() []any {
	return []any{
		r.id, r.status, r.progress, r.createdAt, r.startedAt, r.endedAt, r.estimatedCompletion,
		r.input, r.intermediate, r.output, r.jobError, r.warnings, r.metrics,
	}
}

func encodeRow(job *Job) (jobRow, error) {
	input, err := json.Marshal(job.Input)
	if err != nil {
		return jobRow{}, fmt.Errorf("input: %w", err)
	}
	row := jobRow{
		id:                  job.ID,
		status:              string(job.Status),
		progress:            job.Progress,
		createdAt:           formatTime(job.CreatedAt),
		startedAt:           nullableTime(job.StartedAt),
		endedAt:             nullableTime(job.EndedAt),
		estimatedCompletion: nullableTime(job.EstimatedCompletion),
		input:               string(input),
	}
	fields := []struct {
		dst   *any
		value any
		set   bool
	}{
		{&row.intermediate, job.Intermediate, true},
		{&row.output, job.Output, job.Output != nil},
		{&row.jobError, job.Error, job.Error != nil},
		{&row.warnings, job.Warnings, len(job.Warnings) > 0},
		{&row.metrics, job.Metrics, true},
	}
	for _, field := range fields {
		if !field.set {
			continue
		}
		encoded, err := json.Marshal(field.value)
		if err != nil {
			return jobRow{}, err
		}
		*field.dst = string(encoded)
	}
	return row, nil
}

func scanJob(scanner interface{ Scan(dest ...any) error }) (*Job, error) {
	var (
		id              string
		status          string
		progress        int
		createdRaw      string
		startedRaw      sql.NullString
		endedRaw        sql.NullString
		estimatedRaw    sql.NullString
		inputRaw        string
		intermediateRaw sql.NullString
		outputRaw       sql.NullString
		errorRaw        sql.NullString
		warningsRaw     sql.NullString
		metricsRaw      sql.NullString
	)
	if err := scanner.Scan(
		&id, &status, &progress, &createdRaw, &startedRaw, &endedRaw, &estimatedRaw,
		&inputRaw, &intermediateRaw, &outputRaw, &errorRaw, &warningsRaw, &metricsRaw,
	); err != nil {
		return nil, err
	}

	job := &Job{
		ID:       id,
		Status:   Status(status),
		Progress: progress,
	}
	if created, err := parseTimeString(createdRaw); err == nil {
		job.CreatedAt = created
	}
	job.StartedAt = parseNullableTime(startedRaw)
	job.EndedAt = parseNullableTime(endedRaw)
	job.EstimatedCompletion = parseNullableTime(estimatedRaw)

	if err := json.Unmarshal([]byte(inputRaw), &job.Input); err != nil {
		return nil, fmt.Errorf("decode input for job %s: %w", id, err)
	}
	decoders := []struct {
		raw sql.NullString
		dst any
	}{
		{intermediateRaw, &job.Intermediate},
		{outputRaw, &job.Output},
		{errorRaw, &job.Error},
		{warningsRaw, &job.Warnings},
		{metricsRaw, &job.Metrics},
	}
	for _, d := range decoders {
		if !d.raw.Valid || d.raw.String == "" {
			continue
		}
		if err := json.Unmarshal([]byte(d.raw.String), d.dst); err != nil {
			return nil, fmt.Errorf("decode job %s: %w", id, err)
		}
	}
	return job, nil
}

func formatTime(t time.Time) string {
	return t.UTC().Format(storedTimeLayout)
}

func nullableTime(value *time.Time) any {
	if value == nil {
		return nil
	}
	return formatTime(*value)
}

func parseNullableTime(raw sql.NullString) *time.Time {
	if !raw.Valid {
		return nil
	}
	t, err := parseTimeString(raw.String)
	if err != nil {
		return nil
	}
	return &t
}

func parseTimeString(value string) (time.Time, error) {
	if value == "" {
		return time.Time{}, fmt.Errorf("empty timestamp")
	}
	return time.Parse(time.RFC3339Nano, value)
}

func makePlaceholders(count int) string {
	if count <= 0 {
		return ""
	}
	return strings.TrimSuffix(strings.Repeat("?,", count), ",")
}

package queue

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	_ "modernc.org/sqlite"
)

// SQLiteStore persists jobs in SQLite so they survive daemon restarts.
type SQLiteStore struct {
	db   *sql.DB
	path string
}

const (
	sqliteBusyCode          = 5
	busyRetryAttempts       = 5
	busyRetryInitialBackoff = 10 * time.Millisecond
	busyRetryMaxBackoff     = 200 * time.Millisecond
)

const jobColumns = "id, status, progress, created_at, started_at, ended_at, estimated_completion, input_json, intermediate_json, output_json, error_json, warnings_json, metrics_json"

func isSQLiteBusy(err error) bool {
	if err == nil {
		return false
	}
	var coder interface{ Code() int }
	if errors.As(err, &coder) && coder.Code() == sqliteBusyCode {
		return true
	}
	msg := err.Error()
	return strings.Contains(msg, "SQLITE_BUSY") || strings.Contains(msg, "database is locked")
}

func retryOnBusy(ctx context.Context, op func() error) error {
	delay := busyRetryInitialBackoff
	var lastErr error
	for attempt := 0; attempt < busyRetryAttempts; attempt++ {
		lastErr = op()
		if lastErr == nil {
			return nil
		}
		if !isSQLiteBusy(lastErr) || attempt == busyRetryAttempts-1 {
			break
		}
		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return ctx.Err()
		}
		if next := delay * 2; next <= busyRetryMaxBackoff {
			delay = next
		}
	}
	return lastErr
}

// OpenSQLite opens or creates the job database at path.
func OpenSQLite(path string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}
	db.SetMaxOpenConns(1)

	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout = 5000",
	}
	for _, pragma := range pragmas {
		if _, execErr := db.Exec(pragma); execErr != nil {
			_ = db.Close()
			return nil, fmt.Errorf("apply pragma %q: %w", pragma, execErr)
		}
	}

	store := &SQLiteStore{db: db, path: path}
	if err := store.initSchema(context.Background()); err != nil {
		_ = db.Close()
		return nil, err
	}
	return store, nil
}

// Path returns the database file location.
func (s *SQLiteStore) Path() string { return s.path }

func (s *SQLiteStore) Create(ctx context.Context, job *Job) error {
	if job == nil || job.ID == "" {
		return fmt.Errorf("create job: id is required")
	}
	row, err := encodeRow(job)
	if err != nil {
		return fmt.Errorf("encode job %s: %w", job.ID, err)
	}
	return retryOnBusy(ctx, func() error {
		_, execErr := s.db.ExecContext(ctx,
			"INSERT INTO jobs ("+jobColumns+") VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)",
			row.args()...,
		)
		if execErr != nil && strings.Contains(execErr.Error(), "UNIQUE constraint failed") {
			return fmt.Errorf("create job %s: %w", job.ID, ErrExists)
		}
		return execErr
	})
}

func (s *SQLiteStore) Get(ctx context.Context, id string) (*Job, error) {
	var job *Job
	err := retryOnBusy(ctx, func() error {
		row := s.db.QueryRowContext(ctx, "SELECT "+jobColumns+" FROM jobs WHERE id = ?", id)
		var scanErr error
		job, scanErr = scanJob(row)
		return scanErr
	})
	if errors.Is(err, sql.ErrNoRows) {
		return nil, notFound(id)
	}
	if err != nil {
		return nil, fmt.Errorf("get job %s: %w", id, err)
	}
	return job, nil
}

func (s *SQLiteStore) Update(ctx context.Context, id string, fn MutateFunc) (*Job, error) {
	var result *Job
	err := retryOnBusy(ctx, func() error {
		var txErr error
		result, txErr = s.updateTx(ctx, id, fn)
		return txErr
	})
	return result, err
}

func (s *SQLiteStore) updateTx(ctx context.Context, id string, fn MutateFunc) (*Job, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin update tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	current, err := scanJob(tx.QueryRowContext(ctx, "SELECT "+jobColumns+" FROM jobs WHERE id = ?", id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, notFound(id)
	}
	if err != nil {
		return nil, fmt.Errorf("load job %s: %w", id, err)
	}
	if current.IsTerminal() {
		return current, fmt.Errorf("update job %s: %w", id, ErrTerminal)
	}

	next := current.Clone()
	if err := fn(next); err != nil {
		return current, err
	}
	next.ID = current.ID
	row, err := encodeRow(next)
	if err != nil {
		return nil, fmt.Errorf("encode job %s: %w", id, err)
	}
	if _, err := tx.ExecContext(ctx, `UPDATE jobs SET
            status = ?, progress = ?, created_at = ?, started_at = ?, ended_at = ?,
            estimated_completion = ?, input_json = ?, intermediate_json = ?, output_json = ?,
            error_json = ?, warnings_json = ?, metrics_json = ?
        WHERE id = ?`,
		append(row.args()[1:], id)...,
	); err != nil {
		return nil, fmt.Errorf("update job %s: %w", id, err)
	}
	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit job %s: %w", id, err)
	}
	return next, nil
}

func (s *SQLiteStore) Delete(ctx context.Context, id string) error {
	var affected int64
	err := retryOnBusy(ctx, func() error {
		res, execErr := s.db.ExecContext(ctx, "DELETE FROM jobs WHERE id = ?", id)
		if execErr != nil {
			return execErr
		}
		affected, execErr = res.RowsAffected()
		return execErr
	})
	if err != nil {
		return fmt.Errorf("delete job %s: %w", id, err)
	}
	if affected == 0 {
		return notFound(id)
	}
	return nil
}

func (s *SQLiteStore) List(ctx context.Context, filter Filter) ([]*Job, error) {
	query := "SELECT " + jobColumns + " FROM jobs"
	var args []any
	if len(filter.Statuses) > 0 {
		query += " WHERE status IN (" + makePlaceholders(len(filter.Statuses)) + ")"
		for _, status := range filter.Statuses {
			args = append(args, string(status))
		}
	}
	query += " ORDER BY seq"
	if filter.Limit > 0 {
		query += fmt.Sprintf(" LIMIT %d", filter.Limit)
	}

	var jobs []*Job
	err := retryOnBusy(ctx, func() error {
		jobs = nil
		rows, err := s.db.QueryContext(ctx, query, args...)
		if err != nil {
			return err
		}
		defer rows.Close()
		for rows.Next() {
			job, err := scanJob(rows)
			if err != nil {
				return err
			}
			jobs = append(jobs, job)
		}
		return rows.Err()
	})
	if err != nil {
		return nil, fmt.Errorf("list jobs: %w", err)
	}
	return jobs, nil
}

func (s *SQLiteStore) DeleteTerminalBefore(ctx context.Context, cutoff time.Time) (int, error) {
	var affected int64
	err := retryOnBusy(ctx, func() error {
		res, execErr := s.db.ExecContext(ctx,
			"DELETE FROM jobs WHERE status IN (?, ?) AND ended_at IS NOT NULL AND ended_at < ?",
			string(StatusCompleted), string(StatusFailed), formatTime(cutoff),
		)
		if execErr != nil {
			return execErr
		}
		affected, execErr = res.RowsAffected()
		return execErr
	})
	if err != nil {
		return 0, fmt.Errorf("delete expired jobs: %w", err)
	}
	return int(affected), nil
}

func (s *SQLiteStore) Stats(ctx context.Context) (map[Status]int, error) {
	stats := make(map[Status]int)
	err := retryOnBusy(ctx, func() error {
		clear(stats)
		rows, err := s.db.QueryContext(ctx, "SELECT status, COUNT(*) FROM jobs GROUP BY status")
		if err != nil {
			return err
		}
		defer rows.Close()
		for rows.Next() {
			var status string
			var count int
			if err := rows.Scan(&status, &count); err != nil {
				return err
			}
			stats[Status(status)] = count
		}
		return rows.Err()
	})
	if err != nil {
		return nil, fmt.Errorf("job stats: %w", err)
	}
	return stats, nil
}

// Close closes the underlying database connection.
func (s *SQLiteStore) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

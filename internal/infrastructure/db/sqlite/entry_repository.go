package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/daylog/time-tracker/internal/core/domain"
)

const entryColumns = `id, user_id, category, start_time, end_time, description, duration_seconds`

// execer is satisfied by both *sql.DB and *sql.Tx.
type execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

type EntryRepository struct {
	db *sql.DB
}

func NewEntryRepository(db *sql.DB) *EntryRepository {
	return &EntryRepository{db: db}
}

func (r *EntryRepository) Append(ctx context.Context, e *domain.TimeEntry) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	return insertEntry(ctx, r.db, e)
}

func (r *EntryRepository) FindRunning(ctx context.Context, userID string) (*domain.TimeEntry, error) {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	return findRunning(ctx, r.db, userID)
}

func (r *EntryRepository) CloseRunning(ctx context.Context, userID string, end time.Time) (*domain.TimeEntry, error) {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	var closed *domain.TimeEntry
	err := r.inTx(ctx, func(tx *sql.Tx) error {
		var err error
		closed, err = closeRunning(ctx, tx, userID, end)
		return err
	})
	return closed, err
}

func (r *EntryRepository) SwitchRunning(ctx context.Context, userID string, next *domain.TimeEntry) (*domain.TimeEntry, error) {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	var closed *domain.TimeEntry
	err := r.inTx(ctx, func(tx *sql.Tx) error {
		var err error
		closed, err = closeRunning(ctx, tx, userID, next.StartTime)
		if err != nil && !errors.Is(err, domain.ErrNoRunningEntry) {
			return err
		}
		_, err = insertEntry(ctx, tx, next)
		return err
	})
	if err != nil {
		return nil, err
	}
	return closed, nil
}

func (r *EntryRepository) EntriesInRange(ctx context.Context, userID string, from, to time.Time) ([]*domain.TimeEntry, error) {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	rows, err := r.db.QueryContext(ctx, `
		SELECT `+entryColumns+`
		FROM time_entries
		WHERE user_id = ? AND start_time >= ? AND start_time < ?
		ORDER BY start_time ASC`,
		userID, toMillis(from), toMillis(to),
	)
	if err != nil {
		return nil, unavailable("entries in range", err)
	}
	defer rows.Close()

	var out []*domain.TimeEntry
	for rows.Next() {
		e, err := scanEntry(rows)
		if err != nil {
			return nil, unavailable("entries in range: scan", err)
		}
		out = append(out, e)
	}
	if err := rows.Err(); err != nil {
		return nil, unavailable("entries in range", err)
	}
	return out, nil
}

// inTx runs fn in a transaction, rolling back on any error.
func (r *EntryRepository) inTx(ctx context.Context, fn func(tx *sql.Tx) error) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return unavailable("begin tx", err)
	}
	if err := fn(tx); err != nil {
		_ = tx.Rollback()
		return err
	}
	if err := tx.Commit(); err != nil {
		return unavailable("commit tx", err)
	}
	return nil
}

func insertEntry(ctx context.Context, x execer, e *domain.TimeEntry) (string, error) {
	var end, dur sql.NullInt64
	if e.EndTime != nil {
		end = sql.NullInt64{Int64: toMillis(*e.EndTime), Valid: true}
	}
	if e.DurationSeconds != nil {
		dur = sql.NullInt64{Int64: *e.DurationSeconds, Valid: true}
	}

	id := uuid.NewString()
	_, err := x.ExecContext(ctx, `
		INSERT INTO time_entries (`+entryColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		id, e.UserID, string(e.Category), toMillis(e.StartTime), end, e.Description, dur,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return "", domain.ErrEntryConflict
		}
		return "", unavailable("insert entry", err)
	}
	e.ID = id
	return id, nil
}

func findRunning(ctx context.Context, x execer, userID string) (*domain.TimeEntry, error) {
	row := x.QueryRowContext(ctx, `
		SELECT `+entryColumns+`
		FROM time_entries
		WHERE user_id = ? AND end_time IS NULL
		ORDER BY start_time DESC
		LIMIT 1`, userID)

	e, err := scanEntry(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrNoRunningEntry
	}
	if err != nil {
		return nil, unavailable("find running", err)
	}
	return e, nil
}

func closeRunning(ctx context.Context, tx *sql.Tx, userID string, end time.Time) (*domain.TimeEntry, error) {
	e, err := findRunning(ctx, tx, userID)
	if err != nil {
		return nil, err
	}
	if err := e.Close(end); err != nil {
		return nil, err
	}

	res, err := tx.ExecContext(ctx, `
		UPDATE time_entries
		SET end_time = ?, duration_seconds = ?
		WHERE id = ? AND end_time IS NULL`,
		toMillis(*e.EndTime), *e.DurationSeconds, e.ID,
	)
	if err != nil {
		return nil, unavailable("close running", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return nil, domain.ErrNoRunningEntry
	}
	return e, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanEntry(s scanner) (*domain.TimeEntry, error) {
	var (
		e        domain.TimeEntry
		category string
		start    int64
		end, dur sql.NullInt64
	)
	if err := s.Scan(&e.ID, &e.UserID, &category, &start, &end, &e.Description, &dur); err != nil {
		return nil, err
	}
	e.Category = domain.Category(category)
	e.StartTime = fromMillis(start)
	if end.Valid {
		t := fromMillis(end.Int64)
		e.EndTime = &t
	}
	if dur.Valid {
		d := dur.Int64
		e.DurationSeconds = &d
	}
	return &e, nil
}

package postgres

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/daylog/time-tracker/internal/core/domain"
)

const entryColumns = `id, user_id, category, start_time, end_time, description, duration_seconds`

// querier is satisfied by both the pool and a transaction.
type querier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

type EntryRepository struct {
	pool *pgxpool.Pool
}

func NewEntryRepository(pool *pgxpool.Pool) *EntryRepository {
	return &EntryRepository{pool: pool}
}

func (r *EntryRepository) Append(ctx context.Context, e *domain.TimeEntry) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	return insertEntry(ctx, r.pool, e)
}

func (r *EntryRepository) FindRunning(ctx context.Context, userID string) (*domain.TimeEntry, error) {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	return findRunning(ctx, r.pool, userID, false)
}

func (r *EntryRepository) CloseRunning(ctx context.Context, userID string, end time.Time) (*domain.TimeEntry, error) {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	var closed *domain.TimeEntry
	err := pgx.BeginFunc(ctx, r.pool, func(tx pgx.Tx) error {
		var err error
		closed, err = closeRunning(ctx, tx, userID, end)
		return err
	})
	if err != nil {
		return nil, txErr("close running", err)
	}
	return closed, nil
}

func (r *EntryRepository) SwitchRunning(ctx context.Context, userID string, next *domain.TimeEntry) (*domain.TimeEntry, error) {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	var closed *domain.TimeEntry
	err := pgx.BeginFunc(ctx, r.pool, func(tx pgx.Tx) error {
		var err error
		closed, err = closeRunning(ctx, tx, userID, next.StartTime)
		if err != nil && !errors.Is(err, domain.ErrNoRunningEntry) {
			return err
		}
		_, err = insertEntry(ctx, tx, next)
		return err
	})
	if err != nil {
		return nil, txErr("switch running", err)
	}
	return closed, nil
}

func (r *EntryRepository) EntriesInRange(ctx context.Context, userID string, from, to time.Time) ([]*domain.TimeEntry, error) {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	rows, err := r.pool.Query(ctx, `
		SELECT `+entryColumns+`
		FROM time_entries
		WHERE user_id = $1 AND start_time >= $2 AND start_time < $3
		ORDER BY start_time ASC`,
		userID, from, to,
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

func insertEntry(ctx context.Context, q querier, e *domain.TimeEntry) (string, error) {
	id := uuid.NewString()
	_, err := q.Exec(ctx, `
		INSERT INTO time_entries (`+entryColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		id, e.UserID, string(e.Category), e.StartTime, e.EndTime, e.Description, e.DurationSeconds,
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

// findRunning optionally locks the row so a concurrent close waits for us.
func findRunning(ctx context.Context, q querier, userID string, forUpdate bool) (*domain.TimeEntry, error) {
	sql := `
		SELECT ` + entryColumns + `
		FROM time_entries
		WHERE user_id = $1 AND end_time IS NULL
		ORDER BY start_time DESC
		LIMIT 1`
	if forUpdate {
		sql += ` FOR UPDATE`
	}

	e, err := scanEntry(q.QueryRow(ctx, sql, userID))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, domain.ErrNoRunningEntry
	}
	if err != nil {
		return nil, unavailable("find running", err)
	}
	return e, nil
}

func closeRunning(ctx context.Context, tx pgx.Tx, userID string, end time.Time) (*domain.TimeEntry, error) {
	e, err := findRunning(ctx, tx, userID, true)
	if err != nil {
		return nil, err
	}
	if err := e.Close(end); err != nil {
		return nil, err
	}

	tag, err := tx.Exec(ctx, `
		UPDATE time_entries
		SET end_time = $1, duration_seconds = $2
		WHERE id = $3 AND end_time IS NULL`,
		e.EndTime, e.DurationSeconds, e.ID,
	)
	if err != nil {
		return nil, unavailable("close running", err)
	}
	if tag.RowsAffected() == 0 {
		return nil, domain.ErrNoRunningEntry
	}
	return e, nil
}

func scanEntry(row pgx.Row) (*domain.TimeEntry, error) {
	var (
		e        domain.TimeEntry
		category string
	)
	if err := row.Scan(&e.ID, &e.UserID, &category, &e.StartTime, &e.EndTime, &e.Description, &e.DurationSeconds); err != nil {
		return nil, err
	}
	e.Category = domain.Category(category)
	e.StartTime = e.StartTime.UTC()
	if e.EndTime != nil {
		end := e.EndTime.UTC()
		e.EndTime = &end
	}
	return &e, nil
}

// txErr keeps domain errors from the transaction body as they are and marks
// anything else from pgx (begin, commit) as an unavailable store.
func txErr(op string, err error) error {
	switch {
	case errors.Is(err, domain.ErrStoreUnavailable),
		errors.Is(err, domain.ErrNoRunningEntry),
		errors.Is(err, domain.ErrEntryConflict),
		errors.Is(err, domain.ErrEntryClosed),
		errors.Is(err, domain.ErrInvalidInterval):
		return err
	}
	return unavailable(op, err)
}

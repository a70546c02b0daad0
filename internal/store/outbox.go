package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"

	"github.com/openlift/liftlog/internal/workout"
)

// Outbox status constants for the outbox.status column. Entries move
// pending → processing → {removed | failed}; failed → pending only via
// an explicit Retry. There is no other transition.
const (
	StatusPending    = "pending"
	StatusProcessing = "processing"
	StatusFailed     = "failed"
)

// Entry is one durable pending mutation, decoded from an outbox row.
type Entry struct {
	ID         int64
	Kind       workout.MutationKind
	Mutation   workout.Mutation
	Status     string
	RetryCount int
	LastError  string
	CreatedAt  int64 // nanoseconds since epoch
}

// Outbox is the durable FIFO queue of not-yet-confirmed remote
// operations. It shares the *sql.DB with SessionStore (sole-writer via
// SetMaxOpenConns(1)). The lifecycle of an entry is:
//
//	Enqueue → MarkProcessing → Remove | MarkFailed (→ Retry → ...)
//
// ResetStuckProcessing handles crash recovery at startup: no entry may
// remain permanently processing across a restart.
type Outbox struct {
	db     *sql.DB
	logger *slog.Logger
}

// NewOutbox creates an Outbox over the shared database.
func NewOutbox(db *DB) *Outbox {
	return &Outbox{db: db.db, logger: db.logger}
}

// Enqueue appends a mutation as a pending entry and returns its id.
func (o *Outbox) Enqueue(ctx context.Context, m workout.Mutation) (int64, error) {
	payload, err := workout.EncodeMutation(m)
	if err != nil {
		return 0, fmt.Errorf("store: outbox enqueue: %w", err)
	}

	result, err := o.db.ExecContext(ctx,
		`INSERT INTO outbox (kind, payload, status, created_at)
		 VALUES (?, ?, '`+StatusPending+`', ?)`,
		string(m.Kind()), string(payload), nowNano())
	if err != nil {
		return 0, fmt.Errorf("store: outbox enqueue %s: %w", m.Kind(), err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("store: outbox enqueue last insert id: %w", err)
	}

	o.logger.Debug("mutation enqueued",
		slog.Int64("id", id),
		slog.String("kind", string(m.Kind())),
	)

	return id, nil
}

// ListPending returns all pending entries ordered by creation time
// ascending, id as tiebreaker. This is the drain order.
func (o *Outbox) ListPending(ctx context.Context) ([]Entry, error) {
	return o.list(ctx,
		`WHERE status = '`+StatusPending+`' ORDER BY created_at, id`)
}

// ListAll returns every entry in drain order regardless of status.
// Used for status reporting.
func (o *Outbox) ListAll(ctx context.Context) ([]Entry, error) {
	return o.list(ctx, `ORDER BY created_at, id`)
}

// list runs a SELECT with the given trailing clause and scans entries.
func (o *Outbox) list(ctx context.Context, clause string) ([]Entry, error) {
	query := `SELECT id, kind, payload, status, retry_count, last_error, created_at
		FROM outbox ` + clause

	rows, err := o.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("store: outbox list: %w", err)
	}
	defer rows.Close()

	var entries []Entry

	for rows.Next() {
		var (
			e       Entry
			kind    string
			payload string
			lastErr sql.NullString
		)

		if err := rows.Scan(&e.ID, &kind, &payload, &e.Status, &e.RetryCount, &lastErr, &e.CreatedAt); err != nil {
			return nil, fmt.Errorf("store: scanning outbox row: %w", err)
		}

		e.Kind = workout.MutationKind(kind)
		e.LastError = lastErr.String

		m, decodeErr := workout.DecodeMutation(e.Kind, []byte(payload))
		if decodeErr != nil {
			return nil, fmt.Errorf("store: outbox entry %d: %w", e.ID, decodeErr)
		}

		e.Mutation = m
		entries = append(entries, e)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("store: iterating outbox rows: %w", err)
	}

	return entries, nil
}

// MarkProcessing transitions an entry from pending to processing.
func (o *Outbox) MarkProcessing(ctx context.Context, id int64) error {
	result, err := o.db.ExecContext(ctx,
		`UPDATE outbox SET status = '`+StatusProcessing+`'
		 WHERE id = ? AND status = '`+StatusPending+`'`, id)
	if err != nil {
		return fmt.Errorf("store: outbox mark processing %d: %w", id, err)
	}

	affected, rowsErr := result.RowsAffected()
	if rowsErr != nil {
		return fmt.Errorf("store: outbox mark processing %d rows affected: %w", id, rowsErr)
	}

	if affected == 0 {
		return fmt.Errorf("store: outbox mark processing %d: entry not %s", id, StatusPending)
	}

	return nil
}

// MarkFailed transitions a processing entry to failed, incrementing the
// retry count and recording the error message.
func (o *Outbox) MarkFailed(ctx context.Context, id int64, errMsg string) error {
	result, err := o.db.ExecContext(ctx,
		`UPDATE outbox SET status = '`+StatusFailed+`',
			retry_count = retry_count + 1, last_error = ?
		 WHERE id = ? AND status = '`+StatusProcessing+`'`, errMsg, id)
	if err != nil {
		return fmt.Errorf("store: outbox mark failed %d: %w", id, err)
	}

	affected, rowsErr := result.RowsAffected()
	if rowsErr != nil {
		return fmt.Errorf("store: outbox mark failed %d rows affected: %w", id, rowsErr)
	}

	if affected == 0 {
		return fmt.Errorf("store: outbox mark failed %d: entry not %s", id, StatusProcessing)
	}

	return nil
}

// Remove deletes an entry after its mutation is confirmed remotely.
// Removing an already-removed id is a no-op.
func (o *Outbox) Remove(ctx context.Context, id int64) error {
	_, err := o.db.ExecContext(ctx, `DELETE FROM outbox WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("store: outbox remove %d: %w", id, err)
	}

	return nil
}

// Retry flips a failed entry back to pending, clearing the recorded
// error. created_at is untouched so the entry keeps its FIFO position.
func (o *Outbox) Retry(ctx context.Context, id int64) error {
	result, err := o.db.ExecContext(ctx,
		`UPDATE outbox SET status = '`+StatusPending+`', last_error = NULL
		 WHERE id = ? AND status = '`+StatusFailed+`'`, id)
	if err != nil {
		return fmt.Errorf("store: outbox retry %d: %w", id, err)
	}

	affected, rowsErr := result.RowsAffected()
	if rowsErr != nil {
		return fmt.Errorf("store: outbox retry %d rows affected: %w", id, rowsErr)
	}

	if affected == 0 {
		return fmt.Errorf("store: outbox retry %d: entry not %s", id, StatusFailed)
	}

	o.logger.Info("outbox entry reset for retry", slog.Int64("id", id))

	return nil
}

// ResetStuckProcessing flips any entry left processing (e.g. a crash
// mid-drain) back to pending. Called once at startup; returns the number
// of reclaimed entries.
func (o *Outbox) ResetStuckProcessing(ctx context.Context) (int, error) {
	result, err := o.db.ExecContext(ctx,
		`UPDATE outbox SET status = '`+StatusPending+`'
		 WHERE status = '`+StatusProcessing+`'`)
	if err != nil {
		return 0, fmt.Errorf("store: outbox reset stuck processing: %w", err)
	}

	n, rowsErr := result.RowsAffected()
	if rowsErr != nil {
		return 0, fmt.Errorf("store: outbox reset stuck rows affected: %w", rowsErr)
	}

	if n > 0 {
		o.logger.Warn("reclaimed stuck processing entries", slog.Int64("count", n))
	}

	return int(n), nil
}

// PendingCount returns the number of pending entries.
func (o *Outbox) PendingCount(ctx context.Context) (int, error) {
	var count int

	err := o.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM outbox WHERE status = '`+StatusPending+`'`).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("store: outbox pending count: %w", err)
	}

	return count, nil
}

// MaxRetryCount returns the highest retry count among queued entries,
// or zero when the outbox is empty. The engine compares it against the
// retry ceiling to surface the advisory error status.
func (o *Outbox) MaxRetryCount(ctx context.Context) (int, error) {
	var maxRetries sql.NullInt64

	err := o.db.QueryRowContext(ctx,
		`SELECT MAX(retry_count) FROM outbox`).Scan(&maxRetries)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, nil
	}

	if err != nil {
		return 0, fmt.Errorf("store: outbox max retry count: %w", err)
	}

	return int(maxRetries.Int64), nil
}

package repository

import (
	"context"
	"fmt"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// OutboxOp identifies what the calendar dispatcher should do with an entry.
type OutboxOp string

const (
	OutboxOpCreate OutboxOp = "create"
	OutboxOpUpdate OutboxOp = "update"
	OutboxOpDelete OutboxOp = "delete"
)

// OutboxEntry is one pending calendar-sync intent. Entries are written
// inside the task transaction and dispatched after commit, so the task
// write never waits on the calendar and never rolls back because of it.
type OutboxEntry struct {
	ID          int64
	TaskID      int64
	Op          OutboxOp
	ExternalID  *string
	Payload     []byte // JSON event payload for the adapter
	DedupKey    uuid.UUID
	Attempts    int
	LastError   *string
	CreatedAt   time.Time
	ProcessedAt *time.Time
}

// OutboxRepository handles database operations for the calendar outbox.
type OutboxRepository struct {
	pool *pgxpool.Pool
}

// NewOutboxRepository creates a new OutboxRepository.
func NewOutboxRepository(pool *pgxpool.Pool) *OutboxRepository {
	return &OutboxRepository{pool: pool}
}

// Enqueue inserts a pending entry within the task transaction. A
// pending entry for the same task and op absorbs the write instead,
// keeping the latest payload, so a burst of edits dispatches once.
func (r *OutboxRepository) Enqueue(ctx context.Context, tx pgx.Tx, entry *OutboxEntry) error {
	if entry.DedupKey == uuid.Nil {
		entry.DedupKey = uuid.New()
	}

	query, args, err := psql.
		Insert("calendar_outbox").
		Columns("task_id", "op", "external_id", "payload", "dedup_key").
		Values(entry.TaskID, entry.Op, entry.ExternalID, entry.Payload, entry.DedupKey).
		Suffix(`ON CONFLICT (task_id, op) WHERE processed_at IS NULL
			DO UPDATE SET external_id = EXCLUDED.external_id, payload = EXCLUDED.payload
			RETURNING id, created_at`).
		ToSql()
	if err != nil {
		return fmt.Errorf("build Enqueue query: %w", err)
	}

	if err := tx.QueryRow(ctx, query, args...).Scan(&entry.ID, &entry.CreatedAt); err != nil {
		return fmt.Errorf("enqueue outbox entry: %w", err)
	}
	return nil
}

// Pending retrieves unprocessed entries below the attempt cap, oldest
// first, so per-task events replay in order.
func (r *OutboxRepository) Pending(ctx context.Context, maxAttempts, limit int) ([]*OutboxEntry, error) {
	query, args, err := psql.
		Select("id", "task_id", "op", "external_id", "payload", "dedup_key",
			"attempts", "last_error", "created_at", "processed_at").
		From("calendar_outbox").
		Where(sq.Eq{"processed_at": nil}).
		Where(sq.Lt{"attempts": maxAttempts}).
		OrderBy("created_at ASC", "id ASC").
		Limit(uint64(limit)).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build Pending query: %w", err)
	}

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query pending entries: %w", err)
	}
	defer rows.Close()

	var entries []*OutboxEntry
	for rows.Next() {
		var entry OutboxEntry
		err := rows.Scan(
			&entry.ID,
			&entry.TaskID,
			&entry.Op,
			&entry.ExternalID,
			&entry.Payload,
			&entry.DedupKey,
			&entry.Attempts,
			&entry.LastError,
			&entry.CreatedAt,
			&entry.ProcessedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("scan outbox entry: %w", err)
		}
		entries = append(entries, &entry)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate rows: %w", err)
	}
	return entries, nil
}

// MarkProcessed stamps an entry as done.
func (r *OutboxRepository) MarkProcessed(ctx context.Context, entryID int64) error {
	query, args, err := psql.
		Update("calendar_outbox").
		Set("processed_at", sq.Expr("NOW()")).
		Where(sq.Eq{"id": entryID}).
		ToSql()
	if err != nil {
		return fmt.Errorf("build MarkProcessed query for entry %d: %w", entryID, err)
	}

	if _, err := r.pool.Exec(ctx, query, args...); err != nil {
		return fmt.Errorf("mark entry processed: %w", err)
	}
	return nil
}

// MarkFailed bumps the attempt counter and records the error.
func (r *OutboxRepository) MarkFailed(ctx context.Context, entryID int64, cause string) error {
	query, args, err := psql.
		Update("calendar_outbox").
		Set("attempts", sq.Expr("attempts + 1")).
		Set("last_error", cause).
		Where(sq.Eq{"id": entryID}).
		ToSql()
	if err != nil {
		return fmt.Errorf("build MarkFailed query for entry %d: %w", entryID, err)
	}

	if _, err := r.pool.Exec(ctx, query, args...); err != nil {
		return fmt.Errorf("mark entry failed: %w", err)
	}
	return nil
}

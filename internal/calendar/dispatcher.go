package calendar

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/opsdesk/deskd/internal/repository"
	"github.com/sethvargo/go-retry"
)

const dispatchBatchSize = 100

// Dispatcher drains the calendar outbox against the adapter. It runs
// outside any store transaction; entry failures are logged, counted
// against the attempt cap and never surfaced to task callers.
type Dispatcher struct {
	outboxRepo  *repository.OutboxRepository
	taskRepo    *repository.TaskRepository
	adapter     Adapter
	maxAttempts int
}

// NewDispatcher creates a Dispatcher.
func NewDispatcher(
	outboxRepo *repository.OutboxRepository,
	taskRepo *repository.TaskRepository,
	adapter Adapter,
	maxAttempts int,
) *Dispatcher {
	return &Dispatcher{
		outboxRepo:  outboxRepo,
		taskRepo:    taskRepo,
		adapter:     adapter,
		maxAttempts: maxAttempts,
	}
}

// Drain processes pending outbox entries oldest first and returns the
// number dispatched successfully.
func (d *Dispatcher) Drain(ctx context.Context) (int, error) {
	entries, err := d.outboxRepo.Pending(ctx, d.maxAttempts, dispatchBatchSize)
	if err != nil {
		return 0, fmt.Errorf("load pending entries: %w", err)
	}

	count := 0
	for _, entry := range entries {
		if err := d.dispatch(ctx, entry); err != nil {
			slog.Error("calendar dispatch failed",
				"entry_id", entry.ID,
				"task_id", entry.TaskID,
				"op", entry.Op,
				"attempts", entry.Attempts+1,
				"error", err,
			)
			if markErr := d.outboxRepo.MarkFailed(ctx, entry.ID, err.Error()); markErr != nil {
				slog.Error("failed to record dispatch failure", "entry_id", entry.ID, "error", markErr)
			}
			continue
		}
		if err := d.outboxRepo.MarkProcessed(ctx, entry.ID); err != nil {
			slog.Error("failed to mark entry processed", "entry_id", entry.ID, "error", err)
			continue
		}
		count++
	}

	if len(entries) > 0 {
		slog.Info("calendar outbox drained", "pending", len(entries), "dispatched", count)
	}

	return count, nil
}

// dispatch performs a single sync intent with short backoff around the
// network call.
func (d *Dispatcher) dispatch(ctx context.Context, entry *repository.OutboxEntry) error {
	backoff := retry.WithMaxRetries(2, retry.NewFibonacci(500*time.Millisecond))

	switch entry.Op {
	case repository.OutboxOpDelete:
		if entry.ExternalID == nil {
			// Task never reached the calendar; nothing to remove.
			return nil
		}
		return retry.Do(ctx, backoff, func(ctx context.Context) error {
			return retry.RetryableError(d.adapter.Delete(ctx, *entry.ExternalID))
		})

	case repository.OutboxOpCreate, repository.OutboxOpUpdate:
		var event Event
		if err := json.Unmarshal(entry.Payload, &event); err != nil {
			return fmt.Errorf("decode payload: %w", err)
		}

		// Update-or-create: an update for a task that never reached
		// the calendar falls back to create.
		if entry.Op == repository.OutboxOpUpdate && entry.ExternalID != nil {
			return retry.Do(ctx, backoff, func(ctx context.Context) error {
				return retry.RetryableError(d.adapter.Update(ctx, *entry.ExternalID, event))
			})
		}

		var externalID string
		err := retry.Do(ctx, backoff, func(ctx context.Context) error {
			id, createErr := d.adapter.Create(ctx, event)
			if createErr != nil {
				return retry.RetryableError(createErr)
			}
			externalID = id
			return nil
		})
		if err != nil {
			return err
		}
		if err := d.taskRepo.SetCalendarEventID(ctx, entry.TaskID, &externalID); err != nil {
			return fmt.Errorf("record external id: %w", err)
		}
		return nil

	default:
		return fmt.Errorf("unknown outbox op %q", entry.Op)
	}
}

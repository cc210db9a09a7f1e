package db

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/morezero/runtime-ipc/pkg/events"
)

const repoLogPrefix = "db:repository"

// DefaultListLimit caps ListMessages when no limit is given.
const DefaultListLimit = 50

// Repository reads and writes the message journal.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository creates a Repository on pool.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// Record implements events.Recorder.
func (r *Repository) Record(ctx context.Context, event *events.MessageRecorded) error {
	recorded := event.Time()
	if recorded.IsZero() {
		recorded = time.Now().UTC()
	}

	_, err := r.pool.Exec(ctx,
		`INSERT INTO ipc_messages
		   (routing_id, mode, type, call_id, reference_id, value, reply_type, error_code, duration_ms, recorded)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`,
		event.RoutingID, event.Mode, event.Type,
		nullable(event.ID), nullable(event.ReferenceID), event.Value,
		nullable(event.ReplyType), nullable(event.ErrorCode),
		event.DurationMs, recorded)
	if err != nil {
		return fmt.Errorf("%s - failed to record %s: %w", repoLogPrefix, event.Type, err)
	}
	return nil
}

// ListMessages returns the most recent journal rows, newest first. A
// routingID below 1 lists every routing id.
func (r *Repository) ListMessages(ctx context.Context, routingID, limit int) ([]Message, error) {
	if limit <= 0 {
		limit = DefaultListLimit
	}
	slog.Debug(fmt.Sprintf("%s - ListMessages routing=%d limit=%d", repoLogPrefix, routingID, limit))

	var rows pgx.Rows
	var err error
	if routingID < 1 {
		rows, err = r.pool.Query(ctx,
			`SELECT id, routing_id, mode, type, call_id, reference_id, value, reply_type, error_code, duration_ms, recorded
			 FROM ipc_messages
			 ORDER BY recorded DESC, id DESC
			 LIMIT $1`, limit)
	} else {
		rows, err = r.pool.Query(ctx,
			`SELECT id, routing_id, mode, type, call_id, reference_id, value, reply_type, error_code, duration_ms, recorded
			 FROM ipc_messages
			 WHERE routing_id = $1
			 ORDER BY recorded DESC, id DESC
			 LIMIT $2`, routingID, limit)
	}
	if err != nil {
		return nil, fmt.Errorf("%s - failed to list messages: %w", repoLogPrefix, err)
	}

	out, err := pgx.CollectRows(rows, pgx.RowToStructByPos[Message])
	if err != nil {
		return nil, fmt.Errorf("%s - failed to scan messages: %w", repoLogPrefix, err)
	}
	return out, nil
}

// PruneBefore deletes journal rows recorded before cutoff and returns how
// many were removed.
func (r *Repository) PruneBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	tag, err := r.pool.Exec(ctx, `DELETE FROM ipc_messages WHERE recorded < $1`, cutoff.UTC())
	if err != nil {
		return 0, fmt.Errorf("%s - failed to prune journal: %w", repoLogPrefix, err)
	}
	if n := tag.RowsAffected(); n > 0 {
		slog.Info(fmt.Sprintf("%s - Pruned %d journal rows older than %s", repoLogPrefix, n, cutoff.Format(time.RFC3339)))
	}
	return tag.RowsAffected(), nil
}

func nullable(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

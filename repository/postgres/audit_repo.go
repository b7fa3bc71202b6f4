package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/fastygo/mudai/domain"
	"github.com/fastygo/mudai/repository"
)

type auditRepository struct {
	pool *pgxpool.Pool
}

// NewAuditRepository instantiates a Postgres-backed audit repository.
func NewAuditRepository(pool *pgxpool.Pool) repository.AuditRepository {
	return &auditRepository{pool: pool}
}

// Append is idempotent on the event id so replays from the buffer are harmless.
func (r *auditRepository) Append(ctx context.Context, event *domain.AuditEvent) error {
	if event == nil || event.Kind == "" {
		return domain.ErrInvalidPayload
	}
	if event.ID == "" {
		event.ID = uuid.NewString()
	}

	const query = `
	INSERT INTO audit_events (id, kind, username, remote_addr, user_agent, metadata, created_at)
	VALUES ($1, $2, $3, $4, $5, $6, COALESCE($7, NOW()))
	ON CONFLICT (id) DO NOTHING
	RETURNING created_at;
	`

	var createdAt time.Time
	err := r.pool.QueryRow(ctx, query,
		event.ID,
		string(event.Kind),
		event.Username,
		event.RemoteAddr,
		event.UserAgent,
		marshalMap(event.Metadata),
		nullTime(event.CreatedAt),
	).Scan(&createdAt)
	switch {
	case err == nil:
		event.CreatedAt = createdAt
		return nil
	case errors.Is(err, pgx.ErrNoRows):
		// already stored by an earlier attempt
		return nil
	default:
		return err
	}
}

func (r *auditRepository) ListByUsername(ctx context.Context, username string, limit int) ([]domain.AuditEvent, error) {
	const query = `
	SELECT id, kind, username, remote_addr, user_agent, metadata, created_at
	FROM audit_events
	WHERE username = $1
	ORDER BY created_at DESC
	LIMIT $2
	`
	rows, err := r.pool.Query(ctx, query, username, clampLimit(limit))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	events := make([]domain.AuditEvent, 0)
	for rows.Next() {
		var (
			event    domain.AuditEvent
			kind     string
			metadata []byte
		)
		if err := rows.Scan(&event.ID, &kind, &event.Username, &event.RemoteAddr, &event.UserAgent, &metadata, &event.CreatedAt); err != nil {
			return nil, err
		}
		event.Kind = domain.AuditKind(kind)
		if len(metadata) > 0 {
			_ = json.Unmarshal(metadata, &event.Metadata)
		}
		events = append(events, event)
	}
	return events, rows.Err()
}

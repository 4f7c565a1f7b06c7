package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/jhoicas/taller-compras/internal/domain"
	"github.com/jhoicas/taller-compras/internal/domain/entity"
	"github.com/jhoicas/taller-compras/internal/domain/repository"
)

var _ repository.OutboxRepository = (*OutboxRepo)(nil)

const outboxColumns = `id, type, version, aggregate_id, payload, status, attempts, max_attempts,
	last_error, next_attempt_at, created_at, sent_at`

// OutboxRepo outbox transaccional sobre PostgreSQL (usable con pool o tx).
type OutboxRepo struct {
	q Querier
}

// NewOutboxRepository construye el adaptador. Pasar pool o tx (Querier).
func NewOutboxRepository(q Querier) *OutboxRepo {
	return &OutboxRepo{q: q}
}

// Create inserta el evento.
func (r *OutboxRepo) Create(ctx context.Context, ev *entity.OutboxEvent) error {
	_, err := r.q.Exec(ctx, `
		INSERT INTO outbox_events (`+outboxColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)`,
		ev.ID, ev.Type, ev.Version, ev.AggregateID, ev.Payload, string(ev.Status), ev.Attempts,
		ev.MaxAttempts, ev.LastError, ev.NextAttemptAt, ev.CreatedAt, ev.SentAt,
	)
	if err != nil {
		return fmt.Errorf("insert outbox event: %w", err)
	}
	return nil
}

// GetByID obtiene un evento; (nil, nil) si no existe.
func (r *OutboxRepo) GetByID(ctx context.Context, id string) (*entity.OutboxEvent, error) {
	if !isUUID(id) {
		return nil, nil
	}
	rows, err := r.q.Query(ctx, `SELECT `+outboxColumns+` FROM outbox_events WHERE id = $1`, id)
	if err != nil {
		return nil, fmt.Errorf("get outbox event: %w", err)
	}
	list, err := scanOutbox(rows)
	if err != nil || len(list) == 0 {
		return nil, err
	}
	return list[0], nil
}

// ListDue eventos PENDING o FAILED vencidos, más antiguos primero. Dentro de una tx las filas
// quedan bloqueadas (SKIP LOCKED) para que dos despachadores no tomen el mismo evento.
func (r *OutboxRepo) ListDue(ctx context.Context, now time.Time, limit int) ([]*entity.OutboxEvent, error) {
	rows, err := r.q.Query(ctx, `
		SELECT `+outboxColumns+`
		FROM outbox_events
		WHERE status IN ($1, $2) AND next_attempt_at <= $3
		ORDER BY created_at
		LIMIT $4
		FOR UPDATE SKIP LOCKED`,
		string(entity.OutboxPending), string(entity.OutboxFailed), now, limit)
	if err != nil {
		return nil, fmt.Errorf("list due outbox events: %w", err)
	}
	return scanOutbox(rows)
}

// Update persiste el estado de entrega del evento.
func (r *OutboxRepo) Update(ctx context.Context, ev *entity.OutboxEvent) error {
	cmd, err := r.q.Exec(ctx, `
		UPDATE outbox_events
		SET status = $2, attempts = $3, last_error = $4, next_attempt_at = $5, sent_at = $6
		WHERE id = $1`,
		ev.ID, string(ev.Status), ev.Attempts, ev.LastError, ev.NextAttemptAt, ev.SentAt,
	)
	if err != nil {
		return fmt.Errorf("update outbox event: %w", err)
	}
	if cmd.RowsAffected() == 0 {
		return fmt.Errorf("evento %s: %w", ev.ID, domain.ErrNotFound)
	}
	return nil
}

func scanOutbox(rows pgx.Rows) ([]*entity.OutboxEvent, error) {
	defer rows.Close()
	var list []*entity.OutboxEvent
	for rows.Next() {
		var ev entity.OutboxEvent
		var status string
		if err := rows.Scan(&ev.ID, &ev.Type, &ev.Version, &ev.AggregateID, &ev.Payload, &status,
			&ev.Attempts, &ev.MaxAttempts, &ev.LastError, &ev.NextAttemptAt, &ev.CreatedAt, &ev.SentAt); err != nil {
			return nil, fmt.Errorf("scan outbox event: %w", err)
		}
		ev.Status = entity.OutboxStatus(status)
		list = append(list, &ev)
	}
	return list, rows.Err()
}

package repository

import (
	"context"
	"time"

	"github.com/senyabanana/freelance-service/internal/models"

	"github.com/google/uuid"
)

// PostgresOutboxRepository - реализация OutboxRepository для базы данных.
type PostgresOutboxRepository struct {
	DB DBTX
}

// NewPostgresOutboxRepository создаёт новый экземпляр PostgresOutboxRepository.
func NewPostgresOutboxRepository(db DBTX) *PostgresOutboxRepository {
	return &PostgresOutboxRepository{DB: db}
}

// AppendEvent добавляет событие в очередь.
func (r *PostgresOutboxRepository) AppendEvent(ctx context.Context, e *models.OutboxEvent) error {
	_, err := r.DB.Exec(ctx, `
		INSERT INTO outbox_events (id, routing_key, payload, attempts, available_at, last_error, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		e.ID, e.RoutingKey, e.Payload, e.Attempts, e.AvailableAt, e.LastError, e.CreatedAt)
	return mapError(err)
}

// ClaimEvents выдаёт неотправленные события и продлевает их аренду.
func (r *PostgresOutboxRepository) ClaimEvents(ctx context.Context, limit int, now time.Time, lease time.Duration) ([]models.OutboxEvent, error) {
	rows, err := r.DB.Query(ctx, `
		UPDATE outbox_events SET available_at = $1
		WHERE id IN (
			SELECT id FROM outbox_events
			WHERE published_at IS NULL AND available_at <= $2
			ORDER BY created_at
			LIMIT $3
			FOR UPDATE SKIP LOCKED
		)
		RETURNING id, routing_key, payload, attempts, available_at, published_at, last_error, created_at`,
		now.Add(lease), now, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var events []models.OutboxEvent
	for rows.Next() {
		var e models.OutboxEvent
		if err := rows.Scan(
			&e.ID,
			&e.RoutingKey,
			&e.Payload,
			&e.Attempts,
			&e.AvailableAt,
			&e.PublishedAt,
			&e.LastError,
			&e.CreatedAt,
		); err != nil {
			return nil, err
		}
		events = append(events, e)
	}
	return events, rows.Err()
}

// MarkEventPublished отмечает событие доставленным.
func (r *PostgresOutboxRepository) MarkEventPublished(ctx context.Context, id uuid.UUID, at time.Time) error {
	_, err := r.DB.Exec(ctx, `UPDATE outbox_events SET published_at = $1, last_error = '' WHERE id = $2`, at, id)
	return mapError(err)
}

// MarkEventFailed увеличивает счётчик попыток и откладывает событие до retryAt.
func (r *PostgresOutboxRepository) MarkEventFailed(ctx context.Context, id uuid.UUID, retryAt time.Time, reason string) error {
	_, err := r.DB.Exec(ctx, `
		UPDATE outbox_events SET attempts = attempts + 1, available_at = $1, last_error = $2
		WHERE id = $3`, retryAt, reason, id)
	return mapError(err)
}

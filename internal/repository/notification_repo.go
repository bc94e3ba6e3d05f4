package repository

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/senyabanana/freelance-service/internal/models"

	"github.com/google/uuid"
	"github.com/lib/pq"
)

const notificationColumns = `id, recipient_id, notification_type, title, message, is_read, read_at,
	related_competition_id, related_proposal_id, created_at`

// PostgresNotificationRepository - реализация NotificationRepository для базы данных.
type PostgresNotificationRepository struct {
	DB DBTX
}

// NewPostgresNotificationRepository создаёт новый экземпляр PostgresNotificationRepository.
func NewPostgresNotificationRepository(db DBTX) *PostgresNotificationRepository {
	return &PostgresNotificationRepository{DB: db}
}

// CreateNotification сохраняет уведомление.
func (r *PostgresNotificationRepository) CreateNotification(ctx context.Context, n *models.Notification) error {
	_, err := r.DB.Exec(ctx, `
		INSERT INTO notifications (`+notificationColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`,
		n.ID,
		n.RecipientID,
		n.Type,
		n.Title,
		n.Message,
		n.IsRead,
		n.ReadAt,
		n.RelatedCompetitionID,
		n.RelatedProposalID,
		n.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to insert notification: %w", mapError(err))
	}
	return nil
}

// NotificationExists проверяет, получал ли пользователь уведомление этого типа по конкурсу.
func (r *PostgresNotificationRepository) NotificationExists(ctx context.Context, t models.NotificationType, competitionID, recipientID uuid.UUID) (bool, error) {
	var exists bool
	err := r.DB.QueryRow(ctx, `
		SELECT EXISTS (
			SELECT 1 FROM notifications
			WHERE notification_type = $1 AND related_competition_id = $2 AND recipient_id = $3
		)`, t, competitionID, recipientID).Scan(&exists)
	return exists, mapError(err)
}

// ListNotifications возвращает уведомления пользователя, новые первыми.
func (r *PostgresNotificationRepository) ListNotifications(ctx context.Context, recipientID uuid.UUID, f models.NotificationFilter) ([]models.Notification, error) {
	filters := []string{"recipient_id = $1"}
	args := []interface{}{recipientID}
	argIndex := 2

	if f.IsRead != nil {
		filters = append(filters, fmt.Sprintf("is_read = $%d", argIndex))
		args = append(args, *f.IsRead)
		argIndex++
	}

	if f.Type != nil {
		filters = append(filters, fmt.Sprintf("notification_type = $%d", argIndex))
		args = append(args, *f.Type)
		argIndex++
	}

	query := fmt.Sprintf(`SELECT %s FROM notifications WHERE %s ORDER BY created_at DESC LIMIT $%d OFFSET $%d`,
		notificationColumns, strings.Join(filters, " AND "), argIndex, argIndex+1)
	args = append(args, limitArg(f.Limit), f.Offset)

	rows, err := r.DB.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var notifications []models.Notification
	for rows.Next() {
		var n models.Notification
		if err := rows.Scan(
			&n.ID,
			&n.RecipientID,
			&n.Type,
			&n.Title,
			&n.Message,
			&n.IsRead,
			&n.ReadAt,
			&n.RelatedCompetitionID,
			&n.RelatedProposalID,
			&n.CreatedAt,
		); err != nil {
			return nil, err
		}
		notifications = append(notifications, n)
	}
	return notifications, rows.Err()
}

// MarkRead отмечает прочитанными выбранные уведомления получателя.
func (r *PostgresNotificationRepository) MarkRead(ctx context.Context, recipientID uuid.UUID, ids []uuid.UUID, at time.Time) (int64, error) {
	keys := make([]string, len(ids))
	for i, id := range ids {
		keys[i] = id.String()
	}

	tag, err := r.DB.Exec(ctx, `
		UPDATE notifications SET is_read = TRUE, read_at = $1
		WHERE recipient_id = $2 AND NOT is_read AND id::text = ANY($3)`,
		at, recipientID, pq.Array(keys))
	if err != nil {
		return 0, mapError(err)
	}
	return tag.RowsAffected(), nil
}

// MarkAllRead отмечает прочитанными все уведомления получателя.
func (r *PostgresNotificationRepository) MarkAllRead(ctx context.Context, recipientID uuid.UUID, at time.Time) (int64, error) {
	tag, err := r.DB.Exec(ctx,
		`UPDATE notifications SET is_read = TRUE, read_at = $1 WHERE recipient_id = $2 AND NOT is_read`,
		at, recipientID)
	if err != nil {
		return 0, mapError(err)
	}
	return tag.RowsAffected(), nil
}

// CountUnread считает непрочитанные уведомления.
func (r *PostgresNotificationRepository) CountUnread(ctx context.Context, recipientID uuid.UUID) (int, error) {
	var count int
	err := r.DB.QueryRow(ctx,
		`SELECT COUNT(*) FROM notifications WHERE recipient_id = $1 AND NOT is_read`, recipientID).Scan(&count)
	return count, mapError(err)
}

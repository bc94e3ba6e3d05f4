package models

import (
	"time"

	"github.com/google/uuid"
)

type NotificationType string // Тип уведомления

const (
	CompetitionOpenedNotification   NotificationType = "COMPETITION_OPENED"
	ProposalReceivedNotification    NotificationType = "PROPOSAL_RECEIVED"
	ProposalScoredNotification      NotificationType = "PROPOSAL_SCORED"
	ProposalAcceptedNotification    NotificationType = "PROPOSAL_ACCEPTED"
	ProposalRejectedNotification    NotificationType = "PROPOSAL_REJECTED"
	CompetitionClosedNotification   NotificationType = "COMPETITION_CLOSED"
	QuestionAnsweredNotification    NotificationType = "QUESTION_ANSWERED"
	WinnerSelectedNotification      NotificationType = "WINNER_SELECTED"
	NewReviewNotification           NotificationType = "NEW_REVIEW"
	DeadlineApproachingNotification NotificationType = "COMPETITION_DEADLINE_APPROACHING"
)

// Notification - уведомление пользователю внутри площадки.
type Notification struct {
	ID                   uuid.UUID        `json:"id"`
	RecipientID          uuid.UUID        `json:"recipient"`
	Type                 NotificationType `json:"notification_type"`
	Title                string           `json:"title"`
	Message              string           `json:"message"`
	IsRead               bool             `json:"is_read"`
	ReadAt               *time.Time       `json:"read_at"`
	RelatedCompetitionID *uuid.UUID       `json:"related_competition_id"`
	RelatedProposalID    *uuid.UUID       `json:"related_proposal_id"`
	CreatedAt            time.Time        `json:"created_at"`
}

// NotificationFilter - параметры выборки уведомлений.
type NotificationFilter struct {
	IsRead *bool
	Type   *NotificationType
	Limit  int
	Offset int
}

// MarkReadRequest - отметка выбранных уведомлений прочитанными.
type MarkReadRequest struct {
	NotificationIDs []uuid.UUID `json:"notification_ids" validate:"required,min=1"`
}

// OutboxEvent - событие для доставки во внешнюю шину.
type OutboxEvent struct {
	ID          uuid.UUID  `json:"id"`
	RoutingKey  string     `json:"routing_key"`
	Payload     []byte     `json:"payload"`
	Attempts    int        `json:"attempts"`
	AvailableAt time.Time  `json:"available_at"`
	PublishedAt *time.Time `json:"published_at"`
	LastError   string     `json:"last_error"`
	CreatedAt   time.Time  `json:"created_at"`
}

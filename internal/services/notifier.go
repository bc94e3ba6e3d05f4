package services

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/senyabanana/freelance-service/internal/metrics"
	"github.com/senyabanana/freelance-service/internal/models"
	"github.com/senyabanana/freelance-service/internal/repository"

	"github.com/google/uuid"
)

// Notifier пишет уведомление и событие outbox в одной транзакции.
type Notifier struct {
	Metrics *metrics.Metrics
	now     Clock
}

func NewNotifier(m *metrics.Metrics) *Notifier {
	return &Notifier{Metrics: m, now: utcNow}
}

// Notify сохраняет уведомление. tx должен быть хранилищем открытой транзакции.
func (n *Notifier) Notify(ctx context.Context, tx repository.Store, notification models.Notification) error {
	now := n.now()
	notification.ID = uuid.New()
	notification.CreatedAt = now
	if err := tx.Notifications().CreateNotification(ctx, &notification); err != nil {
		return err
	}

	payload, err := json.Marshal(notification)
	if err != nil {
		return fmt.Errorf("encode notification event: %w", err)
	}
	event := &models.OutboxEvent{
		ID:          uuid.New(),
		RoutingKey:  "notification." + string(notification.Type),
		Payload:     payload,
		AvailableAt: now,
		CreatedAt:   now,
	}
	if err := tx.Outbox().AppendEvent(ctx, event); err != nil {
		return err
	}

	n.Metrics.NotificationsCreated.WithLabelValues(string(notification.Type)).Inc()
	return nil
}

// NotifyOnce пропускает уведомление, если получатель уже получал этот тип по конкурсу.
func (n *Notifier) NotifyOnce(ctx context.Context, tx repository.Store, notification models.Notification) (bool, error) {
	if notification.RelatedCompetitionID == nil {
		return false, fmt.Errorf("deduplicated notification %s requires a competition", notification.Type)
	}
	exists, err := tx.Notifications().NotificationExists(ctx, notification.Type, *notification.RelatedCompetitionID, notification.RecipientID)
	if err != nil {
		return false, err
	}
	if exists {
		return false, nil
	}
	return true, n.Notify(ctx, tx, notification)
}

func competitionRef(c *models.Competition) *uuid.UUID {
	id := c.ID
	return &id
}

func proposalRef(p *models.Proposal) *uuid.UUID {
	id := p.ID
	return &id
}

func competitionOpened(c *models.Competition, recipient uuid.UUID) models.Notification {
	return models.Notification{
		RecipientID:          recipient,
		Type:                 models.CompetitionOpenedNotification,
		Title:                fmt.Sprintf("Competition Now Open: %s", c.Title),
		Message:              fmt.Sprintf("The competition %q you bookmarked is now open for submissions.", c.Title),
		RelatedCompetitionID: competitionRef(c),
	}
}

func proposalReceived(c *models.Competition, p *models.Proposal) models.Notification {
	return models.Notification{
		RecipientID:          c.ClientID,
		Type:                 models.ProposalReceivedNotification,
		Title:                "New Proposal Received",
		Message:              fmt.Sprintf("A new proposal %q has been submitted to your competition %q.", p.Title, c.Title),
		RelatedCompetitionID: competitionRef(c),
		RelatedProposalID:    proposalRef(p),
	}
}

func proposalScored(c *models.Competition, p *models.Proposal) models.Notification {
	return models.Notification{
		RecipientID:          p.FreelancerID,
		Type:                 models.ProposalScoredNotification,
		Title:                "Your Proposal Was Scored",
		Message:              fmt.Sprintf("Your proposal %q for %q received a score of %d/5.", p.Title, c.Title, *p.ClientScore),
		RelatedCompetitionID: competitionRef(c),
		RelatedProposalID:    proposalRef(p),
	}
}

func winnerSelected(c *models.Competition, p *models.Proposal) models.Notification {
	return models.Notification{
		RecipientID:          p.FreelancerID,
		Type:                 models.WinnerSelectedNotification,
		Title:                "Congratulations! You Won!",
		Message:              fmt.Sprintf("Your proposal %q was selected as the winner for %q!", p.Title, c.Title),
		RelatedCompetitionID: competitionRef(c),
		RelatedProposalID:    proposalRef(p),
	}
}

func proposalRejected(c *models.Competition, p *models.Proposal) models.Notification {
	return models.Notification{
		RecipientID:          p.FreelancerID,
		Type:                 models.ProposalRejectedNotification,
		Title:                "Competition Result",
		Message:              fmt.Sprintf("The competition %q has been decided. Unfortunately, your proposal was not selected.", c.Title),
		RelatedCompetitionID: competitionRef(c),
		RelatedProposalID:    proposalRef(p),
	}
}

func competitionClosed(c *models.Competition, recipient uuid.UUID) models.Notification {
	return models.Notification{
		RecipientID:          recipient,
		Type:                 models.CompetitionClosedNotification,
		Title:                "Competition Closed",
		Message:              fmt.Sprintf("The competition %q has been closed.", c.Title),
		RelatedCompetitionID: competitionRef(c),
	}
}

func competitionInReview(c *models.Competition, recipient uuid.UUID) models.Notification {
	return models.Notification{
		RecipientID:          recipient,
		Type:                 models.CompetitionClosedNotification,
		Title:                "Competition Moved to Review",
		Message:              fmt.Sprintf("The competition %q submission period has ended and is now under review.", c.Title),
		RelatedCompetitionID: competitionRef(c),
	}
}

func deadlineApproaching(c *models.Competition, recipient uuid.UUID) models.Notification {
	return models.Notification{
		RecipientID:          recipient,
		Type:                 models.DeadlineApproachingNotification,
		Title:                "Deadline Approaching!",
		Message:              fmt.Sprintf("The competition %q closes within 24 hours. Submit your proposal now!", c.Title),
		RelatedCompetitionID: competitionRef(c),
	}
}

func questionAnswered(c *models.Competition, q *models.CompetitionQuestion) models.Notification {
	return models.Notification{
		RecipientID:          q.AskedByID,
		Type:                 models.QuestionAnsweredNotification,
		Title:                "Your Question Was Answered",
		Message:              fmt.Sprintf("Your question on %q has been answered.", c.Title),
		RelatedCompetitionID: competitionRef(c),
	}
}

func newReview(r *models.Review, reviewerName string) models.Notification {
	id := r.CompetitionID
	return models.Notification{
		RecipientID:          r.RevieweeID,
		Type:                 models.NewReviewNotification,
		Title:                "New Review Received",
		Message:              fmt.Sprintf("You received a new %d/5 star review from %s.", r.Rating, reviewerName),
		RelatedCompetitionID: &id,
	}
}

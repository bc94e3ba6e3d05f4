package repository

import (
	"context"
	"errors"
	"time"

	"github.com/senyabanana/freelance-service/internal/models"

	"github.com/google/uuid"
)

var (
	// ErrNotFound - запись не найдена.
	ErrNotFound = errors.New("record not found")
	// ErrConflict - нарушено ограничение уникальности.
	ErrConflict = errors.New("unique constraint violated")
)

// Store - набор репозиториев поверх одного подключения или одной транзакции.
type Store interface {
	Users() UserRepository
	Competitions() CompetitionRepository
	Proposals() ProposalRepository
	Payments() PaymentRepository
	Notifications() NotificationRepository
	Reviews() ReviewRepository
	Outbox() OutboxRepository

	// InTx выполняет fn в одной транзакции. Ошибка fn откатывает все изменения.
	// Вложенный вызов переиспользует уже открытую транзакцию.
	InTx(ctx context.Context, fn func(tx Store) error) error
}

// UserRepository - интерфейс для работы с пользователями.
type UserRepository interface {
	CreateUser(ctx context.Context, user *models.User) error
	GetUserByID(ctx context.Context, id uuid.UUID) (*models.User, error)
	GetUserByEmail(ctx context.Context, email string) (*models.User, error)
	UpdateUser(ctx context.Context, user *models.User) error
	TouchLastSeen(ctx context.Context, id uuid.UUID, at time.Time) error
}

// CompetitionRepository - интерфейс для работы с конкурсами, закладками и вопросами.
type CompetitionRepository interface {
	CreateCompetition(ctx context.Context, competition *models.Competition) error
	GetCompetition(ctx context.Context, id uuid.UUID) (*models.Competition, error)
	// GetCompetitionForUpdate блокирует строку до конца транзакции.
	GetCompetitionForUpdate(ctx context.Context, id uuid.UUID) (*models.Competition, error)
	UpdateCompetition(ctx context.Context, competition *models.Competition) error
	ListCompetitions(ctx context.Context, filter models.CompetitionFilter) ([]models.Competition, error)
	ListExpiredOpen(ctx context.Context, now time.Time) ([]models.Competition, error)
	ListClosingSoon(ctx context.Context, from, to time.Time) ([]models.Competition, error)

	ToggleBookmark(ctx context.Context, competitionID, userID uuid.UUID, at time.Time) (bool, error)
	ListBookmarkUserIDs(ctx context.Context, competitionID uuid.UUID) ([]uuid.UUID, error)
	ListBookmarkedCompetitions(ctx context.Context, userID uuid.UUID) ([]models.Competition, error)

	CreateQuestion(ctx context.Context, question *models.CompetitionQuestion) error
	GetQuestion(ctx context.Context, competitionID, questionID uuid.UUID) (*models.CompetitionQuestion, error)
	UpdateQuestion(ctx context.Context, question *models.CompetitionQuestion) error
	ListPublicQuestions(ctx context.Context, competitionID uuid.UUID) ([]models.CompetitionQuestion, error)
}

// ProposalRepository - интерфейс для работы с предложениями.
type ProposalRepository interface {
	CreateProposal(ctx context.Context, proposal *models.Proposal) error
	GetProposal(ctx context.Context, id uuid.UUID) (*models.Proposal, error)
	// GetProposalForUpdate читает предложение с блокировкой строки до конца транзакции.
	GetProposalForUpdate(ctx context.Context, id uuid.UUID) (*models.Proposal, error)
	UpdateProposal(ctx context.Context, proposal *models.Proposal) error
	ListCompetitionProposals(ctx context.Context, competitionID uuid.UUID) ([]models.Proposal, error)
	ListFreelancerProposals(ctx context.Context, freelancerID uuid.UUID, filter models.ProposalFilter) ([]models.Proposal, error)
	HasActiveProposal(ctx context.Context, competitionID, freelancerID uuid.UUID) (bool, error)
	CountActiveProposals(ctx context.Context, competitionID uuid.UUID) (int, error)
	// RejectOtherProposals отклоняет все неотозванные предложения конкурса, кроме победителя.
	RejectOtherProposals(ctx context.Context, competitionID, winnerID uuid.UUID, at time.Time) (int64, error)

	// AddRevision присваивает следующий номер ревизии и сохраняет её.
	AddRevision(ctx context.Context, revision *models.ProposalRevision) error

	CreateAttachment(ctx context.Context, attachment *models.ProposalAttachment) error
	GetAttachment(ctx context.Context, proposalID, attachmentID uuid.UUID) (*models.ProposalAttachment, error)
	DeleteAttachment(ctx context.Context, attachmentID uuid.UUID) error
	ListAttachments(ctx context.Context, proposalID uuid.UUID) ([]models.ProposalAttachment, error)
}

// PaymentRepository - интерфейс для учёта платежей.
type PaymentRepository interface {
	// CreatePayment возвращает ErrConflict, если у конкурса уже есть платёж.
	CreatePayment(ctx context.Context, payment *models.PaymentRecord) error
	GetPayment(ctx context.Context, id uuid.UUID) (*models.PaymentRecord, error)
	GetPaymentByCompetition(ctx context.Context, competitionID uuid.UUID) (*models.PaymentRecord, error)
	UpdatePayment(ctx context.Context, payment *models.PaymentRecord) error
	ListPayments(ctx context.Context, filter models.PaymentFilter) ([]models.PaymentRecord, error)
}

// NotificationRepository - интерфейс для журнала уведомлений.
type NotificationRepository interface {
	CreateNotification(ctx context.Context, notification *models.Notification) error
	NotificationExists(ctx context.Context, notificationType models.NotificationType, competitionID, recipientID uuid.UUID) (bool, error)
	ListNotifications(ctx context.Context, recipientID uuid.UUID, filter models.NotificationFilter) ([]models.Notification, error)
	MarkRead(ctx context.Context, recipientID uuid.UUID, ids []uuid.UUID, at time.Time) (int64, error)
	MarkAllRead(ctx context.Context, recipientID uuid.UUID, at time.Time) (int64, error)
	CountUnread(ctx context.Context, recipientID uuid.UUID) (int, error)
}

// ReviewRepository - интерфейс для отзывов и рейтингов.
type ReviewRepository interface {
	CreateReview(ctx context.Context, review *models.Review) error
	ReviewExists(ctx context.Context, reviewerID, competitionID uuid.UUID) (bool, error)
	ListPublicReviewsFor(ctx context.Context, revieweeID uuid.UUID) ([]models.Review, error)
	ListCompetitionReviews(ctx context.Context, competitionID uuid.UUID) ([]models.Review, error)
	PublicRatings(ctx context.Context, revieweeID uuid.UUID) ([]int, error)
	SaveUserRating(ctx context.Context, rating models.UserRating) error
	GetUserRating(ctx context.Context, userID uuid.UUID) (*models.UserRating, error)
}

// OutboxRepository - очередь событий для внешней доставки.
type OutboxRepository interface {
	AppendEvent(ctx context.Context, event *models.OutboxEvent) error
	// ClaimEvents выдаёт готовые события и сдвигает их доступность на lease,
	// чтобы параллельный диспетчер не взял их повторно.
	ClaimEvents(ctx context.Context, limit int, now time.Time, lease time.Duration) ([]models.OutboxEvent, error)
	MarkEventPublished(ctx context.Context, id uuid.UUID, at time.Time) error
	MarkEventFailed(ctx context.Context, id uuid.UUID, retryAt time.Time, reason string) error
}

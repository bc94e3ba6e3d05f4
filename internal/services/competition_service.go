package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/senyabanana/freelance-service/internal/auth"
	"github.com/senyabanana/freelance-service/internal/metrics"
	"github.com/senyabanana/freelance-service/internal/models"
	"github.com/senyabanana/freelance-service/internal/repository"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

const (
	defaultCurrency        = "USD"
	competitionNotFoundMsg = "Competition not found."
	notCompetitionOwnerMsg = "You are not the owner of this competition."
)

type CompetitionService struct {
	Store    repository.Store
	Notifier *Notifier
	Metrics  *metrics.Metrics
	now      Clock
}

// NewCompetitionService создаёт новый экземпляр CompetitionService.
func NewCompetitionService(store repository.Store, notifier *Notifier, m *metrics.Metrics) *CompetitionService {
	return &CompetitionService{Store: store, Notifier: notifier, Metrics: m, now: utcNow}
}

// ParseCompetitionStatus проверяет значение статуса из запроса.
func ParseCompetitionStatus(raw string) (models.CompetitionStatus, error) {
	status := models.CompetitionStatus(strings.ToUpper(strings.TrimSpace(raw)))
	if !status.Valid() {
		return "", models.NewValidationError("status", fmt.Sprintf("%q is not a valid choice.", raw))
	}
	return status, nil
}

func validateCompetitionFields(budget decimal.Decimal, deadline, submissionDeadline time.Time, checkDeadline, checkSubmission bool, now time.Time) error {
	fields := map[string]string{}
	if !budget.IsPositive() {
		fields["budget"] = "Budget must be a positive number."
	}
	if checkDeadline && !deadline.After(now) {
		fields["deadline"] = "Deadline must be in the future."
	}
	if checkSubmission && !submissionDeadline.After(now) {
		fields["submission_deadline"] = "Submission deadline must be in the future."
	}
	if _, ok := fields["submission_deadline"]; !ok && !submissionDeadline.Before(deadline) {
		fields["submission_deadline"] = "Submission deadline must be before the competition deadline."
	}
	if len(fields) > 0 {
		return models.NewFieldErrors(fields)
	}
	return nil
}

func (s *CompetitionService) loadOwned(ctx context.Context, tx repository.Store, actor auth.Principal, id uuid.UUID) (*models.Competition, error) {
	competition, err := tx.Competitions().GetCompetitionForUpdate(ctx, id)
	if err != nil {
		return nil, notFound(err, competitionNotFoundMsg)
	}
	if competition.ClientID != actor.UserID {
		return nil, models.NewForbidden(notCompetitionOwnerMsg)
	}
	return competition, nil
}

// CreateCompetition создаёт конкурс в статусе DRAFT.
func (s *CompetitionService) CreateCompetition(ctx context.Context, actor auth.Principal, req models.CompetitionRequest) (*models.Competition, error) {
	if actor.Role != models.ClientRole {
		return nil, models.NewForbidden("Only clients can create competitions.")
	}
	now := s.now()
	if err := validateCompetitionFields(req.Budget, req.Deadline, req.SubmissionDeadline, true, true, now); err != nil {
		return nil, err
	}

	currency := strings.ToUpper(req.Currency)
	if currency == "" {
		currency = defaultCurrency
	}
	allowQuestions := true
	if req.AllowQuestions != nil {
		allowQuestions = *req.AllowQuestions
	}

	competition := &models.Competition{
		ID:                 uuid.New(),
		ClientID:           actor.UserID,
		Title:              req.Title,
		Description:        req.Description,
		Requirements:       req.Requirements,
		Budget:             req.Budget.Round(2),
		Currency:           currency,
		Deadline:           req.Deadline.UTC(),
		SubmissionDeadline: req.SubmissionDeadline.UTC(),
		Status:             models.DraftCompetition,
		Category:           req.Category,
		Tags:               req.Tags,
		MaxProposals:       req.MaxProposals,
		AllowQuestions:     allowQuestions,
		CreatedAt:          now,
		UpdatedAt:          now,
	}
	if err := s.Store.Competitions().CreateCompetition(ctx, competition); err != nil {
		return nil, err
	}
	return competition, nil
}

// GetCompetitionDetail возвращает конкурс со сводкой для публичной страницы.
func (s *CompetitionService) GetCompetitionDetail(ctx context.Context, id uuid.UUID) (*models.CompetitionDetail, error) {
	competition, err := s.Store.Competitions().GetCompetition(ctx, id)
	if err != nil {
		return nil, notFound(err, competitionNotFoundMsg)
	}
	return s.detail(ctx, s.Store, competition)
}

func (s *CompetitionService) detail(ctx context.Context, store repository.Store, competition *models.Competition) (*models.CompetitionDetail, error) {
	detail := &models.CompetitionDetail{Competition: *competition, IsOpen: competition.IsOpen(s.now())}

	client, err := store.Users().GetUserByID(ctx, competition.ClientID)
	if err != nil && !errors.Is(err, repository.ErrNotFound) {
		return nil, err
	}
	if client != nil {
		detail.ClientUsername = client.Username
	}

	if detail.ProposalCount, err = store.Proposals().CountActiveProposals(ctx, competition.ID); err != nil {
		return nil, err
	}
	if detail.Questions, err = store.Competitions().ListPublicQuestions(ctx, competition.ID); err != nil {
		return nil, err
	}
	return detail, nil
}

// UpdateCompetition частично обновляет конкурс в статусе DRAFT или OPEN.
func (s *CompetitionService) UpdateCompetition(ctx context.Context, actor auth.Principal, id uuid.UUID, req models.CompetitionUpdate) (*models.CompetitionDetail, error) {
	var detail *models.CompetitionDetail
	err := s.Store.InTx(ctx, func(tx repository.Store) error {
		competition, err := s.loadOwned(ctx, tx, actor, id)
		if err != nil {
			return err
		}
		if competition.Status != models.DraftCompetition && competition.Status != models.OpenCompetition {
			return models.NewInvalidState("Competition can only be updated when in DRAFT or OPEN status.")
		}

		now := s.now()
		if req.Title != nil {
			competition.Title = *req.Title
		}
		if req.Description != nil {
			competition.Description = *req.Description
		}
		if req.Requirements != nil {
			competition.Requirements = *req.Requirements
		}
		if req.Budget != nil {
			competition.Budget = req.Budget.Round(2)
		}
		if req.Deadline != nil {
			competition.Deadline = req.Deadline.UTC()
		}
		if req.SubmissionDeadline != nil {
			competition.SubmissionDeadline = req.SubmissionDeadline.UTC()
		}
		if req.Category != nil {
			competition.Category = *req.Category
		}
		if req.Tags != nil {
			competition.Tags = *req.Tags
		}
		if req.MaxProposals != nil {
			competition.MaxProposals = req.MaxProposals
		}
		if req.AllowQuestions != nil {
			competition.AllowQuestions = *req.AllowQuestions
		}

		if err := validateCompetitionFields(competition.Budget, competition.Deadline, competition.SubmissionDeadline,
			req.Deadline != nil, req.SubmissionDeadline != nil, now); err != nil {
			return err
		}

		competition.UpdatedAt = now
		if err := tx.Competitions().UpdateCompetition(ctx, competition); err != nil {
			return err
		}
		detail, err = s.detail(ctx, tx, competition)
		return err
	})
	if err != nil {
		return nil, err
	}
	return detail, nil
}

// CancelCompetition отменяет конкурс, пока он в черновике.
func (s *CompetitionService) CancelCompetition(ctx context.Context, actor auth.Principal, id uuid.UUID) error {
	err := s.Store.InTx(ctx, func(tx repository.Store) error {
		competition, err := s.loadOwned(ctx, tx, actor, id)
		if err != nil {
			return err
		}
		if competition.Status != models.DraftCompetition {
			return models.NewInvalidState("Only DRAFT competitions can be deleted (cancelled).")
		}
		competition.Status = models.CancelledCompetition
		competition.UpdatedAt = s.now()
		return tx.Competitions().UpdateCompetition(ctx, competition)
	})
	if err != nil {
		return err
	}
	s.Metrics.CompetitionTransitions.WithLabelValues(string(models.CancelledCompetition)).Inc()
	return nil
}

// ChangeStatus переводит конкурс по таблице переходов.
// Открытие конкурса рассылает уведомления всем, кто добавил его в закладки.
func (s *CompetitionService) ChangeStatus(ctx context.Context, actor auth.Principal, id uuid.UUID, target models.CompetitionStatus) (*models.CompetitionDetail, error) {
	var detail *models.CompetitionDetail
	err := s.Store.InTx(ctx, func(tx repository.Store) error {
		competition, err := s.loadOwned(ctx, tx, actor, id)
		if err != nil {
			return err
		}
		if !competition.Status.CanTransitionTo(target) {
			return models.NewInvalidTransition(competition.Status, target, competition.Status.AllowedTransitions())
		}

		competition.Status = target
		competition.UpdatedAt = s.now()
		if err := tx.Competitions().UpdateCompetition(ctx, competition); err != nil {
			return err
		}

		if target == models.OpenCompetition {
			bookmarkers, err := tx.Competitions().ListBookmarkUserIDs(ctx, competition.ID)
			if err != nil {
				return err
			}
			for _, userID := range bookmarkers {
				if err := s.Notifier.Notify(ctx, tx, competitionOpened(competition, userID)); err != nil {
					return err
				}
			}
		}

		detail, err = s.detail(ctx, tx, competition)
		return err
	})
	if err != nil {
		return nil, err
	}
	s.Metrics.CompetitionTransitions.WithLabelValues(string(target)).Inc()
	return detail, nil
}

// ListOpenCompetitions - публичный каталог, всегда только OPEN.
func (s *CompetitionService) ListOpenCompetitions(ctx context.Context, filter models.CompetitionFilter) ([]models.Competition, error) {
	open := models.OpenCompetition
	filter.Status = &open
	filter.ClientID = nil
	if filter.MinBudget != nil && filter.MaxBudget != nil && filter.MinBudget.GreaterThan(*filter.MaxBudget) {
		return nil, models.NewValidationError("min_budget", "min_budget must not exceed max_budget.")
	}
	return s.Store.Competitions().ListCompetitions(ctx, filter)
}

// ListMyCompetitions возвращает конкурсы заказчика.
func (s *CompetitionService) ListMyCompetitions(ctx context.Context, actor auth.Principal, status string, page models.Page) ([]models.Competition, error) {
	filter := models.CompetitionFilter{ClientID: &actor.UserID, Limit: page.Limit, Offset: page.Offset}
	if status != "" {
		parsed, err := ParseCompetitionStatus(status)
		if err != nil {
			return nil, err
		}
		filter.Status = &parsed
	}
	return s.Store.Competitions().ListCompetitions(ctx, filter)
}

// ToggleBookmark добавляет или убирает закладку. Возвращает true, если закладка добавлена.
func (s *CompetitionService) ToggleBookmark(ctx context.Context, actor auth.Principal, id uuid.UUID) (bool, error) {
	if _, err := s.Store.Competitions().GetCompetition(ctx, id); err != nil {
		return false, notFound(err, competitionNotFoundMsg)
	}
	return s.Store.Competitions().ToggleBookmark(ctx, id, actor.UserID, s.now())
}

func (s *CompetitionService) ListBookmarks(ctx context.Context, actor auth.Principal) ([]models.Competition, error) {
	return s.Store.Competitions().ListBookmarkedCompetitions(ctx, actor.UserID)
}

// ListQuestions возвращает публичные вопросы конкурса.
func (s *CompetitionService) ListQuestions(ctx context.Context, id uuid.UUID) ([]models.CompetitionQuestion, error) {
	if _, err := s.Store.Competitions().GetCompetition(ctx, id); err != nil {
		return nil, notFound(err, competitionNotFoundMsg)
	}
	return s.Store.Competitions().ListPublicQuestions(ctx, id)
}

// AskQuestion сохраняет вопрос исполнителя к открытому конкурсу.
func (s *CompetitionService) AskQuestion(ctx context.Context, actor auth.Principal, id uuid.UUID, req models.QuestionRequest) (*models.CompetitionQuestion, error) {
	competition, err := s.Store.Competitions().GetCompetition(ctx, id)
	if err != nil {
		return nil, notFound(err, competitionNotFoundMsg)
	}
	if !competition.AllowQuestions {
		return nil, models.NewInvalidState("Questions are not allowed for this competition.")
	}
	if competition.Status != models.OpenCompetition {
		return nil, models.NewInvalidState("Questions can only be asked on OPEN competitions.")
	}
	if actor.Role != models.FreelancerRole {
		return nil, models.NewForbidden("Only freelancers can ask questions.")
	}

	question := &models.CompetitionQuestion{
		ID:            uuid.New(),
		CompetitionID: competition.ID,
		AskedByID:     actor.UserID,
		Question:      req.Question,
		IsPublic:      true,
		CreatedAt:     s.now(),
	}
	if err := s.Store.Competitions().CreateQuestion(ctx, question); err != nil {
		return nil, err
	}
	return question, nil
}

// AnswerQuestion записывает ответ владельца и уведомляет автора вопроса.
func (s *CompetitionService) AnswerQuestion(ctx context.Context, actor auth.Principal, competitionID, questionID uuid.UUID, req models.AnswerRequest) (*models.CompetitionQuestion, error) {
	var question *models.CompetitionQuestion
	err := s.Store.InTx(ctx, func(tx repository.Store) error {
		competition, err := tx.Competitions().GetCompetition(ctx, competitionID)
		if err != nil {
			return notFound(err, competitionNotFoundMsg)
		}
		if competition.ClientID != actor.UserID {
			return models.NewForbidden("Only the competition owner can answer questions.")
		}
		question, err = tx.Competitions().GetQuestion(ctx, competitionID, questionID)
		if err != nil {
			return notFound(err, "Question not found.")
		}

		now := s.now()
		answer := req.Answer
		question.Answer = &answer
		question.IsPublic = true
		if req.IsPublic != nil {
			question.IsPublic = *req.IsPublic
		}
		question.AnsweredByID = &actor.UserID
		question.AnsweredAt = &now
		if err := tx.Competitions().UpdateQuestion(ctx, question); err != nil {
			return err
		}
		return s.Notifier.Notify(ctx, tx, questionAnswered(competition, question))
	})
	if err != nil {
		return nil, err
	}
	return question, nil
}

package services

import (
	"context"
	"errors"
	"time"

	"github.com/senyabanana/freelance-service/internal/auth"
	"github.com/senyabanana/freelance-service/internal/models"
	"github.com/senyabanana/freelance-service/internal/repository"

	"github.com/google/uuid"
)

type ReviewService struct {
	Store    repository.Store
	Notifier *Notifier
	now      Clock
}

// NewReviewService создаёт новый экземпляр ReviewService.
func NewReviewService(store repository.Store, notifier *Notifier) *ReviewService {
	return &ReviewService{Store: store, Notifier: notifier, now: utcNow}
}

func activeProposers(proposals []models.Proposal) map[uuid.UUID]bool {
	out := make(map[uuid.UUID]bool, len(proposals))
	for _, p := range proposals {
		if p.Status != models.WithdrawnProposal {
			out[p.FreelancerID] = true
		}
	}
	return out
}

// CreateReview сохраняет отзыв по закрытому конкурсу и пересчитывает рейтинг получателя.
func (s *ReviewService) CreateReview(ctx context.Context, actor auth.Principal, req models.ReviewRequest) (*models.Review, error) {
	if req.Rating < 1 || req.Rating > 5 {
		return nil, models.NewValidationError("rating", "Rating must be between 1 and 5.")
	}

	var review *models.Review
	err := s.Store.InTx(ctx, func(tx repository.Store) error {
		competition, err := tx.Competitions().GetCompetition(ctx, req.CompetitionID)
		if err != nil {
			if errors.Is(err, repository.ErrNotFound) {
				return models.NewValidationError("competition", "Competition not found.")
			}
			return err
		}
		if competition.Status != models.ClosedCompetition {
			return models.NewValidationError("competition", "Reviews can only be submitted for closed competitions.")
		}
		exists, err := tx.Reviews().ReviewExists(ctx, actor.UserID, competition.ID)
		if err != nil {
			return err
		}
		if exists {
			return models.NewValidationError("competition", "You have already reviewed this competition.")
		}

		proposals, err := tx.Proposals().ListCompetitionProposals(ctx, competition.ID)
		if err != nil {
			return err
		}
		proposers := activeProposers(proposals)

		var reviewType models.ReviewType
		switch {
		case competition.ClientID == actor.UserID:
			reviewType = models.ClientToFreelancerReview
			if !proposers[req.RevieweeID] {
				return models.NewValidationError("reviewee", "Reviewee must be a freelancer who participated in this competition.")
			}
		case proposers[actor.UserID]:
			reviewType = models.FreelancerToClientReview
			if req.RevieweeID != competition.ClientID {
				return models.NewValidationError("reviewee", "As a freelancer, you can only review the competition client.")
			}
		default:
			return models.NewValidationError("non_field_errors", "You must have participated in this competition to leave a review.")
		}

		reviewer, err := tx.Users().GetUserByID(ctx, actor.UserID)
		if err != nil {
			return notFound(err, "User not found.")
		}

		isPublic := true
		if req.IsPublic != nil {
			isPublic = *req.IsPublic
		}
		now := s.now()
		review = &models.Review{
			ID:            uuid.New(),
			ReviewerID:    actor.UserID,
			RevieweeID:    req.RevieweeID,
			CompetitionID: competition.ID,
			Rating:        req.Rating,
			Comment:       req.Comment,
			Type:          reviewType,
			IsPublic:      isPublic,
			CreatedAt:     now,
		}
		if err := tx.Reviews().CreateReview(ctx, review); err != nil {
			if errors.Is(err, repository.ErrConflict) {
				return models.NewValidationError("competition", "You have already reviewed this competition.")
			}
			return err
		}
		if err := recomputeRating(ctx, tx, review.RevieweeID, now); err != nil {
			return err
		}
		return s.Notifier.Notify(ctx, tx, newReview(review, reviewer.Username))
	})
	if err != nil {
		return nil, err
	}
	return review, nil
}

// recomputeRating заново считает средний рейтинг по всем публичным отзывам.
func recomputeRating(ctx context.Context, tx repository.Store, userID uuid.UUID, now time.Time) error {
	ratings, err := tx.Reviews().PublicRatings(ctx, userID)
	if err != nil {
		return err
	}
	return tx.Reviews().SaveUserRating(ctx, models.ComputeRating(userID, ratings, now))
}

// ListUserReviews возвращает публичные отзывы о пользователе и его рейтинг.
func (s *ReviewService) ListUserReviews(ctx context.Context, userID uuid.UUID) (*models.UserReviews, error) {
	if _, err := s.Store.Users().GetUserByID(ctx, userID); err != nil {
		return nil, notFound(err, "User not found.")
	}
	reviews, err := s.Store.Reviews().ListPublicReviewsFor(ctx, userID)
	if err != nil {
		return nil, err
	}
	summary := models.ComputeRating(userID, nil, s.now())
	rating, err := s.Store.Reviews().GetUserRating(ctx, userID)
	switch {
	case err == nil:
		summary = *rating
	case !errors.Is(err, repository.ErrNotFound):
		return nil, err
	}
	return &models.UserReviews{Reviews: reviews, RatingSummary: summary}, nil
}

func (s *ReviewService) ListCompetitionReviews(ctx context.Context, competitionID uuid.UUID) ([]models.Review, error) {
	return s.Store.Reviews().ListCompetitionReviews(ctx, competitionID)
}

package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type ReviewType string // Направление отзыва

const (
	ClientToFreelancerReview ReviewType = "CLIENT_TO_FREELANCER"
	FreelancerToClientReview ReviewType = "FREELANCER_TO_CLIENT"
)

// Review - отзыв по итогам закрытого конкурса.
type Review struct {
	ID            uuid.UUID  `json:"id"`
	ReviewerID    uuid.UUID  `json:"reviewer"`
	RevieweeID    uuid.UUID  `json:"reviewee"`
	CompetitionID uuid.UUID  `json:"competition"`
	Rating        int        `json:"rating"`
	Comment       string     `json:"comment"`
	Type          ReviewType `json:"review_type"`
	IsPublic      bool       `json:"is_public"`
	CreatedAt     time.Time  `json:"created_at"`
}

// ReviewRequest - тело запроса отзыва.
type ReviewRequest struct {
	CompetitionID uuid.UUID `json:"competition" validate:"required"`
	RevieweeID    uuid.UUID `json:"reviewee" validate:"required"`
	Rating        int       `json:"rating" validate:"min=1,max=5"`
	Comment       string    `json:"comment" validate:"required"`
	IsPublic      *bool     `json:"is_public"`
}

// UserRating - агрегированный рейтинг пользователя.
type UserRating struct {
	UserID        uuid.UUID       `json:"user"`
	AverageRating decimal.Decimal `json:"average_rating"`
	TotalReviews  int             `json:"total_reviews"`
	UpdatedAt     time.Time       `json:"updated_at"`
}

// ComputeRating пересчитывает рейтинг по всем оценкам целиком.
func ComputeRating(userID uuid.UUID, ratings []int, now time.Time) UserRating {
	r := UserRating{UserID: userID, AverageRating: decimal.Zero.Round(2), UpdatedAt: now}
	if len(ratings) == 0 {
		return r
	}
	sum := 0
	for _, v := range ratings {
		sum += v
	}
	r.AverageRating = decimal.NewFromInt(int64(sum)).
		DivRound(decimal.NewFromInt(int64(len(ratings))), 2)
	r.TotalReviews = len(ratings)
	return r
}

// UserReviews - отзывы о пользователе со сводкой рейтинга.
type UserReviews struct {
	Reviews       []Review   `json:"reviews"`
	RatingSummary UserRating `json:"rating_summary"`
}

package repository

import (
	"context"
	"fmt"

	"github.com/senyabanana/freelance-service/internal/models"

	"github.com/google/uuid"
)

const reviewColumns = `id, reviewer_id, reviewee_id, competition_id, rating, comment, review_type, is_public, created_at`

// PostgresReviewRepository - реализация ReviewRepository для базы данных.
type PostgresReviewRepository struct {
	DB DBTX
}

// NewPostgresReviewRepository создаёт новый экземпляр PostgresReviewRepository.
func NewPostgresReviewRepository(db DBTX) *PostgresReviewRepository {
	return &PostgresReviewRepository{DB: db}
}

func (r *PostgresReviewRepository) queryReviews(ctx context.Context, query string, args ...interface{}) ([]models.Review, error) {
	rows, err := r.DB.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var reviews []models.Review
	for rows.Next() {
		var rv models.Review
		if err := rows.Scan(
			&rv.ID,
			&rv.ReviewerID,
			&rv.RevieweeID,
			&rv.CompetitionID,
			&rv.Rating,
			&rv.Comment,
			&rv.Type,
			&rv.IsPublic,
			&rv.CreatedAt,
		); err != nil {
			return nil, err
		}
		reviews = append(reviews, rv)
	}
	return reviews, rows.Err()
}

// CreateReview сохраняет отзыв. Повторный отзыв по конкурсу даёт ErrConflict.
func (r *PostgresReviewRepository) CreateReview(ctx context.Context, rv *models.Review) error {
	_, err := r.DB.Exec(ctx, `
		INSERT INTO reviews (`+reviewColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
		rv.ID, rv.ReviewerID, rv.RevieweeID, rv.CompetitionID, rv.Rating, rv.Comment, rv.Type, rv.IsPublic, rv.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to insert review: %w", mapError(err))
	}
	return nil
}

// ReviewExists проверяет, оставлял ли пользователь отзыв по конкурсу.
func (r *PostgresReviewRepository) ReviewExists(ctx context.Context, reviewerID, competitionID uuid.UUID) (bool, error) {
	var exists bool
	err := r.DB.QueryRow(ctx,
		`SELECT EXISTS (SELECT 1 FROM reviews WHERE reviewer_id = $1 AND competition_id = $2)`,
		reviewerID, competitionID).Scan(&exists)
	return exists, mapError(err)
}

// ListPublicReviewsFor возвращает публичные отзывы о пользователе.
func (r *PostgresReviewRepository) ListPublicReviewsFor(ctx context.Context, revieweeID uuid.UUID) ([]models.Review, error) {
	return r.queryReviews(ctx,
		`SELECT `+reviewColumns+` FROM reviews WHERE reviewee_id = $1 AND is_public ORDER BY created_at DESC`,
		revieweeID)
}

// ListCompetitionReviews возвращает отзывы по конкурсу.
func (r *PostgresReviewRepository) ListCompetitionReviews(ctx context.Context, competitionID uuid.UUID) ([]models.Review, error) {
	return r.queryReviews(ctx,
		`SELECT `+reviewColumns+` FROM reviews WHERE competition_id = $1 ORDER BY created_at DESC`,
		competitionID)
}

// PublicRatings возвращает все публичные оценки пользователя.
func (r *PostgresReviewRepository) PublicRatings(ctx context.Context, revieweeID uuid.UUID) ([]int, error) {
	rows, err := r.DB.Query(ctx, `SELECT rating FROM reviews WHERE reviewee_id = $1 AND is_public`, revieweeID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var ratings []int
	for rows.Next() {
		var v int
		if err := rows.Scan(&v); err != nil {
			return nil, err
		}
		ratings = append(ratings, v)
	}
	return ratings, rows.Err()
}

// SaveUserRating записывает агрегированный рейтинг.
func (r *PostgresReviewRepository) SaveUserRating(ctx context.Context, rating models.UserRating) error {
	_, err := r.DB.Exec(ctx, `
		INSERT INTO user_ratings (user_id, average_rating, total_reviews, updated_at)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (user_id) DO UPDATE
		SET average_rating = EXCLUDED.average_rating,
		    total_reviews = EXCLUDED.total_reviews,
		    updated_at = EXCLUDED.updated_at`,
		rating.UserID, rating.AverageRating, rating.TotalReviews, rating.UpdatedAt)
	return mapError(err)
}

// GetUserRating получает рейтинг пользователя.
func (r *PostgresReviewRepository) GetUserRating(ctx context.Context, userID uuid.UUID) (*models.UserRating, error) {
	var rating models.UserRating
	err := r.DB.QueryRow(ctx,
		`SELECT user_id, average_rating, total_reviews, updated_at FROM user_ratings WHERE user_id = $1`,
		userID).Scan(&rating.UserID, &rating.AverageRating, &rating.TotalReviews, &rating.UpdatedAt)
	if err != nil {
		return nil, mapError(err)
	}
	return &rating, nil
}

package handlers

import (
	"net/http"
	"time"

	"github.com/senyabanana/freelance-service/internal/models"
	"github.com/senyabanana/freelance-service/internal/services"
	"github.com/senyabanana/freelance-service/internal/utils"

	"go.uber.org/zap"
)

// FeedbackHandler - HTTP-обработчики отзывов.
type FeedbackHandler struct {
	Service *services.ReviewService
	Logger  *zap.Logger
	Timeout time.Duration
}

// NewFeedbackHandler создаёт новый экземпляр FeedbackHandler.
func NewFeedbackHandler(service *services.ReviewService, logger *zap.Logger, timeout time.Duration) *FeedbackHandler {
	return &FeedbackHandler{Service: service, Logger: logger, Timeout: timeout}
}

// Create обрабатывает POST /api/feedback/reviews.
func (h *FeedbackHandler) Create(w http.ResponseWriter, r *http.Request) {
	actor, ok := principal(w, r)
	if !ok {
		return
	}
	ctx, cancel := withTimeout(r, h.Timeout)
	defer cancel()

	var req models.ReviewRequest
	if err := utils.DecodeJSON(r, &req); err != nil {
		fail(h.Logger, w, r, err)
		return
	}
	review, err := h.Service.CreateReview(ctx, actor, req)
	if err != nil {
		fail(h.Logger, w, r, err)
		return
	}
	utils.SendSuccess(w, http.StatusCreated, "Review submitted successfully.", review)
}

func (h *FeedbackHandler) UserReviews(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := withTimeout(r, h.Timeout)
	defer cancel()

	userID, err := pathUUID(r, "userId", "User not found.")
	if err != nil {
		fail(h.Logger, w, r, err)
		return
	}
	reviews, err := h.Service.ListUserReviews(ctx, userID)
	if err != nil {
		fail(h.Logger, w, r, err)
		return
	}
	utils.SendSuccess(w, http.StatusOK, "User reviews retrieved.", reviews)
}

func (h *FeedbackHandler) CompetitionReviews(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := withTimeout(r, h.Timeout)
	defer cancel()

	id, err := pathUUID(r, "id", competitionNotFound)
	if err != nil {
		fail(h.Logger, w, r, err)
		return
	}
	reviews, err := h.Service.ListCompetitionReviews(ctx, id)
	if err != nil {
		fail(h.Logger, w, r, err)
		return
	}
	utils.SendSuccess(w, http.StatusOK, "Competition reviews retrieved.", reviews)
}

package handlers

import (
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/senyabanana/freelance-service/internal/models"
	"github.com/senyabanana/freelance-service/internal/services"
	"github.com/senyabanana/freelance-service/internal/utils"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

const competitionNotFound = "Competition not found."

// CompetitionHandler - HTTP-обработчики конкурсов, закладок и вопросов.
type CompetitionHandler struct {
	Service *services.CompetitionService
	Logger  *zap.Logger
	Timeout time.Duration
}

// NewCompetitionHandler создаёт новый экземпляр CompetitionHandler.
func NewCompetitionHandler(service *services.CompetitionService, logger *zap.Logger, timeout time.Duration) *CompetitionHandler {
	return &CompetitionHandler{Service: service, Logger: logger, Timeout: timeout}
}

func parseDecimalParam(r *http.Request, name string) (*decimal.Decimal, error) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return nil, nil
	}
	d, err := decimal.NewFromString(raw)
	if err != nil {
		return nil, models.NewValidationError(name, "Enter a number.")
	}
	return &d, nil
}

func competitionFilter(r *http.Request) (models.CompetitionFilter, error) {
	q := r.URL.Query()
	page, err := utils.ParsePage(r)
	if err != nil {
		return models.CompetitionFilter{}, err
	}
	filter := models.CompetitionFilter{
		Search:   strings.TrimSpace(q.Get("search")),
		Ordering: q.Get("ordering"),
		Limit:    page.Limit,
		Offset:   page.Offset,
	}
	for _, raw := range q["category"] {
		for _, c := range strings.Split(raw, ",") {
			if c = strings.TrimSpace(c); c != "" {
				filter.Categories = append(filter.Categories, c)
			}
		}
	}
	if filter.MinBudget, err = parseDecimalParam(r, "budget_min"); err != nil {
		return filter, err
	}
	if filter.MaxBudget, err = parseDecimalParam(r, "budget_max"); err != nil {
		return filter, err
	}
	return filter, nil
}

// List обрабатывает GET /api/competitions.
func (h *CompetitionHandler) List(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := withTimeout(r, h.Timeout)
	defer cancel()

	filter, err := competitionFilter(r)
	if err != nil {
		fail(h.Logger, w, r, err)
		return
	}
	competitions, err := h.Service.ListOpenCompetitions(ctx, filter)
	if err != nil {
		fail(h.Logger, w, r, err)
		return
	}
	utils.SendSuccess(w, http.StatusOK, "Competitions retrieved.", competitions)
}

// Create обрабатывает POST /api/competitions.
func (h *CompetitionHandler) Create(w http.ResponseWriter, r *http.Request) {
	actor, ok := principal(w, r)
	if !ok {
		return
	}
	ctx, cancel := withTimeout(r, h.Timeout)
	defer cancel()

	var req models.CompetitionRequest
	if err := utils.DecodeJSON(r, &req); err != nil {
		fail(h.Logger, w, r, err)
		return
	}
	competition, err := h.Service.CreateCompetition(ctx, actor, req)
	if err != nil {
		fail(h.Logger, w, r, err)
		return
	}
	utils.SendSuccess(w, http.StatusCreated, "Competition created successfully.", competition)
}

// Mine обрабатывает GET /api/competitions/my.
func (h *CompetitionHandler) Mine(w http.ResponseWriter, r *http.Request) {
	actor, ok := principal(w, r)
	if !ok {
		return
	}
	ctx, cancel := withTimeout(r, h.Timeout)
	defer cancel()

	page, err := utils.ParsePage(r)
	if err != nil {
		fail(h.Logger, w, r, err)
		return
	}
	competitions, err := h.Service.ListMyCompetitions(ctx, actor, r.URL.Query().Get("status"), page)
	if err != nil {
		fail(h.Logger, w, r, err)
		return
	}
	utils.SendSuccess(w, http.StatusOK, "Your competitions retrieved.", competitions)
}

// Get обрабатывает GET /api/competitions/{id}.
func (h *CompetitionHandler) Get(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := withTimeout(r, h.Timeout)
	defer cancel()

	id, err := pathUUID(r, "id", competitionNotFound)
	if err != nil {
		fail(h.Logger, w, r, err)
		return
	}
	detail, err := h.Service.GetCompetitionDetail(ctx, id)
	if err != nil {
		fail(h.Logger, w, r, err)
		return
	}
	utils.SendSuccess(w, http.StatusOK, "Competition detail retrieved.", detail)
}

// Update обрабатывает PATCH /api/competitions/{id}.
func (h *CompetitionHandler) Update(w http.ResponseWriter, r *http.Request) {
	actor, ok := principal(w, r)
	if !ok {
		return
	}
	ctx, cancel := withTimeout(r, h.Timeout)
	defer cancel()

	id, err := pathUUID(r, "id", competitionNotFound)
	if err != nil {
		fail(h.Logger, w, r, err)
		return
	}
	var req models.CompetitionUpdate
	if err := utils.DecodeJSON(r, &req); err != nil {
		fail(h.Logger, w, r, err)
		return
	}
	detail, err := h.Service.UpdateCompetition(ctx, actor, id, req)
	if err != nil {
		fail(h.Logger, w, r, err)
		return
	}
	utils.SendSuccess(w, http.StatusOK, "Competition updated.", detail)
}

// Cancel обрабатывает DELETE /api/competitions/{id}.
func (h *CompetitionHandler) Cancel(w http.ResponseWriter, r *http.Request) {
	actor, ok := principal(w, r)
	if !ok {
		return
	}
	ctx, cancel := withTimeout(r, h.Timeout)
	defer cancel()

	id, err := pathUUID(r, "id", competitionNotFound)
	if err != nil {
		fail(h.Logger, w, r, err)
		return
	}
	if err := h.Service.CancelCompetition(ctx, actor, id); err != nil {
		fail(h.Logger, w, r, err)
		return
	}
	utils.SendSuccess(w, http.StatusOK, "Competition cancelled.", nil)
}

// ChangeStatus обрабатывает POST /api/competitions/{id}/status.
func (h *CompetitionHandler) ChangeStatus(w http.ResponseWriter, r *http.Request) {
	actor, ok := principal(w, r)
	if !ok {
		return
	}
	ctx, cancel := withTimeout(r, h.Timeout)
	defer cancel()

	id, err := pathUUID(r, "id", competitionNotFound)
	if err != nil {
		fail(h.Logger, w, r, err)
		return
	}
	var req models.StatusRequest
	if err := utils.DecodeJSON(r, &req); err != nil {
		fail(h.Logger, w, r, err)
		return
	}
	target, err := services.ParseCompetitionStatus(req.Status)
	if err != nil {
		fail(h.Logger, w, r, err)
		return
	}
	detail, err := h.Service.ChangeStatus(ctx, actor, id, target)
	if err != nil {
		fail(h.Logger, w, r, err)
		return
	}
	utils.SendSuccess(w, http.StatusOK, fmt.Sprintf("Competition status changed to %s.", target), detail)
}

// SelectWinner обрабатывает POST /api/competitions/{id}/select-winner.
func (h *CompetitionHandler) SelectWinner(w http.ResponseWriter, r *http.Request) {
	actor, ok := principal(w, r)
	if !ok {
		return
	}
	ctx, cancel := withTimeout(r, h.Timeout)
	defer cancel()

	id, err := pathUUID(r, "id", competitionNotFound)
	if err != nil {
		fail(h.Logger, w, r, err)
		return
	}
	var req models.SelectWinnerRequest
	if err := utils.DecodeJSON(r, &req); err != nil {
		fail(h.Logger, w, r, err)
		return
	}
	result, err := h.Service.SelectWinner(ctx, actor, id, req)
	if err != nil {
		fail(h.Logger, w, r, err)
		return
	}
	utils.SendSuccess(w, http.StatusOK, "Winner selected and competition closed.", result)
}

// ToggleBookmark обрабатывает POST /api/competitions/{id}/bookmark.
func (h *CompetitionHandler) ToggleBookmark(w http.ResponseWriter, r *http.Request) {
	actor, ok := principal(w, r)
	if !ok {
		return
	}
	ctx, cancel := withTimeout(r, h.Timeout)
	defer cancel()

	id, err := pathUUID(r, "id", competitionNotFound)
	if err != nil {
		fail(h.Logger, w, r, err)
		return
	}
	added, err := h.Service.ToggleBookmark(ctx, actor, id)
	if err != nil {
		fail(h.Logger, w, r, err)
		return
	}
	if !added {
		utils.SendSuccess(w, http.StatusOK, "Bookmark removed.", nil)
		return
	}
	utils.SendSuccess(w, http.StatusCreated, "Competition bookmarked.", nil)
}

// Bookmarks обрабатывает GET /api/competitions/bookmarks.
func (h *CompetitionHandler) Bookmarks(w http.ResponseWriter, r *http.Request) {
	actor, ok := principal(w, r)
	if !ok {
		return
	}
	ctx, cancel := withTimeout(r, h.Timeout)
	defer cancel()

	competitions, err := h.Service.ListBookmarks(ctx, actor)
	if err != nil {
		fail(h.Logger, w, r, err)
		return
	}
	utils.SendSuccess(w, http.StatusOK, "Bookmarked competitions retrieved.", competitions)
}

// Questions обрабатывает GET /api/competitions/{id}/questions.
func (h *CompetitionHandler) Questions(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := withTimeout(r, h.Timeout)
	defer cancel()

	id, err := pathUUID(r, "id", competitionNotFound)
	if err != nil {
		fail(h.Logger, w, r, err)
		return
	}
	questions, err := h.Service.ListQuestions(ctx, id)
	if err != nil {
		fail(h.Logger, w, r, err)
		return
	}
	utils.SendSuccess(w, http.StatusOK, "Questions retrieved.", questions)
}

// AskQuestion обрабатывает POST /api/competitions/{id}/questions.
func (h *CompetitionHandler) AskQuestion(w http.ResponseWriter, r *http.Request) {
	actor, ok := principal(w, r)
	if !ok {
		return
	}
	ctx, cancel := withTimeout(r, h.Timeout)
	defer cancel()

	id, err := pathUUID(r, "id", competitionNotFound)
	if err != nil {
		fail(h.Logger, w, r, err)
		return
	}
	var req models.QuestionRequest
	if err := utils.DecodeJSON(r, &req); err != nil {
		fail(h.Logger, w, r, err)
		return
	}
	question, err := h.Service.AskQuestion(ctx, actor, id, req)
	if err != nil {
		fail(h.Logger, w, r, err)
		return
	}
	utils.SendSuccess(w, http.StatusCreated, "Question submitted.", question)
}

// AnswerQuestion обрабатывает POST /api/competitions/{id}/questions/{questionId}/answer.
func (h *CompetitionHandler) AnswerQuestion(w http.ResponseWriter, r *http.Request) {
	actor, ok := principal(w, r)
	if !ok {
		return
	}
	ctx, cancel := withTimeout(r, h.Timeout)
	defer cancel()

	id, err := pathUUID(r, "id", competitionNotFound)
	if err != nil {
		fail(h.Logger, w, r, err)
		return
	}
	questionID, err := pathUUID(r, "questionId", "Question not found.")
	if err != nil {
		fail(h.Logger, w, r, err)
		return
	}
	var req models.AnswerRequest
	if err := utils.DecodeJSON(r, &req); err != nil {
		fail(h.Logger, w, r, err)
		return
	}
	question, err := h.Service.AnswerQuestion(ctx, actor, id, questionID, req)
	if err != nil {
		fail(h.Logger, w, r, err)
		return
	}
	utils.SendSuccess(w, http.StatusOK, "Question answered.", question)
}

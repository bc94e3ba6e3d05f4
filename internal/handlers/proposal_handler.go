package handlers

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/senyabanana/freelance-service/internal/models"
	"github.com/senyabanana/freelance-service/internal/services"
	"github.com/senyabanana/freelance-service/internal/utils"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

const proposalNotFound = "Proposal not found."

// ProposalHandler - HTTP-обработчики предложений и вложений.
type ProposalHandler struct {
	Service *services.ProposalService
	Logger  *zap.Logger
	Timeout time.Duration
}

// NewProposalHandler создаёт новый экземпляр ProposalHandler.
func NewProposalHandler(service *services.ProposalService, logger *zap.Logger, timeout time.Duration) *ProposalHandler {
	return &ProposalHandler{Service: service, Logger: logger, Timeout: timeout}
}

// Submit обрабатывает POST /api/proposals.
func (h *ProposalHandler) Submit(w http.ResponseWriter, r *http.Request) {
	actor, ok := principal(w, r)
	if !ok {
		return
	}
	ctx, cancel := withTimeout(r, h.Timeout)
	defer cancel()

	var req models.ProposalRequest
	if err := utils.DecodeJSON(r, &req); err != nil {
		fail(h.Logger, w, r, err)
		return
	}
	proposal, err := h.Service.SubmitProposal(ctx, actor, req)
	if err != nil {
		fail(h.Logger, w, r, err)
		return
	}
	utils.SendSuccess(w, http.StatusCreated, "Proposal submitted successfully.", proposal)
}

// Mine обрабатывает GET /api/proposals/my.
func (h *ProposalHandler) Mine(w http.ResponseWriter, r *http.Request) {
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
	filter := models.ProposalFilter{Limit: page.Limit, Offset: page.Offset}
	q := r.URL.Query()
	if raw := q.Get("competition"); raw != "" {
		id, err := uuid.Parse(raw)
		if err != nil {
			fail(h.Logger, w, r, models.NewValidationError("competition", "Must be a valid UUID."))
			return
		}
		filter.CompetitionID = &id
	}
	if raw := q.Get("status"); raw != "" {
		status := models.ProposalStatus(strings.ToUpper(raw))
		filter.Status = &status
	}

	proposals, err := h.Service.ListMyProposals(ctx, actor, filter)
	if err != nil {
		fail(h.Logger, w, r, err)
		return
	}
	utils.SendSuccess(w, http.StatusOK, "Your proposals retrieved.", proposals)
}

// Get обрабатывает GET /api/proposals/{id}.
func (h *ProposalHandler) Get(w http.ResponseWriter, r *http.Request) {
	actor, ok := principal(w, r)
	if !ok {
		return
	}
	ctx, cancel := withTimeout(r, h.Timeout)
	defer cancel()

	id, err := pathUUID(r, "id", proposalNotFound)
	if err != nil {
		fail(h.Logger, w, r, err)
		return
	}
	detail, err := h.Service.GetProposal(ctx, actor, id)
	if err != nil {
		fail(h.Logger, w, r, err)
		return
	}
	utils.SendSuccess(w, http.StatusOK, "Proposal detail retrieved.", detail)
}

// Update обрабатывает PATCH /api/proposals/{id}.
func (h *ProposalHandler) Update(w http.ResponseWriter, r *http.Request) {
	actor, ok := principal(w, r)
	if !ok {
		return
	}
	ctx, cancel := withTimeout(r, h.Timeout)
	defer cancel()

	id, err := pathUUID(r, "id", proposalNotFound)
	if err != nil {
		fail(h.Logger, w, r, err)
		return
	}
	var req models.ProposalUpdate
	if err := utils.DecodeJSON(r, &req); err != nil {
		fail(h.Logger, w, r, err)
		return
	}
	detail, err := h.Service.UpdateProposal(ctx, actor, id, req)
	if err != nil {
		fail(h.Logger, w, r, err)
		return
	}
	utils.SendSuccess(w, http.StatusOK, "Proposal updated.", detail)
}

// Withdraw обрабатывает POST /api/proposals/{id}/withdraw.
func (h *ProposalHandler) Withdraw(w http.ResponseWriter, r *http.Request) {
	actor, ok := principal(w, r)
	if !ok {
		return
	}
	ctx, cancel := withTimeout(r, h.Timeout)
	defer cancel()

	id, err := pathUUID(r, "id", proposalNotFound)
	if err != nil {
		fail(h.Logger, w, r, err)
		return
	}
	proposal, err := h.Service.WithdrawProposal(ctx, actor, id)
	if err != nil {
		fail(h.Logger, w, r, err)
		return
	}
	utils.SendSuccess(w, http.StatusOK, "Proposal withdrawn.", proposal)
}

// Score обрабатывает POST /api/proposals/{id}/score.
func (h *ProposalHandler) Score(w http.ResponseWriter, r *http.Request) {
	actor, ok := principal(w, r)
	if !ok {
		return
	}
	ctx, cancel := withTimeout(r, h.Timeout)
	defer cancel()

	id, err := pathUUID(r, "id", proposalNotFound)
	if err != nil {
		fail(h.Logger, w, r, err)
		return
	}
	var req models.ScoreRequest
	if err := utils.DecodeJSON(r, &req); err != nil {
		fail(h.Logger, w, r, err)
		return
	}
	proposal, err := h.Service.ScoreProposal(ctx, actor, id, req)
	if err != nil {
		fail(h.Logger, w, r, err)
		return
	}
	utils.SendSuccess(w, http.StatusOK, "Proposal scored.", proposal)
}

// ForCompetition обрабатывает GET /api/competitions/{id}/proposals.
func (h *ProposalHandler) ForCompetition(w http.ResponseWriter, r *http.Request) {
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
	page, err := utils.ParsePage(r)
	if err != nil {
		fail(h.Logger, w, r, err)
		return
	}
	proposals, err := h.Service.ListCompetitionProposals(ctx, actor, id, r.URL.Query().Get("ordering"), page)
	if err != nil {
		fail(h.Logger, w, r, err)
		return
	}
	utils.SendSuccess(w, http.StatusOK, "Competition proposals retrieved.", proposals)
}

// AddAttachment обрабатывает multipart POST /api/proposals/{id}/attachments.
func (h *ProposalHandler) AddAttachment(w http.ResponseWriter, r *http.Request) {
	actor, ok := principal(w, r)
	if !ok {
		return
	}
	ctx, cancel := withTimeout(r, h.Timeout)
	defer cancel()

	id, err := pathUUID(r, "id", proposalNotFound)
	if err != nil {
		fail(h.Logger, w, r, err)
		return
	}
	r.Body = http.MaxBytesReader(w, r.Body, h.Service.MaxAttachmentBytes+1<<20)
	if err := r.ParseMultipartForm(1 << 20); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			fail(h.Logger, w, r, models.NewValidationError("file", "Uploaded file is too large."))
			return
		}
		fail(h.Logger, w, r, models.NewValidationError("file", "Expected a multipart form upload."))
		return
	}
	defer r.MultipartForm.RemoveAll()

	file, header, err := r.FormFile("file")
	if err != nil {
		fail(h.Logger, w, r, models.NewValidationError("file", "This field is required."))
		return
	}
	defer file.Close()

	attachment, err := h.Service.AddAttachment(ctx, actor, id, services.AttachmentUpload{
		Filename:    header.Filename,
		Size:        header.Size,
		Description: r.FormValue("description"),
		Content:     file,
	})
	if err != nil {
		fail(h.Logger, w, r, err)
		return
	}
	utils.SendSuccess(w, http.StatusCreated, "Attachment added.", attachment)
}

// DeleteAttachment обрабатывает DELETE /api/proposals/{id}/attachments/{attachmentId}.
func (h *ProposalHandler) DeleteAttachment(w http.ResponseWriter, r *http.Request) {
	actor, ok := principal(w, r)
	if !ok {
		return
	}
	ctx, cancel := withTimeout(r, h.Timeout)
	defer cancel()

	id, err := pathUUID(r, "id", proposalNotFound)
	if err != nil {
		fail(h.Logger, w, r, err)
		return
	}
	attachmentID, err := pathUUID(r, "attachmentId", "Attachment not found.")
	if err != nil {
		fail(h.Logger, w, r, err)
		return
	}
	if err := h.Service.DeleteAttachment(ctx, actor, id, attachmentID); err != nil {
		fail(h.Logger, w, r, err)
		return
	}
	utils.SendSuccess(w, http.StatusOK, "Attachment deleted.", nil)
}

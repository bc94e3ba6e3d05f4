package services

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"sort"
	"strings"

	"github.com/senyabanana/freelance-service/internal/auth"
	"github.com/senyabanana/freelance-service/internal/models"
	"github.com/senyabanana/freelance-service/internal/repository"
	"github.com/senyabanana/freelance-service/internal/storage"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

const (
	proposalNotFoundMsg = "Proposal not found."
	notProposalOwnerMsg = "You are not the owner of this proposal."
)

// AllowedAttachmentTypes - допустимые расширения вложений.
var AllowedAttachmentTypes = []string{"pdf", "doc", "docx", "zip", "jpg", "jpeg", "png", "mp4"}

var proposalOrderings = map[string]bool{
	"client_score":    true,
	"created_at":      true,
	"proposed_budget": true,
}

type ProposalService struct {
	Store              repository.Store
	Notifier           *Notifier
	Blobs              *storage.BlobStore
	MaxAttachmentBytes int64
	Logger             *zap.Logger
	now                Clock
}

// NewProposalService создаёт новый экземпляр ProposalService.
func NewProposalService(store repository.Store, notifier *Notifier, blobs *storage.BlobStore, maxAttachmentBytes int64, logger *zap.Logger) *ProposalService {
	return &ProposalService{
		Store:              store,
		Notifier:           notifier,
		Blobs:              blobs,
		MaxAttachmentBytes: maxAttachmentBytes,
		Logger:             logger,
		now:                utcNow,
	}
}

func competitionError(message string) error {
	return models.NewValidationError("competition", message)
}

// SubmitProposal подаёт предложение на открытый конкурс.
func (s *ProposalService) SubmitProposal(ctx context.Context, actor auth.Principal, req models.ProposalRequest) (*models.Proposal, error) {
	if actor.Role != models.FreelancerRole {
		return nil, models.NewForbidden("Only freelancers can submit proposals.")
	}
	if !req.ProposedBudget.IsPositive() {
		return nil, models.NewValidationError("proposed_budget", "Proposed budget must be positive.")
	}

	var proposal *models.Proposal
	err := s.Store.InTx(ctx, func(tx repository.Store) error {
		competition, err := tx.Competitions().GetCompetitionForUpdate(ctx, req.CompetitionID)
		if err != nil {
			if errors.Is(err, repository.ErrNotFound) {
				return competitionError("Competition not found.")
			}
			return err
		}

		now := s.now()
		if competition.Status != models.OpenCompetition {
			return competitionError("Competition is not open for submissions.")
		}
		if !competition.SubmissionDeadline.After(now) {
			return competitionError("Submission deadline has passed.")
		}
		exists, err := tx.Proposals().HasActiveProposal(ctx, competition.ID, actor.UserID)
		if err != nil {
			return err
		}
		if exists {
			return competitionError("You have already submitted a proposal for this competition.")
		}
		if competition.MaxProposals != nil {
			count, err := tx.Proposals().CountActiveProposals(ctx, competition.ID)
			if err != nil {
				return err
			}
			if count >= *competition.MaxProposals {
				return competitionError("Maximum number of proposals has been reached.")
			}
		}

		proposal = &models.Proposal{
			ID:                uuid.New(),
			CompetitionID:     competition.ID,
			FreelancerID:      actor.UserID,
			Title:             req.Title,
			Description:       req.Description,
			ProposedBudget:    req.ProposedBudget.Round(2),
			EstimatedDuration: req.EstimatedDuration,
			Status:            models.SubmittedProposal,
			SubmissionNote:    req.SubmissionNote,
			CreatedAt:         now,
			UpdatedAt:         now,
		}
		if err := tx.Proposals().CreateProposal(ctx, proposal); err != nil {
			if errors.Is(err, repository.ErrConflict) {
				return competitionError("You have already submitted a proposal for this competition.")
			}
			return err
		}
		return s.Notifier.Notify(ctx, tx, proposalReceived(competition, proposal))
	})
	if err != nil {
		return nil, err
	}
	return proposal, nil
}

// GetProposal доступен автору, владельцу конкурса и администратору.
func (s *ProposalService) GetProposal(ctx context.Context, actor auth.Principal, id uuid.UUID) (*models.ProposalDetail, error) {
	proposal, err := s.Store.Proposals().GetProposal(ctx, id)
	if err != nil {
		return nil, notFound(err, proposalNotFoundMsg)
	}
	if actor.Role != models.AdminRole && proposal.FreelancerID != actor.UserID {
		competition, err := s.Store.Competitions().GetCompetition(ctx, proposal.CompetitionID)
		if err != nil {
			return nil, notFound(err, competitionNotFoundMsg)
		}
		if competition.ClientID != actor.UserID {
			return nil, models.NewForbidden("You do not have permission to view this proposal.")
		}
	}
	return s.proposalDetail(ctx, s.Store, proposal)
}

func (s *ProposalService) proposalDetail(ctx context.Context, store repository.Store, proposal *models.Proposal) (*models.ProposalDetail, error) {
	attachments, err := store.Proposals().ListAttachments(ctx, proposal.ID)
	if err != nil {
		return nil, err
	}
	return &models.ProposalDetail{Proposal: *proposal, Attachments: attachments}, nil
}

func checkEditable(proposal *models.Proposal, actor auth.Principal, stateMsg string) error {
	if proposal.FreelancerID != actor.UserID {
		return models.NewForbidden(notProposalOwnerMsg)
	}
	if proposal.Status != models.SubmittedProposal {
		return models.NewInvalidState(stateMsg)
	}
	return nil
}

// loadEditable блокирует строку предложения до конца транзакции tx.
func (s *ProposalService) loadEditable(ctx context.Context, tx repository.Store, actor auth.Principal, id uuid.UUID, stateMsg string) (*models.Proposal, error) {
	proposal, err := tx.Proposals().GetProposalForUpdate(ctx, id)
	if err != nil {
		return nil, notFound(err, proposalNotFoundMsg)
	}
	if err := checkEditable(proposal, actor, stateMsg); err != nil {
		return nil, err
	}
	return proposal, nil
}

// UpdateProposal правит предложение и сохраняет ревизию описания.
func (s *ProposalService) UpdateProposal(ctx context.Context, actor auth.Principal, id uuid.UUID, req models.ProposalUpdate) (*models.ProposalDetail, error) {
	if req.ProposedBudget != nil && !req.ProposedBudget.IsPositive() {
		return nil, models.NewValidationError("proposed_budget", "Proposed budget must be positive.")
	}

	var detail *models.ProposalDetail
	err := s.Store.InTx(ctx, func(tx repository.Store) error {
		proposal, err := s.loadEditable(ctx, tx, actor, id, "Only SUBMITTED proposals can be updated.")
		if err != nil {
			return err
		}

		if req.Title != nil {
			proposal.Title = *req.Title
		}
		if req.Description != nil {
			proposal.Description = *req.Description
		}
		if req.ProposedBudget != nil {
			proposal.ProposedBudget = req.ProposedBudget.Round(2)
		}
		if req.EstimatedDuration != nil {
			proposal.EstimatedDuration = *req.EstimatedDuration
		}
		if req.SubmissionNote != nil {
			proposal.SubmissionNote = *req.SubmissionNote
		}

		now := s.now()
		proposal.UpdatedAt = now
		if err := tx.Proposals().UpdateProposal(ctx, proposal); err != nil {
			return err
		}
		revision := &models.ProposalRevision{
			ID:          uuid.New(),
			ProposalID:  proposal.ID,
			RevisedByID: actor.UserID,
			Description: proposal.Description,
			CreatedAt:   now,
		}
		if err := tx.Proposals().AddRevision(ctx, revision); err != nil {
			return err
		}
		detail, err = s.proposalDetail(ctx, tx, proposal)
		return err
	})
	if err != nil {
		return nil, err
	}
	return detail, nil
}

// WithdrawProposal отзывает предложение. Отзыв необратим.
func (s *ProposalService) WithdrawProposal(ctx context.Context, actor auth.Principal, id uuid.UUID) (*models.Proposal, error) {
	var proposal *models.Proposal
	err := s.Store.InTx(ctx, func(tx repository.Store) error {
		var err error
		proposal, err = s.loadEditable(ctx, tx, actor, id, "Only proposals with SUBMITTED status can be withdrawn.")
		if err != nil {
			return err
		}
		proposal.Status = models.WithdrawnProposal
		proposal.UpdatedAt = s.now()
		return tx.Proposals().UpdateProposal(ctx, proposal)
	})
	if err != nil {
		return nil, err
	}
	return proposal, nil
}

// ScoreProposal выставляет оценку заказчика и уведомляет исполнителя.
func (s *ProposalService) ScoreProposal(ctx context.Context, actor auth.Principal, id uuid.UUID, req models.ScoreRequest) (*models.BlindProposal, error) {
	if req.ClientScore < 1 || req.ClientScore > 5 {
		return nil, models.NewValidationError("client_score", "Ensure this value is between 1 and 5.")
	}

	var proposal *models.Proposal
	err := s.Store.InTx(ctx, func(tx repository.Store) error {
		current, err := tx.Proposals().GetProposal(ctx, id)
		if err != nil {
			return notFound(err, proposalNotFoundMsg)
		}
		competition, err := tx.Competitions().GetCompetitionForUpdate(ctx, current.CompetitionID)
		if err != nil {
			return notFound(err, competitionNotFoundMsg)
		}
		proposal, err = tx.Proposals().GetProposalForUpdate(ctx, id)
		if err != nil {
			return notFound(err, proposalNotFoundMsg)
		}
		if competition.ClientID != actor.UserID {
			return models.NewForbidden("Only the competition owner can score proposals.")
		}
		if competition.Status != models.OpenCompetition && competition.Status != models.ReviewCompetition {
			return models.NewInvalidState("Scoring is only allowed when competition is OPEN or in REVIEW.")
		}

		score := req.ClientScore
		note := req.ClientNote
		proposal.ClientScore = &score
		proposal.ClientNote = &note
		proposal.UpdatedAt = s.now()
		if err := tx.Proposals().UpdateProposal(ctx, proposal); err != nil {
			return err
		}
		return s.Notifier.Notify(ctx, tx, proposalScored(competition, proposal))
	})
	if err != nil {
		return nil, err
	}
	blind := proposal.Blind()
	return &blind, nil
}

// ListMyProposals возвращает предложения исполнителя.
func (s *ProposalService) ListMyProposals(ctx context.Context, actor auth.Principal, filter models.ProposalFilter) ([]models.Proposal, error) {
	return s.Store.Proposals().ListFreelancerProposals(ctx, actor.UserID, filter)
}

// ListCompetitionProposals - слепой список предложений для владельца конкурса.
func (s *ProposalService) ListCompetitionProposals(ctx context.Context, actor auth.Principal, competitionID uuid.UUID, ordering string, page models.Page) ([]models.BlindProposal, error) {
	competition, err := s.Store.Competitions().GetCompetition(ctx, competitionID)
	if err != nil {
		return nil, notFound(err, competitionNotFoundMsg)
	}
	if competition.ClientID != actor.UserID {
		return nil, models.NewForbidden(notCompetitionOwnerMsg)
	}

	field, desc := "created_at", true
	if ordering != "" {
		desc = strings.HasPrefix(ordering, "-")
		field = strings.TrimPrefix(ordering, "-")
		if !proposalOrderings[field] {
			return nil, models.NewValidationError("ordering", fmt.Sprintf("Unsupported ordering %q.", ordering))
		}
	}

	proposals, err := s.Store.Proposals().ListCompetitionProposals(ctx, competitionID)
	if err != nil {
		return nil, err
	}
	active := make([]models.Proposal, 0, len(proposals))
	for _, p := range proposals {
		if p.Status != models.WithdrawnProposal {
			active = append(active, p)
		}
	}
	sortProposals(active, field, desc)

	active = paginate(active, page.Limit, page.Offset)
	out := make([]models.BlindProposal, len(active))
	for i, p := range active {
		out[i] = p.Blind()
	}
	return out, nil
}

// sortProposals упорядочивает предложения. Пустая оценка считается наибольшей.
func sortProposals(proposals []models.Proposal, field string, desc bool) {
	less := func(a, b models.Proposal) int {
		switch field {
		case "client_score":
			switch {
			case a.ClientScore == nil && b.ClientScore == nil:
				return 0
			case a.ClientScore == nil:
				return 1
			case b.ClientScore == nil:
				return -1
			}
			return *a.ClientScore - *b.ClientScore
		case "proposed_budget":
			return a.ProposedBudget.Cmp(b.ProposedBudget)
		default:
			return a.CreatedAt.Compare(b.CreatedAt)
		}
	}
	sort.SliceStable(proposals, func(i, j int) bool {
		c := less(proposals[i], proposals[j])
		if desc {
			return c > 0
		}
		return c < 0
	})
}

// AttachmentUpload - загружаемый файл вложения.
type AttachmentUpload struct {
	Filename    string
	Size        int64
	Description string
	Content     io.Reader
}

func (s *ProposalService) validateAttachment(filename string, size int64) error {
	if size > s.MaxAttachmentBytes {
		return models.NewValidationError("file", fmt.Sprintf("File size must be less than %dMB.", s.MaxAttachmentBytes>>20))
	}
	ext := strings.ToLower(strings.TrimPrefix(filepath.Ext(filename), "."))
	for _, allowed := range AllowedAttachmentTypes {
		if ext == allowed {
			return nil
		}
	}
	return models.NewValidationError("file", fmt.Sprintf("File type .%s is not allowed. Allowed types: %s", ext, strings.Join(AllowedAttachmentTypes, ", ")))
}

// AddAttachment сохраняет файл в хранилище и его метаданные в базе.
func (s *ProposalService) AddAttachment(ctx context.Context, actor auth.Principal, proposalID uuid.UUID, upload AttachmentUpload) (*models.ProposalAttachment, error) {
	current, err := s.Store.Proposals().GetProposal(ctx, proposalID)
	if err != nil {
		return nil, notFound(err, proposalNotFoundMsg)
	}
	if err := checkEditable(current, actor, "Attachments can only be added to SUBMITTED proposals."); err != nil {
		return nil, err
	}
	if err := s.validateAttachment(upload.Filename, upload.Size); err != nil {
		return nil, err
	}

	key := storage.NewKey(proposalID, upload.Filename)
	written, err := s.Blobs.Put(key, io.LimitReader(upload.Content, s.MaxAttachmentBytes+1))
	if err != nil {
		return nil, fmt.Errorf("store attachment: %w", err)
	}
	if written > s.MaxAttachmentBytes {
		s.discardBlob(key)
		return nil, s.validateAttachment(upload.Filename, written)
	}

	attachment := &models.ProposalAttachment{
		ID:               uuid.New(),
		ProposalID:       proposalID,
		StorageKey:       key,
		OriginalFilename: filepath.Base(upload.Filename),
		FileSize:         written,
		FileType:         strings.ToLower(strings.TrimPrefix(filepath.Ext(upload.Filename), ".")),
		Description:      upload.Description,
		UploadedAt:       s.now(),
	}
	err = s.Store.InTx(ctx, func(tx repository.Store) error {
		if _, err := s.loadEditable(ctx, tx, actor, proposalID, "Attachments can only be added to SUBMITTED proposals."); err != nil {
			return err
		}
		return tx.Proposals().CreateAttachment(ctx, attachment)
	})
	if err != nil {
		s.discardBlob(key)
		return nil, err
	}
	return attachment, nil
}

// DeleteAttachment удаляет вложение и его файл.
func (s *ProposalService) DeleteAttachment(ctx context.Context, actor auth.Principal, proposalID, attachmentID uuid.UUID) error {
	var key string
	err := s.Store.InTx(ctx, func(tx repository.Store) error {
		if _, err := s.loadEditable(ctx, tx, actor, proposalID, "Attachments can only be removed from SUBMITTED proposals."); err != nil {
			return err
		}
		attachment, err := tx.Proposals().GetAttachment(ctx, proposalID, attachmentID)
		if err != nil {
			return notFound(err, "Attachment not found.")
		}
		key = attachment.StorageKey
		return tx.Proposals().DeleteAttachment(ctx, attachment.ID)
	})
	if err != nil {
		return err
	}
	s.discardBlob(key)
	return nil
}

func (s *ProposalService) discardBlob(key string) {
	if err := s.Blobs.Delete(key); err != nil {
		s.Logger.Warn("failed to delete attachment blob", zap.String("key", key), zap.Error(err))
	}
}

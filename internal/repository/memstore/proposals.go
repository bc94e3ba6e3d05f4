package memstore

import (
	"context"
	"sort"
	"time"

	"github.com/senyabanana/freelance-service/internal/models"
	"github.com/senyabanana/freelance-service/internal/repository"

	"github.com/google/uuid"
)

type proposalRepo struct {
	db *shared
}

func activeDuplicate(st *state, p *models.Proposal) bool {
	if p.Status == models.WithdrawnProposal {
		return false
	}
	for _, other := range st.proposals {
		if other.ID != p.ID &&
			other.CompetitionID == p.CompetitionID &&
			other.FreelancerID == p.FreelancerID &&
			other.Status != models.WithdrawnProposal {
			return true
		}
	}
	return false
}

func (r *proposalRepo) CreateProposal(_ context.Context, p *models.Proposal) error {
	st := r.db.lock()
	defer r.db.unlock()

	if _, ok := st.competitions[p.CompetitionID]; !ok {
		return repository.ErrNotFound
	}
	if activeDuplicate(st, p) {
		return repository.ErrConflict
	}
	st.proposals[p.ID] = *p
	return nil
}

func (r *proposalRepo) GetProposal(_ context.Context, id uuid.UUID) (*models.Proposal, error) {
	st := r.db.lock()
	defer r.db.unlock()

	p, ok := st.proposals[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return &p, nil
}

// GetProposalForUpdate не блокирует отдельно: транзакции уже сериализованы.
func (r *proposalRepo) GetProposalForUpdate(ctx context.Context, id uuid.UUID) (*models.Proposal, error) {
	return r.GetProposal(ctx, id)
}

func (r *proposalRepo) UpdateProposal(_ context.Context, p *models.Proposal) error {
	st := r.db.lock()
	defer r.db.unlock()

	if _, ok := st.proposals[p.ID]; !ok {
		return repository.ErrNotFound
	}
	if activeDuplicate(st, p) {
		return repository.ErrConflict
	}
	st.proposals[p.ID] = *p
	return nil
}

func (r *proposalRepo) ListCompetitionProposals(_ context.Context, competitionID uuid.UUID) ([]models.Proposal, error) {
	st := r.db.lock()
	defer r.db.unlock()

	var out []models.Proposal
	for _, p := range st.proposals {
		if p.CompetitionID == competitionID {
			out = append(out, p)
		}
	}
	sortNewestFirst(out, func(p models.Proposal) time.Time { return p.CreatedAt })
	return out, nil
}

func (r *proposalRepo) ListFreelancerProposals(_ context.Context, freelancerID uuid.UUID, f models.ProposalFilter) ([]models.Proposal, error) {
	st := r.db.lock()
	defer r.db.unlock()

	var out []models.Proposal
	for _, p := range st.proposals {
		if p.FreelancerID != freelancerID {
			continue
		}
		if f.CompetitionID != nil && p.CompetitionID != *f.CompetitionID {
			continue
		}
		if f.Status != nil && p.Status != *f.Status {
			continue
		}
		out = append(out, p)
	}
	sortNewestFirst(out, func(p models.Proposal) time.Time { return p.CreatedAt })
	return paginate(out, f.Limit, f.Offset), nil
}

func (r *proposalRepo) HasActiveProposal(_ context.Context, competitionID, freelancerID uuid.UUID) (bool, error) {
	st := r.db.lock()
	defer r.db.unlock()

	return activeDuplicate(st, &models.Proposal{
		CompetitionID: competitionID,
		FreelancerID:  freelancerID,
	}), nil
}

func (r *proposalRepo) CountActiveProposals(_ context.Context, competitionID uuid.UUID) (int, error) {
	st := r.db.lock()
	defer r.db.unlock()

	count := 0
	for _, p := range st.proposals {
		if p.CompetitionID == competitionID && p.Status != models.WithdrawnProposal {
			count++
		}
	}
	return count, nil
}

func (r *proposalRepo) RejectOtherProposals(_ context.Context, competitionID, winnerID uuid.UUID, at time.Time) (int64, error) {
	st := r.db.lock()
	defer r.db.unlock()

	var n int64
	for id, p := range st.proposals {
		if p.CompetitionID != competitionID || id == winnerID || p.Status == models.WithdrawnProposal {
			continue
		}
		p.Status = models.RejectedProposal
		p.UpdatedAt = at
		st.proposals[id] = p
		n++
	}
	return n, nil
}

func (r *proposalRepo) AddRevision(_ context.Context, rev *models.ProposalRevision) error {
	st := r.db.lock()
	defer r.db.unlock()

	if _, ok := st.proposals[rev.ProposalID]; !ok {
		return repository.ErrNotFound
	}
	last := 0
	for _, existing := range st.revisions {
		if existing.ProposalID == rev.ProposalID && existing.RevisionNumber > last {
			last = existing.RevisionNumber
		}
	}
	rev.RevisionNumber = last + 1
	st.revisions = append(st.revisions, *rev)
	return nil
}

// Revisions возвращает историю правок предложения по возрастанию номера.
func (s *Store) Revisions(proposalID uuid.UUID) []models.ProposalRevision {
	st := s.db.lock()
	defer s.db.unlock()

	var out []models.ProposalRevision
	for _, rev := range st.revisions {
		if rev.ProposalID == proposalID {
			out = append(out, rev)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].RevisionNumber < out[j].RevisionNumber })
	return out
}

func (r *proposalRepo) CreateAttachment(_ context.Context, a *models.ProposalAttachment) error {
	st := r.db.lock()
	defer r.db.unlock()

	if _, ok := st.proposals[a.ProposalID]; !ok {
		return repository.ErrNotFound
	}
	st.attachments[a.ID] = *a
	return nil
}

func (r *proposalRepo) GetAttachment(_ context.Context, proposalID, attachmentID uuid.UUID) (*models.ProposalAttachment, error) {
	st := r.db.lock()
	defer r.db.unlock()

	a, ok := st.attachments[attachmentID]
	if !ok || a.ProposalID != proposalID {
		return nil, repository.ErrNotFound
	}
	return &a, nil
}

func (r *proposalRepo) DeleteAttachment(_ context.Context, attachmentID uuid.UUID) error {
	st := r.db.lock()
	defer r.db.unlock()

	if _, ok := st.attachments[attachmentID]; !ok {
		return repository.ErrNotFound
	}
	delete(st.attachments, attachmentID)
	return nil
}

func (r *proposalRepo) ListAttachments(_ context.Context, proposalID uuid.UUID) ([]models.ProposalAttachment, error) {
	st := r.db.lock()
	defer r.db.unlock()

	var out []models.ProposalAttachment
	for _, a := range st.attachments {
		if a.ProposalID == proposalID {
			out = append(out, a)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].UploadedAt.Before(out[j].UploadedAt) })
	return out, nil
}

package services

import (
	"context"
	"errors"
	"strings"

	"github.com/senyabanana/freelance-service/internal/auth"
	"github.com/senyabanana/freelance-service/internal/models"
	"github.com/senyabanana/freelance-service/internal/repository"

	"github.com/google/uuid"
)

// WinnerResult - итог выбора победителя.
type WinnerResult struct {
	Competition *models.CompetitionDetail `json:"competition"`
	Payment     *models.PaymentRecord     `json:"payment"`
}

// SelectWinner закрывает конкурс выбранным предложением. Все изменения
// (конкурс, предложения, платёж, уведомления) применяются одной транзакцией.
func (s *CompetitionService) SelectWinner(ctx context.Context, actor auth.Principal, competitionID uuid.UUID, req models.SelectWinnerRequest) (*WinnerResult, error) {
	var result WinnerResult
	err := s.Store.InTx(ctx, func(tx repository.Store) error {
		competition, err := s.loadOwned(ctx, tx, actor, competitionID)
		if err != nil {
			return err
		}
		if competition.Status != models.ReviewCompetition {
			return models.NewInvalidState("Winner can only be selected when competition is in REVIEW status.")
		}

		rawID := strings.TrimSpace(req.ProposalID)
		if rawID == "" {
			return models.NewValidationError("proposal_id", "proposal_id is required.")
		}
		proposalID, err := uuid.Parse(rawID)
		if err != nil {
			return models.NewNotFound("Proposal not found for this competition.")
		}
		winner, err := tx.Proposals().GetProposalForUpdate(ctx, proposalID)
		if err != nil || winner.CompetitionID != competition.ID {
			if err != nil && !errors.Is(err, repository.ErrNotFound) {
				return err
			}
			return models.NewNotFound("Proposal not found for this competition.")
		}
		if winner.Status == models.WithdrawnProposal {
			return models.NewInvalidState("Cannot select a withdrawn proposal.")
		}

		now := s.now()
		competition.WinningProposalID = &winner.ID
		competition.WinnerID = &winner.FreelancerID
		competition.Status = models.ClosedCompetition
		competition.UpdatedAt = now
		if err := tx.Competitions().UpdateCompetition(ctx, competition); err != nil {
			return err
		}

		winner.IsWinner = true
		winner.Status = models.AcceptedProposal
		winner.UpdatedAt = now
		if err := tx.Proposals().UpdateProposal(ctx, winner); err != nil {
			return err
		}
		if _, err := tx.Proposals().RejectOtherProposals(ctx, competition.ID, winner.ID, now); err != nil {
			return err
		}

		payment := models.NewPaymentRecord(competition, winner.FreelancerID, now)
		if err := tx.Payments().CreatePayment(ctx, payment); err != nil {
			if errors.Is(err, repository.ErrConflict) {
				return models.NewInvalidState("A payment record already exists for this competition.")
			}
			return err
		}
		result.Payment = payment

		if err := s.notifyWinnerSelected(ctx, tx, competition, winner); err != nil {
			return err
		}

		result.Competition, err = s.detail(ctx, tx, competition)
		return err
	})
	if err != nil {
		return nil, err
	}
	s.Metrics.WinnersSelected.Inc()
	s.Metrics.CompetitionTransitions.WithLabelValues(string(models.ClosedCompetition)).Inc()
	return &result, nil
}

// notifyWinnerSelected рассылает итоги конкурса. Каждый исполнитель получает
// не более одного уведомления каждого типа.
func (s *CompetitionService) notifyWinnerSelected(ctx context.Context, tx repository.Store, competition *models.Competition, winner *models.Proposal) error {
	if err := s.Notifier.Notify(ctx, tx, winnerSelected(competition, winner)); err != nil {
		return err
	}

	proposals, err := tx.Proposals().ListCompetitionProposals(ctx, competition.ID)
	if err != nil {
		return err
	}

	rejected := map[uuid.UUID]bool{winner.FreelancerID: true}
	closed := map[uuid.UUID]bool{}
	for i := range proposals {
		p := &proposals[i]
		if p.Status == models.WithdrawnProposal {
			continue
		}
		if !rejected[p.FreelancerID] {
			rejected[p.FreelancerID] = true
			if err := s.Notifier.Notify(ctx, tx, proposalRejected(competition, p)); err != nil {
				return err
			}
		}
		if !closed[p.FreelancerID] {
			closed[p.FreelancerID] = true
			if err := s.Notifier.Notify(ctx, tx, competitionClosed(competition, p.FreelancerID)); err != nil {
				return err
			}
		}
	}
	return nil
}

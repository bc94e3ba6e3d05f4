package services

import (
	"context"
	"testing"

	"github.com/senyabanana/freelance-service/internal/models"
	"github.com/senyabanana/freelance-service/internal/repository"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// lockLog отмечает, какие строки предложений были заблокированы в текущей транзакции.
type lockLog struct {
	locked   map[uuid.UUID]bool
	writes   int
	unlocked []uuid.UUID
}

type lockingStore struct {
	repository.Store
	log *lockLog
}

func (s lockingStore) Proposals() repository.ProposalRepository {
	return lockingProposals{ProposalRepository: s.Store.Proposals(), log: s.log}
}

func (s lockingStore) InTx(ctx context.Context, fn func(tx repository.Store) error) error {
	return s.Store.InTx(ctx, func(tx repository.Store) error {
		s.log.locked = map[uuid.UUID]bool{}
		defer func() { s.log.locked = nil }()
		return fn(lockingStore{Store: tx, log: s.log})
	})
}

type lockingProposals struct {
	repository.ProposalRepository
	log *lockLog
}

func (r lockingProposals) GetProposalForUpdate(ctx context.Context, id uuid.UUID) (*models.Proposal, error) {
	if r.log.locked != nil {
		r.log.locked[id] = true
	}
	return r.ProposalRepository.GetProposalForUpdate(ctx, id)
}

func (r lockingProposals) UpdateProposal(ctx context.Context, p *models.Proposal) error {
	r.log.writes++
	if !r.log.locked[p.ID] {
		r.log.unlocked = append(r.log.unlocked, p.ID)
	}
	return r.ProposalRepository.UpdateProposal(ctx, p)
}

func TestProposalWritesHoldRowLock(t *testing.T) {
	f := newFixture(t)
	log := &lockLog{}
	store := lockingStore{Store: f.store, log: log}
	notifier := NewNotifier(f.metrics)
	competitions := NewCompetitionService(store, notifier, f.metrics)
	proposals := NewProposalService(store, notifier, f.blobs, 10<<20, zap.NewNop())

	client := f.user(models.ClientRole)
	winner := f.user(models.FreelancerRole)
	quitter := f.user(models.FreelancerRole)
	c := f.openCompetition(client)
	kept := f.submit(winner, c.ID)
	dropped := f.submit(quitter, c.ID)

	title := "Revised"
	_, err := proposals.UpdateProposal(f.ctx, winner, kept.ID, models.ProposalUpdate{Title: &title})
	require.NoError(t, err)
	_, err = proposals.ScoreProposal(f.ctx, client, kept.ID, models.ScoreRequest{ClientScore: 5, ClientNote: "strong"})
	require.NoError(t, err)
	_, err = proposals.WithdrawProposal(f.ctx, quitter, dropped.ID)
	require.NoError(t, err)

	f.toReview(client, c.ID)
	_, err = competitions.SelectWinner(f.ctx, client, c.ID, models.SelectWinnerRequest{ProposalID: kept.ID.String()})
	require.NoError(t, err)

	assert.Equal(t, 4, log.writes)
	assert.Empty(t, log.unlocked)
}

func TestStaleWithdrawAfterSelectionFails(t *testing.T) {
	f := newFixture(t)
	s := newWinnerScenario(f)

	_, err := f.competitions.SelectWinner(f.ctx, s.client, s.competition.ID, s.request(s.winning))
	require.NoError(t, err)

	_, err = f.proposals.WithdrawProposal(f.ctx, s.winner, s.winning.ID)
	requireKind(t, err, models.ErrInvalidState)
	_, err = f.proposals.UpdateProposal(f.ctx, s.loser, s.losing.ID, models.ProposalUpdate{})
	requireKind(t, err, models.ErrInvalidState)

	assert.Equal(t, models.AcceptedProposal, f.proposal(s.winning.ID).Status)
	assert.Equal(t, models.RejectedProposal, f.proposal(s.losing.ID).Status)
}

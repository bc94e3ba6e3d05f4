package services

import (
	"sync"
	"testing"

	"github.com/senyabanana/freelance-service/internal/auth"
	"github.com/senyabanana/freelance-service/internal/models"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type winnerScenario struct {
	client    auth.Principal
	winner    auth.Principal
	loser     auth.Principal
	withdrawn auth.Principal

	competition *models.Competition
	winning     *models.Proposal
	losing      *models.Proposal
	retracted   *models.Proposal
}

func newWinnerScenario(f *fixture) *winnerScenario {
	s := &winnerScenario{
		client:    f.user(models.ClientRole),
		winner:    f.user(models.FreelancerRole),
		loser:     f.user(models.FreelancerRole),
		withdrawn: f.user(models.FreelancerRole),
	}
	s.competition = f.openCompetition(s.client)
	s.winning = f.submit(s.winner, s.competition.ID)
	s.losing = f.submit(s.loser, s.competition.ID)
	s.retracted = f.submit(s.withdrawn, s.competition.ID)
	_, err := f.proposals.WithdrawProposal(f.ctx, s.withdrawn, s.retracted.ID)
	require.NoError(f.t, err)
	f.toReview(s.client, s.competition.ID)
	return s
}

func (s *winnerScenario) request(p *models.Proposal) models.SelectWinnerRequest {
	return models.SelectWinnerRequest{ProposalID: p.ID.String()}
}

func TestSelectWinnerClosesCompetition(t *testing.T) {
	f := newFixture(t)
	s := newWinnerScenario(f)

	result, err := f.competitions.SelectWinner(f.ctx, s.client, s.competition.ID, s.request(s.winning))
	require.NoError(t, err)

	c := f.competition(s.competition.ID)
	assert.Equal(t, models.ClosedCompetition, c.Status)
	require.NotNil(t, c.WinnerID)
	assert.Equal(t, s.winner.UserID, *c.WinnerID)
	require.NotNil(t, c.WinningProposalID)
	assert.Equal(t, s.winning.ID, *c.WinningProposalID)

	won := f.proposal(s.winning.ID)
	assert.True(t, won.IsWinner)
	assert.Equal(t, models.AcceptedProposal, won.Status)
	assert.Equal(t, models.RejectedProposal, f.proposal(s.losing.ID).Status)
	assert.False(t, f.proposal(s.losing.ID).IsWinner)
	assert.Equal(t, models.WithdrawnProposal, f.proposal(s.retracted.ID).Status)

	payment, err := f.store.Payments().GetPaymentByCompetition(f.ctx, c.ID)
	require.NoError(t, err)
	assert.Equal(t, result.Payment.ID, payment.ID)
	assert.Equal(t, "500.00", payment.Amount.StringFixed(2))
	assert.Equal(t, "50.00", payment.PlatformFee.StringFixed(2))
	assert.Equal(t, "450.00", payment.NetAmount.StringFixed(2))
	assert.Equal(t, models.PendingPayment, payment.Status)
	assert.Equal(t, "USD", payment.Currency)

	assert.Len(t, f.notificationsOf(s.winner.UserID, models.WinnerSelectedNotification), 1)
	assert.Empty(t, f.notificationsOf(s.winner.UserID, models.ProposalRejectedNotification))
	assert.Len(t, f.notificationsOf(s.loser.UserID, models.ProposalRejectedNotification), 1)
	assert.Empty(t, f.notificationsOf(s.withdrawn.UserID, models.ProposalRejectedNotification))

	for _, id := range []uuid.UUID{s.winner.UserID, s.loser.UserID} {
		closed := f.notificationsOf(id, models.CompetitionClosedNotification)
		require.Len(t, closed, 1)
		assert.Equal(t, "Competition Closed", closed[0].Title)
	}
	assert.Empty(t, f.notificationsOf(s.withdrawn.UserID, models.CompetitionClosedNotification))

	assert.Equal(t, 1.0, testutil.ToFloat64(f.metrics.WinnersSelected))
}

func TestSelectWinnerPreconditionOrder(t *testing.T) {
	f := newFixture(t)
	s := newWinnerScenario(f)
	stranger := f.user(models.ClientRole)

	_, err := f.competitions.SelectWinner(f.ctx, stranger, s.competition.ID, models.SelectWinnerRequest{})
	requireKind(t, err, models.ErrForbidden)

	_, err = f.competitions.SelectWinner(f.ctx, s.client, s.competition.ID, models.SelectWinnerRequest{})
	resp := requireKind(t, err, models.ErrValidation)
	assert.Contains(t, resp.Errors, "proposal_id")

	_, err = f.competitions.SelectWinner(f.ctx, s.client, s.competition.ID, models.SelectWinnerRequest{ProposalID: uuid.NewString()})
	requireKind(t, err, models.ErrNotFound)

	other := f.openCompetition(s.client)
	foreign := f.submit(s.loser, other.ID)
	_, err = f.competitions.SelectWinner(f.ctx, s.client, s.competition.ID, s.request(foreign))
	requireKind(t, err, models.ErrNotFound)

	_, err = f.competitions.SelectWinner(f.ctx, s.client, s.competition.ID, s.request(s.retracted))
	resp = requireKind(t, err, models.ErrInvalidState)
	assert.Equal(t, "Cannot select a withdrawn proposal.", resp.Message)

	assert.Equal(t, models.ReviewCompetition, f.competition(s.competition.ID).Status)
	_, err = f.store.Payments().GetPaymentByCompetition(f.ctx, s.competition.ID)
	assert.Error(t, err)
}

func TestSelectWinnerRequiresReview(t *testing.T) {
	f := newFixture(t)
	client := f.user(models.ClientRole)
	freelancer := f.user(models.FreelancerRole)
	c := f.openCompetition(client)
	p := f.submit(freelancer, c.ID)

	_, err := f.competitions.SelectWinner(f.ctx, client, c.ID, models.SelectWinnerRequest{ProposalID: p.ID.String()})
	resp := requireKind(t, err, models.ErrInvalidState)
	assert.Equal(t, "Winner can only be selected when competition is in REVIEW status.", resp.Message)
	assert.Empty(t, f.notificationsOf(freelancer.UserID, models.WinnerSelectedNotification))
}

func TestSelectWinnerTwiceFails(t *testing.T) {
	f := newFixture(t)
	s := newWinnerScenario(f)

	_, err := f.competitions.SelectWinner(f.ctx, s.client, s.competition.ID, s.request(s.winning))
	require.NoError(t, err)

	_, err = f.competitions.SelectWinner(f.ctx, s.client, s.competition.ID, s.request(s.losing))
	requireKind(t, err, models.ErrInvalidState)
	assert.Equal(t, models.RejectedProposal, f.proposal(s.losing.ID).Status)
}

func TestSelectWinnerConcurrentRequests(t *testing.T) {
	f := newFixture(t)
	s := newWinnerScenario(f)

	candidates := []*models.Proposal{s.winning, s.losing}
	var wg sync.WaitGroup
	errs := make([]error, len(candidates)*4)
	for i := range errs {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = f.competitions.SelectWinner(f.ctx, s.client, s.competition.ID, s.request(candidates[i%len(candidates)]))
		}(i)
	}
	wg.Wait()

	succeeded := 0
	for _, err := range errs {
		if err == nil {
			succeeded++
			continue
		}
		requireKind(t, err, models.ErrInvalidState)
	}
	assert.Equal(t, 1, succeeded)

	payments, err := f.store.Payments().ListPayments(f.ctx, models.PaymentFilter{ClientID: &s.client.UserID})
	require.NoError(t, err)
	assert.Len(t, payments, 1)
	assert.Equal(t, models.ClosedCompetition, f.competition(s.competition.ID).Status)

	winners := 0
	for _, id := range []uuid.UUID{s.winning.ID, s.losing.ID} {
		if f.proposal(id).IsWinner {
			winners++
		}
	}
	assert.Equal(t, 1, winners)
}

func TestSelectWinnerDeduplicatesFreelancers(t *testing.T) {
	f := newFixture(t)
	client := f.user(models.ClientRole)
	winner := f.user(models.FreelancerRole)
	repeat := f.user(models.FreelancerRole)
	c := f.openCompetition(client)
	won := f.submit(winner, c.ID)

	first := f.submit(repeat, c.ID)
	_, err := f.proposals.WithdrawProposal(f.ctx, repeat, first.ID)
	require.NoError(t, err)
	f.submit(repeat, c.ID)
	f.toReview(client, c.ID)

	_, err = f.competitions.SelectWinner(f.ctx, client, c.ID, models.SelectWinnerRequest{ProposalID: won.ID.String()})
	require.NoError(t, err)

	assert.Len(t, f.notificationsOf(repeat.UserID, models.ProposalRejectedNotification), 1)
	assert.Len(t, f.notificationsOf(repeat.UserID, models.CompetitionClosedNotification), 1)
	assert.Equal(t, models.WithdrawnProposal, f.proposal(first.ID).Status)
}

func TestSelectWinnerRollsBackOnPaymentConflict(t *testing.T) {
	f := newFixture(t)
	s := newWinnerScenario(f)

	existing := models.NewPaymentRecord(s.competition, s.loser.UserID, f.now)
	require.NoError(t, f.store.Payments().CreatePayment(f.ctx, existing))
	eventsBefore := len(f.store.PendingEvents())

	_, err := f.competitions.SelectWinner(f.ctx, s.client, s.competition.ID, s.request(s.winning))
	requireKind(t, err, models.ErrInvalidState)

	c := f.competition(s.competition.ID)
	assert.Equal(t, models.ReviewCompetition, c.Status)
	assert.Nil(t, c.WinnerID)
	assert.Nil(t, c.WinningProposalID)

	for _, p := range []*models.Proposal{s.winning, s.losing} {
		got := f.proposal(p.ID)
		assert.Equal(t, models.SubmittedProposal, got.Status)
		assert.False(t, got.IsWinner)
	}
	assert.Equal(t, models.WithdrawnProposal, f.proposal(s.retracted.ID).Status)

	assert.Empty(t, f.notificationsOf(s.winner.UserID, models.WinnerSelectedNotification))
	assert.Empty(t, f.notificationsOf(s.loser.UserID, models.ProposalRejectedNotification))
	assert.Len(t, f.store.PendingEvents(), eventsBefore)

	payment, err := f.store.Payments().GetPaymentByCompetition(f.ctx, c.ID)
	require.NoError(t, err)
	assert.Equal(t, existing.ID, payment.ID)
	assert.Zero(t, testutil.ToFloat64(f.metrics.WinnersSelected))
}

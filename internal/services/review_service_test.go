package services

import (
	"testing"

	"github.com/senyabanana/freelance-service/internal/auth"
	"github.com/senyabanana/freelance-service/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// closedCompetition проводит конкурс до выбора победителя и возвращает участников.
func closedCompetition(f *fixture, client auth.Principal, freelancers ...auth.Principal) *models.Competition {
	f.t.Helper()
	c := f.openCompetition(client)
	var first *models.Proposal
	for _, fr := range freelancers {
		p := f.submit(fr, c.ID)
		if first == nil {
			first = p
		}
	}
	f.toReview(client, c.ID)
	_, err := f.competitions.SelectWinner(f.ctx, client, c.ID, models.SelectWinnerRequest{ProposalID: first.ID.String()})
	require.NoError(f.t, err)
	return c
}

func TestReviewRatingRecompute(t *testing.T) {
	f := newFixture(t)
	freelancer := f.user(models.FreelancerRole)

	for _, rating := range []int{5, 4} {
		client := f.user(models.ClientRole)
		c := closedCompetition(f, client, freelancer)
		_, err := f.reviews.CreateReview(f.ctx, client, models.ReviewRequest{
			CompetitionID: c.ID,
			RevieweeID:    freelancer.UserID,
			Rating:        rating,
			Comment:       "ok",
		})
		require.NoError(t, err)
	}

	summary, err := f.reviews.ListUserReviews(f.ctx, freelancer.UserID)
	require.NoError(t, err)
	assert.Equal(t, "4.50", summary.RatingSummary.AverageRating.StringFixed(2))
	assert.Equal(t, 2, summary.RatingSummary.TotalReviews)
	assert.Len(t, summary.Reviews, 2)

	client := f.user(models.ClientRole)
	c := closedCompetition(f, client, freelancer)
	review, err := f.reviews.CreateReview(f.ctx, client, models.ReviewRequest{
		CompetitionID: c.ID,
		RevieweeID:    freelancer.UserID,
		Rating:        3,
		Comment:       "fine",
	})
	require.NoError(t, err)
	assert.Equal(t, models.ClientToFreelancerReview, review.Type)

	summary, err = f.reviews.ListUserReviews(f.ctx, freelancer.UserID)
	require.NoError(t, err)
	assert.Equal(t, "4.00", summary.RatingSummary.AverageRating.StringFixed(2))
	assert.Equal(t, 3, summary.RatingSummary.TotalReviews)

	assert.Len(t, f.notificationsOf(freelancer.UserID, models.NewReviewNotification), 3)
}

func TestPrivateReviewExcludedFromRating(t *testing.T) {
	f := newFixture(t)
	client := f.user(models.ClientRole)
	freelancer := f.user(models.FreelancerRole)
	c := closedCompetition(f, client, freelancer)

	hidden := false
	_, err := f.reviews.CreateReview(f.ctx, client, models.ReviewRequest{
		CompetitionID: c.ID,
		RevieweeID:    freelancer.UserID,
		Rating:        1,
		Comment:       "meh",
		IsPublic:      &hidden,
	})
	require.NoError(t, err)

	summary, err := f.reviews.ListUserReviews(f.ctx, freelancer.UserID)
	require.NoError(t, err)
	assert.Equal(t, "0.00", summary.RatingSummary.AverageRating.StringFixed(2))
	assert.Zero(t, summary.RatingSummary.TotalReviews)
	assert.Empty(t, summary.Reviews)
}

func TestReviewGates(t *testing.T) {
	f := newFixture(t)
	client := f.user(models.ClientRole)
	winner := f.user(models.FreelancerRole)
	loser := f.user(models.FreelancerRole)
	outsider := f.user(models.FreelancerRole)
	c := closedCompetition(f, client, winner, loser)

	open := f.openCompetition(client)
	_, err := f.reviews.CreateReview(f.ctx, client, models.ReviewRequest{CompetitionID: open.ID, RevieweeID: winner.UserID, Rating: 5, Comment: "x"})
	resp := requireKind(t, err, models.ErrValidation)
	assert.Equal(t, []string{"Reviews can only be submitted for closed competitions."}, resp.Errors["competition"])

	_, err = f.reviews.CreateReview(f.ctx, outsider, models.ReviewRequest{CompetitionID: c.ID, RevieweeID: client.UserID, Rating: 5, Comment: "x"})
	resp = requireKind(t, err, models.ErrValidation)
	assert.Contains(t, resp.Errors, "non_field_errors")

	_, err = f.reviews.CreateReview(f.ctx, client, models.ReviewRequest{CompetitionID: c.ID, RevieweeID: outsider.UserID, Rating: 5, Comment: "x"})
	resp = requireKind(t, err, models.ErrValidation)
	assert.Equal(t, []string{"Reviewee must be a freelancer who participated in this competition."}, resp.Errors["reviewee"])

	_, err = f.reviews.CreateReview(f.ctx, loser, models.ReviewRequest{CompetitionID: c.ID, RevieweeID: winner.UserID, Rating: 5, Comment: "x"})
	resp = requireKind(t, err, models.ErrValidation)
	assert.Equal(t, []string{"As a freelancer, you can only review the competition client."}, resp.Errors["reviewee"])

	review, err := f.reviews.CreateReview(f.ctx, loser, models.ReviewRequest{CompetitionID: c.ID, RevieweeID: client.UserID, Rating: 4, Comment: "fair"})
	require.NoError(t, err)
	assert.Equal(t, models.FreelancerToClientReview, review.Type)

	_, err = f.reviews.CreateReview(f.ctx, loser, models.ReviewRequest{CompetitionID: c.ID, RevieweeID: client.UserID, Rating: 4, Comment: "again"})
	resp = requireKind(t, err, models.ErrValidation)
	assert.Equal(t, []string{"You have already reviewed this competition."}, resp.Errors["competition"])

	_, err = f.reviews.CreateReview(f.ctx, client, models.ReviewRequest{CompetitionID: c.ID, RevieweeID: winner.UserID, Rating: 9, Comment: "x"})
	requireKind(t, err, models.ErrValidation)

	reviews, err := f.reviews.ListCompetitionReviews(f.ctx, c.ID)
	require.NoError(t, err)
	assert.Len(t, reviews, 1)
}

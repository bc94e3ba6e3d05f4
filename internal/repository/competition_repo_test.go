package repository_test

import (
	"context"
	"testing"
	"time"

	"github.com/senyabanana/freelance-service/internal/models"
	"github.com/senyabanana/freelance-service/internal/repository"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func competitionIDs(list []models.Competition) []uuid.UUID {
	ids := make([]uuid.UUID, 0, len(list))
	for _, c := range list {
		ids = append(ids, c.ID)
	}
	return ids
}

func TestPostgresListCompetitionsFilters(t *testing.T) {
	store := newPostgresStore(t)
	ctx := context.Background()
	client := createUser(t, store, models.ClientRole)
	otherClient := createUser(t, store, models.ClientRole)

	logo := createCompetition(t, store, client.ID, models.OpenCompetition, func(c *models.Competition) {
		c.Title = "Logo for bakery"
		c.Budget = decimal.RequireFromString("150.00")
	})
	site := createCompetition(t, store, client.ID, models.OpenCompetition, func(c *models.Competition) {
		c.Title = "Bakery website"
		c.Category = "web"
		c.Budget = decimal.RequireFromString("900.00")
		c.CreatedAt = testNow.Add(time.Hour)
	})
	video := createCompetition(t, store, otherClient.ID, models.OpenCompetition, func(c *models.Competition) {
		c.Title = "Promo video"
		c.Category = "video"
		c.Budget = decimal.RequireFromString("400.00")
		c.CreatedAt = testNow.Add(2 * time.Hour)
	})
	draft := createCompetition(t, store, client.ID, models.DraftCompetition, func(c *models.Competition) {
		c.Title = "Bakery menu"
		c.CreatedAt = testNow.Add(3 * time.Hour)
	})

	all, err := store.Competitions().ListCompetitions(ctx, models.CompetitionFilter{})
	require.NoError(t, err)
	assert.Equal(t, []uuid.UUID{draft.ID, video.ID, site.ID, logo.ID}, competitionIDs(all))

	open := models.OpenCompetition
	minBudget := decimal.RequireFromString("100")
	maxBudget := decimal.RequireFromString("500")
	got, err := store.Competitions().ListCompetitions(ctx, models.CompetitionFilter{
		Status:     &open,
		ClientID:   &client.ID,
		Search:     "bakery",
		Categories: []string{"design", "web"},
		MinBudget:  &minBudget,
		MaxBudget:  &maxBudget,
		Limit:      10,
	})
	require.NoError(t, err)
	assert.Equal(t, []uuid.UUID{logo.ID}, competitionIDs(got))

	got, err = store.Competitions().ListCompetitions(ctx, models.CompetitionFilter{Status: &open, Ordering: "-budget"})
	require.NoError(t, err)
	assert.Equal(t, []uuid.UUID{site.ID, video.ID, logo.ID}, competitionIDs(got))

	got, err = store.Competitions().ListCompetitions(ctx, models.CompetitionFilter{Status: &open, Ordering: "budget", Limit: 1, Offset: 1})
	require.NoError(t, err)
	assert.Equal(t, []uuid.UUID{video.ID}, competitionIDs(got))

	got, err = store.Competitions().ListCompetitions(ctx, models.CompetitionFilter{Categories: []string{"video"}, MaxBudget: &maxBudget})
	require.NoError(t, err)
	assert.Equal(t, []uuid.UUID{video.ID}, competitionIDs(got))
}

func TestPostgresCompetitionUpdateRoundTrip(t *testing.T) {
	store := newPostgresStore(t)
	ctx := context.Background()
	client := createUser(t, store, models.ClientRole)
	freelancer := createUser(t, store, models.FreelancerRole)
	c := createCompetition(t, store, client.ID, models.ReviewCompetition)
	p := createProposal(t, store, c.ID, freelancer.ID, testNow)

	c.Status = models.ClosedCompetition
	c.WinnerID = &freelancer.ID
	c.WinningProposalID = &p.ID
	require.NoError(t, store.Competitions().UpdateCompetition(ctx, c))

	got, err := store.Competitions().GetCompetition(ctx, c.ID)
	require.NoError(t, err)
	assert.Equal(t, models.ClosedCompetition, got.Status)
	require.NotNil(t, got.WinningProposalID)
	assert.Equal(t, p.ID, *got.WinningProposalID)
	assert.Equal(t, "500.00", got.Budget.StringFixed(2))

	_, err = store.Competitions().GetCompetitionForUpdate(ctx, uuid.New())
	assert.ErrorIs(t, err, repository.ErrNotFound)
}

func TestPostgresListExpiredOpen(t *testing.T) {
	store := newPostgresStore(t)
	ctx := context.Background()
	client := createUser(t, store, models.ClientRole)

	expired := createCompetition(t, store, client.ID, models.OpenCompetition, func(c *models.Competition) {
		c.SubmissionDeadline = testNow.Add(-time.Hour)
	})
	createCompetition(t, store, client.ID, models.OpenCompetition)
	createCompetition(t, store, client.ID, models.DraftCompetition, func(c *models.Competition) {
		c.SubmissionDeadline = testNow.Add(-time.Hour)
	})

	got, err := store.Competitions().ListExpiredOpen(ctx, testNow)
	require.NoError(t, err)
	assert.Equal(t, []uuid.UUID{expired.ID}, competitionIDs(got))
}

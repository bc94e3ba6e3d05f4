package services

import (
	"context"
	"testing"
	"time"

	"github.com/senyabanana/freelance-service/internal/auth"
	"github.com/senyabanana/freelance-service/internal/metrics"
	"github.com/senyabanana/freelance-service/internal/models"
	"github.com/senyabanana/freelance-service/internal/repository/memstore"
	"github.com/senyabanana/freelance-service/internal/storage"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type fixture struct {
	t   *testing.T
	ctx context.Context
	now time.Time

	store   *memstore.Store
	metrics *metrics.Metrics
	blobs   *storage.BlobStore

	competitions  *CompetitionService
	proposals     *ProposalService
	payments      *PaymentService
	notifications *NotificationService
	reviews       *ReviewService
	deadlines     *DeadlineService
	accounts      *AccountService
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	f := &fixture{
		t:       t,
		ctx:     context.Background(),
		now:     time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC),
		store:   memstore.New(),
		metrics: metrics.New(),
		blobs:   storage.NewMemBlobStore(),
	}
	clock := func() time.Time { return f.now }

	notifier := NewNotifier(f.metrics)
	notifier.now = clock
	logger := zap.NewNop()

	f.competitions = NewCompetitionService(f.store, notifier, f.metrics)
	f.competitions.now = clock
	f.proposals = NewProposalService(f.store, notifier, f.blobs, 10<<20, logger)
	f.proposals.now = clock
	f.payments = NewPaymentService(f.store.Payments())
	f.payments.now = clock
	f.notifications = NewNotificationService(f.store.Notifications())
	f.notifications.now = clock
	f.reviews = NewReviewService(f.store, notifier)
	f.reviews.now = clock
	f.deadlines = NewDeadlineService(f.store, notifier, f.metrics, logger)
	f.deadlines.now = clock
	f.accounts = NewAccountService(f.store.Users(), auth.NewTokenIssuer("test-secret", time.Hour))
	f.accounts.now = clock
	return f
}

func (f *fixture) advance(d time.Duration) {
	f.now = f.now.Add(d)
}

func (f *fixture) user(role models.Role) auth.Principal {
	f.t.Helper()
	id := uuid.New()
	require.NoError(f.t, f.store.Users().CreateUser(f.ctx, &models.User{
		ID:         id,
		Email:      id.String() + "@example.com",
		Username:   "user-" + id.String()[:8],
		Role:       role,
		IsActive:   true,
		DateJoined: f.now,
	}))
	return auth.Principal{UserID: id, Role: role}
}

func (f *fixture) competitionRequest() models.CompetitionRequest {
	return models.CompetitionRequest{
		Title:              "Landing page",
		Description:        "Design a landing page",
		Requirements:       "Figma source",
		Budget:             decimal.RequireFromString("500.00"),
		Deadline:           f.now.Add(30 * 24 * time.Hour),
		SubmissionDeadline: f.now.Add(7 * 24 * time.Hour),
		Category:           "design",
	}
}

func (f *fixture) draftCompetition(client auth.Principal) *models.Competition {
	f.t.Helper()
	c, err := f.competitions.CreateCompetition(f.ctx, client, f.competitionRequest())
	require.NoError(f.t, err)
	return c
}

func (f *fixture) openCompetition(client auth.Principal) *models.Competition {
	f.t.Helper()
	c := f.draftCompetition(client)
	_, err := f.competitions.ChangeStatus(f.ctx, client, c.ID, models.OpenCompetition)
	require.NoError(f.t, err)
	return f.competition(c.ID)
}

func (f *fixture) competition(id uuid.UUID) *models.Competition {
	f.t.Helper()
	c, err := f.store.Competitions().GetCompetition(f.ctx, id)
	require.NoError(f.t, err)
	return c
}

func (f *fixture) proposal(id uuid.UUID) *models.Proposal {
	f.t.Helper()
	p, err := f.store.Proposals().GetProposal(f.ctx, id)
	require.NoError(f.t, err)
	return p
}

func (f *fixture) submit(freelancer auth.Principal, competitionID uuid.UUID) *models.Proposal {
	f.t.Helper()
	p, err := f.proposals.SubmitProposal(f.ctx, freelancer, models.ProposalRequest{
		CompetitionID:     competitionID,
		Title:             "My proposal",
		Description:       "I will do it",
		ProposedBudget:    decimal.RequireFromString("450"),
		EstimatedDuration: 10,
	})
	require.NoError(f.t, err)
	return p
}

// toReview переводит открытый конкурс в REVIEW от имени владельца.
func (f *fixture) toReview(client auth.Principal, competitionID uuid.UUID) {
	f.t.Helper()
	_, err := f.competitions.ChangeStatus(f.ctx, client, competitionID, models.ReviewCompetition)
	require.NoError(f.t, err)
}

func (f *fixture) notificationsOf(recipient uuid.UUID, kind models.NotificationType) []models.Notification {
	f.t.Helper()
	list, err := f.store.Notifications().ListNotifications(f.ctx, recipient, models.NotificationFilter{Type: &kind})
	require.NoError(f.t, err)
	return list
}

func requireKind(t *testing.T, err error, kind *models.ErrorResponse) *models.ErrorResponse {
	t.Helper()
	require.Error(t, err)
	require.ErrorIs(t, err, kind)
	resp, ok := err.(*models.ErrorResponse)
	require.True(t, ok)
	return resp
}

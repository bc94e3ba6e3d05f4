package memstore

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/senyabanana/freelance-service/internal/models"
	"github.com/senyabanana/freelance-service/internal/repository"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newCompetition(clientID uuid.UUID, status models.CompetitionStatus, created time.Time) *models.Competition {
	return &models.Competition{
		ID:                 uuid.New(),
		ClientID:           clientID,
		Title:              "Competition",
		Budget:             decimal.NewFromInt(100),
		Currency:           "USD",
		Status:             status,
		Category:           "design",
		Deadline:           created.Add(30 * 24 * time.Hour),
		SubmissionDeadline: created.Add(7 * 24 * time.Hour),
		CreatedAt:          created,
		UpdatedAt:          created,
	}
}

func TestInTxRollsBackOnError(t *testing.T) {
	ctx := context.Background()
	store := New()
	boom := errors.New("boom")

	c := newCompetition(uuid.New(), models.OpenCompetition, time.Now())
	err := store.InTx(ctx, func(tx repository.Store) error {
		require.NoError(t, tx.Competitions().CreateCompetition(ctx, c))
		require.NoError(t, tx.Outbox().AppendEvent(ctx, &models.OutboxEvent{ID: uuid.New(), RoutingKey: "x"}))
		return boom
	})
	require.ErrorIs(t, err, boom)

	_, err = store.Competitions().GetCompetition(ctx, c.ID)
	assert.ErrorIs(t, err, repository.ErrNotFound)
	assert.Empty(t, store.PendingEvents())
}

func TestInTxCommitsAndNests(t *testing.T) {
	ctx := context.Background()
	store := New()

	c := newCompetition(uuid.New(), models.DraftCompetition, time.Now())
	err := store.InTx(ctx, func(tx repository.Store) error {
		if err := tx.Competitions().CreateCompetition(ctx, c); err != nil {
			return err
		}
		return tx.InTx(ctx, func(inner repository.Store) error {
			loaded, err := inner.Competitions().GetCompetitionForUpdate(ctx, c.ID)
			if err != nil {
				return err
			}
			loaded.Status = models.OpenCompetition
			return inner.Competitions().UpdateCompetition(ctx, loaded)
		})
	})
	require.NoError(t, err)

	got, err := store.Competitions().GetCompetition(ctx, c.ID)
	require.NoError(t, err)
	assert.Equal(t, models.OpenCompetition, got.Status)
}

func TestInTxSerializesWriters(t *testing.T) {
	ctx := context.Background()
	store := New()
	c := newCompetition(uuid.New(), models.ReviewCompetition, time.Now())
	require.NoError(t, store.Competitions().CreateCompetition(ctx, c))

	var (
		wg      sync.WaitGroup
		mu      sync.Mutex
		winners int
	)
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_ = store.InTx(ctx, func(tx repository.Store) error {
				loaded, err := tx.Competitions().GetCompetitionForUpdate(ctx, c.ID)
				if err != nil {
					return err
				}
				if loaded.Status != models.ReviewCompetition {
					return nil
				}
				loaded.Status = models.ClosedCompetition
				if err := tx.Competitions().UpdateCompetition(ctx, loaded); err != nil {
					return err
				}
				mu.Lock()
				winners++
				mu.Unlock()
				return nil
			})
		}()
	}
	wg.Wait()
	assert.Equal(t, 1, winners)
}

func TestInTxCancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	called := false
	err := New().InTx(ctx, func(repository.Store) error {
		called = true
		return nil
	})
	assert.ErrorIs(t, err, context.Canceled)
	assert.False(t, called)
}

func TestPaymentUniqueness(t *testing.T) {
	ctx := context.Background()
	store := New()
	c := newCompetition(uuid.New(), models.ClosedCompetition, time.Now())

	first := models.NewPaymentRecord(c, uuid.New(), time.Now())
	require.NoError(t, store.Payments().CreatePayment(ctx, first))

	second := models.NewPaymentRecord(c, uuid.New(), time.Now())
	assert.ErrorIs(t, store.Payments().CreatePayment(ctx, second), repository.ErrConflict)
}

func TestListCompetitionsFiltersAndOrders(t *testing.T) {
	ctx := context.Background()
	store := New()
	clientID := uuid.New()
	base := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)

	cheap := newCompetition(clientID, models.OpenCompetition, base)
	cheap.Budget = decimal.NewFromInt(50)
	pricey := newCompetition(clientID, models.OpenCompetition, base.Add(time.Hour))
	pricey.Budget = decimal.NewFromInt(900)
	draft := newCompetition(clientID, models.DraftCompetition, base.Add(2*time.Hour))
	for _, c := range []*models.Competition{cheap, pricey, draft} {
		require.NoError(t, store.Competitions().CreateCompetition(ctx, c))
	}

	open := models.OpenCompetition
	got, err := store.Competitions().ListCompetitions(ctx, models.CompetitionFilter{Status: &open, Ordering: "budget"})
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, cheap.ID, got[0].ID)

	got, err = store.Competitions().ListCompetitions(ctx, models.CompetitionFilter{ClientID: &clientID})
	require.NoError(t, err)
	require.Len(t, got, 3)
	assert.Equal(t, draft.ID, got[0].ID)

	got, err = store.Competitions().ListCompetitions(ctx, models.CompetitionFilter{ClientID: &clientID, Limit: 1, Offset: 1})
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, pricey.ID, got[0].ID)
}

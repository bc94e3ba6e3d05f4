package repository_test

import (
	"context"
	"testing"
	"time"

	"github.com/senyabanana/freelance-service/internal/models"
	"github.com/senyabanana/freelance-service/internal/repository"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPostgresPaymentUniquePerCompetition(t *testing.T) {
	store := newPostgresStore(t)
	ctx := context.Background()
	client := createUser(t, store, models.ClientRole)
	freelancer := createUser(t, store, models.FreelancerRole)
	c := createCompetition(t, store, client.ID, models.ClosedCompetition)

	first := models.NewPaymentRecord(c, freelancer.ID, testNow)
	require.NoError(t, store.Payments().CreatePayment(ctx, first))

	second := models.NewPaymentRecord(c, freelancer.ID, testNow)
	assert.ErrorIs(t, store.Payments().CreatePayment(ctx, second), repository.ErrConflict)

	got, err := store.Payments().GetPaymentByCompetition(ctx, c.ID)
	require.NoError(t, err)
	assert.Equal(t, first.ID, got.ID)
	assert.Equal(t, "50.00", got.PlatformFee.StringFixed(2))
	assert.Equal(t, "450.00", got.NetAmount.StringFixed(2))
}

func TestPostgresListPaymentsFilters(t *testing.T) {
	store := newPostgresStore(t)
	ctx := context.Background()
	client := createUser(t, store, models.ClientRole)
	freelancer := createUser(t, store, models.FreelancerRole)
	other := createUser(t, store, models.FreelancerRole)

	var payments []*models.PaymentRecord
	for i, payee := range []uuid.UUID{freelancer.ID, freelancer.ID, other.ID} {
		c := createCompetition(t, store, client.ID, models.ClosedCompetition)
		p := models.NewPaymentRecord(c, payee, testNow.Add(time.Duration(i)*24*time.Hour))
		require.NoError(t, store.Payments().CreatePayment(ctx, p))
		payments = append(payments, p)
	}

	processing := payments[1]
	processing.Status = models.ProcessingPayment
	require.NoError(t, store.Payments().UpdatePayment(ctx, processing))

	all, err := store.Payments().ListPayments(ctx, models.PaymentFilter{ClientID: &client.ID})
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.Equal(t, payments[2].ID, all[0].ID)

	pending := models.PendingPayment
	from := testNow.Add(-time.Hour)
	to := testNow.Add(36 * time.Hour)
	got, err := store.Payments().ListPayments(ctx, models.PaymentFilter{
		ClientID:     &client.ID,
		FreelancerID: &freelancer.ID,
		Status:       &pending,
		From:         &from,
		To:           &to,
		Limit:        10,
	})
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, payments[0].ID, got[0].ID)

	got, err = store.Payments().ListPayments(ctx, models.PaymentFilter{FreelancerID: &freelancer.ID, Limit: 1, Offset: 1})
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, payments[0].ID, got[0].ID)
}

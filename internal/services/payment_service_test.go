package services

import (
	"testing"

	"github.com/senyabanana/freelance-service/internal/auth"
	"github.com/senyabanana/freelance-service/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func paidCompetition(f *fixture) (client, freelancer auth.Principal, payment *models.PaymentRecord) {
	f.t.Helper()
	client = f.user(models.ClientRole)
	freelancer = f.user(models.FreelancerRole)
	c := closedCompetition(f, client, freelancer)
	payment, err := f.store.Payments().GetPaymentByCompetition(f.ctx, c.ID)
	require.NoError(f.t, err)
	return client, freelancer, payment
}

func TestPaymentVisibility(t *testing.T) {
	f := newFixture(t)
	client, freelancer, payment := paidCompetition(f)
	admin := f.user(models.AdminRole)
	stranger := f.user(models.ClientRole)

	for _, viewer := range []auth.Principal{client, freelancer, admin} {
		got, err := f.payments.GetPayment(f.ctx, viewer, payment.ID)
		require.NoError(t, err)
		assert.Equal(t, payment.ID, got.ID)
	}
	_, err := f.payments.GetPayment(f.ctx, stranger, payment.ID)
	requireKind(t, err, models.ErrForbidden)

	mine, err := f.payments.ListClientPayments(f.ctx, client, models.Page{})
	require.NoError(t, err)
	assert.Len(t, mine, 1)
	earned, err := f.payments.ListFreelancerPayments(f.ctx, freelancer, models.Page{})
	require.NoError(t, err)
	assert.Len(t, earned, 1)
}

func TestPaymentStatusTransitions(t *testing.T) {
	f := newFixture(t)
	client, _, payment := paidCompetition(f)
	admin := f.user(models.AdminRole)

	_, err := f.payments.UpdatePaymentStatus(f.ctx, client, payment.ID, models.PaymentStatusRequest{Status: "PROCESSING"})
	requireKind(t, err, models.ErrForbidden)

	_, err = f.payments.UpdatePaymentStatus(f.ctx, admin, payment.ID, models.PaymentStatusRequest{Status: "COMPLETED"})
	resp := requireKind(t, err, models.ErrInvalidTransition)
	assert.Equal(t, []string{"PROCESSING"}, resp.Errors["allowed"])

	updated, err := f.payments.UpdatePaymentStatus(f.ctx, admin, payment.ID, models.PaymentStatusRequest{Status: "processing"})
	require.NoError(t, err)
	assert.Equal(t, models.ProcessingPayment, updated.Status)
	assert.Nil(t, updated.CompletedAt)

	ref := "TX-1"
	updated, err = f.payments.UpdatePaymentStatus(f.ctx, admin, payment.ID, models.PaymentStatusRequest{Status: "COMPLETED", TransactionReference: &ref})
	require.NoError(t, err)
	require.NotNil(t, updated.CompletedAt)
	assert.Equal(t, f.now, *updated.CompletedAt)
	assert.Equal(t, "50.00", updated.PlatformFee.StringFixed(2))

	_, err = f.payments.UpdatePaymentStatus(f.ctx, admin, payment.ID, models.PaymentStatusRequest{Status: "nonsense"})
	requireKind(t, err, models.ErrValidation)

	_, _, second := paidCompetition(f)
	for _, status := range []string{"PROCESSING", "FAILED"} {
		_, err = f.payments.UpdatePaymentStatus(f.ctx, admin, second.ID, models.PaymentStatusRequest{Status: status})
		require.NoError(t, err)
	}
	_, err = f.payments.UpdatePaymentStatus(f.ctx, admin, second.ID, models.PaymentStatusRequest{Status: "REFUNDED"})
	requireKind(t, err, models.ErrInvalidTransition)
}

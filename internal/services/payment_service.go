package services

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/senyabanana/freelance-service/internal/auth"
	"github.com/senyabanana/freelance-service/internal/models"
	"github.com/senyabanana/freelance-service/internal/repository"

	"github.com/google/uuid"
)

type PaymentService struct {
	Repo repository.PaymentRepository
	now  Clock
}

// NewPaymentService создаёт новый экземпляр PaymentService.
func NewPaymentService(repo repository.PaymentRepository) *PaymentService {
	return &PaymentService{Repo: repo, now: utcNow}
}

// ParsePaymentStatus проверяет значение статуса платежа.
func ParsePaymentStatus(raw string) (models.PaymentStatus, error) {
	status := models.PaymentStatus(strings.ToUpper(strings.TrimSpace(raw)))
	if !status.Valid() {
		return "", models.NewValidationError("status", fmt.Sprintf("%q is not a valid choice.", raw))
	}
	return status, nil
}

// ListClientPayments возвращает платежи заказчика.
func (s *PaymentService) ListClientPayments(ctx context.Context, actor auth.Principal, page models.Page) ([]models.PaymentRecord, error) {
	return s.Repo.ListPayments(ctx, models.PaymentFilter{ClientID: &actor.UserID, Limit: page.Limit, Offset: page.Offset})
}

// ListFreelancerPayments возвращает выплаты исполнителю.
func (s *PaymentService) ListFreelancerPayments(ctx context.Context, actor auth.Principal, page models.Page) ([]models.PaymentRecord, error) {
	return s.Repo.ListPayments(ctx, models.PaymentFilter{FreelancerID: &actor.UserID, Limit: page.Limit, Offset: page.Offset})
}

// ListPayments - административный список с фильтрами.
func (s *PaymentService) ListPayments(ctx context.Context, filter models.PaymentFilter) ([]models.PaymentRecord, error) {
	if filter.From != nil && filter.To != nil && filter.From.After(*filter.To) {
		return nil, models.NewValidationError("date_from", "date_from must not be after date_to.")
	}
	return s.Repo.ListPayments(ctx, filter)
}

// GetPayment доступен участникам платежа и администратору.
func (s *PaymentService) GetPayment(ctx context.Context, actor auth.Principal, id uuid.UUID) (*models.PaymentRecord, error) {
	payment, err := s.Repo.GetPayment(ctx, id)
	if err != nil {
		return nil, notFound(err, "Payment not found.")
	}
	isFreelancer := payment.FreelancerID != nil && *payment.FreelancerID == actor.UserID
	if actor.Role != models.AdminRole && payment.ClientID != actor.UserID && !isFreelancer {
		return nil, models.NewForbidden("You do not have permission to view this payment.")
	}
	return payment, nil
}

// UpdatePaymentStatus переводит платёж по его таблице переходов.
func (s *PaymentService) UpdatePaymentStatus(ctx context.Context, actor auth.Principal, id uuid.UUID, req models.PaymentStatusRequest) (*models.PaymentRecord, error) {
	if actor.Role != models.AdminRole {
		return nil, models.NewForbidden("Only administrators can update payment status.")
	}
	target, err := ParsePaymentStatus(req.Status)
	if err != nil {
		return nil, err
	}

	payment, err := s.Repo.GetPayment(ctx, id)
	if err != nil {
		return nil, notFound(err, "Payment not found.")
	}
	if !payment.Status.CanTransitionTo(target) {
		return nil, models.NewInvalidTransition(payment.Status, target, payment.Status.AllowedTransitions())
	}

	now := s.now()
	payment.Status = target
	payment.UpdatedAt = now
	if target == models.CompletedPayment {
		payment.CompletedAt = &now
	}
	if req.TransactionReference != nil {
		payment.TransactionReference = req.TransactionReference
	}
	if req.Notes != nil {
		payment.Notes = *req.Notes
	}
	if err := s.Repo.UpdatePayment(ctx, payment); err != nil {
		if errors.Is(err, repository.ErrConflict) {
			return nil, models.NewValidationError("transaction_reference", "Payment with this transaction reference already exists.")
		}
		return nil, err
	}
	return payment, nil
}

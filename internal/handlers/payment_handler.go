package handlers

import (
	"fmt"
	"net/http"
	"time"

	"github.com/senyabanana/freelance-service/internal/models"
	"github.com/senyabanana/freelance-service/internal/services"
	"github.com/senyabanana/freelance-service/internal/utils"

	"go.uber.org/zap"
)

const paymentNotFound = "Payment not found."

// PaymentHandler - HTTP-обработчики платёжных записей.
type PaymentHandler struct {
	Service *services.PaymentService
	Logger  *zap.Logger
	Timeout time.Duration
}

// NewPaymentHandler создаёт новый экземпляр PaymentHandler.
func NewPaymentHandler(service *services.PaymentService, logger *zap.Logger, timeout time.Duration) *PaymentHandler {
	return &PaymentHandler{Service: service, Logger: logger, Timeout: timeout}
}

func parseDateParam(r *http.Request, name string) (*time.Time, error) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return nil, nil
	}
	if t, err := time.Parse(time.RFC3339, raw); err == nil {
		return &t, nil
	}
	t, err := time.Parse(time.DateOnly, raw)
	if err != nil {
		return nil, models.NewValidationError(name, "Enter a valid date.")
	}
	return &t, nil
}

// ClientPayments обрабатывает GET /api/payments/client.
func (h *PaymentHandler) ClientPayments(w http.ResponseWriter, r *http.Request) {
	actor, ok := principal(w, r)
	if !ok {
		return
	}
	ctx, cancel := withTimeout(r, h.Timeout)
	defer cancel()

	page, err := utils.ParsePage(r)
	if err != nil {
		fail(h.Logger, w, r, err)
		return
	}
	payments, err := h.Service.ListClientPayments(ctx, actor, page)
	if err != nil {
		fail(h.Logger, w, r, err)
		return
	}
	utils.SendSuccess(w, http.StatusOK, "Client payments retrieved.", payments)
}

// FreelancerPayments обрабатывает GET /api/payments/freelancer.
func (h *PaymentHandler) FreelancerPayments(w http.ResponseWriter, r *http.Request) {
	actor, ok := principal(w, r)
	if !ok {
		return
	}
	ctx, cancel := withTimeout(r, h.Timeout)
	defer cancel()

	page, err := utils.ParsePage(r)
	if err != nil {
		fail(h.Logger, w, r, err)
		return
	}
	payments, err := h.Service.ListFreelancerPayments(ctx, actor, page)
	if err != nil {
		fail(h.Logger, w, r, err)
		return
	}
	utils.SendSuccess(w, http.StatusOK, "Freelancer payments retrieved.", payments)
}

// Get обрабатывает GET /api/payments/{id}.
func (h *PaymentHandler) Get(w http.ResponseWriter, r *http.Request) {
	actor, ok := principal(w, r)
	if !ok {
		return
	}
	ctx, cancel := withTimeout(r, h.Timeout)
	defer cancel()

	id, err := pathUUID(r, "id", paymentNotFound)
	if err != nil {
		fail(h.Logger, w, r, err)
		return
	}
	payment, err := h.Service.GetPayment(ctx, actor, id)
	if err != nil {
		fail(h.Logger, w, r, err)
		return
	}
	utils.SendSuccess(w, http.StatusOK, "Payment detail retrieved.", payment)
}

// AdminList обрабатывает GET /api/payments.
func (h *PaymentHandler) AdminList(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := withTimeout(r, h.Timeout)
	defer cancel()

	page, err := utils.ParsePage(r)
	if err != nil {
		fail(h.Logger, w, r, err)
		return
	}
	filter := models.PaymentFilter{Limit: page.Limit, Offset: page.Offset}
	if raw := r.URL.Query().Get("status"); raw != "" {
		status, err := services.ParsePaymentStatus(raw)
		if err != nil {
			fail(h.Logger, w, r, err)
			return
		}
		filter.Status = &status
	}
	if filter.From, err = parseDateParam(r, "date_from"); err != nil {
		fail(h.Logger, w, r, err)
		return
	}
	if filter.To, err = parseDateParam(r, "date_to"); err != nil {
		fail(h.Logger, w, r, err)
		return
	}

	payments, err := h.Service.ListPayments(ctx, filter)
	if err != nil {
		fail(h.Logger, w, r, err)
		return
	}
	utils.SendSuccess(w, http.StatusOK, "All payments retrieved.", payments)
}

// UpdateStatus обрабатывает POST /api/payments/{id}/status.
func (h *PaymentHandler) UpdateStatus(w http.ResponseWriter, r *http.Request) {
	actor, ok := principal(w, r)
	if !ok {
		return
	}
	ctx, cancel := withTimeout(r, h.Timeout)
	defer cancel()

	id, err := pathUUID(r, "id", paymentNotFound)
	if err != nil {
		fail(h.Logger, w, r, err)
		return
	}
	var req models.PaymentStatusRequest
	if err := utils.DecodeJSON(r, &req); err != nil {
		fail(h.Logger, w, r, err)
		return
	}
	payment, err := h.Service.UpdatePaymentStatus(ctx, actor, id, req)
	if err != nil {
		fail(h.Logger, w, r, err)
		return
	}
	utils.SendSuccess(w, http.StatusOK, fmt.Sprintf("Payment status updated to %s.", payment.Status), payment)
}

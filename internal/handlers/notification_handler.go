package handlers

import (
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/senyabanana/freelance-service/internal/models"
	"github.com/senyabanana/freelance-service/internal/services"
	"github.com/senyabanana/freelance-service/internal/utils"

	"go.uber.org/zap"
)

// NotificationHandler - HTTP-обработчики уведомлений.
type NotificationHandler struct {
	Service *services.NotificationService
	Logger  *zap.Logger
	Timeout time.Duration
}

// NewNotificationHandler создаёт новый экземпляр NotificationHandler.
func NewNotificationHandler(service *services.NotificationService, logger *zap.Logger, timeout time.Duration) *NotificationHandler {
	return &NotificationHandler{Service: service, Logger: logger, Timeout: timeout}
}

// List обрабатывает GET /api/notifications.
func (h *NotificationHandler) List(w http.ResponseWriter, r *http.Request) {
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
	filter := models.NotificationFilter{Limit: page.Limit, Offset: page.Offset}
	q := r.URL.Query()
	if raw := q.Get("is_read"); raw != "" {
		isRead, err := strconv.ParseBool(raw)
		if err != nil {
			fail(h.Logger, w, r, models.NewValidationError("is_read", "Must be a valid boolean."))
			return
		}
		filter.IsRead = &isRead
	}
	if raw := q.Get("type"); raw != "" {
		kind := models.NotificationType(strings.ToUpper(raw))
		filter.Type = &kind
	}

	list, err := h.Service.ListNotifications(ctx, actor, filter)
	if err != nil {
		fail(h.Logger, w, r, err)
		return
	}
	utils.SendSuccess(w, http.StatusOK, "Notifications retrieved.", list)
}

// MarkRead обрабатывает POST /api/notifications/mark-read.
func (h *NotificationHandler) MarkRead(w http.ResponseWriter, r *http.Request) {
	actor, ok := principal(w, r)
	if !ok {
		return
	}
	ctx, cancel := withTimeout(r, h.Timeout)
	defer cancel()

	var req models.MarkReadRequest
	if err := utils.DecodeJSON(r, &req); err != nil {
		fail(h.Logger, w, r, err)
		return
	}
	n, err := h.Service.MarkRead(ctx, actor, req)
	if err != nil {
		fail(h.Logger, w, r, err)
		return
	}
	utils.SendSuccess(w, http.StatusOK, fmt.Sprintf("%d notification(s) marked as read.", n), map[string]int64{"updated": n})
}

// MarkAllRead обрабатывает POST /api/notifications/mark-all-read.
func (h *NotificationHandler) MarkAllRead(w http.ResponseWriter, r *http.Request) {
	actor, ok := principal(w, r)
	if !ok {
		return
	}
	ctx, cancel := withTimeout(r, h.Timeout)
	defer cancel()

	n, err := h.Service.MarkAllRead(ctx, actor)
	if err != nil {
		fail(h.Logger, w, r, err)
		return
	}
	utils.SendSuccess(w, http.StatusOK, fmt.Sprintf("%d notification(s) marked as read.", n), map[string]int64{"updated": n})
}

func (h *NotificationHandler) UnreadCount(w http.ResponseWriter, r *http.Request) {
	actor, ok := principal(w, r)
	if !ok {
		return
	}
	ctx, cancel := withTimeout(r, h.Timeout)
	defer cancel()

	n, err := h.Service.UnreadCount(ctx, actor)
	if err != nil {
		fail(h.Logger, w, r, err)
		return
	}
	utils.SendSuccess(w, http.StatusOK, "Unread count retrieved.", map[string]int{"unread_count": n})
}

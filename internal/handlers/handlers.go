package handlers

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/senyabanana/freelance-service/internal/auth"
	"github.com/senyabanana/freelance-service/internal/models"
	"github.com/senyabanana/freelance-service/internal/utils"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

func withTimeout(r *http.Request, timeout time.Duration) (context.Context, context.CancelFunc) {
	if timeout <= 0 {
		return context.WithCancel(r.Context())
	}
	return context.WithTimeout(r.Context(), timeout)
}

// fail отправляет ошибку клиенту. Непредвиденные ошибки пишутся в лог.
func fail(logger *zap.Logger, w http.ResponseWriter, r *http.Request, err error) {
	var errResp *models.ErrorResponse
	if errors.As(err, &errResp) {
		logger.Debug("request rejected",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.String("kind", string(errResp.Kind)),
			zap.String("message", errResp.Message))
	} else {
		logger.Error("request failed",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Error(err))
	}
	utils.SendError(w, err)
}

// principal возвращает пользователя запроса. Маршрут должен быть закрыт Authenticate.
func principal(w http.ResponseWriter, r *http.Request) (auth.Principal, bool) {
	p, ok := auth.FromContext(r.Context())
	if !ok {
		utils.SendError(w, models.NewUnauthorized("Authentication credentials were not provided."))
	}
	return p, ok
}

func pathUUID(r *http.Request, name, notFoundMsg string) (uuid.UUID, error) {
	id, err := uuid.Parse(chi.URLParam(r, name))
	if err != nil {
		return uuid.Nil, models.NewNotFound(notFoundMsg)
	}
	return id, nil
}

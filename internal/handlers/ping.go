package handlers

import (
	"net/http"

	"github.com/senyabanana/freelance-service/internal/utils"
)

// PingHandler обрабатывает GET запрос к /api/ping
func PingHandler(w http.ResponseWriter, _ *http.Request) {
	utils.SendSuccess(w, http.StatusOK, "ok", nil)
}

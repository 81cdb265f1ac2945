package handler

import (
	"net/http"
	"strconv"

	"github.com/xela07ax/campusface-client/internal/console/service"
)

type AuditHandler struct {
	service *service.AuditService
}

func NewAuditHandler(s *service.AuditService) *AuditHandler {
	return &AuditHandler{service: s}
}

// Recent возвращает последние решения рецензентов
// GET /v1/decisions?scope=...&limit=...
func (h *AuditHandler) Recent(w http.ResponseWriter, r *http.Request) {
	scope := r.URL.Query().Get("scope")
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))

	events, err := h.service.Recent(r.Context(), scope, limit)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, events)
}

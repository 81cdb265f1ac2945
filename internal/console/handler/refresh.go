package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/xela07ax/campusface-client/internal/console/service"
)

type RefreshHandler struct {
	service *service.ReviewService
}

func NewRefreshHandler(s *service.ReviewService) *RefreshHandler {
	return &RefreshHandler{service: s}
}

// Refresh POST /v1/refresh/{scope}; "*" - все сессии.
func (h *RefreshHandler) Refresh(w http.ResponseWriter, r *http.Request) {
	published, local, err := h.service.Refresh(r.Context(), chi.URLParam(r, "scope"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusAccepted, map[string]any{
		"published": published,
		"sessions":  local,
	})
}

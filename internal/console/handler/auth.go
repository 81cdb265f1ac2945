package handler

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/xela07ax/campusface-client/internal/console/service"
	"github.com/xela07ax/campusface-client/internal/domain"
)

type AuthHandler struct {
	service *service.AuthService
}

func NewAuthHandler(s *service.AuthService) *AuthHandler {
	return &AuthHandler{service: s}
}

func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req domain.LoginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "bad request", http.StatusBadRequest)
		return
	}

	resp, err := h.service.Login(r.Context(), req.Email, req.Password)
	if err != nil {
		var failure *domain.Failure
		// API ответил отказом - это неверные учетные данные, иначе недоступен сам API
		if errors.Is(err, service.ErrInvalidCredentials) || (errors.As(err, &failure) && failure.Status >= 400 && failure.Status < 500) {
			http.Error(w, "Unauthorized", http.StatusUnauthorized)
			return
		}
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, resp)
}

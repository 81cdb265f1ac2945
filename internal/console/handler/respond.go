package handler

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/xela07ax/campusface-client/internal/console/service"
	"github.com/xela07ax/campusface-client/internal/domain"
)

type errorBody struct {
	Error string `json:"error"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

// writeError сводит ошибки сервисов к HTTP-статусам.
func writeError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	var failure *domain.Failure
	switch {
	case errors.Is(err, domain.ErrNotFound), errors.Is(err, service.ErrNotInCollection):
		status = http.StatusNotFound
	case errors.Is(err, domain.ErrUnknownKind):
		status = http.StatusBadRequest
	case errors.Is(err, service.ErrJournalUnavailable):
		status = http.StatusNotImplemented
	case errors.As(err, &failure):
		status = http.StatusBadGateway
	}
	writeJSON(w, status, errorBody{Error: err.Error()})
}

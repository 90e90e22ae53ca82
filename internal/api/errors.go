package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"go.uber.org/zap"

	"pagebuilder/internal/editor"
	"pagebuilder/internal/service"
)

// statusFor maps domain errors onto HTTP status codes.
func statusFor(err error) int {
	switch {
	case errors.Is(err, editor.ErrUnknownElement),
		errors.Is(err, editor.ErrUnknownTemplate),
		errors.Is(err, editor.ErrUnknownAsset),
		errors.Is(err, service.ErrUnknownHistoryNode):
		return http.StatusNotFound
	case errors.Is(err, editor.ErrUnknownKind),
		errors.Is(err, editor.ErrInvalidPageName),
		errors.Is(err, editor.ErrUnknownEventType),
		errors.Is(err, service.ErrInvalidProduct),
		errors.Is(err, service.ErrInvalidVisualConfig):
		return http.StatusBadRequest
	case errors.Is(err, editor.ErrNoSelection),
		errors.Is(err, editor.ErrAlreadyCaptured),
		errors.Is(err, service.ErrDeployInProgress),
		errors.Is(err, service.ErrActivePage),
		errors.Is(err, service.ErrNothingToUndo),
		errors.Is(err, service.ErrNothingToRedo),
		errors.Is(err, service.ErrNoPendingBuild):
		return http.StatusConflict
	case errors.Is(err, editor.ErrEmptyWorkspace),
		errors.Is(err, editor.ErrNotTextual):
		return http.StatusUnprocessableEntity
	}
	return http.StatusInternalServerError
}

type errorBody struct {
	Error string `json:"error"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func (h *Handler) writeError(w http.ResponseWriter, err error) {
	status := statusFor(err)
	if status == http.StatusInternalServerError {
		h.log.Error("request failed", zap.Error(err))
	}
	writeJSON(w, status, errorBody{Error: err.Error()})
}

func badRequest(w http.ResponseWriter, msg string) {
	writeJSON(w, http.StatusBadRequest, errorBody{Error: msg})
}

func decodeBody(r *http.Request, v any) error {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	return dec.Decode(v)
}

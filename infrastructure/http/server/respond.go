package server

import (
	"batepapo-uol-api/errors"
	"encoding/json"
	goerrors "errors"
	"log/slog"
	"net/http"
)

const (
	msgParticipantExists   = "Participante já cadastrado"
	msgParticipantNotFound = "Participante não existe"
	msgInvalidPayload      = "Dados inválidos"
	msgInternal            = "internal error"
)

type errorResponse struct {
	Error  string              `json:"error"`
	Fields []errors.FieldError `json:"fields,omitempty"`
}

func respondJSON(log *slog.Logger, w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if payload == nil {
		return
	}
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		log.Error("Failed to encode response", "error", err)
	}
}

func respondError(log *slog.Logger, w http.ResponseWriter, status int, message string) {
	respondJSON(log, w, status, errorResponse{Error: message})
}

// respondDomainError maps the error taxonomy onto HTTP status codes.
// Anything outside the domain errors is reported as a generic server fault.
func respondDomainError(log *slog.Logger, w http.ResponseWriter, err error) {
	var validationErr *errors.ValidationError
	switch {
	case goerrors.As(err, &validationErr):
		respondJSON(log, w, http.StatusUnprocessableEntity, errorResponse{Error: msgInvalidPayload, Fields: validationErr.Fields})
	case goerrors.Is(err, errors.ErrParticipantAlreadyExists):
		respondError(log, w, http.StatusConflict, msgParticipantExists)
	case goerrors.Is(err, errors.ErrUnknownSender):
		respondError(log, w, http.StatusUnprocessableEntity, msgParticipantNotFound)
	case goerrors.Is(err, errors.ErrParticipantNotFound):
		respondError(log, w, http.StatusNotFound, msgParticipantNotFound)
	default:
		log.Error("Request failed", "error", err)
		respondError(log, w, http.StatusInternalServerError, msgInternal)
	}
}

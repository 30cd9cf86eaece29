package http

import (
	"encoding/json"
	"errors"
	"net/http"

	"spry/internal/core"
	"spry/internal/log"
)

const msgInternal = "internal server error"

type errorBody struct {
	Error string `json:"error"`
}

type messageBody struct {
	Message string `json:"message"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if v == nil {
		return
	}
	_ = json.NewEncoder(w).Encode(v)
}

func writeMessage(w http.ResponseWriter, message string) {
	writeJSON(w, http.StatusOK, messageBody{Message: message})
}

func writeErrorMessage(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, errorBody{Error: message})
}

// writeError maps the error taxonomy onto a status code. Anything that is not
// a validation or not-found error is logged and hidden behind a generic
// message.
func writeError(w http.ResponseWriter, r *http.Request, err error) {
	logger := log.FromContext(r.Context())

	var nf *core.NotFoundError
	switch {
	case core.IsValidation(err):
		logger.DebugContext(r.Context(), "Request rejected",
			log.FieldErrorType, log.ErrorTypeValidation,
			log.FieldError, err.Error())
		writeErrorMessage(w, http.StatusBadRequest, err.Error())
	case errors.As(err, &nf):
		writeErrorMessage(w, http.StatusNotFound, nf.Error())
	case core.IsNotFound(err):
		writeErrorMessage(w, http.StatusNotFound, "not found")
	default:
		errType := log.ErrorTypeInternal
		if errors.Is(err, core.ErrTransaction) {
			errType = log.ErrorTypeTransaction
		}
		logger.ErrorContext(r.Context(), "Request failed",
			log.FieldErrorType, errType,
			log.FieldError, err.Error())
		writeErrorMessage(w, http.StatusInternalServerError, msgInternal)
	}
}

// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/pdiddy/epandda/internal/logging"
	apperrors "github.com/pdiddy/epandda/pkg/errors"
)

// ErrorBody is the error envelope: messages keyed by parameter name, or
// GENERAL for failures not tied to a parameter.
type ErrorBody struct {
	Errors map[string][]string `json:"errors"`
}

func generalError(msg string) ErrorBody {
	return ErrorBody{Errors: map[string][]string{apperrors.GeneralField: {msg}}}
}

// writeJSON writes v with status.
func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	// Headers are already sent; encoding errors cannot be reported.
	_ = json.NewEncoder(w).Encode(v)
}

func writeErrors(w http.ResponseWriter, status int, body ErrorBody) {
	writeJSON(w, status, body)
}

// writeError maps err to a status and error envelope.
func writeError(w http.ResponseWriter, r *http.Request, err error) {
	log := logging.FromContext(r.Context())

	var verr *apperrors.ValidationError
	switch {
	case errors.As(err, &verr):
		writeErrors(w, http.StatusBadRequest, ErrorBody{Errors: verr.Fields})
	case errors.Is(err, context.DeadlineExceeded):
		log.Warn().Err(err).Msg("request deadline exceeded")
		writeErrors(w, http.StatusGatewayTimeout, generalError("Request deadline exceeded"))
	case errors.Is(err, context.Canceled):
		log.Debug().Err(err).Msg("request canceled")
		writeErrors(w, http.StatusServiceUnavailable, generalError("Request canceled"))
	case errors.Is(err, apperrors.ErrNotFound):
		writeErrors(w, http.StatusNotFound, generalError(err.Error()))
	default:
		log.Error().Err(err).Msg("request failed")
		writeErrors(w, http.StatusInternalServerError, generalError("Internal server error"))
	}
}

// Package httpapi exposes the authentication service over HTTP.
package httpapi

import (
	"encoding/json"
	"errors"
	"net/http"

	"go.uber.org/zap"

	"github.com/and161185/talentgate/internal/errs"
)

// Envelope wraps every response body.
type Envelope struct {
	Success bool     `json:"success"`
	Data    any      `json:"data,omitempty"`
	Message string   `json:"message,omitempty"`
	Errors  []string `json:"errors,omitempty"`
}

// JSON writes v with the given status.
func JSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// OK writes a successful envelope around data.
func OK(w http.ResponseWriter, status int, data any) {
	JSON(w, status, Envelope{Success: true, Data: data})
}

// Fail writes a failed envelope.
func Fail(w http.ResponseWriter, status int, msg string, details ...string) {
	JSON(w, status, Envelope{Success: false, Message: msg, Errors: details})
}

// RespondError maps a service error to a client-safe envelope. Internal
// causes are logged, never sent.
func RespondError(w http.ResponseWriter, log *zap.Logger, err error) {
	status := errs.StatusOf(err)
	if status >= http.StatusInternalServerError {
		log.Error("request failed", zap.Error(err))
	}
	var details []string
	var e *errs.Error
	if errors.As(err, &e) && e.Kind == errs.ErrValidation {
		details = e.Details
	}
	Fail(w, status, errs.PublicMessage(err), details...)
}

func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, 1<<20))
	dec.DisallowUnknownFields()
	return dec.Decode(dst)
}

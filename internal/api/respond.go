package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"github.com/sells-group/fsbo/internal/describe"
	"github.com/sells-group/fsbo/internal/market"
	"github.com/sells-group/fsbo/internal/model"
	"github.com/sells-group/fsbo/internal/resilience"
	"github.com/sells-group/fsbo/internal/validate"
)

const maxBodyBytes = 1 << 20

var errNotConfigured = errors.New("feature not configured")

// errorBody is the JSON shape of every error response.
type errorBody struct {
	Error  string            `json:"error"`
	Fields map[string]string `json:"fields,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if v == nil {
		return
	}
	if err := json.NewEncoder(w).Encode(v); err != nil {
		zap.L().Debug("api: encode response", zap.Error(err))
	}
}

func writeMessage(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, errorBody{Error: msg})
}

// statusFor maps domain errors to HTTP status codes.
func statusFor(err error) int {
	var ve *validate.Error
	switch {
	case errors.As(err, &ve),
		errors.Is(err, model.ErrValidation),
		errors.Is(err, model.ErrInvalidStatus):
		return http.StatusBadRequest
	case errors.Is(err, model.ErrForbidden):
		return http.StatusForbidden
	case errors.Is(err, model.ErrNotFound),
		errors.Is(err, market.ErrNoLocation):
		return http.StatusNotFound
	case errors.Is(err, model.ErrInvalidTransition),
		errors.Is(err, model.ErrDeleteBlocked),
		errors.Is(err, model.ErrOfferClosed),
		errors.Is(err, model.ErrListingNotActive),
		errors.Is(err, model.ErrNotEditable):
		return http.StatusConflict
	case errors.Is(err, model.ErrListPriceRequired):
		return http.StatusUnprocessableEntity
	case errors.Is(err, errNotConfigured),
		errors.Is(err, describe.ErrNoProvider):
		return http.StatusServiceUnavailable
	case resilience.IsTransient(err):
		return http.StatusBadGateway
	}
	return http.StatusInternalServerError
}

// writeError renders err as JSON. Server errors are logged and their detail
// is withheld from the client.
func writeError(w http.ResponseWriter, r *http.Request, err error) {
	status := statusFor(err)
	if status >= http.StatusInternalServerError {
		zap.L().Error("api: request failed",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.String("request_id", middleware.GetReqID(r.Context())),
			zap.Int("status", status),
			zap.Error(err),
		)
		body := errorBody{Error: http.StatusText(status)}
		if status == http.StatusServiceUnavailable {
			body.Error = err.Error()
		}
		writeJSON(w, status, body)
		return
	}

	body := errorBody{Error: err.Error()}
	var ve *validate.Error
	if errors.As(err, &ve) {
		body.Fields = ve.Fields
	}
	writeJSON(w, status, body)
}

// decode reads a JSON request body into v.
func decode(w http.ResponseWriter, r *http.Request, v any) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		return validate.Field("body", "must be a valid JSON object: "+err.Error())
	}
	return nil
}

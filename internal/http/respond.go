package httpserver

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"math"
	"net/http"
	"strings"

	"github.com/getsentry/sentry-go"
	"github.com/goccy/go-json"

	"github.com/Clark-Hu/cinerate/internal/domain"
)

const maxRequestBody = 1 << 20 // 1 MiB

type errorResponse struct {
	Code    string      `json:"code"`
	Message string      `json:"message"`
	Details interface{} `json:"details,omitempty"`
}

func decodeJSONBody(w http.ResponseWriter, r *http.Request, dst interface{}) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxRequestBody)
	defer r.Body.Close()
	// the streaming decoder hides read errors such as *http.MaxBytesError
	payload, err := io.ReadAll(r.Body)
	if err != nil {
		return err
	}
	if len(bytes.TrimSpace(payload)) == 0 {
		return io.EOF
	}
	dec := json.NewDecoder(bytes.NewReader(payload))
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		return err
	}
	return nil
}

func (s *Server) respondJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if payload != nil {
		if err := json.NewEncoder(w).Encode(payload); err != nil {
			s.logger.Error().Err(err).Msg("failed to encode response")
		}
	}
}

func (s *Server) respondError(w http.ResponseWriter, status int, code, message string) {
	s.respondJSON(w, status, errorResponse{
		Code:    code,
		Message: message,
	})
}

func (s *Server) respondDecodeError(w http.ResponseWriter, err error) {
	var syntaxError *json.SyntaxError
	var typeError *json.UnmarshalTypeError
	var maxBytesError *http.MaxBytesError
	switch {
	case errors.As(err, &maxBytesError):
		s.respondError(w, http.StatusRequestEntityTooLarge, "PAYLOAD_TOO_LARGE", "Request body exceeds 1 MiB")
	case errors.As(err, &syntaxError):
		s.respondError(w, http.StatusBadRequest, "BAD_REQUEST", "Malformed JSON payload")
	case errors.As(err, &typeError):
		s.respondJSON(w, http.StatusUnprocessableEntity, errorResponse{
			Code:    "VALIDATION_ERROR",
			Message: "Invalid request payload",
			Details: map[string]string{typeError.Field: "has the wrong type"},
		})
	case errors.Is(err, io.EOF):
		s.respondError(w, http.StatusBadRequest, "BAD_REQUEST", "Request body cannot be empty")
	default:
		s.respondError(w, http.StatusBadRequest, "BAD_REQUEST", "Unable to parse request body")
	}
}

// respondServiceError maps errors returned by the services onto the error envelope. Anything not in
// the domain taxonomy is logged, reported and answered with 500.
func (s *Server) respondServiceError(w http.ResponseWriter, r *http.Request, err error) {
	var validationErr *domain.ValidationError
	var unavailableErr *domain.UnavailableError
	switch {
	case errors.As(err, &validationErr):
		s.respondJSON(w, http.StatusUnprocessableEntity, errorResponse{
			Code:    "VALIDATION_ERROR",
			Message: "Invalid request payload",
			Details: validationErr.Fields,
		})
	case errors.As(err, &unavailableErr):
		s.logger.Warn().Err(err).Str("request_id", requestID(r)).Msg("upstream unavailable")
		s.respondError(w, http.StatusServiceUnavailable, "SERVICE_UNAVAILABLE", fmt.Sprintf("Failed to search IMDB: %v", unavailableErr.Err))
	case errors.Is(err, domain.ErrBadRequest):
		s.respondError(w, http.StatusBadRequest, "BAD_REQUEST", detailMessage(err, domain.ErrBadRequest, "Bad request"))
	case errors.Is(err, domain.ErrUnauthorized):
		s.respondError(w, http.StatusUnauthorized, "UNAUTHORIZED", detailMessage(err, domain.ErrUnauthorized, "Missing or invalid authentication information"))
	case errors.Is(err, domain.ErrForbidden):
		s.respondError(w, http.StatusForbidden, "FORBIDDEN", "You can only modify movies you created")
	case errors.Is(err, domain.ErrNotFound):
		s.respondError(w, http.StatusNotFound, "NOT_FOUND", "Resource not found")
	case errors.Is(err, domain.ErrConflict):
		s.respondError(w, http.StatusConflict, "CONFLICT", detailMessage(err, domain.ErrConflict, "Resource already exists"))
	default:
		s.logger.Error().Err(err).
			Str("request_id", requestID(r)).
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Msg("request failed")
		if hub := sentry.GetHubFromContext(r.Context()); hub != nil {
			hub.CaptureException(err)
		}
		s.respondError(w, http.StatusInternalServerError, "INTERNAL_ERROR", "Internal server error")
	}
}

// detailMessage returns the text a wrapped sentinel carries after "<sentinel>: ", or fallback.
func detailMessage(err, sentinel error, fallback string) string {
	msg := err.Error()
	prefix := sentinel.Error() + ": "
	if strings.HasPrefix(msg, prefix) {
		return capitalize(strings.TrimPrefix(msg, prefix))
	}
	return fallback
}

func capitalize(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}

func roundToOneDecimal(value float32) float32 {
	return float32(math.Round(float64(value)*10) / 10.0)
}

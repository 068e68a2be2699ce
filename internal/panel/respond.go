package panel

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"

	"atlas/internal/logging"
	"atlas/internal/services"
)

type errorResponse struct {
	Error  string `json:"error"`
	Kind   string `json:"kind,omitempty"`
	Hint   string `json:"hint,omitempty"`
	Detail string `json:"detail,omitempty"`
}

func writeJSON(w http.ResponseWriter, logger *slog.Logger, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if payload == nil {
		return
	}
	if err := json.NewEncoder(w).Encode(payload); err != nil && logger != nil {
		logger.Error("failed to encode response", logging.Error(err))
	}
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, payload any) {
	writeJSON(w, s.logger, status, payload)
}

func (s *Server) writeError(w http.ResponseWriter, status int, message string) {
	s.writeJSON(w, status, errorResponse{Error: message})
}

// writeServiceError maps a classified error onto an HTTP status.
func (s *Server) writeServiceError(w http.ResponseWriter, err error) {
	details := services.Details(err)
	s.writeJSON(w, statusFor(err), errorResponse{
		Error: details.Message,
		Kind:  details.Kind,
		Hint:  details.Hint,
	})
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, services.ErrValidation):
		return http.StatusBadRequest
	case errors.Is(err, services.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, services.ErrBusy):
		return http.StatusConflict
	case errors.Is(err, services.ErrTimeout):
		return http.StatusGatewayTimeout
	case errors.Is(err, services.ErrDevice):
		return http.StatusServiceUnavailable
	case errors.Is(err, services.ErrConfiguration):
		return http.StatusInternalServerError
	case errors.Is(err, services.ErrStart), errors.Is(err, services.ErrPublish),
		errors.Is(err, services.ErrJobFailed), errors.Is(err, services.ErrTransient):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

// decode reads a JSON body into dst. An empty body leaves dst untouched.
func decode(r *http.Request, dst any) error {
	if r.Body == nil || r.ContentLength == 0 {
		return nil
	}
	dec := json.NewDecoder(http.MaxBytesReader(nil, r.Body, maxJSONBody))
	if err := dec.Decode(dst); err != nil && !errors.Is(err, io.EOF) {
		return services.Wrap(services.ErrValidation, "panel", "decode", "invalid request body", err)
	}
	return nil
}

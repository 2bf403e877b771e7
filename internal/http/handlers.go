package http

import (
	"errors"
	"net/http"

	"lawnledger/internal/cache"
	"lawnledger/internal/core"
	applog "lawnledger/internal/log"
	"lawnledger/internal/services"
	"lawnledger/internal/voice"
)

func handleHealth(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	if s.ready != nil {
		if err := s.ready(r.Context()); err != nil {
			applog.FromContext(r.Context()).WarnContext(r.Context(), "Readiness check failed",
				applog.FieldError, err)
			http.Error(w, "not ready", http.StatusServiceUnavailable)
			return
		}
	}
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ready"))
}

func (s *Server) handleCapabilities(w http.ResponseWriter, r *http.Request) {
	NewHTMXResponse().JSON(s.svc.Capabilities()).Write(w)
}

type statsResponse struct {
	Version      uint64        `json:"version"`
	Transactions int           `json:"transactions"`
	Templates    int           `json:"templates"`
	ViewCache    cache.Stats   `json:"view_cache"`
	Security     SecurityStats `json:"security"`
}

func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	l := s.svc.Ledger()
	NewHTMXResponse().JSON(statsResponse{
		Version:      l.Version(),
		Transactions: len(l.Transactions()),
		Templates:    len(l.Templates()),
		ViewCache:    s.viewCache.Stats(),
		Security:     s.metrics.snapshot(),
	}).Write(w)
}

// writeServiceError maps a service error onto the HTTP error contract.
// Validation failures are rejected quietly; an unrecognized transcript also
// raises a notification and echoes the transcript for correction.
func (s *Server) writeServiceError(w http.ResponseWriter, r *http.Request, err error) {
	var parseErr *voice.ParseError
	switch {
	case errors.As(err, &parseErr):
		NewHTMXResponse().
			Status(http.StatusUnprocessableEntity).
			TriggerErrorNotification("Could not understand that. Try again or use the form.").
			JSON(errorBody{Error: err.Error(), Transcript: parseErr.Transcript}).
			Write(w)
	case errors.Is(err, services.ErrValidation):
		UnprocessableEntityError(err.Error()).Write(w)
	case errors.Is(err, core.ErrNotFound):
		NotFoundError(err.Error()).Write(w)
	case errors.Is(err, services.ErrVoiceUnavailable):
		ServiceUnavailableError(err.Error()).Write(w)
	default:
		applog.FromContext(r.Context()).ErrorContext(r.Context(), "Request failed",
			applog.FieldPath, r.URL.Path,
			applog.FieldError, err)
		InternalServerError("internal error").Write(w)
	}
}

package http

import (
	"fmt"
	"net/http"

	"lawnledger/internal/ledger"
)

func (s *Server) handleVoice(w http.ResponseWriter, r *http.Request) {
	transcript, err := ParseTranscript(r)
	if err != nil {
		BadRequestError("invalid request body").Write(w)
		return
	}

	tx, err := s.svc.SubmitTranscript(r.Context(), transcript)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	s.invalidateViews()

	NewHTMXResponse().
		Status(http.StatusCreated).
		TriggerTransactionCreated(tx).
		TriggerSuccessNotification(fmt.Sprintf("Recorded %s $%s", tx.Kind, tx.Amount)).
		JSON(tx).
		Write(w)
}

func (s *Server) handleView(w http.ResponseWriter, r *http.Request) {
	l := s.svc.Ledger()
	params, err := ParseViewParams(r.URL.Query(), l.Today())
	if err != nil {
		BadRequestError(err.Error()).Write(w)
		return
	}
	NewHTMXResponse().JSON(s.getView(l, params)).Write(w)
}

func viewCacheKey(p ViewParams, version uint64) string {
	return fmt.Sprintf("%s|%s|%d", p.Range, p.Filter, version)
}

// getView serves the view from cache or derives and caches it.
func (s *Server) getView(l *ledger.Ledger, p ViewParams) ViewResponse {
	version := l.Version()
	key := viewCacheKey(p, version)
	if resp, ok := s.viewCache.Get(key); ok {
		return resp
	}

	view := l.View(p.Range, p.Filter)
	resp := ViewResponse{
		Range:   p.Range,
		Filter:  p.Filter,
		View:    view,
		Events:  ledger.CalendarEvents(view.Filtered),
		Version: version,
	}
	s.viewCache.Set(key, resp)
	return resp
}

// invalidateViews drops cached views after a mutation. Entries are keyed by
// version and could never be hit again.
func (s *Server) invalidateViews() {
	s.viewCache.Purge()
}

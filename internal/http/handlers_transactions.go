package http

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"lawnledger/internal/core"
)

func transactionID(r *http.Request) core.ID {
	return core.ID(sanitizeInput(chi.URLParam(r, "id")))
}

func (s *Server) handleListTransactions(w http.ResponseWriter, r *http.Request) {
	NewHTMXResponse().JSON(s.svc.Ledger().Transactions()).Write(w)
}

func (s *Server) handleGetTransaction(w http.ResponseWriter, r *http.Request) {
	tx, err := s.svc.Ledger().Get(transactionID(r))
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	NewHTMXResponse().JSON(tx).Write(w)
}

func (s *Server) handleCreateTransaction(w http.ResponseWriter, r *http.Request) {
	in, err := ParseFormInput(r)
	if err != nil {
		BadRequestError("invalid request body").Write(w)
		return
	}

	tx, err := s.svc.SubmitForm(r.Context(), in)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	s.invalidateViews()

	resp := NewHTMXResponse().
		Status(http.StatusCreated).
		TriggerTransactionCreated(tx).
		TriggerSuccessNotification("Transaction saved")
	if in.SaveAsTemplate {
		resp.TriggerTemplateChanged()
	}
	resp.JSON(tx).Write(w)
}

func (s *Server) handleUpdateTransaction(w http.ResponseWriter, r *http.Request) {
	in, err := ParseFormInput(r)
	if err != nil {
		BadRequestError("invalid request body").Write(w)
		return
	}

	tx, err := s.svc.EditForm(r.Context(), transactionID(r), in)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	s.invalidateViews()

	NewHTMXResponse().
		TriggerTransactionUpdated(tx).
		TriggerSuccessNotification("Transaction updated").
		JSON(tx).
		Write(w)
}

func (s *Server) handleDeleteTransaction(w http.ResponseWriter, r *http.Request) {
	tx, err := s.svc.Remove(r.Context(), transactionID(r))
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	s.invalidateViews()

	NewHTMXResponse().
		TriggerTransactionDeleted(tx).
		TriggerSuccessNotification("Transaction deleted").
		JSON(tx).
		Write(w)
}

func (s *Server) handleHistory(w http.ResponseWriter, r *http.Request) {
	limit, err := ParseLimit(r.URL.Query(), s.historyLimit, maxHistoryLimit)
	if err != nil {
		BadRequestError(err.Error()).Write(w)
		return
	}
	NewHTMXResponse().JSON(s.svc.Ledger().History(limit)).Write(w)
}

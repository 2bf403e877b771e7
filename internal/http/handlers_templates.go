package http

import (
	"net/http"

	"lawnledger/internal/core"
)

type templateResponse struct {
	Template core.Template `json:"template"`
	Added    bool          `json:"added"`
}

func (s *Server) handleListTemplates(w http.ResponseWriter, r *http.Request) {
	NewHTMXResponse().JSON(s.svc.Ledger().Templates()).Write(w)
}

// handleAddTemplate answers 201 for a new template and 200 when an equal
// template already exists.
func (s *Server) handleAddTemplate(w http.ResponseWriter, r *http.Request) {
	in, err := ParseFormInput(r)
	if err != nil {
		BadRequestError("invalid request body").Write(w)
		return
	}

	tp, added, err := s.svc.AddTemplate(r.Context(), in)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}

	resp := NewHTMXResponse()
	if added {
		resp.Status(http.StatusCreated).
			TriggerTemplateChanged().
			TriggerSuccessNotification("Template saved")
	} else {
		resp.TriggerNotification(NotificationInfo, "Template already exists", 3000)
	}
	resp.JSON(templateResponse{Template: tp, Added: added}).Write(w)
}

func (s *Server) handleRemoveTemplate(w http.ResponseWriter, r *http.Request) {
	in, err := ParseFormInput(r)
	if err != nil {
		BadRequestError("invalid request body").Write(w)
		return
	}

	removed, err := s.svc.RemoveTemplate(r.Context(), in)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	if !removed {
		NotFoundError("template not found").Write(w)
		return
	}

	NewHTMXResponse().
		TriggerTemplateChanged().
		JSON(map[string]bool{"removed": true}).
		Write(w)
}

func (s *Server) handleUseTemplate(w http.ResponseWriter, r *http.Request) {
	in, err := ParseFormInput(r)
	if err != nil {
		BadRequestError("invalid request body").Write(w)
		return
	}

	tx, err := s.svc.UseTemplate(r.Context(), in)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	s.invalidateViews()

	NewHTMXResponse().
		Status(http.StatusCreated).
		TriggerTransactionCreated(tx).
		TriggerSuccessNotification("Transaction saved").
		JSON(tx).
		Write(w)
}

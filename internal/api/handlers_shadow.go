package api

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/warthog618/shadowd/internal/model"
)

func (s *Server) handleGetShadow(w http.ResponseWriter, r *http.Request) {
	tenant := model.NewDefaultString(chi.URLParam(r, "tenant"))
	device := chi.URLParam(r, "device")
	name := model.NewDefaultString(chi.URLParam(r, "name"))

	shadow, err := s.backend.GetShadow(tenant, device, name)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, shadow)
}

func (s *Server) handlePutShadow(w http.ResponseWriter, r *http.Request) {
	tenant := model.NewDefaultString(chi.URLParam(r, "tenant"))
	device := chi.URLParam(r, "device")
	name := model.NewDefaultString(chi.URLParam(r, "name"))

	var nested model.NestedStateDocument
	if err := json.NewDecoder(r.Body).Decode(&nested); err != nil {
		writeBadRequest(w, "invalid request body: "+err.Error())
		return
	}

	update := nested.ToUpdateDocument(device, name, tenant)
	result, err := s.backend.UpsertShadow(s.engine, update)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

package api

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/warthog618/shadowd/internal/model"
)

func (s *Server) handleGetTenantConfig(w http.ResponseWriter, r *http.Request) {
	tenant := model.NewDefaultString(chi.URLParam(r, "tenant"))

	cfg, err := s.backend.TenantConfig(tenant)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	if cfg == nil {
		writeJSON(w, http.StatusOK, model.DataConfig{})
		return
	}
	writeJSON(w, http.StatusOK, cfg)
}

func (s *Server) handlePutTenantConfig(w http.ResponseWriter, r *http.Request) {
	tenant := model.NewDefaultString(chi.URLParam(r, "tenant"))

	var cfg model.DataConfig
	if err := json.NewDecoder(r.Body).Decode(&cfg); err != nil {
		writeBadRequest(w, "invalid request body: "+err.Error())
		return
	}
	if err := s.backend.StoreTenantConfig(tenant, cfg); err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, cfg)
}

func (s *Server) handleDeleteTenantConfig(w http.ResponseWriter, r *http.Request) {
	tenant := model.NewDefaultString(chi.URLParam(r, "tenant"))

	if err := s.backend.DeleteDataConfig(tenant, ""); err != nil {
		s.writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleListDataConfigs(w http.ResponseWriter, r *http.Request) {
	tenant := model.NewDefaultString(chi.URLParam(r, "tenant"))

	entries, err := s.backend.ListDataConfigs(tenant)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, entries)
}

func (s *Server) handlePutDeviceConfig(w http.ResponseWriter, r *http.Request) {
	tenant := model.NewDefaultString(chi.URLParam(r, "tenant"))
	prefix := chi.URLParam(r, "prefix")

	var cfg model.DataConfig
	if err := json.NewDecoder(r.Body).Decode(&cfg); err != nil {
		writeBadRequest(w, "invalid request body: "+err.Error())
		return
	}
	if err := s.backend.StoreDeviceConfig(tenant, prefix, cfg); err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, cfg)
}

func (s *Server) handleDeleteDeviceConfig(w http.ResponseWriter, r *http.Request) {
	tenant := model.NewDefaultString(chi.URLParam(r, "tenant"))
	prefix := chi.URLParam(r, "prefix")

	if err := s.backend.DeleteDataConfig(tenant, prefix); err != nil {
		s.writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

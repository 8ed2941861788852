package api

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/warthog618/shadowd/internal/model"
)

func (s *Server) handleGetDeviceMetadata(w http.ResponseWriter, r *http.Request) {
	tenant := model.NewDefaultString(chi.URLParam(r, "tenant"))
	device := chi.URLParam(r, "device")

	meta, err := s.backend.GetDeviceMetadata(tenant, device)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	if meta == nil {
		writeJSON(w, http.StatusNotFound, errorBody{Message: "device not found"})
		return
	}
	writeJSON(w, http.StatusOK, meta)
}

func (s *Server) handlePutDeviceMetadata(w http.ResponseWriter, r *http.Request) {
	tenant := model.NewDefaultString(chi.URLParam(r, "tenant"))
	device := chi.URLParam(r, "device")

	var meta model.DeviceMetadata
	if err := json.NewDecoder(r.Body).Decode(&meta); err != nil {
		writeBadRequest(w, "invalid request body: "+err.Error())
		return
	}
	meta.DeviceID = device
	meta.TenantID = tenant

	if err := s.backend.PutDeviceMetadata(meta); err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, meta)
}

func (s *Server) handleDeleteDeviceMetadata(w http.ResponseWriter, r *http.Request) {
	tenant := model.NewDefaultString(chi.URLParam(r, "tenant"))
	device := chi.URLParam(r, "device")

	if err := s.backend.DeleteDeviceMetadata(tenant, device); err != nil {
		s.writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// handleListConnectedDevices joins stored device metadata against the
// processor's live connection set and each device's default shadow, per
// SPEC_FULL.md §3's DeviceInformation projection.
func (s *Server) handleListConnectedDevices(w http.ResponseWriter, r *http.Request) {
	tenant := model.NewDefaultString(chi.URLParam(r, "tenant"))

	devices, err := s.backend.ListDevices(tenant)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	out := make([]model.DeviceInformation, 0, len(devices))
	for _, d := range devices {
		info := model.DeviceInformation{
			DeviceID:    d.DeviceID,
			TenantID:    d.TenantID,
			Certificate: d.Certificate,
			Connected:   s.conns.Contains(d.DeviceID),
		}
		if shadow, err := s.backend.GetShadow(tenant, d.DeviceID, model.Default); err == nil {
			if ts, ok := lastMetadataTimestamp(shadow.Metadata.Reported); ok {
				info.LastShadowUpdate = &ts
			}
		}
		out = append(out, info)
	}
	writeJSON(w, http.StatusOK, out)
}

// lastMetadataTimestamp walks a metadata sub-document (every leaf is a
// unix-second timestamp) and returns the most recent one.
func lastMetadataTimestamp(node interface{}) (uint64, bool) {
	switch v := node.(type) {
	case map[string]interface{}:
		var max uint64
		found := false
		for _, child := range v {
			if ts, ok := lastMetadataTimestamp(child); ok && (!found || ts > max) {
				max = ts
				found = true
			}
		}
		return max, found
	case uint64:
		return v, true
	case float64:
		return uint64(v), true
	default:
		return 0, false
	}
}

package api

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/warthog618/shadowd/internal/model"
	"github.com/warthog618/shadowd/internal/timeseries"
)

// pointDisplay is the JSON projection of a timeseries.Point. MetricValue
// deliberately has no MarshalJSON (it's a pure, I/O-free tagged union), so
// the HTTP surface flattens it to whichever single field is populated.
type pointDisplay struct {
	Timestamp uint64      `json:"timestamp"`
	Value     interface{} `json:"value"`
}

func displayValue(v timeseries.MetricValue) interface{} {
	switch v.Kind {
	case timeseries.KindFloat:
		return v.F
	case timeseries.KindInt:
		return v.I
	case timeseries.KindLocation:
		return v.Loc
	case timeseries.KindString:
		return v.S
	default:
		return nil
	}
}

func displayPoints(points []timeseries.Point) []pointDisplay {
	out := make([]pointDisplay, 0, len(points))
	for _, p := range points {
		out = append(out, pointDisplay{Timestamp: p.Timestamp, Value: displayValue(p.Value)})
	}
	return out
}

func parseUintQuery(r *http.Request, name string, def uint64) (uint64, error) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return def, nil
	}
	return strconv.ParseUint(raw, 10, 64)
}

func (s *Server) handleMetricRange(w http.ResponseWriter, r *http.Request) {
	tenant := model.NewDefaultString(chi.URLParam(r, "tenant"))
	device := chi.URLParam(r, "device")
	metric := chi.URLParam(r, "metric")

	minTs, err := parseUintQuery(r, "min", 0)
	if err != nil {
		writeBadRequest(w, "invalid min: "+err.Error())
		return
	}
	maxTs, err := parseUintQuery(r, "max", uint64(time.Now().Unix()))
	if err != nil {
		writeBadRequest(w, "invalid max: "+err.Error())
		return
	}

	series, err := s.backend.GetMetric(tenant, device, metric, minTs, maxTs)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, displayPoints(series.Range(minTs, maxTs)))
}

func (s *Server) handleMetricLast(w http.ResponseWriter, r *http.Request) {
	tenant := model.NewDefaultString(chi.URLParam(r, "tenant"))
	device := chi.URLParam(r, "device")
	metric := chi.URLParam(r, "metric")

	limit, err := parseUintQuery(r, "limit", 1)
	if err != nil {
		writeBadRequest(w, "invalid limit: "+err.Error())
		return
	}

	now := uint64(time.Now().Unix())
	series, err := s.backend.GetLastMetric(tenant, device, metric, limit, now)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, displayPoints(series.Range(0, now)))
}

package processor

import (
	"github.com/go-openapi/jsonpointer"

	"github.com/warthog618/shadowd/internal/model"
	"github.com/warthog618/shadowd/internal/timeseries"
)

// extractMetric evaluates cfg's JSON pointer against reported and converts
// the match to the declared data type. Absent or type-incompatible values
// are skipped, not errors, per spec.md §4.6 ("if present and
// type-compatible"). Grounded on original_source/src/db/mod.rs's
// put_timeseries_from_payload, generalized onto go-openapi/jsonpointer's
// RFC 6901 evaluator (the pack's own JSON-pointer dependency, pulled in
// from jordigilh-kubernaut's go.mod) rather than hand-rolling pointer
// traversal.
func extractMetric(reported model.JSONValue, cfg model.MetricConfig) (timeseries.MetricValue, bool) {
	if reported == nil {
		return timeseries.MetricValue{}, false
	}
	ptr, err := jsonpointer.New(cfg.JSONPointer)
	if err != nil {
		return timeseries.MetricValue{}, false
	}
	raw, _, err := ptr.Get(reported)
	if err != nil {
		return timeseries.MetricValue{}, false
	}
	return convertMetricValue(raw, cfg.DataType)
}

func convertMetricValue(raw interface{}, dataType model.MetricDataType) (timeseries.MetricValue, bool) {
	switch dataType {
	case model.MetricTypeFloat:
		f, ok := raw.(float64)
		if !ok {
			return timeseries.MetricValue{}, false
		}
		return timeseries.FloatValue(f), true

	case model.MetricTypeInt:
		f, ok := raw.(float64)
		if !ok {
			return timeseries.MetricValue{}, false
		}
		return timeseries.IntValue(int64(f)), true

	case model.MetricTypeLocation:
		obj, ok := raw.(map[string]interface{})
		if !ok {
			return timeseries.MetricValue{}, false
		}
		lat, latOK := obj["lat"].(float64)
		lon, lonOK := obj["lon"].(float64)
		if !latOK || !lonOK {
			return timeseries.MetricValue{}, false
		}
		return timeseries.LocationValue(lat, lon), true

	case model.MetricTypeString:
		s, ok := raw.(string)
		if !ok {
			return timeseries.MetricValue{}, false
		}
		return timeseries.StringValue(s), true

	default:
		return timeseries.MetricValue{}, false
	}
}

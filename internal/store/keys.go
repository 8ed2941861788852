package store

import (
	"fmt"
	"strings"

	"github.com/warthog618/shadowd/internal/apperrors"
	"github.com/warthog618/shadowd/internal/model"
	"github.com/warthog618/shadowd/internal/timeseries"
)

// Key schemes, carried over verbatim from the storage layer this module
// replaces: '#'-joined ASCII segments sort lexicographically, which the
// prefix-scan operations (ListDevices, LongestPrefixConfig) depend on.
func shadowKey(tenantID model.TenantId, deviceID string, shadowName model.ShadowName) []byte {
	return []byte(fmt.Sprintf("%s#%s#%s", tenantID, deviceID, shadowName))
}

func metricSeriesPrefix(tenantID model.TenantId, deviceID, metricName string) []byte {
	return []byte(fmt.Sprintf("%s#%s#%s", tenantID, deviceID, metricName))
}

func metricBucketKey(seriesPrefix []byte, ts uint64) []byte {
	key := make([]byte, 0, len(seriesPrefix)+1+timeseriesKeyWidth)
	key = append(key, seriesPrefix...)
	key = append(key, '#')
	key = append(key, []byte(timeseries.TsToKey(ts))...)
	return key
}

const timeseriesKeyWidth = 10

func dataConfigKey(tenantID model.TenantId, devicePrefix string) []byte {
	if devicePrefix == "" {
		return []byte(fmt.Sprintf("dc#%s", tenantID))
	}
	return []byte(fmt.Sprintf("dc#%s#%s", tenantID, devicePrefix))
}

func dataConfigTenantPrefix(tenantID model.TenantId) []byte {
	return []byte(fmt.Sprintf("dc#%s", tenantID))
}

func deviceMetadataKey(tenantID model.TenantId, deviceID string) []byte {
	return []byte(fmt.Sprintf("device#%s#%s", tenantID, deviceID))
}

func deviceMetadataTenantPrefix(tenantID model.TenantId) []byte {
	return []byte(fmt.Sprintf("device#%s", tenantID))
}

// splitDataConfigKey extracts the device prefix segment from a "dc#tenant#prefix"
// key, given the already-known tenant prefix. Returns "" for a bare tenant key.
func splitDataConfigKey(key []byte, tenantPrefix []byte) (string, error) {
	rest := strings.TrimPrefix(string(key), string(tenantPrefix))
	if rest == "" {
		return "", nil
	}
	if !strings.HasPrefix(rest, "#") {
		return "", apperrors.New(apperrors.KindInvalidKey, "malformed data-config key").WithDetails(string(key))
	}
	return rest[1:], nil
}

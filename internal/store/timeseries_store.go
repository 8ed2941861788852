package store

import (
	"go.etcd.io/bbolt"

	"github.com/warthog618/shadowd/internal/apperrors"
	"github.com/warthog618/shadowd/internal/model"
	"github.com/warthog618/shadowd/internal/timeseries"
)

// PutMetric merges a single point into the hourly bucket it falls in.
// Grounded on original_source/src/db/mod.rs's put_metric/_put_timeseries.
func (s *Store) PutMetric(tenantID model.TenantId, deviceID, metricName string, point timeseries.Point) error {
	series := timeseries.New()
	series.AddPoint(point.Timestamp, point.Value)
	return s.PutSeries(tenantID, deviceID, metricName, series)
}

// PutSeries splits series into hourly buckets and merges each into the
// stored bucket for that hour within a single transaction.
func (s *Store) PutSeries(tenantID model.TenantId, deviceID, metricName string, series timeseries.MetricTimeSeries) error {
	prefix := metricSeriesPrefix(tenantID, deviceID, metricName)

	return s.update(func(b *bbolt.Bucket) error {
		for _, bucket := range series.Buckets() {
			firstTs, ok := bucket.FirstTimestamp()
			if !ok {
				continue
			}
			key := metricBucketKey(prefix, firstTs)

			existing := timeseries.New()
			if data := b.Get(key); data != nil {
				if err := existing.UnmarshalBinary(data); err != nil {
					return apperrors.Wrap(err, apperrors.KindValueCodec, "decode time-series bucket")
				}
			}
			existing.Merge(bucket)

			encoded, err := existing.MarshalBinary()
			if err != nil {
				return apperrors.Wrap(err, apperrors.KindValueCodec, "encode time-series bucket")
			}
			if err := b.Put(key, encoded); err != nil {
				return err
			}
		}
		return nil
	})
}

// GetMetric returns the merged, trimmed series covering [minTs, maxTs].
// Buckets are keyed newest-first, so the scan starts at the key for maxTs
// and walks forward (toward older keys) until it passes the key for minTs.
func (s *Store) GetMetric(tenantID model.TenantId, deviceID, metricName string, minTs, maxTs uint64) (timeseries.MetricTimeSeries, error) {
	prefix := metricSeriesPrefix(tenantID, deviceID, metricName)
	minKey := metricBucketKey(prefix, minTs)
	maxKey := metricBucketKey(prefix, maxTs)

	merged := timeseries.New()
	err := s.view(func(b *bbolt.Bucket) error {
		c := b.Cursor()
		for k, v := c.Seek(maxKey); k != nil; k, v = c.Next() {
			if string(k) > string(minKey) {
				break
			}
			var bucket timeseries.MetricTimeSeries
			if err := bucket.UnmarshalBinary(v); err != nil {
				return apperrors.Wrap(err, apperrors.KindValueCodec, "decode time-series bucket")
			}
			merged.Merge(bucket)
		}
		return nil
	})
	if err != nil {
		return timeseries.MetricTimeSeries{}, err
	}
	merged.Trim(minTs, maxTs)
	return merged, nil
}

// maxFutureSeconds bounds how far past "now" a last-N query's synthetic
// upper timestamp reaches; matches original_source's MAX_FUTURE_SECONDS.
const maxFutureSeconds = 60 * 60 * 24 * 365

// GetLastMetric returns the most recent limit points for a metric. Per
// SPEC_FULL.md Open Question OQ-3, whole buckets are merged newest-first
// and the scan stops after the bucket that brings the count to limit;
// there is no finer early exit inside a bucket, and sparse buckets mean
// many buckets may be read for a small limit.
func (s *Store) GetLastMetric(tenantID model.TenantId, deviceID, metricName string, limit uint64, now uint64) (timeseries.MetricTimeSeries, error) {
	prefix := metricSeriesPrefix(tenantID, deviceID, metricName)
	startKey := metricBucketKey(prefix, now+maxFutureSeconds)
	// Match on the trailing '#' as well, so the scan does not run on into
	// the buckets of a metric whose name extends this one ("temp2" after
	// "temp").
	bucketPrefix := append(append([]byte(nil), prefix...), '#')

	merged := timeseries.New()
	err := s.view(func(b *bbolt.Bucket) error {
		c := b.Cursor()
		var count uint64
		for k, v := c.Seek(startKey); k != nil; k, v = c.Next() {
			if !hasPrefix(k, bucketPrefix) {
				break
			}
			var bucket timeseries.MetricTimeSeries
			if err := bucket.UnmarshalBinary(v); err != nil {
				return apperrors.Wrap(err, apperrors.KindValueCodec, "decode time-series bucket")
			}
			merged.Merge(bucket)
			count = uint64(merged.Len())
			if count >= limit {
				break
			}
		}
		return nil
	})
	if err != nil {
		return timeseries.MetricTimeSeries{}, err
	}
	merged.KeepLast(int(limit))
	return merged, nil
}

func hasPrefix(key, prefix []byte) bool {
	if len(key) < len(prefix) {
		return false
	}
	for i := range prefix {
		if key[i] != prefix[i] {
			return false
		}
	}
	return true
}

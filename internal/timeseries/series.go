// Package timeseries implements the per-metric time-series core: an
// ascending (timestamp, value) column pair with merge/trim/range/bucket
// operations, and the binary codec and reversed-lexicographic key encoding
// the storage layer builds its hourly buckets on top of.
package timeseries

import "sort"

// Point is one (timestamp, value) pair, returned by Range.
type Point struct {
	Timestamp uint64
	Value     MetricValue
}

// MetricTimeSeries is a sorted, strictly-ascending column pair.
// Invariant: len(Timestamps) == len(Values), and Timestamps is strictly
// ascending.
type MetricTimeSeries struct {
	Timestamps []uint64
	Values     []MetricValue
}

func New() MetricTimeSeries {
	return MetricTimeSeries{}
}

func (ts *MetricTimeSeries) Len() int {
	return len(ts.Timestamps)
}

func (ts *MetricTimeSeries) IsEmpty() bool {
	return len(ts.Timestamps) == 0
}

// indexOf returns the insertion point for ts (the index of the first
// element >= ts), and whether that element's timestamp equals ts exactly.
func (ts *MetricTimeSeries) indexOf(t uint64) (int, bool) {
	i := sort.Search(len(ts.Timestamps), func(i int) bool {
		return ts.Timestamps[i] >= t
	})
	return i, i < len(ts.Timestamps) && ts.Timestamps[i] == t
}

// AddPoint inserts (t, v) maintaining ascending order. If t already
// exists, the value is overwritten (last write wins).
func (ts *MetricTimeSeries) AddPoint(t uint64, v MetricValue) {
	i, exists := ts.indexOf(t)
	if exists {
		ts.Values[i] = v
		return
	}
	ts.Timestamps = append(ts.Timestamps, 0)
	copy(ts.Timestamps[i+1:], ts.Timestamps[i:])
	ts.Timestamps[i] = t

	ts.Values = append(ts.Values, MetricValue{})
	copy(ts.Values[i+1:], ts.Values[i:])
	ts.Values[i] = v
}

// Merge unions other into ts by timestamp; on a timestamp collision,
// other's value wins. The result stays sorted and strictly ascending.
// Merge is commutative modulo collisions: for disjoint timestamp sets,
// a.Merge(b) and b.Merge(a) produce equal series.
func (ts *MetricTimeSeries) Merge(other MetricTimeSeries) {
	if other.IsEmpty() {
		return
	}
	if ts.IsEmpty() {
		ts.Timestamps = append([]uint64(nil), other.Timestamps...)
		ts.Values = append([]MetricValue(nil), other.Values...)
		return
	}

	merged := MetricTimeSeries{
		Timestamps: make([]uint64, 0, len(ts.Timestamps)+len(other.Timestamps)),
		Values:     make([]MetricValue, 0, len(ts.Timestamps)+len(other.Timestamps)),
	}
	i, j := 0, 0
	for i < len(ts.Timestamps) && j < len(other.Timestamps) {
		switch {
		case ts.Timestamps[i] < other.Timestamps[j]:
			merged.Timestamps = append(merged.Timestamps, ts.Timestamps[i])
			merged.Values = append(merged.Values, ts.Values[i])
			i++
		case ts.Timestamps[i] > other.Timestamps[j]:
			merged.Timestamps = append(merged.Timestamps, other.Timestamps[j])
			merged.Values = append(merged.Values, other.Values[j])
			j++
		default: // equal: other wins
			merged.Timestamps = append(merged.Timestamps, other.Timestamps[j])
			merged.Values = append(merged.Values, other.Values[j])
			i++
			j++
		}
	}
	merged.Timestamps = append(merged.Timestamps, ts.Timestamps[i:]...)
	merged.Values = append(merged.Values, ts.Values[i:]...)
	merged.Timestamps = append(merged.Timestamps, other.Timestamps[j:]...)
	merged.Values = append(merged.Values, other.Values[j:]...)

	*ts = merged
}

// Trim discards points outside [min, max]. min > max yields an empty
// series.
func (ts *MetricTimeSeries) Trim(min, max uint64) {
	if min > max {
		ts.Timestamps = nil
		ts.Values = nil
		return
	}
	lo, _ := ts.indexOf(min)
	hi := sort.Search(len(ts.Timestamps), func(i int) bool {
		return ts.Timestamps[i] > max
	})
	if lo >= hi {
		ts.Timestamps = nil
		ts.Values = nil
		return
	}
	ts.Timestamps = append([]uint64(nil), ts.Timestamps[lo:hi]...)
	ts.Values = append([]MetricValue(nil), ts.Values[lo:hi]...)
}

// KeepLast retains only the n points with the highest timestamps.
func (ts *MetricTimeSeries) KeepLast(n int) {
	if n < 0 {
		n = 0
	}
	if len(ts.Timestamps) <= n {
		return
	}
	start := len(ts.Timestamps) - n
	ts.Timestamps = append([]uint64(nil), ts.Timestamps[start:]...)
	ts.Values = append([]MetricValue(nil), ts.Values[start:]...)
}

// Range returns the ascending points with min <= ts <= max.
func (ts *MetricTimeSeries) Range(min, max uint64) []Point {
	if min > max || ts.IsEmpty() {
		return nil
	}
	lo, _ := ts.indexOf(min)
	hi := sort.Search(len(ts.Timestamps), func(i int) bool {
		return ts.Timestamps[i] > max
	})
	if lo >= hi {
		return nil
	}
	out := make([]Point, 0, hi-lo)
	for i := lo; i < hi; i++ {
		out = append(out, Point{Timestamp: ts.Timestamps[i], Value: ts.Values[i]})
	}
	return out
}

// Buckets partitions the series into sub-series aligned on one-hour
// (3600s) windows, each sorted and non-empty. Because Timestamps is
// already ascending, bucket membership is a run of contiguous indices.
func (ts *MetricTimeSeries) Buckets() []MetricTimeSeries {
	if ts.IsEmpty() {
		return nil
	}
	var buckets []MetricTimeSeries
	start := 0
	currentHour := ts.Timestamps[0] / 3600
	for i := 1; i <= len(ts.Timestamps); i++ {
		if i < len(ts.Timestamps) && ts.Timestamps[i]/3600 == currentHour {
			continue
		}
		buckets = append(buckets, MetricTimeSeries{
			Timestamps: append([]uint64(nil), ts.Timestamps[start:i]...),
			Values:     append([]MetricValue(nil), ts.Values[start:i]...),
		})
		if i < len(ts.Timestamps) {
			start = i
			currentHour = ts.Timestamps[i] / 3600
		}
	}
	return buckets
}

// FirstTimestamp returns the series' earliest timestamp, if any.
func (ts *MetricTimeSeries) FirstTimestamp() (uint64, bool) {
	if ts.IsEmpty() {
		return 0, false
	}
	return ts.Timestamps[0], true
}

// Latest returns the series' latest (timestamp, value) pair, if any.
func (ts *MetricTimeSeries) Latest() (Point, bool) {
	if ts.IsEmpty() {
		return Point{}, false
	}
	last := len(ts.Timestamps) - 1
	return Point{Timestamp: ts.Timestamps[last], Value: ts.Values[last]}, true
}

package timeseries

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAddPointMaintainsOrder(t *testing.T) {
	ts := New()
	ts.AddPoint(100, FloatValue(42.0))
	ts.AddPoint(110, FloatValue(44.0))
	ts.AddPoint(105, FloatValue(43.0))
	ts.AddPoint(115, FloatValue(45.0))

	require.Equal(t, []uint64{100, 105, 110, 115}, ts.Timestamps)
	assert.Equal(t, FloatValue(42.0), ts.Values[0])
	assert.Equal(t, FloatValue(43.0), ts.Values[1])
	assert.Equal(t, FloatValue(44.0), ts.Values[2])
	assert.Equal(t, FloatValue(45.0), ts.Values[3])
}

func TestAddPointOverwritesOnCollision(t *testing.T) {
	ts := New()
	ts.AddPoint(100, FloatValue(1.0))
	ts.AddPoint(100, FloatValue(2.0))

	require.Equal(t, 1, ts.Len())
	assert.Equal(t, FloatValue(2.0), ts.Values[0])
}

func TestMergeUnionsDisjointAndLastWriteWinsOnCollision(t *testing.T) {
	a := New()
	a.AddPoint(100, IntValue(1))
	a.AddPoint(200, IntValue(2))

	b := New()
	b.AddPoint(300, IntValue(3))
	b.AddPoint(400, IntValue(4))

	a.Merge(b)
	require.Equal(t, 4, a.Len())
	assert.Equal(t, IntValue(1), a.Values[0])
	assert.Equal(t, IntValue(4), a.Values[3])

	c := New()
	c.AddPoint(200, IntValue(5)) // collides with a's 200
	c.AddPoint(500, IntValue(6))
	a.Merge(c)
	require.Equal(t, 5, a.Len())
	v, ok := a.Range(200, 200)[0], true
	_ = ok
	assert.Equal(t, IntValue(5), v.Value)

	for i := 1; i < len(a.Timestamps); i++ {
		assert.Less(t, a.Timestamps[i-1], a.Timestamps[i])
	}
}

func TestMergeCommutativeModuloCollisions(t *testing.T) {
	a := New()
	a.AddPoint(100, FloatValue(1))
	a.AddPoint(200, FloatValue(2))

	b := New()
	b.AddPoint(300, FloatValue(3))
	b.AddPoint(400, FloatValue(4))

	ab := a
	ab.Merge(b)
	ba := b
	ba.Merge(a)

	assert.Equal(t, ab.Timestamps, ba.Timestamps)
	assert.Equal(t, ab.Values, ba.Values)
}

func TestTrimKeepsInclusiveRange(t *testing.T) {
	ts := New()
	for _, p := range []uint64{1000, 2000, 3000, 4000} {
		ts.AddPoint(p, FloatValue(float64(p)))
	}
	ts.Trim(2000, 3000)
	assert.Equal(t, []uint64{2000, 3000}, ts.Timestamps)
	assert.Equal(t, 2, ts.Len())

	ts.Trim(2001, 2005)
	assert.True(t, ts.IsEmpty())
}

func TestTrimMinGreaterThanMaxIsEmpty(t *testing.T) {
	ts := New()
	ts.AddPoint(1000, FloatValue(1))
	ts.Trim(5000, 1)
	assert.True(t, ts.IsEmpty())
}

func TestRangeBoundaryInclusion(t *testing.T) {
	ts := New()
	for _, p := range []uint64{1000, 2000, 3000, 4000} {
		ts.AddPoint(p, FloatValue(float64(p)/100))
	}

	full := ts.Range(0, 5000)
	require.Len(t, full, 4)

	partial := ts.Range(2000, 3000)
	require.Len(t, partial, 2)
	assert.Equal(t, uint64(2000), partial[0].Timestamp)
	assert.Equal(t, uint64(3000), partial[1].Timestamp)

	empty := ts.Range(2500, 2900)
	assert.Empty(t, empty)

	exclusiveEdges := ts.Range(1999, 4001)
	require.Len(t, exclusiveEdges, 4)
}

func TestKeepLastRetainsHighestTimestamps(t *testing.T) {
	ts := New()
	for _, p := range []uint64{1, 2, 3, 4, 5} {
		ts.AddPoint(p, IntValue(int64(p)))
	}
	ts.KeepLast(2)
	assert.Equal(t, []uint64{4, 5}, ts.Timestamps)
}

func TestBucketsPartitionByHour(t *testing.T) {
	ts := New()
	ts.AddPoint(0, IntValue(1))
	ts.AddPoint(1800, IntValue(2))
	ts.AddPoint(3600, IntValue(3))
	ts.AddPoint(7199, IntValue(4))
	ts.AddPoint(7200, IntValue(5))

	buckets := ts.Buckets()
	require.Len(t, buckets, 3)
	assert.Equal(t, []uint64{0, 1800}, buckets[0].Timestamps)
	assert.Equal(t, []uint64{3600, 7199}, buckets[1].Timestamps)
	assert.Equal(t, []uint64{7200}, buckets[2].Timestamps)
	for _, b := range buckets {
		assert.False(t, b.IsEmpty())
	}
}

func TestFirstTimestampAndLatest(t *testing.T) {
	ts := New()
	_, ok := ts.FirstTimestamp()
	assert.False(t, ok)
	_, ok = ts.Latest()
	assert.False(t, ok)

	ts.AddPoint(10, FloatValue(1))
	ts.AddPoint(20, FloatValue(2))

	first, ok := ts.FirstTimestamp()
	require.True(t, ok)
	assert.Equal(t, uint64(10), first)

	last, ok := ts.Latest()
	require.True(t, ok)
	assert.Equal(t, uint64(20), last.Timestamp)
	assert.Equal(t, FloatValue(2), last.Value)
}

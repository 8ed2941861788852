package timeseries

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"io"
	"math"
)

// magic identifies the stored bucket binary format: [magic u32][kind
// u8][count u32][ts[count] u64][val[count]], all little-endian. JSON is
// deliberately not offered for this codec — the storage layer only ever
// reads/writes this binary form; admin/debug JSON views are built from a
// separate display type instead (see internal/api).
const magic uint32 = 0x54530001

// MarshalBinary encodes ts per the stored bucket format. An empty series
// encodes with kind 0 and count 0.
func (ts *MetricTimeSeries) MarshalBinary() ([]byte, error) {
	var kind ValueKind
	if len(ts.Values) > 0 {
		kind = ts.Values[0].Kind
	}

	buf := &bytes.Buffer{}
	_ = binary.Write(buf, binary.LittleEndian, magic)
	_ = binary.Write(buf, binary.LittleEndian, uint8(kind))
	_ = binary.Write(buf, binary.LittleEndian, uint32(len(ts.Timestamps)))

	for _, t := range ts.Timestamps {
		_ = binary.Write(buf, binary.LittleEndian, t)
	}
	for _, v := range ts.Values {
		switch kind {
		case KindFloat:
			_ = binary.Write(buf, binary.LittleEndian, math.Float64bits(v.F))
		case KindInt:
			_ = binary.Write(buf, binary.LittleEndian, uint64(v.I))
		case KindLocation:
			_ = binary.Write(buf, binary.LittleEndian, math.Float64bits(v.Loc.Lat))
			_ = binary.Write(buf, binary.LittleEndian, math.Float64bits(v.Loc.Lon))
		case KindString:
			s := []byte(v.S)
			_ = binary.Write(buf, binary.LittleEndian, uint32(len(s)))
			buf.Write(s)
		}
	}
	return buf.Bytes(), nil
}

// UnmarshalBinary decodes a stored bucket payload produced by
// MarshalBinary.
func (ts *MetricTimeSeries) UnmarshalBinary(data []byte) error {
	r := bytes.NewReader(data)

	var gotMagic uint32
	if err := binary.Read(r, binary.LittleEndian, &gotMagic); err != nil {
		return fmt.Errorf("timeseries: read magic: %w", err)
	}
	if gotMagic != magic {
		return fmt.Errorf("timeseries: bad magic %#x", gotMagic)
	}

	var kindByte uint8
	if err := binary.Read(r, binary.LittleEndian, &kindByte); err != nil {
		return fmt.Errorf("timeseries: read kind: %w", err)
	}
	kind := ValueKind(kindByte)

	var count uint32
	if err := binary.Read(r, binary.LittleEndian, &count); err != nil {
		return fmt.Errorf("timeseries: read count: %w", err)
	}

	timestamps := make([]uint64, count)
	for i := range timestamps {
		if err := binary.Read(r, binary.LittleEndian, &timestamps[i]); err != nil {
			return fmt.Errorf("timeseries: read timestamp %d: %w", i, err)
		}
	}

	values := make([]MetricValue, count)
	for i := range values {
		switch kind {
		case KindFloat:
			var bits uint64
			if err := binary.Read(r, binary.LittleEndian, &bits); err != nil {
				return fmt.Errorf("timeseries: read float %d: %w", i, err)
			}
			values[i] = FloatValue(math.Float64frombits(bits))
		case KindInt:
			var bits uint64
			if err := binary.Read(r, binary.LittleEndian, &bits); err != nil {
				return fmt.Errorf("timeseries: read int %d: %w", i, err)
			}
			values[i] = IntValue(int64(bits))
		case KindLocation:
			var latBits, lonBits uint64
			if err := binary.Read(r, binary.LittleEndian, &latBits); err != nil {
				return fmt.Errorf("timeseries: read location lat %d: %w", i, err)
			}
			if err := binary.Read(r, binary.LittleEndian, &lonBits); err != nil {
				return fmt.Errorf("timeseries: read location lon %d: %w", i, err)
			}
			values[i] = LocationValue(math.Float64frombits(latBits), math.Float64frombits(lonBits))
		case KindString:
			var strLen uint32
			if err := binary.Read(r, binary.LittleEndian, &strLen); err != nil {
				return fmt.Errorf("timeseries: read string length %d: %w", i, err)
			}
			strBytes := make([]byte, strLen)
			if _, err := io.ReadFull(r, strBytes); err != nil {
				return fmt.Errorf("timeseries: read string %d: %w", i, err)
			}
			values[i] = StringValue(string(strBytes))
		case 0:
			// empty series, nothing to decode for this index
		default:
			return fmt.Errorf("timeseries: unknown kind %d", kind)
		}
	}

	ts.Timestamps = timestamps
	ts.Values = values
	return nil
}

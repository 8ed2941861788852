package timeseries

import (
	"fmt"
	"strconv"
)

// reverseEpochConstant fixes the reversal point for hour-bucket keys.
// Subtracting the hour index from this constant and zero-padding to a
// fixed width of 10 decimal digits produces a key that sorts in the
// opposite order to the timestamp it encodes: a forward lexicographic
// scan of these keys visits the newest hour first. The width and the
// constant are both load-bearing — changing either re-orders every key
// already written to disk. See SPEC_FULL.md §4.1.
const reverseEpochConstant uint64 = 976566751

const keyWidth = 10

// TsToKey encodes t's containing one-hour bucket as a fixed-width,
// order-reversed decimal string. Any timestamp within the same 3600s
// window as t maps to the same key.
func TsToKey(t uint64) string {
	hour := t / 3600
	return fmt.Sprintf("%0*d", keyWidth, reverseEpochConstant-hour)
}

// KeyToTs inverts TsToKey, returning the start-of-hour timestamp (always a
// multiple of 3600) the key was built from.
func KeyToTs(key string) (uint64, error) {
	if len(key) != keyWidth {
		return 0, fmt.Errorf("timeseries: invalid key width %q", key)
	}
	v, err := strconv.ParseUint(key, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("timeseries: invalid key %q: %w", key, err)
	}
	if v > reverseEpochConstant {
		return 0, fmt.Errorf("timeseries: key %q out of range", key)
	}
	hour := reverseEpochConstant - v
	return hour * 3600, nil
}

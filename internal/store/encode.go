package store

import (
	"fmt"
	"math"
	"strconv"
)

// Encode converts a scalar into the bytes written to the store.
//
// Strings and byte slices are stored verbatim, integers in base 10, floats in
// their shortest round-tripping form, and booleans as "1" or "0".
func Encode(v any) ([]byte, error) {
	switch val := v.(type) {
	case string:
		return []byte(val), nil
	case []byte:
		return append([]byte(nil), val...), nil
	case int:
		return strconv.AppendInt(nil, int64(val), 10), nil
	case int8:
		return strconv.AppendInt(nil, int64(val), 10), nil
	case int16:
		return strconv.AppendInt(nil, int64(val), 10), nil
	case int32:
		return strconv.AppendInt(nil, int64(val), 10), nil
	case int64:
		return strconv.AppendInt(nil, val, 10), nil
	case uint:
		return strconv.AppendUint(nil, uint64(val), 10), nil
	case uint8:
		return strconv.AppendUint(nil, uint64(val), 10), nil
	case uint16:
		return strconv.AppendUint(nil, uint64(val), 10), nil
	case uint32:
		return strconv.AppendUint(nil, uint64(val), 10), nil
	case uint64:
		return strconv.AppendUint(nil, val, 10), nil
	case float32:
		return strconv.AppendFloat(nil, float64(val), 'f', -1, 32), nil
	case float64:
		return strconv.AppendFloat(nil, val, 'f', -1, 64), nil
	case bool:
		if val {
			return []byte("1"), nil
		}
		return []byte("0"), nil
	default:
		return nil, fmt.Errorf("%w: %T", ErrUnsupportedValue, v)
	}
}

// parseCounter reads a stored counter value. A nil value counts as zero.
func parseCounter(data []byte) (int64, error) {
	if data == nil {
		return 0, nil
	}
	n, err := strconv.ParseInt(string(data), 10, 64)
	if err != nil {
		return 0, ErrNotInteger
	}
	return n, nil
}

// nextCounter returns the value INCR would store after data.
func nextCounter(data []byte) (int64, error) {
	n, err := parseCounter(data)
	if err != nil {
		return 0, err
	}
	if n == math.MaxInt64 {
		return 0, ErrNotInteger
	}
	return n + 1, nil
}

func formatInt(n int64) string {
	return strconv.FormatInt(n, 10)
}
